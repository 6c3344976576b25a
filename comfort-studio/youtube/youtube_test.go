package youtube

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
	"google.golang.org/api/option"

	"maro_automation/comfort-studio/models"
)

func TestTokenStoreRoundTrip(t *testing.T) {
	store := NewTokenStore(filepath.Join(t.TempDir(), "auth", "token.json"))

	_, err := store.Load()
	assert.ErrorIs(t, err, os.ErrNotExist)

	expiry := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.Save(&oauth2.Token{AccessToken: "at", RefreshToken: "rt", TokenType: "Bearer", Expiry: expiry}))

	info, err := os.Stat(store.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	token, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "rt", token.RefreshToken)
	assert.True(t, token.Expiry.Equal(expiry))
}

type sequenceSource struct {
	tokens []string
	i      int
}

func (s *sequenceSource) Token() (*oauth2.Token, error) {
	token := &oauth2.Token{AccessToken: s.tokens[s.i], RefreshToken: "rt"}
	if s.i < len(s.tokens)-1 {
		s.i++
	}
	return token, nil
}

func TestSavingTokenSourceWritesRefreshedTokens(t *testing.T) {
	store := NewTokenStore(filepath.Join(t.TempDir(), "token.json"))
	source := &savingTokenSource{base: &sequenceSource{tokens: []string{"old", "new"}}, store: store, latest: "old"}

	_, err := source.Token()
	require.NoError(t, err)
	_, err = store.Load()
	assert.ErrorIs(t, err, os.ErrNotExist, "unchanged token is not rewritten")

	_, err = source.Token()
	require.NoError(t, err)
	saved, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "new", saved.AccessToken)
}

func TestCallbackHandler(t *testing.T) {
	results := make(chan callbackResult, 1)
	handler := callbackHandler("state-1", results)

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/oauth2callback?state=wrong&code=abc", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Len(t, results, 0)

	rec = httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/oauth2callback?state=state-1&code=abc", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	result := <-results
	assert.NoError(t, result.err)
	assert.Equal(t, "abc", result.code)

	rec = httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/oauth2callback?error=access_denied", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.ErrorContains(t, (<-results).err, "access_denied")
}

func writeSecrets(t *testing.T, tokenURL string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "client_secret.json")
	secrets := fmt.Sprintf(`{"installed":{"client_id":"cid","client_secret":"secret","redirect_uris":["http://localhost"],"auth_uri":"%s/auth","token_uri":"%s/token"}}`, tokenURL, tokenURL)
	require.NoError(t, os.WriteFile(path, []byte(secrets), 0600))
	return path
}

func TestAuthorizeInstalledAppFlow(t *testing.T) {
	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "the-code", r.PostForm.Get("code"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"at","refresh_token":"rt","token_type":"Bearer","expires_in":3600}`))
	}))
	defer tokenServer.Close()

	logger, _ := test.NewNullLogger()
	store := NewTokenStore(filepath.Join(t.TempDir(), "token.json"))
	auth, err := NewAuthenticator(writeSecrets(t, tokenServer.URL), store, 0, logger)
	require.NoError(t, err)

	_, err = auth.TokenSource(context.Background())
	assert.ErrorIs(t, err, ErrNoToken)

	auth.OnAuthURL = func(authURL string) {
		u, err := url.Parse(authURL)
		require.NoError(t, err)
		query := u.Query()
		assert.Equal(t, "offline", query.Get("access_type"))
		assert.Contains(t, query.Get("scope"), "youtube.upload")

		go func() {
			callback := query.Get("redirect_uri") + "?code=the-code&state=" + url.QueryEscape(query.Get("state"))
			resp, err := http.Get(callback)
			if err == nil {
				resp.Body.Close()
			}
		}()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	token, err := auth.Authorize(ctx)
	require.NoError(t, err)
	assert.Equal(t, "at", token.AccessToken)

	saved, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "rt", saved.RefreshToken)

	source, err := auth.TokenSource(context.Background())
	require.NoError(t, err)
	cached, err := source.Token()
	require.NoError(t, err)
	assert.Equal(t, "at", cached.AccessToken)
}

func TestDescriptionAndMetadata(t *testing.T) {
	channel := models.DefaultConfig().Channel
	record := &models.ContentRecord{
		ContentType:   models.DailyComfort,
		Title:         "오늘의 위로: 쉼",
		BodyText:      strings.Repeat("가", 250),
		Tags:          []string{"maro", "마음위로"},
		ThumbnailPath: "/tmp/thumb.png",
	}

	meta := MetadataFor(record, channel, "", "")
	assert.Equal(t, "25", meta.CategoryID)
	assert.Equal(t, "unlisted", meta.Privacy)
	assert.False(t, meta.MadeForKids)
	assert.Equal(t, "/tmp/thumb.png", meta.Thumbnail)

	assert.True(t, strings.HasPrefix(meta.Description, "오늘의 위로: 쉼\n\n"+strings.Repeat("가", 200)+"..."))
	assert.Contains(t, meta.Description, "#maro #마음위로 #위로 #힐링 #일상위로")
	assert.True(t, strings.HasSuffix(meta.Description, "구독과 좋아요 부탁드립니다 💙"))

	assert.Equal(t, "maro - 주 2회 (화,토)", PlaylistTitle(models.HealingSound))
	assert.Equal(t, []string{"abc", "de"}, limitTags([]string{"abc", "de", "fgh"}, 7))
}

type apiRecorder struct {
	mu    sync.Mutex
	paths []string
}

func (a *apiRecorder) add(r *http.Request) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.paths = append(a.paths, r.Method+" "+r.URL.Path)
}

func newTestUploader(t *testing.T, handler http.HandlerFunc) *Uploader {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	logger, _ := test.NewNullLogger()
	uploader, err := NewUploader(context.Background(), server.Client(), logger, option.WithEndpoint(server.URL+"/"))
	require.NoError(t, err)
	return uploader
}

func TestEnsurePlaylistFindsExisting(t *testing.T) {
	recorder := &apiRecorder{}
	uploader := newTestUploader(t, func(w http.ResponseWriter, r *http.Request) {
		recorder.add(r)
		assert.Equal(t, "true", r.URL.Query().Get("mine"))
		_, _ = w.Write([]byte(`{"items":[{"id":"PL1","snippet":{"title":"other"}},{"id":"PL2","snippet":{"title":"maro - 매일"}}]}`))
	})

	id, err := uploader.EnsurePlaylist(context.Background(), "maro - 매일", "", "")
	require.NoError(t, err)
	assert.Equal(t, "PL2", id)
	assert.Len(t, recorder.paths, 1)
}

func TestEnsurePlaylistCreatesAndAddsVideo(t *testing.T) {
	recorder := &apiRecorder{}
	uploader := newTestUploader(t, func(w http.ResponseWriter, r *http.Request) {
		recorder.add(r)
		switch {
		case r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "/playlists"):
			_, _ = w.Write([]byte(`{"items":[]}`))
		case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/playlists"):
			var body map[string]map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "maro - 매일", body["snippet"]["title"])
			assert.Equal(t, "unlisted", body["status"]["privacyStatus"])
			_, _ = w.Write([]byte(`{"id":"PLNEW"}`))
		case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/playlistItems"):
			data, _ := io.ReadAll(r.Body)
			assert.Contains(t, string(data), `"videoId":"vid1"`)
			assert.Contains(t, string(data), `"youtube#video"`)
			_, _ = w.Write([]byte(`{"id":"item1"}`))
		default:
			http.NotFound(w, r)
		}
	})

	id, err := uploader.EnsurePlaylist(context.Background(), "maro - 매일", "desc", "")
	require.NoError(t, err)
	assert.Equal(t, "PLNEW", id)

	require.NoError(t, uploader.AddToPlaylist(context.Background(), id, "vid1"))
	assert.Len(t, recorder.paths, 3)
}

func TestUploadSetsMetadataAndThumbnail(t *testing.T) {
	dir := t.TempDir()
	video := filepath.Join(dir, "final.mp4")
	thumb := filepath.Join(dir, "thumb.png")
	require.NoError(t, os.WriteFile(video, []byte("fake video bytes"), 0644))
	require.NoError(t, os.WriteFile(thumb, []byte("fake png"), 0644))

	recorder := &apiRecorder{}
	uploader := newTestUploader(t, func(w http.ResponseWriter, r *http.Request) {
		recorder.add(r)
		switch {
		case strings.HasSuffix(r.URL.Path, "/videos"):
			assert.Equal(t, []string{"snippet", "status"}, r.URL.Query()["part"])
			data, _ := io.ReadAll(r.Body)
			assert.Contains(t, string(data), `"categoryId":"25"`)
			assert.Contains(t, string(data), `"selfDeclaredMadeForKids":false`)
			assert.Contains(t, string(data), "fake video bytes")
			_, _ = w.Write([]byte(`{"id":"vid123"}`))
		case strings.HasSuffix(r.URL.Path, "/thumbnails/set"):
			assert.Equal(t, "vid123", r.URL.Query().Get("videoId"))
			_, _ = w.Write([]byte(`{"items":[]}`))
		default:
			http.NotFound(w, r)
		}
	})

	id, err := uploader.Upload(context.Background(), video, Metadata{
		Title: "title", CategoryID: "25", Privacy: "unlisted", Thumbnail: thumb,
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, "vid123", id)
	assert.Len(t, recorder.paths, 2)
}
