package youtube

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	ytapi "google.golang.org/api/youtube/v3"

	"maro_automation/comfort-studio/models"
)

const (
	DefaultCategoryID = "25"
	DefaultPrivacy    = "unlisted"

	descriptionExcerptRunes = 200
	maxTagChars             = 450
)

// Metadata is what gets attached to an uploaded video
type Metadata struct {
	Title       string
	Description string
	Tags        []string
	CategoryID  string
	Privacy     string
	MadeForKids bool
	Thumbnail   string
}

// ProgressFunc receives uploaded and total bytes
type ProgressFunc func(current, total int64)

// Uploader wraps the YouTube Data API
type Uploader struct {
	service *ytapi.Service
	logger  logrus.FieldLogger
}

// NewUploader creates an uploader using an authorized client. Extra options
// are passed to the API client.
func NewUploader(ctx context.Context, client *http.Client, logger logrus.FieldLogger, opts ...option.ClientOption) (*Uploader, error) {
	opts = append([]option.ClientOption{option.WithHTTPClient(client)}, opts...)
	service, err := ytapi.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create YouTube service: %w", err)
	}
	return &Uploader{service: service, logger: logger}, nil
}

// MetadataFor builds the upload metadata of a record
func MetadataFor(record *models.ContentRecord, channel models.ChannelInfo, privacy, categoryID string) Metadata {
	if privacy == "" {
		privacy = DefaultPrivacy
	}
	if categoryID == "" {
		categoryID = DefaultCategoryID
	}
	return Metadata{
		Title:       record.Title,
		Description: DescriptionFor(record, channel),
		Tags:        limitTags(record.Tags, maxTagChars),
		CategoryID:  categoryID,
		Privacy:     privacy,
		Thumbnail:   record.ThumbnailPath,
	}
}

// DescriptionFor renders the video description: title, an excerpt of the
// body, hashtags and the subscribe line
func DescriptionFor(record *models.ContentRecord, channel models.ChannelInfo) string {
	excerpt := strings.Join(strings.Fields(record.BodyText), " ")
	if utf8.RuneCountInString(excerpt) > descriptionExcerptRunes {
		excerpt = string([]rune(excerpt)[:descriptionExcerptRunes]) + "..."
	}

	var b strings.Builder
	b.WriteString(record.Title)
	b.WriteString("\n\n")
	b.WriteString(excerpt)
	b.WriteString("\n\n")
	b.WriteString(channel.Hashtag)
	b.WriteString("\n\n구독과 좋아요 부탁드립니다 💙")
	return b.String()
}

// limitTags keeps tags in order while their combined length fits YouTube's limit
func limitTags(tags []string, maxChars int) []string {
	var out []string
	used := 0
	for _, tag := range tags {
		n := utf8.RuneCountInString(tag)
		if used+n > maxChars {
			break
		}
		used += n + 1
		out = append(out, tag)
	}
	return out
}

// Upload sends the video and returns its ID. The thumbnail is set when
// meta.Thumbnail is given; a thumbnail failure is logged, not returned.
func (u *Uploader) Upload(ctx context.Context, path string, meta Metadata, progress ProgressFunc) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open video: %w", err)
	}
	defer file.Close()

	video := &ytapi.Video{
		Snippet: &ytapi.VideoSnippet{
			Title:       meta.Title,
			Description: meta.Description,
			Tags:        meta.Tags,
			CategoryId:  meta.CategoryID,
		},
		Status: &ytapi.VideoStatus{
			PrivacyStatus:           meta.Privacy,
			SelfDeclaredMadeForKids: meta.MadeForKids,
			ForceSendFields:         []string{"SelfDeclaredMadeForKids"},
		},
	}

	call := u.service.Videos.Insert([]string{"snippet", "status"}, video).
		Media(file, googleapi.ChunkSize(googleapi.DefaultUploadChunkSize)).
		Context(ctx)
	if progress != nil {
		call = call.ProgressUpdater(func(current, total int64) {
			progress(current, total)
		})
	}

	u.logger.WithFields(logrus.Fields{"title": meta.Title, "privacy": meta.Privacy}).Info("📤 uploading video")
	resp, err := call.Do()
	if err != nil {
		return "", fmt.Errorf("video upload failed: %w", err)
	}
	u.logger.WithField("video_id", resp.Id).Info("✅ upload complete")

	if meta.Thumbnail != "" {
		if err := u.SetThumbnail(ctx, resp.Id, meta.Thumbnail); err != nil {
			u.logger.WithError(err).Warn("⚠️ thumbnail upload failed")
		}
	}
	return resp.Id, nil
}

// SetThumbnail uploads a custom thumbnail
func (u *Uploader) SetThumbnail(ctx context.Context, videoID, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open thumbnail: %w", err)
	}
	defer file.Close()

	if _, err := u.service.Thumbnails.Set(videoID).Media(file).Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to set thumbnail: %w", err)
	}
	return nil
}

// EnsurePlaylist returns the ID of the channel playlist with title, creating
// it when missing
func (u *Uploader) EnsurePlaylist(ctx context.Context, title, description, privacy string) (string, error) {
	var found string
	err := u.service.Playlists.List([]string{"snippet"}).Mine(true).MaxResults(50).Pages(ctx, func(page *ytapi.PlaylistListResponse) error {
		for _, item := range page.Items {
			if item.Snippet != nil && item.Snippet.Title == title {
				found = item.Id
				return errStopPaging
			}
		}
		return nil
	})
	if err != nil && !errors.Is(err, errStopPaging) {
		return "", fmt.Errorf("failed to list playlists: %w", err)
	}
	if found != "" {
		return found, nil
	}

	if privacy == "" {
		privacy = DefaultPrivacy
	}
	playlist, err := u.service.Playlists.Insert([]string{"snippet", "status"}, &ytapi.Playlist{
		Snippet: &ytapi.PlaylistSnippet{Title: title, Description: description},
		Status:  &ytapi.PlaylistStatus{PrivacyStatus: privacy},
	}).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to create playlist %q: %w", title, err)
	}
	u.logger.WithFields(logrus.Fields{"playlist": title, "playlist_id": playlist.Id}).Info("📁 created playlist")
	return playlist.Id, nil
}

var errStopPaging = errors.New("stop paging")

// AddToPlaylist appends a video to a playlist
func (u *Uploader) AddToPlaylist(ctx context.Context, playlistID, videoID string) error {
	_, err := u.service.PlaylistItems.Insert([]string{"snippet"}, &ytapi.PlaylistItem{
		Snippet: &ytapi.PlaylistItemSnippet{
			PlaylistId: playlistID,
			ResourceId: &ytapi.ResourceId{Kind: "youtube#video", VideoId: videoID},
		},
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to add video %s to playlist %s: %w", videoID, playlistID, err)
	}
	return nil
}

// PlaylistTitle is the per-type playlist name
func PlaylistTitle(ct models.ContentType) string {
	return "maro - " + ct.UploadFrequency()
}

// PlaylistDescription describes the per-type playlist
func PlaylistDescription(ct models.ContentType, channel models.ChannelInfo) string {
	return fmt.Sprintf("%s %s 모음 (%s 업로드)", channel.Name, ct.Label(), ct.UploadFrequency())
}
