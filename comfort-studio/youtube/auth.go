package youtube

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	ytapi "google.golang.org/api/youtube/v3"
)

// ErrNoToken means the channel has not been authorized yet
var ErrNoToken = errors.New("no cached YouTube token, run the auth command first")

// Authenticator handles the installed-app OAuth flow and token caching
type Authenticator struct {
	config *oauth2.Config
	store  *TokenStore
	logger logrus.FieldLogger
	port   int

	// OnAuthURL is called with the consent URL the user must open
	OnAuthURL func(authURL string)
}

// NewAuthenticator reads the client secrets file downloaded from the Google
// console
func NewAuthenticator(secretsFile string, store *TokenStore, port int, logger logrus.FieldLogger) (*Authenticator, error) {
	data, err := os.ReadFile(secretsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read client secrets %s: %w", secretsFile, err)
	}
	config, err := google.ConfigFromJSON(data, ytapi.YoutubeUploadScope, ytapi.YoutubeScope)
	if err != nil {
		return nil, fmt.Errorf("failed to parse client secrets: %w", err)
	}
	return &Authenticator{
		config: config,
		store:  store,
		logger: logger,
		port:   port,
		OnAuthURL: func(authURL string) {
			fmt.Printf("\n🔐 Open this URL in your browser to authorize the channel:\n\n%s\n\n", authURL)
		},
	}, nil
}

// TokenSource returns a refreshing token source backed by the cached token.
// Refreshed tokens are written back to the token file.
func (a *Authenticator) TokenSource(ctx context.Context) (oauth2.TokenSource, error) {
	token, err := a.store.Load()
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoToken
	}
	if err != nil {
		return nil, err
	}
	return a.wrap(ctx, token), nil
}

func (a *Authenticator) wrap(ctx context.Context, token *oauth2.Token) oauth2.TokenSource {
	return oauth2.ReuseTokenSource(token, &savingTokenSource{
		base:   a.config.TokenSource(ctx, token),
		store:  a.store,
		latest: token.AccessToken,
		onErr: func(err error) {
			a.logger.WithError(err).Warn("failed to persist refreshed token")
		},
	})
}

// Client returns an authorized HTTP client, running the consent flow when
// interactive is set and no token is cached
func (a *Authenticator) Client(ctx context.Context, interactive bool) (*http.Client, error) {
	source, err := a.TokenSource(ctx)
	if errors.Is(err, ErrNoToken) && interactive {
		token, authErr := a.Authorize(ctx)
		if authErr != nil {
			return nil, authErr
		}
		source, err = a.wrap(ctx, token), nil
	}
	if err != nil {
		return nil, err
	}
	return oauth2.NewClient(ctx, source), nil
}

type callbackResult struct {
	code string
	err  error
}

// Authorize runs the installed-app flow with a loopback callback server and
// caches the resulting token
func (a *Authenticator) Authorize(ctx context.Context) (*oauth2.Token, error) {
	listener, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", a.port))
	if err != nil {
		return nil, fmt.Errorf("failed to start OAuth callback listener: %w", err)
	}

	config := *a.config
	config.RedirectURL = fmt.Sprintf("http://%s/oauth2callback", listener.Addr().String())

	state := uuid.NewString()
	results := make(chan callbackResult, 1)

	router := mux.NewRouter()
	router.HandleFunc("/oauth2callback", callbackHandler(state, results)).Methods(http.MethodGet)
	server := &http.Server{Handler: router, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			select {
			case results <- callbackResult{err: err}:
			default:
			}
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	a.OnAuthURL(config.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce))
	a.logger.WithField("redirect", config.RedirectURL).Info("waiting for OAuth callback")

	var result callbackResult
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case result = <-results:
	}
	if result.err != nil {
		return nil, result.err
	}

	token, err := config.Exchange(ctx, result.code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange authorization code: %w", err)
	}
	if err := a.store.Save(token); err != nil {
		return nil, fmt.Errorf("failed to cache token: %w", err)
	}
	a.logger.WithField("token_file", a.store.Path()).Info("✅ YouTube authorization saved")
	return token, nil
}

func callbackHandler(state string, results chan<- callbackResult) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		var result callbackResult
		switch {
		case query.Get("error") != "":
			result.err = fmt.Errorf("authorization denied: %s", query.Get("error"))
		case query.Get("state") != state:
			http.Error(w, "state mismatch", http.StatusBadRequest)
			return
		case query.Get("code") == "":
			result.err = errors.New("authorization callback without code")
		default:
			result.code = query.Get("code")
		}

		if result.err != nil {
			http.Error(w, result.err.Error(), http.StatusBadRequest)
		} else {
			fmt.Fprintln(w, "Authorization complete. You can close this window.")
		}

		select {
		case results <- result:
		default:
		}
	}
}
