package clients

import (
	"context"
	"net/http"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
	"github.com/sirupsen/logrus"
)

// DefaultShouldRetry retries on network errors, server errors (5xx) and
// rate limits (429).
func DefaultShouldRetry(resp *http.Response, err error) bool {
	if err != nil {
		return true
	}
	if resp == nil {
		return true
	}
	switch resp.StatusCode {
	case http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout,
		http.StatusTooManyRequests:
		return true
	default:
		return false
	}
}

// RetryConfig configures the HTTP retry executor
type RetryConfig struct {
	MaxRetries  int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	ShouldRetry func(resp *http.Response, err error) bool
	Logger      logrus.FieldLogger
	Name        string
}

// DefaultRetryConfig matches the 1s, 2s, 4s backoff the upload tools use
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:  3,
		BaseDelay:   time.Second,
		MaxDelay:    8 * time.Second,
		ShouldRetry: DefaultShouldRetry,
	}
}

func normalize(cfg RetryConfig) RetryConfig {
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = time.Second
	}
	if cfg.MaxDelay < cfg.BaseDelay {
		cfg.MaxDelay = cfg.BaseDelay
	}
	if cfg.ShouldRetry == nil {
		cfg.ShouldRetry = DefaultShouldRetry
	}
	return cfg
}

// NewHTTPExecutor builds a failsafe executor with exponential backoff
//
//nolint:bodyclose // [*http.Response] is a type parameter here
func NewHTTPExecutor(cfg RetryConfig) failsafe.Executor[*http.Response] {
	cfg = normalize(cfg)
	builder := retrypolicy.NewBuilder[*http.Response]().
		WithBackoff(cfg.BaseDelay, cfg.MaxDelay).
		WithMaxRetries(cfg.MaxRetries).
		WithJitterFactor(0.1).
		HandleIf(func(resp *http.Response, err error) bool {
			return cfg.ShouldRetry(resp, err)
		})

	if cfg.Logger != nil {
		logger := cfg.Logger
		name := cfg.Name
		builder = builder.OnRetry(func(e failsafe.ExecutionEvent[*http.Response]) {
			fields := logrus.Fields{"client": name, "attempt": e.Attempts()}
			if resp := e.LastResult(); resp != nil {
				fields["status"] = resp.StatusCode
			}
			logger.WithFields(fields).WithError(e.LastError()).Warn("retrying request")
		})
	}

	return failsafe.With[*http.Response](builder.Build())
}

// Do sends the request built by newReq through the executor. newReq is
// called once per attempt so that request bodies can be replayed. Bodies of
// responses that trigger a retry are closed before the next attempt.
func Do(ctx context.Context, executor failsafe.Executor[*http.Response], client *http.Client, newReq func(ctx context.Context) (*http.Request, error)) (*http.Response, error) {
	var previous *http.Response
	return executor.WithContext(ctx).Get(func() (*http.Response, error) {
		if previous != nil {
			previous.Body.Close()
			previous = nil
		}
		req, err := newReq(ctx)
		if err != nil {
			return nil, err
		}
		resp, err := client.Do(req)
		if err == nil {
			previous = resp
		}
		return resp, err
	})
}
