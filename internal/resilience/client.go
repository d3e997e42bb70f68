package resilience

import (
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// ClientConfig holds configuration for the retrying HTTP client.
type ClientConfig struct {
	// Name identifies this client for logging.
	Name string

	// Timeout is the per-attempt HTTP timeout.
	// Default: 10 seconds
	Timeout time.Duration

	// MaxRetries is the maximum number of retry attempts after the first call.
	// Default: 2
	MaxRetries uint64

	// InitialInterval is the initial retry backoff interval.
	// Default: 100ms
	InitialInterval time.Duration

	// MaxInterval is the maximum retry backoff interval.
	// Default: 2 seconds
	MaxInterval time.Duration
}

// DefaultClientConfig returns sensible defaults for the retrying client.
func DefaultClientConfig(name string) ClientConfig {
	return ClientConfig{
		Name:            name,
		Timeout:         10 * time.Second,
		MaxRetries:      2,
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     2 * time.Second,
	}
}

// Client is an outbound HTTP client that retries transient failures (5xx and
// network errors) with exponential backoff. Circuit breaking happens one
// level up at the service boundary, so all retries here count as a single
// breaker-guarded attempt and stay inside that attempt's call timeout.
type Client struct {
	httpClient *http.Client
	config     ClientConfig
}

// NewClient creates a new retrying HTTP client.
func NewClient(cfg ClientConfig) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 2
	}
	if cfg.InitialInterval == 0 {
		cfg.InitialInterval = 100 * time.Millisecond
	}
	if cfg.MaxInterval == 0 {
		cfg.MaxInterval = 2 * time.Second
	}

	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		config:     cfg,
	}
}

// Name returns the client name.
func (c *Client) Name() string {
	return c.config.Name
}

// Do executes the request, retrying on 5xx responses and network errors.
// The request context cancels any remaining retries.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.config.InitialInterval
	bo.MaxInterval = c.config.MaxInterval
	bo.MaxElapsedTime = 0 // retries are bounded by count and context, not wall clock

	policy := backoff.WithContext(backoff.WithMaxRetries(bo, c.config.MaxRetries), ctx)

	var resp *http.Response
	operation := func() error {
		r, err := c.httpClient.Do(req.Clone(ctx))
		if err != nil {
			return err
		}

		if r.StatusCode >= 500 {
			_ = r.Body.Close()
			return &ServerError{StatusCode: r.StatusCode}
		}

		resp = r
		return nil
	}

	if err := backoff.Retry(operation, policy); err != nil {
		return nil, err
	}
	return resp, nil
}

// ServerError represents an HTTP 5xx response treated as retryable.
type ServerError struct {
	StatusCode int
}

func (e *ServerError) Error() string {
	return "server error: " + http.StatusText(e.StatusCode)
}
