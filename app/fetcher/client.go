package fetcher

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	// DefaultTimeout is the per-request HTTP timeout.
	DefaultTimeout = 20 * time.Second

	// DefaultMinInterval is the minimum spacing between any two requests.
	// Global throttling, not per-host.
	DefaultMinInterval = 500 * time.Millisecond

	// DefaultMaxRetries is the retry budget for transient statuses.
	DefaultMaxRetries = 3

	// DefaultBackoff is the base delay, doubled on each retry.
	DefaultBackoff = 1 * time.Second
)

// Transient statuses worth retrying on idempotent requests.
var retryStatuses = map[int]bool{
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

// Client is the shared HTTP fetcher used by all network-based ingestion.
// It owns one pooled http.Client and one rate limiter for the process
// lifetime of the pipeline run.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	userAgent  string
	maxRetries int
	backoff    time.Duration
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithMinInterval sets a custom minimum inter-request spacing.
func WithMinInterval(interval time.Duration) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Every(interval), 1)
	}
}

// WithRetries sets a custom retry budget and base backoff delay.
func WithRetries(maxRetries int, backoff time.Duration) ClientOption {
	return func(c *Client) {
		c.maxRetries = maxRetries
		c.backoff = backoff
	}
}

// NewClient creates a new fetcher client.
func NewClient(userAgent string, opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter:    rate.NewLimiter(rate.Every(DefaultMinInterval), 1),
		userAgent:  userAgent,
		maxRetries: DefaultMaxRetries,
		backoff:    DefaultBackoff,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Get performs a rate-limited GET, retrying transient statuses up to the
// retry budget with exponential backoff. Responses with status >= 400 are
// returned to the caller rather than converted into errors; callers decide
// policy, the fetcher only logs a warning.
func (c *Client) Get(ctx context.Context, rawURL string, params url.Values) (*http.Response, error) {
	if len(params) > 0 {
		sep := "?"
		if strings.Contains(rawURL, "?") {
			sep = "&"
		}
		rawURL = rawURL + sep + params.Encode()
	}
	return c.do(ctx, http.MethodGet, rawURL)
}

// Head performs a rate-limited HEAD with the same retry policy as Get.
func (c *Client) Head(ctx context.Context, rawURL string) (*http.Response, error) {
	return c.do(ctx, http.MethodHead, rawURL)
}

func (c *Client) do(ctx context.Context, method, rawURL string) (*http.Response, error) {
	var resp *http.Response
	backoff := c.backoff

	for attempt := 0; ; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", c.userAgent)

		slog.Debug("HTTP request", "method", method, "url", rawURL, "attempt", attempt+1)

		resp, err = c.httpClient.Do(req)
		if err == nil && !retryStatuses[resp.StatusCode] {
			break
		}

		if !idempotent(method) || attempt >= c.maxRetries {
			if err != nil {
				return nil, err
			}
			break
		}

		if err != nil {
			slog.Debug("HTTP request failed, retrying", "url", rawURL, "error", err, "backoff", backoff)
		} else {
			resp.Body.Close()
			slog.Debug("Transient HTTP status, retrying", "url", rawURL, "status", resp.StatusCode, "backoff", backoff)
		}

		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		backoff *= 2
	}

	if resp.StatusCode >= 400 {
		slog.Warn("HTTP error status", "status", resp.StatusCode, "url", rawURL)
	}

	return resp, nil
}

func idempotent(method string) bool {
	return method == http.MethodGet || method == http.MethodHead
}
