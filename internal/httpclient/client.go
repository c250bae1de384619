/**
 * @description
 * Outbound HTTP fetch wrapper shared by the scraper and the market-data clients.
 * Every request carries fixed browser-like headers, a fixed timeout and waits for
 * its slot on a pacing limiter so consecutive requests are spaced by a fixed delay.
 *
 * @dependencies
 * - github.com/hashicorp/go-retryablehttp: transport and request logging
 * - golang.org/x/time/rate: request pacing
 *
 * @notes
 * - Retries are disabled. A failed call fails that attempt; callers decide what happens next.
 */

package httpclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/bluewhale-terminal/backend/internal/logger"
	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/time/rate"
)

const (
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
	DefaultTimeout   = 15 * time.Second
	DefaultDelay     = 2 * time.Second

	maxBodyBytes = 10 << 20
)

// Fetcher is the read-only surface the scraper and API clients depend on.
type Fetcher interface {
	Get(ctx context.Context, url string) ([]byte, error)
}

// StatusError is returned when the remote answers with a non-2xx status.
type StatusError struct {
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %d", e.URL, e.StatusCode)
}

// Client is a paced, header-stamping HTTP GET client
type Client struct {
	http    *retryablehttp.Client
	limiter *rate.Limiter
	headers map[string]string
	timeout time.Duration
	delay   time.Duration
	quiet   bool
}

// Option configures a Client
type Option func(*Client)

// WithTimeout sets the per-request timeout
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithDelay sets the minimum spacing between consecutive requests. Zero disables pacing.
func WithDelay(d time.Duration) Option {
	return func(c *Client) { c.delay = d }
}

// WithUserAgent overrides the User-Agent header
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.headers["User-Agent"] = ua
		}
	}
}

// WithHeader sets a fixed header on every request
func WithHeader(key, value string) Option {
	return func(c *Client) { c.headers[key] = value }
}

// WithoutRequestLog stops the transport from logging request URLs, for URLs that carry credentials.
func WithoutRequestLog() Option {
	return func(c *Client) { c.quiet = true }
}

// New creates a Client. Defaults: browser user agent, HTML accept headers, 15s timeout, 2s spacing.
func New(opts ...Option) *Client {
	c := &Client{
		headers: map[string]string{
			"User-Agent":      DefaultUserAgent,
			"Accept":          "text/html,application/xhtml+xml",
			"Accept-Language": "en-US,en;q=0.9",
		},
		timeout: DefaultTimeout,
		delay:   DefaultDelay,
	}
	for _, opt := range opts {
		opt(c)
	}

	rc := retryablehttp.NewClient()
	rc.RetryMax = 0
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	rc.HTTPClient.Timeout = c.timeout
	rc.Logger = logger.KV{}
	if c.quiet {
		rc.Logger = nil
	}
	c.http = rc

	limit := rate.Inf
	if c.delay > 0 {
		limit = rate.Every(c.delay)
	}
	c.limiter = rate.NewLimiter(limit, 1)

	return c
}

// Delay returns the configured request spacing
func (c *Client) Delay() time.Duration {
	return c.delay
}

// Get fetches url and returns the body of a 2xx response.
func (c *Client) Get(ctx context.Context, url string) ([]byte, error) {
	return c.do(ctx, url, nil)
}

// GetJSON fetches url with a JSON Accept header and decodes the body into v.
func (c *Client) GetJSON(ctx context.Context, url string, v interface{}) error {
	body, err := c.do(ctx, url, map[string]string{"Accept": "application/json"})
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("decode %s: %w", url, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, url string, extra map[string]string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	for k, v := range extra {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", url, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{URL: url, StatusCode: resp.StatusCode, Body: truncate(string(body), 512)}
	}
	return body, nil
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "...(truncated)"
}
