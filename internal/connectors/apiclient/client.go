// Package apiclient is the JSON-over-HTTP client shared by the hosted source
// adapters. It owns authorization, typed errors and 429 handling; pacing
// between pages is left to the sync loop.
package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/shelfsync/internal/logger"
)

const (
	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 30 * time.Second

	// MaxRetries is the number of times a 429 response is retried.
	MaxRetries = 3

	// MaxRetryWait caps the Retry-After the client is willing to sleep for.
	MaxRetryWait = 5 * time.Minute

	// UserAgent identifies shelfsync to the sources.
	UserAgent = "shelfsync"

	maxErrorBody = 512
)

// Client talks to one hosted source.
type Client struct {
	http          *http.Client
	baseURL       *url.URL
	authorization string
	limiter       *RateLimiter
	maxRetries    int
	maxRetryWait  time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithRateLimit throttles requests to rps with the given burst.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		backoff := c.limiter.defaultBackoff
		c.limiter = NewRateLimiter(rps, burst)
		c.limiter.defaultBackoff = backoff
	}
}

// WithDefaultBackoff sets the wait used after a 429 without Retry-After.
func WithDefaultBackoff(d time.Duration) Option {
	return func(c *Client) { c.limiter.defaultBackoff = d }
}

// WithRetries sets how many times a 429 response is retried.
func WithRetries(n int) Option {
	return func(c *Client) { c.maxRetries = n }
}

// New creates a client for baseURL. authorization is the complete value of
// the Authorization header, or empty for none.
func New(baseURL, authorization string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q", baseURL)
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}

	c := &Client{
		http:          &http.Client{Timeout: DefaultTimeout},
		baseURL:       u,
		authorization: authorization,
		limiter:       NewRateLimiter(0, 1),
		maxRetries:    MaxRetries,
		maxRetryWait:  MaxRetryWait,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the base URL requests are resolved against.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// GetJSON issues a GET for path, relative to the base URL, and decodes the
// JSON response into out. 429 responses are retried after the backoff the
// source asks for.
func (c *Client) GetJSON(ctx context.Context, path string, query url.Values, out any) error {
	target := c.resolve(path, query)

	for attempt := 0; ; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		err := c.get(ctx, target, out)
		var rateErr *RateLimitError
		if !errors.As(err, &rateErr) {
			return err
		}
		if attempt >= c.maxRetries || rateErr.RetryAfter > c.maxRetryWait {
			return err
		}
		wait := c.limiter.Backoff(rateErr.RetryAfter)
		logger.Debug("rate limited by %s, retrying in %s", c.baseURL.Host, wait)
	}
}

func (c *Client) resolve(path string, query url.Values) string {
	ref := &url.URL{Path: strings.TrimPrefix(path, "/")}
	u := c.baseURL.ResolveReference(ref)
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

func (c *Client) get(ctx context.Context, target string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", UserAgent)
	if c.authorization != "" {
		req.Header.Set("Authorization", c.authorization)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", redact(target), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		_, _ = io.Copy(io.Discard, resp.Body)
		return &RateLimitError{
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
			URL:        redact(target),
		}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(body)),
			URL:        redact(target),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s: %w", redact(target), err)
	}
	return nil
}

// parseRetryAfter accepts delay-seconds or an HTTP date.
func parseRetryAfter(v string) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(v); err == nil {
		return time.Until(at)
	}
	return 0
}

// redact drops the query string from URLs shown in errors.
func redact(target string) string {
	if i := strings.IndexByte(target, '?'); i >= 0 {
		return target[:i]
	}
	return target
}

// TokenAuthorization builds the "Token <key>" header value used by the
// highlighting service's APIs.
func TokenAuthorization(token string) string {
	token = strings.TrimSpace(token)
	if token == "" {
		return ""
	}
	return "Token " + token
}
