// Package quranapi provides a client for the remote chapter and verse API.
package quranapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	// DefaultBaseURL is the chapter and verse API host.
	DefaultBaseURL = "https://onlyquranexpo.vercel.app"

	// DefaultTranslator is the translation used when none is requested.
	DefaultTranslator = "en.yusufali"

	// DefaultUserAgent identifies Luminous to the API.
	DefaultUserAgent = "Luminous/0.1.0 (https://github.com/luminousverses/luminous)"

	// DefaultTimeout for HTTP requests
	DefaultTimeout = 30 * time.Second

	// MaxResponseSize caps how much of a response body is read (8MB).
	MaxResponseSize = 8 * 1024 * 1024
)

var (
	// ErrInvalidPayload is returned when a response does not have the expected shape.
	ErrInvalidPayload = errors.New("quranapi: invalid payload")
	// ErrSurahNotFound is returned when the requested chapter is not in the chapter list.
	ErrSurahNotFound = errors.New("quranapi: surah not found")
	// ErrVerseNotFound is returned when the API reports the verse does not exist.
	ErrVerseNotFound = errors.New("quranapi: verse not found")
	// ErrRateLimited is returned on HTTP 429.
	ErrRateLimited = errors.New("quranapi: rate limited")
	// ErrTemporaryFailure is returned on 502, 503 and 504.
	ErrTemporaryFailure = errors.New("quranapi: temporary failure")
)

// StatusError is returned for any other non-2xx response.
type StatusError struct {
	Op         string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("quranapi: %s: unexpected status %d", e.Op, e.StatusCode)
}

// Client talks to the chapter and verse API.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	limiter    *rateLimiter
}

// Option is a functional option for configuring the client
type Option func(*Client)

// WithBaseURL sets a custom base URL (useful for testing)
func WithBaseURL(u string) Option {
	return func(c *Client) {
		c.baseURL = u
	}
}

// WithUserAgent sets a custom User-Agent header
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithRateLimit caps outgoing requests per second. Zero disables limiting.
func WithRateLimit(rps int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		c.limiter = newRateLimiter(rps)
	}
}

// NewClient creates a new API client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL:   DefaultBaseURL,
		userAgent: DefaultUserAgent,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// BaseURL returns the API host the client talks to.
func (c *Client) BaseURL() string { return c.baseURL }

// getJSON performs a GET on path with query and returns the raw body.
// notFound, when non-nil, is returned for a 404 instead of a StatusError.
func (c *Client) getJSON(ctx context.Context, op, path string, query url.Values, notFound error) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	log.Debug().Str("op", op).Str("url", u).Msg("API request")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: http request: %w", op, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
	case resp.StatusCode == http.StatusNotFound && notFound != nil:
		return nil, notFound
	case resp.StatusCode == http.StatusTooManyRequests:
		log.Warn().Str("op", op).Msg("API rate limit exceeded")
		return nil, ErrRateLimited
	case resp.StatusCode == http.StatusServiceUnavailable,
		resp.StatusCode == http.StatusBadGateway,
		resp.StatusCode == http.StatusGatewayTimeout:
		log.Warn().Str("op", op).Int("status", resp.StatusCode).Msg("API temporary error")
		return nil, ErrTemporaryFailure
	default:
		log.Warn().Str("op", op).Int("status", resp.StatusCode).Msg("API unexpected status")
		return nil, &StatusError{Op: op, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("%s: read response: %w", op, err)
	}
	return body, nil
}

// decodeArray decodes body into out, rejecting anything that is not a JSON array.
func decodeArray(op string, body []byte, out any) error {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return fmt.Errorf("%s: expected array: %w", op, ErrInvalidPayload)
	}
	if err := json.Unmarshal(trimmed, out); err != nil {
		return fmt.Errorf("%s: %w: %v", op, ErrInvalidPayload, err)
	}
	return nil
}

// rateLimiter spaces requests evenly.
type rateLimiter struct {
	mu          sync.Mutex
	interval    time.Duration
	lastRequest time.Time
}

func newRateLimiter(requestsPerSecond int) *rateLimiter {
	return &rateLimiter{
		interval: time.Second / time.Duration(requestsPerSecond),
	}
}

// Wait blocks until a request can be made
func (r *rateLimiter) Wait(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	nextAllowed := r.lastRequest.Add(r.interval)
	if wait := time.Until(nextAllowed); wait > 0 {
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	r.lastRequest = time.Now()
	return nil
}
