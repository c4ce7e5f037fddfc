package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

const (
	// DefaultCacheEntries is how many recitation files the fetcher keeps in memory.
	DefaultCacheEntries = 32

	// DefaultFetchTimeout bounds a single recitation download.
	DefaultFetchTimeout = 60 * time.Second

	// MaxAudioSize is the largest recitation file accepted (32MB).
	MaxAudioSize = 32 * 1024 * 1024

	// DefaultUserAgent identifies Luminous to the audio host.
	DefaultUserAgent = "Luminous/0.1.0 (https://github.com/luminousverses/luminous)"
)

// Fetcher downloads recitation files and keeps the most recent ones in memory.
// Concurrent requests for the same URL share one download.
type Fetcher struct {
	httpClient *http.Client
	userAgent  string
	cache      *lru.Cache[string, []byte]
	group      singleflight.Group
}

// FetcherOption is a functional option for configuring the Fetcher
type FetcherOption func(*Fetcher)

// WithFetchHTTPClient sets a custom HTTP client
func WithFetchHTTPClient(client *http.Client) FetcherOption {
	return func(f *Fetcher) {
		f.httpClient = client
	}
}

// WithCacheEntries sets the number of files kept in memory.
func WithCacheEntries(n int) FetcherOption {
	return func(f *Fetcher) {
		if n < 1 {
			return
		}
		f.cache, _ = lru.New[string, []byte](n)
	}
}

// NewFetcher creates a new Fetcher.
func NewFetcher(opts ...FetcherOption) *Fetcher {
	cache, _ := lru.New[string, []byte](DefaultCacheEntries)
	f := &Fetcher{
		httpClient: &http.Client{Timeout: DefaultFetchTimeout},
		userAgent:  DefaultUserAgent,
		cache:      cache,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Cached reports whether url is already in memory.
func (f *Fetcher) Cached(url string) bool {
	return f.cache.Contains(url)
}

// Fetch returns the bytes of url, from memory when possible.
// Failures are returned as *MediaError.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	if data, ok := f.cache.Get(url); ok {
		return data, nil
	}

	v, err, shared := f.group.Do(url, func() (any, error) {
		data, err := f.download(ctx, url)
		if err != nil {
			return nil, err
		}
		f.cache.Add(url, data)
		return data, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		log.Debug().Str("url", url).Msg("Shared in-flight audio download")
	}
	return v.([]byte), nil
}

func (f *Fetcher) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &MediaError{Code: ErrCodeSrcNotSupported, Err: err}
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "audio/mpeg")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, classifyTransportError(err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
	case resp.StatusCode == http.StatusNotFound:
		return nil, &MediaError{Code: ErrCodeSrcNotSupported, Err: fmt.Errorf("status %d", resp.StatusCode)}
	default:
		return nil, &MediaError{Code: ErrCodeNetwork, Err: fmt.Errorf("status %d", resp.StatusCode)}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxAudioSize))
	if err != nil {
		return nil, classifyTransportError(err)
	}
	if len(data) == 0 {
		return nil, &MediaError{Code: ErrCodeDecode, Err: errors.New("empty response")}
	}

	log.Debug().Str("url", url).Int("size", len(data)).Msg("Fetched recitation audio")
	return data, nil
}

func classifyTransportError(err error) error {
	if errors.Is(err, context.Canceled) {
		return &MediaError{Code: ErrCodeAborted, Err: err}
	}
	return &MediaError{Code: ErrCodeNetwork, Err: err}
}
