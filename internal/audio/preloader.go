package audio

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
)

// Preloader warms the Fetcher cache for upcoming verses. Each URL is
// attempted at most once; failures are logged and otherwise ignored.
type Preloader struct {
	fetcher *Fetcher

	mu        sync.Mutex
	attempted map[string]struct{}
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// NewPreloader creates a Preloader backed by fetcher.
func NewPreloader(fetcher *Fetcher) *Preloader {
	ctx, cancel := context.WithCancel(context.Background())
	return &Preloader{
		fetcher:   fetcher,
		attempted: make(map[string]struct{}),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Warm starts fetching url in the background unless it was attempted
// before. It reports whether a fetch was started.
func (p *Preloader) Warm(url string) bool {
	if url == "" {
		return false
	}

	p.mu.Lock()
	if _, seen := p.attempted[url]; seen || p.ctx.Err() != nil {
		p.mu.Unlock()
		return false
	}
	p.attempted[url] = struct{}{}
	p.wg.Add(1)
	p.mu.Unlock()

	go func() {
		defer p.wg.Done()
		ctx, cancel := context.WithTimeout(p.ctx, DefaultFetchTimeout)
		defer cancel()

		if _, err := p.fetcher.Fetch(ctx, url); err != nil {
			log.Debug().Err(err).Str("url", url).Msg("Preload failed")
			return
		}
		log.Debug().Str("url", url).Msg("Preloaded next verse")
	}()
	return true
}

// Reset forgets which URLs were attempted.
func (p *Preloader) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.attempted = make(map[string]struct{})
}

// Close cancels in-flight fetches and waits for them to return.
func (p *Preloader) Close() {
	p.mu.Lock()
	p.cancel()
	p.mu.Unlock()
	p.wg.Wait()
}
