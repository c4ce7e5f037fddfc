package audio

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// DefaultPoolCapacity bounds how many released handles are kept for reuse.
const DefaultPoolCapacity = 5

// Pool hands out reusable handles and tracks the single active one.
//
// A handle is leased from Acquire until Release. The active handle is always
// leased, and a leased handle is never in the free set.
type Pool struct {
	mu       sync.Mutex
	factory  Factory
	capacity int
	free     []Handle
	leased   map[Handle]struct{}
	active   Handle
}

// NewPool creates a pool that constructs handles with factory.
// A capacity below one uses DefaultPoolCapacity.
func NewPool(factory Factory, capacity int) *Pool {
	if capacity < 1 {
		capacity = DefaultPoolCapacity
	}
	return &Pool{
		factory:  factory,
		capacity: capacity,
		leased:   make(map[Handle]struct{}),
	}
}

// Acquire returns a free handle, constructing one only when none is pooled.
func (p *Pool) Acquire() Handle {
	p.mu.Lock()
	defer p.mu.Unlock()

	var h Handle
	if n := len(p.free); n > 0 {
		h = p.free[n-1]
		p.free = p.free[:n-1]
	} else {
		h = p.factory()
	}
	p.leased[h] = struct{}{}
	return h
}

// Release resets h and returns it to the free set. When the free set is full
// the handle is closed instead. Releasing a handle that is not leased is a no-op.
func (p *Pool) Release(h Handle) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.releaseLocked(h)
}

func (p *Pool) releaseLocked(h Handle) {
	if h == nil {
		return
	}
	if _, ok := p.leased[h]; !ok {
		return
	}
	delete(p.leased, h)
	if p.active == h {
		p.active = nil
	}

	h.Reset()
	if len(p.free) >= p.capacity {
		log.Debug().Int("capacity", p.capacity).Msg("Audio pool full, discarding handle")
		h.Close()
		return
	}
	p.free = append(p.free, h)
}

// SetActive marks h as the active handle, releasing any different handle
// that was active before.
func (p *Pool) SetActive(h Handle) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.active != nil && p.active != h {
		p.releaseLocked(p.active)
	}
	p.leased[h] = struct{}{}
	p.active = h
}

// Active returns the active handle, or nil.
func (p *Pool) Active() Handle {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active
}

// Detach clears the active slot and returns the handle that held it, still
// leased, so the caller can fade it out before releasing it.
func (p *Pool) Detach() Handle {
	p.mu.Lock()
	defer p.mu.Unlock()

	h := p.active
	p.active = nil
	return h
}

// StopAllAndRelease silences and closes every handle the pool knows about,
// leased or free, and empties the pool.
func (p *Pool) StopAllAndRelease() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for h := range p.leased {
		h.Pause()
		h.Reset()
		h.Close()
	}
	for _, h := range p.free {
		h.Reset()
		h.Close()
	}

	log.Debug().Int("leased", len(p.leased)).Int("free", len(p.free)).Msg("Audio pool emptied")
	p.leased = make(map[Handle]struct{})
	p.free = nil
	p.active = nil
}

// FreeCount returns how many handles are pooled for reuse.
func (p *Pool) FreeCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.free)
}

// LeasedCount returns how many handles are out of the pool, active or not.
func (p *Pool) LeasedCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.leased)
}
