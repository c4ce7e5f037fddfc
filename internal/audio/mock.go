package audio

import "sync"

// MockHandle is an in-memory Handle for tests and headless runs. It never
// emits events on its own; call Emit to simulate the media lifecycle.
type MockHandle struct {
	mu       sync.Mutex
	src      string
	paused   bool
	volume   float64
	position float64
	duration float64
	closed   bool
	listener func(Event)

	// PlayErr, when set, is returned by Play.
	PlayErr error

	PlayCalls  int
	PauseCalls int
	ResetCalls int
	Volumes    []float64
}

// NewMockHandle returns a paused, sourceless mock at full volume.
func NewMockHandle() *MockHandle {
	return &MockHandle{paused: true, volume: 1}
}

func (m *MockHandle) SetSource(url string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.src = url
	m.position = 0
	m.duration = 0
}

func (m *MockHandle) Source() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.src
}

func (m *MockHandle) Play() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PlayCalls++
	if m.PlayErr != nil {
		return m.PlayErr
	}
	if m.closed {
		return ErrHandleClosed
	}
	if m.src == "" {
		return ErrNoSource
	}
	m.paused = false
	return nil
}

func (m *MockHandle) Pause() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PauseCalls++
	m.paused = true
}

func (m *MockHandle) Paused() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.paused
}

func (m *MockHandle) Volume() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.volume
}

func (m *MockHandle) SetVolume(v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.volume = v
	m.Volumes = append(m.Volumes, v)
}

func (m *MockHandle) Position() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.position
}

func (m *MockHandle) Duration() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.duration
}

func (m *MockHandle) Seek(seconds float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.position = seconds
	return nil
}

func (m *MockHandle) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ResetCalls++
	m.src = ""
	m.paused = true
	m.volume = 1
	m.position = 0
	m.duration = 0
}

func (m *MockHandle) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.src = ""
	m.paused = true
}

// Closed reports whether Close was called.
func (m *MockHandle) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func (m *MockHandle) SetListener(fn func(Event)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listener = fn
}

// SetDuration sets the length reported for the loaded source.
func (m *MockHandle) SetDuration(seconds float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.duration = seconds
}

// Emit delivers an event of type t to the listener on the calling goroutine.
// Pause and Ended events also leave the mock paused, like a real handle.
func (m *MockHandle) Emit(t EventType) {
	m.EmitEvent(Event{Type: t})
}

// EmitEvent delivers ev to the listener, filling in Handle, Duration and
// Position when they are unset.
func (m *MockHandle) EmitEvent(ev Event) {
	m.mu.Lock()
	if ev.Type == EventPause || ev.Type == EventEnded || ev.Type == EventError {
		m.paused = true
	}
	if ev.Type == EventEnded {
		m.position = m.duration
	}
	if ev.Type == EventTimeUpdate && ev.Position > 0 {
		m.position = ev.Position
	}
	if ev.Handle == nil {
		ev.Handle = m
	}
	if ev.Duration == 0 {
		ev.Duration = m.duration
	}
	if ev.Position == 0 {
		ev.Position = m.position
	}
	fn := m.listener
	m.mu.Unlock()

	if fn != nil {
		fn(ev)
	}
}

// MockFactory builds MockHandles and remembers each one in creation order.
type MockFactory struct {
	mu      sync.Mutex
	handles []*MockHandle
}

// New implements Factory.
func (f *MockFactory) New() Handle {
	f.mu.Lock()
	defer f.mu.Unlock()
	h := NewMockHandle()
	f.handles = append(f.handles, h)
	return h
}

// Handles returns every handle built so far.
func (f *MockFactory) Handles() []*MockHandle {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*MockHandle(nil), f.handles...)
}

// Last returns the most recently built handle, or nil.
func (f *MockFactory) Last() *MockHandle {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.handles) == 0 {
		return nil
	}
	return f.handles[len(f.handles)-1]
}
