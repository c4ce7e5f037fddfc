package socketio

import (
	"sync"
	"time"
)

// Broadcast topics accepted by BroadcastDebouncer.Trigger.
const (
	TopicPlayback = "playback"
	TopicSettings = "settings"
	TopicSession  = "session"
)

// DefaultDebounceWindow is the quiet period before a broadcast fires.
const DefaultDebounceWindow = 50 * time.Millisecond

// BroadcastDebouncer collapses rapid playback and settings changes into batched
// broadcasts. Multiple changes within the debounce window result in a single
// broadcast for each affected type (playback and/or settings).
type BroadcastDebouncer struct {
	window           time.Duration
	playbackCallback func()
	settingsCallback func()

	mu              sync.Mutex
	pendingPlayback bool
	pendingSettings bool
	timer           *time.Timer
	stopped         bool
}

// NewBroadcastDebouncer creates a debouncer with the given window duration.
// playbackCallback is called when playback state needs broadcasting,
// settingsCallback when the flags do.
func NewBroadcastDebouncer(window time.Duration, playbackCallback, settingsCallback func()) *BroadcastDebouncer {
	return &BroadcastDebouncer{
		window:           window,
		playbackCallback: playbackCallback,
		settingsCallback: settingsCallback,
	}
}

// Trigger records that topic has changed. The broadcast callbacks are
// deferred until the debounce window elapses without further triggers.
func (d *BroadcastDebouncer) Trigger(topic string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}

	switch topic {
	case TopicPlayback:
		d.pendingPlayback = true
	case TopicSettings:
		d.pendingSettings = true
	case TopicSession:
		d.pendingPlayback = true
		d.pendingSettings = true
	default:
		return
	}

	// Reset the timer
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.window, d.flush)
}

// flush fires callbacks for any pending flags and resets them.
func (d *BroadcastDebouncer) flush() {
	d.mu.Lock()
	doPlayback := d.pendingPlayback
	doSettings := d.pendingSettings
	d.pendingPlayback = false
	d.pendingSettings = false
	d.mu.Unlock()

	if doPlayback && d.playbackCallback != nil {
		d.playbackCallback()
	}
	if doSettings && d.settingsCallback != nil {
		d.settingsCallback()
	}
}

// Stop prevents any further callbacks from firing.
func (d *BroadcastDebouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
	}
	d.pendingPlayback = false
	d.pendingSettings = false
}
