// Package audio provides reusable verse playback handles, their pool, volume
// fades and background fetching of recitation files.
package audio

import (
	"errors"
	"fmt"
)

// EventType names a media lifecycle event emitted by a Handle.
type EventType string

const (
	EventLoadedMetadata EventType = "loadedmetadata"
	EventTimeUpdate     EventType = "timeupdate"
	EventPlaying        EventType = "playing"
	EventPause          EventType = "pause"
	EventEnded          EventType = "ended"
	EventError          EventType = "error"
	EventWaiting        EventType = "waiting"
	EventCanPlay        EventType = "canplay"

	// EventPlayFailed reports that a Play call was rejected.
	EventPlayFailed EventType = "playfailed"
)

// Event is a typed media event. Duration and Position are in seconds.
type Event struct {
	Type     EventType
	Handle   Handle
	Duration float64
	Position float64
	Err      error
}

// Handle is a single reusable playback resource.
//
// Implementations must be safe for concurrent use. The listener set with
// SetListener is never invoked synchronously from inside a Handle method.
type Handle interface {
	// SetSource points the handle at a new URL and starts loading it.
	SetSource(url string)
	// Source returns the current URL, or "" when the handle is sourceless.
	Source() string
	// Play starts or resumes playback. It fails when the handle cannot play
	// at all; load failures are reported later as EventError.
	Play() error
	Pause()
	Paused() bool
	// Volume is linear in [0, 1].
	Volume() float64
	SetVolume(v float64)
	Position() float64
	Duration() float64
	Seek(seconds float64) error
	// Reset leaves the handle silent, sourceless, at position zero and full volume.
	Reset()
	// Close releases any underlying resources. A closed handle never plays again.
	Close()
	SetListener(fn func(Event))
}

// Factory constructs a new Handle.
type Factory func() Handle

// ErrorCode classifies media failures.
type ErrorCode string

const (
	ErrCodeAborted         ErrorCode = "aborted"
	ErrCodeNetwork         ErrorCode = "network"
	ErrCodeDecode          ErrorCode = "decode"
	ErrCodeSrcNotSupported ErrorCode = "src_not_supported"
)

// MediaError is the error carried by EventError.
type MediaError struct {
	Code ErrorCode
	Err  error
}

func (e *MediaError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("media error: %s", e.Code)
	}
	return fmt.Sprintf("media error: %s: %v", e.Code, e.Err)
}

func (e *MediaError) Unwrap() error { return e.Err }

var (
	// ErrHandleClosed is returned by Play on a closed handle.
	ErrHandleClosed = errors.New("audio: handle closed")
	// ErrNoSource is returned by Play on a sourceless handle.
	ErrNoSource = errors.New("audio: no source")
	// ErrAudioUnavailable is returned when no audio output exists in this build or host.
	ErrAudioUnavailable = errors.New("audio: output unavailable")
)

// ErrorCodeOf extracts the media error code from err, or "" if err is not a MediaError.
func ErrorCodeOf(err error) ErrorCode {
	var me *MediaError
	if errors.As(err, &me) {
		return me.Code
	}
	return ""
}
