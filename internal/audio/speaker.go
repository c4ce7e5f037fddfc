//go:build (linux && cgo) || windows || darwin

package audio

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/speaker"
	"github.com/rs/zerolog/log"
)

// AudioAvailable indicates whether audio playback is supported in this build.
const AudioAvailable = true

const (
	outputSampleRate = beep.SampleRate(44100)
	timeUpdateEvery  = 250 * time.Millisecond
	eventQueueSize   = 64
)

var (
	speakerOnce sync.Once
	speakerErr  error
)

// NewSpeakerFactory initializes the audio output and returns a Factory of
// handles that play through it, downloading sources with fetcher.
func NewSpeakerFactory(fetcher *Fetcher) (Factory, error) {
	speakerOnce.Do(func() {
		speakerErr = speaker.Init(outputSampleRate, outputSampleRate.N(time.Second/10))
	})
	if speakerErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrAudioUnavailable, speakerErr)
	}
	return func() Handle { return newSpeakerHandle(fetcher) }, nil
}

// SpeakerHandle plays one recitation file through the shared speaker.
//
// Every SetSource, Reset and Close starts a new generation; callbacks and
// loads belonging to an older generation are discarded.
type SpeakerHandle struct {
	fetcher *Fetcher

	mu       sync.Mutex
	gen      int
	src      string
	paused   bool
	wantPlay bool
	volume   float64
	closed   bool
	listener func(Event)
	events   chan Event

	cancelLoad context.CancelFunc
	pendingPos float64

	streamer beep.StreamSeekCloser
	format   beep.Format
	ctrl     *beep.Ctrl
	vol      *effects.Volume
	started  bool
	tickID   int
}

func newSpeakerHandle(fetcher *Fetcher) *SpeakerHandle {
	h := &SpeakerHandle{
		fetcher: fetcher,
		paused:  true,
		volume:  1,
		events:  make(chan Event, eventQueueSize),
	}
	go h.deliver()
	return h
}

// deliver runs listeners in emission order on a goroutine of their own.
func (h *SpeakerHandle) deliver() {
	for ev := range h.events {
		h.mu.Lock()
		fn := h.listener
		h.mu.Unlock()
		if fn != nil {
			fn(ev)
		}
	}
}

// emitLocked queues an event. Must be called with h.mu held.
func (h *SpeakerHandle) emitLocked(t EventType, err error) {
	if h.closed {
		return
	}
	ev := Event{Type: t, Handle: h, Err: err}
	if h.streamer != nil {
		ev.Duration = h.durationLocked()
		ev.Position = h.positionLocked()
	}
	select {
	case h.events <- ev:
	default:
		log.Debug().Str("event", string(t)).Msg("Audio event queue full, dropping event")
	}
}

func (h *SpeakerHandle) SetListener(fn func(Event)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.listener = fn
}

func (h *SpeakerHandle) SetSource(url string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.teardownLocked()
	h.src = url
	h.pendingPos = 0
	if url == "" {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	h.cancelLoad = cancel
	go h.load(ctx, h.gen, url)
}

func (h *SpeakerHandle) Source() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.src
}

// load downloads and decodes url for generation gen.
func (h *SpeakerHandle) load(ctx context.Context, gen int, url string) {
	data, err := h.fetcher.Fetch(ctx, url)
	if err == nil && ctx.Err() != nil {
		err = &MediaError{Code: ErrCodeAborted, Err: ctx.Err()}
	}

	var (
		streamer beep.StreamSeekCloser
		format   beep.Format
	)
	if err == nil {
		streamer, format, err = mp3.Decode(io.NopCloser(bytes.NewReader(data)))
		if err != nil {
			err = &MediaError{Code: ErrCodeDecode, Err: err}
		}
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if gen != h.gen || h.closed {
		if streamer != nil {
			streamer.Close()
		}
		return
	}
	if err != nil {
		log.Debug().Err(err).Str("url", url).Msg("Failed to load recitation")
		h.paused = true
		h.wantPlay = false
		h.emitLocked(EventError, err)
		return
	}

	h.streamer = streamer
	h.format = format
	if h.pendingPos > 0 {
		streamer.Seek(min(format.SampleRate.N(secondsToDuration(h.pendingPos)), streamer.Len()))
	}
	h.emitLocked(EventLoadedMetadata, nil)
	h.emitLocked(EventCanPlay, nil)

	if h.wantPlay {
		h.startLocked()
	}
}

// startLocked begins or resumes output of the loaded streamer.
func (h *SpeakerHandle) startLocked() {
	if h.streamer == nil {
		return
	}

	if !h.started {
		if h.streamer.Position() >= h.streamer.Len() {
			h.streamer.Seek(0)
		}
		resampled := beep.Resample(4, h.format.SampleRate, outputSampleRate, h.streamer)
		h.vol = &effects.Volume{Streamer: resampled, Base: 2}
		applyVolume(h.vol, h.volume)
		h.ctrl = &beep.Ctrl{Streamer: h.vol}
		h.started = true

		gen := h.gen
		speaker.Play(beep.Seq(h.ctrl, beep.Callback(func() {
			// Runs on the speaker goroutine, which must not be blocked.
			go h.finished(gen)
		})))
	} else {
		speaker.Lock()
		h.ctrl.Paused = false
		speaker.Unlock()
	}

	h.paused = false
	h.emitLocked(EventPlaying, nil)

	h.tickID++
	go h.tick(h.gen, h.tickID)
}

// tick emits timeupdate while generation gen keeps sounding.
func (h *SpeakerHandle) tick(gen, id int) {
	ticker := time.NewTicker(timeUpdateEvery)
	defer ticker.Stop()

	for range ticker.C {
		h.mu.Lock()
		if gen != h.gen || id != h.tickID || h.paused || h.closed {
			h.mu.Unlock()
			return
		}
		h.emitLocked(EventTimeUpdate, nil)
		h.mu.Unlock()
	}
}

// finished handles the end of the stream for generation gen.
func (h *SpeakerHandle) finished(gen int) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if gen != h.gen || h.closed {
		return
	}
	h.started = false
	h.ctrl = nil
	h.vol = nil
	h.paused = true
	h.wantPlay = false
	h.emitLocked(EventTimeUpdate, nil)
	h.emitLocked(EventEnded, nil)
}

func (h *SpeakerHandle) Play() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return ErrHandleClosed
	}
	if h.src == "" {
		return &MediaError{Code: ErrCodeSrcNotSupported, Err: ErrNoSource}
	}
	h.wantPlay = true
	if h.streamer == nil {
		// Still loading; load starts output once decoded.
		h.paused = false
		return nil
	}
	if !h.paused && h.started {
		return nil
	}
	h.startLocked()
	return nil
}

func (h *SpeakerHandle) Pause() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.paused && !h.wantPlay {
		return
	}
	h.paused = true
	h.wantPlay = false
	if h.ctrl != nil {
		speaker.Lock()
		h.ctrl.Paused = true
		speaker.Unlock()
	}
	h.emitLocked(EventPause, nil)
}

func (h *SpeakerHandle) Paused() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.paused
}

func (h *SpeakerHandle) Volume() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.volume
}

func (h *SpeakerHandle) SetVolume(v float64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.volume = math.Max(0, math.Min(1, v))
	if h.vol != nil {
		speaker.Lock()
		applyVolume(h.vol, h.volume)
		speaker.Unlock()
	}
}

// applyVolume maps a linear level onto the logarithmic volume effect.
func applyVolume(e *effects.Volume, level float64) {
	if level <= 0 {
		e.Silent = true
		return
	}
	e.Silent = false
	e.Volume = math.Log2(level)
}

func (h *SpeakerHandle) Position() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.streamer == nil {
		return h.pendingPos
	}
	return h.positionLocked()
}

func (h *SpeakerHandle) positionLocked() float64 {
	speaker.Lock()
	pos := h.streamer.Position()
	speaker.Unlock()
	return h.format.SampleRate.D(pos).Seconds()
}

func (h *SpeakerHandle) Duration() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.streamer == nil {
		return 0
	}
	return h.durationLocked()
}

func (h *SpeakerHandle) durationLocked() float64 {
	return h.format.SampleRate.D(h.streamer.Len()).Seconds()
}

func (h *SpeakerHandle) Seek(seconds float64) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return ErrHandleClosed
	}
	if h.streamer == nil {
		h.pendingPos = math.Max(0, seconds)
		return nil
	}

	n := h.format.SampleRate.N(secondsToDuration(math.Max(0, seconds)))
	speaker.Lock()
	err := h.streamer.Seek(min(n, h.streamer.Len()))
	speaker.Unlock()
	if err != nil {
		return fmt.Errorf("seek: %w", err)
	}
	h.emitLocked(EventTimeUpdate, nil)
	return nil
}

func (h *SpeakerHandle) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.teardownLocked()
	h.src = ""
	h.volume = 1
	h.pendingPos = 0
}

func (h *SpeakerHandle) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.teardownLocked()
	h.src = ""
	h.closed = true
	close(h.events)
}

// teardownLocked stops output, abandons any load and starts a new generation.
func (h *SpeakerHandle) teardownLocked() {
	h.gen++
	if h.cancelLoad != nil {
		h.cancelLoad()
		h.cancelLoad = nil
	}
	if h.ctrl != nil {
		speaker.Lock()
		h.ctrl.Paused = true
		h.ctrl.Streamer = nil
		speaker.Unlock()
	}
	if h.streamer != nil {
		h.streamer.Close()
	}
	h.streamer = nil
	h.ctrl = nil
	h.vol = nil
	h.started = false
	h.paused = true
	h.wantPlay = false
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
