package player

import (
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/luminousverses/luminous/internal/audio"
	"github.com/luminousverses/luminous/internal/domain/quran"
)

// DefaultAutoAdvanceDelay is the pause between a verse ending and the next one starting.
const DefaultAutoAdvanceDelay = 500 * time.Millisecond

// Flags is the settings the controller reads and writes.
type Flags interface {
	AutoplayEnabled() bool
	SetAudioActive(active bool)
}

// Warmer prefetches audio for a URL without playing it.
type Warmer interface {
	Warm(url string) bool
}

// Config holds the collaborators of a Controller.
type Config struct {
	Pool             *audio.Pool
	Fader            *audio.Crossfader
	Preloader        Warmer // optional
	Flags            Flags
	URLs             quran.AudioURLBuilder
	AutoAdvanceDelay time.Duration
}

// Controller owns one playback session: the active handle, the verse
// sequence it belongs to, and auto-advance through that sequence.
//
// All methods are safe for concurrent use. Subscribers are notified after
// every state change, in order, and must not call back into the Controller.
type Controller struct {
	pool         *audio.Pool
	fader        *audio.Crossfader
	preloader    Warmer
	flags        Flags
	urls         quran.AudioURLBuilder
	advanceDelay time.Duration

	mu        sync.Mutex
	state     SessionState
	published SessionState
	verses    []quran.Verse
	gen       uint64
	advance   *time.Timer
	active    *bool // pending Audio-Active change, applied after unlock

	notifyMu sync.Mutex
	subs     map[int]func(SessionState)
	nextSub  int
}

// NewController creates a controller in the idle state.
func NewController(cfg Config) *Controller {
	if cfg.Fader == nil {
		cfg.Fader = audio.NewCrossfader()
	}
	if cfg.AutoAdvanceDelay <= 0 {
		cfg.AutoAdvanceDelay = DefaultAutoAdvanceDelay
	}
	return &Controller{
		pool:         cfg.Pool,
		fader:        cfg.Fader,
		preloader:    cfg.Preloader,
		flags:        cfg.Flags,
		urls:         cfg.URLs,
		advanceDelay: cfg.AutoAdvanceDelay,
		state:        IdleState(),
		published:    IdleState(),
		subs:         make(map[int]func(SessionState)),
	}
}

// State returns the current session state.
func (c *Controller) State() SessionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Verses returns the current verse sequence.
func (c *Controller) Verses() []quran.Verse {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.verses
}

// Subscribe registers fn to receive every new state.
func (c *Controller) Subscribe(fn func(SessionState)) (unsubscribe func()) {
	c.notifyMu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	c.notifyMu.Unlock()

	return func() {
		c.notifyMu.Lock()
		delete(c.subs, id)
		c.notifyMu.Unlock()
	}
}

// unlockAndNotify releases c.mu, applies any pending Audio-Active change and
// publishes the state if it changed. Must be called with c.mu held.
func (c *Controller) unlockAndNotify() {
	st := c.state
	changed := st != c.published
	c.published = st
	active := c.active
	c.active = nil

	c.notifyMu.Lock()
	c.mu.Unlock()
	defer c.notifyMu.Unlock()

	if active != nil && c.flags != nil {
		c.flags.SetAudioActive(*active)
	}
	if !changed {
		return
	}
	for _, fn := range c.subs {
		fn(st)
	}
}

// SetVerses replaces the verse sequence. The bound verse keeps playing; its
// index is resolved against the new sequence.
func (c *Controller) SetVerses(verses []quran.Verse) {
	c.mu.Lock()
	c.verses = verses
	if c.state.VerseKey != "" {
		c.state.Index = c.indexOf(c.state.SurahID, c.state.Verse)
	}
	c.unlockAndNotify()
}

// SetVerseIndex binds the session to a position in the verse sequence
// without starting playback.
func (c *Controller) SetVerseIndex(index int) {
	c.mu.Lock()
	if index < -1 || index >= len(c.verses) {
		index = -1
	}
	c.state.Index = index
	c.unlockAndNotify()
}

func (c *Controller) indexOf(surahID, verse int) int {
	_, idx, _ := lo.FindIndexOf(c.verses, func(v quran.Verse) bool {
		return v.SurahID == surahID && v.NumberInSurah == verse
	})
	return idx
}

// PlayVerse starts playback of a verse. Requesting the verse that is already
// playing without error does nothing.
func (c *Controller) PlayVerse(surahID, verse int) {
	c.mu.Lock()
	c.playVerseLocked(surahID, verse)
	c.unlockAndNotify()
}

func (c *Controller) playVerseLocked(surahID, verse int) {
	c.cancelAdvanceLocked()
	c.setActiveLocked(true)

	key := quran.VerseKey(surahID, verse)
	idx := c.indexOf(surahID, verse)

	if c.state.VerseKey == key && c.state.Status == StatusPlaying && c.state.Error == "" {
		c.state.Index = idx
		return
	}

	if prev := c.pool.Detach(); prev != nil {
		prev.SetListener(nil)
		if prev.Paused() {
			c.pool.Release(prev)
		} else {
			done := c.fader.FadeOut(prev)
			go func() {
				<-done
				c.pool.Release(prev)
			}()
		}
	}

	h := c.pool.Acquire()
	h.SetListener(c.Dispatch)
	c.pool.SetActive(h)
	h.SetSource(c.urls.URL(surahID, verse))

	c.gen++
	c.state = SessionState{
		Status:     StatusLoading,
		VerseKey:   key,
		SurahID:    surahID,
		Verse:      verse,
		Index:      idx,
		PlaybackID: uuid.NewString(),
	}

	log.Debug().
		Int("surah", surahID).
		Int("verse", verse).
		Int("index", idx).
		Str("playback", c.state.PlaybackID).
		Msg("Playing verse")

	fadeIn := c.fader.FadeIn(h)
	go func() {
		if err := <-fadeIn; err != nil {
			c.Dispatch(audio.Event{Type: audio.EventPlayFailed, Handle: h, Err: err})
		}
	}()
}

// ToggleVerse toggles the given verse: the bound verse is paused or
// resumed, any other verse starts playing.
func (c *Controller) ToggleVerse(surahID, verse int) {
	c.mu.Lock()
	if c.state.VerseKey == quran.VerseKey(surahID, verse) {
		c.togglePlayPauseLocked()
	} else {
		c.playVerseLocked(surahID, verse)
	}
	c.unlockAndNotify()
}

// TogglePlayPause pauses a playing session, resumes a paused one, and
// restarts the bound verse after an error. It does nothing while loading
// or when no verse is bound.
func (c *Controller) TogglePlayPause() {
	c.mu.Lock()
	c.togglePlayPauseLocked()
	c.unlockAndNotify()
}

func (c *Controller) togglePlayPauseLocked() {
	h := c.pool.Active()
	switch {
	case c.state.Status == StatusPlaying:
		c.pauseLocked()
	case c.state.Status == StatusPaused && h != nil && h.Source() != "":
		c.resumeLocked()
	case c.state.Status == StatusLoading:
	case c.state.VerseKey != "":
		c.playVerseLocked(c.state.SurahID, c.state.Verse)
	}
}

// PauseVerse pauses the active handle.
func (c *Controller) PauseVerse() {
	c.mu.Lock()
	c.pauseLocked()
	c.unlockAndNotify()
}

func (c *Controller) pauseLocked() {
	c.cancelAdvanceLocked()
	h := c.pool.Active()
	if h == nil || h.Paused() {
		return
	}
	h.Pause()
	if c.state.Status == StatusPlaying || c.state.Status == StatusLoading {
		c.state.Status = StatusPaused
	}
}

// ResumeVerse resumes the active handle. A rejected resume moves the session
// to the error state.
func (c *Controller) ResumeVerse() {
	c.mu.Lock()
	c.resumeLocked()
	c.unlockAndNotify()
}

func (c *Controller) resumeLocked() {
	c.cancelAdvanceLocked()
	h := c.pool.Active()
	if h == nil || !h.Paused() {
		return
	}
	if err := h.Play(); err != nil {
		log.Warn().Err(err).Str("verse", c.state.VerseKey).Msg("Resume failed")
		c.state.Status = StatusError
		c.state.Error = MsgResumeFailed
		return
	}
	c.state.Status = StatusPlaying
	c.state.Error = ""
}

// Seek moves the active handle to seconds, clamped to [0, duration].
func (c *Controller) Seek(seconds float64) {
	c.mu.Lock()
	defer c.unlockAndNotify()

	h := c.pool.Active()
	if h == nil || math.IsNaN(seconds) {
		return
	}
	seconds = math.Max(0, seconds)
	if c.state.Duration > 0 {
		seconds = math.Min(seconds, c.state.Duration)
	}
	if err := h.Seek(seconds); err != nil {
		log.Warn().Err(err).Float64("seconds", seconds).Msg("Seek failed")
		return
	}
	c.state.Position = seconds
}

// SkipToNextVerse plays the verse after the bound one, or stops at the end of
// the sequence. Without a bound index it does nothing.
func (c *Controller) SkipToNextVerse() {
	c.mu.Lock()
	c.skipLocked()
	c.unlockAndNotify()
}

func (c *Controller) skipLocked() {
	if c.state.Index < 0 {
		return
	}
	next := c.state.Index + 1
	if next >= len(c.verses) {
		c.stopLocked()
		return
	}
	v := c.verses[next]
	c.playVerseLocked(v.SurahID, v.NumberInSurah)
}

// StopAndUnload tears down every handle and returns the session to idle.
func (c *Controller) StopAndUnload() {
	c.mu.Lock()
	c.stopLocked()
	c.unlockAndNotify()
}

func (c *Controller) stopLocked() {
	c.cancelAdvanceLocked()
	c.gen++
	c.pool.StopAllAndRelease()
	c.state = IdleState()
	c.setActiveLocked(false)
	log.Debug().Msg("Playback stopped")
}

func (c *Controller) setActiveLocked(v bool) {
	c.active = &v
}

func (c *Controller) cancelAdvanceLocked() {
	if c.advance != nil {
		c.advance.Stop()
		c.advance = nil
	}
}

// Dispatch feeds a media event into the state machine. Events from any
// handle other than the active one are ignored.
func (c *Controller) Dispatch(ev audio.Event) {
	c.mu.Lock()
	defer c.unlockAndNotify()

	if ev.Handle == nil || ev.Handle != c.pool.Active() {
		return
	}

	switch ev.Type {
	case audio.EventLoadedMetadata:
		c.state.Duration = sanitize(ev.Duration)
	case audio.EventTimeUpdate:
		if c.state.Duration == 0 {
			c.state.Duration = sanitize(ev.Duration)
		}
		pos := sanitize(ev.Position)
		if c.state.Duration > 0 {
			pos = math.Min(pos, c.state.Duration)
		}
		c.state.Position = pos
	case audio.EventPlaying:
		c.state.Status = StatusPlaying
		c.state.Error = ""
		c.warmNextLocked()
	case audio.EventPause:
		if c.state.Status == StatusPlaying || c.state.Status == StatusLoading {
			c.state.Status = StatusPaused
		}
	case audio.EventWaiting:
		if c.state.Status == StatusPlaying {
			c.state.Status = StatusLoading
		}
	case audio.EventCanPlay:
		if c.state.Status == StatusLoading && !ev.Handle.Paused() {
			c.state.Status = StatusPlaying
		}
	case audio.EventEnded:
		if d := sanitize(ev.Duration); d > 0 {
			c.state.Duration = d
		}
		c.endedLocked()
	case audio.EventError:
		log.Warn().Err(ev.Err).Str("verse", c.state.VerseKey).Msg("Audio error")
		c.state.Status = StatusError
		c.state.Error = ErrorMessage(ev.Err)
	case audio.EventPlayFailed:
		log.Warn().Err(ev.Err).Str("verse", c.state.VerseKey).Msg("Play rejected")
		c.state.Status = StatusError
		c.state.Error = MsgPlayFailed
	}
}

// endedLocked applies the natural-completion policy.
func (c *Controller) endedLocked() {
	c.cancelAdvanceLocked()
	c.state.Position = c.state.Duration
	c.state.Status = StatusPaused

	autoplay := c.flags != nil && c.flags.AutoplayEnabled()
	idx := c.state.Index
	if !autoplay || idx < 0 || idx+1 >= len(c.verses) {
		c.stopLocked()
		return
	}

	next := c.verses[idx+1]
	gen := c.gen
	c.advance = time.AfterFunc(c.advanceDelay, func() {
		c.mu.Lock()
		if c.gen != gen {
			c.mu.Unlock()
			return
		}
		c.advance = nil
		c.playVerseLocked(next.SurahID, next.NumberInSurah)
		c.unlockAndNotify()
	})
	log.Debug().Str("next", next.Key()).Dur("delay", c.advanceDelay).Msg("Auto-advancing")
}

// warmNextLocked preloads the verse after the bound one.
func (c *Controller) warmNextLocked() {
	if c.preloader == nil {
		return
	}
	idx := c.state.Index
	if idx < 0 || idx+1 >= len(c.verses) {
		return
	}
	next := c.verses[idx+1]
	c.preloader.Warm(c.urls.URL(next.SurahID, next.NumberInSurah))
}

// ErrorMessage maps a media error onto the message shown to the listener.
func ErrorMessage(err error) string {
	switch audio.ErrorCodeOf(err) {
	case audio.ErrCodeAborted:
		return MsgAborted
	case audio.ErrCodeNetwork:
		return MsgNetwork
	case audio.ErrCodeDecode:
		return MsgDecode
	case audio.ErrCodeSrcNotSupported:
		return MsgSrcUnsupported
	default:
		return MsgLoadFailed
	}
}

func sanitize(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}
