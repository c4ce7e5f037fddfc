package player_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/luminousverses/luminous/internal/audio"
	"github.com/luminousverses/luminous/internal/domain/player"
	"github.com/luminousverses/luminous/internal/domain/quran"
)

type fakeFlags struct {
	mu       sync.Mutex
	autoplay bool
	active   []bool
}

func (f *fakeFlags) AutoplayEnabled() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.autoplay
}

func (f *fakeFlags) SetAudioActive(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.active = append(f.active, v)
}

func (f *fakeFlags) lastActive() (bool, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.active) == 0 {
		return false, false
	}
	return f.active[len(f.active)-1], true
}

type fakeWarmer struct {
	mu   sync.Mutex
	urls []string
}

func (w *fakeWarmer) Warm(url string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.urls = append(w.urls, url)
	return true
}

type fixture struct {
	ctrl    *player.Controller
	pool    *audio.Pool
	factory *audio.MockFactory
	flags   *fakeFlags
	warmer  *fakeWarmer
}

func newFixture(t *testing.T, verses int) *fixture {
	t.Helper()
	factory := &audio.MockFactory{}
	pool := audio.NewPool(factory.New, audio.DefaultPoolCapacity)
	flags := &fakeFlags{}
	warmer := &fakeWarmer{}

	ctrl := player.NewController(player.Config{
		Pool:             pool,
		Fader:            &audio.Crossfader{Duration: 8 * time.Millisecond, Steps: 2},
		Preloader:        warmer,
		Flags:            flags,
		URLs:             quran.AudioURLBuilder{BaseURL: "https://audio.test/"},
		AutoAdvanceDelay: 20 * time.Millisecond,
	})
	ctrl.SetVerses(makeVerses(36, verses))
	t.Cleanup(ctrl.StopAndUnload)

	return &fixture{ctrl: ctrl, pool: pool, factory: factory, flags: flags, warmer: warmer}
}

func makeVerses(surah, n int) []quran.Verse {
	out := make([]quran.Verse, n)
	for i := range out {
		out[i] = quran.Verse{ID: i + 1, SurahID: surah, NumberInSurah: i + 1}
	}
	return out
}

func (f *fixture) active(t *testing.T) *audio.MockHandle {
	t.Helper()
	h, ok := f.pool.Active().(*audio.MockHandle)
	if !ok || h == nil {
		t.Fatal("no active handle")
	}
	return h
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestControllerListeningSession(t *testing.T) {
	f := newFixture(t, 3)
	c := f.ctrl

	c.ToggleVerse(36, 1)
	st := c.State()
	if st.Status != player.StatusLoading || st.VerseKey != "36-1" || st.Index != 0 {
		t.Fatalf("after tap: %+v", st)
	}
	if st.PlaybackID == "" {
		t.Error("a new playback should get an id")
	}
	if got := f.active(t).Source(); got != "https://audio.test/036001.mp3" {
		t.Errorf("unexpected source %q", got)
	}
	if v, ok := f.flags.lastActive(); !ok || !v {
		t.Error("audio should be marked active")
	}

	f.active(t).SetDuration(4)
	f.active(t).Emit(audio.EventLoadedMetadata)
	f.active(t).Emit(audio.EventPlaying)
	if st := c.State(); st.Status != player.StatusPlaying || st.Duration != 4 {
		t.Fatalf("after playing: %+v", st)
	}

	c.ToggleVerse(36, 1)
	if st := c.State(); st.Status != player.StatusPaused || st.VerseKey != "36-1" {
		t.Fatalf("after second tap: %+v", st)
	}

	c.SkipToNextVerse()
	if st := c.State(); st.Status != player.StatusLoading || st.VerseKey != "36-2" || st.Index != 1 {
		t.Fatalf("after skip: %+v", st)
	}
	if got := f.active(t).Source(); got != "https://audio.test/036002.mp3" {
		t.Errorf("unexpected source %q", got)
	}
	f.active(t).Emit(audio.EventPlaying)
	if c.State().Status != player.StatusPlaying {
		t.Error("verse 2 should be playing")
	}

	c.PlayVerse(36, 3)
	f.active(t).Emit(audio.EventPlaying)
	f.active(t).Emit(audio.EventEnded)

	st = c.State()
	if st.Status != player.StatusIdle || st.VerseKey != "" || st.Index != -1 {
		t.Fatalf("after last verse ended: %+v", st)
	}
	if v, _ := f.flags.lastActive(); v {
		t.Error("audio should be marked inactive after the session ends")
	}
	if f.pool.Active() != nil || f.pool.LeasedCount() != 0 {
		t.Error("stop should release every handle")
	}
}

func TestControllerPlayingSameVerseIsNoop(t *testing.T) {
	f := newFixture(t, 3)

	f.ctrl.PlayVerse(36, 1)
	f.active(t).Emit(audio.EventPlaying)
	id := f.ctrl.State().PlaybackID
	h := f.pool.Active()

	f.ctrl.PlayVerse(36, 1)

	if f.pool.Active() != h || f.ctrl.State().PlaybackID != id {
		t.Error("replaying the playing verse should keep the session")
	}
}

func TestControllerExactlyOneActiveHandle(t *testing.T) {
	f := newFixture(t, 5)

	for v := 1; v <= 5; v++ {
		f.ctrl.PlayVerse(36, v)
		f.active(t).Emit(audio.EventPlaying)
	}

	waitFor(t, "faded handles to be released", func() bool {
		return f.pool.LeasedCount() == 1
	})

	playing := 0
	for _, h := range f.factory.Handles() {
		if !h.Paused() {
			playing++
		}
	}
	if playing != 1 {
		t.Errorf("expected exactly one sounding handle, got %d", playing)
	}
}

func TestControllerIgnoresStaleHandleEvents(t *testing.T) {
	f := newFixture(t, 3)

	f.ctrl.PlayVerse(36, 1)
	old := f.active(t)
	old.Emit(audio.EventPlaying)

	f.ctrl.PlayVerse(36, 2)
	old.EmitEvent(audio.Event{Type: audio.EventError, Handle: old, Err: errors.New("boom")})
	old.EmitEvent(audio.Event{Type: audio.EventEnded, Handle: old})

	st := f.ctrl.State()
	if st.Status != player.StatusLoading || st.VerseKey != "36-2" || st.Error != "" {
		t.Errorf("stale events should not touch the session: %+v", st)
	}
}

func TestControllerAutoplayAdvances(t *testing.T) {
	f := newFixture(t, 3)
	f.flags.autoplay = true

	f.ctrl.PlayVerse(36, 1)
	f.active(t).SetDuration(2)
	f.active(t).Emit(audio.EventPlaying)
	f.active(t).Emit(audio.EventEnded)

	if st := f.ctrl.State(); st.Status != player.StatusPaused || st.Position != 2 {
		t.Fatalf("ended verse should rest at its end: %+v", st)
	}

	waitFor(t, "auto-advance", func() bool {
		return f.ctrl.State().VerseKey == "36-2"
	})
	if st := f.ctrl.State(); st.Index != 1 || st.Status != player.StatusLoading {
		t.Errorf("unexpected state after advance: %+v", st)
	}
}

func TestControllerAutoAdvanceCancelledByStop(t *testing.T) {
	f := newFixture(t, 3)
	f.flags.autoplay = true

	f.ctrl.PlayVerse(36, 1)
	f.active(t).Emit(audio.EventPlaying)
	f.active(t).Emit(audio.EventEnded)
	f.ctrl.StopAndUnload()

	time.Sleep(60 * time.Millisecond)
	if st := f.ctrl.State(); st.Status != player.StatusIdle {
		t.Errorf("a stopped session must not advance: %+v", st)
	}
}

func TestControllerPlayingWarmsNextVerse(t *testing.T) {
	f := newFixture(t, 3)

	f.ctrl.PlayVerse(36, 2)
	f.active(t).Emit(audio.EventPlaying)

	f.warmer.mu.Lock()
	defer f.warmer.mu.Unlock()
	if len(f.warmer.urls) != 1 || f.warmer.urls[0] != "https://audio.test/036003.mp3" {
		t.Errorf("unexpected warm calls: %v", f.warmer.urls)
	}
}

func TestControllerErrors(t *testing.T) {
	t.Run("play rejected", func(t *testing.T) {
		factory := &audio.MockFactory{}
		pool := audio.NewPool(func() audio.Handle {
			h := factory.New().(*audio.MockHandle)
			h.PlayErr = errors.New("denied")
			return h
		}, 5)
		c := player.NewController(player.Config{Pool: pool, Flags: &fakeFlags{}})
		defer c.StopAndUnload()

		c.PlayVerse(1, 1)
		waitFor(t, "play failure", func() bool {
			return c.State().Status == player.StatusError
		})
		if got := c.State().Error; got != player.MsgPlayFailed {
			t.Errorf("expected %q, got %q", player.MsgPlayFailed, got)
		}
	})

	t.Run("media error", func(t *testing.T) {
		f := newFixture(t, 3)
		f.ctrl.PlayVerse(36, 1)
		f.active(t).EmitEvent(audio.Event{
			Type: audio.EventError,
			Err:  &audio.MediaError{Code: audio.ErrCodeNetwork},
		})

		st := f.ctrl.State()
		if st.Status != player.StatusError || st.Error != player.MsgNetwork {
			t.Errorf("unexpected state: %+v", st)
		}
		if st.VerseKey != "36-1" {
			t.Error("an error keeps the verse bound")
		}

		f.ctrl.TogglePlayPause()
		if st := f.ctrl.State(); st.Status != player.StatusLoading || st.Error != "" {
			t.Errorf("toggle after error should retry: %+v", st)
		}
	})

	t.Run("resume rejected", func(t *testing.T) {
		f := newFixture(t, 3)
		f.ctrl.PlayVerse(36, 1)
		h := f.active(t)
		h.Emit(audio.EventPlaying)
		f.ctrl.PauseVerse()

		h.PlayErr = errors.New("denied")
		f.ctrl.ResumeVerse()

		st := f.ctrl.State()
		if st.Status != player.StatusError || st.Error != player.MsgResumeFailed {
			t.Errorf("unexpected state: %+v", st)
		}
	})
}

func TestControllerErrorMessage(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{&audio.MediaError{Code: audio.ErrCodeAborted}, player.MsgAborted},
		{&audio.MediaError{Code: audio.ErrCodeNetwork}, player.MsgNetwork},
		{&audio.MediaError{Code: audio.ErrCodeDecode}, player.MsgDecode},
		{&audio.MediaError{Code: audio.ErrCodeSrcNotSupported}, player.MsgSrcUnsupported},
		{errors.New("other"), player.MsgLoadFailed},
		{nil, player.MsgLoadFailed},
	}
	for _, tt := range tests {
		if got := player.ErrorMessage(tt.err); got != tt.want {
			t.Errorf("ErrorMessage(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestControllerSeekClamps(t *testing.T) {
	f := newFixture(t, 3)
	f.ctrl.PlayVerse(36, 1)
	h := f.active(t)
	h.SetDuration(10)
	h.Emit(audio.EventLoadedMetadata)

	tests := []struct {
		seek, want float64
	}{
		{4, 4},
		{-3, 0},
		{25, 10},
	}
	for _, tt := range tests {
		f.ctrl.Seek(tt.seek)
		if got := f.ctrl.State().Position; got != tt.want {
			t.Errorf("Seek(%v): position %v, want %v", tt.seek, got, tt.want)
		}
		if got := h.Position(); got != tt.want {
			t.Errorf("Seek(%v): handle at %v, want %v", tt.seek, got, tt.want)
		}
	}
}

func TestControllerToggleWhileLoadingIsNoop(t *testing.T) {
	f := newFixture(t, 3)
	f.ctrl.PlayVerse(36, 1)
	id := f.ctrl.State().PlaybackID

	f.ctrl.TogglePlayPause()

	if st := f.ctrl.State(); st.Status != player.StatusLoading || st.PlaybackID != id {
		t.Errorf("toggle while loading should do nothing: %+v", st)
	}
}

func TestControllerToggleWithNothingBound(t *testing.T) {
	f := newFixture(t, 3)
	f.ctrl.TogglePlayPause()
	f.ctrl.SkipToNextVerse()

	if st := f.ctrl.State(); st != player.IdleState() {
		t.Errorf("expected idle, got %+v", st)
	}
	if len(f.factory.Handles()) != 0 {
		t.Error("no handle should be created")
	}
}

func TestControllerStopAndUnload(t *testing.T) {
	f := newFixture(t, 3)
	f.ctrl.PlayVerse(36, 1)
	f.active(t).Emit(audio.EventPlaying)
	f.ctrl.PlayVerse(36, 2)

	f.ctrl.StopAndUnload()

	if st := f.ctrl.State(); st != player.IdleState() {
		t.Errorf("expected idle, got %+v", st)
	}
	if f.pool.Active() != nil || f.pool.FreeCount() != 0 || f.pool.LeasedCount() != 0 {
		t.Error("pool should be emptied")
	}
	for i, h := range f.factory.Handles() {
		if !h.Closed() || h.Source() != "" {
			t.Errorf("handle %d should be closed without a source", i)
		}
	}
	if v, _ := f.flags.lastActive(); v {
		t.Error("audio should be inactive")
	}
}

func TestControllerSetVersesReindexes(t *testing.T) {
	f := newFixture(t, 3)
	f.ctrl.PlayVerse(36, 2)

	f.ctrl.SetVerses(makeVerses(2, 5))
	if got := f.ctrl.State().Index; got != -1 {
		t.Errorf("verse outside the sequence should have index -1, got %d", got)
	}

	f.ctrl.SetVerses(makeVerses(36, 10))
	if got := f.ctrl.State().Index; got != 1 {
		t.Errorf("expected index 1, got %d", got)
	}
	if got := f.ctrl.State().VerseKey; got != "36-2" {
		t.Errorf("replacing verses must keep the binding, got %q", got)
	}
}

func TestControllerSubscribe(t *testing.T) {
	f := newFixture(t, 3)

	var mu sync.Mutex
	var got []player.Status
	unsubscribe := f.ctrl.Subscribe(func(st player.SessionState) {
		mu.Lock()
		got = append(got, st.Status)
		mu.Unlock()
	})

	f.ctrl.PlayVerse(36, 1)
	f.active(t).Emit(audio.EventPlaying)
	f.active(t).Emit(audio.EventPlaying)
	unsubscribe()
	f.ctrl.PauseVerse()

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 2 || got[0] != player.StatusLoading || got[1] != player.StatusPlaying {
		t.Errorf("unexpected notifications: %v", got)
	}
}
