package audio_test

import (
	"errors"
	"testing"
	"time"

	"github.com/luminousverses/luminous/internal/audio"
)

func fastFader() *audio.Crossfader {
	return &audio.Crossfader{Duration: 20 * time.Millisecond, Steps: 4}
}

func waitClosed(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("fade did not complete")
	}
}

func TestFadeOutPausedHandleCompletesImmediately(t *testing.T) {
	h := audio.NewMockHandle()

	select {
	case <-fastFader().FadeOut(h):
	default:
		t.Fatal("fade out of a paused handle should complete immediately")
	}
	if len(h.Volumes) != 0 {
		t.Error("paused handle volume should not be touched")
	}
}

func TestFadeOutRampsPausesAndRestores(t *testing.T) {
	h := audio.NewMockHandle()
	h.SetSource("a.mp3")
	h.Play()
	h.SetVolume(0.8)
	h.Volumes = nil

	waitClosed(t, fastFader().FadeOut(h))

	if !h.Paused() {
		t.Error("handle should be paused after fade out")
	}
	if h.Volume() != 0.8 {
		t.Errorf("volume should be restored to 0.8, got %v", h.Volume())
	}
	// 4 ramp steps ending at zero, then the restore.
	if len(h.Volumes) != 5 || h.Volumes[3] != 0 {
		t.Errorf("unexpected volume steps: %v", h.Volumes)
	}
	for i := 1; i < 4; i++ {
		if h.Volumes[i] >= h.Volumes[i-1] {
			t.Errorf("ramp should be decreasing: %v", h.Volumes)
		}
	}
}

func TestFadeOutToleratesResetMidFade(t *testing.T) {
	h := audio.NewMockHandle()
	h.SetSource("a.mp3")
	h.Play()

	f := &audio.Crossfader{Duration: 100 * time.Millisecond, Steps: 10}
	done := f.FadeOut(h)
	time.Sleep(25 * time.Millisecond)
	h.Reset()
	h.SetSource("b.mp3")
	h.Play()

	waitClosed(t, done)

	if h.Paused() {
		t.Error("an aborted fade must not pause the handle's new source")
	}
}

func TestFadeInStartsPlaybackAndRamps(t *testing.T) {
	h := audio.NewMockHandle()
	h.SetSource("a.mp3")

	done := fastFader().FadeIn(h)
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("fade in did not complete")
	}

	if h.Paused() {
		t.Error("handle should be playing")
	}
	if h.Volume() != 1 {
		t.Errorf("volume should end at 1, got %v", h.Volume())
	}
	if h.Volumes[0] != 0 {
		t.Errorf("fade in should start from silence, got %v", h.Volumes)
	}
}

func TestFadeInReportsPlayFailure(t *testing.T) {
	h := audio.NewMockHandle()
	h.SetSource("a.mp3")
	h.PlayErr = errors.New("not allowed")

	err := <-fastFader().FadeIn(h)
	if err == nil || err.Error() != "not allowed" {
		t.Errorf("expected play error, got %v", err)
	}
}

func TestFadeInToleratesClose(t *testing.T) {
	h := audio.NewMockHandle()
	h.SetSource("a.mp3")

	f := &audio.Crossfader{Duration: 100 * time.Millisecond, Steps: 10}
	done := f.FadeIn(h)
	h.Close()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("fade in did not stop after close")
	}
}
