package audio

import "time"

const (
	// DefaultFadeDuration is the length of a volume ramp.
	DefaultFadeDuration = 200 * time.Millisecond

	// DefaultFadeSteps is the number of volume changes in a ramp.
	DefaultFadeSteps = 10
)

// Crossfader ramps handle volume linearly over a fixed duration.
// The zero value uses the defaults.
type Crossfader struct {
	Duration time.Duration
	Steps    int
}

// NewCrossfader returns a Crossfader with the default duration and steps.
func NewCrossfader() *Crossfader {
	return &Crossfader{Duration: DefaultFadeDuration, Steps: DefaultFadeSteps}
}

func (f *Crossfader) params() (time.Duration, int) {
	d, steps := DefaultFadeDuration, DefaultFadeSteps
	if f != nil && f.Duration > 0 {
		d = f.Duration
	}
	if f != nil && f.Steps > 0 {
		steps = f.Steps
	}
	return d, steps
}

// FadeOut ramps h down to silence, pauses it and restores its original
// volume. The returned channel is closed when the fade has finished.
// An already paused handle completes immediately.
//
// If h loses its source during the fade (it was reset or closed) the ramp
// stops and h is left untouched.
func (f *Crossfader) FadeOut(h Handle) <-chan struct{} {
	done := make(chan struct{})
	if h == nil || h.Paused() {
		close(done)
		return done
	}

	src := h.Source()
	original := h.Volume()
	go func() {
		defer close(done)
		if !f.ramp(h, src, original, 0) {
			return
		}
		h.Pause()
		h.SetVolume(original)
	}()
	return done
}

// FadeIn silences h, starts playback and ramps up to full volume. The
// returned channel receives the Play error, if any, or nil once the ramp
// has finished, and is then closed.
func (f *Crossfader) FadeIn(h Handle) <-chan error {
	done := make(chan error, 1)
	if h == nil {
		close(done)
		return done
	}

	src := h.Source()
	h.SetVolume(0)
	if err := h.Play(); err != nil {
		done <- err
		close(done)
		return done
	}

	go func() {
		defer close(done)
		f.ramp(h, src, 0, 1)
	}()
	return done
}

// ramp steps the volume of h from one level to another. It reports false if
// h stopped playing src before the ramp completed.
func (f *Crossfader) ramp(h Handle, src string, from, to float64) bool {
	d, steps := f.params()
	ticker := time.NewTicker(d / time.Duration(steps))
	defer ticker.Stop()

	for i := 1; i <= steps; i++ {
		<-ticker.C
		if h.Source() != src || src == "" {
			return false
		}
		h.SetVolume(from + (to-from)*float64(i)/float64(steps))
	}
	return true
}
