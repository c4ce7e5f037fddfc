//go:build !((linux && cgo) || windows || darwin)

package audio

// AudioAvailable indicates whether audio playback is supported in this build.
const AudioAvailable = false

// NewSpeakerFactory reports that this build has no audio output.
func NewSpeakerFactory(fetcher *Fetcher) (Factory, error) {
	return nil, ErrAudioUnavailable
}
