package quran

import (
	"fmt"
	"math"
	"strings"
)

// DefaultAudioBaseURL hosts the per-verse recitation files.
const DefaultAudioBaseURL = "https://h2zfzwpeaxcsfu9s.public.blob.vercel-storage.com/quran-audio/alafasy128/"

// VerseKey identifies a verse within the whole text, e.g. "2-255".
func VerseKey(surahID, verse int) string {
	return fmt.Sprintf("%d-%d", surahID, verse)
}

// AudioURL returns the recitation URL for a verse on the default host.
func AudioURL(surahID, verse int) string {
	return AudioURLBuilder{}.URL(surahID, verse)
}

// AudioURLBuilder computes recitation URLs against a configurable host.
// The zero value uses DefaultAudioBaseURL.
type AudioURLBuilder struct {
	BaseURL string
}

// URL returns BaseURL followed by the 3-digit surah and verse codes.
func (b AudioURLBuilder) URL(surahID, verse int) string {
	base := b.BaseURL
	if base == "" {
		base = DefaultAudioBaseURL
	}
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	return fmt.Sprintf("%s%03d%03d.mp3", base, surahID, verse)
}

// FormatTime renders seconds as m:ss. NaN and negative values render as 0:00.
func FormatTime(seconds float64) string {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds < 0 {
		return "0:00"
	}
	total := int(math.Floor(seconds))
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}
