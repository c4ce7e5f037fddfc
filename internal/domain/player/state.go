// Package player provides the verse playback state machine.
package player

import "github.com/luminousverses/luminous/internal/domain/quran"

// Status is the playback status of a session.
type Status string

// Status constants for session state
const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusPlaying Status = "playing"
	StatusPaused  Status = "paused"
	StatusError   Status = "error"
)

func (s Status) String() string { return string(s) }

// Error messages surfaced in SessionState.Error.
const (
	MsgPlayFailed     = "Failed to play audio"
	MsgResumeFailed   = "Failed to resume audio"
	MsgLoadFailed     = "Failed to load audio"
	MsgAborted        = "Audio playback was aborted"
	MsgNetwork        = "Network error while loading audio"
	MsgDecode         = "Audio could not be decoded"
	MsgSrcUnsupported = "Audio source is not supported"
)

// SessionState is a snapshot of the playback session.
//
// VerseKey is set from the moment a verse is requested until the session is
// fully stopped; pausing does not clear it. Index is -1 when the bound verse
// is not part of the current verse sequence.
type SessionState struct {
	Status     Status  `json:"status"`
	Error      string  `json:"error,omitempty"`
	Duration   float64 `json:"duration"`
	Position   float64 `json:"position"`
	VerseKey   string  `json:"verseKey,omitempty"`
	SurahID    int     `json:"surahId,omitempty"`
	Verse      int     `json:"verse,omitempty"`
	Index      int     `json:"index"`
	PlaybackID string  `json:"playbackId,omitempty"`
}

// IdleState returns the state of a session with nothing bound.
func IdleState() SessionState {
	return SessionState{Status: StatusIdle, Index: -1}
}

// IsPlaying reports whether audio is sounding.
func (s SessionState) IsPlaying() bool { return s.Status == StatusPlaying }

// IsLoading reports whether audio is being fetched or buffered.
func (s SessionState) IsLoading() bool { return s.Status == StatusLoading }

// Bound reports whether the session is bound to the given verse.
func (s SessionState) Bound(surahID, verse int) bool {
	return s.VerseKey != "" && s.VerseKey == quran.VerseKey(surahID, verse)
}

// PositionText renders position and duration as "m:ss / m:ss".
func (s SessionState) PositionText() string {
	return quran.FormatTime(s.Position) + " / " + quran.FormatTime(s.Duration)
}
