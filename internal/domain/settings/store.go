// Package settings provides the persisted reader and playback flags.
package settings

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog/log"
)

// Storage keys. Values are JSON-encoded booleans.
const (
	KeyAutoplayEnabled = "settings.autoplayEnabled"
	KeyShowTranslation = "settings.showTranslation"
	KeyAudioActive     = "settings.audioActive"
)

// Backend is a durable string key-value store.
type Backend interface {
	Get(key string) (value string, ok bool, err error)
	Set(key, value string) error
}

// Snapshot is the full set of flags at one point in time.
type Snapshot struct {
	AutoplayEnabled bool `json:"autoplayEnabled"`
	ShowTranslation bool `json:"showTranslation"`
	AudioActive     bool `json:"audioActive"`
}

// Defaults returns the flag values used when nothing has been stored.
func Defaults() Snapshot {
	return Snapshot{ShowTranslation: true}
}

// Change describes a single flag update.
type Change struct {
	Key   string
	Value bool
	State Snapshot
}

// Store holds the flags in memory and writes every change through to its backend.
// It is safe for concurrent use.
type Store struct {
	backend Backend

	mu     sync.RWMutex
	values Snapshot
	subs   map[int]func(Change)
	nextID int
}

// NewStore loads the flags from backend, falling back to defaults for
// missing or unreadable entries.
func NewStore(backend Backend) *Store {
	s := &Store{
		backend: backend,
		values:  Defaults(),
		subs:    make(map[int]func(Change)),
	}
	s.values.AutoplayEnabled = s.load(KeyAutoplayEnabled, s.values.AutoplayEnabled)
	s.values.ShowTranslation = s.load(KeyShowTranslation, s.values.ShowTranslation)
	s.values.AudioActive = s.load(KeyAudioActive, s.values.AudioActive)
	return s
}

func (s *Store) load(key string, def bool) bool {
	raw, ok, err := s.backend.Get(key)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Failed to read setting, using default")
		return def
	}
	if !ok {
		return def
	}
	var v bool
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		log.Warn().Err(err).Str("key", key).Str("raw", raw).Msg("Invalid stored setting, using default")
		return def
	}
	return v
}

// Snapshot returns the current flags.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.values
}

// AutoplayEnabled reports whether playback advances to the next verse on completion.
func (s *Store) AutoplayEnabled() bool { return s.Snapshot().AutoplayEnabled }

// ShowTranslation reports whether translations are displayed.
func (s *Store) ShowTranslation() bool { return s.Snapshot().ShowTranslation }

// AudioActive reports whether a playback session is in progress.
func (s *Store) AudioActive() bool { return s.Snapshot().AudioActive }

// SetAutoplay stores the auto-play flag.
func (s *Store) SetAutoplay(v bool) { s.set(KeyAutoplayEnabled, v) }

// SetShowTranslation stores the show-translation flag.
func (s *Store) SetShowTranslation(v bool) { s.set(KeyShowTranslation, v) }

// SetAudioActive stores the audio-active flag.
func (s *Store) SetAudioActive(v bool) { s.set(KeyAudioActive, v) }

// ToggleAutoplay flips the auto-play flag and returns the new value.
func (s *Store) ToggleAutoplay() bool {
	v := !s.AutoplayEnabled()
	s.SetAutoplay(v)
	return v
}

// ToggleTranslation flips the show-translation flag and returns the new value.
func (s *Store) ToggleTranslation() bool {
	v := !s.ShowTranslation()
	s.SetShowTranslation(v)
	return v
}

// Subscribe registers fn to be called after every flag change.
// Setting a flag to its current value does not notify.
func (s *Store) Subscribe(fn func(Change)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

func (s *Store) set(key string, v bool) {
	s.mu.Lock()
	var old bool
	switch key {
	case KeyAutoplayEnabled:
		old, s.values.AutoplayEnabled = s.values.AutoplayEnabled, v
	case KeyShowTranslation:
		old, s.values.ShowTranslation = s.values.ShowTranslation, v
	case KeyAudioActive:
		old, s.values.AudioActive = s.values.AudioActive, v
	}
	state := s.values
	subs := make([]func(Change), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	if old == v {
		return
	}

	raw, _ := json.Marshal(v)
	if err := s.backend.Set(key, string(raw)); err != nil {
		log.Error().Err(err).Str("key", key).Msg("Failed to persist setting")
	}

	log.Debug().Str("key", key).Bool("value", v).Msg("Setting changed")
	change := Change{Key: key, Value: v, State: state}
	for _, fn := range subs {
		fn(change)
	}
}
