package socketio

import (
	"github.com/luminousverses/luminous/internal/domain/quran"
)

// Error scopes reported in pushError.
const (
	ScopeSurahList     = "surahList"
	ScopeSurah         = "surah"
	ScopePage          = "page"
	ScopePlayback      = "playback"
	ScopeVerseOfTheDay = "verseOfTheDay"
)

// ErrorPayload is sent with pushError.
type ErrorPayload struct {
	Scope   string `json:"scope"`
	Message string `json:"message"`
}

// PagePayload is sent with pushPage.
type PagePayload struct {
	SurahID int `json:"surahId"`
	quran.Page
}

// argMap returns the first event argument as an object.
func argMap(args []any) map[string]any {
	if len(args) == 0 {
		return nil
	}
	m, _ := args[0].(map[string]any)
	return m
}

// argInt reads an integer field from the first event argument.
func argInt(args []any, key string) (int, bool) {
	v, ok := argMap(args)[key].(float64)
	if !ok {
		return 0, false
	}
	return int(v), true
}

// argBool reads a boolean field from the first event argument.
func argBool(args []any, key string) (bool, bool) {
	v, ok := argMap(args)[key].(bool)
	return v, ok
}

// argNumber reads a bare number argument, or the "value" field of an object.
func argNumber(args []any) (float64, bool) {
	if len(args) == 0 {
		return 0, false
	}
	if v, ok := args[0].(float64); ok {
		return v, true
	}
	v, ok := argMap(args)["value"].(float64)
	return v, ok
}
