// Package quran provides the chapter and verse model shared by every Luminous component.
package quran

import "fmt"

// RevelationType is the place a chapter was revealed.
type RevelationType string

const (
	Meccan  RevelationType = "Meccan"
	Medinan RevelationType = "Medinan"
)

// ParseRevelationType maps an API value onto a RevelationType.
// Unknown values fall back to Meccan.
func ParseRevelationType(s string) RevelationType {
	if RevelationType(s) == Medinan {
		return Medinan
	}
	return Meccan
}

// Surah represents a chapter.
type Surah struct {
	Number                 int            `json:"number"`
	Name                   string         `json:"name"`
	EnglishName            string         `json:"englishName"`
	EnglishNameTranslation string         `json:"englishNameTranslation"`
	NumberOfAyahs          int            `json:"numberOfAyahs"`
	RevelationType         RevelationType `json:"revelationType"`
	ID                     string         `json:"id"`
	ArabicName             string         `json:"arabicName"`
	TransliterationName    string         `json:"transliterationName"`
}

// Verse represents a single verse as returned by the API.
type Verse struct {
	ID            int    `json:"id"`
	SurahID       int    `json:"surahId"`
	NumberInSurah int    `json:"numberInSurah"`
	Text          string `json:"text"`                  // Arabic text
	Translation   string `json:"translation,omitempty"` // English or other translation
}

// Key returns the verse key of v.
func (v Verse) Key() string {
	return VerseKey(v.SurahID, v.NumberInSurah)
}

// DisplayVerse is a verse formatted for presentation.
type DisplayVerse struct {
	SurahName          string `json:"surahName"`
	SurahNumber        int    `json:"surahNumber"`
	VerseNumberInSurah int    `json:"verseNumberInSurah"`
	Arabic             string `json:"arabic"`
	English            string `json:"english"`
	FullReference      string `json:"fullReference"` // e.g. "Surah Al-Baqarah (2:255)"
}

// FullReference formats a verse reference for display.
func FullReference(surahName string, surah, verse int) string {
	return fmt.Sprintf("Surah %s (%d:%d)", surahName, surah, verse)
}
