package library

import (
	"context"
	"errors"

	"github.com/luminousverses/luminous/internal/domain/quran"
)

var (
	// ErrInvalidSurahID is returned for chapter numbers outside 1..114.
	ErrInvalidSurahID = errors.New("invalid surah id")

	// ErrCacheDisabled is returned by Sync when the service has no cache.
	ErrCacheDisabled = errors.New("offline cache disabled")
)

// API is the remote source of chapters and verses.
type API interface {
	FetchSurahList(ctx context.Context) ([]quran.Surah, error)
	FetchSurah(ctx context.Context, surahID int) (quran.Surah, error)
	FetchVerses(ctx context.Context, surahID int, translator string) ([]quran.Verse, error)
}

// Chapter is a chapter together with its verses, ready for reading.
type Chapter struct {
	Surah  quran.Surah   `json:"surah"`
	Verses []quran.Verse `json:"verses"`
}

// Page returns one reading page of the chapter.
func (c Chapter) Page(page int) quran.Page {
	return quran.Paginate(c.Verses, page)
}
