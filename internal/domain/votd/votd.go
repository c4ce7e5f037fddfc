// Package votd picks and caches the verse of the day.
package votd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/luminousverses/luminous/internal/domain/quran"
	"github.com/luminousverses/luminous/internal/domain/settings"
)

// Storage keys.
const (
	KeyVerse     = "verseOfTheDay"
	KeyTimestamp = "verseOfTheDayTimestamp"
)

// PopularWeight is the chance of picking from PopularSurahs.
const PopularWeight = 0.6

// PopularSurahs are favoured by the daily pick.
var PopularSurahs = []int{1, 2, 3, 4, 5, 18, 19, 36, 55, 56, 67, 78, 112, 113, 114}

// ErrMalformedVerse is returned when the fetched verse carries no reference.
var ErrMalformedVerse = errors.New("could not fetch a verse")

// Source fetches one verse with its translation.
type Source interface {
	FetchTranslatedVerse(ctx context.Context, surahID, ayah int, translator string) (quran.Verse, error)
}

// Rand is the randomness the picker draws from. *rand.Rand satisfies it.
type Rand interface {
	Float64() float64
	IntN(n int) int
}

// Pick chooses a chapter and verse. Verse 1 is skipped except in chapters
// 1 and 9.
func Pick(r Rand) (quran.CatalogEntry, int) {
	var number int
	if r.Float64() < PopularWeight {
		number = PopularSurahs[r.IntN(len(PopularSurahs))]
	} else {
		number = r.IntN(quran.SurahCount) + 1
	}
	entry, _ := quran.Lookup(number)

	minAyah := 2
	if number == 1 || number == 9 {
		minAyah = 1
	}
	ayah := minAyah + r.IntN(entry.NumberOfAyahs-minAyah+1)
	return entry, ayah
}

// Service serves one verse per calendar day.
type Service struct {
	source     Source
	store      settings.Backend
	translator string
	rng        Rand
	now        func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithRand sets the random source.
func WithRand(r Rand) Option {
	return func(s *Service) { s.rng = r }
}

// WithClock sets the clock that decides the current day.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a verse of the day service. store may be nil, in which
// case every call picks a new verse.
func NewService(source Source, store settings.Backend, translator string, opts ...Option) *Service {
	s := &Service{
		source:     source,
		store:      store,
		translator: translator,
		rng:        rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x9e3779b97f4a7c15)),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) today() string {
	return s.now().Format(time.DateOnly)
}

// Today returns today's verse, fetching and caching a new one when the cache
// is from another day. Fetch errors are returned as is; a previous day's
// verse is never served in their place.
func (s *Service) Today(ctx context.Context) (quran.DisplayVerse, error) {
	today := s.today()
	if v, ok := s.cached(today); ok {
		return v, nil
	}

	entry, ayah := Pick(s.rng)
	verse, err := s.source.FetchTranslatedVerse(ctx, entry.Number, ayah, s.translator)
	if err != nil {
		return quran.DisplayVerse{}, fmt.Errorf("verse %d:%d: %w", entry.Number, ayah, err)
	}

	display := quran.DisplayVerse{
		SurahName:          entry.EnglishName,
		SurahNumber:        entry.Number,
		VerseNumberInSurah: ayah,
		Arabic:             verse.Text,
		English:            verse.Translation,
		FullReference:      quran.FullReference(entry.EnglishName, entry.Number, ayah),
	}
	if display.SurahNumber == 0 || lo.IsEmpty(display.Arabic) {
		return quran.DisplayVerse{}, ErrMalformedVerse
	}

	s.save(today, display)
	log.Info().Str("verse", display.FullReference).Msg("Verse of the day selected")
	return display, nil
}

func (s *Service) cached(today string) (quran.DisplayVerse, bool) {
	var v quran.DisplayVerse
	if s.store == nil {
		return v, false
	}

	stamp, ok, err := s.store.Get(KeyTimestamp)
	if err != nil || !ok || stamp != today {
		return v, false
	}
	raw, ok, err := s.store.Get(KeyVerse)
	if err != nil || !ok {
		return v, false
	}
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		log.Warn().Err(err).Msg("Failed to parse cached verse of the day")
		return v, false
	}
	if v.SurahNumber == 0 {
		return v, false
	}
	return v, true
}

func (s *Service) save(today string, v quran.DisplayVerse) {
	if s.store == nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := s.store.Set(KeyVerse, string(data)); err != nil {
		log.Warn().Err(err).Msg("Could not cache verse of the day")
		return
	}
	if err := s.store.Set(KeyTimestamp, today); err != nil {
		log.Warn().Err(err).Msg("Could not cache verse of the day")
	}
}
