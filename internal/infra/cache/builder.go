package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/luminousverses/luminous/internal/domain/quran"
)

// Provider defines the interface for fetching chapters and verses from the API.
type Provider interface {
	FetchSurahList(ctx context.Context) ([]quran.Surah, error)
	FetchVerses(ctx context.Context, surahID int, translator string) ([]quran.Verse, error)
}

// Builder downloads the full text into the cache for offline reading.
type Builder struct {
	db         *DB
	dao        *DAO
	provider   Provider
	translator string
}

// NewBuilder creates a new cache builder.
func NewBuilder(db *DB, provider Provider, translator string) *Builder {
	return &Builder{
		db:         db,
		dao:        NewDAO(db),
		provider:   provider,
		translator: translator,
	}
}

// FullBuild fetches the chapter list and every chapter's verses. Chapters that
// fail to download are reported in the result and do not stop the build.
// progress may be nil.
func (b *Builder) FullBuild(ctx context.Context, progress func(BuildProgress)) (*BuildResult, error) {
	startTime := time.Now()
	log.Info().Str("translator", b.translator).Msg("Starting full cache build")

	b.db.SetBuildingState(true, 0)
	defer b.db.SetBuildingState(false, 100)

	surahs, err := b.provider.FetchSurahList(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch surah list: %w", err)
	}
	if err := b.dao.UpsertSurahs(surahs); err != nil {
		return nil, fmt.Errorf("failed to cache surah list: %w", err)
	}

	result := &BuildResult{SurahsAdded: len(surahs)}
	report := func(done, surah int, phase string) {
		percent := 0
		if len(surahs) > 0 {
			percent = done * 100 / len(surahs)
		}
		b.db.SetBuildingState(true, percent)
		if progress != nil {
			progress(BuildProgress{Done: done, Total: len(surahs), Percent: percent, Surah: surah, Phase: phase})
		}
	}

	for i, s := range surahs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		verses, err := b.provider.FetchVerses(ctx, s.Number, b.translator)
		if err != nil {
			log.Warn().Err(err).Int("surah", s.Number).Msg("Failed to fetch verses")
			result.FailedSurahs = append(result.FailedSurahs, s.Number)
			report(i+1, s.Number, "failed")
			continue
		}
		if err := b.dao.ReplaceVerses(s.Number, b.translator, verses); err != nil {
			log.Warn().Err(err).Int("surah", s.Number).Msg("Failed to cache verses")
			result.FailedSurahs = append(result.FailedSurahs, s.Number)
			report(i+1, s.Number, "failed")
			continue
		}

		result.VersesAdded += len(verses)
		report(i+1, s.Number, "cached")
	}

	if err := b.db.MarkBuildComplete(); err != nil {
		return nil, fmt.Errorf("failed to mark build complete: %w", err)
	}

	result.Duration = time.Since(startTime)
	result.Success = len(result.FailedSurahs) == 0
	if !result.Success {
		result.Error = fmt.Sprintf("%d surahs failed", len(result.FailedSurahs))
	}

	log.Info().
		Int("surahs", result.SurahsAdded).
		Int("verses", result.VersesAdded).
		Ints("failed", result.FailedSurahs).
		Dur("duration", result.Duration).
		Msg("Cache build complete")

	return result, nil
}
