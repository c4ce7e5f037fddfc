// Package library serves chapters and verses, reading through an optional
// SQLite cache in front of the remote API.
package library

import (
	"context"
	"fmt"
	"strconv"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/luminousverses/luminous/internal/domain/quran"
	"github.com/luminousverses/luminous/internal/infra/cache"
)

// recentChapters bounds the in-memory verse cache.
const recentChapters = 8

// Service provides chapter browsing and reading.
type Service struct {
	api        API
	translator string

	cacheDB      *cache.DB
	cacheDAO     *cache.DAO
	cacheBuilder *cache.Builder
	cacheEnabled bool

	recent *lru.Cache[int, []quran.Verse]
	group  singleflight.Group
}

// NewService creates a library service. cacheDB may be nil, in which case
// every read goes to the API.
func NewService(api API, cacheDB *cache.DB, translator string) *Service {
	recent, _ := lru.New[int, []quran.Verse](recentChapters)
	s := &Service{
		api:        api,
		translator: translator,
		recent:     recent,
	}
	if cacheDB == nil {
		return s
	}

	s.cacheDB = cacheDB
	s.cacheDAO = cache.NewDAO(cacheDB)
	s.cacheBuilder = cache.NewBuilder(cacheDB, api, translator)
	s.cacheEnabled = true
	return s
}

// Translator returns the translation edition verses are served with.
func (s *Service) Translator() string {
	return s.translator
}

// SurahList returns every chapter in order.
func (s *Service) SurahList(ctx context.Context) ([]quran.Surah, error) {
	if s.cacheEnabled {
		surahs, err := s.cacheDAO.Surahs()
		if err == nil && len(surahs) == quran.SurahCount {
			return surahs, nil
		}
		if err != nil {
			log.Warn().Err(err).Msg("Cache read failed, falling back to API")
		}
	}

	v, err, _ := s.group.Do("surahs", func() (any, error) {
		return s.api.FetchSurahList(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load surah list: %w", err)
	}
	surahs := v.([]quran.Surah)

	if s.cacheEnabled {
		if err := s.cacheDAO.UpsertSurahs(surahs); err != nil {
			log.Warn().Err(err).Msg("Failed to cache surah list")
		}
	}
	return surahs, nil
}

// Surah returns one chapter's metadata.
func (s *Service) Surah(ctx context.Context, surahID int) (quran.Surah, error) {
	if !quran.ValidSurahID(surahID) {
		return quran.Surah{}, fmt.Errorf("%w: %d", ErrInvalidSurahID, surahID)
	}

	if s.cacheEnabled {
		surah, ok, err := s.cacheDAO.Surah(surahID)
		if err != nil {
			log.Warn().Err(err).Int("surah", surahID).Msg("Cache read failed, falling back to API")
		} else if ok {
			return surah, nil
		}
	}

	surah, err := s.api.FetchSurah(ctx, surahID)
	if err != nil {
		return quran.Surah{}, fmt.Errorf("failed to load surah %d: %w", surahID, err)
	}

	if s.cacheEnabled {
		if err := s.cacheDAO.UpsertSurahs([]quran.Surah{surah}); err != nil {
			log.Warn().Err(err).Int("surah", surahID).Msg("Failed to cache surah")
		}
	}
	return surah, nil
}

// Verses returns a chapter's verses in order, with translations.
func (s *Service) Verses(ctx context.Context, surahID int) ([]quran.Verse, error) {
	if !quran.ValidSurahID(surahID) {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSurahID, surahID)
	}

	if verses, ok := s.recent.Get(surahID); ok {
		return verses, nil
	}

	if s.cacheEnabled {
		verses, err := s.cacheDAO.Verses(surahID, s.translator)
		if err != nil {
			log.Warn().Err(err).Int("surah", surahID).Msg("Cache read failed, falling back to API")
		} else if len(verses) > 0 {
			s.recent.Add(surahID, verses)
			return verses, nil
		}
	}

	v, err, _ := s.group.Do("verses:"+strconv.Itoa(surahID), func() (any, error) {
		return s.api.FetchVerses(ctx, surahID, s.translator)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load verses of surah %d: %w", surahID, err)
	}
	verses := v.([]quran.Verse)
	s.recent.Add(surahID, verses)

	if s.cacheEnabled {
		if err := s.cacheDAO.ReplaceVerses(surahID, s.translator, verses); err != nil {
			log.Warn().Err(err).Int("surah", surahID).Msg("Failed to cache verses")
		}
	}

	log.Debug().Int("surah", surahID).Int("verses", len(verses)).Msg("Verses loaded from API")
	return verses, nil
}

// Open loads a chapter and its verses concurrently.
func (s *Service) Open(ctx context.Context, surahID int) (*Chapter, error) {
	if !quran.ValidSurahID(surahID) {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSurahID, surahID)
	}

	var chapter Chapter
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		surah, err := s.Surah(gctx, surahID)
		chapter.Surah = surah
		return err
	})
	g.Go(func() error {
		verses, err := s.Verses(gctx, surahID)
		chapter.Verses = verses
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &chapter, nil
}

// Sync downloads every chapter into the offline cache. progress may be nil.
func (s *Service) Sync(ctx context.Context, progress func(cache.BuildProgress)) (*cache.BuildResult, error) {
	if !s.cacheEnabled {
		return nil, ErrCacheDisabled
	}
	result, err := s.cacheBuilder.FullBuild(ctx, progress)
	if err != nil {
		return nil, err
	}
	s.recent.Purge()
	return result, nil
}

// Stats returns offline cache statistics.
func (s *Service) Stats() (*cache.CacheStats, error) {
	if !s.cacheEnabled {
		return nil, ErrCacheDisabled
	}
	return s.cacheDB.GetStats()
}
