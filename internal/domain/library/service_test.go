package library_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/luminousverses/luminous/internal/domain/library"
	"github.com/luminousverses/luminous/internal/domain/quran"
	"github.com/luminousverses/luminous/internal/infra/cache"
)

// mockAPI implements library.API for testing.
type mockAPI struct {
	mu         sync.Mutex
	listCalls  int
	surahCalls int
	verseCalls int
	err        error
}

func (m *mockAPI) FetchSurahList(ctx context.Context) ([]quran.Surah, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listCalls++
	if m.err != nil {
		return nil, m.err
	}
	out := make([]quran.Surah, 0, quran.SurahCount)
	for _, e := range quran.Catalog {
		out = append(out, surahFor(e))
	}
	return out, nil
}

func (m *mockAPI) FetchSurah(ctx context.Context, surahID int) (quran.Surah, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.surahCalls++
	if m.err != nil {
		return quran.Surah{}, m.err
	}
	e, _ := quran.Lookup(surahID)
	return surahFor(e), nil
}

func (m *mockAPI) FetchVerses(ctx context.Context, surahID int, translator string) ([]quran.Verse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.verseCalls++
	if m.err != nil {
		return nil, m.err
	}
	e, _ := quran.Lookup(surahID)
	verses := make([]quran.Verse, e.NumberOfAyahs)
	for i := range verses {
		verses[i] = quran.Verse{
			ID:            i + 1,
			SurahID:       surahID,
			NumberInSurah: i + 1,
			Text:          "text",
			Translation:   translator,
		}
	}
	return verses, nil
}

func (m *mockAPI) calls() (int, int, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.listCalls, m.surahCalls, m.verseCalls
}

func surahFor(e quran.CatalogEntry) quran.Surah {
	return quran.Surah{
		Number:         e.Number,
		Name:           "name",
		EnglishName:    e.EnglishName,
		NumberOfAyahs:  e.NumberOfAyahs,
		RevelationType: quran.Meccan,
	}
}

func openTestDB(t *testing.T) *cache.DB {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "library_test")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(tmpDir) })

	db := cache.NewDB(filepath.Join(tmpDir, "test.db"))
	if err := db.Open(); err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestInvalidSurahID(t *testing.T) {
	api := &mockAPI{}
	svc := library.NewService(api, nil, "en.yusufali")
	ctx := context.Background()

	for _, id := range []int{0, -1, 115} {
		if _, err := svc.Surah(ctx, id); !errors.Is(err, library.ErrInvalidSurahID) {
			t.Errorf("Surah(%d): expected ErrInvalidSurahID, got %v", id, err)
		}
		if _, err := svc.Verses(ctx, id); !errors.Is(err, library.ErrInvalidSurahID) {
			t.Errorf("Verses(%d): expected ErrInvalidSurahID, got %v", id, err)
		}
		if _, err := svc.Open(ctx, id); !errors.Is(err, library.ErrInvalidSurahID) {
			t.Errorf("Open(%d): expected ErrInvalidSurahID, got %v", id, err)
		}
	}

	if l, s, v := api.calls(); l+s+v != 0 {
		t.Error("invalid ids must not reach the API")
	}
}

func TestServiceWithoutCache(t *testing.T) {
	api := &mockAPI{}
	svc := library.NewService(api, nil, "en.yusufali")
	ctx := context.Background()

	surahs, err := svc.SurahList(ctx)
	if err != nil {
		t.Fatalf("SurahList failed: %v", err)
	}
	if len(surahs) != quran.SurahCount {
		t.Errorf("expected %d surahs, got %d", quran.SurahCount, len(surahs))
	}

	if _, err := svc.Verses(ctx, 1); err != nil {
		t.Fatalf("Verses failed: %v", err)
	}
	if _, err := svc.Verses(ctx, 1); err != nil {
		t.Fatalf("Verses failed: %v", err)
	}
	if _, _, v := api.calls(); v != 1 {
		t.Errorf("recently read chapter should be served from memory, got %d fetches", v)
	}

	if _, err := svc.Sync(ctx, nil); !errors.Is(err, library.ErrCacheDisabled) {
		t.Errorf("expected ErrCacheDisabled, got %v", err)
	}
}

func TestServiceReadThroughCache(t *testing.T) {
	db := openTestDB(t)
	api := &mockAPI{}
	ctx := context.Background()

	svc := library.NewService(api, db, "en.yusufali")
	if _, err := svc.SurahList(ctx); err != nil {
		t.Fatalf("SurahList failed: %v", err)
	}
	if _, err := svc.Verses(ctx, 36); err != nil {
		t.Fatalf("Verses failed: %v", err)
	}

	// A fresh service over the same database reads from disk.
	api.err = errors.New("offline")
	offline := library.NewService(api, db, "en.yusufali")

	surahs, err := offline.SurahList(ctx)
	if err != nil {
		t.Fatalf("cached SurahList failed: %v", err)
	}
	if surahs[35].EnglishName != "Ya-Sin" {
		t.Errorf("unexpected surah 36: %+v", surahs[35])
	}

	surah, err := offline.Surah(ctx, 36)
	if err != nil || surah.NumberOfAyahs != 83 {
		t.Errorf("cached Surah = %+v, %v", surah, err)
	}

	verses, err := offline.Verses(ctx, 36)
	if err != nil {
		t.Fatalf("cached Verses failed: %v", err)
	}
	if len(verses) != 83 || verses[0].Translation != "en.yusufali" {
		t.Errorf("unexpected cached verses: %d", len(verses))
	}

	if _, err := offline.Verses(ctx, 2); err == nil {
		t.Error("uncached chapter should surface the API error")
	}
}

func TestServiceOpen(t *testing.T) {
	api := &mockAPI{}
	svc := library.NewService(api, openTestDB(t), "en.yusufali")

	chapter, err := svc.Open(context.Background(), 1)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if chapter.Surah.Number != 1 || len(chapter.Verses) != 7 {
		t.Errorf("unexpected chapter: %+v", chapter.Surah)
	}

	page := chapter.Page(1)
	if page.TotalPages != 1 || len(page.Verses) != 7 {
		t.Errorf("Al-Fatiha should fit one page, got %+v", page)
	}
}

func TestServiceOpenPropagatesErrors(t *testing.T) {
	api := &mockAPI{err: errors.New("boom")}
	svc := library.NewService(api, nil, "en.yusufali")

	if _, err := svc.Open(context.Background(), 2); err == nil {
		t.Error("expected error")
	}
}

func TestServiceSync(t *testing.T) {
	api := &mockAPI{}
	svc := library.NewService(api, openTestDB(t), "en.yusufali")

	var last cache.BuildProgress
	result, err := svc.Sync(context.Background(), func(p cache.BuildProgress) { last = p })
	if err != nil {
		t.Fatalf("Sync failed: %v", err)
	}
	if !result.Success || result.SurahsAdded != quran.SurahCount || result.VersesAdded != 6236 {
		t.Errorf("unexpected result: %+v", result)
	}
	if last.Done != quran.SurahCount || last.Percent != 100 {
		t.Errorf("unexpected final progress: %+v", last)
	}

	stats, err := svc.Stats()
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.CachedSurahs != quran.SurahCount {
		t.Errorf("expected every surah cached, got %d", stats.CachedSurahs)
	}
}
