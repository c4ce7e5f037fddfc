package votd_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/luminousverses/luminous/internal/domain/quran"
	"github.com/luminousverses/luminous/internal/domain/settings"
	"github.com/luminousverses/luminous/internal/domain/votd"
)

// scriptedRand returns queued values, then zeros.
type scriptedRand struct {
	floats []float64
	ints   []int
}

func (r *scriptedRand) Float64() float64 {
	if len(r.floats) == 0 {
		return 0
	}
	f := r.floats[0]
	r.floats = r.floats[1:]
	return f
}

func (r *scriptedRand) IntN(n int) int {
	if len(r.ints) == 0 {
		return 0
	}
	i := r.ints[0]
	r.ints = r.ints[1:]
	return i % n
}

type mockSource struct {
	calls int
	err   error
	text  string
}

func (m *mockSource) FetchTranslatedVerse(ctx context.Context, surahID, ayah int, translator string) (quran.Verse, error) {
	m.calls++
	if m.err != nil {
		return quran.Verse{}, m.err
	}
	return quran.Verse{SurahID: surahID, NumberInSurah: ayah, Text: m.text, Translation: "translation"}, nil
}

func TestPick(t *testing.T) {
	tests := []struct {
		name      string
		rng       *scriptedRand
		wantSurah int
		wantAyah  int
	}{
		{"popular list", &scriptedRand{floats: []float64{0.1}, ints: []int{7, 0}}, 36, 2},
		{"uniform over catalog", &scriptedRand{floats: []float64{0.9}, ints: []int{113, 4}}, 114, 6},
		{"fatiha keeps verse one", &scriptedRand{floats: []float64{0.1}, ints: []int{0, 0}}, 1, 1},
		{"tawbah keeps verse one", &scriptedRand{floats: []float64{0.9}, ints: []int{8, 0}}, 9, 1},
		{"last verse reachable", &scriptedRand{floats: []float64{0.1}, ints: []int{14, 4}}, 114, 6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry, ayah := votd.Pick(tt.rng)
			if entry.Number != tt.wantSurah || ayah != tt.wantAyah {
				t.Errorf("expected %d:%d, got %d:%d", tt.wantSurah, tt.wantAyah, entry.Number, ayah)
			}
		})
	}
}

func TestPickStaysInRange(t *testing.T) {
	for i := 0; i < 500; i++ {
		r := &scriptedRand{floats: []float64{float64(i%10) / 10}, ints: []int{i * 7, i * 13}}
		entry, ayah := votd.Pick(r)
		if !quran.ValidSurahID(entry.Number) {
			t.Fatalf("invalid surah %d", entry.Number)
		}
		if ayah < 1 || ayah > entry.NumberOfAyahs {
			t.Fatalf("ayah %d outside 1..%d of surah %d", ayah, entry.NumberOfAyahs, entry.Number)
		}
	}
}

func TestTodayCachesPerDay(t *testing.T) {
	source := &mockSource{text: "arabic"}
	store := settings.NewMemoryBackend()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.Local)

	svc := votd.NewService(source, store, "en.yusufali",
		votd.WithRand(&scriptedRand{floats: []float64{0.1, 0.1}, ints: []int{7, 10, 0, 0}}),
		votd.WithClock(func() time.Time { return now }),
	)

	first, err := svc.Today(context.Background())
	if err != nil {
		t.Fatalf("Today failed: %v", err)
	}
	if first.FullReference != "Surah Ya-Sin (36:12)" || first.English != "translation" {
		t.Errorf("unexpected verse: %+v", first)
	}

	now = now.Add(10 * time.Hour)
	again, err := svc.Today(context.Background())
	if err != nil || again != first {
		t.Errorf("same day should return the cached verse, got %+v, %v", again, err)
	}
	if source.calls != 1 {
		t.Errorf("expected 1 fetch, got %d", source.calls)
	}
	if stamp, _, _ := store.Get(votd.KeyTimestamp); stamp != "2026-03-01" {
		t.Errorf("unexpected timestamp %q", stamp)
	}

	now = now.Add(24 * time.Hour)
	next, err := svc.Today(context.Background())
	if err != nil {
		t.Fatalf("Today failed: %v", err)
	}
	if next.SurahNumber != 1 || source.calls != 2 {
		t.Errorf("a new day should fetch a new verse, got %+v", next)
	}
}

func TestTodayNoStaleFallback(t *testing.T) {
	store := settings.NewMemoryBackend()
	store.Set(votd.KeyVerse, `{"surahNumber":2,"verseNumberInSurah":255,"arabic":"a"}`)
	store.Set(votd.KeyTimestamp, "2000-01-01")

	source := &mockSource{err: errors.New("offline")}
	svc := votd.NewService(source, store, "en.yusufali")

	if _, err := svc.Today(context.Background()); err == nil {
		t.Error("expected fetch error rather than yesterday's verse")
	}
}

func TestTodayRejectsMalformed(t *testing.T) {
	t.Run("cached zero surah is ignored", func(t *testing.T) {
		store := settings.NewMemoryBackend()
		now := time.Now()
		store.Set(votd.KeyVerse, `{"surahNumber":0}`)
		store.Set(votd.KeyTimestamp, now.Format(time.DateOnly))

		source := &mockSource{text: "arabic"}
		svc := votd.NewService(source, store, "en.yusufali", votd.WithClock(func() time.Time { return now }))

		v, err := svc.Today(context.Background())
		if err != nil || v.SurahNumber == 0 || source.calls != 1 {
			t.Errorf("expected a fresh fetch, got %+v, %v", v, err)
		}
	})

	t.Run("empty text", func(t *testing.T) {
		svc := votd.NewService(&mockSource{}, nil, "en.yusufali")
		if _, err := svc.Today(context.Background()); !errors.Is(err, votd.ErrMalformedVerse) {
			t.Errorf("expected ErrMalformedVerse, got %v", err)
		}
	})
}
