package reader

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/luminousverses/luminous/internal/audio"
	"github.com/luminousverses/luminous/internal/domain/library"
	"github.com/luminousverses/luminous/internal/domain/player"
	"github.com/luminousverses/luminous/internal/domain/quran"
	"github.com/luminousverses/luminous/internal/domain/settings"
)

type fakeLibrary struct {
	err error
}

func (f *fakeLibrary) SurahList(ctx context.Context) ([]quran.Surah, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []quran.Surah{
		{Number: 1, EnglishName: "Al-Fatiha", NumberOfAyahs: 7},
		{Number: 2, EnglishName: "Al-Baqara", NumberOfAyahs: 80},
	}, nil
}

func (f *fakeLibrary) Open(ctx context.Context, surahID int) (*library.Chapter, error) {
	if f.err != nil {
		return nil, f.err
	}
	n := 7
	if surahID == 2 {
		n = 80
	}
	verses := make([]quran.Verse, n)
	for i := range verses {
		verses[i] = quran.Verse{ID: i + 1, SurahID: surahID, NumberInSurah: i + 1, Text: "نص", Translation: "text"}
	}
	return &library.Chapter{
		Surah:  quran.Surah{Number: surahID, EnglishName: "Surah", NumberOfAyahs: n},
		Verses: verses,
	}, nil
}

func newTestModel(t *testing.T, lib Library, open int) (*Model, *player.Controller, *settings.Store) {
	t.Helper()
	factory := &audio.MockFactory{}
	store := settings.NewStore(settings.NewMemoryBackend())
	ctrl := player.NewController(player.Config{
		Pool:  audio.NewPool(factory.New, audio.DefaultPoolCapacity),
		Flags: store,
	})
	m := New(lib, ctrl, store, open)
	t.Cleanup(func() {
		m.Close()
		ctrl.StopAndUnload()
	})
	return m, ctrl, store
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// send applies msg and runs any returned load command synchronously.
func send(t *testing.T, m *Model, msg tea.Msg) {
	t.Helper()
	_, cmd := m.Update(msg)
	if cmd == nil {
		return
	}
	switch res := cmd().(type) {
	case surahListMsg, chapterMsg:
		m.Update(res)
	}
}

func TestReaderOpensSurahFromList(t *testing.T) {
	m, _, _ := newTestModel(t, &fakeLibrary{}, 0)
	m.Update(m.loadListCmd()())

	if m.screen != listScreen || len(m.surahs) != 2 {
		t.Fatalf("expected surah list, got screen %v with %d surahs", m.screen, len(m.surahs))
	}
	if !strings.Contains(m.View(), "Al-Baqara") {
		t.Error("list view should show surah names")
	}

	send(t, m, tea.KeyMsg{Type: tea.KeyDown})
	send(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	if m.screen != readerScreen || m.chapter == nil || m.chapter.Surah.Number != 2 {
		t.Fatal("enter should open the selected surah")
	}
	if p := m.currentPage(); p.TotalPages != 4 || len(p.Verses) != 25 {
		t.Errorf("unexpected first page: %d pages, %d verses", p.TotalPages, len(p.Verses))
	}

	send(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	if m.screen != listScreen || m.listCursor != 1 {
		t.Error("esc should return to the list with the surah selected")
	}
}

func TestReaderPagination(t *testing.T) {
	m, _, _ := newTestModel(t, &fakeLibrary{}, 2)
	m.Update(m.openCmd(2)())

	for i := 0; i < 5; i++ {
		send(t, m, runes("n"))
	}
	if m.page != 4 {
		t.Errorf("next should stop at the last page, got %d", m.page)
	}
	if got := len(m.currentPage().Verses); got != 5 {
		t.Errorf("last page of 80 verses should hold 5, got %d", got)
	}

	send(t, m, runes("p"))
	if m.page != 3 {
		t.Errorf("expected page 3, got %d", m.page)
	}
}

func TestReaderPlaybackKeys(t *testing.T) {
	m, ctrl, store := newTestModel(t, &fakeLibrary{}, 1)
	m.Update(m.openCmd(1)())

	send(t, m, tea.KeyMsg{Type: tea.KeyDown})
	send(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	st := ctrl.State()
	if st.VerseKey != "1-2" || st.Status != player.StatusLoading {
		t.Fatalf("enter should play the selected verse, got %+v", st)
	}
	if m.playback.VerseKey != "1-2" {
		t.Error("model should reflect the new playback state")
	}

	send(t, m, runes("s"))
	if got := ctrl.State().VerseKey; got != "1-3" {
		t.Errorf("s should skip to the next verse, got %q", got)
	}

	send(t, m, runes("x"))
	if ctrl.State().Status != player.StatusIdle {
		t.Error("x should stop playback")
	}

	send(t, m, runes("a"))
	send(t, m, runes("t"))
	if !store.AutoplayEnabled() || store.ShowTranslation() {
		t.Error("a and t should toggle the flags")
	}
	if !strings.Contains(m.View(), "autoplay on") {
		t.Error("status line should show autoplay")
	}
}

func TestReaderFollowsPlaybackAcrossPages(t *testing.T) {
	m, ctrl, _ := newTestModel(t, &fakeLibrary{}, 2)
	m.Update(m.openCmd(2)())

	ctrl.PlayVerse(2, 30)
	m.Update(playbackMsg(ctrl.State()))

	if m.page != 2 || m.cursor != 4 {
		t.Errorf("expected page 2 cursor 4, got page %d cursor %d", m.page, m.cursor)
	}
}

func TestReaderOpeningAnotherSurahStopsPlayback(t *testing.T) {
	m, ctrl, _ := newTestModel(t, &fakeLibrary{}, 1)
	m.Update(m.openCmd(1)())

	ctrl.PlayVerse(1, 3)
	m.Update(m.openCmd(2)())

	if ctrl.State().Status != player.StatusIdle {
		t.Error("opening another surah should stop playback")
	}
	if got := len(ctrl.Verses()); got != 80 {
		t.Errorf("player should follow the new verse sequence, got %d", got)
	}
}

func TestReaderErrorAndRetry(t *testing.T) {
	lib := &fakeLibrary{err: errors.New("network down")}
	m, _, _ := newTestModel(t, lib, 0)
	m.Update(m.loadListCmd()())

	if m.loadErr == nil || !strings.Contains(m.View(), "network down") {
		t.Fatal("failure should show the error view")
	}

	lib.err = nil
	send(t, m, runes("r"))
	if m.loadErr != nil || len(m.surahs) != 2 {
		t.Error("r should retry the failed load")
	}
}

func TestReaderQuit(t *testing.T) {
	m, ctrl, _ := newTestModel(t, &fakeLibrary{}, 1)
	m.Update(m.openCmd(1)())
	ctrl.PlayVerse(1, 1)

	_, cmd := m.Update(runes("q"))
	if cmd == nil {
		t.Fatal("q should quit")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected quit message")
	}
	if ctrl.State().Status != player.StatusIdle {
		t.Error("quitting should stop playback")
	}
}
