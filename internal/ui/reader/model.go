// Package reader is the terminal reading and listening view.
package reader

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/luminousverses/luminous/internal/domain/library"
	"github.com/luminousverses/luminous/internal/domain/player"
	"github.com/luminousverses/luminous/internal/domain/quran"
	"github.com/luminousverses/luminous/internal/domain/settings"
)

const loadTimeout = 20 * time.Second

// Library is the chapter source the reader browses.
type Library interface {
	SurahList(ctx context.Context) ([]quran.Surah, error)
	Open(ctx context.Context, surahID int) (*library.Chapter, error)
}

type screen int

const (
	listScreen screen = iota
	readerScreen
)

type (
	surahListMsg struct {
		surahs []quran.Surah
		err    error
	}
	chapterMsg struct {
		surahID int
		chapter *library.Chapter
		err     error
	}
	playbackMsg player.SessionState
)

// Model is the bubbletea model of the reader.
type Model struct {
	library  Library
	player   *player.Controller
	settings *settings.Store
	updates  chan player.SessionState
	unsub    func()

	screen     screen
	surahs     []quran.Surah
	listCursor int
	listOffset int

	loading    bool
	loadErr    error
	retry      tea.Cmd
	chapter    *library.Chapter
	page       int
	cursor     int // index within the current page
	pageOffset int

	playback player.SessionState
	flags    settings.Snapshot

	width  int
	height int

	titleStyle    lipgloss.Style
	verseNumStyle lipgloss.Style
	arabicStyle   lipgloss.Style
	textStyle     lipgloss.Style
	dimStyle      lipgloss.Style
	errorStyle    lipgloss.Style
	activeStyle   lipgloss.Style
}

// New creates a reader model. openSurah, when valid, skips the chapter list.
func New(lib Library, ctrl *player.Controller, store *settings.Store, openSurah int) *Model {
	m := &Model{
		library:  lib,
		player:   ctrl,
		settings: store,
		updates:  make(chan player.SessionState, 1),
		screen:   listScreen,
		page:     1,
		playback: ctrl.State(),
		flags:    store.Snapshot(),
		width:    80,
		height:   24,

		titleStyle:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#cba6f7")),
		verseNumStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("#89b4fa")).Bold(true),
		arabicStyle:   lipgloss.NewStyle().Foreground(lipgloss.Color("#f9e2af")),
		textStyle:     lipgloss.NewStyle().Foreground(lipgloss.Color("#cdd6f4")),
		dimStyle:      lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
		errorStyle:    lipgloss.NewStyle().Foreground(lipgloss.Color("#f38ba8")).Bold(true),
		activeStyle:   lipgloss.NewStyle().Foreground(lipgloss.Color("#a6e3a1")).Bold(true),
	}

	m.unsub = ctrl.Subscribe(func(st player.SessionState) {
		// keep only the latest state
		select {
		case <-m.updates:
		default:
		}
		select {
		case m.updates <- st:
		default:
		}
	})

	if quran.ValidSurahID(openSurah) {
		m.screen = readerScreen
		m.loading = true
		m.retry = m.openCmd(openSurah)
	} else {
		m.loading = true
		m.retry = m.loadListCmd()
	}
	return m
}

// Close detaches the model from the player.
func (m *Model) Close() {
	if m.unsub != nil {
		m.unsub()
		m.unsub = nil
	}
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.retry, m.waitForPlayback())
}

func (m *Model) loadListCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
		defer cancel()
		surahs, err := m.library.SurahList(ctx)
		return surahListMsg{surahs: surahs, err: err}
	}
}

func (m *Model) openCmd(surahID int) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
		defer cancel()
		chapter, err := m.library.Open(ctx, surahID)
		return chapterMsg{surahID: surahID, chapter: chapter, err: err}
	}
}

func (m *Model) waitForPlayback() tea.Cmd {
	ch := m.updates
	return func() tea.Msg {
		return playbackMsg(<-ch)
	}
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case surahListMsg:
		m.loading = false
		if msg.err != nil {
			m.loadErr = msg.err
			m.retry = m.loadListCmd()
			return m, nil
		}
		m.loadErr = nil
		m.surahs = msg.surahs
		return m, nil

	case chapterMsg:
		m.loading = false
		if msg.err != nil {
			m.loadErr = msg.err
			m.retry = m.openCmd(msg.surahID)
			return m, nil
		}
		m.loadErr = nil
		m.showChapter(msg.chapter)
		return m, nil

	case playbackMsg:
		m.playback = player.SessionState(msg)
		m.flags = m.settings.Snapshot()
		m.followPlayback()
		return m, m.waitForPlayback()

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

// showChapter switches the reader to chapter. Opening a different chapter
// stops whatever is playing.
func (m *Model) showChapter(chapter *library.Chapter) {
	st := m.player.State()
	if st.Status != player.StatusIdle && st.SurahID != chapter.Surah.Number {
		m.player.StopAndUnload()
	}
	m.player.SetVerses(chapter.Verses)
	m.playback = m.player.State()

	m.chapter = chapter
	m.screen = readerScreen
	m.page = 1
	m.cursor = 0
	m.pageOffset = 0
	m.followPlayback()
}

// followPlayback moves to the page holding the bound verse.
func (m *Model) followPlayback() {
	if m.chapter == nil || m.playback.Index < 0 || m.playback.SurahID != m.chapter.Surah.Number {
		return
	}
	page := quran.PageOf(m.playback.Index, len(m.chapter.Verses))
	p := m.chapter.Page(page)
	if page != m.page {
		m.page = page
		m.pageOffset = 0
	}
	m.cursor = m.playback.Index - p.FirstIndex
	m.adjustPageOffset()
}

func (m *Model) currentPage() quran.Page {
	if m.chapter == nil {
		return quran.Paginate(nil, 1)
	}
	return m.chapter.Page(m.page)
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	if key == "ctrl+c" || key == "q" {
		m.player.StopAndUnload()
		m.Close()
		return m, tea.Quit
	}

	if m.loadErr != nil {
		switch key {
		case "r":
			m.loadErr = nil
			m.loading = true
			return m, m.retry
		case "esc":
			if m.screen == readerScreen {
				m.loadErr = nil
				return m.backToList()
			}
		}
		return m, nil
	}

	if m.screen == listScreen {
		return m.handleListKey(key)
	}
	return m.handleReaderKey(key)
}

func (m *Model) handleListKey(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "up", "k":
		if m.listCursor > 0 {
			m.listCursor--
		}
	case "down", "j":
		if m.listCursor < len(m.surahs)-1 {
			m.listCursor++
		}
	case "pgdown":
		m.listCursor = min(len(m.surahs)-1, m.listCursor+m.visibleRows())
	case "pgup":
		m.listCursor = max(0, m.listCursor-m.visibleRows())
	case "enter":
		if len(m.surahs) == 0 {
			return m, nil
		}
		m.loading = true
		m.screen = readerScreen
		m.retry = m.openCmd(m.surahs[m.listCursor].Number)
		return m, m.retry
	}
	m.adjustListOffset()
	return m, nil
}

func (m *Model) handleReaderKey(key string) (tea.Model, tea.Cmd) {
	if m.chapter == nil {
		if key == "esc" {
			return m.backToList()
		}
		return m, nil
	}
	page := m.currentPage()

	switch key {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(page.Verses)-1 {
			m.cursor++
		}
	case "n", "right":
		if m.page < page.TotalPages {
			m.page++
			m.cursor = 0
			m.pageOffset = 0
		}
	case "p", "left":
		if m.page > 1 {
			m.page--
			m.cursor = 0
			m.pageOffset = 0
		}
	case "enter":
		if m.cursor < len(page.Verses) {
			v := page.Verses[m.cursor]
			m.player.ToggleVerse(v.SurahID, v.NumberInSurah)
		}
	case " ":
		m.player.TogglePlayPause()
	case "s":
		m.player.SkipToNextVerse()
	case "x":
		m.player.StopAndUnload()
	case "a":
		m.settings.ToggleAutoplay()
	case "t":
		m.settings.ToggleTranslation()
	case "esc":
		return m.backToList()
	}

	m.flags = m.settings.Snapshot()
	m.playback = m.player.State()
	m.adjustPageOffset()
	return m, nil
}

func (m *Model) backToList() (tea.Model, tea.Cmd) {
	m.screen = listScreen
	if len(m.surahs) == 0 && !m.loading {
		m.loading = true
		m.retry = m.loadListCmd()
		return m, m.retry
	}
	if m.chapter != nil {
		m.listCursor = max(0, min(m.chapter.Surah.Number-1, len(m.surahs)-1))
		m.adjustListOffset()
	}
	return m, nil
}

func (m *Model) visibleRows() int {
	return max(1, m.height-6)
}

func (m *Model) adjustListOffset() {
	rows := m.visibleRows()
	if m.listCursor < m.listOffset {
		m.listOffset = m.listCursor
	} else if m.listCursor >= m.listOffset+rows {
		m.listOffset = m.listCursor - rows + 1
	}
}

// visibleVerses estimates how many verses fit on screen.
func (m *Model) visibleVerses() int {
	perVerse := 3
	if m.flags.ShowTranslation {
		perVerse = 4
	}
	return max(1, (m.height-6)/perVerse)
}

func (m *Model) adjustPageOffset() {
	n := m.visibleVerses()
	if m.cursor < m.pageOffset {
		m.pageOffset = m.cursor
	} else if m.cursor >= m.pageOffset+n {
		m.pageOffset = m.cursor - n + 1
	}
}
