package reader

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/luminousverses/luminous/internal/domain/player"
	"github.com/luminousverses/luminous/internal/domain/quran"
)

var helpStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("244")).
	MarginTop(1).
	PaddingLeft(1)

func (m *Model) View() string {
	switch {
	case m.loadErr != nil:
		return m.errorView()
	case m.loading:
		return m.dimStyle.Render("\n  Loading...")
	case m.screen == listScreen:
		return m.listView()
	default:
		return m.readerView()
	}
}

func (m *Model) errorView() string {
	var b strings.Builder
	b.WriteString("\n  ")
	b.WriteString(m.errorStyle.Render("Something went wrong"))
	b.WriteString("\n\n  ")
	b.WriteString(m.textStyle.Render(m.loadErr.Error()))
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("r: retry • esc: back • q: quit"))
	return b.String()
}

func (m *Model) listView() string {
	var b strings.Builder
	b.WriteString(m.titleStyle.Render("Luminous Verses"))
	b.WriteString("\n\n")

	end := min(len(m.surahs), m.listOffset+m.visibleRows())
	for i := m.listOffset; i < end; i++ {
		s := m.surahs[i]
		line := fmt.Sprintf("%3d  %-22s %-28s %3d verses",
			s.Number, s.EnglishName, s.EnglishNameTranslation, s.NumberOfAyahs)
		if i == m.listCursor {
			b.WriteString(m.activeStyle.Render("> " + line))
		} else {
			b.WriteString(m.textStyle.Render("  " + line))
		}
		b.WriteString("\n")
	}

	b.WriteString(helpStyle.Render("↑/↓: select • enter: read • q: quit"))
	return b.String()
}

func (m *Model) readerView() string {
	if m.chapter == nil {
		return ""
	}
	page := m.currentPage()
	s := m.chapter.Surah

	var b strings.Builder
	b.WriteString(m.titleStyle.Render(fmt.Sprintf("%d. %s", s.Number, s.EnglishName)))
	b.WriteString("  ")
	b.WriteString(m.arabicStyle.Render(s.Name))
	b.WriteString("  ")
	b.WriteString(m.dimStyle.Render(fmt.Sprintf("page %d/%d", page.Number, page.TotalPages)))
	b.WriteString("\n\n")

	end := min(len(page.Verses), m.pageOffset+m.visibleVerses())
	for i := m.pageOffset; i < end; i++ {
		b.WriteString(m.renderVerse(page.Verses[i], i == m.cursor))
	}

	b.WriteString(m.statusLine())
	b.WriteString(helpStyle.Render("↑/↓: select • enter: play/pause • n/p: page • s: skip • x: stop • a: autoplay • t: translation • esc: back • q: quit"))
	return b.String()
}

func (m *Model) renderVerse(v quran.Verse, selected bool) string {
	marker := "  "
	if m.playback.Bound(v.SurahID, v.NumberInSurah) {
		marker = statusMarker(m.playback.Status) + " "
	}

	num := m.verseNumStyle.Render(fmt.Sprintf("%3d", v.NumberInSurah))
	if selected {
		num = m.activeStyle.Render(fmt.Sprintf(">%2d", v.NumberInSurah))
	}

	width := max(20, m.width-8)
	var b strings.Builder
	b.WriteString(marker + num + " ")
	b.WriteString(m.arabicStyle.Width(width).Render(v.Text))
	b.WriteString("\n")
	if m.flags.ShowTranslation && v.Translation != "" {
		b.WriteString("      ")
		b.WriteString(m.textStyle.Width(width).Render(v.Translation))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	return b.String()
}

func statusMarker(status player.Status) string {
	switch status {
	case player.StatusPlaying:
		return "▶"
	case player.StatusPaused:
		return "‖"
	case player.StatusLoading:
		return "…"
	case player.StatusError:
		return "!"
	default:
		return " "
	}
}

func (m *Model) statusLine() string {
	onOff := func(v bool) string {
		if v {
			return "on"
		}
		return "off"
	}

	st := m.playback
	var parts []string
	if st.VerseKey != "" {
		parts = append(parts, fmt.Sprintf("%s %d:%d  %s", statusMarker(st.Status), st.SurahID, st.Verse, st.PositionText()))
	}
	if st.Error != "" {
		parts = append(parts, m.errorStyle.Render(st.Error))
	}
	parts = append(parts,
		"autoplay "+onOff(m.flags.AutoplayEnabled),
		"translation "+onOff(m.flags.ShowTranslation),
	)
	return m.dimStyle.Render(strings.Join(parts, "  ·  "))
}
