package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/GiGurra/boa/pkg/boa"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/luminousverses/luminous/internal/domain/player"
	"github.com/luminousverses/luminous/internal/domain/quran"
	"github.com/luminousverses/luminous/internal/infra/cache"
	"github.com/luminousverses/luminous/internal/ui/reader"
)

const commandTimeout = 30 * time.Second

func fail(err error) {
	fmt.Fprintf(os.Stderr, "luminous: %v\n", err)
	os.Exit(1)
}

func mustApp(withAudio bool) *app {
	a, err := newApp(withAudio)
	if err != nil {
		fail(err)
	}
	return a
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func getTermWidth() int {
	if width, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && width > 0 {
		return width
	}
	return 120
}

// --- surahs ---

type surahsParams struct {
	JSON bool `help:"Print JSON instead of a table." default:"false"`
}

func surahsCmd() *cobra.Command {
	return boa.CmdT[surahsParams]{
		Use:         "surahs",
		Short:       "List all chapters",
		ParamEnrich: defaultParamEnricher(),
		RunFunc: func(params *surahsParams, cmd *cobra.Command, args []string) {
			a := mustApp(false)
			defer a.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
			defer cancel()

			surahs, err := a.library.SurahList(ctx)
			if err != nil {
				fail(err)
			}
			if params.JSON {
				printJSON(os.Stdout, surahs)
				return
			}
			renderSurahTable(os.Stdout, surahs, getTermWidth())
		},
	}.ToCobra()
}

func renderSurahTable(w io.Writer, surahs []quran.Surah, width int) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.SetAllowedRowLength(width)

	t.AppendHeader(table.Row{"#", "Name", "English", "Meaning", "Verses", "Revelation"})
	for _, s := range surahs {
		colorFunc := text.FgYellow.Sprint
		if s.RevelationType == quran.Medinan {
			colorFunc = text.FgCyan.Sprint
		}
		t.AppendRow(table.Row{
			s.Number,
			s.Name,
			s.EnglishName,
			s.EnglishNameTranslation,
			s.NumberOfAyahs,
			colorFunc(string(s.RevelationType)),
		})
	}
	t.Render()
}

// --- read ---

type readParams struct {
	Surah int  `pos:"true" required:"true" help:"Chapter number (1-114)."`
	Page  int  `short:"p" help:"Page to print." default:"1"`
	JSON  bool `help:"Print JSON." default:"false"`
}

func readCmd() *cobra.Command {
	return boa.CmdT[readParams]{
		Use:         "read",
		Short:       "Print one page of a chapter",
		ParamEnrich: defaultParamEnricher(),
		RunFunc: func(params *readParams, cmd *cobra.Command, args []string) {
			a := mustApp(false)
			defer a.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
			defer cancel()

			chapter, err := a.library.Open(ctx, params.Surah)
			if err != nil {
				fail(err)
			}
			page := chapter.Page(params.Page)
			if params.JSON {
				printJSON(os.Stdout, page)
				return
			}
			renderPage(os.Stdout, chapter.Surah, page, a.settings.ShowTranslation())
		},
	}.ToCobra()
}

func renderPage(w io.Writer, s quran.Surah, page quran.Page, showTranslation bool) {
	fmt.Fprintf(w, "%d. %s (%s)  page %d/%d\n\n", s.Number, s.EnglishName, s.Name, page.Number, page.TotalPages)
	for _, v := range page.Verses {
		fmt.Fprintf(w, "%3d  %s\n", v.NumberInSurah, v.Text)
		if showTranslation && v.Translation != "" {
			fmt.Fprintf(w, "     %s\n", v.Translation)
		}
		fmt.Fprintln(w)
	}
}

// --- votd ---

type votdParams struct {
	JSON bool `help:"Print JSON." default:"false"`
}

func votdCmd() *cobra.Command {
	return boa.CmdT[votdParams]{
		Use:         "votd",
		Short:       "Show the verse of the day",
		ParamEnrich: defaultParamEnricher(),
		RunFunc: func(params *votdParams, cmd *cobra.Command, args []string) {
			a := mustApp(false)
			defer a.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
			defer cancel()

			v, err := a.votd.Today(ctx)
			if err != nil {
				fail(err)
			}
			if params.JSON {
				printJSON(os.Stdout, v)
				return
			}
			fmt.Printf("%s\n\n%s\n\n- %s\n", v.Arabic, v.English, v.FullReference)
		},
	}.ToCobra()
}

// --- sync ---

type syncParams struct{}

func syncCmd() *cobra.Command {
	return boa.CmdT[syncParams]{
		Use:         "sync",
		Short:       "Download every chapter for offline reading",
		ParamEnrich: defaultParamEnricher(),
		RunFunc: func(params *syncParams, cmd *cobra.Command, args []string) {
			a := mustApp(false)
			defer a.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			interactive := term.IsTerminal(int(os.Stderr.Fd()))
			result, err := a.library.Sync(ctx, func(p cache.BuildProgress) {
				if interactive {
					fmt.Fprintf(os.Stderr, "\r[%3d%%] surah %3d/%d %-6s", p.Percent, p.Done, p.Total, p.Phase)
				}
			})
			if interactive {
				fmt.Fprintln(os.Stderr)
			}
			if err != nil {
				fail(err)
			}

			fmt.Printf("Cached %d surahs and %d verses in %s\n",
				result.SurahsAdded, result.VersesAdded, result.Duration.Round(time.Millisecond))
			if !result.Success {
				fail(fmt.Errorf("%s: %v", result.Error, result.FailedSurahs))
			}
		},
	}.ToCobra()
}

// --- play ---

type playParams struct {
	Surah    int  `pos:"true" required:"true" help:"Chapter number (1-114)."`
	Verse    int  `pos:"true" optional:"true" help:"Verse to start from." default:"1"`
	Autoplay bool `short:"a" help:"Continue through the chapter." default:"false"`
}

func playCmd() *cobra.Command {
	return boa.CmdT[playParams]{
		Use:         "play",
		Short:       "Recite verses in the terminal",
		ParamEnrich: defaultParamEnricher(),
		RunFunc: func(params *playParams, cmd *cobra.Command, args []string) {
			a := mustApp(true)
			defer a.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			loadCtx, cancel := context.WithTimeout(ctx, commandTimeout)
			chapter, err := a.library.Open(loadCtx, params.Surah)
			cancel()
			if err != nil {
				fail(err)
			}
			if params.Verse < 1 || params.Verse > len(chapter.Verses) {
				fail(fmt.Errorf("surah %d has no verse %d", params.Surah, params.Verse))
			}

			if cmd.Flags().Changed("autoplay") {
				a.settings.SetAutoplay(params.Autoplay)
			}

			done := make(chan struct{})
			var finish sync.Once
			started := false
			unsubscribe := a.player.Subscribe(func(st player.SessionState) {
				if st.VerseKey != "" {
					started = true
					fmt.Fprintf(os.Stderr, "\r%-8s %d:%d  %s   ", st.Status, st.SurahID, st.Verse, st.PositionText())
				}
				switch {
				case st.Status == player.StatusError:
					fmt.Fprintf(os.Stderr, "\n%s\n", st.Error)
					finish.Do(func() { close(done) })
				case started && st.Status == player.StatusIdle:
					finish.Do(func() { close(done) })
				}
			})
			defer unsubscribe()

			a.player.SetVerses(chapter.Verses)
			a.player.PlayVerse(params.Surah, params.Verse)

			select {
			case <-done:
			case <-ctx.Done():
			}
			fmt.Fprintln(os.Stderr)
		},
	}.ToCobra()
}

// --- reader ---

type readerParams struct {
	Surah int `pos:"true" optional:"true" help:"Chapter to open directly." default:"0"`
}

func readerCmd() *cobra.Command {
	return boa.CmdT[readerParams]{
		Use:         "reader",
		Short:       "Interactive terminal reader",
		ParamEnrich: defaultParamEnricher(),
		RunFunc: func(params *readerParams, cmd *cobra.Command, args []string) {
			a := mustApp(true)
			defer a.Close()

			// Log lines would corrupt the full-screen view.
			if globals.debug {
				f, err := tea.LogToFile("luminous-debug.log", "reader")
				if err != nil {
					fail(err)
				}
				defer f.Close()
				log.Logger = zerolog.New(f).With().Timestamp().Logger()
			} else {
				zerolog.SetGlobalLevel(zerolog.Disabled)
			}

			m := reader.New(a.library, a.player, a.settings, params.Surah)
			defer m.Close()

			if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
				fail(err)
			}
		},
	}.ToCobra()
}
