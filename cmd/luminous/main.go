// Package main is the entry point for the Luminous reader.
package main

import (
	"os"
	"time"

	"github.com/GiGurra/boa/pkg/boa"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/luminousverses/luminous/internal/infra/cache"
	"github.com/luminousverses/luminous/internal/version"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	debug      bool
	dbPath     string
	noCache    bool
	apiURL     string
	audioURL   string
	translator string
}

var globals globalFlags

func main() {
	root := boa.CmdT[boa.NoParams]{
		Use:     "luminous",
		Short:   "Read and listen to the Quran, verse by verse",
		Version: version.GetInfo().String(),
		SubCmds: []*cobra.Command{
			serveCmd(),
			readerCmd(),
			surahsCmd(),
			readCmd(),
			votdCmd(),
			playCmd(),
			syncCmd(),
		},
	}.ToCobra()

	flags := root.PersistentFlags()
	flags.BoolVar(&globals.debug, "debug", false, "Enable debug logging")
	flags.StringVar(&globals.dbPath, "db", cache.DefaultDBPath, "Path to the offline cache database")
	flags.BoolVar(&globals.noCache, "no-cache", false, "Disable the offline cache")
	flags.StringVar(&globals.apiURL, "api-url", "", "Chapter and verse API base URL")
	flags.StringVar(&globals.audioURL, "audio-url", "", "Recitation audio base URL")
	flags.StringVar(&globals.translator, "translator", "", "Translation edition, e.g. en.yusufali")

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupLogging(debug bool) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
}

func defaultParamEnricher() boa.ParamEnricher {
	return boa.ParamEnricherCombine(
		boa.ParamEnricherBool,
		boa.ParamEnricherName,
		boa.ParamEnricherShort,
	)
}
