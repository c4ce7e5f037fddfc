package main

import (
	"github.com/rs/zerolog/log"

	"github.com/luminousverses/luminous/internal/audio"
	"github.com/luminousverses/luminous/internal/domain/library"
	"github.com/luminousverses/luminous/internal/domain/player"
	"github.com/luminousverses/luminous/internal/domain/quran"
	"github.com/luminousverses/luminous/internal/domain/settings"
	"github.com/luminousverses/luminous/internal/domain/votd"
	"github.com/luminousverses/luminous/internal/infra/cache"
	"github.com/luminousverses/luminous/internal/infra/quranapi"
	"github.com/luminousverses/luminous/internal/version"
)

// app holds the services shared by the subcommands.
type app struct {
	db        *cache.DB
	api       *quranapi.Client
	library   *library.Service
	settings  *settings.Store
	votd      *votd.Service
	fetcher   *audio.Fetcher
	preloader *audio.Preloader
	pool      *audio.Pool
	player    *player.Controller
}

// newApp wires the services. withAudio also creates the playback stack.
func newApp(withAudio bool) (*app, error) {
	setupLogging(globals.debug)
	a := &app{}

	translator := globals.translator
	if translator == "" {
		translator = quranapi.DefaultTranslator
	}

	opts := []quranapi.Option{quranapi.WithUserAgent(version.UserAgent())}
	if globals.apiURL != "" {
		opts = append(opts, quranapi.WithBaseURL(globals.apiURL))
	}
	a.api = quranapi.NewClient(opts...)

	var backend settings.Backend = settings.NewMemoryBackend()
	if !globals.noCache {
		a.db = cache.NewDB(globals.dbPath)
		if err := a.db.Open(); err != nil {
			log.Warn().Err(err).Str("path", globals.dbPath).Msg("Offline cache unavailable, continuing without it")
			a.db = nil
		} else {
			backend = cache.NewDAO(a.db)
		}
	}

	a.library = library.NewService(a.api, a.db, translator)
	a.settings = settings.NewStore(backend)
	a.votd = votd.NewService(a.api, backend, translator)

	if withAudio {
		a.fetcher = audio.NewFetcher()
		a.preloader = audio.NewPreloader(a.fetcher)

		factory, err := audio.NewSpeakerFactory(a.fetcher)
		if err != nil {
			log.Warn().Err(err).Msg("Audio output unavailable, playback will be silent")
			mock := &audio.MockFactory{}
			factory = mock.New
		}
		a.pool = audio.NewPool(factory, audio.DefaultPoolCapacity)
		a.player = player.NewController(player.Config{
			Pool:      a.pool,
			Fader:     audio.NewCrossfader(),
			Preloader: a.preloader,
			Flags:     a.settings,
			URLs:      quran.AudioURLBuilder{BaseURL: globals.audioURL},
		})
	}

	// Audio-Active never survives a restart.
	a.settings.SetAudioActive(false)
	return a, nil
}

func (a *app) Close() {
	if a.player != nil {
		a.player.StopAndUnload()
	}
	if a.preloader != nil {
		a.preloader.Close()
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close cache")
		}
	}
}
