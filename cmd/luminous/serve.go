package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/GiGurra/boa/pkg/boa"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/luminousverses/luminous/internal/transport/socketio"
	"github.com/luminousverses/luminous/internal/version"
)

type serveParams struct {
	Port           string `help:"HTTP server port." default:"3001"`
	Static         string `optional:"true" help:"Directory to serve the browser UI from."`
	MaxRemoteViews int    `help:"Maximum non-localhost views, 0 for unlimited." default:"4"`
}

func serveCmd() *cobra.Command {
	return boa.CmdT[serveParams]{
		Use:         "serve",
		Short:       "Host the browser reader over Socket.io and REST",
		ParamEnrich: defaultParamEnricher(),
		RunFunc: func(params *serveParams, cmd *cobra.Command, args []string) {
			runServe(params)
		},
	}.ToCobra()
}

func runServe(params *serveParams) {
	a := mustApp(true)
	defer a.Close()

	log.Info().Msg("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	log.Info().Msgf("  %s", version.GetInfo().String())
	log.Info().Msg("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	log.Info().
		Str("port", params.Port).
		Str("api", a.api.BaseURL()).
		Str("translator", a.library.Translator()).
		Bool("cache", a.db != nil).
		Int("max_remote_views", params.MaxRemoteViews).
		Msg("Configuration")

	socketServer, err := socketio.NewServer(socketio.Deps{
		Library:        a.library,
		VerseOfDay:     a.votd,
		Player:         a.player,
		Settings:       a.settings,
		MaxRemoteViews: params.MaxRemoteViews,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create Socket.io server")
	}
	defer socketServer.Close()

	api := &restAPI{library: a.library, votd: a.votd, player: a.player, settings: a.settings}

	server := &http.Server{
		Addr:         ":" + params.Port,
		Handler:      newHandler(api, socketServer, params.Static),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		log.Info().Msg("Shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Server shutdown error")
		}
	}()

	log.Info().Str("addr", server.Addr).Msg("HTTP server listening")
	if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("HTTP server error")
	}
	log.Info().Msg("Server stopped")
}

// newHandler builds the HTTP routing tree: Socket.io, REST and optionally the
// browser UI in SPA mode.
func newHandler(api *restAPI, socket http.Handler, staticDir string) http.Handler {
	mux := http.NewServeMux()
	if socket != nil {
		mux.Handle("/socket.io/", socket)
	}
	api.register(mux)

	if staticDir != "" {
		log.Info().Str("dir", staticDir).Msg("Serving static files")
		fs := http.FileServer(http.Dir(staticDir))
		index := filepath.Join(staticDir, "index.html")
		mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			path := filepath.Join(staticDir, filepath.Clean("/"+r.URL.Path))
			if r.URL.Path == "/" {
				path = index
			}
			if _, err := os.Stat(path); os.IsNotExist(err) {
				// Unknown paths belong to the client-side router.
				http.ServeFile(w, r, index)
				return
			}
			fs.ServeHTTP(w, r)
		})
	}

	return corsMiddleware(mux)
}
