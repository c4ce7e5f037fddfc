package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/luminousverses/luminous/internal/domain/library"
	"github.com/luminousverses/luminous/internal/domain/player"
	"github.com/luminousverses/luminous/internal/domain/settings"
	"github.com/luminousverses/luminous/internal/domain/votd"
	"github.com/luminousverses/luminous/internal/infra/quranapi"
	"github.com/luminousverses/luminous/internal/version"
)

const restTimeout = 15 * time.Second

// restAPI is the read-only REST surface served next to Socket.io.
type restAPI struct {
	library  *library.Service
	votd     *votd.Service
	player   *player.Controller
	settings *settings.Store
}

func (api *restAPI) register(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", api.health)
	mux.HandleFunc("GET /api/v1/version", api.version)
	mux.HandleFunc("GET /api/v1/surahs", api.surahs)
	mux.HandleFunc("GET /api/v1/surahs/{id}", api.surah)
	mux.HandleFunc("GET /api/v1/verse-of-the-day", api.verseOfTheDay)
	mux.HandleFunc("GET /api/v1/playback", api.playback)
	mux.HandleFunc("GET /api/v1/settings", api.currentSettings)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Debug().Err(err).Msg("Failed to write response")
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusBadGateway
	var se *quranapi.StatusError
	switch {
	case errors.Is(err, library.ErrInvalidSurahID):
		status = http.StatusBadRequest
	case errors.Is(err, quranapi.ErrSurahNotFound), errors.Is(err, quranapi.ErrVerseNotFound):
		status = http.StatusNotFound
	case errors.Is(err, quranapi.ErrRateLimited):
		status = http.StatusTooManyRequests
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	case errors.As(err, &se):
		status = http.StatusBadGateway
	}
	if status >= 500 {
		log.Warn().Err(err).Int("status", status).Msg("REST request failed")
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (api *restAPI) health(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{"status": "ok"}
	if stats, err := api.library.Stats(); err == nil {
		resp["cache"] = stats
	} else {
		resp["cache"] = "disabled"
	}
	writeJSON(w, http.StatusOK, resp)
}

func (api *restAPI) version(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, version.GetInfo())
}

func (api *restAPI) surahs(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), restTimeout)
	defer cancel()

	surahs, err := api.library.SurahList(ctx)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, surahs)
}

func (api *restAPI) surah(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		writeError(w, library.ErrInvalidSurahID)
		return
	}
	page := 1
	if p := r.URL.Query().Get("page"); p != "" {
		if page, err = strconv.Atoi(p); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid page"})
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), restTimeout)
	defer cancel()

	chapter, err := api.library.Open(ctx, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"surah": chapter.Surah,
		"page":  chapter.Page(page),
	})
}

func (api *restAPI) verseOfTheDay(w http.ResponseWriter, r *http.Request) {
	if api.votd == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "verse of the day unavailable"})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), restTimeout)
	defer cancel()

	v, err := api.votd.Today(ctx)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (api *restAPI) playback(w http.ResponseWriter, r *http.Request) {
	if api.player == nil {
		writeJSON(w, http.StatusOK, player.IdleState())
		return
	}
	writeJSON(w, http.StatusOK, api.player.State())
}

func (api *restAPI) currentSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, api.settings.Snapshot())
}
