package socketio

import (
	"errors"

	"github.com/rs/zerolog/log"
	"github.com/zishang520/socket.io/servers/socket/v3"

	"github.com/luminousverses/luminous/internal/domain/player"
	"github.com/luminousverses/luminous/internal/domain/quran"
)

var errNoSurahOpen = errors.New("no surah is open")

// registerReaderHandlers registers chapter browsing and reading events.
func (s *Server) registerReaderHandlers(client *socket.Socket, clientID string) {
	client.On("getSurahList", func(args ...any) {
		log.Debug().Str("id", clientID).Msg("getSurahList")
		go s.handleSurahList(client)
	})

	client.On("openSurah", func(args ...any) {
		log.Debug().Str("id", clientID).Interface("data", args).Msg("openSurah")
		surahID, _ := argInt(args, "surahId")
		page, _ := argInt(args, "page")
		go s.handleOpenSurah(client, clientID, surahID, page)
	})

	client.On("getPage", func(args ...any) {
		log.Debug().Str("id", clientID).Interface("data", args).Msg("getPage")
		page, _ := argInt(args, "page")
		s.handleGetPage(client, clientID, page)
	})

	client.On("getVerseOfTheDay", func(args ...any) {
		log.Debug().Str("id", clientID).Msg("getVerseOfTheDay")
		go s.handleVerseOfTheDay(client)
	})
}

func (s *Server) handleSurahList(client *socket.Socket) {
	ctx, cancel := s.requestContext()
	defer cancel()

	surahs, err := s.library.SurahList(ctx)
	if err != nil {
		s.pushError(client, ScopeSurahList, err)
		return
	}
	client.Emit("pushSurahList", surahs)
}

func (s *Server) handleOpenSurah(client *socket.Socket, clientID string, surahID, page int) {
	ctx, cancel := s.requestContext()
	defer cancel()

	chapter, err := s.library.Open(ctx, surahID)
	if err != nil {
		s.pushError(client, ScopeSurah, err)
		return
	}

	controlling := s.views.IsController(clientID)
	if controlling && s.player != nil {
		st := s.player.State()
		if st.Status != player.StatusIdle && st.SurahID != surahID {
			log.Info().Int("from", st.SurahID).Int("to", surahID).Msg("Opening another surah, stopping playback")
			s.player.StopAndUnload()
		}
		s.player.SetVerses(chapter.Verses)

		// Open on the page of the verse being played.
		if st := s.player.State(); page <= 0 && st.SurahID == surahID && st.Index >= 0 {
			page = quran.PageOf(st.Index, len(chapter.Verses))
		}
	}

	p := chapter.Page(page)

	s.mu.Lock()
	if sess := s.sessions[clientID]; sess != nil {
		sess.chapter = chapter
		sess.page = p.Number
	}
	s.mu.Unlock()

	log.Info().
		Str("id", clientID).
		Int("surah", surahID).
		Int("page", p.Number).
		Int("pages", p.TotalPages).
		Msg("Surah opened")

	client.Emit("pushSurah", chapter.Surah)
	client.Emit("pushPage", PagePayload{SurahID: surahID, Page: p})
}

func (s *Server) handleGetPage(client *socket.Socket, clientID string, page int) {
	s.mu.Lock()
	sess := s.sessions[clientID]
	if sess == nil || sess.chapter == nil {
		s.mu.Unlock()
		s.pushError(client, ScopePage, errNoSurahOpen)
		return
	}
	p := sess.chapter.Page(page)
	sess.page = p.Number
	surahID := sess.chapter.Surah.Number
	s.mu.Unlock()

	client.Emit("pushPage", PagePayload{SurahID: surahID, Page: p})
}

func (s *Server) handleVerseOfTheDay(client *socket.Socket) {
	if s.votd == nil {
		return
	}
	ctx, cancel := s.requestContext()
	defer cancel()

	verse, err := s.votd.Today(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to fetch verse of the day")
		client.Emit("pushError", ErrorPayload{Scope: ScopeVerseOfTheDay, Message: "Error fetching verse: " + err.Error()})
		return
	}
	client.Emit("pushVerseOfTheDay", verse)
}
