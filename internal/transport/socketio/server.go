// Package socketio provides the Socket.io server for reader views.
package socketio

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/zishang520/socket.io/servers/socket/v3"
	"github.com/zishang520/socket.io/v3/pkg/types"

	"github.com/luminousverses/luminous/internal/domain/library"
	"github.com/luminousverses/luminous/internal/domain/player"
	"github.com/luminousverses/luminous/internal/domain/quran"
	"github.com/luminousverses/luminous/internal/domain/settings"
	"github.com/luminousverses/luminous/internal/domain/votd"
)

// requestTimeout bounds every API call made on behalf of a view.
const requestTimeout = 15 * time.Second

// Deps are the services the server exposes to views.
type Deps struct {
	Library    *library.Service
	VerseOfDay *votd.Service
	Player     *player.Controller
	Settings   *settings.Store

	// MaxRemoteViews caps non-localhost views; zero means unlimited.
	MaxRemoteViews int
	// DebounceWindow defaults to DefaultDebounceWindow.
	DebounceWindow time.Duration
}

// viewSession is what one view is currently reading.
type viewSession struct {
	chapter *library.Chapter
	page    int
}

// Server handles Socket.io connections and events.
type Server struct {
	io        *socket.Server
	library   *library.Service
	votd      *votd.Service
	player    *player.Controller
	settings  *settings.Store
	views     *ViewRegistry
	debouncer *BroadcastDebouncer

	ctx    context.Context
	cancel context.CancelFunc
	unsubs []func()

	mu       sync.RWMutex
	clients  map[string]*socket.Socket
	sessions map[string]*viewSession
}

// NewServer creates a new Socket.io server.
func NewServer(deps Deps) (*Server, error) {
	opts := socket.DefaultServerOptions()
	opts.SetPingTimeout(20 * time.Second)
	opts.SetPingInterval(25 * time.Second)
	opts.SetCors(&types.Cors{
		Origin:      "*",
		Credentials: true,
	})

	window := deps.DebounceWindow
	if window <= 0 {
		window = DefaultDebounceWindow
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		io:       socket.NewServer(nil, opts),
		library:  deps.Library,
		votd:     deps.VerseOfDay,
		player:   deps.Player,
		settings: deps.Settings,
		views:    NewViewRegistry(deps.MaxRemoteViews),
		ctx:      ctx,
		cancel:   cancel,
		clients:  make(map[string]*socket.Socket),
		sessions: make(map[string]*viewSession),
	}
	s.debouncer = NewBroadcastDebouncer(window, s.BroadcastPlayback, s.BroadcastSettings)

	if s.player != nil {
		s.unsubs = append(s.unsubs, s.player.Subscribe(func(player.SessionState) {
			s.debouncer.Trigger(TopicPlayback)
		}))
	}
	if s.settings != nil {
		s.unsubs = append(s.unsubs, s.settings.Subscribe(func(settings.Change) {
			s.debouncer.Trigger(TopicSettings)
		}))
	}

	s.setupHandlers()

	return s, nil
}

// setupHandlers registers all Socket.io event handlers.
func (s *Server) setupHandlers() {
	s.io.On("connection", func(clients ...any) {
		client := clients[0].(*socket.Socket)
		clientID := string(client.Id())
		remoteIP := ""
		if hs := client.Handshake(); hs != nil {
			remoteIP = hs.Address
		}

		log.Info().Str("id", clientID).Str("ip", remoteIP).Msg("View connected")

		s.mu.Lock()
		s.clients[clientID] = client
		s.sessions[clientID] = &viewSession{}
		s.mu.Unlock()

		if evicted := s.views.Add(clientID, remoteIP); evicted != "" {
			s.evict(evicted)
		}

		// Send initial state after small delay
		go func() {
			time.Sleep(100 * time.Millisecond)
			s.pushPlaybackState(client)
			s.pushSettings(client)
		}()

		client.On("disconnect", func(args ...any) {
			reason := ""
			if len(args) > 0 {
				if r, ok := args[0].(string); ok {
					reason = r
				}
			}
			log.Info().Str("id", clientID).Str("reason", reason).Msg("View disconnected")

			s.mu.Lock()
			delete(s.clients, clientID)
			delete(s.sessions, clientID)
			s.mu.Unlock()

			if promoted := s.views.Remove(clientID); promoted != "" {
				log.Info().Str("id", promoted).Msg("View promoted to playback controller")
				s.adoptSession(promoted)
			}
		})

		s.registerReaderHandlers(client, clientID)
		s.registerPlaybackHandlers(client, clientID)
	})
}

// evict disconnects a view pushed out by the remote view cap.
func (s *Server) evict(clientID string) {
	s.mu.RLock()
	client := s.clients[clientID]
	s.mu.RUnlock()
	if client == nil {
		return
	}
	log.Info().Str("id", clientID).Msg("Evicting oldest remote view")
	client.Emit("pushError", ErrorPayload{Scope: ScopePlayback, Message: "Disconnected: too many remote views"})
	client.Disconnect(true)
}

// adoptSession hands the playback verse sequence to a newly promoted view.
func (s *Server) adoptSession(clientID string) {
	sess := s.session(clientID)
	if sess == nil || sess.chapter == nil || s.player == nil {
		return
	}
	st := s.player.State()
	if st.Status != player.StatusIdle && st.SurahID != sess.chapter.Surah.Number {
		s.player.StopAndUnload()
	}
	s.player.SetVerses(sess.chapter.Verses)
}

func (s *Server) session(clientID string) *viewSession {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessions[clientID]
}

func (s *Server) requestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(s.ctx, requestTimeout)
}

func (s *Server) pushError(client *socket.Socket, scope string, err error) {
	log.Warn().Err(err).Str("scope", scope).Msg("Request failed")
	client.Emit("pushError", ErrorPayload{Scope: scope, Message: err.Error()})
}

// pushPlaybackState sends the current playback state to a client.
func (s *Server) pushPlaybackState(client *socket.Socket) {
	if s.player == nil {
		return
	}
	client.Emit("pushPlaybackState", s.player.State())
}

// pushSettings sends the current flags to a client.
func (s *Server) pushSettings(client *socket.Socket) {
	if s.settings == nil {
		return
	}
	client.Emit("pushSettings", s.settings.Snapshot())
}

// BroadcastPlayback sends playback state to all connected views and moves
// the controlling view to the page holding the bound verse.
func (s *Server) BroadcastPlayback() {
	if s.player == nil {
		return
	}
	state := s.player.State()
	s.io.Emit("pushPlaybackState", state)
	s.followPlayback(state)

	if log.Debug().Enabled() {
		data, _ := json.Marshal(state)
		log.Debug().RawJSON("state", data).Int("views", s.views.Count()).Msg("Broadcast playback")
	}
}

// followPlayback turns the controlling view's page when playback moved to a
// verse on another page of the open chapter.
func (s *Server) followPlayback(state player.SessionState) {
	controller := s.views.Controller()
	if controller == "" || state.Index < 0 {
		return
	}

	s.mu.Lock()
	client := s.clients[controller]
	sess := s.sessions[controller]
	if client == nil || sess == nil || sess.chapter == nil || sess.chapter.Surah.Number != state.SurahID {
		s.mu.Unlock()
		return
	}
	page := quran.PageOf(state.Index, len(sess.chapter.Verses))
	if page == sess.page {
		s.mu.Unlock()
		return
	}
	sess.page = page
	payload := PagePayload{SurahID: state.SurahID, Page: sess.chapter.Page(page)}
	s.mu.Unlock()

	log.Debug().Int("surah", state.SurahID).Int("page", page).Msg("Following playback to page")
	client.Emit("pushPage", payload)
}

// BroadcastSettings sends the flags to all connected views.
func (s *Server) BroadcastSettings() {
	if s.settings == nil {
		return
	}
	s.io.Emit("pushSettings", s.settings.Snapshot())
}

// Views returns the view registry.
func (s *Server) Views() *ViewRegistry {
	return s.views
}

// ServeHTTP implements http.Handler for the Socket.io server.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.io.ServeHandler(nil).ServeHTTP(w, r)
}

// Close closes the Socket.io server.
func (s *Server) Close() error {
	s.cancel()
	s.debouncer.Stop()
	for _, unsubscribe := range s.unsubs {
		unsubscribe()
	}
	s.io.Close(nil)
	return nil
}
