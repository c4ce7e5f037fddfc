package socketio

import (
	"github.com/rs/zerolog/log"
	"github.com/zishang520/socket.io/servers/socket/v3"
)

const msgNotController = "Another view controls playback"

// registerPlaybackHandlers registers playback control and settings events.
// Only the controlling view may change playback; other views observe.
func (s *Server) registerPlaybackHandlers(client *socket.Socket, clientID string) {
	control := func(event string, fn func(args []any)) {
		client.On(event, func(args ...any) {
			log.Debug().Str("id", clientID).Interface("data", args).Msg(event)
			if s.player == nil {
				return
			}
			if !s.views.IsController(clientID) {
				client.Emit("pushError", ErrorPayload{Scope: ScopePlayback, Message: msgNotController})
				return
			}
			fn(args)
		})
	}

	control("playVerse", func(args []any) {
		surahID, ok1 := argInt(args, "surahId")
		verse, ok2 := argInt(args, "verse")
		if ok1 && ok2 {
			s.player.PlayVerse(surahID, verse)
		}
	})

	control("toggleVerse", func(args []any) {
		surahID, ok1 := argInt(args, "surahId")
		verse, ok2 := argInt(args, "verse")
		if ok1 && ok2 {
			s.player.ToggleVerse(surahID, verse)
		}
	})

	control("toggle", func([]any) { s.player.TogglePlayPause() })
	control("pause", func([]any) { s.player.PauseVerse() })
	control("resume", func([]any) { s.player.ResumeVerse() })
	control("skip", func([]any) { s.player.SkipToNextVerse() })
	control("stop", func([]any) { s.player.StopAndUnload() })

	control("seek", func(args []any) {
		if pos, ok := argNumber(args); ok {
			s.player.Seek(pos)
		}
	})

	client.On("getState", func(args ...any) {
		log.Debug().Str("id", clientID).Msg("getState")
		s.pushPlaybackState(client)
	})

	client.On("getSettings", func(args ...any) {
		log.Debug().Str("id", clientID).Msg("getSettings")
		s.pushSettings(client)
	})

	client.On("setAutoplay", func(args ...any) {
		log.Debug().Str("id", clientID).Interface("data", args).Msg("setAutoplay")
		if v, ok := argBool(args, "value"); ok && s.settings != nil {
			s.settings.SetAutoplay(v)
		}
	})

	client.On("setShowTranslation", func(args ...any) {
		log.Debug().Str("id", clientID).Interface("data", args).Msg("setShowTranslation")
		if v, ok := argBool(args, "value"); ok && s.settings != nil {
			s.settings.SetShowTranslation(v)
		}
	})
}
