package session

import (
	"strings"

	"github.com/thinplay-cli/thinplay/log"
	"github.com/thinplay-cli/thinplay/player"
)

// State is the playback session's position in its lifecycle.
type State int

const (
	// Loading covers the span between engine initialization and the first
	// sign of playback.
	Loading State = iota

	// Playing is the steady state while the engine plays the current episode.
	Playing

	// Seeking is entered after a playlist transition, until the engine
	// confirms a restart and the new episode's saved position is restored.
	Seeking

	// ShuttingDown is terminal; the event loop exits.
	ShuttingDown
)

func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case Playing:
		return "playing"
	case Seeking:
		return "seeking"
	case ShuttingDown:
		return "shutting-down"
	default:
		return "unknown"
	}
}

// handler reacts to one engine event and returns the next state.
type handler func(*Session, player.Event) State

// transitions keys the session's reactions by (state, event kind). Event kinds
// absent for a state leave it unchanged; EventNone never reaches dispatch.
var transitions = map[State]map[player.EventKind]handler{
	Loading: {
		player.EventPropertyChange:  (*Session).onProperty,
		player.EventPlaybackRestart: (*Session).onRestart,
		player.EventShutdown:        (*Session).onShutdown,
		player.EventOther:           (*Session).onOther,
	},
	Playing: {
		player.EventPropertyChange:  (*Session).onProperty,
		player.EventPlaybackRestart: (*Session).onRestart,
		player.EventShutdown:        (*Session).onShutdown,
		player.EventOther:           (*Session).onOther,
	},
	Seeking: {
		player.EventPropertyChange:  (*Session).onProperty,
		player.EventPlaybackRestart: (*Session).onRestart,
		player.EventShutdown:        (*Session).onShutdown,
		player.EventOther:           (*Session).onOther,
	},
}

// dispatch applies one event to the session's state machine.
func (s *Session) dispatch(ev player.Event) State {
	handlers, ok := transitions[s.state]
	if !ok {
		return s.state
	}
	h, ok := handlers[ev.Kind]
	if !ok {
		return s.state
	}
	return h(s, ev)
}

// onProperty applies an observed property update.
func (s *Session) onProperty(ev player.Event) State {
	switch ev.Name {
	case "playback-time":
		pos, ok := ev.Data.(float64)
		if !ok {
			return s.state
		}
		e := s.entry(s.current)
		e.Position = pos
		e.Dirty = true
		if s.state == Loading {
			return Playing
		}
		return s.state

	case "path":
		path, ok := ev.Data.(string)
		if !ok || path == "" || path == s.current {
			return s.state
		}
		return s.onItemChange(path)

	default:
		return s.state
	}
}

// onItemChange switches the current-item cursor to the episode the engine
// moved to, fires its now-watching report, and schedules a seek back to its
// saved position. The leaving episode's accumulated position already lives in
// its own entry.
func (s *Session) onItemChange(path string) State {
	log.Infof("playlist moved to %s", path)

	s.current = path
	e := s.entry(path)
	s.seekTo = e.Position
	s.markWatching(e)

	return Seeking
}

// onRestart reacts to the engine confirming playback restarted. While seeking
// it restores the new episode's saved position.
func (s *Session) onRestart(player.Event) State {
	if s.state != Seeking {
		if s.state == Loading {
			return Playing
		}
		return s.state
	}

	if err := s.eng.SetProperty("time-pos", s.seekTo); err != nil {
		log.Warnf("restore position %f: %v", s.seekTo, err)
	}
	return Playing
}

func (s *Session) onShutdown(player.Event) State {
	return ShuttingDown
}

// onOther logs event kinds the session does not react to rather than silently
// dropping them.
func (s *Session) onOther(ev player.Event) State {
	log.Debugf("unhandled engine event %q in state %s", ev.Name, s.state)
	return s.state
}

// endpointOf recovers the report-endpoint descriptor from a playback URL. For
// URLs the session built itself this is the query fragment; engine-driven jumps
// to other targets yield whatever query they carry.
func endpointOf(url string) string {
	if i := strings.IndexByte(url, '?'); i >= 0 {
		return url[i+1:]
	}
	return ""
}
