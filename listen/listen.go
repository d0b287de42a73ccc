// Package listen maintains the persistent websocket connection to the media
// server and dispatches inbound play commands onto playback sessions.
package listen

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"
	"github.com/thinplay-cli/thinplay/app"
	"github.com/thinplay-cli/thinplay/icon"
	"github.com/thinplay-cli/thinplay/log"
	"github.com/thinplay-cli/thinplay/session"
)

// endpointPath is where the server upgrades client connections.
const endpointPath = "/ws"

// envelope frames every message on the wire: a channel name plus its payload.
type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// membership is the join/leave notification payload.
type membership struct {
	APIKey string `json:"apikey"`
}

// Listener owns the connection lifecycle. At most one connection is
// maintained; Start while running is a no-op. Stop tears down the connection
// but never cancels an in-flight playback session.
type Listener struct {
	rt *app.Runtime

	mu      sync.Mutex
	running bool
	conn    *websocket.Conn
	closing chan struct{} // closed by Stop before the socket goes down

	sessionActive atomic.Bool
}

// New binds a listener to the application runtime.
func New(rt *app.Runtime) *Listener {
	return &Listener{rt: rt}
}

// Running reports whether a connection is currently maintained.
func (l *Listener) Running() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.running
}

// Start connects to the configured server, announces membership and begins
// processing inbound messages on a background goroutine. Calling Start while
// already running is a no-op.
func (l *Listener) Start() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.running {
		log.Debug("listener already running")
		return nil
	}

	snap := l.rt.Snapshot()
	target := websocketURL(snap.URL)

	conn, _, err := websocket.DefaultDialer.Dial(target, nil)
	if err != nil {
		return fmt.Errorf("connect %s: %w", target, err)
	}

	if err := emit(conn, "join", membership{APIKey: snap.APIKey}); err != nil {
		conn.Close()
		return fmt.Errorf("send join: %w", err)
	}

	l.conn = conn
	l.running = true
	l.closing = make(chan struct{})

	log.Info("Connected to server.")
	go l.readLoop(conn, l.closing)

	return nil
}

// Stop announces departure (best-effort), closes the connection and clears the
// run state. An active playback session keeps running to its own shutdown.
func (l *Listener) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.running {
		return
	}

	close(l.closing)
	if err := emit(l.conn, "leave", membership{APIKey: l.rt.Snapshot().APIKey}); err != nil {
		log.Debugf("send leave: %v", err)
	}
	l.conn.Close()
	l.running = false

	log.Info("Connection to the server closed.")
}

// readLoop processes inbound messages until the connection dies.
func (l *Listener) readLoop(conn *websocket.Conn, closing chan struct{}) {
	defer func() {
		l.mu.Lock()
		if l.conn == conn {
			l.running = false
		}
		l.mu.Unlock()
	}()

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-closing:
				// Voluntary close; Stop already logged it.
			default:
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					log.Info("Server closed the connection.")
				} else {
					log.Errorf("Connection to the server failed: %v", err)
				}
			}
			return
		}

		l.handleMessage(payload)
	}
}

// handleMessage decodes one framed message. Parse failures drop the message
// and keep the listener running.
func (l *Listener) handleMessage(payload []byte) {
	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		log.Errorf("drop unparseable message: %v", err)
		return
	}

	switch env.Event {
	case "message":
		req, err := session.DecodeRequest(env.Data)
		if err != nil {
			log.Errorf("drop play command: %v", err)
			return
		}
		l.dispatchSession(req)
	default:
		log.Debugf("ignoring message on channel %q", env.Event)
	}
}

// dispatchSession runs a playback session on its own goroutine so the
// listener's message processing is never blocked by playback. Only one session
// may be active at a time; further play commands are rejected until it ends.
func (l *Listener) dispatchSession(req session.Request) {
	if !l.sessionActive.CompareAndSwap(false, true) {
		log.Warnf("Play request %q rejected: a playback session is already active.", req.Title)
		return
	}

	log.Infof("Got play request: %s", req.Title)
	fmt.Printf("%s now playing %s\n", icon.Get(icon.Playing), req.Title)

	go func() {
		defer l.sessionActive.Store(false)

		s := session.New(l.rt.Snapshot(), req, l.rt.Reports, l.rt.NewEngine())
		if err := s.Run(); err != nil {
			if errors.Is(err, session.ErrEngineSetup) {
				// No safe degraded mode with a half-configured engine.
				log.Fatalf("%v", err)
			}
			log.Errorf("session for %q: %v", req.Title, err)
		}
	}()
}

// emit frames and sends one control message.
func emit(conn *websocket.Conn, event string, data interface{}) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return conn.WriteJSON(envelope{Event: event, Data: raw})
}

// websocketURL converts the configured HTTP base URL into the websocket
// endpoint. http becomes ws, https becomes wss.
func websocketURL(base string) string {
	return "ws" + strings.TrimPrefix(base, "http") + endpointPath
}
