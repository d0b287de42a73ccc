package player

import (
	"encoding/json"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/thinplay-cli/thinplay/log"
)

// connectEvents opens the persistent event stream and registers every observed
// property on it.
func (m *MPV) connectEvents() error {
	if err := m.startEventLoop(); err != nil {
		return err
	}

	for i, name := range m.observed {
		if err := m.observeOn(name, i+1); err != nil {
			return fmt.Errorf("observe %s: %w", name, err)
		}
	}

	return nil
}

// startEventLoop opens a persistent IPC connection and starts translating the
// newline-delimited event stream into Event values on the engine's channel.
func (m *MPV) startEventLoop() error {
	conn, err := net.Dial("unix", m.socketPath)
	if err != nil {
		return err
	}

	m.eventConn = conn
	go m.readLoop(conn)
	return nil
}

// observeOn writes an observe_property registration on the persistent event
// connection. mpv delivers property-change notifications only to the client
// connection that registered the observer, and discards the observer when
// that connection closes, so registrations must never go over the one-shot
// command connections.
func (m *MPV) observeOn(name string, id int) error {
	payload, err := json.Marshal(ipcCommand{Command: []interface{}{"observe_property", id, name}})
	if err != nil {
		return err
	}

	m.evMu.Lock()
	defer m.evMu.Unlock()
	_, err = m.eventConn.Write(append(payload, '\n'))
	return err
}

// readLoop continuously reads events from the persistent mpv connection.
// mpv sends newline-delimited JSON objects when observed properties change
// or lifecycle events occur.
func (m *MPV) readLoop(conn net.Conn) {
	defer conn.Close()

	buf := make([]byte, 4096)
	var remainder []byte

	for {
		select {
		case <-m.stop:
			return
		case <-m.exited:
			return
		default:
		}

		if err := conn.SetReadDeadline(time.Now().Add(5 * time.Second)); err != nil {
			return
		}

		n, err := conn.Read(buf)
		if err != nil {
			if strings.Contains(err.Error(), "timeout") || strings.Contains(err.Error(), "deadline") {
				continue // timeout is normal, keep listening
			}
			// The socket dies with the process; the exited channel covers shutdown.
			log.Debugf("event stream read error: %v", err)
			return
		}

		data := append(remainder, buf[:n]...)
		remainder = nil

		lines := strings.Split(string(data), "\n")
		for i, line := range lines {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}

			// Last incomplete line goes to remainder for next read
			if i == len(lines)-1 && !strings.HasSuffix(string(data), "\n") {
				remainder = []byte(line)
				continue
			}

			m.dispatchEvent(line)
		}
	}
}

// dispatchEvent parses one event line and forwards it without blocking the
// read loop. A full channel drops the event; position updates are frequent
// and lossy-tolerant, and shutdown is signalled out of band.
func (m *MPV) dispatchEvent(line string) {
	var raw map[string]interface{}
	if err := json.Unmarshal([]byte(line), &raw); err != nil {
		return // responses to commands share the stream; skip non-events
	}

	name, ok := raw["event"].(string)
	if !ok {
		return
	}

	var ev Event
	switch name {
	case "property-change":
		prop, _ := raw["name"].(string)
		if prop == "" {
			return
		}
		ev = Event{Kind: EventPropertyChange, Name: prop, Data: raw["data"]}
	case "playback-restart":
		ev = Event{Kind: EventPlaybackRestart}
	case "shutdown":
		ev = Event{Kind: EventShutdown}
	default:
		ev = Event{Kind: EventOther, Name: name, Data: raw}
	}

	select {
	case m.events <- ev:
	default:
	}
}
