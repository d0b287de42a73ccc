package player

import (
	"crypto/rand"
	"fmt"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/thinplay-cli/thinplay/log"
)

const (
	socketWaitRetries = 10
	socketWaitDelay   = 300 * time.Millisecond
	eventBufferSize   = 64
)

// MPV implements the Engine interface by launching an mpv process and driving
// it over its JSON-IPC socket.
type MPV struct {
	socketPath string
	cmd        *exec.Cmd

	options  []string // accumulated --name=value args, consumed by Initialize
	observed []string // property names registered before Initialize

	events chan Event
	exited chan struct{} // closed when the mpv process exits
	stop   chan struct{} // signals the event read loop to stop

	eventConn net.Conn   // persistent stream carrying events and observer registrations
	evMu      sync.Mutex // serializes writes on eventConn

	mu sync.Mutex // protects one-shot IPC command writes
}

// NewMPV creates an engine instance. Nothing is launched until Initialize.
func NewMPV() *MPV {
	return &MPV{
		events: make(chan Event, eventBufferSize),
		exited: make(chan struct{}),
		stop:   make(chan struct{}),
	}
}

// SetOption records a command-line option applied when the process starts.
func (m *MPV) SetOption(name, value string) error {
	if name == "" {
		return fmt.Errorf("empty option name")
	}
	m.options = append(m.options, fmt.Sprintf("--%s=%s", name, value))
	return nil
}

// ObserveProperty registers a property for change notifications. Registrations
// made before Initialize are subscribed once the event stream is up.
func (m *MPV) ObserveProperty(name string) error {
	m.observed = append(m.observed, name)
	if m.eventConn == nil {
		return nil
	}
	return m.observeOn(name, len(m.observed))
}

// Initialize launches mpv with the accumulated options, waits for its IPC
// socket, opens the persistent event stream and registers the observed
// properties on it.
func (m *MPV) Initialize() error {
	randomBytes := make([]byte, 4)
	if _, err := rand.Read(randomBytes); err != nil {
		return fmt.Errorf("generate socket name: %w", err)
	}
	// os.TempDir rather than /tmp: macOS $TMPDIR lives under /var/folders.
	m.socketPath = filepath.Join(os.TempDir(), fmt.Sprintf("thinplay-%x.sock", randomBytes))

	args := []string{
		"--no-terminal",
		"--really-quiet",
		"--idle=yes",
		"--force-window=yes",
		fmt.Sprintf("--input-ipc-server=%s", m.socketPath),
	}
	args = append(args, m.options...)

	m.cmd = exec.Command("mpv", args...)
	m.cmd.SysProcAttr = sysProcAttr()
	m.cmd.Stdout = nil
	m.cmd.Stderr = nil
	m.cmd.Stdin = nil

	if err := m.cmd.Start(); err != nil {
		return fmt.Errorf("start mpv: %w", err)
	}

	// Reap the process so it never lingers as a zombie.
	go func() {
		_ = m.cmd.Wait()
		close(m.exited)
	}()

	if err := m.waitForSocket(); err != nil {
		select {
		case <-m.exited:
		default:
			log.Warnf("killing mpv: socket never became ready")
			_ = killProcess(m.cmd)
		}
		return fmt.Errorf("mpv socket not ready: %w", err)
	}

	return m.connectEvents()
}

// waitForSocket polls until the mpv IPC socket is accepting connections.
func (m *MPV) waitForSocket() error {
	for i := 0; i < socketWaitRetries; i++ {
		time.Sleep(socketWaitDelay)

		select {
		case <-m.exited:
			return fmt.Errorf("mpv exited before socket was ready")
		default:
		}

		conn, err := net.Dial("unix", m.socketPath)
		if err == nil {
			conn.Close()
			return nil
		}
	}
	return fmt.Errorf("socket %s not ready after %d attempts", m.socketPath, socketWaitRetries)
}

// Load starts playback of a single target.
func (m *MPV) Load(target string) error {
	safe, err := sanitizeMediaTarget(target)
	if err != nil {
		return fmt.Errorf("invalid media target: %w", err)
	}
	return m.Command("loadfile", safe)
}

// LoadList starts playback of an ordered playlist file.
func (m *MPV) LoadList(path string) error {
	return m.Command("loadlist", path)
}

// WaitEvent returns the next engine event, an EventShutdown once the process
// is gone, or an EventNone event after the bounded wait elapses.
func (m *MPV) WaitEvent(timeout time.Duration) Event {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case ev := <-m.events:
		return ev
	case <-m.exited:
		return Event{Kind: EventShutdown}
	case <-timer.C:
		return Event{Kind: EventNone}
	}
}

// GetProperty retrieves a property value over IPC.
func (m *MPV) GetProperty(name string) (interface{}, error) {
	return m.sendCommand([]interface{}{"get_property", name})
}

// SetProperty assigns a property value over IPC.
func (m *MPV) SetProperty(name string, value interface{}) error {
	_, err := m.sendCommand([]interface{}{"set_property", name, value})
	return err
}

// Command issues a raw mpv command over IPC.
func (m *MPV) Command(args ...interface{}) error {
	_, err := m.sendCommand(args)
	return err
}

// Terminate shuts the engine down: graceful quit via IPC, force kill after a
// grace period, then socket cleanup.
func (m *MPV) Terminate() error {
	select {
	case <-m.stop:
	default:
		close(m.stop)
	}

	if m.socketPath == "" {
		return nil
	}

	_, _ = m.sendCommand([]interface{}{"quit"})

	select {
	case <-m.exited:
	case <-time.After(3 * time.Second):
		_ = killProcess(m.cmd)
	}

	_ = os.Remove(m.socketPath)
	return nil
}

// Socket returns the IPC socket path.
func (m *MPV) Socket() string {
	return m.socketPath
}
