// Package player defines a unified abstraction layer for media playback engines.
// The primary implementation targets 'mpv' via its JSON-IPC interface.
package player

import "time"

// EventKind classifies notifications delivered by a playback engine.
type EventKind int

const (
	// EventNone indicates the bounded wait elapsed with no event. Not an error;
	// the caller simply polls again.
	EventNone EventKind = iota

	// EventPropertyChange carries an update for an observed property.
	EventPropertyChange

	// EventPlaybackRestart signals playback resumed after a load or seek.
	EventPlaybackRestart

	// EventShutdown signals the engine is gone; no further events will arrive.
	EventShutdown

	// EventOther wraps engine events the session does not react to.
	EventOther
)

// Event is one notification from the playback engine.
type Event struct {
	Kind EventKind

	// Name is the observed property name for EventPropertyChange, or the raw
	// engine event name for EventOther.
	Name string

	// Data is the property payload, when one was delivered.
	Data interface{}
}

// Engine encapsulates the capabilities a playback session requires from a
// media engine. Configuration calls (SetOption, ObserveProperty) precede
// Initialize; everything else requires an initialized engine.
type Engine interface {
	// SetOption records a startup option for the engine instance.
	SetOption(name, value string) error

	// ObserveProperty registers interest in change notifications for a property.
	ObserveProperty(name string) error

	// Initialize starts the engine with the accumulated options and begins
	// delivering events.
	Initialize() error

	// Load starts playback of a single target URL or file.
	Load(target string) error

	// LoadList starts playback of an ordered playlist file (one URL per line).
	LoadList(path string) error

	// WaitEvent blocks for up to timeout and returns the next event, or an
	// EventNone event if the timeout elapsed.
	WaitEvent(timeout time.Duration) Event

	// GetProperty retrieves the current value of a property.
	GetProperty(name string) (interface{}, error)

	// SetProperty assigns a value to a property.
	SetProperty(name string, value interface{}) error

	// Command issues a raw engine command.
	Command(args ...interface{}) error

	// Terminate shuts the engine down and releases all associated resources.
	Terminate() error
}
