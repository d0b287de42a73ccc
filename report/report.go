// Package report implements fire-and-forget progress reporting to the media server.
//
// Reports are pushed onto a bounded queue serviced by a fixed pool of workers:
// submission never blocks the caller, and a failed call is logged and dropped.
// There is no retry and no ordering guarantee across items; per-item ordering is
// provided by the caller serializing state mutation before submitting.
package report

import (
	"fmt"
	"net/url"
)

// Kind discriminates the two outbound report calls.
type Kind int

const (
	// Position reports the playback position in whole seconds for one item.
	Position Kind = iota
	// Watched flags one item as watched.
	Watched
)

func (k Kind) String() string {
	if k == Watched {
		return "watched"
	}
	return "position"
}

// Task is one outbound report call. Endpoint is the item's report-endpoint
// descriptor, a pre-built query fragment identifying the item to the server.
type Task struct {
	Kind     Kind
	Endpoint string
	Position float64
	BaseURL  string
	APIKey   string
}

// URL renders the complete backend URL for the task.
func (t Task) URL() string {
	switch t.Kind {
	case Watched:
		return fmt.Sprintf("%s/set-watched?apikey=%s&%s&value=2",
			t.BaseURL, url.QueryEscape(t.APIKey), t.Endpoint)
	default:
		return fmt.Sprintf("%s/set-playback?apikey=%s&%s&value=%d",
			t.BaseURL, url.QueryEscape(t.APIKey), t.Endpoint, int(t.Position))
	}
}

// Sink accepts report tasks for asynchronous delivery. The production
// implementation is Dispatcher; tests substitute a recording sink.
type Sink interface {
	Submit(Task)
}
