package log

import (
	"sync"
	"time"

	logrus "github.com/sirupsen/logrus"
)

// RingCapacity bounds the number of recent log entries retained for display.
const RingCapacity = 200

var ring = struct {
	mu      sync.Mutex
	entries []string
}{}

// AddRecent inserts a message at the front of the recent-entry ring,
// evicting the oldest entry once the capacity is reached.
func AddRecent(message string) {
	ring.mu.Lock()
	defer ring.mu.Unlock()

	ring.entries = append([]string{message}, ring.entries...)
	if len(ring.entries) > RingCapacity {
		ring.entries = ring.entries[:RingCapacity]
	}
}

// Recent returns a copy of the retained entries, newest first.
func Recent() []string {
	ring.mu.Lock()
	defer ring.mu.Unlock()

	out := make([]string, len(ring.entries))
	copy(out, ring.entries)
	return out
}

// ringHook mirrors every emitted logrus entry into the recent-entry ring,
// regardless of whether file persistence is enabled.
type ringHook struct{}

func (ringHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (ringHook) Fire(entry *logrus.Entry) error {
	AddRecent(entry.Time.Format(time.TimeOnly) + " " + entry.Message)
	return nil
}
