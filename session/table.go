package session

// Entry is the mutable viewing state tracked for one episode, keyed by its
// resolved playback URL. Exactly one Entry exists per distinct URL within a
// session; the table is owned by that session and needs no locking. Detached
// report calls receive copies of the fields they need, never the Entry itself.
type Entry struct {
	// Position is the playback position in seconds, monotonically updated by
	// the engine's position reports.
	Position float64

	// Watched flags the episode as watched.
	Watched bool

	// Dirty marks state that changed since session start and has not yet been
	// flushed to the server. The initial seed alone never sets it.
	Dirty bool

	// Endpoint is the report-endpoint descriptor identifying this episode to
	// the server.
	Endpoint string

	seedWatched     bool
	watchedReported bool
}

// Table maps resolved playback URLs to their viewing state for the lifetime
// of one session.
type Table map[string]*Entry

// Seed creates the entry for a URL from server-supplied prior state. Seeding
// never marks the entry dirty.
func (t Table) Seed(url, endpoint string, info WatchInfo) *Entry {
	e := &Entry{
		Position:    float64(info.Playback),
		Watched:     info.Watched,
		Endpoint:    endpoint,
		seedWatched: info.Watched,
	}
	t[url] = e
	return e
}

// Ensure returns the entry for a URL, creating a zero-state one on first
// sight. Covers the non-playlist single item and engine-driven jumps into
// episodes the session was not told about.
func (t Table) Ensure(url, endpoint string) *Entry {
	if e, ok := t[url]; ok {
		return e
	}
	e := &Entry{Endpoint: endpoint}
	t[url] = e
	return e
}
