package session

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/thinplay-cli/thinplay/config"
	"github.com/thinplay-cli/thinplay/filesystem"
	"github.com/thinplay-cli/thinplay/log"
	"github.com/thinplay-cli/thinplay/player"
	"github.com/thinplay-cli/thinplay/report"
	"github.com/thinplay-cli/thinplay/util"
	"github.com/thinplay-cli/thinplay/where"
)

// ErrEngineSetup marks playback engine configuration failures. A half-configured
// engine has no safe degraded mode, so callers treat this class as fatal to the
// process.
var ErrEngineSetup = errors.New("playback engine setup failed")

const englishLangs = "en,eng,english"

// Session owns one run of the playback engine for one play request: the
// configuration snapshot, the resolved episodes, the viewing state table and
// the engine instance itself.
type Session struct {
	cfg  config.Snapshot
	req  Request
	sink report.Sink
	eng  player.Engine

	table   Table
	order   []string // resolved URLs, playlist order first, lazy entries appended
	current string
	state   State
	seekTo  float64

	playlistActive bool
	playlistPath   string
}

// New binds a configuration snapshot, a decoded request, a report sink and an
// engine instance into a runnable session.
func New(cfg config.Snapshot, req Request, sink report.Sink, eng player.Engine) *Session {
	return &Session{
		cfg:   cfg,
		req:   req,
		sink:  sink,
		eng:   eng,
		table: make(Table),
		state: Loading,
	}
}

// Run executes the session to completion and returns once the engine signals
// shutdown and all dirty viewing state has been handed to the report sink.
// It blocks for the whole playback and is expected to run on a dedicated
// goroutine. Errors wrapping ErrEngineSetup are fatal to the process.
func (s *Session) Run() error {
	if err := s.resolve(); err != nil {
		return err
	}

	if s.playlistActive {
		if err := s.writePlaylist(); err != nil {
			return err
		}
		defer s.removePlaylist()
	}

	if err := s.configure(); err != nil {
		return err
	}
	defer util.Ignore(s.eng.Terminate)

	// The first episode is being watched right now; tell the server without
	// holding up playback start.
	s.markWatching(s.entry(s.current))

	if err := s.load(); err != nil {
		return err
	}

	s.loop()
	s.flush()

	log.Infof("playback session for %q closed", s.req.Title)
	return nil
}

// resolve seeds the viewing state table: one entry per sibling episode in
// playlist mode, otherwise a single entry for the requested episode. A request
// whose watch-state map lacks a resolved episode is malformed and rejected.
func (s *Session) resolve() error {
	s.playlistActive = s.cfg.Playlist && len(s.req.Playlist) > 0

	for _, episode := range s.req.episodes(s.playlistActive) {
		info, ok := s.req.watchState(episode).Get()
		if !ok {
			return fmt.Errorf("play payload missing watch info for season %s episode %s",
				s.req.Season, episode)
		}

		url := MediaURL(s.cfg.URL, s.req.MediaEndpoint, s.req.DBID, s.req.Season, episode)
		s.table.Seed(url, EpisodeEndpoint(s.req.DBID, s.req.Season, episode), info)
		s.order = append(s.order, url)
	}

	// The cursor starts on the requested episode even mid-playlist; if the
	// engine begins elsewhere the first path event corrects it.
	s.current = MediaURL(s.cfg.URL, s.req.MediaEndpoint, s.req.DBID, s.req.Season, s.req.Episode)

	log.Infof("session tracks %s", util.Quantify(len(s.table), "episode", "episodes"))
	return nil
}

// writePlaylist materializes the ordered playlist resource the engine consumes,
// one URL per line.
func (s *Session) writePlaylist() error {
	s.playlistPath = filepath.Join(where.Temp(),
		fmt.Sprintf("playlist_%d.m3u", time.Now().UnixMicro()))

	var b strings.Builder
	for _, url := range s.order {
		b.WriteString(url)
		b.WriteByte('\n')
	}

	if err := filesystem.API().WriteFile(s.playlistPath, []byte(b.String()), 0644); err != nil {
		return fmt.Errorf("write playlist file: %w", err)
	}
	return nil
}

// removePlaylist deletes the transient playlist resource, success or failure.
func (s *Session) removePlaylist() {
	if s.playlistPath == "" {
		return
	}
	if err := util.Delete(s.playlistPath); err != nil {
		log.Warnf("remove playlist file: %v", err)
	}
}

// configure applies the snapshot to the engine and initializes it. Every call
// here is required setup; any failure poisons the engine.
func (s *Session) configure() error {
	start := s.entry(s.current)

	options := [][2]string{
		{"input-default-bindings", "yes"},
		{"input-vo-keyboard", "yes"},
		{"osc", "yes"},
		{"start", strconv.Itoa(int(start.Position))},
	}
	if title := player.SanitizeTitle(s.req.Title); title != "" {
		options = append(options, [2]string{"force-media-title", title})
	}
	if s.cfg.Fullscreen {
		options = append(options, [2]string{"fullscreen", "yes"})
	}
	if s.cfg.EnglishAudio {
		options = append(options, [2]string{"alang", englishLangs})
	}
	if s.cfg.EnglishSubs {
		options = append(options, [2]string{"slang", englishLangs})
	}
	if s.cfg.DemuxerMaxMB > 0 {
		size := fmt.Sprintf("%dM", s.cfg.DemuxerMaxMB)
		options = append(options,
			[2]string{"demuxer-max-bytes", size},
			[2]string{"demuxer-max-back-bytes", size})
	}

	for _, opt := range options {
		if err := s.eng.SetOption(opt[0], opt[1]); err != nil {
			return fmt.Errorf("%w: option %s: %v", ErrEngineSetup, opt[0], err)
		}
	}

	if err := s.eng.ObserveProperty("playback-time"); err != nil {
		return fmt.Errorf("%w: observe playback-time: %v", ErrEngineSetup, err)
	}
	if s.playlistActive {
		if err := s.eng.ObserveProperty("path"); err != nil {
			return fmt.Errorf("%w: observe path: %v", ErrEngineSetup, err)
		}
	}

	if err := s.eng.Initialize(); err != nil {
		return fmt.Errorf("%w: initialize: %v", ErrEngineSetup, err)
	}

	return nil
}

// load points the initialized engine at the playlist resource or the single
// episode URL.
func (s *Session) load() error {
	var err error
	if s.playlistActive {
		err = s.eng.LoadList(s.playlistPath)
	} else {
		err = s.eng.Load(s.current)
	}
	if err != nil {
		return fmt.Errorf("%w: load: %v", ErrEngineSetup, err)
	}
	return nil
}

// loop drives the state machine until shutdown. The bounded wait keeps the
// session responsive to real events without blocking forever on a wedged
// engine; an elapsed wait simply polls again.
func (s *Session) loop() {
	for s.state != ShuttingDown {
		ev := s.eng.WaitEvent(s.cfg.EventTimeout)
		if ev.Kind == player.EventNone {
			continue
		}
		s.state = s.dispatch(ev)
	}
}

// entry resolves the viewing state for a URL, registering first-seen URLs in
// the flush order.
func (s *Session) entry(url string) *Entry {
	if e, ok := s.table[url]; ok {
		return e
	}
	e := s.table.Ensure(url, endpointOf(url))
	s.order = append(s.order, url)
	return e
}

// markWatching records that an episode became the one on screen: flag it
// watched and fire the immediate now-watching report. The report flushes the
// watched change right away, so the entry is not marked dirty for it.
func (s *Session) markWatching(e *Entry) {
	e.Watched = true
	e.watchedReported = true

	s.sink.Submit(report.Task{
		Kind:     report.Watched,
		Endpoint: e.Endpoint,
		BaseURL:  s.cfg.URL,
		APIKey:   s.cfg.APIKey,
	})
}

// flush hands every dirty entry's position to the report sink, plus a watched
// report for any entry whose flag changed without having been reported yet.
// Field values are copied into the tasks; the detached calls never touch the
// table.
func (s *Session) flush() {
	for _, url := range s.order {
		e := s.table[url]

		if e.Dirty {
			s.sink.Submit(report.Task{
				Kind:     report.Position,
				Endpoint: e.Endpoint,
				Position: e.Position,
				BaseURL:  s.cfg.URL,
				APIKey:   s.cfg.APIKey,
			})
		}

		if e.Watched != e.seedWatched && !e.watchedReported {
			s.sink.Submit(report.Task{
				Kind:     report.Watched,
				Endpoint: e.Endpoint,
				BaseURL:  s.cfg.URL,
				APIKey:   s.cfg.APIKey,
			})
		}
	}
}
