package session

import (
	"errors"
	"fmt"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/thinplay-cli/thinplay/config"
	"github.com/thinplay-cli/thinplay/filesystem"
	"github.com/thinplay-cli/thinplay/player"
	"github.com/thinplay-cli/thinplay/report"
)

func init() {
	filesystem.SetMemMapFs()
}

// fakeEngine scripts a sequence of events and records every engine call.
type fakeEngine struct {
	options  map[string]string
	observed []string
	events   []player.Event
	next     int

	initialized bool
	terminated  bool
	loaded      string
	listPath    string
	listContent string
	propsSet    map[string]interface{}

	optionErr error
	initErr   error
}

func newFakeEngine(events ...player.Event) *fakeEngine {
	return &fakeEngine{
		options:  make(map[string]string),
		propsSet: make(map[string]interface{}),
		events:   events,
	}
}

func (f *fakeEngine) SetOption(name, value string) error {
	if f.optionErr != nil {
		return f.optionErr
	}
	f.options[name] = value
	return nil
}

func (f *fakeEngine) ObserveProperty(name string) error {
	f.observed = append(f.observed, name)
	return nil
}

func (f *fakeEngine) Initialize() error {
	if f.initErr != nil {
		return f.initErr
	}
	f.initialized = true
	return nil
}

func (f *fakeEngine) Load(target string) error {
	f.loaded = target
	return nil
}

func (f *fakeEngine) LoadList(path string) error {
	f.listPath = path
	content, err := filesystem.API().ReadFile(path)
	if err != nil {
		return err
	}
	f.listContent = string(content)
	return nil
}

func (f *fakeEngine) WaitEvent(time.Duration) player.Event {
	if f.next < len(f.events) {
		ev := f.events[f.next]
		f.next++
		return ev
	}
	return player.Event{Kind: player.EventShutdown}
}

func (f *fakeEngine) GetProperty(string) (interface{}, error) { return nil, nil }

func (f *fakeEngine) SetProperty(name string, value interface{}) error {
	f.propsSet[name] = value
	return nil
}

func (f *fakeEngine) Command(...interface{}) error { return nil }

func (f *fakeEngine) Terminate() error {
	f.terminated = true
	return nil
}

// recordingSink collects submitted report tasks.
type recordingSink struct {
	tasks []report.Task
}

func (r *recordingSink) Submit(t report.Task) {
	r.tasks = append(r.tasks, t)
}

func (r *recordingSink) ofKind(k report.Kind) []report.Task {
	var out []report.Task
	for _, t := range r.tasks {
		if t.Kind == k {
			out = append(out, t)
		}
	}
	return out
}

func snapshot(playlist bool) config.Snapshot {
	return config.Snapshot{
		URL:          "http://media.local:8000",
		APIKey:       "k3y",
		Playlist:     playlist,
		EventTimeout: 10 * time.Millisecond,
	}
}

func singleRequest() Request {
	return Request{
		Title:         "Ep1",
		MediaEndpoint: "stream",
		Season:        "1",
		Episode:       "1",
		DBID:          "42",
		WatchInfo: map[string]map[string]WatchInfo{
			"1": {"1": {Playback: 120, Watched: false}},
		},
	}
}

func playlistRequest() Request {
	return Request{
		Title:         "Show S2",
		MediaEndpoint: "stream",
		Season:        "2",
		Episode:       "1",
		DBID:          "7",
		Playlist:      []string{"1", "2"},
		WatchInfo: map[string]map[string]WatchInfo{
			"2": {
				"1": {Playback: 0, Watched: false},
				"2": {Playback: 7, Watched: false},
			},
		},
	}
}

func TestDecodeRequest(t *testing.T) {
	Convey("DecodeRequest", t, func() {
		Convey("Should decode a valid play payload", func() {
			payload := `{"title":"Ep1","get_media_endpoint":"stream","season":"1","episode":"1","db_id":"42",` +
				`"playlist":[],"watch_info":{"1":{"1":{"playback":120,"watched":false}}}}`

			req, err := DecodeRequest([]byte(payload))
			So(err, ShouldBeNil)
			So(req.Title, ShouldEqual, "Ep1")
			So(req.MediaEndpoint, ShouldEqual, "stream")
			So(req.DBID, ShouldEqual, "42")
			So(req.Playlist, ShouldBeEmpty)
			So(req.WatchInfo["1"]["1"].Playback, ShouldEqual, 120)
		})

		Convey("Should reject malformed JSON", func() {
			_, err := DecodeRequest([]byte(`{"title":`))
			So(err, ShouldNotBeNil)
		})

		Convey("Should reject payloads missing required fields", func() {
			_, err := DecodeRequest([]byte(`{"title":"x","season":"1","episode":"1","db_id":"42"}`))
			So(err, ShouldNotBeNil)

			_, err = DecodeRequest([]byte(`{"title":"x","get_media_endpoint":"stream","season":"1","episode":"1"}`))
			So(err, ShouldNotBeNil)
		})
	})
}

func TestURLBuilding(t *testing.T) {
	Convey("URL helpers", t, func() {
		So(EpisodeEndpoint("42", "1", "3"), ShouldEqual, "id=42&season=1&episode=3")
		So(MediaURL("http://h:8000", "stream", "42", "1", "3"),
			ShouldEqual, "http://h:8000/stream?id=42&season=1&episode=3")
	})
}

func TestSingleItemSession(t *testing.T) {
	Convey("Given a single-item play request", t, func() {
		sink := &recordingSink{}
		wantURL := "http://media.local:8000/stream?id=42&season=1&episode=1"

		Convey("When playback ends without any position report", func() {
			eng := newFakeEngine() // immediate shutdown
			s := New(snapshot(false), singleRequest(), sink, eng)
			So(s.Run(), ShouldBeNil)

			Convey("The table should hold exactly one entry seeded from the server state", func() {
				So(s.table, ShouldHaveLength, 1)
				e := s.table[wantURL]
				So(e, ShouldNotBeNil)
				So(e.Position, ShouldEqual, 120)
				So(e.Endpoint, ShouldEqual, "id=42&season=1&episode=1")
			})

			Convey("The engine should start at the seeded offset", func() {
				So(eng.options["start"], ShouldEqual, "120")
				So(eng.loaded, ShouldEqual, wantURL)
				So(eng.observed, ShouldResemble, []string{"playback-time"})
				So(eng.terminated, ShouldBeTrue)
			})

			Convey("Exactly one now-watching report and no position flush should be issued", func() {
				So(sink.ofKind(report.Watched), ShouldHaveLength, 1)
				So(sink.ofKind(report.Watched)[0].Endpoint, ShouldEqual, "id=42&season=1&episode=1")
				So(sink.ofKind(report.Position), ShouldBeEmpty)
			})
		})

		Convey("When the engine reports position changes before shutdown", func() {
			eng := newFakeEngine(
				player.Event{Kind: player.EventPropertyChange, Name: "playback-time", Data: 121.0},
				player.Event{Kind: player.EventPropertyChange, Name: "playback-time", Data: 150.4},
			)
			s := New(snapshot(false), singleRequest(), sink, eng)
			So(s.Run(), ShouldBeNil)

			Convey("The flush should carry the last observed position", func() {
				positions := sink.ofKind(report.Position)
				So(positions, ShouldHaveLength, 1)
				So(positions[0].Position, ShouldEqual, 150.4)
				So(positions[0].Endpoint, ShouldEqual, "id=42&season=1&episode=1")
			})
		})
	})
}

func TestPlaylistSession(t *testing.T) {
	Convey("Given a playlist play request with two episodes", t, func() {
		sink := &recordingSink{}
		ep1 := "http://media.local:8000/stream?id=7&season=2&episode=1"
		ep2 := "http://media.local:8000/stream?id=7&season=2&episode=2"

		eng := newFakeEngine(
			player.Event{Kind: player.EventPropertyChange, Name: "playback-time", Data: 12.0},
			player.Event{Kind: player.EventPropertyChange, Name: "playback-time", Data: 30.0},
			player.Event{Kind: player.EventPropertyChange, Name: "path", Data: ep2},
			player.Event{Kind: player.EventPlaybackRestart},
			player.Event{Kind: player.EventPropertyChange, Name: "playback-time", Data: 7.5},
			player.Event{Kind: player.EventPropertyChange, Name: "playback-time", Data: 45.0},
		)

		s := New(snapshot(true), playlistRequest(), sink, eng)
		So(s.Run(), ShouldBeNil)

		Convey("Both episodes should be seeded before playback", func() {
			So(s.table, ShouldHaveLength, 2)
			So(eng.observed, ShouldResemble, []string{"playback-time", "path"})
		})

		Convey("The playlist file should list both URLs in order and be removed afterwards", func() {
			So(eng.listContent, ShouldEqual, ep1+"\n"+ep2+"\n")
			exists, err := filesystem.API().Exists(eng.listPath)
			So(err, ShouldBeNil)
			So(exists, ShouldBeFalse)
		})

		Convey("The leaving episode should keep its accumulated position", func() {
			So(s.table[ep1].Position, ShouldEqual, 30.0)
			So(s.table[ep1].Dirty, ShouldBeTrue)
		})

		Convey("The transition should seek back to the new episode's saved position", func() {
			So(eng.propsSet["time-pos"], ShouldEqual, 7.0)
			So(s.table[ep2].Position, ShouldEqual, 45.0)
		})

		Convey("Reports: one watching per played episode, one position per dirty entry", func() {
			watched := sink.ofKind(report.Watched)
			So(watched, ShouldHaveLength, 2)
			So(watched[0].Endpoint, ShouldEqual, "id=7&season=2&episode=1")
			So(watched[1].Endpoint, ShouldEqual, "id=7&season=2&episode=2")

			positions := sink.ofKind(report.Position)
			So(positions, ShouldHaveLength, 2)
			So(positions[0].Endpoint, ShouldEqual, "id=7&season=2&episode=1")
			So(positions[0].Position, ShouldEqual, 30.0)
			So(positions[1].Endpoint, ShouldEqual, "id=7&season=2&episode=2")
			So(positions[1].Position, ShouldEqual, 45.0)
		})
	})
}

func TestSessionFailures(t *testing.T) {
	Convey("Session failure classes", t, func() {
		sink := &recordingSink{}

		Convey("Missing watch info should reject the request before the engine starts", func() {
			req := playlistRequest()
			delete(req.WatchInfo["2"], "2")

			eng := newFakeEngine()
			err := New(snapshot(true), req, sink, eng).Run()
			So(err, ShouldNotBeNil)
			So(errors.Is(err, ErrEngineSetup), ShouldBeFalse)
			So(eng.initialized, ShouldBeFalse)
		})

		Convey("Engine option failures should be marked as fatal setup errors", func() {
			eng := newFakeEngine()
			eng.optionErr = fmt.Errorf("bad option")

			err := New(snapshot(false), singleRequest(), sink, eng).Run()
			So(errors.Is(err, ErrEngineSetup), ShouldBeTrue)
		})

		Convey("Engine initialization failures should be marked as fatal setup errors", func() {
			eng := newFakeEngine()
			eng.initErr = fmt.Errorf("no display")

			err := New(snapshot(false), singleRequest(), sink, eng).Run()
			So(errors.Is(err, ErrEngineSetup), ShouldBeTrue)
		})
	})
}

func TestDispatchTransitions(t *testing.T) {
	Convey("Given a session state machine", t, func() {
		sink := &recordingSink{}
		s := New(snapshot(true), playlistRequest(), sink, newFakeEngine())
		So(s.resolve(), ShouldBeNil)

		Convey("A position update while loading should move to playing", func() {
			s.state = Loading
			next := s.dispatch(player.Event{Kind: player.EventPropertyChange, Name: "playback-time", Data: 1.0})
			So(next, ShouldEqual, Playing)
		})

		Convey("Shutdown should be terminal from any state", func() {
			for _, st := range []State{Loading, Playing, Seeking} {
				s.state = st
				So(s.dispatch(player.Event{Kind: player.EventShutdown}), ShouldEqual, ShuttingDown)
			}
		})

		Convey("A path event matching the current URL should not transition", func() {
			s.state = Playing
			next := s.dispatch(player.Event{Kind: player.EventPropertyChange, Name: "path", Data: s.current})
			So(next, ShouldEqual, Playing)
		})

		Convey("Unknown event kinds should leave the state unchanged", func() {
			s.state = Playing
			next := s.dispatch(player.Event{Kind: player.EventOther, Name: "end-file"})
			So(next, ShouldEqual, Playing)
		})

		Convey("A restart outside of seeking should not touch the engine", func() {
			s.state = Playing
			So(s.dispatch(player.Event{Kind: player.EventPlaybackRestart}), ShouldEqual, Playing)
		})
	})
}
