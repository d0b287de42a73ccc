package report

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestTaskURL(t *testing.T) {
	Convey("Task URL rendering", t, func() {
		Convey("Position reports should target set-playback with truncated seconds", func() {
			task := Task{
				Kind:     Position,
				Endpoint: "id=42&season=1&episode=3",
				Position: 120.9,
				BaseURL:  "http://media.local:8000",
				APIKey:   "k3y",
			}
			So(task.URL(), ShouldEqual,
				"http://media.local:8000/set-playback?apikey=k3y&id=42&season=1&episode=3&value=120")
		})

		Convey("Watched reports should target set-watched with value=2", func() {
			task := Task{
				Kind:     Watched,
				Endpoint: "id=42&season=1&episode=3",
				BaseURL:  "http://media.local:8000",
				APIKey:   "k3y",
			}
			So(task.URL(), ShouldEqual,
				"http://media.local:8000/set-watched?apikey=k3y&id=42&season=1&episode=3&value=2")
		})

		Convey("API keys should be query-escaped", func() {
			task := Task{Kind: Watched, Endpoint: "id=1&season=1&episode=1", BaseURL: "http://h", APIKey: "a&b"}
			So(task.URL(), ShouldContainSubstring, "apikey=a%26b")
		})
	})
}

func TestDispatcher(t *testing.T) {
	Convey("Given a dispatcher and a fake backend", t, func() {
		var (
			mu       sync.Mutex
			received []string
		)
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			mu.Lock()
			received = append(received, r.URL.Path+"?"+r.URL.RawQuery)
			mu.Unlock()
		}))
		defer server.Close()

		Convey("Submitted tasks should reach the backend before Close returns", func() {
			d := NewDispatcher(2, 8)
			d.Submit(Task{Kind: Position, Endpoint: "id=7&season=2&episode=5", Position: 30, BaseURL: server.URL, APIKey: "k"})
			d.Submit(Task{Kind: Watched, Endpoint: "id=7&season=2&episode=5", BaseURL: server.URL, APIKey: "k"})
			d.Close()

			mu.Lock()
			defer mu.Unlock()
			So(received, ShouldHaveLength, 2)
			So(received, ShouldContain, "/set-playback?apikey=k&id=7&season=2&episode=5&value=30")
			So(received, ShouldContain, "/set-watched?apikey=k&id=7&season=2&episode=5&value=2")
		})

		Convey("An unreachable backend should neither block nor panic the caller", func() {
			d := NewDispatcher(1, 4)

			start := time.Now()
			d.Submit(Task{Kind: Position, Endpoint: "id=1&season=1&episode=1", BaseURL: "http://127.0.0.1:1", APIKey: "k"})
			So(time.Since(start), ShouldBeLessThan, time.Second)

			d.Close()
		})

		Convey("Submitting after Close should drop instead of panicking", func() {
			d := NewDispatcher(1, 4)
			d.Close()

			So(func() {
				d.Submit(Task{Kind: Position, Endpoint: "id=1&season=1&episode=1", BaseURL: server.URL, APIKey: "k"})
			}, ShouldNotPanic)

			Convey("And a second Close should be a no-op", func() {
				So(d.Close, ShouldNotPanic)
			})
		})

		Convey("A full queue should drop instead of blocking", func() {
			d := &Dispatcher{queue: make(chan Task, 1), client: http.DefaultClient}

			d.Submit(Task{Kind: Position, Endpoint: "a"})
			done := make(chan struct{})
			go func() {
				d.Submit(Task{Kind: Position, Endpoint: "b"})
				close(done)
			}()

			select {
			case <-done:
			case <-time.After(time.Second):
				t.Fatal("Submit blocked on a full queue")
			}
			So(len(d.queue), ShouldEqual, 1)
		})
	})
}
