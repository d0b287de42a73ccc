package report

import (
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/sourcegraph/conc"
	"github.com/thinplay-cli/thinplay/constant"
	"github.com/thinplay-cli/thinplay/log"
)

const requestTimeout = 15 * time.Second

// Dispatcher services a bounded task queue with a fixed worker pool.
type Dispatcher struct {
	queue   chan Task
	workers conc.WaitGroup
	client  *http.Client

	mu     sync.Mutex
	closed bool
}

// NewDispatcher starts a dispatcher with the given pool size and queue depth.
func NewDispatcher(workers, depth int) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	if depth < 1 {
		depth = 1
	}

	d := &Dispatcher{
		queue:  make(chan Task, depth),
		client: &http.Client{Timeout: requestTimeout},
	}

	for i := 0; i < workers; i++ {
		d.workers.Go(d.work)
	}

	return d
}

// Submit enqueues a task without blocking. When the queue is full, or the
// dispatcher has been closed, the task is dropped and logged; progress reports
// are idempotent and the next report for the same item supersedes the lost one.
func (d *Dispatcher) Submit(t Task) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		log.Warnf("report dispatcher closed, dropping %s report for %q", t.Kind, t.Endpoint)
		return
	}

	select {
	case d.queue <- t:
	default:
		log.Warnf("report queue full, dropping %s report for %q", t.Kind, t.Endpoint)
	}
}

// Close drains the queue and stops the workers. Pending tasks are delivered
// before Close returns, which is what flushing at session end relies on.
// Closing twice is a no-op.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	d.workers.Wait()
}

func (d *Dispatcher) work() {
	for t := range d.queue {
		d.perform(t)
	}
}

func (d *Dispatcher) perform(t Task) {
	req, err := http.NewRequest(http.MethodGet, t.URL(), nil)
	if err != nil {
		log.Warnf("build %s report: %v", t.Kind, err)
		return
	}
	req.Header.Set("User-Agent", constant.UserAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		log.Warnf("%s report for %q failed: %v", t.Kind, t.Endpoint, err)
		return
	}
	defer resp.Body.Close()

	// The response body carries nothing the client needs.
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= http.StatusBadRequest {
		log.Warnf("%s report for %q rejected with status %d", t.Kind, t.Endpoint, resp.StatusCode)
	}
}
