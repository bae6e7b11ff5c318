// Package eventloop is the production implementation of the scheduler and
// async HTTP client the fetch bridge consumes. GetAsync runs the request on
// its own goroutine and queues the terminal event; Tick drains queued events
// and invokes their callbacks on the ticking goroutine, so callback delivery
// stays cooperative even though the transport work is not.
package eventloop

import (
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/justweather/just-weather/internal/fetch"
)

// Loop queues terminal HTTP events for delivery through Tick. Safe for
// concurrent submission from multiple request handlers.
type Loop struct {
	httpClient *http.Client
	logger     *zap.Logger

	mu    sync.Mutex
	ready []queuedEvent
}

type queuedEvent struct {
	ev fetch.Event
	fn func(fetch.Event)
}

// New returns a loop whose requests are bounded by timeout at the transport
// level; the bridge enforces its own wall clock on top.
func New(timeout time.Duration, logger *zap.Logger) *Loop {
	return &Loop{
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// GetAsync issues the GET on a new goroutine and queues exactly one terminal
// event for fn. Non-2xx statuses and transport failures both queue an error
// event; the resolvers do not distinguish them.
func (l *Loop) GetAsync(url string, timeoutMillis int64, fn func(fetch.Event)) {
	go func() {
		ev := l.perform(url, timeoutMillis)
		l.mu.Lock()
		l.ready = append(l.ready, queuedEvent{ev: ev, fn: fn})
		l.mu.Unlock()
	}()
}

// Tick delivers every event queued so far. Callable at high frequency; a
// tick with nothing pending does no work.
func (l *Loop) Tick(nowMillis int64) {
	l.mu.Lock()
	batch := l.ready
	l.ready = nil
	l.mu.Unlock()

	for _, q := range batch {
		q.fn(q.ev)
	}
}

func (l *Loop) perform(url string, timeoutMillis int64) fetch.Event {
	client := l.httpClient
	if timeoutMillis > 0 && time.Duration(timeoutMillis)*time.Millisecond < client.Timeout {
		c := *client
		c.Timeout = time.Duration(timeoutMillis) * time.Millisecond
		client = &c
	}

	resp, err := client.Get(url)
	if err != nil {
		l.logger.Debug("transport error", zap.String("url", url), zap.Error(err))
		return fetch.Event{Kind: fetch.EventError}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		l.logger.Debug("read body failed", zap.String("url", url), zap.Error(err))
		return fetch.Event{Kind: fetch.EventError}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		l.logger.Debug("upstream status", zap.String("url", url), zap.String("status", fmt.Sprintf("%d", resp.StatusCode)))
		return fetch.Event{Kind: fetch.EventError}
	}
	return fetch.Event{Kind: fetch.EventResponse, Body: body}
}
