// Package fetch adapts an async, callback-driven HTTP client owned by a
// cooperative scheduler into a plain blocking call. The bridge drives the
// scheduler itself: it busy-polls the tick function until the callback for
// its own request fires or a wall-clock timeout elapses.
package fetch

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Default upper bound on how long a single fetch may occupy the caller.
const DefaultTimeout = 30 * time.Second

// ErrTimeout is returned when the callback never fires within the wall-clock
// budget. The in-flight request may still complete later; its late callback
// is discarded.
var ErrTimeout = errors.New("fetch timed out")

// ErrTransport is returned when the transport itself reports a terminal
// error or timeout event.
var ErrTransport = errors.New("fetch transport error")

// EventKind is the terminal outcome the async client delivers for a request.
type EventKind int

const (
	EventResponse EventKind = iota
	EventError
	EventTimeout
)

// Event is the single terminal event delivered per GetAsync call.
type Event struct {
	Kind EventKind
	Body []byte
}

// Scheduler advances pending I/O by one step. Tick must be callable at high
// frequency with no side effects beyond servicing pending work.
type Scheduler interface {
	Tick(nowMillis int64)
}

// AsyncClient submits an HTTP GET whose terminal event is delivered to fn
// exactly once, possibly from within a Tick call.
type AsyncClient interface {
	GetAsync(url string, timeoutMillis int64, fn func(Event))
}

// Bridge exposes a blocking Fetch over the scheduler/async-client pair.
// Each call registers its own completion slot, so concurrent fetches from
// multiple request handlers are safe; a callback arriving after its call
// timed out finds a dead slot and is ignored.
type Bridge struct {
	sched   Scheduler
	client  AsyncClient
	timeout time.Duration
	logger  *zap.Logger
}

// NewBridge returns a bridge with the default 30 s wall-clock budget.
func NewBridge(sched Scheduler, client AsyncClient, logger *zap.Logger) *Bridge {
	return &Bridge{sched: sched, client: client, timeout: DefaultTimeout, logger: logger}
}

// NewBridgeWithTimeout is NewBridge with an explicit wall-clock budget,
// used by tests to avoid real 30 s waits.
func NewBridgeWithTimeout(sched Scheduler, client AsyncClient, timeout time.Duration, logger *zap.Logger) *Bridge {
	return &Bridge{sched: sched, client: client, timeout: timeout, logger: logger}
}

// Fetch blocks the caller until the response for url arrives or the budget
// elapses, advancing the scheduler in a poll loop the whole time. Transport
// errors and transport-reported timeouts both surface as ErrTransport;
// a silent callback surfaces as ErrTimeout.
func (b *Bridge) Fetch(url string) ([]byte, error) {
	// Buffered so a callback fired from inside Tick never blocks, and a
	// late callback after timeout lands in a slot nobody reads.
	done := make(chan Event, 1)
	b.client.GetAsync(url, b.timeout.Milliseconds(), func(ev Event) {
		select {
		case done <- ev:
		default:
		}
	})

	start := time.Now()
	for {
		b.sched.Tick(time.Now().UnixMilli())

		select {
		case ev := <-done:
			switch ev.Kind {
			case EventResponse:
				return ev.Body, nil
			default:
				return nil, fmt.Errorf("%w: %s", ErrTransport, url)
			}
		default:
		}

		if time.Since(start) > b.timeout {
			b.logger.Warn("timed out waiting for response", zap.String("url", url))
			return nil, fmt.Errorf("%w: %s", ErrTimeout, url)
		}
	}
}
