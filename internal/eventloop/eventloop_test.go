package eventloop

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/justweather/just-weather/internal/fetch"
)

func TestLoop_BridgeRoundTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"current":{"temperature_2m":3.2}}`))
	}))
	defer srv.Close()

	loop := New(5*time.Second, zap.NewNop())
	bridge := fetch.NewBridgeWithTimeout(loop, loop, 5*time.Second, zap.NewNop())

	body, err := bridge.Fetch(srv.URL)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if string(body) != `{"current":{"temperature_2m":3.2}}` {
		t.Fatalf("Fetch body = %s", body)
	}
}

func TestLoop_NonSuccessStatusIsTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	loop := New(5*time.Second, zap.NewNop())
	bridge := fetch.NewBridgeWithTimeout(loop, loop, 5*time.Second, zap.NewNop())

	if _, err := bridge.Fetch(srv.URL); !errors.Is(err, fetch.ErrTransport) {
		t.Fatalf("Fetch = %v, want ErrTransport", err)
	}
}

func TestLoop_ConnectionRefusedIsTransportError(t *testing.T) {
	loop := New(time.Second, zap.NewNop())
	bridge := fetch.NewBridgeWithTimeout(loop, loop, 5*time.Second, zap.NewNop())

	if _, err := bridge.Fetch("http://127.0.0.1:1/unreachable"); !errors.Is(err, fetch.ErrTransport) {
		t.Fatalf("Fetch = %v, want ErrTransport", err)
	}
}

func TestLoop_TickWithNothingPending(t *testing.T) {
	loop := New(time.Second, zap.NewNop())
	for i := 0; i < 100; i++ {
		loop.Tick(int64(i))
	}
}
