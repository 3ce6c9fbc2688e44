package disconnect

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

type fakeSignaler struct {
	fired atomic.Bool
}

func (f *fakeSignaler) SetDisconnected() { f.fired.Store(true) }

func TestWatchHTTPFiresOnDeath(t *testing.T) {
	stop := make(chan struct{})
	defer close(stop)

	var alive atomic.Bool
	alive.Store(true)
	sig := &fakeSignaler{}

	go WatchHTTP(stop, 5*time.Millisecond, func() bool { return alive.Load() }, sig)

	time.Sleep(20 * time.Millisecond)
	if sig.fired.Load() {
		t.Fatalf("watcher fired while still alive")
	}

	alive.Store(false)
	time.Sleep(30 * time.Millisecond)
	if !sig.fired.Load() {
		t.Fatalf("expected watcher to fire after liveness check failed")
	}
}

func TestWatchHTTPStopsSilentlyOnHandlerFinished(t *testing.T) {
	stop := make(chan struct{})
	sig := &fakeSignaler{}

	done := make(chan struct{})
	go func() {
		WatchHTTP(stop, 5*time.Millisecond, func() bool { return true }, sig)
		close(done)
	}()

	close(stop)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("expected watcher goroutine to exit after stop was closed")
	}
	if sig.fired.Load() {
		t.Fatalf("watcher must not signal disconnect on normal completion")
	}
}

// TestWatchHTTPDistinguishesRequestDoneFromClientGone drives the real
// wiring directly: a request Context that is canceled (as net/http
// cancels it both on handler return and on client disconnect) must
// still only signal disconnect via the liveness check, never merely
// because some Context tied to the request was canceled.
func TestWatchHTTPDistinguishesRequestDoneFromClientGone(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	ctx, cancel := context.WithCancel(req.Context())
	req = req.WithContext(ctx)

	stop := make(chan struct{})
	sig := &fakeSignaler{}
	done := make(chan struct{})
	go func() {
		WatchHTTP(stop, 5*time.Millisecond, func() bool { return IsRequestAlive(req) }, sig)
		close(done)
	}()

	// The request's Context is canceled the same way a real client
	// disconnect would cancel it, but stop is NOT closed (the handler
	// is still running) — the watcher must notice via the next
	// liveness poll and signal disconnect, not return silently.
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("expected watcher to notice the dead request and exit")
	}
	if !sig.fired.Load() {
		t.Fatalf("expected watcher to signal disconnect when the request context died independently of stop")
	}
}

func TestIsRequestAliveReflectsContext(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if !IsRequestAlive(req) {
		t.Fatalf("expected freshly built request to report alive")
	}

	ctx, cancel := context.WithCancel(req.Context())
	req = req.WithContext(ctx)
	cancel()
	if IsRequestAlive(req) {
		t.Fatalf("expected canceled request context to report not alive")
	}
}

func TestConnectionWatcherFansOutToAllTracked(t *testing.T) {
	w := NewConnectionWatcher()
	a, b := &fakeSignaler{}, &fakeSignaler{}
	w.Track(a)
	w.Track(b)

	w.Disconnect()

	if !a.fired.Load() || !b.fired.Load() {
		t.Fatalf("expected both tracked signalers to fire")
	}
}
