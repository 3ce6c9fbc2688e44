// Package disconnect implements the Disconnect Watcher (§4.4): detecting
// a client going away and signaling every Event Box associated with that
// connection, without interrupting a worker mid-inference.
package disconnect

import (
	"net/http"
	"time"
)

// DefaultPollInterval is the default HTTP liveness polling period.
const DefaultPollInterval = time.Second

// Signaler is the subset of eventbox.EventBox the watcher needs: fire
// the disconnect signal exactly once. Decoupled from the concrete type
// so both HTTP and websocket watchers can drive arbitrary listeners
// (a single EventBox, or a connection-scoped fan-out).
type Signaler interface {
	SetDisconnected()
}

// WatchHTTP polls isAlive every interval until either it reports false
// (notify sig and stop) or stop is closed (the handler finished
// normally; return silently). It is meant to run in its own goroutine
// for the lifetime of one unary HTTP request.
//
// stop must be a channel the caller owns and closes only when the
// handler itself is done — never the request's own Context.Done(),
// which net/http closes both when the client disconnects *and* when
// the handler returns, making "finished normally" and "client gone"
// indistinguishable if stop and the liveness check shared that signal.
// isAlive is the sole source of truth for "did the client go away"; it
// typically checks http.ResponseController or the request context's
// underlying connection. Workers are not interrupted by this signal
// (§4.4) — they only consult it at dequeue time and, optionally, just
// before returning a result.
func WatchHTTP(stop <-chan struct{}, interval time.Duration, isAlive func() bool, sig Signaler) {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if !isAlive() {
				sig.SetDisconnected()
				return
			}
		}
	}
}

// IsRequestAlive reports whether r's underlying connection is still
// open. net/http cancels a request's Context as soon as the server
// detects the client connection has gone away, which is the cheapest
// reliable liveness probe available without touching the connection
// directly.
func IsRequestAlive(r *http.Request) bool {
	select {
	case <-r.Context().Done():
		return false
	default:
		return true
	}
}

// ConnectionWatcher is the websocket variant: one flip, shared by every
// Event Box created for requests on that connection (§4.4 "a single
// connection-scoped event shared by every in-flight Event Box").
type ConnectionWatcher struct {
	signalers []Signaler
}

// NewConnectionWatcher creates an empty watcher for one websocket
// connection.
func NewConnectionWatcher() *ConnectionWatcher {
	return &ConnectionWatcher{}
}

// Track registers sig to receive the connection's disconnect signal.
// A Signaler tracked after Disconnect has already run is not signaled.
func (w *ConnectionWatcher) Track(sig Signaler) {
	w.signalers = append(w.signalers, sig)
}

// Disconnect fires the signal on every tracked Signaler. Called once,
// from the receive loop, the moment it observes a close/read error.
func (w *ConnectionWatcher) Disconnect() {
	for _, sig := range w.signalers {
		sig.SetDisconnected()
	}
}
