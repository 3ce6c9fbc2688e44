// Package eventbox implements the per-request synchronization object that
// carries a worker's result, error, and disconnect signal back to the
// request handler that is waiting on it (§3 Event Box, §4.3).
package eventbox

import (
	"context"
	"sync"

	"github.com/webis-de/llmserve/pkg/envelope"
)

// State is the terminal (or pending) state of an EventBox.
type State int

const (
	Pending State = iota
	Done
	UserError
	ApplicationError
	Disconnected
)

// EventBox is safe for single-writer (the worker that completes it) /
// single-waiter (the handler reading it) use; extra waiters are not
// supported by contract, matching §5's resource model.
type EventBox struct {
	mu    sync.Mutex
	once  sync.Once
	state State
	result interface{}
	message string

	disconnectOnce sync.Once
	disconnectCh   chan struct{}
	completionCh   chan struct{}
}

// New creates a pending EventBox.
func New() *EventBox {
	return &EventBox{
		disconnectCh: make(chan struct{}),
		completionCh: make(chan struct{}),
	}
}

// setTerminal performs the single allowed pending->terminal transition.
// Subsequent calls (from any of SetDone/SetUserError/SetApplicationError)
// are no-ops, per the "exactly one terminal transition" invariant (§3).
func (b *EventBox) setTerminal(state State, result interface{}, message string) {
	b.once.Do(func() {
		b.mu.Lock()
		b.state = state
		b.result = result
		b.message = message
		b.mu.Unlock()
		close(b.completionCh)
	})
}

// SetDone completes the box successfully with result.
func (b *EventBox) SetDone(result interface{}) { b.setTerminal(Done, result, "") }

// SetUserError completes the box with a caller-facing error message.
func (b *EventBox) SetUserError(msg string) { b.setTerminal(UserError, nil, msg) }

// SetApplicationError completes the box with an internal error message.
func (b *EventBox) SetApplicationError(msg string) { b.setTerminal(ApplicationError, nil, msg) }

// SetDisconnected fires the disconnect signal. It may be called at any
// time, independent of the terminal state, and is idempotent.
func (b *EventBox) SetDisconnected() {
	b.disconnectOnce.Do(func() { close(b.disconnectCh) })
}

// Disconnected reports whether the disconnect signal has fired.
func (b *EventBox) Disconnected() bool {
	select {
	case <-b.disconnectCh:
		return true
	default:
		return false
	}
}

// Wait suspends until the result is set, the disconnect signal fires, or
// ctx is done, whichever happens first.
func (b *EventBox) Wait(ctx context.Context) {
	select {
	case <-b.completionCh:
	case <-b.disconnectCh:
	case <-ctx.Done():
	}
}

// Done returns a channel closed when a terminal result has been set, for
// callers that want to select on completion alongside other channels.
func (b *EventBox) Done() <-chan struct{} { return b.completionCh }

// MakeResponse derives the response envelope. If the disconnect signal
// fired before (or regardless of) a terminal transition, the envelope is
// DISCONNECTED regardless of any result that may have since arrived —
// disconnect dominance (§3, §7).
func (b *EventBox) MakeResponse(meta map[string]interface{}) *envelope.Envelope {
	if b.Disconnected() {
		return envelope.Disconnected(meta)
	}

	b.mu.Lock()
	state, result, message := b.state, b.result, b.message
	b.mu.Unlock()

	switch state {
	case Done:
		return envelope.Success(result, meta)
	case UserError:
		return envelope.User(message, meta)
	case ApplicationError:
		return envelope.Application(message, meta)
	default:
		// Not yet terminal and not disconnected: the caller waited on a
		// closed channel incorrectly, or called MakeResponse too early.
		return envelope.Application("request was not done and had no errors", meta)
	}
}
