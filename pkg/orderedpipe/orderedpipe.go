// Package orderedpipe implements the per-websocket reorder buffer that
// lets out-of-order worker completions be delivered to a client in strict
// submission order (§3 Ordered Pipe, §4.5).
package orderedpipe

import (
	"context"
	"sync"
)

// Pipe reorders payloads keyed by a monotonically assigned submission
// index back into ascending order.
type Pipe struct {
	mu       sync.Mutex
	nextIdx  int
	nextEmit int
	buffer   map[int]interface{}
	closed   bool
	wake     chan struct{}
}

// New creates an empty, open Pipe.
func New() *Pipe {
	return &Pipe{
		buffer: make(map[int]interface{}),
		wake:   make(chan struct{}, 1),
	}
}

func (p *Pipe) notify() {
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// NextIndex returns a fresh, monotonically increasing submission index.
func (p *Pipe) NextIndex() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	idx := p.nextIdx
	p.nextIdx++
	return idx
}

// Add stores payload at index. Idempotent and safe to call from any
// submitter goroutine. Entries with index < next-to-emit are invalid
// (§3) and are silently dropped.
func (p *Pipe) Add(index int, payload interface{}) {
	p.mu.Lock()
	if index < p.nextEmit {
		p.mu.Unlock()
		return
	}
	if _, exists := p.buffer[index]; !exists {
		p.buffer[index] = payload
	}
	p.mu.Unlock()
	p.notify()
}

// Close marks the pipe closed. Drain flushes whatever is already
// contiguous from next-to-emit and then terminates instead of blocking
// forever on indices that will never arrive.
func (p *Pipe) Close() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	p.notify()
}

// Drain returns a channel that yields payloads strictly in ascending
// index order, blocking whenever the next expected index is absent and
// resuming as soon as it is added. It terminates when ctx is done or the
// pipe is closed and has no more contiguous entries to flush.
func (p *Pipe) Drain(ctx context.Context) <-chan interface{} {
	out := make(chan interface{})
	go func() {
		defer close(out)
		for {
			p.mu.Lock()
			payload, ok := p.buffer[p.nextEmit]
			if ok {
				delete(p.buffer, p.nextEmit)
				p.nextEmit++
			}
			closed := p.closed
			p.mu.Unlock()

			if ok {
				select {
				case out <- payload:
					continue
				case <-ctx.Done():
					return
				}
			}

			if closed {
				return
			}

			select {
			case <-p.wake:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}
