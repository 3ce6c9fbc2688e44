package queue

import (
	"context"
	"testing"
	"time"

	"github.com/webis-de/llmserve/pkg/eventbox"
)

func newItem(shape ShapeKey) *WorkItem {
	return &WorkItem{Shape: shape, Box: eventbox.New()}
}

func TestQueueFIFOOrder(t *testing.T) {
	q := NewQueue(10)
	ctx := context.Background()

	a, b := newItem("a"), newItem("b")
	_ = q.Enqueue(ctx, a)
	_ = q.Enqueue(ctx, b)

	got1, _ := q.Dequeue(ctx)
	got2, _ := q.Dequeue(ctx)
	if got1 != a || got2 != b {
		t.Fatalf("expected FIFO order a, b")
	}
}

func TestQueueDequeueMatchingLeavesMismatchedInPlace(t *testing.T) {
	q := NewQueue(10)
	ctx := context.Background()

	a, b, c := newItem("x"), newItem("y"), newItem("x")
	_ = q.Enqueue(ctx, a)
	_ = q.Enqueue(ctx, b)
	_ = q.Enqueue(ctx, c)

	got, ok := q.DequeueMatching("x")
	if !ok || got != a {
		t.Fatalf("expected to match first x item")
	}
	if q.Len() != 2 {
		t.Fatalf("expected 2 remaining items, got %d", q.Len())
	}

	// b (shape y) must still be reachable via plain Dequeue (FIFO), and
	// c (shape x) via another DequeueMatching.
	got2, ok2 := q.DequeueMatching("x")
	if !ok2 || got2 != c {
		t.Fatalf("expected second x match to return c")
	}
	got3, _ := q.Dequeue(ctx)
	if got3 != b {
		t.Fatalf("expected last remaining item to be b")
	}
}

func TestQueueDequeueMatchingMissReturnsFalse(t *testing.T) {
	q := NewQueue(10)
	ctx := context.Background()
	_ = q.Enqueue(ctx, newItem("a"))

	_, ok := q.DequeueMatching("nonexistent")
	if ok {
		t.Fatalf("expected no match")
	}
	if q.Len() != 1 {
		t.Fatalf("item must remain queued after a miss")
	}
}

func TestQueueEnqueueBlocksAtCapacity(t *testing.T) {
	q := NewQueue(1)
	ctx := context.Background()
	_ = q.Enqueue(ctx, newItem("a"))

	done := make(chan error, 1)
	go func() { done <- q.Enqueue(ctx, newItem("b")) }()

	select {
	case <-done:
		t.Fatalf("expected Enqueue to block while queue is full")
	case <-time.After(30 * time.Millisecond):
	}

	_, _ = q.Dequeue(ctx)
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("expected blocked Enqueue to unblock after space freed")
	}
}

func TestQueueEnqueueRespectsContextCancellation(t *testing.T) {
	q := NewQueue(1)
	ctx := context.Background()
	_ = q.Enqueue(ctx, newItem("a"))

	cctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- q.Enqueue(cctx, newItem("b")) }()
	cancel()

	select {
	case err := <-done:
		if err == nil {
			t.Fatalf("expected cancellation error")
		}
	case <-time.After(time.Second):
		t.Fatalf("expected Enqueue to return after context cancellation")
	}
}

func TestQueueDequeueUnblocksOnContextCancellation(t *testing.T) {
	q := NewQueue(1)
	cctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := q.Dequeue(cctx)
		done <- err
	}()
	cancel()

	select {
	case err := <-done:
		if err == nil {
			t.Fatalf("expected cancellation error")
		}
	case <-time.After(time.Second):
		t.Fatalf("expected Dequeue to return promptly on cancellation")
	}
}

func TestQueueCloseCompletesPendingItemsWithShuttingDown(t *testing.T) {
	q := NewQueue(10)
	ctx := context.Background()
	item := newItem("a")
	_ = q.Enqueue(ctx, item)

	q.Close()

	item.Box.Wait(context.Background())
	env := item.Box.MakeResponse(nil)
	if env.Success {
		t.Fatalf("expected shutting_down application error")
	}
	if env.Message != "shutting_down" {
		t.Fatalf("expected message 'shutting_down', got %q", env.Message)
	}
}

func TestQueueEnqueueAfterCloseFails(t *testing.T) {
	q := NewQueue(10)
	q.Close()
	if err := q.Enqueue(context.Background(), newItem("a")); err != ErrQueueClosed {
		t.Fatalf("expected ErrQueueClosed, got %v", err)
	}
}

func TestQueueDequeueAfterCloseFails(t *testing.T) {
	q := NewQueue(10)
	q.Close()
	if _, err := q.Dequeue(context.Background()); err != ErrQueueClosed {
		t.Fatalf("expected ErrQueueClosed, got %v", err)
	}
}
