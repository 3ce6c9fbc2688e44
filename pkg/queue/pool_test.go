package queue

import (
	"context"
	"testing"
	"time"

	"github.com/webis-de/llmserve/pkg/adapter"
)

func TestWorkerPoolSubmitRoundTrip(t *testing.T) {
	a := &fakeAdapter{}
	pool := NewWorkerPool(a, nil, Config{NumWorkers: 2, BatchSize: 4, QueueCapacity: 16}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pool.Start(ctx)
	defer pool.Stop()

	env, err := pool.Submit(context.Background(), "hi", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !env.Success || env.Data != "hi!" {
		t.Fatalf("unexpected envelope: %+v", env)
	}
}

func TestWorkerPoolStatisticsReportsQueueDepth(t *testing.T) {
	a := &fakeAdapter{}
	pool := NewWorkerPool(a, nil, Config{NumWorkers: 0, BatchSize: 4, QueueCapacity: 16}, nil)

	item := newItem("")
	item.Kind = adapter.TypeGeneration
	item.Text = "hi"
	_ = pool.Enqueue(context.Background(), item)

	stats := pool.Statistics()
	if stats.Queued != 1 {
		t.Fatalf("expected queue depth 1, got %d", stats.Queued)
	}
}

func TestWorkerPoolStopDrainsQueueWithShuttingDownError(t *testing.T) {
	a := &fakeAdapter{}
	pool := NewWorkerPool(a, nil, Config{NumWorkers: 0, BatchSize: 4, QueueCapacity: 16}, nil)

	item := newItem("")
	_ = pool.Enqueue(context.Background(), item)

	pool.Stop()

	item.Box.Wait(context.Background())
	env := item.Box.MakeResponse(nil)
	if env.Message != "shutting_down" {
		t.Fatalf("expected shutting_down error, got %+v", env)
	}
}

func TestWorkerPoolStartIsIdempotent(t *testing.T) {
	a := &fakeAdapter{}
	pool := NewWorkerPool(a, nil, Config{NumWorkers: 1, BatchSize: 4, QueueCapacity: 16}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pool.Start(ctx)
	pool.Start(ctx)

	if len(pool.workers) != 1 {
		t.Fatalf("expected Start to be idempotent, got %d workers", len(pool.workers))
	}
	pool.Stop()
}

func TestWorkerPoolSubmitRespectsDeadline(t *testing.T) {
	a := &fakeAdapter{}
	pool := NewWorkerPool(a, nil, Config{NumWorkers: 0, BatchSize: 4, QueueCapacity: 16}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	go func() {
		_, _ = pool.Submit(ctx, "hi", nil)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("expected Submit to return once its context deadline passed")
	}
}
