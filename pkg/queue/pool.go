package queue

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/webis-de/llmserve/pkg/adapter"
	"github.com/webis-de/llmserve/pkg/envelope"
	"github.com/webis-de/llmserve/pkg/eventbox"
	"github.com/webis-de/llmserve/pkg/memcache"
	"github.com/webis-de/llmserve/pkg/notify"
)

// Stats is the side-effect-free snapshot returned by Statistics (§4.1).
type Stats struct {
	Queued    int            `json:"queued"`
	Workers   []WorkerHealth `json:"workers"`
	Completed int64          `json:"completed"`
}

// WorkerPool owns a fixed set of Worker loops sharing one Queue and one
// Adapter (§4.1). Safe for concurrent use by any number of request
// handlers calling Enqueue/Submit.
type WorkerPool struct {
	adapter    adapter.Adapter
	cache      memcache.Cache
	queue      *Queue
	numWorkers int
	batchSize  int
	notifier   *notify.Service

	workers []*Worker

	mu      sync.Mutex
	started bool
	stopped bool
}

// Config bundles the Worker Pool's tunables (§4.1, §6 THREADS/BATCH_SIZE/CACHE_SIZE).
type Config struct {
	NumWorkers    int
	BatchSize     int
	QueueCapacity int
}

// NewWorkerPool constructs a pool. cache and notifier may be nil.
func NewWorkerPool(a adapter.Adapter, cache memcache.Cache, cfg Config, notifier *notify.Service) *WorkerPool {
	if cfg.QueueCapacity <= 0 {
		cfg.QueueCapacity = cfg.NumWorkers * cfg.BatchSize * 4
	}
	return &WorkerPool{
		adapter:    a,
		cache:      cache,
		queue:      NewQueue(cfg.QueueCapacity),
		numWorkers: cfg.NumWorkers,
		batchSize:  cfg.BatchSize,
		notifier:   notifier,
	}
}

// Start spawns the worker goroutines. Idempotent; repeat calls are no-ops.
func (p *WorkerPool) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return
	}
	p.started = true

	for i := 0; i < p.numWorkers; i++ {
		w := NewWorker(fmt.Sprintf("worker-%d", i), p.queue, p.adapter, p.cache, p.batchSize)
		p.workers = append(p.workers, w)
		w.Start(ctx)
	}

	slog.Info("worker pool started", "num_workers", p.numWorkers, "batch_size", p.batchSize)
	p.notifier.NotifyPoolStarted(ctx, p.numWorkers, p.batchSize)
}

// Stop closes the queue (completing any still-queued items with a
// shutting_down error, per §4.2) and waits for every worker to finish
// its in-flight batch.
func (p *WorkerPool) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	workers := p.workers
	p.mu.Unlock()

	p.queue.Close()
	for _, w := range workers {
		w.Wait()
	}
	p.notifier.NotifyPoolStopped(context.Background(), "graceful shutdown")
	slog.Info("worker pool stopped")
}

// Enqueue implements the submit(event_box, payload) operation of §4.1:
// it blocks only for back-pressure (queue at capacity), never for the
// result. Callers own item.Box and read it independently.
func (p *WorkerPool) Enqueue(ctx context.Context, item *WorkItem) error {
	item.Shape = ShapeKeyFor(item.Kwargs)
	item.InputHash = inputHash(item)
	item.SubmittedAt = time.Now()
	return p.queue.Enqueue(ctx, item)
}

// Submit is a blocking convenience for single-text generation callers
// (the MCP bridge, and any internal caller that wants a synchronous
// request/response instead of managing an Event Box itself): enqueue,
// wait for a terminal state, and translate it into an envelope.
func (p *WorkerPool) Submit(ctx context.Context, text string, kwargs map[string]interface{}) (*envelope.Envelope, error) {
	box := eventbox.New()
	item := &WorkItem{
		Kind:   adapter.TypeGeneration,
		Text:   text,
		Kwargs: kwargs,
		Box:    box,
	}
	if err := p.Enqueue(ctx, item); err != nil {
		return nil, err
	}
	box.Wait(ctx)
	return box.MakeResponse(nil), nil
}

// Statistics returns a side-effect-free snapshot of queue depth and
// worker states (§4.1).
func (p *WorkerPool) Statistics() Stats {
	p.mu.Lock()
	workers := p.workers
	p.mu.Unlock()

	health := make([]WorkerHealth, len(workers))
	var completed int64
	for i, w := range workers {
		h := w.Health()
		health[i] = h
		completed += h.BatchesProcessed
	}

	return Stats{
		Queued:    p.queue.Len(),
		Workers:   health,
		Completed: completed,
	}
}

// MonitorBackpressure polls Statistics every interval and notifies once
// queue depth has stayed at or above threshold for consecutiveSamples
// consecutive polls (§4.11), resetting its count on any poll below
// threshold. Intended to run in its own goroutine for the pool's
// lifetime; returns when ctx is done.
func (p *WorkerPool) MonitorBackpressure(ctx context.Context, interval time.Duration, threshold, consecutiveSamples int) {
	if threshold <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	streak := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			depth := p.Statistics().Queued
			if depth >= threshold {
				streak++
			} else {
				streak = 0
			}
			if streak == consecutiveSamples {
				p.notifier.NotifyBackpressure(ctx, depth, threshold, consecutiveSamples)
			}
		}
	}
}

// inputHash computes the exact-input cache key for an item: its kind,
// text/pair, and shape together, so two requests only collide when
// every model-visible input matches exactly (§4.9).
func inputHash(item *WorkItem) string {
	h := sha256.New()
	_, _ = fmt.Fprintf(h, "%s|%s|%s|%s|", item.Kind, item.Text, item.Pair.Hypothesis, item.Pair.Reference)
	raw, _ := json.Marshal(item.Kwargs)
	h.Write(raw)
	return hex.EncodeToString(h.Sum(nil))
}
