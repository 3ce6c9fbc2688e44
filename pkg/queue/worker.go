package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/webis-de/llmserve/pkg/adapter"
	"github.com/webis-de/llmserve/pkg/memcache"
)

// WorkerStatus is a worker's current high-level activity, surfaced by
// statistics() (§4.1).
type WorkerStatus string

const (
	WorkerIdle    WorkerStatus = "idle"
	WorkerWorking WorkerStatus = "working"
)

// WorkerHealth is a snapshot of one worker's state.
type WorkerHealth struct {
	ID               string       `json:"id"`
	Status           WorkerStatus `json:"status"`
	BatchesProcessed int64        `json:"batches_processed"`
	ItemsProcessed   int64        `json:"items_processed"`
	LastActivity     time.Time    `json:"last_activity"`
}

// Worker is one independent loop owning conceptually one model call
// slot; in practice the adapter is shared and assumed thread-safe for
// concurrent Call invocations across workers (§4.1 configuration note).
type Worker struct {
	id        string
	queue     *Queue
	adapter   adapter.Adapter
	cache     memcache.Cache // nil disables the exact-input cache
	batchSize int

	mu               sync.Mutex
	status           WorkerStatus
	batchesProcessed int64
	itemsProcessed   int64
	lastActivity     time.Time

	wg sync.WaitGroup
}

// NewWorker constructs a Worker. cache may be nil.
func NewWorker(id string, q *Queue, a adapter.Adapter, cache memcache.Cache, batchSize int) *Worker {
	return &Worker{
		id:           id,
		queue:        q,
		adapter:      a,
		cache:        cache,
		batchSize:    batchSize,
		status:       WorkerIdle,
		lastActivity: time.Now(),
	}
}

// Start runs the worker loop in its own goroutine until ctx is done or
// the queue is closed.
func (w *Worker) Start(ctx context.Context) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.run(ctx)
	}()
}

// Wait blocks until the worker's goroutine has exited.
func (w *Worker) Wait() { w.wg.Wait() }

// Health returns a snapshot of the worker's current state.
func (w *Worker) Health() WorkerHealth {
	w.mu.Lock()
	defer w.mu.Unlock()
	return WorkerHealth{
		ID:               w.id,
		Status:           w.status,
		BatchesProcessed: w.batchesProcessed,
		ItemsProcessed:   w.itemsProcessed,
		LastActivity:     w.lastActivity,
	}
}

func (w *Worker) run(ctx context.Context) {
	log := slog.With("worker_id", w.id)
	log.Info("worker started")
	defer log.Info("worker stopped")

	for {
		item, err := w.queue.Dequeue(ctx)
		if err != nil {
			if errors.Is(err, ErrQueueClosed) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return
			}
			continue
		}
		w.processBatch(ctx, item)
	}
}

// processBatch implements the per-worker loop of §4.1: opportunistic
// shape-matched gathering, disconnect short-circuiting, cache consult,
// adapter invocation, and result routing.
func (w *Worker) processBatch(ctx context.Context, first *WorkItem) {
	batch := &Batch{Items: []*WorkItem{first}, Shape: first.Shape, StartedAt: time.Now()}
	for len(batch.Items) < w.batchSize {
		item, ok := w.queue.DequeueMatching(batch.Shape)
		if !ok {
			break
		}
		batch.Items = append(batch.Items, item)
	}

	w.setStatus(WorkerWorking)
	defer w.setStatus(WorkerIdle)

	live := make([]*WorkItem, 0, len(batch.Items))
	for _, it := range batch.Items {
		if it.Box.Disconnected() {
			continue
		}
		live = append(live, it)
	}
	if len(live) == 0 {
		w.recordProcessed(int64(len(batch.Items)))
		return
	}

	uncached := live
	if w.cache != nil {
		uncached = uncached[:0]
		for _, it := range live {
			if result, ok := w.cache.Get(it.InputHash); ok {
				it.Box.SetDone(result)
				continue
			}
			uncached = append(uncached, it)
		}
	}
	if len(uncached) == 0 {
		w.recordProcessed(int64(len(batch.Items)))
		return
	}

	results, err := w.callAdapter(ctx, uncached)
	if err != nil {
		w.failBatch(uncached, err)
		w.recordProcessed(int64(len(batch.Items)))
		return
	}
	if len(results) != len(uncached) {
		w.failBatch(uncached, fmt.Errorf("adapter returned %d results for %d inputs", len(results), len(uncached)))
		w.recordProcessed(int64(len(batch.Items)))
		return
	}

	for i, it := range uncached {
		it.Box.SetDone(results[i])
		if w.cache != nil {
			w.cache.Put(it.InputHash, results[i])
		}
	}
	w.recordProcessed(int64(len(batch.Items)))
	w.mu.Lock()
	w.batchesProcessed++
	w.mu.Unlock()
}

// failBatch completes every item with the same error, distinguishing
// adapter.UserError (USER) from every other error (APPLICATION) per §7.
func (w *Worker) failBatch(items []*WorkItem, err error) {
	var userErr *adapter.UserError
	if errors.As(err, &userErr) {
		for _, it := range items {
			it.Box.SetUserError(userErr.Message)
		}
		return
	}
	msg := err.Error()
	for _, it := range items {
		it.Box.SetApplicationError(msg)
	}
}

// callAdapter invokes the adapter with panic recovery: a panicking
// adapter is reported as an APPLICATION error for the whole batch
// rather than crashing the worker loop (§7 propagation policy).
func (w *Worker) callAdapter(ctx context.Context, items []*WorkItem) (results []interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("adapter panicked: %v", r)
		}
	}()

	switch items[0].Kind {
	case adapter.TypeMetric:
		pairs := make([]adapter.Pair, len(items))
		for i, it := range items {
			pairs[i] = it.Pair
		}
		return w.adapter.Call(ctx, nil, pairs, items[0].Kwargs)
	default:
		texts := make([]string, len(items))
		for i, it := range items {
			texts[i] = it.Text
		}
		return w.adapter.Call(ctx, texts, nil, items[0].Kwargs)
	}
}

func (w *Worker) setStatus(s WorkerStatus) {
	w.mu.Lock()
	w.status = s
	w.lastActivity = time.Now()
	w.mu.Unlock()
}

func (w *Worker) recordProcessed(n int64) {
	w.mu.Lock()
	w.itemsProcessed += n
	w.mu.Unlock()
}
