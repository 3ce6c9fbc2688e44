package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log"
	"time"
)

// queryTimeout bounds every cache round-trip so a stalled database never
// blocks a worker goroutine indefinitely.
const queryTimeout = 2 * time.Second

// PostgresCache is the durable Cache implementation backing §4.9; it
// satisfies the same interface as memcache.LRU (Get/Put), so the Worker
// Pool can use either without caring which.
type PostgresCache struct {
	client   *Client
	capacity int
}

// NewPostgresCache wraps client with an eviction ceiling of capacity
// rows. capacity<=0 disables eviction bookkeeping (the table can grow
// without bound) — callers wanting hard limits should set it explicitly.
func NewPostgresCache(client *Client, capacity int) *PostgresCache {
	return &PostgresCache{client: client, capacity: capacity}
}

// Get looks up inputHash, bumping last_hit_at on a hit so the eviction
// policy in Put can find genuinely least-recently-used rows.
func (c *PostgresCache) Get(inputHash string) (interface{}, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	var raw []byte
	err := c.client.db.QueryRowContext(ctx,
		`SELECT result FROM cached_results WHERE input_hash = $1`, inputHash,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false
	}
	if err != nil {
		log.Printf("store: cache get failed for %s: %v", inputHash, err)
		return nil, false
	}

	var result interface{}
	if err := json.Unmarshal(raw, &result); err != nil {
		log.Printf("store: cache entry for %s is not valid JSON: %v", inputHash, err)
		return nil, false
	}

	if _, err := c.client.db.ExecContext(ctx,
		`UPDATE cached_results SET last_hit_at = now() WHERE input_hash = $1`, inputHash,
	); err != nil {
		log.Printf("store: cache touch failed for %s: %v", inputHash, err)
	}
	return result, true
}

// Put upserts result under inputHash and, when a capacity was
// configured, evicts the least-recently-hit rows beyond it.
func (c *PostgresCache) Put(inputHash string, result interface{}) {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	raw, err := json.Marshal(result)
	if err != nil {
		log.Printf("store: cache put skipped, result not JSON-encodable for %s: %v", inputHash, err)
		return
	}

	_, err = c.client.db.ExecContext(ctx, `
		INSERT INTO cached_results (input_hash, result, created_at, last_hit_at)
		VALUES ($1, $2, now(), now())
		ON CONFLICT (input_hash) DO UPDATE
		SET result = EXCLUDED.result, last_hit_at = now()`,
		inputHash, raw,
	)
	if err != nil {
		log.Printf("store: cache put failed for %s: %v", inputHash, err)
		return
	}

	if c.capacity > 0 {
		c.evict(ctx)
	}
}

func (c *PostgresCache) evict(ctx context.Context) {
	_, err := c.client.db.ExecContext(ctx, `
		DELETE FROM cached_results
		WHERE input_hash IN (
			SELECT input_hash FROM cached_results
			ORDER BY last_hit_at DESC
			OFFSET $1
		)`, c.capacity)
	if err != nil {
		log.Printf("store: cache eviction failed: %v", err)
	}
}
