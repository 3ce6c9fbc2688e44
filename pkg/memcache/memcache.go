// Package memcache implements the default, in-process backend for the
// Worker Pool's optional exact-input cache (§4.1 step 4, §4.9). It is
// consulted (and populated) instead of invoking the adapter whenever a
// work item's hashed input has been seen before.
package memcache

import (
	"container/list"
	"sync"
)

// Cache is the backend-agnostic contract the Worker Pool programs
// against; store.PostgresCache implements the same interface for
// deployments that want a durable, cross-process cache (§4.9).
type Cache interface {
	Get(inputHash string) (result interface{}, ok bool)
	Put(inputHash string, result interface{})
}

type entry struct {
	key    string
	result interface{}
}

// LRU is a fixed-capacity, in-process cache evicted least-recently-used.
// A Put on an already-present key refreshes its recency and replaces its
// value; it never grows the entry count. Capacity<=0 disables the cache
// (Get always misses, Put is a no-op), which is how CACHE_SIZE=0 turns
// caching off entirely.
type LRU struct {
	mu       sync.Mutex
	capacity int
	order    *list.List
	items    map[string]*list.Element
}

// New constructs an LRU cache holding at most capacity entries.
func New(capacity int) *LRU {
	return &LRU{
		capacity: capacity,
		order:    list.New(),
		items:    make(map[string]*list.Element, capacity),
	}
}

// Get looks up inputHash, marking it most-recently-used on a hit.
func (c *LRU) Get(inputHash string) (interface{}, bool) {
	if c.capacity <= 0 {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[inputHash]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*entry).result, true
}

// Put stores result under inputHash, evicting the least-recently-used
// entry if the cache is at capacity.
func (c *LRU) Put(inputHash string, result interface{}) {
	if c.capacity <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[inputHash]; ok {
		el.Value.(*entry).result = result
		c.order.MoveToFront(el)
		return
	}

	el := c.order.PushFront(&entry{key: inputHash, result: result})
	c.items[inputHash] = el

	for c.order.Len() > c.capacity {
		oldest := c.order.Back()
		if oldest == nil {
			break
		}
		c.order.Remove(oldest)
		delete(c.items, oldest.Value.(*entry).key)
	}
}

// Len returns the current number of cached entries.
func (c *LRU) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
