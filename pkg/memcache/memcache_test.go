package memcache

import "testing"

func TestLRUGetMissOnEmpty(t *testing.T) {
	c := New(2)
	if _, ok := c.Get("a"); ok {
		t.Fatalf("expected miss on empty cache")
	}
}

func TestLRUPutThenGetHits(t *testing.T) {
	c := New(2)
	c.Put("a", 1)
	v, ok := c.Get("a")
	if !ok || v.(int) != 1 {
		t.Fatalf("expected hit with value 1, got %v ok=%v", v, ok)
	}
}

func TestLRUEvictsLeastRecentlyUsed(t *testing.T) {
	c := New(2)
	c.Put("a", 1)
	c.Put("b", 2)
	c.Get("a") // a is now most-recently-used, b is least
	c.Put("c", 3) // evicts b

	if _, ok := c.Get("b"); ok {
		t.Fatalf("expected b to be evicted")
	}
	if _, ok := c.Get("a"); !ok {
		t.Fatalf("expected a to survive eviction")
	}
	if _, ok := c.Get("c"); !ok {
		t.Fatalf("expected c to be present")
	}
	if c.Len() != 2 {
		t.Fatalf("expected capacity to be respected, got len %d", c.Len())
	}
}

func TestLRUPutOnExistingKeyDoesNotGrow(t *testing.T) {
	c := New(2)
	c.Put("a", 1)
	c.Put("a", 2)
	if c.Len() != 1 {
		t.Fatalf("expected single entry after re-put, got %d", c.Len())
	}
	v, _ := c.Get("a")
	if v.(int) != 2 {
		t.Fatalf("expected updated value 2, got %v", v)
	}
}

func TestZeroCapacityDisablesCache(t *testing.T) {
	c := New(0)
	c.Put("a", 1)
	if _, ok := c.Get("a"); ok {
		t.Fatalf("expected zero-capacity cache to never hit")
	}
	if c.Len() != 0 {
		t.Fatalf("expected zero-capacity cache to stay empty")
	}
}
