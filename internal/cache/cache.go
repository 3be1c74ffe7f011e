// Package cache provides a process-local TTL cache used to shield
// rate-limited upstream APIs from redundant calls.
package cache

import (
	"sync"
	"time"
)

type entry[V any] struct {
	value    V
	storedAt time.Time
}

// Cache is a concurrency-safe key/value store with a fixed TTL.
// Expired entries are evicted lazily on the next access; there is no
// background sweeper.
type Cache[V any] struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	entries map[string]entry[V]
}

// New creates a Cache whose entries expire after ttl. A ttl of zero
// disables caching entirely: Get always misses and Set is a no-op.
func New[V any](ttl time.Duration) *Cache[V] {
	return &Cache[V]{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]entry[V]),
	}
}

// Get returns the cached value for key, if present and not expired.
// An expired entry is removed as a side effect.
func (c *Cache[V]) Get(key string) (V, bool) {
	var zero V
	if c.ttl <= 0 {
		return zero, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return zero, false
	}
	if c.now().Sub(e.storedAt) >= c.ttl {
		delete(c.entries, key)
		return zero, false
	}
	return e.value, true
}

// Set stores value under key with the current timestamp.
func (c *Cache[V]) Set(key string, value V) {
	if c.ttl <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry[V]{value: value, storedAt: c.now()}
}

// GetOrFetch returns the cached value for key or, on a miss, calls fetch
// and caches its result. The lock is not held across fetch, so concurrent
// misses for the same key may both hit the upstream; fetches are expected
// to be idempotent.
func (c *Cache[V]) GetOrFetch(key string, fetch func() (V, error)) (V, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}
	v, err := fetch()
	if err != nil {
		return v, err
	}
	c.Set(key, v)
	return v, nil
}

// Len reports the number of stored entries, including any not yet
// lazily evicted.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
