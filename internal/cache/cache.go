// Package cache provides an in-memory TTL store for normalized upstream
// payloads. Entries expire passively: a read past the deadline is a miss and
// nothing is ever evicted.
package cache

import (
	"sync"
	"time"
)

// entry is replaced as a whole under the write lock, so readers observe
// either the previous or the new value.
type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// Cache is safe for concurrent use. Stored values are shared with callers
// and must be treated as read-only.
type Cache[V any] struct {
	now func() time.Time

	mu    sync.RWMutex
	items map[string]entry[V]
}

// Option configures a Cache.
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// New creates an empty cache.
func New[V any](opts ...Option) *Cache[V] {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return &Cache[V]{
		now:   o.now,
		items: make(map[string]entry[V]),
	}
}

// Get returns the value for key if it has not expired.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	e, ok := c.items[key]
	c.mu.RUnlock()

	if !ok || !c.now().Before(e.expiresAt) {
		var zero V
		return zero, false
	}
	return e.value, true
}

// Set stores value under key for ttl, overwriting any previous entry.
// A non-positive ttl is ignored.
func (c *Cache[V]) Set(key string, value V, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	e := entry[V]{value: value, expiresAt: c.now().Add(ttl)}

	c.mu.Lock()
	c.items[key] = e
	c.mu.Unlock()
}

// Len returns the number of unexpired entries.
func (c *Cache[V]) Len() int {
	now := c.now()

	c.mu.RLock()
	defer c.mu.RUnlock()

	n := 0
	for _, e := range c.items {
		if now.Before(e.expiresAt) {
			n++
		}
	}
	return n
}
