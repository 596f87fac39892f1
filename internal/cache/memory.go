// Package cache provides the in-memory TTL caches backing alarm analysis,
// question answering, and Phase-2 report idempotency.
package cache

import (
	"context"
	"sync"
	"time"
)

// Stats is the observable state of one cache instance.
type Stats struct {
	TotalItems     int   `json:"total_items"`
	TTLSeconds     int   `json:"ttl_seconds"`
	ExpiredCleaned int64 `json:"expired_cleaned"`
}

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// Memory is a concurrency-safe key→value store with per-entry expiry.
// Expired entries are removed lazily on Get and additionally by a periodic
// background sweep; an expired value is never observable to a caller.
// Values are plain data — the cache never calls the language model.
type Memory[V any] struct {
	mu             sync.Mutex
	ttl            time.Duration
	items          map[string]entry[V]
	expiredCleaned int64
	now            func() time.Time
}

// NewMemory creates a cache whose entries default to the given TTL.
func NewMemory[V any](ttl time.Duration) *Memory[V] {
	return &Memory[V]{
		ttl:   ttl,
		items: make(map[string]entry[V]),
		now:   time.Now,
	}
}

// Get returns the value for key. An entry past its expiry is removed
// atomically and reported as a miss.
func (c *Memory[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.items[key]
	if !ok {
		var zero V
		return zero, false
	}
	if c.now().After(e.expiresAt) {
		delete(c.items, key)
		c.expiredCleaned++
		var zero V
		return zero, false
	}
	return e.value, true
}

// Set stores value under key. A non-positive ttl falls back to the
// instance default.
func (c *Memory[V]) Set(key string, value V, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.ttl
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = entry[V]{value: value, expiresAt: c.now().Add(ttl)}
}

// Delete removes key if present.
func (c *Memory[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
}

// Clear removes every entry and resets the expired-cleaned counter.
func (c *Memory[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]entry[V])
	c.expiredCleaned = 0
}

// Len reports the number of stored entries, including any not yet swept.
func (c *Memory[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Stats reports item count, configured TTL, and how many expired entries
// have been cleaned since the last Clear.
func (c *Memory[V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		TotalItems:     len(c.items),
		TTLSeconds:     int(c.ttl / time.Second),
		ExpiredCleaned: c.expiredCleaned,
	}
}

// sweep removes all expired entries, crediting the expired-cleaned counter.
func (c *Memory[V]) sweep() {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	for k, e := range c.items {
		if now.After(e.expiresAt) {
			delete(c.items, k)
			c.expiredCleaned++
		}
	}
}

// StartSweeper runs a background sweep every interval until ctx is done.
func (c *Memory[V]) StartSweeper(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.sweep()
			}
		}
	}()
}
