// Package cache holds in-process caches in front of the stores.
package cache

import (
	"context"
	"sync"
	"time"
)

// InMemoryCache is a TTL cache safe for concurrent use
type InMemoryCache[V any] struct {
	mu    sync.RWMutex
	items map[string]cacheItem[V]
	now   func() time.Time
}

type cacheItem[V any] struct {
	value     V
	expiresAt time.Time
}

// NewInMemoryCache creates a cache. Expired items are swept every interval
// until ctx is done.
func NewInMemoryCache[V any](ctx context.Context, interval time.Duration) *InMemoryCache[V] {
	c := &InMemoryCache[V]{
		items: make(map[string]cacheItem[V]),
		now:   time.Now,
	}
	go c.cleanupExpired(ctx, interval)
	return c
}

// Get retrieves a value from cache
func (c *InMemoryCache[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	item, exists := c.items[key]
	if !exists || c.now().After(item.expiresAt) {
		var zero V
		return zero, false
	}
	return item.value, true
}

// Set stores a value for ttl
func (c *InMemoryCache[V]) Set(key string, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[key] = cacheItem[V]{value: value, expiresAt: c.now().Add(ttl)}
}

// Delete removes a value from cache
func (c *InMemoryCache[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.items, key)
}

// Len counts stored items, expired or not
func (c *InMemoryCache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

func (c *InMemoryCache[V]) cleanupExpired(ctx context.Context, interval time.Duration) {
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
}

func (c *InMemoryCache[V]) sweep() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for key, item := range c.items {
		if now.After(item.expiresAt) {
			delete(c.items, key)
		}
	}
}
