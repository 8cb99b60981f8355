// Package cache provides the short-lived lookup cache placed in front of
// all remote read calls. It uses patrickmn/go-cache for TTL-based storage,
// bounded by entry count with a fixed time-to-live that is not refreshed
// on read.
package cache

import (
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Cache wraps go-cache with an entry-count bound and an atomic
// insert-or-get used to avoid duplicate remote calls for the same key.
type Cache struct {
	store      *gocache.Cache
	maxEntries int

	mu sync.Mutex // guards insert-or-get and eviction
}

// New creates a new cache with the given TTL and maximum entry count.
// Cleanup of expired items runs at twice the TTL.
func New(ttl time.Duration, maxEntries int) *Cache {
	return &Cache{
		store:      gocache.New(ttl, 2*ttl),
		maxEntries: maxEntries,
	}
}

// Get retrieves a value from the cache.
func (c *Cache) Get(key string) (any, bool) {
	return c.store.Get(key)
}

// Set stores a value in the cache with the default TTL. When the cache is
// full, expired entries are purged first; if still full, one resident entry
// is dropped to make room.
func (c *Cache) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.set(key, value)
}

// set stores without locking. Callers must hold c.mu.
func (c *Cache) set(key string, value any) {
	if _, exists := c.store.Get(key); !exists && c.store.ItemCount() >= c.maxEntries {
		c.store.DeleteExpired()
		if c.store.ItemCount() >= c.maxEntries {
			c.evictOne()
		}
	}
	c.store.Set(key, value, gocache.DefaultExpiration)
}

// GetOrSet returns the cached value for key, or computes, stores, and
// returns it. Concurrent callers for the same key perform the remote call
// at most once; a compute error is returned without caching anything.
func (c *Cache) GetOrSet(key string, compute func() (any, error)) (any, error) {
	if v, ok := c.store.Get(key); ok {
		return v, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if v, ok := c.store.Get(key); ok {
		return v, nil
	}

	v, err := compute()
	if err != nil {
		return nil, err
	}
	c.set(key, v)
	return v, nil
}

// Delete removes a value from the cache.
func (c *Cache) Delete(key string) {
	c.store.Delete(key)
}

// Clear removes all items from the cache.
func (c *Cache) Clear() {
	c.store.Flush()
}

// ItemCount returns the number of items in the cache.
func (c *Cache) ItemCount() int {
	return c.store.ItemCount()
}

// evictOne removes a single resident entry. Which entry goes is arbitrary;
// the TTL keeps everything short-lived anyway.
func (c *Cache) evictOne() {
	for key := range c.store.Items() {
		c.store.Delete(key)
		return
	}
}
