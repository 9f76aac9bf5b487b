// Package querycache memoizes per-target query results so repeated
// requests skip their expensive network calls. Keys are fingerprints
// derived by the owning handler; only successful results are ever
// stored.
package querycache

import (
	"sync"
	"time"
)

type entry struct {
	value    any
	storedAt time.Time
}

// Cache is a mutex-guarded memoization map with optional bounds. A
// zero TTL disables expiry and a zero maxEntries disables eviction,
// which restores plain process-lifetime memoization.
type Cache struct {
	mu         sync.RWMutex
	entries    map[string]entry
	ttl        time.Duration
	maxEntries int
	now        func() time.Time
}

// New builds a cache holding at most maxEntries values for at most ttl
// each. Zero values lift the respective bound.
func New(maxEntries int, ttl time.Duration) *Cache {
	return &Cache{
		entries:    make(map[string]entry),
		ttl:        ttl,
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

// Get returns the cached value for key and whether it was present and
// fresh. Expired entries are dropped on access.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if c.ttl > 0 && c.now().Sub(e.storedAt) > c.ttl {
		c.Invalidate(key)
		return nil, false
	}
	return e.value, true
}

// Put stores a value under key, evicting the oldest entry when the
// size bound is hit.
func (c *Cache) Put(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.entries[key]; !exists && c.maxEntries > 0 && len(c.entries) >= c.maxEntries {
		c.evictOldestLocked()
	}
	c.entries[key] = entry{value: value, storedAt: c.now()}
}

// Invalidate removes a single key.
func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Clear removes every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]entry)
	c.mu.Unlock()
}

// Len reports the number of stored entries, expired or not.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *Cache) evictOldestLocked() {
	var oldestKey string
	var oldestAt time.Time
	first := true
	for k, e := range c.entries {
		if first || e.storedAt.Before(oldestAt) {
			oldestKey, oldestAt = k, e.storedAt
			first = false
		}
	}
	if !first {
		delete(c.entries, oldestKey)
	}
}
