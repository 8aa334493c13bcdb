package di

import (
	"context"
	"sync"
	"time"
)

// CategorizationCache is the process-local TTL cache behind the query bus.
// Cached values are whole categorization results keyed by the query's cache
// key, so a hit skips the dimension loads and the membership projection
// entirely. The TTL stays short because a newly published dimension version
// changes what categorize returns; a stale entry would keep serving the old
// version's memberships until it expires.
type CategorizationCache struct {
	mu      sync.RWMutex
	entries map[string]cachedResult
	done    chan struct{}
}

type cachedResult struct {
	value     interface{}
	expiresAt time.Time
}

// NewCategorizationCache creates a categorization cache whose background
// sweep runs at the given interval
func NewCategorizationCache(sweepInterval time.Duration) *CategorizationCache {
	cache := &CategorizationCache{
		entries: make(map[string]cachedResult),
		done:    make(chan struct{}),
	}
	go cache.sweep(sweepInterval)
	return cache
}

// Get retrieves a cached categorization if it has not expired. Expired
// entries are left for the sweeper; reads stay on the read lock.
func (c *CategorizationCache) Get(ctx context.Context, key string) (interface{}, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, exists := c.entries[key]
	if !exists || time.Now().After(entry.expiresAt) {
		return nil, false
	}
	return entry.value, true
}

// Set stores a categorization result with a TTL in seconds. A non-positive
// TTL disables caching for the entry rather than caching it forever.
func (c *CategorizationCache) Set(ctx context.Context, key string, value interface{}, ttl int) error {
	if ttl <= 0 {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = cachedResult{
		value:     value,
		expiresAt: time.Now().Add(time.Duration(ttl) * time.Second),
	}
	return nil
}

// Delete removes one cached categorization
func (c *CategorizationCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, key)
	return nil
}

// Clear drops every cached categorization, forcing the next read of each
// entity through the full projection
func (c *CategorizationCache) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]cachedResult)
	return nil
}

// Close stops the background sweeper
func (c *CategorizationCache) Close() {
	close(c.done)
}

// sweep periodically evicts expired entries so a long-idle process does not
// hold dead categorizations for entities it will never be asked about again
func (c *CategorizationCache) sweep(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case now := <-ticker.C:
			c.mu.Lock()
			for key, entry := range c.entries {
				if now.After(entry.expiresAt) {
					delete(c.entries, key)
				}
			}
			c.mu.Unlock()
		}
	}
}
