package tenant

import (
	"context"
	"strings"
	"sync"
	"time"
)

// memoryEntry is a single cached value with its expiry.
type memoryEntry struct {
	value      string
	expiresAt  time.Time
	lastAccess time.Time
}

// MemoryCache implements Cache with an in-process TTL map and LRU eviction
// at a configurable capacity. It is the default cache backend for
// single-instance deployments.
type MemoryCache struct {
	entries    map[string]*memoryEntry
	ttlDefault time.Duration
	maxEntries int
	mu         sync.RWMutex
	stopCh     chan struct{}
	stopOnce   sync.Once
}

// NewMemoryCache creates a memory cache. maxEntries of 0 means unlimited.
// A background sweeper removes expired entries; Close stops it.
func NewMemoryCache(ttl time.Duration, maxEntries int) *MemoryCache {
	c := &MemoryCache{
		entries:    make(map[string]*memoryEntry),
		ttlDefault: ttl,
		maxEntries: maxEntries,
		stopCh:     make(chan struct{}),
	}

	interval := ttl / 2
	if interval < 10*time.Second {
		interval = 10 * time.Second
	}
	go c.sweep(interval)

	return c
}

// Get returns a cached value, treating expired entries as misses.
func (c *MemoryCache) Get(_ context.Context, key string) (string, bool, error) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	if !ok || time.Now().After(entry.expiresAt) {
		c.mu.RUnlock()
		return "", false, nil
	}
	value := entry.value
	c.mu.RUnlock()

	c.mu.Lock()
	if entry, ok := c.entries[key]; ok {
		entry.lastAccess = time.Now()
	}
	c.mu.Unlock()

	return value, true, nil
}

// Set stores a value. A zero ttl falls back to the cache default.
func (c *MemoryCache) Set(_ context.Context, key, value string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.ttlDefault
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.maxEntries > 0 && len(c.entries) >= c.maxEntries {
		if _, exists := c.entries[key]; !exists {
			c.evictLRU()
		}
	}

	now := time.Now()
	c.entries[key] = &memoryEntry{
		value:      value,
		expiresAt:  now.Add(ttl),
		lastAccess: now,
	}
	return nil
}

// Delete removes a single entry.
func (c *MemoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	return nil
}

// DeletePrefix removes all entries whose key starts with prefix.
func (c *MemoryCache) DeletePrefix(_ context.Context, prefix string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
		}
	}
	return nil
}

// Close stops the background sweeper.
func (c *MemoryCache) Close() error {
	c.stopOnce.Do(func() { close(c.stopCh) })
	return nil
}

// Size returns the current number of entries, expired or not.
func (c *MemoryCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// evictLRU removes the least recently accessed entry.
// Must be called with the write lock held.
func (c *MemoryCache) evictLRU() {
	var oldestKey string
	var oldestTime time.Time

	for key, entry := range c.entries {
		if oldestKey == "" || entry.lastAccess.Before(oldestTime) {
			oldestKey = key
			oldestTime = entry.lastAccess
		}
	}
	if oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}

func (c *MemoryCache) sweep(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			now := time.Now()
			c.mu.Lock()
			for key, entry := range c.entries {
				if now.After(entry.expiresAt) {
					delete(c.entries, key)
				}
			}
			c.mu.Unlock()
		case <-c.stopCh:
			return
		}
	}
}
