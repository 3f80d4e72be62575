package cache

import (
	"context"
	"sync"
	"time"

	"github.com/pharmamap/backend/internal/domain"
)

// entry is a single cached lookup with expiration. An empty Rxcui is a
// negative entry: the name was queried and RxNorm had no concept for it.
type entry struct {
	Rxcui      string
	Expiration time.Time
}

// LookupCache is a thread-safe in-memory name->RXCUI cache with TTL
// support. CNOPS batches repeat the same DCI1 ingredient across hundreds of
// rows, so caching both hits and misses saves one API round-trip per
// duplicate.
type LookupCache struct {
	data  map[string]entry
	mutex sync.RWMutex
}

// NewLookupCache creates a new in-memory lookup cache
func NewLookupCache() *LookupCache {
	cache := &LookupCache{
		data: make(map[string]entry),
	}

	// Remove expired entries every 10 minutes
	go cache.cleanupExpired()

	return cache
}

// Get retrieves a cached RXCUI. A nil error with an empty string means a
// cached negative entry; ErrCacheMiss means the key was never stored (or
// expired).
func (c *LookupCache) Get(ctx context.Context, key string) (string, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	item, exists := c.data[key]
	if !exists {
		return "", domain.ErrCacheMiss
	}

	if time.Now().After(item.Expiration) {
		return "", domain.ErrCacheMiss
	}

	return item.Rxcui, nil
}

// Set stores a lookup result with TTL. value may be empty to record a miss.
func (c *LookupCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.data[key] = entry{
		Rxcui:      value,
		Expiration: time.Now().Add(ttl),
	}

	return nil
}

// Delete removes a value from the cache
func (c *LookupCache) Delete(ctx context.Context, key string) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	delete(c.data, key)
	return nil
}

// Exists checks if a key exists in the cache and is not expired
func (c *LookupCache) Exists(ctx context.Context, key string) (bool, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	item, exists := c.data[key]
	if !exists {
		return false, nil
	}

	if time.Now().After(item.Expiration) {
		return false, nil
	}

	return true, nil
}

// cleanupExpired removes expired entries from the cache periodically
func (c *LookupCache) cleanupExpired() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		c.mutex.Lock()
		now := time.Now()
		for key, item := range c.data {
			if now.After(item.Expiration) {
				delete(c.data, key)
			}
		}
		c.mutex.Unlock()
	}
}

// Size returns the current number of items in the cache (for debugging/monitoring)
func (c *LookupCache) Size() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return len(c.data)
}

// Clear removes all items from the cache
func (c *LookupCache) Clear() {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.data = make(map[string]entry)
}
