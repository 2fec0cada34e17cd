package cache

import (
	"bytes"
	"context"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// MemoryCache keeps entries in process memory. Expired entries are evicted
// by a background goroutine that Close stops.
type MemoryCache struct {
	items *ttlcache.Cache[string, []byte]
}

// NewMemoryCache creates an in-memory cache holding at most capacity
// entries; zero means unbounded.
func NewMemoryCache(capacity uint64) *MemoryCache {
	opts := []ttlcache.Option[string, []byte]{ttlcache.WithTTL[string, []byte](ttlcache.NoTTL)}
	if capacity > 0 {
		opts = append(opts, ttlcache.WithCapacity[string, []byte](capacity))
	}
	items := ttlcache.New[string, []byte](opts...)
	go items.Start()
	return &MemoryCache{items: items}
}

// Get retrieves a copy of a value from the cache.
func (c *MemoryCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	item := c.items.Get(key)
	if item == nil || item.IsExpired() {
		return nil, false, nil
	}
	return bytes.Clone(item.Value()), true, nil
}

// Set stores a copy of data.
func (c *MemoryCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = ttlcache.NoTTL
	}
	c.items.Set(key, bytes.Clone(data), ttl)
	return nil
}

// Delete removes a value from the cache.
func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	c.items.Delete(key)
	return nil
}

// Len returns the number of stored entries, including expired entries
// that have not been evicted yet.
func (c *MemoryCache) Len() int {
	return c.items.Len()
}

// Close stops the eviction goroutine.
func (c *MemoryCache) Close() error {
	c.items.Stop()
	return nil
}

var _ Cache = (*MemoryCache)(nil)
