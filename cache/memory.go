package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryCache is the in-process ReadCache. Expired entries are evicted
// lazily on lookup and swept periodically by the library's janitor.
type MemoryCache struct {
	c *gocache.Cache
}

// NewMemoryCache creates a process-wide in-memory cache. sweepInterval
// bounds how long expired entries linger before the periodic sweep removes
// them; it does not affect correctness, only memory.
func NewMemoryCache(sweepInterval time.Duration) *MemoryCache {
	if sweepInterval <= 0 {
		sweepInterval = 10 * time.Minute
	}
	return &MemoryCache{
		c: gocache.New(gocache.NoExpiration, sweepInterval),
	}
}

// Get returns the cached value when present and unexpired
func (m *MemoryCache) Get(_ context.Context, key string) ([]byte, bool) {
	v, ok := m.c.Get(key)
	if !ok {
		return nil, false
	}
	b, ok := v.([]byte)
	return b, ok
}

// Set stores a value under key for ttl
func (m *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) {
	m.c.Set(key, value, ttl)
}
