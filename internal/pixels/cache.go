package pixels

import (
	"context"
	"sync"

	"github.com/Adithya-Monish-Kumar-K/bbox-border-color/pkg/metrics"
	"golang.org/x/sync/singleflight"
)

// Cache shares decoded images between tasks. Each path is decoded at most
// once; concurrent requests for a path being decoded wait for that decode.
// Failed decodes are not cached. Entries are never evicted.
type Cache struct {
	loader  Loader
	group   singleflight.Group
	mu      sync.RWMutex
	entries map[string]Source
	metrics *metrics.Metrics
}

func NewCache(loader Loader, m *metrics.Metrics) *Cache {
	return &Cache{
		loader:  loader,
		entries: make(map[string]Source),
		metrics: m,
	}
}

func (c *Cache) Load(ctx context.Context, path string) (Source, error) {
	if src, ok := c.lookup(path); ok {
		c.metrics.CacheHit()
		return src, nil
	}
	// Only the caller that runs the decode counts a miss; callers that
	// joined an in-flight decode or found the entry count a hit.
	decoded := false
	val, err, _ := c.group.Do(path, func() (interface{}, error) {
		if src, ok := c.lookup(path); ok {
			return src, nil
		}
		decoded = true
		c.metrics.CacheMiss()
		src, err := c.loader.Load(ctx, path)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.entries[path] = src
		c.mu.Unlock()
		return src, nil
	})
	if err != nil {
		return nil, err
	}
	if !decoded {
		c.metrics.CacheHit()
	}
	return val.(Source), nil
}

// Len returns the number of decoded images held.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *Cache) lookup(path string) (Source, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	src, ok := c.entries[path]
	return src, ok
}
