package cache

import (
	"context"
	"sync"
	"time"

	"github.com/kjstillabower/model-catalog/internal/models"
)

// Cache stores upstream catalog snapshots. Get returns (zero, false, nil) on a miss.
type Cache interface {
	Get(ctx context.Context, key string) (models.Catalog, bool, error)
	Set(ctx context.Context, key string, value models.Catalog, ttl time.Duration) error
}

// InMemoryCache implements Cache with a mutex-guarded map and per-entry expiry.
// Expired entries are removed on access.
type InMemoryCache struct {
	mu   sync.Mutex
	data map[string]cacheEntry
	now  func() time.Time
}

type cacheEntry struct {
	value     models.Catalog
	expiresAt time.Time
}

// NewInMemoryCache creates a new in-memory cache instance.
func NewInMemoryCache() *InMemoryCache {
	return &InMemoryCache{
		data: make(map[string]cacheEntry),
		now:  time.Now,
	}
}

// Get returns the catalog stored under key if present and not expired.
func (c *InMemoryCache) Get(ctx context.Context, key string) (models.Catalog, bool, error) {
	if err := ctx.Err(); err != nil {
		return models.Catalog{}, false, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.data[key]
	if !ok {
		return models.Catalog{}, false, nil
	}
	if c.now().After(entry.expiresAt) {
		delete(c.data, key)
		return models.Catalog{}, false, nil
	}
	return cloneCatalog(entry.value), true, nil
}

// Set stores a copy of value under key for ttl.
func (c *InMemoryCache) Set(ctx context.Context, key string, value models.Catalog, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = cacheEntry{
		value:     cloneCatalog(value),
		expiresAt: c.now().Add(ttl),
	}
	return nil
}

// cloneCatalog copies the record slice so callers cannot mutate cached state.
func cloneCatalog(c models.Catalog) models.Catalog {
	out := c
	if c.Models != nil {
		out.Models = make([]models.ModelRecord, len(c.Models))
		copy(out.Models, c.Models)
	}
	return out
}
