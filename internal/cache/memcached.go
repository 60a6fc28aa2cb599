package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bradfitz/gomemcache/memcache"

	"github.com/kjstillabower/model-catalog/internal/models"
)

const keyPrefix = "catalog:"

// maxRelativeExp is the largest expiration memcached treats as relative (30 days).
const maxRelativeExp = 30 * 24 * 60 * 60

// MemcachedCache implements Cache on memcached. Catalogs are stored as JSON.
type MemcachedCache struct {
	client *memcache.Client
}

// NewMemcachedCache creates a MemcachedCache. addrs is a comma-separated list
// (e.g. "localhost:11211" or "host1:11211,host2:11211"). Zero timeout or
// maxIdleConns keep the client defaults.
func NewMemcachedCache(addrs string, timeout time.Duration, maxIdleConns int) (*MemcachedCache, error) {
	servers := parseAddrs(addrs)
	if len(servers) == 0 {
		return nil, errors.New("memcached: no server addresses")
	}
	client := memcache.New(servers...)
	if timeout > 0 {
		client.Timeout = timeout
	}
	if maxIdleConns > 0 {
		client.MaxIdleConns = maxIdleConns
	}
	return &MemcachedCache{client: client}, nil
}

func parseAddrs(s string) []string {
	var out []string
	for _, a := range strings.Split(s, ",") {
		a = strings.TrimSpace(a)
		if a != "" {
			out = append(out, a)
		}
	}
	return out
}

func (c *MemcachedCache) key(k string) string {
	return keyPrefix + k
}

// Get implements Cache.Get.
func (c *MemcachedCache) Get(ctx context.Context, key string) (models.Catalog, bool, error) {
	if err := ctx.Err(); err != nil {
		return models.Catalog{}, false, err
	}
	item, err := c.client.Get(c.key(key))
	if err != nil {
		if errors.Is(err, memcache.ErrCacheMiss) {
			return models.Catalog{}, false, nil
		}
		return models.Catalog{}, false, fmt.Errorf("memcached get: %w", err)
	}
	var cat models.Catalog
	if err := json.Unmarshal(item.Value, &cat); err != nil {
		return models.Catalog{}, false, fmt.Errorf("memcached decode %s: %w", key, err)
	}
	return cat, true, nil
}

// Set implements Cache.Set.
func (c *MemcachedCache) Set(ctx context.Context, key string, value models.Catalog, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("memcached encode %s: %w", key, err)
	}
	if err := c.client.Set(&memcache.Item{
		Key:        c.key(key),
		Value:      raw,
		Expiration: expirationSeconds(ttl),
	}); err != nil {
		return fmt.Errorf("memcached set: %w", err)
	}
	return nil
}

// expirationSeconds converts ttl to a memcached relative expiration, falling back to 1h
// when ttl is not positive or too large to be read as relative.
func expirationSeconds(ttl time.Duration) int32 {
	secs := ttl.Seconds()
	if secs < 1 || secs > maxRelativeExp {
		return 3600
	}
	return int32(secs)
}

// Ping checks that every memcached server is reachable. Used for health checks.
func (c *MemcachedCache) Ping() error {
	return c.client.Ping()
}

// Close closes idle memcached connections. Call during shutdown.
func (c *MemcachedCache) Close() error {
	return c.client.Close()
}
