//go:build integration
// +build integration

package testhelpers

import (
	"os"
	"testing"
	"time"

	"github.com/kjstillabower/model-catalog/internal/cache"
	"github.com/kjstillabower/model-catalog/internal/client"
	"github.com/kjstillabower/model-catalog/internal/service"
)

// IntegrationTestConfig holds configuration for integration tests.
type IntegrationTestConfig struct {
	UpstreamURL   string
	APIKey        string
	CacheBackend  string // "in_memory" or "memcached"
	MemcachedAddr string
}

// GetIntegrationConfig loads integration test configuration from environment.
// Skips the test if UPSTREAM_URL is not set.
func GetIntegrationConfig(t *testing.T) IntegrationTestConfig {
	t.Helper()
	upstreamURL := os.Getenv("UPSTREAM_URL")
	if upstreamURL == "" {
		t.Skip("UPSTREAM_URL not set, skipping integration test")
	}
	memcachedAddr := os.Getenv("MEMCACHED_ADDRS")
	if memcachedAddr == "" {
		memcachedAddr = "localhost:11211"
	}
	return IntegrationTestConfig{
		UpstreamURL:   upstreamURL,
		APIKey:        os.Getenv("UPSTREAM_API_KEY"),
		CacheBackend:  os.Getenv("INTEGRATION_CACHE_BACKEND"),
		MemcachedAddr: memcachedAddr,
	}
}

// SetupIntegrationClient creates a catalog client against the live upstream.
func SetupIntegrationClient(t *testing.T, cfg IntegrationTestConfig) *client.OpenAIClient {
	t.Helper()
	c, err := client.NewOpenAIClient(client.Options{
		URL:     cfg.UpstreamURL,
		APIKey:  cfg.APIKey,
		Timeout: 5 * time.Second,
	})
	if err != nil {
		t.Fatalf("NewOpenAIClient() error = %v", err)
	}
	return c
}

// SetupIntegrationService creates a catalog service over the live upstream.
// Falls back to the in-memory cache when memcached was requested but is unreachable.
func SetupIntegrationService(t *testing.T, cfg IntegrationTestConfig) (*service.CatalogService, func()) {
	t.Helper()
	c := SetupIntegrationClient(t, cfg)

	var cacheSvc cache.Cache = cache.NewInMemoryCache()
	cleanup := func() {}
	if cfg.CacheBackend == "memcached" {
		mc, err := cache.NewMemcachedCache(cfg.MemcachedAddr, 500*time.Millisecond, 2)
		if err == nil && mc.Ping() == nil {
			cacheSvc = mc
			cleanup = func() { _ = mc.Close() }
			t.Logf("Using Memcached cache at %s", cfg.MemcachedAddr)
		} else {
			t.Logf("Memcached not available, using in-memory cache")
		}
	}

	svc := service.NewCatalogService(c, cacheSvc, service.Options{
		TTL:      time.Minute,
		StaleTTL: 10 * time.Minute,
		Coalesce: true,
	})
	return svc, cleanup
}
