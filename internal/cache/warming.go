package cache

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/model-catalog/internal/observability"
)

// CatalogRefresher is implemented by the service layer to fetch the upstream
// catalog and store it in the cache. Keeps this package free of a service import.
type CatalogRefresher interface {
	Refresh(ctx context.Context) (int, error)
}

// CacheWarmer keeps the catalog cache populated ahead of client requests.
type CacheWarmer struct {
	refresher CatalogRefresher
	logger    *zap.Logger
}

// NewCacheWarmer creates a CacheWarmer. A nil logger disables logging.
func NewCacheWarmer(refresher CatalogRefresher, logger *zap.Logger) *CacheWarmer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheWarmer{refresher: refresher, logger: logger}
}

// Warm refreshes the catalog once.
func (w *CacheWarmer) Warm(ctx context.Context) error {
	start := time.Now()
	observability.CacheWarmingTotal.Inc()

	n, err := w.refresher.Refresh(ctx)
	duration := time.Since(start)
	observability.CacheWarmingDurationSeconds.Observe(duration.Seconds())
	if err != nil {
		observability.CacheWarmingErrorsTotal.Inc()
		return fmt.Errorf("cache warming: %w", err)
	}
	w.logger.Info("catalog cache warmed", zap.Int("models", n), zap.Duration("duration", duration))
	return nil
}

// WarmPeriodic runs Warm immediately and then every interval until ctx is done.
// Individual failures are logged; the loop keeps going.
func (w *CacheWarmer) WarmPeriodic(ctx context.Context, interval time.Duration) error {
	if err := w.Warm(ctx); err != nil {
		w.logger.Warn("initial cache warm failed", zap.Error(err))
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.Warm(ctx); err != nil {
				w.logger.Warn("periodic cache warm failed", zap.Error(err))
			}
		}
	}
}
