package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/kjstillabower/model-catalog/internal/cache"
	"github.com/kjstillabower/model-catalog/internal/client"
	"github.com/kjstillabower/model-catalog/internal/models"
	"github.com/kjstillabower/model-catalog/internal/observability"
	"github.com/kjstillabower/model-catalog/internal/visibility"
)

// catalogKey is the cache key of the upstream catalog. There is one upstream per process.
const catalogKey = "models"

// ErrModelNotFound is returned by GetModel for unknown, hidden and arena models.
var ErrModelNotFound = errors.New("model not found")

// Options tunes CatalogService.
type Options struct {
	TTL      time.Duration // cache lifetime of a fetched catalog
	StaleTTL time.Duration // max age of the last good catalog served on upstream failure (0 = disabled)
	Coalesce bool          // share one upstream fetch among concurrent cache misses
}

// CatalogService serves the visible model listing using cache-aside over the
// upstream catalog. The raw catalog is cached; filtering happens on read.
type CatalogService struct {
	client   client.CatalogClient
	cache    cache.Cache
	ttl      time.Duration
	staleTTL time.Duration
	coalesce bool
	group    singleflight.Group

	lastMu   sync.RWMutex
	lastGood models.Catalog

	now func() time.Time
}

// NewCatalogService creates a CatalogService. A non-positive TTL defaults to one minute.
func NewCatalogService(c client.CatalogClient, cc cache.Cache, opts Options) *CatalogService {
	if opts.TTL <= 0 {
		opts.TTL = time.Minute
	}
	return &CatalogService{
		client:   c,
		cache:    cc,
		ttl:      opts.TTL,
		staleTTL: opts.StaleTTL,
		coalesce: opts.Coalesce,
		now:      time.Now,
	}
}

// ListOptions selects what ListModels returns.
type ListOptions struct {
	// IncludeHidden returns the unfiltered catalog, hidden and arena models included.
	IncludeHidden bool
}

// Listing is a filtered view of one catalog snapshot.
type Listing struct {
	Models    []models.ModelRecord
	Total     int // models in the upstream catalog before filtering
	FetchedAt time.Time
	Stale     bool
}

// ListModels returns the models to show to users: hidden and arena models are removed
// unless opts.IncludeHidden is set.
func (s *CatalogService) ListModels(ctx context.Context, opts ListOptions) (Listing, error) {
	cat, err := s.Catalog(ctx)
	if err != nil {
		return Listing{}, err
	}
	observability.ModelListingsTotal.Inc()

	out := Listing{Total: len(cat.Models), FetchedAt: cat.FetchedAt, Stale: cat.Stale}
	if opts.IncludeHidden {
		out.Models = cat.Models
		if out.Models == nil {
			out.Models = []models.ModelRecord{}
		}
		return out, nil
	}

	visible, excluded := visibility.Partition(cat.Models)
	for reason, n := range excluded {
		observability.ModelsExcludedTotal.WithLabelValues(string(reason)).Add(float64(n))
	}
	observability.CatalogModels.WithLabelValues("visible").Set(float64(len(visible)))
	observability.LoggerFromContext(ctx).Debug("models filtered",
		zap.Int("total", len(cat.Models)),
		zap.Int("visible", len(visible)))
	out.Models = visible
	return out, nil
}

// GetModel returns a visible model by ID. Hidden and arena models are reported as not found.
func (s *CatalogService) GetModel(ctx context.Context, id string) (models.ModelRecord, error) {
	cat, err := s.Catalog(ctx)
	if err != nil {
		return models.ModelRecord{}, err
	}
	for _, m := range cat.Models {
		if m.ID == id && visibility.Visible(m) {
			return m, nil
		}
	}
	return models.ModelRecord{}, fmt.Errorf("%w: %s", ErrModelNotFound, id)
}

// Catalog returns the upstream catalog, from cache when fresh. On upstream failure
// the last good catalog is returned with Stale set, if it is younger than StaleTTL.
func (s *CatalogService) Catalog(ctx context.Context) (models.Catalog, error) {
	logger := observability.LoggerFromContext(ctx)

	getStart := time.Now()
	cached, ok, err := s.cache.Get(ctx, catalogKey)
	getDuration := time.Since(getStart)
	if err != nil {
		observability.CacheErrorsTotal.WithLabelValues("get", categorizeCacheError(err)).Inc()
		logger.Warn("cache get failed", zap.Error(err), zap.Duration("duration", getDuration))
	} else if ok {
		observability.CacheHitsTotal.WithLabelValues("catalog").Inc()
		logger.Debug("cache hit", zap.Int("models", len(cached.Models)))
		return cached, nil
	}
	observability.CacheMissesTotal.WithLabelValues("catalog").Inc()

	cat, err := s.fetch(ctx)
	if err != nil {
		if stale, ok := s.staleCatalog(); ok {
			observability.StaleCatalogServesTotal.Inc()
			logger.Info("serving stale catalog", zap.Duration("age", s.now().Sub(stale.FetchedAt)), zap.Error(err))
			return stale, nil
		}
		return models.Catalog{}, fmt.Errorf("fetch catalog: %w", err)
	}
	return cat, nil
}

// Refresh fetches the upstream catalog regardless of cache state and stores it.
// Returns the number of upstream models. Used by the cache warmer.
func (s *CatalogService) Refresh(ctx context.Context) (int, error) {
	cat, err := s.fetch(ctx)
	if err != nil {
		return 0, err
	}
	return len(cat.Models), nil
}

// fetch calls the upstream, coalescing concurrent callers when enabled, then stores the result.
// A coalesced caller stops waiting when its own ctx is done; the shared fetch keeps running.
func (s *CatalogService) fetch(ctx context.Context) (models.Catalog, error) {
	if !s.coalesce {
		return s.fetchAndStore(ctx)
	}
	// The shared call outlives any single caller's cancellation.
	shared := context.WithoutCancel(ctx)
	ch := s.group.DoChan(catalogKey, func() (interface{}, error) {
		return s.fetchAndStore(shared)
	})
	select {
	case <-ctx.Done():
		return models.Catalog{}, ctx.Err()
	case res := <-ch:
		if res.Shared {
			observability.CoalescedFetchesTotal.Inc()
		}
		if res.Err != nil {
			return models.Catalog{}, res.Err
		}
		return res.Val.(models.Catalog), nil
	}
}

func (s *CatalogService) fetchAndStore(ctx context.Context) (models.Catalog, error) {
	logger := observability.LoggerFromContext(ctx)

	recs, err := s.client.ListModels(ctx)
	if err != nil {
		return models.Catalog{}, err
	}
	if recs == nil {
		recs = []models.ModelRecord{}
	}
	cat := models.Catalog{Models: recs, FetchedAt: s.now()}
	observability.CatalogModels.WithLabelValues("upstream").Set(float64(len(recs)))

	s.lastMu.Lock()
	s.lastGood = cat
	s.lastMu.Unlock()

	if setErr := s.cache.Set(ctx, catalogKey, cat, s.ttl); setErr != nil {
		observability.CacheErrorsTotal.WithLabelValues("set", categorizeCacheError(setErr)).Inc()
		logger.Warn("cache set failed", zap.Error(setErr))
	}
	logger.Debug("catalog fetched", zap.Int("models", len(recs)))
	return cat, nil
}

func (s *CatalogService) staleCatalog() (models.Catalog, bool) {
	if s.staleTTL <= 0 {
		return models.Catalog{}, false
	}
	s.lastMu.RLock()
	last := s.lastGood
	s.lastMu.RUnlock()
	if last.FetchedAt.IsZero() || s.now().Sub(last.FetchedAt) > s.staleTTL {
		return models.Catalog{}, false
	}
	last.Stale = true
	return last, true
}

// categorizeCacheError returns a stable label for cache error metrics (timeout, connection, unknown).
func categorizeCacheError(err error) string {
	if err == nil {
		return "unknown"
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return "timeout"
	}
	errStr := err.Error()
	if strings.Contains(errStr, "timeout") {
		return "timeout"
	}
	if strings.Contains(errStr, "connection") || strings.Contains(errStr, "network") {
		return "connection"
	}
	return "unknown"
}
