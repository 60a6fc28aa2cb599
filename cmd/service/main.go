package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kjstillabower/model-catalog/internal/cache"
	"github.com/kjstillabower/model-catalog/internal/client"
	"github.com/kjstillabower/model-catalog/internal/config"
	httphandler "github.com/kjstillabower/model-catalog/internal/http"
	"github.com/kjstillabower/model-catalog/internal/observability"
	"github.com/kjstillabower/model-catalog/internal/service"
)

func main() {
	logger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("config", zap.Error(err))
	}

	clientOpts := client.Options{
		URL:            cfg.UpstreamURL,
		APIKey:         cfg.UpstreamAPIKey,
		Timeout:        cfg.UpstreamTimeout,
		RetryAttempts:  cfg.RetryAttempts,
		RetryBaseDelay: cfg.RetryBaseDelay,
		RetryMaxDelay:  cfg.RetryMaxDelay,
	}
	if cfg.CircuitBreakerEnabled {
		clientOpts.Breaker = &client.BreakerConfig{
			FailureThreshold: cfg.CircuitBreakerFailureThreshold,
			SuccessThreshold: cfg.CircuitBreakerSuccessThreshold,
			Timeout:          cfg.CircuitBreakerTimeout,
		}
		logger.Info("circuit breaker enabled",
			zap.Int("failure_threshold", cfg.CircuitBreakerFailureThreshold),
			zap.Duration("timeout", cfg.CircuitBreakerTimeout))
	}
	catalogClient, err := client.NewOpenAIClient(clientOpts)
	if err != nil {
		logger.Fatal("catalog client", zap.Error(err))
	}

	var cacheSvc cache.Cache
	var memcacheCloser *cache.MemcachedCache
	switch cfg.CacheBackend {
	case "memcached":
		mc, err := cache.NewMemcachedCache(cfg.MemcachedAddrs, cfg.MemcachedTimeout, cfg.MemcachedMaxIdleConns)
		if err != nil {
			logger.Fatal("memcached cache", zap.Error(err))
		}
		memcacheCloser = mc
		cacheSvc = mc
		logger.Info("cache backend: memcached", zap.String("addrs", cfg.MemcachedAddrs))
	default:
		cacheSvc = cache.NewInMemoryCache()
		logger.Info("cache backend: in_memory")
	}
	catalogService := service.NewCatalogService(catalogClient, cacheSvc, service.Options{
		TTL:      cfg.CacheTTL,
		StaleTTL: cfg.StaleTTL,
		Coalesce: cfg.Coalesce,
	})

	healthConfig := &httphandler.HealthConfig{
		OverloadWindow:       cfg.OverloadWindow,
		OverloadThresholdPct: cfg.OverloadThresholdPct,
		RateLimitRPS:         cfg.RateLimitRPS,
		RateLimitBurst:       cfg.RateLimitBurst,
		DegradedWindow:       cfg.DegradedWindow,
		DegradedErrorPct:     cfg.DegradedErrorPct,
		BreakerState:         catalogClient.BreakerState,
	}
	if memcacheCloser != nil {
		healthConfig.CachePing = memcacheCloser.Ping
	}

	var limiter *rate.Limiter
	if cfg.RateLimitRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst)
	}
	handler := httphandler.NewHandler(catalogService, httphandler.HandlerConfig{
		AllowIncludeHidden: cfg.AllowIncludeHidden,
		ModelIDMaxLength:   cfg.ModelIDMaxLength,
	}, healthConfig, logger, limiter)

	observability.RegisterTrafficGauges(cfg.OverloadWindow)

	warmCtx, stopWarming := context.WithCancel(context.Background())
	defer stopWarming()
	if cfg.WarmCache {
		warmer := cache.NewCacheWarmer(catalogService, logger)
		if cfg.WarmInterval > 0 {
			go func() {
				if err := warmer.WarmPeriodic(warmCtx, cfg.WarmInterval); err != nil && !errors.Is(err, context.Canceled) {
					logger.Error("periodic cache warming stopped", zap.Error(err))
				}
			}()
		} else {
			ctx, cancel := context.WithTimeout(warmCtx, 30*time.Second)
			if err := warmer.Warm(ctx); err != nil {
				logger.Warn("cache warming failed", zap.Error(err))
			}
			cancel()
		}
	}

	if cfg.TestingMode {
		logger.Warn("Testing mode enabled; /test endpoint exposed")
	}
	router := httphandler.NewRouter(handler, httphandler.RouterConfig{
		RequestTimeout: cfg.RequestTimeout,
		RateLimiter:    limiter,
		TestEndpoints:  cfg.TestingMode,
	}, logger)

	srv := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
	}

	go func() {
		logger.Info("server starting", zap.String("addr", srv.Addr), zap.String("upstream", cfg.UpstreamURL))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	<-ctx.Done()
	stop()

	logger.Info("graceful shutdown triggered")
	httphandler.SetDraining(true)
	stopWarming()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}

	inFlight := httphandler.InFlightCount()
	logger.Info("waiting for in-flight requests", zap.Int64("count", inFlight))
	observability.RecordShutdownInFlight(inFlight)
	waitCtx, waitCancel := context.WithTimeout(context.Background(), cfg.ShutdownInFlightTimeout)
	defer waitCancel()
	if err := httphandler.WaitForInFlight(waitCtx, cfg.ShutdownInFlightCheckInterval); err != nil {
		logger.Warn("in-flight requests not completed", zap.Error(err), zap.Int64("remaining", httphandler.InFlightCount()))
	}

	if err := observability.FlushTelemetry(context.Background(), logger); err != nil {
		logger.Error("telemetry flush", zap.Error(err))
	}

	if memcacheCloser != nil {
		if err := memcacheCloser.Close(); err != nil {
			logger.Error("memcached close", zap.Error(err))
		}
	}
	logger.Info("shutdown complete")
}
