package observability

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kjstillabower/model-catalog/internal/traffic"
)

var (
	registry *prometheus.Registry

	// HTTP request rate. Watch for: sudden drops (service down) or spikes (traffic surge).
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTP request latency per request. Watch for: p95/p99 latency increases.
	HTTPRequestDuration *prometheus.HistogramVec

	// Concurrent requests in flight. Watch for: saturation.
	HTTPRequestsInFlight prometheus.Gauge

	// Upstream /v1/models call rate by outcome.
	UpstreamCallsTotal *prometheus.CounterVec

	// Upstream latency per call. Watch for: p95 > 2s (upstream degradation).
	UpstreamDuration *prometheus.HistogramVec

	// Retry attempts against the upstream. High values mean an unstable upstream.
	UpstreamRetriesTotal prometheus.Counter

	// Upstream failures by category (timeout, unauthorized, upstream_5xx, ...).
	UpstreamErrorsTotal *prometheus.CounterVec

	CacheHitsTotal   *prometheus.CounterVec
	CacheMissesTotal *prometheus.CounterVec

	// Cache backend failures by operation and category.
	CacheErrorsTotal *prometheus.CounterVec

	// Listings served to clients.
	ModelListingsTotal prometheus.Counter

	// Models dropped from listings, by exclusion reason (hidden, arena_owner, arena_flag).
	ModelsExcludedTotal *prometheus.CounterVec

	// Size of the last catalog seen, by kind (upstream, visible).
	CatalogModels *prometheus.GaugeVec

	// Catalogs served from the last good copy after an upstream failure.
	StaleCatalogServesTotal prometheus.Counter

	// Callers that shared an in-flight upstream fetch instead of issuing their own.
	CoalescedFetchesTotal prometheus.Counter

	// Circuit breaker state per component: 0 closed, 1 open, 2 half-open.
	CircuitBreakerState *prometheus.GaugeVec

	CircuitBreakerTransitionsTotal *prometheus.CounterVec

	// Rate limit denials. Watch for: overload, capacity exceeded.
	RateLimitDeniedTotal prometheus.Counter

	CacheWarmingTotal           prometheus.Counter
	CacheWarmingErrorsTotal     prometheus.Counter
	CacheWarmingDurationSeconds prometheus.Histogram

	// In-flight requests at the moment shutdown began.
	ShutdownInFlightRequests prometheus.Gauge

	trafficGaugesOnce sync.Once
)

func init() {
	registry = prometheus.NewRegistry()

	registry.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)

	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "httpRequestsTotal",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "statusCode"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "httpRequestDurationSeconds",
			Help:    "HTTP request latency in seconds (per request)",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
	HTTPRequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "httpRequestsInFlight",
			Help: "Number of HTTP requests currently being served",
		},
	)
	UpstreamCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upstreamCallsTotal",
			Help: "Total number of upstream model list calls",
		},
		[]string{"status"},
	)
	UpstreamDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "upstreamDurationSeconds",
			Help:    "Upstream model list latency in seconds (per call)",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"status"},
	)
	UpstreamRetriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "upstreamRetriesTotal",
			Help: "Total number of retry attempts for upstream model list calls",
		},
	)
	UpstreamErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upstreamErrorsTotal",
			Help: "Upstream failures by error category",
		},
		[]string{"category"},
	)
	CacheHitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cacheHitsTotal",
			Help: "Total number of catalog cache hits",
		},
		[]string{"cacheType"},
	)
	CacheMissesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cacheMissesTotal",
			Help: "Total number of catalog cache misses",
		},
		[]string{"cacheType"},
	)
	CacheErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cacheErrorsTotal",
			Help: "Cache backend errors by operation and category",
		},
		[]string{"operation", "category"},
	)
	ModelListingsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "modelListingsTotal",
			Help: "Total number of model listings served",
		},
	)
	ModelsExcludedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "modelsExcludedTotal",
			Help: "Models dropped from listings by exclusion reason",
		},
		[]string{"reason"},
	)
	CatalogModels = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "catalogModels",
			Help: "Number of models in the last catalog (kind=upstream|visible)",
		},
		[]string{"kind"},
	)
	StaleCatalogServesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "staleCatalogServesTotal",
			Help: "Catalogs served from the last good copy after an upstream failure",
		},
	)
	CoalescedFetchesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "coalescedFetchesTotal",
			Help: "Callers that shared an in-flight upstream fetch",
		},
	)
	CircuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuitBreakerState",
			Help: "Circuit breaker state (0 closed, 1 open, 2 half-open)",
		},
		[]string{"component"},
	)
	CircuitBreakerTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuitBreakerTransitionsTotal",
			Help: "Circuit breaker state transitions",
		},
		[]string{"component", "from", "to"},
	)
	RateLimitDeniedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rateLimitDeniedTotal",
			Help: "Total number of requests denied by rate limiter (429)",
		},
	)
	CacheWarmingTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cacheWarmingTotal",
			Help: "Total number of catalog refresh runs",
		},
	)
	CacheWarmingErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cacheWarmingErrorsTotal",
			Help: "Catalog refresh runs that failed",
		},
	)
	CacheWarmingDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cacheWarmingDurationSeconds",
			Help:    "Catalog refresh duration in seconds",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30},
		},
	)
	ShutdownInFlightRequests = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "shutdownInFlightRequests",
			Help: "In-flight requests when graceful shutdown started",
		},
	)

	registry.MustRegister(
		HTTPRequestsTotal, HTTPRequestDuration, HTTPRequestsInFlight,
		UpstreamCallsTotal, UpstreamDuration, UpstreamRetriesTotal, UpstreamErrorsTotal,
		CacheHitsTotal, CacheMissesTotal, CacheErrorsTotal,
		ModelListingsTotal, ModelsExcludedTotal, CatalogModels,
		StaleCatalogServesTotal, CoalescedFetchesTotal,
		CircuitBreakerState, CircuitBreakerTransitionsTotal,
		RateLimitDeniedTotal,
		CacheWarmingTotal, CacheWarmingErrorsTotal, CacheWarmingDurationSeconds,
		ShutdownInFlightRequests,
	)
}

// RegisterTrafficGauges registers request and reject gauges over the overload window.
// Safe to call more than once; only the first window wins.
func RegisterTrafficGauges(window time.Duration) {
	trafficGaugesOnce.Do(func() {
		registry.MustRegister(
			prometheus.NewGaugeFunc(
				prometheus.GaugeOpts{
					Name: "rateLimitRequestsInWindow",
					Help: "Requests hitting the rate-limited path in the sliding window",
				},
				func() float64 { return float64(traffic.RequestCount(window)) },
			),
			prometheus.NewGaugeFunc(
				prometheus.GaugeOpts{
					Name: "rateLimitRejectsInWindow",
					Help: "429 responses in the sliding window",
				},
				func() float64 { return float64(traffic.DenialCount(window)) },
			),
		)
	})
}

// CircuitStateValue maps a breaker state name to the circuitBreakerState gauge value.
func CircuitStateValue(state string) float64 {
	switch state {
	case "open":
		return 1
	case "half-open":
		return 2
	default:
		return 0
	}
}

// RecordCircuitTransition updates breaker metrics for a state change.
func RecordCircuitTransition(component, from, to string) {
	CircuitBreakerTransitionsTotal.WithLabelValues(component, from, to).Inc()
	CircuitBreakerState.WithLabelValues(component).Set(CircuitStateValue(to))
}

// RecordShutdownInFlight records the in-flight count observed at shutdown.
func RecordShutdownInFlight(n int64) {
	ShutdownInFlightRequests.Set(float64(n))
}

// MetricsHandler returns an http.Handler that serves application and runtime metrics.
func MetricsHandler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
