package http

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kjstillabower/model-catalog/internal/observability"
)

// RouterConfig selects the middleware and optional routes mounted by NewRouter.
type RouterConfig struct {
	RequestTimeout time.Duration
	RateLimiter    *rate.Limiter // nil disables rate limiting
	TestEndpoints  bool          // mount GET /test and POST /test/{action}
}

// NewRouter mounts /health, /metrics and the /models routes. Rate limiting and
// request timeouts apply to /models only so health probes are never throttled.
func NewRouter(h *Handler, cfg RouterConfig, logger *zap.Logger) *mux.Router {
	router := mux.NewRouter()
	router.Use(CorrelationIDMiddleware(logger))
	router.Use(MetricsMiddleware)
	router.HandleFunc("/health", h.GetHealth).Methods(http.MethodGet)
	router.Handle("/metrics", observability.MetricsHandler())

	modelsRouter := router.PathPrefix("/models").Subrouter()
	modelsRouter.Use(RateLimitMiddleware(cfg.RateLimiter))
	if cfg.RequestTimeout > 0 {
		modelsRouter.Use(TimeoutMiddleware(cfg.RequestTimeout))
	}
	modelsRouter.HandleFunc("", h.ListModels).Methods(http.MethodGet)
	modelsRouter.HandleFunc("/{id:.+}", h.GetModel).Methods(http.MethodGet)

	if cfg.TestEndpoints {
		router.HandleFunc("/test", h.GetTestStatus).Methods(http.MethodGet)
		router.HandleFunc("/test/{action}", h.PostTestAction).Methods(http.MethodPost)
	}
	return router
}
