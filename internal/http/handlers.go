package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kjstillabower/model-catalog/internal/models"
	"github.com/kjstillabower/model-catalog/internal/observability"
	"github.com/kjstillabower/model-catalog/internal/service"
	"github.com/kjstillabower/model-catalog/internal/traffic"
	"github.com/kjstillabower/model-catalog/internal/validation"
)

// CatalogReader is the read side of the catalog service used by the handlers.
type CatalogReader interface {
	ListModels(ctx context.Context, opts service.ListOptions) (service.Listing, error)
	GetModel(ctx context.Context, id string) (models.ModelRecord, error)
}

// HandlerConfig holds listing options for the model handlers.
type HandlerConfig struct {
	AllowIncludeHidden bool // honor ?include_hidden=true
	ModelIDMaxLength   int
}

// HealthConfig holds lifecycle thresholds for the health handler.
type HealthConfig struct {
	OverloadWindow       time.Duration
	OverloadThresholdPct int
	RateLimitRPS         int
	RateLimitBurst       int // 0 when rate limiter disabled
	DegradedWindow       time.Duration
	DegradedErrorPct     int
	// CachePing, when set, is called to check cache reachability. Used when backend is memcached.
	CachePing func() error
	// BreakerState, when set, reports the upstream circuit breaker state ("closed", "open", "half-open", "disabled").
	BreakerState func() string
}

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	catalog          CatalogReader
	config           HandlerConfig
	healthConfig     *HealthConfig
	logger           *zap.Logger
	rateLimiter      *rate.Limiter
	healthStatusMu   sync.Mutex
	healthStatusPrev string
}

// NewHandler returns a new Handler.
func NewHandler(
	catalog CatalogReader,
	config HandlerConfig,
	healthConfig *HealthConfig,
	logger *zap.Logger,
	rateLimiter *rate.Limiter,
) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		catalog:      catalog,
		config:       config,
		healthConfig: healthConfig,
		logger:       logger,
		rateLimiter:  rateLimiter,
	}
}

type modelList struct {
	Object string               `json:"object"`
	Data   []models.ModelRecord `json:"data"`
	Stale  bool                 `json:"stale"`
}

// ListModels handles GET /models.
func (h *Handler) ListModels(w http.ResponseWriter, r *http.Request) {
	opts := service.ListOptions{}
	if v := r.URL.Query().Get("include_hidden"); v != "" {
		include, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "INVALID_PARAMETER", "include_hidden must be a boolean")
			return
		}
		if include && !h.config.AllowIncludeHidden {
			writeError(w, r, http.StatusForbidden, "INCLUDE_HIDDEN_DISABLED", "include_hidden is not enabled")
			return
		}
		opts.IncludeHidden = include
	}

	listing, err := h.catalog.ListModels(r.Context(), opts)
	if err != nil {
		traffic.RecordError()
		writeServiceError(w, r, err)
		return
	}
	traffic.RecordSuccess()
	writeJSON(w, http.StatusOK, modelList{Object: "list", Data: listing.Models, Stale: listing.Stale})
}

// GetModel handles GET /models/{id}.
func (h *Handler) GetModel(w http.ResponseWriter, r *http.Request) {
	id, err := validation.ValidateModelID(mux.Vars(r)["id"], h.config.ModelIDMaxLength)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_MODEL_ID", err.Error())
		return
	}

	m, err := h.catalog.GetModel(r.Context(), id)
	if errors.Is(err, service.ErrModelNotFound) {
		traffic.RecordSuccess()
		writeError(w, r, http.StatusNotFound, "MODEL_NOT_FOUND", "model not found: "+id)
		return
	}
	if err != nil {
		traffic.RecordError()
		writeServiceError(w, r, err)
		return
	}
	traffic.RecordSuccess()
	writeJSON(w, http.StatusOK, m)
}

// healthResult holds the computed health status and metadata for logging.
type healthResult struct {
	status     string
	statusCode int
	reason     string
}

// GetHealth handles GET /health.
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	result := h.computeHealthStatus()

	h.healthStatusMu.Lock()
	prev := h.healthStatusPrev
	if prev != "" && prev != result.status {
		h.logger.Info("health status transition",
			zap.String("previous_status", prev),
			zap.String("current_status", result.status),
			zap.String("reason", result.reason))
	}
	h.healthStatusPrev = result.status
	h.healthStatusMu.Unlock()

	checks := make(map[string]string)
	if result.reason == "circuit_open" {
		checks["upstream"] = "unhealthy"
	} else {
		checks["upstream"] = "healthy"
	}
	if h.healthConfig != nil && h.healthConfig.CachePing != nil {
		if h.healthConfig.CachePing() == nil {
			checks["cache"] = "healthy"
		} else {
			checks["cache"] = "unhealthy"
		}
	}
	writeJSON(w, result.statusCode, map[string]interface{}{
		"status":    result.status,
		"service":   observability.ServiceName,
		"version":   "dev",
		"checks":    checks,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// computeHealthStatus evaluates conditions in priority order:
// shutting-down > circuit open > overloaded > degraded > healthy.
func (h *Handler) computeHealthStatus() healthResult {
	if IsDraining() {
		return healthResult{"shutting-down", http.StatusServiceUnavailable, "signal"}
	}
	if h.healthConfig == nil {
		return healthResult{"healthy", http.StatusOK, ""}
	}
	if h.healthConfig.BreakerState != nil && h.healthConfig.BreakerState() == "open" {
		return healthResult{"degraded", http.StatusServiceUnavailable, "circuit_open"}
	}
	if threshold := h.overloadThreshold(); threshold > 0 {
		if float64(traffic.DenialCount(h.healthConfig.OverloadWindow)) > threshold {
			return healthResult{"overloaded", http.StatusServiceUnavailable, "overload_threshold"}
		}
	}
	if h.healthConfig.DegradedWindow > 0 && h.healthConfig.DegradedErrorPct > 0 {
		errs, total := traffic.ErrorRate(h.healthConfig.DegradedWindow)
		if total > 0 {
			pct := float64(errs) * 100 / float64(total)
			if pct >= float64(h.healthConfig.DegradedErrorPct) {
				return healthResult{"degraded", http.StatusServiceUnavailable, "error_rate_breach"}
			}
		}
	}
	return healthResult{"healthy", http.StatusOK, ""}
}

// overloadThreshold is the number of denials within OverloadWindow that marks the service overloaded.
// Zero when the rate limiter is disabled.
func (h *Handler) overloadThreshold() float64 {
	if h.healthConfig.RateLimitRPS <= 0 || h.healthConfig.OverloadWindow <= 0 {
		return 0
	}
	return float64(h.healthConfig.RateLimitRPS) * h.healthConfig.OverloadWindow.Seconds() *
		float64(h.healthConfig.OverloadThresholdPct) / 100
}

// writeJSON writes a JSON response with the specified HTTP status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes an error response in the standard error format with code, message,
// and requestId (correlation ID) if available in request context.
func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]string{
			"code":      code,
			"message":   message,
			"requestId": observability.CorrelationID(r.Context()),
		},
	})
}

// writeServiceError writes a 503 for upstream failures and logs the cause at DEBUG.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	writeError(w, r, http.StatusServiceUnavailable, "UPSTREAM_UNAVAILABLE", "Unable to fetch model catalog")
	observability.LoggerFromContext(r.Context()).Debug("upstream error", zap.Error(err))
}
