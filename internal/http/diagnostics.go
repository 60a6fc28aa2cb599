package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/kjstillabower/model-catalog/internal/observability"
	"github.com/kjstillabower/model-catalog/internal/traffic"
)

// GetTestStatus handles GET /test. Returns the traffic counters behind /health.
// Registered only when test endpoints are enabled.
func (h *Handler) GetTestStatus(w http.ResponseWriter, r *http.Request) {
	window := h.degradedWindow()
	errs, total := traffic.ErrorRate(window)

	cfg := make(map[string]interface{})
	if h.healthConfig != nil {
		cfg["rate_limit_rps"] = h.healthConfig.RateLimitRPS
		cfg["rate_limit_burst"] = h.healthConfig.RateLimitBurst
		cfg["overload_threshold"] = int(h.overloadThreshold())
		cfg["overload_window_seconds"] = h.healthConfig.OverloadWindow.Seconds()
		cfg["degraded_error_pct"] = h.healthConfig.DegradedErrorPct
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"total_requests_in_window":  total,
		"denied_requests_in_window": traffic.DenialCount(window),
		"errors_in_window":          errs,
		"window_length":             window.String(),
		"state":                     h.computeHealthStatus().status,
		"config":                    cfg,
	})
}

// PostTestAction handles POST /test/{action} for load, error, reset and shutdown.
func (h *Handler) PostTestAction(w http.ResponseWriter, r *http.Request) {
	action := mux.Vars(r)["action"]
	switch action {
	case "load":
		h.postTestLoad(w, r)
	case "error":
		h.postTestError(w, r)
	case "reset":
		traffic.Reset()
		SetDraining(false)
		writeJSON(w, http.StatusOK, testResponse("reset", "All simulated state cleared", h.computeHealthStatus().status))
	case "shutdown":
		SetDraining(true)
		writeJSON(w, http.StatusOK, testResponse("shutdown", "Shutting-down flag set", h.computeHealthStatus().status))
	default:
		writeError(w, r, http.StatusNotFound, "UNKNOWN_ACTION", "unknown test action: "+action)
	}
}

// postTestLoad records count simulated requests, passing each through the rate limiter when one is configured.
func (h *Handler) postTestLoad(w http.ResponseWriter, r *http.Request) {
	count := decodeCount(r, 10)
	var accepted, denied int
	for i := 0; i < count; i++ {
		if h.rateLimiter != nil && !h.rateLimiter.Allow() {
			traffic.RecordDenied()
			observability.RateLimitDeniedTotal.Inc()
			denied++
			continue
		}
		traffic.RecordSuccess()
		accepted++
	}
	msg := "Recorded " + strconv.Itoa(accepted) + " accepted"
	if denied > 0 {
		msg += ", " + strconv.Itoa(denied) + " denied"
	}
	resp := testResponse("load", msg, h.computeHealthStatus().status)
	resp["accepted"] = accepted
	resp["denied"] = denied
	writeJSON(w, http.StatusOK, resp)
}

// postTestError records count simulated upstream failures.
func (h *Handler) postTestError(w http.ResponseWriter, r *http.Request) {
	count := decodeCount(r, 1)
	for i := 0; i < count; i++ {
		traffic.RecordError()
	}
	errs, total := traffic.ErrorRate(h.degradedWindow())
	pct := 0
	if total > 0 {
		pct = errs * 100 / total
	}
	resp := testResponse("error", "Recorded "+strconv.Itoa(count)+" errors", h.computeHealthStatus().status)
	resp["error_rate_pct"] = pct
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) degradedWindow() time.Duration {
	if h.healthConfig != nil && h.healthConfig.DegradedWindow > 0 {
		return h.healthConfig.DegradedWindow
	}
	return 60 * time.Second
}

// maxTestCount bounds the simulated events a single /test call may record.
const maxTestCount = 10000

func decodeCount(r *http.Request, def int) int {
	var body struct {
		Count int `json:"count"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Count <= 0 {
		return def
	}
	if body.Count > maxTestCount {
		return maxTestCount
	}
	return body.Count
}

func testResponse(action, message, state string) map[string]interface{} {
	return map[string]interface{}{
		"ok":      true,
		"action":  action,
		"message": message,
		"state":   state,
	}
}
