package observability

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

// TestMetrics_Usable verifies that label dimensions match their use in the
// client, http, service and cache packages.
func TestMetrics_Usable(t *testing.T) {
	HTTPRequestsTotal.WithLabelValues("GET", "/models/{id}", "2xx").Inc()
	HTTPRequestDuration.WithLabelValues("GET", "/models").Observe(0.01)
	UpstreamCallsTotal.WithLabelValues("success").Inc()
	UpstreamDuration.WithLabelValues("server_error").Observe(0.1)
	UpstreamErrorsTotal.WithLabelValues("timeout").Inc()
	CacheHitsTotal.WithLabelValues("catalog").Inc()
	CacheMissesTotal.WithLabelValues("catalog").Inc()
	CacheErrorsTotal.WithLabelValues("get", "timeout").Inc()
	ModelsExcludedTotal.WithLabelValues("hidden").Inc()
	CatalogModels.WithLabelValues("visible").Set(3)
}

func TestRecordCircuitTransition(t *testing.T) {
	before := testutil.ToFloat64(CircuitBreakerTransitionsTotal.WithLabelValues("test_upstream", "closed", "open"))
	RecordCircuitTransition("test_upstream", "closed", "open")
	after := testutil.ToFloat64(CircuitBreakerTransitionsTotal.WithLabelValues("test_upstream", "closed", "open"))
	if after-before != 1 {
		t.Errorf("transitions delta = %v, want 1", after-before)
	}
	if got := testutil.ToFloat64(CircuitBreakerState.WithLabelValues("test_upstream")); got != 1 {
		t.Errorf("state gauge = %v, want 1 (open)", got)
	}
	RecordCircuitTransition("test_upstream", "open", "half-open")
	if got := testutil.ToFloat64(CircuitBreakerState.WithLabelValues("test_upstream")); got != 2 {
		t.Errorf("state gauge = %v, want 2 (half-open)", got)
	}
}

func TestRegisterTrafficGauges_Idempotent(t *testing.T) {
	RegisterTrafficGauges(time.Minute)
	RegisterTrafficGauges(time.Minute) // must not panic on duplicate registration
}

// TestMetricsHandler_ServesPrometheusFormat verifies that MetricsHandler serves
// Prometheus text exposition format with correct HTTP status and metric output.
func TestMetricsHandler_ServesPrometheusFormat(t *testing.T) {
	HTTPRequestsTotal.WithLabelValues("GET", "/health", "2xx").Inc()
	handler := MetricsHandler()
	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("MetricsHandler status = %d, want 200", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, "httpRequestsTotal") {
		t.Error("MetricsHandler response should contain metric output")
	}
}
