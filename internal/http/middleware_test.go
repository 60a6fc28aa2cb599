package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kjstillabower/model-catalog/internal/observability"
	"github.com/kjstillabower/model-catalog/internal/traffic"
)

func TestCorrelationIDMiddleware_GeneratesID(t *testing.T) {
	var seen string
	handler := CorrelationIDMiddleware(zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = observability.CorrelationID(r.Context())
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if seen == "" {
		t.Fatal("correlation ID not set in context")
	}
	if got := rec.Header().Get("X-Correlation-ID"); got != seen {
		t.Errorf("header = %q, context = %q", got, seen)
	}
}

func TestCorrelationIDMiddleware_PropagatesID(t *testing.T) {
	var seen string
	handler := CorrelationIDMiddleware(zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = observability.CorrelationID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Correlation-ID", "abc")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if seen != "abc" {
		t.Errorf("correlation ID = %q, want abc", seen)
	}
}

func TestTimeoutMiddleware_SetsDeadline(t *testing.T) {
	var hasDeadline bool
	handler := TimeoutMiddleware(50 * time.Millisecond)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, hasDeadline = r.Context().Deadline()
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	if !hasDeadline {
		t.Error("request context has no deadline")
	}
}

func TestTimeoutMiddleware_Expires(t *testing.T) {
	var ctxErr error
	handler := TimeoutMiddleware(time.Millisecond)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
		ctxErr = r.Context().Err()
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	if ctxErr != context.DeadlineExceeded {
		t.Errorf("ctx.Err() = %v, want DeadlineExceeded", ctxErr)
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	resetState(t)
	limiter := rate.NewLimiter(rate.Limit(1), 1)
	before := testutil.ToFloat64(observability.RateLimitDeniedTotal)
	handler := RateLimitMiddleware(limiter)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("first request status = %d, want 200", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second request status = %d, want 429", rec.Code)
	}
	if got := traffic.DenialCount(time.Minute); got != 1 {
		t.Errorf("DenialCount = %d, want 1", got)
	}
	if got := testutil.ToFloat64(observability.RateLimitDeniedTotal) - before; got != 1 {
		t.Errorf("rateLimitDeniedTotal delta = %v, want 1", got)
	}
}

func TestRateLimitMiddleware_NilLimiter(t *testing.T) {
	handler := RateLimitMiddleware(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	for i := 0; i < 5; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
	}
}

// TestMetricsMiddleware_UsesRouteTemplate verifies model IDs do not leak into metric labels.
func TestMetricsMiddleware_UsesRouteTemplate(t *testing.T) {
	router := mux.NewRouter()
	router.Use(MetricsMiddleware)
	router.HandleFunc("/models/{id:.+}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	counter := observability.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/models/{id:.+}", "4xx")
	before := testutil.ToFloat64(counter)
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/models/some-model", nil))

	if got := testutil.ToFloat64(counter) - before; got != 1 {
		t.Errorf("httpRequestsTotal delta = %v, want 1", got)
	}
}

func TestStatusClass(t *testing.T) {
	tests := map[int]string{200: "2xx", 404: "4xx", 429: "4xx", 503: "5xx"}
	for code, want := range tests {
		if got := statusClass(code); got != want {
			t.Errorf("statusClass(%d) = %q, want %q", code, got, want)
		}
	}
}
