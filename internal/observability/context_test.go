package observability

import (
	"context"
	"testing"

	"go.uber.org/zap"
)

func TestCorrelationID_RoundTrip(t *testing.T) {
	ctx := context.Background()
	if got := CorrelationID(ctx); got != "" {
		t.Errorf("CorrelationID(empty) = %q, want empty", got)
	}
	ctx = WithCorrelationID(ctx, "abc-123")
	if got := CorrelationID(ctx); got != "abc-123" {
		t.Errorf("CorrelationID() = %q, want %q", got, "abc-123")
	}
}

// TestLoggerFromContext_DefaultsToNop verifies callers never receive a nil logger.
func TestLoggerFromContext_DefaultsToNop(t *testing.T) {
	if LoggerFromContext(context.Background()) == nil {
		t.Fatal("LoggerFromContext(empty) = nil, want no-op logger")
	}
	l := zap.NewExample()
	if got := LoggerFromContext(WithLogger(context.Background(), l)); got != l {
		t.Error("LoggerFromContext() did not return the stored logger")
	}
}
