package http

import (
	"context"
	"sync/atomic"
	"time"
)

// InFlightTracker counts requests currently being served so shutdown can drain them.
type InFlightTracker struct {
	count atomic.Int64
}

// Begin marks a request as started and returns the func that marks it done.
func (t *InFlightTracker) Begin() (done func()) {
	t.count.Add(1)
	return func() { t.count.Add(-1) }
}

// Count returns the current in-flight count.
func (t *InFlightTracker) Count() int64 {
	return t.count.Load()
}

// WaitForZero blocks until nothing is in flight or ctx is done, polling every checkInterval.
func (t *InFlightTracker) WaitForZero(ctx context.Context, checkInterval time.Duration) error {
	if checkInterval <= 0 {
		checkInterval = 50 * time.Millisecond
	}
	ticker := time.NewTicker(checkInterval)
	defer ticker.Stop()
	for {
		if t.Count() == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// inFlight is the process-wide tracker fed by MetricsMiddleware.
var inFlight = &InFlightTracker{}

// InFlightCount returns the number of requests currently being served.
func InFlightCount() int64 {
	return inFlight.Count()
}

// WaitForInFlight blocks until in-flight requests reach zero or ctx is done.
func WaitForInFlight(ctx context.Context, checkInterval time.Duration) error {
	return inFlight.WaitForZero(ctx, checkInterval)
}

var draining atomic.Bool

// SetDraining marks the process as shutting down. /health reports shutting-down while set.
func SetDraining(v bool) {
	draining.Store(v)
}

// IsDraining reports whether shutdown has begun.
func IsDraining() bool {
	return draining.Load()
}
