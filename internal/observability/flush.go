package observability

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// FlushTelemetry flushes buffered log output before process exit.
// Prometheus is pull-based, so metrics need no flush. Returns ctx.Err() if the
// shutdown budget is already spent.
func FlushTelemetry(ctx context.Context, logger *zap.Logger) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("flush telemetry: %w", err)
	}
	if logger != nil {
		if err := logger.Sync(); err != nil {
			return fmt.Errorf("flush logs: %w", err)
		}
	}
	return nil
}
