// internal/cleanup/cleanup.go
package cleanup

import (
	"context"
	"time"

	"swcbackend/internal/config"
	"swcbackend/internal/data"
	"swcbackend/internal/logger"
)

const sweepInterval = time.Hour

// StartOrderSweep runs a periodic sweep that marks stale, never-approved
// orders expired. Approved or captured orders are untouched; cancelled
// checkouts leave their orders behind and this is where they age out.
func StartOrderSweep(ctx context.Context) {
	go func() {
		logger.LogInfo("Order sweep started - running every %v, expiring after %v",
			sweepInterval, config.OrderExpiry())

		ticker := time.NewTicker(sweepInterval)
		defer ticker.Stop()

		// First pass shortly after startup to catch orders stranded by a
		// previous run.
		runSweep(ctx)

		for {
			select {
			case <-ctx.Done():
				logger.LogInfo("Order sweep stopped")
				return
			case <-ticker.C:
				runSweep(ctx)
			}
		}
	}()
}

func runSweep(ctx context.Context) {
	expired, err := data.ExpireStaleOrders(ctx, config.OrderExpiry())
	if err != nil {
		logger.LogError("Order sweep failed: %v", err)
		return
	}
	if expired > 0 {
		logger.LogInfo("Order sweep expired %d stale orders", expired)
	}
}
