package services

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// StartSettlementSweeper runs svc.RecoverPending every interval until ctx is
// cancelled. The returned channel closes once the sweeper has stopped.
func StartSettlementSweeper(ctx context.Context, svc PaymentService, interval time.Duration, logger *zap.Logger) <-chan struct{} {
	done := make(chan struct{})
	if interval <= 0 {
		logger.Warn("settlement sweeper not started: non-positive interval", zap.Duration("interval", interval))
		close(done)
		return done
	}

	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		logger.Info("settlement sweeper started", zap.Duration("interval", interval))
		for {
			select {
			case <-ctx.Done():
				logger.Info("settlement sweeper stopping")
				return
			case <-ticker.C:
				sweepCtx, cancel := context.WithTimeout(ctx, interval)
				if _, err := svc.RecoverPending(sweepCtx); err != nil && ctx.Err() == nil {
					logger.Error("settlement sweep failed", zap.Error(err))
				}
				cancel()
			}
		}
	}()
	return done
}
