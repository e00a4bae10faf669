package worker

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/sla-engine/internal/config"
	"github.com/spec-kit/sla-engine/internal/persistence"
	"github.com/spec-kit/sla-engine/internal/service"
)

const sweepLockKey = "sla:sweep:lock"

// StartMonitorWorker runs the escalation sweep on a fixed cadence until
// the context is cancelled. A redis lease keeps concurrent instances from
// sweeping simultaneously; the compare-and-set on escalated_at makes the
// lease an optimization, not a correctness requirement.
func StartMonitorWorker(ctx context.Context, monitor *service.MonitorService, redis *persistence.Redis, cfg config.MonitorConfig, logger *zap.Logger) {
	if monitor == nil {
		return
	}
	owner := uuid.NewString()

	go func() {
		ticker := time.NewTicker(cfg.SweepInterval())
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				runSweep(ctx, monitor, redis, cfg, logger, owner, now)
			}
		}
	}()
}

func runSweep(ctx context.Context, monitor *service.MonitorService, redis *persistence.Redis, cfg config.MonitorConfig, logger *zap.Logger, owner string, now time.Time) {
	acquired, err := redis.AcquireLock(ctx, sweepLockKey, owner, cfg.LockTTL())
	if err != nil {
		logger.Warn("sweep lock unavailable", zap.Error(err))
		return
	}
	if !acquired {
		logger.Debug("sweep skipped; another instance holds the lock")
		return
	}
	defer func() {
		if err := redis.ReleaseLock(ctx, sweepLockKey, owner); err != nil {
			logger.Warn("sweep lock release failed", zap.Error(err))
		}
	}()

	result, err := monitor.Sweep(ctx, now)
	if err != nil {
		logger.Error("sweep failed", zap.Error(err))
		return
	}
	logger.Debug("sweep completed",
		zap.Int("scanned", result.Scanned),
		zap.Int("escalated", result.Escalated),
		zap.Int("breached", result.Breached))
}
