package service

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Syncer runs one sync attempt.
type Syncer interface {
	Run(ctx context.Context) SyncOutcome
}

// StartAutoSync runs syncer every interval until ctx is done.
// A non-positive interval disables the loop.
func StartAutoSync(
	ctx context.Context,
	syncer Syncer,
	interval time.Duration,
	log *zap.Logger,
) {
	if interval <= 0 {
		return
	}
	if log == nil {
		log = zap.NewNop()
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				out := syncer.Run(ctx)
				switch {
				case out.Status == Synced:
					log.Info("auto-sync pushed entries",
						zap.Int("rows", out.Count),
						zap.Int64("watermark", out.Watermark),
					)
				case out.Status == Failed && IsBusy(out.Err):
					log.Debug("auto-sync skipped, sync already running")
				case out.Status == Failed:
					log.Error("auto-sync failed", zap.Error(out.Err))
				}
			}
		}
	}()
}
