package routines

import (
	"context"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

type Cleaner interface {
	Cleanup() (int, error)
}

// StartCleanupRoutine runs c.Cleanup immediately and then every interval
// until ctx is cancelled.
func StartCleanupRoutine(ctx context.Context, c Cleaner, interval time.Duration, logger log.Logger) {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	logger = log.With(logger, "component", "cleanup")

	cleanupRoutine(c, logger)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cleanupRoutine(c, logger)
		}
	}
}

func cleanupRoutine(c Cleaner, logger log.Logger) {
	n, err := c.Cleanup()
	if err != nil {
		level.Error(logger).Log("msg", "cleanup failed", "err", err)
		return
	}
	if n > 0 {
		level.Info(logger).Log("msg", "deleted expired reservations", "count", n)
	}
}
