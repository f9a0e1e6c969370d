package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/aretw0/arbor/internal/cli"
)

// collectExpired removes expired results every interval until ctx is done.
func collectExpired(ctx context.Context, backend *cli.Backend, interval time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := backend.Sessions.ClearExpired(ctx)
			if err != nil {
				logger.Warn("expired result cleanup failed", "err", err)
				continue
			}
			if n > 0 {
				logger.Info("expired results removed", "count", n)
			}
		}
	}
}
