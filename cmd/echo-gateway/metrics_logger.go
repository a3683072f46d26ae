package main

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/kstaniek/go-wireframe/internal/metrics"
)

func startMetricsLogger(ctx context.Context, interval time.Duration, l *slog.Logger, wg *sync.WaitGroup) {
	if interval <= 0 {
		return
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-t.C:
				snap := metrics.Snap()
				l.Info("metrics_snapshot",
					"accepted", snap.Accepted,
					"rejected", snap.Rejected,
					"closed", snap.Closed,
					"recv", snap.Recv,
					"sent", snap.Sent,
					"failed", snap.Failed,
					"heartbeats", snap.Heartbeats,
					"input_timeouts", snap.Timeouts,
					"errors", snap.Errors,
				)
			case <-ctx.Done():
				return
			}
		}
	}()
}
