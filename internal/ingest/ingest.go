package ingest

import (
	"context"
	"log/slog"
	"time"

	"framewatch/internal/metrics"
	"framewatch/internal/model"
)

// SendObservation blocks until the pipeline accepts the observation or
// ctx is cancelled. Delivery order within a source must be preserved,
// so a full channel applies backpressure instead of dropping.
func SendObservation(ctx context.Context, out chan<- model.FrameObservation, obs model.FrameObservation) bool {
	select {
	case out <- obs:
		return true
	case <-ctx.Done():
		return false
	}
}

func recordIngested(source string) {
	metrics.ObservationsIngested.WithLabelValues(source).Inc()
}

func recordRejected(source string, logger *slog.Logger, err error) {
	metrics.ObservationsRejected.WithLabelValues(source).Inc()
	if logger != nil {
		logger.Warn("observation rejected", "source", source, "err", err)
	}
}

func BackoffSleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		d = 200 * time.Millisecond
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
