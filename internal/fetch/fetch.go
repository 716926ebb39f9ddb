// Package fetch implements the feed-to-delivery-channel stage of the
// pipeline. The stage is a pure "one invocation, one window" function: the
// scheduling trigger lives with the caller.
package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/couchcryptid/firewatch-etl/internal/domain"
	"github.com/couchcryptid/firewatch-etl/internal/observability"
)

// Feed pulls raw detections covering a trailing window.
type Feed interface {
	FetchArea(ctx context.Context, window time.Duration) ([]domain.RawFireEvent, error)
}

// BatchSink receives fire batches bound for the process stage.
type BatchSink interface {
	WriteBatch(ctx context.Context, batch domain.FireBatch) error
}

// Stage turns one trigger invocation into a set of queued fire batches.
type Stage struct {
	feed      Feed
	sink      BatchSink
	logger    *slog.Logger
	metrics   *observability.Metrics
	batchSize int
	window    time.Duration
}

// New creates a fetch stage that batches the feed into batchSize groups.
func New(feed Feed, sink BatchSink, logger *slog.Logger, metrics *observability.Metrics, batchSize int, window time.Duration) *Stage {
	return &Stage{
		feed:      feed,
		sink:      sink,
		logger:    logger,
		metrics:   metrics,
		batchSize: batchSize,
		window:    window,
	}
}

// Fetch pulls the trailing window from the feed and queues it in fixed-size
// batches, returning the number of detections queued. An empty feed is a
// valid, non-error outcome that queues nothing.
func (s *Stage) Fetch(ctx context.Context) (int, error) {
	fires, err := s.feed.FetchArea(ctx, s.window)
	if err != nil {
		s.metrics.FetchErrors.Inc()
		return 0, fmt.Errorf("fetch detections: %w", err)
	}
	s.metrics.FiresFetched.Add(float64(len(fires)))

	if len(fires) == 0 {
		s.logger.Info("no active fires in window", "window", s.window)
		return 0, nil
	}

	queued := 0
	batches := 0
	for start := 0; start < len(fires); start += s.batchSize {
		end := min(start+s.batchSize, len(fires))
		batch := domain.FireBatch{
			BatchID:  uuid.NewString(),
			Fires:    fires[start:end],
			QueuedAt: domain.Now().UTC(),
		}
		if err := s.sink.WriteBatch(ctx, batch); err != nil {
			s.metrics.FetchErrors.Inc()
			return queued, fmt.Errorf("queue batch %s: %w", batch.BatchID, err)
		}
		queued += len(batch.Fires)
		batches++
		s.metrics.BatchesQueued.Inc()
	}

	s.logger.Info("queued fire batches", "fires", queued, "batches", batches, "window", s.window)
	return queued, nil
}
