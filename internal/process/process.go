// Package process implements the consume side of the pipeline: validate,
// fingerprint, enrich, and persist each detection in a batch, route terminal
// failures to the dead-letter channel, and emit alerts for genuinely new
// fires.
package process

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/firewatch-etl/internal/domain"
	"github.com/couchcryptid/firewatch-etl/internal/observability"
	"github.com/couchcryptid/firewatch-etl/internal/store"
)

// BatchSource yields the next raw batch from the delivery channel.
type BatchSource interface {
	ExtractBatch(ctx context.Context) (domain.RawBatch, error)
}

// DeadLetterSink receives events that terminally failed processing.
type DeadLetterSink interface {
	Write(ctx context.Context, dl domain.DeadLetter) error
}

// ChangeDetector surrenders the alert groups accumulated during one cycle.
type ChangeDetector interface {
	Flush() []domain.AlertGroup
}

// Notifier publishes one alert group summary.
type Notifier interface {
	Notify(ctx context.Context, group domain.AlertGroup) error
}

// Stage consumes fire batches and drives each event to a terminal state.
type Stage struct {
	source      BatchSource
	store       store.Store
	geocoder    domain.Geocoder // nil disables enrichment
	deadLetters DeadLetterSink
	detector    ChangeDetector
	notifier    Notifier
	logger      *slog.Logger
	metrics     *observability.Metrics
	concurrency int
	ready       atomic.Bool
}

// New creates a process stage with the given collaborators. concurrency
// bounds the per-batch worker pool; it mainly exists to keep enrichment
// inside the geocoding API's rate limit.
func New(source BatchSource, st store.Store, geocoder domain.Geocoder, deadLetters DeadLetterSink,
	detector ChangeDetector, notifier Notifier, logger *slog.Logger, metrics *observability.Metrics,
	concurrency int,
) *Stage {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Stage{
		source:      source,
		store:       st,
		geocoder:    geocoder,
		deadLetters: deadLetters,
		detector:    detector,
		notifier:    notifier,
		logger:      logger,
		metrics:     metrics,
		concurrency: concurrency,
	}
}

// CheckReadiness returns nil once the stage has processed at least one batch.
func (s *Stage) CheckReadiness(_ context.Context) error {
	if !s.ready.Load() {
		return errors.New("process stage has not handled a batch yet")
	}
	return nil
}

// Run executes the consume loop until the context is cancelled.
func (s *Stage) Run(ctx context.Context) error {
	s.logger.Info("process stage started", "concurrency", s.concurrency)
	s.metrics.PipelineRunning.Set(1)
	defer s.metrics.PipelineRunning.Set(0)

	// Exponential backoff for channel-level failures: start at 200ms, double
	// each retry, cap at 5s.
	backoff := initialBackoff

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("process stage stopping", "reason", ctx.Err())
			return nil
		default:
		}

		raw, err := s.source.ExtractBatch(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			s.logger.Error("extract batch failed", "error", err)
			if !sleepWithContext(ctx, backoff) {
				return nil
			}
			backoff = nextBackoff(backoff, maxBackoff)
			continue
		}
		backoff = initialBackoff

		s.handleRaw(ctx, raw)
	}
}

// handleRaw drives one raw message to acknowledgment. A batch whose events
// all reached a terminal state is committed; any channel-level failure leaves
// the message uncommitted so the substrate redelivers it, which idempotent
// upserts make safe.
func (s *Stage) handleRaw(ctx context.Context, raw domain.RawBatch) {
	start := time.Now()

	var batch domain.FireBatch
	if err := json.Unmarshal(raw.Value, &batch); err != nil {
		// Poison envelope: redelivery cannot fix a payload that does not
		// parse, so commit and move on.
		s.logger.Error("malformed batch envelope",
			"error", err, "topic", raw.Topic, "partition", raw.Partition, "offset", raw.Offset)
		s.metrics.EnvelopeErrors.Inc()
		s.commit(ctx, raw)
		return
	}

	s.metrics.BatchesConsumed.Inc()
	s.metrics.BatchSize.Observe(float64(len(batch.Fires)))

	summary, err := s.processBatch(ctx, batch)
	if err != nil {
		s.logger.Error("batch not acknowledged, awaiting redelivery",
			"error", err, "batch_id", batch.BatchID)
		return
	}

	s.commit(ctx, raw)
	s.ready.Store(true)
	s.metrics.BatchProcessingDuration.Observe(time.Since(start).Seconds())

	s.logger.Info("batch processed",
		"batch_id", batch.BatchID,
		"stored", summary.Stored,
		"duplicates", summary.Duplicates,
		"dead_lettered", summary.DeadLettered,
	)

	s.emitAlerts(ctx)
}

// Summary counts the terminal outcomes of one batch.
type Summary struct {
	Stored       int
	Duplicates   int
	DeadLettered int
}

const (
	statusStored = iota
	statusDuplicate
	statusDeadLetter
)

type outcome struct {
	status int
	fire   domain.RawFireEvent
	reason string
}

// processBatch runs every event in the batch to a terminal state. Events are
// independent: one event's failure never blocks its siblings. The returned
// error is batch-level only (a dead-letter publish failed), in which case the
// caller must not acknowledge the batch.
func (s *Stage) processBatch(ctx context.Context, batch domain.FireBatch) (Summary, error) {
	outcomes := make([]outcome, len(batch.Fires))

	sem := make(chan struct{}, s.concurrency)
	var wg sync.WaitGroup
	for i, fire := range batch.Fires {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, fire domain.RawFireEvent) {
			defer wg.Done()
			defer func() { <-sem }()
			outcomes[i] = s.processFire(ctx, fire)
		}(i, fire)
	}
	wg.Wait()

	var summary Summary
	for _, o := range outcomes {
		switch o.status {
		case statusStored:
			summary.Stored++
			s.metrics.FiresStored.Inc()
		case statusDuplicate:
			summary.Duplicates++
			s.metrics.FiresDuplicate.Inc()
		case statusDeadLetter:
			dl := domain.DeadLetter{Fire: o.fire, Reason: o.reason, FailedAt: domain.Now().UTC()}
			if err := s.deadLetters.Write(ctx, dl); err != nil {
				return summary, fmt.Errorf("write dead letter: %w", err)
			}
			summary.DeadLettered++
			s.metrics.DeadLetters.Inc()
			s.logger.Warn("event dead-lettered",
				"batch_id", batch.BatchID,
				"reason", o.reason,
				"lat", o.fire.Latitude,
				"lon", o.fire.Longitude,
			)
		}
	}
	return summary, nil
}

// processFire runs one event through validate, fingerprint, enrich, persist.
func (s *Stage) processFire(ctx context.Context, fire domain.RawFireEvent) outcome {
	if err := domain.Validate(fire); err != nil {
		s.metrics.ValidationFailures.Inc()
		return outcome{status: statusDeadLetter, fire: fire, reason: err.Error()}
	}

	record, err := domain.NewFireRecord(fire)
	if err != nil {
		// Unreachable after Validate, but kept as a guard.
		return outcome{status: statusDeadLetter, fire: fire, reason: err.Error()}
	}

	record = domain.EnrichLocation(ctx, record, s.geocoder, s.logger)

	inserted, err := s.upsertWithRetry(ctx, record)
	if err != nil {
		return outcome{status: statusDeadLetter, fire: fire, reason: fmt.Sprintf("persist failed: %v", err)}
	}
	if inserted {
		return outcome{status: statusStored}
	}
	return outcome{status: statusDuplicate}
}

// upsertWithRetry retries transient store errors a fixed number of times with
// exponential backoff before the event is declared terminally failed.
func (s *Stage) upsertWithRetry(ctx context.Context, record domain.FireRecord) (bool, error) {
	backoff := storeRetryBackoff
	var lastErr error
	for attempt := 0; attempt < storeAttempts; attempt++ {
		if attempt > 0 {
			if !sleepWithContext(ctx, backoff) {
				return false, ctx.Err()
			}
			backoff = nextBackoff(backoff, maxBackoff)
		}

		inserted, err := s.store.Upsert(ctx, record)
		if err == nil {
			return inserted, nil
		}
		lastErr = err
		s.logger.Warn("store upsert failed",
			"fire_id", record.FireID, "attempt", attempt+1, "error", err)
	}
	return false, lastErr
}

// emitAlerts flushes the change detector and notifies per group. One batch
// invocation is one detection cycle. Notification is best-effort: a failed
// publish is logged and counted but the acknowledged, persisted batch stands.
func (s *Stage) emitAlerts(ctx context.Context) {
	groups := s.detector.Flush()
	for _, g := range groups {
		s.metrics.AlertGroupsEmitted.Inc()
		if err := s.notifier.Notify(ctx, g); err != nil {
			s.metrics.NotifyErrors.Inc()
			s.logger.Warn("alert notify failed",
				"region", g.Region, "count", len(g.Fires), "error", err)
		}
	}
}

func (s *Stage) commit(ctx context.Context, raw domain.RawBatch) {
	if raw.Commit == nil {
		return
	}
	if err := raw.Commit(ctx); err != nil {
		s.logger.Warn("commit offset failed", "error", err,
			"topic", raw.Topic, "partition", raw.Partition, "offset", raw.Offset)
	}
}

const (
	initialBackoff    = 200 * time.Millisecond
	storeRetryBackoff = 100 * time.Millisecond
	maxBackoff        = 5 * time.Second
	storeAttempts     = 3
)

func nextBackoff(current, maxBackoff time.Duration) time.Duration {
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
