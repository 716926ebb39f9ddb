package kafka

import (
	"context"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/firewatch-etl/internal/config"
	"github.com/couchcryptid/firewatch-etl/internal/domain"
)

// Reader consumes fire batch messages from the ingress topic.
// It implements process.BatchSource.
type Reader struct {
	reader *kafkago.Reader
	logger *slog.Logger
}

// NewReader creates a consumer-group reader for the configured batch topic.
func NewReader(cfg *config.Config, logger *slog.Logger) *Reader {
	r := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:  cfg.KafkaBrokers,
		Topic:    cfg.KafkaBatchTopic,
		GroupID:  cfg.KafkaGroupID,
		MinBytes: 1,
		MaxBytes: 10 << 20,
		MaxWait:  time.Second,
	})
	return &Reader{reader: r, logger: logger}
}

// ExtractBatch blocks until the next batch message arrives or the context is
// cancelled. The offset is committed only through the returned Commit
// callback, so a crash before acknowledgment redelivers the whole batch;
// idempotent upserts make that safe.
func (r *Reader) ExtractBatch(ctx context.Context) (domain.RawBatch, error) {
	msg, err := r.reader.FetchMessage(ctx)
	if err != nil {
		return domain.RawBatch{}, err
	}

	return domain.RawBatch{
		Value:     msg.Value,
		Topic:     msg.Topic,
		Partition: msg.Partition,
		Offset:    msg.Offset,
		Timestamp: msg.Time,
		Commit: func(ctx context.Context) error {
			return r.reader.CommitMessages(ctx, msg)
		},
	}, nil
}

func (r *Reader) Close() error {
	return r.reader.Close()
}
