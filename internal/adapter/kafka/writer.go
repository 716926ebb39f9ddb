package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/firewatch-etl/internal/config"
	"github.com/couchcryptid/firewatch-etl/internal/domain"
)

// BatchWriter produces fire batch envelopes to the ingress topic.
// It implements fetch.BatchSink.
type BatchWriter struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewBatchWriter creates a producer for the configured batch topic.
func NewBatchWriter(cfg *config.Config, logger *slog.Logger) *BatchWriter {
	return &BatchWriter{writer: newWriter(cfg.KafkaBrokers, cfg.KafkaBatchTopic), logger: logger}
}

// WriteBatch serializes and publishes one batch envelope. The batch ID keys
// the message so redeliveries of a batch land on the same partition.
func (w *BatchWriter) WriteBatch(ctx context.Context, batch domain.FireBatch) error {
	msg, err := serializeBatch(batch)
	if err != nil {
		return err
	}
	return w.writer.WriteMessages(ctx, msg)
}

func (w *BatchWriter) Close() error {
	return w.writer.Close()
}

// DeadLetterWriter publishes terminally failed events with their original
// payload and failure reason for offline inspection.
type DeadLetterWriter struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewDeadLetterWriter creates a producer for the configured dead-letter topic.
func NewDeadLetterWriter(cfg *config.Config, logger *slog.Logger) *DeadLetterWriter {
	return &DeadLetterWriter{writer: newWriter(cfg.KafkaBrokers, cfg.KafkaDeadLetterTopic), logger: logger}
}

func (w *DeadLetterWriter) Write(ctx context.Context, dl domain.DeadLetter) error {
	msg, err := serializeDeadLetter(dl)
	if err != nil {
		return err
	}
	return w.writer.WriteMessages(ctx, msg)
}

func (w *DeadLetterWriter) Close() error {
	return w.writer.Close()
}

// AlertWriter publishes alert summaries to the fan-out topic. Multiple
// subscribers broadcast via independent consumer groups.
// It implements alert.Publisher.
type AlertWriter struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewAlertWriter creates a producer for the configured alert topic.
func NewAlertWriter(cfg *config.Config, logger *slog.Logger) *AlertWriter {
	return &AlertWriter{writer: newWriter(cfg.KafkaBrokers, cfg.KafkaAlertTopic), logger: logger}
}

func (w *AlertWriter) Publish(ctx context.Context, group domain.AlertGroup, summary string) error {
	msg, err := serializeAlert(group, summary)
	if err != nil {
		return err
	}
	return w.writer.WriteMessages(ctx, msg)
}

func (w *AlertWriter) Close() error {
	return w.writer.Close()
}

func newWriter(brokers []string, topic string) *kafkago.Writer {
	return &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
}

// serializeBatch marshals a FireBatch into a Kafka message.
func serializeBatch(batch domain.FireBatch) (kafkago.Message, error) {
	data, err := json.Marshal(batch)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize fire batch: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(batch.BatchID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "batch_size", Value: []byte(strconv.Itoa(len(batch.Fires)))},
		},
	}, nil
}

// serializeDeadLetter marshals a DeadLetter keyed by the failed event's
// fingerprint.
func serializeDeadLetter(dl domain.DeadLetter) (kafkago.Message, error) {
	data, err := json.Marshal(dl)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize dead letter: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(domain.Fingerprint(dl.Fire)),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "reason", Value: []byte(dl.Reason)},
		},
	}, nil
}

// alertMessage is the serialized form of an alert group on the fan-out topic.
type alertMessage struct {
	Region      string    `json:"region"`
	FireCount   int       `json:"fire_count"`
	WindowStart time.Time `json:"window_start"`
	WindowEnd   time.Time `json:"window_end"`
	Summary     string    `json:"summary"`
}

func serializeAlert(group domain.AlertGroup, summary string) (kafkago.Message, error) {
	data, err := json.Marshal(alertMessage{
		Region:      group.Region,
		FireCount:   len(group.Fires),
		WindowStart: group.WindowStart,
		WindowEnd:   group.WindowEnd,
		Summary:     summary,
	})
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize alert: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(group.Region),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "fire_count", Value: []byte(strconv.Itoa(len(group.Fires)))},
		},
	}, nil
}
