// Package export mirrors broadcast events onto a Kafka topic for
// downstream analytics.
package export

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/compress"

	"fleetmon/internal/config"
	"fleetmon/internal/logger"
	"fleetmon/internal/metrics"
	"fleetmon/internal/models"
)

// Producer errors
var (
	ErrProducerClosed  = errors.New("producer is closed")
	ErrSerializeFailed = errors.New("failed to serialize event")
)

// Publisher is the outbound contract the export worker publishes through.
type Publisher interface {
	Publish(ctx context.Context, event models.Event) error
	PublishBatch(ctx context.Context, events []models.Event) error
}

// Producer is a Kafka publisher with a writer pool and retry.
type Producer struct {
	cfg     config.KafkaConfig
	writers []*kafka.Writer
	pool    chan *kafka.Writer
	closed  atomic.Bool

	messagesSent   atomic.Uint64
	messagesFailed atomic.Uint64
}

// NewProducer creates a producer for the configured topic.
func NewProducer(cfg config.KafkaConfig) (*Producer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("at least one broker is required")
	}
	if cfg.Topic == "" {
		return nil, errors.New("topic is required")
	}
	if cfg.PoolSize <= 0 {
		cfg.PoolSize = 2
	}

	p := &Producer{
		cfg:     cfg,
		writers: make([]*kafka.Writer, cfg.PoolSize),
		pool:    make(chan *kafka.Writer, cfg.PoolSize),
	}

	for i := 0; i < cfg.PoolSize; i++ {
		writer := &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        cfg.Topic,
			Balancer:     &kafka.Hash{}, // partition by machine ID
			BatchSize:    cfg.BatchSize,
			BatchTimeout: cfg.BatchTimeout,
			WriteTimeout: cfg.WriteTimeout,
			RequiredAcks: kafka.RequiredAcks(cfg.RequiredAcks),
			Compression:  getCompression(cfg.Compression),
			MaxAttempts:  cfg.MaxRetries + 1,
			Async:        false,
		}
		p.writers[i] = writer
		p.pool <- writer
	}

	return p, nil
}

func getCompression(name string) compress.Compression {
	switch name {
	case "gzip":
		return compress.Gzip
	case "snappy":
		return compress.Snappy
	case "lz4":
		return compress.Lz4
	case "zstd":
		return compress.Zstd
	default:
		return compress.None
	}
}

// Publish sends a single event.
func (p *Producer) Publish(ctx context.Context, event models.Event) error {
	return p.PublishBatch(ctx, []models.Event{event})
}

// PublishBatch sends events in one write, partitioned by machine ID.
func (p *Producer) PublishBatch(ctx context.Context, events []models.Event) error {
	if p.closed.Load() {
		return ErrProducerClosed
	}
	if len(events) == 0 {
		return nil
	}

	log := logger.WithComponent("export_producer")
	start := time.Now()

	messages := make([]kafka.Message, 0, len(events))
	for _, event := range events {
		data, err := json.Marshal(event)
		if err != nil {
			log.Error().Err(err).
				Str("event", string(event.Type)).
				Str("machine_id", event.MachineID).
				Msg("failed to serialize event")
			p.messagesFailed.Add(1)
			metrics.ExportPublishTotal.WithLabelValues("failed").Inc()
			continue
		}

		messages = append(messages, kafka.Message{
			Key:   []byte(event.MachineID),
			Value: data,
			Headers: []kafka.Header{
				{Key: "event_type", Value: []byte(event.Type)},
				{Key: "machine_id", Value: []byte(event.MachineID)},
			},
			Time: event.Timestamp,
		})
	}

	if len(messages) == 0 {
		return nil
	}

	var writer *kafka.Writer
	select {
	case writer = <-p.pool:
		defer func() { p.pool <- writer }()
	case <-ctx.Done():
		p.messagesFailed.Add(uint64(len(messages)))
		return ctx.Err()
	}

	err := p.writeWithRetry(ctx, writer, messages)
	metrics.ExportPublishDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		p.messagesFailed.Add(uint64(len(messages)))
		metrics.ExportPublishTotal.WithLabelValues("failed").Add(float64(len(messages)))
		return err
	}

	p.messagesSent.Add(uint64(len(messages)))
	metrics.ExportPublishTotal.WithLabelValues("success").Add(float64(len(messages)))
	return nil
}

// writeWithRetry writes messages with exponential backoff.
func (p *Producer) writeWithRetry(ctx context.Context, writer *kafka.Writer, messages []kafka.Message) error {
	log := logger.WithComponent("export_producer")
	var lastErr error
	backoff := p.cfg.RetryBackoff

	for attempt := 0; attempt <= p.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			metrics.ExportPublishRetries.Inc()
			select {
			case <-time.After(backoff):
				backoff *= 2
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		err := writer.WriteMessages(ctx, messages...)
		if err == nil {
			return nil
		}

		lastErr = err
		log.Warn().Err(err).
			Int("attempt", attempt+1).
			Int("batch_size", len(messages)).
			Msg("export publish attempt failed")

		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
	}

	return fmt.Errorf("export failed after %d attempts: %w", p.cfg.MaxRetries+1, lastErr)
}

// Close closes all writers in the pool.
func (p *Producer) Close() error {
	if p.closed.Swap(true) {
		return nil
	}

	var errs []error
	for _, writer := range p.writers {
		if err := writer.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("errors closing writers: %v", errs)
	}
	return nil
}

// Stats returns producer counters.
func (p *Producer) Stats() ProducerStats {
	return ProducerStats{
		MessagesSent:   p.messagesSent.Load(),
		MessagesFailed: p.messagesFailed.Load(),
	}
}

// ProducerStats holds producer counters.
type ProducerStats struct {
	MessagesSent   uint64
	MessagesFailed uint64
}
