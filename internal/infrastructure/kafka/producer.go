package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/AhmadKaify/Sanasend/internal/infrastructure/metrics"
)

// Envelope wraps every published event
type Envelope struct {
	EventID    string    `json:"event_id"`
	Type       string    `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`
	Data       any       `json:"data"`
}

// Producer publishes domain events with a sarama SyncProducer.
// A Producer without an underlying sarama producer drops events.
type Producer struct {
	producer     sarama.SyncProducer
	metrics      *metrics.Metrics
	logger       zerolog.Logger
	successCount atomic.Uint64
	errorCount   atomic.Uint64
}

// NewSyncProducer dials the brokers with retry and full acks
func NewSyncProducer(brokers []string) (sarama.SyncProducer, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("no kafka brokers specified")
	}

	config := sarama.NewConfig()
	config.ClientID = "sanasend"
	config.Producer.Return.Successes = true
	config.Producer.Retry.Max = 5
	config.Producer.Retry.Backoff = 500 * time.Millisecond
	config.Producer.Timeout = 10 * time.Second
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Partitioner = sarama.NewHashPartitioner

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}
	return producer, nil
}

// NewProducer wraps a sarama producer; nil disables publishing
func NewProducer(producer sarama.SyncProducer, m *metrics.Metrics, logger zerolog.Logger) *Producer {
	return &Producer{
		producer: producer,
		metrics:  m,
		logger:   logger.With().Str("component", "kafka_producer").Logger(),
	}
}

// Enabled reports whether events actually reach Kafka
func (p *Producer) Enabled() bool {
	return p.producer != nil
}

// SendToTopic publishes one event keyed for partitioning
func (p *Producer) SendToTopic(ctx context.Context, topic, key, eventType string, data any) error {
	if p.producer == nil {
		return nil
	}

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context cancelled before sending: %w", err)
	}

	envelope := Envelope{
		EventID:    uuid.NewString(),
		Type:       eventType,
		OccurredAt: time.Now().UTC(),
		Data:       data,
	}

	bytes, err := json.Marshal(envelope)
	if err != nil {
		p.metrics.RecordEventError(topic)
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(bytes),
	}

	start := time.Now()
	partition, offset, err := p.producer.SendMessage(msg)
	latency := time.Since(start)

	if err != nil {
		count := p.errorCount.Add(1)
		p.metrics.RecordEventError(topic)
		p.logger.Error().
			Err(err).
			Str("topic", topic).
			Str("key", key).
			Dur("latency", latency).
			Uint64("error_count", count).
			Msg("failed to send event to kafka")
		return err
	}

	count := p.successCount.Add(1)
	p.metrics.RecordEventPublished(topic)
	p.logger.Debug().
		Str("topic", topic).
		Str("key", key).
		Str("event_id", envelope.EventID).
		Int32("partition", partition).
		Int64("offset", offset).
		Dur("latency", latency).
		Uint64("success_count", count).
		Msg("event sent to kafka")

	return nil
}

// Close flushes and closes the underlying producer
func (p *Producer) Close() error {
	if p.producer == nil {
		return nil
	}

	if err := p.producer.Close(); err != nil {
		p.logger.Error().Err(err).Msg("failed to close Kafka producer")
		return err
	}

	p.logger.Info().Msg("Kafka producer closed")
	return nil
}
