package kafka

import (
	"context"

	"github.com/IBM/sarama"
	"github.com/rs/zerolog"
	"go.uber.org/fx"

	"github.com/AhmadKaify/Sanasend/config"
	"github.com/AhmadKaify/Sanasend/internal/infrastructure/metrics"
)

// Module provides the Kafka event producer for fx DI
var Module = fx.Module("kafka",
	fx.Provide(
		NewProducerFx,
		NewEventAdapter,
	),
)

// NewProducerFx connects to Kafka when enabled; otherwise events are dropped
func NewProducerFx(lc fx.Lifecycle, cfg *config.KafkaConfig, m *metrics.Metrics, logger zerolog.Logger) (*Producer, error) {
	var syncProducer sarama.SyncProducer

	if cfg.Enabled {
		sp, err := NewSyncProducer(cfg.Brokers)
		if err != nil {
			return nil, err
		}
		syncProducer = sp
		logger.Info().Strs("brokers", cfg.Brokers).Msg("Kafka SyncProducer initialized")
	} else {
		logger.Info().Msg("Kafka disabled, domain events will not be published")
	}

	producer := NewProducer(syncProducer, m, logger)

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return producer.Close()
		},
	})

	return producer, nil
}
