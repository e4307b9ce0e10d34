package http

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
	"gorm.io/gorm"

	"github.com/AhmadKaify/Sanasend/internal/infrastructure/http/server"
	"github.com/AhmadKaify/Sanasend/internal/infrastructure/kafka"
	"github.com/AhmadKaify/Sanasend/internal/infrastructure/whatsapp"
)

var errKafkaDisabled = errors.New("kafka disabled, events are dropped")

// Module provides the health endpoint for fx DI
var Module = fx.Module("health",
	fx.Provide(NewHealthHandlerFx),
	fx.Invoke(RegisterRoutes),
)

// NewHealthHandlerFx wires the probes of every external dependency
func NewHealthHandlerFx(
	db *gorm.DB,
	redisClient *redis.Client,
	backend *whatsapp.Client,
	producer *kafka.Producer,
	logger zerolog.Logger,
) *HealthHandler {
	checks := []Check{
		{
			Name:     "database",
			Critical: true,
			Probe: func(ctx context.Context) error {
				sqlDB, err := db.DB()
				if err != nil {
					return err
				}
				return sqlDB.PingContext(ctx)
			},
		},
		{
			Name: "redis",
			Probe: func(ctx context.Context) error {
				return redisClient.Ping(ctx).Err()
			},
		},
		{
			Name:  "whatsapp_backend",
			Probe: backend.HealthCheck,
		},
		{
			Name: "kafka",
			Probe: func(ctx context.Context) error {
				if !producer.Enabled() {
					return errKafkaDisabled
				}
				return nil
			},
		},
	}

	return NewHealthHandler(checks, logger)
}

// RegisterRoutes registers the health endpoint
func RegisterRoutes(srv *server.Server, handler *HealthHandler) {
	srv.Router.GET("/health", handler.Health)
}
