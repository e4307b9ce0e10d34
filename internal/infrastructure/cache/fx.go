package cache

import (
	"context"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.uber.org/fx"

	"github.com/AhmadKaify/Sanasend/config"
)

// Module provides the Redis client for fx DI
var Module = fx.Module("cache",
	fx.Provide(NewRedisClientFx),
)

// NewRedisClientFx creates the Redis client; an unreachable server is logged
// and tolerated since every consumer fails open.
func NewRedisClientFx(lc fx.Lifecycle, cfg *config.RedisConfig, logger zerolog.Logger) *redis.Client {
	client, err := NewRedisClient(context.Background(), cfg)
	if err != nil {
		logger.Warn().Err(err).Str("addr", cfg.Addr).Msg("Redis unavailable, counters and caches will fail open")
	} else {
		logger.Info().Str("addr", cfg.Addr).Msg("Redis connected successfully")
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			logger.Info().Msg("Closing Redis connection")
			return client.Close()
		},
	})

	return client
}
