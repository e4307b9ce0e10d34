package ratelimit

import (
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.uber.org/fx"

	"github.com/AhmadKaify/Sanasend/config"
	ratelimithttp "github.com/AhmadKaify/Sanasend/internal/domain/ratelimit/delivery/http"
	"github.com/AhmadKaify/Sanasend/internal/domain/ratelimit/deps"
	redisstore "github.com/AhmadKaify/Sanasend/internal/domain/ratelimit/repository/redis"
	"github.com/AhmadKaify/Sanasend/internal/domain/ratelimit/usecase/business"
	"github.com/AhmadKaify/Sanasend/internal/infrastructure/metrics"
)

// Module provides quota enforcement and usage tracking for fx DI
var Module = fx.Module("ratelimit",
	fx.Provide(
		NewCounterStoreFx,
		NewLimiterFx,
		NewUsageTrackerFx,
		ratelimithttp.NewMiddleware,
	),
)

// NewCounterStoreFx creates the Redis counter store for fx DI
func NewCounterStoreFx(client *redis.Client) deps.CounterStore {
	return redisstore.NewCounterStore(client)
}

// NewLimiterFx creates the quota limiter for fx DI
func NewLimiterFx(store deps.CounterStore, cfg *config.RateLimitConfig, m *metrics.Metrics, logger zerolog.Logger) deps.Limiter {
	return business.NewLimiter(store, cfg, m, logger)
}

// NewUsageTrackerFx creates the usage tracker for fx DI
func NewUsageTrackerFx(store deps.CounterStore, m *metrics.Metrics, logger zerolog.Logger) deps.UsageTracker {
	return business.NewUsageTracker(store, m, logger)
}
