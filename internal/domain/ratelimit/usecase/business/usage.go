package business

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/AhmadKaify/Sanasend/internal/domain/ratelimit/deps"
	"github.com/AhmadKaify/Sanasend/internal/domain/ratelimit/entities"
	"github.com/AhmadKaify/Sanasend/internal/infrastructure/metrics"
)

// UsageTracker counts successfully served requests per user
type UsageTracker struct {
	store   deps.CounterStore
	metrics *metrics.Metrics
	logger  zerolog.Logger
	now     func() time.Time
}

// NewUsageTracker creates the usage tracker
func NewUsageTracker(store deps.CounterStore, m *metrics.Metrics, logger zerolog.Logger) *UsageTracker {
	return &UsageTracker{
		store:   store,
		metrics: m,
		logger:  logger.With().Str("component", "usage_tracker").Logger(),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

type usageCounter struct {
	key string
	ttl time.Duration
}

// usageKeys lists the counters touched by one event
func usageKeys(userID uint, event entities.UsageEvent, now time.Time) []usageCounter {
	day := entities.PeriodDaily.Bucket(now)
	minute := entities.PeriodMinute.Bucket(now)

	counters := []usageCounter{
		{key: fmt.Sprintf("usage:daily_api:%d:%s", userID, day), ttl: entities.PeriodDaily.TTL()},
		{key: fmt.Sprintf("usage:minute_api:%d:%s", userID, minute), ttl: entities.PeriodMinute.TTL()},
	}
	if event.Endpoint != "" {
		counters = append(counters, usageCounter{
			key: fmt.Sprintf("usage:endpoint:%s:%d:%s", event.Endpoint, userID, day),
			ttl: entities.PeriodDaily.TTL(),
		})
	}
	switch event.Kind {
	case entities.KindMedia:
		counters = append(counters, usageCounter{key: fmt.Sprintf("usage:daily_media:%d:%s", userID, day), ttl: entities.PeriodDaily.TTL()})
	case entities.KindText:
		counters = append(counters, usageCounter{key: fmt.Sprintf("usage:daily_text:%d:%s", userID, day), ttl: entities.PeriodDaily.TTL()})
	}
	return counters
}

// Track increments the usage counters; failures are logged and dropped
func (t *UsageTracker) Track(ctx context.Context, userID uint, event entities.UsageEvent) {
	for _, c := range usageKeys(userID, event, t.now()) {
		if _, err := t.store.Incr(ctx, c.key, c.ttl); err != nil {
			t.metrics.RecordCounterStoreError("usage")
			t.logger.Warn().Err(err).Uint("user_id", userID).Msg("usage tracking failed, continuing without tracking")
			return
		}
	}
}
