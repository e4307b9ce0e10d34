package deps

import (
	"context"
	"time"

	"github.com/AhmadKaify/Sanasend/internal/domain/ratelimit/entities"
)

// CounterStore is an atomic counter store with expiring keys
type CounterStore interface {
	// Get returns 0 for a missing key
	Get(ctx context.Context, key string) (int64, error)
	// Incr increments key and refreshes its TTL atomically
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)
	Delete(ctx context.Context, keys ...string) error
}

// Limiter enforces per-user message quotas
type Limiter interface {
	CheckAndIncrement(ctx context.Context, subject entities.Subject, period entities.Period) (entities.Decision, error)
	Check(ctx context.Context, subject entities.Subject) (entities.Decision, error)
}

// UsageTracker counts served API requests
type UsageTracker interface {
	Track(ctx context.Context, userID uint, event entities.UsageEvent)
}
