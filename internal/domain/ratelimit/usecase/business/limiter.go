package business

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/AhmadKaify/Sanasend/config"
	"github.com/AhmadKaify/Sanasend/internal/domain/ratelimit/deps"
	"github.com/AhmadKaify/Sanasend/internal/domain/ratelimit/entities"
	ratelimiterrors "github.com/AhmadKaify/Sanasend/internal/domain/ratelimit/errors"
	"github.com/AhmadKaify/Sanasend/internal/infrastructure/metrics"
)

// Limiter enforces minute and daily message quotas. Counter store failures
// never deny a request.
type Limiter struct {
	store   deps.CounterStore
	cfg     *config.RateLimitConfig
	metrics *metrics.Metrics
	logger  zerolog.Logger
	now     func() time.Time
}

// NewLimiter creates the quota limiter
func NewLimiter(store deps.CounterStore, cfg *config.RateLimitConfig, m *metrics.Metrics, logger zerolog.Logger) *Limiter {
	return &Limiter{
		store:   store,
		cfg:     cfg,
		metrics: m,
		logger:  logger.With().Str("component", "rate_limiter").Logger(),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (l *Limiter) limit(subject entities.Subject, period entities.Period) int {
	if period == entities.PeriodMinute {
		return l.cfg.MessagesPerMinute
	}
	if subject.DailyLimit > 0 {
		return subject.DailyLimit
	}
	return l.cfg.DefaultDailyLimit
}

// peek reads the bucket and reports a denial without incrementing
func (l *Limiter) peek(ctx context.Context, subject entities.Subject, period entities.Period, now time.Time) (entities.Decision, bool) {
	decision := entities.Decision{
		Allowed: true,
		Period:  period,
		Limit:   l.limit(subject, period),
		ResetAt: period.ResetAt(now),
	}

	current, err := l.store.Get(ctx, entities.CounterKey(period, subject.UserID, now))
	if err != nil {
		l.metrics.RecordCounterStoreError("get")
		l.logger.Warn().Err(err).Uint("user_id", subject.UserID).Str("period", string(period)).Msg("rate limit check failed, allowing request")
		return decision, false
	}

	decision.Current = current
	if current >= int64(decision.Limit) {
		decision.Allowed = false
	}
	return decision, true
}

func (l *Limiter) increment(ctx context.Context, subject entities.Subject, period entities.Period, now time.Time, decision *entities.Decision) {
	n, err := l.store.Incr(ctx, entities.CounterKey(period, subject.UserID, now), period.TTL())
	if err != nil {
		l.metrics.RecordCounterStoreError("incr")
		l.logger.Warn().Err(err).Uint("user_id", subject.UserID).Str("period", string(period)).Msg("rate limit increment failed, allowing request")
		return
	}
	decision.Current = n
}

func (l *Limiter) deny(subject entities.Subject, decision entities.Decision) error {
	l.metrics.RecordRateLimitDecision(string(decision.Period), false)
	l.logger.Info().
		Uint("user_id", subject.UserID).
		Str("period", string(decision.Period)).
		Int("limit", decision.Limit).
		Int64("current", decision.Current).
		Msg("rate limit exceeded")
	return &ratelimiterrors.RateLimitExceededError{Decision: decision}
}

// CheckAndIncrement denies when the bucket is full, otherwise counts the
// request and allows it
func (l *Limiter) CheckAndIncrement(ctx context.Context, subject entities.Subject, period entities.Period) (entities.Decision, error) {
	now := l.now()

	decision, ok := l.peek(ctx, subject, period, now)
	if !ok {
		l.metrics.RecordRateLimitDecision(string(period), true)
		return decision, nil
	}
	if !decision.Allowed {
		return decision, l.deny(subject, decision)
	}

	l.increment(ctx, subject, period, now, &decision)
	l.metrics.RecordRateLimitDecision(string(period), true)
	return decision, nil
}

// Check applies the daily then the minute quota and counts the request in
// both buckets only when neither is full
func (l *Limiter) Check(ctx context.Context, subject entities.Subject) (entities.Decision, error) {
	now := l.now()
	periods := []entities.Period{entities.PeriodDaily, entities.PeriodMinute}

	decisions := make([]entities.Decision, len(periods))
	for i, period := range periods {
		decision, ok := l.peek(ctx, subject, period, now)
		if ok && !decision.Allowed {
			return decision, l.deny(subject, decision)
		}
		decisions[i] = decision
	}

	for i, period := range periods {
		l.increment(ctx, subject, period, now, &decisions[i])
		l.metrics.RecordRateLimitDecision(string(period), true)
	}

	// The tighter window is the one worth reporting
	return decisions[len(decisions)-1], nil
}
