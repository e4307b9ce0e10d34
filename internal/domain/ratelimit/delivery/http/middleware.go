package http

import (
	"errors"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"

	"github.com/AhmadKaify/Sanasend/internal/domain/ratelimit/deps"
	"github.com/AhmadKaify/Sanasend/internal/domain/ratelimit/entities"
	ratelimiterrors "github.com/AhmadKaify/Sanasend/internal/domain/ratelimit/errors"
	"github.com/AhmadKaify/Sanasend/pkg/httputil"
)

// ErrorCode tags rate limit denials in the response body
const ErrorCode = "RATE_LIMIT_EXCEEDED"

// DenialDetails is the detail block of a 429 response
type DenialDetails struct {
	ErrorCode string            `json:"error_code"`
	RateLimit entities.Decision `json:"rate_limit"`
}

// Middleware enforces quotas and tracks usage for authenticated requests
type Middleware struct {
	limiter deps.Limiter
	tracker deps.UsageTracker
	logger  zerolog.Logger
}

// NewMiddleware creates the rate limit middleware factory
func NewMiddleware(limiter deps.Limiter, tracker deps.UsageTracker, logger zerolog.Logger) *Middleware {
	return &Middleware{
		limiter: limiter,
		tracker: tracker,
		logger:  logger.With().Str("component", "rate_limit_middleware").Logger(),
	}
}

func setHeaders(ctx *fasthttp.RequestCtx, d entities.Decision) {
	remaining := int64(d.Limit) - d.Current
	if remaining < 0 {
		remaining = 0
	}
	ctx.Response.Header.Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
	ctx.Response.Header.Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
	ctx.Response.Header.Set("X-RateLimit-Reset", strconv.FormatInt(d.ResetAt.Unix(), 10))
}

// Enforce rejects requests of principals over their message quota
func (m *Middleware) Enforce() httputil.Middleware {
	return func(next fasthttp.RequestHandler) fasthttp.RequestHandler {
		return func(ctx *fasthttp.RequestCtx) {
			principal, ok := httputil.PrincipalFrom(ctx)
			if !ok {
				next(ctx)
				return
			}

			subject := entities.Subject{UserID: principal.UserID, DailyLimit: principal.DailyLimit}
			decision, err := m.limiter.Check(ctx, subject)

			var exceeded *ratelimiterrors.RateLimitExceededError
			if errors.As(err, &exceeded) {
				setHeaders(ctx, exceeded.Decision)
				retryAfter := int(time.Until(exceeded.Decision.ResetAt).Seconds()) + 1
				ctx.Response.Header.Set("Retry-After", strconv.Itoa(retryAfter))
				httputil.WriteErrorDetails(ctx, exceeded.Error(), DenialDetails{
					ErrorCode: ErrorCode,
					RateLimit: exceeded.Decision,
				}, fasthttp.StatusTooManyRequests)
				return
			}
			if err != nil {
				m.logger.Warn().Err(err).Uint("user_id", principal.UserID).Msg("rate limit check failed, allowing request")
			} else if decision.Limit > 0 {
				setHeaders(ctx, decision)
			}

			next(ctx)
		}
	}
}

// Track counts the request after a successful response
func (m *Middleware) Track(endpoint string, kind entities.MessageKind) httputil.Middleware {
	return func(next fasthttp.RequestHandler) fasthttp.RequestHandler {
		return func(ctx *fasthttp.RequestCtx) {
			next(ctx)

			status := ctx.Response.StatusCode()
			if status < fasthttp.StatusOK || status >= fasthttp.StatusMultipleChoices {
				return
			}
			principal, ok := httputil.PrincipalFrom(ctx)
			if !ok {
				return
			}

			m.tracker.Track(ctx, principal.UserID, entities.UsageEvent{Endpoint: endpoint, Kind: kind})
		}
	}
}
