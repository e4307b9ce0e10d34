package errors

import (
	"fmt"

	"github.com/AhmadKaify/Sanasend/internal/domain/ratelimit/entities"
	pkgerrors "github.com/AhmadKaify/Sanasend/pkg/errors"
)

var ErrRateLimitExceeded = pkgerrors.NewTooManyRequestsError("rate limit exceeded")

// RateLimitExceededError carries the denied decision
type RateLimitExceededError struct {
	Decision entities.Decision
}

func (e *RateLimitExceededError) Error() string {
	if e.Decision.Period == entities.PeriodDaily {
		return fmt.Sprintf("daily message limit exceeded (%d/%d)", e.Decision.Current, e.Decision.Limit)
	}
	return fmt.Sprintf("per-minute message limit exceeded (%d/%d)", e.Decision.Current, e.Decision.Limit)
}

func (e *RateLimitExceededError) Unwrap() error {
	return ErrRateLimitExceeded
}
