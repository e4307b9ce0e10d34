package errors

import (
	"errors"

	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"
)

// Mapper turns domain errors into HTTP statuses and client messages
type Mapper struct {
	logger zerolog.Logger
}

// NewMapper creates a new error mapper
func NewMapper(logger zerolog.Logger) *Mapper {
	return &Mapper{logger: logger}
}

// MapErrorToHTTP returns the status and message for err. Errors of no known
// kind are logged and reported as a generic 500.
func (m *Mapper) MapErrorToHTTP(err error) (int, string) {
	if err == nil {
		return fasthttp.StatusOK, ""
	}

	if status, ok := statusOf(err); ok {
		return status, err.Error()
	}

	m.logger.Error().Err(err).Msg("unmapped error")
	return fasthttp.StatusInternalServerError, "internal server error"
}

func statusOf(err error) (int, bool) {
	var (
		validation   *ValidationError
		unauthorized *UnauthorizedError
		permission   *PermissionError
		notFound     *NotFoundError
		conflict     *ConflictError
		tooMany      *TooManyRequestsError
		unavailable  *ServiceUnavailableError
	)

	switch {
	case errors.As(err, &validation):
		return fasthttp.StatusBadRequest, true
	case errors.As(err, &unauthorized):
		return fasthttp.StatusUnauthorized, true
	case errors.As(err, &permission):
		return fasthttp.StatusForbidden, true
	case errors.As(err, &notFound):
		return fasthttp.StatusNotFound, true
	case errors.As(err, &conflict):
		return fasthttp.StatusConflict, true
	case errors.As(err, &tooMany):
		return fasthttp.StatusTooManyRequests, true
	case errors.As(err, &unavailable):
		return fasthttp.StatusServiceUnavailable, true
	}
	return 0, false
}
