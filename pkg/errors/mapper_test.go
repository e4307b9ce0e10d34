package errors

import (
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"
)

func TestMapper_MapErrorToHTTP(t *testing.T) {
	mapper := NewMapper(zerolog.Nop())

	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"nil", nil, fasthttp.StatusOK},
		{"validation", NewValidationError("bad"), fasthttp.StatusBadRequest},
		{"unauthorized", NewUnauthorizedError("who"), fasthttp.StatusUnauthorized},
		{"permission", NewPermissionError("no"), fasthttp.StatusForbidden},
		{"not found", NewNotFoundError("gone"), fasthttp.StatusNotFound},
		{"conflict", NewConflictError("dup"), fasthttp.StatusConflict},
		{"too many", NewTooManyRequestsError("slow down"), fasthttp.StatusTooManyRequests},
		{"unavailable", NewServiceUnavailableError("down"), fasthttp.StatusServiceUnavailable},
		{"wrapped", fmt.Errorf("ctx: %w", NewNotFoundError("gone")), fasthttp.StatusNotFound},
		{"formatted", NewValidationErrorf("field %s", "phone"), fasthttp.StatusBadRequest},
		{"unknown", fmt.Errorf("plain"), fasthttp.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, _ := mapper.MapErrorToHTTP(tt.err)
			if status != tt.expected {
				t.Errorf("Expected %d, got %d", tt.expected, status)
			}
		})
	}
}

func TestMapper_UnknownErrorHidesMessage(t *testing.T) {
	mapper := NewMapper(zerolog.Nop())

	_, msg := mapper.MapErrorToHTTP(fmt.Errorf("dsn=secret"))
	if msg != "internal server error" {
		t.Errorf("Expected generic message, got %q", msg)
	}
}
