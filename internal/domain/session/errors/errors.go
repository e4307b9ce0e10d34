package errors

import (
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/AhmadKaify/Sanasend/internal/domain/session/entities"
	pkgerrors "github.com/AhmadKaify/Sanasend/pkg/errors"
)

var (
	ErrNoSessionAvailable     = pkgerrors.NewValidationError("no connected WhatsApp session available")
	ErrAllSessionsFailed      = pkgerrors.NewServiceUnavailableError("all sessions failed to send message")
	ErrBackendUnavailable     = pkgerrors.NewServiceUnavailableError("whatsapp service unavailable")
	ErrBackendTimeout         = pkgerrors.NewServiceUnavailableError("whatsapp service timeout")
	ErrBackendThrottled       = pkgerrors.NewServiceUnavailableError("whatsapp client throttled")
	ErrSessionNotFound        = pkgerrors.NewNotFoundError("session not found")
	ErrSessionLimitReached    = pkgerrors.NewValidationError("maximum number of sessions per user reached")
	ErrInstanceExists         = pkgerrors.NewConflictError("instance with this name already exists")
	ErrAlreadyConnected       = pkgerrors.NewValidationError("session is already connected")
	ErrInvalidInstanceName    = pkgerrors.NewValidationError("invalid instance name")
	ErrUnsupportedMessageType = pkgerrors.NewValidationError("unsupported message type")
	ErrInvalidStatus          = pkgerrors.NewValidationError("invalid session status")
)

// AllSessionsFailedError reports every attempt made before giving up
type AllSessionsFailedError struct {
	Attempts  []entities.Attempt
	LastError error
}

func (e *AllSessionsFailedError) Error() string {
	if e.LastError == nil {
		return fmt.Sprintf("%s after %d attempts", ErrAllSessionsFailed.Error(), len(e.Attempts))
	}
	return fmt.Sprintf("%s after %d attempts: %v", ErrAllSessionsFailed.Error(), len(e.Attempts), e.LastError)
}

func (e *AllSessionsFailedError) Unwrap() error {
	return ErrAllSessionsFailed
}

// BackendError is an application-level rejection reported by the backend
type BackendError struct {
	StatusCode int
	Message    string
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("whatsapp service error (status %d): %s", e.StatusCode, e.Message)
}

// disconnectIndicators are substrings of backend errors meaning the session is gone
var disconnectIndicators = []string{"not found", "reconnect", "closed", "not connected", "not ready"}

// IndicatesDisconnect reports whether a failure means the session should be
// considered disconnected. Local throttling never does.
func IndicatesDisconnect(err error) bool {
	if err == nil || stderrors.Is(err, ErrBackendThrottled) {
		return false
	}

	if isTransport(err) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, indicator := range disconnectIndicators {
		if strings.Contains(msg, indicator) {
			return true
		}
	}
	return false
}

func isTransport(err error) bool {
	return stderrors.Is(err, ErrBackendUnavailable) || stderrors.Is(err, ErrBackendTimeout)
}
