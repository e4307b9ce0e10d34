package errors

import pkgerrors "github.com/AhmadKaify/Sanasend/pkg/errors"

// Rejection reasons are distinct for logs and metrics; callers only see the message
var (
	ErrMissingAPIKey  = pkgerrors.NewUnauthorizedError("API key required")
	ErrInvalidAPIKey  = pkgerrors.NewUnauthorizedError("invalid or expired API key")
	ErrAPIKeyInactive = pkgerrors.NewUnauthorizedError("API key is inactive")
	ErrAPIKeyExpired  = pkgerrors.NewUnauthorizedError("API key has expired")
	ErrAPIKeyLocked   = pkgerrors.NewUnauthorizedError("API key is temporarily locked")
	ErrUserInactive   = pkgerrors.NewUnauthorizedError("user account is disabled")
	ErrIPNotAllowed   = pkgerrors.NewPermissionError("IP address not allowed for this API key")

	ErrAPIKeyNotFound   = pkgerrors.NewNotFoundError("API key not found")
	ErrInvalidExpiry    = pkgerrors.NewValidationError("expiration date must be in the future")
	ErrInvalidWhitelist = pkgerrors.NewValidationError("invalid IP address in whitelist")
)
