package errors

import (
	pkgerrors "github.com/AhmadKaify/Sanasend/pkg/errors"
)

var (
	ErrInvalidRecipient = pkgerrors.NewValidationError("recipient must be an international phone number with 9 to 15 digits")
	ErrEmptyContent     = pkgerrors.NewValidationError("message content is required")
	ErrMediaURLRequired = pkgerrors.NewValidationError("media_url is required for media messages")
)
