package errors

import pkgerrors "github.com/AhmadKaify/Sanasend/pkg/errors"

var ErrUserNotFound = pkgerrors.NewNotFoundError("user not found")
