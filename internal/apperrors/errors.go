package apperrors

import (
	"errors"
)

// Storage level errors
// Services translate them into *Error before they leave the process
var (
	ErrUserAlreadyExists = errors.New("user already exists")
	ErrUserNotFound      = errors.New("user not found")

	ErrRefreshTokenIsUsed = errors.New("refresh token is used")
)

// Taxonomy errors
// Compare with errors.Is: it matches by kind (and by reason if the target has one)
var (
	ErrUnauthorized = New(KindUnauthorized, "")
	ErrNotFound     = New(KindNotFound, "")
	ErrConflict     = New(KindConflict, "")
	ErrBadRequest   = New(KindBadRequest, "")
	ErrInternal     = New(KindInternal, "")
	ErrTransport    = New(KindTransport, "")

	ErrNotConnected        = Transport(ReasonNotConnected, nil)
	ErrNotSubscribed       = Transport(ReasonNotSubscribed, nil)
	ErrTimeout             = Transport(ReasonTimeout, nil)
	ErrUnavailable         = Transport(ReasonUnavailable, nil)
	ErrCorrelationMismatch = Transport(ReasonCorrelationMismatch, nil)
	ErrCanceled            = Transport(ReasonCanceled, nil)
)
