package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind string

const (
	KindUnauthorized Kind = "unauthorized"
	KindNotFound     Kind = "not_found"
	KindConflict     Kind = "conflict"
	KindBadRequest   Kind = "bad_request"
	KindTransport    Kind = "transport"
	KindInternal     Kind = "internal"
)

// Transport failure reasons
const (
	ReasonNotConnected        = "not_connected"
	ReasonNotSubscribed       = "not_subscribed"
	ReasonTimeout             = "timeout"
	ReasonUnavailable         = "unavailable"
	ReasonCorrelationMismatch = "correlation_mismatch"
	ReasonCanceled            = "canceled"
)

var kindStatus = map[Kind]int{
	KindUnauthorized: http.StatusUnauthorized,
	KindNotFound:     http.StatusNotFound,
	KindConflict:     http.StatusConflict,
	KindBadRequest:   http.StatusBadRequest,
	KindTransport:    http.StatusServiceUnavailable,
	KindInternal:     http.StatusInternalServerError,
}

var kindMessage = map[Kind]string{
	KindUnauthorized: "Unauthorized",
	KindNotFound:     "Not found",
	KindConflict:     "Conflict",
	KindBadRequest:   "Request validation failed",
	KindTransport:    "Service unavailable",
	KindInternal:     "Internal server error",
}

// Error is what crosses service boundaries: a kind with the status code and the message
// that may be shown to a caller. Err keeps the cause for logs and is never rendered.
type Error struct {
	Kind    Kind
	Status  int
	Message string

	// Reason narrows transport failures (timeout, not connected, ...)
	Reason string

	Err error
}

// New creates error of the kind with the kind's status
// Empty message is replaced by the kind's generic one
func New(kind Kind, message string) *Error {
	if message == "" {
		message = kindMessage[kind]
	}

	status, ok := kindStatus[kind]
	if !ok {
		status = http.StatusInternalServerError
	}

	return &Error{Kind: kind, Status: status, Message: message}
}

func Unauthorized(message string) *Error { return New(KindUnauthorized, message) }
func NotFound(message string) *Error     { return New(KindNotFound, message) }
func Conflict(message string) *Error     { return New(KindConflict, message) }
func BadRequest(message string) *Error   { return New(KindBadRequest, message) }

// Internal hides cause behind the generic message
func Internal(cause error) *Error {
	e := New(KindInternal, "")
	e.Err = cause
	return e
}

func Transport(reason string, cause error) *Error {
	e := New(KindTransport, "")
	e.Reason = reason
	e.Err = cause
	return e
}

// FromStatus restores error received from a remote peer as {status, message}
func FromStatus(status int, message string) *Error {
	kind := KindInternal
	for k, s := range kindStatus {
		if s == status {
			kind = k
			break
		}
	}

	return &Error{Kind: kind, Status: status, Message: message}
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Kind, e.Message)
	if e.Reason != "" {
		msg += " (" + e.Reason + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}

	if t.Kind != e.Kind {
		return false
	}

	return t.Reason == "" || t.Reason == e.Reason
}

// WithCause returns copy of the error that keeps the cause
func (e *Error) WithCause(err error) *Error {
	c := *e
	c.Err = err
	return &c
}

// As returns the *Error from the chain or wraps any other error as internal one
func As(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}

	return Internal(err)
}
