package domain

import (
	"errors"
	"fmt"
)

// Kind classifies an error for the transport layer. The HTTP status for each
// kind is decided in exactly one place, the API error handler.
type Kind string

const (
	KindValidation      Kind = "validation_failed"
	KindConflict        Kind = "conflict"
	KindUnauthenticated Kind = "unauthenticated"
	KindForbidden       Kind = "forbidden"
	KindNotFound        Kind = "not_found"
	KindInternal        Kind = "internal"
)

// Error is a classified domain error. Message is safe to show to callers;
// Err carries the internal cause and is never rendered.
type Error struct {
	Kind    Kind
	Message string
	Err     error
	// Details lists per-field problems for validation failures.
	Details []FieldViolation
}

// FieldViolation describes one rejected input field.
type FieldViolation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on kind and message so a sentinel still compares equal after
// being re-wrapped with a cause.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Message == t.Message
}

// NewError builds a domain error.
func NewError(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// WrapError attaches an internal cause to a sentinel without changing what the
// caller sees.
func WrapError(sentinel *Error, cause error) *Error {
	return &Error{Kind: sentinel.Kind, Message: sentinel.Message, Err: cause}
}

// NewValidationError returns ErrValidation carrying the offending fields.
func NewValidationError(details []FieldViolation) *Error {
	return &Error{Kind: ErrValidation.Kind, Message: ErrValidation.Message, Details: details}
}

// KindOf returns the kind of the first domain error in err's chain, or
// KindInternal when there is none.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}

var (
	ErrValidation         = NewError(KindValidation, "Validation failed")
	ErrEmailTaken         = NewError(KindConflict, "User with this email already exists")
	ErrInvalidCredentials = NewError(KindUnauthenticated, "Invalid email or password")
	ErrMissingToken       = NewError(KindUnauthenticated, "Access token required")
	ErrInvalidToken       = NewError(KindUnauthenticated, "Invalid or expired token")
	ErrForbidden          = NewError(KindForbidden, "Insufficient permissions")
	ErrUserNotFound       = NewError(KindNotFound, "User not found")
)
