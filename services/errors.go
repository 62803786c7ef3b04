// Package services holds the auth, OAuth, post and user workflows.
package services

import (
	"errors"
	"fmt"
)

var (
	ErrUserNotFound         = errors.New("user not found")
	ErrNotFound             = errors.New("not found")
	ErrDuplicateEmail       = errors.New("email is already registered")
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrInvalidToken         = errors.New("invalid or expired token")
	ErrEmailNotVerified     = errors.New("email not verified")
	ErrValidation           = errors.New("validation error")
	ErrInvalidProviderToken = errors.New("invalid provider token")
	ErrForbidden            = errors.New("forbidden")
	ErrProviderUnavailable  = errors.New("identity provider unavailable")
)

// Error attaches a human readable message, and optionally the offending
// field, to one of the sentinels above.
type Error struct {
	Err     error
	Message string
	Field   string
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(sentinel error, format string, args ...interface{}) *Error {
	return &Error{Err: sentinel, Message: fmt.Sprintf(format, args...)}
}

func validationFailed(field, message string) *Error {
	return &Error{Err: ErrValidation, Message: message, Field: field}
}

// Message returns the user facing text for err: the wrapped message for an
// *Error, the sentinel text otherwise.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	for _, sentinel := range []error{
		ErrUserNotFound, ErrNotFound, ErrDuplicateEmail, ErrInvalidCredentials,
		ErrInvalidToken, ErrEmailNotVerified, ErrValidation, ErrInvalidProviderToken,
		ErrForbidden, ErrProviderUnavailable,
	} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return "internal server error"
}
