package models

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a record with the requested id does not exist.
	ErrNotFound = errors.New("not found")
	// ErrUnauthorized is returned when a request carries no valid session.
	ErrUnauthorized = errors.New("not authenticated")
	// ErrInvalidCredentials is returned for an unknown username or a wrong password.
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrDuplicateUsername is returned when registering a username that is taken.
	ErrDuplicateUsername = errors.New("username already exists")
	// ErrAlreadyAuthenticated is returned by anonymous-only routes when a session is active.
	ErrAlreadyAuthenticated = errors.New("already authenticated")
)

// ValidationError describes a rejected input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Invalid builds a ValidationError for field.
func Invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
