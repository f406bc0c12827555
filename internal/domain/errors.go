package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotAuthenticated is returned when an operation needs a session and none exists
	ErrNotAuthenticated = errors.New("user not authenticated")

	// ErrOwnerMismatch is returned when a record belongs to another user
	ErrOwnerMismatch = errors.New("record owner does not match session user")

	// ErrValidation is the parent of every ValidationError
	ErrValidation = errors.New("validation failed")

	// ErrInvalidCredentials is returned when a password does not match its username
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrUsernameTaken is returned when registering an existing username
	ErrUsernameTaken = errors.New("username taken")

	// ErrJobNotFound is returned when a job id is not known
	ErrJobNotFound = errors.New("job not found")
)

// ValidationError reports a single invalid form field
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// NewValidationError creates a ValidationError for field
func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
