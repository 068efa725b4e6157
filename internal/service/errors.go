package service

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput is returned for request parameters outside their allowed range.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotFound is returned when a note does not exist or belongs to another user.
	ErrNotFound = errors.New("not found")
	// ErrExternalService is returned when the LLM, the embedding API or the vector store fails.
	ErrExternalService = errors.New("external service error")
)

// ValidationError reports a missing or malformed request field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field %s: %s", e.Field, e.Message)
}

// WrapError wraps an error with additional context.
func WrapError(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// externalError marks err as a failure of an upstream dependency. Both
// ErrExternalService and err stay reachable through errors.Is.
func externalError(err error, msg string) error {
	if err == nil {
		return fmt.Errorf("%w: %s", ErrExternalService, msg)
	}
	return fmt.Errorf("%w: %s: %w", ErrExternalService, msg, err)
}

// invalidInput reports a parameter that is present but unusable.
func invalidInput(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
