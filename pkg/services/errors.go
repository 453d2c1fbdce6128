// Package services holds the application services behind the HTTP API.
package services

import (
	"errors"
	"fmt"
)

var (
	// ErrTriggerNotFound is returned for a trigger type that is not registered (404).
	ErrTriggerNotFound = errors.New("trigger not found")

	// ErrInvalidRequest marks a malformed client request (400).
	ErrInvalidRequest = errors.New("invalid request")
)

// ServiceError wraps service-level errors with additional context.
type ServiceError struct {
	Op      string // Operation name
	Code    string // Error code for API responses
	Message string // Human-readable message
	Err     error  // Underlying error
}

func (e *ServiceError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}

	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func (e *ServiceError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// IsNotFoundError checks if an error should be reported as HTTP 404.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrTriggerNotFound)
}

// IsValidationError checks if an error should be reported as HTTP 400.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidRequest)
}

func newNotFound(op, name string) *ServiceError {
	return &ServiceError{
		Op:      op,
		Code:    "trigger_not_found",
		Message: fmt.Sprintf("trigger '%s' is not registered", name),
		Err:     ErrTriggerNotFound,
	}
}
