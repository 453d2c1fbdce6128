package models

import (
	"errors"
	"fmt"
	"strings"
)

// Error classes of a playbook run. Every error produced by the engine matches
// exactly one of them through errors.Is.
var (
	// ErrValidation indicates a malformed or incomplete playbook document.
	ErrValidation = errors.New("validation error")

	// ErrConfiguration indicates an unknown or misconfigured component type.
	ErrConfiguration = errors.New("configuration error")

	// ErrExecution indicates a failure raised while running a trigger, a
	// condition or an action.
	ErrExecution = errors.New("execution error")
)

// Category is the kind of a pluggable component.
type Category string

const (
	CategoryTrigger   Category = "trigger"
	CategoryCondition Category = "condition"
	CategoryAction    Category = "action"
)

// ValidationError describes why a playbook document was rejected.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// NewValidationError creates a validation error with a formatted message.
func NewValidationError(format string, args ...any) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// ConfigurationError is returned when a playbook references a component type
// that is not registered, or configures a known one incorrectly.
type ConfigurationError struct {
	Category Category
	Key      string
	Known    []string // sorted
	Reason   string   // set when the key is known but its config is invalid
}

func (e *ConfigurationError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s '%s' is misconfigured: %s", e.Category, e.Key, e.Reason)
	}

	return fmt.Sprintf("%s '%s' not found. Available: [%s]", e.Category, e.Key, strings.Join(e.Known, ", "))
}

func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

// ExecutionError wraps a failure raised by a component while the run was in
// progress.
type ExecutionError struct {
	Category Category
	Type     string
	Err      error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("%s '%s' failed: %v", e.Category, e.Type, e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

func (e *ExecutionError) Is(target error) bool {
	return target == ErrExecution
}

// IsValidationError checks if an error is a playbook validation error.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsConfigurationError checks if an error is a component configuration error.
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrConfiguration)
}

// IsExecutionError checks if an error is a component execution error.
func IsExecutionError(err error) bool {
	return errors.Is(err, ErrExecution)
}
