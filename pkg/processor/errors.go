package processor

import (
	"errors"
	"fmt"
)

// Business Logic Errors - These indicate client errors (4xx responses).
var (
	// Validation Errors (400 Bad Request).
	ErrInvalidRequest  = errors.New("invalid request")
	ErrEmptyQuestion   = errors.New("question cannot be empty")
	ErrQuestionTooLong = errors.New("question exceeds 1000 characters")
	ErrInvalidUserID   = errors.New("user ID must be positive")

	// Authorization Errors (403 Forbidden).
	ErrNotTaskOwner = errors.New("task belongs to another user")

	// Not Found Errors (404).
	ErrTaskNotFound = errors.New("task not found")
)

// ProcessorError wraps processor-level errors with additional context.
type ProcessorError struct {
	Op      string // Operation name
	TaskID  string // Task identifier, when known
	Message string // Human-readable message
	Err     error  // Underlying error
}

func (e *ProcessorError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}

	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ProcessorError) Unwrap() error {
	return e.Err
}

func (e *ProcessorError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// IsValidationError checks if an error is a validation error that should return HTTP 400.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, ErrEmptyQuestion) ||
		errors.Is(err, ErrQuestionTooLong) ||
		errors.Is(err, ErrInvalidUserID)
}

// IsAuthorizationError checks if an error should return HTTP 403.
func IsAuthorizationError(err error) bool {
	return errors.Is(err, ErrNotTaskOwner)
}

// IsNotFoundError checks if an error should return HTTP 404.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrTaskNotFound)
}

// NewValidationError creates a validation error with a custom message.
func NewValidationError(op, message string) *ProcessorError {
	return &ProcessorError{
		Op:      op,
		Message: message,
		Err:     ErrInvalidRequest,
	}
}
