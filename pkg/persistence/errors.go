package persistence

import (
	"errors"
	"fmt"
)

var ErrRunNotFound = errors.New("query run not found")

// RunError wraps storage failures with operation context.
type RunError struct {
	Op     string
	TaskID string
	Err    error
}

func (e *RunError) Error() string {
	if e.TaskID != "" {
		return fmt.Sprintf("persistence: %s for task %s: %v", e.Op, e.TaskID, e.Err)
	}

	return fmt.Sprintf("persistence: %s: %v", e.Op, e.Err)
}

func (e *RunError) Unwrap() error {
	return e.Err
}
