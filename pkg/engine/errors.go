package engine

import (
	"errors"
	"fmt"
)

// Standard engine error types shared by all backends.
var (
	// ErrNotConnected indicates an operation was attempted before Connect.
	ErrNotConnected = errors.New("engine not connected")

	// ErrStatementBlocked indicates the statement contains a mutating or DDL
	// keyword rejected by the execution guard.
	ErrStatementBlocked = errors.New("statement blocked by execution guard")

	// ErrEmptyStatement indicates an empty or whitespace-only statement.
	ErrEmptyStatement = errors.New("statement is empty")

	// ErrUnsupportedEngineType indicates a registry create with an unknown
	// engine type. This is a configuration error surfaced at creation time.
	ErrUnsupportedEngineType = errors.New("unsupported engine type")

	// ErrEngineNotFound indicates a registry lookup for an unknown instance.
	ErrEngineNotFound = errors.New("engine instance not found")
)

// Error wraps engine failures with operation context.
type Error struct {
	Op     string // Operation being performed (e.g., "connect", "execute")
	Engine string // Engine type or instance name
	Err    error  // Underlying error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s failed on engine %s: %v", e.Op, e.Engine, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewError creates an engine error with operation context.
func NewError(op, engine string, err error) *Error {
	return &Error{Op: op, Engine: engine, Err: err}
}

// IsStatementBlocked checks whether an error came from the execution guard.
func IsStatementBlocked(err error) bool {
	return errors.Is(err, ErrStatementBlocked)
}
