// Package oracle defines the SQL generation abstraction. A Generator turns a
// natural-language question plus accessible table metadata into a candidate
// SQL statement with a confidence score.
package oracle

import (
	"context"
	"fmt"

	"github.com/askdb/askdb/pkg/models"
)

// Generation is the outcome of one generation attempt.
type Generation struct {
	SQL        string
	Confidence float64
	TokensUsed int
}

// Generator produces SQL for a question against a set of tables.
type Generator interface {
	Generate(ctx context.Context, question string, tables []models.Table) (*Generation, error)
}

// GenerationError wraps failures from a Generator backend.
type GenerationError struct {
	Op  string
	Err error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("oracle: %s: %v", e.Op, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}
