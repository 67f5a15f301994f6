// Package metadata resolves which tables a user may query and carries the
// column descriptions the generator is prompted with.
package metadata

import (
	"context"
	"fmt"

	"github.com/askdb/askdb/pkg/models"
)

// Catalog answers table accessibility questions for a user. Implementations
// may consult a permission service or static configuration.
type Catalog interface {
	// AccessibleTables returns the tables the user may query, optionally
	// narrowed to a theme and an explicit table id selection.
	AccessibleTables(ctx context.Context, userID int64, themeID *int64, tableIDs []int64) ([]models.Table, error)
}

// CatalogError wraps failures from a Catalog backend.
type CatalogError struct {
	Op     string
	UserID int64
	Err    error
}

func (e *CatalogError) Error() string {
	return fmt.Sprintf("metadata: %s for user %d: %v", e.Op, e.UserID, e.Err)
}

func (e *CatalogError) Unwrap() error {
	return e.Err
}
