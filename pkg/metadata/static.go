package metadata

import (
	"context"
	"slices"

	"github.com/askdb/askdb/pkg/models"
)

// StaticCatalog serves a fixed table set to every user. It backs development
// mode and tests, where real permission data is not available.
type StaticCatalog struct {
	tables []models.Table
}

// NewStaticCatalog builds a catalog over the given tables. With no tables the
// catalog falls back to the built-in sample schema.
func NewStaticCatalog(tables ...models.Table) *StaticCatalog {
	if len(tables) == 0 {
		tables = SampleTables()
	}

	return &StaticCatalog{tables: tables}
}

func (c *StaticCatalog) AccessibleTables(_ context.Context, _ int64, _ *int64, tableIDs []int64) ([]models.Table, error) {
	if len(tableIDs) == 0 {
		return slices.Clone(c.tables), nil
	}

	filtered := make([]models.Table, 0, len(tableIDs))

	for _, t := range c.tables {
		if slices.Contains(tableIDs, t.ID) {
			filtered = append(filtered, t)
		}
	}

	return filtered, nil
}

// SampleTables describes the development dataset. Contact columns are marked
// masked so result processing redacts them.
func SampleTables() []models.Table {
	return []models.Table{
		{
			ID:          1,
			Name:        "users",
			Description: "Registered user accounts",
			Columns: []models.Column{
				{Name: "id", Type: "INTEGER", Description: "User identifier"},
				{Name: "username", Type: "TEXT", Description: "Login name"},
				{Name: "email", Type: "TEXT", Description: "Contact email", Masked: true},
				{Name: "phone", Type: "TEXT", Description: "Contact phone", Masked: true},
				{Name: "created_at", Type: "TEXT", Description: "Signup date"},
			},
		},
		{
			ID:          2,
			Name:        "orders",
			Description: "Customer orders",
			Columns: []models.Column{
				{Name: "id", Type: "INTEGER", Description: "Order identifier"},
				{Name: "user_id", Type: "INTEGER", Description: "Ordering user"},
				{Name: "product_id", Type: "INTEGER", Description: "Ordered product"},
				{Name: "amount", Type: "REAL", Description: "Order total"},
				{Name: "status", Type: "TEXT", Description: "paid or refunded"},
				{Name: "created_at", Type: "TEXT", Description: "Order date"},
			},
		},
		{
			ID:          3,
			Name:        "products",
			Description: "Product catalog",
			Columns: []models.Column{
				{Name: "id", Type: "INTEGER", Description: "Product identifier"},
				{Name: "name", Type: "TEXT", Description: "Product name"},
				{Name: "category", Type: "TEXT", Description: "Product category"},
				{Name: "price", Type: "REAL", Description: "List price"},
			},
		},
	}
}

var _ Catalog = (*StaticCatalog)(nil)
