// Package engine defines the query engine abstraction: a uniform contract
// over heterogeneous SQL backends, plus the registry that manages named
// engine instances.
package engine

import (
	"context"
	"time"

	"github.com/askdb/askdb/pkg/models"
)

// SyntaxResult is the verdict of a backend syntax check.
type SyntaxResult struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}

// TableInfo describes one table reported by schema introspection.
type TableInfo struct {
	Name    string `json:"name"`
	Comment string `json:"comment,omitempty"`
}

// ColumnInfo describes one column reported by schema introspection.
type ColumnInfo struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Nullable bool   `json:"nullable"`
	Default  string `json:"default,omitempty"`
}

// SchemaInfo is the read-only introspection payload. When a table name was
// given, Columns is populated; otherwise Tables lists everything visible.
type SchemaInfo struct {
	Tables  []TableInfo  `json:"tables"`
	Columns []ColumnInfo `json:"columns"`
}

// QueryEngine is the contract every backend implements. Connect is
// idempotent when already connected and Disconnect is safe to call when not
// connected. Execute rejects mutating statements regardless of upstream
// validation and never retries internally; retry is the caller's choice via
// ExecuteWithRetry.
type QueryEngine interface {
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error

	// Execute runs a single read statement. A zero timeout means no
	// deadline beyond what ctx already carries.
	Execute(ctx context.Context, sql string, params []any, timeout time.Duration) (*models.QueryResult, error)

	// ValidateSyntax checks the statement with the backend's own plan
	// facility. It never mutates data.
	ValidateSyntax(ctx context.Context, sql string) (*SyntaxResult, error)

	// SchemaInfo introspects the backend. An empty tableName lists tables;
	// a non-empty one lists that table's columns.
	SchemaInfo(ctx context.Context, tableName string) (*SchemaInfo, error)

	// Ping is the lightweight health probe used by the registry.
	Ping(ctx context.Context) error
}
