// Package sqlite provides the in-process analytical query engine. It backs
// development and test deployments and requires no external services.
package sqlite

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/askdb/askdb/pkg/engine"
	"github.com/askdb/askdb/pkg/models"
	_ "modernc.org/sqlite" // pure Go sqlite driver
)

const memoryPath = ":memory:"

// Engine implements engine.QueryEngine over an embedded sqlite database.
type Engine struct {
	path   string
	pool   int
	logger *slog.Logger

	mu sync.Mutex
	db *sql.DB
}

// New creates an sqlite engine for the configured path. An empty path or
// ":memory:" selects an in-memory database.
func New(cfg engine.Config, logger *slog.Logger) (engine.QueryEngine, error) {
	path := cfg.Path
	if path == "" {
		path = memoryPath
	}

	pool := cfg.PoolSize
	if pool <= 0 {
		pool = 4
	}

	return &Engine{path: path, pool: pool, logger: logger}, nil
}

// Connect opens the database. Idempotent when already connected.
func (e *Engine) Connect(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.db != nil {
		return nil
	}

	if e.path != memoryPath {
		if err := os.MkdirAll(filepath.Dir(e.path), 0o755); err != nil {
			return engine.NewError("connect", "sqlite", err)
		}
	}

	db, err := sql.Open("sqlite", e.path)
	if err != nil {
		return engine.NewError("connect", "sqlite", err)
	}

	if e.path == memoryPath {
		// Each pooled connection would otherwise get its own memory database.
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(e.pool)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()

		return engine.NewError("connect", "sqlite", err)
	}

	e.db = db
	e.logger.Info("sqlite engine connected", "path", e.path)

	return nil
}

// Disconnect closes the database. Safe to call when not connected and safe
// to call multiple times.
func (e *Engine) Disconnect(_ context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.db == nil {
		return nil
	}

	err := e.db.Close()
	e.db = nil

	if err != nil {
		return engine.NewError("disconnect", "sqlite", err)
	}

	return nil
}

func (e *Engine) conn() (*sql.DB, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.db == nil {
		return nil, engine.NewError("execute", "sqlite", engine.ErrNotConnected)
	}

	return e.db, nil
}

// Execute runs a single read statement, measuring wall-clock time around
// the call. Mutating statements are rejected by the guard.
func (e *Engine) Execute(ctx context.Context, sqlText string, params []any, timeout time.Duration) (*models.QueryResult, error) {
	cleaned, err := engine.GuardStatement(sqlText)
	if err != nil {
		return nil, engine.NewError("execute", "sqlite", err)
	}

	db, err := e.conn()
	if err != nil {
		return nil, err
	}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)

		defer cancel()
	}

	start := time.Now()

	rows, err := db.QueryContext(ctx, cleaned, params...)
	if err != nil {
		return nil, engine.NewError("execute", "sqlite", err)
	}
	defer rows.Close()

	columns, data, err := engine.ScanRows(rows)
	if err != nil {
		return nil, engine.NewError("execute", "sqlite", err)
	}

	elapsed := time.Since(start).Milliseconds()

	e.logger.Debug("sqlite query executed", "rows", len(data), "elapsed_ms", elapsed)

	return models.NewQueryResult(columns, data, elapsed, cleaned), nil
}

// ValidateSyntax checks the statement with sqlite's own planner via EXPLAIN.
// It never touches data.
func (e *Engine) ValidateSyntax(ctx context.Context, sqlText string) (*engine.SyntaxResult, error) {
	trimmed := strings.TrimSpace(sqlText)
	if trimmed == "" {
		return &engine.SyntaxResult{Valid: false, Errors: []string{"statement is empty"}}, nil
	}

	db, err := e.conn()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, "EXPLAIN "+strings.TrimSuffix(trimmed, ";"))
	if err != nil {
		return &engine.SyntaxResult{Valid: false, Errors: []string{err.Error()}}, nil
	}

	defer rows.Close()

	if err := rows.Err(); err != nil {
		return &engine.SyntaxResult{Valid: false, Errors: []string{err.Error()}}, nil
	}

	return &engine.SyntaxResult{Valid: true, Errors: []string{}}, nil
}

// SchemaInfo lists tables from sqlite_master, or column details for one
// table via pragma.
func (e *Engine) SchemaInfo(ctx context.Context, tableName string) (*engine.SchemaInfo, error) {
	db, err := e.conn()
	if err != nil {
		return nil, err
	}

	info := &engine.SchemaInfo{Tables: []engine.TableInfo{}, Columns: []engine.ColumnInfo{}}

	if tableName == "" {
		rows, err := db.QueryContext(ctx,
			`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`)
		if err != nil {
			return nil, engine.NewError("schema_info", "sqlite", err)
		}
		defer rows.Close()

		for rows.Next() {
			var name string
			if err := rows.Scan(&name); err != nil {
				return nil, engine.NewError("schema_info", "sqlite", err)
			}

			info.Tables = append(info.Tables, engine.TableInfo{Name: name})
		}

		return info, rows.Err()
	}

	// table_info is a pragma function; the name cannot be bound as a
	// placeholder, so it is passed as an argument to the table-valued form.
	rows, err := db.QueryContext(ctx,
		`SELECT name, type, "notnull", COALESCE(dflt_value, '') FROM pragma_table_info(?)`, tableName)
	if err != nil {
		return nil, engine.NewError("schema_info", "sqlite", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			col     engine.ColumnInfo
			notNull int
		)

		if err := rows.Scan(&col.Name, &col.Type, &notNull, &col.Default); err != nil {
			return nil, engine.NewError("schema_info", "sqlite", err)
		}

		col.Nullable = notNull == 0
		info.Columns = append(info.Columns, col)
	}

	return info, rows.Err()
}

// Ping runs the registry health probe.
func (e *Engine) Ping(ctx context.Context) error {
	db, err := e.conn()
	if err != nil {
		return err
	}

	var one int
	if err := db.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		return engine.NewError("ping", "sqlite", err)
	}

	return nil
}

// LoadSampleData seeds a small analytics dataset for development mode.
func (e *Engine) LoadSampleData(ctx context.Context) error {
	db, err := e.conn()
	if err != nil {
		return err
	}

	statements := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY,
			username TEXT NOT NULL,
			email TEXT,
			phone TEXT,
			created_at TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS orders (
			id INTEGER PRIMARY KEY,
			user_id INTEGER NOT NULL,
			product_id INTEGER NOT NULL,
			amount REAL NOT NULL,
			status TEXT NOT NULL,
			created_at TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS products (
			id INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			category TEXT,
			price REAL NOT NULL
		)`,
		`DELETE FROM users`,
		`DELETE FROM orders`,
		`DELETE FROM products`,
		`INSERT INTO users (id, username, email, phone, created_at) VALUES
			(1, 'alice', 'alice@example.com', '555-0100', '2025-01-02'),
			(2, 'bob', 'bob@example.com', '555-0101', '2025-02-14'),
			(3, 'carol', 'carol@example.com', '555-0102', '2025-03-22')`,
		`INSERT INTO orders (id, user_id, product_id, amount, status, created_at) VALUES
			(1, 1, 2, 120.50, 'paid', '2025-06-01'),
			(2, 1, 1, 39.99, 'paid', '2025-06-12'),
			(3, 2, 3, 310.00, 'refunded', '2025-07-03'),
			(4, 3, 2, 75.25, 'paid', '2025-07-18')`,
		`INSERT INTO products (id, name, category, price) VALUES
			(1, 'widget', 'hardware', 9.99),
			(2, 'gadget', 'hardware', 24.99),
			(3, 'license', 'software', 199.00)`,
	}

	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return engine.NewError("load_sample_data", "sqlite", err)
		}
	}

	e.logger.Info("sqlite sample dataset loaded")

	return nil
}

var _ engine.QueryEngine = (*Engine)(nil)
