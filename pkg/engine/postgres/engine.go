// Package postgres provides the networked relational query engine. It keeps
// a capped connection pool that is independent of the number of concurrent
// workflow runs; excess executes queue on pool acquisition.
package postgres

import (
	"context"
	"database/sql"
	"log/slog"
	"strings"
	"sync"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/askdb/askdb/pkg/engine"
	"github.com/askdb/askdb/pkg/models"
	_ "github.com/lib/pq" // postgres wire driver
)

const (
	defaultPoolSize        = 10
	defaultConnMaxLifetime = time.Hour
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// Engine implements engine.QueryEngine over a PostgreSQL server.
type Engine struct {
	url             string
	poolSize        int
	connMaxLifetime time.Duration
	logger          *slog.Logger

	mu sync.Mutex
	db *sql.DB
}

// New creates a postgres engine for the configured connection URL.
func New(cfg engine.Config, logger *slog.Logger) (engine.QueryEngine, error) {
	poolSize := cfg.PoolSize
	if poolSize <= 0 {
		poolSize = defaultPoolSize
	}

	lifetime := cfg.ConnMaxLifetime
	if lifetime <= 0 {
		lifetime = defaultConnMaxLifetime
	}

	return &Engine{
		url:             cfg.URL,
		poolSize:        poolSize,
		connMaxLifetime: lifetime,
		logger:          logger,
	}, nil
}

// NewWithDB wraps an existing database handle. Used by tests and by callers
// that manage the pool themselves.
func NewWithDB(db *sql.DB, logger *slog.Logger) *Engine {
	return &Engine{db: db, logger: logger, poolSize: defaultPoolSize}
}

// Connect establishes the connection pool. Idempotent when already
// connected.
func (e *Engine) Connect(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.db != nil {
		return nil
	}

	db, err := sql.Open("postgres", e.url)
	if err != nil {
		return engine.NewError("connect", "postgres", err)
	}

	db.SetMaxOpenConns(e.poolSize)
	db.SetMaxIdleConns(e.poolSize / 2)
	db.SetConnMaxLifetime(e.connMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()

		return engine.NewError("connect", "postgres", err)
	}

	e.db = db
	e.logger.Info("postgres engine connected", "pool_size", e.poolSize)

	return nil
}

// Disconnect releases the pool. Safe to call when not connected and safe to
// call multiple times.
func (e *Engine) Disconnect(_ context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.db == nil {
		return nil
	}

	err := e.db.Close()
	e.db = nil

	if err != nil {
		return engine.NewError("disconnect", "postgres", err)
	}

	return nil
}

func (e *Engine) conn() (*sql.DB, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.db == nil {
		return nil, engine.NewError("execute", "postgres", engine.ErrNotConnected)
	}

	return e.db, nil
}

// Execute runs a single read statement with wall-clock timing. The timeout,
// when set, becomes a context deadline; exceeding it surfaces as a normal
// engine error.
func (e *Engine) Execute(ctx context.Context, sqlText string, params []any, timeout time.Duration) (*models.QueryResult, error) {
	cleaned, err := engine.GuardStatement(sqlText)
	if err != nil {
		return nil, engine.NewError("execute", "postgres", err)
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
		return nil, engine.NewError("execute", "postgres", err)
	}
	defer rows.Close()

	columns, data, err := engine.ScanRows(rows)
	if err != nil {
		return nil, engine.NewError("execute", "postgres", err)
	}

	elapsed := time.Since(start).Milliseconds()

	e.logger.Debug("postgres query executed", "rows", len(data), "elapsed_ms", elapsed)

	return models.NewQueryResult(columns, data, elapsed, cleaned), nil
}

// ValidateSyntax asks the server to plan the statement via EXPLAIN, which
// parses and analyzes without executing.
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

// SchemaInfo introspects information_schema, read-only.
func (e *Engine) SchemaInfo(ctx context.Context, tableName string) (*engine.SchemaInfo, error) {
	db, err := e.conn()
	if err != nil {
		return nil, err
	}

	info := &engine.SchemaInfo{Tables: []engine.TableInfo{}, Columns: []engine.ColumnInfo{}}

	if tableName == "" {
		query, args, err := psql.
			Select("table_name").
			From("information_schema.tables").
			Where(sq.Eq{"table_schema": "public", "table_type": "BASE TABLE"}).
			OrderBy("table_name").
			ToSql()
		if err != nil {
			return nil, engine.NewError("schema_info", "postgres", err)
		}

		rows, err := db.QueryContext(ctx, query, args...)
		if err != nil {
			return nil, engine.NewError("schema_info", "postgres", err)
		}
		defer rows.Close()

		for rows.Next() {
			var name string
			if err := rows.Scan(&name); err != nil {
				return nil, engine.NewError("schema_info", "postgres", err)
			}

			info.Tables = append(info.Tables, engine.TableInfo{Name: name})
		}

		return info, rows.Err()
	}

	query, args, err := psql.
		Select("column_name", "data_type", "is_nullable", "COALESCE(column_default, '')").
		From("information_schema.columns").
		Where(sq.Eq{"table_schema": "public", "table_name": tableName}).
		OrderBy("ordinal_position").
		ToSql()
	if err != nil {
		return nil, engine.NewError("schema_info", "postgres", err)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, engine.NewError("schema_info", "postgres", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			col      engine.ColumnInfo
			nullable string
		)

		if err := rows.Scan(&col.Name, &col.Type, &nullable, &col.Default); err != nil {
			return nil, engine.NewError("schema_info", "postgres", err)
		}

		col.Nullable = strings.EqualFold(nullable, "YES")
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
		return engine.NewError("ping", "postgres", err)
	}

	return nil
}

var _ engine.QueryEngine = (*Engine)(nil)
