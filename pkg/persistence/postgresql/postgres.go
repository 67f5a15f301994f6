// Package postgresql provides PostgreSQL persistence for query runs.
package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq" // postgres driver

	"github.com/askdb/askdb/pkg/persistence"
	"github.com/askdb/askdb/pkg/persistence/sqlbase"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// Persistence implements the persistence layer for PostgreSQL.
type Persistence struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPersistence connects to PostgreSQL and runs pending migrations.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (*Persistence, error) {
	database, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	err = database.PingContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	migrationManager := sqlbase.NewMigrationManager(logger, database, migrations())

	err = migrationManager.RunMigrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Persistence{db: database, logger: logger}, nil
}

// NewPersistenceWithDB wraps an existing database handle. Migrations are not
// run; used by tests.
func NewPersistenceWithDB(db *sql.DB, logger *slog.Logger) *Persistence {
	return &Persistence{db: db, logger: logger}
}

func (p *Persistence) SaveRun(ctx context.Context, record *persistence.RunRecord) error {
	query := psql.Insert("query_runs").
		Columns("task_id", "user_id", "question", "final_sql", "status",
			"error_message", "error_code", "row_count", "execution_time_ms",
			"tokens_used", "retry_count", "created_at", "completed_at").
		Values(record.TaskID, record.UserID, record.Question, record.FinalSQL,
			record.Status, record.ErrorMessage, record.ErrorCode, record.RowCount,
			record.ExecutionTimeMS, record.TokensUsed, record.RetryCount,
			record.CreatedAt, record.CompletedAt)

	statement, args, err := query.ToSql()
	if err != nil {
		return &persistence.RunError{Op: "save_run", TaskID: record.TaskID, Err: err}
	}

	_, err = p.db.ExecContext(ctx, statement, args...)
	if err != nil {
		return &persistence.RunError{Op: "save_run", TaskID: record.TaskID, Err: err}
	}

	return nil
}

func (p *Persistence) RunByTaskID(ctx context.Context, taskID string) (*persistence.RunRecord, error) {
	query := runColumns().Where(sq.Eq{"task_id": taskID})

	statement, args, err := query.ToSql()
	if err != nil {
		return nil, &persistence.RunError{Op: "run_by_task_id", TaskID: taskID, Err: err}
	}

	record, err := scanRun(p.db.QueryRowContext(ctx, statement, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrRunNotFound
		}

		return nil, &persistence.RunError{Op: "run_by_task_id", TaskID: taskID, Err: err}
	}

	return record, nil
}

func (p *Persistence) RunsByUser(ctx context.Context, userID int64, limit int) ([]*persistence.RunRecord, error) {
	query := runColumns().
		Where(sq.Eq{"user_id": userID}).
		OrderBy("completed_at DESC")

	if limit > 0 {
		query = query.Limit(uint64(limit))
	}

	statement, args, err := query.ToSql()
	if err != nil {
		return nil, &persistence.RunError{Op: "runs_by_user", Err: err}
	}

	rows, err := p.db.QueryContext(ctx, statement, args...)
	if err != nil {
		return nil, &persistence.RunError{Op: "runs_by_user", Err: err}
	}
	defer func() { _ = rows.Close() }()

	records := make([]*persistence.RunRecord, 0)

	for rows.Next() {
		record, err := scanRun(rows)
		if err != nil {
			return nil, &persistence.RunError{Op: "runs_by_user", Err: err}
		}

		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, &persistence.RunError{Op: "runs_by_user", Err: err}
	}

	return records, nil
}

// HealthCheck verifies the database connection is healthy.
func (p *Persistence) HealthCheck(ctx context.Context) error {
	err := p.db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (p *Persistence) Close(_ context.Context) error {
	if p.db != nil {
		err := p.db.Close()
		if err != nil {
			return fmt.Errorf("failed to close database connection: %w", err)
		}
	}

	return nil
}

func runColumns() sq.SelectBuilder {
	return psql.Select("task_id", "user_id", "question", "final_sql", "status",
		"error_message", "error_code", "row_count", "execution_time_ms",
		"tokens_used", "retry_count", "created_at", "completed_at").
		From("query_runs")
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*persistence.RunRecord, error) {
	var (
		record       persistence.RunRecord
		finalSQL     sql.NullString
		errorMessage sql.NullString
		errorCode    sql.NullString
	)

	err := row.Scan(&record.TaskID, &record.UserID, &record.Question, &finalSQL,
		&record.Status, &errorMessage, &errorCode, &record.RowCount,
		&record.ExecutionTimeMS, &record.TokensUsed, &record.RetryCount,
		&record.CreatedAt, &record.CompletedAt)
	if err != nil {
		return nil, err
	}

	record.FinalSQL = finalSQL.String
	record.ErrorMessage = errorMessage.String
	record.ErrorCode = errorCode.String

	return &record, nil
}

var _ persistence.Persistence = (*Persistence)(nil)
