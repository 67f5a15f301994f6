package postgres

import (
	"errors"
	"log/slog"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askdb/askdb/pkg/engine"
)

func newMockEngine(t *testing.T) (*Engine, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = db.Close()
	})

	return NewWithDB(db, slog.Default()), mock
}

func TestEngine_ExecuteSelect(t *testing.T) {
	eng, mock := newMockEngine(t)

	mock.ExpectQuery("SELECT id, username FROM users").
		WillReturnRows(sqlmock.NewRows([]string{"id", "username"}).
			AddRow(1, "alice").
			AddRow(2, "bob"))

	result, err := eng.Execute(t.Context(), "SELECT id, username FROM users", nil, 0)
	require.NoError(t, err)

	assert.Equal(t, []string{"id", "username"}, result.Columns)
	assert.Equal(t, 2, result.RowCount)
	assert.Equal(t, "alice", result.Rows[0][1])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEngine_ExecuteRejectsWritesWithoutTouchingServer(t *testing.T) {
	eng, mock := newMockEngine(t)

	_, err := eng.Execute(t.Context(), "DELETE FROM users", nil, 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, engine.ErrStatementBlocked)

	// No query must have reached the server.
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEngine_ExecuteQueryError(t *testing.T) {
	eng, mock := newMockEngine(t)

	mock.ExpectQuery("SELECT * FROM missing").
		WillReturnError(errors.New(`relation "missing" does not exist`))

	_, err := eng.Execute(t.Context(), "SELECT * FROM missing", nil, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")
}

func TestEngine_ValidateSyntax(t *testing.T) {
	eng, mock := newMockEngine(t)

	mock.ExpectQuery("EXPLAIN SELECT 1").
		WillReturnRows(sqlmock.NewRows([]string{"QUERY PLAN"}).AddRow("Result"))

	valid, err := eng.ValidateSyntax(t.Context(), "SELECT 1;")
	require.NoError(t, err)
	assert.True(t, valid.Valid)

	mock.ExpectQuery("EXPLAIN SELEC 1").
		WillReturnError(errors.New(`syntax error at or near "SELEC"`))

	invalid, err := eng.ValidateSyntax(t.Context(), "SELEC 1")
	require.NoError(t, err)
	assert.False(t, invalid.Valid)
	require.NotEmpty(t, invalid.Errors)
	assert.Contains(t, invalid.Errors[0], "syntax error")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEngine_SchemaInfoTables(t *testing.T) {
	eng, mock := newMockEngine(t)

	mock.ExpectQuery("SELECT table_name FROM information_schema.tables WHERE table_schema = $1 AND table_type = $2 ORDER BY table_name").
		WithArgs("public", "BASE TABLE").
		WillReturnRows(sqlmock.NewRows([]string{"table_name"}).
			AddRow("orders").
			AddRow("users"))

	info, err := eng.SchemaInfo(t.Context(), "")
	require.NoError(t, err)

	require.Len(t, info.Tables, 2)
	assert.Equal(t, "orders", info.Tables[0].Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEngine_SchemaInfoColumns(t *testing.T) {
	eng, mock := newMockEngine(t)

	mock.ExpectQuery("SELECT column_name, data_type, is_nullable, COALESCE(column_default, '') FROM information_schema.columns WHERE table_name = $1 AND table_schema = $2 ORDER BY ordinal_position").
		WithArgs("users", "public").
		WillReturnRows(sqlmock.NewRows([]string{"column_name", "data_type", "is_nullable", "column_default"}).
			AddRow("id", "bigint", "NO", "nextval('users_id_seq')").
			AddRow("username", "text", "YES", ""))

	info, err := eng.SchemaInfo(t.Context(), "users")
	require.NoError(t, err)

	require.Len(t, info.Columns, 2)
	assert.Equal(t, "id", info.Columns[0].Name)
	assert.False(t, info.Columns[0].Nullable)
	assert.True(t, info.Columns[1].Nullable)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEngine_Ping(t *testing.T) {
	eng, mock := newMockEngine(t)

	mock.ExpectQuery("SELECT 1").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))

	assert.NoError(t, eng.Ping(t.Context()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEngine_NotConnected(t *testing.T) {
	eng, err := New(engine.Config{URL: "postgres://localhost/askdb"}, slog.Default())
	require.NoError(t, err)

	_, execErr := eng.Execute(t.Context(), "SELECT 1", nil, 0)
	assert.ErrorIs(t, execErr, engine.ErrNotConnected)
}
