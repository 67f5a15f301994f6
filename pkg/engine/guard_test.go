package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGuardStatement_AllowsReads(t *testing.T) {
	statements := []string{
		"SELECT * FROM users",
		"select id from orders where status = 'paid'",
		"WITH recent AS (SELECT * FROM orders) SELECT * FROM recent",
	}

	for _, sql := range statements {
		cleaned, err := GuardStatement(sql)
		require.NoError(t, err, sql)
		assert.Equal(t, sql, cleaned)
	}
}

func TestGuardStatement_BlocksWriteKeywords(t *testing.T) {
	statements := map[string]string{
		"DROP TABLE users":                        "DROP",
		"delete from orders":                      "DELETE",
		"TRUNCATE users":                          "TRUNCATE",
		"ALTER TABLE users ADD COLUMN x INT":      "ALTER",
		"CREATE TABLE t (id INT)":                 "CREATE",
		"INSERT INTO users VALUES (1)":            "INSERT",
		"UPDATE users SET name = 'x'":             "UPDATE",
		"GRANT ALL ON users TO bob":               "GRANT",
		"REVOKE ALL ON users FROM bob":            "REVOKE",
		"SELECT 1; DROP TABLE users":              "DROP",
		"SELECT * FROM users WHERE x = 1;DELETE ": "DELETE",
	}

	for sql, keyword := range statements {
		_, err := GuardStatement(sql)
		require.Error(t, err, sql)
		assert.ErrorIs(t, err, ErrStatementBlocked)
		assert.Contains(t, err.Error(), keyword)
	}
}

func TestGuardStatement_KeywordInsideIdentifierPasses(t *testing.T) {
	statements := []string{
		"SELECT created_at FROM users",
		"SELECT update_count FROM stats",
		"SELECT * FROM grants_view",
		"SELECT dropped FROM audit",
	}

	for _, sql := range statements {
		_, err := GuardStatement(sql)
		assert.NoError(t, err, sql)
	}
}

func TestGuardStatement_EmptyStatement(t *testing.T) {
	for _, sql := range []string{"", "   ", "\n\t"} {
		_, err := GuardStatement(sql)
		assert.ErrorIs(t, err, ErrEmptyStatement)
	}
}

func TestIsStatementBlocked(t *testing.T) {
	_, err := GuardStatement("DROP TABLE users")
	assert.True(t, IsStatementBlocked(err))

	_, err = GuardStatement("SELECT 1")
	assert.False(t, IsStatementBlocked(err))
}
