package engine

import (
	"fmt"
	"regexp"
	"strings"
)

// writeKeywords are the statement keywords every engine rejects at execute
// time, independent of upstream validation.
var writeKeywords = []string{
	"DROP", "DELETE", "TRUNCATE", "ALTER", "CREATE",
	"INSERT", "UPDATE", "GRANT", "REVOKE",
}

var writeKeywordPattern = regexp.MustCompile(
	`(?i)(^|[^a-zA-Z0-9_])(` + strings.Join(writeKeywords, "|") + `)([^a-zA-Z0-9_]|$)`,
)

// GuardStatement trims the statement and rejects empty input and anything
// containing a mutation or DDL keyword as a standalone word. Identifiers
// that merely contain a keyword (created_at, update_count) pass.
func GuardStatement(sql string) (string, error) {
	trimmed := strings.TrimSpace(sql)
	if trimmed == "" {
		return "", ErrEmptyStatement
	}

	if match := writeKeywordPattern.FindStringSubmatch(trimmed); match != nil {
		return "", fmt.Errorf("%w: %s", ErrStatementBlocked, strings.ToUpper(match[2]))
	}

	return trimmed, nil
}
