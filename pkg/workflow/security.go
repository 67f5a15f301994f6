package workflow

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/askdb/askdb/pkg/engine"
	"github.com/askdb/askdb/pkg/models"
)

// injectionPatterns are substrings that never belong in generated read-only
// SQL. Checked case-insensitively against the cleaned statement.
var injectionPatterns = []string{
	"--",
	"/*",
	"*/",
	";--",
	"' or '1'='1",
}

// tablePattern extracts table references from FROM and JOIN clauses. Aliases
// and schema qualifiers are handled by taking the last identifier segment.
var tablePattern = regexp.MustCompile(`(?i)\b(?:FROM|JOIN)\s+([a-zA-Z_][a-zA-Z0-9_.]*)`)

// securityIssues runs the keyword denylist and injection-pattern checks.
func securityIssues(sql string) []string {
	var issues []string

	if _, err := engine.GuardStatement(sql); err != nil {
		issues = append(issues, err.Error())
	}

	lowered := strings.ToLower(sql)
	for _, pattern := range injectionPatterns {
		if strings.Contains(lowered, pattern) {
			issues = append(issues, fmt.Sprintf("suspicious pattern %q detected", pattern))
		}
	}

	return issues
}

// permissionIssues verifies the caller identity and that every referenced
// table is in the pre-authorized set.
func permissionIssues(sql string, userID int64, tables []models.Table) []string {
	if userID <= 0 {
		return []string{"user identity is missing"}
	}

	authorized := make(map[string]bool, len(tables))
	for _, t := range tables {
		authorized[strings.ToLower(t.Name)] = true
	}

	var issues []string

	for _, name := range referencedTables(sql) {
		if !authorized[name] {
			issues = append(issues, fmt.Sprintf("table %q is not authorized for this user", name))
		}
	}

	return issues
}

// referencedTables lists the distinct table names a statement reads from, in
// order of first appearance.
func referencedTables(sql string) []string {
	seen := make(map[string]bool)

	var names []string

	for _, match := range tablePattern.FindAllStringSubmatch(sql, -1) {
		name := strings.ToLower(match[1])
		if idx := strings.LastIndex(name, "."); idx >= 0 {
			name = name[idx+1:]
		}

		if name == "" || seen[name] {
			continue
		}

		seen[name] = true

		names = append(names, name)
	}

	return names
}
