package workflow

import "strings"

// suggestions classifies an error message by keyword and returns remediation
// hints for the client.
func suggestions(message string) []string {
	lowered := strings.ToLower(message)

	switch {
	case strings.Contains(lowered, "syntax"):
		return []string{
			"Check the generated SQL for syntax errors",
			"Try rephrasing the question with simpler wording",
		}
	case strings.Contains(lowered, "permission"),
		strings.Contains(lowered, "denied"),
		strings.Contains(lowered, "authorized"):
		return []string{
			"Request access to the referenced tables",
			"Narrow the question to tables you have access to",
		}
	case strings.Contains(lowered, "timeout"),
		strings.Contains(lowered, "deadline"):
		return []string{
			"Narrow the query, for example with a shorter date range",
			"Try again later when the database is less busy",
		}
	default:
		return []string{
			"Try rephrasing the question",
		}
	}
}
