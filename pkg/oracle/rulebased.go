package oracle

import (
	"context"
	"log/slog"
	"strings"

	"github.com/askdb/askdb/pkg/models"
)

// RuleBased is a deterministic Generator for development and tests. It maps
// question keywords onto canned statements over the sample schema.
type RuleBased struct {
	logger *slog.Logger
}

func NewRuleBased(logger *slog.Logger) *RuleBased {
	return &RuleBased{
		logger: logger.With("module", "oracle.rulebased"),
	}
}

func (r *RuleBased) Generate(ctx context.Context, question string, tables []models.Table) (*Generation, error) {
	if err := ctx.Err(); err != nil {
		return nil, &GenerationError{Op: "generate", Err: err}
	}

	sql := r.match(strings.ToLower(question))

	r.logger.DebugContext(ctx, "Generated SQL from rules",
		"question", question,
		"sql", sql,
		"tables", len(tables))

	return &Generation{
		SQL:        sql,
		Confidence: 0.85,
		TokensUsed: 150,
	}, nil
}

func (r *RuleBased) match(question string) string {
	switch {
	case strings.Contains(question, "user"):
		return "SELECT id, username, created_at FROM users ORDER BY created_at DESC LIMIT 10;"
	case strings.Contains(question, "order"):
		return "SELECT id, user_id, amount, status, created_at FROM orders WHERE created_at >= date('now', '-30 days') ORDER BY created_at DESC;"
	case strings.Contains(question, "product"), strings.Contains(question, "sales"), strings.Contains(question, "revenue"):
		return "SELECT p.name, SUM(o.amount) AS revenue FROM orders o JOIN products p ON p.id = o.product_id GROUP BY p.name ORDER BY revenue DESC;"
	default:
		return "SELECT 1;"
	}
}
