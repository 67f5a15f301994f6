package oracle

import (
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askdb/askdb/pkg/metadata"
)

func TestRuleBased_Generate(t *testing.T) {
	generator := NewRuleBased(slog.Default())
	tables := metadata.SampleTables()

	tests := []struct {
		question string
		contains string
	}{
		{"Show me recent users", "FROM users"},
		{"How many orders last month?", "FROM orders"},
		{"Show me sales data", "revenue"},
		{"What is the product revenue?", "revenue"},
		{"something unrelated", "SELECT 1"},
	}

	for _, tt := range tests {
		gen, err := generator.Generate(t.Context(), tt.question, tables)
		require.NoError(t, err, tt.question)

		assert.Contains(t, gen.SQL, tt.contains, tt.question)
		assert.True(t, strings.HasSuffix(gen.SQL, ";"))
		assert.InDelta(t, 0.85, gen.Confidence, 0.001)
		assert.Equal(t, 150, gen.TokensUsed)
	}
}

func TestRuleBased_GenerateCancelledContext(t *testing.T) {
	generator := NewRuleBased(slog.Default())

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	_, err := generator.Generate(ctx, "show users", nil)
	require.Error(t, err)

	var genErr *GenerationError

	require.ErrorAs(t, err, &genErr)
	assert.Equal(t, "generate", genErr.Op)
}
