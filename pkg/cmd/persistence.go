package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/askdb/askdb/pkg/persistence"
	"github.com/askdb/askdb/pkg/persistence/file"
	"github.com/askdb/askdb/pkg/persistence/postgresql"
)

// NewPersistence selects a query run store from the database URL scheme.
// Anything that is not postgres is treated as a file root.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) persistence.Persistence {
	switch parseProvider(databaseURL) {
	case "postgres", "postgresql":
		store, err := postgresql.NewPersistence(ctx, logger, databaseURL)
		if err != nil {
			panic(fmt.Errorf("failed to create PostgreSQL persistence: %w", err))
		}

		return store
	default:
		store, err := file.NewPersistence(databaseURL)
		if err != nil {
			panic(fmt.Errorf("failed to create file persistence: %w", err))
		}

		return store
	}
}

func parseProvider(databaseURL string) string {
	parts := strings.Split(databaseURL, "://")

	return parts[0]
}
