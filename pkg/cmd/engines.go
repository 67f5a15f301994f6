package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/askdb/askdb/pkg/engine"
	"github.com/askdb/askdb/pkg/engine/postgres"
	"github.com/askdb/askdb/pkg/engine/sqlite"
)

// NewEngineRegistry builds the engine registry with all known backends
// registered and the "default" instance created and connected from the
// engine URL. sqlite:// URLs (including sqlite://:memory:) select the
// embedded engine and get the sample dataset loaded; postgres:// URLs select
// the networked engine.
func NewEngineRegistry(ctx context.Context, logger *slog.Logger, engineURL string) *engine.Registry {
	registry := engine.NewRegistry(logger)
	registry.RegisterType(engine.TypeSQLite, sqlite.New)
	registry.RegisterType(engine.TypePostgres, postgres.New)

	engineType, cfg := parseEngineURL(engineURL)

	eng, err := registry.Create(engineType, cfg, "default")
	if err != nil {
		panic(fmt.Errorf("failed to create default query engine: %w", err))
	}

	if err := eng.Connect(ctx); err != nil {
		panic(fmt.Errorf("failed to connect default query engine: %w", err))
	}

	if engineType == engine.TypeSQLite {
		if embedded, ok := eng.(*sqlite.Engine); ok {
			if err := embedded.LoadSampleData(ctx); err != nil {
				logger.Warn("Failed to load sample dataset", "error", err)
			}
		}
	}

	return registry
}

func parseEngineURL(engineURL string) (engine.Type, engine.Config) {
	switch {
	case strings.HasPrefix(engineURL, "postgres://"), strings.HasPrefix(engineURL, "postgresql://"):
		return engine.TypePostgres, engine.Config{
			Type: engine.TypePostgres,
			URL:  engineURL,
		}
	case strings.HasPrefix(engineURL, "sqlite://"):
		return engine.TypeSQLite, engine.Config{
			Type: engine.TypeSQLite,
			Path: strings.TrimPrefix(engineURL, "sqlite://"),
		}
	default:
		return engine.TypeSQLite, engine.Config{
			Type: engine.TypeSQLite,
			Path: engineURL,
		}
	}
}
