package main

import (
	"context"
	"os"
	"time"

	cli "github.com/urfave/cli/v3"

	"github.com/askdb/askdb/pkg/cmd"
	"github.com/askdb/askdb/pkg/log"
	"github.com/askdb/askdb/pkg/metadata"
	"github.com/askdb/askdb/pkg/oracle"
	"github.com/askdb/askdb/pkg/otelhelper"
	"github.com/askdb/askdb/pkg/processor"
	"github.com/askdb/askdb/pkg/workflow"
)

const defaultPort = 9080

func main() {
	command := &cli.Command{
		Name:                  "askdb-api",
		Usage:                 "Submit natural-language questions and track query tasks",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:    "engine-url",
				Usage:   "Query engine URL (sqlite://:memory:, sqlite://path, postgres://...)",
				Value:   "sqlite://:memory:",
				Sources: cli.EnvVars("ENGINE_URL"),
			},
			&cli.StringFlag{
				Name:    "database-url",
				Usage:   "Storage URL for query run history (file://path or postgres://...)",
				Value:   "file://./data",
				Sources: cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus provider (gochannel, kafka)",
				Value:   "gochannel",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.IntFlag{
				Name:    "max-retries",
				Usage:   "Maximum SQL regeneration attempts per query",
				Value:   3,
				Sources: cli.EnvVars("MAX_RETRIES"),
			},
			&cli.DurationFlag{
				Name:    "cleanup-max-age",
				Usage:   "Age after which finished tasks are evicted from the registry",
				Value:   24 * time.Hour,
				Sources: cli.EnvVars("CLEANUP_MAX_AGE"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			logger := log.WithModule("api")
			logger.InfoContext(ctx, "Initializing AskDB API")

			tracer, err := otelhelper.NewTracer(ctx, "askdb-api")
			if err != nil {
				return err
			}

			engines := cmd.NewEngineRegistry(ctx, logger, command.String("engine-url"))
			defer engines.CloseAll(ctx)

			store := cmd.NewPersistence(ctx, logger, command.String("database-url"))

			defer func() {
				if err := store.Close(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			eventBus := cmd.NewEventBus(command.String("event-bus"), logger)
			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			cfg := workflow.DefaultConfig()
			cfg.MaxRetries = command.Int("max-retries")

			workflows := workflow.New(
				engines,
				oracle.NewRuleBased(logger),
				metadata.NewStaticCatalog(),
				eventBus,
				tracer,
				logger,
				cfg,
			)

			proc := processor.New(workflows, store, logger)

			api := NewAPI(logger, proc, engines, command.Duration("cleanup-max-age"))

			return api.Start(command.Int("port"))
		},
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}
