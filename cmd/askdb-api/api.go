// Package main provides the AskDB API server implementation.
package main

import (
	"log/slog"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/robfig/cron/v3"

	"github.com/askdb/askdb/pkg/engine"
	"github.com/askdb/askdb/pkg/processor"
	"github.com/askdb/askdb/pkg/web"
)

type API struct {
	logger        *slog.Logger
	processor     *processor.Processor
	engines       *engine.Registry
	validate      *validator.Validate
	cleanupMaxAge time.Duration
}

func NewAPI(
	logger *slog.Logger,
	proc *processor.Processor,
	engines *engine.Registry,
	cleanupMaxAge time.Duration,
) *API {
	return &API{
		logger:        logger,
		processor:     proc,
		engines:       engines,
		validate:      validator.New(validator.WithRequiredStructEnabled()),
		cleanupMaxAge: cleanupMaxAge,
	}
}

func (a *API) App() *fiber.App {
	handlers := web.NewAPIHandlers(a.processor, a.engines, a.validate)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("AskDB API")
	})

	q := app.Group("/queries")
	q.Post("/", handlers.SubmitQuery)
	q.Get("/history", handlers.GetQueryHistory)
	q.Get("/:id/status", handlers.GetQueryStatus)
	q.Get("/:id/result", handlers.GetQueryResult)
	q.Post("/:id/cancel", handlers.CancelQuery)

	app.Get("/engines/health", handlers.GetEnginesHealth)
	app.Get("/health", handlers.HealthCheck)

	return app
}

// Start runs the HTTP server and the hourly task registry cleanup.
func (a *API) Start(port int) error {
	scheduler := cron.New()

	_, err := scheduler.AddFunc("@hourly", func() {
		a.processor.Cleanup(a.cleanupMaxAge)
	})
	if err != nil {
		return err
	}

	scheduler.Start()
	defer scheduler.Stop()

	app := a.App()

	return app.Listen(":" + strconv.Itoa(port))
}
