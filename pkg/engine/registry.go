package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Type identifies a query engine backend.
type Type string

const (
	TypeSQLite   Type = "sqlite"
	TypePostgres Type = "postgres"
)

// Config carries backend connection settings. Path is used by file-backed
// engines, URL by networked ones.
type Config struct {
	Type            Type
	Path            string
	URL             string
	PoolSize        int
	ConnMaxLifetime time.Duration
}

// Factory creates an engine instance for a configuration.
type Factory func(cfg Config, logger *slog.Logger) (QueryEngine, error)

// Status is the health verdict for one registered instance.
type Status struct {
	Healthy   bool      `json:"healthy"`
	Error     string    `json:"error,omitempty"`
	CheckedAt time.Time `json:"checked_at"`
}

// Registry creates and caches one engine instance per name. Creation is
// idempotent per name and safe under concurrent first use.
type Registry struct {
	logger    *slog.Logger
	mu        sync.Mutex
	factories map[Type]Factory
	engines   map[string]QueryEngine
}

func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		logger:    logger,
		factories: make(map[Type]Factory),
		engines:   make(map[string]QueryEngine),
	}
}

// RegisterType makes an engine type available to Create.
func (r *Registry) RegisterType(t Type, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.factories[t] = factory
}

// Create instantiates exactly one engine per instance name. Repeated calls
// with the same name return the cached instance without reconnecting. An
// unregistered engine type fails fast at creation time.
func (r *Registry) Create(engineType Type, cfg Config, instanceName string) (QueryEngine, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.engines[instanceName]; ok {
		return existing, nil
	}

	factory, ok := r.factories[engineType]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedEngineType, engineType)
	}

	eng, err := factory(cfg, r.logger)
	if err != nil {
		return nil, NewError("create", string(engineType), err)
	}

	r.engines[instanceName] = eng
	r.logger.Info("Created query engine instance",
		"engine_type", engineType, "instance", instanceName)

	return eng, nil
}

// Get looks up a cached instance without creating one.
func (r *Registry) Get(instanceName string) (QueryEngine, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	eng, ok := r.engines[instanceName]

	return eng, ok
}

// Remove evicts an instance from the cache. The caller is responsible for
// disconnecting the engine first.
func (r *Registry) Remove(instanceName string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.engines[instanceName]; !ok {
		return false
	}

	delete(r.engines, instanceName)

	return true
}

// CloseAll disconnects and evicts every cached instance. Used at process
// shutdown.
func (r *Registry) CloseAll(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for name, eng := range r.engines {
		if err := eng.Disconnect(ctx); err != nil {
			r.logger.Error("Failed to disconnect engine", "instance", name, "error", err)
		}
	}

	r.engines = make(map[string]QueryEngine)
}

// HealthCheckAll probes every cached instance. Failures are reported as
// status values, never as errors.
func (r *Registry) HealthCheckAll(ctx context.Context) map[string]Status {
	r.mu.Lock()
	engines := make(map[string]QueryEngine, len(r.engines))
	for name, eng := range r.engines {
		engines[name] = eng
	}
	r.mu.Unlock()

	statuses := make(map[string]Status, len(engines))

	for name, eng := range engines {
		status := Status{Healthy: true, CheckedAt: time.Now().UTC()}

		if err := eng.Ping(ctx); err != nil {
			status.Healthy = false
			status.Error = err.Error()
		}

		statuses[name] = status
	}

	return statuses
}
