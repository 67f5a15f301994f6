// Package workflow implements the query pipeline state machine. A run drives
// one submitted question through input validation, SQL generation, validation,
// execution, and result processing, with bounded regeneration on validation
// failure and cooperative cancellation at node boundaries.
package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/askdb/askdb/pkg/engine"
	"github.com/askdb/askdb/pkg/eventbus"
	"github.com/askdb/askdb/pkg/events"
	"github.com/askdb/askdb/pkg/metadata"
	"github.com/askdb/askdb/pkg/models"
	"github.com/askdb/askdb/pkg/oracle"
	"github.com/askdb/askdb/pkg/otelhelper"
)

// step identifies a pipeline node. Nodes return the next step explicitly so
// the driver loop can match transitions exhaustively.
type step int

const (
	stepValidateInput step = iota
	stepGenerateSQL
	stepValidateSQL
	stepExecuteSQL
	stepProcessResult
	stepHandleError
	stepDone
)

const (
	nodeValidateInput = "validate_input"
	nodeGenerateSQL   = "generate_sql"
	nodeValidateSQL   = "validate_sql"
	nodeExecuteSQL    = "execute_sql"
	nodeProcessResult = "process_result"
	nodeHandleError   = "handle_error"
)

// Config carries the tunables of a workflow run.
type Config struct {
	// EngineName selects the registry instance used for validation and
	// execution.
	EngineName string

	// MaxRetries bounds SQL regeneration: total generation attempts are at
	// most MaxRetries+1.
	MaxRetries int

	// RetainedRows caps how many result rows are kept on the workflow state.
	RetainedRows int

	// MaxResultRows is the hard cap on rows returned to the client.
	MaxResultRows int

	// ExecuteTimeout is passed through to the engine per statement.
	ExecuteTimeout time.Duration

	// ExecuteRetries and ExecuteRetryDelay configure the exponential backoff
	// around statement execution.
	ExecuteRetries    uint64
	ExecuteRetryDelay time.Duration
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		EngineName:        "default",
		MaxRetries:        3,
		RetainedRows:      100,
		MaxResultRows:     1000,
		ExecuteTimeout:    30 * time.Second,
		ExecuteRetries:    2,
		ExecuteRetryDelay: 500 * time.Millisecond,
	}
}

// Hooks let the task registry observe a run without sharing its state.
// Cancelled is polled at node boundaries; Checkpoint is called after every
// progress update so the registry can snapshot status fields under its own
// lock. Both are optional.
type Hooks struct {
	Cancelled  func() bool
	Checkpoint func(state *models.WorkflowState)
}

func (h Hooks) cancelled() bool {
	return h.Cancelled != nil && h.Cancelled()
}

func (h Hooks) checkpoint(state *models.WorkflowState) {
	if h.Checkpoint != nil {
		h.Checkpoint(state)
	}
}

// Engine runs query workflows. It is safe for concurrent use; each run owns
// its own state.
type Engine struct {
	engines   *engine.Registry
	generator oracle.Generator
	catalog   metadata.Catalog
	publisher eventbus.EventPublisher
	tracer    trace.Tracer
	logger    *slog.Logger
	cfg       Config
}

func New(
	engines *engine.Registry,
	generator oracle.Generator,
	catalog metadata.Catalog,
	publisher eventbus.EventPublisher,
	tracer trace.Tracer,
	logger *slog.Logger,
	cfg Config,
) *Engine {
	if cfg.EngineName == "" {
		cfg.EngineName = "default"
	}

	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}

	if cfg.RetainedRows <= 0 {
		cfg.RetainedRows = 100
	}

	if cfg.MaxResultRows <= 0 {
		cfg.MaxResultRows = 1000
	}

	return &Engine{
		engines:   engines,
		generator: generator,
		catalog:   catalog,
		publisher: publisher,
		tracer:    tracer,
		logger:    logger.With("module", "workflow"),
		cfg:       cfg,
	}
}

// Config returns the engine's effective configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// run bundles everything one execution needs. It is confined to a single
// goroutine.
type run struct {
	engine *Engine
	state  *models.WorkflowState
	hooks  Hooks
	logger *slog.Logger

	tables     []models.Table
	failedNode string
}

// Run executes the state machine to a terminal status. It never returns an
// error: every fault inside a node is converted into a terminal failed status
// plus an error notification.
func (e *Engine) Run(ctx context.Context, state *models.WorkflowState, hooks Hooks) models.TaskStatus {
	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "workflow.run",
		attribute.String(otelhelper.TaskIDKey, state.TaskID),
		attribute.Int64(otelhelper.UserIDKey, state.UserID),
	)
	defer span.End()

	r := &run{
		engine: e,
		state:  state,
		hooks:  hooks,
		logger: e.logger.With("task_id", state.TaskID, "user_id", state.UserID),
	}

	current := stepValidateInput

	for current != stepDone {
		if hooks.cancelled() {
			return r.finishCancelled(ctx)
		}

		current = r.execNode(ctx, current)
	}

	if state.Failed() {
		otelhelper.SetError(span, fmt.Errorf("%s: %s", state.ErrorCode, state.ErrorMessage))

		return models.TaskStatusFailed
	}

	return models.TaskStatusSuccess
}

// execNode runs one node with panic containment. A panicking node records a
// workflow error and routes to error handling; a panic inside error handling
// itself ends the run.
func (r *run) execNode(ctx context.Context, current step) (next step) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("Node panicked", "node", nodeName(current), "panic", rec)
			r.state.RecordError("WORKFLOW_ERROR", fmt.Sprintf("internal error in %s: %v", nodeName(current), rec))
			r.state.EndNode(nodeName(current), models.NodeStatusFailed, r.state.ErrorMessage)
			r.failedNode = nodeName(current)

			if current == stepHandleError {
				next = stepDone
			} else {
				next = stepHandleError
			}
		}
	}()

	ctx, span := otelhelper.StartSpan(ctx, r.engine.tracer, "workflow.node",
		attribute.String(otelhelper.TaskIDKey, r.state.TaskID),
		attribute.String(otelhelper.NodeNameKey, nodeName(current)),
	)
	defer span.End()

	switch current {
	case stepValidateInput:
		return r.validateInput(ctx)
	case stepGenerateSQL:
		return r.generateSQL(ctx)
	case stepValidateSQL:
		return r.validateSQL(ctx)
	case stepExecuteSQL:
		return r.executeSQL(ctx)
	case stepProcessResult:
		return r.processResult(ctx)
	case stepHandleError:
		return r.handleError(ctx)
	default:
		return stepDone
	}
}

func nodeName(s step) string {
	switch s {
	case stepValidateInput:
		return nodeValidateInput
	case stepGenerateSQL:
		return nodeGenerateSQL
	case stepValidateSQL:
		return nodeValidateSQL
	case stepExecuteSQL:
		return nodeExecuteSQL
	case stepProcessResult:
		return nodeProcessResult
	case stepHandleError:
		return nodeHandleError
	default:
		return "unknown"
	}
}

// checkpoint updates progress on the state, informs the registry, and emits a
// best-effort progress notification.
func (r *run) checkpoint(ctx context.Context, stepLabel string, percentage int) {
	r.state.CurrentStep = stepLabel
	r.state.ProgressPercentage = percentage
	r.hooks.checkpoint(r.state)

	r.notify(ctx, events.QueryProgress{
		BaseEvent:          events.NewBaseEvent(events.QueryProgressEvent, r.state.TaskID),
		CurrentStep:        stepLabel,
		ProgressPercentage: percentage,
		GeneratedSQL:       r.state.GeneratedSQL,
		Confidence:         r.state.Confidence,
	})
}

// notify publishes without failing the run. Delivery problems are logged and
// dropped.
func (r *run) notify(ctx context.Context, event eventbus.Event) {
	r.engine.notify(ctx, r.state.TaskID, event)
}

func (e *Engine) notify(ctx context.Context, taskID string, event eventbus.Event) {
	if e.publisher == nil {
		return
	}

	if err := e.publisher.Publish(ctx, taskID, event); err != nil {
		e.logger.Warn("Failed to publish notification",
			"event_type", event.GetType(), "task_id", taskID, "error", err)
	}
}

func (r *run) finishCancelled(ctx context.Context) models.TaskStatus {
	r.logger.Info("Workflow cancelled", "current_step", r.state.CurrentStep)

	r.engine.NotifyCancelled(ctx, r.state)

	return models.TaskStatusCancelled
}

// NotifyCancelled emits the cancellation notification for a task. Used by the
// run itself and by callers whose task was cancelled before its run started,
// so observers see the same event either way.
func (e *Engine) NotifyCancelled(ctx context.Context, state *models.WorkflowState) {
	e.notify(ctx, state.TaskID, events.QueryError{
		BaseEvent:    events.NewBaseEvent(events.QueryErrorEvent, state.TaskID),
		ErrorMessage: "query cancelled by user",
		ErrorCode:    "CANCELLED",
		FailedStep:   state.CurrentStep,
	})
}
