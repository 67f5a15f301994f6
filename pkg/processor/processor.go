// Package processor owns the task registry: it accepts query submissions,
// schedules workflow runs, and answers status, result, and cancellation
// requests for in-flight and recently finished tasks.
package processor

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/askdb/askdb/pkg/models"
	"github.com/askdb/askdb/pkg/persistence"
	"github.com/askdb/askdb/pkg/workflow"
)

// SubmitRequest is the validated submission payload.
type SubmitRequest struct {
	Question string  `json:"question"  validate:"required,max=1000"`
	UserID   int64   `json:"user_id"   validate:"required,gt=0"`
	ThemeID  *int64  `json:"theme_id,omitempty"`
	TableIDs []int64 `json:"table_ids,omitempty"`
}

// Processor tracks every active task by id. It exclusively owns task
// records; workflow runs mutate the embedded state but never delete records.
type Processor struct {
	mu    sync.RWMutex
	tasks map[string]*Task

	workflows *workflow.Engine
	store     persistence.Persistence
	validate  *validator.Validate
	logger    *slog.Logger
}

func New(workflows *workflow.Engine, store persistence.Persistence, logger *slog.Logger) *Processor {
	return &Processor{
		tasks:     make(map[string]*Task),
		workflows: workflows,
		store:     store,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		logger:    logger.With("module", "processor"),
	}
}

// Submit validates the request synchronously and, on success, registers a
// pending task and starts its workflow without blocking the caller.
func (p *Processor) Submit(req SubmitRequest) (string, error) {
	if err := p.validateSubmit(req); err != nil {
		return "", err
	}

	taskID := uuid.New().String()
	state := models.NewWorkflowState(taskID, req.UserID, req.Question,
		req.ThemeID, req.TableIDs, p.workflows.Config().MaxRetries)

	task := &Task{
		taskID:    taskID,
		userID:    req.UserID,
		status:    models.TaskStatusPending,
		state:     state,
		createdAt: time.Now().UTC(),
	}

	p.mu.Lock()
	p.tasks[taskID] = task
	p.mu.Unlock()

	p.logger.Info("Task submitted", "task_id", taskID, "user_id", req.UserID)

	go p.run(task)

	return taskID, nil
}

func (p *Processor) validateSubmit(req SubmitRequest) error {
	if strings.TrimSpace(req.Question) == "" {
		return &ProcessorError{Op: "submit", Err: ErrEmptyQuestion}
	}

	if utf8.RuneCountInString(req.Question) > 1000 {
		return &ProcessorError{Op: "submit", Err: ErrQuestionTooLong}
	}

	if req.UserID <= 0 {
		return &ProcessorError{Op: "submit", Err: ErrInvalidUserID}
	}

	if err := p.validate.Struct(req); err != nil {
		return &ProcessorError{Op: "submit", Message: err.Error(), Err: ErrInvalidRequest}
	}

	return nil
}

// run executes the workflow for a task. Detached from the submitting request;
// cancellation is signalled through the task record, not the context.
func (p *Processor) run(task *Task) {
	ctx := context.Background()

	if !task.begin() {
		// Cancelled before the workflow started. Observers still get the
		// cancellation notification.
		task.finish(models.TaskStatusCancelled)
		p.workflows.NotifyCancelled(ctx, task.state)
		p.persist(task)

		return
	}

	hooks := workflow.Hooks{
		Cancelled:  task.cancelRequested,
		Checkpoint: task.snapshot,
	}

	final := p.workflows.Run(ctx, task.state, hooks)
	task.finish(final)

	p.logger.Info("Task finished",
		"task_id", task.taskID,
		"status", task.Status())

	p.persist(task)
}

// persist hands the terminal state to durable storage fire-and-forget.
func (p *Processor) persist(task *Task) {
	if p.store == nil {
		return
	}

	record := task.record()

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := p.store.SaveRun(ctx, record); err != nil {
			p.logger.Warn("Failed to persist query run", "task_id", record.TaskID, "error", err)
		}
	}()
}

// StatusResponse is the lightweight progress projection.
type StatusResponse struct {
	TaskID             string            `json:"task_id"`
	Status             models.TaskStatus `json:"status"`
	CurrentStep        string            `json:"current_step,omitempty"`
	ProgressPercentage int               `json:"progress_percentage"`
	Error              string            `json:"error,omitempty"`
}

// Status reports task progress. Unknown ids fail with a not-found error.
func (p *Processor) Status(taskID string) (*StatusResponse, error) {
	task, ok := p.task(taskID)
	if !ok {
		return nil, &ProcessorError{Op: "status", TaskID: taskID, Err: ErrTaskNotFound}
	}

	return task.statusResponse(), nil
}

// ResultResponse carries the full terminal state, or a not-yet-complete
// indicator while the task is still running.
type ResultResponse struct {
	TaskID   string                `json:"task_id"`
	Status   models.TaskStatus     `json:"status"`
	Complete bool                  `json:"complete"`
	State    *models.WorkflowState `json:"state,omitempty"`
}

// Result returns the terminal workflow state. A task whose run has not
// finished yields Complete=false with no state rather than an error; that
// includes a freshly cancelled task whose in-flight node is still winding
// down, so readers never observe a state the run is mutating.
func (p *Processor) Result(taskID string) (*ResultResponse, error) {
	task, ok := p.task(taskID)
	if !ok {
		return nil, &ProcessorError{Op: "result", TaskID: taskID, Err: ErrTaskNotFound}
	}

	return task.resultResponse(), nil
}

// Cancel marks a task cancelled on behalf of its owner. Cancelling an
// already-terminal task is a no-op acknowledgement.
func (p *Processor) Cancel(taskID string, userID int64) error {
	task, ok := p.task(taskID)
	if !ok {
		return &ProcessorError{Op: "cancel", TaskID: taskID, Err: ErrTaskNotFound}
	}

	if task.userID != userID {
		return &ProcessorError{Op: "cancel", TaskID: taskID, Err: ErrNotTaskOwner}
	}

	if task.requestCancel() {
		p.logger.Info("Task cancelled", "task_id", taskID, "user_id", userID)
	}

	return nil
}

// ActiveCount returns the number of pending and running tasks.
func (p *Processor) ActiveCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()

	count := 0

	for _, task := range p.tasks {
		if !task.Status().Terminal() {
			count++
		}
	}

	return count
}

// Cleanup evicts terminal tasks older than maxAge. Pending and running tasks
// are never evicted regardless of age. Returns the number removed.
func (p *Processor) Cleanup(maxAge time.Duration) int {
	cutoff := time.Now().UTC().Add(-maxAge)

	p.mu.Lock()
	defer p.mu.Unlock()

	removed := 0

	for taskID, task := range p.tasks {
		if task.Status().Terminal() && task.createdAt.Before(cutoff) {
			delete(p.tasks, taskID)

			removed++
		}
	}

	if removed > 0 {
		p.logger.Info("Cleaned up terminal tasks", "removed", removed, "max_age", maxAge)
	}

	return removed
}

// History lists persisted runs for a user, newest first.
func (p *Processor) History(ctx context.Context, userID int64, limit int) ([]*persistence.RunRecord, error) {
	if p.store == nil {
		return []*persistence.RunRecord{}, nil
	}

	return p.store.RunsByUser(ctx, userID, limit)
}

func (p *Processor) task(taskID string) (*Task, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	task, ok := p.tasks[taskID]

	return task, ok
}
