package processor

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/askdb/askdb/pkg/models"
	"github.com/askdb/askdb/pkg/persistence"
)

// Task is one registry entry. The guarded fields are the only cross-goroutine
// view of a running workflow: the run goroutine pushes snapshots at
// checkpoints, readers never touch the embedded state until the run is done.
type Task struct {
	taskID    string
	userID    int64
	createdAt time.Time

	// cancelled is the single point of cross-task mutation, polled by the
	// run at node boundaries.
	cancelled atomic.Bool

	mu           sync.Mutex
	status       models.TaskStatus
	currentStep  string
	progress     int
	errorMessage string

	// done flips once the run goroutine has released the state. A cancelled
	// task shows a terminal status immediately, but its state stays private
	// until the in-flight node finishes and the run returns.
	done bool

	// state is owned by the run goroutine until done is set.
	state *models.WorkflowState
}

func (t *Task) Status() models.TaskStatus {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.status
}

// begin transitions pending -> running. Returns false if the task was
// cancelled before the workflow started.
func (t *Task) begin() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.status != models.TaskStatusPending {
		return false
	}

	t.status = models.TaskStatusRunning

	return true
}

// snapshot copies the progress fields out of the workflow state. Called from
// the run goroutine at every checkpoint.
func (t *Task) snapshot(state *models.WorkflowState) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.currentStep = state.CurrentStep
	t.progress = state.ProgressPercentage
	t.errorMessage = state.ErrorMessage
}

// finish records the terminal status and releases the state for readers.
// A cancellation that won the race is preserved over the workflow's own
// outcome.
func (t *Task) finish(final models.TaskStatus) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.done = true

	if t.status == models.TaskStatusCancelled {
		return
	}

	t.status = final
	t.errorMessage = t.state.ErrorMessage
	t.progress = t.state.ProgressPercentage
	t.currentStep = t.state.CurrentStep
}

// requestCancel marks the task cancelled. Terminal tasks are untouched; the
// call still acknowledges. Returns true if the status changed.
func (t *Task) requestCancel() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.status.Terminal() {
		return false
	}

	t.cancelled.Store(true)
	t.status = models.TaskStatusCancelled

	return true
}

func (t *Task) cancelRequested() bool {
	return t.cancelled.Load()
}

func (t *Task) statusResponse() *StatusResponse {
	t.mu.Lock()
	defer t.mu.Unlock()

	return &StatusResponse{
		TaskID:             t.taskID,
		Status:             t.status,
		CurrentStep:        t.currentStep,
		ProgressPercentage: t.progress,
		Error:              t.errorMessage,
	}
}

func (t *Task) resultResponse() *ResultResponse {
	t.mu.Lock()
	defer t.mu.Unlock()

	response := &ResultResponse{
		TaskID:   t.taskID,
		Status:   t.status,
		Complete: t.done,
	}

	if response.Complete {
		response.State = t.state
	}

	return response
}

func (t *Task) record() *persistence.RunRecord {
	t.mu.Lock()
	defer t.mu.Unlock()

	return persistence.NewRunRecord(t.state, t.status, t.createdAt)
}
