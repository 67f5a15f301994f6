// Package persistence provides durable storage for completed query runs. The
// processor hands over terminal workflow states fire-and-forget; a failed
// save never fails the run.
package persistence

import (
	"context"
	"time"

	"github.com/askdb/askdb/pkg/models"
)

// RunRecord is the durable projection of a finished workflow run.
type RunRecord struct {
	TaskID          string            `json:"task_id"`
	UserID          int64             `json:"user_id"`
	Question        string            `json:"question"`
	FinalSQL        string            `json:"final_sql,omitempty"`
	Status          models.TaskStatus `json:"status"`
	ErrorMessage    string            `json:"error_message,omitempty"`
	ErrorCode       string            `json:"error_code,omitempty"`
	RowCount        int               `json:"row_count"`
	ExecutionTimeMS int64             `json:"execution_time_ms"`
	TokensUsed      int               `json:"tokens_used"`
	RetryCount      int               `json:"retry_count"`
	CreatedAt       time.Time         `json:"created_at"`
	CompletedAt     time.Time         `json:"completed_at"`
}

// NewRunRecord projects a terminal workflow state into a record.
func NewRunRecord(state *models.WorkflowState, status models.TaskStatus, createdAt time.Time) *RunRecord {
	record := &RunRecord{
		TaskID:       state.TaskID,
		UserID:       state.UserID,
		Question:     state.UserQuestion,
		FinalSQL:     state.FinalSQL,
		Status:       status,
		ErrorMessage: state.ErrorMessage,
		ErrorCode:    state.ErrorCode,
		RowCount:     state.ResultRowCount,
		TokensUsed:   state.TokensUsed,
		RetryCount:   state.RetryCount,
		CreatedAt:    createdAt.UTC(),
		CompletedAt:  time.Now().UTC(),
	}

	if state.ExecutionResult != nil {
		record.ExecutionTimeMS = state.ExecutionResult.ExecutionTimeMS
	}

	return record
}

type Persistence interface {
	SaveRun(ctx context.Context, record *RunRecord) error
	RunByTaskID(ctx context.Context, taskID string) (*RunRecord, error)
	RunsByUser(ctx context.Context, userID int64, limit int) ([]*RunRecord, error)
	HealthCheck(ctx context.Context) error

	Close(ctx context.Context) error
}
