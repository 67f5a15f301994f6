// Package models defines the core domain models for natural-language query
// processing: the workflow state threaded through the pipeline, query results,
// and the schema context used for SQL generation and authorization.
package models

import "time"

// TaskStatus represents the lifecycle state of a query task.
type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusRunning   TaskStatus = "running"
	TaskStatusSuccess   TaskStatus = "success"
	TaskStatusFailed    TaskStatus = "failed"
	TaskStatusCancelled TaskStatus = "cancelled"
)

// Terminal reports whether no further transitions can occur.
func (s TaskStatus) Terminal() bool {
	return s == TaskStatusSuccess || s == TaskStatusFailed || s == TaskStatusCancelled
}

// NodeStatus represents the outcome of a single pipeline node execution.
type NodeStatus string

const (
	NodeStatusRunning NodeStatus = "running"
	NodeStatusSuccess NodeStatus = "success"
	NodeStatusFailed  NodeStatus = "failed"
)

// NodeLogEntry is one record in the append-only node execution log.
type NodeLogEntry struct {
	NodeName   string     `json:"node_name"`
	Status     NodeStatus `json:"status"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Message    string     `json:"message,omitempty"`
}

// ValidationResult aggregates the three independent SQL checks.
type ValidationResult struct {
	SyntaxValid     bool     `json:"syntax_valid"`
	SecurityValid   bool     `json:"security_valid"`
	PermissionValid bool     `json:"permission_valid"`
	Errors          []string `json:"errors"`
}

// Passed reports whether all three checks succeeded.
func (v *ValidationResult) Passed() bool {
	return v.SyntaxValid && v.SecurityValid && v.PermissionValid
}

// WorkflowState is the single mutable record threaded through a query run.
// It is owned exclusively by the run's goroutine; cross-task mutation (the
// cancelled flag) lives on the task record, not here.
type WorkflowState struct {
	TaskID           string  `json:"task_id"`
	UserID           int64   `json:"user_id"`
	UserQuestion     string  `json:"user_question"`
	SelectedThemeID  *int64  `json:"selected_theme_id,omitempty"`
	SelectedTableIDs []int64 `json:"selected_table_ids,omitempty"`

	CurrentStep        string `json:"current_step"`
	ProgressPercentage int    `json:"progress_percentage"`

	GeneratedSQL  string            `json:"generated_sql,omitempty"`
	FinalSQL      string            `json:"final_sql,omitempty"`
	SQLValidation *ValidationResult `json:"sql_validation_result,omitempty"`
	Confidence    float64           `json:"sql_confidence,omitempty"`
	TokensUsed    int               `json:"tokens_used"`

	ExecutionResult *QueryResult `json:"execution_result,omitempty"`
	ResultRowCount  int          `json:"result_row_count"`
	ResultColumns   []string     `json:"result_columns,omitempty"`
	ResultData      [][]any      `json:"result_data,omitempty"`

	ErrorMessage     string   `json:"error_message,omitempty"`
	ErrorCode        string   `json:"error_code,omitempty"`
	ErrorSuggestions []string `json:"error_suggestions,omitempty"`

	RetryCount       int            `json:"retry_count"`
	MaxRetries       int            `json:"max_retries"`
	NodeExecutionLog []NodeLogEntry `json:"node_execution_log"`
}

// NewWorkflowState creates the initial state for a submitted question.
func NewWorkflowState(taskID string, userID int64, question string, themeID *int64, tableIDs []int64, maxRetries int) *WorkflowState {
	return &WorkflowState{
		TaskID:           taskID,
		UserID:           userID,
		UserQuestion:     question,
		SelectedThemeID:  themeID,
		SelectedTableIDs: tableIDs,
		MaxRetries:       maxRetries,
		NodeExecutionLog: make([]NodeLogEntry, 0),
	}
}

// Failed reports whether a node has recorded an error on this run.
func (s *WorkflowState) Failed() bool {
	return s.ErrorMessage != ""
}

// BeginNode appends a running log entry for the named node.
func (s *WorkflowState) BeginNode(nodeName string) {
	s.NodeExecutionLog = append(s.NodeExecutionLog, NodeLogEntry{
		NodeName:  nodeName,
		Status:    NodeStatusRunning,
		StartedAt: time.Now().UTC(),
	})
}

// EndNode closes the most recent log entry for the named node.
func (s *WorkflowState) EndNode(nodeName string, status NodeStatus, message string) {
	for i := len(s.NodeExecutionLog) - 1; i >= 0; i-- {
		entry := &s.NodeExecutionLog[i]
		if entry.NodeName == nodeName {
			now := time.Now().UTC()
			entry.Status = status
			entry.FinishedAt = &now
			entry.Message = message

			return
		}
	}
}

// RecordError marks the run as failed with the given code and message.
func (s *WorkflowState) RecordError(code, message string) {
	s.ErrorMessage = message
	s.ErrorCode = code
}

// ResetGeneration clears downstream SQL artifacts before a regeneration
// attempt. The node execution log is preserved.
func (s *WorkflowState) ResetGeneration() {
	s.GeneratedSQL = ""
	s.FinalSQL = ""
	s.SQLValidation = nil
	s.ExecutionResult = nil
	s.ResultRowCount = 0
	s.ResultColumns = nil
	s.ResultData = nil
}
