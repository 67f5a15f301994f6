package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWorkflowState(t *testing.T) {
	themeID := int64(7)
	state := NewWorkflowState("task-1", 42, "show me users", &themeID, []int64{1, 2}, 3)

	assert.Equal(t, "task-1", state.TaskID)
	assert.Equal(t, int64(42), state.UserID)
	assert.Equal(t, 3, state.MaxRetries)
	assert.Equal(t, 0, state.RetryCount)
	assert.Empty(t, state.NodeExecutionLog)
	assert.False(t, state.Failed())
}

func TestWorkflowState_NodeLogOrdering(t *testing.T) {
	state := NewWorkflowState("task-1", 1, "q", nil, nil, 3)

	nodes := []string{"validate_input", "generate_sql", "validate_sql"}
	for _, node := range nodes {
		state.BeginNode(node)
		state.EndNode(node, NodeStatusSuccess, "")
	}

	require.Len(t, state.NodeExecutionLog, 3)

	for i, entry := range state.NodeExecutionLog {
		assert.Equal(t, nodes[i], entry.NodeName)
		assert.Equal(t, NodeStatusSuccess, entry.Status)
		require.NotNil(t, entry.FinishedAt)
		assert.False(t, entry.FinishedAt.Before(entry.StartedAt))

		if i > 0 {
			previous := state.NodeExecutionLog[i-1]
			assert.False(t, entry.StartedAt.Before(previous.StartedAt))
		}
	}
}

func TestWorkflowState_EndNodeClosesLatestEntry(t *testing.T) {
	state := NewWorkflowState("task-1", 1, "q", nil, nil, 3)

	state.BeginNode("generate_sql")
	state.EndNode("generate_sql", NodeStatusFailed, "bad sql")
	state.BeginNode("generate_sql")
	state.EndNode("generate_sql", NodeStatusSuccess, "")

	require.Len(t, state.NodeExecutionLog, 2)
	assert.Equal(t, NodeStatusFailed, state.NodeExecutionLog[0].Status)
	assert.Equal(t, "bad sql", state.NodeExecutionLog[0].Message)
	assert.Equal(t, NodeStatusSuccess, state.NodeExecutionLog[1].Status)
}

func TestWorkflowState_RecordError(t *testing.T) {
	state := NewWorkflowState("task-1", 1, "q", nil, nil, 3)

	state.RecordError("EXECUTION_ERROR", "boom")

	assert.True(t, state.Failed())
	assert.Equal(t, "EXECUTION_ERROR", state.ErrorCode)
	assert.Equal(t, "boom", state.ErrorMessage)
}

func TestWorkflowState_ResetGenerationPreservesLog(t *testing.T) {
	state := NewWorkflowState("task-1", 1, "q", nil, nil, 3)

	state.BeginNode("generate_sql")
	state.EndNode("generate_sql", NodeStatusSuccess, "")

	state.GeneratedSQL = "SELECT 1"
	state.FinalSQL = "SELECT 1;"
	state.SQLValidation = &ValidationResult{SyntaxValid: true}
	state.ExecutionResult = NewQueryResult([]string{"a"}, [][]any{{1}}, 1, "SELECT 1;")
	state.ResultRowCount = 1
	state.ResultColumns = []string{"a"}
	state.ResultData = [][]any{{1}}

	state.ResetGeneration()

	assert.Empty(t, state.GeneratedSQL)
	assert.Empty(t, state.FinalSQL)
	assert.Nil(t, state.SQLValidation)
	assert.Nil(t, state.ExecutionResult)
	assert.Zero(t, state.ResultRowCount)
	assert.Nil(t, state.ResultColumns)
	assert.Nil(t, state.ResultData)
	assert.Len(t, state.NodeExecutionLog, 1)
}

func TestValidationResult_Passed(t *testing.T) {
	verdict := &ValidationResult{SyntaxValid: true, SecurityValid: true, PermissionValid: true}
	assert.True(t, verdict.Passed())

	verdict.SecurityValid = false
	assert.False(t, verdict.Passed())
}

func TestTaskStatus_Terminal(t *testing.T) {
	assert.False(t, TaskStatusPending.Terminal())
	assert.False(t, TaskStatusRunning.Terminal())
	assert.True(t, TaskStatusSuccess.Terminal())
	assert.True(t, TaskStatusFailed.Terminal())
	assert.True(t, TaskStatusCancelled.Terminal())
}
