package workflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/askdb/askdb/pkg/engine"
	"github.com/askdb/askdb/pkg/events"
	"github.com/askdb/askdb/pkg/models"
)

func (r *run) validateInput(ctx context.Context) step {
	r.state.BeginNode(nodeValidateInput)

	if strings.TrimSpace(r.state.UserQuestion) == "" {
		r.fail(nodeValidateInput, "INVALID_INPUT", "question must not be empty")

		return stepHandleError
	}

	if r.state.UserID <= 0 {
		r.fail(nodeValidateInput, "INVALID_INPUT", "user identity is missing")

		return stepHandleError
	}

	r.state.EndNode(nodeValidateInput, models.NodeStatusSuccess, "")
	r.checkpoint(ctx, "Validating input", 10)

	return stepGenerateSQL
}

func (r *run) generateSQL(ctx context.Context) step {
	r.state.BeginNode(nodeGenerateSQL)

	if r.tables == nil {
		tables, err := r.engine.catalog.AccessibleTables(ctx,
			r.state.UserID, r.state.SelectedThemeID, r.state.SelectedTableIDs)
		if err != nil {
			r.fail(nodeGenerateSQL, "METADATA_ERROR", fmt.Sprintf("failed to resolve accessible tables: %v", err))

			return stepHandleError
		}

		r.tables = tables
	}

	gen, err := r.engine.generator.Generate(ctx, r.state.UserQuestion, r.tables)
	if err != nil {
		r.fail(nodeGenerateSQL, "GENERATION_ERROR", fmt.Sprintf("SQL generation failed: %v", err))

		return stepHandleError
	}

	cleaned := cleanSQL(gen.SQL)
	if cleaned == "" {
		r.fail(nodeGenerateSQL, "GENERATION_ERROR", "oracle returned empty SQL")

		return stepHandleError
	}

	r.state.GeneratedSQL = gen.SQL
	r.state.FinalSQL = cleaned
	r.state.Confidence = gen.Confidence
	r.state.TokensUsed += gen.TokensUsed

	r.logger.Debug("SQL generated",
		"sql", cleaned,
		"confidence", gen.Confidence,
		"attempt", r.state.RetryCount+1)

	r.state.EndNode(nodeGenerateSQL, models.NodeStatusSuccess, "")
	r.checkpoint(ctx, "Generating SQL", 40)

	return stepValidateSQL
}

func (r *run) validateSQL(ctx context.Context) step {
	r.state.BeginNode(nodeValidateSQL)

	eng, ok := r.engine.engines.Get(r.engine.cfg.EngineName)
	if !ok {
		r.fail(nodeValidateSQL, "ENGINE_ERROR",
			fmt.Sprintf("query engine %q is not registered", r.engine.cfg.EngineName))

		return stepHandleError
	}

	verdict := &models.ValidationResult{
		SyntaxValid:     true,
		SecurityValid:   true,
		PermissionValid: true,
		Errors:          []string{},
	}

	syntax, err := eng.ValidateSyntax(ctx, r.state.FinalSQL)
	if err != nil {
		r.fail(nodeValidateSQL, "ENGINE_ERROR", fmt.Sprintf("syntax validation failed: %v", err))

		return stepHandleError
	}

	if !syntax.Valid {
		verdict.SyntaxValid = false
		verdict.Errors = append(verdict.Errors, syntax.Errors...)
	}

	if issues := securityIssues(r.state.FinalSQL); len(issues) > 0 {
		verdict.SecurityValid = false
		verdict.Errors = append(verdict.Errors, issues...)
	}

	if issues := permissionIssues(r.state.FinalSQL, r.state.UserID, r.tables); len(issues) > 0 {
		verdict.PermissionValid = false
		verdict.Errors = append(verdict.Errors, issues...)
	}

	r.state.SQLValidation = verdict

	if verdict.Passed() {
		r.state.EndNode(nodeValidateSQL, models.NodeStatusSuccess, "")
		r.checkpoint(ctx, "Validating SQL", 60)

		return stepExecuteSQL
	}

	message := strings.Join(verdict.Errors, "; ")
	r.state.EndNode(nodeValidateSQL, models.NodeStatusFailed, message)
	r.logger.Info("SQL validation failed",
		"syntax_valid", verdict.SyntaxValid,
		"security_valid", verdict.SecurityValid,
		"permission_valid", verdict.PermissionValid,
		"retry_count", r.state.RetryCount)

	if r.state.RetryCount < r.state.MaxRetries {
		return r.regenerate(ctx)
	}

	r.fail(nodeValidateSQL, "VALIDATION_FAILED", "sql validation failed: "+message)

	return stepHandleError
}

func (r *run) executeSQL(ctx context.Context) step {
	r.state.BeginNode(nodeExecuteSQL)

	eng, ok := r.engine.engines.Get(r.engine.cfg.EngineName)
	if !ok {
		r.fail(nodeExecuteSQL, "ENGINE_ERROR",
			fmt.Sprintf("query engine %q is not registered", r.engine.cfg.EngineName))

		return stepHandleError
	}

	result, err := engine.ExecuteWithRetry(ctx, eng,
		r.state.FinalSQL, nil,
		r.engine.cfg.ExecuteTimeout,
		r.engine.cfg.ExecuteRetries,
		r.engine.cfg.ExecuteRetryDelay)
	if err != nil {
		r.fail(nodeExecuteSQL, "EXECUTION_ERROR", fmt.Sprintf("SQL execution failed: %v", err))

		return stepHandleError
	}

	if result == nil {
		r.state.EndNode(nodeExecuteSQL, models.NodeStatusFailed, "engine returned no result")

		if r.state.RetryCount < r.state.MaxRetries {
			return r.regenerate(ctx)
		}

		r.fail(nodeExecuteSQL, "EXECUTION_ERROR", "engine returned no result")

		return stepHandleError
	}

	r.state.ExecutionResult = result
	r.state.ResultRowCount = result.RowCount
	r.state.ResultColumns = result.Columns

	retained := result.Rows
	if len(retained) > r.engine.cfg.RetainedRows {
		retained = retained[:r.engine.cfg.RetainedRows]
	}

	r.state.ResultData = retained

	r.logger.Debug("SQL executed",
		"row_count", result.RowCount,
		"execution_time_ms", result.ExecutionTimeMS)

	r.state.EndNode(nodeExecuteSQL, models.NodeStatusSuccess, "")
	r.checkpoint(ctx, "Executing SQL", 80)

	return stepProcessResult
}

func (r *run) processResult(ctx context.Context) step {
	r.state.BeginNode(nodeProcessResult)

	rows := r.state.ExecutionResult.Rows
	if len(rows) > r.engine.cfg.MaxResultRows {
		rows = rows[:r.engine.cfg.MaxResultRows]
	}

	rows = maskRows(r.state.ResultColumns, rows, r.tables)

	retained := rows
	if len(retained) > r.engine.cfg.RetainedRows {
		retained = retained[:r.engine.cfg.RetainedRows]
	}

	r.state.ResultData = retained

	r.state.EndNode(nodeProcessResult, models.NodeStatusSuccess, "")
	r.checkpoint(ctx, "Completed", 100)

	r.notify(ctx, events.QueryCompleted{
		BaseEvent:       events.NewBaseEvent(events.QueryCompletedEvent, r.state.TaskID),
		FinalSQL:        r.state.FinalSQL,
		Columns:         r.state.ResultColumns,
		Rows:            rows,
		RowCount:        r.state.ResultRowCount,
		ExecutionTimeMS: r.state.ExecutionResult.ExecutionTimeMS,
		TokensUsed:      r.state.TokensUsed,
	})

	return stepDone
}

func (r *run) handleError(ctx context.Context) step {
	r.state.BeginNode(nodeHandleError)

	if r.state.ErrorMessage == "" {
		r.state.RecordError("WORKFLOW_ERROR", "workflow failed without a recorded error")
	}

	r.state.ErrorSuggestions = suggestions(r.state.ErrorMessage)

	r.logger.Warn("Workflow failed",
		"error_code", r.state.ErrorCode,
		"failed_step", r.failedNode,
		"error", r.state.ErrorMessage)

	r.state.EndNode(nodeHandleError, models.NodeStatusSuccess, "")
	r.state.CurrentStep = "Failed"
	r.hooks.checkpoint(r.state)

	r.notify(ctx, events.QueryError{
		BaseEvent:    events.NewBaseEvent(events.QueryErrorEvent, r.state.TaskID),
		ErrorMessage: r.state.ErrorMessage,
		ErrorCode:    r.state.ErrorCode,
		FailedStep:   r.failedNode,
		Suggestions:  r.state.ErrorSuggestions,
	})

	return stepDone
}

// regenerate consumes one retry and loops back to generation. Downstream SQL
// artifacts are reset; the node log and progress history are preserved as an
// observable record of the failed attempt.
func (r *run) regenerate(ctx context.Context) step {
	r.state.RetryCount++
	r.state.ResetGeneration()

	r.logger.Info("Regenerating SQL",
		"retry_count", r.state.RetryCount,
		"max_retries", r.state.MaxRetries)

	// Progress deliberately drops back for the new attempt.
	r.checkpoint(ctx, fmt.Sprintf("Regenerating SQL (attempt %d)", r.state.RetryCount+1), 10)

	return stepGenerateSQL
}

// fail closes the current node as failed and records the terminal error.
func (r *run) fail(node, code, message string) {
	r.state.RecordError(code, message)
	r.state.EndNode(node, models.NodeStatusFailed, message)
	r.failedNode = node
}

// cleanSQL trims the oracle output and ensures a single terminating
// statement marker.
func cleanSQL(sql string) string {
	cleaned := strings.TrimSpace(sql)
	if cleaned == "" {
		return ""
	}

	cleaned = strings.TrimRight(cleaned, "; \t\n")
	if cleaned == "" {
		return ""
	}

	return cleaned + ";"
}

// maskRows redacts values in columns marked masked in the table metadata.
// Rows are copied; the engine result is left intact.
func maskRows(columns []string, rows [][]any, tables []models.Table) [][]any {
	masked := make(map[int]bool)

	for i, col := range columns {
		for _, t := range tables {
			for _, c := range t.Columns {
				if c.Masked && strings.EqualFold(c.Name, col) {
					masked[i] = true
				}
			}
		}
	}

	if len(masked) == 0 {
		return rows
	}

	out := make([][]any, len(rows))

	for i, row := range rows {
		copied := make([]any, len(row))
		copy(copied, row)

		for idx := range masked {
			if idx < len(copied) && copied[idx] != nil {
				copied[idx] = "***"
			}
		}

		out[i] = copied
	}

	return out
}
