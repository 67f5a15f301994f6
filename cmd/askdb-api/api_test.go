package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/askdb/askdb/pkg/engine"
	"github.com/askdb/askdb/pkg/metadata"
	"github.com/askdb/askdb/pkg/models"
	"github.com/askdb/askdb/pkg/oracle"
	"github.com/askdb/askdb/pkg/persistence/file"
	"github.com/askdb/askdb/pkg/processor"
	"github.com/askdb/askdb/pkg/workflow"
)

type stubOracle struct{}

func (stubOracle) Generate(_ context.Context, _ string, _ []models.Table) (*oracle.Generation, error) {
	return &oracle.Generation{SQL: "SELECT 1", Confidence: 0.85, TokensUsed: 150}, nil
}

type stubEngine struct{}

func (stubEngine) Connect(_ context.Context) error    { return nil }
func (stubEngine) Disconnect(_ context.Context) error { return nil }
func (stubEngine) Ping(_ context.Context) error       { return nil }

func (stubEngine) Execute(_ context.Context, sql string, _ []any, _ time.Duration) (*models.QueryResult, error) {
	cleaned, err := engine.GuardStatement(sql)
	if err != nil {
		return nil, engine.NewError("execute", "stub", err)
	}

	return models.NewQueryResult([]string{"one"}, [][]any{{1}}, 1, cleaned), nil
}

func (stubEngine) ValidateSyntax(_ context.Context, _ string) (*engine.SyntaxResult, error) {
	return &engine.SyntaxResult{Valid: true, Errors: []string{}}, nil
}

func (stubEngine) SchemaInfo(_ context.Context, _ string) (*engine.SchemaInfo, error) {
	return &engine.SchemaInfo{}, nil
}

func setupTestApp(t *testing.T) (*fiber.App, *processor.Processor) {
	t.Helper()

	registry := engine.NewRegistry(slog.Default())
	registry.RegisterType("stub", func(_ engine.Config, _ *slog.Logger) (engine.QueryEngine, error) {
		return stubEngine{}, nil
	})

	_, err := registry.Create("stub", engine.Config{}, "default")
	require.NoError(t, err)

	cfg := workflow.DefaultConfig()
	cfg.ExecuteRetries = 0
	cfg.ExecuteRetryDelay = time.Millisecond

	workflows := workflow.New(registry, stubOracle{}, metadata.NewStaticCatalog(),
		nil, noop.NewTracerProvider().Tracer("test"), slog.Default(), cfg)

	store, err := file.NewPersistence(t.TempDir())
	require.NoError(t, err)

	proc := processor.New(workflows, store, slog.Default())

	api := NewAPI(slog.Default(), proc, registry, 24*time.Hour)

	return api.App(), proc
}

func closeBody(t *testing.T, resp *http.Response) {
	t.Helper()

	err := resp.Body.Close()
	if err != nil {
		t.Logf("Failed to close response body: %v", err)
	}
}

func submitQuery(t *testing.T, app *fiber.App, body string) *http.Response {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/queries/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)

	return resp
}

func waitForCompletion(t *testing.T, proc *processor.Processor, taskID string) {
	t.Helper()

	require.Eventually(t, func() bool {
		status, err := proc.Status(taskID)
		if err != nil {
			return false
		}

		return status.Status.Terminal()
	}, 5*time.Second, 10*time.Millisecond)
}

func TestAPI_RootEndpoint(t *testing.T) {
	app, _ := setupTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)

	defer closeBody(t, resp)

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "AskDB API", string(body))
}

func TestAPI_SubmitQuery(t *testing.T) {
	app, _ := setupTestApp(t)

	resp := submitQuery(t, app, `{"question": "Show me sales data", "user_id": 42}`)
	defer closeBody(t, resp)

	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	var payload map[string]any

	err := json.NewDecoder(resp.Body).Decode(&payload)
	require.NoError(t, err)
	assert.NotEmpty(t, payload["task_id"])
	assert.Equal(t, "pending", payload["status"])
}

func TestAPI_SubmitQuery_ValidationErrors(t *testing.T) {
	testCases := []struct {
		name string
		body string
	}{
		{name: "empty question", body: `{"question": "", "user_id": 42}`},
		{name: "whitespace question", body: `{"question": "   ", "user_id": 42}`},
		{name: "missing user", body: `{"question": "Show me sales data"}`},
		{name: "negative user", body: `{"question": "Show me sales data", "user_id": -1}`},
		{name: "malformed json", body: `{"question": `},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			app, _ := setupTestApp(t)

			resp := submitQuery(t, app, testCase.body)
			defer closeBody(t, resp)

			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}
}

func TestAPI_GetQueryStatus(t *testing.T) {
	app, _ := setupTestApp(t)

	resp := submitQuery(t, app, `{"question": "Show me sales data", "user_id": 42}`)

	var submitted map[string]any

	err := json.NewDecoder(resp.Body).Decode(&submitted)
	require.NoError(t, err)
	closeBody(t, resp)

	taskID, _ := submitted["task_id"].(string)
	require.NotEmpty(t, taskID)

	req := httptest.NewRequest(http.MethodGet, "/queries/"+taskID+"/status", nil)
	statusResp, err := app.Test(req)
	require.NoError(t, err)

	defer closeBody(t, statusResp)

	assert.Equal(t, http.StatusOK, statusResp.StatusCode)

	var status map[string]any

	err = json.NewDecoder(statusResp.Body).Decode(&status)
	require.NoError(t, err)
	assert.Equal(t, taskID, status["task_id"])
}

func TestAPI_GetQueryStatus_NotFound(t *testing.T) {
	app, _ := setupTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/queries/unknown-task/status", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)

	defer closeBody(t, resp)

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPI_GetQueryResult(t *testing.T) {
	app, proc := setupTestApp(t)

	resp := submitQuery(t, app, `{"question": "Show me sales data", "user_id": 42}`)

	var submitted map[string]any

	err := json.NewDecoder(resp.Body).Decode(&submitted)
	require.NoError(t, err)
	closeBody(t, resp)

	taskID, _ := submitted["task_id"].(string)
	waitForCompletion(t, proc, taskID)

	req := httptest.NewRequest(http.MethodGet, "/queries/"+taskID+"/result", nil)
	resultResp, err := app.Test(req)
	require.NoError(t, err)

	defer closeBody(t, resultResp)

	assert.Equal(t, http.StatusOK, resultResp.StatusCode)

	var result processor.ResultResponse

	err = json.NewDecoder(resultResp.Body).Decode(&result)
	require.NoError(t, err)
	assert.Equal(t, taskID, result.TaskID)
	assert.Equal(t, models.TaskStatusSuccess, result.Status)
	require.NotNil(t, result.State)
	assert.Equal(t, "SELECT 1;", result.State.FinalSQL)
}

func TestAPI_GetQueryResult_Paginated(t *testing.T) {
	app, proc := setupTestApp(t)

	resp := submitQuery(t, app, `{"question": "Show me sales data", "user_id": 42}`)

	var submitted map[string]any

	err := json.NewDecoder(resp.Body).Decode(&submitted)
	require.NoError(t, err)
	closeBody(t, resp)

	taskID, _ := submitted["task_id"].(string)
	waitForCompletion(t, proc, taskID)

	req := httptest.NewRequest(http.MethodGet, "/queries/"+taskID+"/result?page=1&page_size=10", nil)
	resultResp, err := app.Test(req)
	require.NoError(t, err)

	defer closeBody(t, resultResp)

	assert.Equal(t, http.StatusOK, resultResp.StatusCode)

	var payload map[string]any

	err = json.NewDecoder(resultResp.Body).Decode(&payload)
	require.NoError(t, err)
	assert.Equal(t, taskID, payload["task_id"])
	assert.Contains(t, payload, "page")
}

func TestAPI_CancelQuery_WrongOwner(t *testing.T) {
	app, _ := setupTestApp(t)

	resp := submitQuery(t, app, `{"question": "Show me sales data", "user_id": 42}`)

	var submitted map[string]any

	err := json.NewDecoder(resp.Body).Decode(&submitted)
	require.NoError(t, err)
	closeBody(t, resp)

	taskID, _ := submitted["task_id"].(string)

	req := httptest.NewRequest(http.MethodPost, "/queries/"+taskID+"/cancel",
		strings.NewReader(`{"user_id": 99}`))
	req.Header.Set("Content-Type", "application/json")

	cancelResp, err := app.Test(req)
	require.NoError(t, err)

	defer closeBody(t, cancelResp)

	assert.Equal(t, http.StatusForbidden, cancelResp.StatusCode)
}

func TestAPI_CancelQuery(t *testing.T) {
	app, _ := setupTestApp(t)

	resp := submitQuery(t, app, `{"question": "Show me sales data", "user_id": 42}`)

	var submitted map[string]any

	err := json.NewDecoder(resp.Body).Decode(&submitted)
	require.NoError(t, err)
	closeBody(t, resp)

	taskID, _ := submitted["task_id"].(string)

	req := httptest.NewRequest(http.MethodPost, "/queries/"+taskID+"/cancel",
		strings.NewReader(`{"user_id": 42}`))
	req.Header.Set("Content-Type", "application/json")

	cancelResp, err := app.Test(req)
	require.NoError(t, err)

	defer closeBody(t, cancelResp)

	assert.Equal(t, http.StatusOK, cancelResp.StatusCode)

	var payload map[string]any

	err = json.NewDecoder(cancelResp.Body).Decode(&payload)
	require.NoError(t, err)
	assert.Equal(t, "cancellation_requested", payload["status"])
}

func TestAPI_GetQueryHistory_RequiresUserID(t *testing.T) {
	app, _ := setupTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/queries/history", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)

	defer closeBody(t, resp)

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPI_GetQueryHistory(t *testing.T) {
	app, proc := setupTestApp(t)

	resp := submitQuery(t, app, `{"question": "Show me sales data", "user_id": 42}`)

	var submitted map[string]any

	err := json.NewDecoder(resp.Body).Decode(&submitted)
	require.NoError(t, err)
	closeBody(t, resp)

	taskID, _ := submitted["task_id"].(string)
	waitForCompletion(t, proc, taskID)

	var payload map[string]any

	require.Eventually(t, func() bool {
		req := httptest.NewRequest(http.MethodGet, "/queries/history?user_id=42", nil)

		historyResp, err := app.Test(req)
		if err != nil {
			return false
		}

		defer closeBody(t, historyResp)

		if historyResp.StatusCode != http.StatusOK {
			return false
		}

		if err := json.NewDecoder(historyResp.Body).Decode(&payload); err != nil {
			return false
		}

		count, _ := payload["count"].(float64)

		return count >= 1
	}, 5*time.Second, 10*time.Millisecond)

	assert.Contains(t, payload, "runs")
}

func TestAPI_GetEnginesHealth(t *testing.T) {
	app, _ := setupTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/engines/health", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)

	defer closeBody(t, resp)

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var payload map[string]any

	err = json.NewDecoder(resp.Body).Decode(&payload)
	require.NoError(t, err)
	assert.Equal(t, true, payload["healthy"])
}

func TestAPI_HealthCheck(t *testing.T) {
	app, _ := setupTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)

	defer closeBody(t, resp)

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var payload map[string]any

	err = json.NewDecoder(resp.Body).Decode(&payload)
	require.NoError(t, err)
	assert.Equal(t, "ok", payload["status"])
}
