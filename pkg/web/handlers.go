// Package web provides the HTTP handlers for query submission, status and
// result retrieval, cancellation, and engine health.
package web

import (
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/askdb/askdb/pkg/engine"
	"github.com/askdb/askdb/pkg/processor"
)

type APIHandlers struct {
	processor *processor.Processor
	engines   *engine.Registry
	validator *validator.Validate
}

func NewAPIHandlers(
	proc *processor.Processor,
	engines *engine.Registry,
	validator *validator.Validate,
) *APIHandlers {
	return &APIHandlers{
		processor: proc,
		engines:   engines,
		validator: validator,
	}
}

// SubmitQuery accepts a natural-language question and returns the task id
// immediately; the workflow runs in the background.
func (h *APIHandlers) SubmitQuery(c fiber.Ctx) error {
	var req processor.SubmitRequest

	if err := c.Bind().Body(&req); err != nil {
		return badRequest(c, "Invalid request body: "+err.Error())
	}

	taskID, err := h.processor.Submit(req)
	if err != nil {
		return handleProcessorError(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"task_id": taskID,
		"status":  "pending",
	})
}

func (h *APIHandlers) GetQueryStatus(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Task ID is required")
	}

	status, err := h.processor.Status(id)
	if err != nil {
		return handleProcessorError(c, err)
	}

	return c.JSON(status)
}

// GetQueryResult returns the terminal workflow state, optionally paginated
// over the execution result with page/page_size query parameters.
func (h *APIHandlers) GetQueryResult(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Task ID is required")
	}

	result, err := h.processor.Result(id)
	if err != nil {
		return handleProcessorError(c, err)
	}

	if !result.Complete {
		return c.Status(fiber.StatusAccepted).JSON(result)
	}

	if pageStr := c.Query("page"); pageStr != "" && result.State.ExecutionResult != nil {
		page, err := strconv.Atoi(pageStr)
		if err != nil {
			return badRequest(c, "Invalid page parameter")
		}

		pageSize := 50
		if sizeStr := c.Query("page_size"); sizeStr != "" {
			pageSize, err = strconv.Atoi(sizeStr)
			if err != nil {
				return badRequest(c, "Invalid page_size parameter")
			}
		}

		return c.JSON(fiber.Map{
			"task_id": result.TaskID,
			"status":  result.Status,
			"page":    result.State.ExecutionResult.Page(page, pageSize),
		})
	}

	return c.JSON(result)
}

type cancelRequest struct {
	UserID int64 `json:"user_id" validate:"required,gt=0"`
}

// CancelQuery marks a task cancelled on behalf of its owner. Cancelling a
// finished task is acknowledged without error.
func (h *APIHandlers) CancelQuery(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Task ID is required")
	}

	var req cancelRequest

	if err := c.Bind().Body(&req); err != nil {
		return badRequest(c, "Invalid request body: "+err.Error())
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, "Invalid user ID")
	}

	if err := h.processor.Cancel(id, req.UserID); err != nil {
		return handleProcessorError(c, err)
	}

	return c.JSON(fiber.Map{
		"task_id": id,
		"status":  "cancellation_requested",
	})
}

// GetQueryHistory lists persisted runs for a user, newest first.
func (h *APIHandlers) GetQueryHistory(c fiber.Ctx) error {
	userID, err := strconv.ParseInt(c.Query("user_id"), 10, 64)
	if err != nil || userID <= 0 {
		return badRequest(c, "A positive user_id query parameter is required")
	}

	limit := 50
	if limitStr := c.Query("limit"); limitStr != "" {
		limit, err = strconv.Atoi(limitStr)
		if err != nil {
			return badRequest(c, "Invalid limit parameter")
		}
	}

	runs, err := h.processor.History(c.Context(), userID, limit)
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(fiber.Map{
		"runs":  runs,
		"count": len(runs),
	})
}

// GetEnginesHealth probes every registered engine instance.
func (h *APIHandlers) GetEnginesHealth(c fiber.Ctx) error {
	statuses := h.engines.HealthCheckAll(c.Context())

	healthy := true

	for _, status := range statuses {
		if !status.Healthy {
			healthy = false

			break
		}
	}

	code := fiber.StatusOK
	if !healthy {
		code = fiber.StatusServiceUnavailable
	}

	return c.Status(code).JSON(fiber.Map{
		"healthy": healthy,
		"engines": statuses,
	})
}

// HealthCheck reports service liveness plus the active task count.
func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":       "ok",
		"active_tasks": h.processor.ActiveCount(),
	})
}
