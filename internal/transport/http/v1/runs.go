package v1

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/TimeTravelerFromNow/openai-helpers/internal/adapter/provider"
	"github.com/TimeTravelerFromNow/openai-helpers/internal/domain"
	"github.com/TimeTravelerFromNow/openai-helpers/internal/editor"
	"github.com/TimeTravelerFromNow/openai-helpers/internal/service"
	"github.com/TimeTravelerFromNow/openai-helpers/internal/tools"
)

// DriveRun drives a run until it completes or fails.
func (h *Handler) DriveRun(c echo.Context) error {
	threadID := c.Param("thread_id")
	runID := c.Param("run_id")
	if threadID == "" || runID == "" {
		return c.JSON(http.StatusBadRequest, domain.ErrorResponse{Error: "thread_id and run_id are required"})
	}

	var handler tools.HandlerFunc
	if h.registry != nil {
		handler = h.registry.Handle
	}

	outcome, run, err := h.service.DriveRunByID(c.Request().Context(), threadID, runID, handler)
	if err != nil {
		status, code := driveErrorStatus(err)
		return c.JSON(status, domain.ErrorResponse{Error: err.Error(), Code: code})
	}
	return c.JSON(http.StatusOK, domain.DriveRunResponse{Outcome: string(outcome), Run: run})
}

func driveErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, provider.ErrNotFound):
		return http.StatusNotFound, "run_not_found"
	case errors.Is(err, service.ErrRunCancelled):
		return http.StatusConflict, "run_cancelled"
	case errors.Is(err, service.ErrRunExpired):
		return http.StatusConflict, "run_expired"
	case errors.Is(err, service.ErrUnknownStatus):
		return http.StatusConflict, "unknown_status"
	case errors.Is(err, service.ErrUnhandledAction):
		return http.StatusConflict, "unhandled_action"
	case errors.Is(err, service.ErrSafetyLimit):
		return http.StatusConflict, "safety_limit"
	case errors.Is(err, service.ErrPollTimeout), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "poll_timeout"
	case errors.Is(err, editor.ErrSandboxRootMissing):
		return http.StatusInternalServerError, "sandbox_root_missing"
	case errors.Is(err, tools.ErrHandlerFailed), errors.Is(err, tools.ErrNoHandler), errors.Is(err, tools.ErrMalformedArguments):
		return http.StatusBadGateway, "tool_dispatch_failed"
	}
	return http.StatusBadGateway, "provider_error"
}

// GetRunEvents returns the recorded events of a run.
func (h *Handler) GetRunEvents(c echo.Context) error {
	runID := c.Param("run_id")
	limit := 100
	if l := c.QueryParam("limit"); l != "" {
		if val, err := strconv.Atoi(l); err == nil {
			limit = val
		}
	}
	afterTs := int64(0)
	if t := c.QueryParam("after_ts"); t != "" {
		if val, err := strconv.ParseInt(t, 10, 64); err == nil {
			afterTs = val
		}
	}
	var types []string
	if t := c.QueryParam("types"); t != "" {
		types = strings.Split(t, ",")
	}

	events, err := h.service.GetRunEvents(c.Request().Context(), runID, afterTs, types, limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, domain.ErrorResponse{Error: err.Error()})
	}
	if events == nil {
		events = []domain.Event{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"events": events,
	})
}

// ListToolCalls returns the invocations dispatched for a run.
func (h *Handler) ListToolCalls(c echo.Context) error {
	calls, err := h.service.ListToolCalls(c.Request().Context(), c.Param("run_id"))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, domain.ErrorResponse{Error: err.Error()})
	}
	if calls == nil {
		calls = []domain.ToolCall{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"tool_calls": calls,
	})
}

// ListUsage returns the usage records of a thread.
func (h *Handler) ListUsage(c echo.Context) error {
	records, err := h.service.ListUsage(c.Request().Context(), c.Param("thread_id"))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, domain.ErrorResponse{Error: err.Error()})
	}
	total := 0
	for _, r := range records {
		total += r.TotalTokens
	}
	if records == nil {
		records = []domain.UsageRecord{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"usage":        records,
		"total_tokens": total,
	})
}
