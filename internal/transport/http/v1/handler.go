// Package v1 provides the HTTP handlers of the v1 API.
package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/TimeTravelerFromNow/openai-helpers/internal/service"
	"github.com/TimeTravelerFromNow/openai-helpers/internal/tools"
)

// Handler handles HTTP requests.
type Handler struct {
	service  *service.Service
	registry *tools.Registry
}

// NewHandler creates a new handler. registry supplies handler names for the
// tool listing and answers non-editor calls of driven runs; it may be nil.
func NewHandler(service *service.Service, registry *tools.Registry) *Handler {
	return &Handler{
		service:  service,
		registry: registry,
	}
}

// RegisterRoutes registers routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	// Run driver
	e.POST("/v1/threads/:thread_id/runs/:run_id/drive", h.DriveRun)
	e.GET("/v1/runs/:run_id/events", h.GetRunEvents)
	e.GET("/v1/runs/:run_id/tool_calls", h.ListToolCalls)
	e.GET("/v1/threads/:thread_id/usage", h.ListUsage)

	// Threads and assistants
	e.GET("/v1/threads/:thread_id/messages", h.ListMessages)
	e.GET("/v1/threads/:thread_id/messages/latest", h.LatestMessage)
	e.DELETE("/v1/threads/:thread_id", h.DeleteThread)
	e.GET("/v1/assistants/:assistant_id", h.GetAssistant)

	// Tools
	e.GET("/v1/tools", h.ListTools)
	e.POST("/v1/editor", h.ExecuteEditor)
	e.DELETE("/v1/sandbox", h.ClearSandbox)

	e.GET("/health", h.Health)
}

// Health returns health status.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": "0.1.0",
	})
}
