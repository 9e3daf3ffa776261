package v1

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/TimeTravelerFromNow/openai-helpers/internal/domain"
	"github.com/TimeTravelerFromNow/openai-helpers/internal/editor"
)

// ListTools returns the editor definition and the registered handler names.
func (h *Handler) ListTools(c echo.Context) error {
	var names []string
	if h.registry != nil {
		names = h.registry.Names()
	}
	return c.JSON(http.StatusOK, domain.ListToolsResponse{Tools: h.service.ListTools(names)})
}

// ExecuteEditor runs one editor request. Editor failures come back with 200
// and is_error set, the same way the assistant sees them.
func (h *Handler) ExecuteEditor(c echo.Context) error {
	var args map[string]any
	if err := c.Bind(&args); err != nil {
		return c.JSON(http.StatusBadRequest, domain.ErrorResponse{Error: "invalid request body"})
	}

	resp, decision, err := h.service.ExecuteEditor(c.Request().Context(), args)
	if err != nil {
		if errors.Is(err, editor.ErrSandboxRootMissing) {
			return c.JSON(http.StatusInternalServerError, domain.ErrorResponse{Error: err.Error(), Code: "sandbox_root_missing"})
		}
		return c.JSON(http.StatusInternalServerError, domain.ErrorResponse{Error: err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"content":  resp.Content,
		"is_error": resp.IsError,
		"decision": decision,
	})
}
