package v1

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/TimeTravelerFromNow/openai-helpers/internal/adapter/provider"
	"github.com/TimeTravelerFromNow/openai-helpers/internal/domain"
	"github.com/TimeTravelerFromNow/openai-helpers/internal/editor"
	"github.com/TimeTravelerFromNow/openai-helpers/internal/service"
)

// ListMessages returns a thread's messages, newest first.
func (h *Handler) ListMessages(c echo.Context) error {
	messages, err := h.service.ListMessages(c.Request().Context(), c.Param("thread_id"))
	if err != nil {
		return threadError(c, err)
	}
	if messages == nil {
		messages = []domain.Message{}
	}
	return c.JSON(http.StatusOK, domain.ListMessagesResponse{Messages: messages})
}

// LatestMessage returns the newest message of a thread.
func (h *Handler) LatestMessage(c echo.Context) error {
	threadID := c.Param("thread_id")
	content, msg, err := h.service.LatestMessage(c.Request().Context(), threadID)
	if err != nil {
		return threadError(c, err)
	}
	return c.JSON(http.StatusOK, domain.LatestMessageResponse{ThreadID: threadID, Content: content, Message: msg})
}

// DeleteThread deletes a thread at the provider.
func (h *Handler) DeleteThread(c echo.Context) error {
	threadID := c.Param("thread_id")
	deleted, err := h.service.DeleteThread(c.Request().Context(), threadID)
	if err != nil {
		return threadError(c, err)
	}
	return c.JSON(http.StatusOK, domain.ThreadDeleted{ID: threadID, Deleted: deleted})
}

// GetAssistant returns an assistant's configuration.
func (h *Handler) GetAssistant(c echo.Context) error {
	assistant, err := h.service.RetrieveAssistant(c.Request().Context(), c.Param("assistant_id"))
	if err != nil {
		return threadError(c, err)
	}
	return c.JSON(http.StatusOK, assistant)
}

// ClearSandbox removes every file from the sandbox.
func (h *Handler) ClearSandbox(c echo.Context) error {
	removed, err := h.service.ClearSandbox(c.Request().Context())
	if err != nil {
		return threadError(c, err)
	}
	return c.JSON(http.StatusOK, domain.ClearSandboxResponse{Removed: removed})
}

func threadError(c echo.Context, err error) error {
	status, code := http.StatusBadGateway, "provider_error"
	switch {
	case errors.Is(err, provider.ErrNotFound):
		status, code = http.StatusNotFound, "not_found"
	case errors.Is(err, service.ErrNoMessages):
		status, code = http.StatusNotFound, "no_messages"
	case errors.Is(err, service.ErrSandboxReadOnly):
		status, code = http.StatusForbidden, "sandbox_read_only"
	case errors.Is(err, editor.ErrSandboxRootMissing):
		status, code = http.StatusInternalServerError, "sandbox_root_missing"
	}
	return c.JSON(status, domain.ErrorResponse{Error: err.Error(), Code: code})
}
