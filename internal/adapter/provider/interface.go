// Package provider talks to the asynchronous job provider that owns runs.
package provider

import (
	"context"
	"errors"

	"github.com/TimeTravelerFromNow/openai-helpers/internal/domain"
)

// ErrNotFound is returned when the provider does not know a run, thread or
// assistant.
var ErrNotFound = errors.New("resource not found")

// Provider defines the provider operations the service needs.
type Provider interface {
	// RetrieveRun fetches the current state of a run.
	RetrieveRun(ctx context.Context, threadID, runID string) (*domain.Run, error)

	// SubmitToolOutputs answers a run waiting in requires_action and returns
	// the run as the provider reports it after the submission.
	SubmitToolOutputs(ctx context.Context, threadID, runID string, outputs []domain.ToolResult) (*domain.Run, error)

	// ListMessages returns a thread's messages, newest first.
	ListMessages(ctx context.Context, threadID string) ([]domain.Message, error)

	// DeleteThread deletes a thread and reports whether the provider did so.
	DeleteThread(ctx context.Context, threadID string) (bool, error)

	// RetrieveAssistant fetches an assistant's configuration.
	RetrieveAssistant(ctx context.Context, assistantID string) (*domain.Assistant, error)
}

// Ensure Client implements Provider interface.
var _ Provider = (*Client)(nil)
