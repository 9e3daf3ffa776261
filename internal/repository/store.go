// Package store persists the driver's audit trail: events, dispatched tool
// calls and usage records.
package store

import (
	"context"

	"github.com/TimeTravelerFromNow/openai-helpers/internal/domain"
)

// Store defines the interface for data persistence.
type Store interface {
	// Event operations
	CreateEvent(ctx context.Context, event *domain.Event) error
	GetEvents(ctx context.Context, runID string, afterTs int64, types []string, limit int) ([]domain.Event, error)

	// ToolCall operations
	CreateToolCall(ctx context.Context, toolCall *domain.ToolCall) error
	ListToolCalls(ctx context.Context, runID string) ([]domain.ToolCall, error)

	// Usage operations
	CreateUsage(ctx context.Context, record *domain.UsageRecord) error
	ListUsage(ctx context.Context, threadID string) ([]domain.UsageRecord, error)

	// Lifecycle
	Close() error
}

var _ Store = (*SQLiteStore)(nil)
