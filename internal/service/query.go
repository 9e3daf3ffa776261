package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/TimeTravelerFromNow/openai-helpers/internal/domain"
	"github.com/TimeTravelerFromNow/openai-helpers/internal/editor"
	"github.com/TimeTravelerFromNow/openai-helpers/internal/tools"
)

// GetRunEvents returns the recorded events of a run.
func (s *Service) GetRunEvents(ctx context.Context, runID string, afterTs int64, types []string, limit int) ([]domain.Event, error) {
	events, err := s.store.GetEvents(ctx, runID, afterTs, types, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get events: %w", err)
	}
	return events, nil
}

// ListToolCalls returns the invocations dispatched for a run.
func (s *Service) ListToolCalls(ctx context.Context, runID string) ([]domain.ToolCall, error) {
	calls, err := s.store.ListToolCalls(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tool calls: %w", err)
	}
	return calls, nil
}

// ListUsage returns the usage records of a thread.
func (s *Service) ListUsage(ctx context.Context, threadID string) ([]domain.UsageRecord, error) {
	records, err := s.store.ListUsage(ctx, threadID)
	if err != nil {
		return nil, fmt.Errorf("failed to list usage: %w", err)
	}
	return records, nil
}

// ListTools returns the editor definition followed by the registered handler names.
func (s *Service) ListTools(names []string) []domain.ToolListItem {
	def := tools.EditorDefinition()
	items := []domain.ToolListItem{{
		Name:        def.Function.Name,
		Source:      "builtin",
		Description: def.Function.Description,
		Schema:      def.Function.Parameters,
	}}
	for _, name := range names {
		items = append(items, domain.ToolListItem{Name: name, Source: "registry"})
	}
	return items
}

// ExecuteEditor runs one editor request outside of any run, subject to the
// tool policy.
func (s *Service) ExecuteEditor(ctx context.Context, args map[string]any) (editor.Response, domain.PolicyDecision, error) {
	raw, err := json.Marshal(args)
	if err != nil {
		return editor.Response{}, "", fmt.Errorf("failed to encode arguments: %w", err)
	}
	items, err := s.dispatcher.Dispatch(ctx, "", []domain.ToolInvocation{{
		ID:       "direct_" + uuid.New().String()[:8],
		Type:     "function",
		Function: domain.FunctionCall{Name: editor.ToolName, Arguments: string(raw)},
	}}, nil)
	if err != nil {
		return editor.Response{}, "", err
	}

	var resp editor.Response
	if err := json.Unmarshal([]byte(items[0].Result.Output), &resp); err != nil {
		return editor.Response{}, "", fmt.Errorf("failed to decode editor output: %w", err)
	}
	return resp, items[0].Decision, nil
}
