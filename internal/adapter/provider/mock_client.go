package provider

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/TimeTravelerFromNow/openai-helpers/internal/domain"
)

// MockClient is an in-memory provider that plays back scripted run states.
// A retrieve advances through transient states; requires_action holds until
// outputs are submitted.
// A run that reaches completed posts one assistant message to its thread.
type MockClient struct {
	mu       sync.Mutex
	runs     map[string]*mockRun
	messages map[string][]domain.Message // newest first
	deleted  map[string]bool
}

type mockRun struct {
	steps       []domain.Run
	pos         int
	submissions [][]domain.ToolResult
	announced   bool
}

// NewMockClient creates a new mock provider.
func NewMockClient() *MockClient {
	return &MockClient{
		runs:     make(map[string]*mockRun),
		messages: make(map[string][]domain.Message),
		deleted:  make(map[string]bool),
	}
}

// Ensure MockClient implements Provider interface.
var _ Provider = (*MockClient)(nil)

// Script registers the states a run will go through. Every step inherits the
// first step's run and thread IDs.
func (m *MockClient) Script(steps ...domain.Run) {
	if len(steps) == 0 {
		return
	}
	for i := range steps {
		steps[i].RunID = steps[0].RunID
		steps[i].ThreadID = steps[0].ThreadID
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs[steps[0].RunID] = &mockRun{steps: steps}
}

// CreateRun seeds a run with the default script and returns its first state.
func (m *MockClient) CreateRun(ctx context.Context, threadID, assistantID string) (*domain.Run, error) {
	runID := "run_mock_" + uuid.New().String()[:8]
	m.Script(defaultScript(threadID, runID, assistantID)...)
	return m.RetrieveRun(ctx, threadID, runID)
}

// RetrieveRun returns the current scripted state. Unknown run IDs are seeded
// with the default script.
func (m *MockClient) RetrieveRun(ctx context.Context, threadID, runID string) (*domain.Run, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.runs[runID]
	if !ok {
		r = &mockRun{steps: defaultScript(threadID, runID, "asst_mock")}
		m.runs[runID] = r
	}
	current := r.steps[r.pos]
	if current.Status.IsTransient() && r.pos < len(r.steps)-1 {
		r.pos++
	}
	if current.Status == domain.RunStatusCompleted && !r.announced {
		r.announced = true
		m.addMessage(current.ThreadID, "assistant", fmt.Sprintf("Run %s completed.", current.RunID), current.RunID)
	}
	return &current, nil
}

// AddMessage posts a text message to a thread.
func (m *MockClient) AddMessage(threadID, role, text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.addMessage(threadID, role, text, "")
}

func (m *MockClient) addMessage(threadID, role, text, runID string) {
	msg := domain.Message{
		ID:        "msg_mock_" + uuid.New().String()[:8],
		ThreadID:  threadID,
		Role:      role,
		RunID:     runID,
		CreatedAt: time.Now().Unix(),
		Content:   []domain.MessageContent{{Type: "text", Text: &domain.MessageText{Value: text}}},
	}
	m.messages[threadID] = append([]domain.Message{msg}, m.messages[threadID]...)
}

// ListMessages returns a thread's messages, newest first. A thread that was
// never written to has no messages.
func (m *MockClient) ListMessages(ctx context.Context, threadID string) ([]domain.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleted[threadID] {
		return nil, fmt.Errorf("%w: thread %s", ErrNotFound, threadID)
	}
	return append([]domain.Message{}, m.messages[threadID]...), nil
}

// DeleteThread forgets a thread's messages. Deleting a thread twice fails.
func (m *MockClient) DeleteThread(ctx context.Context, threadID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleted[threadID] {
		return false, fmt.Errorf("%w: thread %s", ErrNotFound, threadID)
	}
	m.deleted[threadID] = true
	delete(m.messages, threadID)
	return true, nil
}

// RetrieveAssistant returns a fixed mock assistant for any non-empty ID.
func (m *MockClient) RetrieveAssistant(ctx context.Context, assistantID string) (*domain.Assistant, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if assistantID == "" {
		return nil, fmt.Errorf("%w: assistant id is empty", ErrNotFound)
	}
	return &domain.Assistant{ID: assistantID, Name: "Mock Assistant", Model: "mock-model"}, nil
}

// SubmitToolOutputs records the outputs and moves past requires_action.
func (m *MockClient) SubmitToolOutputs(ctx context.Context, threadID, runID string, outputs []domain.ToolResult) (*domain.Run, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.runs[runID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, runID)
	}
	current := r.steps[r.pos]
	if current.Status != domain.RunStatusRequiresAction {
		return nil, fmt.Errorf("run %s is %s, not waiting for tool outputs", runID, current.Status)
	}
	if err := matchOutputs(current, outputs); err != nil {
		return nil, err
	}
	r.submissions = append(r.submissions, append([]domain.ToolResult(nil), outputs...))
	if r.pos < len(r.steps)-1 {
		r.pos++
	}
	next := r.steps[r.pos]
	return &next, nil
}

// Submissions returns every batch submitted for a run.
func (m *MockClient) Submissions(runID string) [][]domain.ToolResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.runs[runID]
	if !ok {
		return nil
	}
	return append([][]domain.ToolResult(nil), r.submissions...)
}

func matchOutputs(run domain.Run, outputs []domain.ToolResult) error {
	if run.RequiredAction == nil || run.RequiredAction.SubmitToolOutputs == nil {
		return nil
	}
	pending := run.RequiredAction.SubmitToolOutputs.ToolCalls
	if len(pending) != len(outputs) {
		return fmt.Errorf("expected %d tool outputs, got %d", len(pending), len(outputs))
	}
	for i, call := range pending {
		if outputs[i].ToolCallID != call.ID {
			return fmt.Errorf("tool output %d answers %s, expected %s", i, outputs[i].ToolCallID, call.ID)
		}
	}
	return nil
}

func defaultScript(threadID, runID, assistantID string) []domain.Run {
	completedAt := time.Now().Unix()
	base := domain.Run{RunID: runID, ThreadID: threadID, AssistantID: assistantID, Model: "mock-model"}

	queued, inProgress, waiting, resumed, completed := base, base, base, base, base
	queued.Status = domain.RunStatusQueued
	inProgress.Status = domain.RunStatusInProgress
	waiting.Status = domain.RunStatusRequiresAction
	waiting.RequiredAction = &domain.RequiredAction{
		Type: domain.ActionTypeSubmitToolOutputs,
		SubmitToolOutputs: &domain.SubmitToolOutputs{ToolCalls: []domain.ToolInvocation{{
			ID:   "call_mock_view",
			Type: "function",
			Function: domain.FunctionCall{
				Name:      "str_replace_editor",
				Arguments: `{"command":"view","path":"/"}`,
			},
		}}},
	}
	resumed.Status = domain.RunStatusQueued
	completed.Status = domain.RunStatusCompleted
	completed.CompletedAt = &completedAt
	completed.Usage = &domain.Usage{PromptTokens: 120, CompletionTokens: 30, TotalTokens: 150}

	return []domain.Run{queued, inProgress, waiting, resumed, completed}
}
