package domain

import (
	"encoding/json"
	"time"
)

// Run is one execution attempt of an assistant on a thread.
// Field names follow the provider's wire format so runs decode directly.
type Run struct {
	RunID          string          `json:"id"`
	ThreadID       string          `json:"thread_id"`
	AssistantID    string          `json:"assistant_id,omitempty"`
	Status         RunStatus       `json:"status"`
	RequiredAction *RequiredAction `json:"required_action,omitempty"`
	Usage          *Usage          `json:"usage,omitempty"`
	Model          string          `json:"model,omitempty"`
	CompletedAt    *int64          `json:"completed_at,omitempty"`
}

// RequiredAction describes what a run in requires_action is waiting for.
type RequiredAction struct {
	Type              ActionType         `json:"type"`
	SubmitToolOutputs *SubmitToolOutputs `json:"submit_tool_outputs,omitempty"`
}

// SubmitToolOutputs carries the tool calls the run needs answered.
type SubmitToolOutputs struct {
	ToolCalls []ToolInvocation `json:"tool_calls"`
}

// Usage represents token usage information reported with a run.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// UsageRecord is a persisted usage line for one observed run.
type UsageRecord struct {
	RunID            string    `json:"run_id"`
	ThreadID         string    `json:"thread_id"`
	AssistantID      string    `json:"assistant_id,omitempty"`
	Model            string    `json:"model,omitempty"`
	CompletedAt      *int64    `json:"completed_at,omitempty"`
	PromptTokens     int       `json:"prompt_tokens"`
	CompletionTokens int       `json:"completion_tokens"`
	TotalTokens      int       `json:"total_tokens"`
	RecordedAt       time.Time `json:"recorded_at"`
}

// UsageRecordFor extracts usage metrics from a run. It returns nil when the
// run carries no usage.
func UsageRecordFor(run *Run) *UsageRecord {
	if run == nil || run.Usage == nil {
		return nil
	}
	return &UsageRecord{
		RunID:            run.RunID,
		ThreadID:         run.ThreadID,
		AssistantID:      run.AssistantID,
		Model:            run.Model,
		CompletedAt:      run.CompletedAt,
		PromptTokens:     run.Usage.PromptTokens,
		CompletionTokens: run.Usage.CompletionTokens,
		TotalTokens:      run.Usage.TotalTokens,
		RecordedAt:       time.Now(),
	}
}

// Event represents a trace event for replay.
type Event struct {
	EventID  string          `json:"event_id"`
	RunID    string          `json:"run_id"`
	ThreadID string          `json:"thread_id"`
	Ts       int64           `json:"ts"` // Unix milliseconds
	Type     EventType       `json:"type"`
	Payload  json.RawMessage `json:"payload,omitempty"`
}
