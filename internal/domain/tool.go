package domain

import (
	"encoding/json"
	"time"
)

// ToolInvocation is one tool call requested by a run.
type ToolInvocation struct {
	ID       string       `json:"id"`
	Type     string       `json:"type,omitempty"`
	Function FunctionCall `json:"function"`
}

// FunctionCall names the function to run and carries its JSON-encoded arguments.
type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ToolResult pairs an invocation ID with the output sent back to the run.
type ToolResult struct {
	ToolCallID string `json:"tool_call_id"`
	Output     string `json:"output"`
}

// ToolCall is the audit record of one dispatched invocation.
type ToolCall struct {
	RecordID   string          `json:"record_id"`
	ToolCallID string          `json:"tool_call_id"`
	RunID      string          `json:"run_id"`
	ThreadID   string          `json:"thread_id"`
	ToolName   string          `json:"tool_name"`
	Args       json.RawMessage `json:"args,omitempty"`
	Output     string          `json:"output"`
	IsError    bool            `json:"is_error"`
	Decision   PolicyDecision  `json:"decision"`
	CreatedAt  time.Time       `json:"created_at"`
}
