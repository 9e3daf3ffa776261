package domain

// DriveRunResponse is returned once a run chain reaches a terminal outcome.
type DriveRunResponse struct {
	Outcome string `json:"outcome"`
	Run     *Run   `json:"run"`
}

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// ToolListItem represents a tool in the list response.
type ToolListItem struct {
	Name        string `json:"name"`
	Source      string `json:"source"` // "builtin" or "registry"
	Description string `json:"description,omitempty"`
	Schema      any    `json:"schema,omitempty"`
}

// ListToolsResponse represents the response for listing tools.
type ListToolsResponse struct {
	Tools []ToolListItem `json:"tools"`
}

// RunFailedPayload is recorded when a run chain ends in failure.
type RunFailedPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// RunPolledPayload is recorded each time the driver observes a settled status.
type RunPolledPayload struct {
	Status    RunStatus `json:"status"`
	Iteration int       `json:"iteration"`
}

// ToolDispatchedPayload is recorded for every invocation in a batch.
type ToolDispatchedPayload struct {
	ToolCallID string         `json:"tool_call_id"`
	ToolName   string         `json:"tool_name"`
	IsError    bool           `json:"is_error"`
	Decision   PolicyDecision `json:"decision"`
}
