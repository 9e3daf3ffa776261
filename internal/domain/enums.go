// Package domain defines the core domain models for the run driver.
package domain

// RunStatus represents the status of an assistant run as reported by the provider.
type RunStatus string

const (
	RunStatusQueued         RunStatus = "queued"
	RunStatusInProgress     RunStatus = "in_progress"
	RunStatusRequiresAction RunStatus = "requires_action"
	RunStatusCompleted      RunStatus = "completed"
	RunStatusCancelled      RunStatus = "cancelled"
	RunStatusExpired        RunStatus = "expired"
)

// IsTransient reports whether the provider is expected to move the run on its own.
func (s RunStatus) IsTransient() bool {
	return s == RunStatusQueued || s == RunStatusInProgress
}

// IsKnown reports whether s is one of the statuses the driver understands.
func (s RunStatus) IsKnown() bool {
	switch s {
	case RunStatusQueued, RunStatusInProgress, RunStatusRequiresAction,
		RunStatusCompleted, RunStatusCancelled, RunStatusExpired:
		return true
	}
	return false
}

// ActionType is the kind of action a run is waiting on.
type ActionType string

const (
	ActionTypeSubmitToolOutputs ActionType = "submit_tool_outputs"
)

// EventType represents the type of a recorded driver event.
type EventType string

const (
	EventTypeRunPolled      EventType = "run_polled"
	EventTypeToolDispatched EventType = "tool_dispatched"
	EventTypeToolsSubmitted EventType = "tools_submitted"
	EventTypeRunCompleted   EventType = "run_completed"
	EventTypeRunFailed      EventType = "run_failed"
)

// PolicyDecision is the outcome of a tool policy evaluation.
type PolicyDecision string

const (
	PolicyDecisionAllow PolicyDecision = "allow"
	PolicyDecisionBlock PolicyDecision = "block"
)
