// Package policy gates tool invocations through an OPA rego policy.
package policy

import (
	"context"
	"fmt"

	"github.com/open-policy-agent/opa/rego"

	"github.com/TimeTravelerFromNow/openai-helpers/internal/domain"
)

// Input is the document a policy is evaluated against.
type Input struct {
	ToolName string         `json:"tool_name"`
	Args     map[string]any `json:"args"`
	RunID    string         `json:"run_id,omitempty"`
	ThreadID string         `json:"thread_id,omitempty"`
	ReadOnly bool           `json:"read_only"`
}

// Engine is the OPA policy engine.
type Engine struct {
	query rego.PreparedEvalQuery
}

// NewEngine creates a new policy engine with the given policy content.
// The module must live in package tool_policy and define decision and reason.
func NewEngine(ctx context.Context, policyContent string) (*Engine, error) {
	r := rego.New(
		rego.Query("decision := data.tool_policy.decision; reason := data.tool_policy.reason"),
		rego.Module("tool_policy.rego", policyContent),
	)

	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare rego: %w", err)
	}

	return &Engine{query: query}, nil
}

// Evaluate returns the decision for one invocation and the policy's reason.
// An undefined result is treated as allow.
func (e *Engine) Evaluate(ctx context.Context, input Input) (domain.PolicyDecision, string, error) {
	if input.Args == nil {
		input.Args = map[string]any{}
	}
	results, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return "", "", fmt.Errorf("failed to evaluate policy: %w", err)
	}
	if len(results) == 0 {
		return domain.PolicyDecisionAllow, "", nil
	}

	reason, _ := results[0].Bindings["reason"].(string)
	raw, ok := results[0].Bindings["decision"].(string)
	if !ok {
		return "", "", fmt.Errorf("policy decision has unexpected type %T", results[0].Bindings["decision"])
	}
	switch d := domain.PolicyDecision(raw); d {
	case domain.PolicyDecisionAllow, domain.PolicyDecisionBlock:
		return d, reason, nil
	default:
		return "", "", fmt.Errorf("policy returned unknown decision %q", raw)
	}
}

// DefaultPolicy allows every invocation except mutating editor commands when
// the sandbox is read-only.
const DefaultPolicy = `
package tool_policy

default decision = "allow"
default reason = ""

mutating_commands = {"str_replace", "insert", "delete", "create", "undo_edit"}

decision = "block" {
	input.read_only
	input.tool_name == "str_replace_editor"
	mutating_commands[input.args.command]
}

reason = "sandbox is read-only" {
	decision == "block"
}
`
