package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/TimeTravelerFromNow/openai-helpers/internal/domain"
	"github.com/TimeTravelerFromNow/openai-helpers/internal/editor"
	"github.com/TimeTravelerFromNow/openai-helpers/policy"
)

var (
	// ErrNoHandler is returned when a batch names a function other than the
	// editor and no handler was supplied.
	ErrNoHandler = errors.New("no handler for function call")
	// ErrHandlerFailed wraps a handler error. It aborts the whole batch.
	ErrHandlerFailed = errors.New("tool handler failed")
	// ErrMalformedArguments is returned when an invocation's arguments are not a JSON object.
	ErrMalformedArguments = errors.New("malformed function arguments")
)

// PolicyEvaluator decides whether an invocation may run.
type PolicyEvaluator interface {
	Evaluate(ctx context.Context, input policy.Input) (domain.PolicyDecision, string, error)
}

// Dispatched is the outcome of one invocation in a batch.
type Dispatched struct {
	Invocation domain.ToolInvocation
	Args       map[string]any
	Result     domain.ToolResult
	IsError    bool
	Decision   domain.PolicyDecision
}

// Dispatcher executes batches of tool invocations.
type Dispatcher struct {
	editor   *editor.Editor
	policy   PolicyEvaluator
	readOnly bool
}

// NewDispatcher creates a dispatcher. policy may be nil, in which case every
// invocation is allowed.
func NewDispatcher(ed *editor.Editor, policy PolicyEvaluator, readOnly bool) *Dispatcher {
	return &Dispatcher{editor: ed, policy: policy, readOnly: readOnly}
}

// Editor returns the sandboxed editor.
func (d *Dispatcher) Editor() *editor.Editor {
	return d.editor
}

// ReadOnly reports whether the sandbox is configured read-only.
func (d *Dispatcher) ReadOnly() bool {
	return d.readOnly
}

// Dispatch runs every invocation in order and returns exactly one entry per
// invocation. Any error aborts the batch and no results are returned.
func (d *Dispatcher) Dispatch(ctx context.Context, runID string, calls []domain.ToolInvocation, handler HandlerFunc) ([]Dispatched, error) {
	out := make([]Dispatched, 0, len(calls))
	for _, call := range calls {
		item, err := d.dispatchOne(ctx, runID, call, handler)
		if err != nil {
			return nil, fmt.Errorf("failed to dispatch tool call %s (%s): %w", call.ID, call.Function.Name, err)
		}
		out = append(out, item)
	}
	return out, nil
}

func (d *Dispatcher) dispatchOne(ctx context.Context, runID string, call domain.ToolInvocation, handler HandlerFunc) (Dispatched, error) {
	args, err := decodeArguments(call.Function.Arguments)
	if err != nil {
		return Dispatched{}, err
	}
	item := Dispatched{
		Invocation: call,
		Args:       args,
		Result:     domain.ToolResult{ToolCallID: call.ID},
		Decision:   domain.PolicyDecisionAllow,
	}
	name := call.Function.Name

	if d.policy != nil {
		decision, reason, err := d.policy.Evaluate(ctx, policy.Input{
			ToolName: name,
			Args:     args,
			RunID:    runID,
			ReadOnly: d.readOnly,
		})
		if err != nil {
			return Dispatched{}, err
		}
		item.Decision = decision
		if decision == domain.PolicyDecisionBlock {
			msg := "Error: Tool call blocked by policy"
			if reason != "" {
				msg += ": " + reason
			}
			output, err := encodeOutput(msg, true)
			if err != nil {
				return Dispatched{}, err
			}
			logrus.WithFields(logrus.Fields{"tool": name, "tool_call_id": call.ID, "reason": reason}).Warn("tool call blocked by policy")
			item.Result.Output = output
			item.IsError = true
			return item, nil
		}
	}

	if name == editor.ToolName {
		resp, err := d.RunEditor(ctx, args)
		if err != nil {
			return Dispatched{}, err
		}
		output, err := encodeResponse(resp)
		if err != nil {
			return Dispatched{}, err
		}
		item.Result.Output = output
		item.IsError = resp.IsError
		return item, nil
	}

	if handler == nil {
		return Dispatched{}, ErrNoHandler
	}
	output, err := handler(ctx, name, args)
	if err != nil {
		return Dispatched{}, fmt.Errorf("%w: %w", ErrHandlerFailed, err)
	}
	item.Result.Output = output
	return item, nil
}

// RunEditor decodes editor arguments and executes them. Arguments that do
// not fit the editor request shape are reported in-band.
func (d *Dispatcher) RunEditor(ctx context.Context, args map[string]any) (editor.Response, error) {
	req, err := editor.DecodeRequest(args)
	if err != nil {
		return editor.Response{Content: fmt.Sprintf("Error: %v", err), IsError: true}, nil
	}
	return d.editor.Execute(ctx, req)
}

// Results extracts the submission payload from a dispatched batch.
func Results(items []Dispatched) []domain.ToolResult {
	results := make([]domain.ToolResult, len(items))
	for i, item := range items {
		results[i] = item.Result
	}
	return results
}

func decodeArguments(raw string) (map[string]any, error) {
	if strings.TrimSpace(raw) == "" {
		return map[string]any{}, nil
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedArguments, err)
	}
	if args == nil {
		args = map[string]any{}
	}
	return args, nil
}

func encodeResponse(resp editor.Response) (string, error) {
	data, err := json.Marshal(resp)
	if err != nil {
		return "", fmt.Errorf("failed to encode editor response: %w", err)
	}
	return string(data), nil
}

func encodeOutput(content string, isError bool) (string, error) {
	return encodeResponse(editor.Response{Content: content, IsError: isError})
}
