// Package tools routes the tool invocations of a run to the sandboxed editor
// or to host-supplied handlers.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
)

// HandlerFunc answers a function call the editor does not own. It returns
// the output string sent back to the run. An error fails the whole batch.
type HandlerFunc func(ctx context.Context, name string, args map[string]any) (string, error)

// ExecutorFunc defines a host-side tool executor.
type ExecutorFunc func(ctx context.Context, args json.RawMessage) (json.RawMessage, error)

// Registry stores tool executors keyed by function name.
type Registry struct {
	mu        sync.RWMutex
	executors map[string]ExecutorFunc
}

// NewRegistry creates an empty tool executor registry.
func NewRegistry() *Registry {
	return &Registry{
		executors: make(map[string]ExecutorFunc),
	}
}

// Register adds a new executor for a function name.
func (r *Registry) Register(name string, exec ExecutorFunc) error {
	if name == "" {
		return fmt.Errorf("tool name is required")
	}
	if exec == nil {
		return fmt.Errorf("executor is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.executors[name]; exists {
		return fmt.Errorf("executor already registered for %s", name)
	}
	r.executors[name] = exec
	return nil
}

// MustRegister adds an executor or panics.
func (r *Registry) MustRegister(name string, exec ExecutorFunc) {
	if err := r.Register(name, exec); err != nil {
		panic(err)
	}
}

// Names returns the registered function names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.executors))
	for name := range r.executors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Handle runs the executor registered for name. It satisfies HandlerFunc.
// An unregistered name is answered in-band so the assistant can recover.
func (r *Registry) Handle(ctx context.Context, name string, args map[string]any) (string, error) {
	r.mu.RLock()
	exec := r.executors[name]
	r.mu.RUnlock()
	if exec == nil {
		return encodeOutput(fmt.Sprintf("Unknown function: %s", name), true)
	}

	raw, err := json.Marshal(args)
	if err != nil {
		return "", fmt.Errorf("failed to encode arguments for %s: %w", name, err)
	}
	out, err := exec(ctx, raw)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
