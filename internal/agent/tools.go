package agent

import (
	"context"
	"fmt"
	"sync"
)

// ToolFunc runs a tool on the raw Action Input and returns its output text.
type ToolFunc func(ctx context.Context, input string) (string, error)

// Tool is a named capability the agent can ask for.
type Tool struct {
	Name        string
	Description string
	Run         ToolFunc
}

// Registry is an ordered, concurrency-safe set of tools.
type Registry struct {
	mu    sync.RWMutex
	order []string
	tools map[string]Tool
}

// NewRegistry creates a registry holding the given tools.
func NewRegistry(tools ...Tool) *Registry {
	r := &Registry{tools: make(map[string]Tool)}
	for _, t := range tools {
		r.Register(t)
	}
	return r
}

// Register adds a tool, replacing any tool with the same name.
func (r *Registry) Register(t Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[t.Name]; !exists {
		r.order = append(r.order, t.Name)
	}
	r.tools[t.Name] = t
}

// Names returns the tool names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Tools returns the registered tools in registration order.
func (r *Registry) Tools() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Tool, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name])
	}
	return out
}

// Invoke runs the named tool.
func (r *Registry) Invoke(ctx context.Context, name, input string) (ToolObservation, error) {
	r.mu.RLock()
	t, ok := r.tools[name]
	r.mu.RUnlock()
	if !ok {
		return ToolObservation{}, fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}

	out, err := t.Run(ctx, input)
	if err != nil {
		return ToolObservation{}, &ToolError{Tool: name, Err: err}
	}
	return NewObservation(name, out), nil
}
