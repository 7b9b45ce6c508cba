// Package tool defines the capability contract the pipeline invokes during
// reasoning, plus a registry mapping names to implementations.
package tool

import (
	"context"
	"errors"
	"fmt"
	"sort"
)

// Tool is the fixed capability shape: a name, a human-readable parameter
// schema, and an execute function. The pipeline treats all tools
// polymorphically through this interface.
type Tool interface {
	Name() string
	Schema() string
	Execute(ctx context.Context, args string) (string, error)
}

// Registry maps tool names to implementations. It is an explicitly owned
// object populated at startup, not ambient global state.
type Registry struct {
	tools map[string]Tool
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds a tool. Duplicate names are an error.
func (r *Registry) Register(t Tool) error {
	if t == nil || t.Name() == "" {
		return errors.New("tool must have a name")
	}
	if _, dup := r.tools[t.Name()]; dup {
		return fmt.Errorf("tool %q already registered", t.Name())
	}
	r.tools[t.Name()] = t
	return nil
}

// Get looks up a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// Names returns registered tool names, sorted.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.tools))
	for n := range r.tools {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Describe renders the tool list for inclusion in a prompt.
func (r *Registry) Describe() string {
	s := ""
	for _, n := range r.Names() {
		t := r.tools[n]
		s += fmt.Sprintf("- %s: %s\n", t.Name(), t.Schema())
	}
	return s
}

// executionError marks a tool failure. It is recorded in the trace and fed
// back to the model; it never aborts the execution.
type executionError struct {
	tool  string
	cause error
}

func (e executionError) Error() string { return "tool " + e.tool + ": " + e.cause.Error() }

func (e executionError) Unwrap() error { return e.cause }

// ErrExecution constructs a tool execution error.
func ErrExecution(tool string, cause error) error {
	return executionError{tool: tool, cause: cause}
}

// IsExecution reports whether err is a tool execution failure.
func IsExecution(err error) bool {
	var e executionError
	return errors.As(err, &e)
}
