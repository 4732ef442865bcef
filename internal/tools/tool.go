package tools

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.opentelemetry.io/otel/attribute"

	"todoagent/pkg/config"
	. "todoagent/pkg/tracing"
)

var (
	// ErrUnknownTool is returned by Registry.Execute for an unregistered name.
	ErrUnknownTool = errors.New("unknown tool")

	// ErrInvalidArguments wraps every argument decoding failure.
	ErrInvalidArguments = errors.New("invalid tool arguments")
)

// Tool is a named operation an agent can call with JSON arguments. The
// result is always rendered as text for the model to read.
type Tool interface {
	Name() string
	Description() string
	Parameters() map[string]any // JSON Schema
	Execute(ctx context.Context, args map[string]any) (string, error)
}

// FuncTool wraps a plain function as a Tool.
type FuncTool struct {
	ToolName   string
	ToolDesc   string
	ToolParams map[string]any
	Fn         func(ctx context.Context, args map[string]any) (string, error)
}

func (f *FuncTool) Name() string               { return f.ToolName }
func (f *FuncTool) Description() string        { return f.ToolDesc }
func (f *FuncTool) Parameters() map[string]any { return f.ToolParams }
func (f *FuncTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	return f.Fn(ctx, args)
}

// Definition describes a registered tool to a caller.
type Definition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Registry is a thread-safe set of named tools.
type Registry struct {
	mu      sync.RWMutex
	tools   map[string]Tool
	metrics *config.AppMetrics
}

func NewRegistry(metrics *config.AppMetrics) *Registry {
	return &Registry{tools: make(map[string]Tool), metrics: metrics}
}

// Register adds a tool, replacing any tool of the same name.
func (r *Registry) Register(tool Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.tools[tool.Name()] = tool
}

// Get returns a tool by name or nil.
func (r *Registry) Get(name string) Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.tools[name]
}

// List returns the definitions of all tools sorted by name.
func (r *Registry) List() []Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]Definition, 0, len(r.tools))
	for _, tool := range r.tools {
		defs = append(defs, Definition{
			Name:        tool.Name(),
			Description: tool.Description(),
			Parameters:  tool.Parameters(),
		})
	}

	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })

	return defs
}

// Execute runs the named tool. Only an unknown name or malformed arguments
// produce an error; tool failures are part of the returned text.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]any) (string, error) {
	tool := r.Get(name)
	if tool == nil {
		return "", fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}

	ctx, span := CreateChildSpan(ctx, "tools."+name, []attribute.KeyValue{
		attribute.String("tool.name", name),
	})
	defer span.End()

	if r.metrics != nil {
		r.metrics.RecordToolInvocation(ctx, name)
	}

	if args == nil {
		args = map[string]any{}
	}

	output, err := tool.Execute(ctx, args)
	if err != nil {
		AddSpanError(span, err)
		return "", err
	}

	return output, nil
}
