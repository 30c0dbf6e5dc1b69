package tools

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync"
	"time"

	"github.com/JovanVeljanoski/ateam/llm"
	obs "github.com/JovanVeljanoski/ateam/observability"
)

// ErrToolNotFound is returned by Execute for names that were never registered.
var ErrToolNotFound = errors.New("tool not found")

var validName = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,64}$`)

// Registry holds the tools of one agent in registration order.
type Registry struct {
	mu    sync.RWMutex
	order []string
	tools map[string]Tool
}

// NewRegistry returns a registry holding tools, or the first registration
// error.
func NewRegistry(tools ...Tool) (*Registry, error) {
	r := &Registry{tools: make(map[string]Tool)}
	for _, t := range tools {
		if err := r.Register(t); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds a tool. Names must be unique and provider-safe.
func (r *Registry) Register(tool Tool) error {
	if tool == nil {
		return errors.New("nil tool")
	}
	name := tool.Name()
	if !validName.MatchString(name) {
		return fmt.Errorf("invalid tool name %q: must match %s", name, validName)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("tool %s already registered", name)
	}
	r.tools[name] = tool
	r.order = append(r.order, name)
	return nil
}

func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tool, ok := r.tools[name]
	return tool, ok
}

// List returns tool names in registration order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Definitions describes every tool to the model.
func (r *Registry) Definitions() []llm.Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]llm.Tool, 0, len(r.order))
	for _, name := range r.order {
		t := r.tools[name]
		defs = append(defs, llm.Tool{
			Type: "function",
			Function: llm.ToolFunction{
				Name:        name,
				Description: t.Description(),
				Parameters:  t.Schema(),
				Strict:      t.Strict(),
			},
		})
	}
	return defs
}

// Execute runs the tool named by call.Name.
func (r *Registry) Execute(ctx context.Context, call Call) (string, error) {
	tool, ok := r.Get(call.Name)
	if !ok {
		obs.MetricsImpl.IncrementToolCalls(call.Name, true)
		return "", fmt.Errorf("%w: %s", ErrToolNotFound, call.Name)
	}

	start := time.Now()
	span, ctx := obs.TracerImpl.StartSpan(ctx, "tool.execute")
	span.SetAttribute(obs.AttrToolName, call.Name)
	span.SetAttribute(obs.AttrToolCallID, call.ID)
	defer span.End()

	result, err := tool.Execute(ctx, call)

	labels := map[string]string{"tool_name": call.Name}
	obs.MetricsImpl.RecordLatency(time.Since(start), labels)
	obs.MetricsImpl.IncrementToolCalls(call.Name, err != nil)
	if err != nil {
		obs.MetricsImpl.RecordError("tool_error", labels)
		span.SetStatus(obs.StatusCodeError, err.Error())
		return "", err
	}
	span.SetStatus(obs.StatusCodeOk, "")
	return result, nil
}
