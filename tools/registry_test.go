package tools

import (
	"context"
	"errors"
	"testing"
	"time"

	obs "github.com/JovanVeljanoski/ateam/observability"
)

type dummyTool struct {
	name, desc string
	out        string
	err        error
}

func (d dummyTool) Name() string           { return d.name }
func (d dummyTool) Description() string    { return d.desc }
func (d dummyTool) Schema() map[string]any { return map[string]any{"type": "object"} }
func (d dummyTool) Strict() bool           { return false }
func (d dummyTool) Execute(ctx context.Context, call Call) (string, error) {
	if d.err != nil {
		return "", d.err
	}
	return d.out + ":" + call.Arguments, nil
}

func TestRegistryRegisterGetListExecute(t *testing.T) {
	r, err := NewRegistry(dummyTool{name: "b", desc: "B", out: "OB"})
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	a := dummyTool{name: "a", desc: "A", out: "OA"}
	if err := r.Register(a); err != nil {
		t.Fatalf("register a: %v", err)
	}
	if err := r.Register(a); err == nil {
		t.Fatalf("expected duplicate register error")
	}
	if err := r.Register(dummyTool{name: "has space"}); err == nil {
		t.Fatalf("expected invalid name error")
	}

	if _, ok := r.Get("a"); !ok {
		t.Fatalf("expected to get a")
	}
	names := r.List()
	if len(names) != 2 || names[0] != "b" || names[1] != "a" {
		t.Fatalf("expected registration order [b a], got %v", names)
	}
	defs := r.Definitions()
	if len(defs) != 2 || defs[1].Function.Name != "a" || defs[1].Function.Description != "A" || defs[1].Type != "function" {
		t.Fatalf("definitions wrong: %+v", defs)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	out, err := r.Execute(ctx, Call{Name: "a", Arguments: "in"})
	if err != nil || out != "OA:in" {
		t.Fatalf("execute unexpected: %v %q", err, out)
	}
}

func TestRegistryExecuteErrors(t *testing.T) {
	metrics := obs.NewDefaultMetrics()
	obs.SetMetrics(metrics)
	t.Cleanup(func() { obs.SetMetrics(&obs.NoOpMetrics{}) })

	r, _ := NewRegistry()
	if _, err := r.Execute(context.Background(), Call{Name: "none"}); !errors.Is(err, ErrToolNotFound) {
		t.Fatalf("expected ErrToolNotFound, got %v", err)
	}
	_ = r.Register(dummyTool{name: "e", err: errors.New("boom")})
	if _, err := r.Execute(context.Background(), Call{Name: "e"}); err == nil {
		t.Fatalf("expected execution error")
	}

	stats := metrics.GetStats()
	failures := stats["tool_failures"].(map[string]int64)
	if failures["e"] != 1 || failures["none"] != 1 {
		t.Fatalf("tool failures not recorded: %v", failures)
	}
}

func TestRegistryExecuteTraces(t *testing.T) {
	tracer := obs.NewDefaultTracer()
	obs.SetTracer(tracer)
	t.Cleanup(func() { obs.SetTracer(&obs.NoOpTracer{}) })

	r, _ := NewRegistry(dummyTool{name: "a", out: "x"})
	if _, err := r.Execute(context.Background(), Call{ID: "call_1", Name: "a"}); err != nil {
		t.Fatal(err)
	}
	spans := tracer.SpansNamed("tool.execute")
	if len(spans) != 1 || spans[0].Attributes[obs.AttrToolCallID] != "call_1" {
		t.Fatalf("unexpected spans: %+v", spans)
	}
}
