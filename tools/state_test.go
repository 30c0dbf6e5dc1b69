package tools

import (
	"context"
	"testing"

	"github.com/JovanVeljanoski/ateam/state"
)

func TestStateTools(t *testing.T) {
	ctx := context.Background()
	st := state.New()
	r, err := NewRegistry(StateSet(), StateGet(), StateKeys())
	if err != nil {
		t.Fatal(err)
	}

	if _, err := r.Execute(ctx, Call{Name: "state_set", Arguments: `{"key":"plan","value":"{\"steps\":2}"}`, State: st}); err != nil {
		t.Fatalf("set: %v", err)
	}
	if _, err := r.Execute(ctx, Call{Name: "state_set", Arguments: `{"key":"note","value":"buy milk"}`, State: st}); err != nil {
		t.Fatalf("set: %v", err)
	}

	out, err := r.Execute(ctx, Call{Name: "state_get", Arguments: `{"key":"plan"}`, State: st})
	if err != nil || out != `{"steps":2}` {
		t.Fatalf("get plan = %q %v", out, err)
	}
	out, err = r.Execute(ctx, Call{Name: "state_get", Arguments: `{"key":"note"}`, State: st})
	if err != nil || out != "buy milk" {
		t.Fatalf("get note = %q %v", out, err)
	}
	if _, err := r.Execute(ctx, Call{Name: "state_get", Arguments: `{"key":"missing"}`, State: st}); err == nil {
		t.Fatalf("expected missing key error")
	}

	out, err = r.Execute(ctx, Call{Name: "state_keys", State: st})
	if err != nil || out != `["note","plan"]` {
		t.Fatalf("keys = %q %v", out, err)
	}

	if _, err := r.Execute(ctx, Call{Name: "state_keys"}); err == nil {
		t.Fatalf("expected error without state")
	}
}
