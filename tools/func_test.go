package tools

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/JovanVeljanoski/ateam/state"
)

type weatherArgs struct {
	City  string `json:"city" jsonschema:"description=City name" validate:"required"`
	Units string `json:"units,omitempty" validate:"omitempty,oneof=metric imperial"`
}

type report struct {
	City string  `json:"city"`
	Temp float64 `json:"temp"`
}

type celsius float64

func (c celsius) String() string { return "it is cold" }

func TestFuncSchemaAndStrict(t *testing.T) {
	f, err := NewFunc("weather", "Get the weather", func(ctx context.Context, st *state.Shared, a weatherArgs) (any, error) {
		return nil, nil
	})
	if err != nil {
		t.Fatalf("new func: %v", err)
	}
	schema := f.Schema()
	if schema["type"] != "object" {
		t.Fatalf("schema type = %v", schema["type"])
	}
	props := schema["properties"].(map[string]any)
	if _, ok := props["city"]; !ok {
		t.Fatalf("city missing: %v", props)
	}
	if f.Strict() {
		t.Fatalf("optional units field makes the schema non-strict")
	}
}

func TestFuncRejectsNonStruct(t *testing.T) {
	if _, err := NewFunc("bad", "", func(ctx context.Context, st *state.Shared, a string) (any, error) { return a, nil }); err == nil {
		t.Fatalf("expected error for non-struct args")
	}
	if _, err := NewFunc[weatherArgs]("nil", "", nil); err == nil {
		t.Fatalf("expected error for nil handler")
	}
}

func TestFuncExecuteFormatsResults(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name   string
		result any
		want   string
	}{
		{"string", "sunny", "sunny"},
		{"bytes", []byte("raw"), "raw"},
		{"stringer", celsius(3), "it is cold"},
		{"nil", nil, ""},
		{"struct", report{City: "Oslo", Temp: -3.5}, `{"city":"Oslo","temp":-3.5}`},
		{"number", 42, "42"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := MustFunc("weather", "", func(ctx context.Context, st *state.Shared, a weatherArgs) (any, error) {
				return tc.result, nil
			})
			got, err := f.Execute(ctx, Call{Arguments: `{"city":"Oslo"}`})
			if err != nil || got != tc.want {
				t.Fatalf("got %q (%v), want %q", got, err, tc.want)
			}
		})
	}
}

func TestFuncValidation(t *testing.T) {
	f := MustFunc("weather", "", func(ctx context.Context, st *state.Shared, a weatherArgs) (any, error) {
		return a.City, nil
	})
	ctx := context.Background()
	for _, args := range []string{`{}`, `{"city":""}`, `{"city":"Oslo","units":"kelvin"}`, `[1,2]`} {
		if _, err := f.Execute(ctx, Call{Arguments: args}); err == nil || !strings.Contains(err.Error(), "invalid arguments for weather") {
			t.Fatalf("expected validation error for %s, got %v", args, err)
		}
	}
	if out, err := f.Execute(ctx, Call{Arguments: `{"city":"Rome","units":"metric"}`}); err != nil || out != "Rome" {
		t.Fatalf("valid call failed: %q %v", out, err)
	}
}

func TestFuncHandlerSeesSharedState(t *testing.T) {
	ctx := context.Background()
	st := state.New()
	remember := MustFunc("remember", "", func(ctx context.Context, st *state.Shared, a weatherArgs) (any, error) {
		return "ok", st.Set(ctx, "last_city", a.City)
	})
	recall := MustFunc("recall", "", func(ctx context.Context, st *state.Shared, _ struct{}) (any, error) {
		return st.Get(ctx, "last_city")
	})

	if _, err := remember.Execute(ctx, Call{Arguments: `{"city":"Lima"}`, State: st}); err != nil {
		t.Fatal(err)
	}
	out, err := recall.Execute(ctx, Call{State: st})
	if err != nil || out != "Lima" {
		t.Fatalf("recall = %q %v", out, err)
	}
}

func TestFuncHandlerError(t *testing.T) {
	boom := errors.New("boom")
	f := MustFunc("fail", "", func(ctx context.Context, st *state.Shared, _ struct{}) (any, error) {
		return nil, boom
	})
	if _, err := f.Execute(context.Background(), Call{}); !errors.Is(err, boom) {
		t.Fatalf("expected handler error, got %v", err)
	}
}
