// Package tools declares the functions a model may call and dispatches the
// calls it makes.
package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/JovanVeljanoski/ateam/state"
)

// Call is one tool invocation requested by the model.
type Call struct {
	// ID is the provider's tool call id, echoed back with the result.
	ID   string
	Name string
	// Arguments is the raw JSON object the model produced.
	Arguments string
	// State is the calling agent's shared state. Every call of a run
	// receives the same value.
	State *state.Shared
}

// Tool is a function the model can call.
type Tool interface {
	// Name identifies the tool to the model; it must match ^[a-zA-Z0-9_-]{1,64}$.
	Name() string

	Description() string

	// Schema returns the JSON schema of the arguments object.
	Schema() map[string]any

	// Strict reports whether the provider should enforce Schema exactly.
	Strict() bool

	Execute(ctx context.Context, call Call) (string, error)
}

// FormatResult renders a handler result as tool output text: strings and
// byte slices verbatim, Stringers via String, nil as empty and everything
// else as JSON.
func FormatResult(v any) (string, error) {
	switch x := v.(type) {
	case nil:
		return "", nil
	case string:
		return x, nil
	case []byte:
		return string(x), nil
	case fmt.Stringer:
		return x.String(), nil
	case error:
		return x.Error(), nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("format tool result: %w", err)
	}
	return string(b), nil
}
