package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/JovanVeljanoski/ateam/llm"
	"github.com/JovanVeljanoski/ateam/state"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Handler is the body of a typed tool.
type Handler[A any] func(ctx context.Context, st *state.Shared, args A) (any, error)

// Func is a tool whose arguments decode into A. The parameter schema is
// reflected from A once at construction, so `json`, `jsonschema` and
// `validate` tags on A's fields shape what the model sees and what is
// accepted.
type Func[A any] struct {
	name        string
	description string
	schema      map[string]any
	strict      bool
	handler     Handler[A]
}

// NewFunc builds a typed tool. A must be a struct type.
func NewFunc[A any](name, description string, handler Handler[A]) (*Func[A], error) {
	if handler == nil {
		return nil, fmt.Errorf("tool %s: nil handler", name)
	}
	schema, err := llm.SchemaFor[A]()
	if err != nil {
		return nil, fmt.Errorf("tool %s: %w", name, err)
	}
	return &Func[A]{
		name:        name,
		description: description,
		schema:      schema,
		strict:      llm.StrictCompatible(schema),
		handler:     handler,
	}, nil
}

// MustFunc is NewFunc for package-level tool declarations.
func MustFunc[A any](name, description string, handler Handler[A]) *Func[A] {
	f, err := NewFunc(name, description, handler)
	if err != nil {
		panic(err)
	}
	return f
}

func (f *Func[A]) Name() string           { return f.name }
func (f *Func[A]) Description() string    { return f.description }
func (f *Func[A]) Schema() map[string]any { return f.schema }
func (f *Func[A]) Strict() bool           { return f.strict }

// Execute decodes and validates the arguments, then runs the handler.
func (f *Func[A]) Execute(ctx context.Context, call Call) (string, error) {
	args, err := f.Decode(call.Arguments)
	if err != nil {
		return "", err
	}
	out, err := f.handler(ctx, call.State, args)
	if err != nil {
		return "", err
	}
	return FormatResult(out)
}

// Decode parses raw JSON arguments into A and validates them.
func (f *Func[A]) Decode(raw string) (A, error) {
	var args A
	if strings.TrimSpace(raw) == "" {
		raw = "{}"
	}
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return args, fmt.Errorf("invalid arguments for %s: %w", f.name, err)
	}
	if err := validate.Struct(args); err != nil {
		return args, fmt.Errorf("invalid arguments for %s: %w", f.name, err)
	}
	return args, nil
}

var _ Tool = (*Func[struct{}])(nil)
