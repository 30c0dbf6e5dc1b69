package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/JovanVeljanoski/ateam/llm"
)

// Result is the outcome of one Run.
type Result struct {
	RunID string `json:"run_id"`
	Agent string `json:"agent"`
	// Content is the final assistant text.
	Content string `json:"output"`
	// Structured holds the decoded JSON answer when the agent requests
	// structured output.
	Structured json.RawMessage `json:"structured,omitempty"`
	ToolCalls  []ToolCall      `json:"tool_calls"`
	// Turns counts model calls.
	Turns int        `json:"turns"`
	Usage *llm.Usage `json:"usage,omitempty"`
	// Messages is the full conversation, final answer included.
	Messages []llm.Message `json:"-"`
}

// ToolCall records one executed tool call.
type ToolCall struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	Arguments string        `json:"arguments"`
	Output    string        `json:"output"`
	Error     string        `json:"error,omitempty"`
	Duration  time.Duration `json:"duration"`
}

// String returns the structured answer when present and the text otherwise.
func (r *Result) String() string {
	if len(r.Structured) > 0 {
		return string(r.Structured)
	}
	return r.Content
}

// Decode unmarshals the structured answer into v, falling back to the text
// content for agents without an output format.
func (r *Result) Decode(v any) error {
	raw := []byte(r.Structured)
	if len(raw) == 0 {
		raw = []byte(r.Content)
	}
	if len(raw) == 0 {
		return errors.New("agent: result has no content to decode")
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("agent: decode result: %w", err)
	}
	if val, ok := v.(llm.Validator); ok {
		return val.Validate()
	}
	return nil
}

// RunAs runs a and decodes the structured answer into T.
func RunAs[T any](ctx context.Context, a *Agent, msg string) (T, *Result, error) {
	var out T
	res, err := a.Run(ctx, msg)
	if err != nil {
		return out, nil, err
	}
	out, err = llm.DecodeStructured[T](res.String())
	if err != nil {
		return out, res, err
	}
	return out, res, nil
}

// OutputOf returns a strict json_schema output format reflected from T,
// for Config.Output.
func OutputOf[T any]() (*llm.ResponseFormat, error) {
	return llm.ResponseFormatFor[T]("")
}

// MustOutputOf is OutputOf for static configuration.
func MustOutputOf[T any]() *llm.ResponseFormat {
	f, err := OutputOf[T]()
	if err != nil {
		panic(err)
	}
	return f
}
