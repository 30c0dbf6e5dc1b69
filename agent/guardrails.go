package agent

import (
	"context"
	"errors"
	"strings"

	"github.com/JovanVeljanoski/ateam/llm"
	"github.com/JovanVeljanoski/ateam/tools"
)

// Guardrails inspect a run at its model and tool boundaries. Errors from
// the LLM hooks abort the run with ErrBlocked; an error from
// BeforeToolExecute is returned to the model as the tool's output.
type Guardrails interface {
	BeforeLLMCall(ctx context.Context, req *llm.ChatRequest) error
	AfterLLMResponse(ctx context.Context, resp *llm.Response) error
	BeforeToolExecute(ctx context.Context, call tools.Call) error
}

// SimpleGuardrails filters the user input by substring and length and can
// restrict which tools may run.
type SimpleGuardrails struct {
	// Deny if any of these substrings appear in the user input
	DenySubstrings []string
	// Allow only if at least one of these substrings appears; if empty, allow all
	AllowSubstrings []string
	// MaxInputChars truncates the user input to this many runes when positive
	MaxInputChars int
	// DenyTools names tools the model may not call
	DenyTools []string
}

func (g *SimpleGuardrails) BeforeLLMCall(ctx context.Context, req *llm.ChatRequest) error {
	if req == nil || len(req.Messages) == 0 {
		return nil
	}
	last := &req.Messages[len(req.Messages)-1]
	if last.Role != llm.RoleUser {
		return nil
	}
	if g.MaxInputChars > 0 {
		last.Content = truncateRunes(last.Content, g.MaxInputChars)
	}
	lower := strings.ToLower(last.Content)
	for _, s := range g.DenySubstrings {
		if s != "" && strings.Contains(lower, strings.ToLower(s)) {
			return errors.New("request blocked by guardrails")
		}
	}
	if len(g.AllowSubstrings) == 0 {
		return nil
	}
	for _, s := range g.AllowSubstrings {
		if s != "" && strings.Contains(lower, strings.ToLower(s)) {
			return nil
		}
	}
	return errors.New("request not permitted by guardrails")
}

func (g *SimpleGuardrails) AfterLLMResponse(ctx context.Context, resp *llm.Response) error {
	return nil
}

func (g *SimpleGuardrails) BeforeToolExecute(ctx context.Context, call tools.Call) error {
	for _, name := range g.DenyTools {
		if name == call.Name {
			return errors.New("tool " + call.Name + " is not permitted")
		}
	}
	return nil
}

var _ Guardrails = (*SimpleGuardrails)(nil)

func truncateRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
