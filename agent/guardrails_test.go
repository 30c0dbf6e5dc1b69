package agent

import (
	"context"
	"testing"
	"unicode/utf8"

	"github.com/JovanVeljanoski/ateam/llm"
)

func TestSimpleGuardrailsTruncatesOnRuneBoundary(t *testing.T) {
	g := &SimpleGuardrails{MaxInputChars: 3}
	tests := []struct {
		in, want string
	}{
		{"héllo", "hél"},
		{"日本語テキスト", "日本語"},
		{"ab", "ab"},
		{"abc", "abc"},
		{"a😀b😀", "a😀b"},
	}
	for _, tt := range tests {
		req := &llm.ChatRequest{Messages: []llm.Message{{Role: llm.RoleUser, Content: tt.in}}}
		if err := g.BeforeLLMCall(context.Background(), req); err != nil {
			t.Fatalf("%q: %v", tt.in, err)
		}
		got := req.Messages[0].Content
		if got != tt.want {
			t.Errorf("truncate(%q) = %q, want %q", tt.in, got, tt.want)
		}
		if !utf8.ValidString(got) {
			t.Errorf("truncate(%q) produced invalid UTF-8", tt.in)
		}
	}
}

func TestSimpleGuardrailsSkipsNonUserTurns(t *testing.T) {
	g := &SimpleGuardrails{MaxInputChars: 2, DenySubstrings: []string{"secret"}}
	req := &llm.ChatRequest{Messages: []llm.Message{
		{Role: llm.RoleUser, Content: "hi"},
		{Role: llm.RoleTool, Content: "the secret output"},
	}}
	if err := g.BeforeLLMCall(context.Background(), req); err != nil {
		t.Fatalf("tool turns should not be checked: %v", err)
	}
	if req.Messages[1].Content != "the secret output" {
		t.Fatalf("tool output must not be truncated")
	}
}
