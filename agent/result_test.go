package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/JovanVeljanoski/ateam/llm"
)

type verdict struct {
	Answer     string  `json:"answer" jsonschema:"description=Final answer"`
	Confidence float64 `json:"confidence"`
}

func (v verdict) Validate() error {
	if v.Confidence < 0 || v.Confidence > 1 {
		return errors.New("confidence out of range")
	}
	return nil
}

func TestOutputOf(t *testing.T) {
	f, err := OutputOf[verdict]()
	if err != nil {
		t.Fatal(err)
	}
	if f.Type != llm.FormatJSONSchema || f.Name != "verdict" || !f.Strict {
		t.Fatalf("unexpected format: %+v", f)
	}
	if _, err := OutputOf[string](); err == nil {
		t.Fatalf("expected error for non-struct output")
	}
}

func TestRunAsStructured(t *testing.T) {
	mock := NewMockLLMClient()
	mock.AddResponse("```json\n{\"answer\":\"Paris\",\"confidence\":0.9}\n```")
	a, _ := New(mock, Config{Output: MustOutputOf[verdict]()})

	v, res, err := RunAs[verdict](context.Background(), a, "Capital of France?")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if v.Answer != "Paris" || string(res.Structured) != `{"answer":"Paris","confidence":0.9}` {
		t.Fatalf("unexpected output %+v %s", v, res.Structured)
	}
	if mock.GetCalls()[0].ResponseFormat == nil {
		t.Fatalf("response format not sent")
	}

	var again verdict
	if err := res.Decode(&again); err != nil || again != v {
		t.Fatalf("decode: %+v %v", again, err)
	}
}

func TestRunStructuredRejectsInvalid(t *testing.T) {
	mock := NewMockLLMClient()
	mock.AddResponse("not json")
	a, _ := New(mock, Config{Output: MustOutputOf[verdict]()})
	if _, err := a.Run(context.Background(), "x"); err == nil {
		t.Fatalf("expected decode error")
	}

	mock = NewMockLLMClient()
	mock.AddResponse(`{"answer":"x","confidence":3}`)
	a, _ = New(mock, Config{Output: MustOutputOf[verdict]()})
	if _, _, err := RunAs[verdict](context.Background(), a, "x"); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestResultStringAndDecodeText(t *testing.T) {
	r := &Result{Content: "plain"}
	if r.String() != "plain" {
		t.Fatalf("String = %q", r.String())
	}
	var n int
	if err := (&Result{Content: "12"}).Decode(&n); err != nil || n != 12 {
		t.Fatalf("decode text: %d %v", n, err)
	}
	if err := (&Result{}).Decode(&n); err == nil {
		t.Fatalf("expected error for empty result")
	}
}
