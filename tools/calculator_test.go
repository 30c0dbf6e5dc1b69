package tools

import (
	"context"
	"fmt"
	"testing"
)

func TestCalculatorBasicOps(t *testing.T) {
	c := Calculator()
	tests := []struct {
		op   string
		a, b float64
		want string
	}{
		{"add", 1, 2, "3"},
		{"sub", 5, 2, "3"},
		{"mul", 3, 4, "12"},
		{"div", 8, 2, "4"},
		{"pow", 2, 3, "8"},
		{"sqrt", 9, 0, "3"},
	}
	for _, tc := range tests {
		args := fmt.Sprintf(`{"op":%q,"a":%v,"b":%v}`, tc.op, tc.a, tc.b)
		got, err := c.Execute(context.Background(), Call{Arguments: args})
		if err != nil || got != tc.want {
			t.Fatalf("%s => %q (%v), want %q", args, got, err, tc.want)
		}
	}
}

func TestCalculatorErrors(t *testing.T) {
	c := Calculator()
	cases := []string{
		``,
		`{"op":"noop","a":1,"b":2}`,
		`{"op":"div","a":1,"b":0}`,
		`{"op":"sqrt","a":-1}`,
		`{"op":"add","a":"one"}`,
	}
	for _, in := range cases {
		if _, err := c.Execute(context.Background(), Call{Arguments: in}); err == nil {
			t.Fatalf("expected error for %q", in)
		}
	}
}

func TestCalculatorSchema(t *testing.T) {
	c := Calculator()
	props := c.Schema()["properties"].(map[string]any)
	op := props["op"].(map[string]any)
	if enum, ok := op["enum"].([]any); !ok || len(enum) != 6 {
		t.Fatalf("op enum wrong: %v", op)
	}
	if !c.Strict() {
		t.Fatalf("all calculator fields are required, schema should be strict")
	}
}
