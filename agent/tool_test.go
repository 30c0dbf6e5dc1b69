package agent

import (
	"context"
	"testing"

	"github.com/JovanVeljanoski/ateam/llm"
	"github.com/JovanVeljanoski/ateam/tools"
)

func TestAsToolSchema(t *testing.T) {
	child, _ := New(NewMockLLMClient(), Config{Name: "researcher"})
	tool, err := child.AsTool("researcher", "Researches a topic")
	if err != nil {
		t.Fatal(err)
	}
	if tool.Name() != "researcher" || tool.Description() != "Researches a topic" {
		t.Fatalf("unexpected tool %s %q", tool.Name(), tool.Description())
	}
	props := tool.Schema()["properties"].(map[string]any)
	input := props["input"].(map[string]any)
	if input["type"] != "string" || input["description"] != "The input or instructions" {
		t.Fatalf("input schema wrong: %v", input)
	}
	if !tool.Strict() {
		t.Fatalf("single required field should be strict")
	}
	if _, err := tool.Execute(context.Background(), tools.Call{Arguments: `{}`}); err == nil {
		t.Fatalf("missing input should be rejected")
	}
}

func TestAgentAsToolInParent(t *testing.T) {
	add, _ := noteTools()
	childLLM := NewMockLLMClient()
	childLLM.AddToolCalls(toolCall("k1", "add_note", `{"text":"child"}`))
	childLLM.AddResponse("Paris is the capital of France.")
	child, _ := New(childLLM, Config{Name: "researcher", Tools: []tools.Tool{add}})

	parentLLM := NewMockLLMClient()
	parentLLM.AddToolCalls(toolCall("p1", "researcher", `{"input":"What is the capital of France?"}`))
	parentLLM.AddResponse("The answer is Paris.")
	parent, err := New(parentLLM, Config{Name: "captain", Tools: []tools.Tool{child.MustTool("researcher", "Researches a topic")}})
	if err != nil {
		t.Fatal(err)
	}

	res, err := parent.Run(context.Background(), "capital of France?")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Content != "The answer is Paris." || res.ToolCalls[0].Output != "Paris is the capital of France." {
		t.Fatalf("unexpected result: %+v", res)
	}
	if got := childLLM.GetCalls()[0].Messages[1]; got.Role != llm.RoleUser || got.Content != "What is the capital of France?" {
		t.Fatalf("child got wrong input: %+v", got)
	}

	ctx := context.Background()
	if !child.State().Has(ctx, "notes") {
		t.Fatalf("child should write to its own state")
	}
	if parent.State().Has(ctx, "notes") {
		t.Fatalf("parent state must stay separate from the child's")
	}
}
