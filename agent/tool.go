package agent

import (
	"context"

	"github.com/JovanVeljanoski/ateam/state"
	"github.com/JovanVeljanoski/ateam/tools"
)

// ToolInput is the argument object of an agent used as a tool.
type ToolInput struct {
	Input string `json:"input" jsonschema:"description=The input or instructions" validate:"required"`
}

// AsTool exposes the agent as a tool another agent can call. The nested
// run uses this agent's own state, not the caller's.
func (a *Agent) AsTool(name, description string) (tools.Tool, error) {
	f, err := tools.NewFunc(name, description, func(ctx context.Context, _ *state.Shared, in ToolInput) (any, error) {
		res, err := a.Run(ctx, in.Input)
		if err != nil {
			return nil, err
		}
		return res.String(), nil
	})
	if err != nil {
		return nil, err
	}
	return f, nil
}

// MustTool is AsTool for static wiring.
func (a *Agent) MustTool(name, description string) tools.Tool {
	t, err := a.AsTool(name, description)
	if err != nil {
		panic(err)
	}
	return t
}
