package team

import (
	"fmt"
	"sort"
	"time"

	"github.com/JovanVeljanoski/ateam/agent"
	"github.com/JovanVeljanoski/ateam/llm"
	"github.com/JovanVeljanoski/ateam/state"
	"github.com/JovanVeljanoski/ateam/tools"
	httptool "github.com/JovanVeljanoski/ateam/tools/http"
	"github.com/rs/zerolog"
)

// Spec declares one agent of a team.
type Spec struct {
	Name string `json:"name" validate:"required"`
	// Description is shown to other agents that use this one as a tool.
	Description       string   `json:"description"`
	Role              string   `json:"role"`
	Model             string   `json:"model"`
	Tools             []string `json:"tools"`
	Agents            []string `json:"agents"`
	MaxToolCalls      int      `json:"max_tool_calls"`
	Reasoning         string   `json:"reasoning"`
	Temperature       *float64 `json:"temperature,omitempty"`
	TopP              *float64 `json:"top_p,omitempty"`
	MaxTokens         *int     `json:"max_tokens,omitempty"`
	ParallelToolCalls bool     `json:"parallel_tool_calls"`
	Verbose           bool     `json:"verbose"`
	Timeout           string   `json:"timeout,omitempty"`
}

// Deps are the collaborators shared by every agent Build creates.
type Deps struct {
	Client llm.Client
	// State returns the backend for one agent; nil keeps state in memory.
	State func(agent string) (state.Backend, error)
	// Tools adds or overrides tools by name on top of the built-ins.
	Tools  map[string]tools.Tool
	Logger *zerolog.Logger
}

// Builtins returns the tools every team can reference by name.
func Builtins() map[string]tools.Tool {
	return map[string]tools.Tool{
		"calculator":   tools.Calculator(),
		"http_request": httptool.NewRequestTool(0),
		"state_set":    tools.StateSet(),
		"state_get":    tools.StateGet(),
		"state_keys":   tools.StateKeys(),
	}
}

// Team is a named set of agents.
type Team struct {
	agents map[string]*agent.Agent
}

// Build creates the agents in specs. Agents listed in a spec's Agents are
// attached as tools, so they are built first; unknown names and cycles are
// rejected.
func Build(specs []Spec, deps Deps) (*Team, error) {
	if deps.Client == nil {
		return nil, fmt.Errorf("team: nil client")
	}
	byName := make(map[string]Spec, len(specs))
	for _, s := range specs {
		if s.Name == "" {
			return nil, fmt.Errorf("team: agent without a name")
		}
		if _, dup := byName[s.Name]; dup {
			return nil, fmt.Errorf("team: duplicate agent %q", s.Name)
		}
		byName[s.Name] = s
	}
	available := Builtins()
	for name, t := range deps.Tools {
		available[name] = t
	}

	b := &builder{
		specs:   byName,
		deps:    deps,
		tools:   available,
		built:   make(map[string]*agent.Agent, len(specs)),
		visited: make(map[string]bool),
	}
	for _, s := range specs {
		if _, err := b.build(s.Name, nil); err != nil {
			return nil, err
		}
	}
	return &Team{agents: b.built}, nil
}

type builder struct {
	specs   map[string]Spec
	deps    Deps
	tools   map[string]tools.Tool
	built   map[string]*agent.Agent
	visited map[string]bool
}

func (b *builder) build(name string, path []string) (*agent.Agent, error) {
	if a, ok := b.built[name]; ok {
		return a, nil
	}
	spec, ok := b.specs[name]
	if !ok {
		return nil, fmt.Errorf("team: unknown agent %q", name)
	}
	path = append(path, name)
	if b.visited[name] {
		return nil, fmt.Errorf("team: agent cycle %v", path)
	}
	b.visited[name] = true

	var agentTools []tools.Tool
	for _, tn := range spec.Tools {
		t, ok := b.tools[tn]
		if !ok {
			return nil, fmt.Errorf("team: agent %q: unknown tool %q", name, tn)
		}
		agentTools = append(agentTools, t)
	}
	for _, sub := range spec.Agents {
		child, err := b.build(sub, path)
		if err != nil {
			return nil, err
		}
		desc := b.specs[sub].Description
		if desc == "" {
			desc = "Delegate a task to the " + sub + " agent."
		}
		t, err := child.AsTool(sub, desc)
		if err != nil {
			return nil, fmt.Errorf("team: agent %q: %w", name, err)
		}
		agentTools = append(agentTools, t)
	}

	cfg := agent.Config{
		Name:              spec.Name,
		Role:              spec.Role,
		Model:             spec.Model,
		Tools:             agentTools,
		MaxToolCalls:      spec.MaxToolCalls,
		Reasoning:         spec.Reasoning,
		Temperature:       spec.Temperature,
		TopP:              spec.TopP,
		MaxTokens:         spec.MaxTokens,
		ParallelToolCalls: spec.ParallelToolCalls,
		Verbose:           spec.Verbose,
		Logger:            b.deps.Logger,
	}
	if spec.Timeout != "" {
		d, err := time.ParseDuration(spec.Timeout)
		if err != nil {
			return nil, fmt.Errorf("team: agent %q: invalid timeout: %w", name, err)
		}
		cfg.Timeout = d
	}
	if b.deps.State != nil {
		backend, err := b.deps.State(name)
		if err != nil {
			return nil, fmt.Errorf("team: agent %q: state: %w", name, err)
		}
		cfg.State = state.NewWithBackend(backend)
	}

	a, err := agent.New(b.deps.Client, cfg)
	if err != nil {
		return nil, err
	}
	b.built[name] = a
	return a, nil
}

// New groups agents built in code into a Team.
func New(agents ...*agent.Agent) (*Team, error) {
	t := &Team{agents: make(map[string]*agent.Agent, len(agents))}
	for _, a := range agents {
		if a == nil {
			return nil, fmt.Errorf("team: nil agent")
		}
		if _, dup := t.agents[a.Name()]; dup {
			return nil, fmt.Errorf("team: duplicate agent %q", a.Name())
		}
		t.agents[a.Name()] = a
	}
	return t, nil
}

// Agent returns the agent called name.
func (t *Team) Agent(name string) (*agent.Agent, bool) {
	a, ok := t.agents[name]
	return a, ok
}

// Names lists the agents in sorted order.
func (t *Team) Names() []string {
	names := make([]string, 0, len(t.agents))
	for n := range t.agents {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (t *Team) Len() int { return len(t.agents) }
