// Package agent pairs a model client with tools and shared state and runs
// the tool-call loop until the model gives a final answer.
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/JovanVeljanoski/ateam/llm"
	obs "github.com/JovanVeljanoski/ateam/observability"
	"github.com/JovanVeljanoski/ateam/state"
	"github.com/JovanVeljanoski/ateam/tools"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultRole         = "You are a helpful assistant."
	DefaultMaxToolCalls = 11
	DefaultTemperature  = 0.85
	DefaultTopP         = 1.0

	// maxParallelTools bounds concurrent tool executions within one turn.
	maxParallelTools = 8
)

var (
	// ErrEmptyResponse is returned when the model answers with neither
	// content nor tool calls.
	ErrEmptyResponse = errors.New("agent: empty response from model")
	// ErrRefusal is returned when the model refuses to answer.
	ErrRefusal = errors.New("agent: model refused")
	// ErrToolCallLimit is matched by the error returned when the model is
	// still calling tools after MaxToolCalls turns.
	ErrToolCallLimit = errors.New("agent: tool call limit reached")
	// ErrBlocked is returned when a guardrail rejects the run.
	ErrBlocked = errors.New("agent: blocked by guardrails")
)

// LimitError reports an exhausted tool-call budget.
type LimitError struct {
	MaxToolCalls int
}

func (e *LimitError) Error() string {
	return fmt.Sprintf("an answer could not be provided after %d tool calls", e.MaxToolCalls)
}

func (e *LimitError) Is(target error) bool { return target == ErrToolCallLimit }

// Config describes an agent. Zero values select the defaults.
type Config struct {
	// Name identifies the agent in logs, spans and the HTTP API.
	Name string `json:"name"`
	// Role is the system prompt.
	Role string `json:"role"`
	// Model is sent with every request; it defaults to llm.DefaultModel.
	Model string `json:"model"`
	Tools []tools.Tool `json:"-"`
	// MaxToolCalls bounds the number of model turns in one run.
	MaxToolCalls int `json:"max_tool_calls"`
	// Output requests structured output; see OutputOf.
	Output *llm.ResponseFormat `json:"-"`
	// Reasoning is the effort (low, medium, high) sent to reasoning models
	// and ignored for the rest.
	Reasoning string `json:"reasoning,omitempty"`
	// Temperature and TopP are not sent to reasoning models.
	Temperature *float64 `json:"temperature,omitempty"`
	TopP        *float64 `json:"top_p,omitempty"`
	MaxTokens   *int     `json:"max_tokens,omitempty"`
	// ParallelToolCalls executes the tool calls of one turn concurrently.
	ParallelToolCalls bool `json:"parallel_tool_calls"`
	// Verbose logs every tool call and output at info level instead of debug.
	Verbose bool `json:"verbose"`
	// State is shared by every tool call; a fresh in-memory state is
	// created when nil.
	State *state.Shared `json:"-"`
	// Timeout bounds a whole run when positive.
	Timeout    time.Duration   `json:"timeout,omitempty"`
	Guardrails Guardrails      `json:"-"`
	Logger     *zerolog.Logger `json:"-"`
}

// Agent runs conversations against one model client. It is safe for
// concurrent use; concurrent runs share the agent's state.
type Agent struct {
	cfg      Config
	client   llm.Client
	registry *tools.Registry
	state    *state.Shared
	log      zerolog.Logger
}

// New validates cfg and returns an agent.
func New(client llm.Client, cfg Config) (*Agent, error) {
	if client == nil {
		return nil, errors.New("agent: nil client")
	}
	if cfg.Role == "" {
		cfg.Role = DefaultRole
	}
	if cfg.Model == "" {
		cfg.Model = llm.DefaultModel
	}
	if cfg.Name == "" {
		cfg.Name = "agent"
	}
	if cfg.MaxToolCalls < 0 {
		return nil, fmt.Errorf("agent %s: max_tool_calls must be non-negative, got %d", cfg.Name, cfg.MaxToolCalls)
	}
	if cfg.MaxToolCalls == 0 {
		cfg.MaxToolCalls = DefaultMaxToolCalls
	}
	switch cfg.Reasoning {
	case "", "low", "medium", "high":
	default:
		return nil, fmt.Errorf("agent %s: reasoning must be low, medium or high, got %q", cfg.Name, cfg.Reasoning)
	}
	if cfg.Temperature == nil {
		t := DefaultTemperature
		cfg.Temperature = &t
	}
	if cfg.TopP == nil {
		p := DefaultTopP
		cfg.TopP = &p
	}
	if llm.IsGeminiModel(cfg.Model) && len(cfg.Tools) > 0 && cfg.Output.Structured() {
		return nil, fmt.Errorf("agent %s: gemini models do not support tools and structured output together", cfg.Name)
	}

	registry, err := tools.NewRegistry(cfg.Tools...)
	if err != nil {
		return nil, fmt.Errorf("agent %s: %w", cfg.Name, err)
	}
	st := cfg.State
	if st == nil {
		st = state.New()
	}
	logger := log.Logger
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}

	return &Agent{
		cfg:      cfg,
		client:   client,
		registry: registry,
		state:    st,
		log:      logger.With().Str("agent", cfg.Name).Logger(),
	}, nil
}

func (a *Agent) Name() string  { return a.cfg.Name }
func (a *Agent) Model() string { return a.cfg.Model }

// Config returns the effective configuration after defaults.
func (a *Agent) Config() Config { return a.cfg }

// State returns the state shared by the agent's tools.
func (a *Agent) State() *state.Shared { return a.state }

// Tools lists tool names in registration order.
func (a *Agent) Tools() []string { return a.registry.List() }

// Run sends msg to the model and dispatches tool calls until the model
// answers, refuses or the tool-call budget is spent.
func (a *Agent) Run(ctx context.Context, msg string) (*Result, error) {
	runID := uuid.NewString()
	logger := a.log.With().Str("run_id", runID).Logger()

	if a.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.cfg.Timeout)
		defer cancel()
	}

	span, ctx := obs.TracerImpl.StartSpan(ctx, "agent.run")
	defer span.End()
	span.SetAttribute(obs.AttrAgentName, a.cfg.Name)
	span.SetAttribute(obs.AttrRunID, runID)
	span.SetAttribute(obs.AttrModel, a.cfg.Model)

	labels := map[string]string{"agent": a.cfg.Name}
	obs.MetricsImpl.IncrementRequests(labels)
	start := time.Now()
	defer func() { obs.MetricsImpl.RecordLatency(time.Since(start), labels) }()

	fail := func(err error) (*Result, error) {
		span.SetStatus(obs.StatusCodeError, err.Error())
		obs.MetricsImpl.RecordError("agent_error", labels)
		logger.Error().Err(err).Msg("run failed")
		return nil, err
	}

	res := &Result{RunID: runID, Agent: a.cfg.Name, Usage: &llm.Usage{}}
	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: a.cfg.Role},
		{Role: llm.RoleUser, Content: msg},
	}
	logger.Debug().Str("input", msg).Msg("run started")

	for turn := 0; turn < a.cfg.MaxToolCalls; turn++ {
		req := a.request(messages)
		if a.cfg.Guardrails != nil {
			if err := a.cfg.Guardrails.BeforeLLMCall(ctx, req); err != nil {
				return fail(fmt.Errorf("%w: %v", ErrBlocked, err))
			}
			// keep any rewrite the guardrail made for later turns
			messages = req.Messages
		}

		resp, err := a.client.Chat(ctx, req)
		if err != nil {
			return fail(fmt.Errorf("agent %s: model call failed: %w", a.cfg.Name, err))
		}
		res.Turns++
		res.Usage.Add(resp.Usage)

		if a.cfg.Guardrails != nil {
			if err := a.cfg.Guardrails.AfterLLMResponse(ctx, resp); err != nil {
				return fail(fmt.Errorf("%w: %v", ErrBlocked, err))
			}
		}

		switch {
		case resp.HasToolCalls():
			messages = append(messages, llm.Message{
				Role:      llm.RoleAssistant,
				Content:   resp.Content,
				ToolCalls: resp.ToolCalls,
			})
			calls := a.executeTools(ctx, logger, resp.ToolCalls)
			for _, c := range calls {
				messages = append(messages, llm.Message{
					Role:       llm.RoleTool,
					Content:    c.Output,
					Name:       c.Name,
					ToolCallID: c.ID,
				})
			}
			res.ToolCalls = append(res.ToolCalls, calls...)

		case resp.Refusal != "":
			return fail(fmt.Errorf("%w: %s", ErrRefusal, resp.Refusal))

		case strings.TrimSpace(resp.Content) != "":
			messages = append(messages, llm.Message{Role: llm.RoleAssistant, Content: resp.Content})
			res.Content = resp.Content
			res.Messages = messages
			if a.cfg.Output.Structured() {
				raw, err := llm.DecodeStructured[json.RawMessage](resp.Content)
				if err != nil {
					return fail(fmt.Errorf("agent %s: %w", a.cfg.Name, err))
				}
				res.Structured = raw
			}
			span.SetAttribute(obs.AttrTurns, res.Turns)
			span.SetStatus(obs.StatusCodeOk, "")
			logger.Debug().Int("turns", res.Turns).Int("tool_calls", len(res.ToolCalls)).Msg("run finished")
			return res, nil

		default:
			return fail(fmt.Errorf("%w (finish reason %q)", ErrEmptyResponse, resp.FinishReason))
		}
	}

	span.SetAttribute(obs.AttrTurns, res.Turns)
	return fail(&LimitError{MaxToolCalls: a.cfg.MaxToolCalls})
}

func (a *Agent) request(messages []llm.Message) *llm.ChatRequest {
	req := &llm.ChatRequest{
		Messages:       append([]llm.Message(nil), messages...),
		Model:          a.cfg.Model,
		MaxTokens:      a.cfg.MaxTokens,
		ResponseFormat: a.cfg.Output,
	}
	if a.registry.Len() > 0 {
		req.Tools = a.registry.Definitions()
		req.ToolChoice = "auto"
	}
	if llm.IsReasoningModel(a.cfg.Model) {
		req.ReasoningEffort = a.cfg.Reasoning
	} else {
		req.Temperature = a.cfg.Temperature
		req.TopP = a.cfg.TopP
	}
	return req
}

func (a *Agent) executeTools(ctx context.Context, logger zerolog.Logger, calls []llm.ToolCall) []ToolCall {
	out := make([]ToolCall, len(calls))
	if !a.cfg.ParallelToolCalls || len(calls) < 2 {
		for i, tc := range calls {
			out[i] = a.executeTool(ctx, logger, tc)
		}
		return out
	}
	var g errgroup.Group
	g.SetLimit(maxParallelTools)
	for i, tc := range calls {
		g.Go(func() error {
			out[i] = a.executeTool(ctx, logger, tc)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// executeTool never fails: errors become tool output the model can react to.
func (a *Agent) executeTool(ctx context.Context, logger zerolog.Logger, tc llm.ToolCall) ToolCall {
	call := tools.Call{
		ID:        tc.ID,
		Name:      tc.Function.Name,
		Arguments: tc.Function.Arguments,
		State:     a.state,
	}
	rec := ToolCall{ID: tc.ID, Name: call.Name, Arguments: call.Arguments}
	a.verbose(logger).Str("tool", call.Name).Str("arguments", call.Arguments).Msg("tool call")

	start := time.Now()
	var (
		output string
		err    error
	)
	if a.cfg.Guardrails != nil {
		err = a.cfg.Guardrails.BeforeToolExecute(ctx, call)
	}
	if err == nil {
		output, err = a.registry.Execute(ctx, call)
	}
	rec.Duration = time.Since(start)

	if err != nil {
		rec.Error = err.Error()
		output = "error: " + err.Error()
		logger.Warn().Err(err).Str("tool", call.Name).Msg("tool failed")
	}
	rec.Output = output
	a.verbose(logger).Str("tool", call.Name).Str("output", output).Dur("duration", rec.Duration).Msg("tool output")
	return rec
}

func (a *Agent) verbose(logger zerolog.Logger) *zerolog.Event {
	if a.cfg.Verbose {
		return logger.Info()
	}
	return logger.Debug()
}
