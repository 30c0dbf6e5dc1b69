package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/JovanVeljanoski/ateam/llm"
	"github.com/sashabaranov/go-openai"
)

// Client implements llm.Client for OpenAI and OpenAI-compatible endpoints
// (Gemini is reached through one of those).
type Client struct {
	client *openai.Client
	config Config
}

// Config holds OpenAI-specific configuration
type Config struct {
	APIKey       string        `json:"api_key"`
	Model        string        `json:"model"`
	BaseURL      string        `json:"base_url,omitempty"`
	Organization string        `json:"organization,omitempty"`
	MaxTokens    int           `json:"max_tokens,omitempty"`
	Timeout      time.Duration `json:"timeout,omitempty"`
	// Provider overrides the reported provider, e.g. llm.ProviderGemini.
	Provider llm.Provider `json:"provider,omitempty"`
	// HTTPClient replaces the default client; Timeout is ignored when set.
	HTTPClient *http.Client `json:"-"`
}

// NewClient creates a new OpenAI client. An empty APIKey falls back to
// OPENAI_API_KEY.
func NewClient(config Config) (*Client, error) {
	if config.APIKey == "" {
		config.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if config.Model == "" {
		config.Model = llm.DefaultModel
	}
	if config.Timeout == 0 {
		config.Timeout = 120 * time.Second
	}
	if config.Provider == "" {
		config.Provider = llm.ProviderOpenAI
	}
	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	oaiConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		oaiConfig.BaseURL = config.BaseURL
	}
	if config.Organization != "" {
		oaiConfig.OrgID = config.Organization
	}
	if config.HTTPClient != nil {
		oaiConfig.HTTPClient = config.HTTPClient
	} else {
		oaiConfig.HTTPClient = &http.Client{Timeout: config.Timeout}
	}

	return &Client{
		client: openai.NewClientWithConfig(oaiConfig),
		config: config,
	}, nil
}

// NewGeminiClient returns a client for Google's OpenAI-compatible Gemini
// endpoint. An empty apiKey falls back to GEMINI_API_KEY.
func NewGeminiClient(apiKey, model string) (*Client, error) {
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	if model == "" {
		model = llm.ModelGemini20Flash
	}
	return NewClient(Config{
		APIKey:   apiKey,
		Model:    model,
		BaseURL:  llm.GeminiBaseURL,
		Provider: llm.ProviderGemini,
	})
}

func validateConfig(config Config) error {
	if config.APIKey == "" {
		return errors.New("API key is required")
	}
	if config.MaxTokens < 0 {
		return errors.New("max_tokens must be non-negative")
	}
	return nil
}

// Chat implements llm.Client
func (c *Client) Chat(ctx context.Context, req *llm.ChatRequest) (*llm.Response, error) {
	start := time.Now()
	oaiReq, err := c.buildRequest(req)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.CreateChatCompletion(ctx, oaiReq)
	if err != nil {
		return nil, c.convertError(err, oaiReq.Model)
	}

	out, err := c.convertResponse(resp, oaiReq.Model)
	if err != nil {
		return nil, err
	}
	out.Latency = time.Since(start)
	out.Timestamp = start
	return out, nil
}

func (c *Client) buildRequest(req *llm.ChatRequest) (openai.ChatCompletionRequest, error) {
	if req == nil {
		return openai.ChatCompletionRequest{}, llm.NewLLMError(c.config.Provider, llm.ErrorTypeInvalidRequest, "nil request")
	}
	model := c.config.Model
	if req.Model != "" {
		model = req.Model
	}
	reasoning := llm.IsReasoningModel(model)

	oaiReq := openai.ChatCompletionRequest{
		Model:    model,
		Messages: convertMessages(req.SystemPrompt, req.Messages),
		Stop:     req.Stop,
		Seed:     req.Seed,
		User:     req.User,
	}

	if !reasoning {
		if req.Temperature != nil {
			oaiReq.Temperature = sendableFloat(*req.Temperature)
		}
		if req.TopP != nil {
			oaiReq.TopP = sendableFloat(*req.TopP)
		}
	} else {
		oaiReq.ReasoningEffort = req.ReasoningEffort
	}

	maxTokens := c.config.MaxTokens
	if req.MaxTokens != nil {
		maxTokens = *req.MaxTokens
	}
	if maxTokens > 0 {
		if reasoning {
			oaiReq.MaxCompletionTokens = maxTokens
		} else {
			oaiReq.MaxTokens = maxTokens
		}
	}

	if len(req.Tools) > 0 {
		oaiReq.Tools = convertTools(req.Tools)
		if req.ToolChoice != "" {
			oaiReq.ToolChoice = req.ToolChoice
		}
		if req.ParallelToolCalls != nil {
			oaiReq.ParallelToolCalls = *req.ParallelToolCalls
		}
	}

	rf, err := convertResponseFormat(req.ResponseFormat)
	if err != nil {
		return oaiReq, llm.NewLLMErrorWithCause(c.config.Provider, llm.ErrorTypeInvalidRequest, "invalid response format", err)
	}
	oaiReq.ResponseFormat = rf
	return oaiReq, nil
}

// sendableFloat converts a sampling parameter. The SDK drops zero values
// (omitempty), so an explicit 0 is sent as the smallest positive float32.
func sendableFloat(v float64) float32 {
	if v == 0 {
		return math.SmallestNonzeroFloat32
	}
	return float32(v)
}

func convertMessages(systemPrompt string, msgs []llm.Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(msgs)+1)
	if systemPrompt != "" {
		out = append(out, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: systemPrompt})
	}
	for _, msg := range msgs {
		m := openai.ChatCompletionMessage{Content: msg.Content, Name: msg.Name}
		switch msg.Role {
		case llm.RoleSystem:
			m.Role = openai.ChatMessageRoleSystem
		case llm.RoleAssistant:
			m.Role = openai.ChatMessageRoleAssistant
			for _, tc := range msg.ToolCalls {
				m.ToolCalls = append(m.ToolCalls, openai.ToolCall{
					ID:   tc.ID,
					Type: openai.ToolTypeFunction,
					Function: openai.FunctionCall{
						Name:      tc.Function.Name,
						Arguments: tc.Function.Arguments,
					},
				})
			}
		case llm.RoleTool:
			m.Role = openai.ChatMessageRoleTool
			m.ToolCallID = msg.ToolCallID
			m.Name = ""
		default:
			m.Role = openai.ChatMessageRoleUser
		}
		out = append(out, m)
	}
	return out
}

func convertTools(tools []llm.Tool) []openai.Tool {
	out := make([]openai.Tool, len(tools))
	for i, tool := range tools {
		params := tool.Function.Parameters
		if params == nil {
			params = map[string]any{"type": "object", "properties": map[string]any{}}
		}
		out[i] = openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        tool.Function.Name,
				Description: tool.Function.Description,
				Strict:      tool.Function.Strict,
				Parameters:  params,
			},
		}
	}
	return out
}

func convertResponseFormat(rf *llm.ResponseFormat) (*openai.ChatCompletionResponseFormat, error) {
	if rf == nil {
		return nil, nil
	}
	switch rf.Type {
	case llm.FormatJSONObject:
		return &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject}, nil
	case llm.FormatJSONSchema:
		raw, err := json.Marshal(rf.Schema)
		if err != nil {
			return nil, err
		}
		name := rf.Name
		if name == "" {
			name = "output"
		}
		return &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:        name,
				Description: rf.Description,
				Schema:      json.RawMessage(raw),
				Strict:      rf.Strict,
			},
		}, nil
	case llm.FormatText, "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported response format %q", rf.Type)
	}
}

func (c *Client) convertResponse(resp openai.ChatCompletionResponse, model string) (*llm.Response, error) {
	if len(resp.Choices) == 0 {
		return nil, llm.NewLLMError(c.config.Provider, llm.ErrorTypeUnknown, "no choices returned")
	}
	choice := resp.Choices[0]

	var toolCalls []llm.ToolCall
	for _, tc := range choice.Message.ToolCalls {
		toolCalls = append(toolCalls, llm.ToolCall{
			ID:   tc.ID,
			Type: string(tc.Type),
			Function: llm.Function{
				Name:      tc.Function.Name,
				Arguments: tc.Function.Arguments,
			},
		})
	}

	var usage *llm.Usage
	if resp.Usage.TotalTokens > 0 {
		usage = &llm.Usage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
			TotalTokens:  resp.Usage.TotalTokens,
			Cost:         llm.EstimateCost(model, resp.Usage.PromptTokens, resp.Usage.CompletionTokens),
		}
	}

	if resp.Model != "" {
		model = resp.Model
	}
	return &llm.Response{
		Content:      choice.Message.Content,
		Refusal:      choice.Message.Refusal,
		Role:         llm.RoleAssistant,
		Model:        model,
		Provider:     c.config.Provider,
		Usage:        usage,
		FinishReason: string(choice.FinishReason),
		ToolCalls:    toolCalls,
		Meta: map[string]string{
			"id":      resp.ID,
			"created": strconv.FormatInt(resp.Created, 10),
		},
	}, nil
}

// Completion implements llm.Client
func (c *Client) Completion(ctx context.Context, prompt string) (*llm.Response, error) {
	return c.Chat(ctx, &llm.ChatRequest{
		Messages: []llm.Message{{Role: llm.RoleUser, Content: prompt}},
	})
}

// convertError maps SDK errors onto llm.LLMError
func (c *Client) convertError(err error, model string) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		llmErr := llm.ParseHTTPError(c.config.Provider, apiErr.HTTPStatusCode, apiErr.Message)
		if code, ok := apiErr.Code.(string); ok {
			llmErr.Code = code
		}
		llmErr.Model = model
		llmErr.Cause = err
		return llmErr
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		llmErr := llm.ParseHTTPError(c.config.Provider, reqErr.HTTPStatusCode, string(reqErr.Body))
		llmErr.Model = model
		llmErr.Cause = err
		return llmErr
	}
	return llm.ClassifyError(c.config.Provider, err)
}

// Model implements llm.Client
func (c *Client) Model() string {
	return c.config.Model
}

// Provider implements llm.Client
func (c *Client) Provider() llm.Provider {
	return c.config.Provider
}

// Validate implements llm.Client
func (c *Client) Validate() error {
	return validateConfig(c.config)
}

var _ llm.Client = (*Client)(nil)
