package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/JovanVeljanoski/ateam/llm"
	"github.com/liushuangls/go-anthropic/v2"
)

// Client implements llm.Client for Anthropic Claude
type Client struct {
	client *anthropic.Client
	config Config
}

// Config holds Anthropic-specific configuration
type Config struct {
	APIKey    string        `json:"api_key"`
	Model     string        `json:"model"`
	BaseURL   string        `json:"base_url,omitempty"`
	MaxTokens int           `json:"max_tokens,omitempty"`
	Timeout   time.Duration `json:"timeout,omitempty"`
}

const defaultMaxTokens = 4096

// NewClient creates a new Anthropic client. An empty APIKey falls back to
// ANTHROPIC_API_KEY.
func NewClient(config Config) (*Client, error) {
	if config.APIKey == "" {
		config.APIKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if config.Model == "" {
		config.Model = llm.ModelClaude35Haiku
	}
	if config.MaxTokens == 0 {
		config.MaxTokens = defaultMaxTokens
	}
	if config.Timeout == 0 {
		config.Timeout = 120 * time.Second
	}
	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	opts := []anthropic.ClientOption{
		anthropic.WithHTTPClient(&http.Client{Timeout: config.Timeout}),
	}
	if config.BaseURL != "" {
		opts = append(opts, anthropic.WithBaseURL(config.BaseURL))
	}

	return &Client{
		client: anthropic.NewClient(config.APIKey, opts...),
		config: config,
	}, nil
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
	if req == nil {
		return nil, llm.NewLLMError(llm.ProviderAnthropic, llm.ErrorTypeInvalidRequest, "nil request")
	}
	start := time.Now()
	anthReq := c.buildRequest(req)

	resp, err := c.client.CreateMessages(ctx, anthReq)
	if err != nil {
		return nil, c.convertError(err, string(anthReq.Model))
	}

	out := convertResponse(resp, string(anthReq.Model))
	out.Latency = time.Since(start)
	out.Timestamp = start
	return out, nil
}

func (c *Client) buildRequest(req *llm.ChatRequest) anthropic.MessagesRequest {
	model := c.config.Model
	if req.Model != "" {
		model = req.Model
	}
	system, messages := convertMessages(req.SystemPrompt, req.Messages)
	if req.ResponseFormat.Structured() {
		system = appendSchemaInstruction(system, req.ResponseFormat)
	}

	anthReq := anthropic.MessagesRequest{
		Model:         anthropic.Model(model),
		Messages:      messages,
		System:        system,
		MaxTokens:     c.config.MaxTokens,
		StopSequences: req.Stop,
	}
	if req.MaxTokens != nil {
		anthReq.MaxTokens = *req.MaxTokens
	}
	if req.Temperature != nil {
		// Anthropic caps temperature at 1.
		t := float32(min(*req.Temperature, 1))
		anthReq.Temperature = &t
	}
	if req.TopP != nil {
		p := float32(*req.TopP)
		anthReq.TopP = &p
	}
	if len(req.Tools) > 0 && req.ToolChoice != "none" {
		anthReq.Tools = convertTools(req.Tools)
		choice := "auto"
		if req.ToolChoice == "required" {
			choice = "any"
		}
		anthReq.ToolChoice = &anthropic.ToolChoice{Type: choice}
	}
	return anthReq
}

// convertMessages folds system messages into the system prompt and groups
// consecutive tool results into one user turn, which the Messages API requires.
func convertMessages(systemPrompt string, msgs []llm.Message) (string, []anthropic.Message) {
	system := systemPrompt
	out := make([]anthropic.Message, 0, len(msgs))
	for _, msg := range msgs {
		switch msg.Role {
		case llm.RoleSystem:
			if system != "" {
				system += "\n\n"
			}
			system += msg.Content
		case llm.RoleAssistant:
			var content []anthropic.MessageContent
			if msg.Content != "" {
				content = append(content, anthropic.NewTextMessageContent(msg.Content))
			}
			for _, tc := range msg.ToolCalls {
				input := json.RawMessage(tc.Function.Arguments)
				if len(input) == 0 || !json.Valid(input) {
					input = json.RawMessage("{}")
				}
				content = append(content, anthropic.MessageContent{
					Type: anthropic.MessagesContentTypeToolUse,
					MessageContentToolUse: &anthropic.MessageContentToolUse{
						ID:    tc.ID,
						Name:  tc.Function.Name,
						Input: input,
					},
				})
			}
			out = append(out, anthropic.Message{Role: anthropic.RoleAssistant, Content: content})
		case llm.RoleTool:
			isError := strings.HasPrefix(msg.Content, "error:")
			block := anthropic.NewToolResultMessageContent(msg.ToolCallID, msg.Content, isError)
			if n := len(out); n > 0 && out[n-1].Role == anthropic.RoleUser && isToolResultTurn(out[n-1]) {
				out[n-1].Content = append(out[n-1].Content, block)
				continue
			}
			out = append(out, anthropic.Message{Role: anthropic.RoleUser, Content: []anthropic.MessageContent{block}})
		default:
			out = append(out, anthropic.Message{
				Role:    anthropic.RoleUser,
				Content: []anthropic.MessageContent{anthropic.NewTextMessageContent(msg.Content)},
			})
		}
	}
	return system, out
}

func isToolResultTurn(m anthropic.Message) bool {
	for _, c := range m.Content {
		if c.Type != anthropic.MessagesContentTypeToolResult {
			return false
		}
	}
	return len(m.Content) > 0
}

func convertTools(tools []llm.Tool) []anthropic.ToolDefinition {
	out := make([]anthropic.ToolDefinition, len(tools))
	for i, tool := range tools {
		schema := tool.Function.Parameters
		if schema == nil {
			schema = map[string]any{"type": "object", "properties": map[string]any{}}
		}
		out[i] = anthropic.ToolDefinition{
			Name:        tool.Function.Name,
			Description: tool.Function.Description,
			InputSchema: schema,
		}
	}
	return out
}

func appendSchemaInstruction(system string, rf *llm.ResponseFormat) string {
	if system != "" {
		system += "\n\n"
	}
	system += "When you give your final answer, respond ONLY with a JSON object. Do not add any text outside the JSON."
	if len(rf.Schema) > 0 {
		if b, err := json.MarshalIndent(rf.Schema, "", "  "); err == nil {
			system += "\nThe JSON must match this schema:\n" + string(b)
		}
	}
	return system
}

func convertResponse(resp anthropic.MessagesResponse, model string) *llm.Response {
	var content strings.Builder
	var toolCalls []llm.ToolCall
	for _, block := range resp.Content {
		switch block.Type {
		case anthropic.MessagesContentTypeText:
			if block.Text != nil {
				content.WriteString(*block.Text)
			}
		case anthropic.MessagesContentTypeToolUse:
			if block.MessageContentToolUse == nil {
				continue
			}
			args := string(block.MessageContentToolUse.Input)
			if args == "" {
				args = "{}"
			}
			toolCalls = append(toolCalls, llm.ToolCall{
				ID:   block.MessageContentToolUse.ID,
				Type: "function",
				Function: llm.Function{
					Name:      block.MessageContentToolUse.Name,
					Arguments: args,
				},
			})
		}
	}

	var usage *llm.Usage
	if resp.Usage.InputTokens+resp.Usage.OutputTokens > 0 {
		usage = &llm.Usage{
			InputTokens:  resp.Usage.InputTokens,
			OutputTokens: resp.Usage.OutputTokens,
			TotalTokens:  resp.Usage.InputTokens + resp.Usage.OutputTokens,
			Cost:         llm.EstimateCost(model, resp.Usage.InputTokens, resp.Usage.OutputTokens),
		}
	}

	finish := string(resp.StopReason)
	if finish == "tool_use" {
		finish = "tool_calls"
	}
	return &llm.Response{
		Content:      content.String(),
		Role:         llm.RoleAssistant,
		Model:        model,
		Provider:     llm.ProviderAnthropic,
		Usage:        usage,
		FinishReason: finish,
		ToolCalls:    toolCalls,
		Meta: map[string]string{
			"id": resp.ID,
		},
	}
}

// Completion implements llm.Client
func (c *Client) Completion(ctx context.Context, prompt string) (*llm.Response, error) {
	return c.Chat(ctx, &llm.ChatRequest{
		Messages: []llm.Message{{Role: llm.RoleUser, Content: prompt}},
	})
}

var apiErrorTypes = map[string]llm.ErrorType{
	"invalid_request_error": llm.ErrorTypeInvalidRequest,
	"authentication_error":  llm.ErrorTypeAuthentication,
	"permission_error":      llm.ErrorTypePermission,
	"not_found_error":       llm.ErrorTypeNotFound,
	"rate_limit_error":      llm.ErrorTypeRateLimit,
	"api_error":             llm.ErrorTypeServerError,
	"overloaded_error":      llm.ErrorTypeServerError,
}

// convertError maps SDK errors onto llm.LLMError
func (c *Client) convertError(err error, model string) error {
	var apiErr *anthropic.APIError
	if errors.As(err, &apiErr) {
		errType, ok := apiErrorTypes[string(apiErr.Type)]
		if !ok {
			errType = llm.ErrorTypeUnknown
		}
		llmErr := llm.NewLLMErrorWithCause(llm.ProviderAnthropic, errType, apiErr.Message, err)
		llmErr.Code = string(apiErr.Type)
		llmErr.Model = model
		return llmErr
	}
	var reqErr *anthropic.RequestError
	if errors.As(err, &reqErr) {
		llmErr := llm.ParseHTTPError(llm.ProviderAnthropic, reqErr.StatusCode, string(reqErr.Body))
		llmErr.Model = model
		llmErr.Cause = err
		return llmErr
	}
	return llm.ClassifyError(llm.ProviderAnthropic, err)
}

// Model implements llm.Client
func (c *Client) Model() string {
	return c.config.Model
}

// Provider implements llm.Client
func (c *Client) Provider() llm.Provider {
	return llm.ProviderAnthropic
}

// Validate implements llm.Client
func (c *Client) Validate() error {
	return validateConfig(c.config)
}

var _ llm.Client = (*Client)(nil)
