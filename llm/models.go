package llm

import (
	"fmt"
	"sort"
	"strings"
)

// Provider represents LLM providers
type Provider string

const (
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
	// ProviderGemini is served through Google's OpenAI-compatible endpoint.
	ProviderGemini Provider = "gemini"
)

// GeminiBaseURL is the OpenAI-compatible endpoint for Gemini models.
const GeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai/"

// DefaultModel is used by agents that do not name one.
const DefaultModel = ModelGPT41Nano

// Model represents an LLM model with its properties
type Model struct {
	Provider     Provider     `json:"provider"`
	Name         string       `json:"name"`
	DisplayName  string       `json:"display_name"`
	ContextSize  int          `json:"context_size"`
	InputCost    float64      `json:"input_cost"`  // USD per 1M input tokens
	OutputCost   float64      `json:"output_cost"` // USD per 1M output tokens
	Capabilities Capabilities `json:"capabilities"`
}

// Capabilities represents what a model can do
type Capabilities struct {
	ToolUse          bool `json:"tool_use"`
	StructuredOutput bool `json:"structured_output"`
	Reasoning        bool `json:"reasoning"`
	// ToolsWithSchema is false when a model rejects tools and a response
	// schema in the same request.
	ToolsWithSchema bool `json:"tools_with_schema"`
}

const (
	ModelGPT41Nano = "gpt-4.1-nano-2025-04-14"
	ModelGPT41Mini = "gpt-4.1-mini-2025-04-14"
	ModelGPT41     = "gpt-4.1-2025-04-14"
	ModelGPT4o     = "gpt-4o"
	ModelGPT4oMini = "gpt-4o-mini"
	ModelO3Mini    = "o3-mini"
	ModelO4Mini    = "o4-mini"

	ModelGemini20Flash = "gemini-2.0-flash"
	ModelGemini25Flash = "gemini-2.5-flash"

	ModelClaude35Haiku = "claude-3-5-haiku-20241022"
	ModelClaudeSonnet4 = "claude-sonnet-4-20250514"
)

var (
	openAIChat    = Capabilities{ToolUse: true, StructuredOutput: true, ToolsWithSchema: true}
	openAIReason  = Capabilities{ToolUse: true, StructuredOutput: true, ToolsWithSchema: true, Reasoning: true}
	geminiChat    = Capabilities{ToolUse: true, StructuredOutput: true}
	anthropicChat = Capabilities{ToolUse: true, StructuredOutput: true, ToolsWithSchema: true}
)

// AvailableModels is the catalogue used for cost estimates and capability
// checks. Models missing from it are still accepted.
var AvailableModels = map[string]Model{
	ModelGPT41Nano:     {ProviderOpenAI, ModelGPT41Nano, "GPT-4.1 nano", 1047576, 0.10, 0.40, openAIChat},
	ModelGPT41Mini:     {ProviderOpenAI, ModelGPT41Mini, "GPT-4.1 mini", 1047576, 0.40, 1.60, openAIChat},
	ModelGPT41:         {ProviderOpenAI, ModelGPT41, "GPT-4.1", 1047576, 2.00, 8.00, openAIChat},
	ModelGPT4o:         {ProviderOpenAI, ModelGPT4o, "GPT-4o", 128000, 2.50, 10.00, openAIChat},
	ModelGPT4oMini:     {ProviderOpenAI, ModelGPT4oMini, "GPT-4o mini", 128000, 0.15, 0.60, openAIChat},
	ModelO3Mini:        {ProviderOpenAI, ModelO3Mini, "o3-mini", 200000, 1.10, 4.40, openAIReason},
	ModelO4Mini:        {ProviderOpenAI, ModelO4Mini, "o4-mini", 200000, 1.10, 4.40, openAIReason},
	ModelGemini20Flash: {ProviderGemini, ModelGemini20Flash, "Gemini 2.0 Flash", 1048576, 0.10, 0.40, geminiChat},
	ModelGemini25Flash: {ProviderGemini, ModelGemini25Flash, "Gemini 2.5 Flash", 1048576, 0.30, 2.50, geminiChat},
	ModelClaude35Haiku: {ProviderAnthropic, ModelClaude35Haiku, "Claude 3.5 Haiku", 200000, 0.80, 4.00, anthropicChat},
	ModelClaudeSonnet4: {ProviderAnthropic, ModelClaudeSonnet4, "Claude Sonnet 4", 200000, 3.00, 15.00, anthropicChat},
}

// GetModel returns model metadata for a given model name
func GetModel(name string) (Model, error) {
	model, exists := AvailableModels[name]
	if !exists {
		return Model{}, fmt.Errorf("unknown model: %s", name)
	}
	return model, nil
}

// GetModelsByProvider returns all catalogued models for a provider, sorted by name
func GetModelsByProvider(provider Provider) []Model {
	var models []Model
	for _, model := range AvailableModels {
		if model.Provider == provider {
			models = append(models, model)
		}
	}
	sort.Slice(models, func(i, j int) bool { return models[i].Name < models[j].Name })
	return models
}

// IsReasoningModel reports whether name belongs to the OpenAI o-series.
// Those models take a reasoning effort and reject temperature and top_p.
func IsReasoningModel(name string) bool {
	return strings.HasPrefix(name, "o")
}

// IsGeminiModel reports whether name is a Gemini model.
func IsGeminiModel(name string) bool {
	return strings.HasPrefix(name, "gemini-")
}

// ProviderForModel infers the provider serving a model name.
func ProviderForModel(name string) Provider {
	if m, ok := AvailableModels[name]; ok {
		return m.Provider
	}
	switch {
	case IsGeminiModel(name):
		return ProviderGemini
	case strings.HasPrefix(name, "claude"):
		return ProviderAnthropic
	default:
		return ProviderOpenAI
	}
}

// SupportsToolsWithSchema reports whether a model accepts tools and a
// structured response format in one request.
func SupportsToolsWithSchema(name string) bool {
	if m, ok := AvailableModels[name]; ok {
		return m.Capabilities.ToolsWithSchema
	}
	return !IsGeminiModel(name)
}

// EstimateCost prices a call against the catalogue; unknown models cost 0.
func EstimateCost(name string, inputTokens, outputTokens int) float64 {
	m, ok := AvailableModels[name]
	if !ok {
		return 0
	}
	return m.EstimateCost(inputTokens, outputTokens)
}

// String returns a human-readable representation of the model
func (m Model) String() string {
	return fmt.Sprintf("%s (%s) - %s", m.DisplayName, m.Name, m.Provider)
}

// EstimateCost estimates the cost for given token counts
func (m Model) EstimateCost(inputTokens, outputTokens int) float64 {
	inputCost := (float64(inputTokens) / 1000000) * m.InputCost
	outputCost := (float64(outputTokens) / 1000000) * m.OutputCost
	return inputCost + outputCost
}
