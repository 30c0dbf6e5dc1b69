package llm

import (
	"math"
	"testing"
)

func TestGetModel(t *testing.T) {
	tests := []struct {
		name             string
		model            string
		expectedExists   bool
		expectedProvider Provider
	}{
		{"Default model", DefaultModel, true, ProviderOpenAI},
		{"Reasoning model", ModelO4Mini, true, ProviderOpenAI},
		{"Gemini", ModelGemini20Flash, true, ProviderGemini},
		{"Claude", ModelClaude35Haiku, true, ProviderAnthropic},
		{"Invalid Model", "invalid-model", false, ""},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			model, err := GetModel(test.model)
			exists := err == nil
			if exists != test.expectedExists {
				t.Fatalf("Expected exists=%v, got %v", test.expectedExists, exists)
			}
			if !exists {
				return
			}
			if model.Provider != test.expectedProvider {
				t.Errorf("Expected provider %s, got %s", test.expectedProvider, model.Provider)
			}
			if model.ContextSize <= 0 {
				t.Errorf("Model %s has invalid context size: %d", test.model, model.ContextSize)
			}
		})
	}
}

func TestModelFamilies(t *testing.T) {
	tests := []struct {
		model     string
		reasoning bool
		gemini    bool
		provider  Provider
	}{
		{"gpt-4.1-nano-2025-04-14", false, false, ProviderOpenAI},
		{"o3-mini", true, false, ProviderOpenAI},
		{"o1", true, false, ProviderOpenAI},
		{"gemini-1.5-pro", false, true, ProviderGemini},
		{"claude-3-opus-20240229", false, false, ProviderAnthropic},
		{"some-local-model", false, false, ProviderOpenAI},
	}
	for _, test := range tests {
		t.Run(test.model, func(t *testing.T) {
			if got := IsReasoningModel(test.model); got != test.reasoning {
				t.Errorf("IsReasoningModel=%v, want %v", got, test.reasoning)
			}
			if got := IsGeminiModel(test.model); got != test.gemini {
				t.Errorf("IsGeminiModel=%v, want %v", got, test.gemini)
			}
			if got := ProviderForModel(test.model); got != test.provider {
				t.Errorf("ProviderForModel=%s, want %s", got, test.provider)
			}
			if got := SupportsToolsWithSchema(test.model); got == test.gemini {
				t.Errorf("SupportsToolsWithSchema=%v for %s", got, test.model)
			}
		})
	}
}

func TestEstimateCost(t *testing.T) {
	got := EstimateCost(ModelGPT41Nano, 1000000, 1000000)
	if math.Abs(got-0.50) > 1e-9 {
		t.Errorf("Expected 0.50, got %f", got)
	}
	if EstimateCost("unknown", 10, 10) != 0 {
		t.Errorf("unknown models should cost 0")
	}
}

func TestGetModelsByProvider(t *testing.T) {
	models := GetModelsByProvider(ProviderAnthropic)
	if len(models) != 2 {
		t.Fatalf("Expected 2 anthropic models, got %d", len(models))
	}
	if models[0].Name > models[1].Name {
		t.Errorf("models not sorted: %v", models)
	}
}
