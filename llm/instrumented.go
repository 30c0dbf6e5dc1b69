package llm

import (
	"context"
	"time"

	"github.com/JovanVeljanoski/ateam/observability"
)

// InstrumentedClient wraps a Client with a span per call and token/latency
// metrics on the global observability implementations.
type InstrumentedClient struct {
	inner Client
}

func NewInstrumentedClient(inner Client) *InstrumentedClient {
	return &InstrumentedClient{inner: inner}
}

func (c *InstrumentedClient) Chat(ctx context.Context, req *ChatRequest) (*Response, error) {
	span, ctx := observability.TracerImpl.StartSpan(ctx, "llm.chat")
	defer span.End()

	model := c.inner.Model()
	if req != nil && req.Model != "" {
		model = req.Model
	}
	labels := map[string]string{"provider": string(c.inner.Provider()), "model": model}
	span.SetAttribute(observability.AttrProvider, labels["provider"])
	span.SetAttribute(observability.AttrModel, model)

	start := time.Now()
	resp, err := c.inner.Chat(ctx, req)
	observability.MetricsImpl.RecordLatency(time.Since(start), labels)
	observability.MetricsImpl.IncrementRequests(labels)
	if err != nil {
		errType := string(ErrorTypeUnknown)
		if llmErr, ok := IsLLMError(err); ok {
			errType = string(llmErr.Type)
		}
		observability.MetricsImpl.RecordError(errType, labels)
		span.SetStatus(observability.StatusCodeError, err.Error())
		return nil, err
	}

	span.SetAttribute(observability.AttrFinishReason, resp.FinishReason)
	if resp.Usage != nil {
		span.SetAttribute(observability.AttrTokensInput, resp.Usage.InputTokens)
		span.SetAttribute(observability.AttrTokensOutput, resp.Usage.OutputTokens)
		observability.MetricsImpl.IncrementTokensUsed(resp.Usage.InputTokens, map[string]string{"direction": "input", "model": model})
		observability.MetricsImpl.IncrementTokensUsed(resp.Usage.OutputTokens, map[string]string{"direction": "output", "model": model})
	}
	span.SetStatus(observability.StatusCodeOk, "")
	return resp, nil
}

func (c *InstrumentedClient) Completion(ctx context.Context, prompt string) (*Response, error) {
	return c.Chat(ctx, &ChatRequest{Messages: []Message{{Role: RoleUser, Content: prompt}}})
}

func (c *InstrumentedClient) Model() string      { return c.inner.Model() }
func (c *InstrumentedClient) Provider() Provider { return c.inner.Provider() }
func (c *InstrumentedClient) Validate() error    { return c.inner.Validate() }
