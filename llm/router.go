package llm

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrNoRoute is returned when no client can serve a request's model.
var ErrNoRoute = errors.New("no client configured for model")

// RoutePolicy decides which client serves a given request
type RoutePolicy interface {
	Select(req *ChatRequest) (Client, error)
}

// PrefixPolicy routes by the longest matching model-name prefix, falling
// back to Default. A team mixing OpenAI, Gemini and Claude agents registers
// one client per prefix.
type PrefixPolicy struct {
	Default  Client
	ByPrefix map[string]Client
}

func (p PrefixPolicy) Select(req *ChatRequest) (Client, error) {
	model := ""
	if req != nil {
		model = req.Model
	}
	if model != "" {
		prefixes := make([]string, 0, len(p.ByPrefix))
		for prefix := range p.ByPrefix {
			prefixes = append(prefixes, prefix)
		}
		sort.Slice(prefixes, func(i, j int) bool { return len(prefixes[i]) > len(prefixes[j]) })
		for _, prefix := range prefixes {
			if strings.HasPrefix(model, prefix) && p.ByPrefix[prefix] != nil {
				return p.ByPrefix[prefix], nil
			}
		}
	}
	if p.Default == nil {
		return nil, fmt.Errorf("%w %q", ErrNoRoute, model)
	}
	return p.Default, nil
}

// ProviderPolicy routes by the provider inferred from the model name.
type ProviderPolicy map[Provider]Client

func (p ProviderPolicy) Select(req *ChatRequest) (Client, error) {
	model := DefaultModel
	if req != nil && req.Model != "" {
		model = req.Model
	}
	if c, ok := p[ProviderForModel(model)]; ok && c != nil {
		return c, nil
	}
	return nil, fmt.Errorf("%w %q", ErrNoRoute, model)
}

// RouterClient implements Client and delegates to inner clients via RoutePolicy
type RouterClient struct {
	policy RoutePolicy
}

func NewRouterClient(policy RoutePolicy) *RouterClient { return &RouterClient{policy: policy} }

func (r *RouterClient) Chat(ctx context.Context, req *ChatRequest) (*Response, error) {
	c, err := r.policy.Select(req)
	if err != nil {
		return nil, err
	}
	return c.Chat(ctx, req)
}

func (r *RouterClient) Completion(ctx context.Context, prompt string) (*Response, error) {
	return r.Chat(ctx, &ChatRequest{Messages: []Message{{Role: RoleUser, Content: prompt}}})
}

func (r *RouterClient) Model() string      { return "router" }
func (r *RouterClient) Provider() Provider { return Provider("router") }
func (r *RouterClient) Validate() error {
	if r.policy == nil {
		return errors.New("nil route policy")
	}
	return nil
}
