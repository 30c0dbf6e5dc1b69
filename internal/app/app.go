// Package app wires configuration into model clients, state backends and a
// team of agents.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/JovanVeljanoski/ateam/internal/config"
	"github.com/JovanVeljanoski/ateam/llm"
	"github.com/JovanVeljanoski/ateam/llm/anthropic"
	"github.com/JovanVeljanoski/ateam/llm/openai"
	"github.com/JovanVeljanoski/ateam/state"
	pgstate "github.com/JovanVeljanoski/ateam/state/postgres"
	redisstate "github.com/JovanVeljanoski/ateam/state/redis"
	"github.com/JovanVeljanoski/ateam/team"
	"github.com/jackc/pgx/v5/pgxpool"
	rds "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// App holds everything a command needs to run agents.
type App struct {
	Config *config.Config
	Client llm.Client
	Team   *team.Team

	closers []func()
}

// New builds the model router, state backend and team described by cfg.
func New(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*App, error) {
	client, err := NewClient(cfg)
	if err != nil {
		return nil, err
	}
	a := &App{Config: cfg, Client: client}

	factory, err := a.stateFactory(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	tm, err := team.Build(cfg.Agents, team.Deps{
		Client: client,
		State:  factory,
		Logger: &logger,
	})
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Team = tm
	logger.Info().
		Int("agents", tm.Len()).
		Str("state_backend", cfg.StateBackend).
		Msg("team ready")
	return a, nil
}

// NewClient returns an instrumented router over every provider that has an
// API key.
func NewClient(cfg *config.Config) (llm.Client, error) {
	policy, err := newPolicy(cfg)
	if err != nil {
		return nil, err
	}
	return llm.NewInstrumentedClient(llm.NewRouterClient(policy)), nil
}

// newPolicy routes each request to the provider inferred from its model
// name ("gemini-" to Gemini, "claude" to Anthropic, the rest to OpenAI).
// Prefixes in cfg.ModelRoutes override the inference.
func newPolicy(cfg *config.Config) (llm.RoutePolicy, error) {
	timeout := config.Duration(cfg.ModelTimeout)
	providers := llm.ProviderPolicy{}

	if cfg.OpenAIAPIKey != "" {
		c, err := openai.NewClient(openai.Config{APIKey: cfg.OpenAIAPIKey, BaseURL: cfg.OpenAIBaseURL, Timeout: timeout})
		if err != nil {
			return nil, fmt.Errorf("openai: %w", err)
		}
		providers[llm.ProviderOpenAI] = c
	}
	if cfg.GeminiAPIKey != "" {
		c, err := openai.NewClient(openai.Config{
			APIKey:   cfg.GeminiAPIKey,
			Model:    llm.ModelGemini20Flash,
			BaseURL:  llm.GeminiBaseURL,
			Provider: llm.ProviderGemini,
			Timeout:  timeout,
		})
		if err != nil {
			return nil, fmt.Errorf("gemini: %w", err)
		}
		providers[llm.ProviderGemini] = c
	}
	if cfg.AnthropicAPIKey != "" {
		c, err := anthropic.NewClient(anthropic.Config{APIKey: cfg.AnthropicAPIKey, Timeout: timeout})
		if err != nil {
			return nil, fmt.Errorf("anthropic: %w", err)
		}
		providers[llm.ProviderAnthropic] = c
	}
	if len(providers) == 0 {
		return nil, errors.New("no provider API key configured (set OPENAI_API_KEY, GEMINI_API_KEY or ANTHROPIC_API_KEY)")
	}
	if len(cfg.ModelRoutes) == 0 {
		return providers, nil
	}

	prefixes := llm.PrefixPolicy{
		Default:  llm.NewRouterClient(providers),
		ByPrefix: make(map[string]llm.Client, len(cfg.ModelRoutes)),
	}
	for prefix, provider := range cfg.ModelRoutes {
		c, ok := providers[llm.Provider(provider)]
		if !ok {
			return nil, fmt.Errorf("model route %q: no API key for provider %s", prefix, provider)
		}
		prefixes.ByPrefix[prefix] = c
	}
	return prefixes, nil
}

func (a *App) stateFactory(ctx context.Context, cfg *config.Config) (func(string) (state.Backend, error), error) {
	switch cfg.StateBackend {
	case "", "memory":
		return nil, nil
	case "redis":
		client := rds.NewClient(&rds.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		a.closers = append(a.closers, func() { _ = client.Close() })
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("redis %s: %w", cfg.RedisAddr, err)
		}
		base := redisstate.NewStore(client, config.Duration(cfg.StateTTL), cfg.StatePrefix)
		return func(name string) (state.Backend, error) { return base.Namespace(name), nil }, nil
	case "postgres":
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("postgres: %w", err)
		}
		a.closers = append(a.closers, pool.Close)
		store, err := pgstate.New(pool, cfg.StateTable, "")
		if err != nil {
			return nil, err
		}
		if err := store.EnsureSchema(ctx); err != nil {
			return nil, fmt.Errorf("postgres: ensure schema: %w", err)
		}
		return func(name string) (state.Backend, error) { return store.Namespace(name), nil }, nil
	default:
		return nil, fmt.Errorf("unknown state backend %q", cfg.StateBackend)
	}
}

// Close releases backend connections.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
