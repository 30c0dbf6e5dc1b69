// Package config loads ateam settings from a JSON file and the environment.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/JovanVeljanoski/ateam/team"
	"github.com/go-playground/validator/v10"
)

type Config struct {
	// Server
	Addr      string `json:"addr"`
	LogLevel  string `json:"log_level" validate:"oneof=trace debug info warn error disabled"`
	LogFormat string `json:"log_format" validate:"oneof=console json"`

	// Providers
	OpenAIAPIKey    string `json:"openai_api_key"`
	OpenAIBaseURL   string `json:"openai_base_url"`
	GeminiAPIKey    string `json:"gemini_api_key"`
	AnthropicAPIKey string `json:"anthropic_api_key"`
	ModelTimeout    string `json:"model_timeout"`
	// ModelRoutes sends models with a given name prefix to a provider,
	// e.g. {"llama-": "openai"} for an OpenAI-compatible gateway.
	ModelRoutes map[string]string `json:"model_routes" validate:"dive,keys,required,endkeys,oneof=openai gemini anthropic"`

	// State
	StateBackend  string `json:"state_backend" validate:"oneof=memory redis postgres"`
	StatePrefix   string `json:"state_prefix"`
	StateTTL      string `json:"state_ttl"`
	RedisAddr     string `json:"redis_addr" validate:"required_if=StateBackend redis"`
	RedisPassword string `json:"redis_password"`
	RedisDB       int    `json:"redis_db"`
	DatabaseURL   string `json:"database_url" validate:"required_if=StateBackend postgres"`
	StateTable    string `json:"state_table"`

	// Team
	DefaultAgent string      `json:"default_agent"`
	Agents       []team.Spec `json:"agents" validate:"dive"`
}

// Load applies defaults, then the JSON file at path (or $ATEAM_CONFIG when
// path is empty), then environment overrides, and validates the result.
func Load(path string) (*Config, error) {
	cfg := &Config{
		Addr:         DefaultAddr,
		LogLevel:     DefaultLogLevel,
		LogFormat:    DefaultLogFormat,
		ModelTimeout: DefaultModelTimeout,
		StateBackend: DefaultStateBackend,
		StatePrefix:  DefaultStatePrefix,
		StateTable:   DefaultStateTable,
		RedisAddr:    DefaultRedisAddr,
	}

	if path == "" {
		path = os.Getenv("ATEAM_CONFIG")
	}
	if path != "" {
		if err := loadJSON(path, cfg); err != nil {
			return nil, err
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadJSON(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("ATEAM_ADDR"); v != "" {
		cfg.Addr = v
	}
	if v := os.Getenv("ATEAM_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("ATEAM_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.OpenAIAPIKey = v
	}
	if v := os.Getenv("OPENAI_BASE_URL"); v != "" {
		cfg.OpenAIBaseURL = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		cfg.GeminiAPIKey = v
	}
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		cfg.AnthropicAPIKey = v
	}
	if v := os.Getenv("ATEAM_STATE_BACKEND"); v != "" {
		cfg.StateBackend = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.RedisAddr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.RedisPassword = v
	}
	if v := os.Getenv("REDIS_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			cfg.RedisDB = db
		}
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints and cross-references between agents.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	for _, d := range []struct{ name, v string }{
		{"model_timeout", c.ModelTimeout},
		{"state_ttl", c.StateTTL},
	} {
		if d.v == "" {
			continue
		}
		if _, err := time.ParseDuration(d.v); err != nil {
			return fmt.Errorf("invalid config: %s: %w", d.name, err)
		}
	}
	if c.DefaultAgent != "" {
		if _, ok := c.Agent(c.DefaultAgent); !ok {
			return fmt.Errorf("invalid config: default_agent %q is not defined", c.DefaultAgent)
		}
	}
	return nil
}

// Agent returns the spec called name.
func (c *Config) Agent(name string) (team.Spec, bool) {
	for _, s := range c.Agents {
		if s.Name == name {
			return s, true
		}
	}
	return team.Spec{}, false
}

// Duration parses a duration field, returning zero when it is empty.
func Duration(v string) time.Duration {
	d, _ := time.ParseDuration(v)
	return d
}
