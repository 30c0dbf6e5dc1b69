package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	for _, k := range []string{"ATEAM_CONFIG", "ATEAM_ADDR", "ATEAM_LOG_LEVEL", "ATEAM_LOG_FORMAT", "OPENAI_API_KEY",
		"OPENAI_BASE_URL", "GEMINI_API_KEY", "ANTHROPIC_API_KEY", "ATEAM_STATE_BACKEND", "REDIS_ADDR",
		"REDIS_PASSWORD", "REDIS_DB", "DATABASE_URL"} {
		t.Setenv(k, "")
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "team.json")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != DefaultAddr || cfg.StateBackend != "memory" || cfg.LogLevel != "info" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if Duration(cfg.ModelTimeout) != 120*time.Second {
		t.Fatalf("model timeout = %s", cfg.ModelTimeout)
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `{
		"addr": ":9000",
		"default_agent": "captain",
		"agents": [
			{"name": "captain", "role": "Lead.", "tools": ["calculator"], "agents": ["scout"]},
			{"name": "scout", "description": "Finds things", "model": "gemini-2.0-flash"}
		]
	}`)
	t.Setenv("ATEAM_CONFIG", path)
	t.Setenv("ATEAM_ADDR", ":9100")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("REDIS_DB", "3")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":9100" || cfg.OpenAIAPIKey != "sk-test" || cfg.RedisDB != 3 {
		t.Fatalf("env overrides not applied: %+v", cfg)
	}
	if len(cfg.Agents) != 2 || cfg.Agents[0].Agents[0] != "scout" {
		t.Fatalf("agents not loaded: %+v", cfg.Agents)
	}
	if s, ok := cfg.Agent("scout"); !ok || s.Description != "Finds things" {
		t.Fatalf("Agent lookup failed: %+v", s)
	}
}

func TestLoadValidation(t *testing.T) {
	clearEnv(t)
	cases := map[string]string{
		"bad backend":        `{"state_backend": "etcd"}`,
		"postgres no dsn":    `{"state_backend": "postgres"}`,
		"bad level":          `{"log_level": "loud"}`,
		"bad ttl":            `{"state_ttl": "forever"}`,
		"unknown default":    `{"default_agent": "ghost"}`,
		"agent without name": `{"agents": [{"role": "x"}]}`,
		"bad model route":    `{"model_routes": {"llama-": "mistral"}}`,
		"empty route prefix": `{"model_routes": {"": "openai"}}`,
		"malformed":          `{`,
	}
	for name, body := range cases {
		if _, err := Load(writeConfig(t, body)); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Errorf("expected error for missing file")
	}
}
