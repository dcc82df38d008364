package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("writing config file: %v", err)
	}
	return path
}

// TestLoadDefaults tests that a missing file plus only the required env var
// yields the documented defaults.
func TestLoadDefaults(t *testing.T) {
	t.Setenv("LLM_API_KEY", "sk-ant-test")

	cfg, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Host != "localhost" || cfg.Server.Port != 8080 {
		t.Errorf("server defaults = %s:%d, want localhost:8080", cfg.Server.Host, cfg.Server.Port)
	}
	if cfg.Server.ShutdownTimeout.Duration() != 10*time.Second {
		t.Errorf("shutdown timeout = %v, want 10s", cfg.Server.ShutdownTimeout.Duration())
	}
	if cfg.LLM.Provider != "anthropic" {
		t.Errorf("provider = %q, want anthropic", cfg.LLM.Provider)
	}
	if cfg.LLM.Timeout.Duration() != 180*time.Second {
		t.Errorf("llm timeout = %v, want 180s", cfg.LLM.Timeout.Duration())
	}
	if cfg.Pipeline.RepairAttempts != 2 {
		t.Errorf("repair attempts = %d, want 2", cfg.Pipeline.RepairAttempts)
	}
	if cfg.Pipeline.HoursPerFTE != 1880 {
		t.Errorf("hours per FTE = %v, want 1880", cfg.Pipeline.HoursPerFTE)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "json" {
		t.Errorf("logging defaults = %s/%s, want info/json", cfg.Logging.Level, cfg.Logging.Format)
	}
	if cfg.Store.Path == "" {
		t.Error("store path default is empty")
	}
}

// TestLoadFromFile tests YAML values overriding defaults.
func TestLoadFromFile(t *testing.T) {
	t.Setenv("LLM_API_KEY", "sk-ant-test")

	path := writeConfigFile(t, `server:
  host: 0.0.0.0
  port: 9090
  shutdown_timeout: 30s

llm:
  provider: openai
  model: gpt-4o

pipeline:
  repair_attempts: 3
  hours_per_fte: 2080
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Host != "0.0.0.0" || cfg.Server.Port != 9090 {
		t.Errorf("server = %s:%d, want 0.0.0.0:9090", cfg.Server.Host, cfg.Server.Port)
	}
	if cfg.Server.ShutdownTimeout.Duration() != 30*time.Second {
		t.Errorf("shutdown timeout = %v, want 30s", cfg.Server.ShutdownTimeout.Duration())
	}
	if cfg.LLM.Provider != "openai" || cfg.LLM.Model != "gpt-4o" {
		t.Errorf("llm = %s/%s, want openai/gpt-4o", cfg.LLM.Provider, cfg.LLM.Model)
	}
	if cfg.Pipeline.HoursPerFTE != 2080 {
		t.Errorf("hours per FTE = %v, want 2080", cfg.Pipeline.HoursPerFTE)
	}
}

// TestLoadEnvOverridesFile tests environment precedence over the file.
func TestLoadEnvOverridesFile(t *testing.T) {
	t.Setenv("LLM_API_KEY", "sk-ant-test")
	t.Setenv("SERVER_PORT", "7070")

	path := writeConfigFile(t, `server:
  port: 9090
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 7070 {
		t.Errorf("server.port = %d, want env override 7070", cfg.Server.Port)
	}
}

// TestLoadMissingAPIKey tests that a missing credential is fatal.
func TestLoadMissingAPIKey(t *testing.T) {
	t.Setenv("LLM_API_KEY", "")

	_, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	if err == nil {
		t.Fatal("Load() error = nil, want missing api key error")
	}
	if !strings.Contains(err.Error(), "api_key") {
		t.Errorf("Load() error = %v, want api_key mention", err)
	}
}

// TestLoadInsecurePermissions tests rejection of world-readable config files.
func TestLoadInsecurePermissions(t *testing.T) {
	t.Setenv("LLM_API_KEY", "sk-ant-test")

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: 9090\n"), 0644); err != nil {
		t.Fatalf("writing config file: %v", err)
	}

	_, err := Load(path)
	if err == nil {
		t.Fatal("Load() error = nil, want permissions error")
	}
	if !strings.Contains(err.Error(), "permissions") {
		t.Errorf("Load() error = %v, want permissions mention", err)
	}
}

// TestValidate tests field-level validation failures.
func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := &Config{}
		applyDefaults(cfg)
		cfg.LLM.APIKey = "sk-test"
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"valid", func(c *Config) {}, ""},
		{"bad port", func(c *Config) { c.Server.Port = 70000 }, "server.port"},
		{"bad provider", func(c *Config) { c.LLM.Provider = "bedrock" }, "llm.provider"},
		{"missing key", func(c *Config) { c.LLM.APIKey = "" }, "api_key"},
		{"negative repair attempts", func(c *Config) { c.Pipeline.RepairAttempts = -1 }, "repair_attempts"},
		{"empty store path", func(c *Config) { c.Store.Path = "" }, "store.path"},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.want == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Validate() error = %v, want mention of %q", err, tt.want)
			}
		})
	}
}

// TestSecretRedaction tests that secrets never leak through formatting.
func TestSecretRedaction(t *testing.T) {
	s := Secret("sk-ant-supersecret")

	if got := s.String(); strings.Contains(got, "supersecret") {
		t.Errorf("String() leaked the secret: %q", got)
	}
	if got := s.GoString(); strings.Contains(got, "supersecret") {
		t.Errorf("GoString() leaked the secret: %q", got)
	}
	if data, _ := s.MarshalJSON(); strings.Contains(string(data), "supersecret") {
		t.Errorf("MarshalJSON() leaked the secret: %s", data)
	}
	if s.Value() != "sk-ant-supersecret" {
		t.Errorf("Value() = %q, want the raw secret", s.Value())
	}
	if !s.IsSet() || Secret("").IsSet() {
		t.Error("IsSet() wrong for set/empty secrets")
	}
}

// TestDuration tests text round trips and negative rejection.
func TestDuration(t *testing.T) {
	var d Duration
	if err := d.UnmarshalText([]byte("90s")); err != nil {
		t.Fatalf("UnmarshalText(90s) error = %v", err)
	}
	if d.Duration() != 90*time.Second {
		t.Errorf("Duration() = %v, want 90s", d.Duration())
	}

	if err := d.UnmarshalText([]byte("-5s")); err == nil {
		t.Error("UnmarshalText(-5s) error = nil, want negative rejection")
	}
	if err := d.UnmarshalText([]byte("bogus")); err == nil {
		t.Error("UnmarshalText(bogus) error = nil, want parse error")
	}
}
