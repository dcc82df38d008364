// Package config provides configuration loading for stafflined.
package config

import (
	"fmt"
	"time"
)

// Config is the full daemon configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	LLM      LLMConfig      `koanf:"llm"`
	Pipeline PipelineConfig `koanf:"pipeline"`
	Store    StoreConfig    `koanf:"store"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string   `koanf:"host"`
	Port            int      `koanf:"port"`
	ShutdownTimeout Duration `koanf:"shutdown_timeout"`
}

// LLMConfig holds model provider settings. APIKey is required at startup;
// a missing credential is a fatal configuration error, not a per-request one.
type LLMConfig struct {
	Provider   string   `koanf:"provider"`
	APIKey     Secret   `koanf:"api_key"`
	BaseURL    string   `koanf:"base_url"`
	Model      string   `koanf:"model"`
	MaxTokens  int      `koanf:"max_tokens"`
	Timeout    Duration `koanf:"timeout"`
	MaxRetries int      `koanf:"max_retries"`
}

// PipelineConfig holds plan generation settings.
type PipelineConfig struct {
	RepairAttempts int     `koanf:"repair_attempts"`
	HoursPerFTE    float64 `koanf:"hours_per_fte"`
}

// StoreConfig holds persistence settings.
type StoreConfig struct {
	Path string `koanf:"path"`
}

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// Validate checks the configuration for fatal misconfigurations.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}

	switch c.LLM.Provider {
	case "anthropic", "openai":
	default:
		return fmt.Errorf("llm.provider must be anthropic or openai, got %q", c.LLM.Provider)
	}
	if !c.LLM.APIKey.IsSet() {
		return fmt.Errorf("llm.api_key is required (set LLM_API_KEY)")
	}

	if c.Pipeline.RepairAttempts < 0 {
		return fmt.Errorf("pipeline.repair_attempts cannot be negative")
	}
	if c.Pipeline.HoursPerFTE < 0 {
		return fmt.Errorf("pipeline.hours_per_fte cannot be negative")
	}

	if c.Store.Path == "" {
		return fmt.Errorf("store.path is required")
	}

	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format)
	}

	return nil
}

// applyDefaults sets default values for missing configuration fields.
func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = Duration(10 * time.Second)
	}

	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = "anthropic"
	}
	if cfg.LLM.Timeout == 0 {
		cfg.LLM.Timeout = Duration(180 * time.Second)
	}
	if cfg.LLM.MaxRetries == 0 {
		cfg.LLM.MaxRetries = 3
	}

	if cfg.Pipeline.RepairAttempts == 0 {
		cfg.Pipeline.RepairAttempts = 2
	}
	if cfg.Pipeline.HoursPerFTE == 0 {
		cfg.Pipeline.HoursPerFTE = 1880
	}

	if cfg.Store.Path == "" {
		cfg.Store.Path = defaultStorePath()
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}
