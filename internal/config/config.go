// Package config loads admuse configuration from YAML with environment
// variable overrides for secrets and endpoints.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all admuse configuration.
type Config struct {
	// Core settings
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// Text-generation collaborator (Gemini)
	LLM LLMConfig `yaml:"llm"`

	// Portrait-generation collaborator
	Portraits PortraitConfig `yaml:"portraits"`

	// Style-lookup collaborator
	Styles StyleConfig `yaml:"styles"`

	// Batch orchestration
	Batch BatchConfig `yaml:"batch"`

	// Persistent mirror storage
	Storage StorageConfig `yaml:"storage"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// LLMConfig configures the text-generation collaborator.
type LLMConfig struct {
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	Timeout string `yaml:"timeout"`
}

// PortraitConfig configures the portrait-generation collaborator and the
// per-slot retry policy.
type PortraitConfig struct {
	BaseURL        string `yaml:"base_url"`
	Resolution     string `yaml:"resolution"`
	RetryBudget    int    `yaml:"retry_budget"`    // automatic retries per slot
	RetryDelay     string `yaml:"retry_delay"`     // fixed inter-retry delay
	AttemptTimeout string `yaml:"attempt_timeout"` // hard per-attempt timeout
}

// StyleConfig configures the approved-style lookup collaborator.
type StyleConfig struct {
	BaseURL string `yaml:"base_url"`
	Timeout string `yaml:"timeout"`
}

// BatchConfig configures batch orchestration.
type BatchConfig struct {
	Concurrency  int `yaml:"concurrency"`   // bounded worker pool size
	PersonaCount int `yaml:"persona_count"` // default visible window (1..5)
}

// StorageConfig configures the persistent mirror.
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
	Namespace    string `yaml:"namespace"`
}

// LoggingConfig configures categorized debug logging.
type LoggingConfig struct {
	DebugMode  bool            `yaml:"debug_mode"`
	Categories map[string]bool `yaml:"categories"`
	Level      string          `yaml:"level"` // debug, info, warn, error
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "admuse",
		Version: "0.3.0",

		LLM: LLMConfig{
			Model:   "gemini-2.0-flash",
			Timeout: "60s",
		},

		Portraits: PortraitConfig{
			BaseURL:        "http://localhost:8090",
			Resolution:     "1024x1024",
			RetryBudget:    3,
			RetryDelay:     "2s",
			AttemptTimeout: "15s",
		},

		Styles: StyleConfig{
			BaseURL: "http://localhost:8090",
			Timeout: "30s",
		},

		Batch: BatchConfig{
			Concurrency:  4,
			PersonaCount: 5,
		},

		Storage: StorageConfig{
			DatabasePath: ".admuse/admuse.db",
			Namespace:    "default",
		},

		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults; environment overrides are applied in both cases.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.LLM.APIKey = key
	}
	if key := os.Getenv("ADMUSE_API_KEY"); key != "" {
		c.LLM.APIKey = key
	}
	if url := os.Getenv("ADMUSE_PORTRAIT_URL"); url != "" {
		c.Portraits.BaseURL = url
	}
	if url := os.Getenv("ADMUSE_STYLE_URL"); url != "" {
		c.Styles.BaseURL = url
	}
	if path := os.Getenv("ADMUSE_DB"); path != "" {
		c.Storage.DatabasePath = path
	}
}

// ParseDuration parses a duration string, falling back when empty or invalid.
func ParseDuration(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
