// Package config loads agent configuration from a YAML file plus flat
// environment variables. Secrets such as API keys never live in the YAML
// file: they come from the environment, optionally seeded from a .env
// file and its .secret sidecar.
package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the full agent configuration.
type Config struct {
	Reasoner ReasonerConfig `yaml:"reasoner"`
	Agent    AgentConfig    `yaml:"agent"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ReasonerConfig selects and tunes the language model backend.
type ReasonerConfig struct {
	// Provider is one of openai, anthropic or mock.
	Provider    string  `yaml:"provider"`
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
}

// AgentConfig tunes the deliberation cycle.
type AgentConfig struct {
	// Goals seeds the desire registry at startup.
	Goals []string `yaml:"goals"`

	// Guidance is strategic advice injected into planning prompts.
	Guidance []string `yaml:"guidance"`

	// MaxStepAttempts is the per-step execution budget. Zero keeps the
	// default of three attempts.
	MaxStepAttempts int `yaml:"max_step_attempts"`

	// EnableHITL turns on human intervention for exhausted step failures.
	EnableHITL bool `yaml:"enable_hitl"`

	// TranscriptPath enables the markdown execution log when non-empty.
	TranscriptPath string `yaml:"transcript_path"`
}

// LoggingConfig tunes structured logging.
type LoggingConfig struct {
	// Level is one of debug, info, warn or error.
	Level string `yaml:"level"`

	// Format is text or json.
	Format string `yaml:"format"`
}

// Default returns the configuration used when no YAML file is given.
func Default() *Config {
	return &Config{
		Reasoner: ReasonerConfig{
			Provider:    "openai",
			Temperature: 0.7,
			MaxTokens:   4096,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// LoadEnv seeds the process environment from a .env file and its .secret
// sidecar. The file name comes from INTENTMESH_ENV, defaulting to .env.
// Missing files are not an error.
func LoadEnv() {
	envFile := os.Getenv("INTENTMESH_ENV")
	if envFile == "" {
		envFile = ".env"
	}
	_ = godotenv.Load(envFile)
	_ = godotenv.Load(envFile + ".secret")
}

// Load reads a YAML configuration file on top of the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the agent cannot run with.
func (c *Config) Validate() error {
	switch c.Reasoner.Provider {
	case "openai", "anthropic", "mock":
	default:
		return fmt.Errorf("unknown reasoner provider %q", c.Reasoner.Provider)
	}
	if c.Reasoner.Temperature < 0 || c.Reasoner.Temperature > 2 {
		return fmt.Errorf("temperature %v out of range [0, 2]", c.Reasoner.Temperature)
	}
	if c.Agent.MaxStepAttempts < 0 {
		return fmt.Errorf("max_step_attempts must not be negative")
	}
	return nil
}

// APIKey returns the provider's API key from the environment.
func (r ReasonerConfig) APIKey() string {
	switch r.Provider {
	case "anthropic":
		return os.Getenv("ANTHROPIC_API_KEY")
	case "mock":
		return ""
	default:
		return os.Getenv("OPENAI_API_KEY")
	}
}
