// Package config handles loading and validating the config.toml configuration file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/iyulab/phish-triage/internal/priority"
)

// Config is the top-level configuration.
type Config struct {
	Model    ModelConfig         `toml:"model"`
	Priority priority.Thresholds `toml:"priority"`
	Input    InputConfig         `toml:"input"`
	Output   OutputConfig        `toml:"output"`
	LLM      LLMConfig           `toml:"llm"`
	Alerts   AlertsConfig        `toml:"alerts"`
	Server   ServerConfig        `toml:"server"`
	Log      LogConfig           `toml:"log"`
}

// ModelConfig locates the classifier artifact.
type ModelConfig struct {
	Path    string `toml:"path"`
	Workers int    `toml:"workers"` // parallel scorers (0 = GOMAXPROCS)
}

// InputConfig describes URL input files.
type InputConfig struct {
	// URLColumn is the CSV header holding URLs. Plain text inputs ignore it.
	URLColumn string `toml:"url_column"`
}

// OutputConfig configures output behavior.
type OutputConfig struct {
	Dir         string `toml:"dir"`
	OpenBrowser bool   `toml:"open_browser"`
	Bundle      bool   `toml:"bundle"` // zip the run directory after a scan
}

// LLMConfig configures the optional narration collaborator.
type LLMConfig struct {
	Enabled  bool     `toml:"enabled"`
	Provider string   `toml:"provider"` // ollama | openai | anthropic | command
	Model    string   `toml:"model"`
	Endpoint string   `toml:"endpoint"`
	APIKey   string   `toml:"api_key"`
	Command  []string `toml:"command"` // argv for provider = "command", e.g. ["ollama", "run", "mistral"]
	Timeout  int      `toml:"timeout"` // seconds
	Fallback string   `toml:"fallback"`
}

// AlertsConfig describes the prioritized alert CSV consumed by `triage alerts`.
type AlertsConfig struct {
	Path              string `toml:"path"`
	ProbabilityColumn string `toml:"probability_column"`
	PriorityColumn    string `toml:"priority_column"`
	LabelColumn       string `toml:"label_column"`
}

// ServerConfig configures the local HTTP view.
type ServerConfig struct {
	Port int `toml:"port"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level   string `toml:"level"`
	File    string `toml:"file"`
	Console bool   `toml:"console"`
}

// Default returns the configuration used when no config file is present.
func Default() *Config {
	return &Config{
		Model:    ModelConfig{Path: "models/phishing.json"},
		Priority: priority.DefaultThresholds(),
		Input:    InputConfig{URLColumn: "url"},
		Output:   OutputConfig{Dir: "output"},
		LLM: LLMConfig{
			Provider: "ollama",
			Model:    "mistral",
			Timeout:  120,
			Fallback: "Narrative analysis unavailable.",
		},
		Alerts: AlertsConfig{
			ProbabilityColumn: "probability",
			PriorityColumn:    "priority",
			LabelColumn:       "label",
		},
		Server: ServerConfig{Port: 8743},
		Log:    LogConfig{Level: "info", Console: true},
	}
}

// Load reads a config.toml file and returns a validated Config.
func Load(path string) (*Config, error) {
	cfg := Default()

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("config file not found: %s\n  Create one with: cp config.example.toml config.toml", path)
		}
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	cfg.applyEnv()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault behaves like Load but falls back to Default when the file
// does not exist.
func LoadOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		cfg := Default()
		cfg.applyEnv()
		if err := cfg.validate(); err != nil {
			return nil, err
		}
		return cfg, nil
	}
	return Load(path)
}

// LoadDotEnv loads KEY=VALUE pairs from path into the environment without
// overriding variables that are already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// applyEnv applies environment variable overrides for deployment-specific values.
func (c *Config) applyEnv() {
	if v := os.Getenv("TRIAGE_MODEL_PATH"); v != "" {
		c.Model.Path = v
	}
	if v := os.Getenv("TRIAGE_LLM_PROVIDER"); v != "" {
		c.LLM.Provider = v
	}
	if v := os.Getenv("TRIAGE_LLM_ENDPOINT"); v != "" {
		c.LLM.Endpoint = v
	}
	if v := os.Getenv("TRIAGE_API_KEY"); v != "" {
		c.LLM.APIKey = v
	}
}

func (c *Config) validate() error {
	if err := c.Priority.Validate(); err != nil {
		return fmt.Errorf("priority: %w", err)
	}

	if c.Model.Workers < 0 {
		return fmt.Errorf("model.workers must be >= 0")
	}

	c.LLM.Provider = strings.ToLower(c.LLM.Provider)
	if c.LLM.Enabled {
		switch c.LLM.Provider {
		case "ollama":
			if c.LLM.Model == "" {
				return fmt.Errorf("llm.model is required for provider %q", c.LLM.Provider)
			}
		case "openai", "anthropic":
			if c.LLM.Model == "" {
				return fmt.Errorf("llm.model is required for provider %q", c.LLM.Provider)
			}
			if c.LLM.APIKey == "" {
				return fmt.Errorf("llm.api_key is required for provider %q", c.LLM.Provider)
			}
		case "command":
			if len(c.LLM.Command) == 0 {
				return fmt.Errorf("llm.command is required for provider %q", c.LLM.Provider)
			}
		case "":
			return fmt.Errorf("llm.provider is required (ollama, openai, anthropic, command)")
		default:
			return fmt.Errorf("unsupported llm.provider: %q", c.LLM.Provider)
		}
	}
	if c.LLM.Timeout <= 0 {
		c.LLM.Timeout = 120
	}

	if c.Input.URLColumn == "" {
		c.Input.URLColumn = "url"
	}
	if c.Output.Dir == "" {
		c.Output.Dir = "output"
	}
	if c.Alerts.ProbabilityColumn == "" {
		c.Alerts.ProbabilityColumn = "probability"
	}
	if c.Alerts.PriorityColumn == "" {
		c.Alerts.PriorityColumn = "priority"
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}

	return nil
}
