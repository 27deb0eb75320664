// Package config loads the deskmate daemon configuration from
// ~/.config/deskmate/config.yaml. Unknown keys are rejected so typos fail
// loudly instead of silently using defaults.
package config

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// ChatConfig selects the language-model backend.
type ChatConfig struct {
	Provider     string  `yaml:"provider"`
	Model        string  `yaml:"model"`
	APIKey       string  `yaml:"api_key,omitempty"`
	MaxTokens    int     `yaml:"max_tokens"`
	Temperature  float64 `yaml:"temperature"`
	SystemPrompt string  `yaml:"system_prompt,omitempty"`
	MaxHistory   int     `yaml:"max_history"`
}

// BubbleConfig tunes the speech bubble policy.
type BubbleConfig struct {
	TimeoutSeconds int `yaml:"timeout_seconds"`
	GapPx          int `yaml:"gap_px"`
	WorkMarginPx   int `yaml:"work_margin_px"`
}

// Config is the effective daemon configuration.
type Config struct {
	// Display/XAuthority override the environment when connecting to X11.
	Display    string `yaml:"display,omitempty"`
	XAuthority string `yaml:"xauthority,omitempty"`

	// Headless runs the daemon on the in-memory window backend.
	Headless bool `yaml:"headless,omitempty"`

	DebounceMs int          `yaml:"debounce_ms"`
	Bubble     BubbleConfig `yaml:"bubble"`
	Chat       ChatConfig   `yaml:"chat"`

	ErrorLogCapacity int    `yaml:"error_log_capacity"`
	LogLevel         string `yaml:"log_level"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		DebounceMs: 500,
		Bubble: BubbleConfig{
			TimeoutSeconds: 10,
			GapPx:          2,
			WorkMarginPx:   10,
		},
		Chat: ChatConfig{
			Provider:    "anthropic",
			Model:       "claude-3-haiku-20240307",
			MaxTokens:   400,
			Temperature: 0.7,
			MaxHistory:  40,
		},
		ErrorLogCapacity: 500,
		LogLevel:         "info",
	}
}

// DefaultConfigPath returns ~/.config/deskmate/config.yaml.
func DefaultConfigPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "deskmate", "config.yaml"), nil
}

// Load reads the configuration from the standard location. A missing file
// yields the defaults.
func Load() (*Config, error) {
	path, err := DefaultConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFromPath(path)
}

// LoadFromPath reads the configuration from path with strict field checking.
func LoadFromPath(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && err != io.EOF {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the effective configuration.
func (c *Config) Validate() error {
	if c.DebounceMs <= 0 {
		return fmt.Errorf("debounce_ms must be positive, got %d", c.DebounceMs)
	}
	if c.Bubble.TimeoutSeconds <= 0 {
		return fmt.Errorf("bubble.timeout_seconds must be positive, got %d", c.Bubble.TimeoutSeconds)
	}
	if c.Bubble.GapPx < 0 {
		return fmt.Errorf("bubble.gap_px must not be negative, got %d", c.Bubble.GapPx)
	}
	if c.Bubble.WorkMarginPx < 0 {
		return fmt.Errorf("bubble.work_margin_px must not be negative, got %d", c.Bubble.WorkMarginPx)
	}
	if c.ErrorLogCapacity <= 0 {
		return fmt.Errorf("error_log_capacity must be positive, got %d", c.ErrorLogCapacity)
	}
	if c.Chat.Provider == "" {
		return fmt.Errorf("chat.provider must not be empty")
	}
	if c.Chat.MaxHistory < 0 {
		return fmt.Errorf("chat.max_history must not be negative, got %d", c.Chat.MaxHistory)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be one of debug/info/warn/error, got %q", c.LogLevel)
	}
	return nil
}

// Save writes the configuration to the standard location.
func (c *Config) Save() error {
	if err := c.Validate(); err != nil {
		return err
	}

	path, err := DefaultConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Debounce returns the bounds-persistence debounce as a duration.
func (c *Config) Debounce() time.Duration {
	return time.Duration(c.DebounceMs) * time.Millisecond
}

// BubbleTimeout returns the speech bubble auto-hide duration.
func (c *Config) BubbleTimeout() time.Duration {
	return time.Duration(c.Bubble.TimeoutSeconds) * time.Second
}
