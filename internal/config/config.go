// Package config loads the daemon configuration from YAML.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config is the effective daemon configuration.
type Config struct {
	LogLevel string `yaml:"log_level"` // debug, info, warn, error
	Theme    string `yaml:"theme"`     // system, light, dark
	Socket   string `yaml:"socket"`    // IPC socket path override

	DefaultWindow WindowDefaults `yaml:"default_window"`
}

// WindowDefaults seed windows created without explicit settings.
type WindowDefaults struct {
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
	Title  string  `yaml:"title"`
	State  string  `yaml:"state"` // restored, maximized, minimized
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		LogLevel: "info",
		Theme:    "system",
		DefaultWindow: WindowDefaults{
			Width:  800,
			Height: 600,
			Title:  "winman",
			State:  "restored",
		},
	}
}

// DefaultConfigPath is ~/.config/winman/config.yaml.
func DefaultConfigPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "winman", "config.yaml"), nil
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

// LoadFromPath reads and validates a configuration file. A missing file is
// not an error; the defaults apply.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log_level %q", c.LogLevel)
	}
	switch c.Theme {
	case "system", "light", "dark":
	default:
		return fmt.Errorf("unknown theme %q", c.Theme)
	}
	switch c.DefaultWindow.State {
	case "restored", "maximized", "minimized":
	default:
		return fmt.Errorf("unknown default_window.state %q", c.DefaultWindow.State)
	}
	if c.DefaultWindow.Width <= 0 || c.DefaultWindow.Height <= 0 {
		return fmt.Errorf("default_window size must be positive, got %gx%g",
			c.DefaultWindow.Width, c.DefaultWindow.Height)
	}
	return nil
}

// SlogLevel maps the configured log level onto slog.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
