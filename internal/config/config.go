// Package config loads the waypane configuration from YAML, applying
// defaults for anything unset.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds all runtime settings for the client.
type Config struct {
	// Display overrides $WAYLAND_DISPLAY when non-empty.
	Display string `yaml:"display"`

	Title string `yaml:"title"`
	AppID string `yaml:"app_id"`

	// Initial surface size, used until the compositor constrains it.
	InitialWidth  int `yaml:"initial_width"`
	InitialHeight int `yaml:"initial_height"`

	// Maximum supported surface size. The shared memory region is
	// allocated up-front for this bound, so raising it costs memory,
	// not correctness.
	MaxWidth  int `yaml:"max_width"`
	MaxHeight int `yaml:"max_height"`

	// TargetFPS sets the pacing of the presentation loop.
	TargetFPS int `yaml:"target_fps"`

	// EdgeThreshold is the border band, in pixels, that turns a click
	// into an interactive resize.
	EdgeThreshold int `yaml:"edge_threshold"`

	// TitleBarHeight is the client-drawn drag band used when the
	// compositor does not take over decorations.
	TitleBarHeight int `yaml:"title_bar_height"`

	// Pattern selects the content producer: "gradient" or "checker".
	Pattern string `yaml:"pattern"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
}

// DefaultConfig returns the built-in settings.
func DefaultConfig() *Config {
	return &Config{
		Title:          "waypane",
		AppID:          "dev.waypane.waypane",
		InitialWidth:   960,
		InitialHeight:  540,
		MaxWidth:       1920,
		MaxHeight:      1080,
		TargetFPS:      60,
		EdgeThreshold:  3,
		TitleBarHeight: 24,
		Pattern:        "gradient",
		LogLevel:       "info",
	}
}

// DefaultConfigPath returns the standard config file location.
func DefaultConfigPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "waypane", "config.yaml"), nil
}

// Load reads the configuration from the standard location. A missing
// file yields the defaults.
func Load() (*Config, error) {
	path, err := DefaultConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFromPath(path)
}

// LoadFromPath reads the configuration from path, filling unset
// fields with defaults and validating the result.
func LoadFromPath(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// applyDefaults fills zero values so a sparse file behaves like an
// overlay on the defaults.
func (c *Config) applyDefaults() {
	def := DefaultConfig()
	if c.Title == "" {
		c.Title = def.Title
	}
	if c.AppID == "" {
		c.AppID = def.AppID
	}
	if c.InitialWidth == 0 {
		c.InitialWidth = def.InitialWidth
	}
	if c.InitialHeight == 0 {
		c.InitialHeight = def.InitialHeight
	}
	if c.MaxWidth == 0 {
		c.MaxWidth = def.MaxWidth
	}
	if c.MaxHeight == 0 {
		c.MaxHeight = def.MaxHeight
	}
	if c.TargetFPS == 0 {
		c.TargetFPS = def.TargetFPS
	}
	if c.EdgeThreshold == 0 {
		c.EdgeThreshold = def.EdgeThreshold
	}
	if c.TitleBarHeight == 0 {
		c.TitleBarHeight = def.TitleBarHeight
	}
	if c.Pattern == "" {
		c.Pattern = def.Pattern
	}
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
}

// Validate checks ranges and cross-field constraints.
func (c *Config) Validate() error {
	if c.InitialWidth < 1 || c.InitialHeight < 1 {
		return fmt.Errorf("initial size %dx%d must be positive", c.InitialWidth, c.InitialHeight)
	}
	if c.MaxWidth < 1 || c.MaxHeight < 1 {
		return fmt.Errorf("max size %dx%d must be positive", c.MaxWidth, c.MaxHeight)
	}
	if c.InitialWidth > c.MaxWidth || c.InitialHeight > c.MaxHeight {
		return fmt.Errorf("initial size %dx%d exceeds max size %dx%d",
			c.InitialWidth, c.InitialHeight, c.MaxWidth, c.MaxHeight)
	}
	if c.TargetFPS < 1 || c.TargetFPS > 1000 {
		return fmt.Errorf("target_fps %d out of range [1, 1000]", c.TargetFPS)
	}
	if c.EdgeThreshold < 1 {
		return fmt.Errorf("edge_threshold %d must be positive", c.EdgeThreshold)
	}
	if c.TitleBarHeight < 0 {
		return fmt.Errorf("title_bar_height %d must not be negative", c.TitleBarHeight)
	}
	switch c.Pattern {
	case "gradient", "checker":
	default:
		return fmt.Errorf("unknown pattern %q", c.Pattern)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log_level %q", c.LogLevel)
	}
	return nil
}
