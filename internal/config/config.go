// Package config handles configuration file loading and parsing.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/nomadstudio/atmos/internal/atmosphere"
)

// Default configuration values.
const (
	DefaultVolume         = 0.3
	DefaultGlideStep      = 0.05
	DefaultGlideThreshold = 0.05
	DefaultGlideInterval  = 50 * time.Millisecond
	DefaultSampleInterval = 100 * time.Millisecond
	DefaultMode           = "SILENCE"
)

// Config represents the atmos configuration.
type Config struct {
	Audio     AudioConfig     `toml:"audio"`
	Glide     GlideConfig     `toml:"glide"`
	Tracks    TracksConfig    `toml:"tracks"`
	TUI       TUIConfig       `toml:"tui"`
	Clipboard ClipboardConfig `toml:"clipboard"`
}

// AudioConfig holds playback settings.
type AudioConfig struct {
	Volume      float64 `toml:"volume"`       // 0.0-1.0 desired volume
	Muted       bool    `toml:"muted"`        // Start muted
	Mode        string  `toml:"mode"`         // Initial atmosphere mode
	Autostart   bool    `toml:"autostart"`    // Start playback without waiting for a gesture
	AssetsDir   string  `toml:"assets_dir"`   // Where "/assets/..." locators resolve
	WatchAssets bool    `toml:"watch_assets"` // Evict changed tracks from the decode cache
}

// GlideConfig holds the volume ramp parameters.
type GlideConfig struct {
	Step           float64  `toml:"step"`
	Threshold      float64  `toml:"threshold"`
	Interval       Duration `toml:"interval"`
	SampleInterval Duration `toml:"sample_interval"` // Position sampling period
}

// TracksConfig overrides the per-mode track locators.
type TracksConfig struct {
	Silence string `toml:"silence"`
	Wind    string `toml:"wind"`
	Ocean   string `toml:"ocean"`
}

// TUIConfig holds TUI-specific settings.
type TUIConfig struct {
	ShowHelp  bool `toml:"show_help"`
	ShowPages bool `toml:"show_pages"`
}

// ClipboardConfig holds clipboard settings.
type ClipboardConfig struct {
	Command string `toml:"command"` // Empty = auto-detect
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Audio: AudioConfig{
			Volume:      DefaultVolume,
			Mode:        DefaultMode,
			AssetsDir:   DataPath(),
			WatchAssets: true,
		},
		Glide: GlideConfig{
			Step:           DefaultGlideStep,
			Threshold:      DefaultGlideThreshold,
			Interval:       Duration(DefaultGlideInterval),
			SampleInterval: Duration(DefaultSampleInterval),
		},
		TUI: TUIConfig{
			ShowHelp:  true,
			ShowPages: true,
		},
	}
}

// ConfigPath returns the path to the config file.
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config.
func ConfigPath() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, "atmos", "atmos.toml")
}

// DataPath returns the path to the data directory, where tracks live by default.
// Uses XDG_DATA_HOME if set, otherwise ~/.local/share.
func DataPath() string {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, "atmos", "assets")
}

// LoadConfig loads configuration from the specified path.
// If path is empty, uses the default config path.
// Returns default config if file doesn't exist.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		path = ConfigPath()
	}

	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate normalizes the configuration. Volume is clamped into [0, 1];
// unknown modes and non-positive glide parameters are errors.
func (c *Config) Validate() error {
	c.Audio.Volume = min(max(c.Audio.Volume, 0), 1)

	if c.Audio.Mode == "" {
		c.Audio.Mode = DefaultMode
	}
	if _, err := atmosphere.ParseMode(c.Audio.Mode); err != nil {
		return fmt.Errorf("audio.mode: %w", err)
	}

	if c.Glide.Step <= 0 || c.Glide.Step > 1 {
		return fmt.Errorf("glide.step must be in (0, 1], got %v", c.Glide.Step)
	}
	if c.Glide.Threshold < 0 {
		return fmt.Errorf("glide.threshold must not be negative, got %v", c.Glide.Threshold)
	}
	if c.Glide.Interval.Duration() <= 0 {
		return errors.New("glide.interval must be positive")
	}
	if c.Glide.SampleInterval.Duration() <= 0 {
		return errors.New("glide.sample_interval must be positive")
	}
	return nil
}

// InitialMode returns the configured start mode.
func (c *Config) InitialMode() atmosphere.Mode {
	m, err := atmosphere.ParseMode(c.Audio.Mode)
	if err != nil {
		return atmosphere.ModeSilence
	}
	return m
}

// Manifest returns the default manifest with configured track overrides applied.
func (c *Config) Manifest() atmosphere.Manifest {
	return atmosphere.DefaultManifest().
		WithTrack(atmosphere.ModeSilence, c.Tracks.Silence).
		WithTrack(atmosphere.ModeWind, c.Tracks.Wind).
		WithTrack(atmosphere.ModeOcean, c.Tracks.Ocean)
}

// Save writes the configuration to the specified path.
// Creates parent directories if needed.
func (c *Config) Save(path string) error {
	if path == "" {
		path = ConfigPath()
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
