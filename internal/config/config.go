package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"time"
)

type Config struct {
	LogLevel       string     `json:"log_level"`
	Backend        string     `json:"backend"` // "auto", "portaudio" or "malgo"
	PollIntervalMS int        `json:"poll_interval_ms"`
	DebounceMS     int        `json:"debounce_ms"`
	Tray           TrayConfig `json:"tray"`
}

type TrayConfig struct {
	ShowDataSources bool `json:"show_data_sources"`
	// MaxMenuDevices caps the per-category submenu slots; systray cannot
	// remove items once added, so slots are pre-created and hidden.
	MaxMenuDevices int `json:"max_menu_devices"`
}

// Load reads the config from disk or returns defaults
func Load() (*Config, error) {
	path := configPath()

	// Default config
	cfg := &Config{
		LogLevel:       "info",
		Backend:        "auto",
		PollIntervalMS: 2000,
		DebounceMS:     300,
		Tray: TrayConfig{
			ShowDataSources: true,
			MaxMenuDevices:  8,
		},
	}

	// Load existing config if it exists
	if data, err := os.ReadFile(path); err == nil {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// Save writes the config to disk
func (c *Config) Save() error {
	path := configPath()

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// PollInterval returns the hardware poll period as a duration.
func (c *Config) PollInterval() time.Duration {
	if c.PollIntervalMS <= 0 {
		return 2 * time.Second
	}
	return time.Duration(c.PollIntervalMS) * time.Millisecond
}

// DebounceWindow returns the notifier debounce window as a duration.
func (c *Config) DebounceWindow() time.Duration {
	if c.DebounceMS <= 0 {
		return 300 * time.Millisecond
	}
	return time.Duration(c.DebounceMS) * time.Millisecond
}

// configPath returns the platform-specific config file path
func configPath() string {
	var base string

	switch runtime.GOOS {
	case "darwin":
		base = os.Getenv("HOME") + "/Library/Application Support"
	case "windows":
		base = os.Getenv("APPDATA")
	default: // linux
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			base = xdg
		} else {
			base = os.Getenv("HOME") + "/.config"
		}
	}

	return filepath.Join(base, "audioroute", "config.json")
}
