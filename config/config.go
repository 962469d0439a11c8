package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// ErrUnknownKeys marks a config that loaded but carried keys nothing reads.
var ErrUnknownKeys = errors.New("config: unknown keys")

// WindowConfig holds the drop-down window geometry
type WindowConfig struct {
	// Size as a percentage of the monitor work area
	WidthPercent  int    `toml:"width_percent"`
	HeightPercent int    `toml:"height_percent"`
	Position      string `toml:"position"` // "top" or "bottom"
	// Refocus makes a toggle focus a visible but unfocused window instead of hiding it
	Refocus bool   `toml:"refocus"`
	Theme   string `toml:"theme"`
}

// BehaviorConfig holds show/hide and tab behaviour
type BehaviorConfig struct {
	HideOnLoseFocus      bool `toml:"hide_on_lose_focus"`
	LazyLoseFocus        bool `toml:"lazy_lose_focus"`
	LazyLoseFocusDelayMS int  `toml:"lazy_lose_focus_delay_ms"`
	// OpenTabCwd starts new tabs in the focused terminal's directory
	OpenTabCwd       bool `toml:"open_tab_cwd"`
	ToggleDebounceMS int  `toml:"toggle_debounce_ms"`
}

// SessionConfig holds tab persistence settings
type SessionConfig struct {
	File                string `toml:"file"`
	SaveTabsWhenChanged bool   `toml:"save_tabs_when_changed"`
	RestoreTabsStartup  bool   `toml:"restore_tabs_startup"`
	RestoreTabsNotify   bool   `toml:"restore_tabs_notify"`
}

// ShellConfig holds shell-specific settings
type ShellConfig struct {
	// Command line to run in each pane (empty = login shell)
	Command string `toml:"command"`
	// Env extra environment variables
	Env map[string]string `toml:"env"`
}

// HooksConfig holds commands run on window events
type HooksConfig struct {
	Show string `toml:"show"`
}

// LogConfig holds logging settings
type LogConfig struct {
	Level      string `toml:"level"`
	Format     string `toml:"format"` // "text" or "json"
	Sink       string `toml:"sink"`   // "stderr", "file" or "none"
	File       string `toml:"file"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days"`
	Compress   bool   `toml:"compress"`
}

// Config holds the drop-down terminal configuration
type Config struct {
	Window   WindowConfig   `toml:"window"`
	Behavior BehaviorConfig `toml:"behavior"`
	Session  SessionConfig  `toml:"session"`
	Shell    ShellConfig    `toml:"shell"`
	Hooks    HooksConfig    `toml:"hooks"`
	Log      LogConfig      `toml:"log"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Window: WindowConfig{
			WidthPercent:  100,
			HeightPercent: 50,
			Position:      "top",
			Theme:         "raven-blue",
		},
		Behavior: BehaviorConfig{
			HideOnLoseFocus:      true,
			LazyLoseFocus:        false,
			LazyLoseFocusDelayMS: 300,
			OpenTabCwd:           true,
			ToggleDebounceMS:     65,
		},
		Session: SessionConfig{
			File:                "session.json",
			SaveTabsWhenChanged: true,
			RestoreTabsStartup:  true,
			RestoreTabsNotify:   true,
		},
		Shell: ShellConfig{
			Env: map[string]string{},
		},
		Log: LogConfig{
			Level:      "info",
			Format:     "text",
			Sink:       "file",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 14,
			Compress:   true,
		},
	}
}

// Dir returns the config directory, honouring XDG_CONFIG_HOME.
func Dir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "ravendrop")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "ravendrop")
	}
	return filepath.Join(home, ".config", "ravendrop")
}

// Path returns the config file path
func Path() string {
	return filepath.Join(Dir(), "config.toml")
}

// Load reads the config file, writing the defaults first if it does not exist.
func Load() (*Config, error) {
	return LoadFrom(Path())
}

// LoadFrom is Load for an explicit path.
func LoadFrom(path string) (*Config, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		cfg := DefaultConfig()
		if err := cfg.SaveTo(path); err != nil {
			return cfg, err
		}
		return cfg, nil
	}
	return read(path)
}

func read(path string) (*Config, error) {
	cfg := DefaultConfig()
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return DefaultConfig(), fmt.Errorf("config: decode %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return cfg.normalize(), fmt.Errorf("%w in %s: %s", ErrUnknownKeys, path, strings.Join(keys, ", "))
	}
	return cfg.normalize(), nil
}

// Save writes the configuration to the default path
func (c *Config) Save() error {
	return c.SaveTo(Path())
}

// SaveTo writes the configuration to path.
func (c *Config) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return fmt.Errorf("config: encode: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

func (c *Config) normalize() *Config {
	c.Window.WidthPercent = clampPercent(c.Window.WidthPercent, 100)
	c.Window.HeightPercent = clampPercent(c.Window.HeightPercent, 50)
	switch strings.ToLower(c.Window.Position) {
	case "bottom":
		c.Window.Position = "bottom"
	default:
		c.Window.Position = "top"
	}
	if c.Behavior.LazyLoseFocusDelayMS <= 0 {
		c.Behavior.LazyLoseFocusDelayMS = 300
	}
	if c.Behavior.ToggleDebounceMS < 0 {
		c.Behavior.ToggleDebounceMS = 0
	}
	if strings.TrimSpace(c.Session.File) == "" {
		c.Session.File = "session.json"
	}
	return c
}

func clampPercent(v, fallback int) int {
	if v <= 0 {
		return fallback
	}
	return min(max(v, 10), 100)
}

// LazyLoseFocusDelay is the lazy lose-focus delay as a duration.
func (c *Config) LazyLoseFocusDelay() time.Duration {
	return time.Duration(c.Behavior.LazyLoseFocusDelayMS) * time.Millisecond
}

// ToggleDebounce is the toggle debounce window as a duration.
func (c *Config) ToggleDebounce() time.Duration {
	return time.Duration(c.Behavior.ToggleDebounceMS) * time.Millisecond
}

// SessionPath returns the absolute path of the session file.
func (c *Config) SessionPath() string {
	if filepath.IsAbs(c.Session.File) {
		return c.Session.File
	}
	return filepath.Join(Dir(), c.Session.File)
}
