// Package config provides configuration management for macroreel.
package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"macroreel/internal/hotkey"
	"macroreel/internal/macro"
)

const appName = "macroreel"

// Config represents the application configuration
type Config struct {
	// General contains general application settings
	General GeneralConfig `json:"general"`

	// Playback holds defaults for replaying library macros
	Playback PlaybackConfig `json:"playback"`

	// AutoClick holds defaults for the autoclicker
	AutoClick AutoClickConfig `json:"autoclick"`
}

// GeneralConfig contains general application settings
type GeneralConfig struct {
	// APIPort is the port for the local API server (default: 18090)
	APIPort int `json:"api_port"`

	// APIToken is an optional authentication token for API requests
	APIToken string `json:"api_token,omitempty"`

	// LogLevel is one of debug, info, warn, error
	LogLevel string `json:"log_level"`

	// LogFormat is json or text
	LogFormat string `json:"log_format"`

	// EscapeHotkey stops playback, autoclick and capture (e.g. "Ctrl+Alt+Shift+Esc").
	// Empty disables it.
	EscapeHotkey string `json:"escape_hotkey,omitempty"`

	// DataDir holds the macro library. Empty means the config directory.
	DataDir string `json:"data_dir,omitempty"`
}

// PlaybackConfig holds playback defaults
type PlaybackConfig struct {
	DefaultSpeed float64 `json:"default_speed"`
	DefaultLoops int     `json:"default_loops"`
}

// AutoClickConfig holds autoclicker defaults
type AutoClickConfig struct {
	Button     string `json:"button"`
	IntervalMS uint64 `json:"interval_ms"`
	JitterMS   uint64 `json:"jitter_ms"`
}

// DefaultConfig returns a new Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		General: GeneralConfig{
			APIPort:      18090,
			LogLevel:     "info",
			LogFormat:    "json",
			EscapeHotkey: "Ctrl+Alt+Shift+Esc",
		},
		Playback: PlaybackConfig{
			DefaultSpeed: macro.DefaultSpeed,
			DefaultLoops: macro.DefaultLoopCount,
		},
		AutoClick: AutoClickConfig{
			Button:     string(macro.ButtonLeft),
			IntervalMS: 100,
		},
	}
}

// Validate rejects values the engines or the API server cannot use.
func (c *Config) Validate() error {
	if c.General.APIPort <= 0 || c.General.APIPort > 65535 {
		return fmt.Errorf("general.api_port %d out of range", c.General.APIPort)
	}
	switch strings.ToLower(c.General.LogLevel) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("general.log_level %q is not one of debug, info, warn, error", c.General.LogLevel)
	}
	switch strings.ToLower(c.General.LogFormat) {
	case "", "json", "text":
	default:
		return fmt.Errorf("general.log_format %q is not json or text", c.General.LogFormat)
	}
	if c.General.EscapeHotkey != "" {
		if _, err := hotkey.Parse(c.General.EscapeHotkey); err != nil {
			return fmt.Errorf("general.escape_hotkey: %w", err)
		}
	}
	if c.Playback.DefaultSpeed < macro.MinSpeed {
		return fmt.Errorf("playback.default_speed must be at least %.1f", macro.MinSpeed)
	}
	if c.Playback.DefaultLoops < 1 {
		return fmt.Errorf("playback.default_loops must be at least 1")
	}
	if macro.ParseButton(c.AutoClick.Button) == macro.ButtonUnknown {
		return fmt.Errorf("autoclick.button %q is not left, right or middle", c.AutoClick.Button)
	}
	return nil
}

// AutoClickRequest builds a request from the autoclick defaults.
func (c *Config) AutoClickRequest() macro.AutoClickRequest {
	return macro.AutoClickRequest{
		Button:     macro.ParseButton(c.AutoClick.Button),
		IntervalMS: c.AutoClick.IntervalMS,
		JitterMS:   c.AutoClick.JitterMS,
	}
}

// Manager handles loading and saving configuration
type Manager struct {
	mu         sync.Mutex
	configPath string
	config     *Config
	onChanged  func()
}

// NewManager creates a configuration manager for path, or for the
// per-user default location when path is empty.
func NewManager(path string) (*Manager, error) {
	if path == "" {
		var err error
		path, err = getConfigPath()
		if err != nil {
			return nil, err
		}
	}

	return &Manager{
		configPath: path,
		config:     DefaultConfig(),
	}, nil
}

// getConfigDir returns the per-user configuration directory
func getConfigDir() (string, error) {
	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, "Library", "Application Support", appName), nil
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			appData = filepath.Join(home, "AppData", "Roaming")
		}
		return filepath.Join(appData, appName), nil
	default:
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, ".config", appName), nil
	}
}

// getConfigPath returns the path to the default configuration file
func getConfigPath() (string, error) {
	configDir, err := getConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.json"), nil
}

// Path returns the configuration file path.
func (m *Manager) Path() string {
	return m.configPath
}

// DataDir resolves the directory that holds the macro library.
func (m *Manager) DataDir() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.config.General.DataDir != "" {
		return m.config.General.DataDir
	}
	return filepath.Dir(m.configPath)
}

// Load reads the configuration from disk. A missing file keeps the defaults.
// Fields absent from the file keep their default values.
func (m *Manager) Load() error {
	m.mu.Lock()

	data, err := os.ReadFile(m.configPath)
	if os.IsNotExist(err) {
		m.mu.Unlock()
		return nil
	}
	if err != nil {
		m.mu.Unlock()
		return err
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		m.mu.Unlock()
		return fmt.Errorf("parse %s: %w", m.configPath, err)
	}
	if err := cfg.Validate(); err != nil {
		m.mu.Unlock()
		return fmt.Errorf("invalid config %s: %w", m.configPath, err)
	}
	m.config = cfg
	onChanged := m.onChanged
	m.mu.Unlock()

	if onChanged != nil {
		onChanged()
	}
	return nil
}

// Save writes the configuration to disk
func (m *Manager) Save() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, err := json.MarshalIndent(m.config, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(m.configPath), 0755); err != nil {
		return err
	}

	slog.Debug("saving configuration", "path", m.configPath, "bytes", len(data))
	return os.WriteFile(m.configPath, data, 0644)
}

// Get returns a copy of the current configuration
func (m *Manager) Get() Config {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.config
}

// Set validates and replaces the configuration
func (m *Manager) Set(config Config) error {
	if err := config.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	m.config = &config
	onChanged := m.onChanged
	m.mu.Unlock()
	if onChanged != nil {
		onChanged()
	}
	return nil
}

// RegisterChangeCallback registers a function to be called when config changes
func (m *Manager) RegisterChangeCallback(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onChanged = fn
}
