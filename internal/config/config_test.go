package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"macroreel/internal/macro"
)

func TestLoad_DefaultWhenMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	m, err := NewManager(path)
	require.NoError(t, err)
	require.NoError(t, m.Load())

	cfg := m.Get()
	require.Equal(t, 18090, cfg.General.APIPort)
	require.Equal(t, "Ctrl+Alt+Shift+Esc", cfg.General.EscapeHotkey)
	require.Equal(t, 1.0, cfg.Playback.DefaultSpeed)
	require.NoError(t, cfg.Validate())
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"general":{"api_port":9000},"autoclick":{"button":"right"}}`), 0600))

	m, err := NewManager(path)
	require.NoError(t, err)
	require.NoError(t, m.Load())

	cfg := m.Get()
	require.Equal(t, 9000, cfg.General.APIPort)
	require.Equal(t, "info", cfg.General.LogLevel)
	require.Equal(t, uint64(100), cfg.AutoClick.IntervalMS)
	require.Equal(t, macro.ButtonRight, cfg.AutoClickRequest().Button)
	require.Equal(t, dir, m.DataDir())
}

func TestLoad_InvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{not json}`), 0600))

	m, err := NewManager(path)
	require.NoError(t, err)
	require.Error(t, m.Load())
}

func TestLoad_InvalidValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"general":{"escape_hotkey":"Ctrl+Nope"}}`), 0600))

	m, err := NewManager(path)
	require.NoError(t, err)
	require.Error(t, m.Load())
	require.Equal(t, 18090, m.Get().General.APIPort)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"port", func(c *Config) { c.General.APIPort = 0 }},
		{"level", func(c *Config) { c.General.LogLevel = "loud" }},
		{"format", func(c *Config) { c.General.LogFormat = "xml" }},
		{"speed", func(c *Config) { c.Playback.DefaultSpeed = 0.01 }},
		{"loops", func(c *Config) { c.Playback.DefaultLoops = 0 }},
		{"button", func(c *Config) { c.AutoClick.Button = "thumb" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			require.Error(t, cfg.Validate())
		})
	}
}

func TestSaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")
	m, err := NewManager(path)
	require.NoError(t, err)

	changed := 0
	m.RegisterChangeCallback(func() { changed++ })

	cfg := m.Get()
	cfg.General.APIToken = "secret"
	cfg.General.DataDir = "/var/lib/macroreel"
	require.NoError(t, m.Set(cfg))
	require.Equal(t, 1, changed)
	require.NoError(t, m.Save())

	other, err := NewManager(path)
	require.NoError(t, err)
	require.NoError(t, other.Load())
	require.Equal(t, "secret", other.Get().General.APIToken)
	require.Equal(t, "/var/lib/macroreel", other.DataDir())

	bad := m.Get()
	bad.General.APIPort = -1
	require.Error(t, m.Set(bad))
	require.Equal(t, 1, changed)
}
