// Package autostart registers "macroreel serve --tray" to run at login.
package autostart

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"text/template"
)

const label = "com.macroreel.agent"

const macLaunchAgentPlist = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
    <key>Label</key>
    <string>{{.Label}}</string>
    <key>ProgramArguments</key>
    <array>
        <string>{{.Executable}}</string>
{{- range .Args}}
        <string>{{.}}</string>
{{- end}}
    </array>
    <key>RunAtLoad</key>
    <true/>
    <key>KeepAlive</key>
    <false/>
</dict>
</plist>
`

const xdgDesktopEntry = `[Desktop Entry]
Type=Application
Name=macroreel
Comment=Input recorder and autoclicker
Exec={{.Command}}
X-GNOME-Autostart-enabled=true
NoDisplay=true
`

// Manager enables and disables the login item for one command line.
type Manager struct {
	Executable string
	Args       []string
	HomeDir    string
	GOOS       string
}

// New describes the running executable started with args.
func New(args ...string) (*Manager, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("failed to get executable path: %w", err)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	return &Manager{Executable: exe, Args: args, HomeDir: home, GOOS: runtime.GOOS}, nil
}

// Enable enables auto-start on login
func (m *Manager) Enable() error {
	switch m.GOOS {
	case "darwin":
		return m.writeTemplate(m.plistPath(), macLaunchAgentPlist)
	case "windows":
		return enableWindows(m.commandLine())
	case "linux", "freebsd", "openbsd", "netbsd":
		return m.writeTemplate(m.desktopPath(), xdgDesktopEntry)
	default:
		return fmt.Errorf("unsupported platform: %s", m.GOOS)
	}
}

// Disable disables auto-start on login
func (m *Manager) Disable() error {
	switch m.GOOS {
	case "darwin":
		return removeIfExists(m.plistPath())
	case "windows":
		return disableWindows()
	case "linux", "freebsd", "openbsd", "netbsd":
		return removeIfExists(m.desktopPath())
	default:
		return fmt.Errorf("unsupported platform: %s", m.GOOS)
	}
}

// IsEnabled checks if auto-start is enabled
func (m *Manager) IsEnabled() bool {
	switch m.GOOS {
	case "darwin":
		return exists(m.plistPath())
	case "windows":
		return isEnabledWindows()
	case "linux", "freebsd", "openbsd", "netbsd":
		return exists(m.desktopPath())
	default:
		return false
	}
}

func (m *Manager) plistPath() string {
	return filepath.Join(m.HomeDir, "Library", "LaunchAgents", label+".plist")
}

func (m *Manager) desktopPath() string {
	return filepath.Join(m.HomeDir, ".config", "autostart", "macroreel.desktop")
}

// commandLine quotes the executable and arguments for a shell-like parser.
func (m *Manager) commandLine() string {
	parts := []string{quote(m.Executable)}
	for _, a := range m.Args {
		parts = append(parts, quote(a))
	}
	return strings.Join(parts, " ")
}

func quote(s string) string {
	if s != "" && !strings.ContainsAny(s, " \t\"") {
		return s
	}
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}

func (m *Manager) writeTemplate(path, text string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	tmpl, err := template.New(filepath.Base(path)).Parse(text)
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return tmpl.Execute(f, struct {
		Label      string
		Executable string
		Args       []string
		Command    string
	}{label, m.Executable, m.Args, m.commandLine()})
}

func removeIfExists(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
