//go:build !windows

// Package osutils reports platform conditions that affect global input.
package osutils

import (
	"os"
	"runtime"
)

// IsAdmin reports whether the process runs as root.
func IsAdmin() bool {
	return os.Geteuid() == 0
}

// CaptureHint describes what limits global capture and injection on this
// platform, or "" when nothing does.
func CaptureHint() string {
	switch runtime.GOOS {
	case "darwin":
		return "macroreel needs Accessibility and Input Monitoring permission in System Settings > Privacy & Security"
	case "linux":
		if os.Getenv("WAYLAND_DISPLAY") != "" && os.Getenv("DISPLAY") == "" {
			return "global capture and injection need an X11 session; Wayland without XWayland is not supported"
		}
		return ""
	default:
		return ""
	}
}
