//go:build !windows

package autostart

import "fmt"

func enableWindows(string) error {
	return fmt.Errorf("registry login items are only available on windows")
}

func disableWindows() error {
	return fmt.Errorf("registry login items are only available on windows")
}

func isEnabledWindows() bool {
	return false
}
