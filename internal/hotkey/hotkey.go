// Package hotkey matches global key combinations, such as the emergency stop,
// against the key stream observed by the recorder's listener.
package hotkey

import (
	"fmt"
	"log/slog"
	"sync"

	"macroreel/internal/input"
	"macroreel/internal/keys"
)

// Manager handles hotkey registration and matching
type Manager struct {
	mu           sync.RWMutex
	hotkeys      []*registeredHotkey
	currentState map[keys.Key]bool // keys currently held
	logger       *slog.Logger
}

type registeredHotkey struct {
	parts    []keys.Key // e.g. [Ctrl, Alt, Esc]
	original string
	callback func()
	armed    bool // true once the combo was released since its last trigger
}

// NewManager creates a new hotkey manager
func NewManager(logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		currentState: make(map[keys.Key]bool),
		logger:       logger.With("component", "hotkey"),
	}
}

// Parse turns a hotkey string such as "Ctrl+Shift+Esc" into its keys.
func Parse(hotkeyStr string) ([]keys.Key, error) {
	mods, token := keys.SplitLabel(hotkeyStr)
	if token == "" {
		return nil, fmt.Errorf("hotkey %q has no key", hotkeyStr)
	}
	k, ok := keys.Parse(token)
	if !ok {
		return nil, fmt.Errorf("hotkey %q: unknown key %q", hotkeyStr, token)
	}
	return append(mods, k), nil
}

// Register registers a hotkey string (e.g. "Ctrl+Alt+Esc") and a callback.
// An empty string registers nothing.
func (m *Manager) Register(hotkeyStr string, callback func()) (int, error) {
	if hotkeyStr == "" {
		return -1, nil
	}
	parts, err := Parse(hotkeyStr)
	if err != nil {
		return -1, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.hotkeys = append(m.hotkeys, &registeredHotkey{
		parts:    parts,
		original: hotkeyStr,
		callback: callback,
		armed:    true,
	})
	return len(m.hotkeys) - 1, nil
}

// Clear removes all registered hotkeys
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hotkeys = nil
}

// Feed consumes a raw listener event. Non-key events are ignored.
func (m *Manager) Feed(ev input.RawEvent) {
	if !ev.IsKey() || ev.Key == keys.Unknown {
		return
	}
	m.UpdateState(ev.Key, ev.Type == input.KeyPress)
}

// UpdateState updates the held state of a key and fires any combo that
// became fully held. Key repeat does not fire a combo again until one of
// its keys is released.
func (m *Manager) UpdateState(key keys.Key, isDown bool) {
	m.mu.Lock()
	if isDown {
		m.currentState[key] = true
	} else {
		delete(m.currentState, key)
	}

	var fire []*registeredHotkey
	for _, hk := range m.hotkeys {
		held := m.allHeld(hk.parts)
		switch {
		case held && hk.armed && isDown:
			hk.armed = false
			fire = append(fire, hk)
		case !held:
			hk.armed = true
		}
	}
	m.mu.Unlock()

	for _, hk := range fire {
		m.logger.Info("hotkey triggered", "hotkey", hk.original)
		go hk.callback()
	}
}

func (m *Manager) allHeld(parts []keys.Key) bool {
	for _, part := range parts {
		if !m.currentState[part] {
			return false
		}
	}
	return true
}
