// Package input is the boundary to the operating system's input layer: a
// global listener that reports raw device events, a synthesizer that injects
// them, and an optional key sampler for platforms where the listener misses
// keyboard input.
package input

import (
	"macroreel/internal/keys"
	"macroreel/internal/macro"
)

// EventType classifies a raw device event.
type EventType uint8

const (
	KeyPress EventType = iota + 1
	KeyRelease
	ButtonPress
	ButtonRelease
	Move
	Wheel
)

func (t EventType) String() string {
	switch t {
	case KeyPress:
		return "key_press"
	case KeyRelease:
		return "key_release"
	case ButtonPress:
		return "button_press"
	case ButtonRelease:
		return "button_release"
	case Move:
		return "move"
	case Wheel:
		return "wheel"
	default:
		return "unknown"
	}
}

// RawEvent is a device event as reported by a Hook, already translated to
// platform-independent key and button identities.
type RawEvent struct {
	Type   EventType
	Key    keys.Key
	Code   uint16 // platform key code, kept for logging
	Name   string // optional printable name supplied by the platform
	Button macro.Button
	X, Y   int32
	DeltaX int64
	DeltaY int64
}

// IsKey reports whether e is a key press or release.
func (e RawEvent) IsKey() bool {
	return e.Type == KeyPress || e.Type == KeyRelease
}

// Hook is a global input listener. Run installs it and delivers events to
// emit until the listener dies; it normally never returns.
type Hook interface {
	Run(emit func(RawEvent)) error
}

// HookFunc adapts a function to the Hook interface.
type HookFunc func(emit func(RawEvent)) error

// Run calls f(emit).
func (f HookFunc) Run(emit func(RawEvent)) error { return f(emit) }

// Synthesizer injects input into the operating system.
type Synthesizer interface {
	// MoveTo warps the pointer to absolute screen coordinates.
	MoveTo(x, y int32) error
	ButtonToggle(b macro.Button, down bool) error
	Click(b macro.Button) error
	KeyToggle(k keys.Key, down bool) error
	// TypeText types s as literal text.
	TypeText(s string) error
	// Scroll moves the wheel by dx horizontal and dy vertical ticks.
	Scroll(dx, dy int64) error
}

// KeySampler reports the keys currently held down. It substitutes for the
// keyboard half of a Hook on platforms where the hook is unreliable.
type KeySampler interface {
	Pressed() []keys.Key
}
