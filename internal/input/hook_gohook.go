//go:build cgo

package input

import (
	"errors"

	hook "github.com/robotn/gohook"

	"macroreel/internal/macro"
)

// Wheel directions reported by libuiohook.
const (
	wheelVertical   = 3
	wheelHorizontal = 4
)

// Listener is the global input hook backed by libuiohook through gohook.
type Listener struct{}

// NewListener creates a global listener.
func NewListener() *Listener {
	return &Listener{}
}

// Run starts the native hook and translates its events until the hook's
// channel closes.
func (l *Listener) Run(emit func(RawEvent)) error {
	events := hook.Start()
	if events == nil {
		return errors.New("global input hook could not be started")
	}
	defer hook.End()

	for ev := range events {
		if raw, ok := translate(ev); ok {
			emit(raw)
		}
	}
	return errors.New("global input hook stopped")
}

// translate maps a gohook event to a RawEvent. Typed-character and click
// synthesis events are dropped since press and release already cover them.
func translate(ev hook.Event) (RawEvent, bool) {
	switch ev.Kind {
	case hook.KeyHold: // EVENT_KEY_PRESSED
		return RawEvent{Type: KeyPress, Key: KeyFromUiohook(ev.Keycode), Code: ev.Keycode}, true
	case hook.KeyUp: // EVENT_KEY_RELEASED
		return RawEvent{Type: KeyRelease, Key: KeyFromUiohook(ev.Keycode), Code: ev.Keycode}, true
	case hook.MouseHold: // EVENT_MOUSE_PRESSED
		return RawEvent{Type: ButtonPress, Button: buttonFromUiohook(ev.Button)}, true
	case hook.MouseDown: // EVENT_MOUSE_RELEASED
		return RawEvent{Type: ButtonRelease, Button: buttonFromUiohook(ev.Button)}, true
	case hook.MouseMove, hook.MouseDrag:
		return RawEvent{Type: Move, X: int32(ev.X), Y: int32(ev.Y)}, true
	case hook.MouseWheel:
		if ev.Direction == wheelHorizontal {
			return RawEvent{Type: Wheel, DeltaX: int64(ev.Rotation)}, true
		}
		// libuiohook reports positive rotation for wheel-down.
		return RawEvent{Type: Wheel, DeltaY: -int64(ev.Rotation)}, true
	}
	return RawEvent{}, false
}

func buttonFromUiohook(b uint16) macro.Button {
	switch b {
	case 1:
		return macro.ButtonLeft
	case 2:
		return macro.ButtonRight
	case 3:
		return macro.ButtonMiddle
	default:
		return macro.ButtonUnknown
	}
}
