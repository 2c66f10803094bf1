// Package macro defines the portable event model produced by capture and consumed by playback.
package macro

import (
	"encoding/json"
	"fmt"
)

// Kind tags the active variant of an EventKind.
type Kind string

const (
	KindPointerMove       Kind = "mouse-move"
	KindPointerButtonDown Kind = "mouse-down"
	KindPointerButtonUp   Kind = "mouse-up"
	KindKeyDown           Kind = "key-down"
	KindKeyUp             Kind = "key-up"
	KindScroll            Kind = "scroll"
)

// Button names a pointer button.
type Button string

const (
	ButtonLeft    Button = "left"
	ButtonRight   Button = "right"
	ButtonMiddle  Button = "middle"
	ButtonUnknown Button = "unknown"
)

// ParseButton normalizes a button name. Unrecognized names map to ButtonUnknown.
func ParseButton(name string) Button {
	switch Button(name) {
	case ButtonLeft, ButtonRight, ButtonMiddle:
		return Button(name)
	default:
		return ButtonUnknown
	}
}

// EventKind is a tagged union: Type selects which of the payload fields are meaningful.
// Build values with the constructors below rather than by hand.
type EventKind struct {
	Type   Kind
	X, Y   int32
	Button Button
	Key    string
	DeltaX int64
	DeltaY int64
}

// PointerMove is an absolute cursor position in screen coordinates.
func PointerMove(x, y int32) EventKind {
	return EventKind{Type: KindPointerMove, X: x, Y: y}
}

// ButtonDown is a pointer button press.
func ButtonDown(b Button) EventKind {
	return EventKind{Type: KindPointerButtonDown, Button: b}
}

// ButtonUp is a pointer button release.
func ButtonUp(b Button) EventKind {
	return EventKind{Type: KindPointerButtonUp, Button: b}
}

// KeyDown is a key press carrying a composite label such as "Ctrl+Shift+A".
func KeyDown(label string) EventKind {
	return EventKind{Type: KindKeyDown, Key: label}
}

// KeyUp is a key release carrying a composite label.
func KeyUp(label string) EventKind {
	return EventKind{Type: KindKeyUp, Key: label}
}

// Scroll is a wheel movement in signed ticks.
func Scroll(dx, dy int64) EventKind {
	return EventKind{Type: KindScroll, DeltaX: dx, DeltaY: dy}
}

// IsKey reports whether the kind is a keyboard event.
func (k EventKind) IsKey() bool {
	return k.Type == KindKeyDown || k.Type == KindKeyUp
}

// Validate rejects unknown tags and variants missing their payload.
func (k EventKind) Validate() error {
	switch k.Type {
	case KindPointerMove, KindScroll:
		return nil
	case KindPointerButtonDown, KindPointerButtonUp:
		if k.Button == "" {
			return fmt.Errorf("%s event without button", k.Type)
		}
		return nil
	case KindKeyDown, KindKeyUp:
		if k.Key == "" {
			return fmt.Errorf("%s event without key label", k.Type)
		}
		return nil
	default:
		return fmt.Errorf("unknown event type %q", k.Type)
	}
}

func (k EventKind) String() string {
	switch k.Type {
	case KindPointerMove:
		return fmt.Sprintf("%s(%d,%d)", k.Type, k.X, k.Y)
	case KindPointerButtonDown, KindPointerButtonUp:
		return fmt.Sprintf("%s(%s)", k.Type, k.Button)
	case KindKeyDown, KindKeyUp:
		return fmt.Sprintf("%s(%s)", k.Type, k.Key)
	case KindScroll:
		return fmt.Sprintf("%s(%d,%d)", k.Type, k.DeltaX, k.DeltaY)
	default:
		return string(k.Type)
	}
}

type wireMove struct {
	Type Kind  `json:"type"`
	X    int32 `json:"x"`
	Y    int32 `json:"y"`
}

type wireButton struct {
	Type   Kind   `json:"type"`
	Button Button `json:"button"`
}

type wireKey struct {
	Type Kind   `json:"type"`
	Key  string `json:"key"`
}

type wireScroll struct {
	Type   Kind  `json:"type"`
	DeltaX int64 `json:"delta_x"`
	DeltaY int64 `json:"delta_y"`
}

// MarshalJSON emits only the fields of the active variant.
func (k EventKind) MarshalJSON() ([]byte, error) {
	switch k.Type {
	case KindPointerMove:
		return json.Marshal(wireMove{k.Type, k.X, k.Y})
	case KindPointerButtonDown, KindPointerButtonUp:
		return json.Marshal(wireButton{k.Type, k.Button})
	case KindKeyDown, KindKeyUp:
		return json.Marshal(wireKey{k.Type, k.Key})
	case KindScroll:
		return json.Marshal(wireScroll{k.Type, k.DeltaX, k.DeltaY})
	default:
		return nil, fmt.Errorf("unknown event type %q", k.Type)
	}
}

// UnmarshalJSON decodes a variant by its "type" tag.
func (k *EventKind) UnmarshalJSON(data []byte) error {
	var head struct {
		Type Kind `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return err
	}

	switch head.Type {
	case KindPointerMove:
		var w wireMove
		if err := json.Unmarshal(data, &w); err != nil {
			return err
		}
		*k = PointerMove(w.X, w.Y)
	case KindPointerButtonDown, KindPointerButtonUp:
		var w wireButton
		if err := json.Unmarshal(data, &w); err != nil {
			return err
		}
		*k = EventKind{Type: head.Type, Button: ParseButton(string(w.Button))}
	case KindKeyDown, KindKeyUp:
		var w wireKey
		if err := json.Unmarshal(data, &w); err != nil {
			return err
		}
		*k = EventKind{Type: head.Type, Key: w.Key}
	case KindScroll:
		var w wireScroll
		if err := json.Unmarshal(data, &w); err != nil {
			return err
		}
		*k = Scroll(w.DeltaX, w.DeltaY)
	default:
		return fmt.Errorf("unknown event type %q", head.Type)
	}
	return nil
}

// InputEvent is one captured occurrence and its offset from the capture epoch.
type InputEvent struct {
	OffsetMS uint64    `json:"offset_ms"`
	Kind     EventKind `json:"kind"`
}

// Validate checks a stored sequence: every kind is valid and offsets never decrease.
func Validate(events []InputEvent) error {
	var last uint64
	for i, ev := range events {
		if err := ev.Kind.Validate(); err != nil {
			return fmt.Errorf("event %d: %w", i, err)
		}
		if ev.OffsetMS < last {
			return fmt.Errorf("event %d: offset %d precedes %d", i, ev.OffsetMS, last)
		}
		last = ev.OffsetMS
	}
	return nil
}

// Duration returns the offset of the last event, which is the recorded length of the sequence.
func Duration(events []InputEvent) uint64 {
	if len(events) == 0 {
		return 0
	}
	return events[len(events)-1].OffsetMS
}

// Clone returns an independent copy of events.
func Clone(events []InputEvent) []InputEvent {
	if events == nil {
		return []InputEvent{}
	}
	out := make([]InputEvent, len(events))
	copy(out, events)
	return out
}
