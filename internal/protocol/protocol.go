// Package protocol defines the notification messages streamed over the websocket.
package protocol

import (
	"encoding/json"
	"fmt"

	"macroreel/internal/macro"
)

// MessageType defines the type of WebSocket message
type MessageType string

const (
	// TypeCaptureStatus is sent when recording starts or stops
	TypeCaptureStatus MessageType = "capture_status"

	// TypeCaptureEvent carries one captured event and the running counters
	TypeCaptureEvent MessageType = "capture_event"

	// TypeCaptureError reports a listener failure
	TypeCaptureError MessageType = "capture_error"

	TypeAutoClickTick MessageType = "autoclick_tick"
	TypeAutoClickDone MessageType = "autoclick_done"

	// TypePlaybackDone is sent once per playback run, finished or stopped
	TypePlaybackDone MessageType = "playback_done"
)

// Message is the generic container for all WebSocket messages
type Message struct {
	Type    MessageType `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// Envelope is a received Message whose payload has not been decoded yet.
type Envelope struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// CaptureStatusPayload is the payload for TypeCaptureStatus
type CaptureStatusPayload struct {
	State string `json:"state"`
}

// CaptureEventPayload is the payload for TypeCaptureEvent
type CaptureEventPayload struct {
	Event        macro.InputEvent `json:"event"`
	KeyCount     uint64           `json:"key_count"`
	PointerCount uint64           `json:"pointer_count"`
}

// CaptureErrorPayload is the payload for TypeCaptureError
type CaptureErrorPayload struct {
	Message string `json:"message"`
}

// CountPayload is the payload for TypeAutoClickTick and TypeAutoClickDone
type CountPayload struct {
	Count uint64 `json:"count"`
}

// PlaybackDonePayload is the payload for TypePlaybackDone
type PlaybackDonePayload = macro.PlaybackResult

// Decode parses one websocket frame.
func Decode(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("invalid message: %w", err)
	}
	if env.Type == "" {
		return Envelope{}, fmt.Errorf("invalid message: missing type")
	}
	return env, nil
}

// DecodePayload unmarshals the payload into v.
func (e Envelope) DecodePayload(v interface{}) error {
	if len(e.Payload) == 0 {
		return fmt.Errorf("%s: empty payload", e.Type)
	}
	if err := json.Unmarshal(e.Payload, v); err != nil {
		return fmt.Errorf("%s: invalid payload: %w", e.Type, err)
	}
	return nil
}

// Describe renders a received message as one human-readable line.
func (e Envelope) Describe() string {
	switch e.Type {
	case TypeCaptureStatus:
		var p CaptureStatusPayload
		if err := e.DecodePayload(&p); err != nil {
			return err.Error()
		}
		return "capture: " + p.State
	case TypeCaptureEvent:
		var p CaptureEventPayload
		if err := e.DecodePayload(&p); err != nil {
			return err.Error()
		}
		return fmt.Sprintf("event +%dms %s (keys=%d pointer=%d)", p.Event.OffsetMS, p.Event.Kind, p.KeyCount, p.PointerCount)
	case TypeCaptureError:
		var p CaptureErrorPayload
		if err := e.DecodePayload(&p); err != nil {
			return err.Error()
		}
		return "capture error: " + p.Message
	case TypeAutoClickTick, TypeAutoClickDone:
		var p CountPayload
		if err := e.DecodePayload(&p); err != nil {
			return err.Error()
		}
		if e.Type == TypeAutoClickDone {
			return fmt.Sprintf("autoclick done after %d clicks", p.Count)
		}
		return fmt.Sprintf("autoclick %d", p.Count)
	case TypePlaybackDone:
		var p PlaybackDonePayload
		if err := e.DecodePayload(&p); err != nil {
			return err.Error()
		}
		line := fmt.Sprintf("playback %s %s (%d events)", p.RunID, p.State, p.Applied)
		if p.ContextID != nil {
			line += " context=" + *p.ContextID
		}
		return line
	default:
		return fmt.Sprintf("unknown message %q", e.Type)
	}
}
