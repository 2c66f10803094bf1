package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"macroreel/internal/macro"
)

func TestEnvelopeShape(t *testing.T) {
	data, err := json.Marshal(Message{
		Type:    TypeCaptureEvent,
		Payload: CaptureEventPayload{Event: macro.InputEvent{OffsetMS: 12, Kind: macro.KeyDown("Ctrl+A")}, KeyCount: 2},
	})
	require.NoError(t, err)
	require.JSONEq(t, `{"type":"capture_event","payload":{"event":{"offset_ms":12,"kind":{"type":"key-down","key":"Ctrl+A"}},"key_count":2,"pointer_count":0}}`, string(data))

	env, err := Decode(data)
	require.NoError(t, err)
	var p CaptureEventPayload
	require.NoError(t, env.DecodePayload(&p))
	require.Equal(t, "Ctrl+A", p.Event.Kind.Key)
	require.Equal(t, uint64(2), p.KeyCount)
}

func TestDecodeRejects(t *testing.T) {
	_, err := Decode([]byte(`not json`))
	require.Error(t, err)
	_, err = Decode([]byte(`{"payload":{}}`))
	require.Error(t, err)

	env, err := Decode([]byte(`{"type":"autoclick_tick"}`))
	require.NoError(t, err)
	require.Error(t, env.DecodePayload(&CountPayload{}))
}

func TestDescribe(t *testing.T) {
	ctx := "ctx-1"
	cases := []struct {
		msg  Message
		want string
	}{
		{Message{Type: TypeCaptureStatus, Payload: CaptureStatusPayload{State: "recording-started"}}, "capture: recording-started"},
		{Message{Type: TypeCaptureError, Payload: CaptureErrorPayload{Message: "boom"}}, "capture error: boom"},
		{Message{Type: TypeAutoClickTick, Payload: CountPayload{Count: 3}}, "autoclick 3"},
		{Message{Type: TypeAutoClickDone, Payload: CountPayload{Count: 5}}, "autoclick done after 5 clicks"},
		{Message{Type: TypePlaybackDone, Payload: PlaybackDonePayload{RunID: "r1", ContextID: &ctx, State: macro.PlaybackStopped, Applied: 4}}, "playback r1 stopped (4 events) context=ctx-1"},
		{Message{Type: "mystery"}, `unknown message "mystery"`},
	}
	for _, tc := range cases {
		data, err := json.Marshal(tc.msg)
		require.NoError(t, err)
		env, err := Decode(data)
		require.NoError(t, err)
		require.Equal(t, tc.want, env.Describe())
	}
}
