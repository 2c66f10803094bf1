package mcp

import (
	"context"
	"encoding/json"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"macroreel/internal/config"
	"macroreel/internal/input/inputtest"
	"macroreel/internal/library"
	"macroreel/internal/macro"
	"macroreel/internal/session"
)

type testEnv struct {
	h     *Handlers
	sess  *session.Context
	store *library.Store
	synth *inputtest.Synth
}

// testSetup wires handlers to a temporary library and a fake synthesizer.
func testSetup(t *testing.T) *testEnv {
	t.Helper()

	dir := t.TempDir()
	store, err := library.Open(dir)
	if err != nil {
		t.Fatalf("failed to open library: %v", err)
	}
	cfg, err := config.NewManager(filepath.Join(dir, "config.json"))
	if err != nil {
		t.Fatalf("failed to create config: %v", err)
	}

	hook := inputtest.NewHook()
	synth := inputtest.NewSynth()
	sess := session.New(session.Options{Hook: hook, Synth: synth})
	t.Cleanup(func() {
		sess.Close()
		hook.Close()
		store.Close()
	})

	return &testEnv{h: NewHandlers(sess, store, cfg), sess: sess, store: store, synth: synth}
}

// makeRequest creates a CallToolRequest with the given arguments.
func makeRequest(args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Arguments: args,
		},
	}
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatalf("no content in result")
	}
	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("content is not TextContent")
	}
	return text.Text
}

func assertErrorCode(t *testing.T, result *mcp.CallToolResult, expectedCode string) {
	t.Helper()

	if !result.IsError {
		t.Fatalf("expected error result, got success: %s", resultText(t, result))
	}
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal([]byte(resultText(t, result)), &payload); err != nil {
		t.Fatalf("failed to unmarshal error payload: %v", err)
	}
	if payload.Error.Code != expectedCode {
		t.Errorf("error code = %q, want %q", payload.Error.Code, expectedCode)
	}
}

func decodeSuccess(t *testing.T, result *mcp.CallToolResult, into any) {
	t.Helper()
	if result.IsError {
		t.Fatalf("expected success, got error: %s", resultText(t, result))
	}
	if err := json.Unmarshal([]byte(resultText(t, result)), into); err != nil {
		t.Fatalf("failed to decode result: %v", err)
	}
}

func TestToolRegistry(t *testing.T) {
	names := AllToolNames()
	sort.Strings(names)
	want := []string{"autoclick_start", "autoclick_stop", "macro_list", "macro_play", "playback_stop", "status"}
	if len(names) != len(want) {
		t.Fatalf("tools = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("tool %d = %q, want %q", i, names[i], want[i])
		}
		if toolRegistry[want[i]].def.Name != want[i] {
			t.Errorf("tool %q registered under definition %q", want[i], toolRegistry[want[i]].def.Name)
		}
	}
}

func TestHandleListAndPlay(t *testing.T) {
	env := testSetup(t)
	ctx := context.Background()

	m, err := env.store.Save("greet", []macro.InputEvent{
		{OffsetMS: 0, Kind: macro.KeyDown("H")},
		{OffsetMS: 5, Kind: macro.KeyUp("H")},
	})
	if err != nil {
		t.Fatalf("setup save failed: %v", err)
	}

	result, err := env.h.HandleList(ctx, makeRequest(nil))
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	var list struct {
		Macros []library.Macro `json:"macros"`
	}
	decodeSuccess(t, result, &list)
	if len(list.Macros) != 1 || list.Macros[0].ID != m.ID {
		t.Fatalf("macros = %+v", list.Macros)
	}

	tests := []struct {
		name      string
		args      map[string]any
		errorCode string
	}{
		{name: "by name", args: map[string]any{"id": "greet", "playback_speed": 10.0}},
		{name: "by id", args: map[string]any{"id": m.ID, "loop_count": 2.0}},
		{name: "missing id", args: map[string]any{}, errorCode: "INVALID_REQUEST"},
		{name: "unknown macro", args: map[string]any{"id": "nope"}, errorCode: "NOT_FOUND"},
		{name: "bad loop count", args: map[string]any{"id": "greet", "loop_count": "many"}, errorCode: "INVALID_REQUEST"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := env.h.HandlePlay(ctx, makeRequest(tt.args))
			if err != nil {
				t.Fatalf("handler returned error: %v", err)
			}
			if tt.errorCode != "" {
				assertErrorCode(t, result, tt.errorCode)
				return
			}
			var out struct {
				RunID string `json:"run_id"`
				Name  string `json:"name"`
			}
			decodeSuccess(t, result, &out)
			if out.RunID == "" || out.Name != "greet" {
				t.Errorf("unexpected result %+v", out)
			}
			env.sess.WaitPlayback()
		})
	}

	// 2 keys by name, 4 keys for two loops by id
	if got := env.synth.Count("key"); got != 6 {
		t.Errorf("key toggles = %d, want 6", got)
	}
}

func TestHandleAutoClick(t *testing.T) {
	env := testSetup(t)
	ctx := context.Background()

	result, err := env.h.HandleAutoClickStop(ctx, makeRequest(nil))
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	assertErrorCode(t, result, "NOT_ACTIVE")

	result, _ = env.h.HandleAutoClickStart(ctx, makeRequest(map[string]any{"button": "thumb"}))
	assertErrorCode(t, result, "INVALID_REQUEST")

	result, _ = env.h.HandleAutoClickStart(ctx, makeRequest(map[string]any{"button": "right", "interval_ms": 5.0, "burst": 3.0}))
	var started struct {
		Started bool                   `json:"started"`
		Request macro.AutoClickRequest `json:"request"`
	}
	decodeSuccess(t, result, &started)
	if !started.Started || started.Request.Button != macro.ButtonRight {
		t.Errorf("unexpected start result %+v", started)
	}

	env.sess.WaitAutoClick()
	if got := env.synth.Count("click"); got != 3 {
		t.Errorf("clicks = %d, want 3", got)
	}

	// a finished burst leaves the clicker idle
	result, _ = env.h.HandleAutoClickStop(ctx, makeRequest(nil))
	assertErrorCode(t, result, "NOT_ACTIVE")

	result, _ = env.h.HandleAutoClickStart(ctx, makeRequest(map[string]any{"interval_ms": 5.0}))
	decodeSuccess(t, result, &started)
	result, _ = env.h.HandleAutoClickStart(ctx, makeRequest(nil))
	assertErrorCode(t, result, "ALREADY_ACTIVE")

	var status macro.Status
	result, _ = env.h.HandleStatus(ctx, makeRequest(nil))
	decodeSuccess(t, result, &status)
	if !status.AutoClicking {
		t.Errorf("status should report the autoclicker running: %+v", status)
	}

	result, _ = env.h.HandleAutoClickStop(ctx, makeRequest(nil))
	decodeSuccess(t, result, &map[string]any{})
}

func TestHandlePlaybackStopIdle(t *testing.T) {
	env := testSetup(t)

	result, err := env.h.HandlePlaybackStop(context.Background(), makeRequest(nil))
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	decodeSuccess(t, result, &map[string]any{})

	deadline := time.Now().Add(time.Second)
	for env.sess.Status().Playing && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if env.sess.Status().Playing {
		t.Errorf("player should be idle")
	}
}
