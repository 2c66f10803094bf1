package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"macroreel/internal/config"
	"macroreel/internal/input/inputtest"
	"macroreel/internal/keys"
	"macroreel/internal/library"
	"macroreel/internal/macro"
	"macroreel/internal/notify"
	"macroreel/internal/protocol"
	"macroreel/internal/session"
)

type testEnv struct {
	srv   *Server
	ts    *httptest.Server
	hook  *inputtest.Hook
	synth *inputtest.Synth
	cfg   *config.Manager
}

func newTestEnv(t *testing.T, token string) *testEnv {
	t.Helper()
	dir := t.TempDir()

	cfg, err := config.NewManager(filepath.Join(dir, "config.json"))
	require.NoError(t, err)
	c := cfg.Get()
	c.General.APIToken = token
	require.NoError(t, cfg.Set(c))

	store, err := library.Open(dir)
	require.NoError(t, err)

	env := &testEnv{hook: inputtest.NewHook(), synth: inputtest.NewSynth(), cfg: cfg}
	hub := notify.NewHub()
	sess := session.New(session.Options{Hook: env.hook, Synth: env.synth, Observer: hub})
	env.srv = NewServer(cfg, sess, store, nil)
	hub.Subscribe(env.srv.Hub())
	env.ts = httptest.NewServer(env.srv.Handler())

	t.Cleanup(func() {
		env.ts.Close()
		env.srv.wsMgr.Close()
		sess.Close()
		env.hook.Close()
		store.Close()
	})
	return env
}

func (e *testEnv) do(t *testing.T, method, path, body string) (int, map[string]interface{}) {
	t.Helper()
	req, err := http.NewRequest(method, e.ts.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	if tok := e.cfg.Get().General.APIToken; tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]interface{}
	var raw json.RawMessage
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&raw))
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &out))
	} else {
		out = map[string]interface{}{"list": nil}
		var list []interface{}
		require.NoError(t, json.Unmarshal(raw, &list))
		out["list"] = list
	}
	return resp.StatusCode, out
}

func errorCode(body map[string]interface{}) string {
	e, _ := body["error"].(map[string]interface{})
	code, _ := e["code"].(string)
	return code
}

func TestCaptureEndpoints(t *testing.T) {
	env := newTestEnv(t, "")

	status, _ := env.do(t, "POST", "/api/capture/start", "")
	require.Equal(t, http.StatusOK, status)

	status, body := env.do(t, "POST", "/api/capture/start", "")
	require.Equal(t, http.StatusConflict, status)
	require.Equal(t, "ALREADY_ACTIVE", errorCode(body))

	env.hook.Emit(inputtest.KeyPress(keys.A))
	env.hook.Emit(inputtest.KeyRelease(keys.A))

	status, body = env.do(t, "GET", "/api/status", "")
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, true, body["recording"])
	require.Equal(t, float64(2), body["buffered_events"])

	status, body = env.do(t, "POST", "/api/capture/stop", "")
	require.Equal(t, http.StatusOK, status)
	events, ok := body["events"].([]interface{})
	require.True(t, ok)
	require.Len(t, events, 2)

	status, body = env.do(t, "POST", "/api/capture/stop", "")
	require.Equal(t, http.StatusConflict, status)
	require.Equal(t, "NOT_ACTIVE", errorCode(body))
}

func TestPlaybackEndpoints(t *testing.T) {
	env := newTestEnv(t, "")

	status, body := env.do(t, "POST", "/api/playback", `{"events":[]}`)
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, "EMPTY_MACRO", errorCode(body))

	status, body = env.do(t, "POST", "/api/playback", `{"events":[{"offset_ms":0,"kind":{"type":"jump"}}]}`)
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, "INVALID_REQUEST", errorCode(body))

	status, body = env.do(t, "POST", "/api/playback", `{"events":[{"offset_ms":0,"kind":{"type":"mouse-move","x":4,"y":5}}]}`)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, body["run_id"], 26)

	env.srv.session.WaitPlayback()
	require.Equal(t, 1, env.synth.Count("move"))

	status, _ = env.do(t, "POST", "/api/playback/stop", "")
	require.Equal(t, http.StatusOK, status)
}

func TestAutoClickEndpoints(t *testing.T) {
	env := newTestEnv(t, "")

	status, body := env.do(t, "POST", "/api/autoclick/stop", "")
	require.Equal(t, http.StatusConflict, status)
	require.Equal(t, "NOT_ACTIVE", errorCode(body))

	status, body = env.do(t, "POST", "/api/autoclick", `{"button":"sideways","interval_ms":10}`)
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, "INVALID_REQUEST", errorCode(body))

	status, _ = env.do(t, "POST", "/api/autoclick", `{"interval_ms":10}`)
	require.Equal(t, http.StatusOK, status)

	status, body = env.do(t, "POST", "/api/autoclick", "")
	require.Equal(t, http.StatusConflict, status)
	require.Equal(t, "ALREADY_ACTIVE", errorCode(body))

	require.Eventually(t, func() bool { return env.synth.Count("click") > 0 }, 2*time.Second, 5*time.Millisecond)
	status, _ = env.do(t, "POST", "/api/autoclick/stop", "")
	require.Equal(t, http.StatusOK, status)
}

func TestMacroEndpoints(t *testing.T) {
	env := newTestEnv(t, "")

	events := []macro.InputEvent{
		{OffsetMS: 0, Kind: macro.KeyDown("B")},
		{OffsetMS: 10, Kind: macro.KeyUp("B")},
	}
	payload, err := json.Marshal(saveMacroRequest{Name: "bee", Events: events})
	require.NoError(t, err)

	status, body := env.do(t, "POST", "/api/macros", string(payload))
	require.Equal(t, http.StatusCreated, status)
	id, _ := body["id"].(string)
	require.Len(t, id, 26)
	require.Nil(t, body["events"])

	status, body = env.do(t, "POST", "/api/macros", string(payload))
	require.Equal(t, http.StatusConflict, status)
	require.Equal(t, "NAME_ALREADY_EXISTS", errorCode(body))

	status, body = env.do(t, "GET", "/api/macros", "")
	require.Equal(t, http.StatusOK, status)
	require.Len(t, body["list"], 1)

	status, body = env.do(t, "GET", "/api/macros/bee", "")
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, id, body["id"])
	require.Len(t, body["events"], 2)

	status, body = env.do(t, "POST", "/api/macros/"+id+"/play", `{"playback_speed":4}`)
	require.Equal(t, http.StatusOK, status)
	require.NotEmpty(t, body["run_id"])
	env.srv.session.WaitPlayback()
	require.Equal(t, 2, env.synth.Count("key"))

	status, body = env.do(t, "POST", "/api/macros/nope/play", "")
	require.Equal(t, http.StatusNotFound, status)
	require.Equal(t, "NOT_FOUND", errorCode(body))

	status, _ = env.do(t, "DELETE", "/api/macros/"+id, "")
	require.Equal(t, http.StatusOK, status)
	status, _ = env.do(t, "DELETE", "/api/macros/"+id, "")
	require.Equal(t, http.StatusNotFound, status)
}

func TestAuth(t *testing.T) {
	env := newTestEnv(t, "s3cret")

	resp, err := http.Get(env.ts.URL + "/api/status")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, err = http.Get(env.ts.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	status, _ := env.do(t, "GET", "/api/status", "")
	require.Equal(t, http.StatusOK, status)

	resp, err = http.Post(env.ts.URL+"/api/macros", "application/json", bytes.NewBufferString(`{}`))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestWebSocketStream(t *testing.T) {
	env := newTestEnv(t, "tok")

	wsURL := "ws" + strings.TrimPrefix(env.ts.URL, "http") + "/ws?token=tok"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return env.srv.Hub().Clients() == 1 }, 2*time.Second, 10*time.Millisecond)

	status, _ := env.do(t, "POST", "/api/autoclick", `{"interval_ms":5,"burst":2}`)
	require.Equal(t, http.StatusOK, status)

	var got []protocol.MessageType
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	for len(got) < 3 {
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)
		msg, err := protocol.Decode(data)
		require.NoError(t, err)
		got = append(got, msg.Type)
	}
	require.Equal(t, []protocol.MessageType{
		protocol.TypeAutoClickTick,
		protocol.TypeAutoClickTick,
		protocol.TypeAutoClickDone,
	}, got)
}

func TestWebSocketRejectsWithoutToken(t *testing.T) {
	env := newTestEnv(t, "tok")

	wsURL := "ws" + strings.TrimPrefix(env.ts.URL, "http") + "/ws"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
