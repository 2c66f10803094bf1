// Package api provides the local HTTP API and the websocket notification stream.
package api

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"macroreel/internal/config"
	macroerrors "macroreel/internal/errors"
	"macroreel/internal/library"
	"macroreel/internal/macro"
	"macroreel/internal/session"
)

// maxBodyBytes bounds request bodies; a long recording is a few MB of JSON.
const maxBodyBytes = 32 << 20

// Server provides HTTP API for remote control
type Server struct {
	configMgr *config.Manager
	session   *session.Context
	store     *library.Store
	wsMgr     *WSManager
	logger    *slog.Logger
	http      *http.Server
}

// NewServer creates a new API server. The returned server's Hub must be
// subscribed to the session's notifications for /ws to carry anything.
func NewServer(configMgr *config.Manager, sess *session.Context, store *library.Store, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		configMgr: configMgr,
		session:   sess,
		store:     store,
		logger:    logger.With("component", "api"),
	}
	s.wsMgr = newWSManager(s.logger)
	go s.wsMgr.start()
	return s
}

// Hub returns the websocket manager, which is a notify.Observer.
func (s *Server) Hub() *WSManager {
	return s.wsMgr
}

// Handler returns the routed handler with auth, recovery and logging applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/capture/start", s.handleCaptureStart)
	mux.HandleFunc("POST /api/capture/stop", s.handleCaptureStop)
	mux.HandleFunc("POST /api/playback", s.handlePlayback)
	mux.HandleFunc("POST /api/playback/stop", s.handlePlaybackStop)
	mux.HandleFunc("POST /api/autoclick", s.handleAutoClick)
	mux.HandleFunc("POST /api/autoclick/stop", s.handleAutoClickStop)
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("GET /api/macros", s.handleListMacros)
	mux.HandleFunc("POST /api/macros", s.handleSaveMacro)
	mux.HandleFunc("GET /api/macros/{id}", s.handleGetMacro)
	mux.HandleFunc("DELETE /api/macros/{id}", s.handleDeleteMacro)
	mux.HandleFunc("POST /api/macros/{id}/play", s.handlePlayMacro)
	mux.HandleFunc("GET /ws", s.wsMgr.handleWebSocket)
	mux.HandleFunc("GET /health", s.handleHealth)

	return s.logMiddleware(s.authMiddleware(s.recoverMiddleware(mux)))
}

// Start serves on 127.0.0.1:port until Shutdown. It blocks.
func (s *Server) Start(port int) error {
	addr := fmt.Sprintf("127.0.0.1:%d", port)
	ln, err := net.Listen("tcp4", addr)
	if err != nil {
		s.logger.Error("listen failed", "addr", addr, "error", err)
		return err
	}
	s.logger.Info("API server listening", "addr", ln.Addr().String())

	s.http = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	if err := s.http.Serve(ln); err != nil && err != http.ErrServerClosed {
		s.logger.Error("API server stopped", "error", err)
		return err
	}
	return nil
}

// Shutdown stops the HTTP server and disconnects websocket clients.
func (s *Server) Shutdown(ctx context.Context) error {
	s.wsMgr.Close()
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

// recoverMiddleware prevents panics from crashing the whole server
func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				s.logger.Error("panic recovered", "path", r.URL.Path, "panic", err)
				writeError(w, macroerrors.NewInternal(fmt.Errorf("panic: %v", err)))
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// authMiddleware checks API token if configured. Browsers cannot set headers
// on a websocket handshake, so /ws also accepts ?token=.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		token := s.configMgr.Get().General.APIToken
		if token != "" {
			ok := r.Header.Get("Authorization") == "Bearer "+token
			if !ok && r.URL.Path == "/ws" {
				ok = r.URL.Query().Get("token") == token
			}
			if !ok {
				writeJSON(w, http.StatusUnauthorized, errorBody{Error: errorDetail{Code: "UNAUTHORIZED", Message: "missing or invalid token"}})
				return
			}
		}

		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Hijack lets the websocket upgrader take over the connection.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

func (s *Server) logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"remote", r.RemoteAddr,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	mErr, ok := err.(*macroerrors.MacroError)
	if !ok {
		mErr = macroerrors.NewInternal(err)
	}
	writeJSON(w, mErr.Status(), errorBody{Error: errorDetail{Code: string(mErr.Code), Message: mErr.Message}})
}

func writeOK(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// decodeBody decodes a JSON body into v. An empty body leaves v untouched.
func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return macroerrors.NewInvalidRequest(fmt.Sprintf("invalid request body: %v", err))
	}
	return nil
}

// handleCaptureStart handles POST /api/capture/start
func (s *Server) handleCaptureStart(w http.ResponseWriter, r *http.Request) {
	if err := s.session.StartCapture(); err != nil {
		writeError(w, err)
		return
	}
	writeOK(w)
}

// handleCaptureStop handles POST /api/capture/stop and returns the events.
func (s *Server) handleCaptureStop(w http.ResponseWriter, r *http.Request) {
	events, err := s.session.StopCapture()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"events": events})
}

type playResponse struct {
	RunID string `json:"run_id"`
}

// handlePlayback handles POST /api/playback with a PlaybackRequest body.
func (s *Server) handlePlayback(w http.ResponseWriter, r *http.Request) {
	var req macro.PlaybackRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := macro.Validate(req.Events); err != nil {
		writeError(w, macroerrors.NewInvalidRequest(err.Error()))
		return
	}
	runID, err := s.session.PlayMacro(req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, playResponse{RunID: runID})
}

func (s *Server) handlePlaybackStop(w http.ResponseWriter, r *http.Request) {
	s.session.StopPlayback()
	writeOK(w)
}

// handleAutoClick handles POST /api/autoclick. An empty body uses the
// configured defaults.
func (s *Server) handleAutoClick(w http.ResponseWriter, r *http.Request) {
	cfg := s.configMgr.Get()
	req := cfg.AutoClickRequest()
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Button != "" && macro.ParseButton(string(req.Button)) == macro.ButtonUnknown {
		writeError(w, macroerrors.NewInvalidRequest("button must be left, right or middle"))
		return
	}
	if err := s.session.StartAutoClick(req); err != nil {
		writeError(w, err)
		return
	}
	writeOK(w)
}

func (s *Server) handleAutoClickStop(w http.ResponseWriter, r *http.Request) {
	if err := s.session.StopAutoClick(); err != nil {
		writeError(w, err)
		return
	}
	writeOK(w)
}

// handleStatus handles GET /api/status
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.session.Status())
}

// handleHealth handles GET /health (for monitoring)
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeOK(w)
}

func (s *Server) handleListMacros(w http.ResponseWriter, r *http.Request) {
	list, err := s.store.List()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

type saveMacroRequest struct {
	Name   string             `json:"name"`
	Events []macro.InputEvent `json:"events"`
}

// handleSaveMacro handles POST /api/macros
func (s *Server) handleSaveMacro(w http.ResponseWriter, r *http.Request) {
	var req saveMacroRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	m, err := s.store.Save(req.Name, req.Events)
	if err != nil {
		writeError(w, err)
		return
	}
	s.logger.Info("macro saved", "id", m.ID, "name", m.Name, "events", m.EventCount)
	m.Events = nil
	writeJSON(w, http.StatusCreated, m)
}

func (s *Server) handleGetMacro(w http.ResponseWriter, r *http.Request) {
	m, err := s.store.Resolve(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) handleDeleteMacro(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Delete(r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	writeOK(w)
}

type playMacroRequest struct {
	Speed     *float64 `json:"playback_speed"`
	LoopCount *int     `json:"loop_count"`
	ContextID *string  `json:"context_id"`
}

// handlePlayMacro handles POST /api/macros/{id}/play. Absent speed and loop
// count fall back to the playback section of the config.
func (s *Server) handlePlayMacro(w http.ResponseWriter, r *http.Request) {
	var body playMacroRequest
	if err := decodeBody(w, r, &body); err != nil {
		writeError(w, err)
		return
	}
	m, err := s.store.Resolve(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}

	cfg := s.configMgr.Get()
	req := macro.PlaybackRequest{
		Events:    m.Events,
		Speed:     cfg.Playback.DefaultSpeed,
		LoopCount: cfg.Playback.DefaultLoops,
		ContextID: body.ContextID,
	}
	if body.Speed != nil {
		req.Speed = *body.Speed
	}
	if body.LoopCount != nil {
		req.LoopCount = *body.LoopCount
	}
	if req.ContextID == nil {
		id := m.ID
		req.ContextID = &id
	}

	runID, err := s.session.PlayMacro(req)
	if err != nil {
		writeError(w, err)
		return
	}
	s.logger.Info("playing macro", "id", m.ID, "name", m.Name, "run_id", runID, "speed", req.Speed, "loops", req.LoopCount)
	writeJSON(w, http.StatusOK, playResponse{RunID: runID})
}

// BaseURL is the address a local client uses to reach the server on port.
func BaseURL(port int) string {
	return fmt.Sprintf("http://127.0.0.1:%d", port)
}
