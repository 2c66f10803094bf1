package mcp

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"

	"macroreel/internal/config"
	"macroreel/internal/errors"
	"macroreel/internal/library"
	"macroreel/internal/macro"
	"macroreel/internal/session"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	session *session.Context
	store   *library.Store
	cfg     *config.Manager
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(sess *session.Context, store *library.Store, cfg *config.Manager) *Handlers {
	return &Handlers{session: sess, store: store, cfg: cfg}
}

// PlayRequest represents the arguments for macro_play.
type PlayRequest struct {
	ID        string   `json:"id"`
	Speed     *float64 `json:"playback_speed,omitempty"`
	LoopCount *int     `json:"loop_count,omitempty"`
	ContextID *string  `json:"context_id,omitempty"`
}

// AutoClickStartRequest represents the arguments for autoclick_start.
type AutoClickStartRequest struct {
	Button     *string `json:"button,omitempty"`
	IntervalMS *uint64 `json:"interval_ms,omitempty"`
	JitterMS   *uint64 `json:"jitter_ms,omitempty"`
	Burst      *uint32 `json:"burst,omitempty"`
}

// HandleList handles macro_list.
func (h *Handlers) HandleList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	list, err := h.store.List()
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(map[string]any{"macros": list})
}

// HandlePlay handles macro_play.
func (h *Handlers) HandlePlay(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[PlayRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if input.ID == "" {
		return errorResult(errors.NewInvalidRequest("id is required")), nil
	}

	m, err := h.store.Resolve(input.ID)
	if err != nil {
		return errorResult(err), nil
	}

	cfg := h.cfg.Get()
	play := macro.PlaybackRequest{
		Events:    m.Events,
		Speed:     cfg.Playback.DefaultSpeed,
		LoopCount: cfg.Playback.DefaultLoops,
		ContextID: input.ContextID,
	}
	if input.Speed != nil {
		play.Speed = *input.Speed
	}
	if input.LoopCount != nil {
		play.LoopCount = *input.LoopCount
	}

	runID, err := h.session.PlayMacro(play)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(map[string]any{
		"run_id":      runID,
		"id":          m.ID,
		"name":        m.Name,
		"event_count": m.EventCount,
	})
}

// HandlePlaybackStop handles playback_stop.
func (h *Handlers) HandlePlaybackStop(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	h.session.StopPlayback()
	return successResult(map[string]any{"stopped": true})
}

// HandleAutoClickStart handles autoclick_start.
func (h *Handlers) HandleAutoClickStart(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[AutoClickStartRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	cfg := h.cfg.Get()
	click := cfg.AutoClickRequest()
	if input.Button != nil {
		click.Button = macro.ParseButton(*input.Button)
		if click.Button == macro.ButtonUnknown {
			return errorResult(errors.NewInvalidRequest("button must be left, right or middle")), nil
		}
	}
	if input.IntervalMS != nil {
		click.IntervalMS = *input.IntervalMS
	}
	if input.JitterMS != nil {
		click.JitterMS = *input.JitterMS
	}
	click.Burst = input.Burst

	if err := h.session.StartAutoClick(click); err != nil {
		return errorResult(err), nil
	}
	return successResult(map[string]any{"started": true, "request": click.Normalized()})
}

// HandleAutoClickStop handles autoclick_stop.
func (h *Handlers) HandleAutoClickStop(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := h.session.StopAutoClick(); err != nil {
		return errorResult(err), nil
	}
	return successResult(map[string]any{"stopped": true})
}

// HandleStatus handles status.
func (h *Handlers) HandleStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return successResult(h.session.Status())
}

// errorResult creates an MCP error result from any error.
// Internal errors are reported without their message so SQL text and paths
// stay out of the client.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	if mErr, ok := err.(*errors.MacroError); ok && mErr.Code != errors.ErrInternal {
		payload = map[string]any{
			"error": map[string]any{
				"code":    mErr.Code,
				"message": mErr.Message,
				"status":  mErr.Status(),
			},
		}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    errors.ErrInternal,
				"message": "an internal error occurred",
				"status":  500,
			},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
