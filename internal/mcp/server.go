// Package mcp exposes playback and autoclick control as MCP tools over stdio.
package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"macroreel/internal/config"
	"macroreel/internal/library"
	"macroreel/internal/session"
)

// toolEntry pairs a tool definition with a handler factory.
type toolEntry struct {
	def     mcp.Tool
	handler func(*Handlers) server.ToolHandlerFunc
}

// toolRegistry maps tool names to their definitions and handler factories.
var toolRegistry = map[string]toolEntry{
	"macro_list": {
		def:     listToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleList },
	},
	"macro_play": {
		def:     playToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandlePlay },
	},
	"playback_stop": {
		def:     playbackStopToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandlePlaybackStop },
	},
	"autoclick_start": {
		def:     autoClickStartToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleAutoClickStart },
	},
	"autoclick_stop": {
		def:     autoClickStopToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleAutoClickStop },
	},
	"status": {
		def:     statusToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleStatus },
	},
}

// AllToolNames returns a list of all valid tool names.
func AllToolNames() []string {
	names := make([]string, 0, len(toolRegistry))
	for name := range toolRegistry {
		names = append(names, name)
	}
	return names
}

// NewServer creates a new MCP server with every tool registered.
func NewServer(sess *session.Context, store *library.Store, cfg *config.Manager, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"macroreel",
		version,
		server.WithToolCapabilities(true),
	)

	h := NewHandlers(sess, store, cfg)
	for _, entry := range toolRegistry {
		s.AddTool(entry.def, entry.handler(h))
	}
	return s
}

// Run serves the tools on stdin/stdout until the client disconnects.
func Run(sess *session.Context, store *library.Store, cfg *config.Manager, version string) error {
	return server.ServeStdio(NewServer(sess, store, cfg, version))
}
