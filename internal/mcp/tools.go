package mcp

import "github.com/mark3labs/mcp-go/mcp"

var listToolDef = mcp.NewTool("macro_list",
	mcp.WithDescription("List the macros stored in the library, newest first. Events are omitted."),
)

var playToolDef = mcp.NewTool("macro_play",
	mcp.WithDescription("Replay a stored macro. Replaces any playback in progress and returns immediately with a run id."),
	mcp.WithString("id",
		mcp.Required(),
		mcp.Description("Macro id or name"),
	),
	mcp.WithNumber("playback_speed",
		mcp.Description("Speed multiplier, at least 0.1. Defaults to the configured speed."),
	),
	mcp.WithNumber("loop_count",
		mcp.Description("Number of passes, at least 1. Defaults to the configured loop count."),
	),
	mcp.WithString("context_id",
		mcp.Description("Opaque id echoed in the completion notification"),
	),
)

var playbackStopToolDef = mcp.NewTool("playback_stop",
	mcp.WithDescription("Stop playback. Does nothing when idle."),
)

var autoClickStartToolDef = mcp.NewTool("autoclick_start",
	mcp.WithDescription("Start clicking periodically. Unset fields use the configured defaults."),
	mcp.WithString("button",
		mcp.Description("left, right or middle"),
	),
	mcp.WithNumber("interval_ms",
		mcp.Description("Milliseconds between clicks, at least 5"),
	),
	mcp.WithNumber("jitter_ms",
		mcp.Description("Random extra delay of up to this many milliseconds"),
	),
	mcp.WithNumber("burst",
		mcp.Description("Stop after this many clicks"),
	),
)

var autoClickStopToolDef = mcp.NewTool("autoclick_stop",
	mcp.WithDescription("Stop the autoclicker. Fails with NOT_ACTIVE when it is not running."),
)

var statusToolDef = mcp.NewTool("status",
	mcp.WithDescription("Report whether recording, playback and the autoclicker are active."),
)
