// Package player replays recorded events with their original timing.
package player

import (
	"errors"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	macroerrors "macroreel/internal/errors"
	"macroreel/internal/input"
	"macroreel/internal/keys"
	"macroreel/internal/macro"
	"macroreel/internal/notify"
	"macroreel/internal/runctl"
)

// Options configures a Player.
type Options struct {
	Synth    input.Synthesizer
	Observer notify.Observer
	Logger   *slog.Logger
}

// Player runs at most one playback worker at a time.
type Player struct {
	synth    input.Synthesizer
	observer notify.Observer
	logger   *slog.Logger

	mu  sync.Mutex
	run *runctl.Handle
}

// New creates a player.
func New(opts Options) *Player {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	observer := opts.Observer
	if observer == nil {
		observer = notify.Nop{}
	}
	return &Player{
		synth:    opts.Synth,
		observer: observer,
		logger:   logger.With("component", "player"),
	}
}

// Play starts replaying req in the background and returns the run id. Any
// playback already running is stopped and joined first.
func (p *Player) Play(req macro.PlaybackRequest) (string, error) {
	if len(req.Events) == 0 {
		return "", macroerrors.NewEmptyMacro()
	}
	req = req.Normalized()
	req.Events = macro.Clone(req.Events)
	runID := ulid.Make().String()

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.run != nil {
		p.run.Stop()
		p.run = nil
	}

	p.logger.Info("playback started",
		"run_id", runID,
		"events", len(req.Events),
		"speed", req.Speed,
		"loops", req.LoopCount,
	)
	p.run = runctl.Spawn(func(h *runctl.Handle) {
		p.work(h, runID, req)
	})
	return runID, nil
}

// Stop cancels and joins the running playback. It is a no-op when idle.
func (p *Player) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.run == nil {
		return
	}
	p.run.Stop()
	p.run = nil
}

// Active reports whether a playback worker is still running.
func (p *Player) Active() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.run != nil && !p.run.Finished()
}

// Wait blocks until the current playback, if any, has ended.
func (p *Player) Wait() {
	p.mu.Lock()
	run := p.run
	p.mu.Unlock()
	if run != nil {
		run.Join()
	}
}

// Delay is the wait before an event at offset when the previous one was at
// last, scaled by speed and rounded to whole milliseconds. It saturates at
// runctl.MaxMillis.
func Delay(offset, last uint64, speed float64) time.Duration {
	var raw uint64
	if offset > last {
		raw = offset - last
	}
	ms := math.Round(float64(raw) / speed)
	if ms >= float64(runctl.MaxMillis) {
		return runctl.Millis(runctl.MaxMillis)
	}
	return time.Duration(ms) * time.Millisecond
}

func (p *Player) work(h *runctl.Handle, runID string, req macro.PlaybackRequest) {
	result := macro.PlaybackResult{
		RunID:     runID,
		ContextID: req.ContextID,
		State:     macro.PlaybackFinished,
	}

loops:
	for loop := 0; loop < req.LoopCount; loop++ {
		var last uint64
		for _, ev := range req.Events {
			if !h.Sleep(Delay(ev.OffsetMS, last, req.Speed)) {
				result.State = macro.PlaybackStopped
				break loops
			}
			p.apply(ev.Kind)
			result.Applied++
			last = ev.OffsetMS
		}
	}

	p.logger.Info("playback ended", "run_id", runID, "state", result.State, "applied", result.Applied)
	p.observer.PlaybackDone(result)
}

func (p *Player) apply(kind macro.EventKind) {
	var err error
	switch kind.Type {
	case macro.KindPointerMove:
		err = p.synth.MoveTo(kind.X, kind.Y)
	case macro.KindPointerButtonDown:
		err = p.synth.ButtonToggle(kind.Button, true)
	case macro.KindPointerButtonUp:
		err = p.synth.ButtonToggle(kind.Button, false)
	case macro.KindKeyDown:
		err = p.applyKey(kind.Key, true)
	case macro.KindKeyUp:
		err = p.applyKey(kind.Key, false)
	case macro.KindScroll:
		if kind.DeltaY != 0 {
			err = p.synth.Scroll(0, kind.DeltaY)
		}
		if kind.DeltaX != 0 {
			err = errors.Join(err, p.synth.Scroll(kind.DeltaX, 0))
		}
	}
	if err != nil {
		p.logger.Warn("synthesis failed", "event", kind.String(), "error", err)
	}
}

// applyKey toggles the key named by the final token of label. A press
// whose token has no key is typed as text instead; its release is dropped.
func (p *Player) applyKey(label string, down bool) error {
	k, token, ok := keys.SynthKey(label)
	if ok {
		return p.synth.KeyToggle(k, down)
	}
	if !down {
		return nil
	}
	if token == "" || token == keys.Name(keys.Unknown) {
		p.logger.Debug("skipping key", "error", macroerrors.NewUnmappedKey(label))
		return nil
	}
	p.logger.Debug("typing unmapped key as text", "error", macroerrors.NewUnmappedKey(label))
	return p.synth.TypeText(token)
}
