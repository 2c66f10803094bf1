// Package autoclick clicks a pointer button on a fixed cadence with optional jitter.
package autoclick

import (
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	macroerrors "macroreel/internal/errors"
	"macroreel/internal/input"
	"macroreel/internal/macro"
	"macroreel/internal/notify"
	"macroreel/internal/runctl"
)

// Options configures a Clicker.
type Options struct {
	Synth    input.Synthesizer
	Observer notify.Observer
	Logger   *slog.Logger
	// JitterSource returns a value in [0, n). Defaults to math/rand/v2.
	JitterSource func(n uint64) uint64
}

// Clicker owns at most one click worker.
type Clicker struct {
	synth    input.Synthesizer
	observer notify.Observer
	logger   *slog.Logger
	jitter   func(n uint64) uint64

	mu  sync.Mutex
	run *runctl.Handle
}

// New creates a clicker.
func New(opts Options) *Clicker {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	observer := opts.Observer
	if observer == nil {
		observer = notify.Nop{}
	}
	jitter := opts.JitterSource
	if jitter == nil {
		jitter = rand.Uint64N
	}
	return &Clicker{
		synth:    opts.Synth,
		observer: observer,
		logger:   logger.With("component", "autoclick"),
		jitter:   jitter,
	}
}

// Start launches the click worker. A run that ended on its own (burst
// reached) no longer counts as running.
func (c *Clicker) Start(req macro.AutoClickRequest) error {
	req = req.Normalized()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.run != nil && !c.run.Finished() {
		return macroerrors.NewAlreadyActive("autoclicker already running")
	}

	attrs := []any{"button", req.Button, "interval_ms", req.IntervalMS, "jitter_ms", req.JitterMS}
	if req.Burst != nil {
		attrs = append(attrs, "burst", *req.Burst)
	}
	c.logger.Info("autoclick started", attrs...)

	c.run = runctl.Spawn(func(h *runctl.Handle) {
		c.work(h, req)
	})
	return nil
}

// Stop cancels and joins the worker.
func (c *Clicker) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.run == nil || c.run.Finished() {
		c.run = nil
		return macroerrors.NewNotActive("autoclicker is not running")
	}
	c.run.Stop()
	c.run = nil
	return nil
}

// Active reports whether a click worker is running.
func (c *Clicker) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.run != nil && !c.run.Finished()
}

// Wait blocks until the current run, if any, has ended.
func (c *Clicker) Wait() {
	c.mu.Lock()
	run := c.run
	c.mu.Unlock()
	if run != nil {
		run.Join()
	}
}

// nextDelay is interval plus a uniform draw from [0, jitter]. Both are capped
// at runctl.MaxMillis, so the sum cannot wrap and the draw bound is never 0.
func nextDelay(intervalMS, jitterMS uint64, source func(uint64) uint64) time.Duration {
	ms := min(intervalMS, runctl.MaxMillis)
	if jitter := min(jitterMS, runctl.MaxMillis); jitter > 0 {
		ms += source(jitter + 1)
	}
	return runctl.Millis(ms)
}

func (c *Clicker) work(h *runctl.Handle, req macro.AutoClickRequest) {
	var count uint64
	for !h.Cancelled() {
		if err := c.synth.Click(req.Button); err != nil {
			c.logger.Warn("click failed", "error", err)
		}
		count++
		c.observer.AutoClickTick(count)

		if req.Burst != nil && count >= uint64(*req.Burst) {
			break
		}
		if !h.Sleep(nextDelay(req.IntervalMS, req.JitterMS, c.jitter)) {
			break
		}
	}
	c.logger.Info("autoclick ended", "clicks", count)
	c.observer.AutoClickDone(count)
}
