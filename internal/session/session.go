// Package session is the process-wide coordinator every command surface calls into.
package session

import (
	"log/slog"

	"macroreel/internal/autoclick"
	macroerrors "macroreel/internal/errors"
	"macroreel/internal/input"
	"macroreel/internal/macro"
	"macroreel/internal/notify"
	"macroreel/internal/player"
	"macroreel/internal/recorder"
)

// Options wires a Context to the platform and to its notification sink.
type Options struct {
	Hook     input.Hook
	Synth    input.Synthesizer
	Sampler  input.KeySampler
	Observer notify.Observer
	// RawTap receives every key event seen by the listener, see recorder.Options.
	RawTap func(input.RawEvent)
	Logger *slog.Logger
}

// Context owns one recorder, one player and one clicker.
type Context struct {
	recorder *recorder.Recorder
	player   *player.Player
	clicker  *autoclick.Clicker
	observer notify.Observer
	logger   *slog.Logger
}

// New builds an independent context. Nothing is installed until the first
// capture or an explicit EnsureListener.
func New(opts Options) *Context {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	observer := opts.Observer
	if observer == nil {
		observer = notify.Nop{}
	}
	return &Context{
		recorder: recorder.New(recorder.Options{
			Hook:    opts.Hook,
			Sampler: opts.Sampler,
			RawTap:  opts.RawTap,
			Logger:  logger,
		}),
		player: player.New(player.Options{
			Synth:    opts.Synth,
			Observer: observer,
			Logger:   logger,
		}),
		clicker: autoclick.New(autoclick.Options{
			Synth:    opts.Synth,
			Observer: observer,
			Logger:   logger,
		}),
		observer: observer,
		logger:   logger.With("component", "session"),
	}
}

// StartCapture begins recording.
func (c *Context) StartCapture() error {
	if err := c.recorder.Start(c.observer); err != nil {
		return err
	}
	c.observer.CaptureStatus(notify.RecordingStarted)
	return nil
}

// StopCapture ends recording and returns the captured events.
func (c *Context) StopCapture() ([]macro.InputEvent, error) {
	events, err := c.recorder.Stop()
	if err != nil {
		return nil, err
	}
	c.observer.CaptureStatus(notify.RecordingStopped)
	return events, nil
}

// PlayMacro starts playback, replacing any run in progress. Completion is
// reported through the observer.
func (c *Context) PlayMacro(req macro.PlaybackRequest) (string, error) {
	return c.player.Play(req)
}

// StopPlayback stops playback. Stopping an idle player is not an error.
func (c *Context) StopPlayback() {
	c.player.Stop()
}

// StartAutoClick starts the autoclicker.
func (c *Context) StartAutoClick(req macro.AutoClickRequest) error {
	return c.clicker.Start(req)
}

// StopAutoClick stops the autoclicker.
func (c *Context) StopAutoClick() error {
	return c.clicker.Stop()
}

// Status reports the state of every engine.
func (c *Context) Status() macro.Status {
	return macro.Status{
		Capturing:     c.recorder.Active(),
		BufferedCount: c.recorder.Buffered(),
		AutoClicking:  c.clicker.Active(),
		Playing:       c.player.Active(),
	}
}

// StopAll halts playback and autoclick and discards any capture in progress.
func (c *Context) StopAll() {
	c.player.Stop()
	if err := c.clicker.Stop(); err != nil && !macroerrors.Is(err, macroerrors.ErrNotActive) {
		c.logger.Warn("stopping autoclick", "error", err)
	}
	if c.recorder.Active() {
		if events, err := c.StopCapture(); err == nil {
			c.logger.Info("capture discarded", "events", len(events))
		}
	}
}

// EnsureListener installs the global listener without starting capture.
func (c *Context) EnsureListener() {
	c.recorder.EnsureListener()
}

// WaitPlayback blocks until the current playback has ended.
func (c *Context) WaitPlayback() { c.player.Wait() }

// WaitAutoClick blocks until the current autoclick run has ended.
func (c *Context) WaitAutoClick() { c.clicker.Wait() }

// Close stops every engine and the key sampler.
func (c *Context) Close() {
	c.StopAll()
	c.recorder.Close()
}
