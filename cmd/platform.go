package main

import (
	"log/slog"
	"os"

	"macroreel/internal/config"
	"macroreel/internal/hotkey"
	"macroreel/internal/input"
	"macroreel/internal/library"
	"macroreel/internal/logging"
	"macroreel/internal/notify"
	"macroreel/internal/session"
)

// newLogger builds the process logger from the general config section.
func newLogger(cfg config.Config) (*slog.Logger, error) {
	logger, err := logging.New(logging.Options{
		Level:  cfg.General.LogLevel,
		Format: cfg.General.LogFormat,
		Output: os.Stderr,
	})
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)
	return logger, nil
}

// openStore opens the macro library in the configured data directory.
func openStore(cfgMgr *config.Manager) (*library.Store, error) {
	return library.Open(cfgMgr.DataDir())
}

// newPlatformSession wires a session to the real listener, injector and key
// sampler. The escape hotkey is matched against the listener's key stream,
// so the listener is installed up front whenever one is configured.
func newPlatformSession(cfgMgr *config.Manager, observer notify.Observer, logger *slog.Logger) *session.Context {
	hk := hotkey.NewManager(logger)
	sess := session.New(session.Options{
		Hook:     input.NewListener(),
		Synth:    input.NewInjector(),
		Sampler:  input.PlatformSampler(),
		Observer: observer,
		RawTap:   hk.Feed,
		Logger:   logger,
	})

	register := func() {
		hk.Clear()
		combo := cfgMgr.Get().General.EscapeHotkey
		if combo == "" {
			return
		}
		if _, err := hk.Register(combo, func() {
			logger.Warn("escape hotkey pressed, stopping everything", "hotkey", combo)
			sess.StopAll()
		}); err != nil {
			logger.Warn("escape hotkey not registered", "hotkey", combo, "error", err)
			return
		}
		sess.EnsureListener()
	}
	register()
	cfgMgr.RegisterChangeCallback(register)

	return sess
}
