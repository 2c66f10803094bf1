package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/urfave/cli/v2"

	"macroreel/internal/api"
	"macroreel/internal/config"
	"macroreel/internal/errors"
	"macroreel/internal/library"
	"macroreel/internal/macro"
	"macroreel/internal/notify"
	"macroreel/internal/osutils"
	"macroreel/internal/tray"
)

// runService serves the HTTP API until interrupted. With withTray the tray
// menu owns the main goroutine and Quit ends the service.
func runService(c *cli.Context, cfgMgr *config.Manager, store *library.Store, logger *slog.Logger, withTray bool) error {
	cfg := cfgMgr.Get()
	logger.Info("macroreel service starting", "version", Version, "config", cfgMgr.Path(), "data_dir", cfgMgr.DataDir())

	if hint := osutils.CaptureHint(); hint != "" {
		logger.Warn(hint)
	}

	hub := notify.NewHub()
	sess := newPlatformSession(cfgMgr, hub, logger)
	defer sess.Close()

	hub.Subscribe(notify.Funcs{
		OnCaptureError: func(err error) {
			logger.Error("input listener failed", "error", err)
		},
		OnPlaybackDone: func(r macro.PlaybackResult) {
			logger.Info("playback done", "run_id", r.RunID, "state", r.State, "applied", r.Applied)
		},
	})

	apiServer := api.NewServer(cfgMgr, sess, store, logger)
	hub.Subscribe(apiServer.Hub())

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- apiServer.Start(cfg.General.APIPort)
	}()

	ctx, stop := interruptContext(c)
	defer stop()

	var err error
	if withTray {
		t := tray.New("macroreel", "macroreel "+Version)
		menu := tray.NewMenu(t, sess, store, func() macro.AutoClickRequest {
			current := cfgMgr.Get()
			return current.AutoClickRequest()
		}, t.Stop, logger)

		refresh := func() { menu.Refresh() }
		hub.Subscribe(notify.Funcs{
			OnCaptureStatus: func(notify.CaptureState) { refresh() },
			OnAutoClickDone: func(uint64) { refresh() },
			OnPlaybackDone:  func(macro.PlaybackResult) { refresh() },
		})
		// playback has no start notification
		go func() {
			ticker := time.NewTicker(time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					refresh()
				case <-ctx.Done():
					return
				}
			}
		}()

		trayErr := make(chan error, 1)
		go func() {
			var e error
			select {
			case <-ctx.Done():
			case e = <-serveErr:
			}
			t.Stop()
			trayErr <- e
		}()
		t.Run(nil)
		stop()
		err = <-trayErr
	} else {
		select {
		case <-ctx.Done():
		case err = <-serveErr:
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if shutdownErr := apiServer.Shutdown(shutdownCtx); shutdownErr != nil {
		logger.Warn("API server shutdown", "error", shutdownErr)
	}
	logger.Info("macroreel service stopped")

	if err != nil {
		return outputError(errors.NewInternal(err))
	}
	return nil
}
