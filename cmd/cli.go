package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"macroreel/internal/api"
	"macroreel/internal/autostart"
	"macroreel/internal/config"
	"macroreel/internal/errors"
	"macroreel/internal/library"
	"macroreel/internal/macro"
	"macroreel/internal/mcp"
	"macroreel/internal/network"
	"macroreel/internal/notify"
	"macroreel/internal/osutils"
	"macroreel/internal/protocol"
	"macroreel/internal/tray"
)

// newCLIApp creates the CLI application with all commands.
func newCLIApp() *cli.App {
	app := &cli.App{
		Name:    "macroreel",
		Usage:   "Record, replay and autoclick keyboard and mouse input",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "Config file path (default: per-user config directory)"},
		},
		Commands: []*cli.Command{
			serveCmd(),
			recordCmd(),
			playCmd(),
			clickCmd(),
			macrosCmd(),
			statusCmd(),
			watchCmd(),
			mcpCmd(),
			autostartCmd(),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// loadConfig reads the config named by --config, or the default one.
func loadConfig(c *cli.Context) (*config.Manager, error) {
	cfgMgr, err := config.NewManager(c.String("config"))
	if err != nil {
		return nil, outputError(errors.NewInternal(err))
	}
	if err := cfgMgr.Load(); err != nil {
		return nil, outputError(errors.NewInvalidRequest(err.Error()))
	}
	return cfgMgr, nil
}

// interruptContext is cancelled on Ctrl+C or SIGTERM.
func interruptContext(c *cli.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
}

// serveCmd runs the long-lived service.
func serveCmd() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the local API service (and optionally the tray menu)",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "tray", Usage: "Show a system tray menu"},
		},
		Action: func(c *cli.Context) error {
			cfgMgr, err := loadConfig(c)
			if err != nil {
				return err
			}
			logger, err := newLogger(cfgMgr.Get())
			if err != nil {
				return outputError(errors.NewInvalidRequest(err.Error()))
			}
			store, err := openStore(cfgMgr)
			if err != nil {
				return outputError(errors.NewInternal(err))
			}
			defer store.Close()

			return runService(c, cfgMgr, store, logger, c.Bool("tray"))
		},
	}
}

// errAborted reports a recording that was discarded before it could be saved.
var errAborted = errors.NewNotActive("recording aborted by the escape hotkey, nothing saved")

// recordCmd captures input into a new library macro.
func recordCmd() *cli.Command {
	return &cli.Command{
		Name:  "record",
		Usage: "Record input until Enter, Ctrl+C or --duration, then save it",
		Flags: []cli.Flag{
			&cli.DurationFlag{Name: "duration", Aliases: []string{"d"}, Usage: "Stop after this long (e.g. 10s)"},
			&cli.StringFlag{Name: "name", Aliases: []string{"n"}, Usage: "Macro name (default: timestamp)"},
		},
		Action: func(c *cli.Context) error {
			cfgMgr, err := loadConfig(c)
			if err != nil {
				return err
			}
			logger, err := newLogger(cfgMgr.Get())
			if err != nil {
				return outputError(errors.NewInvalidRequest(err.Error()))
			}
			store, err := openStore(cfgMgr)
			if err != nil {
				return outputError(errors.NewInternal(err))
			}
			defer store.Close()

			captureErr := make(chan error, 1)
			stopped := make(chan struct{}, 1)
			sess := newPlatformSession(cfgMgr, notify.Funcs{
				OnCaptureStatus: func(s notify.CaptureState) {
					if s != notify.RecordingStopped {
						return
					}
					select {
					case stopped <- struct{}{}:
					default:
					}
				},
				OnCaptureError: func(err error) {
					select {
					case captureErr <- err:
					default:
					}
				},
			}, logger)
			defer sess.Close()

			ctx, stop := interruptContext(c)
			defer stop()

			if hint := osutils.CaptureHint(); hint != "" {
				logger.Warn(hint)
			}
			if err := sess.StartCapture(); err != nil {
				return outputError(err)
			}
			fmt.Fprintln(os.Stderr, "recording... press Enter to stop")

			enter := make(chan struct{})
			go func() {
				bufio.NewReader(os.Stdin).ReadString('\n')
				close(enter)
			}()
			var timeout <-chan time.Time
			if d := c.Duration("duration"); d > 0 {
				timeout = time.After(d)
			}

			select {
			case <-enter:
			case <-timeout:
			case <-ctx.Done():
			case <-stopped:
				// the escape hotkey ends every session and drops the buffer
				return outputError(errAborted)
			case err := <-captureErr:
				if events, stopErr := sess.StopCapture(); stopErr == nil {
					logger.Warn("capture discarded", "events", len(events))
				}
				return outputError(err)
			}

			events, err := sess.StopCapture()
			if errors.Is(err, errors.ErrNotActive) {
				return outputError(errAborted)
			}
			if err != nil {
				return outputError(err)
			}
			name := c.String("name")
			if name == "" {
				name = tray.RecordingName(time.Now())
			}
			m, err := store.Save(name, events)
			if err != nil {
				return outputError(err)
			}
			m.Events = nil
			return outputJSON(c, m)
		},
	}
}

// playCmd replays a library macro and waits for it to finish.
func playCmd() *cli.Command {
	return &cli.Command{
		Name:      "play",
		Usage:     "Replay a stored macro (Ctrl+C stops it)",
		ArgsUsage: "<id|name>",
		Flags: []cli.Flag{
			&cli.Float64Flag{Name: "speed", Aliases: []string{"s"}, Usage: "Speed multiplier (default: config)"},
			&cli.IntFlag{Name: "loops", Aliases: []string{"l"}, Usage: "Number of passes (default: config)"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return outputError(errors.NewInvalidRequest("exactly one macro id or name is required"))
			}
			cfgMgr, err := loadConfig(c)
			if err != nil {
				return err
			}
			logger, err := newLogger(cfgMgr.Get())
			if err != nil {
				return outputError(errors.NewInvalidRequest(err.Error()))
			}
			store, err := openStore(cfgMgr)
			if err != nil {
				return outputError(errors.NewInternal(err))
			}
			defer store.Close()

			m, err := store.Resolve(c.Args().First())
			if err != nil {
				return outputError(err)
			}
			req := playbackRequest(cfgMgr.Get(), m, c)

			done := make(chan macro.PlaybackResult, 1)
			sess := newPlatformSession(cfgMgr, notify.Funcs{
				OnPlaybackDone: func(r macro.PlaybackResult) { done <- r },
			}, logger)
			defer sess.Close()

			ctx, stop := interruptContext(c)
			defer stop()

			if _, err := sess.PlayMacro(req); err != nil {
				return outputError(err)
			}

			var result macro.PlaybackResult
			select {
			case result = <-done:
			case <-ctx.Done():
				sess.StopPlayback()
				result = <-done
			}
			return outputJSON(c, result)
		},
	}
}

// playbackRequest builds a request for m from the config defaults and flags.
func playbackRequest(cfg config.Config, m *library.Macro, c *cli.Context) macro.PlaybackRequest {
	req := macro.PlaybackRequest{
		Events:    m.Events,
		Speed:     cfg.Playback.DefaultSpeed,
		LoopCount: cfg.Playback.DefaultLoops,
	}
	if c.IsSet("speed") {
		req.Speed = c.Float64("speed")
	}
	if c.IsSet("loops") {
		req.LoopCount = c.Int("loops")
	}
	id := m.ID
	req.ContextID = &id
	return req
}

// clickCmd runs the autoclicker in the foreground.
func clickCmd() *cli.Command {
	return &cli.Command{
		Name:  "click",
		Usage: "Click periodically until --burst clicks or Ctrl+C",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "button", Aliases: []string{"b"}, Usage: "left, right or middle (default: config)"},
			&cli.Uint64Flag{Name: "interval", Aliases: []string{"i"}, Usage: "Milliseconds between clicks (default: config)"},
			&cli.Uint64Flag{Name: "jitter", Aliases: []string{"j"}, Usage: "Random extra delay in milliseconds (default: config)"},
			&cli.UintFlag{Name: "burst", Usage: "Stop after this many clicks"},
		},
		Action: func(c *cli.Context) error {
			cfgMgr, err := loadConfig(c)
			if err != nil {
				return err
			}
			logger, err := newLogger(cfgMgr.Get())
			if err != nil {
				return outputError(errors.NewInvalidRequest(err.Error()))
			}

			cfg := cfgMgr.Get()
			req, err := autoClickRequest(cfg, c)
			if err != nil {
				return outputError(err)
			}

			done := make(chan uint64, 1)
			sess := newPlatformSession(cfgMgr, notify.Funcs{
				OnAutoClickDone: func(n uint64) { done <- n },
			}, logger)
			defer sess.Close()

			ctx, stop := interruptContext(c)
			defer stop()

			if err := sess.StartAutoClick(req); err != nil {
				return outputError(err)
			}

			var clicks uint64
			select {
			case clicks = <-done:
			case <-ctx.Done():
				if err := sess.StopAutoClick(); err != nil && !errors.Is(err, errors.ErrNotActive) {
					return outputError(err)
				}
				clicks = <-done
			}
			return outputJSON(c, map[string]uint64{"clicks": clicks})
		},
	}
}

// autoClickRequest builds a request from the config defaults and flags.
func autoClickRequest(cfg config.Config, c *cli.Context) (macro.AutoClickRequest, error) {
	req := cfg.AutoClickRequest()
	if c.IsSet("button") {
		req.Button = macro.ParseButton(strings.ToLower(c.String("button")))
		if req.Button == macro.ButtonUnknown {
			return req, errors.NewInvalidRequest(fmt.Sprintf("unknown button %q", c.String("button")))
		}
	}
	if c.IsSet("interval") {
		req.IntervalMS = c.Uint64("interval")
	}
	if c.IsSet("jitter") {
		req.JitterMS = c.Uint64("jitter")
	}
	if c.IsSet("burst") {
		burst := uint32(c.Uint("burst"))
		req.Burst = &burst
	}
	return req, nil
}

// macrosCmd groups the library commands.
func macrosCmd() *cli.Command {
	return &cli.Command{
		Name:  "macros",
		Usage: "Manage the macro library",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List stored macros, newest first",
				Action: withStore(func(c *cli.Context, store *library.Store) error {
					list, err := store.List()
					if err != nil {
						return outputError(err)
					}
					return outputJSON(c, list)
				}),
			},
			{
				Name:      "show",
				Usage:     "Show a macro with its events",
				ArgsUsage: "<id|name>",
				Action: withStore(func(c *cli.Context, store *library.Store) error {
					if c.NArg() != 1 {
						return outputError(errors.NewInvalidRequest("exactly one macro id or name is required"))
					}
					m, err := store.Resolve(c.Args().First())
					if err != nil {
						return outputError(err)
					}
					return outputJSON(c, m)
				}),
			},
			{
				Name:      "delete",
				Usage:     "Delete a macro",
				ArgsUsage: "<id|name>",
				Action: withStore(func(c *cli.Context, store *library.Store) error {
					if c.NArg() != 1 {
						return outputError(errors.NewInvalidRequest("exactly one macro id or name is required"))
					}
					m, err := store.Resolve(c.Args().First())
					if err != nil {
						return outputError(err)
					}
					if err := store.Delete(m.ID); err != nil {
						return outputError(err)
					}
					return outputJSON(c, map[string]string{"deleted": m.ID, "name": m.Name})
				}),
			},
			{
				Name:      "export",
				Usage:     "Write a macro's events to a JSON file (\"-\" for stdout)",
				ArgsUsage: "<id|name> <file>",
				Action: withStore(func(c *cli.Context, store *library.Store) error {
					if c.NArg() != 2 {
						return outputError(errors.NewInvalidRequest("usage: macros export <id|name> <file>"))
					}
					m, err := store.Resolve(c.Args().Get(0))
					if err != nil {
						return outputError(err)
					}
					path := c.Args().Get(1)
					if path == "-" {
						if err := store.Export(m.ID, c.App.Writer); err != nil {
							return outputError(err)
						}
						return nil
					}
					f, err := os.Create(path)
					if err != nil {
						return outputError(errors.NewInternal(err))
					}
					if err := store.Export(m.ID, f); err != nil {
						f.Close()
						return outputError(err)
					}
					if err := f.Close(); err != nil {
						return outputError(errors.NewInternal(err))
					}
					return outputJSON(c, map[string]any{"id": m.ID, "path": path, "event_count": m.EventCount})
				}),
			},
			{
				Name:      "import",
				Usage:     "Store the events of a JSON file as a new macro",
				ArgsUsage: "<file>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Aliases: []string{"n"}, Usage: "Macro name (default: file name)"},
				},
				Action: withStore(func(c *cli.Context, store *library.Store) error {
					if c.NArg() != 1 {
						return outputError(errors.NewInvalidRequest("exactly one file is required"))
					}
					path := c.Args().First()
					f, err := os.Open(path)
					if err != nil {
						return outputError(errors.NewInvalidRequest(err.Error()))
					}
					defer f.Close()

					name := c.String("name")
					if name == "" {
						name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
					}
					m, err := store.Import(f, name)
					if err != nil {
						return outputError(err)
					}
					m.Events = nil
					return outputJSON(c, m)
				}),
			},
		},
	}
}

// withStore opens the library for a command that needs nothing else.
func withStore(fn func(c *cli.Context, store *library.Store) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		cfgMgr, err := loadConfig(c)
		if err != nil {
			return err
		}
		store, err := openStore(cfgMgr)
		if err != nil {
			return outputError(errors.NewInternal(err))
		}
		defer store.Close()
		return fn(c, store)
	}
}

// statusCmd queries a running service.
func statusCmd() *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Show the state of a running service",
		Action: func(c *cli.Context) error {
			cfgMgr, err := loadConfig(c)
			if err != nil {
				return err
			}
			cfg := cfgMgr.Get()
			client := network.NewAPIClient(api.BaseURL(cfg.General.APIPort), cfg.General.APIToken)

			ctx, cancel := context.WithTimeout(c.Context, 3*time.Second)
			defer cancel()
			st, err := client.Status(ctx)
			if err != nil {
				return outputError(errors.NewInternal(err))
			}
			return outputJSON(c, st)
		},
	}
}

// watchCmd prints notifications from a running service.
func watchCmd() *cli.Command {
	return &cli.Command{
		Name:  "watch",
		Usage: "Print notifications from a running service until Ctrl+C",
		Action: func(c *cli.Context) error {
			cfgMgr, err := loadConfig(c)
			if err != nil {
				return err
			}
			cfg := cfgMgr.Get()
			logger, err := newLogger(cfg)
			if err != nil {
				return outputError(errors.NewInvalidRequest(err.Error()))
			}

			ctx, stop := interruptContext(c)
			defer stop()

			client := network.NewWSClient(fmt.Sprintf("127.0.0.1:%d", cfg.General.APIPort), cfg.General.APIToken, logger)
			client.OnMessage = func(msg protocol.Envelope) {
				fmt.Fprintf(c.App.Writer, "%s %s\n", time.Now().Format("15:04:05.000"), msg.Describe())
			}
			client.Start()
			<-ctx.Done()
			client.Close()
			return nil
		},
	}
}

// mcpCmd serves the MCP tools on stdio.
func mcpCmd() *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Serve playback and autoclick tools over MCP (stdio)",
		Action: func(c *cli.Context) error {
			cfgMgr, err := loadConfig(c)
			if err != nil {
				return err
			}
			logger, err := newLogger(cfgMgr.Get())
			if err != nil {
				return outputError(errors.NewInvalidRequest(err.Error()))
			}
			store, err := openStore(cfgMgr)
			if err != nil {
				return outputError(errors.NewInternal(err))
			}
			defer store.Close()

			sess := newPlatformSession(cfgMgr, nil, logger)
			defer sess.Close()

			if err := mcp.Run(sess, store, cfgMgr, Version); err != nil {
				return outputError(errors.NewInternal(err))
			}
			return nil
		},
	}
}

// autostartCmd manages the "serve --tray" login item.
func autostartCmd() *cli.Command {
	action := func(op string) cli.ActionFunc {
		return func(c *cli.Context) error {
			args := []string{"serve", "--tray"}
			if path := c.String("config"); path != "" {
				args = append([]string{"--config", path}, args...)
			}
			m, err := autostart.New(args...)
			if err != nil {
				return outputError(errors.NewInternal(err))
			}
			switch op {
			case "enable":
				err = m.Enable()
			case "disable":
				err = m.Disable()
			}
			if err != nil {
				return outputError(errors.NewInternal(err))
			}
			return outputJSON(c, map[string]bool{"enabled": m.IsEnabled()})
		}
	}
	return &cli.Command{
		Name:  "autostart",
		Usage: "Start the tray service at login",
		Subcommands: []*cli.Command{
			{Name: "enable", Usage: "Register the login item", Action: action("enable")},
			{Name: "disable", Usage: "Remove the login item", Action: action("disable")},
			{Name: "status", Usage: "Report whether the login item exists", Action: action("status")},
		},
	}
}

// Helper functions

// outputJSON writes v to the app's writer as indented JSON.
func outputJSON(c *cli.Context, v any) error {
	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	if mErr, ok := err.(*errors.MacroError); ok {
		return cli.Exit(fmt.Sprintf("[%s] %s", mErr.Code, mErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}
