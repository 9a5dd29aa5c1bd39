package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/danmuck/smpctl/internal/config"
	"github.com/danmuck/smpctl/internal/device"
	logs "github.com/danmuck/smpctl/internal/logging"
	"github.com/danmuck/smpctl/internal/mcumgr"
	"github.com/danmuck/smpctl/internal/observability"
	"github.com/danmuck/smpctl/internal/protocol/session"
	"github.com/urfave/cli/v3"
)

const (
	flagConfig          = "config"
	flagPort            = "port"
	flagTimeout         = "timeout"
	flagRetries         = "retries"
	flagLogLevel        = "log-level"
	flagMetricsTextfile = "metrics-textfile"
)

// exitError carries an exit code whose message was already printed.
type exitError struct {
	code int
}

func (e *exitError) Error() string { return fmt.Sprintf("exit status %d", e.code) }

type usageError struct {
	msg string
}

func (e *usageError) Error() string { return e.msg }

func usagef(format string, args ...any) error {
	return &usageError{msg: fmt.Sprintf(format, args...)}
}

func createCommands() []*cli.Command {
	return []*cli.Command{
		createInfoCommand(),
		createEchoCommand(),
		createOSInfoCommand(),
		createBootloaderInfoCommand(),
		createImageStateCommand(),
		createMapCommand("slot-info", "show image slot layout", func(ctx context.Context, c *mcumgr.Client, w io.Writer) error {
			m, err := c.SlotInfo(ctx)
			if err != nil {
				return err
			}
			renderSlots(w, device.ParseSlotInfo(m))
			return nil
		}),
		createMapCommand("params", "show mcumgr buffer parameters", func(ctx context.Context, c *mcumgr.Client, w io.Writer) error {
			m, err := c.MgmtParams(ctx)
			if err != nil {
				return err
			}
			renderParams(w, device.ParseParams(m))
			return nil
		}),
		createMapCommand("datetime", "show the device clock", func(ctx context.Context, c *mcumgr.Client, w io.Writer) error {
			dt, err := c.DateTime(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintln(w, dt)
			return nil
		}),
		createMapCommand("task-stats", "show per-task scheduler statistics", func(ctx context.Context, c *mcumgr.Client, w io.Writer) error {
			m, err := c.TaskStats(ctx)
			if err != nil {
				return err
			}
			renderTasks(w, device.ParseTaskStats(m))
			return nil
		}),
		createResetCommand(),
		createConfigCommand(),
	}
}

func createInfoCommand() *cli.Command {
	return &cli.Command{
		Name:      "info",
		Usage:     "print the full device report",
		ArgsUsage: "[host]",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "include task statistics"},
			&cli.BoolFlag{Name: "reset", Usage: "reset the device after the report"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			host, _, err := splitHost(cmd, 0)
			if err != nil {
				return err
			}
			return withClient(ctx, cmd, host, func(ctx context.Context, c *mcumgr.Client, cfg config.ClientConfig) error {
				w := output(cmd)
				fmt.Fprintf(w, "Connecting to %s...\n", config.Address(cfg))

				opts := device.DefaultOptions()
				opts.Verbose = cmd.Bool("verbose")
				opts.OSInfoRetry = config.RetryConfig(cfg)
				report, err := device.Collect(ctx, c, opts)
				renderReport(w, config.Address(cfg), report)
				if err != nil {
					return err
				}

				if !cmd.Bool("reset") {
					return nil
				}
				renderSection(w, "Device Reset")
				fmt.Fprintln(w, "Sending reset command...")
				if _, err := c.Reset(ctx, false); err != nil {
					return fmt.Errorf("reset: %w", err)
				}
				fmt.Fprintln(w, "Reset command sent successfully")
				return nil
			})
		},
	}
}

func createEchoCommand() *cli.Command {
	return &cli.Command{
		Name:      "echo",
		Usage:     "send an echo request",
		ArgsUsage: "[host] <message>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			host, rest, err := splitHost(cmd, 1)
			if err != nil {
				return err
			}
			return withClient(ctx, cmd, host, func(ctx context.Context, c *mcumgr.Client, _ config.ClientConfig) error {
				got, err := c.Echo(ctx, rest[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(output(cmd), "Echo response: %s\n", got)
				return nil
			})
		},
	}
}

func createOSInfoCommand() *cli.Command {
	return &cli.Command{
		Name:      "os-info",
		Usage:     "show OS and application info",
		ArgsUsage: "[host]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Usage: "field letters (snrvbmpioah)", Value: mcumgr.FormatAll},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			host, _, err := splitHost(cmd, 0)
			if err != nil {
				return err
			}
			return withClient(ctx, cmd, host, func(ctx context.Context, c *mcumgr.Client, _ config.ClientConfig) error {
				out, err := c.OSInfo(ctx, cmd.String("format"))
				if err != nil {
					return err
				}
				fmt.Fprintln(output(cmd), out)
				return nil
			})
		},
	}
}

func createBootloaderInfoCommand() *cli.Command {
	return &cli.Command{
		Name:      "bootloader-info",
		Usage:     "show bootloader name and MCUboot mode",
		ArgsUsage: "[host]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "query", Aliases: []string{"q"}, Usage: "raw query string; prints the reply as is"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			host, _, err := splitHost(cmd, 0)
			if err != nil {
				return err
			}
			return withClient(ctx, cmd, host, func(ctx context.Context, c *mcumgr.Client, _ config.ClientConfig) error {
				w := output(cmd)
				if q := cmd.String("query"); q != "" {
					m, err := c.BootloaderInfo(ctx, q)
					if err != nil {
						return err
					}
					renderMap(w, m)
					return nil
				}
				info, err := c.BootloaderInfo(ctx, "")
				if err != nil {
					return err
				}
				name, ok := info.String("bootloader")
				if !ok {
					name = "Unknown"
				}
				var mode *device.BootloaderMode
				if name == "MCUboot" {
					m, err := c.BootloaderInfo(ctx, "mode")
					if err != nil {
						return err
					}
					parsed := device.ParseBootloaderMode(m)
					mode = &parsed
				}
				renderBootloader(w, name, mode)
				return nil
			})
		},
	}
}

func createImageStateCommand() *cli.Command {
	return createMapCommand("image-state", "list images and their state flags", func(ctx context.Context, c *mcumgr.Client, w io.Writer) error {
		m, err := c.ImageState(ctx)
		if err != nil {
			return err
		}
		renderImages(w, device.ParseImageState(m))
		return nil
	})
}

func createResetCommand() *cli.Command {
	return &cli.Command{
		Name:      "reset",
		Usage:     "reset the device",
		ArgsUsage: "[host]",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "force", Usage: "ask the device to skip reset hooks"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			host, _, err := splitHost(cmd, 0)
			if err != nil {
				return err
			}
			return withClient(ctx, cmd, host, func(ctx context.Context, c *mcumgr.Client, _ config.ClientConfig) error {
				if _, err := c.Reset(ctx, cmd.Bool("force")); err != nil {
					return err
				}
				fmt.Fprintln(output(cmd), "Reset command sent successfully")
				return nil
			})
		},
	}
}

func createConfigCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "inspect configuration",
		Commands: []*cli.Command{
			{
				Name:  "show",
				Usage: "print the effective configuration as TOML",
				Action: func(_ context.Context, cmd *cli.Command) error {
					cfg, err := effectiveConfig(cmd)
					if err != nil {
						return err
					}
					out, err := config.Render(cfg)
					if err != nil {
						return err
					}
					_, err = output(cmd).Write(out)
					return err
				},
			},
		},
	}
}

// createMapCommand builds a host-only command around a single client call.
func createMapCommand(name, usage string, fn func(ctx context.Context, c *mcumgr.Client, w io.Writer) error) *cli.Command {
	return &cli.Command{
		Name:      name,
		Usage:     usage,
		ArgsUsage: "[host]",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			host, _, err := splitHost(cmd, 0)
			if err != nil {
				return err
			}
			return withClient(ctx, cmd, host, func(ctx context.Context, c *mcumgr.Client, _ config.ClientConfig) error {
				return fn(ctx, c, output(cmd))
			})
		},
	}
}

// splitHost separates an optional leading host from want required
// arguments.
func splitHost(cmd *cli.Command, want int) (string, []string, error) {
	args := cmd.Args().Slice()
	switch len(args) {
	case want:
		return "", args, nil
	case want + 1:
		return args[0], args[1:], nil
	default:
		return "", nil, usagef("%s: expected %s, got %d arguments", cmd.Name, cmd.ArgsUsage, len(args))
	}
}

// effectiveConfig loads --config and applies global flag overrides.
func effectiveConfig(cmd *cli.Command) (config.ClientConfig, error) {
	cfg, err := config.LoadClientConfig(cmd.String(flagConfig))
	if err != nil {
		if errors.Is(err, config.ErrInvalid) {
			return config.ClientConfig{}, &usageError{msg: err.Error()}
		}
		return config.ClientConfig{}, err
	}
	if cmd.IsSet(flagPort) {
		cfg.Port = cmd.Int(flagPort)
	}
	if cmd.IsSet(flagTimeout) {
		cfg.Timeout = cmd.Duration(flagTimeout)
	}
	if cmd.IsSet(flagRetries) {
		cfg.Retries = cmd.Int(flagRetries)
	}
	if cmd.IsSet(flagLogLevel) {
		cfg.LogLevel = cmd.String(flagLogLevel)
	}
	if cmd.IsSet(flagMetricsTextfile) {
		cfg.MetricsTextfile = cmd.String(flagMetricsTextfile)
	}
	if err := config.ValidateClientConfig(cfg); err != nil {
		return config.ClientConfig{}, &usageError{msg: err.Error()}
	}
	if cfg.LogLevel != "" && !logs.SetLevel(cfg.LogLevel) {
		return config.ClientConfig{}, usagef("unknown log level %q", cfg.LogLevel)
	}
	return cfg, nil
}

// withClient opens a session for the duration of fn and dumps metrics
// afterwards when a textfile is configured.
func withClient(ctx context.Context, cmd *cli.Command, host string, fn func(context.Context, *mcumgr.Client, config.ClientConfig) error) error {
	cfg, err := effectiveConfig(cmd)
	if err != nil {
		return err
	}
	if host != "" {
		cfg.Host = host
	}
	if cfg.Host == "" {
		return usagef("%s: no host given and none configured", cmd.Name)
	}

	observability.RegisterMetrics()
	defer func() {
		if err := observability.WriteTextfile(cfg.MetricsTextfile); err != nil {
			logs.Warnf("smpctl.withClient metrics textfile=%s err=%v", cfg.MetricsTextfile, err)
		}
	}()

	sess, err := session.Open(ctx, config.Address(cfg), config.SessionConfig(cfg))
	if err != nil {
		return err
	}
	defer sess.Close()
	logs.Debugf("smpctl.withClient cmd=%s remote=%s", cmd.Name, sess.RemoteAddr())

	return fn(ctx, mcumgr.New(sess).WithLogger(logs.Logger()), cfg)
}

func output(cmd *cli.Command) io.Writer {
	if w := cmd.Root().Writer; w != nil {
		return w
	}
	return os.Stdout
}
