// smpctl queries mcumgr-enabled devices over SMP/UDP.
//
// Usage:
//
//	smpctl [global options] <command> [host] [args]
//
// The host may be given as the first argument of any device command or as
// `host` in the config file. Exit codes: 0 success, 1 failure, 2 usage.
//
// Examples:
//
//	smpctl info 192.0.2.1
//	smpctl --port 1337 info 192.0.2.1 --verbose
//	smpctl echo 192.0.2.1 "test message"
//	smpctl --config smpctl.toml image-state
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	logs "github.com/danmuck/smpctl/internal/logging"
	"github.com/urfave/cli/v3"
)

var (
	Version   = "0.1.0-dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

func main() {
	os.Exit(run())
}

func createApp() *cli.Command {
	return &cli.Command{
		Name:    "smpctl",
		Usage:   "query mcumgr devices over SMP/UDP",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildTime),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    flagConfig,
				Aliases: []string{"c"},
				Usage:   "TOML config file",
			},
			&cli.IntFlag{
				Name:    flagPort,
				Aliases: []string{"p"},
				Usage:   "UDP port (default 1337)",
			},
			&cli.DurationFlag{
				Name:    flagTimeout,
				Aliases: []string{"t"},
				Usage:   "per-request timeout (default 5s)",
			},
			&cli.IntFlag{
				Name:  flagRetries,
				Usage: "attempts for the OS info query in a report (default 3)",
			},
			&cli.StringFlag{
				Name:  flagLogLevel,
				Usage: "trace|debug|info|warn|error",
			},
			&cli.StringFlag{
				Name:  flagMetricsTextfile,
				Usage: "write Prometheus metrics to this file on exit",
			},
		},
		Commands: createCommands(),
		ExitErrHandler: func(_ context.Context, _ *cli.Command, err error) {
			if _, ok := err.(cli.ExitCoder); ok {
				fmt.Fprintln(os.Stderr, err)
			}
		},
	}
}

func run() int {
	logs.ConfigureRuntime()
	return runArgs(os.Args, os.Stdout)
}

func runArgs(args []string, stdout io.Writer) int {
	app := createApp()
	app.Writer = stdout

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return exitCode(app.Run(ctx, args))
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exitError
	if errors.As(err, &exitErr) {
		return exitErr.code
	}
	var usageErr *usageError
	if errors.As(err, &usageErr) {
		fmt.Fprintf(os.Stderr, "usage error: %v\n", usageErr)
		return 2
	}
	if isCLIUsageError(err) {
		return 2
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	return 1
}

// isCLIUsageError matches the parse errors urfave/cli returns for unknown
// flags, commands, and bad flag values.
func isCLIUsageError(err error) bool {
	msg := err.Error()
	for _, marker := range []string{
		"flag provided but not defined",
		"No help topic for",
		"invalid value",
		"flag needs an argument",
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
