package main

import (
	"errors"
	"log/slog"
	"os"
	"time"

	chlog "github.com/charmbracelet/log"
	"github.com/muesli/termenv"
	"github.com/urfave/cli/v2"

	"github.com/mklimuk/mira/buildinfo"
)

func main() {
	os.Exit(run())
}

func run() int {
	app := cli.NewApp()
	app.Name = "mira"
	app.EnableBashCompletion = true
	app.Version = buildinfo.String()
	app.Usage = "Mira220 camera module control"
	app.Flags = []cli.Flag{
		&cli.BoolFlag{
			Name:  "verbose",
			Usage: "enable verbose logging and bus tracing",
		},
		&cli.StringFlag{
			Name:    "board",
			Aliases: []string{"b"},
			Usage:   "board description file (yaml)",
			EnvVars: []string{"MIRA_BOARD"},
		},
		&cli.StringFlag{
			Name:  "backend",
			Usage: "override bus backend: periph, nanopi, dev or mcp2221",
		},
		&cli.StringFlag{
			Name:  "device",
			Usage: "override bus device (periph bus name or /dev/i2c-N)",
		},
		&cli.IntFlag{
			Name:  "adapter",
			Value: -1,
			Usage: "USB bridge id as listed by usb detect, required when several are attached",
		},
	}
	app.Before = func(ctx *cli.Context) error {
		setupLogging(ctx.Bool("verbose"))
		return nil
	}
	app.Commands = cli.Commands{
		&modesCmd,
		&controlsCmd,
		&streamCmd,
		&powerCmd,
		&regCmd,
		&usbCmd,
		&mcp2221Cmd,
	}
	return exitCode(app.Run(os.Args))
}

// setupLogging routes slog through charm on stderr so command output on
// stdout stays parseable.
func setupLogging(verbose bool) {
	level := chlog.InfoLevel
	if verbose {
		level = chlog.DebugLevel
	}
	charm := chlog.NewWithOptions(os.Stderr, chlog.Options{
		ReportCaller:    verbose,
		ReportTimestamp: true,
		TimeFormat:      time.DateTime,
		Level:           level,
	})
	charm.SetColorProfile(termenv.TrueColor)
	slog.SetDefault(slog.New(charm))
}

// exitCode maps a command error to the process exit status. Exit coders
// already carry their message, anything else is logged here.
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var exerr cli.ExitCoder
	if errors.As(err, &exerr) {
		return exerr.ExitCode()
	}
	slog.Error("command failed", "error", err)
	return 1
}
