package main

import (
	"log/slog"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"github.com/mklimuk/mira/cmd/dev/cmd"
)

func main() {
	var debug bool
	rootCmd := &cobra.Command{
		Use:           "dev",
		Short:         "build and check tool for the mira camera module tools",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			level := log.InfoLevel
			if debug {
				level = log.DebugLevel
			}
			charm := log.NewWithOptions(os.Stderr, log.Options{
				ReportTimestamp: true,
				TimeFormat:      time.Kitchen,
				Prefix:          "dev",
				Level:           level,
			})
			charm.SetColorProfile(termenv.ANSI256)
			slog.SetDefault(slog.New(charm))
		},
	}
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "debug logging")
	rootCmd.AddCommand(cmd.BuildCmd())
	rootCmd.AddCommand(cmd.CheckCmds()...)

	if err := rootCmd.Execute(); err != nil {
		slog.Error("dev command failed", "error", err)
		os.Exit(1)
	}
}
