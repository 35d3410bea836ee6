package cmd

import (
	"fmt"

	"github.com/gophertribe/devtool/test"
	"github.com/spf13/cobra"
)

// CheckCmds returns the test and lint commands. Tests run against the
// recording bus, no module needs to be connected.
func CheckCmds() []*cobra.Command {
	return []*cobra.Command{
		check("test", "Run unit tests", test.Test),
		check("lint", "Run linters", test.Lint),
	}
}

func check(use, short string, run func() error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := run(); err != nil {
				return fmt.Errorf("%s failed: %w", use, err)
			}
			return nil
		},
	}
}
