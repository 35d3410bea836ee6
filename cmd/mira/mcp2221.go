package main

import (
	"strconv"

	"github.com/urfave/cli/v2"

	"github.com/mklimuk/mira/adapter"
	"github.com/mklimuk/mira/cmd/mira/console"
)

var mcp2221Cmd = cli.Command{
	Name:  "mcp2221",
	Usage: "USB bridge maintenance",
	Subcommands: cli.Commands{
		&mcp2221StatusCmd,
		&mcp2221ReleaseCmd,
		&mcp2221GPIOCmd,
	},
}

func newAdapter(c *cli.Context) *adapter.MCP2221 {
	return adapter.NewMCP2221(adapter.WithIndex(c.Int("adapter")))
}

var mcp2221StatusCmd = cli.Command{
	Name: "status",
	Action: func(c *cli.Context) error {
		a := newAdapter(c)
		status, err := a.Status(commandContext(c))
		if err != nil {
			return console.Exit(1, "adapter communication error: %s", console.Red(err))
		}
		return printYAML(status)
	},
}

var mcp2221ReleaseCmd = cli.Command{
	Name:  "release",
	Usage: "cancel the current I2C transfer and release the bus",
	Action: func(c *cli.Context) error {
		a := newAdapter(c)
		status, err := a.ReleaseBus(commandContext(c))
		if err != nil {
			return console.Exit(1, "adapter communication error: %s", console.Red(err))
		}
		return printYAML(status)
	},
}

var mcp2221GPIOCmd = cli.Command{
	Name:      "gpio",
	Usage:     "read GPIO lines, or drive one when pin and level are given",
	ArgsUsage: "[<pin 0-3> <0|1>]",
	Action: func(c *cli.Context) error {
		a := newAdapter(c)
		ctx := commandContext(c)
		if c.NArg() == 2 {
			pin, err := strconv.Atoi(c.Args().Get(0))
			if err != nil {
				return console.Exit(1, "invalid pin: %s", console.Red(err))
			}
			level, err := strconv.ParseBool(c.Args().Get(1))
			if err != nil {
				return console.Exit(1, "invalid level: %s", console.Red(err))
			}
			if err := a.SetGPIO(ctx, pin, level); err != nil {
				return console.Exit(1, "gpio error: %s", console.Red(err))
			}
		}
		values, err := a.ReadGPIO(ctx)
		if err != nil {
			return console.Exit(1, "gpio error: %s", console.Red(err))
		}
		return printYAML(values)
	},
}
