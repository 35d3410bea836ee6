package main

import (
	"fmt"
	"strconv"

	"github.com/urfave/cli/v2"

	"github.com/mklimuk/mira/cmd/mira/console"
	"github.com/mklimuk/mira/regmap"
)

var regCmd = cli.Command{
	Name:  "reg",
	Usage: "raw sensor register access (sensor powered for the duration of the command)",
	Subcommands: cli.Commands{
		&regReadCmd,
		&regWriteCmd,
	},
}

func parseRegister(s string) (regmap.Addr, error) {
	v, err := strconv.ParseUint(s, 0, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid register %q: %w", s, err)
	}
	return regmap.Addr(v), nil
}

var regReadCmd = cli.Command{
	Name:      "read",
	ArgsUsage: "<register>...",
	Action: func(c *cli.Context) error {
		s, err := openSensor(c)
		if err != nil {
			return console.Exit(1, "attach error: %s", console.Red(err))
		}
		ctx := commandContext(c)
		defer closeSession(ctx, s)
		if err := s.dev.Acquire(ctx); err != nil {
			return console.Exit(1, "power error: %s", console.Red(err))
		}
		defer func() { _ = s.dev.Release(ctx) }()
		m := regmap.New(s.bus, s.board.Sensor.Address)
		for _, arg := range c.Args().Slice() {
			reg, err := parseRegister(arg)
			if err != nil {
				return console.Exit(1, "%s", console.Red(err))
			}
			val, err := m.Read(ctx, reg)
			if err != nil {
				return console.Exit(1, "read error: %s", console.Red(err))
			}
			console.Printf("%s = %s\n", console.White(fmt.Sprintf("%#04x", uint16(reg))), console.Green(fmt.Sprintf("%#02x", val)))
		}
		return nil
	},
}

var regWriteCmd = cli.Command{
	Name:      "write",
	ArgsUsage: "<register> <value>",
	Action: func(c *cli.Context) error {
		if c.NArg() != 2 {
			return console.Exit(1, "usage: mira reg write <register> <value>")
		}
		reg, err := parseRegister(c.Args().Get(0))
		if err != nil {
			return console.Exit(1, "%s", console.Red(err))
		}
		val, err := strconv.ParseUint(c.Args().Get(1), 0, 8)
		if err != nil {
			return console.Exit(1, "invalid value: %s", console.Red(err))
		}
		s, err := openSensor(c)
		if err != nil {
			return console.Exit(1, "attach error: %s", console.Red(err))
		}
		ctx := commandContext(c)
		defer closeSession(ctx, s)
		if err := s.dev.Acquire(ctx); err != nil {
			return console.Exit(1, "power error: %s", console.Red(err))
		}
		defer func() { _ = s.dev.Release(ctx) }()
		if err := regmap.New(s.bus, s.board.Sensor.Address).Write(ctx, reg, byte(val)); err != nil {
			return console.Exit(1, "write error: %s", console.Red(err))
		}
		return nil
	},
}
