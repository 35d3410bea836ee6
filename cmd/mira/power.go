package main

import (
	"strconv"

	"github.com/urfave/cli/v2"

	"github.com/mklimuk/mira/cmd/mira/console"
)

var powerCmd = cli.Command{
	Name:  "power",
	Usage: "camera module rails",
	Subcommands: cli.Commands{
		&powerUpCmd,
		&powerDownCmd,
		&powerLEDCmd,
	},
}

func confirm(c *cli.Context, question string) bool {
	if c.Bool("yes") {
		return true
	}
	ok, err := console.Confirm(question)
	if err != nil {
		console.Errorf("prompt error: %s", err)
		return false
	}
	return ok
}

var yesFlag = &cli.BoolFlag{Name: "yes", Aliases: []string{"y"}, Usage: "do not ask for confirmation"}

var powerUpCmd = cli.Command{
	Name:  "up",
	Usage: "run the PMIC rail program",
	Flags: []cli.Flag{yesFlag},
	Action: func(c *cli.Context) error {
		s, err := openBus(c)
		if err != nil {
			return console.Exit(1, "board error: %s", console.Red(err))
		}
		ctx := commandContext(c)
		defer closeSession(ctx, s)
		if s.pmic == nil {
			return console.Exit(1, "board has no PMIC")
		}
		if !confirm(c, "raise module rails?") {
			console.PInfof(console.PictoStop, "aborted")
			return nil
		}
		if err := s.pmic.PowerUp(ctx); err != nil {
			return console.Exit(1, "power up error: %s", console.Red(err))
		}
		console.Infof("rails %s", console.Green("up"))
		return nil
	},
}

var powerDownCmd = cli.Command{
	Name:  "down",
	Usage: "drop the sensor enable line and every rail",
	Flags: []cli.Flag{yesFlag},
	Action: func(c *cli.Context) error {
		s, err := openBus(c)
		if err != nil {
			return console.Exit(1, "board error: %s", console.Red(err))
		}
		ctx := commandContext(c)
		defer closeSession(ctx, s)
		if s.pmic == nil {
			return console.Exit(1, "board has no PMIC")
		}
		if !confirm(c, "drop module rails?") {
			console.PInfof(console.PictoStop, "aborted")
			return nil
		}
		if err := s.pmic.PowerDown(ctx); err != nil {
			return console.Exit(1, "power down error: %s", console.Red(err))
		}
		console.Infof("rails %s", console.Yellow("down"))
		return nil
	},
}

var powerLEDCmd = cli.Command{
	Name:      "led",
	Usage:     "set illumination LED brightness",
	ArgsUsage: "<brightness 0-255>",
	Action: func(c *cli.Context) error {
		brightness, err := strconv.ParseUint(c.Args().First(), 0, 8)
		if err != nil {
			return console.Exit(1, "invalid brightness: %s", console.Red(err))
		}
		s, err := openBus(c)
		if err != nil {
			return console.Exit(1, "board error: %s", console.Red(err))
		}
		ctx := commandContext(c)
		defer closeSession(ctx, s)
		if s.pmic == nil {
			return console.Exit(1, "board has no PMIC")
		}
		if err := s.pmic.SetLED(ctx, byte(brightness)); err != nil {
			return console.Exit(1, "led error: %s", console.Red(err))
		}
		return nil
	},
}
