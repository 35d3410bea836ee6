package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/mklimuk/mira/cmd/mira/console"
	"github.com/mklimuk/mira/mira220"
)

var modesCmd = cli.Command{
	Name:  "modes",
	Usage: "list sensor modes and formats",
	Action: func(c *cli.Context) error {
		w := tabwriter.NewWriter(console.Output(), 12, 0, 1, ' ', 0)
		_, _ = fmt.Fprintf(w, "NAME\tSIZE\tCROP\tROW LENGTH\tVBLANK\tHBLANK\tFRAME PERIOD\n")
		for _, m := range mira220.Modes() {
			_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\t%s\n",
				m.Name, m, m.Crop, m.RowLength, m.VBlank, m.HBlank, mira220.FramePeriod(m, m.VBlank))
		}
		_ = w.Flush()
		console.Printf("\nformats:")
		for _, f := range mira220.EnumFormats() {
			console.Printf(" %s", console.White(f))
		}
		console.Printf("\n")
		return nil
	},
}

var controlsCmd = cli.Command{
	Name:  "controls",
	Usage: "attach the sensor and print its controls for a mode",
	Flags: []cli.Flag{
		&cli.IntFlag{Name: "width", Value: 1600},
		&cli.IntFlag{Name: "height", Value: 1400},
	},
	Action: func(c *cli.Context) error {
		s, err := openSensor(c)
		if err != nil {
			return console.Exit(1, "attach error: %s", console.Red(err))
		}
		ctx := commandContext(c)
		defer closeSession(ctx, s)
		f, err := s.dev.SetFormat(ctx, mira220.Format{Code: mira220.DefaultFormat, Width: c.Int("width"), Height: c.Int("height")})
		if err != nil {
			return console.Exit(1, "format error: %s", console.Red(err))
		}
		return printYAML(map[string]any{
			"revision": s.dev.Revision(),
			"format":   f,
			"controls": s.dev.Controls(),
		})
	},
}

var streamCmd = cli.Command{
	Name:  "stream",
	Usage: "configure the sensor and stream for a while",
	Flags: []cli.Flag{
		&cli.IntFlag{Name: "width", Value: 1600},
		&cli.IntFlag{Name: "height", Value: 1400},
		&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Value: "12", Usage: "bit depth or format name"},
		&cli.StringSliceFlag{Name: "set", Usage: "control=value, applied before streaming"},
		&cli.DurationFlag{Name: "duration", Aliases: []string{"d"}, Usage: "stream duration, until interrupted when zero"},
	},
	Action: func(c *cli.Context) error {
		code, err := mira220.ParsePixelFormat(c.String("format"))
		if err != nil {
			return console.Exit(1, "%s", console.Red(err))
		}
		settings, err := parseSettings(c.StringSlice("set"))
		if err != nil {
			return console.Exit(1, "%s", console.Red(err))
		}
		s, err := openSensor(c)
		if err != nil {
			return console.Exit(1, "attach error: %s", console.Red(err))
		}
		ctx := commandContext(c)
		defer closeSession(ctx, s)

		f, err := s.dev.SetFormat(ctx, mira220.Format{Code: code, Width: c.Int("width"), Height: c.Int("height")})
		if err != nil {
			return console.Exit(1, "format error: %s", console.Red(err))
		}
		for _, set := range settings {
			if err := s.dev.SetControl(ctx, set.id, set.value); err != nil {
				return console.Exit(1, "control error: %s", console.Red(err))
			}
		}
		if err := s.dev.SetStream(ctx, true); err != nil {
			return console.Exit(1, "stream start error: %s", console.Red(err))
		}
		console.PInfof(console.PictoPin, "streaming %s %dx%d", console.White(f.Code), f.Width, f.Height)

		wait(ctx, c.Duration("duration"))

		if err := s.dev.SetStream(ctx, false); err != nil {
			return console.Exit(1, "stream stop error: %s", console.Red(err))
		}
		console.PInfof(console.PictoFinish, "stream stopped")
		return nil
	},
}

type setting struct {
	id    mira220.ControlID
	value int64
}

func parseSettings(args []string) ([]setting, error) {
	res := make([]setting, 0, len(args))
	for _, arg := range args {
		name, val, ok := strings.Cut(arg, "=")
		if !ok {
			return nil, fmt.Errorf("invalid control setting %q, expected name=value", arg)
		}
		id, err := mira220.ParseControlID(name)
		if err != nil {
			return nil, err
		}
		value, err := strconv.ParseInt(val, 0, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid value for %s: %w", name, err)
		}
		res = append(res, setting{id: id, value: value})
	}
	return res, nil
}

func wait(ctx context.Context, d time.Duration) {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	if d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}
	<-ctx.Done()
}

func printYAML(v any) error {
	enc := yaml.NewEncoder(console.Output())
	defer func() { _ = enc.Close() }()
	if err := enc.Encode(v); err != nil {
		return console.Exit(1, "encoding error: %s", console.Red(err))
	}
	return nil
}
