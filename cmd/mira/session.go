package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/urfave/cli/v2"

	"github.com/mklimuk/mira"
	"github.com/mklimuk/mira/adapter"
	"github.com/mklimuk/mira/config"
	"github.com/mklimuk/mira/gpio"
	"github.com/mklimuk/mira/i2c"
	"github.com/mklimuk/mira/mira220"
	"github.com/mklimuk/mira/power"
	"github.com/mklimuk/mira/snsctx"
)

// session is the hardware described by the board file, opened for one command.
type session struct {
	board   config.Board
	bus     mira.I2CBus
	mcp     *adapter.MCP2221
	seq     *power.Sequencer
	pmic    *power.PMIC
	dev     *mira220.Device
	closers []func() error
}

func loadBoard(c *cli.Context) (config.Board, error) {
	board := config.Default()
	if path := c.String("board"); path != "" {
		var err error
		board, err = config.Load(path)
		if err != nil {
			return board, err
		}
	}
	if c.IsSet("backend") {
		board.Bus.Backend = c.String("backend")
	}
	if c.IsSet("device") {
		board.Bus.Device = c.String("device")
	}
	return board, board.Validate()
}

func commandContext(c *cli.Context) context.Context {
	return snsctx.SetVerbose(c.Context, c.Bool("verbose"))
}

// openBus opens the bus and power path without touching the sensor.
func openBus(c *cli.Context) (*session, error) {
	board, err := loadBoard(c)
	if err != nil {
		return nil, err
	}
	s := &session{board: board}
	if err := s.openTransport(c); err != nil {
		return nil, err
	}
	if err := s.openPower(); err != nil {
		_ = s.Close(commandContext(c))
		return nil, err
	}
	return s, nil
}

// openSensor additionally attaches the sensor, bringing up module rails.
func openSensor(c *cli.Context) (*session, error) {
	s, err := openBus(c)
	if err != nil {
		return nil, err
	}
	ctx := commandContext(c)
	var rails mira220.RailController
	if s.pmic != nil {
		rails = s.pmic
	}
	s.dev, err = mira220.Attach(ctx, s.bus, s.seq, s.board.SensorOptions(rails)...)
	if err != nil {
		_ = s.Close(ctx)
		return nil, err
	}
	return s, nil
}

func (s *session) openTransport(c *cli.Context) error {
	b := s.board.Bus
	switch b.Backend {
	case config.BackendPeriph:
		bus, err := i2c.NewGenericBus(b.Device)
		if err != nil {
			return err
		}
		if speed := s.board.BusSpeed(); speed > 0 {
			if err := bus.SetSpeed(speed); err != nil {
				slog.Warn("bus speed not applied", "error", err)
			}
		}
		s.bus = bus
		s.closers = append(s.closers, bus.Close)
	case config.BackendNanoPi:
		bus, err := i2c.NewNanoPiBus(b.Number)
		if err != nil {
			return err
		}
		s.bus = bus
		s.closers = append(s.closers, bus.Close)
	case config.BackendDev:
		bus := i2c.NewDevBus(b.Device)
		s.bus = bus
		s.closers = append(s.closers, bus.Close)
	case config.BackendMCP2221:
		ad := newAdapter(c)
		if err := ad.Init(); err != nil {
			return fmt.Errorf("adapter initialization error: %w", err)
		}
		s.mcp = ad
		s.bus = ad
	default:
		return fmt.Errorf("%w: unknown backend %q", config.ErrConfiguration, b.Backend)
	}
	slog.Debug("bus opened", "backend", b.Backend, "device", b.Device)
	return nil
}

func (s *session) openPower() error {
	var supplies power.Supplies
	expanders := make(map[byte]*gpio.MCP23017)
	for _, sup := range s.board.Supplies {
		if sup.AdapterGPIO != nil {
			supplies = append(supplies, adapter.NewGPIOSupply(sup.Name, s.mcp, *sup.AdapterGPIO, sup.ActiveLow))
			continue
		}
		if line := sup.Expander; line != nil {
			port, err := gpio.ParsePort(line.Port)
			if err != nil {
				return err
			}
			exp, ok := expanders[line.Address]
			if !ok {
				exp = gpio.NewMCP23017(s.bus, line.Address)
				expanders[line.Address] = exp
			}
			supplies = append(supplies, gpio.NewSupply(sup.Name, exp, port, line.Pin, sup.ActiveLow))
			continue
		}
		var opts []power.GPIOOpt
		if sup.ActiveLow {
			opts = append(opts, power.WithActiveLow())
		}
		r, err := power.GPIORegulatorByName(sup.Name, sup.GPIO, opts...)
		if err != nil {
			return err
		}
		supplies = append(supplies, r)
	}
	var clockOpts []power.ClockOpt
	if gate := s.board.Clock.Gate; gate != "" {
		pin, err := power.LookupPin(gate)
		if err != nil {
			return fmt.Errorf("clock gate: %w", err)
		}
		clockOpts = append(clockOpts, power.WithGate(pin))
	}
	clock := power.NewFixedClock(s.board.ClockRate(), clockOpts...)
	s.seq = power.NewSequencer(supplies, clock, s.board.SequencerOptions()...)
	if s.board.PMIC.Enabled {
		s.pmic = power.NewPMIC(s.bus, s.board.PMICOptions()...)
	}
	return nil
}

// Close detaches the sensor and closes the bus.
func (s *session) Close(ctx context.Context) error {
	var errs []error
	if s.dev != nil {
		errs = append(errs, s.dev.Detach(ctx))
	}
	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = append(errs, s.closers[i]())
	}
	return errors.Join(errs...)
}

func closeSession(ctx context.Context, s *session) {
	if err := s.Close(ctx); err != nil {
		slog.Error("error closing session", "error", err)
	}
}
