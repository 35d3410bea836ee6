package power

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/mklimuk/mira"
	"github.com/mklimuk/mira/regmap"
)

// Default bus addresses of the camera module companion chips.
const (
	DefaultPMICAddress = 0x2D
	DefaultLEDAddress  = 0x53
	DefaultMCUAddress  = 0x0A
)

// Target selects the chip a rail program phase is written to.
type Target int

const (
	TargetPMIC Target = iota
	TargetMCU
	TargetLED
)

func (t Target) String() string {
	switch t {
	case TargetPMIC:
		return "pmic"
	case TargetMCU:
		return "mcu"
	case TargetLED:
		return "led"
	default:
		return fmt.Sprintf("target(%d)", int(t))
	}
}

// Phase is a named group of register writes followed by a settle delay.
type Phase struct {
	Name   string
	Target Target
	Ops    regmap.Program
	Settle time.Duration
}

// RailProgram is an ordered list of phases. The order is a hardware
// requirement and must not change.
type RailProgram []Phase

// Clone returns a deep copy, phase ops included.
func (r RailProgram) Clone() RailProgram {
	if r == nil {
		return nil
	}
	res := make(RailProgram, len(r))
	for i, phase := range r {
		phase.Ops = slices.Clone(phase.Ops)
		res[i] = phase
	}
	return res
}

const (
	pmicMasterSwitch regmap.Addr = 0x62
	masterOff        byte        = 0x00
	masterOn         byte        = 0x0D

	mcuLatch regmap.Addr = 6
)

const (
	ledRegEnable     regmap.Addr = 0x00
	ledRegBrightness regmap.Addr = 0x01
)

var railsZero = regmap.Program{
	{Addr: 0x05, Value: 0x00}, // DCDC1
	{Addr: 0x0E, Value: 0x00}, // DCDC4
	{Addr: 0x11, Value: 0x00}, // LDO1
	{Addr: 0x14, Value: 0x00}, // LDO2
	{Addr: 0x17, Value: 0x00}, // LDO3
	{Addr: 0x1A, Value: 0x00}, // LDO4
	{Addr: 0x1C, Value: 0x00}, // LDO5
	{Addr: 0x1D, Value: 0x00}, // LDO6
	{Addr: 0x1E, Value: 0x00}, // LDO7
	{Addr: 0x1F, Value: 0x00}, // LDO8
	{Addr: 0x24, Value: 0x48}, // LDO9 unlock
	{Addr: 0x20, Value: 0x00}, // LDO9
	{Addr: 0x21, Value: 0x00}, // LDO10
}

// DefaultRailProgram returns a copy of the program bringing the module rails up
// from any state: every rail is first forced to zero with the master switch
// off, then the rails are raised in voltage groups and the microcontroller
// finally releases the sensor enable line.
func DefaultRailProgram() RailProgram {
	return defaultRailProgram.Clone()
}

var defaultRailProgram = RailProgram{
	{Name: "rails zero", Target: TargetPMIC, Ops: railsZero},
	{
		Name:   "master off",
		Target: TargetPMIC,
		Ops:    regmap.Program{{Addr: pmicMasterSwitch, Value: masterOff}},
		Settle: 50 * time.Microsecond,
	},
	{
		Name:   "spare rails zero",
		Target: TargetPMIC,
		Ops: regmap.Program{
			{Addr: 0x27, Value: 0xFF}, // LDOs always on
			{Addr: 0x28, Value: 0xFF},
			{Addr: 0x29, Value: 0x00},
			{Addr: 0x2A, Value: 0x00},
			{Addr: 0x2B, Value: 0x00},
			{Addr: 0x41, Value: 0x04}, // GPIO1 low
			{Addr: 0x01, Value: 0x00}, // DCDC2
			{Addr: 0x08, Value: 0x00},
			{Addr: 0x02, Value: 0x00}, // DCDC3
			{Addr: 0x0B, Value: 0x00},
		},
		Settle: 50 * time.Microsecond,
	},
	{
		Name:   "master on",
		Target: TargetPMIC,
		Ops:    regmap.Program{{Addr: pmicMasterSwitch, Value: masterOn}},
		Settle: 50 * time.Microsecond,
	},
	{
		Name:   "rails 1v8",
		Target: TargetPMIC,
		Ops: regmap.Program{
			{Addr: 0x00, Value: 0x00}, // DCDC1 VINLDO
			{Addr: 0x04, Value: 0x34},
			{Addr: 0x06, Value: 0xBF},
			{Addr: 0x05, Value: 0xB4},
			{Addr: 0x03, Value: 0x00}, // DCDC4 VDDIO
			{Addr: 0x0D, Value: 0x34},
			{Addr: 0x0F, Value: 0xBF},
			{Addr: 0x0E, Value: 0xB4},
		},
		Settle: 50 * time.Microsecond,
	},
	{
		Name:   "rails 2v85",
		Target: TargetPMIC,
		Ops: regmap.Program{
			{Addr: 0x1A, Value: 0xB8}, // LDO4
			{Addr: 0x24, Value: 0x48},
			{Addr: 0x20, Value: 0xB9}, // LDO9 VDDHI
			{Addr: 0x21, Value: 0x00},
		},
		Settle: 700 * time.Microsecond,
	},
	{
		Name:   "rails 1v2",
		Target: TargetPMIC,
		Ops: regmap.Program{
			{Addr: 0x12, Value: 0x16}, // LDO1 VDDLO_PLL
			{Addr: 0x10, Value: 0x16},
			{Addr: 0x11, Value: 0x90},
			{Addr: 0x1C, Value: 0x90}, // LDO5 VDDLO_DIG
			{Addr: 0x1D, Value: 0x90}, // LDO6 VDDLO_ANA
		},
		Settle: 50 * time.Microsecond,
	},
	{
		Name:   "status led",
		Target: TargetPMIC,
		Ops: regmap.Program{
			{Addr: 0x42, Value: 0x15}, // GPIO2
			{Addr: 0x45, Value: 0x40}, // LEDC
			{Addr: 0x57, Value: 0x02},
			{Addr: 0x5D, Value: 0x10},
			{Addr: 0x61, Value: 0x10}, // LED sequencer
		},
	},
	{
		Name:   "sensor enable",
		Target: TargetMCU,
		Ops: regmap.Program{
			{Addr: 12, Value: 0xF7}, // port direction, LDO enable output
			{Addr: 16, Value: 0xFF}, // LDO enable high
			{Addr: 11, Value: 0xCF}, // port direction, ATB and JTAG outputs
			{Addr: 15, Value: 0xFF},
			{Addr: mcuLatch, Value: 0x01},
		},
		Settle: 50 * time.Microsecond,
	},
}

// DefaultShutdownProgram returns a copy of the program dropping the sensor
// enable line and every rail.
func DefaultShutdownProgram() RailProgram {
	return defaultShutdownProgram.Clone()
}

var defaultShutdownProgram = RailProgram{
	{
		Name:   "sensor disable",
		Target: TargetMCU,
		Ops: regmap.Program{
			{Addr: 16, Value: 0xF7},
			{Addr: mcuLatch, Value: 0x01},
		},
		Settle: 50 * time.Microsecond,
	},
	{Name: "rails zero", Target: TargetPMIC, Ops: railsZero},
	{
		Name:   "master off",
		Target: TargetPMIC,
		Ops:    regmap.Program{{Addr: pmicMasterSwitch, Value: masterOff}},
	},
}

type PMICOpts struct {
	PMICAddress byte
	MCUAddress  byte
	LEDAddress  byte
	Program     RailProgram
	Shutdown    RailProgram
	Sleep       func(time.Duration)
}

type PMICOpt func(*PMICOpts)

func WithPMICAddress(addr byte) PMICOpt {
	return func(o *PMICOpts) {
		o.PMICAddress = addr
	}
}

func WithMCUAddress(addr byte) PMICOpt {
	return func(o *PMICOpts) {
		o.MCUAddress = addr
	}
}

func WithLEDAddress(addr byte) PMICOpt {
	return func(o *PMICOpts) {
		o.LEDAddress = addr
	}
}

// WithRailProgram replaces the power up program (board variants).
func WithRailProgram(program RailProgram) PMICOpt {
	return func(o *PMICOpts) {
		o.Program = program
	}
}

func WithPMICSleep(sleep func(time.Duration)) PMICOpt {
	return func(o *PMICOpts) {
		o.Sleep = sleep
	}
}

// PMIC drives the module power management chip, the auxiliary microcontroller
// gating the sensor enable line and the illumination LED driver.
type PMIC struct {
	pmic     *regmap.Map
	mcu      *regmap.Map
	led      *regmap.Map
	program  RailProgram
	shutdown RailProgram
	sleep    func(time.Duration)
}

func NewPMIC(transport mira.I2CBus, opts ...PMICOpt) *PMIC {
	config := PMICOpts{
		PMICAddress: DefaultPMICAddress,
		MCUAddress:  DefaultMCUAddress,
		LEDAddress:  DefaultLEDAddress,
		Program:     defaultRailProgram,
		Shutdown:    defaultShutdownProgram,
		Sleep:       time.Sleep,
	}
	for _, opt := range opts {
		opt(&config)
	}
	return &PMIC{
		pmic:     regmap.New(transport, config.PMICAddress, regmap.WithAddrWidth8()),
		mcu:      regmap.New(transport, config.MCUAddress, regmap.WithAddrWidth8()),
		led:      regmap.New(transport, config.LEDAddress, regmap.WithAddrWidth8()),
		program:  config.Program.Clone(),
		shutdown: config.Shutdown.Clone(),
		sleep:    config.Sleep,
	}
}

func (p *PMIC) target(t Target) (*regmap.Map, error) {
	switch t {
	case TargetPMIC:
		return p.pmic, nil
	case TargetMCU:
		return p.mcu, nil
	case TargetLED:
		return p.led, nil
	default:
		return nil, fmt.Errorf("%w: unknown target %s", ErrConfiguration, t)
	}
}

func (p *PMIC) runPhase(ctx context.Context, phase Phase) error {
	dev, err := p.target(phase.Target)
	if err != nil {
		return err
	}
	if err := dev.Apply(ctx, phase.Ops); err != nil {
		return err
	}
	if phase.Settle > 0 {
		p.sleep(phase.Settle)
	}
	return nil
}

// PowerUp executes the rail program strictly in order and stops at the first
// failing phase. The shutdown program is then run so no rail is left raised.
func (p *PMIC) PowerUp(ctx context.Context) error {
	for _, phase := range p.program {
		if err := p.runPhase(ctx, phase); err != nil {
			err = fmt.Errorf("%w: phase %q: %w", ErrSequence, phase.Name, err)
			if derr := p.runShutdown(ctx); derr != nil {
				slog.Warn("rail unwind failed", "error", derr)
				err = errors.Join(err, fmt.Errorf("unwind: %w", derr))
			}
			return err
		}
		slog.Debug("rail phase done", "phase", phase.Name, "target", phase.Target.String())
	}
	slog.Info("module rails up", "pmic", fmt.Sprintf("%#x", p.pmic.Address()))
	return nil
}

// PowerDown executes the shutdown program. Every phase is attempted.
func (p *PMIC) PowerDown(ctx context.Context) error {
	return p.runShutdown(ctx)
}

func (p *PMIC) runShutdown(ctx context.Context) error {
	var errs []error
	for _, phase := range p.shutdown {
		if err := p.runPhase(ctx, phase); err != nil {
			errs = append(errs, fmt.Errorf("phase %q: %w", phase.Name, err))
		}
	}
	slog.Debug("module rails down", "errors", len(errs))
	return errors.Join(errs...)
}

// SetLED sets the illumination LED brightness; zero switches it off.
func (p *PMIC) SetLED(ctx context.Context, brightness byte) error {
	enable := byte(0)
	if brightness > 0 {
		enable = 1
	}
	if err := p.led.Write(ctx, ledRegBrightness, brightness); err != nil {
		return fmt.Errorf("could not set LED brightness: %w", err)
	}
	if err := p.led.Write(ctx, ledRegEnable, enable); err != nil {
		return fmt.Errorf("could not switch LED: %w", err)
	}
	return nil
}
