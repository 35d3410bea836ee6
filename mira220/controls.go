package mira220

import (
	"context"
	"fmt"

	"github.com/mklimuk/mira/regmap"
)

// ControlID enumerates the adjustable parameters of the sensor.
type ControlID int

const (
	ControlPixelRate ControlID = iota
	ControlVBlank
	ControlHBlank
	ControlExposure
	ControlAnalogGain
	ControlHFlip
	ControlVFlip
	ControlTestPattern
)

// controlOrder is the enumeration and hardware apply order. VBlank precedes
// exposure so the exposure limit is valid when it is written.
var controlOrder = []ControlID{
	ControlPixelRate,
	ControlVBlank,
	ControlHBlank,
	ControlExposure,
	ControlAnalogGain,
	ControlHFlip,
	ControlVFlip,
	ControlTestPattern,
}

func (id ControlID) String() string {
	switch id {
	case ControlPixelRate:
		return "pixel_rate"
	case ControlVBlank:
		return "vertical_blanking"
	case ControlHBlank:
		return "horizontal_blanking"
	case ControlExposure:
		return "exposure"
	case ControlAnalogGain:
		return "analogue_gain"
	case ControlHFlip:
		return "horizontal_flip"
	case ControlVFlip:
		return "vertical_flip"
	case ControlTestPattern:
		return "test_pattern"
	default:
		return fmt.Sprintf("control(%d)", int(id))
	}
}

// ParseControlID resolves a control by its String name.
func ParseControlID(name string) (ControlID, error) {
	for _, id := range controlOrder {
		if id.String() == name {
			return id, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnsupported, name)
}

// Test pattern menu entries.
const (
	TestPatternDisabled int64 = iota
	TestPatternVerticalGradient
)

var testPatternMenu = []string{"Disabled", "Vertical Gradient"}

// Control is a snapshot of one adjustable parameter.
type Control struct {
	ID                 ControlID `yaml:"-"`
	Name               string    `yaml:"name"`
	Min                int64     `yaml:"min"`
	Max                int64     `yaml:"max"`
	Step               int64     `yaml:"step"`
	Default            int64     `yaml:"default"`
	Value              int64     `yaml:"value"`
	ReadOnly           bool      `yaml:"read_only,omitempty"`
	LockWhileStreaming bool      `yaml:"lock_while_streaming,omitempty"`
	Menu               []string  `yaml:"menu,omitempty"`
}

func (c *Control) validate(value int64) error {
	if value < c.Min || value > c.Max {
		return fmt.Errorf("%w: %s=%d not in [%d, %d]", ErrRange, c.Name, value, c.Min, c.Max)
	}
	if c.Step > 1 && (value-c.Min)%c.Step != 0 {
		return fmt.Errorf("%w: %s=%d not a multiple of step %d", ErrRange, c.Name, value, c.Step)
	}
	return nil
}

// setRange updates limits and clamps default and value into them.
func (c *Control) setRange(lo, hi, def int64) {
	c.Min, c.Max = lo, hi
	c.Default = clamp(def, lo, hi)
	c.Value = clamp(c.Value, lo, hi)
}

func clamp(v, lo, hi int64) int64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

type controlSet map[ControlID]*Control

func newControlSet(m Mode) controlSet {
	maxExp := MaxExposure(m.RowLength, int64(m.Height), m.VBlank)
	set := controlSet{
		ControlPixelRate: {Min: PixelRate, Max: PixelRate, Step: 1, Default: PixelRate, ReadOnly: true},
		ControlVBlank:    {Min: VBlankMin, Max: VBlankMax, Step: 1, Default: m.VBlank},
		ControlHBlank:    {Min: m.HBlank, Max: m.HBlank, Step: 1, Default: m.HBlank, ReadOnly: true},
		ControlExposure:  {Min: 0, Max: maxExp, Step: 1, Default: maxExp},
		ControlAnalogGain: {
			Min: AnalogGainMin, Max: AnalogGainMax, Step: 1, Default: AnalogGainMin,
		},
		ControlHFlip: {Min: 0, Max: 1, Step: 1, LockWhileStreaming: true},
		ControlVFlip: {Min: 0, Max: 1, Step: 1, LockWhileStreaming: true},
		ControlTestPattern: {
			Min: TestPatternDisabled, Max: TestPatternVerticalGradient, Step: 1, Menu: testPatternMenu,
		},
	}
	for id, c := range set {
		c.ID = id
		c.Name = id.String()
		c.Value = c.Default
	}
	return set
}

// updateForMode resets mode dependent ranges after a format change.
func (s controlSet) updateForMode(m Mode) {
	vblank := s[ControlVBlank]
	vblank.Value = m.VBlank
	vblank.setRange(VBlankMin, VBlankMax, m.VBlank)
	s[ControlHBlank].Value = m.HBlank
	s[ControlHBlank].setRange(m.HBlank, m.HBlank, m.HBlank)
	maxExp := MaxExposure(m.RowLength, int64(m.Height), vblank.Value)
	s[ControlExposure].setRange(0, maxExp, maxExp)
}

// updateExposure recomputes the exposure limit for a vertical blank value.
func (s controlSet) updateExposure(m Mode, vblank int64) {
	exp := s[ControlExposure]
	maxExp := MaxExposure(m.RowLength, int64(m.Height), vblank)
	exp.setRange(0, maxExp, exp.Default)
}

func (s controlSet) snapshot() []Control {
	res := make([]Control, 0, len(controlOrder))
	for _, id := range controlOrder {
		c := *s[id]
		c.Menu = append([]string(nil), c.Menu...)
		res = append(res, c)
	}
	return res
}

// Controls returns a snapshot of all controls in enumeration order.
func (d *Device) Controls() []Control {
	d.mx.Lock()
	defer d.mx.Unlock()
	return d.controls.snapshot()
}

// Control returns a snapshot of one control.
func (d *Device) Control(id ControlID) (Control, error) {
	d.mx.Lock()
	defer d.mx.Unlock()
	c, ok := d.controls[id]
	if !ok {
		return Control{}, fmt.Errorf("%w: %s", ErrUnsupported, id)
	}
	return *c, nil
}

// SetControl validates and records a control value. The value reaches the
// sensor only while power is held by streaming or an explicit Acquire;
// otherwise it is kept and applied at the next stream start.
func (d *Device) SetControl(ctx context.Context, id ControlID, value int64) error {
	d.mx.Lock()
	defer d.mx.Unlock()
	if d.detached {
		return ErrDetached
	}
	c, ok := d.controls[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnsupported, id)
	}
	if c.ReadOnly {
		return fmt.Errorf("%w: %s", ErrReadOnly, c.Name)
	}
	if c.LockWhileStreaming && d.streaming {
		return fmt.Errorf("%w: %s is locked while streaming", ErrBusy, c.Name)
	}
	if err := c.validate(value); err != nil {
		return err
	}
	if id == ControlAnalogGain {
		if _, err := EncodeGain(value); err != nil {
			return err
		}
	}

	exposure := d.controls[ControlExposure]
	prev, prevExposure := *c, *exposure
	c.Value = value
	if id == ControlVBlank {
		d.controls.updateExposure(d.mode, value)
	}
	if !d.inUse() {
		return nil
	}
	err := d.writeControl(ctx, id)
	if err == nil && id == ControlVBlank && exposure.Value != prevExposure.Value {
		err = d.writeControl(ctx, ControlExposure)
	}
	if err != nil {
		*c = prev
		*exposure = prevExposure
		return fmt.Errorf("mira220: could not set %s: %w", c.Name, err)
	}
	return nil
}

// writeControl forwards the recorded value of id to the sensor.
func (d *Device) writeControl(ctx context.Context, id ControlID) error {
	value := d.controls[id].Value
	switch id {
	case ControlPixelRate, ControlHBlank:
		return nil
	case ControlVBlank:
		return d.writeBanked16(ctx, regVBlank, uint16(value))
	case ControlExposure:
		if err := d.writeBanked16(ctx, regExpTimeLo, uint16(value)); err != nil {
			return err
		}
		return d.regs.Write16(ctx, regExpTimeHi, uint16(value>>16))
	case ControlAnalogGain:
		enc, err := EncodeGain(value)
		if err != nil {
			return err
		}
		return d.writeBanked(ctx, regAnalogGain, enc)
	case ControlHFlip:
		return d.writeBanked(ctx, regHFlip, byte(value))
	case ControlVFlip:
		return d.writeBanked(ctx, regVFlip, byte(value))
	case ControlTestPattern:
		pattern := testPatternDisabled
		if value == TestPatternVerticalGradient {
			pattern = testPatternVerticalGradient
		}
		return d.writeBanked(ctx, regTestPattern, pattern)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupported, id)
	}
}

// applyControls writes every control to the sensor in enumeration order.
func (d *Device) applyControls(ctx context.Context) error {
	for _, id := range controlOrder {
		if err := d.writeControl(ctx, id); err != nil {
			return fmt.Errorf("could not apply %s: %w", id, err)
		}
	}
	return nil
}

func (d *Device) writeBanked(ctx context.Context, reg regmap.Addr, value byte) error {
	if err := d.regs.Write(ctx, regBankSel, bankOf(reg)); err != nil {
		return err
	}
	return d.regs.Write(ctx, reg, value)
}

func (d *Device) writeBanked16(ctx context.Context, reg regmap.Addr, value uint16) error {
	if err := d.regs.Write(ctx, regBankSel, bankOf(reg)); err != nil {
		return err
	}
	return d.regs.Write16(ctx, reg, value)
}
