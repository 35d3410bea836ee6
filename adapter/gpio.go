package adapter

import (
	"context"
	"fmt"
)

// GPIOCount is the number of general purpose lines (GP0..GP3).
const GPIOCount = 4

type GPIOMode byte

const (
	GPIOModeOut GPIOMode = 0x00
	GPIOModeIn  GPIOMode = 0x01
	// GPIOModeUnassigned marks a line set to one of its dedicated functions.
	GPIOModeUnassigned GPIOMode = 0xEE
)

func (m GPIOMode) String() string {
	switch m {
	case GPIOModeIn:
		return "INPUT"
	case GPIOModeOut:
		return "OUTPUT"
	default:
		return "UNASSIGNED"
	}
}

func (m GPIOMode) MarshalYAML() (any, error) {
	return m.String(), nil
}

// GPIOOutput changes one GPIO line. Nil fields are left untouched.
type GPIOOutput struct {
	Value     *bool
	Direction *GPIOMode
}

type GPIOLine struct {
	Mode  GPIOMode `yaml:"mode"`
	Value bool     `yaml:"value"`
}

// SetGPIOOutput changes output values and directions of GP0..GP3 (index in outputs).
func (d *MCP2221) SetGPIOOutput(ctx context.Context, outputs [GPIOCount]GPIOOutput) error {
	d.mx.Lock()
	defer d.mx.Unlock()
	d.prepare(cmdSetGPIO)
	// per line: alter value, value, alter direction, direction
	for i, out := range outputs {
		field := d.request[2+i*4 : 6+i*4]
		if out.Value != nil {
			field[0] = 0x01
			if *out.Value {
				field[1] = 0x01
			}
		}
		if out.Direction != nil {
			field[2] = 0x01
			field[3] = byte(*out.Direction)
		}
	}
	if err := d.send(ctx); err != nil {
		return fmt.Errorf("set GPIO command failed: %w", err)
	}
	if d.response[1] != statusOK {
		return ErrCommandFailed
	}
	return nil
}

// SetGPIO makes pin an output and drives it.
func (d *MCP2221) SetGPIO(ctx context.Context, pin int, high bool) error {
	if pin < 0 || pin >= GPIOCount {
		return fmt.Errorf("invalid GPIO %d", pin)
	}
	mode := GPIOModeOut
	var outputs [GPIOCount]GPIOOutput
	outputs[pin] = GPIOOutput{Value: &high, Direction: &mode}
	return d.SetGPIOOutput(ctx, outputs)
}

// ReadGPIO returns the level and direction of every line.
func (d *MCP2221) ReadGPIO(ctx context.Context) ([GPIOCount]GPIOLine, error) {
	d.mx.Lock()
	defer d.mx.Unlock()
	var res [GPIOCount]GPIOLine
	d.prepare(cmdGetGPIO)
	if err := d.send(ctx); err != nil {
		return res, fmt.Errorf("get GPIO command failed: %w", err)
	}
	if d.response[1] != statusOK {
		return res, ErrCommandFailed
	}
	for i := range res {
		value, dir := d.response[2+i*2], d.response[3+i*2]
		if dir == byte(GPIOModeUnassigned) {
			res[i].Mode = GPIOModeUnassigned
			continue
		}
		res[i] = GPIOLine{Mode: GPIOMode(dir), Value: value == 0x01}
	}
	return res, nil
}
