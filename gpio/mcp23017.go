// Package gpio drives the MCP23017 I/O expander used on some carrier boards to
// switch camera module supplies when the host has no free GPIO lines.
package gpio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mklimuk/mira"
)

const DefaultMCP23017Address = 0x21

type Port int

const (
	PortA Port = iota
	PortB
)

func (p Port) String() string {
	if p == PortB {
		return "B"
	}
	return "A"
}

// ParsePort accepts "A" or "B".
func ParsePort(s string) (Port, error) {
	switch s {
	case "A", "a":
		return PortA, nil
	case "B", "b":
		return PortB, nil
	default:
		return 0, fmt.Errorf("unknown expander port %q", s)
	}
}

type registry byte

// Port A registers with IOCON.BANK=0. Port B registers follow at +1.
const (
	IODIR registry = 0x00
	GPPU  registry = 0x0C
	GPIO  registry = 0x12
	OLAT  registry = 0x14
)

func (r registry) of(p Port) byte {
	return byte(r) + byte(p)
}

/*
	Steps to drive an output:

1. Clear the IODIR bit (0x00 A / 0x01 B) to make the pin an output
2. Write the port latch OLAT (0x14 A / 0x15 B)
*/
type MCP23017 struct {
	mx         sync.Mutex
	transport  mira.I2CBus
	address    byte
	retryLimit int
	// shadow copies, all pins are inputs after reset
	dir   [2]byte
	latch [2]byte
}

func NewMCP23017(bus mira.I2CBus, address byte) *MCP23017 {
	return &MCP23017{
		retryLimit: 2,
		transport:  bus,
		address:    address,
		dir:        [2]byte{0xFF, 0xFF},
	}
}

// write retries while the bus reports busy, releasing it between attempts.
func (m *MCP23017) write(ctx context.Context, reg byte, value byte) error {
	var err error
	for i := m.retryLimit; i > 0; i-- {
		err = m.transport.WriteToAddr(ctx, m.address, []byte{reg, value})
		if err == nil {
			return nil
		}
		if !errors.Is(err, mira.ErrBusBusy) {
			return err
		}
		// try to release the bus
		_ = m.transport.Release(ctx)
	}
	return fmt.Errorf("retry limit reached: %w", err)
}

func (m *MCP23017) readRegistry(ctx context.Context, reg byte) (byte, error) {
	err := m.transport.WriteToAddr(ctx, m.address, []byte{reg})
	if err != nil {
		return 0x00, fmt.Errorf("could not set I/O registry address: %w", err)
	}
	buf := make([]byte, 1)
	err = m.transport.ReadFromAddr(ctx, m.address, buf)
	if err != nil {
		return 0x00, fmt.Errorf("could not read gpio data: %w", err)
	}
	return buf[0], nil
}

func (p Port) valid() error {
	if p != PortA && p != PortB {
		return fmt.Errorf("unknown expander port %d", int(p))
	}
	return nil
}

// SetDirection writes the IODIR mask of a port, 1 is input.
func (m *MCP23017) SetDirection(ctx context.Context, p Port, inout byte) error {
	if err := p.valid(); err != nil {
		return err
	}
	m.mx.Lock()
	defer m.mx.Unlock()
	if err := m.write(ctx, IODIR.of(p), inout); err != nil {
		return fmt.Errorf("could not set direction of port %s: %w", p, err)
	}
	m.dir[p] = inout
	return nil
}

// PullUp enables pull up resistors on the inputs of a port.
func (m *MCP23017) PullUp(ctx context.Context, p Port, settings byte) error {
	if err := p.valid(); err != nil {
		return err
	}
	m.mx.Lock()
	defer m.mx.Unlock()
	if err := m.write(ctx, GPPU.of(p), settings); err != nil {
		return fmt.Errorf("could not set pull-up on port %s: %w", p, err)
	}
	return nil
}

// Read returns the pin levels of a port.
func (m *MCP23017) Read(ctx context.Context, p Port) (byte, error) {
	if err := p.valid(); err != nil {
		return 0, err
	}
	m.mx.Lock()
	defer m.mx.Unlock()
	res, err := m.readRegistry(ctx, GPIO.of(p))
	if err != nil {
		return res, fmt.Errorf("could not read port %s: %w", p, err)
	}
	return res, nil
}

// SetPin makes bit of port an output and drives it. Other latch bits are kept.
func (m *MCP23017) SetPin(ctx context.Context, p Port, bit int, high bool) error {
	if err := p.valid(); err != nil {
		return err
	}
	if bit < 0 || bit > 7 {
		return fmt.Errorf("pin %d not in [0, 7]", bit)
	}
	m.mx.Lock()
	defer m.mx.Unlock()
	mask := byte(1) << bit
	latch := m.latch[p] &^ mask
	if high {
		latch |= mask
	}
	// latch first so the pin does not glitch when it turns into an output
	if err := m.write(ctx, OLAT.of(p), latch); err != nil {
		return fmt.Errorf("could not drive %s%d: %w", p, bit, err)
	}
	m.latch[p] = latch
	if m.dir[p]&mask != 0 {
		dir := m.dir[p] &^ mask
		if err := m.write(ctx, IODIR.of(p), dir); err != nil {
			return fmt.Errorf("could not make %s%d an output: %w", p, bit, err)
		}
		m.dir[p] = dir
	}
	slog.Debug("expander pin set", "addr", fmt.Sprintf("%#x", m.address), "pin", fmt.Sprintf("%s%d", p, bit), "high", high)
	return nil
}

// Supply is a module rail behind a load switch on an expander pin. It
// satisfies power.Regulator.
type Supply struct {
	name      string
	expander  *MCP23017
	port      Port
	bit       int
	activeLow bool
}

func NewSupply(name string, expander *MCP23017, port Port, bit int, activeLow bool) *Supply {
	return &Supply{name: name, expander: expander, port: port, bit: bit, activeLow: activeLow}
}

func (s *Supply) Name() string {
	return s.name
}

func (s *Supply) Enable(ctx context.Context) error {
	if err := s.expander.SetPin(ctx, s.port, s.bit, !s.activeLow); err != nil {
		return fmt.Errorf("could not enable %s: %w", s.name, err)
	}
	return nil
}

func (s *Supply) Disable(ctx context.Context) error {
	if err := s.expander.SetPin(ctx, s.port, s.bit, s.activeLow); err != nil {
		return fmt.Errorf("could not disable %s: %w", s.name, err)
	}
	return nil
}
