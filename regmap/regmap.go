// Package regmap implements typed register access on top of an addressable I2C bus.
//
// Registers are addressed with 16-bit big-endian pointers by default (image
// sensors) or with a single byte (power management and helper controllers).
// A register program is an ordered list of writes replayed verbatim.
package regmap

import (
	"context"
	"errors"
	"fmt"

	"github.com/mklimuk/mira"
)

// ErrBusFault wraps every transport level failure, short transfers included.
var ErrBusFault = errors.New("bus fault")

// Addr identifies a configuration register.
type Addr uint16

// Op is a single register write.
type Op struct {
	Addr  Addr
	Value byte
}

func (o Op) String() string {
	return fmt.Sprintf("%#04x=%#02x", uint16(o.Addr), o.Value)
}

// Program is an ordered register write sequence. Order matters: bank and
// context selects change the meaning of later writes.
type Program []Op

// Concat joins programs into a new one without modifying the inputs.
func Concat(programs ...Program) Program {
	n := 0
	for _, p := range programs {
		n += len(p)
	}
	res := make(Program, 0, n)
	for _, p := range programs {
		res = append(res, p...)
	}
	return res
}

// ProgramError reports the operation at which a program was aborted.
// Index is 1-based; Index-1 operations were written before the failure.
type ProgramError struct {
	Index int
	Op    Op
	Err   error
}

func (e *ProgramError) Error() string {
	return fmt.Sprintf("program aborted at op %d (%s): %v", e.Index, e.Op, e.Err)
}

func (e *ProgramError) Unwrap() error {
	return e.Err
}

type Opts struct {
	AddrWidth int
}

type Opt func(*Opts)

// WithAddrWidth8 switches register pointers to a single byte.
func WithAddrWidth8() Opt {
	return func(o *Opts) {
		o.AddrWidth = 1
	}
}

// Map gives register level access to one device on the bus.
type Map struct {
	transport mira.I2CBus
	addr      byte
	addrWidth int
}

func New(transport mira.I2CBus, addr byte, opts ...Opt) *Map {
	config := Opts{AddrWidth: 2}
	for _, opt := range opts {
		opt(&config)
	}
	return &Map{
		transport: transport,
		addr:      addr,
		addrWidth: config.AddrWidth,
	}
}

// Address returns the 7-bit bus address of the device.
func (m *Map) Address() byte {
	return m.addr
}

func (m *Map) pointer(reg Addr, extra int) []byte {
	buf := make([]byte, m.addrWidth, m.addrWidth+extra)
	if m.addrWidth == 1 {
		buf[0] = byte(reg)
		return buf
	}
	buf[0] = byte(reg >> 8)
	buf[1] = byte(reg)
	return buf
}

// Read returns the value of an 8-bit register.
func (m *Map) Read(ctx context.Context, reg Addr) (byte, error) {
	err := m.transport.WriteToAddr(ctx, m.addr, m.pointer(reg, 0))
	if err != nil {
		return 0, fmt.Errorf("%w: could not set register pointer %#04x on %#x: %w", ErrBusFault, uint16(reg), m.addr, err)
	}
	buf := make([]byte, 1)
	err = m.transport.ReadFromAddr(ctx, m.addr, buf)
	if err != nil {
		return 0, fmt.Errorf("%w: could not read register %#04x on %#x: %w", ErrBusFault, uint16(reg), m.addr, err)
	}
	return buf[0], nil
}

// Write sets an 8-bit register.
func (m *Map) Write(ctx context.Context, reg Addr, value byte) error {
	buf := append(m.pointer(reg, 1), value)
	err := m.transport.WriteToAddr(ctx, m.addr, buf)
	if err != nil {
		return fmt.Errorf("%w: could not write register %#04x on %#x: %w", ErrBusFault, uint16(reg), m.addr, err)
	}
	return nil
}

// Write16 sets a register pair in one transfer, low byte at reg and high byte
// at reg+1 (the device auto-increments the pointer).
func (m *Map) Write16(ctx context.Context, reg Addr, value uint16) error {
	buf := append(m.pointer(reg, 2), byte(value), byte(value>>8))
	err := m.transport.WriteToAddr(ctx, m.addr, buf)
	if err != nil {
		return fmt.Errorf("%w: could not write register pair %#04x on %#x: %w", ErrBusFault, uint16(reg), m.addr, err)
	}
	return nil
}

// Apply writes every op of the program in order and stops at the first
// failure. Nothing is retried; a partially applied program leaves the device
// in an unknown configuration.
func (m *Map) Apply(ctx context.Context, program Program) error {
	for i, op := range program {
		if err := m.Write(ctx, op.Addr, op.Value); err != nil {
			return &ProgramError{Index: i + 1, Op: op, Err: err}
		}
	}
	return nil
}
