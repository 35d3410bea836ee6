package i2c

import (
	"context"
	"errors"
	"fmt"
	"sync"

	gobot "gobot.io/x/gobot/v2/drivers/i2c"
	"gobot.io/x/gobot/v2/platforms/friendlyelec/nanopi"

	"github.com/mklimuk/mira"
	"github.com/mklimuk/mira/snsctx"
)

var _ mira.I2CBus = &GobotBus{}

// GobotBus routes transfers through a gobot I2C connector. One connection is
// opened per device address and kept until Close.
type GobotBus struct {
	mx        sync.Mutex
	connector gobot.Connector
	bus       int
	conns     map[byte]gobot.Connection
	finalize  func() error
}

func NewGobotBus(connector gobot.Connector, bus int) *GobotBus {
	return &GobotBus{
		connector: connector,
		bus:       bus,
		conns:     make(map[byte]gobot.Connection),
	}
}

// NewNanoPiBus connects the NanoPi NEO adaptor and uses its bus number bus.
func NewNanoPiBus(bus int) (*GobotBus, error) {
	npi := nanopi.NewNeoAdaptor()
	if err := npi.I2cBusAdaptor.Connect(); err != nil {
		return nil, fmt.Errorf("adaptor connect error: %w", err)
	}
	b := NewGobotBus(npi, bus)
	b.finalize = npi.I2cBusAdaptor.Finalize
	return b, nil
}

func (b *GobotBus) conn(address byte) (gobot.Connection, error) {
	b.mx.Lock()
	defer b.mx.Unlock()
	if c, ok := b.conns[address]; ok {
		return c, nil
	}
	c, err := b.connector.GetI2cConnection(int(address), b.bus)
	if err != nil {
		return nil, fmt.Errorf("could not open connection to %#x on bus %d: %w", address, b.bus, err)
	}
	b.conns[address] = c
	return c, nil
}

func (b *GobotBus) WriteToAddr(ctx context.Context, address byte, buffer []byte) error {
	c, err := b.conn(address)
	if err != nil {
		return err
	}
	snsctx.TraceTransfer(ctx, "write", address, buffer)
	n, err := c.Write(buffer)
	if err != nil {
		return fmt.Errorf("could not write to i2c bus %x: %w", address, err)
	}
	return mira.CheckTransfer("write", len(buffer), n)
}

func (b *GobotBus) ReadFromAddr(ctx context.Context, address byte, buffer []byte) error {
	c, err := b.conn(address)
	if err != nil {
		return err
	}
	n, err := c.Read(buffer)
	if err != nil {
		return fmt.Errorf("could not read from i2c bus %x: %w", address, err)
	}
	if err := mira.CheckTransfer("read", len(buffer), n); err != nil {
		return err
	}
	snsctx.TraceTransfer(ctx, "read", address, buffer)
	return nil
}

func (b *GobotBus) Release(ctx context.Context) error {
	return nil
}

// Close closes every opened connection and finalizes the adaptor if this bus created it.
func (b *GobotBus) Close() error {
	b.mx.Lock()
	defer b.mx.Unlock()
	var errs []error
	for addr, c := range b.conns {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("could not close connection to %#x: %w", addr, err))
		}
		delete(b.conns, addr)
	}
	if b.finalize != nil {
		if err := b.finalize(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
