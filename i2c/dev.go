package i2c

import (
	"context"
	"fmt"
	"sync"

	devi2c "github.com/swdee/go-i2c"

	"github.com/mklimuk/mira"
	"github.com/mklimuk/mira/snsctx"
)

var _ mira.I2CBus = &DevBus{}

// byteDevice is the subset of the /dev/i2c-N handle used by DevBus.
type byteDevice interface {
	WriteBytes(buf []byte) (int, error)
	ReadBytes(buf []byte) (int, error)
}

type openFunc func(address byte, dev string) (byteDevice, func(), error)

func openDevice(address byte, dev string) (byteDevice, func(), error) {
	d, err := devi2c.New(address, dev)
	if err != nil {
		return nil, nil, err
	}
	return d, func() { d.Close() }, nil
}

// DevBus talks to a Linux i2c-dev character device. The kernel binds a file
// handle to one slave address, so a handle is kept per address.
type DevBus struct {
	mx      sync.Mutex
	dev     string
	open    openFunc
	devices map[byte]byteDevice
	closers []func()
}

func NewDevBus(dev string) *DevBus {
	return &DevBus{
		dev:     dev,
		open:    openDevice,
		devices: make(map[byte]byteDevice),
	}
}

func (b *DevBus) device(address byte) (byteDevice, error) {
	b.mx.Lock()
	defer b.mx.Unlock()
	if d, ok := b.devices[address]; ok {
		return d, nil
	}
	d, closer, err := b.open(address, b.dev)
	if err != nil {
		return nil, fmt.Errorf("could not open %s for %#x: %w", b.dev, address, err)
	}
	b.devices[address] = d
	b.closers = append(b.closers, closer)
	return d, nil
}

func (b *DevBus) WriteToAddr(ctx context.Context, address byte, buffer []byte) error {
	d, err := b.device(address)
	if err != nil {
		return err
	}
	snsctx.TraceTransfer(ctx, "write", address, buffer)
	n, err := d.WriteBytes(buffer)
	if err != nil {
		return fmt.Errorf("could not write to i2c bus %x: %w", address, err)
	}
	return mira.CheckTransfer("write", len(buffer), n)
}

func (b *DevBus) ReadFromAddr(ctx context.Context, address byte, buffer []byte) error {
	d, err := b.device(address)
	if err != nil {
		return err
	}
	n, err := d.ReadBytes(buffer)
	if err != nil {
		return fmt.Errorf("could not read from i2c bus %x: %w", address, err)
	}
	if err := mira.CheckTransfer("read", len(buffer), n); err != nil {
		return err
	}
	snsctx.TraceTransfer(ctx, "read", address, buffer)
	return nil
}

func (b *DevBus) Release(ctx context.Context) error {
	return nil
}

func (b *DevBus) Close() error {
	b.mx.Lock()
	defer b.mx.Unlock()
	for _, c := range b.closers {
		c()
	}
	b.closers = nil
	b.devices = make(map[byte]byteDevice)
	return nil
}
