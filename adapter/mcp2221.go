// Package adapter implements the MCP2221 USB to I2C/GPIO bridge. It is used to
// drive a camera module from a workstation: the I2C engine carries sensor and
// PMIC traffic, the GPIO lines switch module supplies.
package adapter

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/karalabe/hid"

	"github.com/mklimuk/mira"
	"github.com/mklimuk/mira/snsctx"
)

const VendorID = 0x04D8
const ProductID = 0x00DD

const reportSize = 64

// maxWriteSize is the largest I2C payload carried by one report in either direction.
const maxWriteSize = 60

// HID report command codes.
const (
	cmdStatus       byte = 0x10
	cmdGetI2CData   byte = 0x40
	cmdSetGPIO      byte = 0x50
	cmdGetGPIO      byte = 0x51
	cmdI2CWrite     byte = 0x90
	cmdI2CReadStart byte = 0x91
)

// response status byte values
const (
	statusOK       byte = 0x00
	statusBusy     byte = 0x01
	statusReadFail byte = 0x41
	// the engine reports an empty read buffer as 127 bytes
	emptyReadSize = 127
)

var ErrCommandFailed = errors.New("command failed")
var ErrDeviceNotFound = errors.New("MCP2221 device not found")

var _ mira.I2CBus = &MCP2221{}

// hidDevice is an open HID handle.
type hidDevice interface {
	Write(b []byte) (int, error)
	Read(b []byte) (int, error)
	Close() error
}

// openFunc opens the adapter at index among attached ones, -1 requires a single adapter.
type openFunc func(index int) (hidDevice, error)

type Opts struct {
	Index        int
	ResponseWait time.Duration
}

type Opt func(*Opts)

// WithIndex selects one of several attached adapters, as listed by usb detect.
func WithIndex(index int) Opt {
	return func(o *Opts) {
		o.Index = index
	}
}

func WithResponseWait(wait time.Duration) Opt {
	return func(o *Opts) {
		o.ResponseWait = wait
	}
}

// MCP2221 serializes every command behind a single lock. The HID handle is
// opened per command so the adapter can be unplugged between commands.
type MCP2221 struct {
	mx           sync.Mutex
	index        int
	request      []byte
	response     []byte
	responseWait time.Duration
	open         openFunc
	sleep        func(time.Duration)
}

func NewMCP2221(opts ...Opt) *MCP2221 {
	config := Opts{Index: -1, ResponseWait: 50 * time.Millisecond}
	for _, opt := range opts {
		opt(&config)
	}
	return &MCP2221{
		index:        config.Index,
		request:      make([]byte, reportSize),
		response:     make([]byte, reportSize),
		responseWait: config.ResponseWait,
		open:         openHID,
		sleep:        time.Sleep,
	}
}

// Init checks the selected adapter is attached.
func (d *MCP2221) Init() error {
	devs := hid.Enumerate(VendorID, ProductID)
	switch {
	case len(devs) == 0:
		return ErrDeviceNotFound
	case d.index >= len(devs):
		return fmt.Errorf("%w: no adapter with id %d", ErrDeviceNotFound, d.index)
	case d.index < 0 && len(devs) > 1:
		return fmt.Errorf("ambiguous device identification: %d adapters attached", len(devs))
	}
	dev := devs[max(d.index, 0)]
	slog.Debug("adapter found", "path", dev.Path, "serial", dev.Serial)
	return nil
}

func (d *MCP2221) WriteToAddr(ctx context.Context, address byte, buffer []byte) error {
	if len(buffer) > maxWriteSize {
		return fmt.Errorf("write to %#x failed: %d bytes exceed the %d byte report payload", address, len(buffer), maxWriteSize)
	}
	d.mx.Lock()
	defer d.mx.Unlock()
	d.prepare(cmdI2CWrite)
	binary.LittleEndian.PutUint16(d.request[1:3], uint16(len(buffer)))
	d.request[3] = address << 1
	copy(d.request[4:], buffer)
	snsctx.TraceTransfer(ctx, "write", address, buffer)
	if err := d.send(ctx); err != nil {
		return fmt.Errorf("write to %#x failed: %w", address, err)
	}
	if d.response[1] == statusBusy {
		slog.Debug("adapter busy", "addr", address)
		return mira.ErrBusBusy
	}
	return nil
}

// ReadFromAddr starts a read on the I2C engine and then collects the data in a
// second report.
func (d *MCP2221) ReadFromAddr(ctx context.Context, address byte, buffer []byte) error {
	if len(buffer) > maxWriteSize {
		return fmt.Errorf("read from %#x failed: %d bytes exceed the %d byte report payload", address, len(buffer), maxWriteSize)
	}
	d.mx.Lock()
	defer d.mx.Unlock()
	d.prepare(cmdI2CReadStart)
	binary.LittleEndian.PutUint16(d.request[1:3], uint16(len(buffer)))
	d.request[3] = address<<1 | 0x01
	if err := d.send(ctx); err != nil {
		return fmt.Errorf("read from %#x failed: %w", address, err)
	}
	if d.response[1] == statusBusy {
		return mira.ErrBusBusy
	}
	d.prepare(cmdGetI2CData)
	if err := d.send(ctx); err != nil {
		return fmt.Errorf("could not collect read data from %#x: %w", address, err)
	}
	if d.response[1] == statusReadFail {
		return fmt.Errorf("read from %#x failed: %w: engine could not read target data", address, ErrCommandFailed)
	}
	size := int(d.response[3])
	if size == emptyReadSize {
		size = 0
	}
	if err := mira.CheckTransfer("read", len(buffer), size); err != nil {
		return fmt.Errorf("read from %#x failed: %w", address, err)
	}
	copy(buffer, d.response[4:4+size])
	snsctx.TraceTransfer(ctx, "read", address, buffer)
	return nil
}

// Release cancels a pending transfer and frees the bus.
func (d *MCP2221) Release(ctx context.Context) error {
	d.mx.Lock()
	defer d.mx.Unlock()
	_, err := d.releaseBus(ctx)
	return err
}

func openHID(index int) (hidDevice, error) {
	devs := hid.Enumerate(VendorID, ProductID)
	if len(devs) == 0 {
		return nil, ErrDeviceNotFound
	}
	if index < 0 {
		if len(devs) > 1 {
			return nil, fmt.Errorf("ambiguous device identification")
		}
		index = 0
	}
	if index >= len(devs) {
		return nil, fmt.Errorf("%w: no adapter with id %d", ErrDeviceNotFound, index)
	}
	dev, err := devs[index].Open()
	if err != nil {
		return nil, fmt.Errorf("error opening device: %w", err)
	}
	return dev, nil
}

// prepare clears both reports and sets the command code.
func (d *MCP2221) prepare(cmd byte) {
	clear(d.request)
	clear(d.response)
	d.request[0] = cmd
}

// send writes the request report and reads the response into d.response.
func (d *MCP2221) send(ctx context.Context) error {
	dev, err := d.open(d.index)
	if err != nil {
		return err
	}
	defer func() {
		if err := dev.Close(); err != nil {
			slog.Warn("could not close adapter", "error", err)
		}
	}()
	verbose := snsctx.IsVerbose(ctx)
	if verbose {
		slog.Debug("sending report to adapter", "report", hex.EncodeToString(d.request))
	}
	n, err := dev.Write(d.request)
	if err != nil {
		return fmt.Errorf("could not write request: %w", err)
	}
	if err := mira.CheckTransfer("hid write", reportSize, n); err != nil {
		return err
	}
	d.sleep(d.responseWait)
	n, err = dev.Read(d.response)
	if err != nil {
		return fmt.Errorf("could not read response: %w", err)
	}
	if err := mira.CheckTransfer("hid read", reportSize, n); err != nil {
		return err
	}
	if verbose {
		slog.Debug("read report from adapter", "report", hex.EncodeToString(d.response))
	}
	return nil
}
