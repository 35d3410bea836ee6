package adapter

import (
	"context"
	"encoding/binary"
	"fmt"
)

type Status struct {
	RequestedLength int    `yaml:"requested_length"`
	TransferredLen  int    `yaml:"transferred_length"`
	BufferCounter   int    `yaml:"buffer_counter"`
	SpeedDivider    int    `yaml:"speed_divider"`
	Timeout         int    `yaml:"timeout"`
	Address         string `yaml:"address"`
	ReadPending     bool   `yaml:"read_pending"`
}

// status report byte offsets
const (
	offRequestedLength = 9
	offTransferredLen  = 11
	offBufferCounter   = 13
	offSpeedDivider    = 14
	offTimeout         = 15
	offAddress         = 16
	offReadPending     = 25
	// cancel current transfer when set in a status request
	cancelTransfer = 0x10
)

func decodeStatus(report []byte) Status {
	return Status{
		RequestedLength: int(binary.LittleEndian.Uint16(report[offRequestedLength:])),
		TransferredLen:  int(binary.LittleEndian.Uint16(report[offTransferredLen:])),
		BufferCounter:   int(report[offBufferCounter]),
		SpeedDivider:    int(report[offSpeedDivider]),
		Timeout:         int(report[offTimeout]),
		Address:         fmt.Sprintf("%#x", binary.LittleEndian.Uint16(report[offAddress:])>>1),
		ReadPending:     report[offReadPending] != 0,
	}
}

// Status reads the I2C engine state.
func (d *MCP2221) Status(ctx context.Context) (Status, error) {
	d.mx.Lock()
	defer d.mx.Unlock()
	d.prepare(cmdStatus)
	if err := d.send(ctx); err != nil {
		return Status{}, fmt.Errorf("status request failed: %w", err)
	}
	return decodeStatus(d.response), nil
}

// ReleaseBus cancels the current transfer and returns the engine state.
func (d *MCP2221) ReleaseBus(ctx context.Context) (Status, error) {
	d.mx.Lock()
	defer d.mx.Unlock()
	return d.releaseBus(ctx)
}

func (d *MCP2221) releaseBus(ctx context.Context) (Status, error) {
	d.prepare(cmdStatus)
	d.request[2] = cancelTransfer
	if err := d.send(ctx); err != nil {
		return Status{}, fmt.Errorf("release request failed: %w", err)
	}
	return decodeStatus(d.response), nil
}
