package mira220

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mklimuk/mira/regmap"
)

// SetStream starts or stops streaming. Repeating the current state is a no-op.
//
// Start powers the sensor, replays the mode and format programs, writes every
// control and issues a single request pulse. Any failure before the pulse
// releases power and leaves the device idle.
//
// Stop issues a single halt pulse, waits one frame period and releases power.
// The device is considered stopped even when the halt command fails.
func (d *Device) SetStream(ctx context.Context, enable bool) error {
	d.mx.Lock()
	defer d.mx.Unlock()
	if d.detached {
		return ErrDetached
	}
	if d.suspended {
		return ErrSuspended
	}
	if enable == d.streaming {
		return nil
	}
	if enable {
		return d.startStreamingLocked(ctx)
	}
	return d.stopStreamingLocked(ctx)
}

// Streaming reports whether the sensor is producing frames.
func (d *Device) Streaming() bool {
	d.mx.Lock()
	defer d.mx.Unlock()
	return d.streaming
}

func (d *Device) startStreamingLocked(ctx context.Context) error {
	if err := d.acquireLocked(ctx); err != nil {
		return fmt.Errorf("%w: could not power on: %w", ErrSequence, err)
	}
	err := d.configureLocked(ctx)
	if err == nil {
		err = d.pulse(ctx, regCmdReq)
	}
	if err != nil {
		if rerr := d.releaseLocked(ctx); rerr != nil {
			err = errors.Join(err, rerr)
		}
		return fmt.Errorf("%w: start streaming: %w", ErrSequence, err)
	}
	d.streaming = true
	slog.Debug("mira220 streaming", "mode", d.mode.Name, "format", d.code)
	return nil
}

func (d *Device) configureLocked(ctx context.Context) error {
	if err := d.regs.Apply(ctx, regmap.Concat(d.mode.Program, formatProgram(d.code))); err != nil {
		return fmt.Errorf("could not apply %s mode: %w", d.mode.Name, err)
	}
	if err := d.applyControls(ctx); err != nil {
		return err
	}
	if err := d.regs.Write(ctx, regBankSel, bank0); err != nil {
		return err
	}
	return d.regs.Write(ctx, regRWContext, 0)
}

// pulse writes 1 then 0 to a bank 0 command register. Bank 0 must be selected.
func (d *Device) pulse(ctx context.Context, reg regmap.Addr) error {
	if err := d.regs.Write(ctx, reg, 1); err != nil {
		return err
	}
	return d.regs.Write(ctx, reg, 0)
}

func (d *Device) stopStreamingLocked(ctx context.Context) error {
	err := d.regs.Write(ctx, regBankSel, bank0)
	if err == nil {
		err = d.pulse(ctx, regCmdHalt)
	}
	if err == nil && d.config.StopWait {
		d.config.Sleep(FramePeriod(d.mode, d.controls[ControlVBlank].Value))
	}
	d.streaming = false
	if rerr := d.releaseLocked(ctx); rerr != nil {
		err = errors.Join(err, rerr)
	}
	if err != nil {
		slog.Warn("mira220: stop streaming failed", "error", err)
		return fmt.Errorf("%w: stop streaming: %w", ErrSequence, err)
	}
	slog.Debug("mira220 stopped")
	return nil
}
