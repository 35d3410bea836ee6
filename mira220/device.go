// Package mira220 implements the control plane of the ams OSRAM Mira220
// global shutter image sensor: mode selection, format negotiation, controls,
// streaming transitions and power lifecycle. Pixel data never passes through
// this package.
//
// Typical usage:
//
//	seq := power.NewSequencer(supplies, clock)
//	dev, err := mira220.Attach(ctx, bus, seq)
//	_, err = dev.SetFormat(ctx, mira220.Format{Code: mira220.FormatSGRBG10, Width: 1600, Height: 1400})
//	err = dev.SetControl(ctx, mira220.ControlAnalogGain, 2)
//	err = dev.SetStream(ctx, true)
package mira220

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"periph.io/x/conn/v3/physic"

	"github.com/mklimuk/mira"
	"github.com/mklimuk/mira/regmap"
)

// PowerSupply switches the sensor supplies and input clock.
type PowerSupply interface {
	PowerOn(ctx context.Context) error
	PowerOff(ctx context.Context) error
	ClockRate() physic.Frequency
}

// RailController brings up board level rails once per attach.
type RailController interface {
	PowerUp(ctx context.Context) error
	PowerDown(ctx context.Context) error
}

type Config struct {
	Address         byte
	DataLanes       int
	LinkFrequencies []int64
	Rails           RailController
	// StopWait waits one frame period after the halt command.
	StopWait bool
	Sleep    func(time.Duration)
}

type Option func(*Config)

func WithAddress(address byte) Option {
	return func(c *Config) {
		c.Address = address
	}
}

func WithDataLanes(lanes int) Option {
	return func(c *Config) {
		c.DataLanes = lanes
	}
}

func WithLinkFrequencies(freqs ...int64) Option {
	return func(c *Config) {
		c.LinkFrequencies = freqs
	}
}

// WithRails runs the rail controller power up at attach and power down at detach.
func WithRails(rails RailController) Option {
	return func(c *Config) {
		c.Rails = rails
	}
}

// WithoutStopWait returns from stream stop right after the halt command. A
// reconfiguration issued immediately afterwards may race the last frame.
func WithoutStopWait() Option {
	return func(c *Config) {
		c.StopWait = false
	}
}

func WithSleep(sleep func(time.Duration)) Option {
	return func(c *Config) {
		c.Sleep = sleep
	}
}

func (c Config) validate() error {
	if c.Address == 0 {
		return fmt.Errorf("%w: missing bus address", ErrConfiguration)
	}
	if c.DataLanes != DataLanes {
		return fmt.Errorf("%w: %d data lanes, only %d supported", ErrConfiguration, c.DataLanes, DataLanes)
	}
	if len(c.LinkFrequencies) == 0 {
		return fmt.Errorf("%w: missing link frequencies", ErrConfiguration)
	}
	if !slices.Contains(c.LinkFrequencies, DefaultLinkFrequency) {
		return fmt.Errorf("%w: link frequency %d Hz not listed", ErrConfiguration, DefaultLinkFrequency)
	}
	return nil
}

// Device is one attached sensor. All state transitions are serialized by a
// single lock held for the whole compound operation.
type Device struct {
	mx sync.Mutex

	config Config
	regs   *regmap.Map
	supply PowerSupply

	mode     Mode
	code     PixelFormat
	controls controlSet

	streaming       bool
	users           int
	powered         bool
	suspended       bool
	resumeStreaming bool
	detached        bool
	revision        byte
}

// Attach validates the configuration, brings up board rails, checks the
// sensor responds and leaves it powered down in the default mode.
func Attach(ctx context.Context, bus mira.I2CBus, supply PowerSupply, opts ...Option) (*Device, error) {
	config := Config{
		Address:         DefaultAddress,
		DataLanes:       DataLanes,
		LinkFrequencies: []int64{DefaultLinkFrequency},
		StopWait:        true,
		Sleep:           time.Sleep,
	}
	for _, opt := range opts {
		opt(&config)
	}
	if err := config.validate(); err != nil {
		return nil, err
	}
	if rate := supply.ClockRate(); rate != SupportedClockRate {
		return nil, fmt.Errorf("%w: input clock %s, only %s supported", ErrConfiguration, rate, SupportedClockRate)
	}
	mode := DefaultMode()
	d := &Device{
		config:   config,
		regs:     regmap.New(bus, config.Address),
		supply:   supply,
		mode:     mode,
		code:     DefaultFormat,
		controls: newControlSet(mode),
	}
	if config.Rails != nil {
		if err := config.Rails.PowerUp(ctx); err != nil {
			if derr := config.Rails.PowerDown(ctx); derr != nil {
				slog.Warn("mira220: rail power down failed", "error", derr)
			}
			return nil, fmt.Errorf("mira220: could not bring up rails: %w", err)
		}
	}
	if err := d.identify(ctx); err != nil {
		if config.Rails != nil {
			if derr := config.Rails.PowerDown(ctx); derr != nil {
				slog.Warn("mira220: rail power down failed", "error", derr)
			}
		}
		return nil, err
	}
	slog.Info("mira220 attached", "addr", fmt.Sprintf("%#x", config.Address), "revision", d.revision)
	return d, nil
}

func (d *Device) identify(ctx context.Context) error {
	d.mx.Lock()
	defer d.mx.Unlock()
	if err := d.acquireLocked(ctx); err != nil {
		return fmt.Errorf("mira220: could not power on: %w", err)
	}
	err := d.regs.Write(ctx, regBankSel, bank0)
	if err == nil {
		d.revision, err = d.regs.Read(ctx, regRevision)
	}
	rerr := d.releaseLocked(ctx)
	if err != nil {
		return fmt.Errorf("mira220: sensor not responding: %w", err)
	}
	return rerr
}

// Revision returns the silicon revision read at attach.
func (d *Device) Revision() byte {
	return d.revision
}

// Detach stops streaming, drops every power reference and powers the rails down.
// Errors are collected and the device is unusable afterwards.
func (d *Device) Detach(ctx context.Context) error {
	d.mx.Lock()
	defer d.mx.Unlock()
	if d.detached {
		return nil
	}
	var errs []error
	if d.streaming {
		errs = append(errs, d.stopStreamingLocked(ctx))
	}
	d.users = 0
	if d.powered {
		d.powered = false
		if err := d.supply.PowerOff(ctx); err != nil {
			errs = append(errs, fmt.Errorf("mira220: power off: %w", err))
		}
	}
	if d.config.Rails != nil {
		if err := d.config.Rails.PowerDown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("mira220: rail power down: %w", err))
		}
	}
	d.detached = true
	return errors.Join(errs...)
}

// Acquire takes an explicit power reference. While held, control writes are
// forwarded to the sensor immediately.
func (d *Device) Acquire(ctx context.Context) error {
	d.mx.Lock()
	defer d.mx.Unlock()
	if d.detached {
		return ErrDetached
	}
	return d.acquireLocked(ctx)
}

// Release drops a reference taken with Acquire.
func (d *Device) Release(ctx context.Context) error {
	d.mx.Lock()
	defer d.mx.Unlock()
	return d.releaseLocked(ctx)
}

func (d *Device) acquireLocked(ctx context.Context) error {
	if d.suspended {
		return ErrSuspended
	}
	if !d.powered {
		if err := d.supply.PowerOn(ctx); err != nil {
			return err
		}
		d.powered = true
	}
	d.users++
	return nil
}

// releaseLocked powers the sensor off with the last reference. Power off is
// best effort: the state is updated even when it fails.
func (d *Device) releaseLocked(ctx context.Context) error {
	if d.users == 0 {
		return nil
	}
	d.users--
	if d.users > 0 || !d.powered {
		return nil
	}
	d.powered = false
	if err := d.supply.PowerOff(ctx); err != nil {
		slog.Warn("mira220: power off failed", "error", err)
		return fmt.Errorf("mira220: power off: %w", err)
	}
	return nil
}

func (d *Device) inUse() bool {
	return d.powered && d.users > 0
}

// Powered reports whether the sensor supplies are on.
func (d *Device) Powered() bool {
	d.mx.Lock()
	defer d.mx.Unlock()
	return d.powered
}

// Suspend stops streaming and removes power. Streaming is restarted by Resume.
func (d *Device) Suspend(ctx context.Context) error {
	d.mx.Lock()
	defer d.mx.Unlock()
	if d.suspended || d.detached {
		return nil
	}
	var errs []error
	d.resumeStreaming = d.streaming
	if d.streaming {
		if err := d.stopStreamingLocked(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if d.powered {
		d.powered = false
		if err := d.supply.PowerOff(ctx); err != nil {
			errs = append(errs, fmt.Errorf("mira220: power off: %w", err))
		}
	}
	d.suspended = true
	slog.Debug("mira220 suspended", "resume_streaming", d.resumeStreaming)
	return errors.Join(errs...)
}

// Resume restores power for held references and restarts streaming if it was
// active at suspend. A failed restart leaves the device idle and is reported.
func (d *Device) Resume(ctx context.Context) error {
	d.mx.Lock()
	defer d.mx.Unlock()
	if !d.suspended || d.detached {
		return nil
	}
	if d.users > 0 {
		if err := d.supply.PowerOn(ctx); err != nil {
			return fmt.Errorf("%w: resume power on: %w", ErrSequence, err)
		}
		d.powered = true
	}
	d.suspended = false
	if !d.resumeStreaming {
		return nil
	}
	d.resumeStreaming = false
	if err := d.startStreamingLocked(ctx); err != nil {
		return fmt.Errorf("mira220: could not resume streaming: %w", err)
	}
	return nil
}

// Mode returns the active mode.
func (d *Device) Mode() Mode {
	d.mx.Lock()
	defer d.mx.Unlock()
	return d.mode.clone()
}

// Format returns the active format.
func (d *Device) Format() Format {
	d.mx.Lock()
	defer d.mx.Unlock()
	return d.formatLocked()
}

func (d *Device) formatLocked() Format {
	return Format{Code: d.code, Width: d.mode.Width, Height: d.mode.Height}
}

// SetFormat selects the mode nearest to the requested size. Unsupported codes
// fall back to DefaultFormat. The effective format is returned.
func (d *Device) SetFormat(ctx context.Context, f Format) (Format, error) {
	d.mx.Lock()
	defer d.mx.Unlock()
	if d.detached {
		return Format{}, ErrDetached
	}
	if d.streaming {
		return d.formatLocked(), fmt.Errorf("%w: format change while streaming", ErrBusy)
	}
	code := f.Code
	if !code.supported() {
		slog.Debug("mira220: unsupported format, using default", "requested", code, "default", DefaultFormat)
		code = DefaultFormat
	}
	d.code = code
	mode := LookupMode(f.Width, f.Height)
	if mode.Name != d.mode.Name {
		d.mode = mode
		d.controls.updateForMode(mode)
		if d.inUse() {
			if err := d.writeControl(ctx, ControlVBlank); err != nil {
				return d.formatLocked(), fmt.Errorf("mira220: could not apply mode blanking: %w", err)
			}
			if err := d.writeControl(ctx, ControlExposure); err != nil {
				return d.formatLocked(), fmt.Errorf("mira220: could not apply mode exposure: %w", err)
			}
		}
	}
	return d.formatLocked(), nil
}
