package power

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// Regulator is a switchable supply rail.
type Regulator interface {
	Name() string
	Enable(ctx context.Context) error
	Disable(ctx context.Context) error
}

// Supplies is an ordered group of regulators switched together.
type Supplies []Regulator

// Enable switches regulators on in order. When one fails, the ones already
// enabled are switched off again in reverse order.
func (s Supplies) Enable(ctx context.Context) error {
	for i, r := range s {
		if err := r.Enable(ctx); err != nil {
			for j := i - 1; j >= 0; j-- {
				if derr := s[j].Disable(ctx); derr != nil {
					slog.Warn("power: unwind failed", "regulator", s[j].Name(), "error", derr)
				}
			}
			return fmt.Errorf("%w: could not enable %s: %w", ErrSequence, r.Name(), err)
		}
	}
	return nil
}

// Disable switches every regulator off in reverse order. It does not stop at
// the first failure.
func (s Supplies) Disable(ctx context.Context) error {
	var errs []error
	for i := len(s) - 1; i >= 0; i-- {
		if err := s[i].Disable(ctx); err != nil {
			errs = append(errs, fmt.Errorf("could not disable %s: %w", s[i].Name(), err))
		}
	}
	return errors.Join(errs...)
}

type GPIOOpts struct {
	ActiveLow bool
}

type GPIOOpt func(*GPIOOpts)

// WithActiveLow drives the enable line low to switch the rail on.
func WithActiveLow() GPIOOpt {
	return func(o *GPIOOpts) {
		o.ActiveLow = true
	}
}

// GPIORegulator is a rail behind a load switch controlled by a GPIO line.
type GPIORegulator struct {
	name      string
	pin       gpio.PinOut
	activeLow bool
}

func NewGPIORegulator(name string, pin gpio.PinOut, opts ...GPIOOpt) *GPIORegulator {
	config := GPIOOpts{}
	for _, opt := range opts {
		opt(&config)
	}
	return &GPIORegulator{
		name:      name,
		pin:       pin,
		activeLow: config.ActiveLow,
	}
}

// LookupPin initializes host drivers and resolves a GPIO line by name.
func LookupPin(name string) (gpio.PinIO, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("could not initialize host drivers: %w", err)
	}
	pin := gpioreg.ByName(name)
	if pin == nil {
		return nil, fmt.Errorf("%w: GPIO %q not found", ErrConfiguration, name)
	}
	return pin, nil
}

// GPIORegulatorByName resolves the enable line through the host GPIO registry.
func GPIORegulatorByName(name, pinName string, opts ...GPIOOpt) (*GPIORegulator, error) {
	pin, err := LookupPin(pinName)
	if err != nil {
		return nil, fmt.Errorf("regulator %s: %w", name, err)
	}
	return NewGPIORegulator(name, pin, opts...), nil
}

func (r *GPIORegulator) Name() string {
	return r.name
}

func (r *GPIORegulator) Enable(ctx context.Context) error {
	if err := r.pin.Out(r.level(true)); err != nil {
		return fmt.Errorf("could not drive %s: %w", r.pin, err)
	}
	slog.Debug("regulator enabled", "name", r.name, "pin", r.pin.String())
	return nil
}

func (r *GPIORegulator) Disable(ctx context.Context) error {
	if err := r.pin.Out(r.level(false)); err != nil {
		return fmt.Errorf("could not drive %s: %w", r.pin, err)
	}
	slog.Debug("regulator disabled", "name", r.name, "pin", r.pin.String())
	return nil
}

func (r *GPIORegulator) level(on bool) gpio.Level {
	return gpio.Level(on != r.activeLow)
}
