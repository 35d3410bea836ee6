package power

import (
	"context"
	"fmt"
	"sync"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
)

// Clock is the sensor input clock.
type Clock interface {
	Enable(ctx context.Context) error
	Disable(ctx context.Context) error
	Rate() physic.Frequency
}

type ClockOpt func(*FixedClock)

// WithGate drives pin high while the clock is enabled (oscillator enable line).
func WithGate(pin gpio.PinOut) ClockOpt {
	return func(c *FixedClock) {
		c.gate = pin
	}
}

// FixedClock is a free running oscillator, optionally gated by a GPIO line.
type FixedClock struct {
	mx      sync.Mutex
	rate    physic.Frequency
	gate    gpio.PinOut
	enabled bool
}

func NewFixedClock(rate physic.Frequency, opts ...ClockOpt) *FixedClock {
	c := &FixedClock{rate: rate}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *FixedClock) Enable(ctx context.Context) error {
	c.mx.Lock()
	defer c.mx.Unlock()
	if c.gate != nil {
		if err := c.gate.Out(gpio.High); err != nil {
			return fmt.Errorf("could not enable oscillator: %w", err)
		}
	}
	c.enabled = true
	return nil
}

func (c *FixedClock) Disable(ctx context.Context) error {
	c.mx.Lock()
	defer c.mx.Unlock()
	c.enabled = false
	if c.gate != nil {
		if err := c.gate.Out(gpio.Low); err != nil {
			return fmt.Errorf("could not disable oscillator: %w", err)
		}
	}
	return nil
}

func (c *FixedClock) Enabled() bool {
	c.mx.Lock()
	defer c.mx.Unlock()
	return c.enabled
}

func (c *FixedClock) Rate() physic.Frequency {
	return c.rate
}
