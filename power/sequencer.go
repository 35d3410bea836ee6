// Package power sequences the supplies and input clock of a camera module.
//
// A Sequencer switches the sensor supplies and clock on every power cycle.
// A PMIC brings up the board rails once per attach through a fixed register
// program executed over the I2C bus.
package power

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"periph.io/x/conn/v3/physic"
)

// DefaultSettle is the delay between enabling the supplies and the first register access.
const DefaultSettle = 20 * time.Millisecond

type SequencerOpts struct {
	Settle time.Duration
	Sleep  func(time.Duration)
}

type SequencerOpt func(*SequencerOpts)

// WithSettle overrides the settle delay. Non positive values are ignored.
func WithSettle(d time.Duration) SequencerOpt {
	return func(o *SequencerOpts) {
		if d > 0 {
			o.Settle = d
		}
	}
}

func WithSleep(sleep func(time.Duration)) SequencerOpt {
	return func(o *SequencerOpts) {
		o.Sleep = sleep
	}
}

// Sequencer powers a sensor from a group of regulators and a clock.
type Sequencer struct {
	supplies Supplies
	clock    Clock
	settle   time.Duration
	sleep    func(time.Duration)
}

func NewSequencer(supplies Supplies, clock Clock, opts ...SequencerOpt) *Sequencer {
	config := SequencerOpts{Settle: DefaultSettle, Sleep: time.Sleep}
	for _, opt := range opts {
		opt(&config)
	}
	return &Sequencer{
		supplies: supplies,
		clock:    clock,
		settle:   config.Settle,
		sleep:    config.Sleep,
	}
}

// PowerOn enables the supplies, then the clock, then waits for the rails to settle.
func (s *Sequencer) PowerOn(ctx context.Context) error {
	if err := s.supplies.Enable(ctx); err != nil {
		return err
	}
	if err := s.clock.Enable(ctx); err != nil {
		if derr := s.supplies.Disable(ctx); derr != nil {
			slog.Warn("power: could not disable supplies", "error", derr)
		}
		return fmt.Errorf("%w: could not enable clock: %w", ErrSequence, err)
	}
	s.sleep(s.settle)
	slog.Debug("sensor powered on", "supplies", len(s.supplies), "clock", s.clock.Rate().String())
	return nil
}

// PowerOff disables the clock, then the supplies. Every step is attempted.
func (s *Sequencer) PowerOff(ctx context.Context) error {
	var errs []error
	if err := s.clock.Disable(ctx); err != nil {
		errs = append(errs, fmt.Errorf("could not disable clock: %w", err))
	}
	if err := s.supplies.Disable(ctx); err != nil {
		errs = append(errs, err)
	}
	slog.Debug("sensor powered off")
	return errors.Join(errs...)
}

func (s *Sequencer) ClockRate() physic.Frequency {
	return s.clock.Rate()
}
