package power

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
	"periph.io/x/conn/v3/physic"
)

type fakeRegulator struct {
	name       string
	events     *[]string
	enableErr  error
	disableErr error
}

func (r *fakeRegulator) Name() string {
	return r.name
}

func (r *fakeRegulator) Enable(ctx context.Context) error {
	if r.enableErr != nil {
		return r.enableErr
	}
	*r.events = append(*r.events, "enable "+r.name)
	return nil
}

func (r *fakeRegulator) Disable(ctx context.Context) error {
	*r.events = append(*r.events, "disable "+r.name)
	return r.disableErr
}

type fakeClock struct {
	events    *[]string
	enableErr error
}

func (c *fakeClock) Enable(ctx context.Context) error {
	if c.enableErr != nil {
		return c.enableErr
	}
	*c.events = append(*c.events, "enable clock")
	return nil
}

func (c *fakeClock) Disable(ctx context.Context) error {
	*c.events = append(*c.events, "disable clock")
	return nil
}

func (c *fakeClock) Rate() physic.Frequency {
	return 38400 * physic.KiloHertz
}

func supplies(events *[]string, names ...string) Supplies {
	var res Supplies
	for _, n := range names {
		res = append(res, &fakeRegulator{name: n, events: events})
	}
	return res
}

func TestSupplies_EnableUnwinds(t *testing.T) {
	var events []string
	s := supplies(&events, "vana", "vdig", "vddl")
	s[2].(*fakeRegulator).enableErr = errors.New("short circuit")

	err := s.Enable(context.Background())
	assert.ErrorIs(t, err, ErrSequence)
	assert.ErrorContains(t, err, "vddl")
	assert.Equal(t, []string{"enable vana", "enable vdig", "disable vdig", "disable vana"}, events)
}

func TestSupplies_DisableCollectsErrors(t *testing.T) {
	var events []string
	s := supplies(&events, "vana", "vdig", "vddl")
	first, second := errors.New("stuck"), errors.New("timeout")
	s[0].(*fakeRegulator).disableErr = first
	s[2].(*fakeRegulator).disableErr = second

	err := s.Disable(context.Background())
	assert.ErrorIs(t, err, first)
	assert.ErrorIs(t, err, second)
	assert.Equal(t, []string{"disable vddl", "disable vdig", "disable vana"}, events)
}

func TestSequencer_PowerOnOff(t *testing.T) {
	var events []string
	var sleeps []time.Duration
	seq := NewSequencer(supplies(&events, "vana", "vdig"), &fakeClock{events: &events},
		WithSleep(func(d time.Duration) { sleeps = append(sleeps, d) }))

	require.NoError(t, seq.PowerOn(context.Background()))
	assert.Equal(t, []string{"enable vana", "enable vdig", "enable clock"}, events)
	assert.Equal(t, []time.Duration{DefaultSettle}, sleeps)

	events = nil
	require.NoError(t, seq.PowerOff(context.Background()))
	assert.Equal(t, []string{"disable clock", "disable vdig", "disable vana"}, events)
	assert.Equal(t, 38400*physic.KiloHertz, seq.ClockRate())
}

func TestSequencer_SettleNeverSkipped(t *testing.T) {
	var events []string
	var sleeps []time.Duration
	seq := NewSequencer(supplies(&events, "vana"), &fakeClock{events: &events},
		WithSettle(0), WithSleep(func(d time.Duration) { sleeps = append(sleeps, d) }))
	require.NoError(t, seq.PowerOn(context.Background()))
	assert.Equal(t, []time.Duration{DefaultSettle}, sleeps)

	sleeps = nil
	seq = NewSequencer(supplies(&events, "vana"), &fakeClock{events: &events},
		WithSettle(5*time.Millisecond), WithSleep(func(d time.Duration) { sleeps = append(sleeps, d) }))
	require.NoError(t, seq.PowerOn(context.Background()))
	assert.Equal(t, []time.Duration{5 * time.Millisecond}, sleeps)
}

func TestSequencer_ClockFailureDisablesSupplies(t *testing.T) {
	var events []string
	var sleeps []time.Duration
	seq := NewSequencer(supplies(&events, "vana", "vdig"),
		&fakeClock{events: &events, enableErr: errors.New("no lock")},
		WithSleep(func(d time.Duration) { sleeps = append(sleeps, d) }))

	err := seq.PowerOn(context.Background())
	assert.ErrorIs(t, err, ErrSequence)
	assert.Equal(t, []string{"enable vana", "enable vdig", "disable vdig", "disable vana"}, events)
	assert.Empty(t, sleeps)
}

func TestGPIORegulator(t *testing.T) {
	pin := &gpiotest.Pin{N: "GPIO17", Num: 17}
	r := NewGPIORegulator("vana", pin)
	ctx := context.Background()

	require.NoError(t, r.Enable(ctx))
	assert.Equal(t, gpio.High, pin.Read())
	require.NoError(t, r.Disable(ctx))
	assert.Equal(t, gpio.Low, pin.Read())
	assert.Equal(t, "vana", r.Name())

	low := &gpiotest.Pin{N: "GPIO27", Num: 27}
	r = NewGPIORegulator("vdig", low, WithActiveLow())
	require.NoError(t, r.Enable(ctx))
	assert.Equal(t, gpio.Low, low.Read())
	require.NoError(t, r.Disable(ctx))
	assert.Equal(t, gpio.High, low.Read())
}

func TestFixedClock(t *testing.T) {
	gate := &gpiotest.Pin{N: "GPIO4", Num: 4}
	c := NewFixedClock(38400*physic.KiloHertz, WithGate(gate))
	ctx := context.Background()

	require.NoError(t, c.Enable(ctx))
	assert.True(t, c.Enabled())
	assert.Equal(t, gpio.High, gate.Read())
	require.NoError(t, c.Disable(ctx))
	assert.False(t, c.Enabled())
	assert.Equal(t, gpio.Low, gate.Read())
	assert.Equal(t, 38400*physic.KiloHertz, c.Rate())

	require.NoError(t, NewFixedClock(24*physic.MegaHertz).Enable(ctx), "ungated clock")
}
