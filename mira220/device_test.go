package mira220

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/physic"

	"github.com/mklimuk/mira/bustest"
)

type fakeSupply struct {
	rate      physic.Frequency
	on        bool
	ons, offs int
	failOn    error
	events    *[]string
}

func newFakeSupply() *fakeSupply {
	return &fakeSupply{rate: SupportedClockRate}
}

func (s *fakeSupply) PowerOn(ctx context.Context) error {
	if s.failOn != nil {
		return s.failOn
	}
	s.ons++
	s.on = true
	s.record("supply on")
	return nil
}

func (s *fakeSupply) PowerOff(ctx context.Context) error {
	s.offs++
	s.on = false
	s.record("supply off")
	return nil
}

func (s *fakeSupply) ClockRate() physic.Frequency {
	return s.rate
}

func (s *fakeSupply) record(event string) {
	if s.events != nil {
		*s.events = append(*s.events, event)
	}
}

type fakeRails struct {
	events *[]string
	fail   error
}

func (r *fakeRails) PowerUp(ctx context.Context) error {
	if r.fail != nil {
		return r.fail
	}
	*r.events = append(*r.events, "rails up")
	return nil
}

func (r *fakeRails) PowerDown(ctx context.Context) error {
	*r.events = append(*r.events, "rails down")
	return nil
}

type sleepRecorder struct {
	calls []time.Duration
}

func (s *sleepRecorder) sleep(d time.Duration) {
	s.calls = append(s.calls, d)
}

// attach returns a device attached over a fresh recorder. The recorder is
// reset after attach so that tests only see their own traffic.
func attach(t *testing.T, opts ...Option) (*Device, *bustest.Recorder, *fakeSupply, *sleepRecorder) {
	t.Helper()
	bus := bustest.NewRecorder()
	supply := newFakeSupply()
	sleeper := &sleepRecorder{}
	opts = append([]Option{WithSleep(sleeper.sleep)}, opts...)
	dev, err := Attach(context.Background(), bus, supply, opts...)
	require.NoError(t, err)
	bus.Reset()
	return dev, bus, supply, sleeper
}

// countWrites returns how many writes to the sensor carried exactly payload.
func countWrites(bus *bustest.Recorder, payload ...byte) int {
	n := 0
	for _, w := range bus.WritesTo(DefaultAddress) {
		if bytes.Equal(w, payload) {
			n++
		}
	}
	return n
}

func TestAttach(t *testing.T) {
	bus := bustest.NewRecorder()
	bus.OnRead(func(address byte, lastWrite []byte, buffer []byte) error {
		if bytes.Equal(lastWrite, []byte{0x00, 0x25}) {
			buffer[0] = 0x02
		}
		return nil
	})
	supply := newFakeSupply()
	dev, err := Attach(context.Background(), bus, supply)
	require.NoError(t, err)

	assert.Equal(t, byte(0x02), dev.Revision())
	assert.False(t, supply.on, "sensor left powered down")
	assert.False(t, dev.Powered())
	assert.Equal(t, 1, supply.ons)
	assert.Equal(t, 1, supply.offs)
	assert.Equal(t, DefaultMode().Name, dev.Mode().Name)
	assert.Equal(t, Format{Code: DefaultFormat, Width: 1600, Height: 1400}, dev.Format())
	assert.False(t, dev.Streaming())
}

func TestAttach_ConfigurationErrors(t *testing.T) {
	tests := []struct {
		name string
		opts []Option
		rate physic.Frequency
	}{
		{"four lanes", []Option{WithDataLanes(4)}, SupportedClockRate},
		{"no link frequencies", []Option{WithLinkFrequencies()}, SupportedClockRate},
		{"wrong link frequency", []Option{WithLinkFrequencies(456_000_000)}, SupportedClockRate},
		{"wrong clock", nil, 24 * physic.MegaHertz},
		{"no address", []Option{WithAddress(0)}, SupportedClockRate},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			bus := bustest.NewRecorder()
			supply := newFakeSupply()
			supply.rate = test.rate
			_, err := Attach(context.Background(), bus, supply, test.opts...)
			assert.ErrorIs(t, err, ErrConfiguration)
			assert.Equal(t, 0, bus.Calls(), "no bus traffic on configuration errors")
			assert.Equal(t, 0, supply.ons)
		})
	}
}

func TestAttach_ExtraLinkFrequencies(t *testing.T) {
	_, err := Attach(context.Background(), bustest.NewRecorder(), newFakeSupply(),
		WithLinkFrequencies(456_000_000, DefaultLinkFrequency))
	assert.NoError(t, err)
}

func TestAttach_SensorNotResponding(t *testing.T) {
	var events []string
	bus := bustest.NewRecorder()
	bus.FailOnCall(1, errors.New("nack"))
	supply := newFakeSupply()
	supply.events = &events
	_, err := Attach(context.Background(), bus, supply, WithRails(&fakeRails{events: &events}))
	require.Error(t, err)
	assert.Equal(t, []string{"rails up", "supply on", "supply off", "rails down"}, events)
}

func TestAttach_RailFailure(t *testing.T) {
	var events []string
	supply := newFakeSupply()
	_, err := Attach(context.Background(), bustest.NewRecorder(), supply,
		WithRails(&fakeRails{events: &events, fail: errors.New("pmic nack")}))
	require.Error(t, err)
	assert.Equal(t, 0, supply.ons, "sensor supplies untouched")
	assert.Equal(t, []string{"rails down"}, events, "partially raised rails dropped")
}

func TestDetach(t *testing.T) {
	var events []string
	bus := bustest.NewRecorder()
	supply := newFakeSupply()
	supply.events = &events
	dev, err := Attach(context.Background(), bus, supply, WithRails(&fakeRails{events: &events}), WithoutStopWait())
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, dev.SetStream(ctx, true))
	events = nil

	require.NoError(t, dev.Detach(ctx))
	assert.Equal(t, []string{"supply off", "rails down"}, events)
	assert.False(t, dev.Streaming())
	assert.NoError(t, dev.Detach(ctx), "detach twice")

	assert.ErrorIs(t, dev.SetStream(ctx, true), ErrDetached)
	assert.ErrorIs(t, dev.SetControl(ctx, ControlAnalogGain, 2), ErrDetached)
	_, err = dev.SetFormat(ctx, Format{Code: DefaultFormat, Width: 640, Height: 480})
	assert.ErrorIs(t, err, ErrDetached)
	assert.ErrorIs(t, dev.Acquire(ctx), ErrDetached)
}

func TestAcquireRelease(t *testing.T) {
	dev, _, supply, _ := attach(t)
	ctx := context.Background()

	require.NoError(t, dev.Acquire(ctx))
	require.NoError(t, dev.Acquire(ctx))
	assert.True(t, supply.on)
	assert.Equal(t, 1, supply.ons)

	require.NoError(t, dev.Release(ctx))
	assert.True(t, supply.on)
	require.NoError(t, dev.Release(ctx))
	assert.False(t, supply.on)
	require.NoError(t, dev.Release(ctx), "unbalanced release is ignored")
	assert.Equal(t, 1, supply.offs)
}

func TestSetFormat(t *testing.T) {
	dev, bus, _, _ := attach(t)
	ctx := context.Background()

	f, err := dev.SetFormat(ctx, Format{Code: FormatSGRBG10, Width: 1300, Height: 700})
	require.NoError(t, err)
	assert.Equal(t, Format{Code: FormatSGRBG10, Width: 1280, Height: 720}, f)
	assert.Equal(t, "720p", dev.Mode().Name)
	assert.Equal(t, 0, bus.Calls(), "format is applied at stream start")

	vblank, err := dev.Control(ControlVBlank)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), vblank.Value)
	exposure, err := dev.Control(ControlExposure)
	require.NoError(t, err)
	assert.Equal(t, MaxExposure(1260, 720, 1000), exposure.Max)
	assert.Equal(t, exposure.Max, exposure.Default)
	hblank, err := dev.Control(ControlHBlank)
	require.NoError(t, err)
	assert.Equal(t, int64(570), hblank.Value)

	f, err = dev.SetFormat(ctx, Format{Code: PixelFormat(0xDEAD), Width: 640, Height: 480})
	require.NoError(t, err)
	assert.Equal(t, DefaultFormat, f.Code)
	assert.Equal(t, 640, f.Width)
}

func TestSetFormat_KeepsControlsForSameMode(t *testing.T) {
	dev, _, _, _ := attach(t)
	ctx := context.Background()
	require.NoError(t, dev.SetControl(ctx, ControlVBlank, 500))

	_, err := dev.SetFormat(ctx, Format{Code: FormatSGRBG8, Width: 1600, Height: 1400})
	require.NoError(t, err)
	vblank, err := dev.Control(ControlVBlank)
	require.NoError(t, err)
	assert.Equal(t, int64(500), vblank.Value)
}

func TestSuspendResume(t *testing.T) {
	dev, bus, supply, _ := attach(t)
	ctx := context.Background()
	require.NoError(t, dev.SetStream(ctx, true))

	require.NoError(t, dev.Suspend(ctx))
	assert.False(t, dev.Streaming())
	assert.False(t, supply.on)
	assert.ErrorIs(t, dev.SetStream(ctx, true), ErrSuspended)

	require.NoError(t, dev.Resume(ctx))
	assert.True(t, dev.Streaming())
	assert.True(t, supply.on)
	assert.Equal(t, 2, countWrites(bus, 0x00, 0x0A, 0x01), "stream restarted")
	assert.Equal(t, 1, countWrites(bus, 0x00, 0x0C, 0x01))
}

func TestSuspendResume_Idle(t *testing.T) {
	dev, bus, supply, _ := attach(t)
	ctx := context.Background()
	require.NoError(t, dev.Acquire(ctx))

	require.NoError(t, dev.Suspend(ctx))
	assert.False(t, supply.on)
	require.NoError(t, dev.Resume(ctx))
	assert.True(t, supply.on, "held reference is powered again")
	assert.False(t, dev.Streaming())
	assert.Equal(t, 0, bus.Calls())
}

func TestResume_FailureIsVisible(t *testing.T) {
	dev, _, supply, _ := attach(t)
	ctx := context.Background()
	require.NoError(t, dev.SetStream(ctx, true))
	require.NoError(t, dev.Suspend(ctx))

	supply.failOn = errors.New("regulator fault")
	err := dev.Resume(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSequence)
	assert.False(t, dev.Streaming())

	supply.failOn = nil
	require.NoError(t, dev.SetStream(ctx, true), "device usable after failed resume")
}

func TestMode_ProgramNotShared(t *testing.T) {
	dev, bus, _, _ := attach(t)
	ctx := context.Background()
	dev.Mode().Program[1].Value = 0xAA

	require.NoError(t, dev.SetStream(ctx, true))
	op := DefaultMode().Program[1]
	assert.Equal(t, 0, countWrites(bus, byte(op.Addr>>8), byte(op.Addr), 0xAA))
	assert.Positive(t, countWrites(bus, byte(op.Addr>>8), byte(op.Addr), op.Value))
}
