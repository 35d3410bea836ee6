package mira220

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestControls_Enumeration(t *testing.T) {
	dev, _, _, _ := attach(t)

	controls := dev.Controls()
	require.Len(t, controls, len(controlOrder))
	for i, c := range controls {
		assert.Equal(t, controlOrder[i], c.ID)
		assert.Equal(t, c.ID.String(), c.Name)
		assert.GreaterOrEqual(t, c.Value, c.Min, c.Name)
		assert.LessOrEqual(t, c.Value, c.Max, c.Name)
	}

	pixelRate, err := dev.Control(ControlPixelRate)
	require.NoError(t, err)
	assert.True(t, pixelRate.ReadOnly)
	assert.Equal(t, PixelRate, pixelRate.Value)

	exposure, err := dev.Control(ControlExposure)
	require.NoError(t, err)
	assert.Equal(t, MaxExposure(1450, 1400, 50), exposure.Max)
	assert.Equal(t, exposure.Max, exposure.Value)

	pattern, err := dev.Control(ControlTestPattern)
	require.NoError(t, err)
	assert.Equal(t, []string{"Disabled", "Vertical Gradient"}, pattern.Menu)

	_, err = dev.Control(ControlID(99))
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestParseControlID(t *testing.T) {
	id, err := ParseControlID("analogue_gain")
	require.NoError(t, err)
	assert.Equal(t, ControlAnalogGain, id)
	_, err = ParseControlID("brightness")
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestSetControl_Rejections(t *testing.T) {
	dev, bus, _, _ := attach(t)
	ctx := context.Background()
	exposure, err := dev.Control(ControlExposure)
	require.NoError(t, err)

	assert.ErrorIs(t, dev.SetControl(ctx, ControlExposure, exposure.Max+1), ErrRange)
	assert.ErrorIs(t, dev.SetControl(ctx, ControlExposure, -1), ErrRange)
	assert.ErrorIs(t, dev.SetControl(ctx, ControlAnalogGain, 5), ErrRange)
	assert.ErrorIs(t, dev.SetControl(ctx, ControlAnalogGain, 0), ErrRange)
	assert.ErrorIs(t, dev.SetControl(ctx, ControlVBlank, VBlankMin-1), ErrRange)
	assert.ErrorIs(t, dev.SetControl(ctx, ControlVBlank, VBlankMax+1), ErrRange)
	assert.ErrorIs(t, dev.SetControl(ctx, ControlTestPattern, 2), ErrRange)
	assert.ErrorIs(t, dev.SetControl(ctx, ControlPixelRate, PixelRate), ErrReadOnly)
	assert.ErrorIs(t, dev.SetControl(ctx, ControlHBlank, 250), ErrReadOnly)
	assert.ErrorIs(t, dev.SetControl(ctx, ControlID(42), 1), ErrUnsupported)
	assert.Equal(t, 0, bus.Calls())

	after, err := dev.Control(ControlExposure)
	require.NoError(t, err)
	assert.Equal(t, exposure.Value, after.Value, "rejected value not recorded")
}

func TestSetControl_VBlankRecomputesExposure(t *testing.T) {
	dev, _, _, _ := attach(t)
	ctx := context.Background()

	require.NoError(t, dev.SetControl(ctx, ControlVBlank, 100))
	exposure, err := dev.Control(ControlExposure)
	require.NoError(t, err)
	assert.Equal(t, MaxExposure(1450, 1400, 100), exposure.Max)
	assert.Equal(t, MaxExposure(1450, 1400, 50), exposure.Value, "value kept when still in range")

	require.NoError(t, dev.SetControl(ctx, ControlVBlank, VBlankMin))
	exposure, err = dev.Control(ControlExposure)
	require.NoError(t, err)
	assert.Equal(t, MaxExposure(1450, 1400, VBlankMin), exposure.Max)
	assert.Equal(t, exposure.Max, exposure.Value, "value clamped to the new limit")
	assert.ErrorIs(t, dev.SetControl(ctx, ControlExposure, exposure.Max+1), ErrRange)
}

func TestSetControl_NoTrafficWhenUnpowered(t *testing.T) {
	dev, bus, supply, _ := attach(t)
	ctx := context.Background()

	require.NoError(t, dev.SetControl(ctx, ControlAnalogGain, 2))
	require.NoError(t, dev.SetControl(ctx, ControlHFlip, 1))
	require.NoError(t, dev.SetControl(ctx, ControlExposure, 1000))
	assert.Equal(t, 0, bus.Calls())
	assert.False(t, supply.on)

	gain, err := dev.Control(ControlAnalogGain)
	require.NoError(t, err)
	assert.Equal(t, int64(2), gain.Value)
}

func TestSetControl_WritesWhenPowered(t *testing.T) {
	dev, bus, _, _ := attach(t)
	ctx := context.Background()
	require.NoError(t, dev.Acquire(ctx))

	require.NoError(t, dev.SetControl(ctx, ControlAnalogGain, 2))
	assert.Equal(t, [][]byte{
		{0xE0, 0x00, 0x00},
		{0x40, 0x0A, 0x04},
	}, bus.WritesTo(DefaultAddress))

	bus.Reset()
	require.NoError(t, dev.SetControl(ctx, ControlExposure, 0x12345))
	assert.Equal(t, [][]byte{
		{0xE0, 0x00, 0x01},
		{0x10, 0x0C, 0x45, 0x23},
		{0x10, 0x0E, 0x01, 0x00},
	}, bus.WritesTo(DefaultAddress))

	bus.Reset()
	require.NoError(t, dev.SetControl(ctx, ControlTestPattern, TestPatternVerticalGradient))
	assert.Equal(t, [][]byte{
		{0xE0, 0x00, 0x00},
		{0x20, 0x91, 0x01},
	}, bus.WritesTo(DefaultAddress))
}

func TestSetControl_VBlankRewritesClampedExposure(t *testing.T) {
	dev, bus, _, _ := attach(t)
	ctx := context.Background()
	require.NoError(t, dev.Acquire(ctx))

	require.NoError(t, dev.SetControl(ctx, ControlVBlank, VBlankMin))
	maxExp := uint32(MaxExposure(1450, 1400, VBlankMin))
	assert.Equal(t, [][]byte{
		{0xE0, 0x00, 0x01},
		{0x10, 0x12, 0x0B, 0x00},
		{0xE0, 0x00, 0x01},
		{0x10, 0x0C, byte(maxExp), byte(maxExp >> 8)},
		{0x10, 0x0E, byte(maxExp >> 16), byte(maxExp >> 24)},
	}, bus.WritesTo(DefaultAddress))
}

func TestSetControl_RollbackOnBusFailure(t *testing.T) {
	dev, bus, _, _ := attach(t)
	ctx := context.Background()
	require.NoError(t, dev.Acquire(ctx))

	bus.FailOnCall(2, errors.New("nack"))
	err := dev.SetControl(ctx, ControlAnalogGain, 4)
	require.Error(t, err)

	gain, err := dev.Control(ControlAnalogGain)
	require.NoError(t, err)
	assert.Equal(t, AnalogGainMin, gain.Value)

	bus.Reset()
	bus.FailOnCall(3, errors.New("nack"))
	err = dev.SetControl(ctx, ControlVBlank, VBlankMin)
	require.Error(t, err)
	vblank, err := dev.Control(ControlVBlank)
	require.NoError(t, err)
	assert.Equal(t, int64(50), vblank.Value)
	exposure, err := dev.Control(ControlExposure)
	require.NoError(t, err)
	assert.Equal(t, MaxExposure(1450, 1400, 50), exposure.Max, "exposure limit restored")
}
