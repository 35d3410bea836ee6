package mira220

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaxExposure(t *testing.T) {
	assert.Equal(t, int64(1450*1450-1928), MaxExposure(1450, 1400, 50))
	assert.Equal(t, int64(0), MaxExposure(1, 1, 1), "saturates at zero")

	prev := MaxExposure(1450, 1400, VBlankMin)
	for vblank := VBlankMin + 1; vblank < 200; vblank++ {
		cur := MaxExposure(1450, 1400, vblank)
		assert.Greater(t, cur, prev)
		prev = cur
	}
}

func TestEncodeGain(t *testing.T) {
	tests := []struct {
		gain int64
		reg  byte
	}{
		{1, 8},
		{2, 4},
		{3, 2},
		{4, 2},
	}
	for _, test := range tests {
		reg, err := EncodeGain(test.gain)
		require.NoError(t, err)
		assert.Equal(t, test.reg, reg, "gain %d", test.gain)
	}
	for _, gain := range []int64{0, -1, 5, 100} {
		_, err := EncodeGain(gain)
		assert.ErrorIs(t, err, ErrRange, "gain %d", gain)
	}
}

// Decoding inverts encoding for gains 1, 2 and 4. Gain 3 is the one exception
// to the round trip: 8/3 truncates to the encoding of gain 4.
func TestDecodeGain(t *testing.T) {
	for _, gain := range []int64{1, 2, 4} {
		reg, err := EncodeGain(gain)
		require.NoError(t, err)
		decoded, err := DecodeGain(reg)
		require.NoError(t, err)
		assert.Equal(t, gain, decoded)
	}
	reg, err := EncodeGain(3)
	require.NoError(t, err)
	decoded, err := DecodeGain(reg)
	require.NoError(t, err)
	assert.Equal(t, int64(4), decoded)

	for _, reg := range []byte{0, 1, 3, 5, 9, 0xFF} {
		_, err := DecodeGain(reg)
		assert.ErrorIs(t, err, ErrRange, "reg %#x", reg)
	}
}

func TestFramePeriod(t *testing.T) {
	m := DefaultMode()
	expected := time.Duration(int64(1400+50) * int64(1600+250) * int64(time.Second) / PixelRate)
	assert.Equal(t, expected, FramePeriod(m, 50))
	assert.Greater(t, FramePeriod(m, 100), FramePeriod(m, 50))
}
