package mira220

import (
	"fmt"
	"time"
)

// GlobalClockOverhead is the number of clock cycles of the global shutter
// operation that cannot be used for exposure.
const GlobalClockOverhead int64 = 1928

// VBlank limits in rows.
const (
	VBlankMin int64 = 11
	VBlankMax int64 = 50000
)

// Analog gain limits. Only integer factors whose encoding is exact are accepted.
const (
	AnalogGainMin int64 = 1
	AnalogGainMax int64 = 4
)

const gainNumerator = 8

// MaxExposure returns the longest exposure for a frame, in clock cycles:
// rowLength*(frameHeight+vblank) minus the global shutter overhead. It
// saturates at zero.
func MaxExposure(rowLength, frameHeight, vblank int64) int64 {
	res := rowLength*(frameHeight+vblank) - GlobalClockOverhead
	if res < 0 {
		return 0
	}
	return res
}

// EncodeGain converts an analog gain factor into its register value (8/gain).
// Gains outside 1..4 are rejected before the division since truncation would
// silently program a different gain.
func EncodeGain(gain int64) (byte, error) {
	if gain < AnalogGainMin || gain > AnalogGainMax {
		return 0, fmt.Errorf("%w: analog gain %d not in [%d, %d]", ErrRange, gain, AnalogGainMin, AnalogGainMax)
	}
	return byte(gainNumerator / gain), nil
}

// DecodeGain returns the gain factor programmed by reg (8/reg). Gain 3 is
// truncated to the encoding of gain 4 by EncodeGain and decodes as 4.
func DecodeGain(reg byte) (int64, error) {
	if reg == 0 {
		return 0, fmt.Errorf("%w: invalid analog gain encoding %#x", ErrRange, reg)
	}
	gain := int64(gainNumerator / int(reg))
	if gain < AnalogGainMin || gain > AnalogGainMax || byte(gainNumerator/gain) != reg {
		return 0, fmt.Errorf("%w: invalid analog gain encoding %#x", ErrRange, reg)
	}
	return gain, nil
}

// FramePeriod returns the time needed to read out one frame of mode m with the
// given vertical blank.
func FramePeriod(m Mode, vblank int64) time.Duration {
	lines := m.Height + int(vblank)
	lineLength := m.Width + int(m.HBlank)
	return time.Duration(int64(lines) * int64(lineLength) * int64(time.Second) / PixelRate)
}
