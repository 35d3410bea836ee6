package mira220

import (
	"periph.io/x/conn/v3/physic"

	"github.com/mklimuk/mira/regmap"
)

// DefaultAddress is the 7-bit bus address of the sensor.
const DefaultAddress = 0x54

// Bank and context selection. Registers 0x1000-0x1FFF live in bank 1
// (context A), everything else in bank 0.
const (
	regBankSel   regmap.Addr = 0xE000
	regRWContext regmap.Addr = 0xE004
)

// Command registers. Writing 1 then 0 produces a command pulse.
const (
	regCmdReq  regmap.Addr = 0x000A
	regCmdHalt regmap.Addr = 0x000C
)

// Context A registers (bank 1).
const (
	regExpTimeLo regmap.Addr = 0x100C // bits 15:0, little endian pair
	regExpTimeHi regmap.Addr = 0x100E // bits 31:16, little endian pair
	regVBlank    regmap.Addr = 0x1012
	regVFlip     regmap.Addr = 0x1095
)

// Bank 0 registers.
const (
	regRevision    regmap.Addr = 0x0025
	regCSIDataType regmap.Addr = 0x208D
	regTestPattern regmap.Addr = 0x2091
	regHFlip       regmap.Addr = 0x209C
	regBitDepth    regmap.Addr = 0x209E
	regAnalogGain  regmap.Addr = 0x400A
)

const (
	bank0 byte = 0
	bank1 byte = 1
)

// MIPI CSI-2 data types.
const (
	csiDataTypeRAW8  byte = 0x2A
	csiDataTypeRAW10 byte = 0x2B
	csiDataTypeRAW12 byte = 0x2C
)

// bit depth register encodings
const (
	bitDepth12 byte = 0x00
	bitDepth10 byte = 0x01
	bitDepth8  byte = 0x02
)

const (
	testPatternDisabled         byte = 0x00
	testPatternVerticalGradient byte = 0x01
)

// Clocking and link constraints.
const (
	// SupportedClockRate is the only input clock the register programs are calibrated for.
	SupportedClockRate = 38400 * physic.KiloHertz
	// PixelRate is the fixed output pixel rate in pixels per second.
	PixelRate int64 = 384_000_000
	// DefaultLinkFrequency is the CSI-2 link frequency in Hz.
	DefaultLinkFrequency int64 = 750_000_000
	// DataLanes is the number of CSI-2 data lanes the programs configure.
	DataLanes = 2
)

func bankOf(reg regmap.Addr) byte {
	if reg >= 0x1000 && reg < 0x2000 {
		return bank1
	}
	return bank0
}
