package mira220

import (
	"fmt"
	"image"
	"slices"
	"strconv"

	"github.com/mklimuk/mira/regmap"
)

// Mode is a supported readout configuration.
type Mode struct {
	Name   string
	Width  int
	Height int
	// Crop is the readout window within the pixel array.
	Crop    image.Rectangle
	Program regmap.Program
	// RowLength is the duration of one row readout in input clock cycles.
	RowLength int64
	VBlank    int64
	HBlank    int64
}

// clone detaches the program from the static mode table.
func (m Mode) clone() Mode {
	m.Program = slices.Clone(m.Program)
	return m
}

func (m Mode) String() string {
	return fmt.Sprintf("%dx%d", m.Width, m.Height)
}

// PixelArray is the full active pixel array of the sensor.
var PixelArray = image.Rect(0, 0, 1600, 1400)

// modes is ordered by preference; the first entry is the default mode.
var modes = []Mode{
	{
		Name:      "full",
		Width:     1600,
		Height:    1400,
		Crop:      image.Rect(0, 0, 1600, 1400),
		Program:   program1600x1400,
		RowLength: 1450,
		VBlank:    50,
		HBlank:    250,
	},
	{
		Name:      "720p",
		Width:     1280,
		Height:    720,
		Crop:      image.Rect(160, 340, 1440, 1060),
		Program:   program1280x720,
		RowLength: 1260,
		VBlank:    1000,
		HBlank:    570,
	},
	{
		Name:      "vga",
		Width:     640,
		Height:    480,
		Crop:      image.Rect(480, 460, 1120, 940),
		Program:   program640x480,
		RowLength: 1030,
		VBlank:    2000,
		HBlank:    1190,
	},
}

// Modes returns a copy of the supported mode table, programs included.
func Modes() []Mode {
	res := make([]Mode, 0, len(modes))
	for _, m := range modes {
		res = append(res, m.clone())
	}
	return res
}

// DefaultMode is the mode selected at attach time.
func DefaultMode() Mode {
	return modes[0].clone()
}

// LookupMode returns the mode matching width and height exactly or, when there
// is none, the mode with the smallest summed size difference. Ties go to the
// earlier table entry. It never fails.
func LookupMode(width, height int) Mode {
	best := modes[0]
	bestDist := -1
	for _, m := range modes {
		if m.Width == width && m.Height == height {
			return m.clone()
		}
		dist := abs(m.Width-width) + abs(m.Height-height)
		if bestDist < 0 || dist < bestDist {
			best = m
			bestDist = dist
		}
	}
	return best.clone()
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// PixelFormat is a media bus code.
type PixelFormat uint32

const (
	FormatSGRBG8  PixelFormat = 0x3002
	FormatSGRBG10 PixelFormat = 0x300A
	FormatSGRBG12 PixelFormat = 0x3010
)

// DefaultFormat is used when an unsupported code is requested.
const DefaultFormat = FormatSGRBG12

func (f PixelFormat) String() string {
	switch f {
	case FormatSGRBG8:
		return "SGRBG8_1X8"
	case FormatSGRBG10:
		return "SGRBG10_1X10"
	case FormatSGRBG12:
		return "SGRBG12_1X12"
	default:
		return fmt.Sprintf("unknown(%#x)", uint32(f))
	}
}

// ParsePixelFormat accepts a format name as printed by String or a bit depth ("8", "10", "12").
func ParsePixelFormat(s string) (PixelFormat, error) {
	for _, f := range EnumFormats() {
		if s == f.String() || s == strconv.Itoa(f.BitDepth()) {
			return f, nil
		}
	}
	return 0, fmt.Errorf("%w: pixel format %q", ErrUnsupported, s)
}

// BitDepth returns bits per pixel of the encoding, 0 when unsupported.
func (f PixelFormat) BitDepth() int {
	switch f {
	case FormatSGRBG8:
		return 8
	case FormatSGRBG10:
		return 10
	case FormatSGRBG12:
		return 12
	default:
		return 0
	}
}

func (f PixelFormat) supported() bool {
	return f.BitDepth() != 0
}

// formatProgram returns the bank 0 writes selecting output bit depth and CSI data type.
func formatProgram(f PixelFormat) regmap.Program {
	depth, dataType := bitDepth12, csiDataTypeRAW12
	switch f {
	case FormatSGRBG8:
		depth, dataType = bitDepth8, csiDataTypeRAW8
	case FormatSGRBG10:
		depth, dataType = bitDepth10, csiDataTypeRAW10
	}
	return regmap.Program{
		{Addr: regBankSel, Value: bank0},
		{Addr: regBitDepth, Value: depth},
		{Addr: regCSIDataType, Value: dataType},
	}
}

// Format is the active pad format.
type Format struct {
	Code   PixelFormat `yaml:"code"`
	Width  int         `yaml:"width"`
	Height int         `yaml:"height"`
}

// FrameSize is a discrete size a format can be captured in.
type FrameSize struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// EnumFormats lists supported pixel encodings.
func EnumFormats() []PixelFormat {
	return []PixelFormat{FormatSGRBG8, FormatSGRBG10, FormatSGRBG12}
}

// EnumFrameSizes lists frame sizes available for code; nil for unsupported codes.
func EnumFrameSizes(code PixelFormat) []FrameSize {
	if !code.supported() {
		return nil
	}
	res := make([]FrameSize, 0, len(modes))
	for _, m := range modes {
		res = append(res, FrameSize{Width: m.Width, Height: m.Height})
	}
	return res
}
