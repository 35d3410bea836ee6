package mira220

import "github.com/mklimuk/mira/regmap"

// Register programs are vendor calibrated and opaque to the driver logic.
// They are replayed verbatim; do not reorder.

// commonProgram holds analog trims and CSI-2 setup shared by every mode.
var commonProgram = regmap.Program{
	{Addr: 0xE000, Value: 0x00},
	{Addr: 0x01E4, Value: 0x00},
	{Addr: 0x01E5, Value: 0x13},
	{Addr: 0x01E2, Value: 0x17},
	{Addr: 0x01E3, Value: 0x88},
	{Addr: 0x01E6, Value: 0x00},
	{Addr: 0x01E7, Value: 0xCA},
	{Addr: 0x016C, Value: 0x01},
	{Addr: 0x016B, Value: 0x01},
	{Addr: 0x0208, Value: 0x01},
	{Addr: 0x0209, Value: 0xF0},
	{Addr: 0x020A, Value: 0x01},
	{Addr: 0x020B, Value: 0x4D},
	{Addr: 0x020C, Value: 0x02},
	{Addr: 0x020D, Value: 0x10},
	{Addr: 0x020E, Value: 0x0A},
	{Addr: 0x020F, Value: 0x00},
	{Addr: 0x0210, Value: 0x01},
	{Addr: 0x0211, Value: 0xFE},
	{Addr: 0x0212, Value: 0x00},
	{Addr: 0x0216, Value: 0x00},
	{Addr: 0x0217, Value: 0x60},
	{Addr: 0x0218, Value: 0x00},
	{Addr: 0x0219, Value: 0x1C},
	{Addr: 0x021A, Value: 0x00},
	{Addr: 0x021B, Value: 0x03},
	{Addr: 0x0207, Value: 0x00},
	{Addr: 0x00B1, Value: 0x04},
	{Addr: 0x00B2, Value: 0x33},
	{Addr: 0x00B3, Value: 0x03},
	{Addr: 0x00B4, Value: 0x00},
	{Addr: 0x00B5, Value: 0x1F},
	{Addr: 0x00B6, Value: 0x0F},
	{Addr: 0x00B7, Value: 0x07},
	{Addr: 0x00B8, Value: 0x03},
	{Addr: 0x00B9, Value: 0x4A},
	{Addr: 0x00BA, Value: 0x07},
	{Addr: 0x00BB, Value: 0x00},
	{Addr: 0x00BC, Value: 0x0F},
	{Addr: 0x00BD, Value: 0x00},
	{Addr: 0x00BE, Value: 0x07},
	{Addr: 0x00BF, Value: 0x0A},
	{Addr: 0x00C0, Value: 0x02},
	{Addr: 0x00C1, Value: 0x11},
	{Addr: 0x00C2, Value: 0x00},
	{Addr: 0x00C3, Value: 0x14},
	{Addr: 0x00C4, Value: 0x0C},
	{Addr: 0x0052, Value: 0x01},
	{Addr: 0x0053, Value: 0x03},
	{Addr: 0x0054, Value: 0x00},
	{Addr: 0x0055, Value: 0x27},
	{Addr: 0x0056, Value: 0x00},
	{Addr: 0x0057, Value: 0x00},
	{Addr: 0x0058, Value: 0x00},
	{Addr: 0x0059, Value: 0x00},
	{Addr: 0x005A, Value: 0x00},
	{Addr: 0x005B, Value: 0x00},
	{Addr: 0x005C, Value: 0x00},
	{Addr: 0x005D, Value: 0x00},
	{Addr: 0x207D, Value: 0x01},
	{Addr: 0x207E, Value: 0x00},
	{Addr: 0x207F, Value: 0x02},
	{Addr: 0x2080, Value: 0x00},
	{Addr: 0x2081, Value: 0x00},
	{Addr: 0x2082, Value: 0x00},
	{Addr: 0x2083, Value: 0x01},
	{Addr: 0x2084, Value: 0x12},
	{Addr: 0x2085, Value: 0xB4},
	{Addr: 0x2086, Value: 0x06},
	{Addr: 0x2087, Value: 0x7E},
	{Addr: 0x2088, Value: 0x00},
	{Addr: 0x2089, Value: 0x21},
	{Addr: 0x208A, Value: 0x01},
	{Addr: 0x208B, Value: 0x16},
	{Addr: 0x208C, Value: 0x19},
	{Addr: 0x20A0, Value: 0x00},
	{Addr: 0x20A1, Value: 0x4F},
	{Addr: 0x20A2, Value: 0x00},
	{Addr: 0x20A3, Value: 0x01},
	{Addr: 0x20A4, Value: 0x4F},
	{Addr: 0x20A5, Value: 0x00},
	{Addr: 0x20A6, Value: 0x10},
	{Addr: 0x20A7, Value: 0x01},
	{Addr: 0x401A, Value: 0x08},
	{Addr: 0x4006, Value: 0x08},
	{Addr: 0x401C, Value: 0x6F},
	{Addr: 0x4028, Value: 0x2C},
	{Addr: 0xE000, Value: 0x01},
	{Addr: 0x1000, Value: 0x00},
	{Addr: 0x1001, Value: 0x00},
	{Addr: 0x1002, Value: 0x00},
	{Addr: 0x1003, Value: 0x05},
	{Addr: 0x1004, Value: 0x00},
	{Addr: 0x1005, Value: 0x05},
	{Addr: 0x1006, Value: 0x00},
	{Addr: 0x1007, Value: 0x0E},
	{Addr: 0x1008, Value: 0x00},
	{Addr: 0x1009, Value: 0x00},
	{Addr: 0x100A, Value: 0x00},
	{Addr: 0x100B, Value: 0x00},
	{Addr: 0x1010, Value: 0x00},
	{Addr: 0x1011, Value: 0x00},
	{Addr: 0x1018, Value: 0x00},
	{Addr: 0x1019, Value: 0x00},
	{Addr: 0x101A, Value: 0x00},
	{Addr: 0x101B, Value: 0x00},
	{Addr: 0x1082, Value: 0x01},
	{Addr: 0x1083, Value: 0x00},
	{Addr: 0x1084, Value: 0x00},
	{Addr: 0x1085, Value: 0x00},
	{Addr: 0x1086, Value: 0x00},
	{Addr: 0xE000, Value: 0x00},
}

// Window programs set row length and the readout window of a mode.

var window1600x1400 = regmap.Program{
	{Addr: 0xE000, Value: 0x00},
	{Addr: 0x0042, Value: 0xAA},
	{Addr: 0x0043, Value: 0x05},
	{Addr: 0x2024, Value: 0x00},
	{Addr: 0x2025, Value: 0x00},
	{Addr: 0x2026, Value: 0x40},
	{Addr: 0x2027, Value: 0x06},
	{Addr: 0x2028, Value: 0x00},
	{Addr: 0x2029, Value: 0x00},
	{Addr: 0xE000, Value: 0x01},
	{Addr: 0x1087, Value: 0x78},
	{Addr: 0x1088, Value: 0x05},
	{Addr: 0x1089, Value: 0x00},
	{Addr: 0x108A, Value: 0x00},
	{Addr: 0x1090, Value: 0x00},
	{Addr: 0x1091, Value: 0x00},
	{Addr: 0x1092, Value: 0x00},
	{Addr: 0x1093, Value: 0x00},
	{Addr: 0xE000, Value: 0x00},
}

var window1280x720 = regmap.Program{
	{Addr: 0xE000, Value: 0x00},
	{Addr: 0x0042, Value: 0xEC},
	{Addr: 0x0043, Value: 0x04},
	{Addr: 0x2024, Value: 0xA0},
	{Addr: 0x2025, Value: 0x00},
	{Addr: 0x2026, Value: 0x00},
	{Addr: 0x2027, Value: 0x05},
	{Addr: 0x2028, Value: 0x00},
	{Addr: 0x2029, Value: 0x00},
	{Addr: 0xE000, Value: 0x01},
	{Addr: 0x1087, Value: 0xD0},
	{Addr: 0x1088, Value: 0x02},
	{Addr: 0x1089, Value: 0x54},
	{Addr: 0x108A, Value: 0x01},
	{Addr: 0x1090, Value: 0x00},
	{Addr: 0x1091, Value: 0x00},
	{Addr: 0x1092, Value: 0x00},
	{Addr: 0x1093, Value: 0x00},
	{Addr: 0xE000, Value: 0x00},
}

var window640x480 = regmap.Program{
	{Addr: 0xE000, Value: 0x00},
	{Addr: 0x0042, Value: 0x06},
	{Addr: 0x0043, Value: 0x04},
	{Addr: 0x2024, Value: 0xE0},
	{Addr: 0x2025, Value: 0x01},
	{Addr: 0x2026, Value: 0x80},
	{Addr: 0x2027, Value: 0x02},
	{Addr: 0x2028, Value: 0x00},
	{Addr: 0x2029, Value: 0x00},
	{Addr: 0xE000, Value: 0x01},
	{Addr: 0x1087, Value: 0xE0},
	{Addr: 0x1088, Value: 0x01},
	{Addr: 0x1089, Value: 0xCC},
	{Addr: 0x108A, Value: 0x01},
	{Addr: 0x1090, Value: 0x00},
	{Addr: 0x1091, Value: 0x00},
	{Addr: 0x1092, Value: 0x00},
	{Addr: 0x1093, Value: 0x00},
	{Addr: 0xE000, Value: 0x00},
}

var (
	program1600x1400 = regmap.Concat(commonProgram, window1600x1400)
	program1280x720  = regmap.Concat(commonProgram, window1280x720)
	program640x480   = regmap.Concat(commonProgram, window640x480)
)
