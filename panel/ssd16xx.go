// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package panel

import (
	"time"

	"github.com/GermanBionicSystems/epaper/framebuffer"
)

// Solomon Systech SSD16xx commands, shared by SSD1608, SSD1675 and SSD1680
// and the IL3820 clone.
const (
	SSD16xxDriverOutputControl            byte = 0x01
	SSD16xxGateDrivingVoltageControl      byte = 0x03
	SSD16xxSourceDrivingVoltageControl    byte = 0x04
	SSD16xxBoosterSoftStartControl        byte = 0x0C
	SSD16xxDeepSleepMode                  byte = 0x10
	SSD16xxDataEntryModeSetting           byte = 0x11
	SSD16xxSwReset                        byte = 0x12
	SSD16xxTempSensorSelect               byte = 0x18
	SSD16xxMasterActivation               byte = 0x20
	SSD16xxDisplayUpdateControl1          byte = 0x21
	SSD16xxDisplayUpdateControl2          byte = 0x22
	SSD16xxWriteRAMBW                     byte = 0x24
	SSD16xxWriteRAMRed                    byte = 0x26
	SSD16xxWriteVcomRegister              byte = 0x2C
	SSD16xxWriteLutRegister               byte = 0x32
	SSD16xxWriteDisplayOptionRegister     byte = 0x37
	SSD16xxSetDummyLinePeriod             byte = 0x3A
	SSD16xxSetGateTime                    byte = 0x3B
	SSD16xxBorderWaveformControl          byte = 0x3C
	SSD16xxSetRAMXAddressStartEndPosition byte = 0x44
	SSD16xxSetRAMYAddressStartEndPosition byte = 0x45
	SSD16xxSetRAMXAddressCounter          byte = 0x4E
	SSD16xxSetRAMYAddressCounter          byte = 0x4F
	SSD16xxSetAnalogBlockControl          byte = 0x74
	SSD16xxSetDigitalBlockControl         byte = 0x7E
	SSD16xxNop                            byte = 0xFF
)

// Flags for the SSD16xxDisplayUpdateControl2 command.
const (
	displayUpdateDisableClock byte = 1 << iota
	displayUpdateDisableAnalog
	displayUpdateDisplay
	displayUpdateMode2
	displayUpdateLoadLUTFromOTP
	displayUpdateLoadTemperature
	displayUpdateEnableClock
	displayUpdateEnableAnalog
)

const (
	dataEntryXIncYInc = 0b011
	deepSleepMode1    = 0x01

	gateDrivingVoltage19V          = 0x15
	sourceDrivingVoltageVSH1_15V   = 0x41
	sourceDrivingVoltageVSH2_5V    = 0xA8
	sourceDrivingVoltageVSL_neg15V = 0x32
)

// ssdWindow selects the window and moves the RAM cursor to its origin.
var ssdWindow = []Step{
	{Cmd: SSD16xxSetRAMXAddressStartEndPosition, Arg: RAMXRange},
	{Cmd: SSD16xxSetRAMYAddressStartEndPosition, Arg: RAMYRange},
	{Cmd: SSD16xxSetRAMXAddressCounter, Arg: RAMXCounter},
	{Cmd: SSD16xxSetRAMYAddressCounter, Arg: RAMYCounter, WaitIdle: true},
}

var ssdCursor = []Step{
	{Cmd: SSD16xxSetRAMXAddressCounter, Arg: RAMXCounter},
	{Cmd: SSD16xxSetRAMYAddressCounter, Arg: RAMYCounter},
}

// ssdOld and ssdNew write a window to the red and black and white RAMs,
// which quick refreshes use as the previous and the new image.
var (
	ssdOld = seq(ssdWindow, []Step{{Cmd: SSD16xxWriteRAMRed, Arg: PlaneData}})
	ssdNew = seq(ssdWindow, []Step{{Cmd: SSD16xxWriteRAMBW, Arg: PlaneData}})
)

func seq(parts ...[]Step) []Step {
	var out []Step
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// lut returns b padded with zeros to n bytes.
func lut(n int, b ...byte) []byte {
	out := make([]byte, n)
	copy(out, b)
	return out
}

func concat(parts ...[]byte) LUT {
	var out LUT
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// Type A panels (SSD1608 and IL3820) share one 30 byte LUT register and
// refresh sequence.
var (
	typeALayout = []LUTRegister{{Cmd: SSD16xxWriteLutRegister, Len: 30}}

	typeAQuickLUT = LUT(lut(30,
		0x10, 0x18, 0x18, 0x08, 0x18, 0x18, 0x08, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
		0x13, 0x14, 0x44, 0x12,
	))

	typeAInit = []Step{
		{Arg: Idle},
		{Cmd: SSD16xxDriverOutputControl, Arg: GateLines, Data: []byte{0x00}},
		{Cmd: SSD16xxBoosterSoftStartControl, Data: []byte{0xD7, 0xD6, 0x9D}},
		{Cmd: SSD16xxWriteVcomRegister, Data: []byte{0xA8}},
		{Cmd: SSD16xxSetDummyLinePeriod, Data: []byte{0x1A}},
		{Cmd: SSD16xxSetGateTime, Data: []byte{0x08}},
		{Cmd: SSD16xxDataEntryModeSetting, Data: []byte{dataEntryXIncYInc}},
	}

	typeALoad = seq(ssdWindow, []Step{
		{Cmd: SSD16xxWriteRAMBW, Arg: PlaneData},
	})

	typeARefresh = []Step{
		{Cmd: SSD16xxDisplayUpdateControl2, Data: []byte{displayUpdateEnableClock | displayUpdateEnableAnalog | displayUpdateDisplay}},
		{Cmd: SSD16xxMasterActivation},
		{Cmd: SSD16xxNop},
	}

	typeASleep = []Step{
		{Arg: Idle},
		{Cmd: SSD16xxDeepSleepMode, Data: []byte{deepSleepMode1}},
	}

	typeAReset = ResetTiming{Settle: 10 * time.Millisecond, Hold: 10 * time.Millisecond, Recover: 200 * time.Millisecond}
)

// EPD1in54 is the Waveshare 1.54" (first version, SSD1608) 200x200 panel.
var EPD1in54 = register(&Descriptor{
	Name:              "EPD1in54",
	Width:             200,
	Height:            200,
	Colors:            framebuffer.Mono,
	QuickRefresh:      true,
	QuickRefreshLimit: 10,
	FullLUT: LUT(lut(30,
		0x02, 0x02, 0x01, 0x11, 0x12, 0x12, 0x22, 0x22, 0x66, 0x69,
		0x69, 0x59, 0x58, 0x99, 0x99, 0x88, 0x00, 0x00, 0x00, 0x00,
		0xF8, 0xB4, 0x13, 0x51, 0x35, 0x51, 0x51, 0x19, 0x01, 0x00,
	)),
	QuickLUT:       typeAQuickLUT,
	LUTLayout:      typeALayout,
	Reset:          typeAReset,
	Init:           typeAInit,
	ConfigureFull:  []Step{{Arg: LoadLUT}},
	ConfigureQuick: []Step{{Arg: LoadLUT}},
	LoadFrame:      typeALoad,
	LoadWindow:     typeALoad,
	RefreshFull:    typeARefresh,
	RefreshQuick:   typeARefresh,
	Sleep:          typeASleep,
})

// EPD2in9 is the Waveshare 2.9" (first version, IL3820) 128x296 panel.
var EPD2in9 = register(&Descriptor{
	Name:              "EPD2in9",
	Width:             128,
	Height:            296,
	Colors:            framebuffer.Mono,
	QuickRefresh:      true,
	QuickRefreshLimit: 10,
	FullLUT: LUT(lut(30,
		0x50, 0xAA, 0x55, 0xAA, 0x11, 0x00, 0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
		0xFF, 0xFF, 0x1F,
	)),
	QuickLUT:       typeAQuickLUT,
	LUTLayout:      typeALayout,
	Reset:          typeAReset,
	Init:           typeAInit,
	ConfigureFull:  []Step{{Arg: LoadLUT}},
	ConfigureQuick: []Step{{Arg: LoadLUT}},
	LoadFrame:      typeALoad,
	LoadWindow:     typeALoad,
	RefreshFull:    typeARefresh,
	RefreshQuick:   typeARefresh,
	Sleep:          typeASleep,
})

// EPD2in13v2 is the Waveshare 2.13" version 2 (SSD1675B) 122x250 panel.
//
// Its LUTs carry 70 waveform bytes followed by the gate and source
// voltages, the dummy line period and the gate time.
var EPD2in13v2 = register(&Descriptor{
	Name:              "EPD2in13v2",
	Width:             122,
	Height:            250,
	Colors:            framebuffer.Mono,
	QuickRefresh:      true,
	QuickRefreshLimit: 10,
	FullLUT: concat(
		lut(35,
			0x80, 0x60, 0x40, 0x00, 0x00, 0x00, 0x00,
			0x10, 0x60, 0x20, 0x00, 0x00, 0x00, 0x00,
			0x80, 0x60, 0x40, 0x00, 0x00, 0x00, 0x00,
			0x10, 0x60, 0x20, 0x00, 0x00, 0x00, 0x00,
		),
		lut(35,
			0x03, 0x03, 0x00, 0x00, 0x02,
			0x09, 0x09, 0x00, 0x00, 0x02,
			0x03, 0x03, 0x00, 0x00, 0x02,
		),
		[]byte{
			gateDrivingVoltage19V,
			sourceDrivingVoltageVSH1_15V, sourceDrivingVoltageVSH2_5V, sourceDrivingVoltageVSL_neg15V,
			0x30, 0x0A,
		},
	),
	QuickLUT: concat(
		lut(35,
			0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
			0x80, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
			0x40, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
		),
		lut(35, 0x0A),
		[]byte{
			gateDrivingVoltage19V,
			sourceDrivingVoltageVSH1_15V, sourceDrivingVoltageVSH2_5V, sourceDrivingVoltageVSL_neg15V,
			0x30, 0x0A,
		},
	),
	LUTLayout: []LUTRegister{
		{Cmd: SSD16xxWriteLutRegister, Len: 70},
		{Cmd: SSD16xxGateDrivingVoltageControl, Len: 1},
		{Cmd: SSD16xxSourceDrivingVoltageControl, Len: 3},
		{Cmd: SSD16xxSetDummyLinePeriod, Len: 1},
		{Cmd: SSD16xxSetGateTime, Len: 1},
	},
	Reset: ResetTiming{Settle: 200 * time.Millisecond, Hold: 200 * time.Millisecond, Recover: 200 * time.Millisecond},
	Init: []Step{
		{Arg: Idle},
		{Cmd: SSD16xxSwReset, WaitIdle: true},
		{Cmd: SSD16xxSetAnalogBlockControl, Data: []byte{0x54}},
		{Cmd: SSD16xxSetDigitalBlockControl, Data: []byte{0x3B}},
		{Cmd: SSD16xxDriverOutputControl, Arg: GateLines, Data: []byte{0x00}},
		{Cmd: SSD16xxDataEntryModeSetting, Data: []byte{dataEntryXIncYInc}},
	},
	ConfigureFull: []Step{
		{Cmd: SSD16xxWriteVcomRegister, Data: []byte{0x55}},
		{Cmd: SSD16xxBorderWaveformControl, Data: []byte{0x03}},
		{Arg: LoadLUT},
	},
	ConfigureQuick: []Step{
		{Cmd: SSD16xxWriteVcomRegister, Data: []byte{0x26}, WaitIdle: true},
		{Cmd: SSD16xxBorderWaveformControl, Data: []byte{0x01}},
		{Arg: LoadLUT},
		// Undocumented command used in vendor example code.
		{Cmd: SSD16xxWriteDisplayOptionRegister, Data: []byte{0x00, 0x00, 0x00, 0x00, 0x40, 0x00, 0x00}},
		// Start up the parts likely used by a draw operation soon.
		{Cmd: SSD16xxDisplayUpdateControl2, Data: []byte{displayUpdateEnableClock | displayUpdateEnableAnalog}},
		{Cmd: SSD16xxMasterActivation, WaitIdle: true},
	},
	// The red RAM holds the previous image quick refreshes diff against.
	LoadFrame: seq(ssdWindow, []Step{
		{Cmd: SSD16xxWriteRAMBW, Arg: PlaneData},
	}, ssdCursor, []Step{
		{Cmd: SSD16xxWriteRAMRed, Arg: PlaneData},
	}),
	LoadWindow: seq(ssdWindow, []Step{
		{Cmd: SSD16xxWriteRAMBW, Arg: PlaneData},
	}),
	LoadOldFrame:  ssdOld,
	LoadNewFrame:  ssdNew,
	LoadOldWindow: ssdOld,
	LoadNewWindow: ssdNew,
	RefreshFull: []Step{
		{Cmd: SSD16xxDisplayUpdateControl2, Data: []byte{
			displayUpdateEnableClock | displayUpdateEnableAnalog | displayUpdateDisplay | displayUpdateDisableAnalog | displayUpdateDisableClock,
		}},
		{Cmd: SSD16xxMasterActivation},
	},
	RefreshQuick: []Step{
		{Cmd: SSD16xxDisplayUpdateControl2, Data: []byte{displayUpdateDisplay | displayUpdateMode2}},
		{Cmd: SSD16xxMasterActivation},
	},
	Sleep: []Step{
		{Arg: Idle},
		{Cmd: SSD16xxDisplayUpdateControl2, Data: []byte{
			displayUpdateEnableClock | displayUpdateEnableAnalog | displayUpdateDisableAnalog | displayUpdateDisableClock,
		}},
		{Cmd: SSD16xxMasterActivation, WaitIdle: true},
		{Cmd: SSD16xxDeepSleepMode, Data: []byte{deepSleepMode1}},
	},
})

// EPD2in13v4 is the Waveshare 2.13" version 4 (SSD1680) 122x250 panel. Its
// waveforms are stored in the controller OTP.
var EPD2in13v4 = register(&Descriptor{
	Name:              "EPD2in13v4",
	Width:             122,
	Height:            250,
	Colors:            framebuffer.Mono,
	QuickRefresh:      true,
	QuickRefreshLimit: 10,
	Reset:             ResetTiming{Settle: 20 * time.Millisecond, Hold: 2 * time.Millisecond, Recover: 20 * time.Millisecond},
	Init: seq([]Step{
		{Arg: Idle},
		{Cmd: SSD16xxSwReset, WaitIdle: true},
		{Cmd: SSD16xxDriverOutputControl, Arg: GateLines, Data: []byte{0x00}},
		{Cmd: SSD16xxDataEntryModeSetting, Data: []byte{dataEntryXIncYInc}},
	}, ssdWindow, []Step{
		{Cmd: SSD16xxBorderWaveformControl, Data: []byte{0x05}},
		{Cmd: SSD16xxDisplayUpdateControl1, Data: []byte{0x80, 0x80}},
		{Cmd: SSD16xxTempSensorSelect, Data: []byte{0x80}, WaitIdle: true},
	}),
	ConfigureFull:  []Step{{Cmd: SSD16xxBorderWaveformControl, Data: []byte{0x05}}},
	ConfigureQuick: []Step{{Cmd: SSD16xxBorderWaveformControl, Data: []byte{0x80}}},
	LoadFrame: seq(ssdWindow, []Step{
		{Cmd: SSD16xxWriteRAMBW, Arg: PlaneData},
	}, ssdCursor, []Step{
		{Cmd: SSD16xxWriteRAMRed, Arg: PlaneData},
	}),
	LoadWindow: seq(ssdWindow, []Step{
		{Cmd: SSD16xxWriteRAMBW, Arg: PlaneData},
	}),
	RefreshFull: []Step{
		{Cmd: SSD16xxDisplayUpdateControl2, Data: []byte{0xF7}},
		{Cmd: SSD16xxMasterActivation},
	},
	RefreshQuick: []Step{
		{Cmd: SSD16xxDisplayUpdateControl2, Data: []byte{0xFF}},
		{Cmd: SSD16xxMasterActivation},
	},
	Sleep: []Step{
		{Cmd: SSD16xxDeepSleepMode, Data: []byte{deepSleepMode1}},
	},
})
