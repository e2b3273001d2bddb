// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package panel

import (
	"time"

	"github.com/GermanBionicSystems/epaper/framebuffer"
)

// UltraChip UC81xx commands, shared by UC8176, UC8159 and the IL0373 clone.
const (
	UC81xxPSR   = 0x00 // Panel setting
	UC81xxPWR   = 0x01 // Power setting
	UC81xxPOF   = 0x02 // Power off
	UC81xxPFS   = 0x03 // Power off sequence setting
	UC81xxPON   = 0x04 // Power on
	UC81xxBTST  = 0x06 // Booster soft start
	UC81xxDSLP  = 0x07 // Deep sleep
	UC81xxDTM1  = 0x10 // Data start transmission 1
	UC81xxDSP   = 0x11 // Data stop
	UC81xxDRF   = 0x12 // Display refresh
	UC81xxDTM2  = 0x13 // Data start transmission 2
	UC81xxLUTC  = 0x20 // VCOM LUT
	UC81xxLUTWW = 0x21 // White to white LUT
	UC81xxLUTBW = 0x22 // Black to white LUT
	UC81xxLUTWB = 0x23 // White to black LUT
	UC81xxLUTBB = 0x24 // Black to black LUT
	UC81xxPLL   = 0x30 // PLL control
	UC81xxTSE   = 0x41 // Temperature sensor enable
	UC81xxCDI   = 0x50 // VCOM and data interval
	UC81xxTCON  = 0x60 // Gate and source non-overlap period
	UC81xxTRES  = 0x61 // Resolution setting
	UC81xxVDCS  = 0x82 // VCOM DC setting
	UC81xxPTL   = 0x90 // Partial window
	UC81xxPTIN  = 0x91 // Partial in
	UC81xxPTOUT = 0x92 // Partial out
	UC81xxPWS   = 0xE3 // Power saving
)

const deepSleepCheck = 0xA5

var uc81xxReset = ResetTiming{Settle: 10 * time.Millisecond, Hold: 10 * time.Millisecond, Recover: 200 * time.Millisecond}

// EPD4in2 is the Waveshare 4.2" (UC8176) 400x300 panel.
var EPD4in2 = register(&Descriptor{
	Name:              "EPD4in2",
	Width:             400,
	Height:            300,
	Colors:            framebuffer.Mono,
	BusyActiveLow:     true,
	QuickRefresh:      true,
	QuickRefreshLimit: 5,
	FullLUT: concat(
		lut(44,
			0x00, 0x17, 0x00, 0x00, 0x00, 0x02,
			0x00, 0x17, 0x17, 0x00, 0x00, 0x02,
			0x00, 0x0A, 0x01, 0x00, 0x00, 0x01,
			0x00, 0x0E, 0x0E, 0x00, 0x00, 0x02,
		),
		uc8176WhiteLUT, uc8176WhiteLUT, uc8176BlackLUT, uc8176BlackLUT,
	),
	QuickLUT: concat(
		lut(44, 0x00, 0x0E, 0x00, 0x00, 0x00, 0x01),
		lut(42, 0xA0, 0x0E, 0x00, 0x00, 0x00, 0x01),
		lut(42, 0xA0, 0x0E, 0x00, 0x00, 0x00, 0x01),
		lut(42, 0x50, 0x0E, 0x00, 0x00, 0x00, 0x01),
		lut(42, 0x50, 0x0E, 0x00, 0x00, 0x00, 0x01),
	),
	LUTLayout: []LUTRegister{
		{Cmd: UC81xxLUTC, Len: 44},
		{Cmd: UC81xxLUTWW, Len: 42},
		{Cmd: UC81xxLUTBW, Len: 42},
		{Cmd: UC81xxLUTWB, Len: 42},
		{Cmd: UC81xxLUTBB, Len: 42},
	},
	Reset: uc81xxReset,
	Init: []Step{
		{Cmd: UC81xxPWR, Data: []byte{0x03, 0x00, 0x2B, 0x2B, 0xFF}},
		{Cmd: UC81xxBTST, Data: []byte{0x17, 0x17, 0x17}},
		{Cmd: UC81xxPON, Delay: 5 * time.Millisecond, WaitIdle: true},
		// LUT from register, black and white, scan up, shift right, booster on.
		{Cmd: UC81xxPSR, Data: []byte{0x3F}},
		// 100Hz frame rate.
		{Cmd: UC81xxPLL, Data: []byte{0x3A}},
		{Cmd: UC81xxTRES, Arg: Resolution},
		{Cmd: UC81xxVDCS, Data: []byte{0x12}},
		{Cmd: UC81xxCDI, Data: []byte{0x97}},
	},
	ConfigureFull:  []Step{{Arg: LoadLUT}},
	ConfigureQuick: []Step{{Arg: LoadLUT}},
	// DTM1 holds the previous image. It is reset to white so a full refresh
	// drives every pixel.
	LoadFrame: []Step{
		{Cmd: UC81xxDTM1, Arg: FillData, Data: []byte{0xFF}},
		{Cmd: UC81xxDTM2, Arg: PlaneData},
	},
	LoadWindow: []Step{
		{Cmd: UC81xxPTIN},
		{Cmd: UC81xxPTL, Arg: PartialWindow},
		{Cmd: UC81xxDTM2, Arg: PlaneData},
		{Cmd: UC81xxPTOUT},
	},
	LoadOldFrame: []Step{{Cmd: UC81xxDTM1, Arg: PlaneData}},
	LoadNewFrame: []Step{{Cmd: UC81xxDTM2, Arg: PlaneData}},
	LoadOldWindow: []Step{
		{Cmd: UC81xxPTIN},
		{Cmd: UC81xxPTL, Arg: PartialWindow},
		{Cmd: UC81xxDTM1, Arg: PlaneData},
		{Cmd: UC81xxPTOUT},
	},
	LoadNewWindow: []Step{
		{Cmd: UC81xxPTIN},
		{Cmd: UC81xxPTL, Arg: PartialWindow},
		{Cmd: UC81xxDTM2, Arg: PlaneData},
		{Cmd: UC81xxPTOUT},
	},
	RefreshFull:  []Step{{Cmd: UC81xxDRF, Delay: 100 * time.Millisecond}},
	RefreshQuick: []Step{{Cmd: UC81xxDRF, Delay: 100 * time.Millisecond}},
	Sleep: []Step{
		{Cmd: UC81xxCDI, Data: []byte{0x17}},
		{Cmd: UC81xxVDCS},
		{Cmd: UC81xxPSR},
		{Cmd: UC81xxPWR, Data: []byte{0x00, 0x00, 0x00, 0x00}},
		{Cmd: UC81xxPOF, WaitIdle: true},
		{Cmd: UC81xxDSLP, Data: []byte{deepSleepCheck}},
	},
})

var (
	uc8176WhiteLUT = lut(42,
		0x40, 0x17, 0x00, 0x00, 0x00, 0x02,
		0x90, 0x17, 0x17, 0x00, 0x00, 0x02,
		0x40, 0x0A, 0x01, 0x00, 0x00, 0x01,
		0xA0, 0x0E, 0x0E, 0x00, 0x00, 0x02,
	)
	uc8176BlackLUT = lut(42,
		0x80, 0x17, 0x00, 0x00, 0x00, 0x02,
		0x90, 0x17, 0x17, 0x00, 0x00, 0x02,
		0x80, 0x0A, 0x01, 0x00, 0x00, 0x01,
		0x50, 0x0E, 0x0E, 0x00, 0x00, 0x02,
	)
)

// EPD2in9bc is the Waveshare 2.9" (IL0373) 128x296 black, white and red
// panel. The yellow variant uses the same controller; derive it with
// BlackWhiteYellow colors.
var EPD2in9bc = register(&Descriptor{
	Name:          "EPD2in9bc",
	Width:         128,
	Height:        296,
	Colors:        framebuffer.BlackWhiteRed,
	BusyActiveLow: true,
	Reset:         uc81xxReset,
	Init: []Step{
		{Cmd: UC81xxBTST, Data: []byte{0x17, 0x17, 0x17}},
		{Cmd: UC81xxPON, Delay: 5 * time.Millisecond, WaitIdle: true},
		// LUT from OTP, 128x296.
		{Cmd: UC81xxPSR, Data: []byte{0x8F}},
		// White border.
		{Cmd: UC81xxCDI, Data: []byte{0x77}},
		{Cmd: UC81xxTRES, Arg: ResolutionShortWidth},
		{Cmd: UC81xxVDCS, Data: []byte{0x0A}, WaitIdle: true},
	},
	LoadFrame: []Step{
		{Cmd: UC81xxDTM1, Arg: PlaneData, Plane: 0},
		{Cmd: UC81xxDTM2, Arg: PlaneData, Plane: 1},
	},
	LoadPlane: [][]Step{
		{{Cmd: UC81xxDTM1, Arg: PlaneData, Plane: 0}},
		{{Cmd: UC81xxDTM2, Arg: PlaneData, Plane: 1, WaitIdle: true}},
	},
	RefreshFull: []Step{{Cmd: UC81xxDRF}},
	Sleep: []Step{
		// Floating border.
		{Cmd: UC81xxCDI, Data: []byte{0xF7}},
		{Cmd: UC81xxPOF, WaitIdle: true},
		{Cmd: UC81xxDSLP, Data: []byte{deepSleepCheck}},
	},
})

// EPD5in65f is the Waveshare 5.65" (UC8159) 600x448 seven color panel.
var EPD5in65f = register(&Descriptor{
	Name:          "EPD5in65f",
	Width:         600,
	Height:        448,
	Colors:        framebuffer.SevenColor,
	BusyActiveLow: true,
	Encoding:      Nibble,
	Reset:         ResetTiming{Settle: 10 * time.Millisecond, Hold: 2 * time.Millisecond, Recover: 200 * time.Millisecond},
	Init: []Step{
		{Arg: Idle},
		{Cmd: UC81xxPSR, Data: []byte{0xEF, 0x08}},
		{Cmd: UC81xxPWR, Data: []byte{0x37, 0x00, 0x23, 0x23}},
		{Cmd: UC81xxPFS, Data: []byte{0x00}},
		{Cmd: UC81xxBTST, Data: []byte{0xC7, 0xC7, 0x1D}},
		{Cmd: UC81xxPLL, Data: []byte{0x3C}},
		{Cmd: UC81xxTSE, Data: []byte{0x00}},
		// White border.
		{Cmd: UC81xxCDI, Data: []byte{0x37}},
		{Cmd: UC81xxTCON, Data: []byte{0x22}},
		{Cmd: UC81xxTRES, Arg: Resolution},
		{Cmd: UC81xxPWS, Data: []byte{0xAA}, Delay: 100 * time.Millisecond},
		{Cmd: UC81xxCDI, Data: []byte{0x37}},
	},
	LoadFrame: []Step{
		{Cmd: UC81xxTRES, Arg: Resolution},
		{Cmd: UC81xxDTM1, Arg: NibbleData},
	},
	RefreshFull: []Step{
		{Cmd: UC81xxPON, WaitIdle: true},
		{Cmd: UC81xxDRF, WaitIdle: true},
		{Cmd: UC81xxPOF},
	},
	Sleep: []Step{
		{Cmd: UC81xxDSLP, Data: []byte{deepSleepCheck}},
	},
})
