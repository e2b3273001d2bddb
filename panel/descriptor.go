// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package panel

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/GermanBionicSystems/epaper/framebuffer"
)

// LUT contains the waveform that is used to program the display.
type LUT []byte

// Refresh selects one of the two waveforms of a panel.
type Refresh bool

const (
	// Full refreshes the whole panel with the high quality waveform.
	Full Refresh = false
	// Quick uses the fast waveform, prone to ghosting.
	Quick Refresh = true
)

func (r Refresh) String() string {
	if r == Quick {
		return "Quick"
	}
	return "Full"
}

// LUTRegister is one register a LUT is uploaded to. Tables are split across
// registers in order.
type LUTRegister struct {
	Cmd byte
	Len int
}

// Encoding is how frame planes are sent on the wire.
type Encoding uint8

const (
	// Planar sends each bit plane as is.
	Planar Encoding = iota
	// Nibble merges the planes into one 4 bit palette index per pixel, two
	// pixels per byte.
	Nibble
)

// ResetTiming describes the reset pulse. The line is released for Settle,
// asserted for Hold and released again for Recover.
type ResetTiming struct {
	Settle  time.Duration
	Hold    time.Duration
	Recover time.Duration
}

// Arg selects the payload of a Step.
type Arg uint8

// Supported Arg.
const (
	// Literal sends Data.
	Literal Arg = iota
	// Idle sends nothing and waits for the busy line.
	Idle
	// Resolution sends width then height, 16 bits big endian each.
	Resolution
	// ResolutionShortWidth sends width on 8 bits then height on 16 bits big
	// endian.
	ResolutionShortWidth
	// GateLines sends height-1, 16 bits little endian, followed by Data.
	GateLines
	// RAMXRange sends the first and last byte column of the window.
	RAMXRange
	// RAMYRange sends the first and last row of the window, 16 bits little
	// endian each.
	RAMYRange
	// RAMXCounter sends the first byte column of the window.
	RAMXCounter
	// RAMYCounter sends the first row of the window, 16 bits little endian.
	RAMYCounter
	// PartialWindow sends the UC81xx partial window: x, x end, y, y end as
	// 16 bits big endian each, x end having its 3 low bits set, then 0x01.
	PartialWindow
	// PlaneData sends the window of plane Plane.
	PlaneData
	// NibbleData sends the window merged as 4 bit palette indices.
	NibbleData
	// FillData sends Data[0] once per byte of a plane window.
	FillData
	// LoadLUT uploads the active LUT over the descriptor's LUTLayout. Cmd is
	// ignored.
	LoadLUT
)

var argNames = [...]string{"Literal", "Idle", "Resolution", "ResolutionShortWidth", "GateLines", "RAMXRange", "RAMYRange", "RAMXCounter", "RAMYCounter", "PartialWindow", "PlaneData", "NibbleData", "FillData", "LoadLUT"}

func (a Arg) String() string {
	if int(a) < len(argNames) {
		return argNames[a]
	}
	return fmt.Sprintf("Arg(%d)", uint8(a))
}

// Step is one command of a sequence.
type Step struct {
	Cmd  byte
	Data []byte
	Arg  Arg
	// Plane is the plane sent by PlaneData.
	Plane int
	// WaitIdle waits for the busy line to be released after the step.
	WaitIdle bool
	// Delay pauses after the step.
	Delay time.Duration
}

// Descriptor holds the static facts of one panel model.
//
// Descriptors are shared by every driver instance of the model and must
// not be modified once in use. Copy one to derive a variant.
type Descriptor struct {
	Name string
	// Width and Height are in pixels, as the controller scans them.
	Width  int
	Height int
	Colors framebuffer.ColorModel

	// BusyActiveLow is set when a low busy line means busy.
	BusyActiveLow bool
	// QuickRefresh is set when the panel supports quick and partial refresh.
	QuickRefresh bool
	// QuickRefreshLimit is the number of consecutive quick refreshes after
	// which a full refresh is forced. 0 means no limit.
	QuickRefreshLimit int

	FullLUT   LUT
	QuickLUT  LUT
	LUTLayout []LUTRegister

	Encoding Encoding
	Reset    ResetTiming

	// Init brings the controller up after a reset.
	Init []Step
	// ConfigureFull and ConfigureQuick switch the controller to a refresh
	// mode, usually by loading the LUT.
	ConfigureFull  []Step
	ConfigureQuick []Step
	// LoadFrame writes a whole frame to the controller RAM.
	LoadFrame []Step
	// LoadWindow writes a byte aligned window to the controller RAM.
	LoadWindow []Step
	// LoadOldFrame and LoadNewFrame write a whole frame to the previous and
	// the new image RAM of panels comparing both on a quick refresh.
	// LoadOldWindow and LoadNewWindow write a byte aligned window. The four
	// are set together or not at all.
	LoadOldFrame  []Step
	LoadNewFrame  []Step
	LoadOldWindow []Step
	LoadNewWindow []Step
	// LoadPlane writes one plane of a frame, indexed by plane. Optional.
	LoadPlane [][]Step
	// RefreshFull and RefreshQuick trigger the refresh. The driver always
	// waits for the busy line afterward.
	RefreshFull  []Step
	RefreshQuick []Step
	// Sleep enters deep sleep. Leaving it takes a reset and Init.
	Sleep []Step
}

// Planes returns the number of planes of a frame.
func (d *Descriptor) Planes() int {
	return d.Colors.Planes()
}

// PlaneSize returns the size in bytes of one plane.
func (d *Descriptor) PlaneSize() int {
	n, err := framebuffer.Size(d.Width, d.Height, 1)
	if err != nil {
		return 0
	}
	return n
}

// Stride returns the number of bytes per row of a plane.
func (d *Descriptor) Stride() int {
	return (d.Width + 7) / 8
}

// LUTSize returns the number of bytes of a LUT, 0 when the waveform is
// stored in the controller.
func (d *Descriptor) LUTSize() int {
	n := 0
	for _, r := range d.LUTLayout {
		n += r.Len
	}
	return n
}

// LUT returns the default table for a refresh mode.
func (d *Descriptor) LUT(which Refresh) LUT {
	if which == Quick {
		return d.QuickLUT
	}
	return d.FullLUT
}

// NewFrameBuffer returns a frame buffer sized for the panel.
func (d *Descriptor) NewFrameBuffer(r framebuffer.Rotation) (*framebuffer.FrameBuffer, error) {
	return framebuffer.New(d.Width, d.Height, r, d.Colors)
}

// Validate checks that the descriptor is consistent.
func (d *Descriptor) Validate() error {
	if _, err := framebuffer.Size(d.Width, d.Height, d.Planes()); err != nil {
		return fmt.Errorf("panel %s: %w", d.Name, err)
	}
	if err := d.Colors.Validate(); err != nil {
		return fmt.Errorf("panel %s: %w", d.Name, err)
	}
	if d.Encoding == Nibble && d.Colors.Kind != framebuffer.MultiColor {
		return fmt.Errorf("panel %s: nibble encoding requires a multi-color model", d.Name)
	}
	if n := d.LUTSize(); n != 0 {
		if len(d.FullLUT) != n {
			return fmt.Errorf("panel %s: full LUT is %d bytes, layout needs %d", d.Name, len(d.FullLUT), n)
		}
		if d.QuickRefresh && d.QuickLUT != nil && len(d.QuickLUT) != n {
			return fmt.Errorf("panel %s: quick LUT is %d bytes, layout needs %d", d.Name, len(d.QuickLUT), n)
		}
	}
	if len(d.Init) == 0 || len(d.LoadFrame) == 0 || len(d.RefreshFull) == 0 || len(d.Sleep) == 0 {
		return fmt.Errorf("panel %s: missing init, load, refresh or sleep sequence", d.Name)
	}
	if d.QuickRefresh && (len(d.LoadWindow) == 0 || len(d.RefreshQuick) == 0) {
		return fmt.Errorf("panel %s: quick refresh declared without window or quick refresh sequence", d.Name)
	}
	oldNew := 0
	for _, seq := range [][]Step{d.LoadOldFrame, d.LoadNewFrame, d.LoadOldWindow, d.LoadNewWindow} {
		if len(seq) != 0 {
			oldNew++
		}
	}
	if oldNew != 0 && (oldNew != 4 || !d.QuickRefresh) {
		return fmt.Errorf("panel %s: old and new frame sequences need each other and quick refresh", d.Name)
	}
	if d.LoadPlane != nil && len(d.LoadPlane) != d.Planes() {
		return fmt.Errorf("panel %s: %d plane sequences for %d planes", d.Name, len(d.LoadPlane), d.Planes())
	}
	seqs := [][]Step{d.Init, d.ConfigureFull, d.ConfigureQuick, d.LoadFrame, d.LoadWindow, d.LoadOldFrame, d.LoadNewFrame, d.LoadOldWindow, d.LoadNewWindow, d.RefreshFull, d.RefreshQuick, d.Sleep}
	for k, seq := range d.LoadPlane {
		if len(seq) == 0 {
			return fmt.Errorf("panel %s: empty sequence for plane %d", d.Name, k)
		}
		seqs = append(seqs, seq)
	}
	for _, seq := range seqs {
		for _, s := range seq {
			switch s.Arg {
			case PlaneData:
				if s.Plane < 0 || s.Plane >= d.Planes() {
					return fmt.Errorf("panel %s: command %#02x sends plane %d of %d", d.Name, s.Cmd, s.Plane, d.Planes())
				}
			case FillData:
				if len(s.Data) != 1 {
					return fmt.Errorf("panel %s: command %#02x fill needs one byte", d.Name, s.Cmd)
				}
			case NibbleData:
				if d.Encoding != Nibble {
					return fmt.Errorf("panel %s: command %#02x sends nibbles on a planar panel", d.Name, s.Cmd)
				}
			}
		}
	}
	return nil
}

func (d *Descriptor) String() string {
	return fmt.Sprintf("panel.Descriptor{%s, %dx%d, %s}", d.Name, d.Width, d.Height, d.Colors.Kind)
}

var registry = map[string]*Descriptor{}

// register adds d to the registry. It panics on invalid descriptors since
// they are package data.
func register(d *Descriptor) *Descriptor {
	if err := d.Validate(); err != nil {
		panic(err)
	}
	registry[strings.ToLower(d.Name)] = d
	return d
}

// Lookup returns the descriptor registered under name, ignoring case.
func Lookup(name string) (*Descriptor, error) {
	if d, ok := registry[strings.ToLower(name)]; ok {
		return d, nil
	}
	return nil, fmt.Errorf("panel: unknown model %q, expected one of %s", name, strings.Join(Names(), ", "))
}

// Names returns the registered model names, sorted.
func Names() []string {
	out := make([]string, 0, len(registry))
	for _, d := range registry {
		out = append(out, d.Name)
	}
	sort.Strings(out)
	return out
}

// All returns the registered descriptors sorted by name.
func All() []*Descriptor {
	out := make([]*Descriptor, 0, len(registry))
	for _, n := range Names() {
		out = append(out, registry[strings.ToLower(n)])
	}
	return out
}
