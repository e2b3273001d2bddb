// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package epd

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"time"

	"periph.io/x/conn/v3"

	"github.com/GermanBionicSystems/epaper/framebuffer"
	"github.com/GermanBionicSystems/epaper/panel"
)

// Transport is the link to the panel controller.
//
// WriteCommand sends one opcode with the D/C line low, WriteData sends
// parameters with the D/C line high. SetReset drives the reset line, true
// holding the controller in reset. ReadBusy returns the raw busy line, high
// being true.
type Transport interface {
	WriteCommand(cmd byte) error
	WriteData(data []byte) error
	SetReset(active bool) error
	ReadBusy() bool
	Delay(d time.Duration)
}

// Frame is pixel memory in panel orientation, one packed slice per plane.
//
// *framebuffer.FrameBuffer implements Frame.
type Frame interface {
	Planes() [][]byte
}

// Planes is a Frame made of raw planes.
type Planes [][]byte

// Planes implements Frame.
func (p Planes) Planes() [][]byte {
	return p
}

// Opts is optional configuration.
type Opts struct {
	// Wait is how the driver waits for the busy line.
	Wait WaitPolicy
	// QuickRefreshLimit overrides the panel's limit of consecutive quick
	// refreshes when not 0. -1 disables the limit.
	QuickRefreshLimit int
}

// Dev drives one panel.
//
// Dev is not safe for concurrent use.
type Dev struct {
	t    Transport
	desc *panel.Descriptor
	opts Opts
	luts lutManager
	now  func() time.Time

	state State
	// mode is the refresh selected for DisplayFrame.
	mode panel.Refresh
	// configured is set when the controller is set up for loadedMode.
	configured bool
	loadedMode panel.Refresh
	// loaded is set once the controller RAM holds a frame.
	loaded bool
	// written has bit k set once plane k was written on its own.
	written uint8
	// quick counts consecutive quick refreshes.
	quick int
}

// New returns a driver for the panel described by desc. No command is sent
// until Init.
func New(t Transport, desc *panel.Descriptor, opts *Opts) (*Dev, error) {
	if t == nil {
		return nil, errors.New("epd: nil transport")
	}
	if desc == nil {
		return nil, errors.New("epd: nil panel descriptor")
	}
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	d := &Dev{
		t:    t,
		desc: desc,
		luts: lutManager{desc: desc},
		now:  time.Now,
	}
	if opts != nil {
		d.opts = *opts
	}
	return d, nil
}

func (d *Dev) String() string {
	name := "?"
	if s, ok := d.t.(fmt.Stringer); ok {
		name = s.String()
	}
	return fmt.Sprintf("epd.Dev{%s, %s, %s}", name, d.desc.Name, d.state)
}

// Descriptor returns the panel model.
func (d *Dev) Descriptor() *panel.Descriptor {
	return d.desc
}

// State returns the protocol state.
func (d *Dev) State() State {
	return d.state
}

// Refresh returns the refresh mode DisplayFrame uses.
func (d *Dev) Refresh() panel.Refresh {
	return d.mode
}

// NewFrameBuffer returns a frame buffer sized for the panel.
func (d *Dev) NewFrameBuffer(r framebuffer.Rotation) (*framebuffer.FrameBuffer, error) {
	return d.desc.NewFrameBuffer(r)
}

// IsBusy returns true while the panel is processing, whatever the polarity
// of the busy line.
func (d *Dev) IsBusy() bool {
	return d.t.ReadBusy() != d.desc.BusyActiveLow
}

// Init resets the panel, runs its bring-up sequence and loads the LUT of
// the selected refresh mode, Full unless SetLUT chose otherwise.
//
// Init may be called again to recover a panel in an unknown state.
func (d *Dev) Init() error {
	eh := &errorHandler{d: d}
	reset(eh, d.desc.Reset)
	eh.waitUntilIdle()
	newSequence(d.desc).run(eh, d.desc.Init)
	d.configured = false
	d.configure(eh, d.mode)
	d.loaded = false
	d.written = 0
	d.quick = 0
	if eh.err != nil {
		d.state = Uninitialized
		return eh.err
	}
	d.state = Ready
	return nil
}

// SetLUT overrides the waveform of a refresh mode and selects that mode for
// DisplayFrame. A nil table restores the panel default.
//
// Before Init the table is only stored.
func (d *Dev) SetLUT(t panel.LUT, which panel.Refresh) error {
	if d.state != Ready && d.state != Uninitialized {
		return fmt.Errorf("%w: set LUT while %s", ErrInvalidState, d.state)
	}
	if err := d.luts.set(t, which); err != nil {
		return err
	}
	d.mode = which
	if d.state != Ready {
		return nil
	}
	if err := d.waitUntilIdle(); err != nil {
		return err
	}
	eh := &errorHandler{d: d}
	d.configured = false
	d.configure(eh, which)
	return eh.err
}

// UpdateFrame writes f to the controller RAM. The panel is not refreshed.
func (d *Dev) UpdateFrame(f Frame) error {
	planes, err := d.checkFrame(f)
	if err != nil {
		return err
	}
	if err := d.ready("update frame"); err != nil {
		return err
	}
	eh := &errorHandler{d: d}
	d.load(eh, planes)
	return eh.err
}

// ClearFrame writes a frame of uniform color c to the controller RAM.
func (d *Dev) ClearFrame(c framebuffer.Color) error {
	v, err := d.desc.Colors.Encode(c)
	if err != nil {
		return err
	}
	if err := d.ready("clear frame"); err != nil {
		return err
	}
	eh := &errorHandler{d: d}
	d.load(eh, d.uniform(v))
	return eh.err
}

// DisplayFrame refreshes the panel from the controller RAM with the
// selected refresh mode and waits until the panel is idle.
//
// It fails with ErrInvalidState when no frame was written since Init or
// WakeUp.
func (d *Dev) DisplayFrame() error {
	if err := d.ready("display frame"); err != nil {
		return err
	}
	if !d.loaded {
		return fmt.Errorf("%w: display frame before any update", ErrInvalidState)
	}
	return d.display()
}

// UpdateAndDisplayFrame writes f then refreshes the panel. Nothing is
// displayed when the write fails.
func (d *Dev) UpdateAndDisplayFrame(f Frame) error {
	if err := d.UpdateFrame(f); err != nil {
		return err
	}
	return d.display()
}

// UpdatePartialFrame writes the window (x, y, w, h) of f and quick
// refreshes the panel.
//
// f is the whole frame and the window is in panel coordinates; use
// FrameBuffer.PanelRect to map a rotated rectangle. The window is widened
// to whole bytes: x is rounded down and x+w up to a multiple of 8.
//
// Once the quick refresh limit is reached, the whole frame is written and
// fully refreshed instead.
func (d *Dev) UpdatePartialFrame(f Frame, x, y, w, h int) error {
	if !d.desc.QuickRefresh {
		return fmt.Errorf("%w: %s has no partial refresh", ErrUnsupported, d.desc.Name)
	}
	planes, err := d.checkFrame(f)
	if err != nil {
		return err
	}
	win, err := d.window(x, y, w, h)
	if err != nil {
		return err
	}
	if err := d.ready("partial update"); err != nil {
		return err
	}
	eh := &errorHandler{d: d}
	s := newSequence(d.desc)
	s.planes = planes
	which, steps := panel.Quick, d.desc.LoadWindow
	if d.ghostingDue() {
		which, steps = panel.Full, d.desc.LoadFrame
	} else {
		s.window = win
	}
	d.configure(eh, which)
	d.state = Sending
	s.run(eh, steps)
	d.state = Ready
	if eh.err != nil {
		d.loaded = false
		return eh.err
	}
	d.loaded = true
	return d.refresh(eh, which)
}

// Sleep puts the panel in deep sleep. Only WakeUp and Init are accepted
// afterward.
func (d *Dev) Sleep() error {
	if err := d.ready("sleep"); err != nil {
		return err
	}
	eh := &errorHandler{d: d}
	newSequence(d.desc).run(eh, d.desc.Sleep)
	if eh.err != nil {
		return eh.err
	}
	d.state = Sleeping
	d.configured = false
	d.loaded = false
	d.written = 0
	return nil
}

// WakeUp leaves deep sleep. The panel is reset, brought up again and the
// LUT of the selected refresh mode is reloaded.
func (d *Dev) WakeUp() error {
	if d.state != Sleeping {
		return fmt.Errorf("%w: wake up while %s", ErrInvalidState, d.state)
	}
	eh := &errorHandler{d: d}
	reset(eh, d.desc.Reset)
	eh.waitUntilIdle()
	newSequence(d.desc).run(eh, d.desc.Init)
	d.configure(eh, d.mode)
	if eh.err != nil {
		d.configured = false
		return eh.err
	}
	d.state = Ready
	return nil
}

// Halt implements conn.Resource. It puts the panel to sleep when it is
// ready.
func (d *Dev) Halt() error {
	if d.state != Ready {
		return nil
	}
	return d.Sleep()
}

// ready checks that frame operations are accepted and waits for the panel.
func (d *Dev) ready(op string) error {
	if d.state != Ready {
		return fmt.Errorf("%w: %s while %s", ErrInvalidState, op, d.state)
	}
	return d.waitUntilIdle()
}

func (d *Dev) checkFrame(f Frame) ([][]byte, error) {
	if f == nil {
		return nil, fmt.Errorf("%w: nil frame", ErrBufferSize)
	}
	planes := f.Planes()
	if len(planes) != d.desc.Planes() {
		return nil, fmt.Errorf("%w: %d planes, %s needs %d", ErrBufferSize, len(planes), d.desc.Name, d.desc.Planes())
	}
	n := d.desc.PlaneSize()
	for i, p := range planes {
		if len(p) != n {
			return nil, fmt.Errorf("%w: plane %d is %d bytes, %s needs %d", ErrBufferSize, i, len(p), d.desc.Name, n)
		}
	}
	return planes, nil
}

// window validates a partial window and widens it to whole bytes.
func (d *Dev) window(x, y, w, h int) (image.Rectangle, error) {
	if x < 0 || y < 0 || w <= 0 || h <= 0 || w > d.desc.Width-x || h > d.desc.Height-y {
		return image.Rectangle{}, fmt.Errorf("%w: window (%d,%d) %dx%d on %dx%d panel", ErrOutOfBounds, x, y, w, h, d.desc.Width, d.desc.Height)
	}
	x1 := (x + w + 7) &^ 7
	if x1 > d.desc.Width {
		x1 = d.desc.Width
	}
	return image.Rect(x&^7, y, x1, y+h), nil
}

// uniform returns the planes of a frame whose every pixel encodes to v.
func (d *Dev) uniform(v uint8) [][]byte {
	planes := make([][]byte, d.desc.Planes())
	for k := range planes {
		var b byte
		if v&(1<<uint(k)) != 0 {
			b = 0xFF
		}
		planes[k] = bytes.Repeat([]byte{b}, d.desc.PlaneSize())
	}
	return planes
}

func (d *Dev) load(eh *errorHandler, planes [][]byte) {
	s := newSequence(d.desc)
	s.planes = planes
	d.state = Sending
	s.run(eh, d.desc.LoadFrame)
	d.state = Ready
	d.loaded = eh.err == nil
}

// configure sets the controller up for a refresh mode when needed.
func (d *Dev) configure(eh *errorHandler, which panel.Refresh) {
	if d.configured && d.loadedMode == which {
		return
	}
	steps := d.desc.ConfigureFull
	if which == panel.Quick {
		steps = d.desc.ConfigureQuick
	}
	s := newSequence(d.desc)
	s.lut = d.luts.get(which)
	s.run(eh, steps)
	d.loadedMode = which
	d.configured = eh.err == nil
}

func (d *Dev) display() error {
	return d.displayAs(d.mode)
}

func (d *Dev) displayAs(which panel.Refresh) error {
	eh := &errorHandler{d: d}
	if which == panel.Quick && d.ghostingDue() {
		which = panel.Full
	}
	d.configure(eh, which)
	return d.refresh(eh, which)
}

// refresh triggers the refresh and waits for the panel.
func (d *Dev) refresh(eh *errorHandler, which panel.Refresh) error {
	steps := d.desc.RefreshFull
	if which == panel.Quick {
		steps = d.desc.RefreshQuick
	}
	d.state = Refreshing
	newSequence(d.desc).run(eh, steps)
	eh.waitUntilIdle()
	d.state = Ready
	if eh.err != nil {
		return eh.err
	}
	if which == panel.Quick {
		d.quick++
	} else {
		d.quick = 0
	}
	return nil
}

func (d *Dev) quickLimit() int {
	switch {
	case d.opts.QuickRefreshLimit < 0:
		return 0
	case d.opts.QuickRefreshLimit > 0:
		return d.opts.QuickRefreshLimit
	default:
		return d.desc.QuickRefreshLimit
	}
}

func (d *Dev) ghostingDue() bool {
	n := d.quickLimit()
	return n > 0 && d.quick >= n
}

var _ conn.Resource = &Dev{}
