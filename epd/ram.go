// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package epd

import (
	"fmt"
	"image"

	"github.com/GermanBionicSystems/epaper/framebuffer"
	"github.com/GermanBionicSystems/epaper/panel"
)

// Panels with a previous image RAM compare it with the new image on a quick
// refresh and only drive the pixels that changed. The methods below write
// each RAM on its own. The usual loop is:
//
//	d.UpdateOldFrame(shown)
//	d.UpdateNewFrame(next)
//	d.DisplayNewFrame()
//
// then next becomes shown.

// UpdateOldFrame writes f to the previous image RAM. The panel is not
// refreshed.
func (d *Dev) UpdateOldFrame(f Frame) error {
	return d.updateRAM("update old frame", f, d.fullWindow(), false)
}

// UpdateNewFrame writes f to the new image RAM. The panel is not refreshed.
func (d *Dev) UpdateNewFrame(f Frame) error {
	return d.updateRAM("update new frame", f, d.fullWindow(), true)
}

// UpdatePartialOldFrame writes the window (x, y, w, h) of f to the previous
// image RAM. The window follows the rules of UpdatePartialFrame.
func (d *Dev) UpdatePartialOldFrame(f Frame, x, y, w, h int) error {
	return d.updateRAM("partial old frame", f, func() (image.Rectangle, error) { return d.window(x, y, w, h) }, false)
}

// UpdatePartialNewFrame writes the window (x, y, w, h) of f to the new
// image RAM.
func (d *Dev) UpdatePartialNewFrame(f Frame, x, y, w, h int) error {
	return d.updateRAM("partial new frame", f, func() (image.Rectangle, error) { return d.window(x, y, w, h) }, true)
}

// ClearPartialFrame fills the window (x, y, w, h) of both image RAMs with
// color c.
func (d *Dev) ClearPartialFrame(c framebuffer.Color, x, y, w, h int) error {
	if err := d.oldNew(); err != nil {
		return err
	}
	v, err := d.desc.Colors.Encode(c)
	if err != nil {
		return err
	}
	win, err := d.window(x, y, w, h)
	if err != nil {
		return err
	}
	if err := d.ready("clear partial frame"); err != nil {
		return err
	}
	if err := d.send(d.uniform(v), win, d.desc.LoadOldWindow, d.desc.LoadNewWindow); err != nil {
		d.loaded = false
		return err
	}
	return nil
}

// DisplayNewFrame quick refreshes the panel from the image RAMs and waits
// until it is idle. Once the quick refresh limit is reached a full refresh
// runs instead.
func (d *Dev) DisplayNewFrame() error {
	if err := d.oldNew(); err != nil {
		return err
	}
	if err := d.ready("display new frame"); err != nil {
		return err
	}
	if !d.loaded {
		return fmt.Errorf("%w: display new frame before any update", ErrInvalidState)
	}
	return d.displayAs(panel.Quick)
}

// UpdateAndDisplayNewFrame writes f to the new image RAM then quick
// refreshes the panel.
func (d *Dev) UpdateAndDisplayNewFrame(f Frame) error {
	if err := d.UpdateNewFrame(f); err != nil {
		return err
	}
	return d.displayAs(panel.Quick)
}

// UpdateAchromaticFrame writes the black and white plane of a dual color
// panel, 0 bits being black. The panel is not refreshed.
func (d *Dev) UpdateAchromaticFrame(p []byte) error {
	return d.updatePlane("update achromatic frame", 0, p)
}

// UpdateChromaticFrame writes the chromatic plane of a dual color panel, 0
// bits being chromatic, and waits until the panel is idle.
//
// DisplayFrame is accepted once both planes were written.
func (d *Dev) UpdateChromaticFrame(p []byte) error {
	return d.updatePlane("update chromatic frame", 1, p)
}

// oldNew fails when the panel cannot address its image RAMs separately.
func (d *Dev) oldNew() error {
	if len(d.desc.LoadOldFrame) == 0 {
		return fmt.Errorf("%w: %s has no separate old and new frame RAM", ErrUnsupported, d.desc.Name)
	}
	return nil
}

func (d *Dev) fullWindow() func() (image.Rectangle, error) {
	return func() (image.Rectangle, error) {
		return image.Rect(0, 0, d.desc.Width, d.desc.Height), nil
	}
}

// updateRAM writes the window of f returned by win to the new image RAM
// when isNew is set, the previous one otherwise. Only a whole new frame
// makes DisplayNewFrame possible.
func (d *Dev) updateRAM(op string, f Frame, win func() (image.Rectangle, error), isNew bool) error {
	if err := d.oldNew(); err != nil {
		return err
	}
	planes, err := d.checkFrame(f)
	if err != nil {
		return err
	}
	r, err := win()
	if err != nil {
		return err
	}
	if err := d.ready(op); err != nil {
		return err
	}
	full := r == image.Rect(0, 0, d.desc.Width, d.desc.Height)
	steps := d.desc.LoadOldWindow
	switch {
	case isNew && full:
		steps = d.desc.LoadNewFrame
	case isNew:
		steps = d.desc.LoadNewWindow
	case full:
		steps = d.desc.LoadOldFrame
	}
	if err := d.send(planes, r, steps); err != nil {
		d.loaded = false
		return err
	}
	if isNew && full {
		d.loaded = true
	}
	return nil
}

func (d *Dev) updatePlane(op string, k int, p []byte) error {
	if d.desc.Colors.Kind != framebuffer.DualColor || len(d.desc.LoadPlane) != 2 {
		return fmt.Errorf("%w: %s cannot write a plane on its own", ErrUnsupported, d.desc.Name)
	}
	if n := d.desc.PlaneSize(); len(p) != n {
		return fmt.Errorf("%w: plane is %d bytes, %s needs %d", ErrBufferSize, len(p), d.desc.Name, n)
	}
	if err := d.ready(op); err != nil {
		return err
	}
	planes := make([][]byte, d.desc.Planes())
	planes[k] = p
	bit := uint8(1) << uint(k)
	if err := d.send(planes, image.Rect(0, 0, d.desc.Width, d.desc.Height), d.desc.LoadPlane[k]); err != nil {
		d.written &^= bit
		d.loaded = false
		return err
	}
	d.written |= bit
	if d.written == 1<<uint(len(planes))-1 {
		d.loaded = true
	}
	return nil
}

// send runs the sequences in order over the window win.
func (d *Dev) send(planes [][]byte, win image.Rectangle, seqs ...[]panel.Step) error {
	eh := &errorHandler{d: d}
	s := newSequence(d.desc)
	s.planes = planes
	s.window = win
	d.state = Sending
	for _, steps := range seqs {
		s.run(eh, steps)
	}
	d.state = Ready
	return eh.err
}
