// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package epd

import (
	"bytes"
	"image"
	"time"

	"github.com/GermanBionicSystems/epaper/framebuffer"
	"github.com/GermanBionicSystems/epaper/panel"
)

type controller interface {
	sendCommand(cmd byte)
	sendData(data []byte)
	waitUntilIdle()
	delay(d time.Duration)
}

// sequence holds what a step sequence needs at run time.
type sequence struct {
	desc *panel.Descriptor
	// planes is the whole frame, in panel orientation.
	planes [][]byte
	// window is in panel pixels. Min.X is a multiple of 8 and Max.X is a
	// multiple of 8 or the panel width.
	window image.Rectangle
	lut    panel.LUT
}

func newSequence(desc *panel.Descriptor) *sequence {
	return &sequence{
		desc:   desc,
		window: image.Rect(0, 0, desc.Width, desc.Height),
	}
}

func (s *sequence) run(ctrl controller, steps []panel.Step) {
	for _, st := range steps {
		switch st.Arg {
		case panel.Idle:
			ctrl.waitUntilIdle()
		case panel.LoadLUT:
			s.loadLUT(ctrl)
		default:
			ctrl.sendCommand(st.Cmd)
			if data := s.payload(st); len(data) != 0 {
				ctrl.sendData(data)
			}
		}
		if st.Delay > 0 {
			ctrl.delay(st.Delay)
		}
		if st.WaitIdle {
			ctrl.waitUntilIdle()
		}
	}
}

// loadLUT splits the table over the layout registers.
func (s *sequence) loadLUT(ctrl controller) {
	off := 0
	for _, r := range s.desc.LUTLayout {
		if off+r.Len > len(s.lut) {
			return
		}
		ctrl.sendCommand(r.Cmd)
		ctrl.sendData(s.lut[off : off+r.Len])
		off += r.Len
	}
}

func (s *sequence) payload(st panel.Step) []byte {
	w, h := s.desc.Width, s.desc.Height
	r := s.window
	switch st.Arg {
	case panel.Resolution:
		return []byte{byte(w >> 8), byte(w), byte(h >> 8), byte(h)}
	case panel.ResolutionShortWidth:
		return []byte{byte(w), byte(h >> 8), byte(h)}
	case panel.GateLines:
		return append([]byte{byte(h - 1), byte((h - 1) >> 8)}, st.Data...)
	case panel.RAMXRange:
		return []byte{byte(r.Min.X >> 3), byte((r.Max.X - 1) >> 3)}
	case panel.RAMYRange:
		return []byte{byte(r.Min.Y), byte(r.Min.Y >> 8), byte(r.Max.Y - 1), byte((r.Max.Y - 1) >> 8)}
	case panel.RAMXCounter:
		return []byte{byte(r.Min.X >> 3)}
	case panel.RAMYCounter:
		return []byte{byte(r.Min.Y), byte(r.Min.Y >> 8)}
	case panel.PartialWindow:
		xe := (r.Max.X - 1) | 0x07
		ye := r.Max.Y - 1
		return []byte{
			byte(r.Min.X >> 8), byte(r.Min.X) & 0xF8,
			byte(xe >> 8), byte(xe),
			byte(r.Min.Y >> 8), byte(r.Min.Y),
			byte(ye >> 8), byte(ye),
			0x01,
		}
	case panel.PlaneData:
		return s.planeWindow(st.Plane)
	case panel.NibbleData:
		return s.nibbles()
	case panel.FillData:
		return bytes.Repeat(st.Data[:1], s.windowStride()*r.Dy())
	default:
		return st.Data
	}
}

// windowStride returns the number of bytes per row of the window.
func (s *sequence) windowStride() int {
	return (s.window.Max.X+7)/8 - s.window.Min.X/8
}

// full is true when the window covers the panel.
func (s *sequence) full() bool {
	return s.window == image.Rect(0, 0, s.desc.Width, s.desc.Height)
}

func (s *sequence) planeWindow(plane int) []byte {
	p := s.planes[plane]
	if s.full() {
		return p
	}
	stride := s.desc.Stride()
	x0, ws := s.window.Min.X/8, s.windowStride()
	out := make([]byte, 0, ws*s.window.Dy())
	for y := s.window.Min.Y; y < s.window.Max.Y; y++ {
		out = append(out, p[y*stride+x0:y*stride+x0+ws]...)
	}
	return out
}

// nibbles merges the planes into palette indices, two pixels per byte with
// the left pixel in the high nibble.
func (s *sequence) nibbles() []byte {
	pad, _ := s.desc.Colors.Encode(framebuffer.White)
	stride := s.desc.Stride()
	r := s.window
	out := make([]byte, 0, (r.Dx()+1)/2*r.Dy())
	index := func(x, y int) byte {
		if x >= s.desc.Width {
			return pad
		}
		i := y*stride + x/8
		shift := uint(7 - x%8)
		var v byte
		for k, p := range s.planes {
			v |= (p[i] >> shift & 1) << uint(k)
		}
		return v
	}
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x += 2 {
			out = append(out, index(x, y)<<4|index(x+1, y)&0x0F)
		}
	}
	return out
}

// reset pulses the reset line.
func reset(eh *errorHandler, t panel.ResetTiming) {
	eh.setReset(false)
	eh.delay(t.Settle)
	eh.setReset(true)
	eh.delay(t.Hold)
	eh.setReset(false)
	eh.delay(t.Recover)
}
