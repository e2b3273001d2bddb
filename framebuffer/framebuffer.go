// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package framebuffer implements bit-packed, multi-plane pixel memory for
// e-paper panels.
//
// Each plane stores one bit per pixel, rows left to right with the most
// significant bit first, in the orientation of the panel. Drawing happens in
// the rotated (logical) orientation; coordinates are mapped to the panel
// before they are stored.
package framebuffer

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"math/bits"
	"strconv"

	"tinygo.org/x/drivers"
)

// Rotation of the drawing surface relative to the panel, clockwise.
type Rotation uint8

// Supported Rotation.
const (
	Rotate0 Rotation = iota
	Rotate90
	Rotate180
	Rotate270
)

// FromDriversRotation converts a tinygo display rotation.
func FromDriversRotation(r drivers.Rotation) Rotation {
	switch r {
	case drivers.Rotation90:
		return Rotate90
	case drivers.Rotation180:
		return Rotate180
	case drivers.Rotation270:
		return Rotate270
	default:
		return Rotate0
	}
}

func (r Rotation) String() string {
	switch r {
	case Rotate0, Rotate90, Rotate180, Rotate270:
		return strconv.Itoa(int(r) * 90)
	default:
		return fmt.Sprintf("Rotation(%d)", uint8(r))
	}
}

// Set sets the Rotation to the value represented by the string s, in
// degrees. Set implements the flag.Value interface.
func (r *Rotation) Set(s string) error {
	switch s {
	case "0":
		*r = Rotate0
	case "90":
		*r = Rotate90
	case "180":
		*r = Rotate180
	case "270":
		*r = Rotate270
	default:
		return fmt.Errorf("unknown rotation %q: expected 0, 90, 180 or 270", s)
	}
	return nil
}

var (
	// ErrOutOfBounds is returned for coordinates outside the buffer.
	ErrOutOfBounds = errors.New("framebuffer: coordinates out of bounds")
	// ErrSize is returned when a buffer of the requested size cannot exist.
	ErrSize = errors.New("framebuffer: invalid size")
)

// Size returns the number of bytes needed to hold planes bit planes of
// width×height pixels, each row padded to a whole byte.
//
// The product is computed on 128 bits so it cannot wrap, then checked
// against the platform's int.
func Size(width, height, planes int) (int, error) {
	if width <= 0 || height <= 0 || planes <= 0 {
		return 0, fmt.Errorf("%w: %dx%d with %d planes", ErrSize, width, height, planes)
	}
	stride := (uint64(width) + 7) / 8
	hi, plane := bits.Mul64(stride, uint64(height))
	if hi != 0 {
		return 0, fmt.Errorf("%w: %dx%d overflows", ErrSize, width, height)
	}
	hi, total := bits.Mul64(plane, uint64(planes))
	if hi != 0 || total > math.MaxInt {
		return 0, fmt.Errorf("%w: %dx%d with %d planes overflows", ErrSize, width, height, planes)
	}
	return int(total), nil
}

// FrameBuffer holds the pixels of one frame.
//
// The zero value is not usable, use New.
type FrameBuffer struct {
	// Panel dimensions, before rotation.
	width, height int
	stride        int
	rotation      Rotation
	model         ColorModel
	planes        [][]byte
}

// New returns a zero-initialized FrameBuffer for a panel of width×height
// pixels (panel orientation).
func New(width, height int, rotation Rotation, m ColorModel) (*FrameBuffer, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	if rotation > Rotate270 {
		return nil, fmt.Errorf("framebuffer: invalid rotation %s", rotation)
	}
	n := m.Planes()
	total, err := Size(width, height, n)
	if err != nil {
		return nil, err
	}
	per := total / n
	buf := make([]byte, total)
	f := &FrameBuffer{
		width:    width,
		height:   height,
		stride:   (width + 7) / 8,
		rotation: rotation,
		model:    m,
		planes:   make([][]byte, n),
	}
	for i := range f.planes {
		f.planes[i] = buf[i*per : (i+1)*per : (i+1)*per]
	}
	return f, nil
}

// Planes returns the packed planes in panel orientation. The slices alias
// the buffer.
func (f *FrameBuffer) Planes() [][]byte {
	return f.planes
}

// Stride returns the number of bytes per row of a plane.
func (f *FrameBuffer) Stride() int {
	return f.stride
}

// PanelSize returns the dimensions before rotation.
func (f *FrameBuffer) PanelSize() (width, height int) {
	return f.width, f.height
}

// Rotation returns the rotation set at creation.
func (f *FrameBuffer) Rotation() Rotation {
	return f.rotation
}

// Colors returns the color model of the buffer.
func (f *FrameBuffer) Colors() ColorModel {
	return f.model
}

// Width returns the logical width, after rotation.
func (f *FrameBuffer) Width() int {
	if f.rotation == Rotate90 || f.rotation == Rotate270 {
		return f.height
	}
	return f.width
}

// Height returns the logical height, after rotation.
func (f *FrameBuffer) Height() int {
	if f.rotation == Rotate90 || f.rotation == Rotate270 {
		return f.width
	}
	return f.height
}

// toPanel maps logical coordinates to panel coordinates.
func (f *FrameBuffer) toPanel(x, y int) (int, int, bool) {
	if x < 0 || y < 0 || x >= f.Width() || y >= f.Height() {
		return 0, 0, false
	}
	switch f.rotation {
	case Rotate90:
		return f.width - 1 - y, x, true
	case Rotate180:
		return f.width - 1 - x, f.height - 1 - y, true
	case Rotate270:
		return y, f.height - 1 - x, true
	default:
		return x, y, true
	}
}

// SetPixel sets the pixel at logical coordinates (x, y) to c.
func (f *FrameBuffer) SetPixel(x, y int, c Color) error {
	px, py, ok := f.toPanel(x, y)
	if !ok {
		return fmt.Errorf("%w: (%d,%d) in %dx%d", ErrOutOfBounds, x, y, f.Width(), f.Height())
	}
	v, err := f.model.Encode(c)
	if err != nil {
		return err
	}
	i := py*f.stride + px/8
	mask := byte(0x80) >> uint(px%8)
	for k, p := range f.planes {
		if v&(1<<uint(k)) != 0 {
			p[i] |= mask
		} else {
			p[i] &^= mask
		}
	}
	return nil
}

// GetPixel returns the color of the pixel at logical coordinates (x, y).
func (f *FrameBuffer) GetPixel(x, y int) (Color, error) {
	px, py, ok := f.toPanel(x, y)
	if !ok {
		return 0, fmt.Errorf("%w: (%d,%d) in %dx%d", ErrOutOfBounds, x, y, f.Width(), f.Height())
	}
	i := py*f.stride + px/8
	shift := uint(7 - px%8)
	var v uint8
	for k, p := range f.planes {
		v |= (p[i] >> shift & 1) << uint(k)
	}
	return f.model.Decode(v)
}

// Clear fills the whole buffer with c.
func (f *FrameBuffer) Clear(c Color) error {
	v, err := f.model.Encode(c)
	if err != nil {
		return err
	}
	for k, p := range f.planes {
		var b byte
		if v&(1<<uint(k)) != 0 {
			b = 0xFF
		}
		for i := range p {
			p[i] = b
		}
	}
	return nil
}

// PanelRect maps a logical rectangle to panel coordinates. The result is
// clipped to the buffer.
func (f *FrameBuffer) PanelRect(r image.Rectangle) image.Rectangle {
	r = r.Intersect(f.Bounds())
	if r.Empty() {
		return image.Rectangle{}
	}
	ax, ay, _ := f.toPanel(r.Min.X, r.Min.Y)
	bx, by, _ := f.toPanel(r.Max.X-1, r.Max.Y-1)
	p := image.Rect(ax, ay, bx, by)
	p.Max = p.Max.Add(image.Pt(1, 1))
	return p
}

// ColorModel implements image.Image.
func (f *FrameBuffer) ColorModel() color.Model {
	return f.model
}

// Bounds implements image.Image. It is the logical, rotated surface.
func (f *FrameBuffer) Bounds() image.Rectangle {
	return image.Rect(0, 0, f.Width(), f.Height())
}

// At implements image.Image.
func (f *FrameBuffer) At(x, y int) color.Color {
	c, err := f.GetPixel(x, y)
	if err != nil {
		return color.NRGBA{}
	}
	return f.model.RGBA(c)
}

// Set implements draw.Image. The nearest palette color is used and
// coordinates outside the buffer are ignored.
func (f *FrameBuffer) Set(x, y int, c color.Color) {
	_ = f.SetPixel(x, y, f.model.Index(c))
}

func (f *FrameBuffer) String() string {
	return fmt.Sprintf("framebuffer.FrameBuffer{%dx%d, %s, rotation: %s}", f.width, f.height, f.model.Kind, f.rotation)
}

// Displayer returns an adapter so tinygo drawing libraries (for example
// tinyfont) can draw into the buffer. Display calls flush when not nil.
func (f *FrameBuffer) Displayer(flush func() error) drivers.Displayer {
	return &displayer{f: f, flush: flush}
}

type displayer struct {
	f     *FrameBuffer
	flush func() error
}

func (d *displayer) Size() (x, y int16) {
	return int16(d.f.Width()), int16(d.f.Height())
}

func (d *displayer) SetPixel(x, y int16, c color.RGBA) {
	_ = d.f.SetPixel(int(x), int(y), d.f.model.Index(c))
}

func (d *displayer) Display() error {
	if d.flush == nil {
		return nil
	}
	return d.flush()
}

var _ draw.Image = &FrameBuffer{}
var _ fmt.Stringer = &FrameBuffer{}
