// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package framebuffer

import (
	"errors"
	"fmt"
	"image/color"
	"math/bits"
	"strings"
)

// Color is an index into a panel's native palette.
type Color uint8

// Colors shared by every panel.
const (
	Black Color = iota
	White
	// Chromatic is the third ink (usually red or yellow) of dual-color panels.
	Chromatic
)

// Seven-color (ACeP) palette. Indices match the values the controller
// expects on the wire.
const (
	Green Color = iota + 2
	Blue
	Red
	Yellow
	Orange
	Clean
)

var colorNames = map[string]Color{
	"black":     Black,
	"white":     White,
	"chromatic": Chromatic,
	"green":     Green,
	"blue":      Blue,
	"red":       Red,
	"yellow":    Yellow,
	"orange":    Orange,
	"clean":     Clean,
}

// ParseColor returns the Color named s.
//
// "red" is ambiguous: it resolves to Chromatic on a dual-color model and to
// Red otherwise. Use ColorModel.Parse to get that behavior.
func ParseColor(s string) (Color, error) {
	c, ok := colorNames[strings.ToLower(s)]
	if !ok {
		return 0, fmt.Errorf("framebuffer: unknown color %q", s)
	}
	return c, nil
}

// Kind lists the supported families of color models.
type Kind uint8

// Supported Kind.
const (
	Monochrome Kind = iota
	DualColor
	MultiColor
)

func (k Kind) String() string {
	switch k {
	case Monochrome:
		return "Monochrome"
	case DualColor:
		return "DualColor"
	case MultiColor:
		return "MultiColor"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// ColorModel describes the native palette of a panel and how each of its
// colors is spread over the bit planes of a FrameBuffer.
//
// ColorModel implements color.Model by returning the nearest palette entry.
type ColorModel struct {
	Kind Kind
	// PaletteSize is the number of palette entries of a MultiColor panel.
	PaletteSize int
	// Ink is how Chromatic renders on a DualColor panel. Red when zero.
	Ink color.NRGBA
}

// Predefined color models.
var (
	Mono             = ColorModel{Kind: Monochrome}
	BlackWhiteRed    = ColorModel{Kind: DualColor, Ink: color.NRGBA{R: 255, A: 255}}
	BlackWhiteYellow = ColorModel{Kind: DualColor, Ink: color.NRGBA{R: 255, G: 255, A: 255}}
	// SevenColor holds the seven inks of ACeP panels plus Clean.
	SevenColor = ColorModel{Kind: MultiColor, PaletteSize: 8}
)

// sevenColor approximates how the ACeP inks look. Taken from the Inky
// Impression desaturated palette.
var sevenColor = []color.NRGBA{
	{0, 0, 0, 255},       // Black
	{255, 255, 255, 255}, // White
	{0, 255, 0, 255},     // Green
	{0, 0, 255, 255},     // Blue
	{255, 0, 0, 255},     // Red
	{255, 255, 0, 255},   // Yellow
	{255, 140, 0, 255},   // Orange
	{255, 255, 255, 255}, // Clean
}

// ErrColor is returned when a color is not part of a model's palette.
var ErrColor = errors.New("framebuffer: color not in palette")

// Validate returns an error if the model cannot be represented.
func (m ColorModel) Validate() error {
	switch m.Kind {
	case Monochrome, DualColor:
		return nil
	case MultiColor:
		if m.PaletteSize < 2 || m.PaletteSize > len(sevenColor) {
			return fmt.Errorf("framebuffer: palette of %d colors is not supported", m.PaletteSize)
		}
		return nil
	default:
		return fmt.Errorf("framebuffer: unknown color model %s", m.Kind)
	}
}

// Planes returns the number of bit planes needed to store one pixel.
func (m ColorModel) Planes() int {
	switch m.Kind {
	case DualColor:
		return 2
	case MultiColor:
		if m.PaletteSize < 2 {
			return 1
		}
		return bits.Len(uint(m.PaletteSize - 1))
	default:
		return 1
	}
}

// Len returns the number of valid colors.
func (m ColorModel) Len() int {
	switch m.Kind {
	case DualColor:
		return 3
	case MultiColor:
		return m.PaletteSize
	default:
		return 2
	}
}

// Parse returns the Color named s in this model.
//
// Monochrome models accept black and white. Dual-color models add
// chromatic, with red and yellow as aliases. Multi-color models accept the
// names of their palette.
func (m ColorModel) Parse(s string) (Color, error) {
	name := strings.ToLower(s)
	c, err := ParseColor(name)
	if err != nil {
		return 0, err
	}
	switch m.Kind {
	case Monochrome:
		if c == Black || c == White {
			return c, nil
		}
	case DualColor:
		switch name {
		case "black", "white", "chromatic":
			return c, nil
		case "red", "yellow":
			return Chromatic, nil
		}
	case MultiColor:
		if name != "chromatic" && int(c) < m.Len() {
			return c, nil
		}
	}
	return 0, fmt.Errorf("%w: %q on %s panel", ErrColor, s, m.Kind)
}

// Encode returns the per-plane bits of c. Bit k is the value stored in plane
// k. A set bit means the ink is absent on monochrome and dual-color panels.
func (m ColorModel) Encode(c Color) (uint8, error) {
	switch m.Kind {
	case Monochrome:
		switch c {
		case Black:
			return 0b0, nil
		case White:
			return 0b1, nil
		}
	case DualColor:
		switch c {
		case Black:
			return 0b10, nil
		case White:
			return 0b11, nil
		case Chromatic:
			return 0b01, nil
		}
	case MultiColor:
		if int(c) < m.PaletteSize {
			return uint8(c), nil
		}
	}
	return 0, fmt.Errorf("%w: %d on %s panel", ErrColor, c, m.Kind)
}

// Decode is the inverse of Encode.
func (m ColorModel) Decode(v uint8) (Color, error) {
	switch m.Kind {
	case Monochrome:
		if v&1 != 0 {
			return White, nil
		}
		return Black, nil
	case DualColor:
		switch v & 0b11 {
		case 0b11:
			return White, nil
		case 0b10:
			return Black, nil
		default:
			// The chromatic plane wins when both inks are set.
			return Chromatic, nil
		}
	case MultiColor:
		if int(v) < m.PaletteSize {
			return Color(v), nil
		}
	}
	return 0, fmt.Errorf("%w: bits %#b on %s panel", ErrColor, v, m.Kind)
}

// RGBA returns how c looks on the panel.
func (m ColorModel) RGBA(c Color) color.NRGBA {
	p := m.entries()
	if int(c) >= len(p) {
		return color.NRGBA{}
	}
	return p[c]
}

// Palette returns the model's colors indexed by Color.
func (m ColorModel) Palette() color.Palette {
	e := m.entries()
	p := make(color.Palette, len(e))
	for i := range e {
		p[i] = e[i]
	}
	return p
}

// Index returns the palette entry nearest to c.
func (m ColorModel) Index(c color.Color) Color {
	return Color(m.Palette().Index(c))
}

// Convert implements color.Model.
func (m ColorModel) Convert(c color.Color) color.Color {
	return m.RGBA(m.Index(c))
}

func (m ColorModel) entries() []color.NRGBA {
	bw := []color.NRGBA{{0, 0, 0, 255}, {255, 255, 255, 255}}
	switch m.Kind {
	case DualColor:
		ink := m.Ink
		if ink == (color.NRGBA{}) {
			ink = color.NRGBA{R: 255, A: 255}
		}
		return append(bw, ink)
	case MultiColor:
		n := m.PaletteSize
		if n < 0 || n > len(sevenColor) {
			n = len(sevenColor)
		}
		return sevenColor[:n]
	default:
		return bw
	}
}

var _ color.Model = ColorModel{}
