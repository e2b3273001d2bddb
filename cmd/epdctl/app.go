// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"log"
	"time"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"github.com/robfig/cron/v3"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"tinygo.org/x/tinyfont"
	"tinygo.org/x/tinyfont/freemono"

	"github.com/GermanBionicSystems/epaper/epd"
	"github.com/GermanBionicSystems/epaper/framebuffer"
	"github.com/GermanBionicSystems/epaper/termview"
)

var ink = color.RGBA{A: 255}

// app draws into a frame buffer and pushes it to the panel, and to the
// terminal in preview mode.
type app struct {
	dev  *epd.Dev
	fb   *framebuffer.FrameBuffer
	view *termview.Dev
	// shown is set once a full frame was displayed.
	shown bool
}

func newApp(dev *epd.Dev, r framebuffer.Rotation, view *termview.Dev) (*app, error) {
	fb, err := dev.NewFrameBuffer(r)
	if err != nil {
		return nil, err
	}
	if err := fb.Clear(framebuffer.White); err != nil {
		return nil, err
	}
	return &app{dev: dev, fb: fb, view: view}, nil
}

func (a *app) preview() error {
	if a.view == nil {
		return nil
	}
	return a.view.Draw(a.view.Bounds(), a.fb, image.Point{})
}

// show writes the whole frame and refreshes the panel.
func (a *app) show() error {
	if err := a.dev.UpdateAndDisplayFrame(a.fb); err != nil {
		return err
	}
	a.shown = true
	return a.preview()
}

// showPartial refreshes the logical rectangle r only, when the panel can.
func (a *app) showPartial(r image.Rectangle) error {
	if !a.shown || !a.dev.Descriptor().QuickRefresh {
		return a.show()
	}
	p := a.fb.PanelRect(r)
	if err := a.dev.UpdatePartialFrame(a.fb, p.Min.X, p.Min.Y, p.Dx(), p.Dy()); err != nil {
		return err
	}
	return a.preview()
}

func (a *app) clear(name string) error {
	c, err := a.fb.Colors().Parse(name)
	if err != nil {
		return err
	}
	if err := a.dev.ClearFrame(c); err != nil {
		return err
	}
	if err := a.dev.DisplayFrame(); err != nil {
		return err
	}
	if err := a.fb.Clear(c); err != nil {
		return err
	}
	a.shown = true
	return a.preview()
}

func (a *app) pattern(name string) error {
	n := a.fb.Colors().Len()
	w, h := a.fb.Width(), a.fb.Height()
	var pick func(x, y int) int
	switch name {
	case "checker":
		pick = func(x, y int) int { return (x/16 + y/16) % n }
	case "stripes":
		pick = func(x, y int) int { return x * n / w }
	default:
		return fmt.Errorf("unknown pattern %q: expected checker or stripes", name)
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if err := a.fb.SetPixel(x, y, framebuffer.Color(pick(x, y))); err != nil {
				return err
			}
		}
	}
	return a.show()
}

// text writes s from the top left corner in a monospace font.
func (a *app) text(s string) error {
	if err := a.fb.Clear(framebuffer.White); err != nil {
		return err
	}
	f := &freemono.Regular12pt7b
	d := a.fb.Displayer(a.show)
	tinyfont.WriteLine(d, f, 4, int16(f.GetYAdvance()), s, ink)
	return d.Display()
}

// banner centers s in large antialiased type, snapped to the palette.
func (a *app) banner(s string, c framebuffer.Color) error {
	w, h := a.fb.Width(), a.fb.Height()
	f, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return err
	}
	dc := gg.NewContext(w, h)
	dc.SetColor(color.White)
	dc.Clear()
	face := truetype.NewFace(f, &truetype.Options{Size: float64(h) / 3})
	dc.SetFontFace(face)
	dc.SetColor(a.fb.Colors().RGBA(c))
	// Center the ink, not the line box.
	b, _ := font.BoundString(face, s)
	x := float64(w)/2 - float64(b.Min.X+b.Max.X)/128
	y := float64(h)/2 - float64(b.Min.Y+b.Max.Y)/128
	dc.DrawString(s, x, y)
	draw.Draw(a.fb, a.fb.Bounds(), dc.Image(), image.Point{}, draw.Src)
	return a.show()
}

var clockFont = &freemono.Bold18pt7b

// clockRect is the band the clock is drawn in.
func (a *app) clockRect() image.Rectangle {
	h := int(clockFont.GetYAdvance())
	top := (a.fb.Height() - h) / 2
	return image.Rect(0, top, a.fb.Width(), top+h)
}

// clock draws s centered and refreshes only its band.
func (a *app) clock(s string) error {
	r := a.clockRect()
	draw.Draw(a.fb, r, image.White, image.Point{}, draw.Src)
	_, w := tinyfont.LineWidth(clockFont, s)
	x := (a.fb.Width() - int(w)) / 2
	tinyfont.WriteLine(a.fb.Displayer(nil), clockFont, int16(x), int16(r.Max.Y-r.Dy()/4), s, ink)
	return a.showPartial(r)
}

// run refreshes the clock on schedule until ctx is canceled.
func (a *app) run(ctx context.Context, schedule, format string) error {
	if err := a.clock(time.Now().Format(format)); err != nil {
		return err
	}
	errc := make(chan error, 1)
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	_, err := c.AddFunc(schedule, func() {
		if err := a.clock(time.Now().Format(format)); err != nil {
			select {
			case errc <- err:
			default:
			}
		}
	})
	if err != nil {
		return fmt.Errorf("schedule %q: %w", schedule, err)
	}
	c.Start()
	defer func() {
		<-c.Stop().Done()
	}()
	select {
	case <-ctx.Done():
		log.Printf("stopping")
		return nil
	case err := <-errc:
		if errors.Is(err, epd.ErrTimeout) {
			return fmt.Errorf("panel stuck busy: %w", err)
		}
		return err
	}
}
