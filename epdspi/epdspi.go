// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package epdspi connects e-paper panels over a periph.io SPI port and GPIO
// pins.
//
// Dev implements epd.Transport.
package epdspi

import (
	"fmt"
	"time"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/host/v3/rpi"
)

// Opts is optional configuration.
type Opts struct {
	// Freq is the SPI clock. Defaults to 5MHz.
	Freq physic.Frequency
	// MaxTxSize caps the size of a single SPI transaction. Defaults to the
	// port limit or 4096 bytes.
	MaxTxSize int
}

// Dev is a panel connection: SPI for the data and GPIO for D/C, chip
// select, reset and busy.
type Dev struct {
	c         spi.Conn
	maxTxSize int
	dc        gpio.PinOut
	cs        gpio.PinOut
	rst       gpio.PinOut
	busy      gpio.PinIn
	sleep     func(time.Duration)
}

// New connects to a panel. cs may be nil when the SPI port drives the chip
// select line.
func New(p spi.Port, dc, cs, rst gpio.PinOut, busy gpio.PinIn, opts *Opts) (*Dev, error) {
	if opts == nil {
		opts = &Opts{}
	}
	f := opts.Freq
	if f == 0 {
		f = 5 * physic.MegaHertz
	}
	c, err := p.Connect(f, spi.Mode0, 8)
	if err != nil {
		return nil, fmt.Errorf("epdspi: failed to connect: %w", err)
	}

	maxTxSize := opts.MaxTxSize
	if maxTxSize == 0 {
		if limits, ok := c.(conn.Limits); ok {
			maxTxSize = limits.MaxTxSize()
		}
	}
	if maxTxSize <= 0 {
		maxTxSize = 4096
	}

	if err := busy.In(gpio.PullNoChange, gpio.NoEdge); err != nil {
		return nil, fmt.Errorf("epdspi: busy pin: %w", err)
	}
	if err := rst.Out(gpio.High); err != nil {
		return nil, fmt.Errorf("epdspi: reset pin: %w", err)
	}
	if cs != nil {
		if err := cs.Out(gpio.High); err != nil {
			return nil, fmt.Errorf("epdspi: chip select pin: %w", err)
		}
	}

	return &Dev{
		c:         c,
		maxTxSize: maxTxSize,
		dc:        dc,
		cs:        cs,
		rst:       rst,
		busy:      busy,
		sleep:     time.Sleep,
	}, nil
}

// NewHat connects to a panel wired as on the Waveshare e-Paper HAT.
func NewHat(p spi.Port, opts *Opts) (*Dev, error) {
	dc := rpi.P1_22
	cs := rpi.P1_24
	rst := rpi.P1_11
	busy := rpi.P1_18
	return New(p, dc, cs, rst, busy, opts)
}

func (d *Dev) String() string {
	return fmt.Sprintf("epdspi.Dev{%s}", d.c)
}

// WriteCommand implements epd.Transport.
func (d *Dev) WriteCommand(cmd byte) error {
	if err := d.dc.Out(gpio.Low); err != nil {
		return err
	}
	return d.tx([]byte{cmd})
}

// WriteData implements epd.Transport. Data larger than the transaction
// limit is split.
func (d *Dev) WriteData(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	if err := d.dc.Out(gpio.High); err != nil {
		return err
	}
	for len(data) != 0 {
		n := len(data)
		if n > d.maxTxSize {
			n = d.maxTxSize
		}
		if err := d.tx(data[:n]); err != nil {
			return err
		}
		data = data[n:]
	}
	return nil
}

func (d *Dev) tx(w []byte) error {
	if d.cs != nil {
		if err := d.cs.Out(gpio.Low); err != nil {
			return err
		}
	}
	if err := d.c.Tx(w, nil); err != nil {
		return err
	}
	if d.cs != nil {
		return d.cs.Out(gpio.High)
	}
	return nil
}

// SetReset implements epd.Transport. The reset line is active low.
func (d *Dev) SetReset(active bool) error {
	l := gpio.High
	if active {
		l = gpio.Low
	}
	return d.rst.Out(l)
}

// ReadBusy implements epd.Transport.
func (d *Dev) ReadBusy() bool {
	return d.busy.Read() == gpio.High
}

// Delay implements epd.Transport.
func (d *Dev) Delay(t time.Duration) {
	d.sleep(t)
}
