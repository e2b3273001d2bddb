// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"fmt"
	"io"
	"log"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"

	"github.com/GermanBionicSystems/epaper/epd"
	"github.com/GermanBionicSystems/epaper/epdspi"
)

// openPanel opens the SPI port and the GPIO pins named in cfg.
func openPanel(cfg *Config) (epd.Transport, io.Closer, error) {
	if _, err := host.Init(); err != nil {
		return nil, nil, err
	}
	f, err := cfg.frequency()
	if err != nil {
		return nil, nil, err
	}
	p, err := spireg.Open(cfg.SPI)
	if err != nil {
		return nil, nil, err
	}
	opts := &epdspi.Opts{Freq: f}
	var d *epdspi.Dev
	if cfg.Pins == (Pins{}) {
		d, err = epdspi.NewHat(p, opts)
	} else {
		d, err = openPins(p, cfg.Pins, opts)
	}
	if err != nil {
		p.Close()
		return nil, nil, err
	}
	return d, p, nil
}

func openPins(p spi.Port, pins Pins, opts *epdspi.Opts) (*epdspi.Dev, error) {
	byName := func(name string) (gpio.PinIO, error) {
		pin := gpioreg.ByName(name)
		if pin == nil {
			return nil, fmt.Errorf("unknown pin %q", name)
		}
		return pin, nil
	}
	dc, err := byName(pins.DC)
	if err != nil {
		return nil, err
	}
	rst, err := byName(pins.RST)
	if err != nil {
		return nil, err
	}
	busy, err := byName(pins.Busy)
	if err != nil {
		return nil, err
	}
	var cs gpio.PinOut
	if pins.CS != "" {
		if cs, err = byName(pins.CS); err != nil {
			return nil, err
		}
	}
	return epdspi.New(p, dc, cs, rst, busy, opts)
}

// tracer logs the traffic to the panel.
type tracer struct {
	epd.Transport
}

func (t *tracer) WriteCommand(cmd byte) error {
	log.Printf("cmd  0x%02X", cmd)
	return t.Transport.WriteCommand(cmd)
}

func (t *tracer) WriteData(data []byte) error {
	if len(data) <= 8 {
		log.Printf("data % X", data)
	} else {
		log.Printf("data %d bytes", len(data))
	}
	return t.Transport.WriteData(data)
}

func (t *tracer) SetReset(active bool) error {
	log.Printf("reset %t", active)
	return t.Transport.SetReset(active)
}

// nopTransport stands in for the panel in preview mode. The busy line
// always reads idle.
type nopTransport struct {
	idle bool
}

func (n *nopTransport) WriteCommand(cmd byte) error {
	return nil
}

func (n *nopTransport) WriteData(data []byte) error {
	return nil
}

func (n *nopTransport) SetReset(active bool) error {
	return nil
}

func (n *nopTransport) ReadBusy() bool {
	return n.idle
}

func (n *nopTransport) Delay(d time.Duration) {
}

func (n *nopTransport) String() string {
	return "preview"
}
