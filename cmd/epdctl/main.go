// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// epdctl draws on a Waveshare e-paper panel.
//
// Usage:
//
//	epdctl [flags] clear [color]
//	epdctl [flags] pattern checker|stripes
//	epdctl [flags] text <text>
//	epdctl [flags] banner <text>
//	epdctl [flags] run
//	epdctl [flags] list
//	epdctl [flags] init-config
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/GermanBionicSystems/epaper/epd"
	"github.com/GermanBionicSystems/epaper/panel"
	"github.com/GermanBionicSystems/epaper/termview"
)

func mainImpl() error {
	configPath := flag.String("config", "epdctl.yaml", "path to the YAML configuration")
	model := flag.String("panel", "", "panel model, overrides the configuration")
	rotation := flag.String("rotation", "", "rotation in degrees, overrides the configuration")
	color := flag.String("color", "black", "ink of the banner")
	previewMode := flag.Bool("preview", false, "print frames on the terminal instead of driving the panel")
	scale := flag.Int("scale", 2, "keep one pixel out of scale in preview mode")
	verbose := flag.Bool("v", false, "log every command sent to the panel")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: epdctl [flags] clear|pattern|text|banner|run|list|init-config [args]\n")
		flag.PrintDefaults()
	}
	flag.Parse()
	if !*verbose {
		log.SetOutput(io.Discard)
	}
	log.SetFlags(log.Lmicroseconds)
	if flag.NArg() == 0 {
		return errors.New("specify a command")
	}
	cmd, args := flag.Arg(0), flag.Args()[1:]

	cfg, err := Load(*configPath)
	if err != nil {
		return err
	}
	if *model != "" {
		cfg.Panel = *model
	}
	if *rotation != "" {
		cfg.Rotation = *rotation
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	switch cmd {
	case "list":
		for _, d := range panel.All() {
			fmt.Printf("%-12s %dx%d %s quick:%t\n", d.Name, d.Width, d.Height, d.Colors.Kind, d.QuickRefresh)
		}
		return nil
	case "init-config":
		return Save(*configPath, cfg)
	}

	desc, _ := cfg.descriptor()
	r, _ := cfg.rotation()
	var t epd.Transport
	var view *termview.Dev
	if *previewMode {
		t = &nopTransport{idle: desc.BusyActiveLow}
		f, err := desc.NewFrameBuffer(r)
		if err != nil {
			return err
		}
		if view, err = termview.New(&termview.Opts{Width: f.Width(), Height: f.Height(), Scale: *scale}); err != nil {
			return err
		}
		defer view.Halt()
	} else {
		var c io.Closer
		if t, c, err = openPanel(cfg); err != nil {
			return err
		}
		defer c.Close()
	}
	if *verbose {
		t = &tracer{Transport: t}
	}

	dev, err := epd.New(t, desc, cfg.opts())
	if err != nil {
		return err
	}
	log.Printf("%s", dev)
	if err := dev.Init(); err != nil {
		return err
	}
	defer dev.Halt()
	a, err := newApp(dev, r, view)
	if err != nil {
		return err
	}

	arg := func(def string) string {
		if len(args) == 0 {
			return def
		}
		return strings.Join(args, " ")
	}
	switch cmd {
	case "clear":
		return a.clear(arg("white"))
	case "pattern":
		return a.pattern(arg("checker"))
	case "text":
		return a.text(arg("Hello from periph!"))
	case "banner":
		c, err := desc.Colors.Parse(*color)
		if err != nil {
			return err
		}
		return a.banner(arg("periph"), c)
	case "run":
		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()
		return a.run(ctx, cfg.Schedule, cfg.TimeFormat)
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func main() {
	if err := mainImpl(); err != nil {
		fmt.Fprintf(os.Stderr, "epdctl: %s.\n", err)
		os.Exit(1)
	}
}
