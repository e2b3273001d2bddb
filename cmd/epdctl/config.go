// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
	"periph.io/x/conn/v3/physic"

	"github.com/GermanBionicSystems/epaper/epd"
	"github.com/GermanBionicSystems/epaper/framebuffer"
	"github.com/GermanBionicSystems/epaper/panel"
)

// Pins names the GPIO lines as known to gpioreg. When all are empty the
// Waveshare e-Paper HAT wiring is used.
type Pins struct {
	DC   string `yaml:"dc"`
	CS   string `yaml:"cs,omitempty"`
	RST  string `yaml:"rst"`
	Busy string `yaml:"busy"`
}

// Config is the epdctl configuration file.
type Config struct {
	// Panel is a model name known to panel.Lookup.
	Panel string `yaml:"panel"`
	// Rotation in degrees: 0, 90, 180 or 270.
	Rotation string `yaml:"rotation"`

	// SPI is the port name for spireg; empty picks the first one.
	SPI  string `yaml:"spi"`
	Freq string `yaml:"freq"`
	Pins Pins   `yaml:"pins"`

	// BusyInterval is the pause between two reads of the busy line.
	BusyInterval time.Duration `yaml:"busy_interval"`
	// BusyTimeout bounds a wait for the busy line; 0 waits forever.
	BusyTimeout time.Duration `yaml:"busy_timeout"`
	// QuickRefreshLimit overrides the panel's ghosting limit; -1 disables it.
	QuickRefreshLimit int `yaml:"quick_refresh_limit"`

	// Schedule is the cron expression of "epdctl run".
	Schedule   string `yaml:"schedule"`
	TimeFormat string `yaml:"time_format"`
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() *Config {
	return &Config{
		Panel:        panel.EPD2in13v2.Name,
		Rotation:     "90",
		Freq:         "4MHz",
		BusyInterval: 10 * time.Millisecond,
		BusyTimeout:  30 * time.Second,
		Schedule:     "* * * * *",
		TimeFormat:   "15:04",
	}
}

// Normalize fills in zero values with the defaults.
func (c *Config) Normalize() {
	def := DefaultConfig()
	if c.Panel == "" {
		c.Panel = def.Panel
	}
	if c.Rotation == "" {
		c.Rotation = def.Rotation
	}
	if c.Freq == "" {
		c.Freq = def.Freq
	}
	if c.BusyInterval <= 0 {
		c.BusyInterval = def.BusyInterval
	}
	if c.BusyTimeout < 0 {
		c.BusyTimeout = 0
	}
	if c.Schedule == "" {
		c.Schedule = def.Schedule
	}
	if c.TimeFormat == "" {
		c.TimeFormat = def.TimeFormat
	}
}

// Validate returns the first invalid field.
func (c *Config) Validate() error {
	if _, err := c.descriptor(); err != nil {
		return err
	}
	if _, err := c.rotation(); err != nil {
		return err
	}
	if _, err := c.frequency(); err != nil {
		return err
	}
	if _, err := cron.ParseStandard(c.Schedule); err != nil {
		return fmt.Errorf("schedule %q: %w", c.Schedule, err)
	}
	if c.QuickRefreshLimit < -1 {
		return fmt.Errorf("quick_refresh_limit %d: must be -1 or more", c.QuickRefreshLimit)
	}
	return nil
}

func (c *Config) descriptor() (*panel.Descriptor, error) {
	return panel.Lookup(c.Panel)
}

func (c *Config) rotation() (framebuffer.Rotation, error) {
	var r framebuffer.Rotation
	err := r.Set(c.Rotation)
	return r, err
}

func (c *Config) frequency() (physic.Frequency, error) {
	var f physic.Frequency
	if err := f.Set(c.Freq); err != nil {
		return 0, fmt.Errorf("freq %q: %w", c.Freq, err)
	}
	return f, nil
}

func (c *Config) opts() *epd.Opts {
	w := epd.Sleep(c.BusyInterval)
	if c.BusyTimeout > 0 {
		w = epd.Bounded(c.BusyInterval, c.BusyTimeout)
	}
	return &epd.Opts{Wait: w, QuickRefreshLimit: c.QuickRefreshLimit}
}

// Load reads the YAML file at path. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return DefaultConfig(), nil
		}
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	cfg.Normalize()
	return &cfg, nil
}

// Save writes cfg to path atomically with 0600 permissions.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}
	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".epdctl-*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
