// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package epaper is a container for the e-paper panel driver packages.
//
// panel describes the supported panels, framebuffer holds the pixels, epd
// drives the refresh state machine over a transport and epdspi provides
// that transport on periph.io SPI and GPIO.
package epaper
