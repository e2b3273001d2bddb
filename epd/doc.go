// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package epd drives e-paper panels described by package panel.
//
// A Dev runs the panel's command sequences over a Transport and tracks the
// protocol state:
//
//	Uninitialized -> Ready -> (Sending -> Ready)* -> (Refreshing -> Ready)* -> Sleeping
//	Sleeping -> Ready with WakeUp
//
// No command is sent while the panel reports busy and every refresh is
// followed by a wait on the busy line, paced by the WaitPolicy.
//
// Quick refreshes leave a residual image. When the panel declares a limit,
// the driver replaces the quick refresh following that many consecutive
// quick refreshes with a full one.
//
// Some panels expose their image RAMs one by one: the previous and new
// image of a quick refresh, or the planes of a dual color panel. The
// matching methods return ErrUnsupported on other panels.
//
// Package epdspi provides a Transport over periph.io SPI and GPIO.
package epd
