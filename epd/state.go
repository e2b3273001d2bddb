// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package epd

//go:generate stringer -type=State -output state_string.go

// State is the protocol state of a Dev.
type State uint8

// Possible State.
const (
	// Uninitialized is the state before a successful Init.
	Uninitialized State = iota
	// Ready accepts frame operations.
	Ready
	// Sending is set while frame data is written to the controller.
	Sending
	// Refreshing is set while the panel refreshes.
	Refreshing
	// Sleeping is the deep sleep state left with WakeUp.
	Sleeping
)
