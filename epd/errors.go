// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package epd

import (
	"errors"
	"fmt"

	"github.com/GermanBionicSystems/epaper/framebuffer"
)

var (
	// ErrCommunication is matched by errors returned when the transport
	// failed. The concrete error is a *CommError.
	ErrCommunication = errors.New("epd: communication failed")
	// ErrUnsupported is returned when the panel lacks the feature.
	ErrUnsupported = errors.New("epd: unsupported by panel")
	// ErrBufferSize is returned when a frame or LUT does not have the size
	// the panel expects.
	ErrBufferSize = errors.New("epd: buffer size mismatch")
	// ErrOutOfBounds is returned for windows outside the panel. It also
	// matches framebuffer.ErrOutOfBounds.
	ErrOutOfBounds error = outOfBounds{}
	// ErrInvalidState is returned when the operation is not allowed in the
	// current State.
	ErrInvalidState = errors.New("epd: invalid state")
	// ErrTimeout is returned when the busy line did not clear in time.
	ErrTimeout = errors.New("epd: timed out waiting for busy line")
)

type outOfBounds struct{}

func (outOfBounds) Error() string {
	return "epd: window out of bounds"
}

func (outOfBounds) Is(target error) bool {
	return target == framebuffer.ErrOutOfBounds
}

// CommError is a transport failure while sending to the controller.
type CommError struct {
	// Op is "command", "data" or "reset".
	Op string
	// Cmd is the command being sent or whose data was being sent.
	Cmd byte
	Err error
}

func (e *CommError) Error() string {
	if e.Op == "reset" {
		return fmt.Sprintf("epd: reset failed: %v", e.Err)
	}
	return fmt.Sprintf("epd: %s %#02x failed: %v", e.Op, e.Cmd, e.Err)
}

func (e *CommError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrCommunication) true.
func (e *CommError) Is(target error) bool {
	return target == ErrCommunication
}
