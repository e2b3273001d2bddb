// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package epd

import "time"

// errorHandler is a wrapper for error management. The first error stops
// every following call.
type errorHandler struct {
	d   *Dev
	cmd byte
	err error
}

func (eh *errorHandler) sendCommand(cmd byte) {
	if eh.err != nil {
		return
	}
	eh.cmd = cmd
	if err := eh.d.t.WriteCommand(cmd); err != nil {
		eh.err = &CommError{Op: "command", Cmd: cmd, Err: err}
	}
}

func (eh *errorHandler) sendData(data []byte) {
	if eh.err != nil {
		return
	}
	if err := eh.d.t.WriteData(data); err != nil {
		eh.err = &CommError{Op: "data", Cmd: eh.cmd, Err: err}
	}
}

func (eh *errorHandler) setReset(active bool) {
	if eh.err != nil {
		return
	}
	if err := eh.d.t.SetReset(active); err != nil {
		eh.err = &CommError{Op: "reset", Err: err}
	}
}

func (eh *errorHandler) waitUntilIdle() {
	if eh.err != nil {
		return
	}
	eh.err = eh.d.waitUntilIdle()
}

func (eh *errorHandler) delay(d time.Duration) {
	if eh.err != nil || d <= 0 {
		return
	}
	eh.d.t.Delay(d)
}
