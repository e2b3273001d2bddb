// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package epd

import (
	"fmt"
	"time"
)

// WaitPolicy decides how the driver waits for the busy line.
//
// The zero value polls the line without pause and never gives up.
type WaitPolicy struct {
	// Interval is the pause between two reads of the busy line.
	Interval time.Duration
	// Timeout bounds a single wait. 0 means unbounded.
	Timeout time.Duration
}

// Poll reads the busy line in a tight loop.
func Poll() WaitPolicy {
	return WaitPolicy{}
}

// Sleep pauses interval between reads of the busy line.
func Sleep(interval time.Duration) WaitPolicy {
	return WaitPolicy{Interval: interval}
}

// Bounded pauses interval between reads and fails with ErrTimeout once
// timeout elapsed. The panel is not interrupted; it may still be busy.
func Bounded(interval, timeout time.Duration) WaitPolicy {
	return WaitPolicy{Interval: interval, Timeout: timeout}
}

func (w WaitPolicy) String() string {
	switch {
	case w.Timeout > 0:
		return fmt.Sprintf("Bounded(%s, %s)", w.Interval, w.Timeout)
	case w.Interval > 0:
		return fmt.Sprintf("Sleep(%s)", w.Interval)
	default:
		return "Poll()"
	}
}

// waitUntilIdle blocks while the panel reports busy.
func (d *Dev) waitUntilIdle() error {
	var deadline time.Time
	if d.opts.Wait.Timeout > 0 {
		deadline = d.now().Add(d.opts.Wait.Timeout)
	}
	for d.IsBusy() {
		if !deadline.IsZero() && !d.now().Before(deadline) {
			return fmt.Errorf("%w after %s", ErrTimeout, d.opts.Wait.Timeout)
		}
		if d.opts.Wait.Interval > 0 {
			d.t.Delay(d.opts.Wait.Interval)
		}
	}
	return nil
}
