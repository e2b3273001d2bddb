// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package epd

import (
	"fmt"

	"github.com/GermanBionicSystems/epaper/panel"
)

// lutManager supplies the descriptor tables or the caller's overrides.
type lutManager struct {
	desc      *panel.Descriptor
	overrides [2]panel.LUT
}

func refreshIndex(which panel.Refresh) int {
	if which == panel.Quick {
		return 1
	}
	return 0
}

// get returns the table in use for which.
func (m *lutManager) get(which panel.Refresh) panel.LUT {
	if t := m.overrides[refreshIndex(which)]; t != nil {
		return t
	}
	return m.desc.LUT(which)
}

// set overrides the table for which. A nil table restores the default.
func (m *lutManager) set(t panel.LUT, which panel.Refresh) error {
	if which == panel.Quick && !m.desc.QuickRefresh {
		return fmt.Errorf("%w: %s has no quick refresh", ErrUnsupported, m.desc.Name)
	}
	if t != nil {
		n := m.desc.LUTSize()
		if n == 0 {
			return fmt.Errorf("%w: %s waveforms are stored in the controller", ErrUnsupported, m.desc.Name)
		}
		if len(t) != n {
			return fmt.Errorf("%w: LUT is %d bytes, %s needs %d", ErrBufferSize, len(t), m.desc.Name, n)
		}
		t = append(panel.LUT(nil), t...)
	}
	m.overrides[refreshIndex(which)] = t
	return nil
}
