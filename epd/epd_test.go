// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package epd

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/GermanBionicSystems/epaper/framebuffer"
	"github.com/GermanBionicSystems/epaper/panel"
)

var errBus = errors.New("bus error")

// fakeTransport records the traffic and simulates the busy line.
type fakeTransport struct {
	records []record
	resets  []bool
	delays  []time.Duration

	activeLow bool
	// busyReads is the number of reads reporting busy before the panel is
	// idle.
	busyReads int
	// stuck keeps the panel busy.
	stuck bool
	reads int

	// failAt fails the failAt-th write, starting at 1. 0 never fails.
	failAt int
	writes int

	now time.Time
}

func (f *fakeTransport) write() error {
	f.writes++
	if f.writes == f.failAt {
		return errBus
	}
	return nil
}

func (f *fakeTransport) WriteCommand(cmd byte) error {
	if err := f.write(); err != nil {
		return err
	}
	f.records = append(f.records, record{cmd: cmd})
	return nil
}

func (f *fakeTransport) WriteData(data []byte) error {
	if err := f.write(); err != nil {
		return err
	}
	cur := &f.records[len(f.records)-1]
	cur.data = append(cur.data, data...)
	return nil
}

func (f *fakeTransport) SetReset(active bool) error {
	f.resets = append(f.resets, active)
	return nil
}

func (f *fakeTransport) ReadBusy() bool {
	f.reads++
	busy := f.stuck
	if f.busyReads > 0 {
		f.busyReads--
		busy = true
	}
	return busy != f.activeLow
}

func (f *fakeTransport) Delay(d time.Duration) {
	f.delays = append(f.delays, d)
	f.now = f.now.Add(d)
}

func (f *fakeTransport) String() string {
	return "fake"
}

// cmds returns the commands sent since record i.
func (f *fakeTransport) cmds(i int) []byte {
	var out []byte
	for _, r := range f.records[i:] {
		out = append(out, r.cmd)
	}
	return out
}

// find returns the last record of cmd.
func (f *fakeTransport) find(cmd byte) (record, bool) {
	for i := len(f.records) - 1; i >= 0; i-- {
		if f.records[i].cmd == cmd {
			return f.records[i], true
		}
	}
	return record{}, false
}

func newTestDev(t *testing.T, desc *panel.Descriptor, opts *Opts) (*Dev, *fakeTransport) {
	t.Helper()
	ft := &fakeTransport{activeLow: desc.BusyActiveLow, now: time.Unix(0, 0)}
	d, err := New(ft, desc, opts)
	if err != nil {
		t.Fatal(err)
	}
	d.now = func() time.Time { return ft.now }
	return d, ft
}

func initTestDev(t *testing.T, desc *panel.Descriptor, opts *Opts) (*Dev, *fakeTransport) {
	t.Helper()
	d, ft := newTestDev(t, desc, opts)
	if err := d.Init(); err != nil {
		t.Fatal(err)
	}
	return d, ft
}

func newFrame(t *testing.T, desc *panel.Descriptor) *framebuffer.FrameBuffer {
	t.Helper()
	f, err := desc.NewFrameBuffer(framebuffer.Rotate0)
	if err != nil {
		t.Fatal(err)
	}
	if err := f.Clear(framebuffer.White); err != nil {
		t.Fatal(err)
	}
	return f
}

func TestNew(t *testing.T) {
	if _, err := New(nil, panel.EPD4in2, nil); err == nil {
		t.Error("New() accepted a nil transport")
	}
	if _, err := New(&fakeTransport{}, nil, nil); err == nil {
		t.Error("New() accepted a nil descriptor")
	}
	bad := *panel.EPD4in2
	bad.FullLUT = bad.FullLUT[:3]
	if _, err := New(&fakeTransport{}, &bad, nil); err == nil {
		t.Error("New() accepted an invalid descriptor")
	}

	d, ft := newTestDev(t, panel.EPD4in2, nil)
	if len(ft.records) != 0 || len(ft.resets) != 0 {
		t.Error("New() talked to the panel")
	}
	if got, want := d.String(), "epd.Dev{fake, EPD4in2, Uninitialized}"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
	if d.Descriptor() != panel.EPD4in2 {
		t.Error("Descriptor() mismatch")
	}
}

func TestInit(t *testing.T) {
	d, ft := initTestDev(t, panel.EPD4in2, nil)

	if d.State() != Ready {
		t.Errorf("State() = %s, want Ready", d.State())
	}
	if diff := cmp.Diff(ft.resets, []bool{false, true, false}); diff != "" {
		t.Errorf("reset difference (-got +want):\n%s", diff)
	}
	if diff := cmp.Diff(ft.delays[:3], []time.Duration{10 * time.Millisecond, 10 * time.Millisecond, 200 * time.Millisecond}); diff != "" {
		t.Errorf("reset timing difference (-got +want):\n%s", diff)
	}
	want := []byte{
		panel.UC81xxPWR, panel.UC81xxBTST, panel.UC81xxPON, panel.UC81xxPSR, panel.UC81xxPLL,
		panel.UC81xxTRES, panel.UC81xxVDCS, panel.UC81xxCDI,
		panel.UC81xxLUTC, panel.UC81xxLUTWW, panel.UC81xxLUTBW, panel.UC81xxLUTWB, panel.UC81xxLUTBB,
	}
	if diff := cmp.Diff(ft.cmds(0), want); diff != "" {
		t.Errorf("Init() commands difference (-got +want):\n%s", diff)
	}
	if r, _ := ft.find(panel.UC81xxLUTWW); !bytes.Equal(r.data, panel.EPD4in2.FullLUT[44:86]) {
		t.Error("Init() did not load the full LUT")
	}
	if d.Refresh() != panel.Full {
		t.Errorf("Refresh() = %s, want Full", d.Refresh())
	}

	// Init again from Ready.
	n := len(ft.records)
	if err := d.Init(); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(ft.cmds(n), want); diff != "" {
		t.Errorf("second Init() commands difference (-got +want):\n%s", diff)
	}
}

func TestInitCommunicationError(t *testing.T) {
	d, ft := newTestDev(t, panel.EPD2in13v2, nil)
	ft.failAt = 3

	err := d.Init()
	if !errors.Is(err, ErrCommunication) {
		t.Fatalf("Init() = %v, want %v", err, ErrCommunication)
	}
	if !errors.Is(err, errBus) {
		t.Errorf("Init() = %v does not wrap the transport error", err)
	}
	var ce *CommError
	if !errors.As(err, &ce) || ce.Cmd != panel.SSD16xxSetAnalogBlockControl || ce.Op != "data" {
		t.Errorf("Init() = %#v, want a data error of command 0x74", err)
	}
	if d.State() != Uninitialized {
		t.Errorf("State() = %s, want Uninitialized", d.State())
	}
	// The sequence stopped at the failure.
	if got := ft.writes; got != 3 {
		t.Errorf("%d writes, want 3", got)
	}
	if err := d.UpdateFrame(newFrame(t, panel.EPD2in13v2)); !errors.Is(err, ErrInvalidState) {
		t.Errorf("UpdateFrame() = %v, want %v", err, ErrInvalidState)
	}
}

// TestScenario400x300 sets the last pixel of a white 400x300 frame.
func TestScenario400x300(t *testing.T) {
	f := newFrame(t, panel.EPD4in2)
	if err := f.SetPixel(399, 299, framebuffer.Black); err != nil {
		t.Fatal(err)
	}
	p := f.Planes()[0]
	if len(p) != 15000 {
		t.Fatalf("len = %d, want 15000", len(p))
	}
	for i, b := range p {
		want := byte(0xFF)
		if i == 14999 {
			want = 0xFE
		}
		if b != want {
			t.Fatalf("byte %d = %#02x, want %#02x", i, b, want)
		}
	}

	d, ft := initTestDev(t, panel.EPD4in2, nil)
	n := len(ft.records)
	if err := d.UpdateAndDisplayFrame(f); err != nil {
		t.Fatal(err)
	}
	want := []record{
		{cmd: panel.UC81xxDTM1, data: bytes.Repeat([]byte{0xFF}, 15000)},
		{cmd: panel.UC81xxDTM2, data: p},
		{cmd: panel.UC81xxDRF},
	}
	if diff := diffRecords(ft.records[n:], want); diff != "" {
		t.Errorf("UpdateAndDisplayFrame() difference (-got +want):\n%s", diff)
	}
	if d.State() != Ready {
		t.Errorf("State() = %s, want Ready", d.State())
	}
}

func TestDisplayFrameBeforeUpdate(t *testing.T) {
	d, ft := initTestDev(t, panel.EPD2in9, nil)
	n := len(ft.records)

	if err := d.DisplayFrame(); !errors.Is(err, ErrInvalidState) {
		t.Errorf("DisplayFrame() = %v, want %v", err, ErrInvalidState)
	}
	if len(ft.records) != n {
		t.Error("DisplayFrame() sent commands")
	}

	if err := d.UpdateFrame(newFrame(t, panel.EPD2in9)); err != nil {
		t.Fatal(err)
	}
	n = len(ft.records)
	if err := d.DisplayFrame(); err != nil {
		t.Fatal(err)
	}
	want := []byte{panel.SSD16xxDisplayUpdateControl2, panel.SSD16xxMasterActivation, panel.SSD16xxNop}
	if diff := cmp.Diff(ft.cmds(n), want); diff != "" {
		t.Errorf("DisplayFrame() commands difference (-got +want):\n%s", diff)
	}
	// The frame stays in RAM.
	if err := d.DisplayFrame(); err != nil {
		t.Errorf("second DisplayFrame() = %v", err)
	}
}

func TestUpdateFrameBufferSize(t *testing.T) {
	d, ft := initTestDev(t, panel.EPD2in9bc, nil)
	n := ft.writes

	for _, tc := range []struct {
		name string
		f    Frame
	}{
		{name: "nil"},
		{name: "one plane", f: Planes{make([]byte, 4736)}},
		{name: "short plane", f: Planes{make([]byte, 4736), make([]byte, 4735)}},
		{name: "other panel", f: newFrame(t, panel.EPD4in2)},
	} {
		t.Run(tc.name, func(t *testing.T) {
			if err := d.UpdateFrame(tc.f); !errors.Is(err, ErrBufferSize) {
				t.Errorf("UpdateFrame() = %v, want %v", err, ErrBufferSize)
			}
		})
	}
	if ft.writes != n {
		t.Error("writes happened on invalid frames")
	}
	if err := d.UpdateFrame(Planes{make([]byte, 4736), make([]byte, 4736)}); err != nil {
		t.Errorf("UpdateFrame() = %v", err)
	}
}

func TestUpdateFrameCommunicationError(t *testing.T) {
	d, ft := initTestDev(t, panel.EPD4in2, nil)
	f := newFrame(t, panel.EPD4in2)
	ft.failAt = ft.writes + 2

	if err := d.UpdateAndDisplayFrame(f); !errors.Is(err, ErrCommunication) {
		t.Fatalf("UpdateAndDisplayFrame() = %v, want %v", err, ErrCommunication)
	}
	if _, ok := ft.find(panel.UC81xxDRF); ok {
		t.Error("the panel was refreshed after a failed update")
	}
	if d.State() != Ready {
		t.Errorf("State() = %s, want Ready", d.State())
	}
	if err := d.DisplayFrame(); !errors.Is(err, ErrInvalidState) {
		t.Errorf("DisplayFrame() = %v, want %v", err, ErrInvalidState)
	}
	if err := d.UpdateAndDisplayFrame(f); err != nil {
		t.Errorf("UpdateAndDisplayFrame() = %v", err)
	}
}

func TestClearFrame(t *testing.T) {
	d, ft := initTestDev(t, panel.EPD2in9bc, nil)
	n := len(ft.records)

	if err := d.ClearFrame(framebuffer.Chromatic); err != nil {
		t.Fatal(err)
	}
	want := []record{
		{cmd: panel.UC81xxDTM1, data: bytes.Repeat([]byte{0xFF}, 4736)},
		{cmd: panel.UC81xxDTM2, data: bytes.Repeat([]byte{0x00}, 4736)},
	}
	if diff := diffRecords(ft.records[n:], want); diff != "" {
		t.Errorf("ClearFrame() difference (-got +want):\n%s", diff)
	}
	if err := d.ClearFrame(framebuffer.Orange); !errors.Is(err, framebuffer.ErrColor) {
		t.Errorf("ClearFrame(Orange) = %v, want %v", err, framebuffer.ErrColor)
	}
	if err := d.DisplayFrame(); err != nil {
		t.Errorf("DisplayFrame() = %v", err)
	}
}

func TestUpdatePartialFrameUnsupported(t *testing.T) {
	for _, desc := range []*panel.Descriptor{panel.EPD2in9bc, panel.EPD5in65f} {
		t.Run(desc.Name, func(t *testing.T) {
			d, ft := newTestDev(t, desc, nil)
			f := newFrame(t, desc)

			if err := d.UpdatePartialFrame(f, 0, 0, 8, 8); !errors.Is(err, ErrUnsupported) {
				t.Errorf("UpdatePartialFrame() = %v, want %v", err, ErrUnsupported)
			}
			if err := d.Init(); err != nil {
				t.Fatal(err)
			}
			n := ft.writes
			if err := d.UpdatePartialFrame(f, 0, 0, 8, 8); !errors.Is(err, ErrUnsupported) {
				t.Errorf("UpdatePartialFrame() = %v, want %v", err, ErrUnsupported)
			}
			if ft.writes != n {
				t.Errorf("UpdatePartialFrame() wrote %d times", ft.writes-n)
			}
		})
	}
}

func TestUpdatePartialFrame(t *testing.T) {
	d, ft := initTestDev(t, panel.EPD4in2, nil)
	f := newFrame(t, panel.EPD4in2)
	n := len(ft.records)

	if err := d.UpdatePartialFrame(f, 13, 10, 20, 5); err != nil {
		t.Fatal(err)
	}
	want := []byte{
		panel.UC81xxLUTC, panel.UC81xxLUTWW, panel.UC81xxLUTBW, panel.UC81xxLUTWB, panel.UC81xxLUTBB,
		panel.UC81xxPTIN, panel.UC81xxPTL, panel.UC81xxDTM2, panel.UC81xxPTOUT, panel.UC81xxDRF,
	}
	if diff := cmp.Diff(ft.cmds(n), want); diff != "" {
		t.Fatalf("UpdatePartialFrame() commands difference (-got +want):\n%s", diff)
	}
	if r := ft.records[n]; !bytes.Equal(r.data, panel.EPD4in2.QuickLUT[:44]) {
		t.Error("the quick LUT was not loaded")
	}
	// x rounded down to 8, x+w=33 rounded up to 40.
	if r, _ := ft.find(panel.UC81xxPTL); !bytes.Equal(r.data, []byte{0x00, 0x08, 0x00, 0x27, 0x00, 0x0A, 0x00, 0x0E, 0x01}) {
		t.Errorf("PTL data = %#v", r.data)
	}
	if r, _ := ft.find(panel.UC81xxDTM2); len(r.data) != 4*5 {
		t.Errorf("window is %d bytes, want 20", len(r.data))
	}
	// The selected mode for DisplayFrame is unchanged.
	if d.Refresh() != panel.Full {
		t.Errorf("Refresh() = %s, want Full", d.Refresh())
	}

	// The quick LUT stays loaded.
	n = len(ft.records)
	if err := d.UpdatePartialFrame(f, 392, 299, 8, 1); err != nil {
		t.Fatalf("UpdatePartialFrame() at the last pixel = %v", err)
	}
	if diff := cmp.Diff(ft.cmds(n), want[5:]); diff != "" {
		t.Errorf("UpdatePartialFrame() commands difference (-got +want):\n%s", diff)
	}

	// DisplayFrame switches back to the full waveform.
	n = len(ft.records)
	if err := d.DisplayFrame(); err != nil {
		t.Fatal(err)
	}
	if r := ft.records[n]; r.cmd != panel.UC81xxLUTC || !bytes.Equal(r.data, panel.EPD4in2.FullLUT[:44]) {
		t.Error("the full LUT was not reloaded")
	}
}

func TestUpdatePartialFrameBounds(t *testing.T) {
	d, ft := initTestDev(t, panel.EPD4in2, nil)
	f := newFrame(t, panel.EPD4in2)
	n := ft.writes

	for _, tc := range [][4]int{
		{393, 299, 8, 1},
		{392, 300, 8, 1},
		{-1, 0, 8, 1},
		{0, -1, 8, 1},
		{0, 0, 0, 1},
		{0, 0, 8, 0},
		{0, 0, 401, 1},
		{8, 0, int(^uint(0) >> 1), 1},
	} {
		if err := d.UpdatePartialFrame(f, tc[0], tc[1], tc[2], tc[3]); !errors.Is(err, ErrOutOfBounds) {
			t.Errorf("UpdatePartialFrame(%v) = %v, want %v", tc, err, ErrOutOfBounds)
		}
	}
	if ft.writes != n {
		t.Error("writes happened on invalid windows")
	}

	err := d.UpdatePartialFrame(f, 0, 300, 8, 1)
	if got, want := err.Error(), "epd: window out of bounds: window (0,300) 8x1 on 400x300 panel"; got != want {
		t.Errorf("error = %q, want %q", got, want)
	}
	if !errors.Is(err, framebuffer.ErrOutOfBounds) {
		t.Errorf("error = %v does not match %v", err, framebuffer.ErrOutOfBounds)
	}
}

func TestUpdatePartialFrameRounding(t *testing.T) {
	for _, tc := range []struct {
		x, y, w, h int
		xRange     []byte
		size       int
	}{
		{x: 3, y: 0, w: 2, h: 1, xRange: []byte{0, 0}, size: 1},
		{x: 7, y: 0, w: 2, h: 1, xRange: []byte{0, 1}, size: 2},
		{x: 8, y: 0, w: 8, h: 2, xRange: []byte{1, 1}, size: 2},
		{x: 120, y: 249, w: 2, h: 1, xRange: []byte{15, 15}, size: 1},
		{x: 0, y: 0, w: 122, h: 250, xRange: []byte{0, 15}, size: 4000},
	} {
		d, ft := initTestDev(t, panel.EPD2in13v2, nil)
		f := newFrame(t, panel.EPD2in13v2)
		if err := d.UpdatePartialFrame(f, tc.x, tc.y, tc.w, tc.h); err != nil {
			t.Fatal(err)
		}
		if r, _ := ft.find(panel.SSD16xxSetRAMXAddressStartEndPosition); !bytes.Equal(r.data, tc.xRange) {
			t.Errorf("(%d,%d,%d,%d) X range = %v, want %v", tc.x, tc.y, tc.w, tc.h, r.data, tc.xRange)
		}
		if r, _ := ft.find(panel.SSD16xxWriteRAMBW); len(r.data) != tc.size {
			t.Errorf("(%d,%d,%d,%d) window is %d bytes, want %d", tc.x, tc.y, tc.w, tc.h, len(r.data), tc.size)
		}
		if r, _ := ft.find(panel.SSD16xxDisplayUpdateControl2); !bytes.Equal(r.data, []byte{0x0C}) {
			t.Errorf("refresh = %#v, want quick", r.data)
		}
	}
}

func TestGhostingLimit(t *testing.T) {
	d, ft := initTestDev(t, panel.EPD4in2, &Opts{QuickRefreshLimit: 2})
	f := newFrame(t, panel.EPD4in2)

	partial := func() []byte {
		t.Helper()
		n := len(ft.records)
		if err := d.UpdatePartialFrame(f, 0, 0, 16, 16); err != nil {
			t.Fatal(err)
		}
		return ft.cmds(n)
	}
	quick := []byte{panel.UC81xxPTIN, panel.UC81xxPTL, panel.UC81xxDTM2, panel.UC81xxPTOUT, panel.UC81xxDRF}
	luts := []byte{panel.UC81xxLUTC, panel.UC81xxLUTWW, panel.UC81xxLUTBW, panel.UC81xxLUTWB, panel.UC81xxLUTBB}

	if diff := cmp.Diff(partial(), append(luts, quick...)); diff != "" {
		t.Errorf("first partial difference (-got +want):\n%s", diff)
	}
	if diff := cmp.Diff(partial(), quick); diff != "" {
		t.Errorf("second partial difference (-got +want):\n%s", diff)
	}
	// The third one is a full refresh of the whole frame.
	n := len(ft.records)
	if diff := cmp.Diff(partial(), append(luts, panel.UC81xxDTM1, panel.UC81xxDTM2, panel.UC81xxDRF)); diff != "" {
		t.Errorf("forced full refresh difference (-got +want):\n%s", diff)
	}
	if !bytes.Equal(ft.records[n].data, panel.EPD4in2.FullLUT[:44]) {
		t.Error("the forced refresh did not use the full LUT")
	}
	if r, _ := ft.find(panel.UC81xxDTM2); len(r.data) != 15000 {
		t.Errorf("forced refresh sent %d bytes, want the whole frame", len(r.data))
	}
	if diff := cmp.Diff(partial(), append(luts, quick...)); diff != "" {
		t.Errorf("partial after full difference (-got +want):\n%s", diff)
	}
}

func TestGhostingLimitDisabled(t *testing.T) {
	d, ft := initTestDev(t, panel.EPD4in2, &Opts{QuickRefreshLimit: -1})
	f := newFrame(t, panel.EPD4in2)
	for i := 0; i < 2*panel.EPD4in2.QuickRefreshLimit; i++ {
		if err := d.UpdatePartialFrame(f, 0, 0, 8, 8); err != nil {
			t.Fatal(err)
		}
	}
	if _, ok := ft.find(panel.UC81xxDTM1); ok {
		t.Error("a full refresh was forced")
	}
}

func TestGhostingLimitDisplayFrame(t *testing.T) {
	d, ft := initTestDev(t, panel.EPD2in9, &Opts{QuickRefreshLimit: 1})
	if err := d.SetLUT(nil, panel.Quick); err != nil {
		t.Fatal(err)
	}
	if err := d.UpdateFrame(newFrame(t, panel.EPD2in9)); err != nil {
		t.Fatal(err)
	}
	if err := d.DisplayFrame(); err != nil {
		t.Fatal(err)
	}
	n := len(ft.records)
	if err := d.DisplayFrame(); err != nil {
		t.Fatal(err)
	}
	r := ft.records[n]
	if r.cmd != panel.SSD16xxWriteLutRegister || !bytes.Equal(r.data, panel.EPD2in9.FullLUT) {
		t.Errorf("second DisplayFrame() did not switch to the full LUT: %#v", r)
	}
	if d.Refresh() != panel.Quick {
		t.Errorf("Refresh() = %s, want Quick", d.Refresh())
	}
}

func TestSetLUT(t *testing.T) {
	custom := make(panel.LUT, 30)
	custom[0] = 0x42

	d, ft := newTestDev(t, panel.EPD2in9, nil)
	if err := d.SetLUT(custom, panel.Full); err != nil {
		t.Fatal(err)
	}
	if len(ft.records) != 0 {
		t.Error("SetLUT() before Init talked to the panel")
	}
	if err := d.Init(); err != nil {
		t.Fatal(err)
	}
	if r, _ := ft.find(panel.SSD16xxWriteLutRegister); !bytes.Equal(r.data, custom) {
		t.Errorf("Init() loaded %#v, want the override", r.data)
	}
	custom[0] = 0
	n := len(ft.records)
	if err := d.SetLUT(nil, panel.Full); err != nil {
		t.Fatal(err)
	}
	want := []record{{cmd: panel.SSD16xxWriteLutRegister, data: panel.EPD2in9.FullLUT}}
	if diff := diffRecords(ft.records[n:], want); diff != "" {
		t.Errorf("SetLUT(nil) difference (-got +want):\n%s", diff)
	}

	for _, tc := range []struct {
		name  string
		desc  *panel.Descriptor
		lut   panel.LUT
		which panel.Refresh
		want  error
	}{
		{name: "no quick", desc: panel.EPD2in9bc, which: panel.Quick, want: ErrUnsupported},
		{name: "OTP", desc: panel.EPD2in13v4, lut: custom, want: ErrUnsupported},
		{name: "length", desc: panel.EPD4in2, lut: custom, want: ErrBufferSize},
	} {
		t.Run(tc.name, func(t *testing.T) {
			d, ft := initTestDev(t, tc.desc, nil)
			n := len(ft.records)
			if err := d.SetLUT(tc.lut, tc.which); !errors.Is(err, tc.want) {
				t.Errorf("SetLUT() = %v, want %v", err, tc.want)
			}
			if len(ft.records) != n {
				t.Error("SetLUT() talked to the panel")
			}
		})
	}
}

func TestSetLUTQuickDisplay(t *testing.T) {
	d, ft := initTestDev(t, panel.EPD2in13v4, nil)
	if err := d.SetLUT(nil, panel.Quick); err != nil {
		t.Fatal(err)
	}
	if d.Refresh() != panel.Quick {
		t.Errorf("Refresh() = %s, want Quick", d.Refresh())
	}
	if err := d.UpdateAndDisplayFrame(newFrame(t, panel.EPD2in13v4)); err != nil {
		t.Fatal(err)
	}
	if r, _ := ft.find(panel.SSD16xxDisplayUpdateControl2); !bytes.Equal(r.data, []byte{0xFF}) {
		t.Errorf("refresh = %#v, want quick", r.data)
	}
}

func TestSetLUTBeforeInit(t *testing.T) {
	d, ft := newTestDev(t, panel.EPD2in9, nil)
	if err := d.SetLUT(nil, panel.Quick); err != nil {
		t.Fatal(err)
	}
	if err := d.Init(); err != nil {
		t.Fatal(err)
	}
	if d.Refresh() != panel.Quick {
		t.Errorf("Refresh() after Init() = %s, want Quick", d.Refresh())
	}
	if r, _ := ft.find(panel.SSD16xxWriteLutRegister); !bytes.Equal(r.data, panel.EPD2in9.QuickLUT) {
		t.Errorf("Init() loaded %#v, want the quick LUT", r.data)
	}
	if err := d.UpdateFrame(newFrame(t, panel.EPD2in9)); err != nil {
		t.Fatal(err)
	}
	n := len(ft.records)
	if err := d.DisplayFrame(); err != nil {
		t.Fatal(err)
	}
	// The quick LUT is still loaded.
	want := []byte{panel.SSD16xxDisplayUpdateControl2, panel.SSD16xxMasterActivation, panel.SSD16xxNop}
	if diff := cmp.Diff(ft.cmds(n), want); diff != "" {
		t.Errorf("DisplayFrame() commands difference (-got +want):\n%s", diff)
	}
}

func TestSleepWakeUp(t *testing.T) {
	d, ft := initTestDev(t, panel.EPD2in13v2, nil)
	f := newFrame(t, panel.EPD2in13v2)
	if err := d.UpdateAndDisplayFrame(f); err != nil {
		t.Fatal(err)
	}

	n := len(ft.records)
	if err := d.Sleep(); err != nil {
		t.Fatal(err)
	}
	want := []record{
		{cmd: panel.SSD16xxDisplayUpdateControl2, data: []byte{0xC3}},
		{cmd: panel.SSD16xxMasterActivation},
		{cmd: panel.SSD16xxDeepSleepMode, data: []byte{0x01}},
	}
	if diff := diffRecords(ft.records[n:], want); diff != "" {
		t.Errorf("Sleep() difference (-got +want):\n%s", diff)
	}
	if d.State() != Sleeping {
		t.Fatalf("State() = %s, want Sleeping", d.State())
	}

	n = ft.writes
	for name, op := range map[string]func() error{
		"UpdateFrame":           func() error { return d.UpdateFrame(f) },
		"DisplayFrame":          d.DisplayFrame,
		"UpdateAndDisplayFrame": func() error { return d.UpdateAndDisplayFrame(f) },
		"UpdatePartialFrame":    func() error { return d.UpdatePartialFrame(f, 0, 0, 8, 8) },
		"ClearFrame":            func() error { return d.ClearFrame(framebuffer.White) },
		"SetLUT":                func() error { return d.SetLUT(nil, panel.Quick) },
		"Sleep":                 d.Sleep,
		"UpdateNewFrame":        func() error { return d.UpdateNewFrame(f) },
		"DisplayNewFrame":       d.DisplayNewFrame,
		"ClearPartialFrame":     func() error { return d.ClearPartialFrame(framebuffer.White, 0, 0, 8, 8) },
	} {
		if err := op(); !errors.Is(err, ErrInvalidState) {
			t.Errorf("%s() while sleeping = %v, want %v", name, err, ErrInvalidState)
		}
	}
	if ft.writes != n {
		t.Error("the panel was woken up implicitly")
	}
	if err := d.Halt(); err != nil {
		t.Errorf("Halt() = %v", err)
	}

	resets := len(ft.resets)
	n = len(ft.records)
	if err := d.WakeUp(); err != nil {
		t.Fatal(err)
	}
	if d.State() != Ready {
		t.Errorf("State() = %s, want Ready", d.State())
	}
	if len(ft.resets) != resets+3 {
		t.Errorf("WakeUp() did not reset the panel")
	}
	wantCmds := []byte{
		panel.SSD16xxSwReset, panel.SSD16xxSetAnalogBlockControl, panel.SSD16xxSetDigitalBlockControl,
		panel.SSD16xxDriverOutputControl, panel.SSD16xxDataEntryModeSetting,
		panel.SSD16xxWriteVcomRegister, panel.SSD16xxBorderWaveformControl,
		panel.SSD16xxWriteLutRegister, panel.SSD16xxGateDrivingVoltageControl, panel.SSD16xxSourceDrivingVoltageControl,
		panel.SSD16xxSetDummyLinePeriod, panel.SSD16xxSetGateTime,
	}
	if diff := cmp.Diff(ft.cmds(n), wantCmds); diff != "" {
		t.Errorf("WakeUp() commands difference (-got +want):\n%s", diff)
	}
	if err := d.WakeUp(); !errors.Is(err, ErrInvalidState) {
		t.Errorf("WakeUp() while ready = %v, want %v", err, ErrInvalidState)
	}
	if err := d.DisplayFrame(); !errors.Is(err, ErrInvalidState) {
		t.Errorf("DisplayFrame() after WakeUp() = %v, want %v", err, ErrInvalidState)
	}
	if err := d.UpdateAndDisplayFrame(f); err != nil {
		t.Errorf("UpdateAndDisplayFrame() = %v", err)
	}

	if err := d.Halt(); err != nil {
		t.Fatal(err)
	}
	if d.State() != Sleeping {
		t.Errorf("State() after Halt() = %s, want Sleeping", d.State())
	}
}

func TestWakeUpKeepsQuickMode(t *testing.T) {
	d, ft := initTestDev(t, panel.EPD4in2, nil)
	if err := d.SetLUT(nil, panel.Quick); err != nil {
		t.Fatal(err)
	}
	if err := d.Sleep(); err != nil {
		t.Fatal(err)
	}
	if err := d.WakeUp(); err != nil {
		t.Fatal(err)
	}
	if r, _ := ft.find(panel.UC81xxLUTC); !bytes.Equal(r.data, panel.EPD4in2.QuickLUT[:44]) {
		t.Error("WakeUp() did not reload the quick LUT")
	}
}

func TestIsBusy(t *testing.T) {
	for _, desc := range []*panel.Descriptor{panel.EPD4in2, panel.EPD2in13v2} {
		d, ft := newTestDev(t, desc, nil)
		if d.IsBusy() {
			t.Errorf("%s: IsBusy() = true on an idle panel", desc.Name)
		}
		ft.stuck = true
		if !d.IsBusy() {
			t.Errorf("%s: IsBusy() = false on a busy panel", desc.Name)
		}
	}
}

func TestBusyWait(t *testing.T) {
	d, ft := initTestDev(t, panel.EPD2in9, &Opts{Wait: Sleep(5 * time.Millisecond)})
	if err := d.UpdateFrame(newFrame(t, panel.EPD2in9)); err != nil {
		t.Fatal(err)
	}
	ft.delays = nil
	ft.busyReads = 3
	if err := d.DisplayFrame(); err != nil {
		t.Fatal(err)
	}
	want := []time.Duration{5 * time.Millisecond, 5 * time.Millisecond, 5 * time.Millisecond}
	if diff := cmp.Diff(ft.delays, want); diff != "" {
		t.Errorf("delays difference (-got +want):\n%s", diff)
	}
}

func TestNoCommandWhileBusy(t *testing.T) {
	d, ft := initTestDev(t, panel.EPD4in2, nil)
	f := newFrame(t, panel.EPD4in2)
	ft.busyReads = 10
	reads := ft.reads
	if err := d.UpdateFrame(f); err != nil {
		t.Fatal(err)
	}
	if ft.busyReads != 0 || ft.reads-reads < 11 {
		t.Errorf("UpdateFrame() did not wait for the panel: %d reads", ft.reads-reads)
	}
}

func TestTimeout(t *testing.T) {
	d, ft := newTestDev(t, panel.EPD4in2, &Opts{Wait: Bounded(10*time.Millisecond, 50*time.Millisecond)})
	ft.stuck = true
	if err := d.Init(); !errors.Is(err, ErrTimeout) {
		t.Fatalf("Init() = %v, want %v", err, ErrTimeout)
	}
	if d.State() != Uninitialized {
		t.Errorf("State() = %s, want Uninitialized", d.State())
	}
	ft.stuck = false
	if err := d.Init(); err != nil {
		t.Fatal(err)
	}

	f := newFrame(t, panel.EPD4in2)
	if err := d.UpdateFrame(f); err != nil {
		t.Fatal(err)
	}
	ft.stuck = true
	if err := d.DisplayFrame(); !errors.Is(err, ErrTimeout) {
		t.Fatalf("DisplayFrame() = %v, want %v", err, ErrTimeout)
	}
	if d.State() != Ready {
		t.Errorf("State() = %s, want Ready", d.State())
	}

	// The next call waits for the panel before sending anything.
	n := ft.writes
	if err := d.UpdateFrame(f); !errors.Is(err, ErrTimeout) {
		t.Errorf("UpdateFrame() = %v, want %v", err, ErrTimeout)
	}
	if ft.writes != n {
		t.Error("UpdateFrame() sent data to a busy panel")
	}
	ft.stuck = false
	if err := d.UpdateAndDisplayFrame(f); err != nil {
		t.Errorf("UpdateAndDisplayFrame() = %v", err)
	}
}

func TestSevenColorFrame(t *testing.T) {
	d, ft := initTestDev(t, panel.EPD5in65f, nil)
	f := newFrame(t, panel.EPD5in65f)
	if err := f.SetPixel(0, 0, framebuffer.Red); err != nil {
		t.Fatal(err)
	}
	if err := f.SetPixel(599, 447, framebuffer.Blue); err != nil {
		t.Fatal(err)
	}
	n := len(ft.records)
	if err := d.UpdateAndDisplayFrame(f); err != nil {
		t.Fatal(err)
	}
	want := []byte{panel.UC81xxTRES, panel.UC81xxDTM1, panel.UC81xxPON, panel.UC81xxDRF, panel.UC81xxPOF}
	if diff := cmp.Diff(ft.cmds(n), want); diff != "" {
		t.Errorf("commands difference (-got +want):\n%s", diff)
	}
	r, _ := ft.find(panel.UC81xxDTM1)
	if len(r.data) != 300*448 {
		t.Fatalf("DTM1 is %d bytes, want %d", len(r.data), 300*448)
	}
	if r.data[0] != 0x41 || r.data[1] != 0x11 || r.data[len(r.data)-1] != 0x13 {
		t.Errorf("DTM1 = %#x %#x ... %#x", r.data[0], r.data[1], r.data[len(r.data)-1])
	}
}
