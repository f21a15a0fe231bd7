// Copyright 2021 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package epd

import (
	"bytes"
	"image"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

type record struct {
	cmd  byte
	data []byte
}

type fakeController struct {
	records []record
	waits   int
}

func (r *fakeController) sendCommand(cmd byte) {
	r.records = append(r.records, record{
		cmd: cmd,
	})
}

func (r *fakeController) sendData(data []byte) {
	cur := &r.records[len(r.records)-1]
	cur.data = append(cur.data, data...)
}

func (r *fakeController) waitUntilIdle() {
	r.waits++
}

func diffRecords(got, want []record) string {
	return cmp.Diff(got, want, cmpopts.EquateEmpty(), cmp.AllowUnexported(record{}))
}

func TestInitDisplay(t *testing.T) {
	var got fakeController

	initDisplay(&got, &GDEH029A1)

	want := []record{
		{cmd: driverOutputControl, data: []byte{0x27, 0x01, 0x00}},
		{cmd: boosterSoftStartControl, data: []byte{0xD7, 0xD6, 0x9D}},
		{cmd: writeVcomRegister, data: []byte{0xA8}},
		{cmd: setDummyLinePeriod, data: []byte{0x1A}},
		{cmd: setGateTime, data: []byte{0x08}},
		{cmd: dataEntryModeSetting, data: []byte{0x03}},
	}
	if diff := diffRecords(got.records, want); diff != "" {
		t.Errorf("initDisplay() difference (-got +want):\n%s", diff)
	}
}

func TestLoadLUT(t *testing.T) {
	for _, tc := range []struct {
		name string
		lut  LUT
	}{
		{name: "full", lut: GDEH029A1.FullUpdate},
		{name: "partial", lut: GDEH029A1.PartialUpdate},
		{name: "long table is cut", lut: LUT(bytes.Repeat([]byte{'L'}, 70))},
	} {
		t.Run(tc.name, func(t *testing.T) {
			var got fakeController

			loadLUT(&got, tc.lut)

			want := []record{{cmd: writeLutRegister, data: []byte(tc.lut[:lutSize])}}
			if diff := diffRecords(got.records, want); diff != "" {
				t.Errorf("loadLUT() difference (-got +want):\n%s", diff)
			}
		})
	}
}

func TestSetMemoryArea(t *testing.T) {
	for _, tc := range []struct {
		name string
		area image.Rectangle
		want []record
	}{
		{
			name: "full screen",
			area: image.Rect(0, 0, 128, 296),
			want: []record{
				{cmd: setRAMXAddressStartEndPosition, data: []byte{0, 15}},
				{cmd: setRAMYAddressStartEndPosition, data: []byte{0, 0, 0x27, 0x01}},
				{cmd: setRAMXAddressCounter, data: []byte{0}},
				{cmd: setRAMYAddressCounter, data: []byte{0, 0}},
			},
		},
		{
			name: "window",
			area: image.Rect(8, 8, 24, 24),
			want: []record{
				{cmd: setRAMXAddressStartEndPosition, data: []byte{1, 2}},
				{cmd: setRAMYAddressStartEndPosition, data: []byte{8, 0, 23, 0}},
				{cmd: setRAMXAddressCounter, data: []byte{1}},
				{cmd: setRAMYAddressCounter, data: []byte{8, 0}},
			},
		},
		{
			name: "bottom rows",
			area: image.Rect(120, 280, 128, 296),
			want: []record{
				{cmd: setRAMXAddressStartEndPosition, data: []byte{15, 15}},
				{cmd: setRAMYAddressStartEndPosition, data: []byte{0x18, 0x01, 0x27, 0x01}},
				{cmd: setRAMXAddressCounter, data: []byte{15}},
				{cmd: setRAMYAddressCounter, data: []byte{0x18, 0x01}},
			},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			var got fakeController

			setMemoryArea(&got, tc.area)

			if diff := diffRecords(got.records, tc.want); diff != "" {
				t.Errorf("setMemoryArea() difference (-got +want):\n%s", diff)
			}
		})
	}
}

func TestRunUpdate(t *testing.T) {
	for _, tc := range []struct {
		name string
		seq  byte
		want []record
	}{
		{
			name: "power on",
			seq:  updatePowerOn,
			want: []record{
				{cmd: displayUpdateControl2, data: []byte{0xC0}},
				{cmd: masterActivation},
			},
		},
		{
			name: "display",
			seq:  updateDisplay,
			want: []record{
				{cmd: displayUpdateControl2, data: []byte{0xC4}},
				{cmd: masterActivation},
				{cmd: nop},
			},
		},
		{
			name: "power off",
			seq:  updatePowerOff,
			want: []record{
				{cmd: displayUpdateControl2, data: []byte{0xC3}},
				{cmd: masterActivation},
			},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			var got fakeController

			runUpdate(&got, tc.seq)

			if diff := diffRecords(got.records, tc.want); diff != "" {
				t.Errorf("runUpdate() difference (-got +want):\n%s", diff)
			}
			if got.waits != 1 {
				t.Errorf("runUpdate() waited %d times, want 1", got.waits)
			}
		})
	}
}
