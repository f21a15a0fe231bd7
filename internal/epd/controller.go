// Copyright 2021 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package epd

import "image"

// Commands
const (
	driverOutputControl            byte = 0x01
	boosterSoftStartControl        byte = 0x0C
	deepSleepMode                  byte = 0x10
	dataEntryModeSetting           byte = 0x11
	masterActivation               byte = 0x20
	displayUpdateControl2          byte = 0x22
	writeRAMBW                     byte = 0x24
	writeVcomRegister              byte = 0x2C
	writeLutRegister               byte = 0x32
	setDummyLinePeriod             byte = 0x3A
	setGateTime                    byte = 0x3B
	setRAMXAddressStartEndPosition byte = 0x44
	setRAMYAddressStartEndPosition byte = 0x45
	setRAMXAddressCounter          byte = 0x4E
	setRAMYAddressCounter          byte = 0x4F
	nop                            byte = 0xFF
)

// Display update sequences for displayUpdateControl2.
const (
	updatePowerOn  byte = 0xC0
	updatePowerOff byte = 0xC3
	updateDisplay  byte = 0xC4
)

type controller interface {
	sendCommand(byte)
	sendData([]byte)
	waitUntilIdle()
}

func initDisplay(ctrl controller, opts *Opts) {
	ctrl.sendCommand(driverOutputControl)
	ctrl.sendData([]byte{
		byte((opts.Height - 1) & 0xFF),
		byte((opts.Height - 1) >> 8),
		0x00,
	})

	ctrl.sendCommand(boosterSoftStartControl)
	ctrl.sendData([]byte{0xD7, 0xD6, 0x9D})

	ctrl.sendCommand(writeVcomRegister)
	ctrl.sendData([]byte{0xA8})

	ctrl.sendCommand(setDummyLinePeriod)
	ctrl.sendData([]byte{0x1A})

	ctrl.sendCommand(setGateTime)
	ctrl.sendData([]byte{0x08})

	// X increment, Y increment, address counter updated in X direction.
	ctrl.sendCommand(dataEntryModeSetting)
	ctrl.sendData([]byte{0x03})
}

func loadLUT(ctrl controller, lut LUT) {
	ctrl.sendCommand(writeLutRegister)
	ctrl.sendData(lut[:lutSize])
}

// setMemoryArea selects the RAM window and moves the address counter to its
// top left corner. X is addressed in bytes, Y in rows.
func setMemoryArea(ctrl controller, area image.Rectangle) {
	x0, x1 := byte(area.Min.X/8), byte((area.Max.X-1)/8)
	y0, y1 := area.Min.Y, area.Max.Y-1

	ctrl.sendCommand(setRAMXAddressStartEndPosition)
	ctrl.sendData([]byte{x0, x1})

	ctrl.sendCommand(setRAMYAddressStartEndPosition)
	ctrl.sendData([]byte{byte(y0 & 0xFF), byte(y0 >> 8), byte(y1 & 0xFF), byte(y1 >> 8)})

	ctrl.sendCommand(setRAMXAddressCounter)
	ctrl.sendData([]byte{x0})

	ctrl.sendCommand(setRAMYAddressCounter)
	ctrl.sendData([]byte{byte(y0 & 0xFF), byte(y0 >> 8)})
}

func writeRAM(ctrl controller, area image.Rectangle, plane []byte) {
	setMemoryArea(ctrl, area)
	ctrl.sendCommand(writeRAMBW)
	ctrl.sendData(plane)
}

func runUpdate(ctrl controller, seq byte) {
	ctrl.sendCommand(displayUpdateControl2)
	ctrl.sendData([]byte{seq})
	ctrl.sendCommand(masterActivation)
	if seq == updateDisplay {
		// Terminates the frame read and unblocks the busy line early on
		// some controller revisions.
		ctrl.sendCommand(nop)
	}
	ctrl.waitUntilIdle()
}

func deepSleep(ctrl controller) {
	ctrl.sendCommand(deepSleepMode)
	ctrl.sendData([]byte{0x01})
}
