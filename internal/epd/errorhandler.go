// Copyright 2021 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package epd

import (
	"fmt"
	"time"

	"periph.io/x/conn/v3/gpio"
)

// busyPoll is the BUSY line sampling interval.
const busyPoll = 10 * time.Millisecond

// errorHandler is a wrapper for error management.
type errorHandler struct {
	d   *Dev
	err error
}

func (eh *errorHandler) rstOut(l gpio.Level) {
	if eh.err != nil {
		return
	}
	eh.err = eh.d.rst.Out(l)
}

func (eh *errorHandler) cTx(w []byte, r []byte) {
	if eh.err != nil {
		return
	}
	eh.err = eh.d.c.Tx(w, r)
}

func (eh *errorHandler) dcOut(l gpio.Level) {
	if eh.err != nil {
		return
	}
	eh.err = eh.d.dc.Out(l)
}

func (eh *errorHandler) csOut(l gpio.Level) {
	if eh.err != nil {
		return
	}
	eh.err = eh.d.cs.Out(l)
}

func (eh *errorHandler) sleep(d time.Duration) {
	if eh.err != nil {
		return
	}
	time.Sleep(d)
}

// waitUntilIdle polls BUSY (active high) until it drops or the configured
// timeout expires.
func (eh *errorHandler) waitUntilIdle() {
	if eh.err != nil {
		return
	}
	start := time.Now()
	for eh.d.busy.Read() == gpio.High {
		if waited := time.Since(start); waited >= eh.d.opts.BusyTimeout {
			eh.err = fmt.Errorf("%w after %v", ErrBusyTimeout, waited.Round(time.Millisecond))
			return
		}
		time.Sleep(busyPoll)
	}
}

func (eh *errorHandler) sendCommand(cmd byte) {
	if eh.err != nil {
		return
	}

	eh.dcOut(gpio.Low)
	eh.csOut(gpio.Low)
	eh.cTx([]byte{cmd}, nil)
	eh.csOut(gpio.High)
}

func (eh *errorHandler) sendData(data []byte) {
	if eh.err != nil {
		return
	}

	eh.dcOut(gpio.High)
	eh.csOut(gpio.Low)
	// spidev caps a single transfer (4096 bytes by default), smaller than
	// a full frame.
	for n := eh.d.maxTxSize; n > 0 && len(data) > n; data = data[n:] {
		eh.cTx(data[:n], nil)
	}
	eh.cTx(data, nil)
	eh.csOut(gpio.High)
}
