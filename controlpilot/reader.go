// Copyright 2024 The Phievse Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package controlpilot implements the IEC 61851 Control Pilot line: reading
// the vehicle's state off its voltage level, and encoding the advertised
// charge current as a PWM duty cycle.
package controlpilot

import (
	"iter"
	"sync/atomic"

	"phievse.dev/firmware/conn/physic"
)

// Mode is the vehicle state the Control Pilot voltage level encodes.
type Mode int

const (
	// NotConnected: no cable plugged in, pilot resting at 12V (read here as
	// close to 0mV once rectified and scaled by the sense circuit).
	NotConnected Mode = iota
	// Connected: a cable is plugged in but the vehicle has not closed its
	// relay to request charging (pilot around 9V / 450mV scaled).
	Connected
	// Ready: the vehicle has requested charging (pilot around 6V / 1300mV
	// scaled, or 3V / 2600mV scaled if it also requests ventilation).
	Ready
	// Error: the pilot is in a fault condition. Reader.State never returns
	// it: its three peak-voltage bands cover every reading.
	Error
)

func (m Mode) String() string {
	switch m {
	case NotConnected:
		return "NotConnected"
	case Connected:
		return "Connected"
	case Ready:
		return "Ready"
	default:
		return "Error"
	}
}

// Classification thresholds, in scaled millivolts, from spec §4.3.
const (
	notConnectedMaxMV = 50
	connectedMaxMV    = 650
)

// Reader observes the CP channel's peak voltage each batch, plus the
// negative-rail diode-check interrupt, and classifies the line into a
// Mode on demand.
//
// It is shared read-only by the ADC subscription goroutine (which calls
// Receive), the negative-rail alarm (which calls MarkNegativeSeen), and the
// controller (which calls State and NegativeSeen). All three talk through
// atomics; there is no lock.
type Reader struct {
	peakMV       atomic.Int64
	negativeSeen atomic.Bool
}

// Receive records the peak voltage observed in one ADC batch for the CP
// channel.
func (r *Reader) Receive(samples iter.Seq[physic.ElectricPotential]) {
	var max physic.ElectricPotential
	found := false
	for v := range samples {
		if !found || v > max {
			max = v
			found = true
		}
	}
	if found {
		r.peakMV.Store(int64(max / physic.MilliVolt))
	}
}

// MarkNegativeSeen latches the negative-rail diode-check flag. Called from
// the alarm ISR/goroutine on a negative edge; sticky until the caller
// chooses to clear it (Reader never clears it on its own).
func (r *Reader) MarkNegativeSeen() {
	r.negativeSeen.Store(true)
}

// NegativeSeen reports whether the negative-rail diode check has fired
// since the last clear. Reserved for an error mode per spec §4.3 — it is
// not gated into State by Reader itself; see DESIGN.md for the
// controller's escalation policy.
func (r *Reader) NegativeSeen() bool {
	return r.negativeSeen.Load()
}

// ClearNegativeSeen resets the sticky negative-rail flag, called by the
// controller on every entry into NotConnected.
func (r *Reader) ClearNegativeSeen() {
	r.negativeSeen.Store(false)
}

// State classifies the most recently observed peak CP voltage into a Mode.
func (r *Reader) State() Mode {
	mv := r.peakMV.Load()
	switch {
	case mv <= notConnectedMaxMV:
		return NotConnected
	case mv <= connectedMaxMV:
		return Connected
	default:
		return Ready
	}
}
