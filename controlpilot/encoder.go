// Copyright 2024 The Phievse Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package controlpilot

import (
	"phievse.dev/firmware/conn/gpio"
	"phievse.dev/firmware/conn/physic"
)

// CarrierFreq is the Control Pilot PWM carrier frequency, fixed by
// IEC 61851-1.
const CarrierFreq = 1 * physic.KiloHertz

// Signal is what the controller wants to advertise on the Control Pilot
// line: either a maximum current offer, or one of the two fixed states.
type Signal struct {
	// MaxCurrentMA is the offered current, in milliamps, valid only when
	// neither Standby nor Halted is set. Per IEC 61851-1, this must land in
	// [6000, 32000]; a value outside that range behaves as Error (0% duty),
	// not a clamp — the vehicle must see a fault, not a silently-adjusted
	// offer it never asked for.
	MaxCurrentMA uint32
	// Standby requests a constant +12V (100% duty): charging unavailable,
	// but the pilot must stay high so the vehicle doesn't read a fault.
	Standby bool
	// Halted requests the pilot held low (0% duty): a hard fault, telling
	// the vehicle to disconnect immediately.
	Halted bool
}

// Current duty bands, milliamps and gpio.Duty per spec's piecewise
// current_to_duty table. Each band is a distinct linear (or, for the
// middle band, quadratic correction) fit to the IEC 61851-1 Table A.8
// duty-cycle-to-current curve, derived empirically against reference
// hardware; see original_source's control_pilot.rs for the calibration
// notes these coefficients were carried over from.
const (
	lowBandMinMA  = 6000
	lowBandMaxMA  = 10999
	midBandMaxMA  = 13499
	highBandMaxMA = 32000
)

// Encode converts a Signal into the PWM duty cycle to drive onto the
// Control Pilot line.
func Encode(s Signal) gpio.Duty {
	switch {
	case s.Halted:
		return 0
	case s.Standby:
		return gpio.DutyMax
	}

	ma := s.MaxCurrentMA
	if ma < lowBandMinMA || ma > highBandMaxMA {
		return 0
	}

	duty := currentToDuty(ma)
	if duty < 0 {
		duty = 0
	}
	if duty > int64(gpio.DutyMax) {
		duty = int64(gpio.DutyMax)
	}
	return gpio.Duty(duty)
}

// Drive writes s to pin as a PWM duty cycle at CarrierFreq.
func Drive(pin gpio.PinOut, s Signal) error {
	return pin.PWM(Encode(s), CarrierFreq)
}

// currentToDuty is the piecewise fit, in integer milliamps, to the
// vehicle's interpretation of CP duty cycle. The three bands and their
// exact integer expressions are load-bearing: reproduce them verbatim,
// not a floating-point approximation.
func currentToDuty(ma uint32) int64 {
	m := int64(ma)
	switch {
	case m <= lowBandMaxMA:
		return 17*m/1000 + 110
	case m <= midBandMaxMA:
		return 5051 + (m*m/100)*368/100000 - 837*m/1000
	default:
		return 235*m/1000 - 2713
	}
}
