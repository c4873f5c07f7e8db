// Copyright 2024 The Phievse Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package controller

import (
	"phievse.dev/firmware/adc"
	"phievse.dev/firmware/alarm"
	"phievse.dev/firmware/conn/gpio"
	"phievse.dev/firmware/relay"
	"phievse.dev/firmware/watchdog"
)

// Peripherals collects every capability the controller depends on,
// dynamically dispatched so the state machine can run against synthetic
// peripherals in tests without a real board. A single interface per
// capability, rather than one generic type parameter per peripheral, is
// an equally valid vtable shape for this.
type Peripherals struct {
	// RelayMain is the main contactor.
	RelayMain *relay.Driver
	// Relay3Phase switches between single- and three-phase delivery.
	Relay3Phase *relay.Driver
	// Analog is the ADC subscription the controller wires current meters
	// and the CP reader through.
	Analog adc.Subscriber
	// PilotNegative is the CP negative-rail diode-check alarm.
	PilotNegative alarm.Input
	// ControlPilot is the CP PWM pin.
	ControlPilot gpio.PinOut
	// Watchdog is the hardware task watchdog.
	Watchdog watchdog.Watchdog
}
