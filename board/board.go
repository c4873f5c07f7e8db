// Copyright 2024 The Phievse Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package board is the hardware abstraction boundary between cmd/phievsed
// and a concrete target: it is where the ADC bus, GPIO pins, and watchdog
// register of a real board get wired together into the interfaces the
// controller package depends on.
//
// No concrete target ships in this tree — bring-up for a specific board
// belongs in its own package, registered the way host/host_linux.go and
// host/host_arm.go register platform-specific drivers behind build tags.
// Open returns ErrUnsupported until such a package is linked in.
package board

import (
	"errors"

	"phievse.dev/firmware/adcsrc"
	"phievse.dev/firmware/conn/gpio"
	"phievse.dev/firmware/watchdog"
)

// ErrUnsupported is returned by Open when no platform-specific board
// package has registered a Factory for the running GOOS/GOARCH.
var ErrUnsupported = errors.New("board: no board backend registered for this platform")

// Hardware is everything a concrete board must supply to run the real
// charging controller, the hardware-facing half of controller.Peripherals.
type Hardware struct {
	Bus              adcsrc.Bus
	ChannelPinMap    adcsrc.ChannelPinMap
	RelayMain        gpio.PinOut
	Relay3Phase      gpio.PinOut
	ControlPilot     gpio.PinOut
	PilotNegative    gpio.PinIn
	WatchdogRegister watchdog.Register
}

// Factory constructs Hardware for one concrete board. Platform packages
// register one via Register in an init func, following periph.io's driver
// self-registration convention (see conn/driver_reg.go in the upstream
// project this kernel's conn packages are descended from).
type Factory func() (*Hardware, error)

var factory Factory

// Register installs f as the board factory. Calling it twice is a bug in
// the platform package (two boards linked into one binary), not a runtime
// condition to recover from, so it panics like pio's own driver registry
// does on a duplicate name.
func Register(f Factory) {
	if factory != nil {
		panic("board: Register called twice")
	}
	factory = f
}

// Open returns the registered platform's Hardware, or ErrUnsupported if no
// platform package has been imported for side effect.
func Open() (*Hardware, error) {
	if factory == nil {
		return nil, ErrUnsupported
	}
	return factory()
}
