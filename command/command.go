// Copyright 2024 The Phievse Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package command defines the two messages the controller accepts, and a
// validated boundary for constructing them from untrusted input.
package command

import "fmt"

// Watts bounds: the controller treats 0 as "unavailable", and otherwise
// only accepts the 1.5kW-11kW band a single-phase-to-three-phase domestic
// EVSE can actually deliver.
const (
	MinWatts = 1500
	MaxWatts = 11000
)

// Command is a closed sum type: SetMaxPower or Shutdown, and nothing else.
// Modeled as an unexported interface with exported constructors, the
// idiomatic Go replacement for a Rust enum.
type Command interface {
	isCommand()
}

// SetMaxPowerCmd requests the controller cap its draw at Watts.
type SetMaxPowerCmd struct {
	Watts uint32
}

func (SetMaxPowerCmd) isCommand() {}

// ShutdownCmd requests an orderly shutdown.
type ShutdownCmd struct{}

func (ShutdownCmd) isCommand() {}

// SetMaxPower constructs a validated SetMaxPowerCmd. watts must be 0
// (charging unavailable) or within [MinWatts, MaxWatts]; any other value is
// rejected here, at the one place every caller funnels through, rather
// than deep inside the controller's state machine.
func SetMaxPower(watts uint32) (Command, error) {
	if watts != 0 && (watts < MinWatts || watts > MaxWatts) {
		return nil, fmt.Errorf("command: watts %d outside {0} ∪ [%d,%d]", watts, MinWatts, MaxWatts)
	}
	return SetMaxPowerCmd{Watts: watts}, nil
}

// Shutdown constructs a ShutdownCmd.
func Shutdown() Command {
	return ShutdownCmd{}
}
