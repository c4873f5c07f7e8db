// Copyright 2016 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package gpio defines digital pins.
//
// The GPIO pins are described in their logical functionality, not in their
// physical position.
package gpio

import (
	"errors"
	"fmt"
	"time"

	"phievse.dev/firmware/conn/pin"
	"phievse.dev/firmware/conn/physic"
)

// Level is the level of the pin: Low or High.
type Level bool

const (
	// Low represents 0v.
	Low Level = false
	// High represents Vin, generally 3.3v.
	High Level = true
)

func (l Level) String() string {
	if l == Low {
		return "Low"
	}
	return "High"
}

// Pull specifies the internal pull-up or pull-down for a pin set as input.
type Pull uint8

// Acceptable pull values.
const (
	Float        Pull = 0 // Let the input float.
	Down         Pull = 1 // Apply pull-down.
	Up           Pull = 2 // Apply pull-up.
	PullNoChange Pull = 3 // Do not change the previous pull resistor setting.
)

func (p Pull) String() string {
	switch p {
	case Float:
		return "Float"
	case Down:
		return "Down"
	case Up:
		return "Up"
	default:
		return "PullNoChange"
	}
}

// Edge specifies if and how an input pin should report level transitions.
//
// Only enable it when needed, since this causes system interrupts.
type Edge uint8

// Acceptable edge detection values.
const (
	NoEdge     Edge = 0
	RisingEdge Edge = 1
	FallingEdge Edge = 2
	BothEdges  Edge = 3
)

func (e Edge) String() string {
	switch e {
	case RisingEdge:
		return "Rising"
	case FallingEdge:
		return "Falling"
	case BothEdges:
		return "Both"
	default:
		return "None"
	}
}

// PinIn is a digital input GPIO pin.
type PinIn interface {
	pin.Pin
	// In sets up a pin as an input, optionally with a pull resistor and edge
	// detection.
	In(pull Pull, edge Edge) error
	// Read returns the current pin level.
	//
	// Behavior is undefined if In() wasn't called first.
	Read() Level
	// WaitForEdge waits for the next edge, or returns immediately if one
	// occurred since the last call.
	//
	// Only waits for the kind of edge specified in the last call to In().
	// Specify -1 to disable the timeout. Returns false on timeout.
	WaitForEdge(timeout time.Duration) bool
}

// Duty is a PWM duty cycle expressed as a fraction of DutyMax.
type Duty uint16

// DutyMax represents a 100% duty cycle.
const DutyMax Duty = 16383

// String formats the duty as a percentage.
func (d Duty) String() string {
	return fmt.Sprintf("%d%%", (int(d)*100+int(DutyMax)/2)/int(DutyMax))
}

// PinOut is a digital output GPIO pin, optionally capable of PWM.
type PinOut interface {
	pin.Pin
	// Out sets a pin as output if it wasn't already, and sets its level.
	Out(l Level) error
	// PWM drives the pin at the given duty cycle and frequency.
	//
	// Use DutyMax for Out(High), 0 for Out(Low).
	PWM(duty Duty, freq physic.Frequency) error
}

// PinIO is a GPIO pin that supports both input and output.
type PinIO interface {
	PinIn
	PinOut
}

// errInvalidPin is returned by INVALID on every access.
var errInvalidPin = errors.New("gpio: invalid pin")

// invalidPin implements PinIO but fails on all access. Useful as a
// zero-value placeholder while wiring has not been completed.
type invalidPin struct{}

func (invalidPin) String() string                       { return "INVALID" }
func (invalidPin) Name() string                          { return "INVALID" }
func (invalidPin) Number() int                           { return -1 }
func (invalidPin) In(Pull, Edge) error                   { return errInvalidPin }
func (invalidPin) Read() Level                           { return Low }
func (invalidPin) WaitForEdge(time.Duration) bool        { return false }
func (invalidPin) Out(Level) error                       { return errInvalidPin }
func (invalidPin) PWM(Duty, physic.Frequency) error       { return errInvalidPin }

// INVALID implements PinIO and fails on all access.
var INVALID PinIO = invalidPin{}

var (
	_ PinIn  = INVALID
	_ PinOut = INVALID
	_ PinIO  = INVALID
)
