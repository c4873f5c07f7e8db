// Copyright 2016 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package pin declares well known pins.
//
// pin is about physical pins, not about their logical function.
package pin

import "fmt"

// INVALID represents a floating or invalid pin.
var INVALID Pin = &BasicPin{N: "INVALID"}

// Pin is the minimal common interface shared by every gpio.PinIO the kernel
// touches.
type Pin interface {
	// String typically returns the pin name and number, ex: "GPIO6".
	fmt.Stringer
	// Name returns the name of the pin.
	Name() string
	// Number returns the logical pin number, or a negative number if the pin
	// is not a GPIO, e.g. INVALID.
	Number() int
}

// BasicPin implements Pin as a non-functional placeholder.
type BasicPin struct {
	N string
}

// String returns the pin name.
func (b *BasicPin) String() string { return b.N }

// Name returns the pin name.
func (b *BasicPin) Name() string { return b.N }

// Number returns -1, since BasicPin never corresponds to real hardware.
func (b *BasicPin) Number() int { return -1 }
