// Copyright 2016 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package conn defines the base interfaces shared by every peripheral the
// EVSE kernel talks to.
package conn

import "fmt"

// Resource is the base interface implemented by every peripheral handle the
// kernel owns: ADC subscribers, relay pins, the watchdog, the alarm input.
//
// It exists so peripheral teardown has one name (Halt) regardless of what
// the peripheral actually is.
type Resource interface {
	fmt.Stringer
	// Halt stops the peripheral, releasing any background goroutine it
	// started. It is safe to call Halt on an already halted resource.
	Halt() error
}
