// Copyright 2024 The Phievse Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package watchdog abstracts the hardware task watchdog the controller
// kicks once per tick. A missed kick must reboot the device; the interface
// here exists so the controller's 10Hz loop can be tested without an
// actual watchdog timer armed.
package watchdog

import "time"

// Watchdog is the narrow interface the controller's tick loop depends on.
type Watchdog interface {
	// Init arms the watchdog for the calling task with the given timeout.
	// Called once at boot, before the controller's first tick.
	Init(timeout time.Duration) error
	// Reset kicks the watchdog, called on every controller tick.
	Reset() error
	// Stop deregisters the calling task from the watchdog, or extends its
	// timeout far beyond any reasonable tick interval. Called only when
	// the controller is shutting down cleanly.
	Stop() error
}
