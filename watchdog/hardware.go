// Copyright 2024 The Phievse Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package watchdog

import (
	"fmt"
	"time"
)

// Register is the narrow memory-mapped interface a board-specific task
// watchdog peripheral exposes, in the spirit of conn/mmr's register
// read/write idiom: the timeout and kick logic live here, testable against
// a fake; only the register addresses and bit layout are board-specific.
type Register interface {
	// WriteTimeout programs the watchdog period.
	WriteTimeout(timeout time.Duration) error
	// WriteFeed strobes the feed/kick bit.
	WriteFeed() error
	// WriteEnable arms or disarms the watchdog for the calling task.
	WriteEnable(enabled bool) error
}

// Hardware implements Watchdog against a Register.
type Hardware struct {
	reg Register
}

// NewHardware wraps reg.
func NewHardware(reg Register) *Hardware {
	return &Hardware{reg: reg}
}

// Init implements Watchdog.
func (h *Hardware) Init(timeout time.Duration) error {
	if err := h.reg.WriteTimeout(timeout); err != nil {
		return fmt.Errorf("watchdog: init: %w", err)
	}
	return h.reg.WriteEnable(true)
}

// Reset implements Watchdog.
func (h *Hardware) Reset() error {
	return h.reg.WriteFeed()
}

// Stop implements Watchdog.
//
// Per spec, stopping deregisters the caller rather than leaving the
// timeout armed at its last value, which would otherwise reboot the
// device moments after the controller intentionally stops ticking.
func (h *Hardware) Stop() error {
	return h.reg.WriteEnable(false)
}

var _ Watchdog = (*Hardware)(nil)
