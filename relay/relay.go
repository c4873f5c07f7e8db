// Copyright 2024 The Phievse Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package relay drives a contactor coil through a PWM pin, applying a
// pull-in-then-hold duty profile that reduces coil dissipation once the
// contact has mechanically closed.
package relay

import (
	"sync"
	"time"

	"phievse.dev/firmware/conn/gpio"
	"phievse.dev/firmware/conn/physic"
)

// Tuning constants, per spec §4.5.
const (
	pullInDuration = 90 * time.Millisecond
	settleWait     = 180 * time.Millisecond
	holdPercent    = 85
	carrierFreq    = 1 * physic.KiloHertz
)

var holdDuty = gpio.Duty(uint32(gpio.DutyMax) * holdPercent / 100)

// Driver drives one contactor. It owns pin exclusively: no other goroutine
// may call PWM on it directly.
//
// The 90ms pull-in-to-hold transition is scheduled with time.AfterFunc
// rather than a dedicated helper goroutine reaching back into the Driver's
// fields; a generation counter, bumped on every OFF command and every
// OFF→ON transition (an ON→ON call leaves it unchanged), lets a
// stale timer recognize it has been superseded and no-op instead of
// clobbering a level change that happened in the window. This replaces
// the aliased-pointer handoff the original firmware used for the same
// purpose (see spec's design note on this), at the cost of one extra
// uint64 per relay.
type Driver struct {
	pin gpio.PinOut

	mu         sync.Mutex
	level      bool
	generation uint64
}

// New wraps pin. The relay starts OFF, matching the pin's reset state.
func New(pin gpio.PinOut) *Driver {
	return &Driver{pin: pin}
}

// Level reports the last level passed to SetLevel or SetLevelAndWait.
func (d *Driver) Level() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.level
}

// SetLevel commands the relay on or off. It returns once the initial duty
// has been applied; it does not wait for mechanical settling.
func (d *Driver) SetLevel(on bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.setLevelLocked(on)
}

// SetLevelAndWait commands the relay and blocks for settleWait so the
// caller can rely on the contact having mechanically settled before it
// proceeds (e.g. before reading current through it).
func (d *Driver) SetLevelAndWait(on bool) error {
	if err := d.SetLevel(on); err != nil {
		return err
	}
	time.Sleep(settleWait)
	return nil
}

func (d *Driver) setLevelLocked(on bool) error {
	wasOn := d.level
	d.level = on

	if !on {
		d.generation++
		return d.pin.PWM(0, carrierFreq)
	}
	if wasOn {
		// ON→ON: idempotent, no change to the in-flight pull-in/hold timer.
		return nil
	}

	d.generation++
	gen := d.generation
	if err := d.pin.PWM(gpio.DutyMax, carrierFreq); err != nil {
		return err
	}
	time.AfterFunc(pullInDuration, func() { d.applyHold(gen) })
	return nil
}

// applyHold reduces the coil to holding duty, but only if nothing has
// commanded the relay since the pull-in that scheduled this callback.
func (d *Driver) applyHold(generation uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.generation != generation || !d.level {
		return
	}
	_ = d.pin.PWM(holdDuty, carrierFreq)
}
