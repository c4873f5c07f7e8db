// Copyright 2024 The Phievse Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package controller

import (
	"time"

	"phievse.dev/firmware/controlpilot"
)

func (c *Controller) tickNotConnectedOrConnected(cpState controlpilot.Mode, powerChanged bool) {
	switch cpState {
	case controlpilot.NotConnected:
		c.state = NotConnected
	case controlpilot.Connected:
		c.state = Connected
	case controlpilot.Ready:
		c.state = Ready
	default:
		c.state = Error
	}

	if powerChanged && c.state == Connected {
		c.advertise()
	}
}

func (c *Controller) tickReady() {
	if c.maxCurrentMA <= minChargeCurrentMA {
		return
	}
	// Wait before closing the relay so the vehicle doesn't see a
	// premature switch.
	time.Sleep(readySettleWait)
	if err := c.peripherals.Relay3Phase.SetLevelAndWait(c.threePhase); err != nil {
		c.log.Error("relay_3_phase set failed", "error", err)
	}
	if err := c.peripherals.RelayMain.SetLevel(true); err != nil {
		c.log.Error("relay_main set failed", "error", err)
	}
	c.state = Charging
}

func (c *Controller) tickCharging(cpState controlpilot.Mode, powerChanged bool, nextAdjust, stopTimeout *int) {
	if !c.cp.NegativeSeen() {
		c.log.Error("pilot negative-rail diode check never fired this session")
		c.state = Error
		return
	}

	if powerChanged {
		c.advertise()
		*nextAdjust = 50

		if c.threePhase != c.peripherals.Relay3Phase.Level() {
			if err := c.peripherals.Relay3Phase.SetLevel(c.threePhase); err != nil {
				c.log.Error("relay_3_phase set failed", "error", err)
			}
			*nextAdjust = 100
		}
	}

	totalMA := c.totalCurrentMA()
	c.statusMu.Lock()
	c.status.PowerW = totalMA * 230 / 1000
	c.statusMu.Unlock()

	if *nextAdjust > 0 {
		*nextAdjust--
		return
	}

	if cpState != controlpilot.Ready {
		c.state = Stopping
		*stopTimeout = 50
		return
	}

	phases := uint32(1)
	if c.threePhase {
		phases = 3
	}
	perPhaseMA := totalMA / phases
	diff := int32(c.maxCurrentMA) - int32(perPhaseMA)

	switch {
	case perPhaseMA < 1000:
		// Not yet drawing current; wait before adjusting again.
		// TODO: the original firmware never bounds this wait either —
		// a car that never starts drawing stays in Charging forever.
		*nextAdjust++
	case perPhaseMA > c.maxCurrentMA+overCurrentMarginMA:
		c.log.Warn("car over-current, emergency stop", "per_phase_ma", perPhaseMA, "max_current_ma", c.maxCurrentMA)
		c.state = Error
	case perPhaseMA < 6500:
		c.currentAdjustment = clampAdjustment(c.currentAdjustment + 500)
		c.advertise()
		*nextAdjust = 30
	case abs32(diff) > 500:
		c.currentAdjustment = clampAdjustment(c.currentAdjustment + sign32(diff)*300)
		c.advertise()
		*nextAdjust = 30
	}
}

func (c *Controller) tickStoppingOrShuttingDown(cpState controlpilot.Mode, stopTimeout *int) {
	totalMA := c.totalCurrentMA()
	if totalMA != 0 && *stopTimeout > 0 {
		*stopTimeout--
		return
	}

	if err := c.peripherals.RelayMain.SetLevelAndWait(false); err != nil {
		c.log.Error("relay_main open failed", "error", err)
	}
	if err := c.peripherals.Relay3Phase.SetLevel(false); err != nil {
		c.log.Error("relay_3_phase open failed", "error", err)
	}

	if c.state == Stopping {
		switch cpState {
		case controlpilot.NotConnected:
			c.state = NotConnected
		case controlpilot.Connected:
			c.state = Connected
		case controlpilot.Ready:
			// The EV is still signalling Ready after we opened the relays
			// while stopping: this should not happen outside of a bug, but
			// falling through to Error keeps the kernel safe instead of
			// asserting.
			c.log.Error("CP reports Ready while resolving Stopping")
			c.state = Error
		default:
			c.state = Error
		}
	} else {
		c.state = Shutdown
	}
}

func (c *Controller) tickError(cpState controlpilot.Mode) {
	if cpState == controlpilot.NotConnected {
		c.state = NotConnected
	}
}

func abs32(n int32) int32 {
	if n < 0 {
		return -n
	}
	return n
}

func sign32(n int32) int32 {
	switch {
	case n > 0:
		return 1
	case n < 0:
		return -1
	default:
		return 0
	}
}
