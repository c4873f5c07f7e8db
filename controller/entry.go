// Copyright 2024 The Phievse Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package controller

import "phievse.dev/firmware/controlpilot"

// runEntryAction fires once, on transition into newState, per spec §4.7's
// entry-action table.
func (c *Controller) runEntryAction(newState State) {
	switch newState {
	case NotConnected:
		c.cp.ClearNegativeSeen()
		c.drive(controlpilot.Signal{Standby: true})
	case Connected:
		c.currentAdjustment = 1000
		if c.maxCurrentMA > minChargeCurrentMA {
			c.advertise()
		}
	case Error:
		c.drive(controlpilot.Signal{Halted: true})
		if err := c.peripherals.RelayMain.SetLevelAndWait(false); err != nil {
			c.log.Error("relay_main open failed", "error", err)
		}
		if err := c.peripherals.Relay3Phase.SetLevel(false); err != nil {
			c.log.Error("relay_3_phase open failed", "error", err)
		}
	case Stopping, ShuttingDown:
		c.drive(controlpilot.Signal{Standby: true})
	case Shutdown:
		if err := c.peripherals.Watchdog.Stop(); err != nil {
			c.log.Error("watchdog stop failed", "error", err)
		}
	}
}
