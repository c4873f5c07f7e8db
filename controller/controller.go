// Copyright 2024 The Phievse Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package controller

import (
	"context"
	"iter"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"phievse.dev/firmware/adc"
	"phievse.dev/firmware/command"
	"phievse.dev/firmware/conn/physic"
	"phievse.dev/firmware/controlpilot"
	"phievse.dev/firmware/currentmeter"
)

// Tick period and fixed timing constants, per spec §5.
const (
	tickPeriod             = 100 * time.Millisecond
	defaultWatchdogTimeout = 2 * time.Second
	readySettleWait        = 500 * time.Millisecond

	minChargeCurrentMA  = 6000
	overCurrentMarginMA = 4000

	// Phase trim resistors, carried over verbatim from board bring-up
	// measurements (original_source's PhiEvseController::run).
	phase1TrimOhms = 0.8
	phase2TrimOhms = 1.4
	phase3TrimOhms = 1.6

	// nominalMainsVoltage is the single-phase RMS voltage powerToCurrent
	// divides by; nominalMainsFrequency is the mains period currentmeter's
	// wavelength constant is sized for.
	nominalMainsVoltage   = 230 * physic.Volt
	nominalMainsFrequency = 50 * physic.Hertz
)

// Status is the publicly readable snapshot. Controller is its sole
// writer; readers only ever see a copy.
type Status struct {
	PowerW    uint32
	State     State
	MaxPowerW uint32
}

// Controller is the top-level charging state machine. Create one with
// New, wire its commands via Commands, and run it with Run — which
// blocks for the process lifetime, or until ctx is canceled.
type Controller struct {
	peripherals     Peripherals
	log             *slog.Logger
	watchdogTimeout time.Duration

	phaseCurrentMA [3]atomic.Uint32
	meters         [3]*currentmeter.Meter
	cp             controlpilot.Reader

	commands chan command.Command

	statusMu sync.RWMutex
	status   Status

	// State owned exclusively by the Run goroutine; never touched
	// concurrently.
	state             State
	maxCurrentMA      uint32
	threePhase        bool
	currentAdjustment int32
}

// New constructs a Controller. peripherals must all be non-nil; Run wires
// them together at boot.
func New(peripherals Peripherals, log *slog.Logger) *Controller {
	if log == nil {
		log = slog.Default()
	}
	c := &Controller{
		peripherals:     peripherals,
		log:             log,
		watchdogTimeout: defaultWatchdogTimeout,
		commands:        make(chan command.Command, 16),
		state:           NotConnected,
	}
	c.meters[0] = currentmeter.New(&c.phaseCurrentMA[0], phase1TrimOhms)
	c.meters[1] = currentmeter.New(&c.phaseCurrentMA[1], phase2TrimOhms)
	c.meters[2] = currentmeter.New(&c.phaseCurrentMA[2], phase3TrimOhms)
	return c
}

// Status returns a copy of the current status, safe to call from any
// goroutine at any time.
func (c *Controller) Status() Status {
	c.statusMu.RLock()
	defer c.statusMu.RUnlock()
	return c.status
}

// Commands returns the fire-and-forget command send endpoint.
func (c *Controller) Commands() chan<- command.Command {
	return c.commands
}

// SetWatchdogTimeout overrides the watchdog period Run arms at boot.
// Call before Run; it has no effect once the watchdog has been
// initialized. Boards that need a timeout other than the 2s default
// (e.g. bench rigs configured via boardcfg) call this after New.
func (c *Controller) SetWatchdogTimeout(d time.Duration) {
	c.watchdogTimeout = d
}

// Run boots the peripherals and runs the 10Hz state machine until ctx is
// canceled, at which point it behaves as though a Shutdown command had
// been received: it parks in Shutdown and returns once it gets there.
//
// This context.Context parameter is the one addition beyond the
// original's fn run() -> !, needed so cmd/phievsed's signal handler can
// stop the process without an in-band command.
func (c *Controller) Run(ctx context.Context) error {
	if err := c.peripherals.Analog.Subscribe(c.receive); err != nil {
		return err
	}
	c.peripherals.PilotNegative.Subscribe(c.cp.MarkNegativeSeen)

	if err := controlpilot.Drive(c.peripherals.ControlPilot, controlpilot.Signal{Standby: true}); err != nil {
		c.log.Error("initial CP drive failed", "error", err)
	}
	c.log.Info("control kernel booting",
		"mains_voltage", nominalMainsVoltage,
		"mains_frequency", nominalMainsFrequency,
		"watchdog_timeout", c.watchdogTimeout)

	// Wait for everything to settle before reading CP and enabling
	// watchdog/alarm.
	time.Sleep(readySettleWait)
	if err := c.peripherals.PilotNegative.Arm(); err != nil {
		return err
	}
	if err := c.peripherals.Watchdog.Init(c.watchdogTimeout); err != nil {
		return err
	}

	ticker := time.NewTicker(tickPeriod)
	defer ticker.Stop()

	prevState := c.state
	stopTimeout := 0
	nextAdjust := 0

	for {
		select {
		case <-ctx.Done():
			if c.state != Shutdown {
				c.state = Shutdown
				c.runEntryAction(Shutdown)
				c.publishState()
			}
			return nil
		case <-ticker.C:
		}

		if err := c.peripherals.Watchdog.Reset(); err != nil {
			c.log.Error("watchdog reset failed", "error", err)
		}

		powerChanged := c.drainCommand(&stopTimeout)

		cpState := c.cp.State()
		if !c.peripherals.PilotNegative.IsHigh() {
			c.log.Error("pilot negative rail low, forcing Error")
			c.state = Error
		}

		switch c.state {
		case NotConnected, Connected:
			c.tickNotConnectedOrConnected(cpState, powerChanged)
		case Ready:
			c.tickReady()
		case Charging:
			c.tickCharging(cpState, powerChanged, &nextAdjust, &stopTimeout)
		case Stopping, ShuttingDown:
			c.tickStoppingOrShuttingDown(cpState, &stopTimeout)
		case Error:
			c.tickError(cpState)
		case Shutdown:
		}

		if c.state != prevState {
			c.log.Info("state transition", "from", prevState, "to", c.state)
			c.runEntryAction(c.state)
			c.publishState()
			prevState = c.state
		}
	}
}

// receive is adc.Receiver, demultiplexing batches to meters and the CP
// reader. Runs on the ADC driver's background goroutine, never the
// controller's own.
func (c *Controller) receive(channel adc.Channel, samples iter.Seq[physic.ElectricPotential]) {
	switch channel {
	case adc.CurrentL1:
		c.meters[0].Receive(samples)
	case adc.CurrentL2:
		c.meters[1].Receive(samples)
	case adc.CurrentL3:
		c.meters[2].Receive(samples)
	case adc.ControlPilot:
		c.cp.Receive(samples)
	}
}

// drainCommand drains at most one command, non-blocking, per spec §4.7's
// tick order. Returns true whenever a SetMaxPower command was drained,
// even one repeating the current target: the "power_changed" latch the
// Rust source consumes the same tick it's set in.
func (c *Controller) drainCommand(stopTimeout *int) bool {
	select {
	case cmd := <-c.commands:
		switch v := cmd.(type) {
		case command.SetMaxPowerCmd:
			clamped := clampWatts(v.Watts)
			c.statusMu.Lock()
			c.status.MaxPowerW = clamped
			c.statusMu.Unlock()
			c.maxCurrentMA, c.threePhase = powerToCurrent(v.Watts)
			maxCurrent := physic.ElectricCurrent(c.maxCurrentMA) * physic.MilliAmpere
			c.log.Info("set max power", "watts", v.Watts, "max_current", maxCurrent, "three_phase", c.threePhase)
			return true
		case command.ShutdownCmd:
			if c.state == Charging {
				c.state = ShuttingDown
				*stopTimeout = 50
			} else {
				c.state = Shutdown
			}
		}
	default:
	}
	return false
}

// advertise drives the CP signal for the controller's current target
// current plus its adjustment, or Standby if charging isn't offered.
func (c *Controller) advertise() {
	if c.maxCurrentMA > minChargeCurrentMA {
		c.drive(controlpilot.Signal{MaxCurrentMA: uint32(int32(c.maxCurrentMA) + c.currentAdjustment)})
	} else {
		c.drive(controlpilot.Signal{Standby: true})
	}
}

func (c *Controller) drive(s controlpilot.Signal) {
	if err := controlpilot.Drive(c.peripherals.ControlPilot, s); err != nil {
		c.log.Error("CP drive failed", "error", err)
	}
}

// clampAdjustment keeps currentAdjustment within the ±1000mA band spec §8
// requires as an invariant at all times.
func clampAdjustment(adj int32) int32 {
	if adj > 1000 {
		return 1000
	}
	if adj < -1000 {
		return -1000
	}
	return adj
}

func (c *Controller) totalCurrentMA() uint32 {
	var total uint32
	for i := range c.phaseCurrentMA {
		total += c.phaseCurrentMA[i].Load()
	}
	return total
}

func (c *Controller) publishState() {
	c.statusMu.Lock()
	c.status.State = c.state
	c.statusMu.Unlock()
}
