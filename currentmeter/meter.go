// Copyright 2024 The Phievse Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package currentmeter converts a per-phase current-transformer millivolt
// stream into an RMS milliamp estimate, published to a shared atomic cell.
//
// Each Meter is a closed-over state machine owned solely by the ADC
// reader's subscription callback: it never blocks and never takes a lock,
// matching the single-writer discipline the control kernel relies on
// throughout.
package currentmeter

import (
	"iter"
	"sync/atomic"

	"phievse.dev/firmware/conn/physic"
)

// Tuning constants shared by every Meter, per spec.
const (
	// deadzoneMV is the band around vref treated as silence.
	deadzoneMV = 70
	// wavelength is one 50Hz mains period at 200 samples/phase.
	wavelength = 200
	// wavelengthTolerance is the slack allowed around wavelength before a
	// wave is declared too short or too long.
	wavelengthTolerance = 20
	// calibrationWaves is how many wavelengths are averaged to find vref.
	calibrationWaves = 25
	// ctRatio is the current transformer's turns ratio.
	ctRatio = 600.0
	// shuntOhms is the base shunt resistor every phase shares.
	shuntOhms = 15.0
	// initialVrefMV is the nominal mid-rail voltage a Meter starts with as
	// its vref; calibrate() overwrites it.
	initialVrefMV = 1200
	// sqrtSeed is the Newton's-method seed, the expected mV for 10A — the
	// middle of the meter's operating range.
	sqrtSeed = 270
)

type state int

const (
	stateCalibration state = iota
	stateIdle
	stateWaitingPosEdge
	stateActive
)

// Meter tracks one phase's current-transformer stream and publishes its
// RMS estimate, in milliamps, to Stats.
type Meter struct {
	// Stats is the publish cell. Zero means "below deadzone or unavailable".
	// Written only by Receive; safe to read from any goroutine.
	Stats *atomic.Uint32

	rmsMVToMA float64

	state state
	vref  int64

	// Calibration accumulator.
	calSum   int64
	calCount int64

	// Wave accumulator, shared by WaitingPosEdge and Active.
	count      int64
	squareSum  int64
	prevOver   bool
}

// New creates a Meter for one phase. extraResistor is that phase's trim
// resistor in series with the shared shunt, used to cancel manufacturing
// tolerance in the sense resistors.
func New(stats *atomic.Uint32, extraResistorOhms float64) *Meter {
	return &Meter{
		Stats:     stats,
		rmsMVToMA: ctRatio / (shuntOhms + extraResistorOhms),
		state:     stateCalibration,
		vref:      initialVrefMV,
	}
}

// Receive processes one ADC batch for this phase. It never blocks.
func (m *Meter) Receive(samples iter.Seq[physic.ElectricPotential]) {
	switch m.state {
	case stateCalibration:
		m.calibrate(samples)
	case stateIdle:
		m.idle(samples)
	default:
		m.process(samples)
	}
}

// calibrate accumulates samples until it has enough to set vref to their
// mean, then moves to Idle.
func (m *Meter) calibrate(samples iter.Seq[physic.ElectricPotential]) {
	for s := range samples {
		mv := int64(s / physic.MilliVolt)
		m.calSum += mv
		m.calCount++
	}
	if m.calCount >= wavelength*calibrationWaves {
		m.vref = m.calSum / m.calCount
		m.reset()
		m.state = stateIdle
	}
}

// idle watches for the reading to leave the deadzone band around vref.
func (m *Meter) idle(samples iter.Seq[physic.ElectricPotential]) {
	for s := range samples {
		mv := int64(s / physic.MilliVolt)
		if mv < m.vref-deadzoneMV {
			m.state = stateWaitingPosEdge
			m.prevOver = false
			return
		}
		if mv > m.vref+deadzoneMV {
			m.state = stateWaitingPosEdge
			m.prevOver = true
			return
		}
	}
}

// process runs the WaitingPosEdge/Active sub-machine, sample by sample.
func (m *Meter) process(samples iter.Seq[physic.ElectricPotential]) {
	for s := range samples {
		mv := int64(s / physic.MilliVolt)
		over := mv > m.vref+deadzoneMV
		under := mv < m.vref-deadzoneMV
		m.count++

		switch m.state {
		case stateWaitingPosEdge:
			if m.count > wavelength+wavelengthTolerance {
				m.resync()
				return
			}
			if m.prevOver && under {
				m.prevOver = false
			} else if !m.prevOver && over {
				m.state = stateActive
				m.reset()
				m.prevOver = true
			}

		case stateActive:
			diff := mv - m.vref
			m.squareSum += diff * diff

			if m.count > wavelength+wavelengthTolerance {
				m.resync()
				return
			}
			if m.prevOver && under {
				m.prevOver = false
			} else if !m.prevOver && over {
				if m.count < wavelength-wavelengthTolerance {
					m.resync()
					return
				}
				rmsMV := isqrt(m.squareSum / m.count)
				rmsMA := uint32(float64(rmsMV) * m.rmsMVToMA)
				m.Stats.Store(rmsMA)
				m.reset()
				m.prevOver = true
			}
		}
	}
}

// resync publishes 0mA and drops back to Calibration, per the
// transient-signal error kind: silent, local recovery.
func (m *Meter) resync() {
	m.Stats.Store(0)
	m.state = stateCalibration
	m.calSum = 0
	m.calCount = 0
	m.reset()
}

func (m *Meter) reset() {
	m.squareSum = 0
	m.count = 0
}

// isqrt computes the integer square root of n via 5 Newton's-method
// iterations seeded at sqrtSeed. Accurate to ±1 across the meter's
// operating range; neither the seed nor the iteration count is load
// bearing.
func isqrt(n int64) int64 {
	if n < 2 {
		return n
	}
	x := int64(sqrtSeed)
	for i := 0; i < 5; i++ {
		x -= (x*x - n) / 2 / x
	}
	return x
}
