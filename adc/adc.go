// Copyright 2024 The Phievse Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package adc defines the continuous, multi-channel analog sampling stream
// the control kernel is built on top of.
//
// A single physical ADC, running in DMA-driven continuous mode, feeds four
// logical channels: the three phase current transformers and the Control
// Pilot line. Samples for all four are interleaved in one acquisition
// buffer; Subscriber demultiplexes them into per-channel substreams before
// handing them to the receiver.
package adc

import (
	"iter"

	"phievse.dev/firmware/conn/physic"
)

// Channel identifies one of the four analog inputs the kernel reads.
type Channel int

// The four channels sampled by the ADC, in acquisition order.
const (
	CurrentL1 Channel = iota
	CurrentL2
	CurrentL3
	ControlPilot
)

func (c Channel) String() string {
	switch c {
	case CurrentL1:
		return "CurrentL1"
	case CurrentL2:
		return "CurrentL2"
	case CurrentL3:
		return "CurrentL3"
	case ControlPilot:
		return "ControlPilot"
	default:
		return "Channel(?)"
	}
}

// NumChannels is the number of channels demultiplexed from one batch.
const NumChannels = 4

// Receiver is invoked once per channel for every acquired batch.
//
// samples is a lazy, single-pass, ordered sequence of millivolt readings
// for channel, preserving the order they were acquired in. It must not be
// retained past the call: the receiver is expected to range over it to
// completion before returning.
type Receiver func(channel Channel, samples iter.Seq[physic.ElectricPotential])

// Subscriber is the interface the kernel consumes to receive the raw
// analog stream.
//
// It supports exactly one subscriber. A second call to Subscribe does not
// replace the first receiver: adcsrc.DMADriver starts one more background
// reader per call, and the earlier one keeps running until Halt.
type Subscriber interface {
	// Subscribe installs receiver and starts acquisition in the background.
	// It returns once the background reader has started.
	Subscribe(receiver Receiver) error
	// Halt stops acquisition and releases the background reader. Safe to
	// call multiple times.
	Halt() error
}
