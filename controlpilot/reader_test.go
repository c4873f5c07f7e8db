// Copyright 2024 The Phievse Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package controlpilot

import (
	"testing"

	"phievse.dev/firmware/conn/physic"
)

func seqOf(mv ...int64) func(yield func(physic.ElectricPotential) bool) {
	return func(yield func(physic.ElectricPotential) bool) {
		for _, v := range mv {
			if !yield(physic.ElectricPotential(v) * physic.MilliVolt) {
				return
			}
		}
	}
}

func TestReaderClassification(t *testing.T) {
	cases := []struct {
		name string
		peak int64
		want Mode
	}{
		{"resting", 0, NotConnected},
		{"boundary not-connected", 50, NotConnected},
		{"just connected", 51, Connected},
		{"mid connected", 400, Connected},
		{"boundary connected", 650, Connected},
		{"just ready", 651, Ready},
		{"well into ready", 1300, Ready},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			var r Reader
			r.Receive(seqOf(c.peak))
			if got := r.State(); got != c.want {
				t.Errorf("State() = %v, want %v", got, c.want)
			}
		})
	}
}

func TestReaderTracksPeakAcrossBatch(t *testing.T) {
	var r Reader
	r.Receive(seqOf(100, 700, 300, 650))
	if got := r.State(); got != Ready {
		t.Errorf("State() = %v, want Ready (peak 700mV)", got)
	}
}

func TestReaderEmptyBatchKeepsPriorState(t *testing.T) {
	var r Reader
	r.Receive(seqOf(700))
	r.Receive(seqOf())
	if got := r.State(); got != Ready {
		t.Errorf("State() after empty batch = %v, want Ready (unchanged)", got)
	}
}

func TestReaderNegativeSeenLatchesAndClears(t *testing.T) {
	var r Reader
	if r.NegativeSeen() {
		t.Fatal("NegativeSeen should start false")
	}
	r.MarkNegativeSeen()
	if !r.NegativeSeen() {
		t.Fatal("NegativeSeen should be true after MarkNegativeSeen")
	}
	r.ClearNegativeSeen()
	if r.NegativeSeen() {
		t.Fatal("NegativeSeen should be false after ClearNegativeSeen")
	}
}
