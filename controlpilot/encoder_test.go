// Copyright 2024 The Phievse Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package controlpilot

import (
	"testing"

	"phievse.dev/firmware/conn/gpio"
)

func TestEncodeStandbyAndHalted(t *testing.T) {
	if got := Encode(Signal{Standby: true}); got != gpio.DutyMax {
		t.Errorf("Standby duty = %d, want %d", got, gpio.DutyMax)
	}
	if got := Encode(Signal{Halted: true}); got != 0 {
		t.Errorf("Halted duty = %d, want 0", got)
	}
}

func TestEncodeEmpiricalAnchors(t *testing.T) {
	cases := []struct {
		amps     uint32
		min, max int64
	}{
		{6, 211, 213},
		{7, 215, 230},
		{8, 240, 250},
		{9, 250, 270},
		{10, 270, 290},
		{11, 290, 300},
		{12, 300, 310},
		{13, 360, 400},
		{14, 525, 585},
		{15, 740, 830},
		{16, 1030, 1150},
	}
	for _, c := range cases {
		ma := c.amps * 1000
		got := currentToDuty(ma)
		if got < c.min || got > c.max {
			t.Errorf("currentToDuty(%dmA) = %d, want in [%d,%d]", ma, got, c.min, c.max)
		}
	}
}

func TestEncodeMonotoneNonDecreasing(t *testing.T) {
	var prev int64 = -1
	for ma := uint32(lowBandMinMA); ma <= highBandMaxMA; ma++ {
		got := currentToDuty(ma)
		if got < prev {
			t.Fatalf("currentToDuty not monotone at %dmA: %d < %d", ma, got, prev)
		}
		prev = got
	}
}

func TestEncodeOutOfRangeBehavesAsError(t *testing.T) {
	if got := Encode(Signal{MaxCurrentMA: 100}); got != 0 {
		t.Errorf("below-range current should behave as Error (0%% duty): got %d", got)
	}
	if got := Encode(Signal{MaxCurrentMA: 100000}); got != 0 {
		t.Errorf("above-range current should behave as Error (0%% duty): got %d", got)
	}
}
