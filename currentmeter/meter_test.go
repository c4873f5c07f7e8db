// Copyright 2024 The Phievse Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package currentmeter

import (
	"math"
	"sync/atomic"
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

func flatSamples(mv int64, n int) []int64 {
	s := make([]int64, n)
	for i := range s {
		s[i] = mv
	}
	return s
}

func TestMeterIdempotentUnderSilence(t *testing.T) {
	var stats atomic.Uint32
	m := New(&stats, 0)

	m.Receive(seqOf(flatSamples(1200, wavelength*calibrationWaves)...))
	if m.state != stateIdle {
		t.Fatalf("state = %v, want stateIdle after calibration", m.state)
	}
	if got := stats.Load(); got != 0 {
		t.Fatalf("Stats after calibration = %d, want 0", got)
	}

	// A sustained reading at vref must never leave Idle, no matter how
	// many more silent batches arrive.
	m.Receive(seqOf(flatSamples(1200, 1000)...))
	if m.state != stateIdle {
		t.Errorf("state = %v, want stateIdle to persist under silence", m.state)
	}
	if got := stats.Load(); got != 0 {
		t.Errorf("Stats under sustained silence = %d, want 0", got)
	}
}

func TestMeterSineWaveRoundTrip(t *testing.T) {
	var stats atomic.Uint32
	m := New(&stats, 0) // rmsMVToMA = ctRatio/shuntOhms = 40

	m.Receive(seqOf(flatSamples(1200, wavelength*calibrationWaves)...))
	if m.state != stateIdle {
		t.Fatalf("state = %v, want stateIdle after calibration", m.state)
	}

	const (
		vrefMV    = 1200
		peakMV    = 353.0 // rms ~249.6mV, ~9984mA at rmsMVToMA=40
		numCycles = 5
	)
	wantMA := uint32(math.Round(peakMV / math.Sqrt2 * (ctRatio / shuntOhms)))

	// Feed one sample per Receive call so a mid-cycle state transition
	// never strands unconsumed samples in a discarded batch, the way a
	// hardware DMA batch boundary could.
	for i := 0; i < numCycles*wavelength; i++ {
		angle := 2 * math.Pi * float64(i) / wavelength
		mv := vrefMV + int64(math.Round(peakMV*math.Sin(angle)))
		m.Receive(seqOf(mv))
	}

	got := stats.Load()
	if got == 0 {
		t.Fatal("Stats never published a reading across 5 full sine cycles")
	}
	tolerance := int64(wantMA) / 10
	if diff := int64(got) - int64(wantMA); diff < -tolerance || diff > tolerance {
		t.Errorf("Stats = %dmA, want within 10%% of %dmA", got, wantMA)
	}
}
