// Copyright 2024 The Phievse Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package controller

// powerToCurrent implements SetMaxPower's full decision, from requested
// watts down to a target per-phase current and phase count: clamp watts
// to {0} ∪ [1500,11000], then split into milliamps per spec §4.7.
//
// Boundary note: at exactly 20000mA total (watts=4600) the three-phase
// bucket is reached per the formula below, which is what original_source
// actually computes; see DESIGN.md for why this implementation follows
// the formula over a stray worked example that disagreed with it.
func powerToCurrent(watts uint32) (maxCurrentMA uint32, threePhase bool) {
	watts = clampWatts(watts)
	totalMA := watts * 1000 / 230
	switch {
	case totalMA <= 6499:
		return 0, false
	case totalMA <= 19999:
		if totalMA > 16000 {
			return 16000, false
		}
		return totalMA, false
	default:
		return totalMA / 3, true
	}
}

// clampWatts clamps a requested power to {0} ∪ [1500,11000], per spec §4.7.
func clampWatts(watts uint32) uint32 {
	switch {
	case watts <= 1499:
		return 0
	case watts > 11000:
		return 11000
	default:
		return watts
	}
}
