// Copyright 2024 The Phievse Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package alarm watches a single GPIO line for the negative-rail
// diode-check interrupt and fans it out to subscribers.
package alarm

// Input is the interface the rest of the kernel depends on for the
// negative-rail alarm line.
type Input interface {
	// Subscribe registers fn to be called, from the alarm's own goroutine,
	// on every qualifying edge. It must return quickly: fn runs on the
	// hot path between one edge and the wait for the next.
	Subscribe(fn func())
	// Arm starts edge watching. Called once at boot; from then on every
	// qualifying edge fires the subscribers, with no re-arm between
	// firings.
	Arm() error
	// IsHigh reports the line's instantaneous level.
	IsHigh() bool
}
