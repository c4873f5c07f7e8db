// Copyright 2024 The Phievse Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package alarm

import (
	"sync/atomic"
	"testing"
	"time"

	"phievse.dev/firmware/conn/gpio"
	"phievse.dev/firmware/conn/gpio/gpiotest"
)

func TestEdgePinFiresSubscribersOnEdge(t *testing.T) {
	pin := &gpiotest.Pin{N: "alarm", EdgesChan: make(chan gpio.Level, 1)}
	e := NewEdgePin(pin, gpio.FallingEdge)

	var fired atomic.Int32
	e.Subscribe(func() { fired.Add(1) })

	if err := e.Arm(); err != nil {
		t.Fatal(err)
	}
	defer e.Halt()

	pin.EdgesChan <- gpio.Low

	deadline := time.Now().Add(time.Second)
	for fired.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if fired.Load() != 1 {
		t.Errorf("fired = %d, want 1", fired.Load())
	}
}

func TestEdgePinIsHighReflectsLevel(t *testing.T) {
	pin := &gpiotest.Pin{N: "alarm", L: gpio.High}
	e := NewEdgePin(pin, gpio.FallingEdge)
	if !e.IsHigh() {
		t.Error("IsHigh() = false, want true")
	}
	_ = pin.Out(gpio.Low)
	if e.IsHigh() {
		t.Error("IsHigh() = true, want false")
	}
}

func TestEdgePinMultipleSubscribers(t *testing.T) {
	pin := &gpiotest.Pin{N: "alarm", EdgesChan: make(chan gpio.Level, 1)}
	e := NewEdgePin(pin, gpio.FallingEdge)

	var a, b atomic.Int32
	e.Subscribe(func() { a.Add(1) })
	e.Subscribe(func() { b.Add(1) })

	if err := e.Arm(); err != nil {
		t.Fatal(err)
	}
	defer e.Halt()

	pin.EdgesChan <- gpio.Low

	deadline := time.Now().Add(time.Second)
	for (a.Load() == 0 || b.Load() == 0) && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if a.Load() != 1 || b.Load() != 1 {
		t.Errorf("a=%d b=%d, want both 1", a.Load(), b.Load())
	}
}
