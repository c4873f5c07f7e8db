// Copyright 2024 The Phievse Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package relay

import (
	"testing"
	"time"

	"phievse.dev/firmware/conn/gpio"
	"phievse.dev/firmware/conn/gpio/gpiotest"
)

func TestSetLevelOffIsImmediateZeroDuty(t *testing.T) {
	pin := &gpiotest.Pin{N: "relay1"}
	d := New(pin)
	if err := d.SetLevel(false); err != nil {
		t.Fatal(err)
	}
	if got := pin.Duty(); got != 0 {
		t.Errorf("duty after OFF = %d, want 0", got)
	}
	if d.Level() {
		t.Error("Level() should report false after SetLevel(false)")
	}
}

func TestSetLevelOnPullsInThenHolds(t *testing.T) {
	pin := &gpiotest.Pin{N: "relay1"}
	d := New(pin)
	if err := d.SetLevel(true); err != nil {
		t.Fatal(err)
	}
	if got := pin.Duty(); got != gpio.DutyMax {
		t.Fatalf("duty immediately after ON = %d, want %d (pull-in)", got, gpio.DutyMax)
	}

	time.Sleep(pullInDuration + 20*time.Millisecond)

	if got := pin.Duty(); got != holdDuty {
		t.Errorf("duty after pull-in window = %d, want %d (hold)", got, holdDuty)
	}
}

func TestTurningOffDuringPullInWindowCancelsHold(t *testing.T) {
	pin := &gpiotest.Pin{N: "relay1"}
	d := New(pin)
	if err := d.SetLevel(true); err != nil {
		t.Fatal(err)
	}
	if err := d.SetLevel(false); err != nil {
		t.Fatal(err)
	}
	if got := pin.Duty(); got != 0 {
		t.Fatalf("duty right after OFF = %d, want 0", got)
	}

	time.Sleep(pullInDuration + 20*time.Millisecond)

	if got := pin.Duty(); got != 0 {
		t.Errorf("stale hold timer clobbered OFF: duty = %d, want 0", got)
	}
}

func TestOnToOnIsIdempotent(t *testing.T) {
	pin := &gpiotest.Pin{N: "relay1"}
	d := New(pin)
	if err := d.SetLevel(true); err != nil {
		t.Fatal(err)
	}
	time.Sleep(pullInDuration + 20*time.Millisecond)
	if got := pin.Duty(); got != holdDuty {
		t.Fatalf("duty after settling = %d, want %d", got, holdDuty)
	}

	if err := d.SetLevel(true); err != nil {
		t.Fatal(err)
	}
	if got := pin.Duty(); got != holdDuty {
		t.Errorf("redundant SetLevel(true) changed duty: got %d, want %d", got, holdDuty)
	}
}

func TestSetLevelAndWaitBlocksForSettling(t *testing.T) {
	pin := &gpiotest.Pin{N: "relay1"}
	d := New(pin)
	start := time.Now()
	if err := d.SetLevelAndWait(true); err != nil {
		t.Fatal(err)
	}
	if elapsed := time.Since(start); elapsed < settleWait {
		t.Errorf("SetLevelAndWait returned after %v, want >= %v", elapsed, settleWait)
	}
}
