// Copyright 2024 The Phievse Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package watchdog

import (
	"testing"
	"time"
)

type fakeRegister struct {
	timeout   time.Duration
	enabled   bool
	feedCount int
	failNext  bool
}

func (f *fakeRegister) WriteTimeout(timeout time.Duration) error {
	f.timeout = timeout
	return nil
}

func (f *fakeRegister) WriteFeed() error {
	f.feedCount++
	return nil
}

func (f *fakeRegister) WriteEnable(enabled bool) error {
	f.enabled = enabled
	return nil
}

func TestHardwareInitArmsAndEnables(t *testing.T) {
	reg := &fakeRegister{}
	h := NewHardware(reg)
	if err := h.Init(5 * time.Second); err != nil {
		t.Fatal(err)
	}
	if reg.timeout != 5*time.Second {
		t.Errorf("timeout = %v, want 5s", reg.timeout)
	}
	if !reg.enabled {
		t.Error("watchdog should be enabled after Init")
	}
}

func TestHardwareResetFeeds(t *testing.T) {
	reg := &fakeRegister{}
	h := NewHardware(reg)
	for i := 0; i < 3; i++ {
		if err := h.Reset(); err != nil {
			t.Fatal(err)
		}
	}
	if reg.feedCount != 3 {
		t.Errorf("feedCount = %d, want 3", reg.feedCount)
	}
}

func TestHardwareStopDisables(t *testing.T) {
	reg := &fakeRegister{enabled: true}
	h := NewHardware(reg)
	if err := h.Stop(); err != nil {
		t.Fatal(err)
	}
	if reg.enabled {
		t.Error("watchdog should be disabled after Stop")
	}
}
