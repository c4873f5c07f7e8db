// Copyright 2024 The Phievse Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package alarm

import (
	"sync"
	"time"

	"phievse.dev/firmware/conn/gpio"
)

// waitForEdgeTimeout bounds each WaitForEdge call so the goroutine can
// observe a shutdown request without blocking forever, following the
// polling-with-timeout idiom host/sysfs's edge-detection loop uses.
const waitForEdgeTimeout = time.Second

// EdgePin implements Input against a gpio.PinIn configured for falling-edge
// detection (the diode check pulls the line low on fault).
type EdgePin struct {
	pin  gpio.PinIn
	edge gpio.Edge

	mu   sync.Mutex
	subs []func()

	done chan struct{}
	once sync.Once
}

// NewEdgePin wraps pin, watching for edge (typically gpio.FallingEdge).
func NewEdgePin(pin gpio.PinIn, edge gpio.Edge) *EdgePin {
	return &EdgePin{pin: pin, edge: edge, done: make(chan struct{})}
}

// Subscribe implements Input.
func (e *EdgePin) Subscribe(fn func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.subs = append(e.subs, fn)
}

// Arm implements Input. It configures the pin and starts the watch
// goroutine; call once at boot.
func (e *EdgePin) Arm() error {
	if err := e.pin.In(gpio.PullNoChange, e.edge); err != nil {
		return err
	}
	go e.watch()
	return nil
}

// IsHigh implements Input.
func (e *EdgePin) IsHigh() bool {
	return e.pin.Read() == gpio.High
}

// Halt stops the watch goroutine. Not part of Input: only the owner that
// constructed this EdgePin tears it down.
func (e *EdgePin) Halt() error {
	e.once.Do(func() { close(e.done) })
	return nil
}

func (e *EdgePin) watch() {
	for {
		select {
		case <-e.done:
			return
		default:
		}
		if !e.pin.WaitForEdge(waitForEdgeTimeout) {
			continue
		}
		e.fire()
	}
}

func (e *EdgePin) fire() {
	e.mu.Lock()
	subs := append([]func(){}, e.subs...)
	e.mu.Unlock()
	for _, fn := range subs {
		fn()
	}
}

var _ Input = (*EdgePin)(nil)
