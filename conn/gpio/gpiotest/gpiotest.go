// Copyright 2016 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package gpiotest is meant to be used to test drivers using fake Pins.
package gpiotest

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"phievse.dev/firmware/conn/gpio"
	"phievse.dev/firmware/conn/physic"
)

// Pin implements gpio.PinIO with an entirely in-memory fake.
//
// Modify its exported fields, or feed EdgesChan, to simulate hardware
// events from a test.
type Pin struct {
	N string // Should be immutable.

	sync.Mutex                  // Grab the mutex before touching the fields below from a test.
	L          gpio.Level       // Current level, for both input and output.
	P          gpio.Pull        // Configured pull resistor.
	EdgesChan  chan gpio.Level  // Feed this to fake edges for WaitForEdge.
	D          gpio.Duty        // Last PWM duty written.
	F          physic.Frequency // Last PWM frequency written.
}

// String implements fmt.Stringer.
func (p *Pin) String() string {
	return fmt.Sprintf("%s(%d)", p.N, p.Number())
}

// Name implements pin.Pin.
func (p *Pin) Name() string { return p.N }

// Number implements pin.Pin. Fake pins are never numbered.
func (p *Pin) Number() int { return -1 }

// In implements gpio.PinIn.
func (p *Pin) In(pull gpio.Pull, edge gpio.Edge) error {
	p.Lock()
	defer p.Unlock()
	p.P = pull
	if pull == gpio.Down {
		p.L = gpio.Low
	} else if pull == gpio.Up {
		p.L = gpio.High
	}
	if edge != gpio.NoEdge && p.EdgesChan == nil {
		return errors.New("gpiotest: set p.EdgesChan before requesting edge detection")
	}
	// Flush any buffered edges.
	for {
		select {
		case <-p.EdgesChan:
		default:
			return nil
		}
	}
}

// Read implements gpio.PinIn.
func (p *Pin) Read() gpio.Level {
	p.Lock()
	defer p.Unlock()
	return p.L
}

// WaitForEdge implements gpio.PinIn.
func (p *Pin) WaitForEdge(timeout time.Duration) bool {
	if timeout < 0 {
		l, ok := <-p.EdgesChan
		if !ok {
			return false
		}
		_ = p.Out(l)
		return true
	}
	select {
	case <-time.After(timeout):
		return false
	case l, ok := <-p.EdgesChan:
		if !ok {
			return false
		}
		_ = p.Out(l)
		return true
	}
}

// Pull returns the pull resistor configured by the last call to In.
func (p *Pin) Pull() gpio.Pull {
	p.Lock()
	defer p.Unlock()
	return p.P
}

// Out implements gpio.PinOut.
func (p *Pin) Out(l gpio.Level) error {
	p.Lock()
	defer p.Unlock()
	p.L = l
	return nil
}

// PWM implements gpio.PinOut.
func (p *Pin) PWM(duty gpio.Duty, f physic.Frequency) error {
	p.Lock()
	defer p.Unlock()
	p.D = duty
	p.F = f
	p.L = duty > 0
	return nil
}

// Duty returns the last PWM duty cycle set, for test assertions.
func (p *Pin) Duty() gpio.Duty {
	p.Lock()
	defer p.Unlock()
	return p.D
}

// LogPinIO wraps a gpio.PinIO and logs every access. Handy when a test
// failure needs the exact sequence of pin accesses.
type LogPinIO struct {
	gpio.PinIO
}

// In implements gpio.PinIn.
func (p *LogPinIO) In(pull gpio.Pull, edge gpio.Edge) error {
	log.Printf("%s.In(%s, %s)", p, pull, edge)
	return p.PinIO.In(pull, edge)
}

// PWM implements gpio.PinOut.
func (p *LogPinIO) PWM(duty gpio.Duty, f physic.Frequency) error {
	log.Printf("%s.PWM(%s, %s)", p, duty, f)
	return p.PinIO.PWM(duty, f)
}

var _ gpio.PinIO = &Pin{}
