// Copyright 2024 The Phievse Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package adcsrc

import (
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"

	"phievse.dev/firmware/adc"
	"phievse.dev/firmware/conn/physic"
)

// BatchSize is the number of raw samples pulled per ReadBatch call. At the
// aggregate 40kHz sampling rate across 4 channels, 400 samples is one
// acquisition interrupt's worth of data, arriving at roughly 100Hz.
const BatchSize = 400

// DMADriver implements adc.Subscriber on top of a Bus.
//
// It owns no hardware directly: all register-level work happens behind
// Bus, which makes the demultiplexing and calibration math here testable
// with a synthetic bus.
type DMADriver struct {
	bus    Bus
	pinMap ChannelPinMap
	log    *slog.Logger

	shutdown atomic.Bool
	done     chan struct{}
	wg       sync.WaitGroup
}

// NewDMADriver wires bus, whose ReadBatch will be polled continuously from
// a background goroutine once Subscribe is called.
func NewDMADriver(bus Bus, pinMap ChannelPinMap, log *slog.Logger) *DMADriver {
	if log == nil {
		log = slog.Default()
	}
	return &DMADriver{bus: bus, pinMap: pinMap, log: log, done: make(chan struct{})}
}

// Subscribe implements adc.Subscriber.
func (d *DMADriver) Subscribe(receiver adc.Receiver) error {
	d.wg.Add(1)
	go d.run(receiver)
	return nil
}

// Halt implements adc.Subscriber and conn.Resource.
func (d *DMADriver) Halt() error {
	if d.shutdown.CompareAndSwap(false, true) {
		close(d.done)
	}
	d.wg.Wait()
	return d.bus.Close()
}

func (d *DMADriver) String() string {
	return "adcsrc.DMADriver"
}

func (d *DMADriver) run(receiver adc.Receiver) {
	defer d.wg.Done()

	buf := make([]RawSample, BatchSize)
	coeff := d.bus.Coefficient()

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 10 * time.Millisecond
	bo.MaxInterval = 100 * time.Millisecond
	bo.MaxElapsedTime = 0 // Retry forever; the batch loop itself is the outer retry.

	errLimiter := rate.NewLimiter(rate.Every(time.Second), 1)

	for {
		select {
		case <-d.done:
			return
		default:
		}

		n, err := d.bus.ReadBatch(buf)
		if err != nil {
			if errLimiter.Allow() {
				d.log.Error("adc batch read failed", "error", err)
			}
			time.Sleep(bo.NextBackOff())
			continue
		}
		bo.Reset()
		if n == 0 {
			// Read timeout: not an error, no samples fabricated.
			continue
		}

		batch := buf[:n]
		receiver(adc.CurrentL1, channelSeq(batch, d.pinMap.L1, coeff))
		receiver(adc.CurrentL2, channelSeq(batch, d.pinMap.L2, coeff))
		receiver(adc.CurrentL3, channelSeq(batch, d.pinMap.L3, coeff))
		receiver(adc.ControlPilot, channelSeq(batch, d.pinMap.CP, coeff))
	}
}

// channelSeq returns a lazy, ordered iterator over the samples in batch
// that belong to hwChannel, converted to millivolts using coeff (scaled by
// 1<<16, as produced by factory ADC calibration).
func channelSeq(batch []RawSample, hwChannel int, coeff int64) iter.Seq[physic.ElectricPotential] {
	return func(yield func(physic.ElectricPotential) bool) {
		for _, s := range batch {
			if s.HWChannel != hwChannel {
				continue
			}
			mv := physic.ElectricPotential(int64(s.Raw)*coeff/65536) * physic.MilliVolt
			if !yield(mv) {
				return
			}
		}
	}
}

// ErrClosed is returned by a Bus implementation's ReadBatch once Close has
// been called, so the background reader's final iteration fails loudly
// instead of spinning on garbage data.
var ErrClosed = errors.New("adcsrc: bus closed")

var (
	_ adc.Subscriber = (*DMADriver)(nil)
	_ fmt.Stringer   = (*DMADriver)(nil)
)
