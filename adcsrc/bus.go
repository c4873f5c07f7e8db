// Copyright 2024 The Phievse Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package adcsrc implements adc.Subscriber against a DMA-capable
// continuous-conversion ADC, following the same "wrap a narrow hardware
// bus behind an interface" idiom periph.io uses for its device drivers
// (e.g. devices/bmxx80 wrapping an i2c.Bus/spi.Conn): the conversion math
// lives here and is tested against a fake Bus, the register-level plumbing
// lives in a board-specific implementation of Bus.
package adcsrc

// RawSample is one raw reading pulled off the hardware's DMA ring buffer,
// tagged with the hardware ADC channel it was converted on (the board's
// physical channel index, not an adc.Channel).
type RawSample struct {
	HWChannel int
	Raw       uint16 // 12-bit ADC code.
}

// Bus is the narrow hardware interface DMADriver needs from the ADC
// peripheral. A real implementation configures the hardware for continuous
// DMA sampling at construction time; ReadBatch blocks for at most one
// acquisition period.
type Bus interface {
	// ReadBatch blocks until raw samples are available, filling buf and
	// returning how many were written. A read timeout is a valid, non-error
	// outcome: it returns (0, nil).
	ReadBatch(buf []RawSample) (int, error)
	// Coefficient returns the factory-calibrated raw-to-millivolt linear
	// coefficient, scaled by 1<<16 (mirrors esp_adc_cal's coeff_a).
	Coefficient() int64
	// Close releases the underlying hardware.
	Close() error
}

// ChannelPinMap assigns each logical adc.Channel to the hardware ADC
// channel index that samples it. Board bring-up code (or boardcfg, loaded
// from YAML/env for bench rigs) supplies this; DMADriver never guesses it.
type ChannelPinMap struct {
	L1, L2, L3, CP int
}
