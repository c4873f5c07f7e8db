// Copyright 2024 The Phievse Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package boardcfg loads the peripheral wiring and safety thresholds a
// board needs at boot: which hardware ADC channel each logical channel
// samples, per-phase trim resistors, and the safety-threshold constants
// spec.md §5 fixes as defaults. This is boot-time wiring configuration,
// not the runtime NVS/web persistence the controller's Non-goals exclude.
package boardcfg

import (
	"strings"

	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"

	"phievse.dev/firmware/adcsrc"
)

// Thresholds collects the safety-threshold constants spec.md §5 fixes.
// Load reads overrides for them, but no package in this tree consumes
// Thresholds (or Config.PhaseTrimOhms): the controller, relay,
// controlpilot and currentmeter packages use their own constants.
type Thresholds struct {
	CPDeadzoneConnectedMV int    `koanf:"cp_deadzone_connected_mv"`
	CPDeadzoneReadyMV     int    `koanf:"cp_deadzone_ready_mv"`
	CurrentMeterDeadzone  int    `koanf:"current_meter_deadzone_mv"`
	OverCurrentMarginMA   uint32 `koanf:"over_current_margin_ma"`
	RelayPullInMS         int    `koanf:"relay_pull_in_ms"`
	RelayHoldPercent      int    `koanf:"relay_hold_percent"`
}

// Config is everything a board needs to wire up the kernel at boot.
type Config struct {
	ChannelPinMap    adcsrc.ChannelPinMap `koanf:"channel_pin_map"`
	PhaseTrimOhms    [3]float64           `koanf:"phase_trim_ohms"`
	WatchdogTimeoutS int                  `koanf:"watchdog_timeout_s"`
	Thresholds       Thresholds           `koanf:"thresholds"`
}

// Default returns the board configuration spec.md §5 and §4 describe,
// before any file or environment overrides are applied.
func Default() Config {
	return Config{
		ChannelPinMap:    adcsrc.ChannelPinMap{L1: 0, L2: 1, L3: 2, CP: 3},
		PhaseTrimOhms:    [3]float64{0, 0, 0},
		WatchdogTimeoutS: 2,
		Thresholds: Thresholds{
			CPDeadzoneConnectedMV: 50,
			CPDeadzoneReadyMV:     650,
			CurrentMeterDeadzone:  70,
			OverCurrentMarginMA:   4000,
			RelayPullInMS:         90,
			RelayHoldPercent:      85,
		},
	}
}

// Load builds a Config starting from Default, applying path (a YAML file,
// skipped if empty; a path that does not exist is an error) and then
// PHIEVSE_-prefixed environment variables, in that precedence order. In a
// variable name, "__" separates nested keys and a single "_" stays part of
// the key: PHIEVSE_THRESHOLDS__RELAY_PULL_IN_MS sets
// thresholds.relay_pull_in_ms.
func Load(path string) (Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return Config{}, err
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, err
		}
	}

	envProvider := env.Provider("PHIEVSE_", ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, "PHIEVSE_")), "__", ".")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
