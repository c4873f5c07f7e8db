// Copyright 2018 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package physic declares types for physical measurement units.
//
// This subset covers only the quantities the EVSE control kernel measures
// or drives: electric current, electric potential, and PWM/ADC frequency.
//
// SI units
//
// The supported S.I. prefixes are a subset of the official ones.
//    T  	tera 	10¹²  	1000000000000
//    G  	giga 	10⁹   	1000000000
//    M  	mega 	10⁶   	1000000
//    k  	kilo 	10³   	1000
//    m  	milli	10⁻³  	0.001
//    µ,u	micro	10⁻⁶  	0.000001
//    n  	nano 	10⁻⁹  	0.000000001
package physic
