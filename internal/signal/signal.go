// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package signal computes the synthetic waveforms published by the simulator.
// Every function is pure: the same elapsed time and tick always give the same result.
package signal

import "math"

const (
	// NumCounters is the number of independent uint16 counters.
	NumCounters = 10
	// CounterModulus bounds every counter to [0, CounterModulus).
	CounterModulus = 51

	angularRate    = 0.5
	rampPeriod     = 100.0
	trianglePeriod = 20.0
)

// Sample holds every value computed for one tick.
type Sample struct {
	Tick     uint64
	Elapsed  float64
	Counters [NumCounters]uint16
	Sine     float32
	Cosine   float32
	Ramp     float64
	Triangle float64
}

// Generate computes all signals for elapsed time t (seconds) and tick index k.
func Generate(t float64, k uint64) Sample {
	return Sample{
		Tick:     k,
		Elapsed:  t,
		Counters: Counters(k),
		Sine:     float32(Sine(t)),
		Cosine:   float32(Cosine(t)),
		Ramp:     Ramp(t),
		Triangle: Triangle(t),
	}
}

// Counters returns the ten counters for tick k; element i is (k+i) mod 51.
func Counters(k uint64) [NumCounters]uint16 {
	var c [NumCounters]uint16
	base := k % CounterModulus
	for i := range c {
		c[i] = uint16((base + uint64(i)) % CounterModulus)
	}
	return c
}

func Sine(t float64) float64 {
	return math.Sin(angularRate * t)
}

func Cosine(t float64) float64 {
	return math.Cos(angularRate * t)
}

// Ramp rises linearly from 0 and wraps at 100.
func Ramp(t float64) float64 {
	return floorMod(t, rampPeriod)
}

// Triangle starts at 50, falls to -50 at t=10 and climbs back over a 20 second period.
func Triangle(t float64) float64 {
	return math.Abs(floorMod(t, trianglePeriod)-trianglePeriod/2)*10 - 50
}

// floorMod is the modulo whose result takes the sign of the divisor, so
// negative t still lands in [0, m).
func floorMod(t, m float64) float64 {
	r := math.Mod(t, m)
	if r < 0 {
		r += m
	}
	// r+m can round up to m for tiny negative r
	if r >= m {
		r = 0
	}
	return r
}
