// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package addressmap describes where each simulated value lives in the holding-register table.
// The layout is part of the wire contract and never changes while the process runs.
package addressmap

import (
	"errors"
	"fmt"
	"sort"

	"github.com/ffutop/modbus-simulator/internal/codec"
	"github.com/ffutop/modbus-simulator/internal/signal"
)

// ErrInsufficientData is returned when fewer registers are available than the map spans.
var ErrInsufficientData = errors.New("insufficient register data")

// Kind is the logical type stored in an entry.
type Kind int

const (
	KindUint16 Kind = iota
	KindFloat32
	KindFloat64
)

// Width returns the number of registers a single value of this kind occupies.
func (k Kind) Width() int {
	switch k {
	case KindFloat32:
		return codec.WidthFloat32
	case KindFloat64:
		return codec.WidthFloat64
	default:
		return codec.WidthUint16
	}
}

func (k Kind) String() string {
	switch k {
	case KindUint16:
		return "uint16"
	case KindFloat32:
		return "float32"
	case KindFloat64:
		return "float64"
	default:
		return "unknown"
	}
}

// Entry is one contiguous address range holding Count values of Kind.
type Entry struct {
	Name    string
	Address uint16
	Kind    Kind
	Count   int
}

// Words returns the number of registers the entry occupies.
func (e Entry) Words() int {
	return e.Count * e.Kind.Width()
}

// End returns the first address after the entry.
func (e Entry) End() int {
	return int(e.Address) + e.Words()
}

// Names of the default entries.
const (
	Counters = "counters"
	Sine     = "sine"
	Cosine   = "cosine"
	Ramp     = "ramp"
	Triangle = "triangle"
)

// Map is an ordered list of entries.
type Map []Entry

// Default is the register layout published by the simulator.
var Default = Map{
	{Name: Counters, Address: 0, Kind: KindUint16, Count: signal.NumCounters},
	{Name: Sine, Address: 20, Kind: KindFloat32, Count: 1},
	{Name: Cosine, Address: 22, Kind: KindFloat32, Count: 1},
	{Name: Ramp, Address: 30, Kind: KindFloat64, Count: 1},
	{Name: Triangle, Address: 34, Kind: KindFloat64, Count: 1},
}

// Span returns the number of registers from address 0 needed to cover every entry.
func (m Map) Span() int {
	span := 0
	for _, e := range m {
		if e.End() > span {
			span = e.End()
		}
	}
	return span
}

// Lookup returns the entry with the given name.
func (m Map) Lookup(name string) (Entry, bool) {
	for _, e := range m {
		if e.Name == name {
			return e, true
		}
	}
	return Entry{}, false
}

// Validate checks that entries do not overlap and fit in a bank of bankSize registers.
func (m Map) Validate(bankSize int) error {
	sorted := make(Map, len(m))
	copy(sorted, m)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Address < sorted[j].Address })

	for i, e := range sorted {
		if e.Count < 1 {
			return fmt.Errorf("entry %q: count must be positive", e.Name)
		}
		if e.End() > bankSize {
			return fmt.Errorf("entry %q: range %d-%d exceeds bank size %d", e.Name, e.Address, e.End()-1, bankSize)
		}
		if i > 0 && sorted[i-1].End() > int(e.Address) {
			return fmt.Errorf("entry %q overlaps entry %q", e.Name, sorted[i-1].Name)
		}
	}
	return nil
}
