// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package addressmap

import (
	"fmt"
	"strings"

	"github.com/ffutop/modbus-simulator/internal/codec"
	"github.com/ffutop/modbus-simulator/internal/signal"
)

// Value is a decoded or to-be-encoded logical value.
// Uint16s is set for KindUint16 entries, Float for the float kinds.
type Value struct {
	Entry   Entry
	Uint16s []uint16
	Float   float64
}

// Batch is one atomic register write.
type Batch struct {
	Entry   Entry
	Address uint16
	Words   []uint16
}

// Values maps a sample onto the entries of m. Entries with unknown names are skipped.
func (m Map) Values(s signal.Sample) []Value {
	values := make([]Value, 0, len(m))
	for _, e := range m {
		v := Value{Entry: e}
		switch e.Name {
		case Counters:
			n := e.Count
			if n > len(s.Counters) {
				n = len(s.Counters)
			}
			v.Uint16s = append([]uint16(nil), s.Counters[:n]...)
		case Sine:
			v.Float = float64(s.Sine)
		case Cosine:
			v.Float = float64(s.Cosine)
		case Ramp:
			v.Float = s.Ramp
		case Triangle:
			v.Float = s.Triangle
		default:
			continue
		}
		values = append(values, v)
	}
	return values
}

// Encode returns one batch per value, in map order.
func Encode(values []Value, order codec.ByteOrder) []Batch {
	batches := make([]Batch, 0, len(values))
	for _, v := range values {
		batches = append(batches, Batch{
			Entry:   v.Entry,
			Address: v.Entry.Address,
			Words:   EncodeValue(v, order),
		})
	}
	return batches
}

// EncodeValue encodes a single logical value into its register words.
func EncodeValue(v Value, order codec.ByteOrder) []uint16 {
	switch v.Entry.Kind {
	case KindFloat32:
		w := codec.EncodeFloat32(float32(v.Float), order)
		return w[:]
	case KindFloat64:
		w := codec.EncodeFloat64(v.Float, order)
		return w[:]
	default:
		words := make([]uint16, 0, len(v.Uint16s))
		for _, u := range v.Uint16s {
			words = append(words, codec.EncodeUint16(u)[0])
		}
		return words
	}
}

// Reading is a fully decoded register block.
type Reading struct {
	Values []Value
}

// Get returns the value of the named entry.
func (r Reading) Get(name string) (Value, bool) {
	for _, v := range r.Values {
		if v.Entry.Name == name {
			return v, true
		}
	}
	return Value{}, false
}

// Decode partitions words (starting at address 0) per m and decodes every entry.
// Nothing is decoded when words does not cover the whole map.
func (m Map) Decode(words []uint16, order codec.ByteOrder) (Reading, error) {
	return m.DecodeWindow(0, m.Span(), words, order)
}

// DecodeWindow decodes the entries inside the count registers requested from
// start, given the words actually received. A reply shorter than count fails
// with ErrInsufficientData naming the entries lost, and nothing is decoded.
// Uint16 entries cut by the window are trimmed to the covered registers; a
// float entry cut by the window cannot be decoded and is an error, as is a
// window holding no entry at all.
func (m Map) DecodeWindow(start uint16, count int, words []uint16, order codec.ByteOrder) (Reading, error) {
	from, to := int(start), int(start)+count
	if len(words) < count {
		got := from + len(words)
		var missing []string
		for _, e := range m {
			if e.End() > got && int(e.Address) < to {
				missing = append(missing, fmt.Sprintf("%s (registers %d-%d)", e.Name, e.Address, e.End()-1))
			}
		}
		return Reading{}, fmt.Errorf("%w: expected %d registers, got %d; missing %s",
			ErrInsufficientData, count, len(words), strings.Join(missing, ", "))
	}

	reading := Reading{Values: make([]Value, 0, len(m))}
	for _, e := range m {
		lo, hi := max(int(e.Address), from), min(e.End(), to)
		if lo >= hi {
			continue
		}
		regs := words[lo-from : hi-from]
		if e.Kind == KindUint16 {
			e.Address = uint16(lo)
			e.Count = hi - lo
			v := Value{Entry: e, Uint16s: make([]uint16, e.Count)}
			for i := range v.Uint16s {
				v.Uint16s[i] = codec.DecodeUint16(regs[i:])
			}
			reading.Values = append(reading.Values, v)
			continue
		}
		if lo != int(e.Address) || hi != e.End() {
			return Reading{}, fmt.Errorf("%w: %s (registers %d-%d) is cut by the window %d-%d",
				ErrInsufficientData, e.Name, e.Address, e.End()-1, from, to-1)
		}
		v := Value{Entry: e}
		if e.Kind == KindFloat32 {
			v.Float = float64(codec.DecodeFloat32(regs, order))
		} else {
			v.Float = codec.DecodeFloat64(regs, order)
		}
		reading.Values = append(reading.Values, v)
	}
	if len(reading.Values) == 0 {
		return Reading{}, fmt.Errorf("%w: no values in registers %d-%d", ErrInsufficientData, from, to-1)
	}
	return reading, nil
}
