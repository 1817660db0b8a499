// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package codec converts numeric values to and from sequences of 16-bit register words.
//
// Only the order of whole words is affected by ByteOrder; the bits inside a word are
// never swapped. This mirrors how multi-register values are laid out on a Modbus device.
package codec

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// Register widths of the supported value kinds.
const (
	WidthUint16  = 1
	WidthFloat32 = 2
	WidthFloat64 = 4
)

// ErrEncodingPrecondition is reserved for malformed codec input.
// Every fixed-width numeric is encodable, so no function in this package returns it today.
var ErrEncodingPrecondition = errors.New("codec: encoding precondition violated")

// ByteOrder selects the order of the words of a multi-register value.
type ByteOrder int

const (
	// BigEndian places the most significant word first.
	BigEndian ByteOrder = iota
	// LittleEndian places the least significant word first.
	LittleEndian
)

func (o ByteOrder) String() string {
	switch o {
	case BigEndian:
		return "big"
	case LittleEndian:
		return "little"
	default:
		return fmt.Sprintf("ByteOrder(%d)", int(o))
	}
}

// ParseByteOrder parses "big"/"little" (also "BigEndian"/"LittleEndian"), case-insensitive.
func ParseByteOrder(s string) (ByteOrder, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "big", "bigendian", "big-endian", "be":
		return BigEndian, nil
	case "little", "littleendian", "little-endian", "le":
		return LittleEndian, nil
	default:
		return BigEndian, fmt.Errorf("codec: unknown byte order %q", s)
	}
}

// EncodeUint16 is the identity encoding of a counter.
func EncodeUint16(v uint16) [WidthUint16]uint16 {
	return [WidthUint16]uint16{v}
}

// DecodeUint16 returns the single register unchanged.
func DecodeUint16(regs []uint16) uint16 {
	return regs[0]
}

// EncodeFloat32 splits the IEEE-754 bit pattern of v into two words.
func EncodeFloat32(v float32, order ByteOrder) [WidthFloat32]uint16 {
	bits := math.Float32bits(v)
	regs := [WidthFloat32]uint16{uint16(bits >> 16), uint16(bits)}
	if order == LittleEndian {
		regs[0], regs[1] = regs[1], regs[0]
	}
	return regs
}

// DecodeFloat32 reassembles a float32 from the first two words of regs.
// NaN and infinities decode to the same bit pattern they were encoded from.
func DecodeFloat32(regs []uint16, order ByteOrder) float32 {
	hi, lo := regs[0], regs[1]
	if order == LittleEndian {
		hi, lo = lo, hi
	}
	return math.Float32frombits(uint32(hi)<<16 | uint32(lo))
}

// EncodeFloat64 splits the IEEE-754 bit pattern of v into four words.
func EncodeFloat64(v float64, order ByteOrder) [WidthFloat64]uint16 {
	bits := math.Float64bits(v)
	var regs [WidthFloat64]uint16
	for i := range regs {
		regs[i] = uint16(bits >> (48 - 16*uint(i)))
	}
	if order == LittleEndian {
		regs[0], regs[1], regs[2], regs[3] = regs[3], regs[2], regs[1], regs[0]
	}
	return regs
}

// DecodeFloat64 reassembles a float64 from the first four words of regs.
func DecodeFloat64(regs []uint16, order ByteOrder) float64 {
	var bits uint64
	for i := 0; i < WidthFloat64; i++ {
		w := regs[i]
		if order == LittleEndian {
			w = regs[WidthFloat64-1-i]
		}
		bits = bits<<16 | uint64(w)
	}
	return math.Float64frombits(bits)
}
