// Copyright (c) 2014 Quoc-Viet Nguyen. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package crc

// CRC computes the Modbus CRC-16 (polynomial 0xA001, initial value 0xFFFF).
type CRC struct {
	high byte
	low  byte
}

func (crc *CRC) Reset() *CRC {
	crc.high = 0xFF
	crc.low = 0xFF
	return crc
}

func (crc *CRC) PushBytes(bs []byte) *CRC {
	var idx, b byte

	for _, b = range bs {
		idx = crc.low ^ b
		crc.low = crc.high ^ tableLow[idx]
		crc.high = tableHigh[idx]
	}
	return crc
}

func (crc *CRC) Value() uint16 {
	return uint16(crc.high)<<8 | uint16(crc.low)
}

var tableLow, tableHigh [256]byte

func init() {
	for i := 0; i < 256; i++ {
		value := uint16(i)
		for j := 0; j < 8; j++ {
			if value&1 != 0 {
				value = value>>1 ^ 0xA001
			} else {
				value >>= 1
			}
		}
		tableLow[i] = byte(value)
		tableHigh[i] = byte(value >> 8)
	}
}
