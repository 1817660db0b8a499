// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package bank

import "encoding/binary"

// Mirror file layout:
// - Magic: 4 bytes "MBSM" (Offset 0)
// - Version: uint16 big-endian (Offset 4)
// - Register count: uint16 big-endian, 0 meaning 65536 (Offset 6)
// - Registers: count * 2 bytes, each big-endian (Offset 8)
const (
	headerMagic   = "MBSM"
	headerVersion = 1

	offsetVersion   = 4
	offsetCount     = 6
	offsetRegisters = 8
)

func fileSize(registers int) int {
	return offsetRegisters + registers*2
}

func writeHeader(data []byte, registers int) {
	copy(data, headerMagic)
	binary.BigEndian.PutUint16(data[offsetVersion:], headerVersion)
	binary.BigEndian.PutUint16(data[offsetCount:], uint16(registers))
}

func putWords(data []byte, start uint16, words []uint16) {
	off := offsetRegisters + int(start)*2
	for i, w := range words {
		binary.BigEndian.PutUint16(data[off+i*2:], w)
	}
}
