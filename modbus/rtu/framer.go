// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package rtu

import (
	"errors"
	"fmt"

	"github.com/ffutop/modbus-simulator/modbus"
)

// ErrIncompleteHeader means more bytes are needed to know the frame length.
var ErrIncompleteHeader = errors.New("incomplete rtu header")

// CalculateRequestLength returns the expected total length of the Request RTU ADU based on the header.
// Only the fixed-size requests are framed; the simulator serves no write functions,
// but the single-value writes are still framed so they can be answered with an exception.
func CalculateRequestLength(funcCode byte, header []byte) (int, error) {
	switch funcCode {
	case modbus.FuncCodeReadCoils,
		modbus.FuncCodeReadDiscreteInputs,
		modbus.FuncCodeReadHoldingRegisters,
		modbus.FuncCodeReadInputRegisters,
		modbus.FuncCodeWriteSingleCoil,
		modbus.FuncCodeWriteSingleRegister:
		return ReadRequestSize, nil
	case modbus.FuncCodeWriteMultipleCoils,
		modbus.FuncCodeWriteMultipleRegisters:
		// ByteCount is at offset 6
		if len(header) < 7 {
			return 0, fmt.Errorf("%w: need 7 bytes to determine length for 0x%02X, got %d", ErrIncompleteHeader, funcCode, len(header))
		}
		return 7 + int(header[6]) + 2, nil
	default:
		return 0, fmt.Errorf("unsupported function code: 0x%02X", funcCode)
	}
}
