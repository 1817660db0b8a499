// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package slave answers Modbus read requests from the register bank.
package slave

import (
	"context"
	"encoding/binary"
	"errors"
	"log/slog"

	"github.com/ffutop/modbus-simulator/internal/bank"
	"github.com/ffutop/modbus-simulator/modbus"
)

// RegisterSource is the read side of the register bank.
type RegisterSource interface {
	ReadRange(start, count uint16) ([]uint16, error)
}

// Slave implements the read-only Modbus protocol logic on top of a register bank.
// Every unit identifier is answered from the same table.
type Slave struct {
	source RegisterSource
}

// NewSlave creates a new Slave.
func NewSlave(source RegisterSource) *Slave {
	return &Slave{source: source}
}

// Handle satisfies transport.RequestHandler.
func (s *Slave) Handle(ctx context.Context, slaveID byte, req modbus.ProtocolDataUnit) (modbus.ProtocolDataUnit, error) {
	return s.Process(req)
}

// Process executes the Modbus Function Code against the register bank.
// Protocol-level failures are returned as exception PDUs, never as errors.
func (s *Slave) Process(req modbus.ProtocolDataUnit) (modbus.ProtocolDataUnit, error) {
	switch req.FunctionCode {
	case modbus.FuncCodeReadHoldingRegisters, modbus.FuncCodeReadInputRegisters:
		return s.handleReadRegisters(req)
	default:
		slog.Debug("Rejecting unsupported function", "func", req.FunctionCode)
		return modbus.Exception(req.FunctionCode, modbus.ExceptionCodeIllegalFunction), nil
	}
}

func (s *Slave) handleReadRegisters(req modbus.ProtocolDataUnit) (modbus.ProtocolDataUnit, error) {
	if len(req.Data) != 4 {
		return modbus.Exception(req.FunctionCode, modbus.ExceptionCodeIllegalDataValue), nil
	}
	address := binary.BigEndian.Uint16(req.Data[0:2])
	quantity := binary.BigEndian.Uint16(req.Data[2:4])

	if quantity < 1 || quantity > modbus.MaxReadRegisters {
		return modbus.Exception(req.FunctionCode, modbus.ExceptionCodeIllegalDataValue), nil
	}

	slog.Debug("Read request received", "address", address, "quantity", quantity)

	regs, err := s.source.ReadRange(address, quantity)
	if err != nil {
		if errors.Is(err, bank.ErrOutOfRange) {
			slog.Warn("Read request out of range", "address", address, "quantity", quantity, "err", err)
			return modbus.Exception(req.FunctionCode, modbus.ExceptionCodeIllegalDataAddress), nil
		}
		return modbus.Exception(req.FunctionCode, modbus.ExceptionCodeServerDeviceFailure), nil
	}

	respData := make([]byte, 1+2*len(regs))
	respData[0] = byte(2 * len(regs))
	for i, v := range regs {
		binary.BigEndian.PutUint16(respData[1+i*2:], v)
	}

	return modbus.ProtocolDataUnit{
		FunctionCode: req.FunctionCode,
		Data:         respData,
	}, nil
}
