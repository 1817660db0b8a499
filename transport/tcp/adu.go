// Copyright (c) 2025 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package tcp

import (
	"encoding/binary"
	"fmt"

	"github.com/ffutop/modbus-simulator/modbus"
)

const (
	mbapHeaderSize = 7
	tcpMinSize     = 8
	tcpMaxSize     = 260
)

// ApplicationDataUnit is a Modbus TCP frame:
//
//	Transaction ID : 2 bytes
//	Protocol ID    : 2 bytes (always 0)
//	Length         : 2 bytes (Unit ID + PDU)
//	Unit ID        : 1 byte
//	PDU            : Function (1 byte) + Data
type ApplicationDataUnit struct {
	TransactionID uint16
	ProtocolID    uint16
	Length        uint16
	SlaveID       byte
	Pdu           modbus.ProtocolDataUnit
}

// Decode parses a complete frame.
func Decode(raw []byte) (adu *ApplicationDataUnit, err error) {
	if len(raw) < tcpMinSize {
		err = fmt.Errorf("modbus: request length '%v' does not meet minimum '%v'", len(raw), tcpMinSize)
		return
	}
	adu = &ApplicationDataUnit{}
	adu.TransactionID = binary.BigEndian.Uint16(raw[0:])
	adu.ProtocolID = binary.BigEndian.Uint16(raw[2:])
	adu.Length = binary.BigEndian.Uint16(raw[4:])
	if adu.ProtocolID != 0 {
		err = fmt.Errorf("modbus: unknown protocol id '%v'", adu.ProtocolID)
		return
	}
	if int(adu.Length) != len(raw)-6 {
		err = fmt.Errorf("modbus: length field '%v' does not match frame size '%v'", adu.Length, len(raw)-6)
		return
	}
	adu.SlaveID = raw[6]
	adu.Pdu.FunctionCode = raw[7]
	adu.Pdu.Data = raw[8:]
	return
}

// Reply builds the response frame to adu carrying pdu.
func (adu *ApplicationDataUnit) Reply(pdu modbus.ProtocolDataUnit) *ApplicationDataUnit {
	return &ApplicationDataUnit{
		TransactionID: adu.TransactionID,
		ProtocolID:    adu.ProtocolID,
		Length:        uint16(1 + 1 + len(pdu.Data)), // SlaveID + FunctionCode + Data
		SlaveID:       adu.SlaveID,
		Pdu:           pdu,
	}
}

// Encode serializes the frame.
func (adu *ApplicationDataUnit) Encode() (raw []byte, err error) {
	length := len(adu.Pdu.Data) + tcpMinSize
	if length > tcpMaxSize {
		err = fmt.Errorf("modbus: length of data '%v' must not be bigger than '%v'", length, tcpMaxSize)
		return
	}
	raw = make([]byte, length)

	binary.BigEndian.PutUint16(raw[0:], adu.TransactionID)
	binary.BigEndian.PutUint16(raw[2:], adu.ProtocolID)
	binary.BigEndian.PutUint16(raw[4:], adu.Length)
	raw[6] = adu.SlaveID
	raw[7] = adu.Pdu.FunctionCode
	copy(raw[8:], adu.Pdu.Data)

	return
}
