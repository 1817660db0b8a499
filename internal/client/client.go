// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package client reads the simulator's register block and decodes it.
package client

//go:generate mockgen -destination mock_reader_test.go -package client -write_package_comment=false github.com/ffutop/modbus-simulator/internal/client RegisterReader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/simonvetter/modbus"

	"github.com/ffutop/modbus-simulator/internal/addressmap"
	"github.com/ffutop/modbus-simulator/internal/codec"
)

// ErrTransport matches every error reported by the register reader.
var ErrTransport = errors.New("transport error")

// TransportError carries the reader's error unchanged. Its message is the
// reader's own.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string { return e.Err.Error() }

func (e *TransportError) Unwrap() error { return e.Err }

func (e *TransportError) Is(target error) bool { return target == ErrTransport }

// RegisterReader reads a contiguous range of holding registers.
type RegisterReader interface {
	ReadHoldingRegisters(ctx context.Context, addr, quantity uint16) ([]uint16, error)
}

// Config describes how to reach the simulator.
type Config struct {
	URL     string // tcp://host:port or rtu:///dev/ttyUSB0
	UnitID  uint8
	Timeout time.Duration
}

// ModbusReader is a RegisterReader backed by a Modbus client.
type ModbusReader struct {
	mu     sync.Mutex
	client *modbus.ModbusClient
	url    string
}

// Dial opens a connection to cfg.URL.
func Dial(cfg Config) (*ModbusReader, error) {
	if cfg.UnitID == 0 {
		cfg.UnitID = 1
	}
	mc, err := modbus.NewClient(&modbus.ClientConfiguration{
		URL:     cfg.URL,
		Timeout: cfg.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create client for %s: %w", cfg.URL, err)
	}
	if err := mc.Open(); err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", cfg.URL, err)
	}
	if err := mc.SetUnitId(cfg.UnitID); err != nil {
		mc.Close()
		return nil, err
	}
	slog.Debug("Connected", "url", cfg.URL, "unitID", cfg.UnitID)
	return &ModbusReader{client: mc, url: cfg.URL}, nil
}

// ReadHoldingRegisters implements RegisterReader.
func (r *ModbusReader) ReadHoldingRegisters(ctx context.Context, addr, quantity uint16) ([]uint16, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.client.ReadRegisters(addr, quantity, modbus.HOLDING_REGISTER)
}

// Close closes the connection.
func (r *ModbusReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.client.Close()
}

// Fetch reads the full default register block from address 0 and decodes it.
// Reader errors are returned as *TransportError without retry. A reply shorter
// than the block fails with addressmap.ErrInsufficientData and nothing is decoded.
func Fetch(ctx context.Context, reader RegisterReader, order codec.ByteOrder) (addressmap.Reading, error) {
	return FetchRange(ctx, reader, 0, uint16(addressmap.Default.Span()), order)
}

// FetchRange reads count registers from start and decodes the values they hold.
// See addressmap.Map.DecodeWindow for how partly covered entries are treated.
func FetchRange(ctx context.Context, reader RegisterReader, start, count uint16, order codec.ByteOrder) (addressmap.Reading, error) {
	if count == 0 {
		return addressmap.Reading{}, fmt.Errorf("%w: zero registers requested", addressmap.ErrInsufficientData)
	}
	words, err := reader.ReadHoldingRegisters(ctx, start, count)
	if err != nil {
		return addressmap.Reading{}, &TransportError{Err: err}
	}
	return addressmap.Default.DecodeWindow(start, int(count), words, order)
}
