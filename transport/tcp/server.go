// Copyright (c) 2025 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package tcp

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/rs/xid"

	"github.com/ffutop/modbus-simulator/modbus"
	"github.com/ffutop/modbus-simulator/transport"
)

const (
	// DefaultIdleTimeout closes connections that send nothing for this long.
	DefaultIdleTimeout = 2 * time.Minute
)

// Server implements a Modbus TCP Server.
type Server struct {
	Address     string
	IdleTimeout time.Duration
	Handler     transport.RequestHandler

	mu       sync.Mutex
	listener net.Listener
	conns    sync.WaitGroup
}

// NewServer creates a new TCP Server.
func NewServer(address string) *Server {
	return &Server{
		Address:     address,
		IdleTimeout: DefaultIdleTimeout,
	}
}

// Listen binds the listening socket. Start calls it when it has not been called yet.
func (s *Server) Listen() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return nil
	}
	listener, err := net.Listen("tcp", s.Address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.Address, err)
	}
	s.listener = listener
	return nil
}

// Addr returns the bound address, or nil before Listen.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Start starts the TCP server.
func (s *Server) Start(ctx context.Context, handler transport.RequestHandler) error {
	s.Handler = handler
	if err := s.Listen(); err != nil {
		return err
	}
	s.mu.Lock()
	listener := s.listener
	s.mu.Unlock()
	slog.Info("Modbus TCP server listening", "addr", listener.Addr())

	go func() {
		<-ctx.Done()
		s.Close()
	}()
	defer s.conns.Wait()

	for {
		conn, err := listener.Accept()
		if err != nil {
			// Check if closed
			select {
			case <-ctx.Done():
				return nil
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			slog.Error("Failed to accept connection", "err", err)
			continue
		}
		s.conns.Add(1)
		go func() {
			defer s.conns.Done()
			s.handleConnection(ctx, conn)
		}()
	}
}

// Close closes the server listener.
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Close()
	}
	return nil
}

func (s *Server) handleConnection(ctx context.Context, conn net.Conn) {
	id := xid.New().String()
	log := slog.With("conn", id, "addr", conn.RemoteAddr())

	// unblock reads on shutdown
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()
	defer conn.Close()

	log.Info("New TCP client connected")

	header := make([]byte, mbapHeaderSize-1)
	for {
		if s.IdleTimeout > 0 {
			_ = conn.SetReadDeadline(time.Now().Add(s.IdleTimeout))
		}

		// Read MBAP Header (first 6 bytes), then Length bytes of UnitID + PDU.
		if _, err := io.ReadFull(conn, header); err != nil {
			if err == io.EOF || ctx.Err() != nil {
				log.Info("TCP client disconnected")
			} else {
				log.Error("Failed to read from connection", "err", err)
			}
			return
		}
		length := int(binary.BigEndian.Uint16(header[4:]))
		if length < 2 || length+6 > tcpMaxSize {
			log.Error("Invalid request length", "length", length)
			return
		}
		raw := make([]byte, 6+length)
		copy(raw, header)
		if _, err := io.ReadFull(conn, raw[6:]); err != nil {
			log.Error("Failed to read request body", "err", err)
			return
		}

		adu, err := Decode(raw)
		if err != nil {
			log.Error("Failed to decode TCP request", "err", err)
			return
		}

		if s.Handler == nil {
			log.Error("No handler defined for TCP server")
			return
		}

		respPdu, err := s.Handler(ctx, adu.SlaveID, adu.Pdu)
		if err != nil {
			log.Error("Handler failed", "tid", adu.TransactionID, "err", err)
			respPdu = modbus.Exception(adu.Pdu.FunctionCode, modbus.ExceptionCodeServerDeviceFailure)
		}
		if respPdu.IsException() {
			log.Debug("Replying with exception", "tid", adu.TransactionID, "request", adu.Pdu, "response", respPdu)
		}

		respRaw, err := adu.Reply(respPdu).Encode()
		if err != nil {
			log.Error("Failed to encode TCP response", "err", err)
			continue
		}

		if _, err = conn.Write(respRaw); err != nil {
			log.Error("Failed to write response to connection", "err", err)
			return
		}
	}
}
