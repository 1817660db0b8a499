// Copyright (c) 2025 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package transport

import (
	"context"

	"github.com/ffutop/modbus-simulator/modbus"
)

// RequestHandler answers one request PDU addressed to slaveID.
// Upstreams strip their framing, call the handler, and frame the response.
// A non-nil error means no protocol answer could be built; upstreams reply
// with a server device failure exception.
type RequestHandler func(ctx context.Context, slaveID byte, pdu modbus.ProtocolDataUnit) (modbus.ProtocolDataUnit, error)

// Upstream represents a source of requests (a Modbus master connected to us).
// It acts as a Server.
type Upstream interface {
	// Start starts the server and blocks until ctx is done or the server fails.
	Start(ctx context.Context, handler RequestHandler) error
	Close() error
}
