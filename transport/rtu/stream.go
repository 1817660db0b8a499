// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package rtu

import (
	"context"
	"encoding/hex"
	"errors"
	"io"
	"log/slog"

	rtupacket "github.com/ffutop/modbus-simulator/modbus/rtu"
	"github.com/ffutop/modbus-simulator/transport"
)

// ServeStream reads RTU requests from rw and writes the responses back until ctx
// is done or rw reaches EOF. Line noise is skipped. With resync set a read error
// drops any partial frame and reading goes on; otherwise the error is returned.
func ServeStream(ctx context.Context, rw io.ReadWriter, handler transport.RequestHandler, resync bool) error {
	chunk := make([]byte, rtupacket.MaxSize)
	pending := make([]byte, 0, 2*rtupacket.MaxSize)

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		n, err := rw.Read(chunk)
		pending = append(pending, chunk[:n]...)

		for {
			frame, consumed := nextFrame(pending)
			if consumed == 0 {
				break
			}
			pending = pending[consumed:]
			if frame != nil {
				serve(ctx, rw, frame, handler)
			}
		}
		pending = append(pending[:0], pending...)

		if err != nil {
			if ctx.Err() != nil || err == io.EOF {
				return nil
			}
			if !resync {
				return err
			}
			pending = pending[:0]
		}
	}
}

// nextFrame returns the first CRC-valid request at the head of buf and the number of
// bytes consumed. Garbage is skipped one byte at a time; consumed is 0 when more
// input is needed.
func nextFrame(buf []byte) (frame []byte, consumed int) {
	if len(buf) < 2 {
		return nil, 0
	}
	expectedLen, err := rtupacket.CalculateRequestLength(buf[1], buf)
	if errors.Is(err, rtupacket.ErrIncompleteHeader) {
		return nil, 0
	}
	if err != nil || expectedLen > rtupacket.MaxSize {
		return nil, 1
	}
	if len(buf) < expectedLen {
		return nil, 0
	}
	if _, err := Decode(buf[:expectedLen]); err != nil {
		slog.Debug("Discarding RTU input", "err", err, "frame", hex.EncodeToString(buf[:expectedLen]))
		return nil, 1
	}
	return buf[:expectedLen], expectedLen
}

func serve(ctx context.Context, w io.Writer, frame []byte, handler transport.RequestHandler) {
	req, err := Decode(frame)
	if err != nil {
		return
	}

	respPDU, err := handler(ctx, req.SlaveID, req.Pdu)
	if err != nil {
		slog.Error("Upstream handler failed", "err", err)
		return
	}

	if respPDU.IsException() {
		slog.Debug("Replying with exception", "slaveID", req.SlaveID, "request", req.Pdu, "response", respPDU)
	}

	resp := &ApplicationDataUnit{SlaveID: req.SlaveID, Pdu: respPDU}
	raw, err := resp.Encode()
	if err != nil {
		slog.Error("Failed to encode RTU response", "err", err)
		return
	}
	if _, err := w.Write(raw); err != nil {
		slog.Error("Failed to write RTU response", "err", err)
	}
}
