// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package monitor serves a read-only HTTP view of the register bank.
package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"github.com/ffutop/modbus-simulator/internal/addressmap"
	"github.com/ffutop/modbus-simulator/internal/bank"
	"github.com/ffutop/modbus-simulator/internal/codec"
	"github.com/ffutop/modbus-simulator/internal/signal"
	"github.com/ffutop/modbus-simulator/internal/updater"
)

// Registers is the part of the bank the monitor reads.
type Registers interface {
	ReadRange(start, count uint16) ([]uint16, error)
	Size() int
}

// Status reports the update loop's progress.
type Status interface {
	State() updater.State
	Ticks() uint64
	LastError() string
}

// Monitor turns bank and loop state into JSON.
type Monitor struct {
	registers Registers
	status    Status
	order     codec.ByteOrder
	layout    addressmap.Map

	mu       sync.Mutex
	last     *signal.Sample
	listener net.Listener
	server   *http.Server
}

// New creates a Monitor decoding values of layout with order.
func New(registers Registers, status Status, order codec.ByteOrder, layout addressmap.Map) *Monitor {
	return &Monitor{
		registers: registers,
		status:    status,
		order:     order,
		layout:    layout,
	}
}

// Observe records the most recent sample. It is meant for updater.Loop.OnTick.
func (m *Monitor) Observe(s signal.Sample) {
	m.mu.Lock()
	m.last = &s
	m.mu.Unlock()
}

// Router returns the monitor's routes.
func (m *Monitor) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/api/registers", m.readRegisters).Methods(http.MethodGet)
	r.HandleFunc("/api/values", m.listValues).Methods(http.MethodGet)
	r.HandleFunc("/api/status", m.reportStatus).Methods(http.MethodGet)
	return r
}

// Listen binds address. Use ":0" for an ephemeral port.
func (m *Monitor) Listen(address string) error {
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", address, err)
	}
	m.mu.Lock()
	m.listener = listener
	m.server = &http.Server{Handler: m.Router(), ReadHeaderTimeout: 5 * time.Second}
	m.mu.Unlock()
	return nil
}

// Addr returns the bound address, or nil before Listen.
func (m *Monitor) Addr() net.Addr {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listener == nil {
		return nil
	}
	return m.listener.Addr()
}

// Start serves until ctx is done.
func (m *Monitor) Start(ctx context.Context) error {
	m.mu.Lock()
	listener, server := m.listener, m.server
	m.mu.Unlock()
	if listener == nil {
		return errors.New("monitor is not listening")
	}

	slog.Info("Monitor listening", "address", listener.Addr().String())

	stop := context.AfterFunc(ctx, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	})
	defer stop()

	if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type registersResponse struct {
	Start uint16   `json:"start"`
	Words []uint16 `json:"words"`
}

func (m *Monitor) readRegisters(w http.ResponseWriter, r *http.Request) {
	start, err := queryUint16(r, "start", 0)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	count, err := queryUint16(r, "count", uint16(m.layout.Span()))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	words, err := m.registers.ReadRange(start, count)
	if errors.Is(err, bank.ErrOutOfRange) {
		http.Error(w, err.Error(), http.StatusRequestedRangeNotSatisfiable)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, registersResponse{Start: start, Words: words})
}

type valueResponse struct {
	Name    string   `json:"name"`
	Kind    string   `json:"kind"`
	Address uint16   `json:"address"`
	Words   int      `json:"words"`
	Uint16s []uint16 `json:"uint16s,omitempty"`
	Float   *float64 `json:"float,omitempty"`
}

func (m *Monitor) listValues(w http.ResponseWriter, _ *http.Request) {
	words, err := m.registers.ReadRange(0, uint16(m.layout.Span()))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	reading, err := m.layout.Decode(words, m.order)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	rsp := make([]valueResponse, 0, len(reading.Values))
	for _, v := range reading.Values {
		item := valueResponse{
			Name:    v.Entry.Name,
			Kind:    v.Entry.Kind.String(),
			Address: v.Entry.Address,
			Words:   v.Entry.Words(),
			Uint16s: v.Uint16s,
		}
		if v.Entry.Kind != addressmap.KindUint16 {
			f := v.Float
			item.Float = &f
		}
		rsp = append(rsp, item)
	}
	writeJSON(w, rsp)
}

type sampleResponse struct {
	Tick     uint64                     `json:"tick"`
	Elapsed  float64                    `json:"elapsed"`
	Counters [signal.NumCounters]uint16 `json:"counters"`
	Sine     float32                    `json:"sine"`
	Cosine   float32                    `json:"cosine"`
	Ramp     float64                    `json:"ramp"`
	Triangle float64                    `json:"triangle"`
}

type statusResponse struct {
	State      string          `json:"state"`
	Ticks      uint64          `json:"ticks"`
	LastError  string          `json:"last_error,omitempty"`
	ByteOrder  string          `json:"byte_order"`
	BankSize   int             `json:"bank_size"`
	LastSample *sampleResponse `json:"last_sample,omitempty"`
}

func (m *Monitor) reportStatus(w http.ResponseWriter, _ *http.Request) {
	rsp := statusResponse{
		State:     m.status.State().String(),
		Ticks:     m.status.Ticks(),
		LastError: m.status.LastError(),
		ByteOrder: m.order.String(),
		BankSize:  m.registers.Size(),
	}
	m.mu.Lock()
	if s := m.last; s != nil {
		rsp.LastSample = &sampleResponse{
			Tick:     s.Tick,
			Elapsed:  s.Elapsed,
			Counters: s.Counters,
			Sine:     s.Sine,
			Cosine:   s.Cosine,
			Ramp:     s.Ramp,
			Triangle: s.Triangle,
		}
	}
	m.mu.Unlock()
	writeJSON(w, rsp)
}

func queryUint16(r *http.Request, key string, def uint16) (uint16, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseUint(raw, 10, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", key, raw)
	}
	return uint16(v), nil
}

func writeJSON(w http.ResponseWriter, v any) {
	bytes, err := json.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(bytes)
}
