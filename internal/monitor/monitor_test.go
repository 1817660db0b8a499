// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ffutop/modbus-simulator/internal/addressmap"
	"github.com/ffutop/modbus-simulator/internal/bank"
	"github.com/ffutop/modbus-simulator/internal/codec"
	"github.com/ffutop/modbus-simulator/internal/signal"
	"github.com/ffutop/modbus-simulator/internal/updater"
)

type fakeStatus struct {
	state updater.State
	ticks uint64
	err   string
}

func (f fakeStatus) State() updater.State { return f.state }
func (f fakeStatus) Ticks() uint64        { return f.ticks }
func (f fakeStatus) LastError() string    { return f.err }

func newMonitor(t *testing.T) (*Monitor, *bank.Bank) {
	t.Helper()
	b, err := bank.New(bank.DefaultSize, nil)
	require.NoError(t, err)
	t.Cleanup(func() { b.Close() })

	for _, batch := range addressmap.Encode(addressmap.Default.Values(signal.Generate(0, 0)), codec.BigEndian) {
		require.NoError(t, b.WriteBatch(batch.Address, batch.Words))
	}
	status := fakeStatus{state: updater.StateErrorBackoff, ticks: 7, err: "boom"}
	return New(b, status, codec.BigEndian, addressmap.Default), b
}

func get(t *testing.T, m *Monitor, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestReadRegisters(t *testing.T) {
	m, _ := newMonitor(t)

	rec := get(t, m, "/api/registers?start=20&count=4")
	require.Equal(t, http.StatusOK, rec.Code)

	var rsp registersResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rsp))
	assert.Equal(t, uint16(20), rsp.Start)
	assert.Equal(t, []uint16{0x0000, 0x0000, 0x3F80, 0x0000}, rsp.Words)
}

func TestReadRegisters_DefaultRange(t *testing.T) {
	m, _ := newMonitor(t)

	rec := get(t, m, "/api/registers")
	require.Equal(t, http.StatusOK, rec.Code)

	var rsp registersResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rsp))
	assert.Len(t, rsp.Words, 38)
	assert.Equal(t, uint16(9), rsp.Words[9])
}

func TestReadRegisters_Errors(t *testing.T) {
	m, _ := newMonitor(t)

	tests := []struct {
		target string
		code   int
	}{
		{"/api/registers?start=abc", http.StatusBadRequest},
		{"/api/registers?count=-1", http.StatusBadRequest},
		{"/api/registers?start=70000", http.StatusBadRequest},
		{"/api/registers?start=99&count=2", http.StatusRequestedRangeNotSatisfiable},
		{"/api/registers?start=0&count=0", http.StatusRequestedRangeNotSatisfiable},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			assert.Equal(t, tt.code, get(t, m, tt.target).Code)
		})
	}
}

func TestListValues(t *testing.T) {
	m, _ := newMonitor(t)

	rec := get(t, m, "/api/values")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var rsp []valueResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rsp))
	require.Len(t, rsp, len(addressmap.Default))

	assert.Equal(t, addressmap.Counters, rsp[0].Name)
	assert.Equal(t, []uint16{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, rsp[0].Uint16s)
	assert.Nil(t, rsp[0].Float)

	assert.Equal(t, addressmap.Cosine, rsp[2].Name)
	require.NotNil(t, rsp[2].Float)
	assert.Equal(t, 1.0, *rsp[2].Float)

	assert.Equal(t, addressmap.Triangle, rsp[4].Name)
	require.NotNil(t, rsp[4].Float)
	assert.Equal(t, 50.0, *rsp[4].Float)
}

func TestReportStatus(t *testing.T) {
	m, _ := newMonitor(t)
	m.Observe(signal.Generate(3.5, 3))

	rec := get(t, m, "/api/status")
	require.Equal(t, http.StatusOK, rec.Code)

	var rsp statusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rsp))
	assert.Equal(t, "error-backoff", rsp.State)
	assert.Equal(t, uint64(7), rsp.Ticks)
	assert.Equal(t, "boom", rsp.LastError)
	assert.Equal(t, "big", rsp.ByteOrder)
	assert.Equal(t, 100, rsp.BankSize)
	require.NotNil(t, rsp.LastSample)

	want := signal.Generate(3.5, 3)
	assert.Equal(t, uint64(3), rsp.LastSample.Tick)
	assert.Equal(t, 3.5, rsp.LastSample.Elapsed)
	assert.Equal(t, want.Counters, rsp.LastSample.Counters)
	assert.Equal(t, want.Sine, rsp.LastSample.Sine)
	assert.Equal(t, want.Cosine, rsp.LastSample.Cosine)
	assert.Equal(t, want.Ramp, rsp.LastSample.Ramp)
	assert.Equal(t, want.Triangle, rsp.LastSample.Triangle)
}

func TestReportStatus_BeforeFirstTick(t *testing.T) {
	m, _ := newMonitor(t)

	rec := get(t, m, "/api/status")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "last_sample")
}

func TestStart_ServesUntilCancelled(t *testing.T) {
	m, _ := newMonitor(t)
	require.NoError(t, m.Listen("127.0.0.1:0"))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Start(ctx) }()

	rsp, err := http.Get(fmt.Sprintf("http://%s/api/status", m.Addr()))
	require.NoError(t, err)
	rsp.Body.Close()
	assert.Equal(t, http.StatusOK, rsp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("monitor did not stop")
	}
}
