// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ffutop/modbus-simulator/internal/codec"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(New(), "")
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:5020", cfg.Server.Address)
	assert.Empty(t, cfg.Server.RTU.Device)
	assert.Equal(t, 19200, cfg.Server.RTU.BaudRate)
	assert.Equal(t, "N", cfg.Server.RTU.Parity)
	assert.Equal(t, time.Second, cfg.Simulator.UpdateInterval)
	assert.Equal(t, 5*time.Second, cfg.Simulator.ErrorBackoff)
	assert.Equal(t, 100, cfg.Simulator.BankSize)
	assert.Equal(t, "memory", cfg.Simulator.Backing.Type)
	assert.Equal(t, "tcp://localhost:5020", cfg.Client.URL)
	assert.Equal(t, uint8(1), cfg.Client.UnitID)
	assert.Equal(t, uint16(38), cfg.Client.Count)
	assert.Equal(t, "info", cfg.Log.Level)

	order, err := cfg.Simulator.Order()
	require.NoError(t, err)
	assert.Equal(t, codec.BigEndian, order)
}

func TestLoadConfig_File(t *testing.T) {
	path := writeConfig(t, `
server:
  address: "127.0.0.1:1502"
  rtu:
    device: /dev/ttyUSB0
    parity: e
simulator:
  update_interval: 250ms
  byte_order: little
  backing:
    type: mmap
    path: /tmp/bank.mmap
log:
  level: debug
`)
	cfg, err := LoadConfig(New(), path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:1502", cfg.Server.Address)
	assert.Equal(t, "/dev/ttyUSB0", cfg.Server.RTU.Device)
	assert.Equal(t, "E", cfg.Server.RTU.Parity)
	assert.Equal(t, 500*time.Millisecond, cfg.Server.RTU.Timeout)
	assert.Equal(t, 250*time.Millisecond, cfg.Simulator.UpdateInterval)
	assert.Equal(t, "mmap", cfg.Simulator.Backing.Type)
	assert.Equal(t, "debug", cfg.Log.Level)

	order, err := cfg.Simulator.Order()
	require.NoError(t, err)
	assert.Equal(t, codec.LittleEndian, order)
}

func TestLoadConfig_Env(t *testing.T) {
	t.Setenv("MODBUSSIM_SERVER_ADDRESS", "127.0.0.1:6000")
	t.Setenv("MODBUSSIM_SIMULATOR_BANK_SIZE", "200")

	cfg, err := LoadConfig(New(), "")
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:6000", cfg.Server.Address)
	assert.Equal(t, 200, cfg.Simulator.BankSize)
}

func TestLoadConfig_ClientWindow(t *testing.T) {
	t.Setenv("MODBUSSIM_CLIENT_START", "5")
	t.Setenv("MODBUSSIM_CLIENT_COUNT", "10")

	cfg, err := LoadConfig(New(), "")
	require.NoError(t, err)
	assert.Equal(t, uint16(5), cfg.Client.Start)
	assert.Equal(t, uint16(10), cfg.Client.Count)
}

func TestLoadConfig_MissingExplicitFile(t *testing.T) {
	_, err := LoadConfig(New(), filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"BankTooSmall", "simulator:\n  bank_size: 37\n"},
		{"BankTooLarge", "simulator:\n  bank_size: 70000\n"},
		{"ZeroInterval", "simulator:\n  update_interval: 0s\n"},
		{"NegativeBackoff", "simulator:\n  error_backoff: -1s\n"},
		{"BadOrder", "simulator:\n  byte_order: middle\n"},
		{"MmapWithoutPath", "simulator:\n  backing:\n    type: mmap\n"},
		{"UnknownBacking", "simulator:\n  backing:\n    type: sqlite\n"},
		{"ClientCountTooLarge", "client:\n  count: 126\n"},
		{"ClientWindowPastEnd", "client:\n  start: 65530\n  count: 10\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(New(), writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}
