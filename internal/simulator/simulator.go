// Copyright (c) 2025-2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package simulator

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"

	"github.com/ffutop/modbus-simulator/internal/addressmap"
	"github.com/ffutop/modbus-simulator/internal/bank"
	"github.com/ffutop/modbus-simulator/internal/config"
	"github.com/ffutop/modbus-simulator/internal/monitor"
	"github.com/ffutop/modbus-simulator/internal/slave"
	"github.com/ffutop/modbus-simulator/internal/updater"
	"github.com/ffutop/modbus-simulator/transport"
	"github.com/ffutop/modbus-simulator/transport/rtu"
	"github.com/ffutop/modbus-simulator/transport/rtuovertcp"
	"github.com/ffutop/modbus-simulator/transport/tcp"
)

// Simulator owns the register bank, the loop feeding it and the upstreams serving it.
type Simulator struct {
	Bank      *bank.Bank
	Loop      *updater.Loop
	Slave     *slave.Slave
	Upstreams []transport.Upstream
	Monitor   *monitor.Monitor // nil when disabled

	tcp         *tcp.Server
	rtuOverTCP  *rtuovertcp.Server
	monitorAddr string
	closeOnce   sync.Once
	closeErr    error
}

// New builds a simulator from cfg. The bank's backing is opened here.
func New(cfg *config.Config, opts ...updater.Option) (*Simulator, error) {
	order, err := cfg.Simulator.Order()
	if err != nil {
		return nil, err
	}

	var storage bank.Storage
	switch cfg.Simulator.Backing.Type {
	case "", "memory":
		storage = bank.NewMemoryStorage()
	case "mmap":
		storage = bank.NewMmapStorage(cfg.Simulator.Backing.Path, cfg.Simulator.Backing.Flush)
	case "file":
		storage = bank.NewFileStorage(cfg.Simulator.Backing.Path, cfg.Simulator.Backing.Flush)
	default:
		return nil, fmt.Errorf("unknown backing type: %s", cfg.Simulator.Backing.Type)
	}

	if err := addressmap.Default.Validate(cfg.Simulator.BankSize); err != nil {
		return nil, err
	}
	b, err := bank.New(cfg.Simulator.BankSize, storage)
	if err != nil {
		return nil, fmt.Errorf("failed to create register bank: %w", err)
	}

	s := &Simulator{
		Bank:  b,
		Slave: slave.NewSlave(b),
		Loop: updater.New(updater.Config{
			Interval:     cfg.Simulator.UpdateInterval,
			ErrorBackoff: cfg.Simulator.ErrorBackoff,
			ByteOrder:    order,
			Map:          addressmap.Default,
		}, b, opts...),
		tcp:         tcp.NewServer(cfg.Server.Address),
		monitorAddr: cfg.Monitor.Address,
	}
	s.Upstreams = append(s.Upstreams, s.tcp)
	if cfg.Server.RTU.Device != "" {
		s.Upstreams = append(s.Upstreams, rtu.NewServer(cfg.Server.RTU))
	}
	if cfg.Server.RTUOverTCP.Address != "" {
		s.rtuOverTCP = rtuovertcp.NewServer(cfg.Server.RTUOverTCP.Address)
		s.Upstreams = append(s.Upstreams, s.rtuOverTCP)
	}
	if cfg.Monitor.Address != "" {
		s.Monitor = monitor.New(b, s.Loop, order, addressmap.Default)
		s.Loop.OnTick = s.Monitor.Observe
	}
	return s, nil
}

// Listen binds the TCP servers and the monitor so that bind errors surface before Start.
func (s *Simulator) Listen() error {
	if err := s.tcp.Listen(); err != nil {
		return err
	}
	if s.rtuOverTCP != nil {
		if err := s.rtuOverTCP.Listen(); err != nil {
			return err
		}
	}
	if s.Monitor != nil && s.Monitor.Addr() == nil {
		if err := s.Monitor.Listen(s.monitorAddr); err != nil {
			return err
		}
	}
	return nil
}

// Addr returns the Modbus TCP address, or nil before Listen.
func (s *Simulator) Addr() net.Addr {
	return s.tcp.Addr()
}

// RTUOverTCPAddr returns the RTU over TCP address, or nil when disabled or before Listen.
func (s *Simulator) RTUOverTCPAddr() net.Addr {
	if s.rtuOverTCP == nil {
		return nil
	}
	return s.rtuOverTCP.Addr()
}

// Start runs the loop, every upstream and the monitor until ctx is done,
// then closes the upstreams and the bank.
func (s *Simulator) Start(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		s.Close()
		return err
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := s.Loop.Run(ctx); err != nil {
			slog.Error("Update loop stopped with error", "err", err)
		}
	}()

	for i, us := range s.Upstreams {
		wg.Add(1)
		go func(ups transport.Upstream, idx int) {
			defer wg.Done()
			slog.Info("Starting upstream", "index", idx)
			if err := ups.Start(ctx, s.Slave.Handle); err != nil {
				slog.Error("Upstream stopped with error", "index", idx, "err", err)
			}
		}(us, i)
	}

	if s.Monitor != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.Monitor.Start(ctx); err != nil {
				slog.Error("Monitor stopped with error", "err", err)
			}
		}()
	}

	<-ctx.Done()

	// Graceful shutdown
	for _, us := range s.Upstreams {
		us.Close()
	}
	wg.Wait()
	return s.Close()
}

// Close releases the bank and its backing. It is safe to call more than once.
func (s *Simulator) Close() error {
	s.closeOnce.Do(func() {
		for _, us := range s.Upstreams {
			us.Close()
		}
		s.closeErr = s.Bank.Close()
	})
	return s.closeErr
}
