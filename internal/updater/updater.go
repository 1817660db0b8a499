// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package updater runs the periodic task that publishes synthetic signals into the register bank.
package updater

//go:generate mockgen -destination mock_writer_test.go -package updater -write_package_comment=false github.com/ffutop/modbus-simulator/internal/updater Writer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ffutop/modbus-simulator/internal/addressmap"
	"github.com/ffutop/modbus-simulator/internal/codec"
	"github.com/ffutop/modbus-simulator/internal/signal"
)

const (
	DefaultInterval     = 1 * time.Second
	DefaultErrorBackoff = 5 * time.Second
)

// Writer stores a batch of registers atomically. *bank.Bank satisfies it.
type Writer interface {
	WriteBatch(start uint16, words []uint16) error
}

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// State of the loop.
type State int32

const (
	StateRunning State = iota
	StateErrorBackoff
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateErrorBackoff:
		return "error-backoff"
	default:
		return "unknown"
	}
}

// Config of the loop.
type Config struct {
	Interval     time.Duration
	ErrorBackoff time.Duration
	ByteOrder    codec.ByteOrder
	Map          addressmap.Map
}

// Loop publishes one sample per tick, one WriteBatch per address map entry.
type Loop struct {
	cfg    Config
	writer Writer
	clock  Clock

	// OnTick, when set, receives every fully published sample.
	OnTick func(signal.Sample)

	mu    sync.Mutex // guards start and k
	start time.Time
	k     uint64

	state   atomic.Int32
	ticks   atomic.Uint64
	lastErr atomic.Value // error string
}

// Option customizes a Loop.
type Option func(*Loop)

// WithClock replaces the wall clock.
func WithClock(c Clock) Option {
	return func(l *Loop) { l.clock = c }
}

// New creates a loop writing to w. Zero config fields take their defaults.
func New(cfg Config, w Writer, opts ...Option) *Loop {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.ErrorBackoff <= 0 {
		cfg.ErrorBackoff = DefaultErrorBackoff
	}
	if cfg.Map == nil {
		cfg.Map = addressmap.Default
	}
	l := &Loop{
		cfg:    cfg,
		writer: w,
		clock:  realClock{},
	}
	for _, opt := range opts {
		opt(l)
	}
	l.start = l.clock.Now()
	return l
}

// State returns the current state.
func (l *Loop) State() State {
	return State(l.state.Load())
}

// Ticks returns the number of ticks that completed without error.
func (l *Loop) Ticks() uint64 {
	return l.ticks.Load()
}

// LastError returns the message of the most recent tick failure, if any.
func (l *Loop) LastError() string {
	s, _ := l.lastErr.Load().(string)
	return s
}

// Run ticks until ctx is cancelled. Tick failures never stop the loop;
// they are logged and followed by the error backoff delay.
func (l *Loop) Run(ctx context.Context) error {
	l.mu.Lock()
	l.start = l.clock.Now()
	l.mu.Unlock()
	l.state.Store(int32(StateRunning))

	slog.Info("Starting register update loop", "interval", l.cfg.Interval, "byteOrder", l.cfg.ByteOrder)
	defer slog.Info("Register update loop stopped", "ticks", l.Ticks())

	for {
		if ctx.Err() != nil {
			return nil
		}

		wait := l.cfg.Interval
		if err := l.Tick(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			l.state.Store(int32(StateErrorBackoff))
			l.lastErr.Store(err.Error())
			slog.Error("Failed to update registers", "err", err, "backoff", l.cfg.ErrorBackoff)
			wait = l.cfg.ErrorBackoff
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
		l.state.Store(int32(StateRunning))
	}
}

// Tick computes and publishes one sample. It stops before the next batch once ctx is done.
func (l *Loop) Tick(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic during tick: %v", r)
		}
	}()

	l.mu.Lock()
	defer l.mu.Unlock()

	elapsed := l.clock.Now().Sub(l.start).Seconds()
	sample := signal.Generate(elapsed, l.k)

	for _, b := range addressmap.Encode(l.cfg.Map.Values(sample), l.cfg.ByteOrder) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := l.writer.WriteBatch(b.Address, b.Words); err != nil {
			return fmt.Errorf("failed to write %s at %d: %w", b.Entry.Name, b.Address, err)
		}
		if b.Entry.Name == addressmap.Counters {
			l.k = (l.k + 1) % signal.CounterModulus
		}
	}

	l.ticks.Add(1)
	slog.Debug("Registers updated",
		"counters", sample.Counters,
		"sine", fmt.Sprintf("%.4f", sample.Sine),
		"cosine", fmt.Sprintf("%.4f", sample.Cosine),
		"ramp", fmt.Sprintf("%.4f", sample.Ramp),
		"triangle", fmt.Sprintf("%.4f", sample.Triangle))

	if l.OnTick != nil {
		l.OnTick(sample)
	}
	return nil
}
