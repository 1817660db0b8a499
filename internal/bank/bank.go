// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package bank holds the shared holding-register table.
//
// A single RWMutex guards the whole table. A batch write holds the write lock for its
// full span, so a reader overlapping that span sees either all old or all new words.
package bank

import (
	"errors"
	"fmt"
	"sync"
)

const (
	DefaultSize = 100
	// MaxSize covers the full 16-bit address space.
	MaxSize = 65536
)

// ErrOutOfRange is returned when an address span does not fit inside the bank.
var ErrOutOfRange = errors.New("register range out of bounds")

// Bank is a fixed-size table of 16-bit registers, zero-initialized.
type Bank struct {
	mu      sync.RWMutex
	regs    []uint16
	storage Storage
}

// New creates a bank of size registers mirrored to storage.
// A nil storage keeps the table in memory only.
func New(size int, storage Storage) (*Bank, error) {
	if size < 1 || size > MaxSize {
		return nil, fmt.Errorf("invalid bank size %d (1-%d)", size, MaxSize)
	}
	if storage == nil {
		storage = NewMemoryStorage()
	}
	if err := storage.Load(size); err != nil {
		return nil, fmt.Errorf("failed to load storage: %w", err)
	}
	return &Bank{
		regs:    make([]uint16, size),
		storage: storage,
	}, nil
}

// Size returns the number of registers.
func (b *Bank) Size() int {
	return len(b.regs)
}

// WriteBatch replaces len(words) registers starting at start as one atomic unit.
func (b *Bank) WriteBatch(start uint16, words []uint16) error {
	if err := b.validateRange(start, len(words)); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	copy(b.regs[start:], words)
	b.storage.OnWrite(start, words)
	return nil
}

// ReadRange returns a copy of count registers starting at start.
func (b *Bank) ReadRange(start, count uint16) ([]uint16, error) {
	if err := b.validateRange(start, int(count)); err != nil {
		return nil, err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]uint16, count)
	copy(out, b.regs[start:])
	return out, nil
}

// Close releases the storage.
func (b *Bank) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.storage.Close()
}

func (b *Bank) validateRange(start uint16, count int) error {
	if count == 0 {
		return fmt.Errorf("%w: quantity must be greater than 0", ErrOutOfRange)
	}
	if int(start)+count > len(b.regs) {
		return fmt.Errorf("%w: %d registers at %d exceed bank size %d", ErrOutOfRange, count, start, len(b.regs))
	}
	return nil
}
