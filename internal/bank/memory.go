// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package bank

// MemoryStorage is a no-op storage.
type MemoryStorage struct{}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

func (ms *MemoryStorage) Load(size int) error {
	return nil
}

func (ms *MemoryStorage) OnWrite(start uint16, words []uint16) {
	// No-op
}

func (ms *MemoryStorage) Close() error {
	return nil
}
