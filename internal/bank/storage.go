// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package bank

// Storage mirrors the register table somewhere outside the process heap.
// The bank is always reset to zero on start, so a storage never restores old values.
type Storage interface {
	// Load prepares a zeroed mirror for size registers.
	Load(size int) error

	// OnWrite is called with the bank's write lock held after words were stored at start.
	OnWrite(start uint16, words []uint16)

	Close() error
}
