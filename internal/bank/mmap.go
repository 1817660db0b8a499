// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package bank

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/edsrzf/mmap-go"
)

// MmapStorage mirrors the register table into a memory-mapped file so other
// processes can watch the live registers. The file is zeroed on Load.
type MmapStorage struct {
	path  string
	flush bool
	file  *os.File
	data  mmap.MMap
}

// NewMmapStorage creates a new MmapStorage. With flush set, every batch is msync'ed to disk.
func NewMmapStorage(path string, flush bool) *MmapStorage {
	return &MmapStorage{
		path:  path,
		flush: flush,
	}
}

// Load creates or truncates the file and maps it.
func (ms *MmapStorage) Load(size int) error {
	f, err := os.OpenFile(ms.path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("failed to open mmap file: %w", err)
	}

	if err := f.Truncate(int64(fileSize(size))); err != nil {
		f.Close()
		return fmt.Errorf("failed to resize mmap file: %w", err)
	}

	data, err := mmap.Map(f, mmap.RDWR, 0)
	if err != nil {
		f.Close()
		return fmt.Errorf("mmap failed: %w", err)
	}
	ms.file = f
	ms.data = data

	writeHeader(ms.data, size)
	return nil
}

// OnWrite copies the batch into the mapping.
func (ms *MmapStorage) OnWrite(start uint16, words []uint16) {
	if ms.data == nil {
		return
	}
	putWords(ms.data, start, words)
	if !ms.flush {
		return
	}
	if err := ms.data.Flush(); err != nil {
		slog.Error("Failed to flush mmap", "path", ms.path, "err", err)
	}
}

// Close unmaps and closes the file.
func (ms *MmapStorage) Close() error {
	var err error
	if ms.data != nil {
		if e := ms.data.Unmap(); e != nil {
			err = e
		}
		ms.data = nil
	}
	if ms.file != nil {
		if e := ms.file.Close(); e != nil {
			err = e
		}
		ms.file = nil
	}
	return err
}
