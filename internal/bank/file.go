// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package bank

import (
	"fmt"
	"log/slog"
	"os"
)

// FileStorage mirrors the register table into a regular file using positioned
// writes. It has the same layout as MmapStorage and suits filesystems that
// do not support shared mappings.
type FileStorage struct {
	path string
	sync bool
	file *os.File
	buf  []byte
}

// NewFileStorage creates a new FileStorage. With sync set, every batch is fsync'ed.
func NewFileStorage(path string, sync bool) *FileStorage {
	return &FileStorage{
		path: path,
		sync: sync,
	}
}

// Load creates or truncates the file and writes a zeroed table.
func (fs *FileStorage) Load(size int) error {
	f, err := os.OpenFile(fs.path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}

	data := make([]byte, fileSize(size))
	writeHeader(data, size)
	if _, err := f.WriteAt(data, 0); err != nil {
		f.Close()
		return fmt.Errorf("failed to write file: %w", err)
	}
	fs.file = f
	fs.buf = data
	return nil
}

// OnWrite writes the batch at its offset.
func (fs *FileStorage) OnWrite(start uint16, words []uint16) {
	if fs.file == nil {
		return
	}
	putWords(fs.buf, start, words)
	from := offsetRegisters + int(start)*2
	to := from + len(words)*2
	if _, err := fs.file.WriteAt(fs.buf[from:to], int64(from)); err != nil {
		slog.Error("Failed to write file", "path", fs.path, "err", err)
		return
	}
	if !fs.sync {
		return
	}
	if err := fs.file.Sync(); err != nil {
		slog.Error("Failed to sync file to disk", "path", fs.path, "err", err)
	}
}

// Close the file.
func (fs *FileStorage) Close() error {
	if fs.file == nil {
		return nil
	}
	err := fs.file.Close()
	fs.file = nil
	fs.buf = nil
	return err
}
