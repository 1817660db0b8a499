// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package rtu

const (
	MinSize = 4
	MaxSize = 256

	// ReadRequestSize is [SlaveID, Func, Addr(2), Quantity(2), CRC(2)].
	ReadRequestSize = 8
)
