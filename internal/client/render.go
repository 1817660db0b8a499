// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package client

import (
	"fmt"
	"io"
	"strings"

	"github.com/ffutop/modbus-simulator/internal/addressmap"
)

// Render writes a human readable report of r, grouped by kind.
func Render(w io.Writer, r addressmap.Reading) error {
	var b strings.Builder
	for _, kind := range []addressmap.Kind{addressmap.KindUint16, addressmap.KindFloat32, addressmap.KindFloat64} {
		var section []addressmap.Value
		for _, v := range r.Values {
			if v.Entry.Kind == kind {
				section = append(section, v)
			}
		}
		if len(section) == 0 {
			continue
		}

		first, last := section[0].Entry.Address, section[0].Entry.End()-1
		for _, v := range section[1:] {
			first = min(first, v.Entry.Address)
			last = max(last, v.Entry.End()-1)
		}
		fmt.Fprintf(&b, "--- %s (registers %d-%d) ---\n", strings.ToUpper(kind.String()), first, last)

		for _, v := range section {
			if kind == addressmap.KindUint16 {
				for i, u := range v.Uint16s {
					fmt.Fprintf(&b, "  Register %d: %d\n", int(v.Entry.Address)+i, u)
				}
				continue
			}
			fmt.Fprintf(&b, "  %s (registers %d-%d): %.4f\n", label(v.Entry.Name), v.Entry.Address, v.Entry.End()-1, v.Float)
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func label(name string) string {
	if name == "" {
		return name
	}
	return strings.ToUpper(name[:1]) + name[1:]
}
