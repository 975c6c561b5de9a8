// Copyright 2024 The Erigon Authors
// This file is part of Erigon.
//
// Erigon is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Erigon is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with Erigon. If not, see <http://www.gnu.org/licenses/>.

// Package logicsamples describes regular axis-aligned lattices of samples:
// the geometry shared by both "all samples at resolution level H" and "all
// samples belonging to block N".
package logicsamples

import (
	"fmt"

	"github.com/openvisus/idx/internal/pointn"
)

// LogicSamples is a regular lattice: samples sit at
// Box.P1 + k*Delta for every integer vector k with 0 <= k[i] < extent(i).
// Shift holds log2(Delta) per axis, as the dataset's level and block tables
// fill it in; it does not offset the lattice. It is the shared geometry
// type for both per-level and per-block
// sample sets (design notes §3).
type LogicSamples struct {
	Box   pointn.Box
	Delta pointn.Point
	Shift pointn.Point
}

// Valid reports whether the lattice is well-formed: non-empty box, matching
// dimensions, and strictly positive deltas.
func (ls LogicSamples) Valid() bool {
	pdim := ls.Box.PDim()
	if pdim == 0 || ls.Box.IsEmpty() {
		return false
	}
	if len(ls.Delta) != pdim || len(ls.Shift) != pdim {
		return false
	}
	for _, d := range ls.Delta {
		if d <= 0 {
			return false
		}
	}
	return true
}

// NSamples returns, per axis, ceil((P2-P1)/Delta): the lattice's extent in
// sample units.
func (ls LogicSamples) NSamples() pointn.Point {
	pdim := ls.Box.PDim()
	out := make(pointn.Point, pdim)
	for i := 0; i < pdim; i++ {
		extent := ls.Box.P2[i] - ls.Box.P1[i]
		out[i] = ceilDiv(extent, ls.Delta[i])
	}
	return out
}

// TotalSamples is the product of NSamples across all axes.
func (ls LogicSamples) TotalSamples() int64 {
	n := ls.NSamples()
	total := int64(1)
	for _, v := range n {
		total *= v
	}
	return total
}

// PixelToLogic maps a zero-based per-axis sample index to its logic-space
// coordinate.
func (ls LogicSamples) PixelToLogic(idx pointn.Point) pointn.Point {
	pdim := ls.Box.PDim()
	out := make(pointn.Point, pdim)
	for i := 0; i < pdim; i++ {
		out[i] = ls.Box.P1[i] + idx[i]*ls.Delta[i]
	}
	return out
}

// LogicToPixel is the (non-injective for non-lattice points) inverse of
// PixelToLogic: it floors p onto the lattice and returns the sample index.
func (ls LogicSamples) LogicToPixel(p pointn.Point) pointn.Point {
	pdim := ls.Box.PDim()
	out := make(pointn.Point, pdim)
	for i := 0; i < pdim; i++ {
		out[i] = (p[i] - ls.Box.P1[i]) / ls.Delta[i]
	}
	return out
}

// AlignBox widens b to the smallest lattice-aligned box that fully contains
// it: P1 rounds down to the lattice, P2 rounds up.
func (ls LogicSamples) AlignBox(b pointn.Box) pointn.Box {
	pdim := b.PDim()
	out := pointn.Box{P1: make(pointn.Point, pdim), P2: make(pointn.Point, pdim)}
	for i := 0; i < pdim; i++ {
		d := ls.Delta[i]
		out.P1[i] = floorDiv(b.P1[i], d) * d
		out.P2[i] = ceilDiv(b.P2[i], d) * d
	}
	return out
}

func (ls LogicSamples) String() string {
	return fmt.Sprintf("LogicSamples{Box:%v, Delta:%v, Shift:%v}", ls.Box, ls.Delta, ls.Shift)
}

func ceilDiv(a, b int64) int64 {
	if b == 0 {
		return 0
	}
	if a%b == 0 {
		return a / b
	}
	if (a < 0) == (b < 0) {
		return a/b + 1
	}
	return a / b
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
