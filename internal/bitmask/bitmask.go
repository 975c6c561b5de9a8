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

// Package bitmask implements the HZ-order address space's axis-interleave
// schedule: a finite string over {V, 0, 1, ..., pdim-1} whose leading V
// marks the root and whose remaining symbols name, depth by depth, the axis
// split at that depth.
package bitmask

import (
	"fmt"

	"github.com/openvisus/idx/internal/pointn"
)

// Bitmask is immutable after Parse and safe for concurrent use by many
// goroutines (design notes §5: "immutable after construction").
type Bitmask struct {
	raw       string
	pdim      int
	axisAt    []int // axisAt[d], d in [1, MaxH]; axisAt[0] is unused (root 'V')
	bitsAxis  []int // total occurrences of each axis across [1, MaxH]
	prefixCnt [][]int
}

// Parse validates and compiles a bitmask string. The string must start with
// 'V' and every following character must be a decimal digit naming an axis
// in [0, pdim). pdim is the caller-declared point dimension; every axis
// digit in the mask must be < pdim.
func Parse(raw string, pdim int) (*Bitmask, error) {
	if len(raw) == 0 || raw[0] != 'V' {
		return nil, fmt.Errorf("bitmask: %q must start with 'V'", raw)
	}
	if pdim <= 0 {
		return nil, fmt.Errorf("bitmask: pdim must be positive, got %d", pdim)
	}
	maxH := len(raw) - 1
	axisAt := make([]int, maxH+1)
	bitsAxis := make([]int, pdim)
	// prefixCnt[a][d] = count of axis a within raw[1..d], d in [0, MaxH]
	prefixCnt := make([][]int, pdim)
	for a := range prefixCnt {
		prefixCnt[a] = make([]int, maxH+1)
	}
	for d := 1; d <= maxH; d++ {
		c := raw[d]
		if c < '0' || c > '9' {
			return nil, fmt.Errorf("bitmask: %q has non-digit axis symbol %q at depth %d", raw, c, d)
		}
		axis := int(c - '0')
		if axis >= pdim {
			return nil, fmt.Errorf("bitmask: %q names axis %d but pdim is %d", raw, axis, pdim)
		}
		axisAt[d] = axis
		bitsAxis[axis]++
		for a := 0; a < pdim; a++ {
			prefixCnt[a][d] = prefixCnt[a][d-1]
		}
		prefixCnt[axis][d]++
	}
	return &Bitmask{
		raw:       raw,
		pdim:      pdim,
		axisAt:    axisAt,
		bitsAxis:  bitsAxis,
		prefixCnt: prefixCnt,
	}, nil
}

func (b *Bitmask) String() string { return b.raw }

// MaxH is the bitmask's maximum resolution level: length-1.
func (b *Bitmask) MaxH() int { return len(b.raw) - 1 }

func (b *Bitmask) PDim() int { return b.pdim }

// AxisAt returns the axis split at depth d, d in [1, MaxH].
func (b *Bitmask) AxisAt(d int) int { return b.axisAt[d] }

// BitsForAxis is the total number of times axis appears in the mask: the
// base-2 logarithm of the pow-2 box's extent on that axis.
func (b *Bitmask) BitsForAxis(axis int) int { return b.bitsAxis[axis] }

// CountAxisInRange counts occurrences of axis within mask[lo..hi] inclusive
// (1-indexed, lo may be 0 to include the non-contributing root symbol).
// Used by the level-geometry algorithm (§4.1) to compute per-level deltas.
func (b *Bitmask) CountAxisInRange(axis, lo, hi int) int {
	if lo < 0 {
		lo = 0
	}
	if hi > b.MaxH() {
		hi = b.MaxH()
	}
	if lo > hi {
		return 0
	}
	before := 0
	if lo > 0 {
		before = b.prefixCnt[axis][lo-1]
	}
	return b.prefixCnt[axis][hi] - before
}

// Pow2Dims returns, per axis, 2^(count of that axis in the mask): the
// power-of-two bounding box's size.
func (b *Bitmask) Pow2Dims() pointn.Point {
	out := make(pointn.Point, b.pdim)
	for a := 0; a < b.pdim; a++ {
		out[a] = int64(1) << uint(b.bitsAxis[a])
	}
	return out
}
