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

// Package hzorder converts between lattice points and HZ addresses: a
// space-filling curve derived from bit-interleaving a point's per-axis
// coordinates according to a Bitmask's axis-split schedule, partitioned
// into a strict resolution hierarchy.
//
// HZ addresses can need up to MaxH+1 bits, which the design notes (§9) say
// may exceed 64 bits for very deep datasets ("fit in 128-bit when MaxH >
// 60"). Rather than hand-roll a 128-bit integer, addresses are represented
// with github.com/holiman/uint256.Int, a dependency already pulled in
// transitively by the teacher for exactly this kind of fixed-width integer
// arithmetic.
package hzorder

import (
	"github.com/holiman/uint256"

	"github.com/openvisus/idx/internal/bitmask"
	"github.com/openvisus/idx/internal/pointn"
)

var one = uint256.NewInt(1)

// Addr is an HZ address.
type Addr = uint256.Int

// HzOrder binds a Bitmask to the conversion algorithms. It holds no mutable
// state and, like the Bitmask it wraps, is safe to share by reference
// across goroutines once constructed.
type HzOrder struct {
	bm *bitmask.Bitmask
}

func New(bm *bitmask.Bitmask) *HzOrder {
	return &HzOrder{bm: bm}
}

func (h *HzOrder) Bitmask() *bitmask.Bitmask { return h.bm }

// Interleave bit-interleaves p according to the bitmask's axis schedule,
// producing a MaxH-bit integer whose bit (MaxH-d) holds the bit of
// p[axis(d)] consumed at depth d. Depth 1 (the coarsest split) contributes
// the most significant bit.
func (h *HzOrder) Interleave(p pointn.Point) *Addr {
	z := new(Addr)
	maxH := h.bm.MaxH()
	counters := make([]int, h.bm.PDim())
	for d := 1; d <= maxH; d++ {
		axis := h.bm.AxisAt(d)
		counters[axis]++
		bitpos := h.bm.BitsForAxis(axis) - counters[axis]
		bit := (p[axis] >> uint(bitpos)) & 1
		z.Lsh(z, 1)
		if bit != 0 {
			z.Or(z, one)
		}
	}
	return z
}

// Deinterleave is the inverse of Interleave: it recovers the lattice point
// encoded by a MaxH-bit integer z.
func (h *HzOrder) Deinterleave(z *Addr) pointn.Point {
	maxH := h.bm.MaxH()
	p := make(pointn.Point, h.bm.PDim())
	counters := make([]int, h.bm.PDim())
	for d := 1; d <= maxH; d++ {
		axis := h.bm.AxisAt(d)
		counters[axis]++
		bitpos := h.bm.BitsForAxis(axis) - counters[axis]
		bit := bitAt(z, maxH-d)
		if bit != 0 {
			p[axis] |= int64(1) << uint(bitpos)
		}
	}
	return p
}

// PointToHz converts a lattice point to its HZ address using the
// trailing-zero "shift trick": the interleaved integer z is padded with a
// sentinel top bit at position MaxH, then shifted right by the trailing
// zero count of z. The result is always odd except for the root address 1,
// which is also odd — every valid non-full-res HZ address is odd, which is
// exactly what makes "highest set bit position" a usable level discriminant
// (see HzToPoint and LevelOf).
func (h *HzOrder) PointToHz(p pointn.Point) *Addr {
	z := h.Interleave(p)
	return ZToHz(z, h.bm.MaxH())
}

// ZToHz applies the shift trick to an already-interleaved MaxH-bit integer.
// Exposed separately from PointToHz so callers who already hold z (e.g. a
// block enumeration walking consecutive interleaved values) don't pay for a
// redundant interleave.
func ZToHz(z *Addr, maxH int) *Addr {
	tz := trailingZeros(z, maxH)
	v := new(Addr).Or(new(Addr).Lsh(one, uint(maxH)), z)
	return v.Rsh(v, uint(tz))
}

// HzToPoint is the inverse of PointToHz.
func (h *HzOrder) HzToPoint(addr *Addr) pointn.Point {
	maxH := h.bm.MaxH()
	H := LevelOf(addr)
	shift := maxH - H
	v := new(Addr).Lsh(addr, uint(shift))
	mask := new(Addr).Sub(new(Addr).Lsh(one, uint(maxH)), one)
	z := new(Addr).And(v, mask)
	return h.Deinterleave(z)
}

// LevelOf returns the resolution level H of a non-full-res HZ address: the
// position of its highest set bit.
func LevelOf(addr *Addr) int {
	bl := addr.BitLen()
	if bl == 0 {
		return 0
	}
	return bl - 1
}

// PointToHzAtLevel is the full-res / dense convention (§4.12's Google-Maps
// tiling mode): the address of p truncated to level H is the top H bits of
// the MaxH-bit interleaved integer, prefixed with a sentinel bit at
// position H. Unlike PointToHz, every integer in [2^H, 2^(H+1)) is a valid
// address at level H (invariant 2's "2^H" case), not just the odd ones.
func (h *HzOrder) PointToHzAtLevel(p pointn.Point, H int) *Addr {
	maxH := h.bm.MaxH()
	z := h.Interleave(p)
	truncated := new(Addr).Rsh(z, uint(maxH-H))
	return new(Addr).Or(new(Addr).Lsh(one, uint(H)), truncated)
}

func bitAt(x *Addr, pos int) uint64 {
	if pos < 0 {
		return 0
	}
	t := new(Addr).Rsh(x, uint(pos))
	return t.Uint64() & 1
}

// trailingZeros returns the number of trailing zero bits of z, or maxH if z
// is zero (the convention the shift trick relies on for the root address).
func trailingZeros(z *Addr, maxH int) int {
	if z.IsZero() {
		return maxH
	}
	n := 0
	y := new(Addr).Set(z)
	for {
		if y.Uint64()&1 != 0 {
			return n
		}
		y.Rsh(y, 1)
		n++
	}
}
