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

// Package pointn implements the small N-dimensional integer point and
// axis-aligned box types shared by the bitmask, hzorder, logicsamples and
// dataset packages.
package pointn

import "fmt"

// Point is a coordinate in an N-dimensional integer lattice, one entry per
// axis. Coordinates are 64-bit signed per the design notes: "in practice
// 64-bit signed suffices for all bounding boxes".
type Point []int64

// Clone returns an independent copy of p.
func (p Point) Clone() Point {
	out := make(Point, len(p))
	copy(out, p)
	return out
}

func (p Point) Equal(o Point) bool {
	if len(p) != len(o) {
		return false
	}
	for i := range p {
		if p[i] != o[i] {
			return false
		}
	}
	return true
}

func (p Point) String() string {
	return fmt.Sprintf("%v", []int64(p))
}

// Box is an axis-aligned, half-open box: P1 is inclusive, P2 exclusive, on
// every axis.
type Box struct {
	P1, P2 Point
}

func NewBox(p1, p2 Point) Box {
	return Box{P1: p1.Clone(), P2: p2.Clone()}
}

func (b Box) PDim() int { return len(b.P1) }

// IsEmpty reports whether the box has zero or negative extent on any axis.
func (b Box) IsEmpty() bool {
	if len(b.P1) != len(b.P2) {
		return true
	}
	for i := range b.P1 {
		if b.P2[i] <= b.P1[i] {
			return true
		}
	}
	return false
}

// Intersection returns the largest box contained in both b and o. The
// result may be empty (check with IsEmpty).
func (b Box) Intersection(o Box) Box {
	pdim := b.PDim()
	out := Box{P1: make(Point, pdim), P2: make(Point, pdim)}
	for i := 0; i < pdim; i++ {
		out.P1[i] = max64(b.P1[i], o.P1[i])
		out.P2[i] = min64(b.P2[i], o.P2[i])
	}
	return out
}

func (b Box) Clone() Box {
	return Box{P1: b.P1.Clone(), P2: b.P2.Clone()}
}

func (b Box) String() string {
	return fmt.Sprintf("[%v,%v)", []int64(b.P1), []int64(b.P2))
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}

// Gcd and Lcm are used by the sample-insertion kernels (§4.5) to find the
// coarsest lattice two LogicSamples have in common.
func Gcd(a, b int64) int64 {
	for b != 0 {
		a, b = b, a%b
	}
	if a < 0 {
		return -a
	}
	return a
}

func Lcm(a, b int64) int64 {
	if a == 0 || b == 0 {
		return 0
	}
	g := Gcd(a, b)
	return a / g * b
}
