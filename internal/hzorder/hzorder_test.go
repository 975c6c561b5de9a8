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

package hzorder

import (
	"testing"

	"github.com/holiman/uint256"
	"pgregory.net/rapid"

	"github.com/openvisus/idx/internal/bitmask"
	"github.com/openvisus/idx/internal/pointn"
)

func mustBitmask(t *testing.T, raw string, pdim int) *bitmask.Bitmask {
	t.Helper()
	bm, err := bitmask.Parse(raw, pdim)
	if err != nil {
		t.Fatalf("bitmask.Parse(%q): %v", raw, err)
	}
	return bm
}

func TestInterleaveDeinterleaveRoundTrip(t *testing.T) {
	bm := mustBitmask(t, "V0101010101", 2)
	hz := New(bm)
	pts := []pointn.Point{
		{0, 0},
		{31, 31},
		{17, 3},
		{1, 0},
		{0, 1},
	}
	for _, p := range pts {
		z := hz.Interleave(p)
		got := hz.Deinterleave(z)
		if !got.Equal(p) {
			t.Fatalf("Deinterleave(Interleave(%v)) = %v", p, got)
		}
	}
}

func TestPointToHzRoundTrip(t *testing.T) {
	bm := mustBitmask(t, "V0101010101", 2)
	hz := New(bm)
	pts := []pointn.Point{
		{0, 0},
		{31, 31},
		{17, 3},
		{1, 0},
		{0, 1},
		{15, 16},
	}
	for _, p := range pts {
		addr := hz.PointToHz(p)
		if addr.IsZero() {
			t.Fatalf("PointToHz(%v) = 0, want nonzero", p)
		}
		// every non-full-res address must be odd (shift trick invariant)
		if addr.Uint64()&1 == 0 {
			t.Fatalf("PointToHz(%v) = %v, want odd", p, addr)
		}
		got := hz.HzToPoint(addr)
		if !got.Equal(p) {
			t.Fatalf("HzToPoint(PointToHz(%v)) = %v", p, got)
		}
	}
}

func TestLevelOfMatchesBitLen(t *testing.T) {
	cases := []struct {
		addr uint64
		want int
	}{
		{1, 0},
		{2, 1},
		{3, 1},
		{4, 2},
		{7, 2},
		{8, 3},
	}
	for _, c := range cases {
		a := uint256.NewInt(c.addr)
		if got := LevelOf(a); got != c.want {
			t.Fatalf("LevelOf(%d) = %d, want %d", c.addr, got, c.want)
		}
	}
}

// TestLevelCountsMatchInvariant2 checks the HZ-order resolution-level
// sample-count invariant for levels 1..4: every level H >= 1 has exactly
// 2^(H-1) non-full-res addresses (addresses are odd and BitLen-1 == H,
// i.e. addr in (2^H, 2^(H+1)) stepping by 2).
func TestLevelCountsMatchInvariant2(t *testing.T) {
	bm := mustBitmask(t, "V0101010101", 2)
	maxH := bm.MaxH()
	for H := 1; H <= 4; H++ {
		lo := uint64(1) << uint(H)
		hi := uint64(1) << uint(H+1)
		count := 0
		for a := lo + 1; a < hi; a += 2 {
			addr := uint256.NewInt(a)
			if LevelOf(addr) == H {
				count++
			}
		}
		want := 1 << uint(H-1)
		if count != want {
			t.Fatalf("level %d: counted %d odd addresses, want %d", H, count, want)
		}
	}
	_ = maxH
}

func TestPointToHzAtLevelFullRes(t *testing.T) {
	bm := mustBitmask(t, "V0101010101", 2)
	hz := New(bm)
	p := pointn.Point{5, 9}
	for H := 1; H <= bm.MaxH(); H++ {
		addr := hz.PointToHzAtLevel(p, H)
		if LevelOf(addr) != H {
			t.Fatalf("PointToHzAtLevel(%v, %d): level = %d, want %d", p, H, LevelOf(addr), H)
		}
	}
}

// TestPointToHzRoundTripProperty is invariant 1 (PointToHz/HzToPoint are
// mutual inverses over the whole lattice, not just the fixed table above)
// checked with pgregory.net/rapid over random points in-bounds for a
// V0101010101 bitmask.
func TestPointToHzRoundTripProperty(t *testing.T) {
	bm := mustBitmask(t, "V0101010101", 2)
	hz := New(bm)
	dims := bm.Pow2Dims()
	rapid.Check(t, func(rt *rapid.T) {
		p := pointn.Point{
			rapid.Int64Range(0, dims[0]-1).Draw(rt, "x"),
			rapid.Int64Range(0, dims[1]-1).Draw(rt, "y"),
		}
		addr := hz.PointToHz(p)
		got := hz.HzToPoint(addr)
		if !got.Equal(p) {
			rt.Fatalf("HzToPoint(PointToHz(%v)) = %v", p, got)
		}
	})
}

func TestZToHzRootIsOne(t *testing.T) {
	bm := mustBitmask(t, "V0101010101", 2)
	z := new(uint256.Int)
	addr := ZToHz(z, bm.MaxH())
	if addr.Uint64() != 1 {
		t.Fatalf("ZToHz(0) = %v, want 1", addr)
	}
}
