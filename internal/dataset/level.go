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

package dataset

import (
	"github.com/holiman/uint256"

	"github.com/openvisus/idx/internal/logicsamples"
	"github.com/openvisus/idx/internal/pointn"
)

// buildLevelSamples computes level_samples[H] for H in [0, MaxH] per the
// §4.1 level-geometry algorithm. delta[a] at level H is 2^(number of times
// axis a is still split between H and MaxH): this is the count-in-range
// window that keeps nsamples.product() == 2^H self-consistent with
// invariant 2 (DESIGN.md records the off-by-one adjustment against the
// prose's literal "mask[H..MaxH]" wording).
func buildLevelSamples(ds *Dataset) []logicsamples.LogicSamples {
	maxH := ds.MaxH()
	pdim := ds.PDim()
	out := make([]logicsamples.LogicSamples, maxH+1)
	for H := 0; H <= maxH; H++ {
		delta := make(pointn.Point, pdim)
		shift := make(pointn.Point, pdim)
		for a := 0; a < pdim; a++ {
			remaining := ds.Bitmask.CountAxisInRange(a, H+1, maxH)
			delta[a] = int64(1) << uint(remaining)
			shift[a] = int64(remaining)
		}

		var box pointn.Box
		if ds.FullRes || H == 0 {
			box = ds.Box.Clone()
		} else {
			p1 := ds.Hz.HzToPoint(firstAddrAtLevel(H))
			p2 := ds.Hz.HzToPoint(lastAddrAtLevel(H))
			lo := make(pointn.Point, pdim)
			hi := make(pointn.Point, pdim)
			for a := 0; a < pdim; a++ {
				lo[a] = min64(p1[a], p2[a])
				hi[a] = max64(p1[a], p2[a]) + delta[a]
			}
			box = pointn.NewBox(lo, hi)
		}
		out[H] = logicsamples.LogicSamples{Box: box, Delta: delta, Shift: shift}
	}
	return out
}

// buildBlockSamples computes block_samples[H]: the local (origin-at-zero)
// shape of a single block's samples at level H, per §4.1's block_nsamples
// formula. block_samples uses unit delta because it describes the block's
// own internal sample lattice, not world-space spacing.
func buildBlockSamples(ds *Dataset) []logicsamples.LogicSamples {
	maxH := ds.MaxH()
	pdim := ds.PDim()
	out := make([]logicsamples.LogicSamples, maxH+1)
	for H := 0; H <= maxH; H++ {
		nsamples := make(pointn.Point, pdim)
		lo := max(1, H-ds.BitsPerBlock+1)
		for a := 0; a < pdim; a++ {
			count := ds.Bitmask.CountAxisInRange(a, lo, H)
			nsamples[a] = int64(1) << uint(count)
		}
		delta := make(pointn.Point, pdim)
		shift := make(pointn.Point, pdim)
		for a := range delta {
			delta[a] = 1
		}
		out[H] = logicsamples.LogicSamples{
			Box:   pointn.NewBox(make(pointn.Point, pdim), nsamples),
			Delta: delta,
			Shift: shift,
		}
	}
	return out
}

func firstAddrAtLevel(H int) *uint256.Int {
	if H == 0 {
		return uint256.NewInt(1)
	}
	base := new(uint256.Int).Lsh(uint256.NewInt(1), uint(H))
	return base.Add(base, uint256.NewInt(1))
}

func lastAddrAtLevel(H int) *uint256.Int {
	if H == 0 {
		return uint256.NewInt(1)
	}
	v := new(uint256.Int).Lsh(uint256.NewInt(1), uint(H+1))
	return v.Sub(v, uint256.NewInt(1))
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
