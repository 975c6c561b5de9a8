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

// Package planner enumerates the minimal set of blocks a box query must
// touch for a target resolution pass (§4.4 step 3).
package planner

import (
	"fmt"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/emicklei/dot"
	"github.com/holiman/uint256"

	"github.com/openvisus/idx/internal/dataset"
	"github.com/openvisus/idx/internal/pointn"
)

// Enumerate returns, in no particular order, the block ids whose level H
// falls in (fromH, toH] and whose footprint intersects box. Block 0 is
// special: it is emitted whenever the range reaches down to a level at or
// below bitsperblock, since it covers every level up to bitsperblock
// simultaneously.
func Enumerate(ds *dataset.Dataset, box pointn.Box, fromH, toH int) []int64 {
	seen := mapset.NewThreadUnsafeSet[int64]()
	var out []int64

	if fromH < ds.BitsPerBlock && toH >= 0 {
		if footprintOverlaps(ds, 0, box) && seen.Add(0) {
			out = append(out, 0)
		}
	}

	maxBlockID := int64(1) << uint(max(0, toH-ds.BitsPerBlock+1))
	for id := int64(1); id <= maxBlockID; id++ {
		level := ds.BlockLevel(id)
		if level <= fromH || level > toH {
			continue
		}
		if !footprintOverlaps(ds, id, box) {
			continue
		}
		if seen.Add(id) {
			out = append(out, id)
		}
	}
	return out
}

// footprintOverlaps reports whether blockID's address range, decoded back
// to logic-space points, overlaps box.
func footprintOverlaps(ds *dataset.Dataset, blockID int64, box pointn.Box) bool {
	n := int64(1) << uint(ds.BitsPerBlock)
	start := new(uint256.Int).Mul(uint256.NewInt(uint64(blockID)), uint256.NewInt(uint64(n)))
	end := new(uint256.Int).Add(start, uint256.NewInt(uint64(n-1)))
	if start.IsZero() {
		start = uint256.NewInt(1) // address 0 names no sample
	}
	p1 := ds.Hz.HzToPoint(start)
	p2 := ds.Hz.HzToPoint(end)
	pdim := len(p1)
	lo := make(pointn.Point, pdim)
	hi := make(pointn.Point, pdim)
	for a := 0; a < pdim; a++ {
		lo[a] = min64(p1[a], p2[a])
		hi[a] = max64(p1[a], p2[a]) + 1
	}
	bbox := pointn.NewBox(lo, hi)
	return !bbox.Intersection(box).IsEmpty()
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

// DebugGraph renders the enumerated block set as a Graphviz dot document,
// root fanning out to every emitted block: a planner troubleshooting aid,
// not part of the query path.
func DebugGraph(blockIDs []int64) string {
	g := dot.NewGraph(dot.Directed)
	root := g.Node("root")
	for _, id := range blockIDs {
		n := g.Node(fmt.Sprintf("block_%d", id))
		root.Edge(n)
	}
	return g.String()
}
