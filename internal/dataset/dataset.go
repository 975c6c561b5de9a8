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

// Package dataset owns a dataset's bitmask, HZ order, field set, time axis,
// and the precomputed per-level and per-block LogicSamples tables every
// query operation is built on.
package dataset

import (
	"math/bits"

	"github.com/openvisus/idx/internal/bitmask"
	"github.com/openvisus/idx/internal/errkind"
	"github.com/openvisus/idx/internal/field"
	"github.com/openvisus/idx/internal/hzorder"
	"github.com/openvisus/idx/internal/logicsamples"
	"github.com/openvisus/idx/internal/pointn"
)

// Dataset is immutable after construction and freely shareable across
// goroutines (design notes §5: "Dataset handles are immutable after open").
type Dataset struct {
	Bitmask      *bitmask.Bitmask
	Hz           *hzorder.HzOrder
	BitsPerBlock int
	FullRes      bool
	Fields       []field.Field
	Timesteps    []float64
	Box          pointn.Box

	// LevelSamples[H] and BlockSamples[H] are indexed by resolution level,
	// H in [0, MaxH].
	LevelSamples []logicsamples.LogicSamples
	BlockSamples []logicsamples.LogicSamples
}

// New builds a Dataset from an already-parsed bitmask plus field and time
// metadata, precomputing the level geometry tables (§4.1).
func New(bm *bitmask.Bitmask, bitsPerBlock int, fullRes bool, fields []field.Field, timesteps []float64) (*Dataset, error) {
	if bitsPerBlock < 0 || bitsPerBlock > bm.MaxH() {
		return nil, errkind.Newf(errkind.InvalidArgument, "dataset: bitsperblock %d out of range [0,%d]", bitsPerBlock, bm.MaxH())
	}
	if len(fields) == 0 {
		return nil, errkind.Newf(errkind.InvalidArgument, "dataset: at least one field is required")
	}
	hz := hzorder.New(bm)
	pow2 := bm.Pow2Dims()
	box := pointn.NewBox(make(pointn.Point, bm.PDim()), pow2)
	ds := &Dataset{
		Bitmask:      bm,
		Hz:           hz,
		BitsPerBlock: bitsPerBlock,
		FullRes:      fullRes,
		Fields:       fields,
		Timesteps:    timesteps,
		Box:          box,
	}
	ds.LevelSamples = buildLevelSamples(ds)
	ds.BlockSamples = buildBlockSamples(ds)
	return ds, nil
}

func (ds *Dataset) MaxH() int { return ds.Bitmask.MaxH() }

func (ds *Dataset) PDim() int { return ds.Bitmask.PDim() }

// FindField looks up a field by name.
func (ds *Dataset) FindField(name string) (field.Field, bool) {
	for _, f := range ds.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return field.Field{}, false
}

// HasTimestep reports whether t is one of the dataset's declared timesteps.
func (ds *Dataset) HasTimestep(t float64) bool {
	for _, ts := range ds.Timesteps {
		if ts == t {
			return true
		}
	}
	return false
}

// BlockLevel returns the resolution level a block belongs to (§3 "Block").
// Block 0 is special: it spans every level from 0 to bitsperblock
// inclusive, so its own "level" is reported as bitsperblock, the finest
// level it fully covers.
func (ds *Dataset) BlockLevel(blockid int64) int {
	if blockid == 0 {
		return ds.BitsPerBlock
	}
	if ds.FullRes {
		return ds.BitsPerBlock + floorLog2(1+blockid)
	}
	return ds.BitsPerBlock + 1 + floorLog2(blockid)
}

func floorLog2(v int64) int {
	if v <= 0 {
		return 0
	}
	return bits.Len64(uint64(v)) - 1
}
