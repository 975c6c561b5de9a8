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

package planner

import (
	"strings"
	"testing"

	"github.com/openvisus/idx/internal/bitmask"
	"github.com/openvisus/idx/internal/dataset"
	"github.com/openvisus/idx/internal/field"
	"github.com/openvisus/idx/internal/pointn"
)

func newTestDataset(t *testing.T) *dataset.Dataset {
	t.Helper()
	bm, err := bitmask.Parse("V0101010101", 2)
	if err != nil {
		t.Fatalf("bitmask.Parse: %v", err)
	}
	fields := []field.Field{{Name: "data", DType: field.U8, NumComps: 1}}
	ds, err := dataset.New(bm, 4, true, fields, nil)
	if err != nil {
		t.Fatalf("dataset.New: %v", err)
	}
	return ds
}

func TestEnumerateIncludesBlockZeroAtCoarseLevels(t *testing.T) {
	ds := newTestDataset(t)
	box := ds.Box
	ids := Enumerate(ds, box, -1, 2)
	found := false
	for _, id := range ids {
		if id == 0 {
			found = true
		}
	}
	if !found {
		t.Fatal("expected block 0 to be enumerated for a coarse resolution pass")
	}
}

func TestEnumerateRespectsBoxFootprint(t *testing.T) {
	ds := newTestDataset(t)
	tiny := pointn.NewBox(pointn.Point{0, 0}, pointn.Point{1, 1})
	full := ds.Box
	idsTiny := Enumerate(ds, tiny, ds.BitsPerBlock, ds.MaxH())
	idsFull := Enumerate(ds, full, ds.BitsPerBlock, ds.MaxH())
	if len(idsTiny) > len(idsFull) {
		t.Fatalf("tiny box enumerated more blocks (%d) than full box (%d)", len(idsTiny), len(idsFull))
	}
}

func TestDebugGraphContainsBlocks(t *testing.T) {
	out := DebugGraph([]int64{1, 2, 3})
	for _, want := range []string{"block_1", "block_2", "block_3"} {
		if !strings.Contains(out, want) {
			t.Fatalf("debug graph missing %q:\n%s", want, out)
		}
	}
}
