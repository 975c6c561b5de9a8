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

package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/openvisus/idx/internal/bitmask"
	"github.com/openvisus/idx/internal/dataset"
	"github.com/openvisus/idx/internal/field"
)

const testManifestYAML = `
pdim: 2
bitmask: V0101010101
bitsperblock: 10
full_res: true
fields:
  - name: data
    dtype: uint8
`

func newTestDataset(t *testing.T) *dataset.Dataset {
	t.Helper()
	bm, err := bitmask.Parse("V0101010101", 2)
	if err != nil {
		t.Fatalf("bitmask.Parse: %v", err)
	}
	fields := []field.Field{{Name: "data", DType: field.U8, NumComps: 1, Codec: field.Raw}}
	ds, err := dataset.New(bm, 10, true, fields, nil)
	if err != nil {
		t.Fatalf("dataset.New: %v", err)
	}
	return ds
}

func TestRegisterGetList(t *testing.T) {
	cat, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer cat.Close()

	ds := newTestDataset(t)
	ctx := context.Background()
	if err := cat.Register(ctx, "quake", "/data/quake/manifest.yaml", ds, 1000); err != nil {
		t.Fatalf("Register: %v", err)
	}

	e, ok, err := cat.Get(ctx, "quake")
	if err != nil || !ok {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	if e.BitsPerBlock != ds.BitsPerBlock || e.PDim != ds.PDim() || e.MaxH != ds.MaxH() {
		t.Fatalf("unexpected entry %+v", e)
	}

	if err := cat.Register(ctx, "wind", "/data/wind/manifest.yaml", ds, 2000); err != nil {
		t.Fatalf("Register(wind): %v", err)
	}
	list, err := cat.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 2 || list[0].Name != "quake" || list[1].Name != "wind" {
		t.Fatalf("unexpected list %+v", list)
	}
}

func TestRegisterUpsertsOnConflict(t *testing.T) {
	cat, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer cat.Close()
	ds := newTestDataset(t)
	ctx := context.Background()

	if err := cat.Register(ctx, "quake", "/v1/manifest.yaml", ds, 1); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := cat.Register(ctx, "quake", "/v2/manifest.yaml", ds, 2); err != nil {
		t.Fatalf("Register(again): %v", err)
	}
	e, _, _ := cat.Get(ctx, "quake")
	if e.ManifestPath != "/v2/manifest.yaml" || e.RegisteredAt != 2 {
		t.Fatalf("upsert did not take effect: %+v", e)
	}
}

func TestUnregisterRemovesEntry(t *testing.T) {
	cat, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer cat.Close()
	ds := newTestDataset(t)
	ctx := context.Background()
	cat.Register(ctx, "quake", "/data/manifest.yaml", ds, 1)

	if err := cat.Unregister(ctx, "quake"); err != nil {
		t.Fatalf("Unregister: %v", err)
	}
	_, ok, err := cat.Get(ctx, "quake")
	if err != nil || ok {
		t.Fatalf("expected no entry after unregister, ok=%v err=%v", ok, err)
	}
}

func TestLoadDatasetReparsesManifest(t *testing.T) {
	dir := t.TempDir()
	manifestPath := filepath.Join(dir, "manifest.yaml")
	if err := os.WriteFile(manifestPath, []byte(testManifestYAML), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cat, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer cat.Close()
	ds := newTestDataset(t)
	ctx := context.Background()
	if err := cat.Register(ctx, "quake", manifestPath, ds, 1); err != nil {
		t.Fatalf("Register: %v", err)
	}

	loaded, err := cat.LoadDataset(ctx, "quake")
	if err != nil {
		t.Fatalf("LoadDataset: %v", err)
	}
	if loaded.MaxH() != ds.MaxH() {
		t.Fatalf("loaded.MaxH() = %d, want %d", loaded.MaxH(), ds.MaxH())
	}
}

func TestGetUnknownNameIsNotFoundFalse(t *testing.T) {
	cat, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer cat.Close()
	_, ok, err := cat.Get(context.Background(), "nope")
	if err != nil || ok {
		t.Fatalf("expected ok=false err=nil for unknown name, got ok=%v err=%v", ok, err)
	}
}
