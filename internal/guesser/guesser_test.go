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

package guesser

import (
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/openvisus/idx/internal/bitmask"
	"github.com/openvisus/idx/internal/dataset"
	"github.com/openvisus/idx/internal/field"
)

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

func identityFrustum(w, h float64) Frustum {
	return Frustum{ViewProj: mat.NewDense(4, 4, []float64{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}), ViewportW: w, ViewportH: h}
}

func TestGuessReturnsAscendingNonEmptyList(t *testing.T) {
	ds := newTestDataset(t)
	fr := identityFrustum(1024, 1024)
	out := Guess(ds, ds.Box, fr, Options{Progression: 2})
	if len(out) == 0 {
		t.Fatal("Guess returned an empty list")
	}
	for i := 1; i < len(out); i++ {
		if out[i] <= out[i-1] {
			t.Fatalf("resolution list not strictly ascending: %v", out)
		}
	}
	last := out[len(out)-1]
	if last < 0 || last > ds.MaxH() {
		t.Fatalf("end resolution %d out of [0,%d]", last, ds.MaxH())
	}
}

func TestGuessClampsToMaxH(t *testing.T) {
	ds := newTestDataset(t)
	fr := identityFrustum(1, 1) // tiny viewport forces very coarse samples-per-pixel
	out := Guess(ds, ds.Box, fr, Options{Quality: 1000})
	last := out[len(out)-1]
	if last != ds.MaxH() {
		t.Fatalf("end resolution = %d, want clamped to MaxH %d", last, ds.MaxH())
	}
}

func TestGuessDegradesWithQuality(t *testing.T) {
	ds := newTestDataset(t)
	fr := identityFrustum(1024, 1024)
	hi := Guess(ds, ds.Box, fr, Options{Quality: 0})
	lo := Guess(ds, ds.Box, fr, Options{Quality: -4})
	if lo[len(lo)-1] > hi[len(hi)-1] {
		t.Fatalf("negative quality should not increase end resolution: lo=%v hi=%v", lo, hi)
	}
}

func TestRoundToEven(t *testing.T) {
	cases := map[int]int{0: 0, 1: 0, 2: 2, 3: 2, 10: 10, 11: 10}
	for in, want := range cases {
		if got := RoundToEven(in); got != want {
			t.Errorf("RoundToEven(%d) = %d, want %d", in, got, want)
		}
	}
}

func TestGoogleMapsResolutionCapsAtMaxZoom(t *testing.T) {
	ds := newTestDataset(t)
	got := GoogleMapsResolution(ds, 50, Options{MaxZoom: 3})
	want := RoundToEven(3 * 2)
	if got != want {
		t.Fatalf("GoogleMapsResolution = %d, want %d", got, want)
	}
}

func TestGoogleMapsResolutionEvenAndInRange(t *testing.T) {
	ds := newTestDataset(t)
	for zoom := 0; zoom < 20; zoom++ {
		h := GoogleMapsResolution(ds, zoom, Options{})
		if h%2 != 0 {
			t.Fatalf("GoogleMapsResolution(%d) = %d, not even", zoom, h)
		}
		if h < 0 || h > ds.MaxH() {
			t.Fatalf("GoogleMapsResolution(%d) = %d, out of range", zoom, h)
		}
	}
}
