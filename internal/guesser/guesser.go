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

// Package guesser picks the target resolution list for a viewer frustum
// (§4.7), and the Google-Maps-style tile resolution for 2D slippy-map
// layouts (§4.12).
package guesser

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/openvisus/idx/internal/dataset"
	"github.com/openvisus/idx/internal/pointn"
)

// maxTextureDim caps the screen-space extent a single pass is allowed to
// target, mirroring the 3D-texture upload-size ceiling real viewers hit.
const maxTextureDim = 2048

// Options tunes a guess beyond the frustum and world box alone.
type Options struct {
	// Quality shifts the computed end resolution: positive asks for more
	// detail than the 1:1 screen-to-sample heuristic would pick, negative
	// asks for less.
	Quality int
	// Progression is the number of evenly spaced passes to request before
	// endh, each striding pdim levels apart (§4.7 "progressive list").
	Progression int
	// MaxZoom caps a Google-Maps-style guess (GoogleMapsResolution) to a
	// dataset's highest published tile zoom.
	MaxZoom int
}

// Frustum is a view-projection transform plus the viewport it was built
// for. Corners project through ViewProj into clip space; Guess reads back
// the resulting screen footprint of a world-space box.
type Frustum struct {
	ViewProj         *mat.Dense // 4x4
	ViewportW, ViewportH float64
}

// project maps one world-space corner through the frustum's view-proj
// matrix and perspective-divides down to screen pixels.
func (fr Frustum) project(world [3]float64) (x, y float64, ok bool) {
	clip := mat.NewVecDense(4, []float64{world[0], world[1], world[2], 1})
	out := mat.NewVecDense(4, nil)
	out.MulVec(fr.ViewProj, clip)
	w := out.AtVec(3)
	if w == 0 {
		return 0, 0, false
	}
	ndcX := out.AtVec(0) / w
	ndcY := out.AtVec(1) / w
	x = (ndcX*0.5 + 0.5) * fr.ViewportW
	y = (1 - (ndcY*0.5 + 0.5)) * fr.ViewportH
	return x, y, true
}

// corners enumerates the 8 corners of a 3-axis box; axes beyond the third
// are held at their box minimum, matching how a viewer frustum only ever
// frames the first three spatial axes of a dataset.
func corners(box pointn.Box) [][3]float64 {
	lo := [3]float64{}
	hi := [3]float64{}
	for a := 0; a < 3 && a < box.PDim(); a++ {
		lo[a] = float64(box.P1[a])
		hi[a] = float64(box.P2[a])
	}
	out := make([][3]float64, 0, 8)
	for i := 0; i < 8; i++ {
		var c [3]float64
		for a := 0; a < 3; a++ {
			if i&(1<<uint(a)) != 0 {
				c[a] = hi[a]
			} else {
				c[a] = lo[a]
			}
		}
		out = append(out, c)
	}
	return out
}

// screenFootprint projects box's corners through fr and returns the
// resulting screen-space axis-aligned extent in pixels.
func screenFootprint(fr Frustum, box pointn.Box) (w, h float64) {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	any := false
	for _, c := range corners(box) {
		x, y, ok := fr.project(c)
		if !ok {
			continue
		}
		any = true
		minX, maxX = math.Min(minX, x), math.Max(maxX, x)
		minY, maxY = math.Min(minY, y), math.Max(maxY, y)
	}
	if !any {
		return 0, 0
	}
	w = math.Min(maxX-minX, maxTextureDim)
	h = math.Min(maxY-minY, maxTextureDim)
	return
}

// Guess computes the resolution this view should render at, given ds's
// level geometry and box, the viewing frustum, and opts. It returns a
// non-empty ascending list of target resolutions (§4.7 "progressive
// list"), clamped to [0, ds.MaxH()].
func Guess(ds *dataset.Dataset, box pointn.Box, fr Frustum, opts Options) []int {
	endH := ds.MaxH()
	w, h := screenFootprint(fr, box)
	if w > 0 && h > 0 {
		for H := ds.MaxH(); H > 0; H-- {
			ls := ds.LevelSamples[H]
			nx := float64(ls.NSamples()[0])
			ny := float64(1)
			if len(ls.NSamples()) > 1 {
				ny = float64(ls.NSamples()[1])
			}
			sppX := nx / w
			sppY := ny / h
			if math.Sqrt(sppX*sppY) >= 1 {
				endH = H
				break
			}
			endH = 0
		}
	}
	endH += opts.Quality
	if endH < 0 {
		endH = 0
	}
	if endH > ds.MaxH() {
		endH = ds.MaxH()
	}

	pdim := ds.PDim()
	progression := opts.Progression
	if progression < 0 {
		progression = 0
	}
	out := make([]int, 0, progression+1)
	for i := progression; i >= 0; i-- {
		r := endH - i*pdim
		if r < 0 {
			continue
		}
		out = append(out, r)
	}
	if len(out) == 0 || out[len(out)-1] != endH {
		out = append(out, endH)
	}
	return dedupAscending(out, ds.MaxH())
}

func dedupAscending(in []int, maxH int) []int {
	out := make([]int, 0, len(in))
	seen := make(map[int]bool, len(in))
	for _, v := range in {
		if v < 0 {
			v = 0
		}
		if v > maxH {
			v = maxH
		}
		if seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j] < out[j-1]; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

// RoundToEven rounds h down to the nearest even resolution. Google Maps
// style 2D tile layouts only ever address even HZ levels, one quadrant
// split per zoom step on two axes at once (§4.12).
func RoundToEven(h int) int {
	if h%2 != 0 {
		return h - 1
	}
	return h
}

// GoogleMapsResolution converts a slippy-map zoom level into the dataset
// resolution a tile request at that zoom should target: two bits of HZ
// depth per zoom level (one quadrant split per axis), rounded to an even
// level and capped by opts.MaxZoom (§4.12).
func GoogleMapsResolution(ds *dataset.Dataset, zoom int, opts Options) int {
	if opts.MaxZoom > 0 && zoom > opts.MaxZoom {
		zoom = opts.MaxZoom
	}
	h := RoundToEven(zoom * 2)
	if h > ds.MaxH() {
		h = RoundToEven(ds.MaxH())
	}
	if h < 0 {
		h = 0
	}
	return h
}
