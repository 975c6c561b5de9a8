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

// Package merge copies samples between row-major buffers (insert_samples)
// and between an HZ-laid-out block buffer and a row-major query buffer
// (the HZ-to-rowmajor converter), per §4.5. Both kernels move raw
// elemSize-byte runs rather than dispatching on a concrete Go numeric
// type: copying never needs to interpret a sample's value, only its width,
// so the tagged-dtype-enum dispatch design note (§9) collapses to a single
// byte-width parameter here.
package merge

import (
	"github.com/openvisus/idx/internal/logicsamples"
	"github.com/openvisus/idx/internal/pointn"
)

// InsertSamples copies every lattice point W and R have in common from rbuf
// into wbuf. W and R need not share the same delta: the common lattice is
// found by aligning to lcm(Wdelta, Rdelta) per axis. If any axis has no
// congruent point within the intersection, the two queries share no
// samples and InsertSamples is a no-op.
func InsertSamples(w logicsamples.LogicSamples, wbuf []byte, r logicsamples.LogicSamples, rbuf []byte, elemSize int) {
	pdim := w.Box.PDim()
	inter := w.Box.Intersection(r.Box)
	if inter.IsEmpty() {
		return
	}
	delta := make(pointn.Point, pdim)
	p1 := make(pointn.Point, pdim)
	for a := 0; a < pdim; a++ {
		ld := pointn.Lcm(w.Delta[a], r.Delta[a])
		delta[a] = ld
		aligned, ok := firstCommonAligned(inter.P1[a], inter.P2[a], w.Box.P1[a], w.Delta[a], r.Box.P1[a], r.Delta[a])
		if !ok {
			return
		}
		p1[a] = aligned
	}
	box := pointn.NewBox(p1, inter.P2)

	nsamples := make([]int64, pdim)
	total := int64(1)
	for a := 0; a < pdim; a++ {
		if box.P2[a] <= box.P1[a] {
			return
		}
		nsamples[a] = ceilDiv(box.P2[a]-box.P1[a], delta[a])
		total *= nsamples[a]
	}

	wns := w.NSamples()
	rns := r.NSamples()
	idx := make([]int64, pdim)
	logic := make(pointn.Point, pdim)
	for n := int64(0); n < total; n++ {
		rem := n
		for a := pdim - 1; a >= 0; a-- {
			idx[a] = rem % nsamples[a]
			rem /= nsamples[a]
		}
		for a := 0; a < pdim; a++ {
			logic[a] = box.P1[a] + idx[a]*delta[a]
		}
		wpix := w.LogicToPixel(logic)
		rpix := r.LogicToPixel(logic)
		if !inBounds(wpix, wns) || !inBounds(rpix, rns) {
			continue
		}
		woff := flatOffset(wpix, wns) * int64(elemSize)
		roff := flatOffset(rpix, rns) * int64(elemSize)
		if woff < 0 || roff < 0 || int(woff)+elemSize > len(wbuf) || int(roff)+elemSize > len(rbuf) {
			continue
		}
		copy(wbuf[woff:woff+int64(elemSize)], rbuf[roff:roff+int64(elemSize)])
	}
}

// firstCommonAligned finds the smallest x in [lo,hi) congruent to ap mod ad
// and to bp mod bd. The search space is bounded by lcm(ad,bd)/ad
// candidates, per §4.5's "bounded above by lcm(Wdelta,Rdelta)".
func firstCommonAligned(lo, hi, ap, ad, bp, bd int64) (int64, bool) {
	start := ap + ceilDiv(lo-ap, ad)*ad
	lcm := pointn.Lcm(ad, bd)
	steps := lcm / ad
	if steps <= 0 {
		steps = 1
	}
	for x := start; x < hi; x += ad {
		if mod(x-bp, bd) == 0 {
			return x, true
		}
		if x-start >= lcm {
			break
		}
	}
	return 0, false
}

func mod(a, b int64) int64 {
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}

func ceilDiv(a, b int64) int64 {
	if a <= 0 {
		return 0
	}
	return (a + b - 1) / b
}

func inBounds(pix pointn.Point, nsamples pointn.Point) bool {
	for a := range pix {
		if pix[a] < 0 || pix[a] >= nsamples[a] {
			return false
		}
	}
	return true
}

func flatOffset(pix pointn.Point, nsamples pointn.Point) int64 {
	var off int64
	for a := 0; a < len(pix); a++ {
		off = off*nsamples[a] + pix[a]
	}
	return off
}
