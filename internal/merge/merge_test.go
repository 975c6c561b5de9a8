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

package merge

import (
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/google/go-cmp/cmp"
	"pgregory.net/rapid"

	"github.com/openvisus/idx/internal/bitmask"
	"github.com/openvisus/idx/internal/hzorder"
	"github.com/openvisus/idx/internal/logicsamples"
	"github.com/openvisus/idx/internal/pointn"
)

// TestInsertSamplesSimpleCopy copies a small block's contents into a
// same-geometry query buffer.
func TestInsertSamplesSimpleCopy(t *testing.T) {
	w := logicsamples.LogicSamples{
		Box:   pointn.NewBox(pointn.Point{0}, pointn.Point{8}),
		Delta: pointn.Point{1},
		Shift: pointn.Point{0},
	}
	r := w
	wbuf := make([]byte, 8)
	rbuf := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	InsertSamples(w, wbuf, r, rbuf, 1)
	for i := range wbuf {
		if wbuf[i] != rbuf[i] {
			t.Fatalf("wbuf[%d] = %d, want %d", i, wbuf[i], rbuf[i])
		}
	}
}

// TestInsertSamplesScenarioS6 mirrors spec scenario S6: W-delta=6, R-delta=5,
// intersection [0,64), origins 0 on both sides -> the only merged
// coordinate is 30 (lcm(6,5) = 30).
func TestInsertSamplesScenarioS6(t *testing.T) {
	w := logicsamples.LogicSamples{
		Box:   pointn.NewBox(pointn.Point{0}, pointn.Point{64}),
		Delta: pointn.Point{6},
		Shift: pointn.Point{0},
	}
	r := logicsamples.LogicSamples{
		Box:   pointn.NewBox(pointn.Point{0}, pointn.Point{64}),
		Delta: pointn.Point{5},
		Shift: pointn.Point{0},
	}
	wn := w.NSamples()[0]
	rn := r.NSamples()[0]
	wbuf := make([]byte, wn)
	rbuf := make([]byte, rn)
	for i := range rbuf {
		rbuf[i] = 0xFF
	}
	InsertSamples(w, wbuf, r, rbuf, 1)
	touched := 0
	for i, v := range wbuf {
		if v != 0 {
			touched++
			logic := w.PixelToLogic(pointn.Point{int64(i)})
			if logic[0] != 30 {
				t.Fatalf("unexpected merged coordinate %d, want 30", logic[0])
			}
		}
	}
	if touched != 1 {
		t.Fatalf("touched %d cells, want exactly 1", touched)
	}
}

func TestInsertSamplesIdempotent(t *testing.T) {
	w := logicsamples.LogicSamples{Box: pointn.NewBox(pointn.Point{0}, pointn.Point{20}), Delta: pointn.Point{1}, Shift: pointn.Point{0}}
	r := w
	wbuf1 := make([]byte, 20)
	wbuf2 := make([]byte, 20)
	rbuf := make([]byte, 20)
	for i := range rbuf {
		rbuf[i] = byte(i)
	}
	InsertSamples(w, wbuf1, r, rbuf, 1)
	InsertSamples(w, wbuf1, r, rbuf, 1)
	InsertSamples(w, wbuf2, r, rbuf, 1)
	for i := range wbuf1 {
		if wbuf1[i] != wbuf2[i] {
			t.Fatalf("not idempotent at %d", i)
		}
	}
}

// TestInsertSamplesIdempotentProperty generalizes TestInsertSamplesIdempotent
// (invariant 6: re-running InsertSamples against an unchanged source buffer
// never changes the destination) across random box widths and deltas.
func TestInsertSamplesIdempotentProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		width := rapid.Int64Range(4, 64).Draw(rt, "width")
		delta := rapid.Int64Range(1, 8).Draw(rt, "delta")
		w := logicsamples.LogicSamples{Box: pointn.NewBox(pointn.Point{0}, pointn.Point{width}), Delta: pointn.Point{delta}, Shift: pointn.Point{0}}
		r := w
		n := w.NSamples()[0]
		rbuf := make([]byte, n)
		for i := range rbuf {
			rbuf[i] = byte(i)
		}
		wbuf1 := make([]byte, n)
		wbuf2 := make([]byte, n)
		InsertSamples(w, wbuf1, r, rbuf, 1)
		InsertSamples(w, wbuf1, r, rbuf, 1)
		InsertSamples(w, wbuf2, r, rbuf, 1)
		if diff := cmp.Diff(wbuf1, wbuf2); diff != "" {
			rt.Fatalf("width=%d delta=%d: re-running InsertSamples changed the result (-first +second):\n%s\nbuffers: %s",
				width, delta, diff, spew.Sdump(wbuf1, wbuf2))
		}
	})
}

func TestHzToRowMajorRoundTrip(t *testing.T) {
	bm, err := bitmask.Parse("V0101010101", 2)
	if err != nil {
		t.Fatalf("bitmask.Parse: %v", err)
	}
	hz := hzorder.New(bm)
	q := logicsamples.LogicSamples{
		Box:   pointn.NewBox(pointn.Point{0, 0}, pointn.Point{32, 32}),
		Delta: pointn.Point{1, 1},
		Shift: pointn.Point{0, 0},
	}
	qn := q.TotalSamples()
	blockBuf := make([]byte, 1<<10)
	for i := range blockBuf {
		blockBuf[i] = byte(i)
	}
	qbuf := make([]byte, qn)
	HzToRowMajor(hz, 0, 10, blockBuf, 1, q, qbuf, false)

	qbuf2 := make([]byte, qn)
	blockBuf2 := make([]byte, 1<<10)
	HzToRowMajor(hz, 0, 10, blockBuf2, 1, q, qbuf, true)
	HzToRowMajor(hz, 0, 10, blockBuf2, 1, q, qbuf2, false)
	for i := range qbuf {
		if qbuf[i] != qbuf2[i] {
			t.Fatalf("round-trip mismatch at %d: %d != %d", i, qbuf[i], qbuf2[i])
		}
	}
}
