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

package query

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/openvisus/idx/internal/dataset"
	"github.com/openvisus/idx/internal/errkind"
	"github.com/openvisus/idx/internal/field"
	"github.com/openvisus/idx/internal/logicsamples"
	"github.com/openvisus/idx/internal/merge"
	"github.com/openvisus/idx/internal/planner"
	"github.com/openvisus/idx/internal/pointn"
)

// BoxQuery is a progressive, resolution-staged box query (§3, §4.4).
type BoxQuery struct {
	Dataset         *dataset.Dataset
	Field           field.Field
	Time            float64
	LogicBox        pointn.Box
	Mode            Mode
	Aborted         Aborted
	EndResolutions  []int
	StartResolution int

	status             Status
	reason             string
	currentResolution  int
	endResolutionIndex int
	logicSamples       logicsamples.LogicSamples
	buffer             []byte
	backend            Backend
}

// NewBoxQuery constructs a BoxQuery in the Created state. EndResolutions
// defaults to [MaxH] (§4.4 "Construction").
func NewBoxQuery(ds *dataset.Dataset, f field.Field, time float64, logicBox pointn.Box, mode Mode, aborted Aborted) *BoxQuery {
	return &BoxQuery{
		Dataset:        ds,
		Field:          f,
		Time:           time,
		LogicBox:       logicBox,
		Mode:           mode,
		Aborted:        aborted,
		EndResolutions: []int{ds.MaxH()},
	}
}

func (q *BoxQuery) Status() Status            { return q.status }
func (q *BoxQuery) Reason() string            { return q.reason }
func (q *BoxQuery) Buffer() []byte            { return q.buffer }
func (q *BoxQuery) CurrentResolution() int    { return q.currentResolution }
func (q *BoxQuery) LogicSamples() logicsamples.LogicSamples { return q.logicSamples }

// Begin validates the query and aligns it to its first end_resolution's
// level geometry (§4.4 "begin_box_query contract").
func (q *BoxQuery) Begin(backend Backend) error {
	if _, ok := q.Dataset.FindField(q.Field.Name); !ok {
		return q.fail(errkind.Newf(errkind.InvalidArgument, "boxquery: unknown field %q", q.Field.Name))
	}
	if len(q.Dataset.Timesteps) > 0 && !q.Dataset.HasTimestep(q.Time) {
		return q.fail(errkind.Newf(errkind.InvalidArgument, "boxquery: undeclared timestep %v", q.Time))
	}
	if q.LogicBox.Intersection(q.Dataset.Box).IsEmpty() {
		return q.fail(errkind.Newf(errkind.InvalidArgument, "boxquery: box does not intersect dataset"))
	}
	if len(q.EndResolutions) == 0 {
		return q.fail(errkind.Newf(errkind.InvalidArgument, "boxquery: end_resolutions must be non-empty"))
	}
	for _, r := range q.EndResolutions {
		if r < 0 || r > q.Dataset.MaxH() {
			return q.fail(errkind.Newf(errkind.InvalidArgument, "boxquery: end_resolution %d out of range [0,%d]", r, q.Dataset.MaxH()))
		}
	}
	if q.StartResolution > 0 {
		if len(q.EndResolutions) != 1 || q.EndResolutions[0] != q.StartResolution {
			return q.fail(errkind.Newf(errkind.InvalidArgument, "boxquery: start_resolution>0 requires exactly one matching end_resolution"))
		}
	}
	q.backend = backend
	q.endResolutionIndex = 0
	if err := q.setEndResolution(q.EndResolutions[0]); err != nil {
		return q.fail(err)
	}
	q.currentResolution = q.StartResolution - 1
	q.status = Running
	return nil
}

func (q *BoxQuery) setEndResolution(r int) error {
	inter := q.LogicBox.Intersection(q.Dataset.Box)
	aligned := q.Dataset.LevelSamples[r].AlignBox(inter)
	if aligned.IsEmpty() {
		return errkind.Newf(errkind.InvalidArgument, "boxquery: end_resolution %d aligns to an empty box", r)
	}
	q.logicSamples = logicsamples.LogicSamples{
		Box:   aligned,
		Delta: q.Dataset.LevelSamples[r].Delta,
		Shift: q.Dataset.LevelSamples[r].Shift,
	}
	return nil
}

// Execute runs one resolution pass: enumerates the blocks the current pass
// needs, dispatches them through the backend, and merges completions into
// the query buffer (§4.4 "execute_box_query contract").
func (q *BoxQuery) Execute(ctx context.Context) error {
	if q.status != Running {
		return q.fail(errkind.Newf(errkind.Internal, "boxquery: execute called outside Running state"))
	}
	endRes := q.EndResolutions[q.endResolutionIndex]
	if q.currentResolution >= endRes {
		return q.fail(errkind.Newf(errkind.InvalidArgument, "boxquery: not advancing (current=%d end=%d)", q.currentResolution, endRes))
	}
	if isAborted(q.Aborted) {
		return q.fail(errkind.Newf(errkind.Aborted, "boxquery: aborted"))
	}

	q.EnsureBuffer()

	blockIDs := planner.Enumerate(q.Dataset, q.logicSamples.Box, q.currentResolution, endRes)

	g, gctx := errgroup.WithContext(ctx)
	for _, id := range blockIDs {
		id := id
		g.Go(func() error {
			return q.runBlock(gctx, id)
		})
	}
	if err := g.Wait(); err != nil {
		return q.fail(err)
	}
	if isAborted(q.Aborted) {
		return q.fail(errkind.Newf(errkind.Aborted, "boxquery: aborted"))
	}
	q.currentResolution = endRes
	return nil
}

// runBlock dispatches and merges a single block. Block-level failures are
// absorbed (§7 propagation policy): only an Aborted or Internal condition
// propagates to the enclosing errgroup.
func (q *BoxQuery) runBlock(ctx context.Context, blockID int64) error {
	if isAborted(q.Aborted) {
		return errkind.Newf(errkind.Aborted, "boxquery: aborted")
	}
	bq := NewBlockQuery(q.Dataset, q.Field, q.Time, blockID, q.Mode, q.Aborted)
	if q.Mode == Write {
		bq.Buffer = make([]byte, bq.LogicSamples.TotalSamples()*int64(q.Field.ByteSize()))
		merge.InsertSamples(bq.LogicSamples, bq.Buffer, q.logicSamples, q.buffer, q.Field.ByteSize())
	}
	if !bq.Dispatch(q.backend) {
		return nil // invalid block query: leaves the region at default fill
	}
	if q.Mode == Read {
		q.backend.ReadBlock(ctx, bq)
	} else {
		q.backend.WriteBlock(ctx, bq)
	}
	status, _ := bq.Future().Wait()
	if status != Ok || q.Mode == Write {
		return nil
	}
	if bq.Layout == "hzorder" {
		merge.HzToRowMajor(q.Dataset.Hz, bq.BlockID, q.Dataset.BitsPerBlock, bq.Buffer, q.Field.ByteSize(), q.logicSamples, q.buffer, false)
	} else {
		merge.InsertSamples(q.logicSamples, q.buffer, bq.LogicSamples, bq.Buffer, q.Field.ByteSize())
	}
	return nil
}

// Next advances to the next target resolution, resetting the buffer (no
// cross-resolution in-place refinement, design note 3) — or completes the
// query as Ok if the last end_resolution was reached.
func (q *BoxQuery) Next() error {
	if q.status != Running {
		return errkind.Newf(errkind.Internal, "boxquery: next called outside Running state")
	}
	endRes := q.EndResolutions[q.endResolutionIndex]
	if q.currentResolution != endRes {
		return errkind.Newf(errkind.Internal, "boxquery: next called before reaching end_resolution")
	}
	if q.endResolutionIndex == len(q.EndResolutions)-1 {
		q.status = Ok
		return nil
	}
	q.endResolutionIndex++
	if err := q.setEndResolution(q.EndResolutions[q.endResolutionIndex]); err != nil {
		return q.fail(err)
	}
	q.buffer = nil
	return nil
}

// EnsureBuffer allocates the query buffer if it hasn't been already, sized
// to the current resolution pass's logic_samples. Write-mode callers fill
// it with the data to write before calling Execute; for reads it starts at
// the field's default (zero) fill.
func (q *BoxQuery) EnsureBuffer() []byte {
	if q.buffer == nil {
		size := q.logicSamples.TotalSamples() * int64(q.Field.ByteSize())
		q.buffer = make([]byte, size)
	}
	return q.buffer
}

func (q *BoxQuery) fail(err error) error {
	q.status = Failed
	q.reason = err.Error()
	return err
}
