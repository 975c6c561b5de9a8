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

	"github.com/holiman/uint256"

	"github.com/openvisus/idx/internal/dataset"
	"github.com/openvisus/idx/internal/errkind"
	"github.com/openvisus/idx/internal/field"
	"github.com/openvisus/idx/internal/logicsamples"
	"github.com/openvisus/idx/internal/pointn"
)

// Mode selects a block or box query's direction.
type Mode int

const (
	Read Mode = iota
	Write
)

func (m Mode) String() string {
	if m == Write {
		return "write"
	}
	return "read"
}

// Backend is the capability surface a BoxQuery needs from an Access
// implementation (§4.6). Defined here, at the consumer, rather than in the
// access package, so access can depend on query without query depending
// back on access.
type Backend interface {
	CanRead() bool
	CanWrite() bool
	BitsPerBlock() int
	ReadBlock(ctx context.Context, bq *BlockQuery)
	WriteBlock(ctx context.Context, bq *BlockQuery)
}

// BlockQuery is a single pending read or write of one HZ-aligned block
// (§3, §4.3).
type BlockQuery struct {
	Dataset *dataset.Dataset
	Field   field.Field
	Time    float64
	BlockID int64
	Mode    Mode
	Aborted Aborted

	H            int
	LogicSamples logicsamples.LogicSamples

	// Buffer holds the block's sample data: the payload to write (Mode ==
	// Write) or the decoded payload the backend fills in on Ok (Mode ==
	// Read).
	Buffer []byte
	// Layout tags how Buffer is arranged: "" for row-major, "hzorder" for
	// an HZ-laid-out block buffer (§3 Field, §4.4 Merging).
	Layout string

	status Status
	reason string
	future *Future
}

// NewBlockQuery constructs a BlockQuery in the Created state, deriving H
// and LogicSamples from the dataset's precomputed block geometry table.
func NewBlockQuery(ds *dataset.Dataset, f field.Field, time float64, blockID int64, mode Mode, aborted Aborted) *BlockQuery {
	bq := &BlockQuery{
		Dataset: ds,
		Field:   f,
		Time:    time,
		BlockID: blockID,
		Mode:    mode,
		Aborted: aborted,
		future:  NewFuture(),
		status:  Created,
	}
	bq.H = ds.BlockLevel(blockID)
	if bq.H >= 0 && bq.H <= ds.MaxH() {
		bq.LogicSamples = translateToWorldOrigin(ds, blockID, ds.BlockSamples[bq.H])
	}
	return bq
}

// translateToWorldOrigin shifts a block-local LogicSamples (§3: "origin at
// 0") by the block's world-space footprint origin, decoded from the HZ
// address range the block covers, so it can be merged against a
// world-space query buffer with the same InsertSamples kernel used for
// same-geometry buffers. This is an axis-aligned bounding-box
// approximation of the block's true footprint rather than an exact
// re-derivation of the kd-descent split box (see DESIGN.md).
func translateToWorldOrigin(ds *dataset.Dataset, blockID int64, local logicsamples.LogicSamples) logicsamples.LogicSamples {
	n := int64(1) << uint(ds.BitsPerBlock)
	start := new(uint256.Int).Mul(uint256.NewInt(uint64(blockID)), uint256.NewInt(uint64(n)))
	end := new(uint256.Int).Add(start, uint256.NewInt(uint64(n-1)))
	if start.IsZero() {
		start = uint256.NewInt(1) // address 0 names no sample
	}
	p1 := ds.Hz.HzToPoint(start)
	p2 := ds.Hz.HzToPoint(end)
	pdim := len(p1)
	origin := make(pointn.Point, pdim)
	for a := 0; a < pdim; a++ {
		if p2[a] < p1[a] {
			origin[a] = p2[a]
		} else {
			origin[a] = p1[a]
		}
	}
	lo := make(pointn.Point, pdim)
	hi := make(pointn.Point, pdim)
	for a := 0; a < pdim; a++ {
		lo[a] = local.Box.P1[a] + origin[a]
		hi[a] = local.Box.P2[a] + origin[a]
	}
	return logicsamples.LogicSamples{
		Box:   pointn.NewBox(lo, hi),
		Delta: local.Delta,
		Shift: local.Shift,
	}
}

func (bq *BlockQuery) Future() *Future  { return bq.future }
func (bq *BlockQuery) Status() Status   { return bq.status }
func (bq *BlockQuery) Reason() string   { return bq.reason }

// Dispatch validates the block query per §4.3's dispatch contract. On
// success it transitions to Running and returns true; the caller (the
// Access backend) is then responsible for eventually completing Future()
// with Ok or Failed. On failure it transitions straight to Failed and
// completes the future immediately, returning false.
func (bq *BlockQuery) Dispatch(backend Backend) bool {
	if err := bq.validate(backend); err != nil {
		bq.Fail(err)
		return false
	}
	bq.status = Running
	return true
}

func (bq *BlockQuery) validate(backend Backend) error {
	if bq.Field.Name == "" {
		return errkind.Newf(errkind.InvalidArgument, "blockquery(%d): empty field", bq.BlockID)
	}
	if !bq.LogicSamples.Valid() {
		return errkind.Newf(errkind.InvalidArgument, "blockquery(%d): invalid logic_samples", bq.BlockID)
	}
	if bq.Mode == Write && bq.Buffer == nil {
		return errkind.Newf(errkind.InvalidArgument, "blockquery(%d): write mode requires a buffer", bq.BlockID)
	}
	if backend != nil {
		if bq.Mode == Read && !backend.CanRead() {
			return errkind.Newf(errkind.InvalidArgument, "blockquery(%d): backend does not support reads", bq.BlockID)
		}
		if bq.Mode == Write && !backend.CanWrite() {
			return errkind.Newf(errkind.InvalidArgument, "blockquery(%d): backend does not support writes", bq.BlockID)
		}
		if backend.BitsPerBlock() != bq.Dataset.BitsPerBlock {
			return errkind.Newf(errkind.InvalidArgument, "blockquery(%d): backend bitsperblock %d != dataset %d", bq.BlockID, backend.BitsPerBlock(), bq.Dataset.BitsPerBlock)
		}
	}
	return nil
}

// Ok completes the block query successfully with buf as the resulting
// buffer (or, for writes, the buffer that was written). Buffer ownership
// passes from backend to caller on Ok (§3).
func (bq *BlockQuery) Ok(buf []byte) {
	bq.Buffer = buf
	bq.status = Ok
	bq.future.Complete(Ok, nil)
}

// Fail completes the block query as Failed. Per §7, the future returned by
// a dispatched block query always resolves.
func (bq *BlockQuery) Fail(err error) {
	bq.status = Failed
	bq.reason = err.Error()
	bq.future.Complete(Failed, err)
}
