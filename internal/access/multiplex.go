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

package access

import (
	"context"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/openvisus/idx/internal/dataset"
	"github.com/openvisus/idx/internal/errkind"
	"github.com/openvisus/idx/internal/query"
)

// Multiplex tries an ordered list of child backends in turn (§4.6
// "multiplex"), typically a RAM cache in front of a slower disk or
// network backend. Reads stop at the first child that has the block;
// writes fan out to every writable child.
type Multiplex struct {
	children []query.Backend
	bpb      int
}

func NewMultiplex(ds *dataset.Dataset, children []query.Backend) *Multiplex {
	return &Multiplex{children: children, bpb: ds.BitsPerBlock}
}

func (m *Multiplex) CanRead() bool {
	for _, c := range m.children {
		if c.CanRead() {
			return true
		}
	}
	return false
}

func (m *Multiplex) CanWrite() bool {
	for _, c := range m.children {
		if c.CanWrite() {
			return true
		}
	}
	return false
}

func (m *Multiplex) BitsPerBlock() int { return m.bpb }

func (m *Multiplex) ReadBlock(ctx context.Context, bq *query.BlockQuery) {
	tried := mapset.NewThreadUnsafeSet[int]()
	for i, c := range m.children {
		if !c.CanRead() {
			continue
		}
		tried.Add(i)
		sub := query.NewBlockQuery(bq.Dataset, bq.Field, bq.Time, bq.BlockID, query.Read, bq.Aborted)
		if !sub.Dispatch(c) {
			continue
		}
		c.ReadBlock(ctx, sub)
		status, _ := sub.Future().Wait()
		if status == query.Ok {
			bq.Layout = sub.Layout
			bq.Ok(sub.Buffer)
			return
		}
	}
	bq.Fail(errkind.Newf(errkind.NotFound, "multiplex: block %d not found in any of %d readable children", bq.BlockID, tried.Cardinality()))
}

func (m *Multiplex) WriteBlock(ctx context.Context, bq *query.BlockQuery) {
	okAny := false
	for _, c := range m.children {
		if !c.CanWrite() {
			continue
		}
		sub := query.NewBlockQuery(bq.Dataset, bq.Field, bq.Time, bq.BlockID, query.Write, bq.Aborted)
		sub.Buffer = bq.Buffer
		if !sub.Dispatch(c) {
			continue
		}
		c.WriteBlock(ctx, sub)
		if status, _ := sub.Future().Wait(); status == query.Ok {
			okAny = true
		}
	}
	if !okAny {
		bq.Fail(errkind.Newf(errkind.BackendIO, "multiplex: block %d failed to write to every writable child", bq.BlockID))
		return
	}
	bq.Ok(bq.Buffer)
}
