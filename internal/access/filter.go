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

	"github.com/openvisus/idx/internal/errkind"
	"github.com/openvisus/idx/internal/query"
)

// Kernel transforms a block's decoded buffer, keyed by block id so
// stateless kernels and block-dependent ones (e.g. a per-level wavelet
// pass) both fit the same signature (§4.6 "filter").
type Kernel func(blockID int64, buf []byte) []byte

// Filter wraps another backend with a kernel applied after read and
// before write (§4.6 "filter").
type Filter struct {
	inner  query.Backend
	kernel Kernel
}

func NewFilter(inner query.Backend, kernel Kernel) *Filter {
	return &Filter{inner: inner, kernel: kernel}
}

func (f *Filter) CanRead() bool     { return f.inner.CanRead() }
func (f *Filter) CanWrite() bool    { return f.inner.CanWrite() }
func (f *Filter) BitsPerBlock() int { return f.inner.BitsPerBlock() }

func (f *Filter) ReadBlock(ctx context.Context, bq *query.BlockQuery) {
	sub := query.NewBlockQuery(bq.Dataset, bq.Field, bq.Time, bq.BlockID, query.Read, bq.Aborted)
	if !sub.Dispatch(f.inner) {
		bq.Fail(errkind.Newf(errkind.Internal, "filter: inner backend rejected block %d", bq.BlockID))
		return
	}
	f.inner.ReadBlock(ctx, sub)
	status, err := sub.Future().Wait()
	if status != query.Ok {
		bq.Fail(err)
		return
	}
	buf := sub.Buffer
	if f.kernel != nil {
		buf = f.kernel(bq.BlockID, buf)
	}
	bq.Layout = sub.Layout
	bq.Ok(buf)
}

func (f *Filter) WriteBlock(ctx context.Context, bq *query.BlockQuery) {
	buf := bq.Buffer
	if f.kernel != nil {
		buf = f.kernel(bq.BlockID, buf)
	}
	sub := query.NewBlockQuery(bq.Dataset, bq.Field, bq.Time, bq.BlockID, query.Write, bq.Aborted)
	sub.Buffer = buf
	if !sub.Dispatch(f.inner) {
		bq.Fail(errkind.Newf(errkind.Internal, "filter: inner backend rejected block %d", bq.BlockID))
		return
	}
	f.inner.WriteBlock(ctx, sub)
	status, err := sub.Future().Wait()
	if status != query.Ok {
		bq.Fail(err)
		return
	}
	bq.Ok(sub.Buffer)
}

// lookupKernel resolves a named kernel from the filter config grammar
// (§4.9). "" and "identity" both mean no transform.
func lookupKernel(name string) (Kernel, error) {
	switch name {
	case "", "identity":
		return nil, nil
	default:
		return nil, errkind.Newf(errkind.InvalidArgument, "access: unknown filter kernel %q", name)
	}
}
