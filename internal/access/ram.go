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
	"sync"

	"github.com/c2h5oh/datasize"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/openvisus/idx/internal/dataset"
	"github.com/openvisus/idx/internal/errkind"
	"github.com/openvisus/idx/internal/query"
)

const defaultRAMBudget = 64 * datasize.MB

// RAM is an in-process LRU block cache (§4.6 "ram"), typically layered in
// front of a slower disk or network backend via multiplex.
type RAM struct {
	mu    sync.Mutex
	cache *lru.Cache[int64, []byte]
	bpb   int
}

// NewRAM sizes its LRU capacity from cfg.AvailableBytes (a datasize
// string, e.g. "512MB") divided by one sample-count's worth of bytes per
// block, giving a rough block-count budget rather than exact byte
// accounting (actual blocks vary in size across fields and codecs).
func NewRAM(ds *dataset.Dataset, cfg Config) (*RAM, error) {
	budget := defaultRAMBudget
	if cfg.AvailableBytes != "" {
		if err := budget.UnmarshalText([]byte(cfg.AvailableBytes)); err != nil {
			return nil, errkind.Newf(errkind.InvalidArgument, "access: ram available_bytes: %v", err)
		}
	}
	blockSamples := int64(1) << uint(ds.BitsPerBlock)
	capacity := int(uint64(budget) / uint64(blockSamples))
	if capacity < 1 {
		capacity = 1
	}
	cache, err := lru.New[int64, []byte](capacity)
	if err != nil {
		return nil, errkind.New(errkind.Internal, err)
	}
	return &RAM{cache: cache, bpb: ds.BitsPerBlock}, nil
}

func (r *RAM) CanRead() bool     { return true }
func (r *RAM) CanWrite() bool    { return true }
func (r *RAM) BitsPerBlock() int { return r.bpb }

func (r *RAM) ReadBlock(ctx context.Context, bq *query.BlockQuery) {
	r.mu.Lock()
	v, ok := r.cache.Get(bq.BlockID)
	r.mu.Unlock()
	if !ok {
		bq.Fail(errkind.Newf(errkind.NotFound, "ram: block %d not cached", bq.BlockID))
		return
	}
	out := make([]byte, len(v))
	copy(out, v)
	if bq.Field.Codec.IsByteStream() {
		bq.Layout = "hzorder"
	}
	bq.Ok(out)
}

func (r *RAM) WriteBlock(ctx context.Context, bq *query.BlockQuery) {
	buf := make([]byte, len(bq.Buffer))
	copy(buf, bq.Buffer)
	r.mu.Lock()
	r.cache.Add(bq.BlockID, buf)
	r.mu.Unlock()
	bq.Ok(buf)
}
