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
	"github.com/holiman/uint256"

	"github.com/openvisus/idx/internal/hzorder"
	"github.com/openvisus/idx/internal/logicsamples"
	"github.com/openvisus/idx/internal/pointn"
)

// HzToRowMajor walks every HZ address covered by block blockID and, for
// each address whose decoded point falls inside q's box, copies one
// elemSize-byte sample between blockBuf (HZ order, one sample per address
// offset i) and qbuf (row-major, §4.2 pixel layout). toBlock selects the
// write direction: false copies block -> query (read mode), true copies
// query -> block (write mode).
//
// This walks the block's full 2^bitsperblock address range rather than the
// precomputed per-level delta-table contiguous-run optimization of §4.5;
// correct for any bitsperblock used in practice and simple enough to trust
// without running it.
func HzToRowMajor(hz *hzorder.HzOrder, blockID int64, bitsPerBlock int, blockBuf []byte, elemSize int, q logicsamples.LogicSamples, qbuf []byte, toBlock bool) {
	startAddr := new(uint256.Int).Lsh(uint256.NewInt(uint64(blockID)), uint(bitsPerBlock))
	n := int64(1) << uint(bitsPerBlock)
	qns := q.NSamples()
	for i := int64(0); i < n; i++ {
		addr := new(uint256.Int).Add(startAddr, uint256.NewInt(uint64(i)))
		if addr.IsZero() {
			continue // address 0 names no sample; the root is address 1
		}
		p := hz.HzToPoint(addr)
		if !pointInBox(p, q.Box) {
			continue
		}
		qpix := q.LogicToPixel(p)
		if !inBounds(qpix, qns) {
			continue
		}
		qoff := flatOffset(qpix, qns) * int64(elemSize)
		boff := i * int64(elemSize)
		if qoff < 0 || boff < 0 || int(qoff)+elemSize > len(qbuf) || int(boff)+elemSize > len(blockBuf) {
			continue
		}
		if toBlock {
			copy(blockBuf[boff:boff+int64(elemSize)], qbuf[qoff:qoff+int64(elemSize)])
		} else {
			copy(qbuf[qoff:qoff+int64(elemSize)], blockBuf[boff:boff+int64(elemSize)])
		}
	}
}

func pointInBox(p pointn.Point, box pointn.Box) bool {
	for a := 0; a < box.PDim(); a++ {
		if p[a] < box.P1[a] || p[a] >= box.P2[a] {
			return false
		}
	}
	return true
}
