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

import "context"

// Aborted is the cooperative cancellation token every inner loop polls
// (§5, §9). It is intentionally a one-method interface so call sites read
// like the spec's "shared cell containing a single boolean" instead of
// threading the full context.Context API through signatures that don't
// need it.
type Aborted interface {
	IsAborted() bool
}

type ctxAborted struct{ ctx context.Context }

// FromContext wraps a context.Context as an Aborted token — the same
// cancellation idiom the teacher uses throughout (ctx.Done() select loops).
func FromContext(ctx context.Context) Aborted { return ctxAborted{ctx} }

func (c ctxAborted) IsAborted() bool {
	select {
	case <-c.ctx.Done():
		return true
	default:
		return false
	}
}

type never struct{}

func (never) IsAborted() bool { return false }

// Never is an Aborted token that is never set, for callers that don't need
// cancellation (tests, one-shot CLI queries).
var Never Aborted = never{}

func isAborted(a Aborted) bool {
	return a != nil && a.IsAborted()
}
