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

// Package query implements BlockQuery and BoxQuery: the pending-read/write
// and progressive box-query lifecycles of §4.3 and §4.4, plus the
// single-shot future they complete through.
package query

import "sync"

// Status is a BlockQuery or BoxQuery lifecycle state (§3).
type Status int

const (
	Created Status = iota
	Running
	Ok
	Failed
)

func (s Status) String() string {
	switch s {
	case Running:
		return "running"
	case Ok:
		return "ok"
	case Failed:
		return "failed"
	default:
		return "created"
	}
}

// Future is a single-shot, single-producer completion cell (design notes
// §9: "nothing in the core needs general promise chaining").
type Future struct {
	mu        sync.Mutex
	done      chan struct{}
	once      sync.Once
	status    Status
	err       error
	callbacks []func(Status, error)
}

func NewFuture() *Future {
	return &Future{done: make(chan struct{})}
}

// Complete resolves the future exactly once; subsequent calls are no-ops.
func (f *Future) Complete(status Status, err error) {
	f.once.Do(func() {
		f.mu.Lock()
		f.status = status
		f.err = err
		cbs := f.callbacks
		f.callbacks = nil
		f.mu.Unlock()
		close(f.done)
		for _, cb := range cbs {
			cb(status, err)
		}
	})
}

// WhenReady registers cb to run on completion; if the future is already
// resolved, cb runs synchronously.
func (f *Future) WhenReady(cb func(Status, error)) {
	f.mu.Lock()
	select {
	case <-f.done:
		f.mu.Unlock()
		cb(f.status, f.err)
		return
	default:
	}
	f.callbacks = append(f.callbacks, cb)
	f.mu.Unlock()
}

// Wait blocks until the future resolves.
func (f *Future) Wait() (Status, error) {
	<-f.done
	return f.status, f.err
}

// Done returns the channel closed on completion, for select-based waiting.
func (f *Future) Done() <-chan struct{} { return f.done }
