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

package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestObserveBlockQueryIncrementsCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveBlockQuery("ok")
	m.ObserveBlockQuery("ok")
	m.ObserveBlockQuery("failed")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	var found bool
	for _, mf := range mfs {
		if mf.GetName() != "idx_block_queries_total" {
			continue
		}
		found = true
		for _, metric := range mf.GetMetric() {
			for _, l := range metric.GetLabel() {
				if l.GetName() == "outcome" && l.GetValue() == "ok" {
					if got := metric.GetCounter().GetValue(); got != 2 {
						t.Fatalf("outcome=ok count = %v, want 2", got)
					}
				}
			}
		}
	}
	if !found {
		t.Fatal("idx_block_queries_total not registered")
	}
}

func TestNilMetricsObserveIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveBlockQuery("ok") // must not panic
}
