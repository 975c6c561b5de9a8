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

// Package metrics declares the Prometheus instruments a running idxserver
// exposes under /metrics (§4.13).
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups every counter/histogram the server records. Callers embed
// one instance per process and pass it down to the query and access
// layers; it is safe for concurrent use (every prometheus instrument is).
type Metrics struct {
	BlockQueriesTotal  *prometheus.CounterVec
	BlockCacheHits     prometheus.Counter
	BlockCacheMisses   prometheus.Counter
	BlockIOSeconds     prometheus.Histogram
	BoxQuerySeconds    *prometheus.HistogramVec
}

// New registers every instrument against reg and returns the handle. Pass
// prometheus.NewRegistry() for an isolated test registry, or
// prometheus.DefaultRegisterer for the process-wide one.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		BlockQueriesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "idx_block_queries_total",
			Help: "Block queries dispatched through an Access backend, by outcome.",
		}, []string{"outcome"}),
		BlockCacheHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "idx_block_cache_hits_total",
			Help: "Block reads satisfied from a ram Access backend.",
		}),
		BlockCacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Name: "idx_block_cache_misses_total",
			Help: "Block reads that missed a ram Access backend and fell through.",
		}),
		BlockIOSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "idx_block_io_seconds",
			Help:    "Wall-clock time spent in a single backend ReadBlock/WriteBlock call.",
			Buckets: prometheus.DefBuckets,
		}),
		BoxQuerySeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "idx_box_query_seconds",
			Help:    "Wall-clock time for one BoxQuery.Execute pass, by target resolution.",
			Buckets: prometheus.DefBuckets,
		}, []string{"resolution"}),
	}
}

// ObserveBlockQuery records one finished block query's outcome.
func (m *Metrics) ObserveBlockQuery(outcome string) {
	if m == nil {
		return
	}
	m.BlockQueriesTotal.WithLabelValues(outcome).Inc()
}
