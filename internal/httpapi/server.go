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

// Package httpapi implements the §6 mod_visus wire protocol over HTTP,
// plus a progressive-query websocket stream (§4.11).
package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/openvisus/idx/internal/catalog"
	"github.com/openvisus/idx/internal/metrics"
)

// Server is the mod_visus HTTP service: a dataset catalog, the metrics
// registry backing /metrics, and a logger, wired to a chi router.
type Server struct {
	Catalog  *catalog.Catalog
	Metrics  *metrics.Metrics
	Log      *zap.Logger
	Registry prometheus.Gatherer

	router     chi.Router
	backend    BackendResolver
	signingKey []byte
}

// NewServer builds the router. reg may be nil, in which case /metrics is
// not mounted.
func NewServer(cat *catalog.Catalog, m *metrics.Metrics, reg prometheus.Gatherer, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{Catalog: cat, Metrics: m, Log: log, Registry: reg}

	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
	}))
	r.Get("/mod_visus", s.handleModVisus)
	r.Get("/mod_visus/stream", s.handleStream)
	r.With(s.requireBearerToken).Post("/mod_visus/write", s.handleWriteQuery)
	if reg != nil {
		r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	}
	s.router = r
	return s
}

// SetSigningKey installs the HS256 key write requests must present a bearer
// token signed with. Call it before the server starts serving traffic; an
// empty key leaves write auth disabled.
func (s *Server) SetSigningKey(key []byte) { s.signingKey = key }

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
