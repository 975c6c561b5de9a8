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

package httpapi

import (
	"io"
	"net/http"
	"strconv"
	"strings"

	goccyjson "github.com/goccy/go-json"

	"github.com/openvisus/idx/internal/dataset"
	"github.com/openvisus/idx/internal/errkind"
	"github.com/openvisus/idx/internal/field"
	"github.com/openvisus/idx/internal/pointn"
	"github.com/openvisus/idx/internal/query"
)

// BackendResolver builds (or reuses) the Access backend a dataset's
// blocks live behind. Supplied by the process wiring httpapi together
// (idxserver), since how Access config is stored per dataset is outside
// the wire protocol's concern.
type BackendResolver func(name string, ds *dataset.Dataset) (query.Backend, error)

func (s *Server) handleModVisus(w http.ResponseWriter, r *http.Request) {
	action := r.URL.Query().Get("action")
	switch action {
	case "ping":
		s.handlePing(w, r)
	case "list":
		s.handleList(w, r)
	case "readdataset":
		s.handleReadDataset(w, r)
	case "boxquery":
		s.handleBoxQuery(w, r, false)
	case "pointquery":
		s.handleBoxQuery(w, r, true)
	case "blockquery":
		s.handleBlockQuery(w, r)
	default:
		writeError(w, http.StatusBadRequest, errkind.Newf(errkind.InvalidArgument, "mod_visus: unknown action %q", action))
	}
}

func (s *Server) handlePing(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("pong"))
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	entries, err := s.Catalog.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, entries)
}

func (s *Server) handleReadDataset(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("dataset")
	entry, ok, err := s.Catalog.Get(r.Context(), name)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, errkind.Newf(errkind.NotFound, "mod_visus: unknown dataset %q", name))
		return
	}
	writeJSON(w, entry)
}

// SetBackendResolver installs the resolver this server uses for
// boxquery/pointquery/blockquery requests; call it before serving traffic.
func (s *Server) SetBackendResolver(resolve BackendResolver) { s.backend = resolve }

func (s *Server) loadDataset(r *http.Request) (string, *dataset.Dataset, error) {
	name := r.URL.Query().Get("dataset")
	if name == "" {
		return "", nil, errkind.Newf(errkind.InvalidArgument, "mod_visus: missing dataset parameter")
	}
	ds, err := s.Catalog.LoadDataset(r.Context(), name)
	if err != nil {
		return "", nil, err
	}
	return name, ds, nil
}

func parseBox(s string, pdim int) (pointn.Box, error) {
	fields := strings.Fields(s)
	if len(fields) != 2*pdim {
		return pointn.Box{}, errkind.Newf(errkind.InvalidArgument, "mod_visus: box needs %d numbers, got %d", 2*pdim, len(fields))
	}
	p1 := make(pointn.Point, pdim)
	p2 := make(pointn.Point, pdim)
	for a := 0; a < pdim; a++ {
		lo, err := strconv.ParseInt(fields[2*a], 10, 64)
		if err != nil {
			return pointn.Box{}, errkind.New(errkind.InvalidArgument, err)
		}
		hi, err := strconv.ParseInt(fields[2*a+1], 10, 64)
		if err != nil {
			return pointn.Box{}, errkind.New(errkind.InvalidArgument, err)
		}
		p1[a] = lo
		p2[a] = hi + 1 // wire box bounds are inclusive; LogicBox is half-open
	}
	return pointn.NewBox(p1, p2), nil
}

func (s *Server) handleBoxQuery(w http.ResponseWriter, r *http.Request, point bool) {
	name, ds, err := s.loadDataset(r)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	if s.backend == nil {
		writeError(w, http.StatusInternalServerError, errkind.Newf(errkind.Internal, "mod_visus: no backend resolver configured"))
		return
	}
	backend, err := s.backend(name, ds)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	q := r.URL.Query()
	params, err := field.ParseParams(q)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	fld, ok := ds.FindField(params.FieldName)
	if !ok {
		writeError(w, http.StatusBadRequest, errkind.Newf(errkind.InvalidArgument, "mod_visus: unknown field %q", params.FieldName))
		return
	}

	box, err := parseBox(q.Get("box"), ds.PDim())
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if point {
		// pointquery (§4.11): a degenerate box query over a single sample.
		for a := range box.P2 {
			box.P2[a] = box.P1[a] + 1
		}
	}

	toh := ds.MaxH()
	if v := q.Get("toh"); v != "" {
		toh, err = strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, errkind.New(errkind.InvalidArgument, err))
			return
		}
	}

	bq := query.NewBoxQuery(ds, fld, params.Time, box, query.Read, query.Never)
	bq.EndResolutions = []int{toh}
	if v := q.Get("fromh"); v != "" {
		start, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, errkind.New(errkind.InvalidArgument, err))
			return
		}
		bq.StartResolution = start
	}

	if err := bq.Begin(backend); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := bq.Execute(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	writeSampleResponse(w, fld, bq.LogicSamples(), bq.Buffer(), "row-major")
}

func (s *Server) handleBlockQuery(w http.ResponseWriter, r *http.Request) {
	name, ds, err := s.loadDataset(r)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	if s.backend == nil {
		writeError(w, http.StatusInternalServerError, errkind.Newf(errkind.Internal, "mod_visus: no backend resolver configured"))
		return
	}
	backend, err := s.backend(name, ds)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	q := r.URL.Query()
	params, err := field.ParseParams(q)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	fld, ok := ds.FindField(params.FieldName)
	if !ok {
		writeError(w, http.StatusBadRequest, errkind.Newf(errkind.InvalidArgument, "mod_visus: unknown field %q", params.FieldName))
		return
	}
	from, err := strconv.ParseInt(q.Get("from"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, errkind.New(errkind.InvalidArgument, err))
		return
	}
	blockID := from >> uint(ds.BitsPerBlock)

	bq := query.NewBlockQuery(ds, fld, params.Time, blockID, query.Read, query.Never)
	if !bq.Dispatch(backend) {
		writeError(w, http.StatusBadRequest, errkind.Newf(errkind.InvalidArgument, "mod_visus: %s", bq.Reason()))
		return
	}
	backend.ReadBlock(r.Context(), bq)
	status, err := bq.Future().Wait()
	if status != query.Ok {
		if errkind.Is(err, errkind.NotFound) {
			writeError(w, http.StatusNotFound, err)
		} else {
			writeError(w, http.StatusInternalServerError, err)
		}
		return
	}
	layout := bq.Layout
	if layout == "" {
		layout = "row-major"
	}
	body, err := field.Encode(fld.Codec, bq.Buffer, nil)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeSampleResponse(w, fld, bq.LogicSamples, body, layout)
}

// handleWriteQuery implements POST /mod_visus/write (§4.14): the body is the
// row-major sample buffer for box/field/toh, authenticated by
// requireBearerToken before this handler ever runs.
func (s *Server) handleWriteQuery(w http.ResponseWriter, r *http.Request) {
	name, ds, err := s.loadDataset(r)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	if s.backend == nil {
		writeError(w, http.StatusInternalServerError, errkind.Newf(errkind.Internal, "mod_visus: no backend resolver configured"))
		return
	}
	backend, err := s.backend(name, ds)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if !backend.CanWrite() {
		writeError(w, http.StatusForbidden, errkind.Newf(errkind.PermissionDenied, "mod_visus: dataset %q's backend is read-only", name))
		return
	}

	q := r.URL.Query()
	params, err := field.ParseParams(q)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	fld, ok := ds.FindField(params.FieldName)
	if !ok {
		writeError(w, http.StatusBadRequest, errkind.Newf(errkind.InvalidArgument, "mod_visus: unknown field %q", params.FieldName))
		return
	}
	box, err := parseBox(q.Get("box"), ds.PDim())
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	toh := ds.MaxH()
	if v := q.Get("toh"); v != "" {
		toh, err = strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, errkind.New(errkind.InvalidArgument, err))
			return
		}
	}

	bq := query.NewBoxQuery(ds, fld, params.Time, box, query.Write, query.FromContext(r.Context()))
	bq.EndResolutions = []int{toh}
	if err := bq.Begin(backend); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	buf := bq.EnsureBuffer()
	if n, err := io.ReadFull(r.Body, buf); err != nil {
		writeError(w, http.StatusBadRequest, errkind.Newf(errkind.InvalidArgument, "mod_visus: write body has %d bytes, want %d", n, len(buf)))
		return
	}
	if err := bq.Execute(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeSampleResponse(w, fld, bq.LogicSamples(), bq.Buffer(), "row-major")
}

func writeSampleResponse(w http.ResponseWriter, f field.Field, ls interface {
	NSamples() pointn.Point
}, buf []byte, layout string) {
	w.Header().Set("visus-dtype", f.DType.String())
	w.Header().Set("visus-nsamples", nsamplesHeader(ls.NSamples()))
	w.Header().Set("visus-compression", f.Codec.String())
	w.Header().Set("visus-layout", layout)
	w.WriteHeader(http.StatusOK)
	w.Write(buf)
}

func nsamplesHeader(p pointn.Point) string {
	parts := make([]string, len(p))
	for i, v := range p {
		parts[i] = strconv.FormatInt(v, 10)
	}
	return strings.Join(parts, " ")
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	enc := goccyjson.NewEncoder(w)
	if err := enc.Encode(v); err != nil {
		writeError(w, http.StatusInternalServerError, err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = goccyjson.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
