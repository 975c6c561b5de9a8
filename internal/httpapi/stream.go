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
	"net/http"
	"strconv"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/openvisus/idx/internal/errkind"
	"github.com/openvisus/idx/internal/field"
	"github.com/openvisus/idx/internal/query"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// streamFrame is one progressive pass pushed down the websocket: the
// geometry header followed, in the next binary frame, by the raw sample
// buffer (§4.11 "pushes one frame per resolution pass").
type streamFrame struct {
	Resolution int    `json:"resolution"`
	DType      string `json:"dtype"`
	NSamples   string `json:"nsamples"`
	Final      bool   `json:"final"`
}

// handleStream upgrades to a websocket and pushes one JSON header frame
// plus one binary sample frame per resolution pass of a progressive
// BoxQuery, coarse pass first (§4.11, §2 "progressive" data flow).
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
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

	endResolutions := []int{ds.MaxH()}
	if v := q.Get("endh"); v != "" {
		var list []int
		for _, tok := range splitCSV(v) {
			h, err := strconv.Atoi(tok)
			if err != nil {
				writeError(w, http.StatusBadRequest, errkind.New(errkind.InvalidArgument, err))
				return
			}
			list = append(list, h)
		}
		if len(list) > 0 {
			endResolutions = list
		}
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.Log.Warn("mod_visus: websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	bq := query.NewBoxQuery(ds, fld, params.Time, box, query.Read, query.FromContext(r.Context()))
	bq.EndResolutions = endResolutions
	if err := bq.Begin(backend); err != nil {
		conn.WriteJSON(map[string]string{"error": err.Error()})
		return
	}

	for {
		if err := bq.Execute(r.Context()); err != nil {
			conn.WriteJSON(map[string]string{"error": err.Error()})
			return
		}
		final := bq.CurrentResolution() == bq.EndResolutions[len(bq.EndResolutions)-1]
		frame := streamFrame{
			Resolution: bq.CurrentResolution(),
			DType:      fld.DType.String(),
			NSamples:   nsamplesHeader(bq.LogicSamples().NSamples()),
			Final:      final,
		}
		if err := conn.WriteJSON(frame); err != nil {
			return
		}
		if err := conn.WriteMessage(websocket.BinaryMessage, bq.Buffer()); err != nil {
			return
		}
		if final {
			return
		}
		if err := bq.Next(); err != nil {
			conn.WriteJSON(map[string]string{"error": err.Error()})
			return
		}
	}
}

func splitCSV(s string) []string {
	var out []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ',' {
			if i > start {
				out = append(out, s[start:i])
			}
			start = i + 1
		}
	}
	return out
}
