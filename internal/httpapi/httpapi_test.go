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
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/require"

	"github.com/openvisus/idx/internal/bitmask"
	"github.com/openvisus/idx/internal/catalog"
	"github.com/openvisus/idx/internal/dataset"
	"github.com/openvisus/idx/internal/field"
	"github.com/openvisus/idx/internal/query"
)

type memBackend struct {
	mu     sync.Mutex
	blocks map[int64][]byte
	bpb    int
}

func (m *memBackend) CanRead() bool     { return true }
func (m *memBackend) CanWrite() bool    { return true }
func (m *memBackend) BitsPerBlock() int { return m.bpb }

func (m *memBackend) ReadBlock(ctx context.Context, bq *query.BlockQuery) {
	m.mu.Lock()
	defer m.mu.Unlock()
	buf, ok := m.blocks[bq.BlockID]
	if !ok {
		bq.Ok(make([]byte, bq.LogicSamples.TotalSamples()*int64(bq.Field.ByteSize())))
		return
	}
	out := make([]byte, len(buf))
	copy(out, buf)
	bq.Ok(out)
}

func (m *memBackend) WriteBlock(ctx context.Context, bq *query.BlockQuery) {
	m.mu.Lock()
	defer m.mu.Unlock()
	buf := make([]byte, len(bq.Buffer))
	copy(buf, bq.Buffer)
	m.blocks[bq.BlockID] = buf
	bq.Ok(buf)
}

func newTestServer(t *testing.T) (*Server, *dataset.Dataset) {
	t.Helper()
	bm, err := bitmask.Parse("V0101010101", 2)
	if err != nil {
		t.Fatalf("bitmask.Parse: %v", err)
	}
	fields := []field.Field{{Name: "data", DType: field.U8, NumComps: 1, Codec: field.Raw}}
	ds, err := dataset.New(bm, 10, true, fields, nil)
	if err != nil {
		t.Fatalf("dataset.New: %v", err)
	}

	dir := t.TempDir()
	manifestPath := dir + "/manifest.yaml"
	manifestYAML := "pdim: 2\nbitmask: V0101010101\nbitsperblock: 10\nfull_res: true\nfields:\n  - name: data\n    dtype: uint8\n"
	if err := os.WriteFile(manifestPath, []byte(manifestYAML), 0o644); err != nil {
		t.Fatalf("os.WriteFile: %v", err)
	}

	cat, err := catalog.Open(":memory:")
	if err != nil {
		t.Fatalf("catalog.Open: %v", err)
	}
	t.Cleanup(func() { cat.Close() })
	if err := cat.Register(context.Background(), "quake", manifestPath, ds, 1); err != nil {
		t.Fatalf("Register: %v", err)
	}

	s := NewServer(cat, nil, nil, nil)
	backend := &memBackend{blocks: make(map[int64][]byte), bpb: ds.BitsPerBlock}
	s.SetBackendResolver(func(name string, ds *dataset.Dataset) (query.Backend, error) {
		return backend, nil
	})
	return s, ds
}

func TestPing(t *testing.T) {
	s, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/mod_visus?action=ping", nil)
	s.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || rec.Body.String() != "pong" {
		t.Fatalf("ping: code=%d body=%q", rec.Code, rec.Body.String())
	}
}

func TestList(t *testing.T) {
	s, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/mod_visus?action=list", nil)
	s.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("list: code=%d body=%q", rec.Code, rec.Body.String())
	}
}

func TestBoxQueryReturnsHeadersAndBuffer(t *testing.T) {
	s, ds := newTestServer(t)
	rec := httptest.NewRecorder()
	url := "/mod_visus?action=boxquery&dataset=quake&field=data&box=0+31+0+31&toh=10"
	req := httptest.NewRequest(http.MethodGet, url, nil)
	s.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("boxquery: code=%d body=%q", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("visus-dtype") != "uint8" {
		t.Fatalf("visus-dtype = %q", rec.Header().Get("visus-dtype"))
	}
	if rec.Header().Get("visus-nsamples") == "" {
		t.Fatal("missing visus-nsamples header")
	}
	f, _ := ds.FindField("data")
	if got, want := rec.Body.Len(), 32*32*f.ByteSize(); got != want {
		t.Fatalf("body length = %d, want %d", got, want)
	}
}

func TestBoxQueryUnknownDataset(t *testing.T) {
	s, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/mod_visus?action=boxquery&dataset=nope&field=data&box=0+1+0+1", nil)
	s.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestUnknownAction(t *testing.T) {
	s, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/mod_visus?action=bogus", nil)
	s.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

// TestWriteQueryWithoutSigningKeyIsUnauthenticated documents §4.14's default:
// a server with no signing key installed accepts writes unauthenticated.
func TestWriteQueryWithoutSigningKeyIsUnauthenticated(t *testing.T) {
	s, ds := newTestServer(t)
	f, ok := ds.FindField("data")
	require.True(t, ok, "dataset should have a data field")

	body := make([]byte, 32*32*f.ByteSize())
	rec := httptest.NewRecorder()
	url := "/mod_visus/write?dataset=quake&field=data&box=0+31+0+31&toh=10"
	req := httptest.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	s.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, "write without a signing key should succeed: %s", rec.Body.String())
}

// TestWriteQueryRejectsMissingOrBadToken exercises §4.14's bearer-token
// gate once a signing key is installed.
func TestWriteQueryRejectsMissingOrBadToken(t *testing.T) {
	s, ds := newTestServer(t)
	key := []byte("test-signing-key")
	s.SetSigningKey(key)
	f, ok := ds.FindField("data")
	require.True(t, ok, "dataset should have a data field")
	body := make([]byte, 32*32*f.ByteSize())
	url := "/mod_visus/write?dataset=quake&field=data&box=0+31+0+31&toh=10"

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	s.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code, "write with no Authorization header should be rejected")

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	s.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code, "write with a malformed token should be rejected")

	wrongKeyToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "writer"}).SignedString([]byte("wrong-key"))
	require.NoError(t, err)
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+wrongKeyToken)
	s.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code, "write with a token signed by the wrong key should be rejected")
}

// TestWriteQueryAcceptsValidToken exercises the success path of §4.14's
// bearer-token gate, then confirms the written sample round-trips through a
// following read.
func TestWriteQueryAcceptsValidToken(t *testing.T) {
	s, ds := newTestServer(t)
	key := []byte("test-signing-key")
	s.SetSigningKey(key)
	f, ok := ds.FindField("data")
	require.True(t, ok, "dataset should have a data field")

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "writer"}).SignedString(key)
	require.NoError(t, err)

	body := bytes.Repeat([]byte{7}, 32*32*f.ByteSize())
	writeURL := "/mod_visus/write?dataset=quake&field=data&box=0+31+0+31&toh=10"
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, writeURL, bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+token)
	s.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, "authenticated write should succeed: %s", rec.Body.String())

	readURL := "/mod_visus?action=boxquery&dataset=quake&field=data&box=0+31+0+31&toh=10"
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, readURL, nil)
	s.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	for i, v := range rec.Body.Bytes() {
		require.EqualValuesf(t, 7, v, "byte %d of read-back buffer", i)
	}
}
