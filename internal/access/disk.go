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
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"github.com/RoaringBitmap/roaring/v2"
	"github.com/edsrzf/mmap-go"
	"github.com/gofrs/flock"
	"github.com/spf13/afero"

	"github.com/openvisus/idx/internal/dataset"
	"github.com/openvisus/idx/internal/errkind"
	"github.com/openvisus/idx/internal/field"
	"github.com/openvisus/idx/internal/query"
)

// Disk is the local-filesystem Access backend (§4.6 "disk"). Each block is
// one file, named by executing PathTemplate against the block id; blocks
// resident on a given shard directory are tracked in a roaring bitmap so a
// catalog scan doesn't need to stat every file.
type Disk struct {
	ds   *dataset.Dataset
	tmpl *template.Template
	fs   afero.Fs

	mu       sync.Mutex
	locks    map[string]locker
	resident map[string]*roaring.Bitmap
}

// locker is the lock handle a shard path is guarded by: a real flock for
// the OS filesystem, or an in-process mutex for afero's in-memory test
// filesystem (which flock, a syscall wrapper, can't see into).
type locker interface {
	Lock() error
	Unlock() error
}

type memLock struct{ mu sync.Mutex }

func (l *memLock) Lock() error   { l.mu.Lock(); return nil }
func (l *memLock) Unlock() error { l.mu.Unlock(); return nil }

// NewDisk builds a Disk backend from cfg.PathTemplate, a text/template
// string (with sprig's function set available) evaluated with ".BlockID"
// bound to the requested block id — e.g. "data/{{div .BlockID 1024}}/{{.BlockID}}.bin".
func NewDisk(ds *dataset.Dataset, cfg Config) (*Disk, error) {
	if cfg.PathTemplate == "" {
		return nil, errkind.Newf(errkind.InvalidArgument, "access: disk config requires path_template")
	}
	tmpl, err := template.New("path").Funcs(sprig.TxtFuncMap()).Parse(cfg.PathTemplate)
	if err != nil {
		return nil, errkind.New(errkind.InvalidArgument, err)
	}
	return &Disk{
		ds:       ds,
		tmpl:     tmpl,
		fs:       afero.NewOsFs(),
		locks:    make(map[string]locker),
		resident: make(map[string]*roaring.Bitmap),
	}, nil
}

func (d *Disk) CanRead() bool     { return true }
func (d *Disk) CanWrite() bool    { return true }
func (d *Disk) BitsPerBlock() int { return d.ds.BitsPerBlock }

func (d *Disk) pathFor(blockID int64) (string, error) {
	var buf bytes.Buffer
	if err := d.tmpl.Execute(&buf, map[string]any{"BlockID": blockID}); err != nil {
		return "", errkind.New(errkind.Internal, err)
	}
	return buf.String(), nil
}

func (d *Disk) lockFor(path string) locker {
	d.mu.Lock()
	defer d.mu.Unlock()
	lk, ok := d.locks[path]
	if ok {
		return lk
	}
	if _, isOS := d.fs.(*afero.OsFs); isOS {
		lk = flock.New(path + ".lock")
	} else {
		lk = &memLock{}
	}
	d.locks[path] = lk
	return lk
}

func (d *Disk) markResident(path string, blockID int64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	dir := filepath.Dir(path)
	bm, ok := d.resident[dir]
	if !ok {
		bm = roaring.New()
		d.resident[dir] = bm
	}
	bm.Add(uint32(blockID))
}

// Resident returns the set of block ids this Disk backend has written
// under the shard directory that blockID's path template resolves to, for
// catalog/diagnostic use.
func (d *Disk) Resident(blockID int64) (*roaring.Bitmap, error) {
	path, err := d.pathFor(blockID)
	if err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	bm, ok := d.resident[filepath.Dir(path)]
	if !ok {
		return roaring.New(), nil
	}
	return bm.Clone(), nil
}

func (d *Disk) ReadBlock(ctx context.Context, bq *query.BlockQuery) {
	path, err := d.pathFor(bq.BlockID)
	if err != nil {
		bq.Fail(err)
		return
	}
	f, err := d.fs.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			bq.Fail(errkind.Newf(errkind.NotFound, "disk: block %d: %v", bq.BlockID, err))
		} else {
			bq.Fail(errkind.New(errkind.BackendIO, err))
		}
		return
	}
	defer f.Close()

	raw, err := readAll(f)
	if err != nil {
		bq.Fail(errkind.New(errkind.BackendIO, err))
		return
	}
	data, err := field.Decode(bq.Field.Codec, raw)
	if err != nil {
		bq.Fail(err)
		return
	}
	if bq.Field.Codec.IsByteStream() {
		bq.Layout = "hzorder"
	}
	bq.Ok(data)
}

func (d *Disk) WriteBlock(ctx context.Context, bq *query.BlockQuery) {
	path, err := d.pathFor(bq.BlockID)
	if err != nil {
		bq.Fail(err)
		return
	}
	if err := d.fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		bq.Fail(errkind.New(errkind.BackendIO, err))
		return
	}

	lk := d.lockFor(path)
	if err := lk.Lock(); err != nil {
		bq.Fail(errkind.New(errkind.BackendIO, err))
		return
	}
	defer lk.Unlock()

	encoded, err := field.Encode(bq.Field.Codec, bq.Buffer, nil)
	if err != nil {
		bq.Fail(err)
		return
	}
	f, err := d.fs.Create(path)
	if err != nil {
		bq.Fail(errkind.New(errkind.BackendIO, err))
		return
	}
	_, werr := f.Write(encoded)
	cerr := f.Close()
	if werr != nil {
		bq.Fail(errkind.New(errkind.BackendIO, werr))
		return
	}
	if cerr != nil {
		bq.Fail(errkind.New(errkind.BackendIO, cerr))
		return
	}
	d.markResident(path, bq.BlockID)
	bq.Ok(bq.Buffer)
}

// readAll reads all of f's contents, mapping the file into memory first
// when the backing afero.Fs hands back a real *os.File (the common case:
// afero.OsFs), and falling back to a plain read for in-memory test
// filesystems that don't support mmap.
func readAll(f afero.File) ([]byte, error) {
	if osf, ok := f.(*os.File); ok {
		if fi, err := osf.Stat(); err == nil && fi.Size() > 0 {
			m, err := mmap.Map(osf, mmap.RDONLY, 0)
			if err == nil {
				defer m.Unmap()
				out := make([]byte, len(m))
				copy(out, m)
				return out, nil
			}
		}
	}
	return io.ReadAll(f)
}
