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

// Package catalog is the SQLite-backed dataset registry behind the
// mod_visus wire protocol's "list" and "readdataset" actions (§4.10, §6).
package catalog

import (
	"context"
	"database/sql"

	_ "modernc.org/sqlite"

	"github.com/openvisus/idx/internal/dataset"
	"github.com/openvisus/idx/internal/errkind"
)

const schema = `
CREATE TABLE IF NOT EXISTS datasets (
	name          TEXT PRIMARY KEY,
	manifest_path TEXT NOT NULL,
	bitsperblock  INTEGER NOT NULL,
	pdim          INTEGER NOT NULL,
	maxh          INTEGER NOT NULL,
	registered_at INTEGER NOT NULL
);
`

// Entry is one registered dataset's catalog row.
type Entry struct {
	Name         string
	ManifestPath string
	BitsPerBlock int
	PDim         int
	MaxH         int
	RegisteredAt int64
}

// Catalog is a handle to the registry database. The zero value is not
// usable; construct with Open.
type Catalog struct {
	db *sql.DB
}

// Open opens (creating if necessary) the SQLite database at path and
// ensures its schema exists. Use ":memory:" for a process-local catalog.
func Open(path string) (*Catalog, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errkind.New(errkind.Internal, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errkind.New(errkind.Internal, err)
	}
	return &Catalog{db: db}, nil
}

func (c *Catalog) Close() error { return c.db.Close() }

// Register inserts or replaces name's entry, deriving bitsperblock/pdim/maxh
// from the already-loaded ds so List/ReadDataset never re-parse the
// manifest just to answer a geometry question.
func (c *Catalog) Register(ctx context.Context, name, manifestPath string, ds *dataset.Dataset, registeredAt int64) error {
	_, err := c.db.ExecContext(ctx,
		`INSERT INTO datasets(name, manifest_path, bitsperblock, pdim, maxh, registered_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET
			manifest_path=excluded.manifest_path,
			bitsperblock=excluded.bitsperblock,
			pdim=excluded.pdim,
			maxh=excluded.maxh,
			registered_at=excluded.registered_at`,
		name, manifestPath, ds.BitsPerBlock, ds.PDim(), ds.MaxH(), registeredAt)
	if err != nil {
		return errkind.New(errkind.Internal, err)
	}
	return nil
}

// Unregister removes name from the catalog. It is not an error to
// unregister a name that was never registered.
func (c *Catalog) Unregister(ctx context.Context, name string) error {
	if _, err := c.db.ExecContext(ctx, `DELETE FROM datasets WHERE name = ?`, name); err != nil {
		return errkind.New(errkind.Internal, err)
	}
	return nil
}

// Get looks up name's catalog entry (the mod_visus "readdataset" action's
// metadata half; the caller still loads the manifest file to build the
// full Dataset).
func (c *Catalog) Get(ctx context.Context, name string) (Entry, bool, error) {
	row := c.db.QueryRowContext(ctx,
		`SELECT name, manifest_path, bitsperblock, pdim, maxh, registered_at FROM datasets WHERE name = ?`, name)
	var e Entry
	if err := row.Scan(&e.Name, &e.ManifestPath, &e.BitsPerBlock, &e.PDim, &e.MaxH, &e.RegisteredAt); err != nil {
		if err == sql.ErrNoRows {
			return Entry{}, false, nil
		}
		return Entry{}, false, errkind.New(errkind.Internal, err)
	}
	return e, true, nil
}

// List returns every registered dataset (the mod_visus "list" action),
// ordered by name.
func (c *Catalog) List(ctx context.Context) ([]Entry, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT name, manifest_path, bitsperblock, pdim, maxh, registered_at FROM datasets ORDER BY name`)
	if err != nil {
		return nil, errkind.New(errkind.Internal, err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Name, &e.ManifestPath, &e.BitsPerBlock, &e.PDim, &e.MaxH, &e.RegisteredAt); err != nil {
			return nil, errkind.New(errkind.Internal, err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, errkind.New(errkind.Internal, err)
	}
	return out, nil
}

// LoadDataset re-reads and parses the manifest behind a catalog entry
// (§4.10 "readdataset" fetches geometry, not bytes: the manifest is
// small and re-parsing it is cheaper than caching a stale Dataset).
func (c *Catalog) LoadDataset(ctx context.Context, name string) (*dataset.Dataset, error) {
	e, ok, err := c.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errkind.Newf(errkind.NotFound, "catalog: dataset %q not registered", name)
	}
	return dataset.Load(e.ManifestPath)
}
