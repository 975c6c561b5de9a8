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

// Command idxctl inspects manifests, lists a catalog, and runs ad hoc box
// queries from the command line.
package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/openvisus/idx/internal/access"
	"github.com/openvisus/idx/internal/catalog"
	"github.com/openvisus/idx/internal/dataset"
	"github.com/openvisus/idx/internal/pointn"
	"github.com/openvisus/idx/internal/query"
)

func main() {
	root := &cobra.Command{Use: "idxctl", Short: "Inspect and query IDX datasets"}
	root.AddCommand(newCatalogCmd(), newInspectCmd(), newBoxQueryCmd())
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newCatalogCmd() *cobra.Command {
	var catalogPath string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List datasets registered in the catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := catalog.Open(catalogPath)
			if err != nil {
				return err
			}
			defer cat.Close()
			entries, err := cat.List(context.Background())
			if err != nil {
				return err
			}
			t := table.NewWriter()
			t.SetOutputMirror(os.Stdout)
			t.AppendHeader(table.Row{"name", "manifest", "bitsperblock", "pdim", "maxh", "registered"})
			for _, e := range entries {
				t.AppendRow(table.Row{e.Name, e.ManifestPath, e.BitsPerBlock, e.PDim, e.MaxH, time.Unix(e.RegisteredAt, 0).Format(time.RFC3339)})
			}
			t.Render()
			return nil
		},
	}
	cmd.Flags().StringVar(&catalogPath, "catalog", "catalog.db", "SQLite catalog database path")
	return cmd
}

func newInspectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect <manifest.yaml>",
		Short: "Print a manifest's dataset geometry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, err := dataset.Load(args[0])
			if err != nil {
				return err
			}
			fmt.Printf("pdim=%d bitsperblock=%d maxh=%d fullres=%v\n", ds.PDim(), ds.BitsPerBlock, ds.MaxH(), ds.FullRes)
			for _, f := range ds.Fields {
				fmt.Printf("  field %-12s dtype=%-8s codec=%-4s bytes/sample=%d\n", f.Name, f.DType, f.Codec, f.ByteSize())
			}
			return nil
		},
	}
	return cmd
}

func newBoxQueryCmd() *cobra.Command {
	var (
		manifestPath string
		fieldName    string
		boxStr       string
		resolution   int
		accessPath   string
	)
	cmd := &cobra.Command{
		Use:   "boxquery",
		Short: "Run a one-shot box query against a manifest and print sample statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, err := dataset.Load(manifestPath)
			if err != nil {
				return err
			}
			f, ok := ds.FindField(fieldName)
			if !ok {
				return fmt.Errorf("idxctl: unknown field %q", fieldName)
			}
			box, err := parseBoxArg(boxStr, ds.PDim())
			if err != nil {
				return err
			}
			if resolution <= 0 {
				resolution = ds.MaxH()
			}

			cfg := access.Config{Type: "disk", PathTemplate: "blocks/{{.BlockID}}.bin"}
			if accessPath != "" {
				cfg, err = access.LoadConfig(accessPath)
				if err != nil {
					return err
				}
			}
			backend, err := access.Build(ds, cfg)
			if err != nil {
				return err
			}

			q := query.NewBoxQuery(ds, f, 0, box, query.Read, query.Never)
			q.EndResolutions = []int{resolution}
			if err := q.Begin(backend); err != nil {
				return err
			}
			if err := q.Execute(context.Background()); err != nil {
				return err
			}
			fmt.Printf("resolution=%d nsamples=%v bytes=%d\n", q.CurrentResolution(), q.LogicSamples().NSamples(), len(q.Buffer()))
			return nil
		},
	}
	cmd.Flags().StringVar(&manifestPath, "manifest", "", "dataset manifest path")
	cmd.Flags().StringVar(&fieldName, "field", "", "field name")
	cmd.Flags().StringVar(&boxStr, "box", "", "query box, e.g. \"0 1023 0 1023\"")
	cmd.Flags().IntVar(&resolution, "resolution", 0, "end resolution (default: dataset MaxH)")
	cmd.Flags().StringVar(&accessPath, "access", "", "TOML access config (default: disk backend rooted at ./blocks)")
	cmd.MarkFlagRequired("manifest")
	cmd.MarkFlagRequired("field")
	cmd.MarkFlagRequired("box")
	return cmd
}

func parseBoxArg(s string, pdim int) (pointn.Box, error) {
	fields := strings.Fields(s)
	if len(fields) != 2*pdim {
		return pointn.Box{}, fmt.Errorf("idxctl: box needs %d numbers, got %d", 2*pdim, len(fields))
	}
	p1 := make(pointn.Point, pdim)
	p2 := make(pointn.Point, pdim)
	for a := 0; a < pdim; a++ {
		lo, err := strconv.ParseInt(fields[2*a], 10, 64)
		if err != nil {
			return pointn.Box{}, err
		}
		hi, err := strconv.ParseInt(fields[2*a+1], 10, 64)
		if err != nil {
			return pointn.Box{}, err
		}
		p1[a] = lo
		p2[a] = hi + 1
	}
	return pointn.NewBox(p1, p2), nil
}
