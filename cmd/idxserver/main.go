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

// Command idxserver runs the mod_visus HTTP service over a catalog of
// registered datasets.
package main

import (
	"fmt"
	"net/http"
	"os"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/openvisus/idx/internal/access"
	"github.com/openvisus/idx/internal/catalog"
	"github.com/openvisus/idx/internal/dataset"
	"github.com/openvisus/idx/internal/httpapi"
	"github.com/openvisus/idx/internal/logutil"
	"github.com/openvisus/idx/internal/metrics"
	"github.com/openvisus/idx/internal/query"
)

func main() {
	var (
		addr        string
		catalogPath string
		accessPath  string
		logLevel    string
		signingKey  string
	)

	root := &cobra.Command{
		Use:   "idxserver",
		Short: "Serve registered IDX datasets over the mod_visus HTTP protocol",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(addr, catalogPath, accessPath, logLevel, signingKey)
		},
	}
	root.Flags().StringVar(&addr, "addr", ":8080", "HTTP listen address")
	root.Flags().StringVar(&catalogPath, "catalog", "catalog.db", "SQLite catalog database path")
	root.Flags().StringVar(&accessPath, "access", "", "TOML access config applied to every dataset (default: single disk backend under ./<dataset name>/)")
	root.Flags().StringVar(&logLevel, "log-level", "info", "log level (debug|info|warn|error)")
	root.Flags().StringVar(&signingKey, "write-signing-key", "", "HS256 key required on POST /mod_visus/write bearer tokens (default: write auth disabled)")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(addr, catalogPath, accessPath, logLevel, signingKey string) error {
	logger, err := logutil.New(logutil.Config{Level: logLevel})
	if err != nil {
		return err
	}
	defer logger.Sync()

	cat, err := catalog.Open(catalogPath)
	if err != nil {
		return err
	}
	defer cat.Close()

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	var accessCfg *access.Config
	if accessPath != "" {
		cfg, err := access.LoadConfig(accessPath)
		if err != nil {
			return err
		}
		accessCfg = &cfg
	}

	var mu sync.Mutex
	backends := make(map[string]query.Backend)

	srv := httpapi.NewServer(cat, m, reg, logger)
	if signingKey != "" {
		srv.SetSigningKey([]byte(signingKey))
	}
	srv.SetBackendResolver(func(name string, ds *dataset.Dataset) (query.Backend, error) {
		mu.Lock()
		defer mu.Unlock()
		if b, ok := backends[name]; ok {
			return b, nil
		}
		cfg := access.Config{Type: "disk", PathTemplate: name + "/{{.BlockID}}.bin"}
		if accessCfg != nil {
			cfg = *accessCfg
		}
		b, err := access.Build(ds, cfg)
		if err != nil {
			return nil, err
		}
		backends[name] = b
		return b, nil
	})

	logger.Sugar().Infof("idxserver listening on %s", addr)
	return http.ListenAndServe(addr, srv)
}
