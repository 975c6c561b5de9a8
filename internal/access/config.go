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

// Package access implements the five Access backends of §4.6 — disk, ram,
// network, multiplex and filter — behind the query.Backend contract, plus
// the TOML config tree (§4.9, §6) that assembles them into a pipeline.
package access

import (
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/openvisus/idx/internal/dataset"
	"github.com/openvisus/idx/internal/errkind"
	"github.com/openvisus/idx/internal/query"
)

// Config is one node of the Access pipeline tree. Type selects which
// backend it builds; the remaining fields are interpreted per type.
type Config struct {
	Type string `toml:"type"`

	// disk
	PathTemplate string `toml:"path_template,omitempty"`

	// ram
	AvailableBytes string `toml:"available_bytes,omitempty"`

	// network
	URL          string `toml:"url,omitempty"`
	NConnections int    `toml:"nconnections,omitempty"`

	// multiplex
	Children []Config `toml:"children,omitempty"`

	// filter
	KernelName string  `toml:"kernel,omitempty"`
	Inner      *Config `toml:"inner,omitempty"`
}

// LoadConfig reads and parses a TOML Access config tree from path.
func LoadConfig(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errkind.New(errkind.NotFound, err)
	}
	var cfg Config
	if err := toml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, errkind.New(errkind.Corrupt, err)
	}
	return cfg, nil
}

// Build assembles a query.Backend tree from cfg (§4.9 "access config
// grammar").
func Build(ds *dataset.Dataset, cfg Config) (query.Backend, error) {
	switch cfg.Type {
	case "disk":
		return NewDisk(ds, cfg)
	case "ram":
		return NewRAM(ds, cfg)
	case "network":
		return NewNetwork(ds, cfg)
	case "multiplex":
		children := make([]query.Backend, 0, len(cfg.Children))
		for i := range cfg.Children {
			child, err := Build(ds, cfg.Children[i])
			if err != nil {
				return nil, err
			}
			children = append(children, child)
		}
		return NewMultiplex(ds, children), nil
	case "filter":
		if cfg.Inner == nil {
			return nil, errkind.Newf(errkind.InvalidArgument, "access: filter config requires inner")
		}
		inner, err := Build(ds, *cfg.Inner)
		if err != nil {
			return nil, err
		}
		kernel, err := lookupKernel(cfg.KernelName)
		if err != nil {
			return nil, err
		}
		return NewFilter(inner, kernel), nil
	default:
		return nil, errkind.Newf(errkind.InvalidArgument, "access: unknown backend type %q", cfg.Type)
	}
}
