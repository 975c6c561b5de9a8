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

package dataset

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/openvisus/idx/internal/bitmask"
	"github.com/openvisus/idx/internal/errkind"
	"github.com/openvisus/idx/internal/field"
)

// Manifest is the YAML-serializable form of a Dataset (§4.8), superseding
// OpenVisus's native .idx text format with an equivalent shape.
type Manifest struct {
	PDim         int              `yaml:"pdim"`
	Bitmask      string           `yaml:"bitmask"`
	BitsPerBlock int              `yaml:"bitsperblock"`
	FullRes      bool             `yaml:"full_res"`
	Fields       []ManifestField  `yaml:"fields"`
	Timesteps    []float64        `yaml:"timesteps"`
}

type ManifestField struct {
	Name        string `yaml:"name"`
	DType       string `yaml:"dtype"`
	NumComps    int    `yaml:"num_comps"`
	Codec       string `yaml:"codec"`
	Description string `yaml:"description"`
}

// Load reads and parses a manifest file and builds the Dataset it
// describes.
func Load(path string) (*Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errkind.New(errkind.NotFound, err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, errkind.New(errkind.Corrupt, err)
	}
	return FromManifest(&m)
}

// FromManifest builds a Dataset from an already-parsed Manifest.
func FromManifest(m *Manifest) (*Dataset, error) {
	if m.PDim <= 0 {
		return nil, errkind.Newf(errkind.InvalidArgument, "manifest: pdim must be positive")
	}
	bm, err := bitmask.Parse(m.Bitmask, m.PDim)
	if err != nil {
		return nil, errkind.New(errkind.InvalidArgument, err)
	}
	fields := make([]field.Field, len(m.Fields))
	for i, mf := range m.Fields {
		dt, err := field.ParseDType(mf.DType)
		if err != nil {
			return nil, errkind.New(errkind.InvalidArgument, err)
		}
		codec := field.Raw
		if mf.Codec != "" {
			codec, err = field.ParseCodec(mf.Codec)
			if err != nil {
				return nil, errkind.New(errkind.InvalidArgument, err)
			}
		}
		numComps := mf.NumComps
		if numComps <= 0 {
			numComps = 1
		}
		fields[i] = field.Field{
			Name:        mf.Name,
			DType:       dt,
			NumComps:    numComps,
			Codec:       codec,
			Description: mf.Description,
		}
	}
	return New(bm, m.BitsPerBlock, m.FullRes, fields, m.Timesteps)
}
