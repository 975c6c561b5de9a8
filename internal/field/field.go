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

// Package field describes sampled-field metadata: per-sample scalar type,
// on-disk codec, and the named, queryable fields a Dataset exposes.
package field

import (
	"fmt"
	"strconv"
	"strings"
)

// DType is a sampled value's scalar type.
type DType int

const (
	DTypeInvalid DType = iota
	U8
	I8
	U16
	I16
	U32
	I32
	U64
	I64
	F32
	F64
)

var dtypeNames = map[DType]string{
	U8: "uint8", I8: "int8",
	U16: "uint16", I16: "int16",
	U32: "uint32", I32: "int32",
	U64: "uint64", I64: "int64",
	F32: "float32", F64: "float64",
}

func (d DType) String() string {
	if s, ok := dtypeNames[d]; ok {
		return s
	}
	return "invalid"
}

// ByteSize returns the dtype's width in bytes.
func (d DType) ByteSize() int {
	switch d {
	case U8, I8:
		return 1
	case U16, I16:
		return 2
	case U32, I32, F32:
		return 4
	case U64, I64, F64:
		return 8
	default:
		return 0
	}
}

// ParseDType parses a dtype name as it would appear in a manifest, e.g.
// "float64", "uint8".
func ParseDType(s string) (DType, error) {
	for d, name := range dtypeNames {
		if name == s {
			return d, nil
		}
	}
	return DTypeInvalid, fmt.Errorf("field: unknown dtype %q", s)
}

// Codec names the on-disk encoding of a field's block data.
type Codec int

const (
	CodecInvalid Codec = iota
	Raw
	Zip
	LZ4
	JPG
	PNG
)

var codecNames = map[Codec]string{
	Raw: "raw", Zip: "zip", LZ4: "lz4", JPG: "jpg", PNG: "png",
}

func (c Codec) String() string {
	if s, ok := codecNames[c]; ok {
		return s
	}
	return "invalid"
}

// ParseCodec parses a codec name as it would appear in a manifest or a
// query string's "compression=" parameter.
func ParseCodec(s string) (Codec, error) {
	for c, name := range codecNames {
		if name == s {
			return c, nil
		}
	}
	return CodecInvalid, fmt.Errorf("field: unknown codec %q", s)
}

// IsByteStream reports whether codec stores a block as a flat byte stream
// (Decode/Encode) rather than a decoded image (DecodeImage): raw and zip
// blocks are the sample buffer exactly as the HZ address walk produced it,
// one elemSize-byte run per address in [block*2^bitsperblock,
// (block+1)*2^bitsperblock) — i.e. HZ order, not row-major (§3, §4.4).
func (c Codec) IsByteStream() bool {
	return c == Raw || c == Zip || c == CodecInvalid
}

// Field is one named, typed, queryable scalar (or small fixed-size vector)
// stored per sample.
type Field struct {
	Name        string
	DType       DType
	NumComps    int // vector width; 1 for scalar fields
	Codec       Codec
	Description string
}

// ByteSize returns a single sample's uncompressed size in bytes.
func (f Field) ByteSize() int {
	n := f.NumComps
	if n <= 0 {
		n = 1
	}
	return n * f.DType.ByteSize()
}

// Params holds the parsed per-request field parameters carried on a box or
// block query URL, e.g. "?field=data&time=30&compression=zip".
type Params struct {
	FieldName string
	Time      float64
	Compression Codec
}

// ParseParams parses the field-selection query parameters described in §6.
// Missing time defaults to 0; missing compression defaults to the field's
// own on-disk codec (signalled by CodecInvalid).
func ParseParams(values map[string][]string) (Params, error) {
	p := Params{Compression: CodecInvalid}
	if v := first(values, "field"); v != "" {
		p.FieldName = v
	}
	if v := first(values, "time"); v != "" {
		t, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return Params{}, fmt.Errorf("field: invalid time %q: %w", v, err)
		}
		p.Time = t
	}
	if v := first(values, "compression"); v != "" {
		c, err := ParseCodec(strings.ToLower(v))
		if err != nil {
			return Params{}, err
		}
		p.Compression = c
	}
	return p, nil
}

func first(values map[string][]string, key string) string {
	if vs, ok := values[key]; ok && len(vs) > 0 {
		return vs[0]
	}
	return ""
}
