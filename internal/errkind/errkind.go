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

// Package errkind classifies errors that cross package boundaries into a
// small fixed set of kinds, so callers (especially the HTTP layer) can map
// an error to a response without string-matching its message.
package errkind

import (
	"errors"
	"fmt"

	pkgerrors "github.com/pkg/errors"
)

// Kind is one of a fixed set of error classifications.
type Kind int

const (
	Unknown Kind = iota
	InvalidArgument
	NotFound
	Aborted
	BackendIO
	Corrupt
	Internal
	PermissionDenied
)

func (k Kind) String() string {
	switch k {
	case InvalidArgument:
		return "invalid_argument"
	case NotFound:
		return "not_found"
	case Aborted:
		return "aborted"
	case BackendIO:
		return "backend_io"
	case Corrupt:
		return "corrupt"
	case Internal:
		return "internal"
	case PermissionDenied:
		return "permission_denied"
	default:
		return "unknown"
	}
}

// kindError wraps an error with a Kind. Internal errors capture a stack
// trace via github.com/pkg/errors, since those indicate a bug the next
// debugging session will want a trace for; the other kinds are expected,
// routine failure modes and don't need one.
type kindError struct {
	kind Kind
	err  error
}

func (e *kindError) Error() string { return fmt.Sprintf("%s: %v", e.kind, e.err) }
func (e *kindError) Unwrap() error { return e.err }

// New wraps err with kind. If err is nil, New returns nil.
func New(kind Kind, err error) error {
	if err == nil {
		return nil
	}
	if kind == Internal {
		err = pkgerrors.WithStack(err)
	}
	return &kindError{kind: kind, err: err}
}

// Newf formats a message and wraps it as kind.
func Newf(kind Kind, format string, args ...any) error {
	return New(kind, fmt.Errorf(format, args...))
}

// Of reports the Kind of err, walking the Unwrap chain. Returns Unknown if
// no kindError is found.
func Of(err error) Kind {
	var ke *kindError
	if errors.As(err, &ke) {
		return ke.kind
	}
	return Unknown
}

// Is reports whether err is tagged with kind anywhere in its Unwrap chain.
func Is(err error, kind Kind) bool {
	return Of(err) == kind
}
