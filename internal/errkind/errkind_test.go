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

package errkind

import (
	"errors"
	"fmt"
	"testing"
)

func TestOfRoundTrips(t *testing.T) {
	err := New(NotFound, errors.New("dataset missing"))
	if Of(err) != NotFound {
		t.Fatalf("Of() = %v, want NotFound", Of(err))
	}
	if !Is(err, NotFound) {
		t.Fatal("Is(NotFound) = false")
	}
	if Is(err, Corrupt) {
		t.Fatal("Is(Corrupt) = true")
	}
}

func TestOfUnwrapsThroughFmtErrorf(t *testing.T) {
	base := New(BackendIO, errors.New("disk read failed"))
	wrapped := fmt.Errorf("Load(%q): %w", "foo.idx", base)
	if Of(wrapped) != BackendIO {
		t.Fatalf("Of(wrapped) = %v, want BackendIO", Of(wrapped))
	}
}

func TestOfUnknownForPlainError(t *testing.T) {
	if Of(errors.New("plain")) != Unknown {
		t.Fatal("expected Unknown for a plain error")
	}
}

func TestNewNilIsNil(t *testing.T) {
	if New(Internal, nil) != nil {
		t.Fatal("New(kind, nil) must return nil")
	}
}
