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
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v4"

	"github.com/openvisus/idx/internal/errkind"
)

// requireBearerToken is a chi middleware that accepts a request only if it
// carries a valid HS256-signed "Authorization: Bearer <token>" header, keyed
// against the server's signing key at request time (so SetSigningKey can be
// called any time before the server starts accepting traffic, same as
// SetBackendResolver). A nil or empty key disables the check: the server
// runs with write auth off, the mod_visus default of trusting whatever sits
// in front of it.
func (s *Server) requireBearerToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := s.signingKey
		if len(key) == 0 {
			next.ServeHTTP(w, r)
			return
		}
		raw := r.Header.Get("Authorization")
		const prefix = "Bearer "
		if !strings.HasPrefix(raw, prefix) {
			writeError(w, http.StatusUnauthorized, errkind.Newf(errkind.PermissionDenied, "mod_visus: missing bearer token"))
			return
		}
		_, err := jwt.Parse(strings.TrimPrefix(raw, prefix), func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errkind.Newf(errkind.PermissionDenied, "mod_visus: unexpected signing method %v", t.Header["alg"])
			}
			return key, nil
		})
		if err != nil {
			writeError(w, http.StatusUnauthorized, errkind.New(errkind.PermissionDenied, err))
			return
		}
		next.ServeHTTP(w, r)
	})
}
