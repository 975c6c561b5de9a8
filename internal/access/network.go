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
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"

	"github.com/openvisus/idx/internal/dataset"
	"github.com/openvisus/idx/internal/errkind"
	"github.com/openvisus/idx/internal/field"
	"github.com/openvisus/idx/internal/query"
)

// Network fetches blocks from a remote mod_visus-style HTTP endpoint
// (§4.6 "network"), throttling requests with a token-bucket limiter
// (NConnections requests per second, burst NConnections) and retrying
// transient failures with exponential backoff.
type Network struct {
	ds      *dataset.Dataset
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
	bpb     int
}

func NewNetwork(ds *dataset.Dataset, cfg Config) (*Network, error) {
	if cfg.URL == "" {
		return nil, errkind.Newf(errkind.InvalidArgument, "access: network config requires url")
	}
	n := cfg.NConnections
	if n <= 0 {
		n = 4
	}
	return &Network{
		ds:      ds,
		baseURL: cfg.URL,
		client:  &http.Client{Timeout: 30 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(n), n),
		bpb:     ds.BitsPerBlock,
	}, nil
}

func (n *Network) CanRead() bool     { return true }
func (n *Network) CanWrite() bool    { return false }
func (n *Network) BitsPerBlock() int { return n.bpb }

func (n *Network) ReadBlock(ctx context.Context, bq *query.BlockQuery) {
	if err := n.limiter.Wait(ctx); err != nil {
		bq.Fail(errkind.New(errkind.Aborted, err))
		return
	}

	from := bq.BlockID << uint(n.bpb)
	to := (bq.BlockID + 1) << uint(n.bpb)
	url := fmt.Sprintf("%s?action=blockquery&field=%s&from=%d&to=%d", n.baseURL, bq.Field.Name, from, to)

	var data []byte
	var layout string
	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		resp, err := n.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode == http.StatusNotFound {
			return backoff.Permanent(errkind.Newf(errkind.NotFound, "network: block %d not found", bq.BlockID))
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("network: block %d: status %s", bq.BlockID, resp.Status)
		}
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		data = body
		layout = resp.Header.Get("visus-layout")
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3), ctx)
	if err := backoff.Retry(op, policy); err != nil {
		if errkind.Is(err, errkind.NotFound) {
			bq.Fail(err)
			return
		}
		bq.Fail(errkind.New(errkind.BackendIO, err))
		return
	}

	decoded, err := field.Decode(bq.Field.Codec, data)
	if err != nil {
		bq.Fail(err)
		return
	}
	if layout == "hzorder" {
		bq.Layout = "hzorder"
	}
	bq.Ok(decoded)
}

func (n *Network) WriteBlock(ctx context.Context, bq *query.BlockQuery) {
	bq.Fail(errkind.Newf(errkind.InvalidArgument, "network: backend does not support writes"))
}
