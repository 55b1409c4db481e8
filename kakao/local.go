// Copyright 2025 The Breadmap Authors
// SPDX-License-Identifier: Apache-2.0

package kakao

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/breadmap/breadmap/spatial"
)

// localResponse is the shared document shape of the Local API endpoints.
// Kakao serializes coordinates as strings: x is longitude, y is latitude.
type localResponse struct {
	Documents []struct {
		X string `json:"x"`
		Y string `json:"y"`
	} `json:"documents"`
}

// AddressSearch resolves a structured address to its best-match
// coordinates. Returns ErrNoMatch when the service has no candidate and
// ErrNoQuery when the key or query is empty.
func (c *Client) AddressSearch(ctx context.Context, query string) (*spatial.Point, error) {
	return c.localSearch(ctx, "/v2/local/search/address.json", query)
}

// KeywordSearch resolves a free-text query (a tidied address, or a
// "district + place name" fallback) to its best-match coordinates.
func (c *Client) KeywordSearch(ctx context.Context, query string) (*spatial.Point, error) {
	return c.localSearch(ctx, "/v2/local/search/keyword.json", query)
}

func (c *Client) localSearch(ctx context.Context, path, query string) (*spatial.Point, error) {
	if query == "" {
		return nil, ErrNoQuery
	}

	params := url.Values{}
	params.Set("query", query)

	var resp localResponse
	if err := c.getJSON(ctx, path, params, &resp); err != nil {
		return nil, err
	}

	if len(resp.Documents) == 0 {
		return nil, ErrNoMatch
	}

	best := resp.Documents[0]

	lng, err := strconv.ParseFloat(best.X, 64)
	if err != nil {
		return nil, fmt.Errorf("kakao: parsing x %q: %w", best.X, err)
	}

	lat, err := strconv.ParseFloat(best.Y, 64)
	if err != nil {
		return nil, fmt.Errorf("kakao: parsing y %q: %w", best.Y, err)
	}

	return &spatial.Point{Lat: lat, Lng: lng}, nil
}
