// Copyright 2025 The Breadmap Authors
// SPDX-License-Identifier: Apache-2.0

package kakao

import (
	"context"
	"net/url"
)

type imageResponse struct {
	Documents []struct {
		ThumbnailURL string `json:"thumbnail_url"`
	} `json:"documents"`
}

// ImageSearch returns the first thumbnail URL for a query, used to
// decorate recommendations. ErrNoMatch when the service has no candidate.
func (c *Client) ImageSearch(ctx context.Context, query string) (string, error) {
	if query == "" {
		return "", ErrNoQuery
	}

	params := url.Values{}
	params.Set("query", query)
	params.Set("size", "1")

	var resp imageResponse
	if err := c.getJSON(ctx, "/v2/search/image", params, &resp); err != nil {
		return "", err
	}

	if len(resp.Documents) == 0 || resp.Documents[0].ThumbnailURL == "" {
		return "", ErrNoMatch
	}

	return resp.Documents[0].ThumbnailURL, nil
}
