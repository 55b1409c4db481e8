// Copyright 2025 The Breadmap Authors
// SPDX-License-Identifier: Apache-2.0

// Package kakao is a minimal client for the Kakao Local and Image REST
// APIs: structured address search, free-text keyword search, and image
// search for thumbnails. Empty candidate lists and non-200 responses are
// "no match" conditions for callers, not protocol failures.
package kakao

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/breadmap/breadmap/utils/httputils"
)

const userAgent = "breadmap"

// Common errors returned by the client.
var (
	// ErrNoQuery means the lookup was skipped before any network call:
	// either the API key or the query string is empty.
	ErrNoQuery = errors.New("kakao: missing key or query")

	// ErrNoMatch means the service answered but had no candidate.
	ErrNoMatch = errors.New("kakao: no match")
)

// StatusError is a non-200 answer from the service, kept with enough of
// the body to be diagnosable per row.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("http_%d: %s", e.Code, e.Body)
}

// Client talks to the Kakao REST APIs. All calls share one rate limiter
// so concurrent fan-out batches do not burst past the service quota.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	trace      io.Writer
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithBaseURL overrides the API host, used by tests.
func WithBaseURL(u string) ClientOption {
	return func(c *Client) {
		c.baseURL = u
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithRateLimit caps requests per second across all calls.
func WithRateLimit(rps float64, burst int) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithTrace dumps every request and response to w, with the
// Authorization header redacted.
func WithTrace(w io.Writer) ClientOption {
	return func(c *Client) {
		c.trace = w
	}
}

// NewClient creates a client authenticating with apiKey. The default
// limiter allows 10 requests per second with a burst of 10, well under
// the Kakao quota.
func NewClient(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		apiKey:  apiKey,
		baseURL: "https://dapi.kakao.com",
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		limiter: rate.NewLimiter(rate.Limit(10), 10),
	}

	for _, opt := range opts {
		opt(c)
	}

	base := c.httpClient.Transport
	if base == nil {
		base = http.DefaultTransport
	}

	c.httpClient.Transport = &httputils.AppendRequestHeadersRoundTripper{
		Transport: &httputils.LoggingRoundTripper{
			Transport: base,
			Writer:    c.trace,
			DumpBody:  true,
		},
		Headers: map[string]string{
			"Authorization": "KakaoAK " + c.apiKey,
			"User-Agent":    userAgent,
		},
	}

	return c
}

// getJSON performs one rate-limited GET and decodes the JSON body into out.
func (c *Client) getJSON(ctx context.Context, path string, params url.Values, out any) error {
	if c.apiKey == "" {
		return ErrNoQuery
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("kakao: waiting for rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("kakao: building request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("kakao: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))

		return &StatusError{Code: resp.StatusCode, Body: string(body)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("kakao: decoding response: %w", err)
	}

	return nil
}
