// Copyright 2025 The Breadmap Authors
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/breadmap/breadmap/dataset"
	"github.com/breadmap/breadmap/search"
	"github.com/breadmap/breadmap/spatial"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func buildIndex(texts []string) (dataset.TextIndex, bool) {
	return search.BuildIndex(texts)
}

// testStore writes a dataset file and returns a loaded store plus the
// file path for reload tests.
func testStore(t *testing.T, items []dataset.Item) (*dataset.Store, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "clean.csv")
	require.NoError(t, dataset.WriteTable(path, items))

	store := dataset.NewStore(path, buildIndex)
	store.Load()

	return store, path
}

var testItems = []dataset.Item{
	{
		ID:        1,
		Name:      "성심당",
		Address:   "대전 중구 대종로480번길 15",
		Intro:     "튀김소보로로 유명",
		Signature: "튀김소보로",
		Point:     spatial.Point{Lat: 36.3273, Lng: 127.4275},
	},
	{
		ID:        2,
		Name:      "하레하레",
		Address:   "대전 유성구 대학로 99",
		Signature: "소금빵",
		Point:     spatial.Point{Lat: 36.3290, Lng: 127.4280},
	},
	{
		// Roughly 8 km away from the query point below.
		ID:      3,
		Name:    "먼빵집",
		Address: "대전 유성구",
		Point:   spatial.Point{Lat: 36.40, Lng: 127.39},
	},
}

func doRequest(t *testing.T, s *Server, method, target string) *httptest.ResponseRecorder {
	t.Helper()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, target, nil)
	s.router().ServeHTTP(w, req)

	return w
}

func TestHealthReportsRows(t *testing.T) {
	store, _ := testStore(t, testItems)
	s := NewServer(store, nil, 2000, 10)

	w := doRequest(t, s, http.MethodGet, "/health")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Status string `json:"status"`
		Rows   int    `json:"rows"`
	}

	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, 3, body.Rows)
}

func TestRecommendDistanceOrder(t *testing.T) {
	store, _ := testStore(t, testItems)
	s := NewServer(store, nil, 2000, 10)

	w := doRequest(t, s, http.MethodGet, "/recommend?lat=36.3273&lng=127.4275")
	require.Equal(t, http.StatusOK, w.Code)

	var body []recommendation

	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body, 2, "the 8 km item is outside the radius")
	assert.Equal(t, int64(1), body[0].ID)
	assert.Equal(t, int64(2), body[1].ID)
	assert.Zero(t, body[0].Score)
	assert.Less(t, body[0].Distance, body[1].Distance)
}

func TestRecommendKeywordOrder(t *testing.T) {
	store, _ := testStore(t, testItems)
	s := NewServer(store, nil, 2000, 10)

	w := doRequest(t, s, http.MethodGet, "/recommend?lat=36.3273&lng=127.4275&keywords=소금빵")
	require.Equal(t, http.StatusOK, w.Code)

	var body []recommendation

	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body, 2)
	assert.Equal(t, int64(2), body[0].ID, "the salt-bread bakery must outrank the nearer one")
	assert.Greater(t, body[0].Score, 0.0)
}

func TestRecommendExclude(t *testing.T) {
	store, _ := testStore(t, testItems)
	s := NewServer(store, nil, 2000, 10)

	w := doRequest(t, s, http.MethodGet, "/recommend?lat=36.3273&lng=127.4275&exclude=1")
	require.Equal(t, http.StatusOK, w.Code)

	var body []recommendation

	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body, 1)
	assert.Equal(t, int64(2), body[0].ID)
}

func TestRecommendBadParameters(t *testing.T) {
	store, _ := testStore(t, testItems)
	s := NewServer(store, nil, 2000, 10)

	for _, target := range []string{
		"/recommend",
		"/recommend?lat=abc&lng=127.4",
		"/recommend?lat=36.3&lng=",
		"/recommend?lat=36.3&lng=127.4&exclude=x",
	} {
		w := doRequest(t, s, http.MethodGet, target)
		assert.Equalf(t, http.StatusBadRequest, w.Code, "target %s", target)
	}
}

func TestReloadSwapsSnapshot(t *testing.T) {
	store, path := testStore(t, testItems[:1])
	s := NewServer(store, nil, 2000, 10)

	require.NoError(t, dataset.WriteTable(path, testItems))

	w := doRequest(t, s, http.MethodPost, "/reload")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Rows int `json:"rows"`
	}

	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 3, body.Rows)

	w = doRequest(t, s, http.MethodGet, "/health")

	var health struct {
		Rows int `json:"rows"`
	}

	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &health))
	assert.Equal(t, 3, health.Rows)
}

// fakeImages answers image searches from a map and fails the rest.
type fakeImages struct {
	urls map[string]string
}

func (f *fakeImages) ImageSearch(_ context.Context, q string) (string, error) {
	if u, ok := f.urls[q]; ok {
		return u, nil
	}

	return "", errors.New("image service down")
}

func TestRecommendThumbnailEnrichment(t *testing.T) {
	store, _ := testStore(t, testItems)
	thumbs := NewThumbFetcher(&fakeImages{urls: map[string]string{
		"성심당": "https://img.example/sungsimdang.jpg",
	}}, 2, time.Second)
	s := NewServer(store, thumbs, 2000, 10)

	w := doRequest(t, s, http.MethodGet, "/recommend?lat=36.3273&lng=127.4275")
	require.Equal(t, http.StatusOK, w.Code)

	var body []recommendation

	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body, 2)

	// Enrichment decorates what it can and leaves the rest intact.
	assert.Equal(t, "https://img.example/sungsimdang.jpg", body[0].ThumbnailURL)
	assert.Empty(t, body[1].ThumbnailURL)
}
