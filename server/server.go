// Copyright 2025 The Breadmap Authors
// SPDX-License-Identifier: Apache-2.0

// Package server exposes the recommendation dataset over HTTP: a health
// probe, a reload trigger, and the ranked recommend query.
package server

import (
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/breadmap/breadmap/dataset"
	"github.com/breadmap/breadmap/search"
	"github.com/breadmap/breadmap/spatial"
)

// Server serves recommendation queries against the store's current
// snapshot. Radius and limit are deployment parameters fixed at start.
type Server struct {
	store  *dataset.Store
	thumbs *ThumbFetcher // nil disables enrichment
	radius float64
	limit  int
}

// NewServer creates a server. thumbs may be nil.
func NewServer(store *dataset.Store, thumbs *ThumbFetcher, radius float64, limit int) *Server {
	return &Server{
		store:  store,
		thumbs: thumbs,
		radius: radius,
		limit:  limit,
	}
}

// Run starts the HTTP server on addr.
func (s *Server) Run(addr string) error {
	return s.router().Run(addr)
}

func (s *Server) router() *gin.Engine {
	r := gin.Default()

	r.GET("/health", s.health)
	r.POST("/reload", s.reload)
	r.GET("/recommend", s.recommend)

	return r
}

func (s *Server) health(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"rows":   len(s.store.Current().Items),
	})
}

func (s *Server) reload(ctx *gin.Context) {
	n := s.store.Load()

	log.Printf("reload: snapshot swapped, %d rows", n)
	ctx.JSON(http.StatusOK, gin.H{"rows": n})
}

// recommendation is one element of the recommend response.
type recommendation struct {
	ID           int64   `json:"id"`
	Name         string  `json:"name"`
	Address      string  `json:"address"`
	Lat          float64 `json:"lat"`
	Lng          float64 `json:"lng"`
	Intro        string  `json:"intro"`
	Signature    string  `json:"signature"`
	Distance     float64 `json:"distance"`
	Score        float64 `json:"score"`
	ThumbnailURL string  `json:"thumbnailUrl,omitempty"`
}

func (s *Server) recommend(ctx *gin.Context) {
	lat, err := strconv.ParseFloat(ctx.Query("lat"), 64)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid lat parameter"})

		return
	}

	lng, err := strconv.ParseFloat(ctx.Query("lng"), 64)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid lng parameter"})

		return
	}

	location := spatial.Point{Lat: lat, Lng: lng}
	if !location.Finite() {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid coordinates"})

		return
	}

	exclude, err := parseExclude(ctx.Query("exclude"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid exclude parameter"})

		return
	}

	results := search.Rank(s.store.Current(), search.Query{
		Location: location,
		Keywords: splitCSV(ctx.Query("keywords")),
		Exclude:  exclude,
		Radius:   s.radius,
		Limit:    s.limit,
	})

	out := make([]recommendation, len(results))

	for i, r := range results {
		out[i] = recommendation{
			ID:        r.ID,
			Name:      r.Name,
			Address:   r.Address,
			Lat:       r.Point.Lat,
			Lng:       r.Point.Lng,
			Intro:     r.Intro,
			Signature: r.Signature,
			Distance:  r.Distance,
			Score:     r.Score,
		}
	}

	if s.thumbs != nil && len(out) > 0 {
		queries := make([]string, len(out))
		for i := range out {
			queries[i] = out[i].Name
		}

		urls := s.thumbs.Fetch(ctx.Request.Context(), queries)
		for i := range out {
			out[i].ThumbnailURL = urls[i]
		}
	}

	ctx.JSON(http.StatusOK, out)
}

// splitCSV splits a comma-separated parameter, dropping empty entries.
func splitCSV(s string) []string {
	if s == "" {
		return nil
	}

	var out []string

	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}

	return out
}

// parseExclude parses the comma-separated id exclusion list.
func parseExclude(s string) (map[int64]bool, error) {
	if s == "" {
		return nil, nil
	}

	out := make(map[int64]bool)

	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, err
		}

		out[id] = true
	}

	return out, nil
}
