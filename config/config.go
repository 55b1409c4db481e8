// Copyright 2025 The Breadmap Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds every runtime knob. All values are read once at process
// start; there is no hot reload.
type Config struct {
	// Input is the raw tabular input consumed by `breadmap preprocess`.
	Input string

	// Output is the cleaned dataset produced by the pipeline and served
	// by `breadmap serve`.
	Output string

	// Addr is the listen address of the HTTP server.
	Addr string

	// RadiusMeters is the fixed search radius for recommendations.
	RadiusMeters float64

	// Limit is the maximum number of recommendations per query.
	Limit int

	// KakaoAPIKey authenticates against the Kakao Local / Image REST APIs.
	KakaoAPIKey string

	// SkipGeocode disables coordinate resolution during preprocessing.
	SkipGeocode bool

	// GeocodeConcurrency caps in-flight geocoding lookups per round.
	GeocodeConcurrency int

	// GeocodeTimeout bounds a single geocoding lookup.
	GeocodeTimeout time.Duration

	// Thumbnails toggles thumbnail enrichment of recommendations.
	Thumbnails bool

	// ThumbConcurrency caps in-flight thumbnail lookups.
	ThumbConcurrency int

	// ThumbTimeout bounds a single thumbnail lookup.
	ThumbTimeout time.Duration

	// HTTPTrace dumps Kakao requests and responses to stderr.
	HTTPTrace bool
}

// Load reads the configuration from the environment, applying defaults
// for everything that is not set.
func Load() (*Config, error) {
	cfg := &Config{
		Input:              getenv("BREADMAP_INPUT", "data/bakeries_raw.csv"),
		Output:             getenv("BREADMAP_OUTPUT", "data/bakeries_clean.csv"),
		Addr:               getenv("BREADMAP_ADDR", "localhost:8081"),
		KakaoAPIKey:        os.Getenv("KAKAO_API_KEY"),
		SkipGeocode:        getenvBool("BREADMAP_SKIP_GEOCODE"),
		Thumbnails:         getenvBool("BREADMAP_THUMBS"),
		HTTPTrace:          getenvBool("BREADMAP_HTTP_TRACE"),
		GeocodeConcurrency: 8,
		GeocodeTimeout:     10 * time.Second,
		ThumbConcurrency:   4,
		ThumbTimeout:       3 * time.Second,
		RadiusMeters:       2000,
		Limit:              10,
	}

	var err error

	if cfg.RadiusMeters, err = getenvFloat("BREADMAP_RADIUS_M", cfg.RadiusMeters); err != nil {
		return nil, err
	}

	if cfg.Limit, err = getenvInt("BREADMAP_LIMIT", cfg.Limit); err != nil {
		return nil, err
	}

	if cfg.GeocodeConcurrency, err = getenvInt("BREADMAP_GEOCODE_CONCURRENCY", cfg.GeocodeConcurrency); err != nil {
		return nil, err
	}

	if cfg.GeocodeTimeout, err = getenvDuration("BREADMAP_GEOCODE_TIMEOUT", cfg.GeocodeTimeout); err != nil {
		return nil, err
	}

	if cfg.ThumbConcurrency, err = getenvInt("BREADMAP_THUMB_CONCURRENCY", cfg.ThumbConcurrency); err != nil {
		return nil, err
	}

	if cfg.ThumbTimeout, err = getenvDuration("BREADMAP_THUMB_TIMEOUT", cfg.ThumbTimeout); err != nil {
		return nil, err
	}

	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

func getenvBool(key string) bool {
	switch os.Getenv(key) {
	case "1", "true", "yes", "TRUE", "True", "YES":
		return true
	}

	return false
}

func getenvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}

	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q: %w", key, v, err)
	}

	return n, nil
}

func getenvFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}

	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q: %w", key, v, err)
	}

	return f, nil
}

func getenvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}

	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q: %w", key, v, err)
	}

	return d, nil
}
