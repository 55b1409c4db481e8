// Copyright 2025 The Breadmap Authors
// SPDX-License-Identifier: Apache-2.0

// Package ingest rebuilds the served dataset wholesale from noisy,
// multi-source tabular input: column aliasing, field normalization,
// deduplication, and coordinate resolution through the geocode package.
package ingest

import (
	"regexp"
	"strings"
)

// aliases maps every known source column spelling onto the canonical
// schema. Matching is case- and whitespace-insensitive.
var aliases = map[string][]string{
	"id":        {"id", "빵집id", "bakery_id", "place_id"},
	"name":      {"name", "빵집명", "상호명", "place_name"},
	"address":   {"address", "위치", "주소", "지번주소", "도로명주소", "road_address", "road_address_name"},
	"intro":     {"intro", "한줄소개", "소개", "description", "desc", "소개글"},
	"signature": {"signature", "대표메뉴", "시그니처", "메인메뉴"},
	"lat":       {"lat", "위도", "y", "latitude"},
	"lng":       {"lng", "경도", "x", "longitude", "lon"},
}

// Hint columns driving the stage-three geocoding fallback. They are read
// from the raw table before alias mapping and discarded afterwards.
const (
	hintGu   = "구"
	hintName = "빵집명"
)

var headerSpaceRe = regexp.MustCompile(`\s+`)

// normalizeHeader canonicalizes a raw column name for alias matching.
func normalizeHeader(col string) string {
	col = strings.ReplaceAll(col, " ", " ")
	col = strings.TrimPrefix(col, "\uFEFF")
	col = strings.ToLower(strings.TrimSpace(col))

	return headerSpaceRe.ReplaceAllString(col, "")
}

// mapColumns resolves the raw header onto canonical column positions.
// Canonical columns absent from the source map to -1 and read as empty.
func mapColumns(header []string) map[string]int {
	normalized := make([]string, len(header))
	for i, h := range header {
		normalized[i] = normalizeHeader(h)
	}

	pos := make(map[string]int, len(aliases))

	for canonical, variants := range aliases {
		pos[canonical] = -1

		for _, v := range variants {
			v = normalizeHeader(v)

			for i, h := range normalized {
				if h == v {
					pos[canonical] = i

					break
				}
			}

			if pos[canonical] >= 0 {
				break
			}
		}
	}

	return pos
}

// findColumn locates one exact (normalized) column, -1 when absent.
func findColumn(header []string, name string) int {
	want := normalizeHeader(name)

	for i, h := range header {
		if normalizeHeader(h) == want {
			return i
		}
	}

	return -1
}
