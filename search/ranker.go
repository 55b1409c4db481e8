// Copyright 2025 The Breadmap Authors
// SPDX-License-Identifier: Apache-2.0

package search

import (
	"sort"

	"github.com/breadmap/breadmap/dataset"
	"github.com/breadmap/breadmap/spatial"
)

// Query describes one recommendation request. Radius and Limit are
// deployment parameters, not user input.
type Query struct {
	Location spatial.Point
	Keywords []string
	Exclude  map[int64]bool
	Radius   float64
	Limit    int
}

// Result is one ranked item with its distance from the requester and its
// keyword similarity score attached.
type Result struct {
	dataset.Item
	Distance float64 `json:"distance"`
	Score    float64 `json:"score"`
}

// Rank produces the ordered top-N recommendation for a query against one
// snapshot. Pure: no side effects, deterministic given the snapshot.
//
// Items in the exclusion set are removed first, then anything farther than
// the radius. When keywords are supplied and the snapshot carries a usable
// index, similarity is computed over the full snapshot and re-aligned onto
// the surviving items by id, and the order is score descending with
// distance ascending as tie-break. Without keywords or without an index
// every score is zero and the order is distance ascending.
func Rank(snap *dataset.Snapshot, q Query) []Result {
	var results []Result

	for i := range snap.Items {
		it := &snap.Items[i]
		if q.Exclude[it.ID] {
			continue
		}

		d := q.Location.HaversineDistance(&it.Point)
		if d > q.Radius {
			continue
		}

		results = append(results, Result{Item: *it, Distance: d})
	}

	scored := len(q.Keywords) > 0 && snap.IndexUsable()

	if scored {
		// Scores are aligned to the full snapshot's item order, but the
		// radius filter changed membership: re-align by id, not position.
		scores := snap.Index.Scores(q.Keywords)

		byID := make(map[int64]float64, len(snap.Items))
		for i := range snap.Items {
			byID[snap.Items[i].ID] = scores[i]
		}

		for i := range results {
			results[i].Score = byID[results[i].ID]
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		if scored && results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}

		return results[i].Distance < results[j].Distance
	})

	if q.Limit > 0 && len(results) > q.Limit {
		results = results[:q.Limit]
	}

	return results
}
