// Copyright 2025 The Breadmap Authors
// SPDX-License-Identifier: Apache-2.0

package dataset

import (
	"log"
	"sync/atomic"
)

// TextIndex answers similarity queries over the snapshot it was built from.
// Scores are aligned to the snapshot's item order; Rows is the number of
// documents the index was built over.
type TextIndex interface {
	Rows() int
	Scores(keywords []string) []float64
}

// IndexBuilder builds a TextIndex over one text per item. ok is false when
// no usable index can be built (empty corpus, empty vocabulary); that is a
// normal degraded state, not an error.
type IndexBuilder func(texts []string) (TextIndex, bool)

// Snapshot is an immutable pairing of an item collection and the text index
// derived from it. Index is nil when no usable index exists.
type Snapshot struct {
	Items []Item
	Index TextIndex
}

// IndexUsable reports whether the snapshot's index can be used to score its
// items. A stale or mismatched pairing counts as "no index".
func (s *Snapshot) IndexUsable() bool {
	return s.Index != nil && s.Index.Rows() == len(s.Items)
}

// Store holds the current snapshot and supports atomic replace-on-reload.
// Readers dereference one snapshot per query and never observe a mix of
// old and new data.
type Store struct {
	path  string
	build IndexBuilder
	snap  atomic.Pointer[Snapshot]
}

// NewStore creates a store serving the dataset at path. The store starts
// empty; call Load to populate it.
func NewStore(path string, build IndexBuilder) *Store {
	s := &Store{path: path, build: build}
	s.snap.Store(&Snapshot{})

	return s
}

// Load rebuilds the snapshot from the dataset file and swaps it in. A
// missing or unreadable file yields an empty snapshot rather than an
// error: the serving surface degrades to zero rows. Returns the retained
// row count.
func (s *Store) Load() int {
	items, err := ReadTable(s.path)
	if err != nil {
		log.Printf("dataset: load %s: %v (serving empty snapshot)", s.path, err)

		items = nil
	}

	snap := &Snapshot{Items: items}

	if s.build != nil && len(items) > 0 {
		texts := make([]string, len(items))
		for i := range items {
			texts[i] = items[i].Text()
		}

		if idx, ok := s.build(texts); ok {
			snap.Index = idx
		}
	}

	s.snap.Store(snap)

	return len(items)
}

// Current returns the snapshot being served. Never nil.
func (s *Store) Current() *Snapshot {
	return s.snap.Load()
}
