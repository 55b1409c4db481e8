// Copyright 2025 The Breadmap Authors
// SPDX-License-Identifier: Apache-2.0

package dataset

import (
	"strings"

	"github.com/breadmap/breadmap/spatial"
)

// Item is one row of the served dataset. Free-text fields are never nil;
// the empty string is the absence value.
type Item struct {
	ID        int64         `json:"id"`
	Name      string        `json:"name"`
	Address   string        `json:"address"`
	Intro     string        `json:"intro"`
	Signature string        `json:"signature"`
	Point     spatial.Point `json:"point"`
}

// Text returns the concatenated free-text fields used for indexing. It is
// derived on demand and never persisted.
func (i *Item) Text() string {
	parts := make([]string, 0, 3)

	for _, s := range []string{i.Name, i.Intro, i.Signature} {
		if s != "" {
			parts = append(parts, s)
		}
	}

	return strings.Join(parts, " ")
}
