// Copyright 2025 The Breadmap Authors
// SPDX-License-Identifier: Apache-2.0

package search

import (
	"math"
	"strings"
)

// Index is a character-n-gram TF-IDF vector space over item texts. It
// suggests items for a keyword query based on cosine similarity, the same
// way a bag-of-words classifier compares descriptions against known
// articles, except terms here are 2-4 character n-grams so that partial
// and agglutinated Korean tokens still match.
type Index struct {
	idf     map[string]float64
	vectors []map[string]float64 // L2-normalized, aligned to build order
}

const (
	minGram = 2
	maxGram = 4
)

// BuildIndex vectorizes one text per item. ok is false when the corpus is
// empty or yields no terms at all; callers must treat that as "no index
// available" and fall back to score-zero ranking.
func BuildIndex(texts []string) (*Index, bool) {
	if len(texts) == 0 {
		return nil, false
	}

	// Document frequency per term.
	df := make(map[string]int)
	counts := make([]map[string]float64, len(texts))

	for i, text := range texts {
		tf := termFrequencies(text)
		counts[i] = tf

		for term := range tf {
			df[term]++
		}
	}

	if len(df) == 0 {
		return nil, false
	}

	n := float64(len(texts))
	idf := make(map[string]float64, len(df))

	for term, d := range df {
		// Smoothed idf, never zero, so every known term contributes.
		idf[term] = math.Log((1+n)/(1+float64(d))) + 1
	}

	idx := &Index{
		idf:     idf,
		vectors: make([]map[string]float64, len(texts)),
	}

	for i, tf := range counts {
		idx.vectors[i] = normalize(weigh(tf, idf))
	}

	return idx, true
}

// Rows returns the number of documents the index was built over.
func (x *Index) Rows() int {
	return len(x.vectors)
}

// Scores returns the cosine similarity between the keyword query and every
// indexed document, aligned to build order. Out-of-vocabulary queries
// score zero everywhere.
func (x *Index) Scores(keywords []string) []float64 {
	scores := make([]float64, len(x.vectors))

	query := normalize(weigh(termFrequencies(strings.Join(keywords, " ")), x.idf))
	if len(query) == 0 {
		return scores
	}

	for i, doc := range x.vectors {
		scores[i] = dot(query, doc)
	}

	return scores
}

// termFrequencies counts character n-grams of length 2-4 over the
// whitespace-collapsed, lowercased text.
func termFrequencies(text string) map[string]float64 {
	text = strings.ToLower(strings.Join(strings.Fields(text), " "))
	runes := []rune(text)
	tf := make(map[string]float64)

	for size := minGram; size <= maxGram; size++ {
		for i := 0; i+size <= len(runes); i++ {
			tf[string(runes[i:i+size])]++
		}
	}

	return tf
}

// weigh multiplies term counts by idf, dropping terms outside the
// vocabulary.
func weigh(tf map[string]float64, idf map[string]float64) map[string]float64 {
	v := make(map[string]float64, len(tf))

	for term, count := range tf {
		if w, ok := idf[term]; ok {
			v[term] = count * w
		}
	}

	return v
}

// normalize scales the vector to unit length so cosine similarity reduces
// to a dot product.
func normalize(v map[string]float64) map[string]float64 {
	var sum float64
	for _, w := range v {
		sum += w * w
	}

	if sum == 0 {
		return v
	}

	norm := math.Sqrt(sum)
	for term := range v {
		v[term] /= norm
	}

	return v
}

func dot(a, b map[string]float64) float64 {
	// Iterate the smaller map.
	if len(b) < len(a) {
		a, b = b, a
	}

	var sum float64

	for term, w := range a {
		if other, ok := b[term]; ok {
			sum += w * other
		}
	}

	return sum
}
