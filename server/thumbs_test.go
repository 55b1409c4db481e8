// Copyright 2025 The Breadmap Authors
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gaugedImages tracks peak concurrent lookups.
type gaugedImages struct {
	inFlight atomic.Int64
	peak     atomic.Int64
	fail     bool
}

func (g *gaugedImages) ImageSearch(_ context.Context, q string) (string, error) {
	cur := g.inFlight.Add(1)
	defer g.inFlight.Add(-1)

	for {
		peak := g.peak.Load()
		if cur <= peak || g.peak.CompareAndSwap(peak, cur) {
			break
		}
	}

	time.Sleep(time.Millisecond)

	if g.fail {
		return "", errors.New("down")
	}

	return "https://img.example/" + q + ".jpg", nil
}

func TestThumbFetcherAlignedResults(t *testing.T) {
	f := NewThumbFetcher(&gaugedImages{}, 4, time.Second)

	urls := f.Fetch(context.Background(), []string{"성심당", "", "하레하레"})

	require.Len(t, urls, 3)
	assert.Equal(t, "https://img.example/성심당.jpg", urls[0])
	assert.Empty(t, urls[1], "empty query is skipped without a lookup")
	assert.Equal(t, "https://img.example/하레하레.jpg", urls[2])
}

func TestThumbFetcherBoundedConcurrency(t *testing.T) {
	g := &gaugedImages{}
	f := NewThumbFetcher(g, 3, time.Second)

	queries := make([]string, 24)
	for i := range queries {
		queries[i] = "빵집"
	}

	f.Fetch(context.Background(), queries)

	assert.LessOrEqual(t, g.peak.Load(), int64(3))
}

func TestThumbFetcherFailuresLeaveBlanks(t *testing.T) {
	f := NewThumbFetcher(&gaugedImages{fail: true}, 2, time.Second)

	urls := f.Fetch(context.Background(), []string{"a", "b"})

	require.Len(t, urls, 2)
	assert.Empty(t, urls[0])
	assert.Empty(t, urls[1])
	assert.Equal(t, int64(2), f.failures.Load())
}
