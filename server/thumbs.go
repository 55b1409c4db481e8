// Copyright 2025 The Breadmap Authors
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
)

// ImageSearcher is the slice of the Kakao client thumbnail enrichment
// needs.
type ImageSearcher interface {
	ImageSearch(ctx context.Context, query string) (string, error)
}

// ThumbFetcher decorates recommendations with thumbnail URLs. Lookups for
// one response fan out concurrently under a weighted-semaphore gate so a
// single request cannot burst against the image service; a failed or
// timed-out lookup leaves that item without a thumbnail and never fails
// the request.
type ThumbFetcher struct {
	images   ImageSearcher
	sem      *semaphore.Weighted
	timeout  time.Duration
	failures atomic.Int64
}

// NewThumbFetcher creates a fetcher allowing at most concurrency in-flight
// lookups across all requests.
func NewThumbFetcher(images ImageSearcher, concurrency int, timeout time.Duration) *ThumbFetcher {
	if concurrency <= 0 {
		concurrency = 4
	}

	return &ThumbFetcher{
		images:  images,
		sem:     semaphore.NewWeighted(int64(concurrency)),
		timeout: timeout,
	}
}

// Fetch returns one thumbnail URL per query, aligned to the input; empty
// strings mark lookups that found nothing or failed. Failures are counted
// and reported per batch instead of disappearing silently.
func (t *ThumbFetcher) Fetch(ctx context.Context, queries []string) []string {
	urls := make([]string, len(queries))

	var wg sync.WaitGroup

	var failed atomic.Int64

	for i, q := range queries {
		if q == "" {
			continue
		}

		if err := t.sem.Acquire(ctx, 1); err != nil {
			break
		}

		wg.Add(1)

		go func(i int, q string) {
			defer wg.Done()
			defer t.sem.Release(1)

			callCtx, cancel := context.WithTimeout(ctx, t.timeout)
			defer cancel()

			u, err := t.images.ImageSearch(callCtx, q)
			if err != nil {
				failed.Add(1)

				return
			}

			urls[i] = u
		}(i, q)
	}

	wg.Wait()

	if n := failed.Load(); n > 0 {
		total := t.failures.Add(n)
		log.Printf("thumbs: %d/%d lookups failed this batch (%d since start)", n, len(queries), total)
	}

	return urls
}
