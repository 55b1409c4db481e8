// Copyright 2025 The Breadmap Authors
// SPDX-License-Identifier: Apache-2.0

package geocode

import (
	"context"
	"errors"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"

	"github.com/breadmap/breadmap/kakao"
	"github.com/breadmap/breadmap/spatial"
)

// Machine-checkable reason codes for unresolved rows. HTTP failures carry
// the status and body instead ("http_429: ...").
const (
	ReasonNoKeyOrAddress = "no_key_or_address"
	ReasonNoMatch        = "kakao_no_match"
	ReasonNoQuery        = "no_query"
)

// Searcher is the slice of the Kakao client the resolver needs.
type Searcher interface {
	AddressSearch(ctx context.Context, query string) (*spatial.Point, error)
	KeywordSearch(ctx context.Context, query string) (*spatial.Point, error)
}

// Row is one dataset row missing coordinates. Name and Gu are the hints
// driving the final fallback query; Index points back into the caller's
// table for failure reports.
type Row struct {
	Index   int
	Address string
	Name    string
	Gu      string
}

// Outcome is the terminal state of one row: Resolved with coordinates, or
// Unresolved with a reason code.
type Outcome struct {
	Resolved bool
	Point    *spatial.Point
	Reason   string
}

// Failure reports one row that stayed unresolved, with its last reason.
type Failure struct {
	Row     int    `json:"row"`
	Address string `json:"address"`
	Reason  string `json:"reason"`
}

// Resolver runs the staged lookup sequence. Within one round every
// pending row is looked up concurrently; rounds are separated by an
// exponential backoff so an empty-match or throttling wave does not turn
// into a burst against the service.
type Resolver struct {
	searcher    Searcher
	maxInFlight int
	timeout     time.Duration
	sleep       func(time.Duration)
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithMaxInFlight caps concurrent lookups per round.
func WithMaxInFlight(n int) ResolverOption {
	return func(r *Resolver) {
		if n > 0 {
			r.maxInFlight = n
		}
	}
}

// WithTimeout bounds a single lookup.
func WithTimeout(d time.Duration) ResolverOption {
	return func(r *Resolver) {
		r.timeout = d
	}
}

// WithSleep replaces the inter-round sleep, used by tests.
func WithSleep(f func(time.Duration)) ResolverOption {
	return func(r *Resolver) {
		r.sleep = f
	}
}

// NewResolver creates a resolver issuing lookups through s.
func NewResolver(s Searcher, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		searcher:    s,
		maxInFlight: 8,
		timeout:     10 * time.Second,
		sleep:       time.Sleep,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Resolve runs the full sequence over rows and returns one outcome per
// row (aligned to the input) plus the failure list for rows that stayed
// unresolved. One row's failure never aborts the batch, and there is no
// mid-batch cancellation: every round runs to completion.
func (r *Resolver) Resolve(ctx context.Context, rows []Row) ([]Outcome, []Failure) {
	outcomes := make([]Outcome, len(rows))

	// Rounds 0 and 1 work on rows with a usable address: structured
	// address search first, keyword search on the same address as the
	// fallback.
	var pending []int

	for i := range rows {
		if TidyAddress(rows[i].Address) != "" {
			pending = append(pending, i)
		}
	}

	log.Printf("geocode: need coords for %d rows (address-present) / total %d", len(pending), len(rows))

	filledTotal := 0

	for attempt := 0; attempt < 2 && len(pending) > 0; attempt++ {
		lookup := r.searcher.AddressSearch
		if attempt == 1 {
			lookup = r.searcher.KeywordSearch
		}

		queries := make([]string, len(pending))
		for k, i := range pending {
			queries[k] = TidyAddress(rows[i].Address)
		}

		results := r.fanOut(ctx, queries, lookup, "geocoding round")

		var remaining []int

		filled := 0

		for k, i := range pending {
			if results[k].point != nil {
				outcomes[i] = Outcome{Resolved: true, Point: results[k].point}
				filled++
			} else {
				outcomes[i].Reason = results[k].reason
				remaining = append(remaining, i)
			}
		}

		filledTotal += filled
		pending = remaining

		log.Printf("geocode: round %d: filled %d (total %d) remaining %d",
			attempt+1, filled, filledTotal, len(pending))

		if len(pending) > 0 {
			r.sleep(backoff(attempt))
		}
	}

	// Final round: district + place name for everything still
	// unresolved, including rows that never had an address. Rows without
	// any hint are settled without a network call.
	var fallback []int

	var queries []string

	for i := range rows {
		if outcomes[i].Resolved {
			continue
		}

		q := strings.TrimSpace(rows[i].Gu + " " + rows[i].Name)
		if q == "" {
			// Keep a more specific reason from an earlier round if the
			// row already had one.
			if outcomes[i].Reason == "" {
				outcomes[i].Reason = ReasonNoQuery
			}

			continue
		}

		fallback = append(fallback, i)
		queries = append(queries, q)
	}

	if len(fallback) > 0 {
		results := r.fanOut(ctx, queries, r.searcher.KeywordSearch, "geocoding fallback")

		filled := 0

		for k, i := range fallback {
			if results[k].point != nil {
				outcomes[i] = Outcome{Resolved: true, Point: results[k].point}
				filled++
			} else {
				outcomes[i].Reason = results[k].reason
			}
		}

		filledTotal += filled

		log.Printf("geocode: fallback round: filled %d (total %d)", filled, filledTotal)
	}

	// Only rows that ended unresolved are reported; a row rescued by a
	// later round appears in no failure list.
	var failures []Failure

	for i := range rows {
		if !outcomes[i].Resolved {
			failures = append(failures, Failure{
				Row:     rows[i].Index,
				Address: rows[i].Address,
				Reason:  outcomes[i].Reason,
			})
		}
	}

	return outcomes, failures
}

type lookupResult struct {
	point  *spatial.Point
	reason string
}

// fanOut issues every query concurrently under the in-flight cap and
// gathers a result per query. Each goroutine writes only its own slot.
func (r *Resolver) fanOut(ctx context.Context, queries []string,
	lookup func(context.Context, string) (*spatial.Point, error), label string,
) []lookupResult {
	results := make([]lookupResult, len(queries))

	var bar *progressbar.ProgressBar
	if isatty.IsTerminal(os.Stderr.Fd()) {
		bar = progressbar.NewOptions(len(queries),
			progressbar.OptionSetDescription(label),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
	}

	var wg sync.WaitGroup

	gate := make(chan struct{}, r.maxInFlight)

	for k, q := range queries {
		wg.Add(1)

		go func(k int, q string) {
			defer wg.Done()
			gate <- struct{}{}

			defer func() { <-gate }()

			callCtx, cancel := context.WithTimeout(ctx, r.timeout)
			defer cancel()

			point, err := lookup(callCtx, q)
			if err != nil {
				results[k] = lookupResult{reason: reasonFor(err)}
			} else {
				results[k] = lookupResult{point: point}
			}

			if bar != nil {
				_ = bar.Add(1)
			}
		}(k, q)
	}

	wg.Wait()

	return results
}

// reasonFor maps a lookup error to its reason code.
func reasonFor(err error) string {
	switch {
	case errors.Is(err, kakao.ErrNoMatch):
		return ReasonNoMatch
	case errors.Is(err, kakao.ErrNoQuery):
		return ReasonNoKeyOrAddress
	default:
		return err.Error()
	}
}

// backoff throttles burst load between rounds: 1s, 2s, 4s, capped at 5s.
func backoff(attempt int) time.Duration {
	d := time.Duration(1<<attempt) * time.Second
	if d > 5*time.Second {
		d = 5 * time.Second
	}

	return d
}
