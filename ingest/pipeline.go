// Copyright 2025 The Breadmap Authors
// SPDX-License-Identifier: Apache-2.0

package ingest

import (
	"bufio"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/breadmap/breadmap/dataset"
	"github.com/breadmap/breadmap/geocode"
	"github.com/breadmap/breadmap/spatial"
)

// record is one pipeline-internal row: canonical fields plus the
// provisional hints that drive geocoding fallbacks. Discarded once the
// pipeline completes.
type record struct {
	id        int64
	hasID     bool
	name      string
	address   string
	intro     string
	signature string
	lat       *float64
	lng       *float64
	gu        string
	nameHint  string
}

// Resolver is the slice of the geocode package the pipeline invokes.
type Resolver interface {
	Resolve(ctx context.Context, rows []geocode.Row) ([]geocode.Outcome, []geocode.Failure)
}

// Options configures one pipeline run.
type Options struct {
	// Input is the raw tabular file.
	Input string

	// Output receives the cleaned canonical table.
	Output string

	// SkipGeocode short-circuits coordinate resolution; rows missing
	// coordinates are then dropped unconditionally.
	SkipGeocode bool
}

// Stats reports before/after row counts per stage for operability. The
// pipeline itself makes no retry decisions; retries live in the resolver.
type Stats struct {
	RawRows       int
	AfterName     int
	AfterDedup    int
	MissingCoords int
	Resolved      int
	Kept          int
	Failures      []geocode.Failure
}

// Pipeline orchestrates one wholesale dataset rebuild.
type Pipeline struct {
	opts     Options
	resolver Resolver
}

// New creates a pipeline. resolver may be nil when geocoding is skipped.
func New(opts Options, resolver Resolver) *Pipeline {
	return &Pipeline{opts: opts, resolver: resolver}
}

// Run executes the full sequence and writes the cleaned table.
func (p *Pipeline) Run(ctx context.Context) (*Stats, error) {
	log.Printf("preprocess: input=%s", p.opts.Input)

	records, err := p.readRaw()
	if err != nil {
		return nil, err
	}

	stats := &Stats{RawRows: len(records)}

	assignIDs(records)

	// Drop rows without a usable name.
	kept := records[:0]

	for _, r := range records {
		if r.name != "" {
			kept = append(kept, r)
		}
	}

	records = kept
	stats.AfterName = len(records)
	log.Printf("preprocess: drop empty name: %d -> %d", stats.RawRows, stats.AfterName)

	records = dedupe(records)
	stats.AfterDedup = len(records)
	log.Printf("preprocess: dedup: %d -> %d", stats.AfterName, stats.AfterDedup)

	for _, r := range records {
		if r.lat == nil || r.lng == nil {
			stats.MissingCoords++
		}
	}

	log.Printf("preprocess: missing coords (before): %d / %d", stats.MissingCoords, len(records))

	if p.opts.SkipGeocode || p.resolver == nil {
		log.Println("preprocess: geocoding skipped")
	} else {
		stats.Resolved, stats.Failures = p.fillMissingCoords(ctx, records)
	}

	items := make([]dataset.Item, 0, len(records))

	for _, r := range records {
		if r.lat == nil || r.lng == nil {
			continue
		}

		pt := spatial.Point{Lat: *r.lat, Lng: *r.lng}
		if !pt.Finite() {
			continue
		}

		items = append(items, dataset.Item{
			ID:        r.id,
			Name:      r.name,
			Address:   r.address,
			Intro:     r.intro,
			Signature: r.signature,
			Point:     pt,
		})
	}

	stats.Kept = len(items)
	log.Printf("preprocess: keep rows with coords: %d / %d", stats.Kept, len(records))

	if err := dataset.WriteTable(p.opts.Output, items); err != nil {
		return nil, fmt.Errorf("writing output: %w", err)
	}

	log.Printf("preprocess: %d rows -> %s", stats.Kept, p.opts.Output)

	return stats, nil
}

// readRaw parses the input table into records, mapping arbitrary source
// columns onto the canonical schema and capturing the hint columns.
func (p *Pipeline) readRaw() ([]*record, error) {
	f, err := os.Open(p.opts.Input) // #nosec G304 - path comes from configuration
	if err != nil {
		return nil, fmt.Errorf("opening input: %w", err)
	}
	defer f.Close()

	return parseRaw(f)
}

func parseRaw(r io.Reader) ([]*record, error) {
	br := bufio.NewReader(r)

	sep, err := sniffSeparator(br)
	if err != nil {
		return nil, err
	}

	cr := csv.NewReader(br)
	cr.Comma = sep
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}

	pos := mapColumns(header)
	guCol := findColumn(header, hintGu)
	nameHintCol := findColumn(header, hintName)

	log.Printf("preprocess: raw columns: %v", header)

	var records []*record

	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}

		if err != nil {
			log.Printf("preprocess: skipping malformed row: %v", err)

			continue
		}

		field := func(canonical string) string {
			i := pos[canonical]
			if i < 0 || i >= len(row) {
				return ""
			}

			return geocode.NormalizeText(row[i])
		}

		rec := &record{
			name:      field("name"),
			address:   field("address"),
			intro:     field("intro"),
			signature: field("signature"),
			lat:       coerceNumber(field("lat")),
			lng:       coerceNumber(field("lng")),
		}

		if raw := field("id"); raw != "" {
			if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
				rec.id = id
				rec.hasID = true
			}
		}

		if guCol >= 0 && guCol < len(row) {
			rec.gu = geocode.NormalizeText(row[guCol])
		}

		if nameHintCol >= 0 && nameHintCol < len(row) {
			rec.nameHint = geocode.NormalizeText(row[nameHintCol])
		}

		records = append(records, rec)
	}

	return records, nil
}

// sniffSeparator inspects the header line without consuming it and picks
// the most frequent candidate separator.
func sniffSeparator(br *bufio.Reader) (rune, error) {
	peek, err := br.Peek(4096)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return 0, fmt.Errorf("sniffing separator: %w", err)
	}

	line := string(peek)
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}

	best := ','
	bestCount := strings.Count(line, ",")

	for _, c := range []rune{';', '\t'} {
		if n := strings.Count(line, string(c)); n > bestCount {
			best, bestCount = c, n
		}
	}

	return best, nil
}

// coerceNumber parses a numeric field, tolerating thousands separators.
// Non-numeric values are absent, not errors.
func coerceNumber(s string) *float64 {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return nil
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}

	return &f
}

// assignIDs reuses source ids when every row carries one; otherwise the
// whole table gets a dense 1..N sequence.
func assignIDs(records []*record) {
	complete := len(records) > 0

	for _, r := range records {
		if !r.hasID {
			complete = false

			break
		}
	}

	if complete {
		return
	}

	for i, r := range records {
		r.id = int64(i + 1)
	}
}

// dedupe drops later rows sharing (name, address) with an earlier one.
func dedupe(records []*record) []*record {
	seen := make(map[string]bool, len(records))
	out := records[:0]

	for _, r := range records {
		key := r.name + "\x00" + r.address
		if seen[key] {
			continue
		}

		seen[key] = true

		out = append(out, r)
	}

	return out
}

// fillMissingCoords resolves coordinates for rows lacking them and applies
// the outcomes. Returns the number of rows resolved plus the failure list.
func (p *Pipeline) fillMissingCoords(ctx context.Context, records []*record) (int, []geocode.Failure) {
	var rows []geocode.Row

	var missing []*record

	for i, r := range records {
		if r.lat != nil && r.lng != nil {
			continue
		}

		gu := r.gu
		if gu == "" {
			gu = geocode.ExtractGu(r.address)
		}

		name := r.nameHint
		if name == "" {
			name = r.name
		}

		rows = append(rows, geocode.Row{Index: i, Address: r.address, Name: name, Gu: gu})
		missing = append(missing, r)
	}

	if len(rows) == 0 {
		return 0, nil
	}

	outcomes, failures := p.resolver.Resolve(ctx, rows)

	resolved := 0

	for k, o := range outcomes {
		if !o.Resolved {
			continue
		}

		lat, lng := o.Point.Lat, o.Point.Lng
		missing[k].lat = &lat
		missing[k].lng = &lng
		resolved++
	}

	log.Printf("preprocess: geocode resolved %d / %d missing rows", resolved, len(rows))

	for i, f := range failures {
		if i == 5 {
			log.Printf("preprocess: ... %d more geocode failures", len(failures)-5)

			break
		}

		log.Printf("preprocess: geocode failure row=%d address=%q reason=%s", f.Row, f.Address, f.Reason)
	}

	return resolved, failures
}
