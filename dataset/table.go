// Copyright 2025 The Breadmap Authors
// SPDX-License-Identifier: Apache-2.0

package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/breadmap/breadmap/spatial"
)

// Columns is the canonical column order of the served dataset file.
var Columns = []string{"id", "name", "address", "intro", "signature", "lat", "lng"}

// ReadTable reads the cleaned dataset file. Rows that cannot be parsed, or
// that carry only one of the two coordinates, are skipped with a log line
// rather than failing the load.
func ReadTable(path string) ([]Item, error) {
	f, err := os.Open(path) // #nosec G304 - path comes from configuration
	if err != nil {
		return nil, fmt.Errorf("opening dataset: %w", err)
	}
	defer f.Close()

	return parseTable(f)
}

func parseTable(r io.Reader) ([]Item, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}

	// Column position by name; the writer always emits the canonical
	// order but older files may differ.
	pos := make(map[string]int, len(header))

	for i, h := range header {
		h = strings.TrimPrefix(h, "\uFEFF")
		pos[strings.ToLower(strings.TrimSpace(h))] = i
	}

	for _, required := range Columns {
		if _, ok := pos[required]; !ok {
			return nil, fmt.Errorf("dataset missing column %q", required)
		}
	}

	var items []Item

	line := 1

	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}

		line++

		if err != nil {
			log.Printf("dataset: skipping line %d: %v", line, err)

			continue
		}

		field := func(name string) string {
			i := pos[name]
			if i >= len(record) {
				return ""
			}

			return strings.TrimSpace(record[i])
		}

		id, err := strconv.ParseInt(field("id"), 10, 64)
		if err != nil {
			log.Printf("dataset: skipping line %d: bad id %q", line, field("id"))

			continue
		}

		lat, latErr := strconv.ParseFloat(field("lat"), 64)
		lng, lngErr := strconv.ParseFloat(field("lng"), 64)

		if latErr != nil || lngErr != nil {
			log.Printf("dataset: skipping line %d: missing coordinates", line)

			continue
		}

		p := spatial.Point{Lat: lat, Lng: lng}
		if !p.Finite() {
			log.Printf("dataset: skipping line %d: non-finite coordinates", line)

			continue
		}

		items = append(items, Item{
			ID:        id,
			Name:      field("name"),
			Address:   field("address"),
			Intro:     field("intro"),
			Signature: field("signature"),
			Point:     p,
		})
	}

	return items, nil
}

// WriteTable writes items to path in the canonical column order with
// minimal quoting.
func WriteTable(path string, items []Item) error {
	f, err := os.Create(path) // #nosec G304 - path comes from configuration
	if err != nil {
		return fmt.Errorf("creating dataset: %w", err)
	}

	w := csv.NewWriter(f)

	if err := w.Write(Columns); err != nil {
		f.Close()

		return fmt.Errorf("writing header: %w", err)
	}

	for _, it := range items {
		record := []string{
			strconv.FormatInt(it.ID, 10),
			it.Name,
			it.Address,
			it.Intro,
			it.Signature,
			strconv.FormatFloat(it.Point.Lat, 'f', -1, 64),
			strconv.FormatFloat(it.Point.Lng, 'f', -1, 64),
		}

		if err := w.Write(record); err != nil {
			f.Close()

			return fmt.Errorf("writing row %d: %w", it.ID, err)
		}
	}

	w.Flush()

	if err := w.Error(); err != nil {
		f.Close()

		return fmt.Errorf("flushing dataset: %w", err)
	}

	return f.Close()
}
