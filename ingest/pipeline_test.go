// Copyright 2025 The Breadmap Authors
// SPDX-License-Identifier: Apache-2.0

package ingest

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/breadmap/breadmap/dataset"
	"github.com/breadmap/breadmap/geocode"
	"github.com/breadmap/breadmap/spatial"
)

func TestNormalizeHeader(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "Name", want: "name"},
		{in: " 도로명 주소 ", want: "도로명주소"},
		{in: "\uFEFFid", want: "id"},
		{in: "Road Address", want: "roadaddress"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, normalizeHeader(tt.in))
	}
}

func TestMapColumnsAliases(t *testing.T) {
	header := []string{"빵집명", "도로명주소", "한줄소개", "대표메뉴", "위도", "경도"}
	pos := mapColumns(header)

	want := map[string]int{
		"id":        -1,
		"name":      0,
		"address":   1,
		"intro":     2,
		"signature": 3,
		"lat":       4,
		"lng":       5,
	}

	if diff := cmp.Diff(want, pos); diff != "" {
		t.Errorf("mapColumns mismatch (-want +got):\n%s", diff)
	}
}

func TestMapColumnsCaseAndWhitespaceInsensitive(t *testing.T) {
	pos := mapColumns([]string{"  Place_Name ", "ROAD_ADDRESS_NAME"})

	assert.Equal(t, 0, pos["name"])
	assert.Equal(t, 1, pos["address"])
}

func TestCoerceNumber(t *testing.T) {
	tests := []struct {
		in   string
		want *float64
	}{
		{in: "36.3273", want: ptr(36.3273)},
		{in: " 127.42 ", want: ptr(127.42)},
		{in: "1,234.5", want: ptr(1234.5)},
		{in: "", want: nil},
		{in: "abc", want: nil},
	}

	for _, tt := range tests {
		got := coerceNumber(tt.in)
		if tt.want == nil {
			assert.Nilf(t, got, "coerceNumber(%q)", tt.in)
		} else {
			require.NotNilf(t, got, "coerceNumber(%q)", tt.in)
			assert.InDelta(t, *tt.want, *got, 1e-9)
		}
	}
}

func ptr(f float64) *float64 { return &f }

func TestParseRawSniffsSeparator(t *testing.T) {
	records, err := parseRaw(strings.NewReader("name;address;lat;lng\n성심당;대전 중구 대종로480번길 15;36.32;127.42\n"))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "성심당", records[0].name)
	require.NotNil(t, records[0].lat)
	assert.InDelta(t, 36.32, *records[0].lat, 1e-9)
}

func TestParseRawCapturesHints(t *testing.T) {
	in := "구,빵집명,주소\n중구,성심당,대전 중구 은행동\n"

	records, err := parseRaw(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, records, 1)

	// 빵집명 is both the canonical name column and the name hint.
	assert.Equal(t, "중구", records[0].gu)
	assert.Equal(t, "성심당", records[0].nameHint)
	assert.Equal(t, "성심당", records[0].name)
}

func TestAssignIDsDenseWhenIncomplete(t *testing.T) {
	records := []*record{
		{name: "a", id: 7, hasID: true},
		{name: "b"},
		{name: "c", id: 9, hasID: true},
	}

	assignIDs(records)

	assert.Equal(t, int64(1), records[0].id)
	assert.Equal(t, int64(2), records[1].id)
	assert.Equal(t, int64(3), records[2].id)
}

func TestAssignIDsReusedWhenComplete(t *testing.T) {
	records := []*record{
		{name: "a", id: 7, hasID: true},
		{name: "b", id: 3, hasID: true},
	}

	assignIDs(records)

	assert.Equal(t, int64(7), records[0].id)
	assert.Equal(t, int64(3), records[1].id)
}

func TestDedupeKeepsFirst(t *testing.T) {
	records := []*record{
		{name: "성심당", address: "대전 중구", intro: "first"},
		{name: "성심당", address: "대전 중구", intro: "second"},
		{name: "성심당", address: "대전 유성구"},
	}

	out := dedupe(records)

	require.Len(t, out, 2)
	assert.Equal(t, "first", out[0].intro)
	assert.Equal(t, "대전 유성구", out[1].address)
}

// stubResolver resolves every row to a fixed point.
type stubResolver struct {
	calls int
	rows  []geocode.Row
}

func (s *stubResolver) Resolve(_ context.Context, rows []geocode.Row) ([]geocode.Outcome, []geocode.Failure) {
	s.calls++
	s.rows = rows

	outcomes := make([]geocode.Outcome, len(rows))
	for i := range outcomes {
		outcomes[i] = geocode.Outcome{
			Resolved: true,
			Point:    &spatial.Point{Lat: 36.3, Lng: 127.4},
		}
	}

	return outcomes, nil
}

func TestPipelineRunEndToEnd(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "raw.csv")
	output := filepath.Join(dir, "clean.csv")

	raw := strings.Join([]string{
		"구,빵집명,주소,한줄소개,대표메뉴,위도,경도",
		"중구,성심당,대전 중구 대종로480번길 15,튀김소보로로 유명,튀김소보로,36.3273,127.4275",
		"중구,성심당,대전 중구 대종로480번길 15,duplicate row,튀김소보로,36.3273,127.4275",
		"유성구,하레하레,대전 유성구 대학로 99,,소금빵,,",
		",,주소만 있고 이름 없음,,,,",
	}, "\n")

	require.NoError(t, os.WriteFile(input, []byte(raw), 0o600))

	resolver := &stubResolver{}
	p := New(Options{Input: input, Output: output}, resolver)

	stats, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 4, stats.RawRows)
	assert.Equal(t, 3, stats.AfterName)
	assert.Equal(t, 2, stats.AfterDedup)
	assert.Equal(t, 1, stats.MissingCoords)
	assert.Equal(t, 1, stats.Resolved)
	assert.Equal(t, 2, stats.Kept)

	// The resolver received the hint-driven row for the coordinate-less
	// bakery.
	require.Len(t, resolver.rows, 1)
	assert.Equal(t, "하레하레", resolver.rows[0].Name)
	assert.Equal(t, "유성구", resolver.rows[0].Gu)

	items, err := dataset.ReadTable(output)
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, int64(1), items[0].ID)
	assert.Equal(t, "성심당", items[0].Name)
	assert.InDelta(t, 36.3273, items[0].Point.Lat, 1e-9)

	// Ids are assigned over the raw table before drops, so the second
	// retained row keeps id 3.
	assert.Equal(t, int64(3), items[1].ID)
	assert.Equal(t, "하레하레", items[1].Name)
	assert.InDelta(t, 36.3, items[1].Point.Lat, 1e-9)
}

func TestPipelineSkipGeocodeDropsUnresolved(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "raw.csv")
	output := filepath.Join(dir, "clean.csv")

	raw := strings.Join([]string{
		"name,address,lat,lng",
		"성심당,대전 중구 은행동,36.32,127.42",
		"미지의집,어딘가,,",
	}, "\n")

	require.NoError(t, os.WriteFile(input, []byte(raw), 0o600))

	resolver := &stubResolver{}
	p := New(Options{Input: input, Output: output, SkipGeocode: true}, resolver)

	stats, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Zero(t, resolver.calls, "geocoding must be skipped")
	assert.Equal(t, 1, stats.Kept)

	items, err := dataset.ReadTable(output)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "성심당", items[0].Name)
}

func TestPipelineHalfCoordinateRowTreatedAsMissing(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "raw.csv")
	output := filepath.Join(dir, "clean.csv")

	raw := strings.Join([]string{
		"name,address,lat,lng",
		"반쪽좌표,대전 중구 어딘가,36.32,",
	}, "\n")

	require.NoError(t, os.WriteFile(input, []byte(raw), 0o600))

	p := New(Options{Input: input, Output: output, SkipGeocode: true}, nil)

	stats, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, stats.MissingCoords)
	assert.Zero(t, stats.Kept, "a row with only one coordinate must never be served")
}
