// Copyright 2025 The Breadmap Authors
// SPDX-License-Identifier: Apache-2.0

// Package geocode fills in missing coordinates for dataset rows through a
// staged sequence of Kakao lookups: structured address search, keyword
// search on the same address, then a district+name keyword fallback.
package geocode

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	parenRe      = regexp.MustCompile(`\([^)]*\)`)
	floorRangeRe = regexp.MustCompile(`\d+\s*[,~]\s*\d+\s*층`)
	unitRangeRe  = regexp.MustCompile(`\d+\s*[,~]\s*\d+\s*호`)
	unitRe       = regexp.MustCompile(`\b\d+\s*호`)
	floorRe      = regexp.MustCompile(`\b[0-9A-Za-z]*\d+\s*층`)
	specialsRe   = regexp.MustCompile(`[#·•…]+`)
	roadMarkerRe = regexp.MustCompile(`(번길|로|길|동|구|군|시|도)`)
	districtRe   = regexp.MustCompile(`[가-힣A-Za-z]+구`)
)

// TidyAddress canonicalizes a free-text address before it is sent to
// geocoding: parenthetical asides, floor and unit-number tokens ("1층",
// "B1층", "1,2층", "101호", "101~104호"), and trailing business-name noise
// after a comma all defeat exact address lookups. Idempotent.
func TidyAddress(s string) string {
	s = collapse(s)
	s = parenRe.ReplaceAllString(s, "")

	s = floorRangeRe.ReplaceAllString(s, "")
	s = unitRangeRe.ReplaceAllString(s, "")
	s = unitRe.ReplaceAllString(s, "")
	s = floorRe.ReplaceAllString(s, "")

	// "대전 ... 대종로480번길, 꾸드뱅베이커리" -> keep only the left part
	// when it already looks like a structured address.
	if parts := strings.Split(s, ","); len(parts) > 1 {
		left := strings.TrimSpace(parts[0])
		if roadMarkerRe.MatchString(left) {
			s = left
		}
	}

	s = specialsRe.ReplaceAllString(s, " ")

	return collapse(s)
}

// NormalizeText is the field-level cleaner applied to every free-text
// column during ingest: NFC, non-breaking spaces to plain spaces,
// whitespace collapsed, trimmed.
func NormalizeText(s string) string {
	return collapse(norm.NFC.String(s))
}

// ExtractGu returns the first district ("...구") token of an address, or
// "" when none is present. Used to build the stage-three fallback query.
func ExtractGu(addr string) string {
	return districtRe.FindString(addr)
}

func collapse(s string) string {
	s = strings.ReplaceAll(s, " ", " ")

	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}
