// Package parser extracts structured fields from raw scraped text. Parse
// functions never return errors for malformed input: a field that cannot be
// parsed is simply left empty so a single bad listing never aborts a sweep.
package parser

import (
	"regexp"
	"strings"
)

// Address is a structured postal address. Any field may be empty.
type Address struct {
	Street string
	City   string
	State  string
	Zip    string
}

var (
	// "FL 33601" or "FL 33601-1234" trailing state+zip.
	stateZipRe = regexp.MustCompile(`\b([A-Z]{2})\s+(\d{5}(?:-\d{4})?)\s*$`)
	// Bare two-letter state at end of segment.
	stateRe = regexp.MustCompile(`\b([A-Z]{2})\s*$`)
	// Leading street number is the usual marker of a street segment.
	streetNumRe = regexp.MustCompile(`^\d+\s`)
)

// ParseAddress extracts street, city, state, and zip from a raw scraped
// address string. It tolerates the comma-separated forms listing cards
// use ("123 Main St, Tampa, FL 33601", "Tampa, FL") as well as partial
// fragments, leaving unmatched fields empty.
func ParseAddress(raw string) Address {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Address{}
	}

	var addr Address

	// Pull state+zip off the tail first so the remaining segments are
	// purely street and city.
	if m := stateZipRe.FindStringSubmatch(raw); m != nil {
		addr.State = m[1]
		addr.Zip = m[2]
		raw = strings.TrimSpace(strings.TrimSuffix(raw, m[0]))
		raw = strings.TrimSuffix(raw, ",")
	} else if m := stateRe.FindStringSubmatch(raw); m != nil {
		addr.State = m[1]
		raw = strings.TrimSpace(strings.TrimSuffix(raw, m[0]))
		raw = strings.TrimSuffix(raw, ",")
	}

	parts := strings.Split(raw, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	switch {
	case len(parts) >= 2:
		// Last segment is the city, everything before it is street.
		addr.City = parts[len(parts)-1]
		addr.Street = strings.Join(parts[:len(parts)-1], ", ")
	case len(parts) == 1 && parts[0] != "":
		// A single segment with no leading street number is a city.
		if streetNumRe.MatchString(parts[0]) {
			addr.Street = parts[0]
		} else {
			addr.City = parts[0]
		}
	}

	return addr
}
