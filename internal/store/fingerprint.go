// Package store persists leads, geo targets, and the outreach queue behind
// a driver-agnostic Store interface with SQLite and Postgres backends.
package store

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var deaccent = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Fingerprint derives the stable dedup key for a lead from its name, city,
// and state. Two scrapes of the same association from different sources must
// produce the same fingerprint, so the inputs are aggressively normalized
// (case, accents, punctuation, whitespace) before hashing.
func Fingerprint(name, city, state string) string {
	parts := make([]string, 0, 3)
	for _, s := range []string{name, city, state} {
		if t := normalizeToken(s); t != "" {
			parts = append(parts, t)
		}
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}

func normalizeToken(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if out, _, err := transform.String(deaccent, s); err == nil {
		s = out
	}

	var b strings.Builder
	prevSpace := false
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			prevSpace = false
		case !prevSpace && b.Len() > 0:
			b.WriteRune(' ')
			prevSpace = true
		}
	}
	return strings.TrimSpace(b.String())
}
