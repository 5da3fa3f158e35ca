package parser

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	ratingRe = regexp.MustCompile(`(\d(?:\.\d)?)\s*(?:stars?|\(|$)`)
	countRe  = regexp.MustCompile(`\(([\d,]+)\)|([\d,]+)\s+reviews?`)
	phoneRe  = regexp.MustCompile(`\(?\d{3}\)?[\s.-]?\d{3}[\s.-]?\d{4}`)
)

// ParseRating extracts a star rating from text like "4.5 stars" or
// "4.5(123)". Returns nil when no rating in the 0-5 range is present.
func ParseRating(raw string) *float64 {
	m := ratingRe.FindStringSubmatch(strings.TrimSpace(raw))
	if m == nil {
		return nil
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil || v < 0 || v > 5 {
		return nil
	}
	return &v
}

// ParseReviewCount extracts a review count from text like "(1,234)" or
// "89 reviews". Bare digits without parentheses or a "reviews" suffix
// are not counted, so rating-only text like "4.2 stars" yields nil.
func ParseReviewCount(raw string) *int {
	m := countRe.FindStringSubmatch(strings.TrimSpace(raw))
	if m == nil {
		return nil
	}
	digits := m[1]
	if digits == "" {
		digits = m[2]
	}
	n, err := strconv.Atoi(strings.ReplaceAll(digits, ",", ""))
	if err != nil {
		return nil
	}
	return &n
}

// ParsePhone extracts the first US phone number found in raw text and
// normalizes it to digits-only form. Returns "" when none is found.
func ParsePhone(raw string) string {
	m := phoneRe.FindString(raw)
	if m == "" {
		return ""
	}
	var b strings.Builder
	for _, r := range m {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) != 10 {
		return ""
	}
	return digits
}
