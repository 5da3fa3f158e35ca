// Package enrich finds websites and contact details for discovered leads.
// Website discovery guesses common domain patterns from the lead's name and
// only accepts a domain whose page text actually mentions a distinctive part
// of that name, so "Tampa Bay General Contractors" never gets attributed the
// newspaper at tampabay.com.
package enrich

import (
	"strings"

	"github.com/sells-group/prospector/internal/config"
)

// Slugger derives domain-guess slugs and verification tokens from lead
// names, using the configured corporate-suffix and industry word lists.
type Slugger struct {
	corporate   map[string]bool
	industry    map[string]bool
	variants    []string
	suffixes    []string
	minSlugLen  int
	minTokenLen int
	maxTokens   int
}

func NewSlugger(cfg config.EnrichConfig) *Slugger {
	return &Slugger{
		corporate:   toSet(cfg.CorporateSuffixes),
		industry:    toSet(cfg.IndustryWords),
		variants:    cfg.DomainIndustryWords,
		suffixes:    cfg.DomainSuffixes,
		minSlugLen:  cfg.MinSlugLen,
		minTokenLen: cfg.MinVerifyTokenLen,
		maxTokens:   cfg.MaxVerifyTokens,
	}
}

func toSet(words []string) map[string]bool {
	m := make(map[string]bool, len(words))
	for _, w := range words {
		m[strings.ToLower(w)] = true
	}
	return m
}

// words splits a name into lowercased alphanumeric word tokens.
func words(name string) []string {
	var out []string
	var b strings.Builder
	flush := func() {
		if b.Len() > 0 {
			out = append(out, b.String())
			b.Reset()
		}
	}
	for _, r := range strings.ToLower(name) {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
			b.WriteRune(r)
		} else {
			flush()
		}
	}
	flush()
	return out
}

func (s *Slugger) slug(name string, strip ...map[string]bool) string {
	var b strings.Builder
word:
	for _, w := range words(name) {
		for _, set := range strip {
			if set[w] {
				continue word
			}
		}
		b.WriteString(w)
	}
	return strings.TrimLeft(b.String(), "0123456789")
}

// CoreSlug strips only legal entity suffixes, keeping the meaningful words.
func (s *Slugger) CoreSlug(name string) string {
	return s.slug(name, s.corporate)
}

// ShortSlug also strips industry generics, leaving the distinctive stem.
func (s *Slugger) ShortSlug(name string) string {
	return s.slug(name, s.corporate, s.industry)
}

// CandidateDomains lists the domains worth probing for a name, most specific
// first. The bare short slug is deliberately never a candidate: a stem like
// "tampabay" alone matches far too many unrelated sites.
func (s *Slugger) CandidateDomains(name string) []string {
	core := s.CoreSlug(name)
	if len(core) < s.minSlugLen {
		return nil
	}
	short := s.ShortSlug(name)

	var candidates []string
	if len(core) > s.minSlugLen {
		candidates = append(candidates, core+".com")
	}
	if len(short) >= s.minSlugLen && short != core {
		for _, v := range s.variants {
			candidates = append(candidates, short+v+".com")
		}
	}
	if len(short) >= s.minSlugLen {
		for _, suf := range s.suffixes {
			candidates = append(candidates, short+suf+".com")
		}
	}
	if len(core) > s.minSlugLen {
		candidates = append(candidates, core+"co.com")
	}
	return dedupe(candidates)
}

// VerifyTokens returns up to maxTokens distinctive words from the name,
// suitable for checking that a candidate page is really about this lead.
// Boilerplate words and anything shorter than the minimum are excluded; an
// empty result means direct guessing should be skipped entirely.
func (s *Slugger) VerifyTokens(name string) []string {
	var out []string
	for _, w := range words(name) {
		if len(w) < s.minTokenLen || s.corporate[w] || s.industry[w] {
			continue
		}
		out = append(out, w)
		if len(out) == s.maxTokens {
			break
		}
	}
	return out
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := in[:0]
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
