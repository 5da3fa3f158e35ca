package enrich

import (
	"fmt"
	"regexp"
	"strings"
)

// Inboxes that are bots or traps, never a human.
var spamTrapPrefixes = map[string]bool{
	"noreply":       true,
	"no-reply":      true,
	"donotreply":    true,
	"do-not-reply":  true,
	"webmaster":     true,
	"postmaster":    true,
	"mailer-daemon": true,
}

// Role inboxes. Valid contact points for small associations, where info@
// usually reaches the manager or a board member, but personal addresses are
// preferred when both appear.
var genericRolePrefixes = map[string]bool{
	"info": true, "admin": true, "contact": true, "support": true,
	"sales": true, "help": true, "office": true, "mail": true,
	"service": true, "general": true, "hello": true, "team": true,
	"billing": true, "accounting": true, "hr": true, "board": true,
}

var (
	emailRe = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)
	phoneRe = regexp.MustCompile(`(\+?1[-.\s]?)?\(?\d{3}\)?[-.\s]?\d{3}[-.\s]?\d{4}`)

	// "President: Jane Smith", "Property Manager - Bob Jones"
	titleNameRe = regexp.MustCompile(`(?:Board President|President|Property Manager|Community Manager|General Manager|Treasurer|Secretary|Director|Owner|Principal)[\s:,–-]+([A-Z][a-z]{1,20}(?:\s+[A-Z][a-z]{1,20})+)`)
	// "Jane Smith, President"
	nameTitleRe = regexp.MustCompile(`([A-Z][a-z]{1,20}(?:\s+[A-Z][a-z]{1,20})+)[\s,–-]+(?:Board President|President|Property Manager|Community Manager|General Manager|Treasurer|Secretary|Owner|Principal)`)
	// "managed by Jane Smith"
	managedByRe = regexp.MustCompile(`(?:founded|owned|operated|managed)\s+by\s+([A-Z][a-z]{1,20}\s+[A-Z][a-z]{1,20})`)

	// Ordered most senior first; the canonical form is returned regardless
	// of how the page cases the title.
	knownTitles = []struct {
		re        *regexp.Regexp
		canonical string
	}{
		{regexp.MustCompile(`(?i)\bBoard President\b`), "Board President"},
		{regexp.MustCompile(`(?i)\bProperty Manager\b`), "Property Manager"},
		{regexp.MustCompile(`(?i)\bCommunity Manager\b`), "Community Manager"},
		{regexp.MustCompile(`(?i)\bPresident\b`), "President"},
		{regexp.MustCompile(`(?i)\bTreasurer\b`), "Treasurer"},
		{regexp.MustCompile(`(?i)\bSecretary\b`), "Secretary"},
		{regexp.MustCompile(`(?i)\bGeneral Manager\b`), "General Manager"},
		{regexp.MustCompile(`(?i)\bPrincipal\b`), "Principal"},
	}
)

// Words that never appear in a real person's name; filters regex noise
// matched out of marketing copy.
var nameBlacklist = map[string]bool{
	"our": true, "the": true, "with": true, "your": true, "their": true,
	"this": true, "that": true, "these": true, "those": true, "and": true,
	"for": true, "from": true, "all": true, "any": true, "more": true,
	"new": true, "best": true, "top": true,
}

// ExtractEmails returns usable emails found in text, personal addresses
// before role addresses, spam traps and asset-path false matches dropped.
func ExtractEmails(text string) []string {
	var personal, generic []string
	seen := map[string]bool{}
	for _, m := range emailRe.FindAllString(text, -1) {
		lower := strings.ToLower(m)
		if seen[lower] {
			continue
		}
		seen[lower] = true

		prefix := strings.SplitN(lower, "@", 2)[0]
		switch {
		case spamTrapPrefixes[prefix]:
		case strings.HasSuffix(lower, ".png"), strings.HasSuffix(lower, ".jpg"), strings.HasSuffix(lower, ".gif"):
		case genericRolePrefixes[prefix]:
			generic = append(generic, lower)
		default:
			personal = append(personal, lower)
		}
	}
	return append(personal, generic...)
}

// ExtractPhones returns phone numbers normalized to "(813) 555-0142" form.
func ExtractPhones(text string) []string {
	var out []string
	seen := map[string]bool{}
	for _, m := range phoneRe.FindAllString(text, -1) {
		digits := digitsOf(m)
		if len(digits) == 11 && digits[0] == '1' {
			digits = digits[1:]
		}
		if len(digits) != 10 || seen[digits] {
			continue
		}
		seen[digits] = true
		out = append(out, fmt.Sprintf("(%s) %s-%s", digits[:3], digits[3:6], digits[6:]))
	}
	return out
}

func digitsOf(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ExtractContactNames pulls likely person names from title/name phrasings.
func ExtractContactNames(text string) []string {
	var out []string
	seen := map[string]bool{}
	for _, re := range []*regexp.Regexp{titleNameRe, nameTitleRe, managedByRe} {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			name := strings.TrimSpace(m[1])
			if len(name) < 5 || len(name) >= 40 || seen[name] {
				continue
			}
			if hasBlacklistedWord(name) {
				continue
			}
			seen[name] = true
			out = append(out, name)
		}
	}
	return out
}

func hasBlacklistedWord(name string) bool {
	for _, w := range strings.Fields(strings.ToLower(name)) {
		if nameBlacklist[w] || len(w) < 2 {
			return true
		}
	}
	return false
}

// ExtractTitle returns the most senior title mentioned in canonical
// casing, or "".
func ExtractTitle(text string) string {
	for _, t := range knownTitles {
		if t.re.MatchString(text) {
			return t.canonical
		}
	}
	return ""
}
