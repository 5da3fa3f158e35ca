package enrich

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/prospector/internal/config"
)

func newTestSlugger(t *testing.T) *Slugger {
	t.Helper()
	cfg, err := config.Load()
	require.NoError(t, err)
	return NewSlugger(cfg.Enrich)
}

func TestSlugs(t *testing.T) {
	s := newTestSlugger(t)

	tests := []struct {
		name  string
		core  string
		short string
	}{
		{"Tampa Bay General Contractors", "tampabaygeneralcontractors", "tampabay"},
		{"Westchase Community Association, Inc.", "westchasecommunityassociation", "westchase"},
		{"Gulf Coast HOA Management LLC", "gulfcoasthoamanagement", "gulfcoast"},
		{"Best Construction Company, LLC", "bestconstruction", "best"},
		{"Kalin Construction Corp", "kalinconstruction", "kalin"},
		{"The Oaks & Pines HOA", "oakspineshoa", "oakspines"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.core, s.CoreSlug(tt.name))
			assert.Equal(t, tt.short, s.ShortSlug(tt.name))
		})
	}
}

func TestCandidateDomainsNeverBareShortSlug(t *testing.T) {
	s := newTestSlugger(t)

	got := s.CandidateDomains("Tampa Bay General Contractors")
	require.NotEmpty(t, got)
	assert.Equal(t, "tampabaygeneralcontractors.com", got[0], "most specific candidate first")
	assert.NotContains(t, got, "tampabay.com",
		"the bare stem must never be probed; it matches unrelated sites")
	assert.Contains(t, got, "tampabayhoa.com")
	assert.Contains(t, got, "tampabayinc.com")
}

func TestCandidateDomainsDeduped(t *testing.T) {
	s := newTestSlugger(t)

	// No industry words in the name, so core == short and the variant
	// candidates collapse.
	got := s.CandidateDomains("Westchase Estates")
	seen := map[string]bool{}
	for _, d := range got {
		assert.False(t, seen[d], "duplicate candidate %s", d)
		seen[d] = true
	}
	assert.Contains(t, got, "westchaseestates.com")
}

func TestCandidateDomainsShortName(t *testing.T) {
	s := newTestSlugger(t)
	assert.Nil(t, s.CandidateDomains("Oak"), "stems below the minimum are not guessable")
	assert.Nil(t, s.CandidateDomains(""))
}

func TestVerifyTokens(t *testing.T) {
	s := newTestSlugger(t)

	tests := []struct {
		name string
		want []string
	}{
		// "bay" too short, "general"/"contractors" boilerplate.
		{"Tampa Bay General Contractors", []string{"tampa"}},
		{"Westchase Community Association", []string{"westchase"}},
		// Everything generic: nothing to verify with.
		{"General Contractors Inc", nil},
		{"Best Construction Company, LLC", nil},
		{"Snyder Building Construction LLC", []string{"snyder"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, s.VerifyTokens(tt.name))
		})
	}
}

func TestVerifyTokensCapped(t *testing.T) {
	s := newTestSlugger(t)
	got := s.VerifyTokens("Alpha Bravo Charlie Delta Echo Foxtrot Estates")
	assert.Len(t, got, 3)
	assert.Equal(t, []string{"alpha", "bravo", "charlie"}, got)
}
