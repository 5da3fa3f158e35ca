// Package classify sorts scraped candidates into associations, management
// companies, and noise based on keyword matching against listing category
// and name.
package classify

import (
	"strings"

	"github.com/sells-group/prospector/internal/config"
	"github.com/sells-group/prospector/internal/model"
)

// Kind is the classification outcome for a candidate.
type Kind int

const (
	// KindIrrelevant marks candidates that are not associations at all
	// (restaurants, shops, and similar map noise). They are dropped.
	KindIrrelevant Kind = iota
	// KindAssociation marks a community association lead.
	KindAssociation
	// KindManagement marks a management company. Kept, but flagged so
	// outreach can address the manager rather than a board.
	KindManagement
)

// Classifier applies the configured keyword sets. The category string is
// authoritative: a name that sounds like an association does not rescue a
// listing whose category says restaurant, and a management category flags
// the lead regardless of name.
type Classifier struct {
	irrelevant []string
	mgmtSignal []string
	mgmtCat    []string
}

func New(cfg config.ClassifyConfig) *Classifier {
	return &Classifier{
		irrelevant: lowerAll(cfg.IrrelevantCategories),
		mgmtSignal: lowerAll(cfg.ManagementSignals),
		mgmtCat:    lowerAll(cfg.ManagementCategories),
	}
}

// Classify returns the kind for a scraped candidate.
func (c *Classifier) Classify(cand model.Candidate) Kind {
	category := strings.ToLower(strings.TrimSpace(cand.Category))
	name := strings.ToLower(strings.TrimSpace(cand.Name))

	if category != "" {
		for _, kw := range c.irrelevant {
			if strings.Contains(category, kw) {
				return KindIrrelevant
			}
		}
		for _, kw := range c.mgmtCat {
			if strings.Contains(category, kw) {
				return KindManagement
			}
		}
	}

	for _, kw := range c.mgmtSignal {
		if strings.Contains(name, kw) {
			return KindManagement
		}
	}

	return KindAssociation
}

func lowerAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToLower(s)
	}
	return out
}
