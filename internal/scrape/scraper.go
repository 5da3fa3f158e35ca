// Package scrape fetches listing pages from map-style search endpoints and
// turns them into candidates. It knows nothing about persistence; the
// discovery driver owns pacing, classification, and upserts.
package scrape

import (
	"context"

	"github.com/sells-group/prospector/internal/model"
)

// Result is one search's worth of parsed listings.
type Result struct {
	Query      string
	Candidates []model.Candidate
}

// Scraper executes a single search query.
type Scraper interface {
	Search(ctx context.Context, query string) (*Result, error)
}
