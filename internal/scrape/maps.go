package scrape

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/prospector/internal/parser"
)

// Listing pages are large but bounded; anything past this is not results.
const maxBodyBytes = 4 << 20

// MapsScraper fetches the public map search page for a query and parses the
// listing cards out of the HTML.
type MapsScraper struct {
	baseURL   string
	userAgent string
	client    *http.Client
}

// NewMapsScraper builds a scraper against baseURL (the search endpoint
// origin, overridable for tests).
func NewMapsScraper(baseURL, userAgent string, timeout time.Duration) *MapsScraper {
	return &MapsScraper{
		baseURL:   baseURL,
		userAgent: userAgent,
		client:    &http.Client{Timeout: timeout},
	}
}

func (m *MapsScraper) Search(ctx context.Context, query string) (*Result, error) {
	u := m.baseURL + "/search?q=" + url.QueryEscape(query)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, eris.Wrapf(err, "scrape: build request for %q", query)
	}
	req.Header.Set("User-Agent", m.userAgent)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, eris.Wrapf(err, "scrape: fetch %q", query)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, eris.Wrapf(err, "scrape: read body for %q", query)
	}

	if reason := DetectBlock(resp, body); reason != "" {
		return nil, &BlockedError{Query: query, Reason: reason}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("scrape: %q returned status %d", query, resp.StatusCode)
	}

	candidates, err := parser.ParseListings(bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrapf(err, "scrape: parse listings for %q", query)
	}

	zap.L().Debug("search scraped",
		zap.String("query", query),
		zap.Int("candidates", len(candidates)))

	return &Result{Query: query, Candidates: candidates}, nil
}
