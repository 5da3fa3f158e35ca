package enrich

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"

	"github.com/sells-group/prospector/internal/config"
)

// Pages are read up to this bound when checking verify tokens or pulling
// contact details.
const maxPageBytes = 1 << 20

// Prober checks candidate domains over HTTP: a quick HEAD to see whether
// anything answers, then a GET whose body must mention one of the verify
// tokens before the domain is accepted.
type Prober struct {
	head  *retryablehttp.Client
	fetch *retryablehttp.Client
}

func NewProber(cfg config.EnrichConfig) *Prober {
	return &Prober{
		head:  newClient(time.Duration(cfg.ProbeTimeoutSecs) * time.Second),
		fetch: newClient(time.Duration(cfg.FetchTimeoutSecs) * time.Second),
	}
}

func newClient(timeout time.Duration) *retryablehttp.Client {
	c := retryablehttp.NewClient()
	c.RetryMax = 1
	c.RetryWaitMin = 200 * time.Millisecond
	c.RetryWaitMax = time.Second
	c.Logger = nil
	c.HTTPClient.Timeout = timeout
	return c
}

// Verify reports whether baseURL answers and its page text contains at
// least one token. A reachable page that mentions none of the tokens is a
// false match, not a hit.
func (p *Prober) Verify(ctx context.Context, baseURL string, tokens []string) bool {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodHead, baseURL, nil)
	if err != nil {
		return false
	}
	resp, err := p.head.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()

	// 405 means the site exists but dislikes HEAD.
	if resp.StatusCode != http.StatusMethodNotAllowed &&
		(resp.StatusCode < 200 || resp.StatusCode > 299) {
		return false
	}

	body, err := p.FetchText(ctx, baseURL)
	if err != nil {
		zap.L().Debug("verify fetch failed", zap.String("url", baseURL), zap.Error(err))
		return false
	}

	lower := strings.ToLower(body)
	for _, tok := range tokens {
		if strings.Contains(lower, tok) {
			return true
		}
	}
	return false
}

// FetchText GETs a page and returns its raw text, bounded.
func (p *Prober) FetchText(ctx context.Context, url string) (string, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")

	resp, err := p.fetch.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return "", err
	}
	return string(body), nil
}
