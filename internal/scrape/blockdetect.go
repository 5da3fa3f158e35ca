package scrape

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/rotisserie/eris"
)

// BlockedError signals that the target started serving a block page or
// CAPTCHA instead of results. The sweep records it and moves on; hammering
// a blocking endpoint only deepens the block.
type BlockedError struct {
	Query  string
	Reason string
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("scrape: blocked on %q: %s", e.Query, e.Reason)
}

// IsBlocked reports whether err is (or wraps) a BlockedError.
func IsBlocked(err error) bool {
	var be *BlockedError
	return eris.As(err, &be)
}

var blockMarkers = []string{
	"captcha",
	"unusual traffic",
	"/sorry/index",
	"automated queries",
	"verify you are a human",
}

// DetectBlock inspects a response for block signals: hard status codes,
// challenge-page headers, and CAPTCHA markers in the body.
func DetectBlock(resp *http.Response, body []byte) string {
	if resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusTooManyRequests {
		return fmt.Sprintf("status %d", resp.StatusCode)
	}
	if strings.Contains(strings.ToLower(resp.Header.Get("Server")), "cloudflare") &&
		resp.StatusCode == http.StatusServiceUnavailable {
		return "cloudflare challenge"
	}

	lower := strings.ToLower(string(body))
	for _, marker := range blockMarkers {
		if strings.Contains(lower, marker) {
			return "page marker: " + marker
		}
	}
	return ""
}
