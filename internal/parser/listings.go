package parser

import (
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"

	"github.com/sells-group/prospector/internal/model"
)

// ParseListings parses a scraped map-results page into candidate leads.
// Individual malformed cards are skipped; an error is returned only when
// the document itself cannot be parsed.
func ParseListings(r io.Reader) ([]model.Candidate, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, eris.Wrap(err, "parser: parse listings document")
	}

	var out []model.Candidate
	doc.Find(`div[role="article"]`).Each(func(_ int, card *goquery.Selection) {
		c := parseCard(card)
		if c.Name == "" {
			return
		}
		out = append(out, c)
	})

	return out, nil
}

func parseCard(card *goquery.Selection) model.Candidate {
	var c model.Candidate

	c.Name = strings.TrimSpace(card.AttrOr("aria-label", ""))
	if c.Name == "" {
		c.Name = strings.TrimSpace(card.Find(".result-title").First().Text())
	}

	if href, ok := card.Find("a.result-link").First().Attr("href"); ok {
		c.SourceURL = strings.TrimSpace(href)
	}
	if site, ok := card.Find("a.result-website").First().Attr("href"); ok {
		c.WebsiteURL = strings.TrimSpace(site)
	}
	if pid, ok := card.Attr("data-place-id"); ok {
		c.PlaceID = strings.TrimSpace(pid)
	}

	c.Category = strings.TrimSpace(card.Find(".result-category").First().Text())
	c.RawAddress = strings.TrimSpace(card.Find(".result-address").First().Text())

	ratingText := card.Find(".result-rating").First().Text()
	c.Rating = ParseRating(ratingText)
	c.ReviewCount = ParseReviewCount(ratingText)
	if c.ReviewCount == nil {
		c.ReviewCount = ParseReviewCount(card.Find(".result-reviews").First().Text())
	}

	if phone := ParsePhone(card.Find(".result-phone").First().Text()); phone != "" {
		c.Phone = phone
	} else if phone := ParsePhone(c.RawAddress); phone != "" {
		c.Phone = phone
	}

	return c
}
