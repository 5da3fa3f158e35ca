// Package discovery sweeps geo targets: it expands query templates across a
// target's cities, scrapes each query, classifies the results, and upserts
// the survivors.
package discovery

import (
	"strings"

	"github.com/sells-group/prospector/internal/model"
)

// Query is one expanded search, tagged with the city it was generated for so
// listings without a parseable address can still be geo-attributed.
type Query struct {
	Text  string
	City  string
	State string
}

// GenerateQueries expands the primary templates across every city of the
// target, then the secondary templates. The {location} placeholder becomes
// "City, ST".
func GenerateQueries(primary, secondary []string, target *model.GeoTarget) []Query {
	out := make([]Query, 0, (len(primary)+len(secondary))*len(target.Cities))
	for _, templates := range [][]string{primary, secondary} {
		for _, tmpl := range templates {
			for _, cs := range target.Cities {
				location := cs.City + ", " + cs.State
				out = append(out, Query{
					Text:  strings.ReplaceAll(tmpl, "{location}", location),
					City:  cs.City,
					State: cs.State,
				})
			}
		}
	}
	return out
}
