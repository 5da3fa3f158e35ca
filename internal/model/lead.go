// Package model defines the shared domain types for the prospector pipeline.
package model

import "time"

// Source identifies which discovery driver produced a lead.
type Source string

const (
	SourceMapsDiscovery    Source = "maps_discovery"
	SourceLicenseDirectory Source = "license_directory"
)

// StageStatus tracks a downstream pipeline stage for a lead.
type StageStatus string

const (
	StagePending    StageStatus = "pending"
	StageInProgress StageStatus = "in_progress"
	StageDone       StageStatus = "done"
	StageFailed     StageStatus = "failed"
)

// Candidate is a raw scrape result before classification and persistence.
// Fields other than Name are best-effort and may be empty.
type Candidate struct {
	Name        string   `json:"name"`
	RawAddress  string   `json:"raw_address,omitempty"`
	Rating      *float64 `json:"rating,omitempty"`
	ReviewCount *int     `json:"review_count,omitempty"`
	Category    string   `json:"category,omitempty"`
	Phone       string   `json:"phone,omitempty"`
	WebsiteURL  string   `json:"website_url,omitempty"`
	SourceURL   string   `json:"source_url,omitempty"`
	PlaceID     string   `json:"place_id,omitempty"`
}

// Lead is the persisted, deduplicated entity representing a prospective
// contact. Nullable columns are pointers so an absent sighting never
// overwrites a previously known value.
type Lead struct {
	ID                  int64       `json:"id" db:"id"`
	Fingerprint         string      `json:"fingerprint" db:"fingerprint"`
	Name                string      `json:"name" db:"name"`
	Street              *string     `json:"street,omitempty" db:"street"`
	City                *string     `json:"city,omitempty" db:"city"`
	State               *string     `json:"state,omitempty" db:"state"`
	Zip                 *string     `json:"zip,omitempty" db:"zip"`
	Phone               *string     `json:"phone,omitempty" db:"phone"`
	Email               *string     `json:"email,omitempty" db:"email"`
	ContactName         *string     `json:"contact_name,omitempty" db:"contact_name"`
	ContactTitle        *string     `json:"contact_title,omitempty" db:"contact_title"`
	WebsiteURL          *string     `json:"website_url,omitempty" db:"website_url"`
	SourceURL           *string     `json:"source_url,omitempty" db:"source_url"`
	ExternalID          *string     `json:"external_id,omitempty" db:"external_id"`
	Category            *string     `json:"category,omitempty" db:"category"`
	Rating              *float64    `json:"rating,omitempty" db:"rating"`
	ReviewCount         *int        `json:"review_count,omitempty" db:"review_count"`
	Priority            int         `json:"priority" db:"priority"`
	IsManagementCompany bool        `json:"is_management_company" db:"is_management_company"`
	Source              Source      `json:"source" db:"source"`
	SearchQuery         *string     `json:"search_query,omitempty" db:"search_query"`
	GeoTargetID         *int64      `json:"geo_target_id,omitempty" db:"geo_target_id"`
	NeedsWebsiteScrape  bool        `json:"needs_website_scrape" db:"needs_website_scrape"`
	NeedsEnrichment     bool        `json:"needs_enrichment" db:"needs_enrichment"`
	NeedsReviewScan     bool        `json:"needs_review_scan" db:"needs_review_scan"`
	WebsiteScrapeStatus StageStatus `json:"website_scrape_status" db:"website_scrape_status"`
	EnrichmentStatus    StageStatus `json:"enrichment_status" db:"enrichment_status"`
	ReviewScanStatus    StageStatus `json:"review_scan_status" db:"review_scan_status"`
	DiscoveredAt        time.Time   `json:"discovered_at" db:"discovered_at"`
	LastSeenAt          time.Time   `json:"last_seen_at" db:"last_seen_at"`
	UpdatedAt           time.Time   `json:"updated_at" db:"updated_at"`
}

// LeadFields is a partial Lead used as the upsert write contract. Nil fields
// are left untouched on update; on insert they become NULL columns.
type LeadFields struct {
	Fingerprint         string
	Name                string
	Street              *string
	City                *string
	State               *string
	Zip                 *string
	Phone               *string
	Email               *string
	ContactName         *string
	ContactTitle        *string
	WebsiteURL          *string
	SourceURL           *string
	ExternalID          *string
	Category            *string
	Rating              *float64
	ReviewCount         *int
	Priority            int
	IsManagementCompany bool
	Source              Source
	SearchQuery         *string
	GeoTargetID         *int64
}

// CalculatePriority derives a scheduling priority for a lead from its rating
// signal strength and state. Capped at 10.
func CalculatePriority(rating *float64, reviewCount *int, state *string) int {
	p := 5
	if state != nil {
		switch *state {
		case "FL":
			p += 2
		case "CA":
			p += 1
		}
	}
	if reviewCount != nil {
		switch {
		case *reviewCount >= 100:
			p += 2
		case *reviewCount >= 50:
			p += 1
		}
	}
	if rating != nil && *rating > 0 && *rating <= 3.0 {
		p += 1 // low-rated leads are the warmest signal
	}
	if p > 10 {
		p = 10
	}
	return p
}
