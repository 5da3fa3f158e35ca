package model

// QueryError records a single failed discovery query without aborting the
// surrounding sweep.
type QueryError struct {
	Query string `json:"query"`
	Error string `json:"error"`
}

// SweepResult summarizes one discovery pass over a geo target. A sweep always
// completes with a result, even when individual queries failed.
type SweepResult struct {
	GeoTargetID         int64        `json:"geo_target_id"`
	GeoTargetName       string       `json:"geo_target_name"`
	QueriesRun          int          `json:"queries_run"`
	ResultsFound        int          `json:"results_found"`
	NewLeads            int          `json:"new_leads"`
	UpdatedLeads        int          `json:"updated_leads"`
	ManagementCompanies int          `json:"management_companies"`
	Skipped             int          `json:"skipped"`
	BlockedQueries      int          `json:"blocked_queries"`
	Errors              []QueryError `json:"errors,omitempty"`
}

// EnrichResult is the outcome of enriching a single lead. A nil Email with a
// nil error is an expected "not found" outcome, not a failure.
type EnrichResult struct {
	LeadID       int64   `json:"lead_id"`
	Email        *string `json:"email,omitempty"`
	WebsiteURL   *string `json:"website_url,omitempty"`
	Phone        *string `json:"phone,omitempty"`
	ContactName  *string `json:"contact_name,omitempty"`
	ContactTitle *string `json:"contact_title,omitempty"`
	Method       string  `json:"method,omitempty"`
}

// EnrichBatchResult summarizes an enrichment pass over pending leads.
type EnrichBatchResult struct {
	Processed int            `json:"processed"`
	Enriched  int            `json:"enriched"`
	NotFound  int            `json:"not_found"`
	Failed    int            `json:"failed"`
	Results   []EnrichResult `json:"results,omitempty"`
}

// StateCount is one row of the by-state pipeline breakdown.
type StateCount struct {
	State     string   `json:"state"`
	Count     int      `json:"count"`
	AvgRating *float64 `json:"avg_rating,omitempty"`
}

// PipelineStats is the operator-facing snapshot of pipeline progress.
type PipelineStats struct {
	TotalLeads          int          `json:"total_leads"`
	ManagementCompanies int          `json:"management_companies"`
	AwaitingEnrichment  int          `json:"awaiting_enrichment"`
	AwaitingScrape      int          `json:"awaiting_scrape"`
	WithEmail           int          `json:"with_email"`
	ByState             []StateCount `json:"by_state,omitempty"`
}
