package model

import "time"

// RunStatus tracks the lifecycle of a sweep run.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// Run is one audit record of a discovery sweep against a geo target.
type Run struct {
	ID           int64      `json:"id" db:"id"`
	GeoTargetID  int64      `json:"geo_target_id" db:"geo_target_id"`
	Status       RunStatus  `json:"status" db:"status"`
	QueriesRun   int        `json:"queries_run" db:"queries_run"`
	ResultsFound int        `json:"results_found" db:"results_found"`
	NewLeads     int        `json:"new_leads" db:"new_leads"`
	UpdatedLeads int        `json:"updated_leads" db:"updated_leads"`
	Error        *string    `json:"error,omitempty" db:"error"`
	StartedAt    time.Time  `json:"started_at" db:"started_at"`
	FinishedAt   *time.Time `json:"finished_at,omitempty" db:"finished_at"`
}

// RunStats aggregates sweep runs started within a time window.
type RunStats struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Running   int `json:"running"`
	NewLeads  int `json:"new_leads"`
}

// OutreachStats counts queue items by status.
type OutreachStats struct {
	Pending  int `json:"pending"`
	Approved int `json:"approved"`
	Sent     int `json:"sent"`
	Failed   int `json:"failed"`
}
