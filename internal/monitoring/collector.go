// Package monitoring runs periodic health checks over the pipeline and
// delivers threshold alerts to a webhook.
package monitoring

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/prospector/internal/store"
)

// Snapshot holds a point-in-time view of pipeline health.
type Snapshot struct {
	// Sweep runs within the lookback window.
	SweepTotal    int     `json:"sweep_total"`
	SweepFailed   int     `json:"sweep_failed"`
	SweepRunning  int     `json:"sweep_running"`
	SweepFailRate float64 `json:"sweep_fail_rate"`
	NewLeads      int     `json:"new_leads"`

	// Lead pipeline totals.
	TotalLeads         int `json:"total_leads"`
	AwaitingEnrichment int `json:"awaiting_enrichment"`
	WithEmail          int `json:"with_email"`

	// Outreach queue totals.
	OutreachPending  int     `json:"outreach_pending"`
	OutreachSent     int     `json:"outreach_sent"`
	OutreachFailed   int     `json:"outreach_failed"`
	OutreachFailRate float64 `json:"outreach_fail_rate"`

	LookbackHours int       `json:"lookback_hours"`
	CollectedAt   time.Time `json:"collected_at"`
}

// Collector gathers a health snapshot from the store.
type Collector struct {
	store store.Store
}

func NewCollector(st store.Store) *Collector {
	return &Collector{store: st}
}

func (c *Collector) Collect(ctx context.Context, lookbackHours int) (*Snapshot, error) {
	snap := &Snapshot{
		LookbackHours: lookbackHours,
		CollectedAt:   time.Now().UTC(),
	}
	cutoff := time.Now().UTC().Add(-time.Duration(lookbackHours) * time.Hour)

	runs, err := c.store.RunStats(ctx, cutoff)
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: collect run stats")
	}
	snap.SweepTotal = runs.Total
	snap.SweepFailed = runs.Failed
	snap.SweepRunning = runs.Running
	snap.NewLeads = runs.NewLeads
	if finished := runs.Completed + runs.Failed; finished > 0 {
		snap.SweepFailRate = float64(runs.Failed) / float64(finished)
	}

	pipeline, err := c.store.PipelineStats(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: collect pipeline stats")
	}
	snap.TotalLeads = pipeline.TotalLeads
	snap.AwaitingEnrichment = pipeline.AwaitingEnrichment
	snap.WithEmail = pipeline.WithEmail

	outreach, err := c.store.OutreachStats(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: collect outreach stats")
	}
	snap.OutreachPending = outreach.Pending
	snap.OutreachSent = outreach.Sent
	snap.OutreachFailed = outreach.Failed
	if attempted := outreach.Sent + outreach.Failed; attempted > 0 {
		snap.OutreachFailRate = float64(outreach.Failed) / float64(attempted)
	}

	return snap, nil
}
