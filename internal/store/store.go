package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/prospector/internal/config"
	"github.com/sells-group/prospector/internal/model"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = eris.New("store: not found")

// Store is the persistence boundary for the pipeline. Both backends honor
// the same upsert contract: inserting marks every pipeline stage pending,
// updating merges only the non-null incoming fields and bumps last_seen_at.
type Store interface {
	// Leads
	UpsertLead(ctx context.Context, fields model.LeadFields) (id int64, created bool, err error)
	GetLead(ctx context.Context, id int64) (*model.Lead, error)
	ListLeadsNeedingEnrichment(ctx context.Context, limit int) ([]model.Lead, error)
	SetEnrichment(ctx context.Context, leadID int64, res *model.EnrichResult, status model.StageStatus) error

	// Geo targets
	CreateGeoTarget(ctx context.Context, gt *model.GeoTarget) (int64, error)
	GetGeoTarget(ctx context.Context, id int64) (*model.GeoTarget, error)
	ListGeoTargets(ctx context.Context) ([]model.GeoTarget, error)
	NextGeoTarget(ctx context.Context) (*model.GeoTarget, error)
	MarkGeoTargetSwept(ctx context.Context, id int64) error

	// Sweep audit
	CreateRun(ctx context.Context, geoTargetID int64) (int64, error)
	CompleteRun(ctx context.Context, runID int64, res *model.SweepResult) error
	FailRun(ctx context.Context, runID int64, cause error) error
	LogSearch(ctx context.Context, runID int64, query string, results, newLeads int) error
	RunStats(ctx context.Context, since time.Time) (*model.RunStats, error)

	// Outreach queue
	EnqueueOutreach(ctx context.Context, item *model.OutreachItem) (int64, error)
	ApproveAll(ctx context.Context) (int, error)
	ListApprovedOutreach(ctx context.Context) ([]model.OutreachItem, error)
	MarkSent(ctx context.Context, itemID int64) error
	MarkSendFailed(ctx context.Context, itemID int64, cause error) error
	OutreachStats(ctx context.Context) (*model.OutreachStats, error)
	LeadsAwaitingOutreach(ctx context.Context, limit int) ([]model.Lead, error)

	// Management contacts
	AddManagementContact(ctx context.Context, c *model.ManagementContact) (int64, error)
	ManagementContactsAwaitingOutreach(ctx context.Context, limit int) ([]model.ManagementContact, error)

	// Reporting
	PipelineStats(ctx context.Context) (*model.PipelineStats, error)

	Migrate(ctx context.Context) error
	Close() error
}

// Open constructs the configured backend.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case "sqlite":
		return NewSQLiteStore(ctx, cfg.DatabaseURL)
	case "postgres":
		return NewPostgresStore(ctx, cfg)
	default:
		return nil, eris.Errorf("store: unsupported driver %q", cfg.Driver)
	}
}

// scannable abstracts sql.Row and sql.Rows for shared scan helpers.
type scannable interface {
	Scan(dest ...any) error
}
