package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/sells-group/prospector/internal/config"
	"github.com/sells-group/prospector/internal/db"
	"github.com/sells-group/prospector/internal/model"
)

const postgresMigration = `
CREATE TABLE IF NOT EXISTS leads (
	id BIGSERIAL PRIMARY KEY,
	fingerprint TEXT NOT NULL UNIQUE,
	name TEXT NOT NULL,
	street TEXT,
	city TEXT,
	state TEXT,
	zip TEXT,
	phone TEXT,
	email TEXT,
	contact_name TEXT,
	contact_title TEXT,
	website_url TEXT,
	source_url TEXT,
	external_id TEXT,
	category TEXT,
	rating DOUBLE PRECISION,
	review_count INTEGER,
	priority INTEGER NOT NULL DEFAULT 5,
	is_management_company BOOLEAN NOT NULL DEFAULT FALSE,
	source TEXT NOT NULL,
	search_query TEXT,
	geo_target_id BIGINT,
	needs_website_scrape BOOLEAN NOT NULL DEFAULT TRUE,
	needs_enrichment BOOLEAN NOT NULL DEFAULT TRUE,
	needs_review_scan BOOLEAN NOT NULL DEFAULT TRUE,
	website_scrape_status TEXT NOT NULL DEFAULT 'pending',
	enrichment_status TEXT NOT NULL DEFAULT 'pending',
	review_scan_status TEXT NOT NULL DEFAULT 'pending',
	discovered_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	last_seen_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_leads_enrichment ON leads (needs_enrichment, priority DESC);
CREATE INDEX IF NOT EXISTS idx_leads_state ON leads (state);

CREATE TABLE IF NOT EXISTS geo_targets (
	id BIGSERIAL PRIMARY KEY,
	name TEXT NOT NULL UNIQUE,
	cities JSONB NOT NULL DEFAULT '[]',
	zip_codes JSONB NOT NULL DEFAULT '[]',
	priority INTEGER NOT NULL DEFAULT 0,
	active BOOLEAN NOT NULL DEFAULT TRUE,
	last_swept_at TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS runs (
	id BIGSERIAL PRIMARY KEY,
	geo_target_id BIGINT NOT NULL REFERENCES geo_targets(id),
	status TEXT NOT NULL DEFAULT 'running',
	queries_run INTEGER NOT NULL DEFAULT 0,
	results_found INTEGER NOT NULL DEFAULT 0,
	new_leads INTEGER NOT NULL DEFAULT 0,
	updated_leads INTEGER NOT NULL DEFAULT 0,
	error TEXT,
	started_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	finished_at TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS search_log (
	id BIGSERIAL PRIMARY KEY,
	run_id BIGINT NOT NULL REFERENCES runs(id),
	query TEXT NOT NULL,
	results INTEGER NOT NULL DEFAULT 0,
	new_leads INTEGER NOT NULL DEFAULT 0,
	searched_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS outreach_queue (
	id BIGSERIAL PRIMARY KEY,
	lead_id BIGINT NOT NULL REFERENCES leads(id),
	email TEXT NOT NULL,
	subject TEXT NOT NULL,
	body_text TEXT NOT NULL,
	body_html TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT 'pending',
	sent_at TIMESTAMPTZ,
	send_error TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (lead_id, email)
);
CREATE INDEX IF NOT EXISTS idx_outreach_status ON outreach_queue (status);

CREATE TABLE IF NOT EXISTS mgmt_contacts (
	id BIGSERIAL PRIMARY KEY,
	lead_id BIGINT NOT NULL REFERENCES leads(id),
	name TEXT,
	title TEXT,
	email TEXT NOT NULL,
	phone TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (lead_id, email)
);
`

// PostgresStore is the shared-database backend. Unlike SQLite, upserts are
// a single atomic ON CONFLICT statement so concurrent workers are safe.
type PostgresStore struct {
	pool db.Pool
}

// NewPostgresStore connects a pool and wraps it.
func NewPostgresStore(ctx context.Context, cfg config.StoreConfig) (*PostgresStore, error) {
	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresStoreWithPool wraps an existing pool. Used by tests with pgxmock.
func NewPostgresStoreWithPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, postgresMigration); err != nil {
		return eris.Wrap(err, "store: postgres migrate")
	}
	return nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

const pgUpsertLead = `
INSERT INTO leads (
	fingerprint, name, street, city, state, zip, phone, email,
	contact_name, contact_title, website_url, source_url, external_id,
	category, rating, review_count, priority, is_management_company,
	source, search_query, geo_target_id
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
ON CONFLICT (fingerprint) DO UPDATE SET
	street = COALESCE(EXCLUDED.street, leads.street),
	city = COALESCE(EXCLUDED.city, leads.city),
	state = COALESCE(EXCLUDED.state, leads.state),
	zip = COALESCE(EXCLUDED.zip, leads.zip),
	phone = COALESCE(EXCLUDED.phone, leads.phone),
	email = COALESCE(EXCLUDED.email, leads.email),
	contact_name = COALESCE(EXCLUDED.contact_name, leads.contact_name),
	contact_title = COALESCE(EXCLUDED.contact_title, leads.contact_title),
	website_url = COALESCE(EXCLUDED.website_url, leads.website_url),
	source_url = COALESCE(EXCLUDED.source_url, leads.source_url),
	external_id = COALESCE(EXCLUDED.external_id, leads.external_id),
	category = COALESCE(EXCLUDED.category, leads.category),
	rating = COALESCE(EXCLUDED.rating, leads.rating),
	review_count = COALESCE(EXCLUDED.review_count, leads.review_count),
	is_management_company = leads.is_management_company OR EXCLUDED.is_management_company,
	last_seen_at = now(),
	updated_at = now()
RETURNING id, (xmax = 0) AS created`

func (s *PostgresStore) UpsertLead(ctx context.Context, f model.LeadFields) (int64, bool, error) {
	var id int64
	var created bool
	err := s.pool.QueryRow(ctx, pgUpsertLead,
		f.Fingerprint, f.Name, f.Street, f.City, f.State, f.Zip, f.Phone, f.Email,
		f.ContactName, f.ContactTitle, f.WebsiteURL, f.SourceURL, f.ExternalID,
		f.Category, f.Rating, f.ReviewCount, f.Priority, f.IsManagementCompany,
		f.Source, f.SearchQuery, f.GeoTargetID,
	).Scan(&id, &created)
	if err != nil {
		return 0, false, eris.Wrapf(err, "store: upsert lead %s", f.Name)
	}
	return id, created, nil
}

func (s *PostgresStore) GetLead(ctx context.Context, id int64) (*model.Lead, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+leadColumns+` FROM leads WHERE id = $1`, id)
	l, err := scanLead(row)
	if err == pgx.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "store: get lead %d", id)
	}
	return l, nil
}

func (s *PostgresStore) ListLeadsNeedingEnrichment(ctx context.Context, limit int) ([]model.Lead, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+leadColumns+` FROM leads
		WHERE needs_enrichment AND enrichment_status IN ('pending', 'failed')
		ORDER BY priority DESC, discovered_at ASC
		LIMIT $1`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "store: list leads needing enrichment")
	}
	defer rows.Close()
	return collectLeadRows(rows)
}

func collectLeadRows(rows pgx.Rows) ([]model.Lead, error) {
	var out []model.Lead
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, eris.Wrap(err, "store: scan lead")
		}
		out = append(out, *l)
	}
	return out, eris.Wrap(rows.Err(), "store: iterate leads")
}

func (s *PostgresStore) SetEnrichment(ctx context.Context, leadID int64, res *model.EnrichResult, status model.StageStatus) error {
	var email, website, phone, contactName, contactTitle *string
	if res != nil {
		email, website, phone = res.Email, res.WebsiteURL, res.Phone
		contactName, contactTitle = res.ContactName, res.ContactTitle
	}
	needs := status != model.StageDone

	tag, err := s.pool.Exec(ctx, `
		UPDATE leads SET
			email = COALESCE($1, email),
			website_url = COALESCE($2, website_url),
			phone = COALESCE($3, phone),
			contact_name = COALESCE($4, contact_name),
			contact_title = COALESCE($5, contact_title),
			needs_enrichment = $6,
			enrichment_status = $7,
			updated_at = now()
		WHERE id = $8`,
		email, website, phone, contactName, contactTitle, needs, status, leadID)
	if err != nil {
		return eris.Wrapf(err, "store: set enrichment for lead %d", leadID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "lead %d", leadID)
	}
	return nil
}

func (s *PostgresStore) CreateGeoTarget(ctx context.Context, gt *model.GeoTarget) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx, `
		INSERT INTO geo_targets (name, cities, zip_codes, priority, active)
		VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		gt.Name, gt.Cities, gt.ZipCodes, gt.Priority, gt.Active).Scan(&id)
	if err != nil {
		return 0, eris.Wrapf(err, "store: create geo target %s", gt.Name)
	}
	return id, nil
}

func scanGeoTargetPg(row scannable) (*model.GeoTarget, error) {
	var gt model.GeoTarget
	err := row.Scan(&gt.ID, &gt.Name, &gt.Cities, &gt.ZipCodes, &gt.Priority,
		&gt.Active, &gt.LastSweptAt, &gt.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &gt, nil
}

func (s *PostgresStore) GetGeoTarget(ctx context.Context, id int64) (*model.GeoTarget, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+geoColumns+` FROM geo_targets WHERE id = $1`, id)
	gt, err := scanGeoTargetPg(row)
	if err == pgx.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "store: get geo target %d", id)
	}
	return gt, nil
}

func (s *PostgresStore) ListGeoTargets(ctx context.Context) ([]model.GeoTarget, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+geoColumns+` FROM geo_targets ORDER BY priority DESC, name ASC`)
	if err != nil {
		return nil, eris.Wrap(err, "store: list geo targets")
	}
	defer rows.Close()

	var out []model.GeoTarget
	for rows.Next() {
		gt, err := scanGeoTargetPg(rows)
		if err != nil {
			return nil, eris.Wrap(err, "store: scan geo target")
		}
		out = append(out, *gt)
	}
	return out, eris.Wrap(rows.Err(), "store: iterate geo targets")
}

func (s *PostgresStore) NextGeoTarget(ctx context.Context) (*model.GeoTarget, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+geoColumns+` FROM geo_targets
		WHERE active
		ORDER BY (last_swept_at IS NOT NULL), priority DESC, last_swept_at ASC
		LIMIT 1`)
	gt, err := scanGeoTargetPg(row)
	if err == pgx.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "store: next geo target")
	}
	return gt, nil
}

func (s *PostgresStore) MarkGeoTargetSwept(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE geo_targets SET last_swept_at = now() WHERE id = $1`, id)
	if err != nil {
		return eris.Wrapf(err, "store: mark geo target %d swept", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "geo target %d", id)
	}
	return nil
}

func (s *PostgresStore) CreateRun(ctx context.Context, geoTargetID int64) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx,
		`INSERT INTO runs (geo_target_id) VALUES ($1) RETURNING id`, geoTargetID).Scan(&id)
	if err != nil {
		return 0, eris.Wrapf(err, "store: create run for geo target %d", geoTargetID)
	}
	return id, nil
}

func (s *PostgresStore) CompleteRun(ctx context.Context, runID int64, sr *model.SweepResult) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE runs SET status = $1, queries_run = $2, results_found = $3,
			new_leads = $4, updated_leads = $5, finished_at = now()
		WHERE id = $6`,
		model.RunCompleted, sr.QueriesRun, sr.ResultsFound,
		sr.NewLeads, sr.UpdatedLeads, runID)
	if err != nil {
		return eris.Wrapf(err, "store: complete run %d", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "run %d", runID)
	}
	return nil
}

func (s *PostgresStore) FailRun(ctx context.Context, runID int64, cause error) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET status = $1, error = $2, finished_at = now() WHERE id = $3`,
		model.RunFailed, cause.Error(), runID)
	if err != nil {
		return eris.Wrapf(err, "store: fail run %d", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "run %d", runID)
	}
	return nil
}

func (s *PostgresStore) LogSearch(ctx context.Context, runID int64, query string, results, newLeads int) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO search_log (run_id, query, results, new_leads)
		VALUES ($1, $2, $3, $4)`,
		runID, query, results, newLeads)
	return eris.Wrapf(err, "store: log search %q", query)
}

func (s *PostgresStore) RunStats(ctx context.Context, since time.Time) (*model.RunStats, error) {
	var stats model.RunStats
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*),
			COUNT(*) FILTER (WHERE status = 'completed'),
			COUNT(*) FILTER (WHERE status = 'failed'),
			COUNT(*) FILTER (WHERE status = 'running'),
			COALESCE(SUM(new_leads), 0)
		FROM runs WHERE started_at >= $1`, since).Scan(
		&stats.Total, &stats.Completed, &stats.Failed, &stats.Running, &stats.NewLeads)
	if err != nil {
		return nil, eris.Wrap(err, "store: run stats")
	}
	return &stats, nil
}

func (s *PostgresStore) EnqueueOutreach(ctx context.Context, item *model.OutreachItem) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx, `
		INSERT INTO outreach_queue (lead_id, email, subject, body_text, body_html)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (lead_id, email) DO NOTHING
		RETURNING id`,
		item.LeadID, item.Email, item.Subject, item.BodyText, item.BodyHTML).Scan(&id)
	if err == pgx.ErrNoRows {
		// Already queued.
		return 0, nil
	}
	if err != nil {
		return 0, eris.Wrapf(err, "store: enqueue outreach for lead %d", item.LeadID)
	}
	return id, nil
}

func (s *PostgresStore) ApproveAll(ctx context.Context) (int, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE outreach_queue SET status = $1, updated_at = now() WHERE status = $2`,
		model.QueueApproved, model.QueuePending)
	if err != nil {
		return 0, eris.Wrap(err, "store: approve outreach")
	}
	return int(tag.RowsAffected()), nil
}

func (s *PostgresStore) ListApprovedOutreach(ctx context.Context) ([]model.OutreachItem, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+outreachColumns+` FROM outreach_queue
		WHERE status = $1 ORDER BY created_at ASC`, model.QueueApproved)
	if err != nil {
		return nil, eris.Wrap(err, "store: list approved outreach")
	}
	defer rows.Close()

	var out []model.OutreachItem
	for rows.Next() {
		it, err := scanOutreach(rows)
		if err != nil {
			return nil, eris.Wrap(err, "store: scan outreach item")
		}
		out = append(out, *it)
	}
	return out, eris.Wrap(rows.Err(), "store: iterate outreach items")
}

func (s *PostgresStore) MarkSent(ctx context.Context, itemID int64) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE outreach_queue
		SET status = $1, sent_at = now(), send_error = NULL, updated_at = now()
		WHERE id = $2`,
		model.QueueSent, itemID)
	if err != nil {
		return eris.Wrapf(err, "store: mark outreach %d sent", itemID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "outreach item %d", itemID)
	}
	return nil
}

func (s *PostgresStore) MarkSendFailed(ctx context.Context, itemID int64, cause error) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE outreach_queue SET status = $1, send_error = $2, updated_at = now()
		WHERE id = $3`,
		model.QueueFailed, cause.Error(), itemID)
	if err != nil {
		return eris.Wrapf(err, "store: mark outreach %d failed", itemID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "outreach item %d", itemID)
	}
	return nil
}

func (s *PostgresStore) OutreachStats(ctx context.Context) (*model.OutreachStats, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT status, COUNT(*) FROM outreach_queue GROUP BY status`)
	if err != nil {
		return nil, eris.Wrap(err, "store: outreach stats")
	}
	defer rows.Close()

	var stats model.OutreachStats
	for rows.Next() {
		var status model.QueueStatus
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, eris.Wrap(err, "store: scan outreach stats")
		}
		switch status {
		case model.QueuePending:
			stats.Pending = n
		case model.QueueApproved:
			stats.Approved = n
		case model.QueueSent:
			stats.Sent = n
		case model.QueueFailed:
			stats.Failed = n
		}
	}
	return &stats, eris.Wrap(rows.Err(), "store: iterate outreach stats")
}

func (s *PostgresStore) LeadsAwaitingOutreach(ctx context.Context, limit int) ([]model.Lead, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+leadColumns+` FROM leads
		WHERE email IS NOT NULL
		  AND NOT is_management_company
		  AND id NOT IN (SELECT lead_id FROM outreach_queue)
		ORDER BY priority DESC, discovered_at ASC
		LIMIT $1`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "store: leads awaiting outreach")
	}
	defer rows.Close()
	return collectLeadRows(rows)
}

func (s *PostgresStore) AddManagementContact(ctx context.Context, c *model.ManagementContact) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx, `
		INSERT INTO mgmt_contacts (lead_id, name, title, email, phone)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (lead_id, email) DO NOTHING
		RETURNING id`,
		c.LeadID, c.Name, c.Title, c.Email, c.Phone).Scan(&id)
	if err == pgx.ErrNoRows {
		// Already on file.
		return 0, nil
	}
	if err != nil {
		return 0, eris.Wrapf(err, "store: add management contact for lead %d", c.LeadID)
	}
	return id, nil
}

func (s *PostgresStore) ManagementContactsAwaitingOutreach(ctx context.Context, limit int) ([]model.ManagementContact, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT c.id, c.lead_id, c.name, c.title, c.email, c.phone, c.created_at,
		       l.name, l.city, l.state
		FROM mgmt_contacts c
		JOIN leads l ON l.id = c.lead_id
		WHERE NOT EXISTS (
			SELECT 1 FROM outreach_queue q
			WHERE q.lead_id = c.lead_id AND q.email = c.email
		)
		ORDER BY c.created_at ASC
		LIMIT $1`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "store: management contacts awaiting outreach")
	}
	defer rows.Close()

	var out []model.ManagementContact
	for rows.Next() {
		var c model.ManagementContact
		if err := rows.Scan(&c.ID, &c.LeadID, &c.Name, &c.Title, &c.Email, &c.Phone,
			&c.CreatedAt, &c.CompanyName, &c.City, &c.State); err != nil {
			return nil, eris.Wrap(err, "store: scan management contact")
		}
		out = append(out, c)
	}
	return out, eris.Wrap(rows.Err(), "store: iterate management contacts")
}

func (s *PostgresStore) PipelineStats(ctx context.Context) (*model.PipelineStats, error) {
	var stats model.PipelineStats
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*),
			COUNT(*) FILTER (WHERE is_management_company),
			COUNT(*) FILTER (WHERE needs_enrichment),
			COUNT(*) FILTER (WHERE needs_website_scrape),
			COUNT(*) FILTER (WHERE email IS NOT NULL)
		FROM leads`).Scan(
		&stats.TotalLeads, &stats.ManagementCompanies, &stats.AwaitingEnrichment,
		&stats.AwaitingScrape, &stats.WithEmail)
	if err != nil {
		return nil, eris.Wrap(err, "store: pipeline stats")
	}

	rows, err := s.pool.Query(ctx, `
		SELECT state, COUNT(*), AVG(rating) FROM leads
		WHERE state IS NOT NULL GROUP BY state ORDER BY COUNT(*) DESC`)
	if err != nil {
		return nil, eris.Wrap(err, "store: stats by state")
	}
	defer rows.Close()

	for rows.Next() {
		var sc model.StateCount
		if err := rows.Scan(&sc.State, &sc.Count, &sc.AvgRating); err != nil {
			return nil, eris.Wrap(err, "store: scan state count")
		}
		stats.ByState = append(stats.ByState, sc)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "store: iterate state counts")
	}
	return &stats, nil
}
