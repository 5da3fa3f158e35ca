package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/sells-group/prospector/internal/model"
)

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS leads (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
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
	rating REAL,
	review_count INTEGER,
	priority INTEGER NOT NULL DEFAULT 5,
	is_management_company INTEGER NOT NULL DEFAULT 0,
	source TEXT NOT NULL,
	search_query TEXT,
	geo_target_id INTEGER,
	needs_website_scrape INTEGER NOT NULL DEFAULT 1,
	needs_enrichment INTEGER NOT NULL DEFAULT 1,
	needs_review_scan INTEGER NOT NULL DEFAULT 1,
	website_scrape_status TEXT NOT NULL DEFAULT 'pending',
	enrichment_status TEXT NOT NULL DEFAULT 'pending',
	review_scan_status TEXT NOT NULL DEFAULT 'pending',
	discovered_at TIMESTAMP NOT NULL,
	last_seen_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_leads_enrichment ON leads (needs_enrichment, priority DESC);
CREATE INDEX IF NOT EXISTS idx_leads_state ON leads (state);

CREATE TABLE IF NOT EXISTS geo_targets (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL UNIQUE,
	cities TEXT NOT NULL DEFAULT '[]',
	zip_codes TEXT NOT NULL DEFAULT '[]',
	priority INTEGER NOT NULL DEFAULT 0,
	active INTEGER NOT NULL DEFAULT 1,
	last_swept_at TIMESTAMP,
	created_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS runs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	geo_target_id INTEGER NOT NULL REFERENCES geo_targets(id),
	status TEXT NOT NULL DEFAULT 'running',
	queries_run INTEGER NOT NULL DEFAULT 0,
	results_found INTEGER NOT NULL DEFAULT 0,
	new_leads INTEGER NOT NULL DEFAULT 0,
	updated_leads INTEGER NOT NULL DEFAULT 0,
	error TEXT,
	started_at TIMESTAMP NOT NULL,
	finished_at TIMESTAMP
);

CREATE TABLE IF NOT EXISTS search_log (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id INTEGER NOT NULL REFERENCES runs(id),
	query TEXT NOT NULL,
	results INTEGER NOT NULL DEFAULT 0,
	new_leads INTEGER NOT NULL DEFAULT 0,
	searched_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS outreach_queue (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	lead_id INTEGER NOT NULL REFERENCES leads(id),
	email TEXT NOT NULL,
	subject TEXT NOT NULL,
	body_text TEXT NOT NULL,
	body_html TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT 'pending',
	sent_at TIMESTAMP,
	send_error TEXT,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL,
	UNIQUE (lead_id, email)
);
CREATE INDEX IF NOT EXISTS idx_outreach_status ON outreach_queue (status);

CREATE TABLE IF NOT EXISTS mgmt_contacts (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	lead_id INTEGER NOT NULL REFERENCES leads(id),
	name TEXT,
	title TEXT,
	email TEXT NOT NULL,
	phone TEXT,
	created_at TIMESTAMP NOT NULL,
	UNIQUE (lead_id, email)
);
`

// SQLiteStore is the embedded single-file backend. SQLite allows one writer
// at a time, so all writes are serialized through mu.
type SQLiteStore struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteStore opens (creating if needed) the database at path and applies
// the WAL pragmas.
func NewSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, eris.Wrapf(err, "store: open sqlite %s", path)
	}
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "store: %s", pragma)
		}
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.ExecContext(ctx, sqliteMigration); err != nil {
		return eris.Wrap(err, "store: sqlite migrate")
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// UpsertLead inserts a new lead or merges fields into an existing one,
// keyed by fingerprint. A merge only overwrites columns for which the
// incoming value is non-null, so later sightings never erase earlier data.
func (s *SQLiteStore) UpsertLead(ctx context.Context, f model.LeadFields) (int64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, false, eris.Wrap(err, "store: begin upsert")
	}
	defer tx.Rollback()

	now := time.Now().UTC()

	var existing int64
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM leads WHERE fingerprint = ?`, f.Fingerprint).Scan(&existing)
	switch {
	case err == sql.ErrNoRows:
		res, err := tx.ExecContext(ctx, `
			INSERT INTO leads (
				fingerprint, name, street, city, state, zip, phone, email,
				contact_name, contact_title, website_url, source_url, external_id,
				category, rating, review_count, priority, is_management_company,
				source, search_query, geo_target_id,
				discovered_at, last_seen_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			f.Fingerprint, f.Name, f.Street, f.City, f.State, f.Zip, f.Phone, f.Email,
			f.ContactName, f.ContactTitle, f.WebsiteURL, f.SourceURL, f.ExternalID,
			f.Category, f.Rating, f.ReviewCount, f.Priority, f.IsManagementCompany,
			f.Source, f.SearchQuery, f.GeoTargetID,
			now, now, now)
		if err != nil {
			return 0, false, eris.Wrapf(err, "store: insert lead %s", f.Name)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return 0, false, eris.Wrap(err, "store: insert lead id")
		}
		if err := tx.Commit(); err != nil {
			return 0, false, eris.Wrap(err, "store: commit insert")
		}
		return id, true, nil

	case err != nil:
		return 0, false, eris.Wrap(err, "store: lookup fingerprint")
	}

	// Merge update: COALESCE keeps the stored value where the incoming
	// field is null. Rating and review count are volatile, so the newer
	// non-null sighting wins there too.
	_, err = tx.ExecContext(ctx, `
		UPDATE leads SET
			street = COALESCE(?, street),
			city = COALESCE(?, city),
			state = COALESCE(?, state),
			zip = COALESCE(?, zip),
			phone = COALESCE(?, phone),
			email = COALESCE(?, email),
			contact_name = COALESCE(?, contact_name),
			contact_title = COALESCE(?, contact_title),
			website_url = COALESCE(?, website_url),
			source_url = COALESCE(?, source_url),
			external_id = COALESCE(?, external_id),
			category = COALESCE(?, category),
			rating = COALESCE(?, rating),
			review_count = COALESCE(?, review_count),
			is_management_company = is_management_company OR ?,
			last_seen_at = ?,
			updated_at = ?
		WHERE id = ?`,
		f.Street, f.City, f.State, f.Zip, f.Phone, f.Email,
		f.ContactName, f.ContactTitle, f.WebsiteURL, f.SourceURL, f.ExternalID,
		f.Category, f.Rating, f.ReviewCount, f.IsManagementCompany,
		now, now, existing)
	if err != nil {
		return 0, false, eris.Wrapf(err, "store: update lead %d", existing)
	}
	if err := tx.Commit(); err != nil {
		return 0, false, eris.Wrap(err, "store: commit update")
	}
	return existing, false, nil
}

const leadColumns = `id, fingerprint, name, street, city, state, zip, phone, email,
	contact_name, contact_title, website_url, source_url, external_id, category,
	rating, review_count, priority, is_management_company, source, search_query,
	geo_target_id, needs_website_scrape, needs_enrichment, needs_review_scan,
	website_scrape_status, enrichment_status, review_scan_status,
	discovered_at, last_seen_at, updated_at`

func scanLead(row scannable) (*model.Lead, error) {
	var l model.Lead
	err := row.Scan(
		&l.ID, &l.Fingerprint, &l.Name, &l.Street, &l.City, &l.State, &l.Zip,
		&l.Phone, &l.Email, &l.ContactName, &l.ContactTitle, &l.WebsiteURL,
		&l.SourceURL, &l.ExternalID, &l.Category, &l.Rating, &l.ReviewCount,
		&l.Priority, &l.IsManagementCompany, &l.Source, &l.SearchQuery,
		&l.GeoTargetID, &l.NeedsWebsiteScrape, &l.NeedsEnrichment,
		&l.NeedsReviewScan, &l.WebsiteScrapeStatus, &l.EnrichmentStatus,
		&l.ReviewScanStatus, &l.DiscoveredAt, &l.LastSeenAt, &l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (s *SQLiteStore) GetLead(ctx context.Context, id int64) (*model.Lead, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+leadColumns+` FROM leads WHERE id = ?`, id)
	l, err := scanLead(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "store: get lead %d", id)
	}
	return l, nil
}

func (s *SQLiteStore) ListLeadsNeedingEnrichment(ctx context.Context, limit int) ([]model.Lead, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+leadColumns+` FROM leads
		WHERE needs_enrichment = 1 AND enrichment_status IN ('pending', 'failed')
		ORDER BY priority DESC, discovered_at ASC
		LIMIT ?`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "store: list leads needing enrichment")
	}
	defer rows.Close()
	return collectLeads(rows)
}

func collectLeads(rows *sql.Rows) ([]model.Lead, error) {
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

func (s *SQLiteStore) SetEnrichment(ctx context.Context, leadID int64, res *model.EnrichResult, status model.StageStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var email, website, phone, contactName, contactTitle *string
	if res != nil {
		email, website, phone = res.Email, res.WebsiteURL, res.Phone
		contactName, contactTitle = res.ContactName, res.ContactTitle
	}
	needs := status != model.StageDone

	result, err := s.db.ExecContext(ctx, `
		UPDATE leads SET
			email = COALESCE(?, email),
			website_url = COALESCE(?, website_url),
			phone = COALESCE(?, phone),
			contact_name = COALESCE(?, contact_name),
			contact_title = COALESCE(?, contact_title),
			needs_enrichment = ?,
			enrichment_status = ?,
			updated_at = ?
		WHERE id = ?`,
		email, website, phone, contactName, contactTitle,
		needs, status, time.Now().UTC(), leadID)
	if err != nil {
		return eris.Wrapf(err, "store: set enrichment for lead %d", leadID)
	}
	return checkRowsAffected(result, leadID)
}

func checkRowsAffected(res sql.Result, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "store: rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "id %d", id)
	}
	return nil
}

func (s *SQLiteStore) CreateGeoTarget(ctx context.Context, gt *model.GeoTarget) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cities, err := json.Marshal(gt.Cities)
	if err != nil {
		return 0, eris.Wrap(err, "store: marshal cities")
	}
	zips, err := json.Marshal(gt.ZipCodes)
	if err != nil {
		return 0, eris.Wrap(err, "store: marshal zip codes")
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO geo_targets (name, cities, zip_codes, priority, active, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		gt.Name, string(cities), string(zips), gt.Priority, gt.Active, time.Now().UTC())
	if err != nil {
		return 0, eris.Wrapf(err, "store: create geo target %s", gt.Name)
	}
	id, err := res.LastInsertId()
	return id, eris.Wrap(err, "store: geo target id")
}

const geoColumns = `id, name, cities, zip_codes, priority, active, last_swept_at, created_at`

func scanGeoTarget(row scannable) (*model.GeoTarget, error) {
	var gt model.GeoTarget
	var cities, zips string
	err := row.Scan(&gt.ID, &gt.Name, &cities, &zips, &gt.Priority, &gt.Active,
		&gt.LastSweptAt, &gt.CreatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(cities), &gt.Cities); err != nil {
		return nil, eris.Wrapf(err, "store: unmarshal cities for geo target %d", gt.ID)
	}
	if err := json.Unmarshal([]byte(zips), &gt.ZipCodes); err != nil {
		return nil, eris.Wrapf(err, "store: unmarshal zip codes for geo target %d", gt.ID)
	}
	return &gt, nil
}

func (s *SQLiteStore) GetGeoTarget(ctx context.Context, id int64) (*model.GeoTarget, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+geoColumns+` FROM geo_targets WHERE id = ?`, id)
	gt, err := scanGeoTarget(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "store: get geo target %d", id)
	}
	return gt, nil
}

func (s *SQLiteStore) ListGeoTargets(ctx context.Context) ([]model.GeoTarget, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+geoColumns+` FROM geo_targets ORDER BY priority DESC, name ASC`)
	if err != nil {
		return nil, eris.Wrap(err, "store: list geo targets")
	}
	defer rows.Close()

	var out []model.GeoTarget
	for rows.Next() {
		gt, err := scanGeoTarget(rows)
		if err != nil {
			return nil, eris.Wrap(err, "store: scan geo target")
		}
		out = append(out, *gt)
	}
	return out, eris.Wrap(rows.Err(), "store: iterate geo targets")
}

// NextGeoTarget returns the active target most due for a sweep: never-swept
// targets first (by priority), then the stalest sweep.
func (s *SQLiteStore) NextGeoTarget(ctx context.Context) (*model.GeoTarget, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+geoColumns+` FROM geo_targets
		WHERE active = 1
		ORDER BY last_swept_at IS NOT NULL, priority DESC, last_swept_at ASC
		LIMIT 1`)
	gt, err := scanGeoTarget(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "store: next geo target")
	}
	return gt, nil
}

func (s *SQLiteStore) MarkGeoTargetSwept(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`UPDATE geo_targets SET last_swept_at = ? WHERE id = ?`, time.Now().UTC(), id)
	if err != nil {
		return eris.Wrapf(err, "store: mark geo target %d swept", id)
	}
	return checkRowsAffected(res, id)
}

func (s *SQLiteStore) CreateRun(ctx context.Context, geoTargetID int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (geo_target_id, started_at) VALUES (?, ?)`,
		geoTargetID, time.Now().UTC())
	if err != nil {
		return 0, eris.Wrapf(err, "store: create run for geo target %d", geoTargetID)
	}
	id, err := res.LastInsertId()
	return id, eris.Wrap(err, "store: run id")
}

func (s *SQLiteStore) CompleteRun(ctx context.Context, runID int64, sr *model.SweepResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE runs SET status = ?, queries_run = ?, results_found = ?,
			new_leads = ?, updated_leads = ?, finished_at = ?
		WHERE id = ?`,
		model.RunCompleted, sr.QueriesRun, sr.ResultsFound,
		sr.NewLeads, sr.UpdatedLeads, time.Now().UTC(), runID)
	if err != nil {
		return eris.Wrapf(err, "store: complete run %d", runID)
	}
	return checkRowsAffected(res, runID)
}

func (s *SQLiteStore) FailRun(ctx context.Context, runID int64, cause error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, error = ?, finished_at = ? WHERE id = ?`,
		model.RunFailed, cause.Error(), time.Now().UTC(), runID)
	if err != nil {
		return eris.Wrapf(err, "store: fail run %d", runID)
	}
	return checkRowsAffected(res, runID)
}

func (s *SQLiteStore) LogSearch(ctx context.Context, runID int64, query string, results, newLeads int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO search_log (run_id, query, results, new_leads, searched_at)
		VALUES (?, ?, ?, ?, ?)`,
		runID, query, results, newLeads, time.Now().UTC())
	return eris.Wrapf(err, "store: log search %q", query)
}

// RunStats aggregates sweep runs started at or after since.
func (s *SQLiteStore) RunStats(ctx context.Context, since time.Time) (*model.RunStats, error) {
	var stats model.RunStats
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
			COALESCE(SUM(CASE WHEN status = 'completed' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'failed' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'running' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(new_leads), 0)
		FROM runs WHERE started_at >= ?`, since).Scan(
		&stats.Total, &stats.Completed, &stats.Failed, &stats.Running, &stats.NewLeads)
	if err != nil {
		return nil, eris.Wrap(err, "store: run stats")
	}
	return &stats, nil
}

func (s *SQLiteStore) EnqueueOutreach(ctx context.Context, item *model.OutreachItem) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO outreach_queue (lead_id, email, subject, body_text, body_html, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (lead_id, email) DO NOTHING`,
		item.LeadID, item.Email, item.Subject, item.BodyText, item.BodyHTML,
		model.QueuePending, now, now)
	if err != nil {
		return 0, eris.Wrapf(err, "store: enqueue outreach for lead %d", item.LeadID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, eris.Wrap(err, "store: enqueue rows affected")
	}
	if n == 0 {
		// Already queued.
		return 0, nil
	}
	id, err := res.LastInsertId()
	return id, eris.Wrap(err, "store: outreach id")
}

func (s *SQLiteStore) ApproveAll(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`UPDATE outreach_queue SET status = ?, updated_at = ? WHERE status = ?`,
		model.QueueApproved, time.Now().UTC(), model.QueuePending)
	if err != nil {
		return 0, eris.Wrap(err, "store: approve outreach")
	}
	n, err := res.RowsAffected()
	return int(n), eris.Wrap(err, "store: approve rows affected")
}

const outreachColumns = `id, lead_id, email, subject, body_text, body_html, status, sent_at, send_error, created_at, updated_at`

func scanOutreach(row scannable) (*model.OutreachItem, error) {
	var it model.OutreachItem
	err := row.Scan(&it.ID, &it.LeadID, &it.Email, &it.Subject, &it.BodyText,
		&it.BodyHTML, &it.Status, &it.SentAt, &it.SendError, &it.CreatedAt, &it.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &it, nil
}

func (s *SQLiteStore) ListApprovedOutreach(ctx context.Context) ([]model.OutreachItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+outreachColumns+` FROM outreach_queue
		WHERE status = ? ORDER BY created_at ASC`, model.QueueApproved)
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

func (s *SQLiteStore) MarkSent(ctx context.Context, itemID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		UPDATE outreach_queue SET status = ?, sent_at = ?, send_error = NULL, updated_at = ?
		WHERE id = ?`,
		model.QueueSent, now, now, itemID)
	if err != nil {
		return eris.Wrapf(err, "store: mark outreach %d sent", itemID)
	}
	return checkRowsAffected(res, itemID)
}

func (s *SQLiteStore) MarkSendFailed(ctx context.Context, itemID int64, cause error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE outreach_queue SET status = ?, send_error = ?, updated_at = ?
		WHERE id = ?`,
		model.QueueFailed, cause.Error(), time.Now().UTC(), itemID)
	if err != nil {
		return eris.Wrapf(err, "store: mark outreach %d failed", itemID)
	}
	return checkRowsAffected(res, itemID)
}

func (s *SQLiteStore) OutreachStats(ctx context.Context) (*model.OutreachStats, error) {
	rows, err := s.db.QueryContext(ctx,
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

// LeadsAwaitingOutreach returns association leads with an email that have no
// queue entry yet. Management companies are excluded; their people are
// reached through mgmt_contacts instead.
func (s *SQLiteStore) LeadsAwaitingOutreach(ctx context.Context, limit int) ([]model.Lead, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+leadColumns+` FROM leads
		WHERE email IS NOT NULL
		  AND is_management_company = 0
		  AND id NOT IN (SELECT lead_id FROM outreach_queue)
		ORDER BY priority DESC, discovered_at ASC
		LIMIT ?`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "store: leads awaiting outreach")
	}
	defer rows.Close()
	return collectLeads(rows)
}

func (s *SQLiteStore) AddManagementContact(ctx context.Context, c *model.ManagementContact) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO mgmt_contacts (lead_id, name, title, email, phone, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (lead_id, email) DO NOTHING`,
		c.LeadID, c.Name, c.Title, c.Email, c.Phone, time.Now().UTC())
	if err != nil {
		return 0, eris.Wrapf(err, "store: add management contact for lead %d", c.LeadID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, eris.Wrap(err, "store: management contact rows affected")
	}
	if n == 0 {
		// Already on file.
		return 0, nil
	}
	id, err := res.LastInsertId()
	return id, eris.Wrap(err, "store: management contact id")
}

// ManagementContactsAwaitingOutreach returns contacts whose (company, email)
// pair has no queue entry yet, joined with the company row for rendering.
func (s *SQLiteStore) ManagementContactsAwaitingOutreach(ctx context.Context, limit int) ([]model.ManagementContact, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.lead_id, c.name, c.title, c.email, c.phone, c.created_at,
		       l.name, l.city, l.state
		FROM mgmt_contacts c
		JOIN leads l ON l.id = c.lead_id
		WHERE NOT EXISTS (
			SELECT 1 FROM outreach_queue q
			WHERE q.lead_id = c.lead_id AND q.email = c.email
		)
		ORDER BY c.created_at ASC
		LIMIT ?`, limit)
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

func (s *SQLiteStore) PipelineStats(ctx context.Context) (*model.PipelineStats, error) {
	var stats model.PipelineStats
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
			COALESCE(SUM(is_management_company), 0),
			COALESCE(SUM(CASE WHEN needs_enrichment = 1 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN needs_website_scrape = 1 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN email IS NOT NULL THEN 1 ELSE 0 END), 0)
		FROM leads`).Scan(
		&stats.TotalLeads, &stats.ManagementCompanies, &stats.AwaitingEnrichment,
		&stats.AwaitingScrape, &stats.WithEmail)
	if err != nil {
		return nil, eris.Wrap(err, "store: pipeline stats")
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT state, COUNT(*) FROM leads
		WHERE state IS NOT NULL GROUP BY state ORDER BY COUNT(*) DESC`)
	if err != nil {
		return nil, eris.Wrap(err, "store: stats by state")
	}
	defer rows.Close()

	for rows.Next() {
		var sc model.StateCount
		if err := rows.Scan(&sc.State, &sc.Count); err != nil {
			return nil, eris.Wrap(err, "store: scan state count")
		}
		stats.ByState = append(stats.ByState, sc)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "store: iterate state counts")
	}

	zap.L().Debug("pipeline stats computed",
		zap.Int("total_leads", stats.TotalLeads),
		zap.Int("with_email", stats.WithEmail))
	return &stats, nil
}
