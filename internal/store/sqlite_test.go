package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/prospector/internal/model"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	ctx := context.Background()

	s, err := NewSQLiteStore(ctx, filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	require.NoError(t, s.Migrate(ctx))
	return s
}

func strPtr(s string) *string { return &s }

func floatPtr(f float64) *float64 { return &f }

func intPtr(i int) *int { return &i }

func testFields(name, city, state string) model.LeadFields {
	return model.LeadFields{
		Fingerprint: Fingerprint(name, city, state),
		Name:        name,
		City:        strPtr(city),
		State:       strPtr(state),
		Priority:    5,
		Source:      model.SourceMapsDiscovery,
	}
}

func TestUpsertLeadInsert(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	f := testFields("Westchase Community Association", "Tampa", "FL")
	f.Phone = strPtr("8135550100")
	f.Rating = floatPtr(4.2)

	id, created, err := s.UpsertLead(ctx, f)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Positive(t, id)

	l, err := s.GetLead(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Westchase Community Association", l.Name)
	assert.Equal(t, "Tampa", *l.City)
	assert.Equal(t, "8135550100", *l.Phone)
	assert.True(t, l.NeedsEnrichment)
	assert.Equal(t, model.StagePending, l.EnrichmentStatus)
}

func TestUpsertLeadMerge(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first := testFields("Westchase Community Association", "Tampa", "FL")
	first.Phone = strPtr("8135550100")
	first.Rating = floatPtr(4.2)
	first.ReviewCount = intPtr(30)

	id1, created, err := s.UpsertLead(ctx, first)
	require.NoError(t, err)
	require.True(t, created)

	// Second sighting from another query: adds a website, updates the
	// volatile rating, omits the phone.
	second := testFields("Westchase Community Association", "Tampa", "FL")
	second.WebsiteURL = strPtr("https://westchase.example.com")
	second.Rating = floatPtr(4.4)

	id2, created, err := s.UpsertLead(ctx, second)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, id1, id2)

	l, err := s.GetLead(ctx, id1)
	require.NoError(t, err)
	assert.Equal(t, "8135550100", *l.Phone, "missing incoming field must not erase stored value")
	assert.Equal(t, "https://westchase.example.com", *l.WebsiteURL)
	assert.InDelta(t, 4.4, *l.Rating, 0.001, "newer non-null rating wins")
	require.NotNil(t, l.ReviewCount)
	assert.Equal(t, 30, *l.ReviewCount)
	assert.True(t, l.LastSeenAt.After(l.DiscoveredAt) || l.LastSeenAt.Equal(l.DiscoveredAt))
}

func TestUpsertLeadManagementFlagSticks(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	f := testFields("Gulf Coast Management", "Tampa", "FL")
	f.IsManagementCompany = true
	id, _, err := s.UpsertLead(ctx, f)
	require.NoError(t, err)

	// Re-sighting without the flag must not clear it.
	again := testFields("Gulf Coast Management", "Tampa", "FL")
	_, _, err = s.UpsertLead(ctx, again)
	require.NoError(t, err)

	l, err := s.GetLead(ctx, id)
	require.NoError(t, err)
	assert.True(t, l.IsManagementCompany)
}

func TestUpsertLeadIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	f := testFields("Bayshore Condo Association", "Tampa", "FL")
	for i := 0; i < 3; i++ {
		_, _, err := s.UpsertLead(ctx, f)
		require.NoError(t, err)
	}

	stats, err := s.PipelineStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalLeads)
}

func TestSetEnrichment(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, _, err := s.UpsertLead(ctx, testFields("Bayshore Condo Association", "Tampa", "FL"))
	require.NoError(t, err)

	res := &model.EnrichResult{
		LeadID:     id,
		Email:      strPtr("info@bayshorecondos.example.com"),
		WebsiteURL: strPtr("https://bayshorecondos.example.com"),
	}
	require.NoError(t, s.SetEnrichment(ctx, id, res, model.StageDone))

	l, err := s.GetLead(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "info@bayshorecondos.example.com", *l.Email)
	assert.False(t, l.NeedsEnrichment)
	assert.Equal(t, model.StageDone, l.EnrichmentStatus)

	// Lead drops out of the enrichment backlog once done.
	pending, err := s.ListLeadsNeedingEnrichment(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestSetEnrichmentNotFoundOutcome(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, _, err := s.UpsertLead(ctx, testFields("Hidden Oaks POA", "Lutz", "FL"))
	require.NoError(t, err)

	// No website found: status done, nothing discovered, no retry loop.
	require.NoError(t, s.SetEnrichment(ctx, id, nil, model.StageDone))

	l, err := s.GetLead(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, l.Email)
	assert.False(t, l.NeedsEnrichment)

	pending, err := s.ListLeadsNeedingEnrichment(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestSetEnrichmentMissingLead(t *testing.T) {
	s := newTestStore(t)
	err := s.SetEnrichment(context.Background(), 9999, nil, model.StageDone)
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrNotFound))
}

func TestGeoTargetRotation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	tampa, err := s.CreateGeoTarget(ctx, &model.GeoTarget{
		Name:   "tampa-bay",
		Cities: []model.CityState{{City: "Tampa", State: "FL"}, {City: "Clearwater", State: "FL"}},
		Active: true,
	})
	require.NoError(t, err)

	orlando, err := s.CreateGeoTarget(ctx, &model.GeoTarget{
		Name:     "orlando",
		Cities:   []model.CityState{{City: "Orlando", State: "FL"}},
		Priority: 1,
		Active:   true,
	})
	require.NoError(t, err)

	_, err = s.CreateGeoTarget(ctx, &model.GeoTarget{Name: "paused", Active: false})
	require.NoError(t, err)

	// Highest priority never-swept target first.
	next, err := s.NextGeoTarget(ctx)
	require.NoError(t, err)
	assert.Equal(t, orlando, next.ID)
	assert.Len(t, next.Cities, 1)

	require.NoError(t, s.MarkGeoTargetSwept(ctx, orlando))

	// tampa has never been swept, so it comes before the freshly swept
	// orlando despite the lower priority ordering within the same tier.
	next, err = s.NextGeoTarget(ctx)
	require.NoError(t, err)
	assert.Equal(t, tampa, next.ID)

	require.NoError(t, s.MarkGeoTargetSwept(ctx, tampa))

	// Both swept: rotation returns to the higher-priority one.
	next, err = s.NextGeoTarget(ctx)
	require.NoError(t, err)
	assert.Equal(t, orlando, next.ID)
	assert.NotNil(t, next.LastSweptAt)
}

func TestNextGeoTargetEmpty(t *testing.T) {
	s := newTestStore(t)
	_, err := s.NextGeoTarget(context.Background())
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrNotFound))
}

func TestRunAudit(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	gtID, err := s.CreateGeoTarget(ctx, &model.GeoTarget{Name: "tampa-bay", Active: true})
	require.NoError(t, err)

	runID, err := s.CreateRun(ctx, gtID)
	require.NoError(t, err)
	assert.Positive(t, runID)

	require.NoError(t, s.LogSearch(ctx, runID, "HOA Tampa, FL", 20, 12))
	require.NoError(t, s.CompleteRun(ctx, runID, &model.SweepResult{
		QueriesRun: 8, ResultsFound: 160, NewLeads: 90, UpdatedLeads: 40,
	}))

	require.Error(t, s.CompleteRun(ctx, 9999, &model.SweepResult{}))
}

func TestRunStatsWindow(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	gtID, err := s.CreateGeoTarget(ctx, &model.GeoTarget{Name: "tampa-bay", Active: true})
	require.NoError(t, err)

	ok, err := s.CreateRun(ctx, gtID)
	require.NoError(t, err)
	require.NoError(t, s.CompleteRun(ctx, ok, &model.SweepResult{NewLeads: 7}))

	bad, err := s.CreateRun(ctx, gtID)
	require.NoError(t, err)
	require.NoError(t, s.FailRun(ctx, bad, eris.New("blocked")))

	_, err = s.CreateRun(ctx, gtID)
	require.NoError(t, err)

	stats, err := s.RunStats(ctx, time.Now().UTC().Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 1, stats.Completed)
	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, 1, stats.Running)
	assert.Equal(t, 7, stats.NewLeads)

	// A cutoff in the future excludes everything.
	empty, err := s.RunStats(ctx, time.Now().UTC().Add(time.Hour))
	require.NoError(t, err)
	assert.Zero(t, empty.Total)
}

func TestOutreachLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	lead := testFields("Westchase Community Association", "Tampa", "FL")
	lead.Email = strPtr("board@westchase.example.com")
	leadID, _, err := s.UpsertLead(ctx, lead)
	require.NoError(t, err)

	awaiting, err := s.LeadsAwaitingOutreach(ctx, 10)
	require.NoError(t, err)
	require.Len(t, awaiting, 1)

	itemID, err := s.EnqueueOutreach(ctx, &model.OutreachItem{
		LeadID:   leadID,
		Email:    "board@westchase.example.com",
		Subject:  "Quick question",
		BodyText: "Hello",
	})
	require.NoError(t, err)
	assert.Positive(t, itemID)

	// Duplicate enqueue is a no-op.
	dup, err := s.EnqueueOutreach(ctx, &model.OutreachItem{
		LeadID:   leadID,
		Email:    "board@westchase.example.com",
		Subject:  "Quick question",
		BodyText: "Hello",
	})
	require.NoError(t, err)
	assert.Zero(t, dup)

	// Queued lead no longer awaits outreach.
	awaiting, err = s.LeadsAwaitingOutreach(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, awaiting)

	// Nothing sendable until approved.
	approved, err := s.ListApprovedOutreach(ctx)
	require.NoError(t, err)
	assert.Empty(t, approved)

	n, err := s.ApproveAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	approved, err = s.ListApprovedOutreach(ctx)
	require.NoError(t, err)
	require.Len(t, approved, 1)
	assert.Equal(t, model.QueueApproved, approved[0].Status)

	require.NoError(t, s.MarkSent(ctx, itemID))

	stats, err := s.OutreachStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Sent)
	assert.Zero(t, stats.Approved)
}

func TestMarkSendFailedKeepsItemOut(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	lead := testFields("Bayshore Condo Association", "Tampa", "FL")
	lead.Email = strPtr("info@bayshore.example.com")
	leadID, _, err := s.UpsertLead(ctx, lead)
	require.NoError(t, err)

	itemID, err := s.EnqueueOutreach(ctx, &model.OutreachItem{
		LeadID: leadID, Email: "info@bayshore.example.com",
		Subject: "s", BodyText: "b",
	})
	require.NoError(t, err)

	_, err = s.ApproveAll(ctx)
	require.NoError(t, err)

	require.NoError(t, s.MarkSendFailed(ctx, itemID, eris.New("smtp: 550 rejected")))

	// Failed items are not re-listed for sending.
	approved, err := s.ListApprovedOutreach(ctx)
	require.NoError(t, err)
	assert.Empty(t, approved)

	stats, err := s.OutreachStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Failed)
}

func TestPipelineStatsByState(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, row := range []struct{ name, city, state string }{
		{"A Association", "Tampa", "FL"},
		{"B Association", "Orlando", "FL"},
		{"C Association", "Austin", "TX"},
	} {
		_, _, err := s.UpsertLead(ctx, testFields(row.name, row.city, row.state))
		require.NoError(t, err)
	}

	stats, err := s.PipelineStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalLeads)
	require.Len(t, stats.ByState, 2)
	assert.Equal(t, "FL", stats.ByState[0].State)
	assert.Equal(t, 2, stats.ByState[0].Count)
}

func TestLeadsAwaitingOutreachExcludesManagement(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	assoc := testFields("Westchase Community Association", "Tampa", "FL")
	assoc.Email = strPtr("board@westchase.example.com")
	_, _, err := s.UpsertLead(ctx, assoc)
	require.NoError(t, err)

	mgmt := testFields("Gulf Coast HOA Management", "Tampa", "FL")
	mgmt.Email = strPtr("info@gulfcoast.example.com")
	mgmt.IsManagementCompany = true
	_, _, err = s.UpsertLead(ctx, mgmt)
	require.NoError(t, err)

	awaiting, err := s.LeadsAwaitingOutreach(ctx, 10)
	require.NoError(t, err)
	require.Len(t, awaiting, 1)
	assert.Equal(t, "Westchase Community Association", awaiting[0].Name)
}

func TestManagementContacts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	mgmt := testFields("Gulf Coast HOA Management", "Tampa", "FL")
	mgmt.IsManagementCompany = true
	companyID, _, err := s.UpsertLead(ctx, mgmt)
	require.NoError(t, err)

	id, err := s.AddManagementContact(ctx, &model.ManagementContact{
		LeadID: companyID,
		Name:   strPtr("Bob Jones"),
		Title:  strPtr("Property Manager"),
		Email:  "bob@gulfcoast.example.com",
	})
	require.NoError(t, err)
	assert.Positive(t, id)

	// Same person seen again is a no-op.
	dup, err := s.AddManagementContact(ctx, &model.ManagementContact{
		LeadID: companyID,
		Email:  "bob@gulfcoast.example.com",
	})
	require.NoError(t, err)
	assert.Zero(t, dup)

	contacts, err := s.ManagementContactsAwaitingOutreach(ctx, 10)
	require.NoError(t, err)
	require.Len(t, contacts, 1)
	assert.Equal(t, "bob@gulfcoast.example.com", contacts[0].Email)
	assert.Equal(t, "Gulf Coast HOA Management", contacts[0].CompanyName)
	require.NotNil(t, contacts[0].City)
	assert.Equal(t, "Tampa", *contacts[0].City)

	// Queueing the contact removes it from the awaiting set.
	_, err = s.EnqueueOutreach(ctx, &model.OutreachItem{
		LeadID:   companyID,
		Email:    "bob@gulfcoast.example.com",
		Subject:  "Quick question",
		BodyText: "Hello",
	})
	require.NoError(t, err)

	contacts, err = s.ManagementContactsAwaitingOutreach(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, contacts)
}

func TestGetLeadNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetLead(context.Background(), 42)
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrNotFound))
}
