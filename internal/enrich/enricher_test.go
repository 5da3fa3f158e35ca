package enrich

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/prospector/internal/config"
	"github.com/sells-group/prospector/internal/model"
	"github.com/sells-group/prospector/internal/store"
)

func newTestEnricher(t *testing.T, domains map[string]string) (*Enricher, store.Store) {
	t.Helper()
	ctx := context.Background()

	st, err := store.NewSQLiteStore(ctx, filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	require.NoError(t, st.Migrate(ctx))

	cfg, err := config.Load()
	require.NoError(t, err)
	ecfg := cfg.Enrich
	ecfg.ProbeTimeoutSecs = 2
	ecfg.FetchTimeoutSecs = 2
	ecfg.ContactPaths = []string{"", "/contact"}
	ecfg.PauseBetweenLeadsMS = 0

	e := New(st, ecfg)
	e.domainURL = func(domain string) string {
		if u, ok := domains[domain]; ok {
			return u
		}
		// Unmapped candidates fail to connect, like an unregistered domain.
		return "http://127.0.0.1:1"
	}
	return e, st
}

func seedLead(t *testing.T, st store.Store, name string, website *string) *model.Lead {
	t.Helper()
	city, state := "Tampa", "FL"
	id, _, err := st.UpsertLead(context.Background(), model.LeadFields{
		Fingerprint: store.Fingerprint(name, city, state),
		Name:        name,
		City:        &city,
		State:       &state,
		WebsiteURL:  website,
		Priority:    5,
		Source:      model.SourceMapsDiscovery,
	})
	require.NoError(t, err)
	lead, err := st.GetLead(context.Background(), id)
	require.NoError(t, err)
	return lead
}

const westchaseHome = `<html><body>
<h1>Westchase Community Association</h1>
<p>Questions? Email info@westchasecommunity.example.com</p>
</body></html>`

const westchaseContact = `<html><body>
<p>Property Manager: Jane Smith</p>
<p>jane.smith@westchasecommunity.example.com | (813) 555-0142</p>
</body></html>`

func westchaseServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/contact" {
			w.Write([]byte(westchaseContact))
			return
		}
		w.Write([]byte(westchaseHome))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestEnrichLeadDomainGuess(t *testing.T) {
	srv := westchaseServer(t)
	e, _ := newTestEnricher(t, map[string]string{
		"westchasecommunityassociation.com": srv.URL,
	})
	lead := seedLead(t, e.store, "Westchase Community Association", nil)

	res, err := e.EnrichLead(context.Background(), lead)
	require.NoError(t, err)
	require.NotNil(t, res)

	assert.Equal(t, MethodDomainGuess, res.Method)
	assert.Equal(t, srv.URL, *res.WebsiteURL)
	require.NotNil(t, res.Email)
	assert.Equal(t, "jane.smith@westchasecommunity.example.com", *res.Email, "personal beats role inbox")
	require.NotNil(t, res.Phone)
	assert.Equal(t, "(813) 555-0142", *res.Phone)
	require.NotNil(t, res.ContactName)
	assert.Equal(t, "Jane Smith", *res.ContactName)
	require.NotNil(t, res.ContactTitle)
	assert.Equal(t, "Property Manager", *res.ContactTitle)
}

func TestEnrichLeadRejectsUnverifiedDomain(t *testing.T) {
	// The domain answers but its content is about something else entirely,
	// so token verification must reject it.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><body>Local news, weather and sports.</body></html>"))
	}))
	defer srv.Close()

	e, _ := newTestEnricher(t, map[string]string{
		"westchasecommunityassociation.com": srv.URL,
		"westchasehoa.com":                  srv.URL,
	})
	lead := seedLead(t, e.store, "Westchase Community Association", nil)

	res, err := e.EnrichLead(context.Background(), lead)
	require.NoError(t, err)
	assert.Nil(t, res, "unverified domains yield a not-found outcome")
}

func TestEnrichLeadNoDistinctiveTokens(t *testing.T) {
	// Every word is boilerplate: direct guessing is skipped outright, even
	// if some candidate domain would have answered.
	srv := westchaseServer(t)
	e, _ := newTestEnricher(t, map[string]string{
		"generalcontractorsinc.com": srv.URL,
	})
	lead := seedLead(t, e.store, "General Contractors Inc", nil)

	res, err := e.EnrichLead(context.Background(), lead)
	require.NoError(t, err)
	assert.Nil(t, res)
}

func TestEnrichLeadUsesListingWebsite(t *testing.T) {
	srv := westchaseServer(t)
	e, _ := newTestEnricher(t, nil)
	lead := seedLead(t, e.store, "Westchase Community Association", &srv.URL)

	res, err := e.EnrichLead(context.Background(), lead)
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, MethodListingWebsite, res.Method)
	require.NotNil(t, res.Email)
}

func TestRunBatch(t *testing.T) {
	srv := westchaseServer(t)
	e, st := newTestEnricher(t, map[string]string{
		"westchasecommunityassociation.com": srv.URL,
	})
	found := seedLead(t, st, "Westchase Community Association", nil)
	missed := seedLead(t, st, "Hidden Oaks Property Owners", nil)

	batch, err := e.Run(context.Background(), 10)
	require.NoError(t, err)

	assert.Equal(t, 2, batch.Processed)
	assert.Equal(t, 1, batch.Enriched)
	assert.Equal(t, 1, batch.NotFound)
	assert.Zero(t, batch.Failed)

	// Both leads are settled; neither is retried forever.
	pending, err := st.ListLeadsNeedingEnrichment(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, pending)

	got, err := st.GetLead(context.Background(), found.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Email)
	assert.Equal(t, model.StageDone, got.EnrichmentStatus)

	none, err := st.GetLead(context.Background(), missed.ID)
	require.NoError(t, err)
	assert.Nil(t, none.Email)
	assert.Equal(t, model.StageDone, none.EnrichmentStatus)
	assert.False(t, none.NeedsEnrichment)
}

func TestRunFilesManagementContact(t *testing.T) {
	srv := westchaseServer(t)
	e, st := newTestEnricher(t, nil)

	city, state := "Tampa", "FL"
	companyID, _, err := st.UpsertLead(context.Background(), model.LeadFields{
		Fingerprint:         store.Fingerprint("Westchase Management Group", city, state),
		Name:                "Westchase Management Group",
		City:                &city,
		State:               &state,
		WebsiteURL:          &srv.URL,
		Priority:            5,
		IsManagementCompany: true,
		Source:              model.SourceMapsDiscovery,
	})
	require.NoError(t, err)

	batch, err := e.Run(context.Background(), 10)
	require.NoError(t, err)
	require.Equal(t, 1, batch.Enriched)

	contacts, err := st.ManagementContactsAwaitingOutreach(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, contacts, 1)
	assert.Equal(t, companyID, contacts[0].LeadID)
	assert.Equal(t, "jane.smith@westchasecommunity.example.com", contacts[0].Email)
	require.NotNil(t, contacts[0].Name)
	assert.Equal(t, "Jane Smith", *contacts[0].Name)

	// Association leads never land in the contacts table.
	found := seedLead(t, st, "Westchase Community Association", &srv.URL)
	_, err = e.Run(context.Background(), 10)
	require.NoError(t, err)

	got, err := st.GetLead(context.Background(), found.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Email)

	contacts, err = st.ManagementContactsAwaitingOutreach(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, contacts, 1)
}
