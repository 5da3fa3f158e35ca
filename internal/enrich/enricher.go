package enrich

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/prospector/internal/config"
	"github.com/sells-group/prospector/internal/model"
	"github.com/sells-group/prospector/internal/store"
)

// Methods recorded on an EnrichResult.
const (
	MethodListingWebsite = "listing_website"
	MethodDomainGuess    = "domain_guess"
)

// Enricher fills in website, email, phone, and contact name for leads that
// need enrichment.
type Enricher struct {
	store   store.Store
	slugger *Slugger
	prober  *Prober
	cfg     config.EnrichConfig

	// domainURL maps a bare candidate domain to a probe URL. Tests point
	// it at a local server.
	domainURL func(domain string) string
}

func New(st store.Store, cfg config.EnrichConfig) *Enricher {
	return &Enricher{
		store:     st,
		slugger:   NewSlugger(cfg),
		prober:    NewProber(cfg),
		cfg:       cfg,
		domainURL: func(domain string) string { return "https://" + domain },
	}
}

// EnrichLead resolves contact details for one lead. Returning (nil, nil)
// means no website could be attributed: an expected outcome that marks the
// lead done rather than queueing an endless retry.
func (e *Enricher) EnrichLead(ctx context.Context, lead *model.Lead) (*model.EnrichResult, error) {
	log := zap.L().With(zap.Int64("lead_id", lead.ID), zap.String("name", lead.Name))

	res := &model.EnrichResult{LeadID: lead.ID}
	var site string

	switch {
	case lead.WebsiteURL != nil && *lead.WebsiteURL != "":
		site = *lead.WebsiteURL
		res.Method = MethodListingWebsite
	default:
		site = e.guessWebsite(ctx, lead.Name, log)
		res.Method = MethodDomainGuess
	}

	if site == "" {
		log.Debug("no website attributed")
		return nil, nil
	}
	res.WebsiteURL = &site

	contacts, err := e.scrapeContacts(ctx, site)
	if err != nil {
		return nil, eris.Wrapf(err, "enrich: scrape contacts for lead %d", lead.ID)
	}

	if len(contacts.emails) > 0 {
		res.Email = &contacts.emails[0]
	}
	if len(contacts.phones) > 0 {
		res.Phone = &contacts.phones[0]
	}
	if len(contacts.names) > 0 {
		res.ContactName = &contacts.names[0]
	}
	if contacts.title != "" {
		res.ContactTitle = &contacts.title
	}

	log.Info("lead enriched",
		zap.String("method", res.Method),
		zap.Bool("email_found", res.Email != nil))
	return res, nil
}

// guessWebsite probes candidate domains derived from the lead name and
// returns the first one whose page text verifies, or "".
func (e *Enricher) guessWebsite(ctx context.Context, name string, log *zap.Logger) string {
	tokens := e.slugger.VerifyTokens(name)
	if len(tokens) == 0 {
		// Nothing distinctive to verify against; guessing would only
		// produce false matches.
		log.Debug("no verify tokens, skipping domain guess")
		return ""
	}

	for _, domain := range e.slugger.CandidateDomains(name) {
		if ctx.Err() != nil {
			return ""
		}
		u := e.domainURL(domain)
		if e.prober.Verify(ctx, u, tokens) {
			log.Debug("domain verified", zap.String("domain", domain))
			return u
		}
	}
	return ""
}

type contactDetails struct {
	emails []string
	phones []string
	names  []string
	title  string
}

// scrapeContacts fetches the configured contact paths in parallel and pools
// the extraction over all of them. Individual page failures are ignored.
func (e *Enricher) scrapeContacts(ctx context.Context, site string) (*contactDetails, error) {
	base := strings.TrimRight(site, "/")

	var mu sync.Mutex
	var combined strings.Builder

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Concurrency)
	for _, path := range e.cfg.ContactPaths {
		url := base + path
		g.Go(func() error {
			text, err := e.prober.FetchText(gctx, url)
			if err != nil {
				zap.L().Debug("contact page fetch failed", zap.String("url", url), zap.Error(err))
				return nil
			}
			mu.Lock()
			combined.WriteString(text)
			combined.WriteByte('\n')
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	text := combined.String()
	return &contactDetails{
		emails: ExtractEmails(text),
		phones: ExtractPhones(text),
		names:  ExtractContactNames(text),
		title:  ExtractTitle(text),
	}, nil
}

// recordManagementContact files the enriched person under the company when
// the lead is a management company. Duplicate (company, email) pairs are
// absorbed by the store; a failure here never fails the enrichment.
func (e *Enricher) recordManagementContact(ctx context.Context, lead *model.Lead, res *model.EnrichResult) {
	if !lead.IsManagementCompany || res.Email == nil {
		return
	}
	_, err := e.store.AddManagementContact(ctx, &model.ManagementContact{
		LeadID: lead.ID,
		Name:   res.ContactName,
		Title:  res.ContactTitle,
		Email:  *res.Email,
		Phone:  res.Phone,
	})
	if err != nil {
		zap.L().Warn("record management contact failed", zap.Int64("lead_id", lead.ID), zap.Error(err))
	}
}

// Run enriches up to limit pending leads sequentially, pausing between
// leads to stay polite. One lead failing never stops the batch.
func (e *Enricher) Run(ctx context.Context, limit int) (*model.EnrichBatchResult, error) {
	leads, err := e.store.ListLeadsNeedingEnrichment(ctx, limit)
	if err != nil {
		return nil, eris.Wrap(err, "enrich: list pending leads")
	}

	batch := &model.EnrichBatchResult{}
	pause := time.Duration(e.cfg.PauseBetweenLeadsMS) * time.Millisecond

	for i := range leads {
		lead := &leads[i]
		if ctx.Err() != nil {
			break
		}

		if err := e.store.SetEnrichment(ctx, lead.ID, nil, model.StageInProgress); err != nil {
			zap.L().Warn("mark in_progress failed", zap.Int64("lead_id", lead.ID), zap.Error(err))
		}

		res, err := e.EnrichLead(ctx, lead)
		batch.Processed++
		switch {
		case err != nil:
			zap.L().Warn("enrichment failed", zap.Int64("lead_id", lead.ID), zap.Error(err))
			if serr := e.store.SetEnrichment(ctx, lead.ID, nil, model.StageFailed); serr != nil {
				zap.L().Error("mark failed failed", zap.Int64("lead_id", lead.ID), zap.Error(serr))
			}
			batch.Failed++
		case res == nil:
			if serr := e.store.SetEnrichment(ctx, lead.ID, nil, model.StageDone); serr != nil {
				zap.L().Error("mark done failed", zap.Int64("lead_id", lead.ID), zap.Error(serr))
			}
			batch.NotFound++
		default:
			if serr := e.store.SetEnrichment(ctx, lead.ID, res, model.StageDone); serr != nil {
				zap.L().Error("save enrichment failed", zap.Int64("lead_id", lead.ID), zap.Error(serr))
				batch.Failed++
				continue
			}
			e.recordManagementContact(ctx, lead, res)
			batch.Enriched++
			batch.Results = append(batch.Results, *res)
		}

		if pause > 0 && i < len(leads)-1 {
			select {
			case <-ctx.Done():
			case <-time.After(pause):
			}
		}
	}

	zap.L().Info("enrichment batch finished",
		zap.Int("processed", batch.Processed),
		zap.Int("enriched", batch.Enriched),
		zap.Int("not_found", batch.NotFound),
		zap.Int("failed", batch.Failed))
	return batch, nil
}
