package discovery

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/prospector/internal/classify"
	"github.com/sells-group/prospector/internal/config"
	"github.com/sells-group/prospector/internal/model"
	"github.com/sells-group/prospector/internal/parser"
	"github.com/sells-group/prospector/internal/scrape"
	"github.com/sells-group/prospector/internal/store"
)

// Driver runs discovery sweeps. One query failing, returning garbage, or
// hitting a block page never aborts the sweep; errors are collected on the
// result and the remaining queries still run.
type Driver struct {
	store      store.Store
	scraper    scrape.Scraper
	classifier *classify.Classifier
	limiter    *rate.Limiter
	cfg        config.DiscoveryConfig
}

func NewDriver(st store.Store, sc scrape.Scraper, cl *classify.Classifier, cfg config.DiscoveryConfig) *Driver {
	return &Driver{
		store:      st,
		scraper:    sc,
		classifier: cl,
		limiter:    rate.NewLimiter(rate.Limit(cfg.RatePerMinute/60.0), 1),
		cfg:        cfg,
	}
}

// Sweep runs every generated query against the target. Cancellation stops
// new queries from being issued but the in-flight query's results are still
// upserted, and the target is marked swept even on partial completion so
// rotation moves on.
func (d *Driver) Sweep(ctx context.Context, target *model.GeoTarget) (*model.SweepResult, error) {
	log := zap.L().With(zap.String("geo_target", target.Name), zap.Int64("geo_target_id", target.ID))

	// Audit writes survive cancellation so interrupted sweeps still leave
	// a complete record.
	runID, err := d.store.CreateRun(context.WithoutCancel(ctx), target.ID)
	if err != nil {
		return nil, eris.Wrap(err, "discovery: create run")
	}

	res := &model.SweepResult{GeoTargetID: target.ID, GeoTargetName: target.Name}
	queries := GenerateQueries(d.cfg.PrimaryQueries, d.cfg.SecondaryQueries, target)
	log.Info("sweep started", zap.Int("queries", len(queries)))

	budgetExhausted := false
	for _, q := range queries {
		if ctx.Err() != nil {
			log.Warn("sweep interrupted", zap.Int("queries_run", res.QueriesRun))
			break
		}
		if len(res.Errors) >= d.cfg.MaxErrors {
			budgetExhausted = true
			log.Error("sweep error budget exhausted", zap.Int("errors", len(res.Errors)))
			break
		}
		if err := d.limiter.Wait(ctx); err != nil {
			break
		}

		d.runQuery(ctx, runID, q, target, res, log)
	}

	// Partial sweeps still advance rotation; the next pass picks up the
	// same target only after every other target has had its turn.
	if err := d.store.MarkGeoTargetSwept(context.WithoutCancel(ctx), target.ID); err != nil {
		log.Error("mark swept failed", zap.Error(err))
	}
	if budgetExhausted {
		cause := eris.Errorf("discovery: error budget exhausted after %d errors", len(res.Errors))
		if err := d.store.FailRun(context.WithoutCancel(ctx), runID, cause); err != nil {
			log.Error("fail run failed", zap.Error(err))
		}
	} else if err := d.store.CompleteRun(context.WithoutCancel(ctx), runID, res); err != nil {
		log.Error("complete run failed", zap.Error(err))
	}

	log.Info("sweep finished",
		zap.Int("queries_run", res.QueriesRun),
		zap.Int("results", res.ResultsFound),
		zap.Int("new_leads", res.NewLeads),
		zap.Int("updated", res.UpdatedLeads),
		zap.Int("skipped", res.Skipped),
		zap.Int("blocked", res.BlockedQueries),
		zap.Int("errors", len(res.Errors)))
	return res, nil
}

func (d *Driver) runQuery(ctx context.Context, runID int64, q Query, target *model.GeoTarget, res *model.SweepResult, log *zap.Logger) {
	// Failed and blocked queries still count as run; QueriesRun tracks
	// attempts, Errors tracks what went wrong.
	res.QueriesRun++

	sr, err := d.scraper.Search(ctx, q.Text)
	if err != nil {
		if scrape.IsBlocked(err) {
			res.BlockedQueries++
			log.Warn("query blocked", zap.String("query", q.Text))
		} else {
			log.Warn("query failed", zap.String("query", q.Text), zap.Error(err))
		}
		res.Errors = append(res.Errors, model.QueryError{Query: q.Text, Error: err.Error()})
		return
	}

	res.ResultsFound += len(sr.Candidates)

	// Results already fetched are fully persisted even if cancellation
	// arrives mid-batch.
	dbctx := context.WithoutCancel(ctx)

	newInQuery := 0
	for _, cand := range sr.Candidates {
		created, err := d.upsertCandidate(dbctx, cand, q, target, res)
		if err != nil {
			res.Errors = append(res.Errors, model.QueryError{Query: q.Text, Error: err.Error()})
			log.Warn("upsert failed", zap.String("name", cand.Name), zap.Error(err))
			continue
		}
		if created {
			newInQuery++
		}
	}
	res.NewLeads += newInQuery

	if err := d.store.LogSearch(dbctx, runID, q.Text, len(sr.Candidates), newInQuery); err != nil {
		log.Warn("search log failed", zap.Error(err))
	}
}

// upsertCandidate classifies and persists one listing. The bool reports
// whether a new lead row was created.
func (d *Driver) upsertCandidate(ctx context.Context, cand model.Candidate, q Query, target *model.GeoTarget, res *model.SweepResult) (bool, error) {
	kind := d.classifier.Classify(cand)
	if kind == classify.KindIrrelevant {
		res.Skipped++
		return false, nil
	}

	addr := parser.ParseAddress(cand.RawAddress)
	// Listing cards often put category text where the address belongs;
	// fall back to the query's own city and state.
	if addr.City == "" {
		addr.City = q.City
	}
	if addr.State == "" {
		addr.State = q.State
	}

	f := model.LeadFields{
		Fingerprint: store.Fingerprint(cand.Name, addr.City, addr.State),
		Name:        cand.Name,
		City:        &addr.City,
		State:       &addr.State,
		Rating:      cand.Rating,
		ReviewCount: cand.ReviewCount,
		Priority:    model.CalculatePriority(cand.Rating, cand.ReviewCount, &addr.State),
		Source:      model.SourceMapsDiscovery,
		SearchQuery: &q.Text,
		GeoTargetID: &target.ID,
	}
	if addr.Street != "" {
		f.Street = &addr.Street
	}
	if addr.Zip != "" {
		f.Zip = &addr.Zip
	}
	if cand.Phone != "" {
		f.Phone = &cand.Phone
	}
	if cand.WebsiteURL != "" {
		f.WebsiteURL = &cand.WebsiteURL
	}
	if cand.SourceURL != "" {
		f.SourceURL = &cand.SourceURL
	}
	if cand.PlaceID != "" {
		f.ExternalID = &cand.PlaceID
	}
	if cand.Category != "" {
		f.Category = &cand.Category
	}
	if kind == classify.KindManagement {
		f.IsManagementCompany = true
		res.ManagementCompanies++
	}

	_, created, err := d.store.UpsertLead(ctx, f)
	if err != nil {
		return false, err
	}
	if !created {
		res.UpdatedLeads++
	}
	return created, nil
}
