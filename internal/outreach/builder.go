package outreach

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/prospector/internal/config"
	"github.com/sells-group/prospector/internal/model"
	"github.com/sells-group/prospector/internal/store"
)

// BuildResult summarizes one queue-building pass.
type BuildResult struct {
	Candidates int `json:"candidates"`
	Queued     int `json:"queued"`
	Skipped    int `json:"skipped"`
}

// Builder turns enriched leads into pending queue items.
type Builder struct {
	store store.Store
	cfg   config.OutreachConfig
}

func NewBuilder(st store.Store, cfg config.OutreachConfig) *Builder {
	return &Builder{store: st, cfg: cfg}
}

// Build enqueues up to limit association leads that have an email and no
// queue entry yet. Items land in 'pending' and wait for approval; a render
// or enqueue failure skips that lead only. Management companies are not
// candidates here, their contacts go through BuildManagement.
func (b *Builder) Build(ctx context.Context, limit int) (*BuildResult, error) {
	leads, err := b.store.LeadsAwaitingOutreach(ctx, limit)
	if err != nil {
		return nil, eris.Wrap(err, "outreach: list leads awaiting outreach")
	}

	res := &BuildResult{Candidates: len(leads)}
	for i := range leads {
		lead := &leads[i]
		if ctx.Err() != nil {
			break
		}

		subject, text, html, err := Render(b.cfg.Subject, lead)
		if err != nil {
			zap.L().Warn("template render failed", zap.Int64("lead_id", lead.ID), zap.Error(err))
			res.Skipped++
			continue
		}

		id, err := b.store.EnqueueOutreach(ctx, &model.OutreachItem{
			LeadID:   lead.ID,
			Email:    *lead.Email,
			Subject:  subject,
			BodyText: text,
			BodyHTML: html,
		})
		if err != nil {
			zap.L().Warn("enqueue failed", zap.Int64("lead_id", lead.ID), zap.Error(err))
			res.Skipped++
			continue
		}
		if id == 0 {
			res.Skipped++
			continue
		}
		res.Queued++
	}

	zap.L().Info("outreach queue built",
		zap.Int("candidates", res.Candidates),
		zap.Int("queued", res.Queued),
		zap.Int("skipped", res.Skipped))
	return res, nil
}

// BuildManagement enqueues up to limit management company contacts with the
// manager-facing letter. Same lifecycle as Build: items land in 'pending'
// and wait for approval.
func (b *Builder) BuildManagement(ctx context.Context, limit int) (*BuildResult, error) {
	contacts, err := b.store.ManagementContactsAwaitingOutreach(ctx, limit)
	if err != nil {
		return nil, eris.Wrap(err, "outreach: list management contacts awaiting outreach")
	}

	res := &BuildResult{Candidates: len(contacts)}
	for i := range contacts {
		c := &contacts[i]
		if ctx.Err() != nil {
			break
		}

		subject, text, html, err := RenderManagement(b.cfg.Subject, c)
		if err != nil {
			zap.L().Warn("template render failed", zap.Int64("lead_id", c.LeadID), zap.Error(err))
			res.Skipped++
			continue
		}

		id, err := b.store.EnqueueOutreach(ctx, &model.OutreachItem{
			LeadID:   c.LeadID,
			Email:    c.Email,
			Subject:  subject,
			BodyText: text,
			BodyHTML: html,
		})
		if err != nil {
			zap.L().Warn("enqueue failed", zap.Int64("lead_id", c.LeadID), zap.Error(err))
			res.Skipped++
			continue
		}
		if id == 0 {
			res.Skipped++
			continue
		}
		res.Queued++
	}

	zap.L().Info("management outreach queue built",
		zap.Int("candidates", res.Candidates),
		zap.Int("queued", res.Queued),
		zap.Int("skipped", res.Skipped))
	return res, nil
}

// ApproveAll moves every pending item to approved.
func (b *Builder) ApproveAll(ctx context.Context) (int, error) {
	n, err := b.store.ApproveAll(ctx)
	if err != nil {
		return 0, err
	}
	zap.L().Info("outreach approved", zap.Int("items", n))
	return n, nil
}
