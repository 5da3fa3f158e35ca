package outreach

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/prospector/internal/config"
	"github.com/sells-group/prospector/internal/model"
	"github.com/sells-group/prospector/internal/store"
)

// Sender delivers approved queue items.
type Sender struct {
	store   store.Store
	mailer  Mailer
	limiter *rate.Limiter
}

func NewSender(st store.Store, mailer Mailer, cfg config.OutreachConfig) *Sender {
	return &Sender{
		store:   st,
		mailer:  mailer,
		limiter: rate.NewLimiter(rate.Limit(cfg.SendPerSecond), 1),
	}
}

// SendBatch sends every approved item sequentially under the rate limit.
// A provider rejection marks that item failed and the batch moves on; failed
// items are never retried automatically, re-approval is a human decision.
// The batch always completes with a report.
func (s *Sender) SendBatch(ctx context.Context) (*model.SendReport, error) {
	approved, err := s.store.ListApprovedOutreach(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "outreach: list approved")
	}

	report := &model.SendReport{}
	if len(approved) == 0 {
		zap.L().Info("no approved outreach to send")
		return report, nil
	}

	zap.L().Info("sending outreach batch", zap.Int("items", len(approved)))
	for i := range approved {
		item := &approved[i]
		if ctx.Err() != nil {
			break
		}
		if err := s.limiter.Wait(ctx); err != nil {
			break
		}

		outcome := model.SendOutcome{ID: item.ID, Email: item.Email}
		err := s.mailer.Send(ctx, Message{
			To:      item.Email,
			Subject: item.Subject,
			Text:    item.BodyText,
			HTML:    item.BodyHTML,
		})
		if err != nil {
			outcome.Error = err.Error()
			report.Failed++
			zap.L().Warn("send failed", zap.Int64("item_id", item.ID), zap.Error(err))
			if merr := s.store.MarkSendFailed(ctx, item.ID, err); merr != nil {
				zap.L().Error("mark failed failed", zap.Int64("item_id", item.ID), zap.Error(merr))
			}
		} else {
			outcome.Success = true
			report.Sent++
			if merr := s.store.MarkSent(ctx, item.ID); merr != nil {
				zap.L().Error("mark sent failed", zap.Int64("item_id", item.ID), zap.Error(merr))
			}
		}
		report.Results = append(report.Results, outcome)
	}

	zap.L().Info("outreach batch complete",
		zap.Int("sent", report.Sent),
		zap.Int("failed", report.Failed))
	return report, nil
}
