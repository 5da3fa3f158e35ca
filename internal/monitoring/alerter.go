package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/prospector/internal/config"
)

// AlertType identifies the kind of alert.
type AlertType string

const (
	AlertSweepFailureRate AlertType = "sweep_failure_rate"
	AlertSendFailureRate  AlertType = "send_failure_rate"
	AlertEnrichBacklog    AlertType = "enrich_backlog"
)

// Alert represents a single alert to be sent.
type Alert struct {
	Type      AlertType      `json:"type"`
	Severity  string         `json:"severity"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Alerter evaluates a Snapshot against configured thresholds and sends
// alerts via webhook when thresholds are breached.
type Alerter struct {
	cfg    config.MonitoringConfig
	client *http.Client
}

func NewAlerter(cfg config.MonitoringConfig) *Alerter {
	return &Alerter{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Evaluate checks the snapshot against thresholds and returns any alerts.
func (a *Alerter) Evaluate(snap *Snapshot) []Alert {
	var alerts []Alert
	now := time.Now().UTC()

	// Sweep failure rate. A couple of failures out of a couple of runs is
	// noise; require a minimum sample.
	finished := snap.SweepTotal - snap.SweepRunning
	if finished >= 3 && snap.SweepFailRate > a.cfg.SweepFailureThreshold {
		alerts = append(alerts, Alert{
			Type:     AlertSweepFailureRate,
			Severity: "high",
			Message: fmt.Sprintf(
				"Sweep failure rate %.1f%% exceeds threshold %.1f%% (%d failed / %d finished in last %dh)",
				snap.SweepFailRate*100, a.cfg.SweepFailureThreshold*100,
				snap.SweepFailed, finished, snap.LookbackHours,
			),
			Details: map[string]any{
				"failure_rate": snap.SweepFailRate,
				"threshold":    a.cfg.SweepFailureThreshold,
				"failed":       snap.SweepFailed,
				"finished":     finished,
			},
			Timestamp: now,
		})
	}

	// Outreach delivery failures.
	attempted := snap.OutreachSent + snap.OutreachFailed
	if attempted >= 5 && snap.OutreachFailRate > a.cfg.SendFailureThreshold {
		alerts = append(alerts, Alert{
			Type:     AlertSendFailureRate,
			Severity: "high",
			Message: fmt.Sprintf(
				"Outreach send failure rate %.1f%% exceeds threshold %.1f%% (%d failed / %d attempted)",
				snap.OutreachFailRate*100, a.cfg.SendFailureThreshold*100,
				snap.OutreachFailed, attempted,
			),
			Details: map[string]any{
				"failure_rate": snap.OutreachFailRate,
				"threshold":    a.cfg.SendFailureThreshold,
				"failed":       snap.OutreachFailed,
				"attempted":    attempted,
			},
			Timestamp: now,
		})
	}

	// Enrichment backlog growing faster than it drains.
	if a.cfg.EnrichBacklogMax > 0 && snap.AwaitingEnrichment > a.cfg.EnrichBacklogMax {
		alerts = append(alerts, Alert{
			Type:     AlertEnrichBacklog,
			Severity: "medium",
			Message: fmt.Sprintf(
				"%d leads awaiting enrichment exceeds limit %d",
				snap.AwaitingEnrichment, a.cfg.EnrichBacklogMax,
			),
			Details: map[string]any{
				"awaiting": snap.AwaitingEnrichment,
				"limit":    a.cfg.EnrichBacklogMax,
			},
			Timestamp: now,
		})
	}

	return alerts
}

// SendAlerts delivers alerts to the configured webhook URL. Returns the
// number of alerts successfully sent.
func (a *Alerter) SendAlerts(ctx context.Context, alerts []Alert) int {
	if a.cfg.WebhookURL == "" || len(alerts) == 0 {
		return 0
	}

	sent := 0
	for _, alert := range alerts {
		if err := a.sendWebhook(ctx, alert); err != nil {
			zap.L().Error("monitoring: failed to send alert",
				zap.String("type", string(alert.Type)),
				zap.Error(err),
			)
			continue
		}
		zap.L().Info("monitoring: alert sent",
			zap.String("type", string(alert.Type)),
			zap.String("severity", alert.Severity),
		)
		sent++
	}
	return sent
}

func (a *Alerter) sendWebhook(ctx context.Context, alert Alert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return eris.Wrap(err, "monitoring: marshal alert")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.WebhookURL, bytes.NewReader(payload))
	if err != nil {
		return eris.Wrap(err, "monitoring: create webhook request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return eris.Wrap(err, "monitoring: webhook request")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return eris.Errorf("monitoring: webhook returned status %d", resp.StatusCode)
	}
	return nil
}
