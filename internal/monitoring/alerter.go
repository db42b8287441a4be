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

	"github.com/sells-group/portfolio-jobs/internal/config"
	"github.com/sells-group/portfolio-jobs/internal/delta"
	"github.com/sells-group/portfolio-jobs/internal/model"
)

// AlertType identifies the kind of alert.
type AlertType string

const (
	AlertFundEmptied       AlertType = "fund_emptied"
	AlertJobDrop           AlertType = "job_drop"
	AlertUnresolvedTargets AlertType = "unresolved_targets"
	AlertRunFailureRate    AlertType = "run_failure_rate"
)

// Alert represents a single alert to be sent.
type Alert struct {
	Type      AlertType      `json:"type"`
	Severity  string         `json:"severity"`
	FundID    string         `json:"fund_id,omitempty"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Alerter evaluates refresh outcomes against configured thresholds
// and sends alerts via webhook when thresholds are breached.
type Alerter struct {
	cfg    config.MonitoringConfig
	client *http.Client
	now    func() time.Time
}

// NewAlerter creates a new Alerter with the given monitoring config.
func NewAlerter(cfg config.MonitoringConfig) *Alerter {
	return &Alerter{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
		now:    time.Now,
	}
}

// Evaluate checks a delta report and the matching refresh results. Either
// argument may be nil.
func (a *Alerter) Evaluate(report *delta.Report, runs []model.RunResult) []Alert {
	var alerts []Alert
	now := a.now().UTC()

	if report != nil {
		for _, fd := range report.Funds {
			if fd.Before.Companies > 0 && fd.After.Companies == 0 {
				alerts = append(alerts, Alert{
					Type:     AlertFundEmptied,
					Severity: "high",
					FundID:   fd.FundID,
					Message:  fmt.Sprintf("%s went from %d companies to none", fd.FundID, fd.Before.Companies),
					Details: map[string]any{
						"before_companies": fd.Before.Companies,
						"before_jobs":      fd.Before.Jobs,
					},
					Timestamp: now,
				})
				continue
			}
			if drop := jobDrop(fd.Before.Jobs, fd.After.Jobs); a.cfg.JobDropPct > 0 && drop > a.cfg.JobDropPct {
				alerts = append(alerts, Alert{
					Type:     AlertJobDrop,
					Severity: "medium",
					FundID:   fd.FundID,
					Message: fmt.Sprintf("%s open jobs fell %.1f%% (%d -> %d), threshold %.1f%%",
						fd.FundID, drop*100, fd.Before.Jobs, fd.After.Jobs, a.cfg.JobDropPct*100),
					Details: map[string]any{
						"before_jobs": fd.Before.Jobs,
						"after_jobs":  fd.After.Jobs,
						"drop_pct":    drop,
					},
					Timestamp: now,
				})
			}
		}
	}

	for _, r := range runs {
		if a.cfg.MaxUnresolved > 0 && r.Unresolved > a.cfg.MaxUnresolved {
			alerts = append(alerts, Alert{
				Type:     AlertUnresolvedTargets,
				Severity: "low",
				FundID:   r.FundID,
				Message: fmt.Sprintf("%s job date scan left %d companies unresolved (max %d)",
					r.FundID, r.Unresolved, a.cfg.MaxUnresolved),
				Details: map[string]any{
					"unresolved":       r.Unresolved,
					"failed_pages":     r.FailedPages,
					"date_scan_failed": r.DateScanFailed,
				},
				Timestamp: now,
			})
		}
	}

	return alerts
}

// EvaluateSnapshot checks run history health.
func (a *Alerter) EvaluateSnapshot(snap *MetricsSnapshot) []Alert {
	finished := snap.RunsComplete + snap.RunsFailed
	if finished == 0 || a.cfg.FailureRateThreshold <= 0 || snap.FailRate <= a.cfg.FailureRateThreshold {
		return nil
	}
	return []Alert{{
		Type:     AlertRunFailureRate,
		Severity: "high",
		Message: fmt.Sprintf(
			"Refresh failure rate %.1f%% exceeds threshold %.1f%% (%d failed / %d finished in last %dh)",
			snap.FailRate*100, a.cfg.FailureRateThreshold*100,
			snap.RunsFailed, finished, snap.LookbackHours,
		),
		Details: map[string]any{
			"failure_rate": snap.FailRate,
			"threshold":    a.cfg.FailureRateThreshold,
			"failed_funds": snap.FailedFunds,
		},
		Timestamp: a.now().UTC(),
	}}
}

// jobDrop returns the fractional fall from before to after, zero when jobs
// held or grew.
func jobDrop(before, after int) float64 {
	if before <= 0 || after >= before {
		return 0
	}
	return float64(before-after) / float64(before)
}

// SendAlerts delivers alerts to the configured webhook URL.
// Returns the number of alerts successfully sent.
func (a *Alerter) SendAlerts(ctx context.Context, alerts []Alert) int {
	if a.cfg.WebhookURL == "" || len(alerts) == 0 {
		for _, alert := range alerts {
			zap.L().Warn("monitoring: alert raised",
				zap.String("type", string(alert.Type)),
				zap.String("fund", alert.FundID),
				zap.String("message", alert.Message),
			)
		}
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

// sendWebhook posts a single alert to the webhook URL.
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
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 400 {
		return eris.Errorf("monitoring: webhook returned status %d", resp.StatusCode)
	}
	return nil
}
