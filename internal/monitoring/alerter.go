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

	"github.com/sells-group/clinic-ingest/internal/config"
	"github.com/sells-group/clinic-ingest/internal/model"
)

// AlertType identifies the kind of alert.
type AlertType string

const (
	AlertRecordFailureRate AlertType = "record_failure_rate"
	AlertRunFailed         AlertType = "import_run_failed"
	AlertSlugExhaustion    AlertType = "slug_exhaustion"
)

// minRecordsForRate keeps a handful of bad rows from paging anyone.
const minRecordsForRate = 10

// Alert is one threshold breach.
type Alert struct {
	Type      AlertType      `json:"type"`
	Severity  string         `json:"severity"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Alerter evaluates a HealthSnapshot and posts breaches to a webhook.
type Alerter struct {
	cfg    config.MetricsConfig
	client *http.Client
}

// NewAlerter creates an Alerter for the given metrics config.
func NewAlerter(cfg config.MetricsConfig) *Alerter {
	return &Alerter{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Evaluate returns the alerts the snapshot triggers.
func (a *Alerter) Evaluate(snap *HealthSnapshot) []Alert {
	var alerts []Alert
	now := time.Now().UTC()

	if a.cfg.FailureRateThreshold > 0 && snap.Processed >= minRecordsForRate &&
		snap.RecordFailRate > a.cfg.FailureRateThreshold {
		alerts = append(alerts, Alert{
			Type:     AlertRecordFailureRate,
			Severity: "high",
			Message: fmt.Sprintf(
				"Record failure rate %.1f%% exceeds threshold %.1f%% (%d failed / %d processed in last %dh)",
				snap.RecordFailRate*100, a.cfg.FailureRateThreshold*100,
				snap.Failed, snap.Processed, snap.LookbackHours,
			),
			Details: map[string]any{
				"failure_rate": snap.RecordFailRate,
				"threshold":    a.cfg.FailureRateThreshold,
				"failed":       snap.Failed,
				"processed":    snap.Processed,
			},
			Timestamp: now,
		})
	}

	if snap.FailedRuns > 0 {
		alerts = append(alerts, Alert{
			Type:     AlertRunFailed,
			Severity: "medium",
			Message: fmt.Sprintf("%d of %d import run(s) failed in last %dh",
				snap.FailedRuns, snap.Runs, snap.LookbackHours),
			Details: map[string]any{
				"failed_runs": snap.FailedRuns,
				"runs":        snap.Runs,
			},
			Timestamp: now,
		})
	}

	if n := snap.ErrorCounts[model.ErrorSlugExhausted]; n > 0 {
		alerts = append(alerts, Alert{
			Type:      AlertSlugExhaustion,
			Severity:  "medium",
			Message:   fmt.Sprintf("%d record(s) ran out of slug candidates in last %dh", n, snap.LookbackHours),
			Details:   map[string]any{"count": n},
			Timestamp: now,
		})
	}

	return alerts
}

// SendAlerts posts each alert to the webhook and returns how many landed.
func (a *Alerter) SendAlerts(ctx context.Context, alerts []Alert) int {
	if a.cfg.AlertWebhook == "" || len(alerts) == 0 {
		return 0
	}

	sent := 0
	for _, alert := range alerts {
		if err := a.post(ctx, alert); err != nil {
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

func (a *Alerter) post(ctx context.Context, alert Alert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return eris.Wrap(err, "monitoring: marshal alert")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.AlertWebhook, bytes.NewReader(payload))
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
