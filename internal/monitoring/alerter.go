// Package monitoring raises webhook alerts when an ingestion run looks
// unhealthy.
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

	"github.com/bloodbuddy/donor-cli/internal/model"
)

// AlertType identifies the kind of alert.
type AlertType string

const (
	AlertFallbackRate AlertType = "fallback_rate"
	AlertRejectRate   AlertType = "reject_rate"
	AlertRunAborted   AlertType = "run_aborted"
)

// minRowsForRates keeps tiny runs from tripping rate alerts.
const minRowsForRates = 5

// Config holds alert thresholds. Zero thresholds disable the matching check.
type Config struct {
	WebhookURL            string  `yaml:"webhook_url" mapstructure:"webhook_url"`
	FallbackRateThreshold float64 `yaml:"fallback_rate_threshold" mapstructure:"fallback_rate_threshold"`
	RejectRateThreshold   float64 `yaml:"reject_rate_threshold" mapstructure:"reject_rate_threshold"`
	// PushgatewayURL receives ingest metrics after each run. Empty disables the push.
	PushgatewayURL string `yaml:"pushgateway_url" mapstructure:"pushgateway_url"`
}

// Alert represents a single alert to be sent.
type Alert struct {
	Type      AlertType      `json:"type"`
	Severity  string         `json:"severity"`
	Message   string         `json:"message"`
	RunID     string         `json:"run_id"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Alerter evaluates a RunReport against configured thresholds and sends
// alerts via webhook when thresholds are breached.
type Alerter struct {
	cfg    Config
	client *http.Client
}

// NewAlerter creates a new Alerter with the given config.
func NewAlerter(cfg Config) *Alerter {
	return &Alerter{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Evaluate checks the report against thresholds and returns any alerts.
// runErr is the error the run ended with, if any.
func (a *Alerter) Evaluate(report model.RunReport, runErr error) []Alert {
	var alerts []Alert
	now := time.Now().UTC()

	if runErr != nil {
		alerts = append(alerts, Alert{
			Type:     AlertRunAborted,
			Severity: "high",
			Message: fmt.Sprintf("Donor import aborted after %d of %d rows: %v",
				report.Processed(), report.Total, runErr),
			RunID: report.RunID,
			Details: map[string]any{
				"inserted": report.Inserted,
				"source":   report.Source,
			},
			Timestamp: now,
		})
	}

	// Most donors landing in the fallback box usually means the geocoder is down.
	located := report.Geocoded + report.Fallback
	if a.cfg.FallbackRateThreshold > 0 && located >= minRowsForRates {
		rate := float64(report.Fallback) / float64(located)
		if rate > a.cfg.FallbackRateThreshold {
			alerts = append(alerts, Alert{
				Type:     AlertFallbackRate,
				Severity: "medium",
				Message: fmt.Sprintf("%.1f%% of donors got fallback coordinates (threshold %.1f%%)",
					rate*100, a.cfg.FallbackRateThreshold*100),
				RunID: report.RunID,
				Details: map[string]any{
					"fallback":  report.Fallback,
					"geocoded":  report.Geocoded,
					"threshold": a.cfg.FallbackRateThreshold,
				},
				Timestamp: now,
			})
		}
	}

	// Duplicates are expected on re-runs, so only validation failures count.
	processed := report.Processed()
	invalid := report.InvalidName + report.InvalidMobile
	if a.cfg.RejectRateThreshold > 0 && processed >= minRowsForRates {
		rate := float64(invalid) / float64(processed)
		if rate > a.cfg.RejectRateThreshold {
			alerts = append(alerts, Alert{
				Type:     AlertRejectRate,
				Severity: "medium",
				Message: fmt.Sprintf("%.1f%% of rows failed validation (threshold %.1f%%); check the column mapping",
					rate*100, a.cfg.RejectRateThreshold*100),
				RunID: report.RunID,
				Details: map[string]any{
					"invalid_name":   report.InvalidName,
					"invalid_mobile": report.InvalidMobile,
					"processed":      processed,
				},
				Timestamp: now,
			})
		}
	}

	return alerts
}

// SendAlerts delivers alerts to the configured webhook URL.
// Returns the number of alerts successfully sent.
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
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 400 {
		return eris.Errorf("monitoring: webhook returned status %d", resp.StatusCode)
	}
	return nil
}
