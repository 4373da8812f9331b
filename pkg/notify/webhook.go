// Package notify delivers raised alerts to external collaborators: an HTTP
// webhook endpoint or a Kafka topic.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/postop-risk-server/internal/domain"
)

// WebhookNotifier posts alerts as JSON to a configured endpoint. Calls run
// through a circuit breaker so a dead receiver cannot stall assessments.
type WebhookNotifier struct {
	url         string
	minSeverity domain.AlertSeverity
	client      *http.Client
	breaker     *gobreaker.CircuitBreaker
	log         *logrus.Logger
}

// NewWebhookNotifier builds a notifier from configuration. Alerts below
// minSeverity are dropped silently.
func NewWebhookNotifier(cfg domain.WebhookConfig, logger *logrus.Logger) (*WebhookNotifier, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("webhook URL is required")
	}

	minSeverity := domain.AlertSeverity(cfg.MinSeverity)
	if cfg.MinSeverity == "" {
		minSeverity = domain.SeverityWarning
	}
	if !minSeverity.IsValid() {
		return nil, fmt.Errorf("invalid minimum severity: %q", cfg.MinSeverity)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "alert-webhook",
		MaxRequests: 5,
		Interval:    30 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Webhook circuit breaker state changed")
		},
	})

	return &WebhookNotifier{
		url:         cfg.URL,
		minSeverity: minSeverity,
		client:      &http.Client{Timeout: timeout},
		breaker:     breaker,
		log:         logger,
	}, nil
}

// Notify posts the alert to the webhook endpoint.
func (n *WebhookNotifier) Notify(ctx context.Context, alert *domain.RiskAlert) error {
	if alert.Severity.Rank() < n.minSeverity.Rank() {
		return nil
	}

	payload, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("encoding alert: %w", err)
	}

	_, err = n.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := n.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer func() {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
		}()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, fmt.Errorf("webhook returned status %d", resp.StatusCode)
		}
		return nil, nil
	})

	if err != nil {
		if err == gobreaker.ErrOpenState {
			n.log.WithField("alert_id", alert.ID).Warn("Webhook unavailable, alert dropped (circuit breaker open)")
			return fmt.Errorf("webhook unavailable: %w", err)
		}
		n.log.WithFields(logrus.Fields{
			"alert_id": alert.ID,
			"error":    err,
		}).Error("Failed to deliver alert webhook")
		return fmt.Errorf("delivering alert webhook: %w", err)
	}

	n.log.WithFields(logrus.Fields{
		"alert_id": alert.ID,
		"severity": alert.Severity,
	}).Debug("Alert delivered to webhook")

	return nil
}

// Close is a no-op for the webhook notifier.
func (n *WebhookNotifier) Close() error {
	return nil
}
