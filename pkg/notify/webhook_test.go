package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/postop-risk-server/internal/domain"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)
	return logger
}

func sampleAlert(severity domain.AlertSeverity) *domain.RiskAlert {
	return &domain.RiskAlert{
		ID:               "alert-1",
		PatientID:        "patient-7",
		Severity:         severity,
		Category:         domain.CategoryInfection,
		Message:          "Temperature 39.2C at or above critical threshold 39.0C",
		TriggeringFactor: domain.MetricTemperature,
		CurrentValue:     39.2,
		Threshold:        39.0,
		Timestamp:        time.Now(),
	}
}

func TestWebhookNotifierDelivers(t *testing.T) {
	var received atomic.Int32
	var gotAlert domain.RiskAlert

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotAlert))
		received.Add(1)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	n, err := NewWebhookNotifier(domain.WebhookConfig{
		URL:         srv.URL,
		Timeout:     2 * time.Second,
		MinSeverity: "warning",
	}, testLogger())
	require.NoError(t, err)

	require.NoError(t, n.Notify(context.Background(), sampleAlert(domain.SeverityCritical)))
	assert.Equal(t, int32(1), received.Load())
	assert.Equal(t, "alert-1", gotAlert.ID)
	assert.Equal(t, domain.SeverityCritical, gotAlert.Severity)
}

func TestWebhookNotifierFiltersBelowMinSeverity(t *testing.T) {
	var received atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		received.Add(1)
	}))
	defer srv.Close()

	n, err := NewWebhookNotifier(domain.WebhookConfig{
		URL:         srv.URL,
		MinSeverity: "urgent",
	}, testLogger())
	require.NoError(t, err)

	require.NoError(t, n.Notify(context.Background(), sampleAlert(domain.SeverityWarning)))
	assert.Zero(t, received.Load(), "warning alert should be filtered out")

	require.NoError(t, n.Notify(context.Background(), sampleAlert(domain.SeverityUrgent)))
	assert.Equal(t, int32(1), received.Load())
}

func TestWebhookNotifierErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	n, err := NewWebhookNotifier(domain.WebhookConfig{URL: srv.URL}, testLogger())
	require.NoError(t, err)

	assert.Error(t, n.Notify(context.Background(), sampleAlert(domain.SeverityCritical)))
}

func TestWebhookNotifierBreakerOpensAfterFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	n, err := NewWebhookNotifier(domain.WebhookConfig{URL: srv.URL}, testLogger())
	require.NoError(t, err)

	// Repeated failures trip the breaker; subsequent calls fail fast.
	for i := 0; i < 5; i++ {
		_ = n.Notify(context.Background(), sampleAlert(domain.SeverityCritical))
	}
	err = n.Notify(context.Background(), sampleAlert(domain.SeverityCritical))
	assert.Error(t, err)
}

func TestNewWebhookNotifierValidation(t *testing.T) {
	_, err := NewWebhookNotifier(domain.WebhookConfig{}, testLogger())
	assert.Error(t, err, "missing URL")

	_, err = NewWebhookNotifier(domain.WebhookConfig{URL: "http://x", MinSeverity: "loud"}, testLogger())
	assert.Error(t, err, "bad severity")
}
