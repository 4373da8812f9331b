package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"github.com/postop-risk-server/internal/domain"
)

// KafkaNotifier publishes alerts to a Kafka topic, keyed by patient ID so
// all alerts for a patient land on the same partition in order.
type KafkaNotifier struct {
	writer *kafka.Writer
	log    *logrus.Logger
}

// NewKafkaNotifier builds a publisher from configuration.
func NewKafkaNotifier(cfg domain.KafkaConfig, logger *logrus.Logger) (*KafkaNotifier, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("at least one Kafka broker is required")
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("kafka topic is required")
	}

	writeTimeout := cfg.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = 10 * time.Second
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		WriteTimeout: writeTimeout,
		RequiredAcks: kafka.RequireOne,
	}

	logger.WithFields(logrus.Fields{
		"brokers": cfg.Brokers,
		"topic":   cfg.Topic,
	}).Info("Kafka alert publisher initialized")

	return &KafkaNotifier{
		writer: writer,
		log:    logger,
	}, nil
}

// Notify publishes the alert to the configured topic.
func (n *KafkaNotifier) Notify(ctx context.Context, alert *domain.RiskAlert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("encoding alert: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(alert.PatientID),
		Value: payload,
		Time:  alert.Timestamp,
	}

	if err := n.writer.WriteMessages(ctx, msg); err != nil {
		n.log.WithFields(logrus.Fields{
			"alert_id": alert.ID,
			"error":    err,
		}).Error("Failed to publish alert to Kafka")
		return fmt.Errorf("publishing alert: %w", err)
	}

	n.log.WithFields(logrus.Fields{
		"alert_id": alert.ID,
		"severity": alert.Severity,
	}).Debug("Alert published to Kafka")

	return nil
}

// Close flushes and closes the underlying writer.
func (n *KafkaNotifier) Close() error {
	return n.writer.Close()
}
