package database

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"github.com/postop-risk-server/internal/domain"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)
	return logger
}

func TestNewConnectionRejectsBadConfig(t *testing.T) {
	cfg := domain.DatabaseConfig{
		Host:            "localhost",
		Port:            5432,
		Database:        "postop_risk",
		Username:        "postgres",
		SSLMode:         "bogus",
		MaxOpenConns:    5,
		MaxIdleConns:    1,
		ConnMaxLifetime: time.Hour,
	}

	db, err := NewConnection(context.Background(), cfg, testLogger())
	assert.Error(t, err)
	assert.Nil(t, db)
}

func TestNewConnectionUnreachableHost(t *testing.T) {
	cfg := domain.DatabaseConfig{
		Host:            "127.0.0.1",
		Port:            1, // nothing listens here
		Database:        "postop_risk",
		Username:        "postgres",
		SSLMode:         "disable",
		MaxOpenConns:    5,
		MaxIdleConns:    1,
		ConnMaxLifetime: time.Hour,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	db, err := NewConnection(ctx, cfg, testLogger())
	assert.Error(t, err)
	assert.Nil(t, db)
}
