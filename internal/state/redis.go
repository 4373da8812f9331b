package state

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/postop-risk-server/internal/domain"
)

const (
	priorKeyPrefix   = "postop:prior:"
	historyKeyPrefix = "postop:history:"
	countKeyPrefix   = "postop:count:"
)

// RedisStore is a StateStore backed by Redis, letting multiple server
// instances share per-patient smoothing state and trend history. Priors
// are stored as JSON strings, history as a trimmed list, counts as plain
// integer keys.
type RedisStore struct {
	client *redis.Client
	logger *logrus.Logger
	ttl    time.Duration
}

// NewRedisStore connects to Redis and verifies the connection. A zero ttl
// keeps state indefinitely.
func NewRedisStore(ctx context.Context, logger *logrus.Logger, addr, password string, db int, ttl time.Duration) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to redis at %s: %w", addr, err)
	}

	logger.WithFields(logrus.Fields{
		"addr": addr,
		"db":   db,
	}).Info("Connected to Redis state store")

	return &RedisStore{client: client, logger: logger, ttl: ttl}, nil
}

func (s *RedisStore) priorKey(patientID string, category domain.RiskCategory) string {
	return priorKeyPrefix + patientID + ":" + string(category)
}

func (s *RedisStore) historyKey(patientID string) string {
	return historyKeyPrefix + patientID
}

func (s *RedisStore) countKey(patientID string) string {
	return countKeyPrefix + patientID
}

func (s *RedisStore) Prior(ctx context.Context, patientID string, category domain.RiskCategory) (domain.BayesianPrior, bool, error) {
	raw, err := s.client.Get(ctx, s.priorKey(patientID, category)).Result()
	if err == redis.Nil {
		return domain.BayesianPrior{}, false, nil
	}
	if err != nil {
		return domain.BayesianPrior{}, false, fmt.Errorf("loading prior: %w", err)
	}

	var prior domain.BayesianPrior
	if err := json.Unmarshal([]byte(raw), &prior); err != nil {
		return domain.BayesianPrior{}, false, fmt.Errorf("decoding prior: %w", err)
	}
	return prior, true, nil
}

// RecordAssessment commits the priors, the trend point, and the counter
// increment in one MULTI/EXEC transaction. All marshalling happens before
// the pipeline is queued, so an encoding failure writes nothing.
func (s *RedisStore) RecordAssessment(ctx context.Context, patientID string, priors map[domain.RiskCategory]domain.BayesianPrior, point domain.RiskTrendPoint) error {
	encoded := make(map[domain.RiskCategory][]byte, len(priors))
	for cat, prior := range priors {
		data, err := json.Marshal(prior)
		if err != nil {
			return fmt.Errorf("encoding prior for %s: %w", cat, err)
		}
		encoded[cat] = data
	}
	pointData, err := json.Marshal(point)
	if err != nil {
		return fmt.Errorf("encoding trend point: %w", err)
	}

	pipe := s.client.TxPipeline()
	for cat, data := range encoded {
		pipe.Set(ctx, s.priorKey(patientID, cat), data, s.ttl)
	}
	pipe.RPush(ctx, s.historyKey(patientID), pointData)
	pipe.LTrim(ctx, s.historyKey(patientID), int64(-domain.MaxTrendHistory), -1)
	pipe.Incr(ctx, s.countKey(patientID))
	if s.ttl > 0 {
		pipe.Expire(ctx, s.historyKey(patientID), s.ttl)
		pipe.Expire(ctx, s.countKey(patientID), s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("recording assessment: %w", err)
	}
	return nil
}

func (s *RedisStore) TrendHistory(ctx context.Context, patientID string) ([]domain.RiskTrendPoint, error) {
	raw, err := s.client.LRange(ctx, s.historyKey(patientID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("loading trend history: %w", err)
	}

	points := make([]domain.RiskTrendPoint, 0, len(raw))
	for _, item := range raw {
		var p domain.RiskTrendPoint
		if err := json.Unmarshal([]byte(item), &p); err != nil {
			return nil, fmt.Errorf("decoding trend point: %w", err)
		}
		points = append(points, p)
	}
	return points, nil
}

func (s *RedisStore) AssessmentCount(ctx context.Context, patientID string) (int, error) {
	n, err := s.client.Get(ctx, s.countKey(patientID)).Int()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("loading assessment count: %w", err)
	}
	return n, nil
}

func (s *RedisStore) ResetPriors(ctx context.Context, patientID string) error {
	keys := make([]string, 0, len(domain.AllCategories))
	for _, cat := range domain.AllCategories {
		keys = append(keys, s.priorKey(patientID, cat))
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("resetting priors: %w", err)
	}
	return nil
}

func (s *RedisStore) ClearPatient(ctx context.Context, patientID string) error {
	keys := make([]string, 0, len(domain.AllCategories)+2)
	for _, cat := range domain.AllCategories {
		keys = append(keys, s.priorKey(patientID, cat))
	}
	keys = append(keys, s.historyKey(patientID), s.countKey(patientID))
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("clearing patient state: %w", err)
	}
	return nil
}

// Close releases the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
