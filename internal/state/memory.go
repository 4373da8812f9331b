// Package state provides StateStore implementations: a process-local
// in-memory store and a Redis-backed store for multi-instance deployments.
package state

import (
	"context"
	"sync"

	"github.com/postop-risk-server/internal/domain"
)

type priorKey struct {
	patientID string
	category  domain.RiskCategory
}

// MemoryStore is the default single-process StateStore. All state is lost
// on restart; deployments that need durable smoothing state use RedisStore.
type MemoryStore struct {
	mu      sync.RWMutex
	priors  map[priorKey]domain.BayesianPrior
	history map[string][]domain.RiskTrendPoint
	counts  map[string]int
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		priors:  make(map[priorKey]domain.BayesianPrior),
		history: make(map[string][]domain.RiskTrendPoint),
		counts:  make(map[string]int),
	}
}

func (s *MemoryStore) Prior(_ context.Context, patientID string, category domain.RiskCategory) (domain.BayesianPrior, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	prior, ok := s.priors[priorKey{patientID, category}]
	return prior, ok, nil
}

// RecordAssessment applies every write under a single lock, so readers
// never observe priors from one assessment alongside the history of
// another.
func (s *MemoryStore) RecordAssessment(_ context.Context, patientID string, priors map[domain.RiskCategory]domain.BayesianPrior, point domain.RiskTrendPoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for cat, prior := range priors {
		s.priors[priorKey{patientID, cat}] = prior
	}

	h := append(s.history[patientID], point)
	if len(h) > domain.MaxTrendHistory {
		h = h[len(h)-domain.MaxTrendHistory:]
	}
	s.history[patientID] = h
	s.counts[patientID]++
	return nil
}

func (s *MemoryStore) TrendHistory(_ context.Context, patientID string) ([]domain.RiskTrendPoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	h := s.history[patientID]
	out := make([]domain.RiskTrendPoint, len(h))
	copy(out, h)
	return out, nil
}

func (s *MemoryStore) AssessmentCount(_ context.Context, patientID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.counts[patientID], nil
}

func (s *MemoryStore) ResetPriors(_ context.Context, patientID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, cat := range domain.AllCategories {
		delete(s.priors, priorKey{patientID, cat})
	}
	return nil
}

func (s *MemoryStore) ClearPatient(_ context.Context, patientID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, cat := range domain.AllCategories {
		delete(s.priors, priorKey{patientID, cat})
	}
	delete(s.history, patientID)
	delete(s.counts, patientID)
	return nil
}
