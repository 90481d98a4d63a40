package stats

import (
	"sync"
	"time"

	"framewatch/internal/anomaly"
)

// Store keeps the latest published rolling baseline per metric for the
// query API. Bounded: when more metrics than limit appear, the stalest
// one is evicted.
type Store struct {
	mu        sync.RWMutex
	byMetric  map[string]anomaly.Baseline
	updatedAt map[string]time.Time
	limit     int
}

func NewStore(limit int) *Store {
	if limit <= 0 {
		limit = 1000
	}
	return &Store{
		byMetric:  make(map[string]anomaly.Baseline),
		updatedAt: make(map[string]time.Time),
		limit:     limit,
	}
}

func (s *Store) Update(baselines []anomaly.Baseline) {
	if len(baselines) == 0 {
		return
	}
	now := time.Now().UTC()
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range baselines {
		if b.MetricName == "" {
			continue
		}
		s.byMetric[b.MetricName] = b
		s.updatedAt[b.MetricName] = now
	}
	for len(s.byMetric) > s.limit {
		s.evictStalest()
	}
}

func (s *Store) Get(metric string) (anomaly.Baseline, time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.byMetric[metric]
	if !ok {
		return anomaly.Baseline{}, time.Time{}, false
	}
	return b, s.updatedAt[metric], true
}

func (s *Store) GetAll() map[string]anomaly.Baseline {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]anomaly.Baseline, len(s.byMetric))
	for name, b := range s.byMetric {
		out[name] = b
	}
	return out
}

func (s *Store) evictStalest() {
	var stalest string
	var oldest time.Time
	for metric, ts := range s.updatedAt {
		if stalest == "" || ts.Before(oldest) {
			stalest = metric
			oldest = ts
		}
	}
	if stalest != "" {
		delete(s.byMetric, stalest)
		delete(s.updatedAt, stalest)
	}
}

func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byMetric = make(map[string]anomaly.Baseline)
	s.updatedAt = make(map[string]time.Time)
}
