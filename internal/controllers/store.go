package controllers

import (
	"sync"
	"time"

	"github.com/flavioribeiro/h264viewer/internal/entities"
	"github.com/flavioribeiro/h264viewer/internal/metrics"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AnalysisStore keeps analyses in memory until they are older than the
// configured TTL. Expired entries are evicted on access.
type AnalysisStore struct {
	l   *zap.SugaredLogger
	ttl time.Duration
	now func() time.Time

	mu       sync.Mutex
	analyses map[string]*entities.Analysis
}

func NewAnalysisStore(c *entities.Config, l *zap.SugaredLogger) *AnalysisStore {
	return &AnalysisStore{
		l:        l,
		ttl:      c.AnalysisTTL,
		now:      time.Now,
		analyses: map[string]*entities.Analysis{},
	}
}

// Put assigns a new ID to the analysis and stores it.
func (s *AnalysisStore) Put(a *entities.Analysis) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evict()

	a.ID = uuid.NewString()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = s.now()
	}
	s.analyses[a.ID] = a
	metrics.StoredAnalyses.Set(float64(len(s.analyses)))
	return a.ID
}

func (s *AnalysisStore) Get(id string) (*entities.Analysis, error) {
	if id == "" {
		return nil, entities.ErrMissingAnalysisID
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.evict()

	a, ok := s.analyses[id]
	if !ok {
		return nil, entities.ErrMissingAnalysis
	}
	return a, nil
}

func (s *AnalysisStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evict()
	return len(s.analyses)
}

// SetClock replaces the time source.
func (s *AnalysisStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *AnalysisStore) evict() {
	if s.ttl <= 0 {
		return
	}
	deadline := s.now().Add(-s.ttl)
	for id, a := range s.analyses {
		if a.CreatedAt.Before(deadline) {
			s.l.Debugw("evicting analysis",
				"id", id,
				"name", a.Name,
			)
			delete(s.analyses, id)
		}
	}
	metrics.StoredAnalyses.Set(float64(len(s.analyses)))
}
