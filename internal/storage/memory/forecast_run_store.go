package memory

import (
	"context"
	"sort"
	"sync"

	"churn-horizon-lab/internal/domain"
	"churn-horizon-lab/internal/storage"
)

// ForecastRunStore is an in-memory implementation of storage.ForecastRunStore.
type ForecastRunStore struct {
	mu   sync.RWMutex
	data map[string]*domain.ForecastRun // keyed by run_id
}

// NewForecastRunStore creates a new in-memory forecast run store.
func NewForecastRunStore() *ForecastRunStore {
	return &ForecastRunStore{
		data: make(map[string]*domain.ForecastRun),
	}
}

// Insert adds a new run. Returns ErrDuplicateKey if run_id exists.
func (s *ForecastRunStore) Insert(_ context.Context, r *domain.ForecastRun) error {
	if r == nil || r.RunID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[r.RunID]; exists {
		return storage.ErrDuplicateKey
	}

	s.data[r.RunID] = cloneRun(r)
	return nil
}

// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
func (s *ForecastRunStore) GetByID(_ context.Context, runID string) (*domain.ForecastRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, exists := s.data[runID]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return cloneRun(r), nil
}

// GetAll retrieves all runs, ordered by created_at ASC, run_id ASC.
func (s *ForecastRunStore) GetAll(_ context.Context) ([]*domain.ForecastRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.ForecastRun, 0, len(s.data))
	for _, r := range s.data {
		result = append(result, cloneRun(r))
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt != result[j].CreatedAt {
			return result[i].CreatedAt < result[j].CreatedAt
		}
		return result[i].RunID < result[j].RunID
	})

	return result, nil
}

// cloneRun copies a run including its slices so callers cannot mutate stored state.
func cloneRun(r *domain.ForecastRun) *domain.ForecastRun {
	c := *r
	c.Segments = append([]domain.Segment(nil), r.Segments...)
	c.Horizons = append(domain.HorizonForecast(nil), r.Horizons...)
	if r.SegmentResults != nil {
		c.SegmentResults = make([]domain.SegmentResult, len(r.SegmentResults))
		for i, sr := range r.SegmentResults {
			sr.Uplifts = append([]domain.SegmentUplift(nil), sr.Uplifts...)
			c.SegmentResults[i] = sr
		}
	}
	return &c
}

var _ storage.ForecastRunStore = (*ForecastRunStore)(nil)
