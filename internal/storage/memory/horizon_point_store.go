package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"churn-horizon-lab/internal/domain"
	"churn-horizon-lab/internal/storage"
)

// HorizonPointStore is an in-memory implementation of storage.HorizonPointStore.
type HorizonPointStore struct {
	mu   sync.RWMutex
	data map[string]*domain.HorizonPoint // keyed by (run_id, segment_index, horizon)
}

// NewHorizonPointStore creates a new in-memory horizon point store.
func NewHorizonPointStore() *HorizonPointStore {
	return &HorizonPointStore{
		data: make(map[string]*domain.HorizonPoint),
	}
}

// pointKey generates a unique key for a horizon point.
func pointKey(p *domain.HorizonPoint) string {
	return fmt.Sprintf("%s|%d|%d", p.RunID, p.SegmentIndex, p.Horizon)
}

// InsertBulk adds multiple points. Fails entire batch on duplicate.
func (s *HorizonPointStore) InsertBulk(_ context.Context, points []*domain.HorizonPoint) error {
	if len(points) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Track keys in this batch to detect intra-batch duplicates
	batchKeys := make(map[string]struct{}, len(points))

	for _, p := range points {
		if p == nil || p.RunID == "" {
			return storage.ErrInvalidInput
		}
		key := pointKey(p)

		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	for _, p := range points {
		pointCopy := *p
		s.data[pointKey(p)] = &pointCopy
	}

	return nil
}

// GetByRunID retrieves all points for a run, ordered by segment_index ASC, horizon ASC.
func (s *HorizonPointStore) GetByRunID(_ context.Context, runID string) ([]*domain.HorizonPoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.HorizonPoint
	for _, p := range s.data {
		if p.RunID == runID {
			pointCopy := *p
			result = append(result, &pointCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].SegmentIndex != result[j].SegmentIndex {
			return result[i].SegmentIndex < result[j].SegmentIndex
		}
		return result[i].Horizon < result[j].Horizon
	})

	return result, nil
}

// GetByHorizon retrieves points for a horizon with created_at within [start, end] (inclusive).
func (s *HorizonPointStore) GetByHorizon(_ context.Context, h domain.Horizon, start, end int64) ([]*domain.HorizonPoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.HorizonPoint
	for _, p := range s.data {
		if p.Horizon == h && p.CreatedAt >= start && p.CreatedAt <= end {
			pointCopy := *p
			result = append(result, &pointCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt != result[j].CreatedAt {
			return result[i].CreatedAt < result[j].CreatedAt
		}
		if result[i].RunID != result[j].RunID {
			return result[i].RunID < result[j].RunID
		}
		return result[i].SegmentIndex < result[j].SegmentIndex
	})

	return result, nil
}

var _ storage.HorizonPointStore = (*HorizonPointStore)(nil)
