package clickhouse

import (
	"context"
	"fmt"

	"churn-horizon-lab/internal/domain"
	"churn-horizon-lab/internal/storage"
)

// HorizonPointStore implements storage.HorizonPointStore using ClickHouse.
// MergeTree does not enforce uniqueness, so duplicates are checked before insert.
type HorizonPointStore struct {
	conn *Conn
}

// NewHorizonPointStore creates a new HorizonPointStore.
func NewHorizonPointStore(conn *Conn) *HorizonPointStore {
	return &HorizonPointStore{conn: conn}
}

// Compile-time interface check.
var _ storage.HorizonPointStore = (*HorizonPointStore)(nil)

type pointKey struct {
	runID        string
	segmentIndex int32
	horizon      domain.Horizon
}

// InsertBulk adds multiple points. Fails entire batch on duplicate (run_id, segment_index, horizon).
func (s *HorizonPointStore) InsertBulk(ctx context.Context, points []*domain.HorizonPoint) error {
	if len(points) == 0 {
		return nil
	}

	seen := make(map[pointKey]struct{}, len(points))
	runIDs := make(map[string]struct{})
	for _, p := range points {
		if p == nil || p.RunID == "" {
			return storage.ErrInvalidInput
		}
		k := pointKey{p.RunID, int32(p.SegmentIndex), p.Horizon}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
		runIDs[p.RunID] = struct{}{}
	}

	// One lookup per run covers every key in the batch
	for runID := range runIDs {
		existing, err := s.existingKeys(ctx, runID)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		for k := range existing {
			if _, clash := seen[k]; clash {
				return storage.ErrDuplicateKey
			}
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO horizon_points (
			run_id, segment_index, segment_name, horizon, horizon_key,
			churn_rate, churn_uplift_pp, multiplier, created_at
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, p := range points {
		err = batch.Append(
			p.RunID, int32(p.SegmentIndex), p.SegmentName, uint8(p.Horizon), p.Horizon.Key(),
			p.ChurnRate, p.ChurnUpliftPP, p.Multiplier, p.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByRunID retrieves all points for a run, ordered by segment_index ASC, horizon ASC.
func (s *HorizonPointStore) GetByRunID(ctx context.Context, runID string) ([]*domain.HorizonPoint, error) {
	query := `
		SELECT run_id, segment_index, segment_name, horizon, churn_rate, churn_uplift_pp, multiplier, created_at
		FROM horizon_points
		WHERE run_id = ?
		ORDER BY segment_index ASC, horizon ASC
	`

	rows, err := s.conn.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("query by run id: %w", err)
	}
	defer rows.Close()

	return scanHorizonPoints(rows)
}

// GetByHorizon retrieves points for a horizon with created_at within [start, end] (inclusive).
func (s *HorizonPointStore) GetByHorizon(ctx context.Context, h domain.Horizon, start, end int64) ([]*domain.HorizonPoint, error) {
	query := `
		SELECT run_id, segment_index, segment_name, horizon, churn_rate, churn_uplift_pp, multiplier, created_at
		FROM horizon_points
		WHERE horizon = ? AND created_at >= ? AND created_at <= ?
		ORDER BY created_at ASC, run_id ASC, segment_index ASC
	`

	rows, err := s.conn.Query(ctx, query, uint8(h), start, end)
	if err != nil {
		return nil, fmt.Errorf("query by horizon: %w", err)
	}
	defer rows.Close()

	return scanHorizonPoints(rows)
}

// existingKeys returns the stored keys for a run.
func (s *HorizonPointStore) existingKeys(ctx context.Context, runID string) (map[pointKey]struct{}, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT segment_index, horizon FROM horizon_points WHERE run_id = ?
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	keys := make(map[pointKey]struct{})
	for rows.Next() {
		var (
			segmentIndex int32
			horizon      uint8
		)
		if err := rows.Scan(&segmentIndex, &horizon); err != nil {
			return nil, err
		}
		keys[pointKey{runID, segmentIndex, domain.Horizon(horizon)}] = struct{}{}
	}
	return keys, rows.Err()
}

// scanHorizonPoints scans multiple rows.
func scanHorizonPoints(rows chRows) ([]*domain.HorizonPoint, error) {
	var points []*domain.HorizonPoint

	for rows.Next() {
		var (
			p            domain.HorizonPoint
			segmentIndex int32
			horizon      uint8
		)

		err := rows.Scan(
			&p.RunID, &segmentIndex, &p.SegmentName, &horizon,
			&p.ChurnRate, &p.ChurnUpliftPP, &p.Multiplier, &p.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan horizon point row: %w", err)
		}

		p.SegmentIndex = int(segmentIndex)
		p.Horizon = domain.Horizon(horizon)
		points = append(points, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate horizon point rows: %w", err)
	}

	return points, nil
}
