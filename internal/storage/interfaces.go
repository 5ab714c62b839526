package storage

import (
	"context"

	"churn-horizon-lab/internal/domain"
)

// ForecastRunStore provides access to forecast_runs storage.
type ForecastRunStore interface {
	// Insert adds a new run. Returns ErrDuplicateKey if run_id exists.
	Insert(ctx context.Context, r *domain.ForecastRun) error

	// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, runID string) (*domain.ForecastRun, error)

	// GetAll retrieves all runs, ordered by created_at ASC, run_id ASC.
	GetAll(ctx context.Context) ([]*domain.ForecastRun, error)
}

// HorizonPointStore provides access to horizon_points storage.
type HorizonPointStore interface {
	// InsertBulk adds multiple points. Fails entire batch on duplicate
	// (run_id, segment_index, horizon).
	InsertBulk(ctx context.Context, points []*domain.HorizonPoint) error

	// GetByRunID retrieves all points for a run, ordered by segment_index ASC, horizon ASC.
	GetByRunID(ctx context.Context, runID string) ([]*domain.HorizonPoint, error)

	// GetByHorizon retrieves points for a horizon across runs within [start, end] created_at (inclusive),
	// ordered by created_at ASC, run_id ASC, segment_index ASC.
	GetByHorizon(ctx context.Context, h domain.Horizon, start, end int64) ([]*domain.HorizonPoint, error)
}
