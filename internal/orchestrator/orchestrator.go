// Package orchestrator runs forecasts end to end.
// It coordinates: prediction → run id → run storage → analytics rows → metrics
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"churn-horizon-lab/internal/churn"
	"churn-horizon-lab/internal/domain"
	"churn-horizon-lab/internal/idhash"
	"churn-horizon-lab/internal/observability"
	"churn-horizon-lab/internal/storage"
)

// Orchestrator computes forecasts and persists runs.
// Safe for concurrent use when the stores are.
type Orchestrator struct {
	// Stores
	runStore   storage.ForecastRunStore
	pointStore storage.HorizonPointStore // optional

	predictor *churn.Predictor
	metrics   *observability.Metrics // optional
	backend   string
	now       func() time.Time

	logger  *log.Logger
	verbose bool
}

// Options for creating Orchestrator.
type Options struct {
	// Required store
	RunStore storage.ForecastRunStore

	// Optional analytics store; runs are not flattened when nil
	PointStore storage.HorizonPointStore

	// Predictor defaults to churn.DefaultCoefficients
	Predictor *churn.Predictor

	// Metrics are skipped when nil
	Metrics *observability.Metrics
	Backend string // database label for query metrics, default "memory"

	// Clock for created_at, default time.Now
	Clock func() time.Time

	Logger  *log.Logger
	Verbose bool
}

// New creates a new Orchestrator.
func New(opts Options) *Orchestrator {
	o := &Orchestrator{
		runStore:   opts.RunStore,
		pointStore: opts.PointStore,
		predictor:  opts.Predictor,
		metrics:    opts.Metrics,
		backend:    opts.Backend,
		now:        opts.Clock,
		logger:     opts.Logger,
		verbose:    opts.Verbose,
	}
	if o.predictor == nil {
		o.predictor = churn.NewPredictor(churn.DefaultCoefficients)
	}
	if o.backend == "" {
		o.backend = "memory"
	}
	if o.now == nil {
		o.now = time.Now
	}
	if o.logger == nil {
		o.logger = log.New(os.Stderr, "[orchestrator] ", log.LstdFlags)
	}
	return o
}

// RunRequest describes a forecast run to compute and store.
type RunRequest struct {
	Label    string
	Scenario domain.Scenario
	Segments []domain.Segment
}

// RunResult contains results from orchestrator execution.
type RunResult struct {
	Run          *domain.ForecastRun
	Created      bool // false when an identical run was already stored
	PointsStored int
}

// Horizons predicts churn per horizon.
func (o *Orchestrator) Horizons(s domain.Scenario) domain.HorizonForecast {
	start := time.Now()
	f := o.predictor.PredictByHorizon(s)
	o.recordForecast(observability.KindHorizon, start)
	return f
}

// Segments predicts scaled churn uplift per segment.
func (o *Orchestrator) Segments(s domain.Scenario, segments []domain.Segment) []domain.SegmentResult {
	start := time.Now()
	results := o.predictor.PredictBySegment(s, segments)
	o.recordForecast(observability.KindSegment, start)
	if o.metrics != nil {
		o.metrics.RecordSegments(len(segments))
	}
	return results
}

// Sweep predicts churn per horizon across price changes.
func (o *Orchestrator) Sweep(baselineChurn float64, priceChanges []float64) []domain.SweepPoint {
	start := time.Now()
	points := o.predictor.Sweep(baselineChurn, priceChanges)
	o.recordForecast(observability.KindSweep, start)
	if o.metrics != nil {
		o.metrics.RecordSweepPoints(len(points))
	}
	return points
}

// Run computes a forecast run and stores it.
// Phases:
//  1. Predict horizons and segments
//  2. Derive the run id; return the stored run if it already exists,
//     restoring its horizon points if an earlier attempt lost them
//  3. Insert the run
//  4. Insert flattened horizon points (when a point store is configured)
func (o *Orchestrator) Run(ctx context.Context, req RunRequest) (*RunResult, error) {
	// Phase 1: Prediction
	run := &domain.ForecastRun{
		Label:          req.Label,
		Scenario:       req.Scenario,
		Segments:       req.Segments,
		Horizons:       o.Horizons(req.Scenario),
		SegmentResults: o.Segments(req.Scenario, req.Segments),
		CreatedAt:      o.now().UnixMilli(),
	}
	if run.Segments == nil {
		run.Segments = []domain.Segment{}
	}

	// Phase 2: Identity
	run.RunID = idhash.ComputeRunID(req.Label, req.Scenario, req.Segments)
	o.log("Run %s: price %.2f%%, baseline %.4f, %d segments",
		run.RunID, req.Scenario.PriceChangePct, req.Scenario.BaselineChurn, len(req.Segments))

	existing, err := o.getRun(ctx, run.RunID)
	switch {
	case err == nil:
		o.log("  Run %s already stored", run.RunID)
		stored, err := o.restorePoints(ctx, existing)
		if err != nil {
			o.recordRun("error")
			return nil, fmt.Errorf("phase 2 (restore horizon points) failed: %w", err)
		}
		o.recordRun("existing")
		return &RunResult{Run: existing, PointsStored: stored}, nil
	case !errors.Is(err, storage.ErrNotFound):
		o.recordRun("error")
		return nil, fmt.Errorf("phase 2 (lookup run) failed: %w", err)
	}

	// Phase 3: Run storage
	start := time.Now()
	err = o.runStore.Insert(ctx, run)
	o.recordQuery("insert_run", start, err)
	if errors.Is(err, storage.ErrDuplicateKey) {
		// Lost a race with an identical request
		existing, getErr := o.getRun(ctx, run.RunID)
		if getErr != nil {
			o.recordRun("error")
			return nil, fmt.Errorf("phase 3 (reload run) failed: %w", getErr)
		}
		o.recordRun("existing")
		return &RunResult{Run: existing}, nil
	}
	if err != nil {
		o.recordRun("error")
		return nil, fmt.Errorf("phase 3 (store run) failed: %w", err)
	}

	result := &RunResult{Run: run, Created: true}

	// Phase 4: Analytics rows
	if o.pointStore != nil {
		n, err := o.insertPoints(ctx, run)
		if err != nil {
			o.recordRun("error")
			return nil, fmt.Errorf("phase 4 (store horizon points) failed: %w", err)
		}
		result.PointsStored = n
		o.log("  Stored %d horizon points", n)
	}

	o.recordRun("created")
	o.log("Run %s stored", run.RunID)
	return result, nil
}

// GetRun retrieves a stored run. Returns storage.ErrNotFound if absent.
func (o *Orchestrator) GetRun(ctx context.Context, runID string) (*domain.ForecastRun, error) {
	return o.getRun(ctx, runID)
}

// ListRuns returns stored runs ordered by created_at, run_id.
func (o *Orchestrator) ListRuns(ctx context.Context) ([]*domain.ForecastRun, error) {
	start := time.Now()
	runs, err := o.runStore.GetAll(ctx)
	o.recordQuery("list_runs", start, err)
	return runs, err
}

// Points returns the analytics rows stored for a run.
// Returns an empty slice when no point store is configured.
func (o *Orchestrator) Points(ctx context.Context, runID string) ([]*domain.HorizonPoint, error) {
	if o.pointStore == nil {
		return []*domain.HorizonPoint{}, nil
	}
	start := time.Now()
	points, err := o.pointStore.GetByRunID(ctx, runID)
	o.recordQuery("get_points", start, err)
	return points, err
}

func (o *Orchestrator) insertPoints(ctx context.Context, run *domain.ForecastRun) (int, error) {
	points := run.HorizonPoints()
	start := time.Now()
	err := o.pointStore.InsertBulk(ctx, points)
	o.recordQuery("insert_points", start, err)
	if err != nil {
		return 0, err
	}
	return len(points), nil
}

// restorePoints writes a stored run's horizon points when none are stored,
// as after a failed phase 4. A concurrent restore winning the insert is not an error.
func (o *Orchestrator) restorePoints(ctx context.Context, run *domain.ForecastRun) (int, error) {
	if o.pointStore == nil {
		return 0, nil
	}
	points, err := o.Points(ctx, run.RunID)
	if err != nil {
		return 0, err
	}
	if len(points) > 0 {
		return 0, nil
	}

	n, err := o.insertPoints(ctx, run)
	if errors.Is(err, storage.ErrDuplicateKey) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	o.log("  Restored %d horizon points", n)
	return n, nil
}

func (o *Orchestrator) getRun(ctx context.Context, runID string) (*domain.ForecastRun, error) {
	start := time.Now()
	run, err := o.runStore.GetByID(ctx, runID)
	if errors.Is(err, storage.ErrNotFound) {
		o.recordQuery("get_run", start, nil)
	} else {
		o.recordQuery("get_run", start, err)
	}
	return run, err
}

func (o *Orchestrator) recordForecast(kind string, start time.Time) {
	if o.metrics != nil {
		o.metrics.RecordForecast(kind, time.Since(start))
	}
}

func (o *Orchestrator) recordRun(status string) {
	if o.metrics != nil {
		o.metrics.RecordRunStored(status)
	}
}

func (o *Orchestrator) recordQuery(op string, start time.Time, err error) {
	if o.metrics != nil {
		o.metrics.RecordDBQuery(o.backend, op, time.Since(start), err)
	}
}

func (o *Orchestrator) log(format string, args ...interface{}) {
	if o.verbose {
		o.logger.Printf(format, args...)
	}
}
