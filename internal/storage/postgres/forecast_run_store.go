package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"churn-horizon-lab/internal/domain"
	"churn-horizon-lab/internal/storage"
)

// ForecastRunStore implements storage.ForecastRunStore using PostgreSQL.
// Segments, horizons and segment results are stored as JSONB documents.
type ForecastRunStore struct {
	pool *Pool
}

// NewForecastRunStore creates a new ForecastRunStore.
func NewForecastRunStore(pool *Pool) *ForecastRunStore {
	return &ForecastRunStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ForecastRunStore = (*ForecastRunStore)(nil)

// segmentResultDoc is the JSONB form of a segment result.
// Unlike the API form it keeps the multiplier.
type segmentResultDoc struct {
	Name       string             `json:"name"`
	Size       domain.Size        `json:"size"`
	Multiplier float64            `json:"multiplier"`
	Uplifts    map[string]float64 `json:"uplifts"` // keyed by horizon key
}

// Insert adds a new run. Returns ErrDuplicateKey if run_id exists.
func (s *ForecastRunStore) Insert(ctx context.Context, r *domain.ForecastRun) error {
	if r == nil || r.RunID == "" {
		return storage.ErrInvalidInput
	}

	segments, horizons, results, err := encodeRunDocs(r)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO forecast_runs (
			run_id, label, price_change_pct, baseline_churn,
			segments, horizons, segment_results, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err = s.pool.Exec(ctx, query,
		r.RunID, r.Label, r.Scenario.PriceChangePct, r.Scenario.BaselineChurn,
		segments, horizons, results, r.CreatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert forecast run: %w", err)
	}
	return nil
}

// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
func (s *ForecastRunStore) GetByID(ctx context.Context, runID string) (*domain.ForecastRun, error) {
	query := `
		SELECT run_id, label, price_change_pct, baseline_churn,
			segments, horizons, segment_results, created_at
		FROM forecast_runs
		WHERE run_id = $1
	`

	r, err := scanForecastRun(s.pool.QueryRow(ctx, query, runID))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get forecast run: %w", err)
	}
	return r, nil
}

// GetAll retrieves all runs, ordered by created_at ASC, run_id ASC.
func (s *ForecastRunStore) GetAll(ctx context.Context) ([]*domain.ForecastRun, error) {
	query := `
		SELECT run_id, label, price_change_pct, baseline_churn,
			segments, horizons, segment_results, created_at
		FROM forecast_runs
		ORDER BY created_at ASC, run_id ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query forecast runs: %w", err)
	}
	defer rows.Close()

	result := []*domain.ForecastRun{}
	for rows.Next() {
		r, err := scanForecastRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan forecast run: %w", err)
		}
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate forecast runs: %w", err)
	}
	return result, nil
}

func scanForecastRun(row pgx.Row) (*domain.ForecastRun, error) {
	var (
		r                                 domain.ForecastRun
		segmentsDoc, horizonsDoc, results []byte
	)
	err := row.Scan(
		&r.RunID, &r.Label, &r.Scenario.PriceChangePct, &r.Scenario.BaselineChurn,
		&segmentsDoc, &horizonsDoc, &results, &r.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := decodeRunDocs(&r, segmentsDoc, horizonsDoc, results); err != nil {
		return nil, err
	}
	return &r, nil
}

func encodeRunDocs(r *domain.ForecastRun) (segments, horizons, results []byte, err error) {
	segs := r.Segments
	if segs == nil {
		segs = []domain.Segment{}
	}
	if segments, err = json.Marshal(segs); err != nil {
		return nil, nil, nil, fmt.Errorf("encode segments: %w", err)
	}
	if horizons, err = json.Marshal(r.Horizons); err != nil {
		return nil, nil, nil, fmt.Errorf("encode horizons: %w", err)
	}

	docs := make([]segmentResultDoc, 0, len(r.SegmentResults))
	for _, sr := range r.SegmentResults {
		doc := segmentResultDoc{
			Name:       sr.Name,
			Size:       sr.Size,
			Multiplier: sr.Multiplier,
			Uplifts:    make(map[string]float64, len(sr.Uplifts)),
		}
		for _, u := range sr.Uplifts {
			doc.Uplifts[u.Horizon.Key()] = u.UpliftPP
		}
		docs = append(docs, doc)
	}
	if results, err = json.Marshal(docs); err != nil {
		return nil, nil, nil, fmt.Errorf("encode segment results: %w", err)
	}
	return segments, horizons, results, nil
}

func decodeRunDocs(r *domain.ForecastRun, segments, horizons, results []byte) error {
	if err := json.Unmarshal(segments, &r.Segments); err != nil {
		return fmt.Errorf("decode segments: %w", err)
	}
	if err := json.Unmarshal(horizons, &r.Horizons); err != nil {
		return fmt.Errorf("decode horizons: %w", err)
	}

	var docs []segmentResultDoc
	if err := json.Unmarshal(results, &docs); err != nil {
		return fmt.Errorf("decode segment results: %w", err)
	}
	r.SegmentResults = make([]domain.SegmentResult, 0, len(docs))
	for _, doc := range docs {
		sr := domain.SegmentResult{
			Name:       doc.Name,
			Size:       doc.Size,
			Multiplier: doc.Multiplier,
		}
		for _, h := range domain.AllHorizons {
			if v, ok := doc.Uplifts[h.Key()]; ok {
				sr.Uplifts = append(sr.Uplifts, domain.SegmentUplift{Horizon: h, UpliftPP: v})
			}
		}
		r.SegmentResults = append(r.SegmentResults, sr)
	}
	return nil
}
