package reporting

import (
	"context"
	"fmt"
	"time"

	"github.com/montanaflynn/stats"

	"churn-horizon-lab/internal/domain"
	"churn-horizon-lab/internal/idhash"
	"churn-horizon-lab/internal/storage"
)

// Generator produces reports from stored forecast runs.
type Generator struct {
	runStore storage.ForecastRunStore
	now      func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator.
func NewGenerator(runStore storage.ForecastRunStore) *Generator {
	return &Generator{
		runStore: runStore,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate loads a run and builds its report. Sweep may be nil.
func (g *Generator) Generate(ctx context.Context, runID string, sweep []domain.SweepPoint) (*Report, error) {
	run, err := g.runStore.GetByID(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("load run %s: %w", runID, err)
	}
	return g.Build(run, sweep)
}

// Build produces a report from an in-hand run without touching storage.
func (g *Generator) Build(run *domain.ForecastRun, sweep []domain.SweepPoint) (*Report, error) {
	spread, err := segmentSpread(run.SegmentResults)
	if err != nil {
		return nil, err
	}

	r := &Report{
		GeneratedAt:   g.now(),
		RunID:         run.RunID,
		Label:         run.Label,
		Scenario:      run.Scenario,
		Horizons:      horizonRows(run.Horizons),
		Segments:      segmentRows(run.SegmentResults),
		SegmentSpread: spread,
		Sweep:         sweepRows(sweep),
	}

	if run.RunID != "" {
		if code, err := idhash.ShortCode(run.RunID); err == nil {
			r.ShortCode = code
		}
	}

	if peak, ok := run.Horizons.Peak(); ok {
		r.Peak = &HorizonRow{
			Horizon:       peak.Horizon,
			ChurnRate:     peak.ChurnRate,
			ChurnUplift:   peak.ChurnUplift,
			ChurnUpliftPP: peak.ChurnUpliftPP,
		}
	}

	return r, nil
}

func horizonRows(f domain.HorizonForecast) []HorizonRow {
	rows := make([]HorizonRow, 0, len(f))
	for _, h := range f {
		rows = append(rows, HorizonRow{
			Horizon:       h.Horizon,
			ChurnRate:     h.ChurnRate,
			ChurnUplift:   h.ChurnUplift,
			ChurnUpliftPP: h.ChurnUpliftPP,
		})
	}
	return rows
}

func segmentRows(results []domain.SegmentResult) []SegmentRow {
	rows := make([]SegmentRow, 0, len(results))
	for _, s := range results {
		uplift := make([]float64, len(domain.AllHorizons))
		for i, h := range domain.AllHorizons {
			uplift[i], _ = s.Uplift(h)
		}
		rows = append(rows, SegmentRow{
			Name:       s.Name,
			Size:       s.Size,
			Multiplier: s.Multiplier,
			UpliftPP:   uplift,
		})
	}
	return rows
}

// segmentSpread computes min/median/max/mean of segment uplift per horizon.
func segmentSpread(results []domain.SegmentResult) ([]SpreadRow, error) {
	if len(results) == 0 {
		return nil, nil
	}

	rows := make([]SpreadRow, 0, len(domain.AllHorizons))
	for _, h := range domain.AllHorizons {
		var (
			values           stats.Float64Data
			weighted, weight float64
		)
		for _, s := range results {
			v, ok := s.Uplift(h)
			if !ok {
				continue
			}
			values = append(values, v)
			size := s.Size.Float64()
			weighted += v * size
			weight += size
		}
		if len(values) == 0 {
			continue
		}

		row := SpreadRow{Horizon: h, SegmentCount: len(values)}
		var err error
		if row.MinPP, err = values.Min(); err != nil {
			return nil, fmt.Errorf("spread min %s: %w", h, err)
		}
		if row.MedianPP, err = values.Median(); err != nil {
			return nil, fmt.Errorf("spread median %s: %w", h, err)
		}
		if row.MaxPP, err = values.Max(); err != nil {
			return nil, fmt.Errorf("spread max %s: %w", h, err)
		}
		if row.MeanPP, err = values.Mean(); err != nil {
			return nil, fmt.Errorf("spread mean %s: %w", h, err)
		}
		if weight != 0 {
			row.WeightedPP = weighted / weight
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func sweepRows(points []domain.SweepPoint) []SweepRow {
	rows := make([]SweepRow, 0, len(points))
	for _, p := range points {
		uplift := make([]float64, len(domain.AllHorizons))
		for i, h := range domain.AllHorizons {
			if r, ok := p.Horizons.Get(h); ok {
				uplift[i] = r.ChurnUpliftPP
			}
		}
		row := SweepRow{PriceChangePct: p.PriceChangePct, UpliftPP: uplift}
		if peak, ok := p.Horizons.Peak(); ok {
			row.Peak = peak.Horizon
		}
		rows = append(rows, row)
	}
	return rows
}
