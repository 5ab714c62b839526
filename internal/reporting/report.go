package reporting

import (
	"time"

	"churn-horizon-lab/internal/domain"
)

// Report is the rendered view of one forecast run.
type Report struct {
	// Metadata
	GeneratedAt time.Time
	RunID       string
	ShortCode   string
	Label       string
	Scenario    domain.Scenario

	// Aggregate forecast, horizons in fixed order
	Horizons []HorizonRow
	Peak     *HorizonRow // nil when Horizons is empty

	// Per-segment uplift, input order
	Segments []SegmentRow

	// Distribution of segment uplift per horizon, horizons in fixed order.
	// Empty when the run has no segments.
	SegmentSpread []SpreadRow

	// Optional price sensitivity grid, caller order
	Sweep []SweepRow
}

// HorizonRow is one horizon of the aggregate forecast.
type HorizonRow struct {
	Horizon       domain.Horizon
	ChurnRate     float64
	ChurnUplift   float64
	ChurnUpliftPP float64
}

// SegmentRow is one segment's scaled uplift across horizons.
type SegmentRow struct {
	Name       string
	Size       domain.Size
	Multiplier float64
	UpliftPP   []float64 // indexed like domain.AllHorizons
}

// SpreadRow summarises segment uplift for one horizon.
type SpreadRow struct {
	Horizon      domain.Horizon
	MinPP        float64
	MedianPP     float64
	MaxPP        float64
	MeanPP       float64
	WeightedPP   float64 // size-weighted mean, 0 if total size is 0
	SegmentCount int
}

// SweepRow is one price change of a sensitivity sweep.
type SweepRow struct {
	PriceChangePct float64
	UpliftPP       []float64 // indexed like domain.AllHorizons
	Peak           domain.Horizon
}
