package domain

// SweepPoint is one price change evaluated in a sensitivity sweep.
type SweepPoint struct {
	PriceChangePct float64         `json:"price_change_pct"`
	Horizons       HorizonForecast `json:"horizons"`
}

// ForecastRun represents one persisted evaluation of a scenario.
// Corresponds to the forecast_runs table.
type ForecastRun struct {
	RunID          string          `json:"run_id"` // deterministic, see idhash.ComputeRunID
	Label          string          `json:"label,omitempty"`
	Scenario       Scenario        `json:"scenario"`
	Segments       []Segment       `json:"segments"`
	Horizons       HorizonForecast `json:"horizons"`
	SegmentResults []SegmentResult `json:"segment_results"`
	CreatedAt      int64           `json:"created_at"` // Unix ms
}

// Aggregate (unsegmented) rows carry these in place of a segment.
const (
	AggregateSegment      = ""
	AggregateSegmentIndex = -1
)

// HorizonPoint is one flattened analytics row: a run, a segment, a horizon.
// Rows are keyed by (RunID, SegmentIndex, Horizon); segment names may repeat.
// Corresponds to the horizon_points table.
type HorizonPoint struct {
	RunID         string
	SegmentIndex  int    // position in ForecastRun.Segments, AggregateSegmentIndex for the unsegmented forecast
	SegmentName   string // AggregateSegment for the unsegmented forecast
	Horizon       Horizon
	ChurnRate     float64
	ChurnUpliftPP float64 // scaled by Multiplier for segment rows
	Multiplier    float64 // 1 for aggregate rows
	CreatedAt     int64   // Unix ms
}

// HorizonPoints flattens a run into analytics rows, aggregate rows first,
// then segments in input order.
func (r *ForecastRun) HorizonPoints() []*HorizonPoint {
	points := make([]*HorizonPoint, 0, len(r.Horizons)*(1+len(r.SegmentResults)))
	for _, h := range r.Horizons {
		points = append(points, &HorizonPoint{
			RunID:         r.RunID,
			SegmentIndex:  AggregateSegmentIndex,
			SegmentName:   AggregateSegment,
			Horizon:       h.Horizon,
			ChurnRate:     h.ChurnRate,
			ChurnUpliftPP: h.ChurnUpliftPP,
			Multiplier:    1,
			CreatedAt:     r.CreatedAt,
		})
	}
	for i, s := range r.SegmentResults {
		for _, u := range s.Uplifts {
			rate := 0.0
			if h, ok := r.Horizons.Get(u.Horizon); ok {
				rate = h.ChurnRate
			}
			points = append(points, &HorizonPoint{
				RunID:         r.RunID,
				SegmentIndex:  i,
				SegmentName:   s.Name,
				Horizon:       u.Horizon,
				ChurnRate:     rate,
				ChurnUpliftPP: u.UpliftPP,
				Multiplier:    s.Multiplier,
				CreatedAt:     r.CreatedAt,
			})
		}
	}
	return points
}
