package churn

import (
	"math"

	"churn-horizon-lab/internal/domain"
)

// Segment multiplier mapping: elasticity magnitude 0 -> 0.7, 4 or more -> 1.3,
// linear in between.
const (
	minSegmentMultiplier  = 0.7
	segmentMultiplierSpan = 0.6
	maxElasticity         = 4.0
)

// SegmentMultiplier scales a segment's churn uplift relative to the aggregate.
// Only the magnitude of elasticity is used and it is clamped at 4.
func SegmentMultiplier(elasticity float64) float64 {
	clamped := math.Min(math.Abs(elasticity), maxElasticity)
	return minSegmentMultiplier + float64((clamped/maxElasticity)*segmentMultiplierSpan)
}

// PredictBySegment predicts scaled churn uplift per segment with DefaultCoefficients.
func PredictBySegment(s domain.Scenario, segments []domain.Segment) []domain.SegmentResult {
	return defaultPredictor.PredictBySegment(s, segments)
}

// PredictBySegmentInputs resolves boundary segment records, then predicts.
// The first missing name or size is returned unchanged.
func PredictBySegmentInputs(s domain.Scenario, inputs []domain.SegmentInput) ([]domain.SegmentResult, error) {
	segments, err := domain.ResolveSegments(inputs)
	if err != nil {
		return nil, err
	}
	return PredictBySegment(s, segments), nil
}

// PredictBySegment predicts churn uplift per segment and horizon.
// Results preserve input order. The horizon forecast is recomputed for every
// segment; nothing is shared between segments.
func (p *Predictor) PredictBySegment(s domain.Scenario, segments []domain.Segment) []domain.SegmentResult {
	results := make([]domain.SegmentResult, 0, len(segments))

	for _, seg := range segments {
		horizons := p.PredictByHorizon(s)
		multiplier := SegmentMultiplier(seg.Elasticity)

		uplifts := make([]domain.SegmentUplift, 0, len(horizons))
		for _, h := range horizons {
			uplifts = append(uplifts, domain.SegmentUplift{
				Horizon:  h.Horizon,
				UpliftPP: h.ChurnUpliftPP * multiplier,
			})
		}

		results = append(results, domain.SegmentResult{
			Name:       seg.Name,
			Size:       seg.Size,
			Multiplier: multiplier,
			Uplifts:    uplifts,
		})
	}

	return results
}
