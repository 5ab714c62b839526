package churn

import "churn-horizon-lab/internal/domain"

// Sweep evaluates PredictByHorizon at each price change for a fixed baseline.
// Points keep the order of priceChanges, duplicates included.
func Sweep(baselineChurn float64, priceChanges []float64) []domain.SweepPoint {
	return defaultPredictor.Sweep(baselineChurn, priceChanges)
}

// Sweep evaluates the predictor across a list of price changes.
func (p *Predictor) Sweep(baselineChurn float64, priceChanges []float64) []domain.SweepPoint {
	points := make([]domain.SweepPoint, 0, len(priceChanges))
	for _, pct := range priceChanges {
		points = append(points, domain.SweepPoint{
			PriceChangePct: pct,
			Horizons: p.PredictByHorizon(domain.Scenario{
				PriceChangePct: pct,
				BaselineChurn:  baselineChurn,
			}),
		})
	}
	return points
}
