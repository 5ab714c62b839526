package churn

import "churn-horizon-lab/internal/domain"

// Predictor evaluates the churn model with a fixed coefficient set.
type Predictor struct {
	coef ModelCoefficients
}

// NewPredictor creates a predictor over the given coefficients.
func NewPredictor(coef ModelCoefficients) *Predictor {
	return &Predictor{coef: coef}
}

// Coefficients returns a copy of the predictor's coefficients.
func (p *Predictor) Coefficients() ModelCoefficients {
	return p.coef
}

var defaultPredictor = NewPredictor(DefaultCoefficients)

// PredictByHorizon predicts churn for each horizon with DefaultCoefficients.
func PredictByHorizon(s domain.Scenario) domain.HorizonForecast {
	return defaultPredictor.PredictByHorizon(s)
}

// PredictByHorizon predicts churn probability for each horizon after the price change.
//
// For each horizon with interaction coefficient coef:
//
//	log_odds = intercept + price_change_pct_coef*price + coef*price
//	churn_rate = logistic(log_odds)
//	churn_uplift = churn_rate - baseline
//
// The global and horizon terms are both applied to the same price change and summed.
// No range validation is performed on the scenario.
func (p *Predictor) PredictByHorizon(s domain.Scenario) domain.HorizonForecast {
	forecast := make(domain.HorizonForecast, 0, len(domain.AllHorizons))

	for _, h := range domain.AllHorizons {
		// Conversions force each product to round separately (no FMA).
		logOdds := p.coef.Intercept +
			float64(p.coef.PriceChangePct*s.PriceChangePct) +
			float64(p.coef.Interaction(h)*s.PriceChangePct)

		churnRate := Logistic(logOdds)
		uplift := churnRate - s.BaselineChurn

		forecast = append(forecast, domain.HorizonResult{
			Horizon:       h,
			ChurnRate:     churnRate,
			ChurnUplift:   uplift,
			ChurnUpliftPP: uplift * 100,
		})
	}

	return forecast
}
