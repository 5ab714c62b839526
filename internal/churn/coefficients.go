// Package churn estimates subscriber churn response to a price change,
// by horizon since the change and by customer segment.
//
// All functions are pure. The only shared state is the immutable
// coefficient table, so callers may evaluate scenarios in parallel.
package churn

import "churn-horizon-lab/internal/domain"

// ModelCoefficients holds pre-fitted logistic regression coefficients
// for the time-lagged churn model.
type ModelCoefficients struct {
	Intercept      float64 // log-odds of baseline churn
	PriceChangePct float64 // global linear price term

	// Horizon interaction terms, each multiplied by the price change
	PriceX0To4Wks  float64
	PriceX4To8Wks  float64
	PriceX8To12Wks float64
	PriceX12Plus   float64
}

// DefaultCoefficients is the fitted coefficient set.
// Tuned to streaming-industry benchmarks: +$1 on a $6 base (~16.7%)
// peaks in the 8-12 week window.
var DefaultCoefficients = ModelCoefficients{
	Intercept:      -2.944, // logit(0.05)
	PriceChangePct: 0.01,
	PriceX0To4Wks:  0.006, // immediate reaction
	PriceX4To8Wks:  0.018, // roll-off
	PriceX8To12Wks: 0.028, // peak
	PriceX12Plus:   0.008, // stabilization
}

// Interaction returns the horizon-specific price coefficient.
func (c ModelCoefficients) Interaction(h domain.Horizon) float64 {
	switch h {
	case domain.Horizon0To4Weeks:
		return c.PriceX0To4Wks
	case domain.Horizon4To8Weeks:
		return c.PriceX4To8Wks
	case domain.Horizon8To12Weeks:
		return c.PriceX8To12Wks
	case domain.Horizon12PlusWeeks:
		return c.PriceX12Plus
	default:
		return 0
	}
}
