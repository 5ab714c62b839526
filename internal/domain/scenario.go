package domain

// Scenario defaults applied when a field is absent.
const (
	DefaultPriceChangePct = 0.0
	DefaultBaselineChurn  = 0.05
)

// Scenario represents a pricing scenario with all defaults resolved.
type Scenario struct {
	PriceChangePct float64 `json:"price_change_pct"` // signed, percent of base price
	BaselineChurn  float64 `json:"baseline_churn"`   // fraction, accepted at face value
}

// ScenarioInput is the boundary form of a Scenario. Nil fields take defaults.
type ScenarioInput struct {
	PriceChangePct *float64 `json:"price_change_pct,omitempty" yaml:"price_change_pct,omitempty"`
	BaselineChurn  *float64 `json:"baseline_churn,omitempty" yaml:"baseline_churn,omitempty"`
}

// Resolve applies defaults. No range validation is performed.
func (in ScenarioInput) Resolve() Scenario {
	s := Scenario{
		PriceChangePct: DefaultPriceChangePct,
		BaselineChurn:  DefaultBaselineChurn,
	}
	if in.PriceChangePct != nil {
		s.PriceChangePct = *in.PriceChangePct
	}
	if in.BaselineChurn != nil {
		s.BaselineChurn = *in.BaselineChurn
	}
	return s
}
