package churn

import "gonum.org/v1/gonum/stat/distuv"

// standardLogistic has CDF 1 / (1 + exp(-x)).
var standardLogistic = distuv.Logistic{Mu: 0, S: 1}

// Logistic maps log-odds to a probability.
// math.Exp saturates to +Inf or 0 for large |x|, so the result saturates
// to 0 or 1 instead of faulting.
func Logistic(x float64) float64 {
	return standardLogistic.CDF(x)
}
