// Package calculator holds the mortgage and rental-yield formulas used by the
// site's calculator widgets.
package calculator

import "math"

// MortgageInput describes a fixed-rate loan.
type MortgageInput struct {
	Principal         float64 `json:"principal"`
	AnnualRatePercent float64 `json:"annualRatePercent"`
	TermYears         float64 `json:"termYears"`
}

// MonthlyPayment returns the annuity payment for in. It reports false when the
// principal, rate or term is not strictly positive, or when an input is not a
// finite number.
func MonthlyPayment(in MortgageInput) (float64, bool) {
	if !finite(in.Principal, in.AnnualRatePercent, in.TermYears) {
		return 0, false
	}
	i := in.AnnualRatePercent / 100 / 12
	n := in.TermYears * 12
	if in.Principal <= 0 || i <= 0 || n <= 0 {
		return 0, false
	}
	x := math.Pow(1+i, n)
	payment := in.Principal * x * i / (x - 1)
	if !finite(payment) {
		return 0, false
	}
	return payment, true
}

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
