package calculator

import "strconv"

// Format renders v with two decimals. It is for display only.
func Format(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// MortgageForm keeps the current inputs and the last valid payment.
type MortgageForm struct {
	Input  MortgageInput
	result float64
	valid  bool
}

// NewMortgageForm returns a form prefilled with the widget defaults. It holds
// no result until the first Compute.
func NewMortgageForm() *MortgageForm {
	return &MortgageForm{Input: MortgageInput{Principal: 200000, AnnualRatePercent: 3.5, TermYears: 25}}
}

// Compute recalculates the payment. On a guard miss the previous result is
// kept and false is returned.
func (f *MortgageForm) Compute() bool {
	v, ok := MonthlyPayment(f.Input)
	if !ok {
		return false
	}
	f.result, f.valid = v, true
	return true
}

// Result returns the last valid payment, if any.
func (f *MortgageForm) Result() (float64, bool) {
	return f.result, f.valid
}

// ROIForm keeps the current inputs and the last valid yield.
type ROIForm struct {
	Input  ROIInput
	result float64
	valid  bool
}

func NewROIForm() *ROIForm {
	return &ROIForm{Input: ROIInput{Price: 150000, AnnualRent: 12000, AnnualExpenses: 2000}}
}

func (f *ROIForm) Compute() bool {
	v, ok := ROI(f.Input)
	if !ok {
		return false
	}
	f.result, f.valid = v, true
	return true
}

func (f *ROIForm) Result() (float64, bool) {
	return f.result, f.valid
}
