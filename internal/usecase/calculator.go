package usecase

import (
	"immobilier-assistant/internal/calculator"
)

// CalculationResult is a computed value and its two-decimal rendering.
type CalculationResult struct {
	Value   float64
	Display string
}

type CalculatorService struct {
	metrics Recorder
}

func NewCalculatorService(metrics Recorder) *CalculatorService {
	if metrics == nil {
		metrics = nopRecorder{}
	}
	return &CalculatorService{metrics: metrics}
}

// Mortgage returns the monthly annuity payment, or INSUFFICIENT_INPUT when
// the principal, rate or term is not positive.
func (s *CalculatorService) Mortgage(in calculator.MortgageInput) (CalculationResult, error) {
	v, ok := calculator.MonthlyPayment(in)
	return s.result("mortgage", v, ok)
}

// ROI returns the annual rental yield, or INSUFFICIENT_INPUT when the price is
// not positive.
func (s *CalculatorService) ROI(in calculator.ROIInput) (CalculationResult, error) {
	v, ok := calculator.ROI(in)
	return s.result("roi", v, ok)
}

func (s *CalculatorService) result(name string, v float64, ok bool) (CalculationResult, error) {
	if !ok {
		s.metrics.Calculation(name, OutcomeNoResult)
		return CalculationResult{}, newError(ErrorInsufficientInput, name+"_guard", nil)
	}
	s.metrics.Calculation(name, OutcomeOK)
	return CalculationResult{Value: v, Display: calculator.Format(v)}, nil
}
