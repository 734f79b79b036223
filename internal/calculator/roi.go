package calculator

// ROIInput describes a rental property over one year.
type ROIInput struct {
	Price          float64 `json:"price"`
	AnnualRent     float64 `json:"annualRent"`
	AnnualExpenses float64 `json:"annualExpenses"`
}

// ROI returns the annual return on the purchase price as a percentage.
// Negative yields are valid; a non-positive price yields no result.
func ROI(in ROIInput) (float64, bool) {
	if !finite(in.Price, in.AnnualRent, in.AnnualExpenses) || in.Price <= 0 {
		return 0, false
	}
	return (in.AnnualRent - in.AnnualExpenses) / in.Price * 100, true
}
