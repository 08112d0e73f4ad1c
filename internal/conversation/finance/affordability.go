package finance

import (
	"math"

	"buyerbot_backend/internal/config"
)

// Affordability is the deterministic monthly cost breakdown for a purchase
// price under the configured financing assumptions.
type Affordability struct {
	Price            float64 `json:"price"`
	DownPayment      float64 `json:"downPayment"`
	LoanAmount       float64 `json:"loanAmount"`
	MonthlyPrincipal float64 `json:"monthlyPrincipal"`
	MonthlyTax       float64 `json:"monthlyTax"`
	MonthlyInsurance float64 `json:"monthlyInsurance"`
	TotalMonthly     float64 `json:"totalMonthly"`
}

// EstimateAffordability computes the monthly payment for a price using the
// standard fixed-rate amortization formula plus tax and insurance estimates.
func EstimateAffordability(price float64, cfg config.Finance) Affordability {
	downPayment := price * cfg.DownPaymentRate
	loan := price - downPayment

	monthlyRate := cfg.AnnualRate / 12
	payments := float64(cfg.TermYears * 12)

	var principal float64
	if monthlyRate > 0 {
		factor := math.Pow(1+monthlyRate, payments)
		principal = loan * monthlyRate * factor / (factor - 1)
	} else {
		principal = loan / payments
	}

	tax := price * cfg.MonthlyTaxRate
	insurance := cfg.MonthlyInsurance

	return Affordability{
		Price:            price,
		DownPayment:      downPayment,
		LoanAmount:       loan,
		MonthlyPrincipal: principal,
		MonthlyTax:       tax,
		MonthlyInsurance: insurance,
		TotalMonthly:     principal + tax + insurance,
	}
}
