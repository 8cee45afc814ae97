package tax

import "github.com/shopspring/decimal"

// CorporateTax summarises a corporate income tax estimate.
type CorporateTax struct {
	RatePercent   float64 `json:"rate_percent"`
	Threshold     float64 `json:"threshold"`
	NetIncome     float64 `json:"net_income"`
	TaxableProfit float64 `json:"taxable_profit"`
	TaxDue        float64 `json:"tax_due"`
}

// ComputeCorporate estimates corporate tax on net income. Only profit
// above the threshold is taxed; losses produce zero due.
func ComputeCorporate(netIncome, ratePercent, threshold float64) CorporateTax {
	income := decimal.NewFromFloat(netIncome)
	taxable := income.Sub(decimal.NewFromFloat(threshold))
	if taxable.IsNegative() {
		taxable = decimal.Zero
	}
	rate := decimal.NewFromFloat(ratePercent).Div(decimal.NewFromInt(100))
	due := taxable.Mul(rate).Round(2)

	return CorporateTax{
		RatePercent:   ratePercent,
		Threshold:     threshold,
		NetIncome:     netIncome,
		TaxableProfit: taxable.Round(2).InexactFloat64(),
		TaxDue:        due.InexactFloat64(),
	}
}
