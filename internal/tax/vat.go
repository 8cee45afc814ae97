package tax

import "github.com/shopspring/decimal"

// VATReturn summarises a VAT filing window.
type VATReturn struct {
	RatePercent float64 `json:"rate_percent"`
	Revenue     float64 `json:"revenue"`
	Expenses    float64 `json:"expenses"`
	OutputVAT   float64 `json:"output_vat"`
	InputVAT    float64 `json:"input_vat"`
	NetPayable  float64 `json:"net_payable"`
}

// ComputeVAT builds a VAT return from aggregated revenue and expense
// totals. Amounts are rounded half-up to 2 decimal places; a negative
// net means a refund position.
func ComputeVAT(revenue, expenses, ratePercent float64) VATReturn {
	rate := decimal.NewFromFloat(ratePercent).Div(decimal.NewFromInt(100))
	output := decimal.NewFromFloat(revenue).Mul(rate).Round(2)
	input := decimal.NewFromFloat(expenses).Mul(rate).Round(2)
	net := output.Sub(input).Round(2)

	return VATReturn{
		RatePercent: ratePercent,
		Revenue:     revenue,
		Expenses:    expenses,
		OutputVAT:   output.InexactFloat64(),
		InputVAT:    input.InexactFloat64(),
		NetPayable:  net.InexactFloat64(),
	}
}

// VATPortion splits a gross amount into net and VAT at the given rate,
// for invoices captured tax inclusive.
func VATPortion(gross, ratePercent float64) (net, vat float64) {
	rate := decimal.NewFromFloat(ratePercent).Div(decimal.NewFromInt(100))
	grossD := decimal.NewFromFloat(gross)
	netD := grossD.Div(decimal.NewFromInt(1).Add(rate)).Round(2)
	return netD.InexactFloat64(), grossD.Sub(netD).Round(2).InexactFloat64()
}

// VATOn returns the VAT amount on a net amount at the given rate.
func VATOn(net, ratePercent float64) float64 {
	rate := decimal.NewFromFloat(ratePercent).Div(decimal.NewFromInt(100))
	return decimal.NewFromFloat(net).Mul(rate).Round(2).InexactFloat64()
}
