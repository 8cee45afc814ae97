// Package reports builds trial balance, profit and loss, and balance
// sheet structures from aggregated account balances.
package reports

import "strings"

// AccountBalance models a ledger account with aggregated movement over a
// reporting window. Opening carries the net balance before the window.
type AccountBalance struct {
	Code    string
	Name    string
	Type    string
	Opening float64
	Debit   float64
	Credit  float64
}

// Closing computes the closing balance on the debit-normal convention.
func (a AccountBalance) Closing() float64 {
	return a.Opening + a.Debit - a.Credit
}

// GroupKey returns the code prefix used for grouping trial balance rows.
// Codes like "11.200" group on "11", plain codes on their first two
// characters.
func (a AccountBalance) GroupKey() string {
	for _, sep := range []string{".", "-"} {
		if idx := strings.Index(a.Code, sep); idx > 0 {
			return a.Code[:idx]
		}
	}
	if len(a.Code) >= 2 {
		return a.Code[:2]
	}
	return a.Code
}
