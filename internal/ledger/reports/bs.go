package reports

import (
	"fmt"
	"sort"
	"strings"
)

// BalanceSheetAccount summarises an account for assets, liabilities, or equity.
type BalanceSheetAccount struct {
	Code    string  `json:"code"`
	Name    string  `json:"name"`
	Balance float64 `json:"balance"`
}

// BalanceSheetSection contains the accounts and totals for a classification.
type BalanceSheetSection struct {
	Label    string                `json:"label"`
	Accounts []BalanceSheetAccount `json:"accounts"`
	Total    float64               `json:"total"`
}

// BalanceSheet is the structured response for the balance sheet report.
// Current period earnings are folded into equity so the statement
// balances without a closing entry.
type BalanceSheet struct {
	Assets                    BalanceSheetSection `json:"assets"`
	Liabilities               BalanceSheetSection `json:"liabilities"`
	Equity                    BalanceSheetSection `json:"equity"`
	NetIncome                 float64             `json:"net_income"`
	TotalLiabilitiesAndEquity float64             `json:"total_liabilities_and_equity"`
}

// Balanced reports whether assets equal liabilities plus equity at cent
// precision.
func (bs BalanceSheet) Balanced() bool {
	return fmt.Sprintf("%.2f", bs.Assets.Total) == fmt.Sprintf("%.2f", bs.TotalLiabilitiesAndEquity)
}

// BuildBalanceSheet aggregates balances into assets, liabilities, and
// equity sections. Credit-normal sections are shown positive.
func BuildBalanceSheet(accounts []AccountBalance) BalanceSheet {
	assets := BalanceSheetSection{Label: "Assets"}
	liabilities := BalanceSheetSection{Label: "Liabilities"}
	equity := BalanceSheetSection{Label: "Equity"}
	var netIncome float64

	for _, acc := range accounts {
		closing := acc.Closing()
		switch strings.ToUpper(acc.Type) {
		case "ASSET":
			assets.Accounts = append(assets.Accounts, BalanceSheetAccount{Code: acc.Code, Name: acc.Name, Balance: closing})
			assets.Total += closing
		case "LIABILITY":
			liabilities.Accounts = append(liabilities.Accounts, BalanceSheetAccount{Code: acc.Code, Name: acc.Name, Balance: -closing})
			liabilities.Total += -closing
		case "EQUITY":
			equity.Accounts = append(equity.Accounts, BalanceSheetAccount{Code: acc.Code, Name: acc.Name, Balance: -closing})
			equity.Total += -closing
		case "REVENUE", "INCOME", "EXPENSE", "COGS":
			netIncome += -closing
		}
	}

	sort.Slice(assets.Accounts, func(i, j int) bool { return assets.Accounts[i].Code < assets.Accounts[j].Code })
	sort.Slice(liabilities.Accounts, func(i, j int) bool { return liabilities.Accounts[i].Code < liabilities.Accounts[j].Code })
	sort.Slice(equity.Accounts, func(i, j int) bool { return equity.Accounts[i].Code < equity.Accounts[j].Code })

	equity.Accounts = append(equity.Accounts, BalanceSheetAccount{Code: "", Name: "Current Period Earnings", Balance: netIncome})
	equity.Total += netIncome

	return BalanceSheet{
		Assets:                    assets,
		Liabilities:               liabilities,
		Equity:                    equity,
		NetIncome:                 netIncome,
		TotalLiabilitiesAndEquity: liabilities.Total + equity.Total,
	}
}
