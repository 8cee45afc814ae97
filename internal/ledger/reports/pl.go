package reports

import (
	"sort"
	"strings"
)

// ProfitAndLossAccount represents a revenue or expense account summary.
type ProfitAndLossAccount struct {
	Code   string  `json:"code"`
	Name   string  `json:"name"`
	Amount float64 `json:"amount"`
}

// ProfitAndLossSection groups accounts by nature.
type ProfitAndLossSection struct {
	Label    string                 `json:"label"`
	Accounts []ProfitAndLossAccount `json:"accounts"`
	Total    float64                `json:"total"`
}

// ProfitAndLoss contains the structured output for the report.
type ProfitAndLoss struct {
	Revenue   ProfitAndLossSection `json:"revenue"`
	Expense   ProfitAndLossSection `json:"expense"`
	NetIncome float64              `json:"net_income"`
}

// BuildProfitAndLoss aggregates period movements into revenue and
// expense sections. Only the window's flows count; opening balances are
// ignored since P&L is a flow statement.
func BuildProfitAndLoss(accounts []AccountBalance) ProfitAndLoss {
	revenue := ProfitAndLossSection{Label: "Revenue"}
	expense := ProfitAndLossSection{Label: "Expense"}

	for _, acc := range accounts {
		flow := acc.Debit - acc.Credit
		var section *ProfitAndLossSection
		switch strings.ToUpper(acc.Type) {
		case "REVENUE", "INCOME":
			// Credit-normal, shown positive.
			flow = -flow
			section = &revenue
		case "EXPENSE", "COGS":
			section = &expense
		default:
			continue
		}
		section.Accounts = append(section.Accounts, ProfitAndLossAccount{Code: acc.Code, Name: acc.Name, Amount: flow})
		section.Total += flow
	}

	sortByCode(&revenue)
	sortByCode(&expense)

	return ProfitAndLoss{
		Revenue:   revenue,
		Expense:   expense,
		NetIncome: revenue.Total - expense.Total,
	}
}

func sortByCode(section *ProfitAndLossSection) {
	sort.Slice(section.Accounts, func(i, j int) bool {
		return section.Accounts[i].Code < section.Accounts[j].Code
	})
}
