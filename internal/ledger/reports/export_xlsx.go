package reports

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

func newWorkbook(sheet string) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("reports: rename sheet: %w", err)
	}
	return f, nil
}

func setRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}

// WriteTrialBalanceXLSX writes the trial balance as a workbook.
func WriteTrialBalanceXLSX(w io.Writer, tb TrialBalance) error {
	const sheet = "Trial Balance"
	f, err := newWorkbook(sheet)
	if err != nil {
		return err
	}
	defer f.Close()

	row := 1
	if err := setRow(f, sheet, row, []any{"Group", "Account Code", "Account Name", "Opening", "Debit", "Credit", "Closing"}); err != nil {
		return err
	}
	for _, grp := range tb.Groups {
		for _, acc := range grp.Accounts {
			row++
			if err := setRow(f, sheet, row, []any{grp.Key, acc.Code, acc.Name, acc.Opening, acc.Debit, acc.Credit, acc.Closing}); err != nil {
				return err
			}
		}
		row++
		if err := setRow(f, sheet, row, []any{grp.Key, "", "Subtotal", grp.Opening, grp.Debit, grp.Credit, grp.Closing}); err != nil {
			return err
		}
	}
	row++
	if err := setRow(f, sheet, row, []any{"", "", "Total", tb.TotalOpening, tb.TotalDebit, tb.TotalCredit, tb.TotalClosing}); err != nil {
		return err
	}
	return f.Write(w)
}

// WriteProfitAndLossXLSX writes the P&L statement as a workbook.
func WriteProfitAndLossXLSX(w io.Writer, pl ProfitAndLoss) error {
	const sheet = "Profit and Loss"
	f, err := newWorkbook(sheet)
	if err != nil {
		return err
	}
	defer f.Close()

	row := 1
	if err := setRow(f, sheet, row, []any{"Section", "Account Code", "Account Name", "Amount"}); err != nil {
		return err
	}
	for _, section := range []ProfitAndLossSection{pl.Revenue, pl.Expense} {
		for _, acc := range section.Accounts {
			row++
			if err := setRow(f, sheet, row, []any{section.Label, acc.Code, acc.Name, acc.Amount}); err != nil {
				return err
			}
		}
		row++
		if err := setRow(f, sheet, row, []any{section.Label, "", "Total", section.Total}); err != nil {
			return err
		}
	}
	row++
	if err := setRow(f, sheet, row, []any{"", "", "Net Income", pl.NetIncome}); err != nil {
		return err
	}
	return f.Write(w)
}

// WriteBalanceSheetXLSX writes the balance sheet as a workbook.
func WriteBalanceSheetXLSX(w io.Writer, bs BalanceSheet) error {
	const sheet = "Balance Sheet"
	f, err := newWorkbook(sheet)
	if err != nil {
		return err
	}
	defer f.Close()

	row := 1
	if err := setRow(f, sheet, row, []any{"Section", "Account Code", "Account Name", "Balance"}); err != nil {
		return err
	}
	for _, section := range []BalanceSheetSection{bs.Assets, bs.Liabilities, bs.Equity} {
		for _, acc := range section.Accounts {
			row++
			if err := setRow(f, sheet, row, []any{section.Label, acc.Code, acc.Name, acc.Balance}); err != nil {
				return err
			}
		}
		row++
		if err := setRow(f, sheet, row, []any{section.Label, "", "Total", section.Total}); err != nil {
			return err
		}
	}
	row++
	if err := setRow(f, sheet, row, []any{"", "", "Liabilities + Equity", bs.TotalLiabilitiesAndEquity}); err != nil {
		return err
	}
	return f.Write(w)
}
