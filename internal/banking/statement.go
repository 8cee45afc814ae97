package banking

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// statementColumns tracks where the interesting columns live once the
// header row is located.
type statementColumns struct {
	headerRow int
	date      int
	desc      int
	debit     int
	credit    int
	amount    int
}

// Statement is a parsed workbook ready for persistence.
type Statement struct {
	Bank BankInfo
	Rows []StatementRow
	// Skipped counts lines dropped during parsing (no date, running
	// balance rows, unparseable amounts).
	Skipped int
}

// ParseStatement reads an XLSX bank statement. The header row is
// located by scanning for Date plus either Debit/Credit or Amount
// columns; the bank is detected from the sheet's text content.
func ParseStatement(r io.Reader, hint string) (Statement, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return Statement{}, fmt.Errorf("banking: open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return Statement{}, ErrNoHeaderRow
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return Statement{}, fmt.Errorf("banking: read sheet: %w", err)
	}

	var text strings.Builder
	text.WriteString(hint)
	text.WriteString(" ")
	for i, row := range rows {
		if i > 30 {
			break
		}
		text.WriteString(strings.Join(row, " "))
		text.WriteString(" ")
	}
	bank := DetectBank(text.String())

	cols, ok := locateHeader(rows)
	if !ok {
		return Statement{}, ErrNoHeaderRow
	}

	dayFirst := DayFirstDates(bank.Currency)
	st := Statement{Bank: bank}
	for _, row := range rows[cols.headerRow+1:] {
		parsed, ok := parseRow(row, cols, dayFirst)
		if !ok {
			st.Skipped++
			continue
		}
		st.Rows = append(st.Rows, parsed)
	}
	return st, nil
}

func locateHeader(rows [][]string) (statementColumns, bool) {
	for i, row := range rows {
		cols := statementColumns{headerRow: i, date: -1, desc: -1, debit: -1, credit: -1, amount: -1}
		for j, cell := range row {
			switch {
			case matchHeader(cell, "date"):
				if cols.date < 0 {
					cols.date = j
				}
			case matchHeader(cell, "description", "details", "narration", "particulars", "transaction"):
				if cols.desc < 0 {
					cols.desc = j
				}
			case matchHeader(cell, "debit"):
				cols.debit = j
			case matchHeader(cell, "credit"):
				cols.credit = j
			case matchHeader(cell, "amount"):
				cols.amount = j
			}
		}
		if cols.date >= 0 && cols.desc >= 0 && (cols.amount >= 0 || (cols.debit >= 0 && cols.credit >= 0)) {
			return cols, true
		}
	}
	return statementColumns{}, false
}

func matchHeader(cell string, names ...string) bool {
	lower := strings.ToLower(strings.TrimSpace(cell))
	for _, name := range names {
		if strings.Contains(lower, name) {
			return true
		}
	}
	return false
}

func parseRow(row []string, cols statementColumns, dayFirst bool) (StatementRow, bool) {
	cell := func(idx int) string {
		if idx < 0 || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	date, ok := parseDate(cell(cols.date), dayFirst)
	if !ok {
		return StatementRow{}, false
	}
	desc := cell(cols.desc)
	if desc == "" {
		return StatementRow{}, false
	}

	var amount float64
	if cols.amount >= 0 {
		v, ok := parseAmount(cell(cols.amount))
		if !ok {
			return StatementRow{}, false
		}
		amount = v
	} else {
		debit, dOK := parseAmount(cell(cols.debit))
		credit, cOK := parseAmount(cell(cols.credit))
		if !dOK && !cOK {
			return StatementRow{}, false
		}
		amount = credit - debit
	}
	if amount == 0 {
		return StatementRow{}, false
	}

	return StatementRow{Date: date, Description: desc, Amount: amount}, true
}

var dayFirstLayouts = []string{"02/01/2006", "02-01-2006", "2/1/2006", "02.01.2006", "2006-01-02", "02 Jan 2006", "2 Jan 2006"}
var monthFirstLayouts = []string{"01/02/2006", "1/2/2006", "01-02-2006", "2006-01-02", "Jan 2, 2006", "Jan 02, 2006"}

func parseDate(s string, dayFirst bool) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	layouts := monthFirstLayouts
	if dayFirst {
		layouts = dayFirstLayouts
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	// excelize renders date cells as serials when unstyled
	if serial, err := strconv.ParseFloat(s, 64); err == nil && serial > 20000 && serial < 80000 {
		if t, err := excelize.ExcelDateToTime(serial, false); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func parseAmount(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}
	clean := strings.NewReplacer(",", "", " ", "", "AED", "", "USD", "", "$", "").Replace(s)
	neg := false
	if strings.HasPrefix(clean, "(") && strings.HasSuffix(clean, ")") {
		neg = true
		clean = strings.Trim(clean, "()")
	}
	v, err := strconv.ParseFloat(clean, 64)
	if err != nil {
		return 0, false
	}
	if neg {
		v = -v
	}
	return v, true
}
