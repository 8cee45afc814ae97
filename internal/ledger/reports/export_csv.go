package reports

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
)

const (
	csvFlushEvery = 200
	csvBufferSize = 32 * 1024
)

type csvStreamer struct {
	buf          *bufio.Writer
	csv          *csv.Writer
	flushEvery   int
	pendingLines int
}

func newCSVStreamer(w io.Writer) *csvStreamer {
	buf := bufio.NewWriterSize(w, csvBufferSize)
	writer := csv.NewWriter(buf)
	writer.UseCRLF = true
	return &csvStreamer{buf: buf, csv: writer, flushEvery: csvFlushEvery}
}

func (s *csvStreamer) writeComment(line string) error {
	if s == nil || s.buf == nil {
		return fmt.Errorf("csv streamer not initialised")
	}
	if !strings.HasSuffix(line, "\r\n") {
		line = strings.TrimSuffix(line, "\n")
		line += "\r\n"
	}
	if _, err := s.buf.WriteString(line); err != nil {
		return err
	}
	return nil
}

func (s *csvStreamer) writeRow(row []string) error {
	if s == nil || s.csv == nil {
		return fmt.Errorf("csv streamer not initialised")
	}
	if err := s.csv.Write(row); err != nil {
		return err
	}
	s.pendingLines++
	if s.flushEvery > 0 && s.pendingLines >= s.flushEvery {
		return s.Flush()
	}
	return nil
}

func (s *csvStreamer) Flush() error {
	if s == nil || s.csv == nil || s.buf == nil {
		return fmt.Errorf("csv streamer not initialised")
	}
	s.csv.Flush()
	if err := s.csv.Error(); err != nil {
		return err
	}
	if err := s.buf.Flush(); err != nil {
		return err
	}
	s.pendingLines = 0
	return nil
}

func (s *csvStreamer) Close() error {
	return s.Flush()
}

func money(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// WriteTrialBalanceCSV streams the trial balance as CSV.
func WriteTrialBalanceCSV(w io.Writer, title string, tb TrialBalance) error {
	streamer := newCSVStreamer(w)
	if err := streamer.writeComment("# " + title); err != nil {
		return err
	}
	if err := streamer.writeRow([]string{"Group", "Account Code", "Account Name", "Opening", "Debit", "Credit", "Closing"}); err != nil {
		return err
	}
	for _, grp := range tb.Groups {
		for _, acc := range grp.Accounts {
			if err := streamer.writeRow([]string{grp.Key, acc.Code, acc.Name, money(acc.Opening), money(acc.Debit), money(acc.Credit), money(acc.Closing)}); err != nil {
				return err
			}
		}
		if err := streamer.writeRow([]string{grp.Key, "", "Subtotal", money(grp.Opening), money(grp.Debit), money(grp.Credit), money(grp.Closing)}); err != nil {
			return err
		}
	}
	if err := streamer.writeRow([]string{"", "", "Total", money(tb.TotalOpening), money(tb.TotalDebit), money(tb.TotalCredit), money(tb.TotalClosing)}); err != nil {
		return err
	}
	return streamer.Close()
}

// WriteProfitAndLossCSV streams the P&L statement as CSV.
func WriteProfitAndLossCSV(w io.Writer, title string, pl ProfitAndLoss) error {
	streamer := newCSVStreamer(w)
	if err := streamer.writeComment("# " + title); err != nil {
		return err
	}
	if err := streamer.writeRow([]string{"Section", "Account Code", "Account Name", "Amount"}); err != nil {
		return err
	}
	for _, section := range []ProfitAndLossSection{pl.Revenue, pl.Expense} {
		for _, acc := range section.Accounts {
			if err := streamer.writeRow([]string{section.Label, acc.Code, acc.Name, money(acc.Amount)}); err != nil {
				return err
			}
		}
		if err := streamer.writeRow([]string{section.Label, "", "Total", money(section.Total)}); err != nil {
			return err
		}
	}
	if err := streamer.writeRow([]string{"", "", "Net Income", money(pl.NetIncome)}); err != nil {
		return err
	}
	return streamer.Close()
}

// WriteBalanceSheetCSV streams the balance sheet as CSV.
func WriteBalanceSheetCSV(w io.Writer, title string, bs BalanceSheet) error {
	streamer := newCSVStreamer(w)
	if err := streamer.writeComment("# " + title); err != nil {
		return err
	}
	if err := streamer.writeRow([]string{"Section", "Account Code", "Account Name", "Balance"}); err != nil {
		return err
	}
	for _, section := range []BalanceSheetSection{bs.Assets, bs.Liabilities, bs.Equity} {
		for _, acc := range section.Accounts {
			if err := streamer.writeRow([]string{section.Label, acc.Code, acc.Name, money(acc.Balance)}); err != nil {
				return err
			}
		}
		if err := streamer.writeRow([]string{section.Label, "", "Total", money(section.Total)}); err != nil {
			return err
		}
	}
	if err := streamer.writeRow([]string{"", "", "Liabilities + Equity", money(bs.TotalLiabilitiesAndEquity)}); err != nil {
		return err
	}
	return streamer.Close()
}
