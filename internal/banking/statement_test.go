package banking

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func buildStatement(t *testing.T, rows [][]any) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	return &buf
}

func TestParseStatementDebitCreditColumns(t *testing.T) {
	buf := buildStatement(t, [][]any{
		{"Emirates NBD Statement of Account"},
		{},
		{"Date", "Description", "Debit", "Credit", "Balance"},
		{"05/03/2025", "TALABAT DUBAI", "54.50", "", "10000.00"},
		{"07/03/2025", "SALARY MARCH", "", "15000.00", "25000.00"},
		{"", "running balance only", "", "", "25000.00"},
	})

	st, err := ParseStatement(buf, "")
	require.NoError(t, err)
	require.Equal(t, "ENBD", st.Bank.Code)
	require.Equal(t, "AED", st.Bank.Currency)
	require.Len(t, st.Rows, 2)
	require.Equal(t, 1, st.Skipped)

	// AED statements are day first: 05/03 is March 5th.
	require.Equal(t, time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC), st.Rows[0].Date)
	require.InDelta(t, -54.50, st.Rows[0].Amount, 0.001)
	require.InDelta(t, 15000.0, st.Rows[1].Amount, 0.001)
}

func TestParseStatementSingleAmountColumn(t *testing.T) {
	buf := buildStatement(t, [][]any{
		{"Chase Bank statement"},
		{"Date", "Description", "Amount"},
		{"03/05/2025", "CHECKCARD 0305 STARBUCKS SEATTLE WA 98101", "(12.40)"},
		{"03/07/2025", "DIRECT DEPOSIT PAYROLL ACME", "2,500.00"},
	})

	st, err := ParseStatement(buf, "")
	require.NoError(t, err)
	require.Equal(t, "CHASE", st.Bank.Code)

	// USD statements are month first: 03/05 is March 5th.
	require.Equal(t, time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC), st.Rows[0].Date)
	require.InDelta(t, -12.40, st.Rows[0].Amount, 0.001)
	require.InDelta(t, 2500.0, st.Rows[1].Amount, 0.001)
}

func TestParseStatementBankHint(t *testing.T) {
	buf := buildStatement(t, [][]any{
		{"Date", "Description", "Amount"},
		{"01/02/2025", "coffee shop", "-3.50"},
	})

	st, err := ParseStatement(buf, "barclays-feb.xlsx")
	require.NoError(t, err)
	require.Equal(t, "BARCLAYS", st.Bank.Code)
	require.Equal(t, "GBP", st.Bank.Currency)
}

func TestParseStatementNoHeader(t *testing.T) {
	buf := buildStatement(t, [][]any{
		{"just", "some", "cells"},
		{"no", "header", "here"},
	})

	_, err := ParseStatement(buf, "")
	require.ErrorIs(t, err, ErrNoHeaderRow)
}
