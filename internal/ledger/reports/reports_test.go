package reports

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func sampleBalances() []AccountBalance {
	return []AccountBalance{
		{Code: "10.100", Name: "Cash", Type: "ASSET", Opening: 500, Debit: 1000, Credit: 200},
		{Code: "10.200", Name: "Receivables", Type: "ASSET", Debit: 300, Credit: 100},
		{Code: "20.100", Name: "Payables", Type: "LIABILITY", Debit: 50, Credit: 650},
		{Code: "30.100", Name: "Share Capital", Type: "EQUITY", Opening: -500, Credit: 0},
		{Code: "40.100", Name: "Sales", Type: "REVENUE", Credit: 700},
		{Code: "50.100", Name: "Rent", Type: "EXPENSE", Debit: 300},
	}
}

func TestBuildTrialBalanceGroupsAndTotals(t *testing.T) {
	tb := BuildTrialBalance(sampleBalances())

	require.Len(t, tb.Groups, 5)
	require.Equal(t, "10", tb.Groups[0].Key)
	require.Len(t, tb.Groups[0].Accounts, 2)
	require.InDelta(t, 500.0, tb.Groups[0].Opening, 0.001)
	require.InDelta(t, 1300.0, tb.Groups[0].Debit, 0.001)
	require.InDelta(t, 300.0, tb.Groups[0].Credit, 0.001)
	require.InDelta(t, 1500.0, tb.Groups[0].Closing, 0.001)

	require.InDelta(t, 1650.0, tb.TotalDebit, 0.001)
	require.InDelta(t, 1650.0, tb.TotalCredit, 0.001)
	require.True(t, tb.Balanced())
}

func TestBuildTrialBalanceDetectsImbalance(t *testing.T) {
	balances := sampleBalances()
	balances[0].Debit += 0.02
	tb := BuildTrialBalance(balances)
	require.False(t, tb.Balanced())
}

func TestBuildProfitAndLoss(t *testing.T) {
	pl := BuildProfitAndLoss(sampleBalances())

	require.Len(t, pl.Revenue.Accounts, 1)
	require.InDelta(t, 700.0, pl.Revenue.Total, 0.001)
	require.Len(t, pl.Expense.Accounts, 1)
	require.InDelta(t, 300.0, pl.Expense.Total, 0.001)
	require.InDelta(t, 400.0, pl.NetIncome, 0.001)
}

func TestBuildBalanceSheetFoldsNetIncome(t *testing.T) {
	bs := BuildBalanceSheet(sampleBalances())

	require.InDelta(t, 1500.0, bs.Assets.Total, 0.001)
	require.InDelta(t, 600.0, bs.Liabilities.Total, 0.001)
	require.InDelta(t, 400.0, bs.NetIncome, 0.001)

	last := bs.Equity.Accounts[len(bs.Equity.Accounts)-1]
	require.Equal(t, "Current Period Earnings", last.Name)
	require.InDelta(t, 400.0, last.Balance, 0.001)

	require.InDelta(t, bs.Assets.Total, bs.TotalLiabilitiesAndEquity, 0.001)
	require.True(t, bs.Balanced())
}

func TestGroupKey(t *testing.T) {
	require.Equal(t, "11", AccountBalance{Code: "11.200"}.GroupKey())
	require.Equal(t, "40", AccountBalance{Code: "40-010"}.GroupKey())
	require.Equal(t, "10", AccountBalance{Code: "1000"}.GroupKey())
	require.Equal(t, "9", AccountBalance{Code: "9"}.GroupKey())
}

func TestWriteTrialBalanceCSV(t *testing.T) {
	tb := BuildTrialBalance(sampleBalances())
	var buf bytes.Buffer
	require.NoError(t, WriteTrialBalanceCSV(&buf, "Trial Balance 2025-03", tb))

	out := buf.String()
	require.True(t, strings.HasPrefix(out, "# Trial Balance 2025-03\r\n"))
	require.Contains(t, out, "Group,Account Code,Account Name,Opening,Debit,Credit,Closing")
	require.Contains(t, out, "10,10.100,Cash,500.00,1000.00,200.00,1300.00")
	require.Contains(t, out, ",,Total,0.00,1650.00,1650.00,0.00")
}

func TestWriteProfitAndLossCSV(t *testing.T) {
	pl := BuildProfitAndLoss(sampleBalances())
	var buf bytes.Buffer
	require.NoError(t, WriteProfitAndLossCSV(&buf, "P&L", pl))

	out := buf.String()
	require.Contains(t, out, "Revenue,40.100,Sales,700.00")
	require.Contains(t, out, ",,Net Income,400.00")
}

func TestWriteBalanceSheetXLSXRoundTrips(t *testing.T) {
	bs := BuildBalanceSheet(sampleBalances())
	var buf bytes.Buffer
	require.NoError(t, WriteBalanceSheetXLSX(&buf, bs))
	require.NotZero(t, buf.Len())
	// XLSX files are zip archives.
	require.Equal(t, []byte{'P', 'K'}, buf.Bytes()[:2])
}
