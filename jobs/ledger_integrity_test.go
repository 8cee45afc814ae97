package jobs

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIntegrityQueryMatchesLedgerSchema(t *testing.T) {
	// The ledger repository stores lines with a je_id foreign key; the
	// integrity check must join on the same column.
	require.Contains(t, integrityQuery, "JOIN journal_lines jl ON jl.je_id = je.id")
	require.NotContains(t, integrityQuery, "journal_id")
	require.Contains(t, integrityQuery, "je.status = 'POSTED'")
}
