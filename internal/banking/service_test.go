package banking

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/meridian-books/meridian/internal/ledger"
)

type memoryRepo struct {
	mu       sync.Mutex
	accounts map[int64]BankAccount
	txs      map[int64]BankTransaction
	nextID   int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{accounts: map[int64]BankAccount{}, txs: map[int64]BankTransaction{}}
}

func (m *memoryRepo) CreateAccount(_ context.Context, account BankAccount) (BankAccount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	account.ID = m.nextID
	m.accounts[account.ID] = account
	return account, nil
}

func (m *memoryRepo) GetAccount(_ context.Context, id int64) (BankAccount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok {
		return BankAccount{}, ErrAccountNotFound
	}
	return a, nil
}

func (m *memoryRepo) FindAccountByCode(_ context.Context, bankCode, currency string) (BankAccount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.accounts {
		if a.BankCode == bankCode && a.Currency == currency {
			return a, nil
		}
	}
	return BankAccount{}, ErrAccountNotFound
}

func (m *memoryRepo) ListAccounts(context.Context) ([]BankAccount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]BankAccount, 0, len(m.accounts))
	for _, a := range m.accounts {
		out = append(out, a)
	}
	return out, nil
}

func (m *memoryRepo) InsertTransactions(_ context.Context, accountID int64, rows []BankTransaction) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inserted := 0
	for _, tx := range rows {
		dup := false
		for _, existing := range m.txs {
			if existing.BankAccountID == accountID && existing.Date.Equal(tx.Date) &&
				existing.Description == tx.Description && existing.Amount == tx.Amount {
				dup = true
				break
			}
		}
		if dup {
			continue
		}
		m.nextID++
		tx.ID = m.nextID
		tx.BankAccountID = accountID
		m.txs[tx.ID] = tx
		inserted++
	}
	return inserted, nil
}

func (m *memoryRepo) ListTransactions(_ context.Context, accountID int64, status TxStatus, _ int) ([]BankTransaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []BankTransaction
	for _, tx := range m.txs {
		if tx.BankAccountID != accountID {
			continue
		}
		if status != "" && tx.Status != status {
			continue
		}
		out = append(out, tx)
	}
	return out, nil
}

func (m *memoryRepo) GetTransaction(_ context.Context, id int64) (BankTransaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx, ok := m.txs[id]
	if !ok {
		return BankTransaction{}, ErrTransactionNotFound
	}
	return tx, nil
}

func (m *memoryRepo) MarkSynced(_ context.Context, txID, journalID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx, ok := m.txs[txID]
	if !ok || tx.Status != TxStatusPending {
		return ErrTransactionNotFound
	}
	tx.Status = TxStatusSynced
	if journalID != 0 {
		tx.JournalID = &journalID
	}
	m.txs[txID] = tx
	return nil
}

func (m *memoryRepo) MarkIgnored(_ context.Context, txID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx, ok := m.txs[txID]
	if !ok || tx.Status != TxStatusPending {
		return ErrTransactionNotFound
	}
	tx.Status = TxStatusIgnored
	m.txs[txID] = tx
	return nil
}

type fakePoster struct {
	mu     sync.Mutex
	calls  int
	linked map[int64]bool
	errFor map[int64]error
}

func (p *fakePoster) PostBankTransaction(_ context.Context, _ BankAccount, tx BankTransaction) (int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if err, ok := p.errFor[tx.ID]; ok {
		return 0, err
	}
	if p.linked[tx.ID] {
		return 0, ledger.ErrSourceAlreadyLinked
	}
	return tx.ID + 1000, nil
}

func testService(t *testing.T) (*Service, *memoryRepo, *fakePoster) {
	t.Helper()
	repo := newMemoryRepo()
	poster := &fakePoster{linked: map[int64]bool{}, errFor: map[int64]error{}}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(logger, repo, poster), repo, poster
}

func seedAccount(t *testing.T, repo *memoryRepo) BankAccount {
	t.Helper()
	account, err := repo.CreateAccount(context.Background(), BankAccount{
		Name: "Operating AED", BankCode: "ENBD", Currency: "AED", LedgerAccountID: 42,
	})
	require.NoError(t, err)
	return account
}

func seedPending(t *testing.T, repo *memoryRepo, accountID int64, n int) []BankTransaction {
	t.Helper()
	rows := make([]BankTransaction, 0, n)
	for i := 0; i < n; i++ {
		rows = append(rows, BankTransaction{
			Date:        time.Date(2025, 3, 1+i, 0, 0, 0, 0, time.UTC),
			Description: "tx",
			Amount:      float64(-10 * (i + 1)),
			Category:    CategoryOther,
			Status:      TxStatusPending,
		})
	}
	_, err := repo.InsertTransactions(context.Background(), accountID, rows)
	require.NoError(t, err)
	pending, err := repo.ListTransactions(context.Background(), accountID, TxStatusPending, 0)
	require.NoError(t, err)
	return pending
}

func TestCreateAccountValidatesCurrency(t *testing.T) {
	svc, _, _ := testService(t)

	_, err := svc.CreateAccount(context.Background(), BankAccount{
		Name: "X", Currency: "NOPE", LedgerAccountID: 1,
	})
	require.ErrorIs(t, err, ErrUnknownCurrency)
}

func TestSyncPostsAllPending(t *testing.T) {
	svc, repo, poster := testService(t)
	account := seedAccount(t, repo)
	seedPending(t, repo, account.ID, 5)

	result, err := svc.Sync(context.Background(), account.ID)
	require.NoError(t, err)
	require.Equal(t, 5, result.Synced)
	require.Equal(t, 5, poster.calls)

	remaining, err := repo.ListTransactions(context.Background(), account.ID, TxStatusPending, 0)
	require.NoError(t, err)
	require.Empty(t, remaining)
}

func TestSyncTreatsLinkedAsSuccess(t *testing.T) {
	svc, repo, poster := testService(t)
	account := seedAccount(t, repo)
	pending := seedPending(t, repo, account.ID, 3)
	poster.linked[pending[0].ID] = true

	result, err := svc.Sync(context.Background(), account.ID)
	require.NoError(t, err)
	require.Equal(t, 2, result.Synced)
	require.Equal(t, 1, result.AlreadyLinked)

	remaining, err := repo.ListTransactions(context.Background(), account.ID, TxStatusPending, 0)
	require.NoError(t, err)
	require.Empty(t, remaining)
}

func TestSyncSkipsUnmappedCategories(t *testing.T) {
	svc, repo, poster := testService(t)
	account := seedAccount(t, repo)
	pending := seedPending(t, repo, account.ID, 2)
	poster.errFor[pending[0].ID] = ledger.ErrMappingNotFound

	result, err := svc.Sync(context.Background(), account.ID)
	require.NoError(t, err)
	require.Equal(t, 1, result.Synced)
	require.Equal(t, 1, result.Failed)

	remaining, err := repo.ListTransactions(context.Background(), account.ID, TxStatusPending, 0)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
}

func TestSyncNothingPending(t *testing.T) {
	svc, repo, _ := testService(t)
	account := seedAccount(t, repo)

	_, err := svc.Sync(context.Background(), account.ID)
	require.ErrorIs(t, err, ErrNothingToSync)
}

func TestImportStatementEndToEnd(t *testing.T) {
	svc, repo, _ := testService(t)
	seedAccount(t, repo)

	buf := buildStatement(t, [][]any{
		{"Emirates NBD Statement of Account"},
		{"Date", "Description", "Debit", "Credit"},
		{"05/03/2025", "TALABAT DUBAI", "54.50", ""},
		{"07/03/2025", "SALARY MARCH", "", "15000.00"},
	})

	result, err := svc.ImportStatement(context.Background(), buf, "", 0)
	require.NoError(t, err)
	require.Equal(t, "ENBD", result.BankCode)
	require.Equal(t, 2, result.Imported)

	txs, err := svc.ListTransactions(context.Background(), result.BankAccountID, TxStatusPending)
	require.NoError(t, err)
	require.Len(t, txs, 2)

	byDesc := map[string]BankTransaction{}
	for _, tx := range txs {
		byDesc[tx.Description] = tx
	}
	require.Equal(t, CategoryFoodBeverage, byDesc["TALABAT DUBAI"].Category)
	require.Equal(t, CategorySalaryIncome, byDesc["SALARY MARCH"].Category)
	require.InDelta(t, -54.50, byDesc["TALABAT DUBAI"].Amount, 0.001)
}

func TestImportStatementIsIdempotent(t *testing.T) {
	svc, repo, _ := testService(t)
	seedAccount(t, repo)

	first := buildStatement(t, [][]any{
		{"Emirates NBD"},
		{"Date", "Description", "Debit", "Credit"},
		{"05/03/2025", "TALABAT DUBAI", "54.50", ""},
	})
	second := buildStatement(t, [][]any{
		{"Emirates NBD"},
		{"Date", "Description", "Debit", "Credit"},
		{"05/03/2025", "TALABAT DUBAI", "54.50", ""},
	})

	r1, err := svc.ImportStatement(context.Background(), first, "", 0)
	require.NoError(t, err)
	require.Equal(t, 1, r1.Imported)

	r2, err := svc.ImportStatement(context.Background(), second, "", 0)
	require.NoError(t, err)
	require.Zero(t, r2.Imported)
	require.Equal(t, 1, r2.Skipped)
}
