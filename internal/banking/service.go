package banking

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/meridian-books/meridian/internal/ledger"
)

// Poster turns a bank transaction into a balanced journal entry. It
// returns ledger.ErrSourceAlreadyLinked when the transaction was synced
// before, which the sync loop treats as success.
type Poster interface {
	PostBankTransaction(ctx context.Context, account BankAccount, tx BankTransaction) (int64, error)
}

// Metrics counts transactions pushed into the ledger.
type Metrics interface {
	BankTransactionsSynced(n int)
}

// Service manages bank accounts, statement import, and ledger sync.
type Service struct {
	logger  *slog.Logger
	repo    Repository
	poster  Poster
	metrics Metrics
}

// NewService constructs the banking service.
func NewService(logger *slog.Logger, repo Repository, poster Poster) *Service {
	return &Service{logger: logger, repo: repo, poster: poster}
}

// WithMetrics attaches a sync counter.
func (s *Service) WithMetrics(m Metrics) *Service {
	s.metrics = m
	return s
}

// CreateAccount registers a bank account tied to a ledger account.
func (s *Service) CreateAccount(ctx context.Context, account BankAccount) (BankAccount, error) {
	if account.Name == "" {
		return BankAccount{}, errors.New("banking: account name required")
	}
	if !ValidCurrency(account.Currency) {
		return BankAccount{}, fmt.Errorf("%w: %s", ErrUnknownCurrency, account.Currency)
	}
	if account.LedgerAccountID <= 0 {
		return BankAccount{}, errors.New("banking: ledger account required")
	}
	if account.BankCode == "" {
		account.BankCode = UnknownBank.Code
	}
	return s.repo.CreateAccount(ctx, account)
}

// ListAccounts returns every registered bank account.
func (s *Service) ListAccounts(ctx context.Context) ([]BankAccount, error) {
	return s.repo.ListAccounts(ctx)
}

// ImportStatement parses an XLSX statement, categorises each line, and
// stores the transactions as PENDING under the matching bank account.
// When accountID is zero the account is resolved from the detected bank
// code and currency.
func (s *Service) ImportStatement(ctx context.Context, r io.Reader, hint string, accountID int64) (ImportResult, error) {
	st, err := ParseStatement(r, hint)
	if err != nil {
		return ImportResult{}, err
	}

	var account BankAccount
	if accountID > 0 {
		account, err = s.repo.GetAccount(ctx, accountID)
	} else {
		account, err = s.repo.FindAccountByCode(ctx, st.Bank.Code, st.Bank.Currency)
	}
	if err != nil {
		return ImportResult{}, err
	}

	txs := make([]BankTransaction, 0, len(st.Rows))
	for _, row := range st.Rows {
		merchant := ExtractMerchant(row.Description)
		txs = append(txs, BankTransaction{
			BankAccountID: account.ID,
			Date:          row.Date,
			Description:   row.Description,
			Merchant:      merchant,
			Amount:        row.Amount,
			Category:      Categorize(merchant),
			Status:        TxStatusPending,
		})
	}

	inserted, err := s.repo.InsertTransactions(ctx, account.ID, txs)
	if err != nil {
		return ImportResult{}, err
	}

	s.logger.Info("statement imported",
		slog.String("bank", st.Bank.Code),
		slog.Int64("bank_account_id", account.ID),
		slog.Int("imported", inserted),
		slog.Int("skipped", st.Skipped+len(txs)-inserted))

	return ImportResult{
		BankName:      st.Bank.DisplayName,
		BankCode:      st.Bank.Code,
		Currency:      st.Bank.Currency,
		Imported:      inserted,
		Skipped:       st.Skipped + len(txs) - inserted,
		BankAccountID: account.ID,
	}, nil
}

// ListTransactions lists transactions for an account, optionally by status.
func (s *Service) ListTransactions(ctx context.Context, accountID int64, status TxStatus) ([]BankTransaction, error) {
	return s.repo.ListTransactions(ctx, accountID, status, 0)
}

// Ignore excludes a pending transaction from sync.
func (s *Service) Ignore(ctx context.Context, txID int64) error {
	return s.repo.MarkIgnored(ctx, txID)
}

const syncWorkers = 4

// Sync drains PENDING transactions for the account, posting each into
// the ledger. Transactions whose source is already linked are marked
// SYNCED without a new entry.
func (s *Service) Sync(ctx context.Context, accountID int64) (SyncResult, error) {
	account, err := s.repo.GetAccount(ctx, accountID)
	if err != nil {
		return SyncResult{}, err
	}
	pending, err := s.repo.ListTransactions(ctx, accountID, TxStatusPending, 0)
	if err != nil {
		return SyncResult{}, err
	}
	if len(pending) == 0 {
		return SyncResult{}, ErrNothingToSync
	}

	var mu sync.Mutex
	var result SyncResult

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(syncWorkers)
	for _, tx := range pending {
		tx := tx
		g.Go(func() error {
			journalID, err := s.poster.PostBankTransaction(ctx, account, tx)
			switch {
			case err == nil:
				if err := s.repo.MarkSynced(ctx, tx.ID, journalID); err != nil {
					return err
				}
				mu.Lock()
				result.Synced++
				mu.Unlock()
			case errors.Is(err, ledger.ErrSourceAlreadyLinked):
				if err := s.repo.MarkSynced(ctx, tx.ID, journalID); err != nil && !errors.Is(err, ErrTransactionNotFound) {
					return err
				}
				mu.Lock()
				result.AlreadyLinked++
				mu.Unlock()
			case errors.Is(err, ledger.ErrMappingNotFound):
				s.logger.Warn("bank sync skipped, no account mapping",
					slog.Int64("tx_id", tx.ID), slog.String("category", tx.Category))
				mu.Lock()
				result.Failed++
				mu.Unlock()
			default:
				return fmt.Errorf("banking: sync tx %d: %w", tx.ID, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return result, err
	}

	if s.metrics != nil && result.Synced > 0 {
		s.metrics.BankTransactionsSynced(result.Synced)
	}
	s.logger.Info("bank sync complete",
		slog.Int64("bank_account_id", accountID),
		slog.Int("synced", result.Synced),
		slog.Int("already_linked", result.AlreadyLinked),
		slog.Int("failed", result.Failed))
	return result, nil
}
