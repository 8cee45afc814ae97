package banking

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists bank accounts and transactions.
type Repository interface {
	CreateAccount(ctx context.Context, account BankAccount) (BankAccount, error)
	GetAccount(ctx context.Context, id int64) (BankAccount, error)
	FindAccountByCode(ctx context.Context, bankCode, currency string) (BankAccount, error)
	ListAccounts(ctx context.Context) ([]BankAccount, error)
	InsertTransactions(ctx context.Context, accountID int64, rows []BankTransaction) (int, error)
	ListTransactions(ctx context.Context, accountID int64, status TxStatus, limit int) ([]BankTransaction, error)
	GetTransaction(ctx context.Context, id int64) (BankTransaction, error)
	MarkSynced(ctx context.Context, txID, journalID int64) error
	MarkIgnored(ctx context.Context, txID int64) error
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs the postgres repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const accountColumns = `id, name, bank_code, currency, ledger_account_id, created_at, updated_at`

func scanAccount(row pgx.Row) (BankAccount, error) {
	var a BankAccount
	err := row.Scan(&a.ID, &a.Name, &a.BankCode, &a.Currency, &a.LedgerAccountID, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

func (r *repository) CreateAccount(ctx context.Context, account BankAccount) (BankAccount, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO bank_accounts (name, bank_code, currency, ledger_account_id)
		VALUES ($1, $2, $3, $4)
		RETURNING `+accountColumns,
		account.Name, account.BankCode, account.Currency, account.LedgerAccountID)
	created, err := scanAccount(row)
	if err != nil {
		return BankAccount{}, fmt.Errorf("banking: create account: %w", err)
	}
	return created, nil
}

func (r *repository) GetAccount(ctx context.Context, id int64) (BankAccount, error) {
	a, err := scanAccount(r.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM bank_accounts WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return BankAccount{}, ErrAccountNotFound
		}
		return BankAccount{}, fmt.Errorf("banking: get account: %w", err)
	}
	return a, nil
}

func (r *repository) FindAccountByCode(ctx context.Context, bankCode, currency string) (BankAccount, error) {
	a, err := scanAccount(r.pool.QueryRow(ctx, `
		SELECT `+accountColumns+` FROM bank_accounts
		WHERE bank_code = $1 AND currency = $2
		ORDER BY id LIMIT 1`, bankCode, currency))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return BankAccount{}, ErrAccountNotFound
		}
		return BankAccount{}, fmt.Errorf("banking: find account: %w", err)
	}
	return a, nil
}

func (r *repository) ListAccounts(ctx context.Context) ([]BankAccount, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+accountColumns+` FROM bank_accounts ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("banking: list accounts: %w", err)
	}
	defer rows.Close()
	var out []BankAccount
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("banking: scan account: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

const txColumns = `id, bank_account_id, date, description, merchant, amount, category, status, journal_id, created_at, updated_at`

func scanTransaction(row pgx.Row) (BankTransaction, error) {
	var t BankTransaction
	err := row.Scan(&t.ID, &t.BankAccountID, &t.Date, &t.Description, &t.Merchant, &t.Amount, &t.Category, &t.Status, &t.JournalID, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

// InsertTransactions bulk inserts statement lines. Duplicate lines
// (same account, date, description, amount) are skipped via the
// uq_bank_transactions constraint.
func (r *repository) InsertTransactions(ctx context.Context, accountID int64, rows []BankTransaction) (int, error) {
	inserted := 0
	for _, tx := range rows {
		tag, err := r.pool.Exec(ctx, `
			INSERT INTO bank_transactions (bank_account_id, date, description, merchant, amount, category, status)
			VALUES ($1, $2, $3, $4, $5, $6, 'PENDING')
			ON CONFLICT ON CONSTRAINT uq_bank_transactions DO NOTHING`,
			accountID, tx.Date, tx.Description, tx.Merchant, tx.Amount, tx.Category)
		if err != nil {
			return inserted, fmt.Errorf("banking: insert transaction: %w", err)
		}
		inserted += int(tag.RowsAffected())
	}
	return inserted, nil
}

func (r *repository) ListTransactions(ctx context.Context, accountID int64, status TxStatus, limit int) ([]BankTransaction, error) {
	if limit <= 0 {
		limit = 500
	}
	query := `SELECT ` + txColumns + ` FROM bank_transactions WHERE bank_account_id = $1`
	args := []any{accountID}
	if status != "" {
		query += ` AND status = $2`
		args = append(args, string(status))
	}
	query += fmt.Sprintf(` ORDER BY date DESC, id DESC LIMIT %d`, limit)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("banking: list transactions: %w", err)
	}
	defer rows.Close()
	var out []BankTransaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("banking: scan transaction: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *repository) GetTransaction(ctx context.Context, id int64) (BankTransaction, error) {
	t, err := scanTransaction(r.pool.QueryRow(ctx, `SELECT `+txColumns+` FROM bank_transactions WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return BankTransaction{}, ErrTransactionNotFound
		}
		return BankTransaction{}, fmt.Errorf("banking: get transaction: %w", err)
	}
	return t, nil
}

func (r *repository) MarkSynced(ctx context.Context, txID, journalID int64) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE bank_transactions
		SET status = 'SYNCED', journal_id = NULLIF($2, 0), updated_at = NOW()
		WHERE id = $1 AND status = 'PENDING'`, txID, journalID)
	if err != nil {
		return fmt.Errorf("banking: mark synced: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrTransactionNotFound
	}
	return nil
}

func (r *repository) MarkIgnored(ctx context.Context, txID int64) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE bank_transactions
		SET status = 'IGNORED', updated_at = NOW()
		WHERE id = $1 AND status = 'PENDING'`, txID)
	if err != nil {
		return fmt.Errorf("banking: mark ignored: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrTransactionNotFound
	}
	return nil
}
