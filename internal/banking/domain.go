package banking

import (
	"errors"
	"time"
)

// TxStatus tracks a bank transaction through the ledger sync pipeline.
type TxStatus string

const (
	TxStatusPending TxStatus = "PENDING"
	TxStatusSynced  TxStatus = "SYNCED"
	TxStatusIgnored TxStatus = "IGNORED"
)

// BankAccount links a real-world bank account to a ledger account.
type BankAccount struct {
	ID              int64     `json:"id"`
	Name            string    `json:"name"`
	BankCode        string    `json:"bank_code"`
	Currency        string    `json:"currency"`
	LedgerAccountID int64     `json:"ledger_account_id"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// BankTransaction is one statement line. Amount is signed: credits to
// the account are positive, debits negative.
type BankTransaction struct {
	ID            int64     `json:"id"`
	BankAccountID int64     `json:"bank_account_id"`
	Date          time.Time `json:"date"`
	Description   string    `json:"description"`
	Merchant      string    `json:"merchant"`
	Amount        float64   `json:"amount"`
	Category      string    `json:"category"`
	Status        TxStatus  `json:"status"`
	JournalID     *int64    `json:"journal_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// StatementRow is a parsed line before persistence.
type StatementRow struct {
	Date        time.Time
	Description string
	Amount      float64
}

// ImportResult summarises a statement import.
type ImportResult struct {
	BankName      string `json:"bank_name"`
	BankCode      string `json:"bank_code"`
	Currency      string `json:"currency"`
	Imported      int    `json:"imported"`
	Skipped       int    `json:"skipped"`
	BankAccountID int64  `json:"bank_account_id"`
}

// SyncResult summarises a ledger sync run.
type SyncResult struct {
	Synced        int `json:"synced"`
	AlreadyLinked int `json:"already_linked"`
	Failed        int `json:"failed"`
}

var (
	ErrAccountNotFound     = errors.New("banking: bank account not found")
	ErrTransactionNotFound = errors.New("banking: transaction not found")
	ErrNoHeaderRow         = errors.New("banking: no header row found in statement")
	ErrUnknownCurrency     = errors.New("banking: unknown currency code")
	ErrNothingToSync       = errors.New("banking: no pending transactions")
)
