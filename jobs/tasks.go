package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"

	// TaskLedgerIntegrity verifies that every period's journals balance.
	TaskLedgerIntegrity = "ledger:integrity"
	// TaskBankSync drains pending bank transactions into the ledger.
	TaskBankSync = "banking:sync"
	// TaskIdempotencyCleanup prunes expired idempotency keys.
	TaskIdempotencyCleanup = "shared:idempotency_cleanup"
)

// BankSyncPayload selects the bank account to sync. A zero account ID
// syncs every account.
type BankSyncPayload struct {
	BankAccountID int64 `json:"bank_account_id"`
}

// NewLedgerIntegrityTask constructs the nightly integrity check task.
func NewLedgerIntegrityTask() *asynq.Task {
	return asynq.NewTask(TaskLedgerIntegrity, nil)
}

// NewBankSyncTask constructs a bank sync task.
func NewBankSyncTask(payload BankSyncPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskBankSync, data), nil
}

// NewIdempotencyCleanupTask constructs the weekly cleanup task.
func NewIdempotencyCleanupTask() *asynq.Task {
	return asynq.NewTask(TaskIdempotencyCleanup, nil)
}
