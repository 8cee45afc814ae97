package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/meridian-books/meridian/internal/banking"
)

// BankSyncJob posts pending bank transactions into the ledger.
type BankSyncJob struct {
	service *banking.Service
	logger  *slog.Logger
}

// NewBankSyncJob constructs the sync job.
func NewBankSyncJob(service *banking.Service, logger *slog.Logger) *BankSyncJob {
	return &BankSyncJob{service: service, logger: logger}
}

// Handle syncs one account, or every account when the payload has no
// account ID. An empty queue is not an error.
func (j *BankSyncJob) Handle(ctx context.Context, t *asynq.Task) error {
	var payload BankSyncPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}

	accountIDs := []int64{payload.BankAccountID}
	if payload.BankAccountID == 0 {
		accounts, err := j.service.ListAccounts(ctx)
		if err != nil {
			return err
		}
		accountIDs = accountIDs[:0]
		for _, account := range accounts {
			accountIDs = append(accountIDs, account.ID)
		}
	}

	for _, id := range accountIDs {
		result, err := j.service.Sync(ctx, id)
		if errors.Is(err, banking.ErrNothingToSync) {
			continue
		}
		if err != nil {
			return err
		}
		j.logger.Info("scheduled bank sync",
			slog.Int64("bank_account_id", id),
			slog.Int("synced", result.Synced),
			slog.Int("failed", result.Failed))
	}
	return nil
}
