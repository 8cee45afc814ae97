package jobs

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
)

// journal_lines references its entry through je_id, the column the
// posting path writes. Keep this query in sync with that schema.
const integrityQuery = `
	SELECT je.period_id, COALESCE(SUM(jl.debit), 0), COALESCE(SUM(jl.credit), 0)
	FROM journal_entries je
	JOIN journal_lines jl ON jl.je_id = je.id
	WHERE je.status = 'POSTED'
	GROUP BY je.period_id
	ORDER BY je.period_id`

// LedgerIntegrityJob checks that posted journals balance per period.
type LedgerIntegrityJob struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewLedgerIntegrityJob constructs the integrity job.
func NewLedgerIntegrityJob(pool *pgxpool.Pool, logger *slog.Logger) *LedgerIntegrityJob {
	return &LedgerIntegrityJob{pool: pool, logger: logger}
}

// Handle runs the check. A period whose POSTED debits and credits
// diverge by more than half a cent fails the task so it alerts on retry
// exhaustion.
func (j *LedgerIntegrityJob) Handle(ctx context.Context, _ *asynq.Task) error {
	rows, err := j.pool.Query(ctx, integrityQuery)
	if err != nil {
		return fmt.Errorf("jobs: ledger integrity query: %w", err)
	}
	defer rows.Close()

	var broken []int64
	checked := 0
	for rows.Next() {
		var periodID int64
		var debit, credit float64
		if err := rows.Scan(&periodID, &debit, &credit); err != nil {
			return err
		}
		checked++
		if diff := debit - credit; diff > 0.005 || diff < -0.005 {
			broken = append(broken, periodID)
			j.logger.Error("period out of balance",
				slog.Int64("period_id", periodID),
				slog.Float64("debit", debit),
				slog.Float64("credit", credit))
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}
	if len(broken) > 0 {
		return fmt.Errorf("jobs: %d period(s) out of balance: %v", len(broken), broken)
	}
	j.logger.Info("ledger integrity check passed", slog.Int("periods", checked))
	return nil
}
