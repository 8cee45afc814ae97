package reports

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository aggregates posted journal lines into account balances.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs the reports repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// AccountBalances returns per-account movement within [from, to] plus the
// opening balance accumulated before from. Only POSTED entries count.
func (r *Repository) AccountBalances(ctx context.Context, from, to time.Time) ([]AccountBalance, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT
			a.code,
			a.name,
			a.type,
			COALESCE(SUM(CASE WHEN je.date < $1 THEN jl.debit - jl.credit ELSE 0 END), 0) AS opening,
			COALESCE(SUM(CASE WHEN je.date BETWEEN $1 AND $2 THEN jl.debit ELSE 0 END), 0) AS debit,
			COALESCE(SUM(CASE WHEN je.date BETWEEN $1 AND $2 THEN jl.credit ELSE 0 END), 0) AS credit
		FROM accounts a
		LEFT JOIN journal_lines jl ON jl.account_id = a.id
		LEFT JOIN journal_entries je ON je.id = jl.je_id AND je.status = 'POSTED' AND je.date <= $2
		WHERE a.is_active
		GROUP BY a.code, a.name, a.type
		ORDER BY a.code`, from, to)
	if err != nil {
		return nil, fmt.Errorf("reports: account balances: %w", err)
	}
	defer rows.Close()

	var out []AccountBalance
	for rows.Next() {
		var b AccountBalance
		if err := rows.Scan(&b.Code, &b.Name, &b.Type, &b.Opening, &b.Debit, &b.Credit); err != nil {
			return nil, fmt.Errorf("reports: scan balance: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}
