package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrSourceConflict surfaces the uq_source_links constraint.
var ErrSourceConflict = errors.New("ledger: source link conflict")

// TxRepository is the transactional surface used by the service.
type TxRepository interface {
	ListAccounts(ctx context.Context) ([]Account, error)
	InsertAccount(ctx context.Context, input AccountInput) (Account, error)
	UpdateAccount(ctx context.Context, id int64, input AccountInput) (Account, error)
	ListJournalEntries(ctx context.Context) ([]JournalEntry, error)
	InsertJournalEntry(ctx context.Context, input PostingInput) (JournalEntry, error)
	InsertJournalLines(ctx context.Context, journalID int64, lines []PostingLineInput) error
	LinkSource(ctx context.Context, module string, sourceID uuid.UUID, journalID int64) error
	GetJournalWithLines(ctx context.Context, id int64) (JournalEntry, []JournalLine, error)
	UpdateJournalStatus(ctx context.Context, id int64, status JournalStatus) error
	ListPeriods(ctx context.Context) ([]Period, error)
	InsertPeriod(ctx context.Context, input PeriodInput) (Period, error)
	GetPeriodForUpdate(ctx context.Context, id int64) (Period, error)
	GetNextOpenPeriodAfter(ctx context.Context, date time.Time) (Period, error)
	UpdatePeriodStatus(ctx context.Context, id int64, status PeriodStatus, actorID int64) error
}

// Repository wraps a pgx pool and satisfies RepositoryPort.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs the postgres repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// WithTx runs fn inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return fmt.Errorf("ledger: begin tx: %w", err)
	}
	repo := &txRepository{tx: tx}
	if err := fn(ctx, repo); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("ledger: commit tx: %w", err)
	}
	return nil
}

type txRepository struct {
	tx pgx.Tx
}

const accountColumns = `id, code, name, type, parent_id, is_active, created_at, updated_at`

func scanAccount(row pgx.Row) (Account, error) {
	var a Account
	err := row.Scan(&a.ID, &a.Code, &a.Name, &a.Type, &a.ParentID, &a.IsActive, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

const journalColumns = `id, number, period_id, date, source_module, source_id, memo, posted_by, posted_at, status, created_at, updated_at`

func scanJournal(row pgx.Row) (JournalEntry, error) {
	var e JournalEntry
	var postedBy *int64
	err := row.Scan(&e.ID, &e.Number, &e.PeriodID, &e.Date, &e.SourceModule, &e.SourceID,
		&e.Memo, &postedBy, &e.PostedAt, &e.Status, &e.CreatedAt, &e.UpdatedAt)
	if postedBy != nil {
		e.PostedBy = *postedBy
	}
	return e, err
}

const periodColumns = `id, code, start_date, end_date, status, closed_at, locked_by, created_at, updated_at`

func scanPeriod(row pgx.Row) (Period, error) {
	var p Period
	err := row.Scan(&p.ID, &p.Code, &p.StartDate, &p.EndDate, &p.Status, &p.ClosedAt, &p.LockedBy, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (r *txRepository) ListAccounts(ctx context.Context) ([]Account, error) {
	rows, err := r.tx.Query(ctx, `SELECT `+accountColumns+` FROM accounts ORDER BY code`)
	if err != nil {
		return nil, fmt.Errorf("ledger: list accounts: %w", err)
	}
	defer rows.Close()
	var out []Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("ledger: scan account: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *txRepository) InsertAccount(ctx context.Context, input AccountInput) (Account, error) {
	row := r.tx.QueryRow(ctx, `
		INSERT INTO accounts (code, name, type, parent_id, is_active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+accountColumns,
		input.Code, input.Name, string(input.Type), input.ParentID, input.IsActive)
	a, err := scanAccount(row)
	if err != nil {
		if isUniqueViolation(err) {
			return Account{}, ErrDuplicateCode
		}
		return Account{}, fmt.Errorf("ledger: insert account: %w", err)
	}
	return a, nil
}

func (r *txRepository) UpdateAccount(ctx context.Context, id int64, input AccountInput) (Account, error) {
	row := r.tx.QueryRow(ctx, `
		UPDATE accounts
		SET name = $2, parent_id = $3, is_active = $4, updated_at = NOW()
		WHERE id = $1
		RETURNING `+accountColumns,
		id, input.Name, input.ParentID, input.IsActive)
	a, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, ErrAccountNotFound
		}
		return Account{}, fmt.Errorf("ledger: update account: %w", err)
	}
	return a, nil
}

func (r *txRepository) ListJournalEntries(ctx context.Context) ([]JournalEntry, error) {
	rows, err := r.tx.Query(ctx, `SELECT `+journalColumns+` FROM journal_entries ORDER BY id DESC LIMIT 500`)
	if err != nil {
		return nil, fmt.Errorf("ledger: list journals: %w", err)
	}
	defer rows.Close()
	var out []JournalEntry
	for rows.Next() {
		e, err := scanJournal(rows)
		if err != nil {
			return nil, fmt.Errorf("ledger: scan journal: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *txRepository) InsertJournalEntry(ctx context.Context, input PostingInput) (JournalEntry, error) {
	row := r.tx.QueryRow(ctx, `
		INSERT INTO journal_entries (number, period_id, date, source_module, source_id, memo, posted_by, posted_at, status)
		VALUES (nextval('journal_number_seq'), $1, $2, $3, $4, $5, $6, NOW(), 'POSTED')
		RETURNING id, number, posted_at, created_at, updated_at`,
		input.PeriodID, input.Date, input.SourceModule, input.SourceID, input.Memo, nullInt(input.PostedBy))
	entry := JournalEntry{
		PeriodID:     input.PeriodID,
		Date:         input.Date,
		SourceModule: input.SourceModule,
		SourceID:     input.SourceID,
		Memo:         input.Memo,
		PostedBy:     input.PostedBy,
		Status:       JournalStatusPosted,
	}
	if err := row.Scan(&entry.ID, &entry.Number, &entry.PostedAt, &entry.CreatedAt, &entry.UpdatedAt); err != nil {
		return JournalEntry{}, fmt.Errorf("ledger: insert journal: %w", err)
	}
	return entry, nil
}

func (r *txRepository) InsertJournalLines(ctx context.Context, journalID int64, lines []PostingLineInput) error {
	for _, line := range lines {
		_, err := r.tx.Exec(ctx, `
			INSERT INTO journal_lines (je_id, account_id, debit, credit)
			VALUES ($1, $2, $3, $4)`,
			journalID, line.AccountID, toNumeric(line.Debit), toNumeric(line.Credit))
		if err != nil {
			return fmt.Errorf("ledger: insert line: %w", err)
		}
	}
	return nil
}

func (r *txRepository) LinkSource(ctx context.Context, module string, sourceID uuid.UUID, journalID int64) error {
	_, err := r.tx.Exec(ctx, `
		INSERT INTO source_links (source_module, source_id, je_id)
		VALUES ($1, $2, $3)`,
		module, sourceID, journalID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.ConstraintName == "uq_source_links" {
			return ErrSourceConflict
		}
		return fmt.Errorf("ledger: link source: %w", err)
	}
	return nil
}

func (r *txRepository) GetJournalWithLines(ctx context.Context, id int64) (JournalEntry, []JournalLine, error) {
	entry, err := scanJournal(r.tx.QueryRow(ctx, `SELECT `+journalColumns+` FROM journal_entries WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return JournalEntry{}, nil, ErrJournalNotFound
		}
		return JournalEntry{}, nil, fmt.Errorf("ledger: get journal: %w", err)
	}
	rows, err := r.tx.Query(ctx, `
		SELECT id, je_id, account_id, debit, credit, created_at, updated_at
		FROM journal_lines WHERE je_id = $1 ORDER BY id`, id)
	if err != nil {
		return JournalEntry{}, nil, fmt.Errorf("ledger: get lines: %w", err)
	}
	defer rows.Close()
	var lines []JournalLine
	for rows.Next() {
		var l JournalLine
		if err := rows.Scan(&l.ID, &l.JournalID, &l.AccountID, &l.Debit, &l.Credit, &l.CreatedAt, &l.UpdatedAt); err != nil {
			return JournalEntry{}, nil, fmt.Errorf("ledger: scan line: %w", err)
		}
		lines = append(lines, l)
	}
	return entry, lines, rows.Err()
}

func (r *txRepository) UpdateJournalStatus(ctx context.Context, id int64, status JournalStatus) error {
	tag, err := r.tx.Exec(ctx, `
		UPDATE journal_entries SET status = $2, updated_at = NOW() WHERE id = $1`,
		id, string(status))
	if err != nil {
		return fmt.Errorf("ledger: update journal status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrJournalNotFound
	}
	return nil
}

func (r *txRepository) ListPeriods(ctx context.Context) ([]Period, error) {
	rows, err := r.tx.Query(ctx, `SELECT `+periodColumns+` FROM periods ORDER BY start_date`)
	if err != nil {
		return nil, fmt.Errorf("ledger: list periods: %w", err)
	}
	defer rows.Close()
	var out []Period
	for rows.Next() {
		p, err := scanPeriod(rows)
		if err != nil {
			return nil, fmt.Errorf("ledger: scan period: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *txRepository) InsertPeriod(ctx context.Context, input PeriodInput) (Period, error) {
	row := r.tx.QueryRow(ctx, `
		INSERT INTO periods (code, start_date, end_date, status)
		VALUES ($1, $2, $3, 'OPEN')
		RETURNING `+periodColumns,
		input.Code, input.StartDate, input.EndDate)
	p, err := scanPeriod(row)
	if err != nil {
		if isUniqueViolation(err) {
			return Period{}, ErrDuplicateCode
		}
		return Period{}, fmt.Errorf("ledger: insert period: %w", err)
	}
	return p, nil
}

func (r *txRepository) GetPeriodForUpdate(ctx context.Context, id int64) (Period, error) {
	p, err := scanPeriod(r.tx.QueryRow(ctx, `SELECT `+periodColumns+` FROM periods WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Period{}, ErrInvalidPeriod
		}
		return Period{}, fmt.Errorf("ledger: lock period: %w", err)
	}
	return p, nil
}

func (r *txRepository) GetNextOpenPeriodAfter(ctx context.Context, date time.Time) (Period, error) {
	p, err := scanPeriod(r.tx.QueryRow(ctx, `
		SELECT `+periodColumns+` FROM periods
		WHERE status = 'OPEN' AND start_date >= $1
		ORDER BY start_date LIMIT 1`, date))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Period{}, ErrInvalidPeriod
		}
		return Period{}, fmt.Errorf("ledger: next open period: %w", err)
	}
	return p, nil
}

func (r *txRepository) UpdatePeriodStatus(ctx context.Context, id int64, status PeriodStatus, actorID int64) error {
	var tag pgconn.CommandTag
	var err error
	switch status {
	case PeriodStatusClosed:
		tag, err = r.tx.Exec(ctx, `
			UPDATE periods SET status = 'CLOSED', closed_at = NOW(), updated_at = NOW() WHERE id = $1`, id)
	case PeriodStatusLocked:
		tag, err = r.tx.Exec(ctx, `
			UPDATE periods SET status = 'LOCKED', locked_by = $2, updated_at = NOW() WHERE id = $1`, id, actorID)
	default:
		tag, err = r.tx.Exec(ctx, `
			UPDATE periods SET status = $2, updated_at = NOW() WHERE id = $1`, id, string(status))
	}
	if err != nil {
		return fmt.Errorf("ledger: update period status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrInvalidPeriod
	}
	return nil
}

// FindOpenPeriodByDate resolves the OPEN period containing date. Used by
// integration hooks outside of posting transactions.
func (r *Repository) FindOpenPeriodByDate(ctx context.Context, date time.Time) (Period, error) {
	p, err := scanPeriod(r.pool.QueryRow(ctx, `
		SELECT `+periodColumns+` FROM periods
		WHERE status = 'OPEN' AND $1 BETWEEN start_date AND end_date
		ORDER BY start_date LIMIT 1`, date))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Period{}, ErrInvalidPeriod
		}
		return Period{}, fmt.Errorf("ledger: find period: %w", err)
	}
	return p, nil
}

// FindJournalBySource resolves the journal already linked to a source
// document. Lets callers recover a posting whose result was lost in
// transit, since source links are unique per document.
func (r *Repository) FindJournalBySource(ctx context.Context, module string, sourceID uuid.UUID) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		SELECT je_id FROM source_links
		WHERE source_module = $1 AND source_id = $2`,
		module, sourceID).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrJournalNotFound
		}
		return 0, fmt.Errorf("ledger: find journal by source: %w", err)
	}
	return id, nil
}

// GetAccountMapping resolves a module/key pair to an account id.
func (r *Repository) GetAccountMapping(ctx context.Context, module, key string) (AccountMapping, error) {
	var m AccountMapping
	err := r.pool.QueryRow(ctx, `
		SELECT module, key, account_id, created_at, updated_at
		FROM account_mappings WHERE module = $1 AND key = $2`,
		strings.ToUpper(module), key).
		Scan(&m.Module, &m.Key, &m.AccountID, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return AccountMapping{}, ErrMappingNotFound
		}
		return AccountMapping{}, fmt.Errorf("ledger: get mapping: %w", err)
	}
	return m, nil
}

// UpsertAccountMapping creates or replaces a mapping row.
func (r *Repository) UpsertAccountMapping(ctx context.Context, m AccountMapping) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO account_mappings (module, key, account_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (module, key) DO UPDATE SET account_id = EXCLUDED.account_id, updated_at = NOW()`,
		strings.ToUpper(m.Module), m.Key, m.AccountID)
	if err != nil {
		return fmt.Errorf("ledger: upsert mapping: %w", err)
	}
	return nil
}

// ListAccountMappings returns every mapping ordered by module then key.
func (r *Repository) ListAccountMappings(ctx context.Context) ([]AccountMapping, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT module, key, account_id, created_at, updated_at
		FROM account_mappings ORDER BY module, key`)
	if err != nil {
		return nil, fmt.Errorf("ledger: list mappings: %w", err)
	}
	defer rows.Close()
	var out []AccountMapping
	for rows.Next() {
		var m AccountMapping
		if err := rows.Scan(&m.Module, &m.Key, &m.AccountID, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, fmt.Errorf("ledger: scan mapping: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func nullInt(v int64) *int64 {
	if v == 0 {
		return nil
	}
	return &v
}

func toNumeric(v float64) string {
	return fmt.Sprintf("%.2f", v)
}
