package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/meridian-books/meridian/internal/shared"
)

// RepositoryPort abstracts transactional repository behaviour.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// AuditPort records ledger events for compliance.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// InvalidatorPort drops derived report snapshots after balances change.
type InvalidatorPort interface {
	Invalidate(ctx context.Context) error
}

// Service coordinates posting, voiding, and reversing journal entries,
// plus chart of accounts and fiscal period maintenance.
type Service struct {
	repo        RepositoryPort
	audit       AuditPort
	invalidator InvalidatorPort
	now         func() time.Time
}

// NewService constructs the ledger service.
func NewService(repo RepositoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit, now: time.Now}
}

// WithInvalidator attaches a report cache invalidator.
func (s *Service) WithInvalidator(inv InvalidatorPort) *Service {
	s.invalidator = inv
	return s
}

// WithNow overrides the clock for testing.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// PostJournal validates and persists a new journal entry.
func (s *Service) PostJournal(ctx context.Context, input PostingInput) (JournalEntry, error) {
	if err := input.Validate(); err != nil {
		return JournalEntry{}, err
	}
	var entry JournalEntry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		period, err := tx.GetPeriodForUpdate(ctx, input.PeriodID)
		if err != nil {
			return err
		}
		if period.Status == PeriodStatusLocked {
			return ErrPeriodLocked
		}
		if period.Status != PeriodStatusOpen {
			return ErrInvalidPeriod
		}
		if input.Date.Before(period.StartDate) || input.Date.After(period.EndDate) {
			return ErrDateOutOfRange
		}
		inserted, err := tx.InsertJournalEntry(ctx, input)
		if err != nil {
			return err
		}
		if err := tx.InsertJournalLines(ctx, inserted.ID, input.Lines); err != nil {
			return err
		}
		if err := tx.LinkSource(ctx, input.SourceModule, input.SourceID, inserted.ID); err != nil {
			if errors.Is(err, ErrSourceConflict) {
				return ErrSourceAlreadyLinked
			}
			return err
		}
		inserted.Lines = toJournalLines(inserted.ID, input.Lines, s.now())
		entry = inserted
		return nil
	})
	if err != nil {
		return JournalEntry{}, err
	}
	s.record(ctx, shared.AuditLog{
		ActorID:  input.PostedBy,
		Action:   "journal.post",
		Entity:   "journal_entry",
		EntityID: fmt.Sprintf("%d", entry.ID),
		Meta: map[string]any{
			"number":        entry.Number,
			"source_module": input.SourceModule,
			"source_id":     input.SourceID.String(),
		},
		At: s.now(),
	})
	s.invalidate(ctx)
	return entry, nil
}

// VoidJournal marks an existing journal as VOID.
func (s *Service) VoidJournal(ctx context.Context, input VoidInput) (JournalEntry, error) {
	if input.EntryID == 0 {
		return JournalEntry{}, errors.New("ledger: entry id required")
	}
	var entry JournalEntry
	var lines []JournalLine
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, currLines, err := tx.GetJournalWithLines(ctx, input.EntryID)
		if err != nil {
			return err
		}
		period, err := tx.GetPeriodForUpdate(ctx, current.PeriodID)
		if err != nil {
			return err
		}
		if period.Status == PeriodStatusLocked {
			return ErrPeriodLocked
		}
		if period.Status == PeriodStatusClosed {
			return ErrInvalidPeriod
		}
		if current.Status != JournalStatusPosted {
			return ErrInvalidStatus
		}
		if err := tx.UpdateJournalStatus(ctx, current.ID, JournalStatusVoid); err != nil {
			return err
		}
		entry = current
		entry.Status = JournalStatusVoid
		lines = currLines
		return nil
	})
	if err != nil {
		return JournalEntry{}, err
	}
	entry.Lines = lines
	s.record(ctx, shared.AuditLog{
		ActorID:  input.ActorID,
		Action:   "journal.void",
		Entity:   "journal_entry",
		EntityID: fmt.Sprintf("%d", entry.ID),
		Meta:     map[string]any{"reason": input.Reason},
		At:       s.now(),
	})
	s.invalidate(ctx)
	return entry, nil
}

// ReverseJournal creates a reversing journal entry. When the original
// period is no longer open the reversal lands in the next open period.
func (s *Service) ReverseJournal(ctx context.Context, input ReverseInput) (JournalEntry, error) {
	if input.EntryID == 0 {
		return JournalEntry{}, errors.New("ledger: entry id required")
	}
	var reversal JournalEntry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		original, lines, err := tx.GetJournalWithLines(ctx, input.EntryID)
		if err != nil {
			return err
		}
		if original.Status != JournalStatusPosted {
			return ErrInvalidStatus
		}
		period, err := tx.GetPeriodForUpdate(ctx, original.PeriodID)
		if err != nil {
			return err
		}
		targetPeriod := period
		targetDate := original.Date
		if input.TargetDate != nil {
			targetDate = *input.TargetDate
		}
		if period.Status != PeriodStatusOpen {
			if period.Status == PeriodStatusLocked && !input.Override {
				return ErrPeriodLocked
			}
			next, err := tx.GetNextOpenPeriodAfter(ctx, period.EndDate.AddDate(0, 0, 1))
			if err != nil {
				return err
			}
			targetPeriod = next
			targetDate = next.StartDate
		}
		if targetDate.Before(targetPeriod.StartDate) || targetDate.After(targetPeriod.EndDate) {
			return ErrDateOutOfRange
		}
		posting := PostingInput{
			PeriodID:     targetPeriod.ID,
			Date:         targetDate,
			SourceModule: original.SourceModule + ":REVERSAL",
			SourceID:     uuid.New(),
			Memo:         defaultReversalMemo(input.Memo, original.Number),
			PostedBy:     input.ActorID,
			Lines:        reverseLines(lines),
		}
		inserted, err := tx.InsertJournalEntry(ctx, posting)
		if err != nil {
			return err
		}
		if err := tx.InsertJournalLines(ctx, inserted.ID, posting.Lines); err != nil {
			return err
		}
		if err := tx.LinkSource(ctx, posting.SourceModule, posting.SourceID, inserted.ID); err != nil {
			return err
		}
		reversal = inserted
		reversal.Lines = toJournalLines(inserted.ID, posting.Lines, s.now())
		return nil
	})
	if err != nil {
		return JournalEntry{}, err
	}
	s.record(ctx, shared.AuditLog{
		ActorID:  input.ActorID,
		Action:   "journal.reverse",
		Entity:   "journal_entry",
		EntityID: fmt.Sprintf("%d", input.EntryID),
		Meta: map[string]any{
			"reversal_id":     reversal.ID,
			"reversal_number": reversal.Number,
		},
		At: s.now(),
	})
	s.invalidate(ctx)
	return reversal, nil
}

// ListJournalEntries retrieves journal entries, newest first.
func (s *Service) ListJournalEntries(ctx context.Context) ([]JournalEntry, error) {
	var entries []JournalEntry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		entries, err = tx.ListJournalEntries(ctx)
		return err
	})
	return entries, err
}

// GetJournal loads a single entry with its lines.
func (s *Service) GetJournal(ctx context.Context, id int64) (JournalEntry, error) {
	var entry JournalEntry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		got, lines, err := tx.GetJournalWithLines(ctx, id)
		if err != nil {
			return err
		}
		got.Lines = lines
		entry = got
		return nil
	})
	return entry, err
}

// ListAccounts retrieves all chart of accounts entries ordered by code.
func (s *Service) ListAccounts(ctx context.Context) ([]Account, error) {
	var accounts []Account
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		accounts, err = tx.ListAccounts(ctx)
		return err
	})
	return accounts, err
}

// CreateAccount adds a chart of accounts node.
func (s *Service) CreateAccount(ctx context.Context, input AccountInput, actorID int64) (Account, error) {
	if err := input.Validate(); err != nil {
		return Account{}, err
	}
	var account Account
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		account, err = tx.InsertAccount(ctx, input)
		return err
	})
	if err != nil {
		return Account{}, err
	}
	s.record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   "account.create",
		Entity:   "account",
		EntityID: fmt.Sprintf("%d", account.ID),
		Meta:     map[string]any{"code": account.Code, "type": string(account.Type)},
		At:       s.now(),
	})
	return account, nil
}

// UpdateAccount modifies name, parent, and active flag.
func (s *Service) UpdateAccount(ctx context.Context, id int64, input AccountInput, actorID int64) (Account, error) {
	if err := input.Validate(); err != nil {
		return Account{}, err
	}
	var account Account
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		account, err = tx.UpdateAccount(ctx, id, input)
		return err
	})
	if err != nil {
		return Account{}, err
	}
	s.record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   "account.update",
		Entity:   "account",
		EntityID: fmt.Sprintf("%d", id),
		Meta:     map[string]any{"code": account.Code, "is_active": account.IsActive},
		At:       s.now(),
	})
	return account, nil
}

// ListPeriods returns fiscal periods ordered by start date.
func (s *Service) ListPeriods(ctx context.Context) ([]Period, error) {
	var periods []Period
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		periods, err = tx.ListPeriods(ctx)
		return err
	})
	return periods, err
}

// CreatePeriod opens a new fiscal period.
func (s *Service) CreatePeriod(ctx context.Context, input PeriodInput, actorID int64) (Period, error) {
	if err := input.Validate(); err != nil {
		return Period{}, err
	}
	var period Period
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		period, err = tx.InsertPeriod(ctx, input)
		return err
	})
	if err != nil {
		return Period{}, err
	}
	s.record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   "period.create",
		Entity:   "period",
		EntityID: fmt.Sprintf("%d", period.ID),
		Meta:     map[string]any{"code": period.Code},
		At:       s.now(),
	})
	return period, nil
}

// ClosePeriod transitions OPEN -> CLOSED.
func (s *Service) ClosePeriod(ctx context.Context, periodID, actorID int64) error {
	return s.transitionPeriod(ctx, periodID, actorID, PeriodStatusOpen, PeriodStatusClosed, "period.close")
}

// LockPeriod transitions CLOSED -> LOCKED. Locked periods refuse postings
// without an explicit reversal override.
func (s *Service) LockPeriod(ctx context.Context, periodID, actorID int64) error {
	return s.transitionPeriod(ctx, periodID, actorID, PeriodStatusClosed, PeriodStatusLocked, "period.lock")
}

func (s *Service) transitionPeriod(ctx context.Context, periodID, actorID int64, from, to PeriodStatus, action string) error {
	if periodID == 0 {
		return errors.New("ledger: period id required")
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		period, err := tx.GetPeriodForUpdate(ctx, periodID)
		if err != nil {
			return err
		}
		if period.Status != from {
			return ErrInvalidStatus
		}
		return tx.UpdatePeriodStatus(ctx, periodID, to, actorID)
	})
	if err != nil {
		return err
	}
	s.record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "period",
		EntityID: fmt.Sprintf("%d", periodID),
		At:       s.now(),
	})
	return nil
}

func (s *Service) record(ctx context.Context, log shared.AuditLog) {
	if s.audit != nil {
		_ = s.audit.Record(ctx, log)
	}
}

// invalidate is best effort; stale snapshots expire with the cache TTL.
func (s *Service) invalidate(ctx context.Context) {
	if s.invalidator != nil {
		_ = s.invalidator.Invalidate(ctx)
	}
}

func reverseLines(lines []JournalLine) []PostingLineInput {
	out := make([]PostingLineInput, 0, len(lines))
	for _, line := range lines {
		out = append(out, PostingLineInput{
			AccountID: line.AccountID,
			Debit:     line.Credit,
			Credit:    line.Debit,
		})
	}
	return out
}

func toJournalLines(entryID int64, lines []PostingLineInput, ts time.Time) []JournalLine {
	out := make([]JournalLine, 0, len(lines))
	for _, line := range lines {
		out = append(out, JournalLine{
			JournalID: entryID,
			AccountID: line.AccountID,
			Debit:     line.Debit,
			Credit:    line.Credit,
			CreatedAt: ts,
			UpdatedAt: ts,
		})
	}
	return out
}

func defaultReversalMemo(memo string, number int64) string {
	if memo != "" {
		return memo
	}
	return fmt.Sprintf("Reversal of JE %d", number)
}
