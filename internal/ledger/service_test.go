package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/meridian-books/meridian/internal/shared"
)

type memoryRepo struct {
	accounts map[int64]Account
	periods  map[int64]Period
	journals map[int64]JournalEntry
	lines    map[int64][]JournalLine
	links    map[string]int64

	nextAccountID int64
	nextJournalID int64
	nextPeriodID  int64
	nextNumber    int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		accounts: map[int64]Account{},
		periods:  map[int64]Period{},
		journals: map[int64]JournalEntry{},
		lines:    map[int64][]JournalLine{},
		links:    map[string]int64{},
	}
}

func (m *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, m)
}

func (m *memoryRepo) ListAccounts(context.Context) ([]Account, error) {
	out := make([]Account, 0, len(m.accounts))
	for _, a := range m.accounts {
		out = append(out, a)
	}
	return out, nil
}

func (m *memoryRepo) InsertAccount(_ context.Context, input AccountInput) (Account, error) {
	for _, a := range m.accounts {
		if a.Code == input.Code {
			return Account{}, ErrDuplicateCode
		}
	}
	m.nextAccountID++
	a := Account{ID: m.nextAccountID, Code: input.Code, Name: input.Name, Type: input.Type, ParentID: input.ParentID, IsActive: input.IsActive}
	m.accounts[a.ID] = a
	return a, nil
}

func (m *memoryRepo) UpdateAccount(_ context.Context, id int64, input AccountInput) (Account, error) {
	a, ok := m.accounts[id]
	if !ok {
		return Account{}, ErrAccountNotFound
	}
	a.Name = input.Name
	a.ParentID = input.ParentID
	a.IsActive = input.IsActive
	m.accounts[id] = a
	return a, nil
}

func (m *memoryRepo) ListJournalEntries(context.Context) ([]JournalEntry, error) {
	out := make([]JournalEntry, 0, len(m.journals))
	for _, e := range m.journals {
		out = append(out, e)
	}
	return out, nil
}

func (m *memoryRepo) InsertJournalEntry(_ context.Context, input PostingInput) (JournalEntry, error) {
	m.nextJournalID++
	m.nextNumber++
	e := JournalEntry{
		ID:           m.nextJournalID,
		Number:       m.nextNumber,
		PeriodID:     input.PeriodID,
		Date:         input.Date,
		SourceModule: input.SourceModule,
		SourceID:     input.SourceID,
		Memo:         input.Memo,
		PostedBy:     input.PostedBy,
		PostedAt:     time.Now(),
		Status:       JournalStatusPosted,
	}
	m.journals[e.ID] = e
	return e, nil
}

func (m *memoryRepo) InsertJournalLines(_ context.Context, journalID int64, lines []PostingLineInput) error {
	for _, l := range lines {
		m.lines[journalID] = append(m.lines[journalID], JournalLine{
			JournalID: journalID,
			AccountID: l.AccountID,
			Debit:     l.Debit,
			Credit:    l.Credit,
		})
	}
	return nil
}

func (m *memoryRepo) LinkSource(_ context.Context, module string, sourceID uuid.UUID, journalID int64) error {
	key := module + ":" + sourceID.String()
	if _, exists := m.links[key]; exists {
		return ErrSourceConflict
	}
	m.links[key] = journalID
	return nil
}

func (m *memoryRepo) GetJournalWithLines(_ context.Context, id int64) (JournalEntry, []JournalLine, error) {
	e, ok := m.journals[id]
	if !ok {
		return JournalEntry{}, nil, ErrJournalNotFound
	}
	return e, m.lines[id], nil
}

func (m *memoryRepo) UpdateJournalStatus(_ context.Context, id int64, status JournalStatus) error {
	e, ok := m.journals[id]
	if !ok {
		return ErrJournalNotFound
	}
	e.Status = status
	m.journals[id] = e
	return nil
}

func (m *memoryRepo) ListPeriods(context.Context) ([]Period, error) {
	out := make([]Period, 0, len(m.periods))
	for _, p := range m.periods {
		out = append(out, p)
	}
	return out, nil
}

func (m *memoryRepo) InsertPeriod(_ context.Context, input PeriodInput) (Period, error) {
	for _, p := range m.periods {
		if p.Code == input.Code {
			return Period{}, ErrDuplicateCode
		}
	}
	m.nextPeriodID++
	p := Period{ID: m.nextPeriodID, Code: input.Code, StartDate: input.StartDate, EndDate: input.EndDate, Status: PeriodStatusOpen}
	m.periods[p.ID] = p
	return p, nil
}

func (m *memoryRepo) GetPeriodForUpdate(_ context.Context, id int64) (Period, error) {
	p, ok := m.periods[id]
	if !ok {
		return Period{}, ErrInvalidPeriod
	}
	return p, nil
}

func (m *memoryRepo) GetNextOpenPeriodAfter(_ context.Context, date time.Time) (Period, error) {
	var best *Period
	for _, p := range m.periods {
		if p.Status != PeriodStatusOpen || p.StartDate.Before(date) {
			continue
		}
		candidate := p
		if best == nil || candidate.StartDate.Before(best.StartDate) {
			best = &candidate
		}
	}
	if best == nil {
		return Period{}, ErrInvalidPeriod
	}
	return *best, nil
}

func (m *memoryRepo) UpdatePeriodStatus(_ context.Context, id int64, status PeriodStatus, actorID int64) error {
	p, ok := m.periods[id]
	if !ok {
		return ErrInvalidPeriod
	}
	p.Status = status
	if status == PeriodStatusLocked {
		p.LockedBy = &actorID
	}
	m.periods[id] = p
	return nil
}

type memoryAudit struct {
	logs []shared.AuditLog
}

func (a *memoryAudit) Record(_ context.Context, log shared.AuditLog) error {
	a.logs = append(a.logs, log)
	return nil
}

func newTestService(t *testing.T) (*Service, *memoryRepo, *memoryAudit) {
	t.Helper()
	repo := newMemoryRepo()
	audit := &memoryAudit{}
	svc := NewService(repo, audit)
	svc.WithNow(func() time.Time { return time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC) })

	repo.periods[1] = Period{
		ID:        1,
		Code:      "2025-03",
		StartDate: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC),
		Status:    PeriodStatusOpen,
	}
	repo.nextPeriodID = 1
	return svc, repo, audit
}

func TestPostJournal(t *testing.T) {
	svc, repo, audit := newTestService(t)

	entry, err := svc.PostJournal(context.Background(), validPosting())
	require.NoError(t, err)
	require.Equal(t, JournalStatusPosted, entry.Status)
	require.Len(t, repo.lines[entry.ID], 2)
	require.Len(t, audit.logs, 1)
	require.Equal(t, "journal.post", audit.logs[0].Action)
}

func TestPostJournalIdempotent(t *testing.T) {
	svc, _, _ := newTestService(t)

	input := validPosting()
	_, err := svc.PostJournal(context.Background(), input)
	require.NoError(t, err)

	_, err = svc.PostJournal(context.Background(), input)
	require.ErrorIs(t, err, ErrSourceAlreadyLinked)
}

func TestPostJournalDateOutsidePeriod(t *testing.T) {
	svc, _, _ := newTestService(t)

	input := validPosting()
	input.Date = time.Date(2025, 4, 2, 0, 0, 0, 0, time.UTC)
	_, err := svc.PostJournal(context.Background(), input)
	require.ErrorIs(t, err, ErrDateOutOfRange)
}

func TestPostJournalClosedPeriod(t *testing.T) {
	svc, repo, _ := newTestService(t)

	p := repo.periods[1]
	p.Status = PeriodStatusClosed
	repo.periods[1] = p

	_, err := svc.PostJournal(context.Background(), validPosting())
	require.ErrorIs(t, err, ErrInvalidPeriod)
}

func TestPostJournalLockedPeriod(t *testing.T) {
	svc, repo, _ := newTestService(t)

	p := repo.periods[1]
	p.Status = PeriodStatusLocked
	repo.periods[1] = p

	_, err := svc.PostJournal(context.Background(), validPosting())
	require.ErrorIs(t, err, ErrPeriodLocked)
}

func TestVoidJournal(t *testing.T) {
	svc, repo, audit := newTestService(t)

	entry, err := svc.PostJournal(context.Background(), validPosting())
	require.NoError(t, err)

	voided, err := svc.VoidJournal(context.Background(), VoidInput{EntryID: entry.ID, ActorID: 7, Reason: "duplicate"})
	require.NoError(t, err)
	require.Equal(t, JournalStatusVoid, voided.Status)
	require.Equal(t, JournalStatusVoid, repo.journals[entry.ID].Status)
	require.Equal(t, "journal.void", audit.logs[len(audit.logs)-1].Action)
}

func TestVoidJournalTwiceFails(t *testing.T) {
	svc, _, _ := newTestService(t)

	entry, err := svc.PostJournal(context.Background(), validPosting())
	require.NoError(t, err)

	_, err = svc.VoidJournal(context.Background(), VoidInput{EntryID: entry.ID, Reason: "dup"})
	require.NoError(t, err)

	_, err = svc.VoidJournal(context.Background(), VoidInput{EntryID: entry.ID, Reason: "again"})
	require.ErrorIs(t, err, ErrInvalidStatus)
}

func TestVoidJournalClosedPeriod(t *testing.T) {
	svc, repo, _ := newTestService(t)

	entry, err := svc.PostJournal(context.Background(), validPosting())
	require.NoError(t, err)

	p := repo.periods[1]
	p.Status = PeriodStatusClosed
	repo.periods[1] = p

	_, err = svc.VoidJournal(context.Background(), VoidInput{EntryID: entry.ID, Reason: "late"})
	require.ErrorIs(t, err, ErrInvalidPeriod)
}

func TestReverseJournalSamePeriod(t *testing.T) {
	svc, repo, _ := newTestService(t)

	entry, err := svc.PostJournal(context.Background(), validPosting())
	require.NoError(t, err)

	reversal, err := svc.ReverseJournal(context.Background(), ReverseInput{EntryID: entry.ID, ActorID: 3})
	require.NoError(t, err)
	require.NotEqual(t, entry.ID, reversal.ID)
	require.Equal(t, entry.PeriodID, reversal.PeriodID)

	origLines := repo.lines[entry.ID]
	revLines := repo.lines[reversal.ID]
	require.Len(t, revLines, len(origLines))
	for i := range origLines {
		require.Equal(t, origLines[i].Debit, revLines[i].Credit)
		require.Equal(t, origLines[i].Credit, revLines[i].Debit)
	}
}

func TestReverseJournalClosedPeriodRollsForward(t *testing.T) {
	svc, repo, _ := newTestService(t)

	entry, err := svc.PostJournal(context.Background(), validPosting())
	require.NoError(t, err)

	p := repo.periods[1]
	p.Status = PeriodStatusClosed
	repo.periods[1] = p
	repo.periods[2] = Period{
		ID:        2,
		Code:      "2025-04",
		StartDate: time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2025, 4, 30, 0, 0, 0, 0, time.UTC),
		Status:    PeriodStatusOpen,
	}

	reversal, err := svc.ReverseJournal(context.Background(), ReverseInput{EntryID: entry.ID})
	require.NoError(t, err)
	require.Equal(t, int64(2), reversal.PeriodID)
	require.Equal(t, repo.periods[2].StartDate, reversal.Date)
}

func TestReverseJournalLockedNeedsOverride(t *testing.T) {
	svc, repo, _ := newTestService(t)

	entry, err := svc.PostJournal(context.Background(), validPosting())
	require.NoError(t, err)

	p := repo.periods[1]
	p.Status = PeriodStatusLocked
	repo.periods[1] = p
	repo.periods[2] = Period{
		ID:        2,
		Code:      "2025-04",
		StartDate: time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2025, 4, 30, 0, 0, 0, 0, time.UTC),
		Status:    PeriodStatusOpen,
	}

	_, err = svc.ReverseJournal(context.Background(), ReverseInput{EntryID: entry.ID})
	require.ErrorIs(t, err, ErrPeriodLocked)

	reversal, err := svc.ReverseJournal(context.Background(), ReverseInput{EntryID: entry.ID, Override: true})
	require.NoError(t, err)
	require.Equal(t, int64(2), reversal.PeriodID)
}

func TestReverseVoidedJournalFails(t *testing.T) {
	svc, _, _ := newTestService(t)

	entry, err := svc.PostJournal(context.Background(), validPosting())
	require.NoError(t, err)

	_, err = svc.VoidJournal(context.Background(), VoidInput{EntryID: entry.ID, Reason: "bad"})
	require.NoError(t, err)

	_, err = svc.ReverseJournal(context.Background(), ReverseInput{EntryID: entry.ID})
	require.ErrorIs(t, err, ErrInvalidStatus)
}

func TestCreateAccountDuplicateCode(t *testing.T) {
	svc, _, _ := newTestService(t)

	in := AccountInput{Code: "1000", Name: "Cash", Type: AccountTypeAsset, IsActive: true}
	_, err := svc.CreateAccount(context.Background(), in, 1)
	require.NoError(t, err)

	_, err = svc.CreateAccount(context.Background(), in, 1)
	require.ErrorIs(t, err, ErrDuplicateCode)
}

func TestPeriodLifecycle(t *testing.T) {
	svc, repo, _ := newTestService(t)

	// Lock requires CLOSED first.
	require.ErrorIs(t, svc.LockPeriod(context.Background(), 1, 9), ErrInvalidStatus)

	require.NoError(t, svc.ClosePeriod(context.Background(), 1, 9))
	require.Equal(t, PeriodStatusClosed, repo.periods[1].Status)

	require.ErrorIs(t, svc.ClosePeriod(context.Background(), 1, 9), ErrInvalidStatus)

	require.NoError(t, svc.LockPeriod(context.Background(), 1, 9))
	require.Equal(t, PeriodStatusLocked, repo.periods[1].Status)
	require.Equal(t, int64(9), *repo.periods[1].LockedBy)
}
