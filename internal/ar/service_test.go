package ar

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/meridian-books/meridian/internal/integration"
	"github.com/meridian-books/meridian/internal/shared"
)

type memoryRepo struct {
	invoices map[int64]Invoice
	payments map[int64]Payment
	nextID   int64
	seq      int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{invoices: map[int64]Invoice{}, payments: map[int64]Payment{}}
}

func (m *memoryRepo) NextInvoiceSeq(context.Context) (int64, error) {
	m.seq++
	return m.seq, nil
}

func (m *memoryRepo) CreateInvoice(_ context.Context, inv Invoice) (Invoice, error) {
	m.nextID++
	inv.ID = m.nextID
	for i := range inv.Lines {
		inv.Lines[i].InvoiceID = inv.ID
	}
	m.invoices[inv.ID] = inv
	return inv, nil
}

func (m *memoryRepo) UpdateInvoice(_ context.Context, id int64, inv Invoice) error {
	current, ok := m.invoices[id]
	if !ok {
		return ErrInvoiceNotFound
	}
	inv.ID = id
	inv.Paid = current.Paid
	inv.JournalID = current.JournalID
	m.invoices[id] = inv
	return nil
}

func (m *memoryRepo) GetInvoice(_ context.Context, id int64) (Invoice, error) {
	inv, ok := m.invoices[id]
	if !ok {
		return Invoice{}, ErrInvoiceNotFound
	}
	return inv, nil
}

func (m *memoryRepo) ListInvoices(_ context.Context, customerID int64, status InvoiceStatus) ([]Invoice, error) {
	var out []Invoice
	for _, inv := range m.invoices {
		if customerID > 0 && inv.CustomerID != customerID {
			continue
		}
		if status != "" && inv.Status != status {
			continue
		}
		out = append(out, inv)
	}
	return out, nil
}

func (m *memoryRepo) SetInvoicePosted(_ context.Context, id, journalID int64) error {
	inv, ok := m.invoices[id]
	if !ok || inv.Status != InvoiceStatusDraft {
		return ErrInvoiceNotFound
	}
	inv.Status = InvoiceStatusPosted
	inv.JournalID = &journalID
	m.invoices[id] = inv
	return nil
}

func (m *memoryRepo) SetInvoiceStatus(_ context.Context, id int64, status InvoiceStatus) error {
	inv, ok := m.invoices[id]
	if !ok {
		return ErrInvoiceNotFound
	}
	inv.Status = status
	m.invoices[id] = inv
	return nil
}

func (m *memoryRepo) ApplyPayment(_ context.Context, payment Payment) (Payment, error) {
	m.nextID++
	payment.ID = m.nextID
	for i, alloc := range payment.Allocations {
		payment.Allocations[i].PaymentID = payment.ID
		inv, ok := m.invoices[alloc.InvoiceID]
		if !ok || inv.Status != InvoiceStatusPosted {
			return Payment{}, ErrOverAllocated
		}
		if inv.Paid+alloc.Amount > inv.Total+0.005 {
			return Payment{}, ErrOverAllocated
		}
		inv.Paid += alloc.Amount
		if inv.Paid >= inv.Total-0.005 {
			inv.Status = InvoiceStatusPaid
		}
		m.invoices[alloc.InvoiceID] = inv
	}
	m.payments[payment.ID] = payment
	return payment, nil
}

func (m *memoryRepo) SetPaymentJournal(_ context.Context, paymentID, journalID int64) error {
	p, ok := m.payments[paymentID]
	if !ok {
		return ErrPaymentNotFound
	}
	p.JournalID = &journalID
	m.payments[paymentID] = p
	return nil
}

func (m *memoryRepo) OutstandingPosted(_ context.Context, asOf time.Time) ([]Invoice, error) {
	var out []Invoice
	for _, inv := range m.invoices {
		if inv.Status == InvoiceStatusPosted && !inv.Date.After(asOf) && inv.Paid < inv.Total {
			out = append(out, inv)
		}
	}
	return out, nil
}

type fakeHooks struct {
	invoices        []integration.DocumentPosting
	receipts        []integration.DocumentPosting
	reversals       []int64
	nextID          int64
	receiptFailures int
}

func (f *fakeHooks) PostInvoice(_ context.Context, doc integration.DocumentPosting) (int64, error) {
	f.invoices = append(f.invoices, doc)
	f.nextID++
	return f.nextID, nil
}

func (f *fakeHooks) PostReceipt(_ context.Context, doc integration.DocumentPosting) (int64, error) {
	if f.receiptFailures > 0 {
		f.receiptFailures--
		return 0, errors.New("ledger unavailable")
	}
	f.receipts = append(f.receipts, doc)
	f.nextID++
	return f.nextID, nil
}

func (f *fakeHooks) ReverseDocument(_ context.Context, journalID, _ int64, _ string) (int64, error) {
	f.reversals = append(f.reversals, journalID)
	f.nextID++
	return f.nextID, nil
}

func newTestService() (*Service, *memoryRepo, *fakeHooks) {
	repo := newMemoryRepo()
	hooks := &fakeHooks{}
	svc := NewService(slog.New(slog.NewTextHandler(io.Discard, nil)), repo, hooks, nil)
	svc.WithNow(func() time.Time { return time.Date(2025, 3, 31, 12, 0, 0, 0, time.UTC) })
	return svc, repo, hooks
}

func draftInput() InvoiceInput {
	return InvoiceInput{
		CustomerID: 10,
		Date:       time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		DueDate:    time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC),
		Memo:       "March services",
		ActorID:    1,
		Lines: []LineInput{
			{Description: "Consulting", Quantity: 10, UnitPrice: 100},
			{Description: "Support", Quantity: 1, UnitPrice: 250},
		},
	}
}

func TestCreateInvoiceComputesTotals(t *testing.T) {
	svc, _, _ := newTestService()

	inv, err := svc.CreateInvoice(context.Background(), draftInput())
	require.NoError(t, err)
	require.Equal(t, "INV-2025-0001", inv.Number)
	require.Equal(t, InvoiceStatusDraft, inv.Status)
	require.InDelta(t, 1250.0, inv.Subtotal, 0.001)
	// Standard 5% VAT applied by default.
	require.InDelta(t, 62.50, inv.VATAmount, 0.001)
	require.InDelta(t, 1312.50, inv.Total, 0.001)
}

func TestCreateInvoiceRequiresLines(t *testing.T) {
	svc, _, _ := newTestService()

	input := draftInput()
	input.Lines = nil
	_, err := svc.CreateInvoice(context.Background(), input)
	require.ErrorIs(t, err, ErrNoLines)
}

func TestPostInvoice(t *testing.T) {
	svc, _, hooks := newTestService()

	inv, err := svc.CreateInvoice(context.Background(), draftInput())
	require.NoError(t, err)

	posted, err := svc.PostInvoice(context.Background(), inv.ID, 7)
	require.NoError(t, err)
	require.Equal(t, InvoiceStatusPosted, posted.Status)
	require.NotNil(t, posted.JournalID)

	require.Len(t, hooks.invoices, 1)
	doc := hooks.invoices[0]
	require.Equal(t, inv.ID, doc.DocID)
	require.InDelta(t, 1250.0, doc.Net, 0.001)
	require.InDelta(t, 62.50, doc.VAT, 0.001)
	require.InDelta(t, 1312.50, doc.Gross, 0.001)

	// Posting twice is rejected.
	_, err = svc.PostInvoice(context.Background(), inv.ID, 7)
	require.ErrorIs(t, err, ErrInvalidStatus)
}

func TestUpdateInvoicePostedRejected(t *testing.T) {
	svc, _, _ := newTestService()

	inv, err := svc.CreateInvoice(context.Background(), draftInput())
	require.NoError(t, err)
	_, err = svc.PostInvoice(context.Background(), inv.ID, 1)
	require.NoError(t, err)

	_, err = svc.UpdateInvoice(context.Background(), inv.ID, draftInput())
	require.ErrorIs(t, err, ErrInvalidStatus)
}

func TestRecordPaymentMarksPaid(t *testing.T) {
	svc, repo, hooks := newTestService()

	inv, err := svc.CreateInvoice(context.Background(), draftInput())
	require.NoError(t, err)
	_, err = svc.PostInvoice(context.Background(), inv.ID, 1)
	require.NoError(t, err)

	payment, err := svc.RecordPayment(context.Background(), PaymentInput{
		CustomerID: 10,
		Date:       time.Date(2025, 3, 20, 0, 0, 0, 0, time.UTC),
		Amount:     1312.50,
		Reference:  "TT-2291",
		ActorID:    1,
		Allocations: []AllocationInput{
			{InvoiceID: inv.ID, Amount: 1312.50},
		},
	})
	require.NoError(t, err)
	require.NotNil(t, payment.JournalID)
	require.Len(t, hooks.receipts, 1)
	require.InDelta(t, 1312.50, hooks.receipts[0].Gross, 0.001)

	got, err := repo.GetInvoice(context.Background(), inv.ID)
	require.NoError(t, err)
	require.Equal(t, InvoiceStatusPaid, got.Status)
	require.InDelta(t, 1312.50, got.Paid, 0.001)
}

func TestRecordPaymentPartialKeepsPosted(t *testing.T) {
	svc, repo, _ := newTestService()

	inv, err := svc.CreateInvoice(context.Background(), draftInput())
	require.NoError(t, err)
	_, err = svc.PostInvoice(context.Background(), inv.ID, 1)
	require.NoError(t, err)

	_, err = svc.RecordPayment(context.Background(), PaymentInput{
		CustomerID:  10,
		Date:        time.Date(2025, 3, 20, 0, 0, 0, 0, time.UTC),
		Amount:      500,
		Allocations: []AllocationInput{{InvoiceID: inv.ID, Amount: 500}},
	})
	require.NoError(t, err)

	got, err := repo.GetInvoice(context.Background(), inv.ID)
	require.NoError(t, err)
	require.Equal(t, InvoiceStatusPosted, got.Status)
	require.InDelta(t, 812.50, got.Outstanding(), 0.001)
}

func TestRecordPaymentOverAllocation(t *testing.T) {
	svc, _, _ := newTestService()

	inv, err := svc.CreateInvoice(context.Background(), draftInput())
	require.NoError(t, err)
	_, err = svc.PostInvoice(context.Background(), inv.ID, 1)
	require.NoError(t, err)

	// Allocations beyond the payment amount.
	_, err = svc.RecordPayment(context.Background(), PaymentInput{
		CustomerID:  10,
		Date:        time.Date(2025, 3, 20, 0, 0, 0, 0, time.UTC),
		Amount:      100,
		Allocations: []AllocationInput{{InvoiceID: inv.ID, Amount: 200}},
	})
	require.ErrorIs(t, err, ErrOverAllocated)

	// Allocation beyond the invoice outstanding.
	_, err = svc.RecordPayment(context.Background(), PaymentInput{
		CustomerID:  10,
		Date:        time.Date(2025, 3, 20, 0, 0, 0, 0, time.UTC),
		Amount:      5000,
		Allocations: []AllocationInput{{InvoiceID: inv.ID, Amount: 5000}},
	})
	require.ErrorIs(t, err, ErrOverAllocated)
}

func TestRecordPaymentWrongCustomer(t *testing.T) {
	svc, _, _ := newTestService()

	inv, err := svc.CreateInvoice(context.Background(), draftInput())
	require.NoError(t, err)
	_, err = svc.PostInvoice(context.Background(), inv.ID, 1)
	require.NoError(t, err)

	_, err = svc.RecordPayment(context.Background(), PaymentInput{
		CustomerID:  99,
		Date:        time.Date(2025, 3, 20, 0, 0, 0, 0, time.UTC),
		Amount:      100,
		Allocations: []AllocationInput{{InvoiceID: inv.ID, Amount: 100}},
	})
	require.ErrorIs(t, err, ErrCustomerMismatch)
}

type fakeIdem struct {
	claimed map[string]bool
}

func (f *fakeIdem) CheckAndInsert(_ context.Context, key, _ string) error {
	if f.claimed == nil {
		f.claimed = map[string]bool{}
	}
	if f.claimed[key] {
		return shared.ErrIdempotencyConflict
	}
	f.claimed[key] = true
	return nil
}

func (f *fakeIdem) Delete(_ context.Context, key string) error {
	delete(f.claimed, key)
	return nil
}

func TestRecordPaymentIdempotencyKey(t *testing.T) {
	svc, _, hooks := newTestService()
	idem := &fakeIdem{}
	svc.WithIdempotency(idem)

	inv, err := svc.CreateInvoice(context.Background(), draftInput())
	require.NoError(t, err)
	_, err = svc.PostInvoice(context.Background(), inv.ID, 1)
	require.NoError(t, err)

	input := PaymentInput{
		CustomerID:     10,
		Date:           time.Date(2025, 3, 20, 0, 0, 0, 0, time.UTC),
		Amount:         100,
		Allocations:    []AllocationInput{{InvoiceID: inv.ID, Amount: 100}},
		IdempotencyKey: "pay-2291",
	}
	_, err = svc.RecordPayment(context.Background(), input)
	require.NoError(t, err)

	// Replaying the same key is rejected without another receipt.
	_, err = svc.RecordPayment(context.Background(), input)
	require.ErrorIs(t, err, shared.ErrIdempotencyConflict)
	require.Len(t, hooks.receipts, 1)
}

func TestRecordPaymentRetriesReceiptPosting(t *testing.T) {
	svc, repo, hooks := newTestService()

	inv, err := svc.CreateInvoice(context.Background(), draftInput())
	require.NoError(t, err)
	_, err = svc.PostInvoice(context.Background(), inv.ID, 1)
	require.NoError(t, err)

	// First posting attempt fails after the payment has committed; the
	// second one lands without booking the receipt twice.
	hooks.receiptFailures = 1
	payment, err := svc.RecordPayment(context.Background(), PaymentInput{
		CustomerID:  10,
		Date:        time.Date(2025, 3, 20, 0, 0, 0, 0, time.UTC),
		Amount:      100,
		Allocations: []AllocationInput{{InvoiceID: inv.ID, Amount: 100}},
	})
	require.NoError(t, err)
	require.NotNil(t, payment.JournalID)
	require.Len(t, hooks.receipts, 1)

	got, err := repo.GetInvoice(context.Background(), inv.ID)
	require.NoError(t, err)
	require.InDelta(t, 100.0, got.Paid, 0.001)
}

func TestRecordPaymentPostingFailureKeepsKey(t *testing.T) {
	svc, repo, hooks := newTestService()
	idem := &fakeIdem{}
	svc.WithIdempotency(idem)

	inv, err := svc.CreateInvoice(context.Background(), draftInput())
	require.NoError(t, err)
	_, err = svc.PostInvoice(context.Background(), inv.ID, 1)
	require.NoError(t, err)

	hooks.receiptFailures = 2
	input := PaymentInput{
		CustomerID:     10,
		Date:           time.Date(2025, 3, 20, 0, 0, 0, 0, time.UTC),
		Amount:         100,
		Allocations:    []AllocationInput{{InvoiceID: inv.ID, Amount: 100}},
		IdempotencyKey: "pay-884",
	}
	_, err = svc.RecordPayment(context.Background(), input)
	require.Error(t, err)

	// The payment and its allocation are committed even though the
	// ledger entry is missing, so the key stays claimed and a blind
	// resubmission cannot pay the invoice twice.
	require.Len(t, repo.payments, 1)
	_, err = svc.RecordPayment(context.Background(), input)
	require.ErrorIs(t, err, shared.ErrIdempotencyConflict)
	require.Empty(t, hooks.receipts)
}

func TestVoidDraftInvoice(t *testing.T) {
	svc, _, hooks := newTestService()

	inv, err := svc.CreateInvoice(context.Background(), draftInput())
	require.NoError(t, err)

	voided, err := svc.VoidInvoice(context.Background(), inv.ID, 1, "duplicate")
	require.NoError(t, err)
	require.Equal(t, InvoiceStatusVoid, voided.Status)
	require.Empty(t, hooks.reversals)
}

func TestVoidPostedInvoiceReverses(t *testing.T) {
	svc, _, hooks := newTestService()

	inv, err := svc.CreateInvoice(context.Background(), draftInput())
	require.NoError(t, err)
	posted, err := svc.PostInvoice(context.Background(), inv.ID, 1)
	require.NoError(t, err)

	voided, err := svc.VoidInvoice(context.Background(), inv.ID, 1, "")
	require.NoError(t, err)
	require.Equal(t, InvoiceStatusVoid, voided.Status)
	require.Equal(t, []int64{*posted.JournalID}, hooks.reversals)
}

func TestVoidInvoiceWithPaymentsRejected(t *testing.T) {
	svc, _, _ := newTestService()

	inv, err := svc.CreateInvoice(context.Background(), draftInput())
	require.NoError(t, err)
	_, err = svc.PostInvoice(context.Background(), inv.ID, 1)
	require.NoError(t, err)
	_, err = svc.RecordPayment(context.Background(), PaymentInput{
		CustomerID:  10,
		Date:        time.Date(2025, 3, 20, 0, 0, 0, 0, time.UTC),
		Amount:      100,
		Allocations: []AllocationInput{{InvoiceID: inv.ID, Amount: 100}},
	})
	require.NoError(t, err)

	_, err = svc.VoidInvoice(context.Background(), inv.ID, 1, "")
	require.ErrorIs(t, err, ErrHasPayments)
}

func TestAgingBuckets(t *testing.T) {
	svc, _, _ := newTestService()
	asOf := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	mk := func(customerID int64, due time.Time, total float64) {
		t.Helper()
		input := draftInput()
		input.CustomerID = customerID
		input.Date = due.AddDate(0, 0, -30)
		input.DueDate = due
		input.Lines = []LineInput{{Description: "svc", Quantity: 1, UnitPrice: total}}
		inv, err := svc.CreateInvoice(context.Background(), input)
		require.NoError(t, err)
		_, err = svc.PostInvoice(context.Background(), inv.ID, 1)
		require.NoError(t, err)
	}

	mk(1, time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC), 100) // not yet due
	mk(1, time.Date(2025, 5, 20, 0, 0, 0, 0, time.UTC), 100) // 12 days overdue
	mk(2, time.Date(2025, 4, 10, 0, 0, 0, 0, time.UTC), 100) // 52 days overdue
	mk(2, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), 100)  // 151 days overdue

	report, err := svc.Aging(context.Background(), asOf)
	require.NoError(t, err)
	require.Len(t, report.Rows, 2)
	require.InDelta(t, 420.0, report.Total, 0.001) // 4 x 105 gross

	require.Equal(t, int64(1), report.Rows[0].CustomerID)
	require.InDelta(t, 105.0, report.Rows[0].Buckets[0].Amount, 0.001) // Current
	require.InDelta(t, 105.0, report.Rows[0].Buckets[1].Amount, 0.001) // 1-30

	require.Equal(t, int64(2), report.Rows[1].CustomerID)
	require.InDelta(t, 105.0, report.Rows[1].Buckets[2].Amount, 0.001) // 31-60
	require.InDelta(t, 105.0, report.Rows[1].Buckets[5].Amount, 0.001) // 120+
}
