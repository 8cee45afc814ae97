package ap

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/meridian-books/meridian/internal/integration"
)

type memoryRepo struct {
	bills    map[int64]Bill
	payments map[int64]Payment
	nextID   int64
	seq      int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{bills: map[int64]Bill{}, payments: map[int64]Payment{}}
}

func (m *memoryRepo) NextBillSeq(context.Context) (int64, error) {
	m.seq++
	return m.seq, nil
}

func (m *memoryRepo) CreateBill(_ context.Context, bill Bill) (Bill, error) {
	m.nextID++
	bill.ID = m.nextID
	for i := range bill.Lines {
		bill.Lines[i].BillID = bill.ID
	}
	m.bills[bill.ID] = bill
	return bill, nil
}

func (m *memoryRepo) UpdateBill(_ context.Context, id int64, bill Bill) error {
	current, ok := m.bills[id]
	if !ok {
		return ErrBillNotFound
	}
	bill.ID = id
	bill.Paid = current.Paid
	bill.JournalID = current.JournalID
	m.bills[id] = bill
	return nil
}

func (m *memoryRepo) GetBill(_ context.Context, id int64) (Bill, error) {
	bill, ok := m.bills[id]
	if !ok {
		return Bill{}, ErrBillNotFound
	}
	return bill, nil
}

func (m *memoryRepo) ListBills(_ context.Context, vendorID int64, status BillStatus) ([]Bill, error) {
	var out []Bill
	for _, bill := range m.bills {
		if vendorID > 0 && bill.VendorID != vendorID {
			continue
		}
		if status != "" && bill.Status != status {
			continue
		}
		out = append(out, bill)
	}
	return out, nil
}

func (m *memoryRepo) SetBillPosted(_ context.Context, id, journalID int64) error {
	bill, ok := m.bills[id]
	if !ok || bill.Status != BillStatusDraft {
		return ErrBillNotFound
	}
	bill.Status = BillStatusPosted
	bill.JournalID = &journalID
	m.bills[id] = bill
	return nil
}

func (m *memoryRepo) SetBillStatus(_ context.Context, id int64, status BillStatus) error {
	bill, ok := m.bills[id]
	if !ok {
		return ErrBillNotFound
	}
	bill.Status = status
	m.bills[id] = bill
	return nil
}

func (m *memoryRepo) ApplyPayment(_ context.Context, payment Payment) (Payment, error) {
	m.nextID++
	payment.ID = m.nextID
	for i, alloc := range payment.Allocations {
		payment.Allocations[i].PaymentID = payment.ID
		bill, ok := m.bills[alloc.BillID]
		if !ok || bill.Status != BillStatusPosted {
			return Payment{}, ErrOverAllocated
		}
		if bill.Paid+alloc.Amount > bill.Total+0.005 {
			return Payment{}, ErrOverAllocated
		}
		bill.Paid += alloc.Amount
		if bill.Paid >= bill.Total-0.005 {
			bill.Status = BillStatusPaid
		}
		m.bills[alloc.BillID] = bill
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

func (m *memoryRepo) OutstandingPosted(_ context.Context, asOf time.Time) ([]Bill, error) {
	var out []Bill
	for _, bill := range m.bills {
		if bill.Status == BillStatusPosted && !bill.Date.After(asOf) && bill.Paid < bill.Total {
			out = append(out, bill)
		}
	}
	return out, nil
}

type fakeHooks struct {
	bills           []integration.DocumentPosting
	payments        []integration.DocumentPosting
	reversals       []int64
	nextID          int64
	paymentFailures int
}

func (f *fakeHooks) PostBill(_ context.Context, doc integration.DocumentPosting) (int64, error) {
	f.bills = append(f.bills, doc)
	f.nextID++
	return f.nextID, nil
}

func (f *fakeHooks) PostPayment(_ context.Context, doc integration.DocumentPosting) (int64, error) {
	if f.paymentFailures > 0 {
		f.paymentFailures--
		return 0, errors.New("ledger unavailable")
	}
	f.payments = append(f.payments, doc)
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

func draftInput() BillInput {
	return BillInput{
		VendorID:  20,
		VendorRef: "SUP-7781",
		Date:      time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC),
		DueDate:   time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC),
		Memo:      "Office rent",
		ActorID:   1,
		Lines: []LineInput{
			{Description: "Rent March", Quantity: 1, UnitPrice: 8000},
		},
	}
}

func TestCreateBillComputesTotals(t *testing.T) {
	svc, _, _ := newTestService()

	bill, err := svc.CreateBill(context.Background(), draftInput())
	require.NoError(t, err)
	require.Equal(t, "BILL-2025-0001", bill.Number)
	require.Equal(t, BillStatusDraft, bill.Status)
	require.Equal(t, "SUP-7781", bill.VendorRef)
	require.InDelta(t, 8000.0, bill.Subtotal, 0.001)
	require.InDelta(t, 400.0, bill.VATAmount, 0.001)
	require.InDelta(t, 8400.0, bill.Total, 0.001)
}

func TestPostBill(t *testing.T) {
	svc, _, hooks := newTestService()

	bill, err := svc.CreateBill(context.Background(), draftInput())
	require.NoError(t, err)

	posted, err := svc.PostBill(context.Background(), bill.ID, 7)
	require.NoError(t, err)
	require.Equal(t, BillStatusPosted, posted.Status)
	require.NotNil(t, posted.JournalID)

	require.Len(t, hooks.bills, 1)
	doc := hooks.bills[0]
	require.InDelta(t, 8000.0, doc.Net, 0.001)
	require.InDelta(t, 400.0, doc.VAT, 0.001)
	require.InDelta(t, 8400.0, doc.Gross, 0.001)

	_, err = svc.PostBill(context.Background(), bill.ID, 7)
	require.ErrorIs(t, err, ErrInvalidStatus)
}

func TestRecordPaymentMarksPaid(t *testing.T) {
	svc, repo, hooks := newTestService()

	bill, err := svc.CreateBill(context.Background(), draftInput())
	require.NoError(t, err)
	_, err = svc.PostBill(context.Background(), bill.ID, 1)
	require.NoError(t, err)

	payment, err := svc.RecordPayment(context.Background(), PaymentInput{
		VendorID:  20,
		Date:      time.Date(2025, 3, 28, 0, 0, 0, 0, time.UTC),
		Amount:    8400,
		Reference: "WIRE-1192",
		ActorID:   1,
		Allocations: []AllocationInput{
			{BillID: bill.ID, Amount: 8400},
		},
	})
	require.NoError(t, err)
	require.NotNil(t, payment.JournalID)
	require.Len(t, hooks.payments, 1)

	got, err := repo.GetBill(context.Background(), bill.ID)
	require.NoError(t, err)
	require.Equal(t, BillStatusPaid, got.Status)
}

func TestRecordPaymentOverAllocation(t *testing.T) {
	svc, _, _ := newTestService()

	bill, err := svc.CreateBill(context.Background(), draftInput())
	require.NoError(t, err)
	_, err = svc.PostBill(context.Background(), bill.ID, 1)
	require.NoError(t, err)

	_, err = svc.RecordPayment(context.Background(), PaymentInput{
		VendorID:    20,
		Date:        time.Date(2025, 3, 28, 0, 0, 0, 0, time.UTC),
		Amount:      100,
		Allocations: []AllocationInput{{BillID: bill.ID, Amount: 500}},
	})
	require.ErrorIs(t, err, ErrOverAllocated)
}

func TestRecordPaymentWrongVendor(t *testing.T) {
	svc, _, _ := newTestService()

	bill, err := svc.CreateBill(context.Background(), draftInput())
	require.NoError(t, err)
	_, err = svc.PostBill(context.Background(), bill.ID, 1)
	require.NoError(t, err)

	_, err = svc.RecordPayment(context.Background(), PaymentInput{
		VendorID:    99,
		Date:        time.Date(2025, 3, 28, 0, 0, 0, 0, time.UTC),
		Amount:      100,
		Allocations: []AllocationInput{{BillID: bill.ID, Amount: 100}},
	})
	require.ErrorIs(t, err, ErrVendorMismatch)
}

func TestRecordPaymentRetriesPosting(t *testing.T) {
	svc, repo, hooks := newTestService()

	bill, err := svc.CreateBill(context.Background(), draftInput())
	require.NoError(t, err)
	_, err = svc.PostBill(context.Background(), bill.ID, 1)
	require.NoError(t, err)

	// First posting attempt fails after the payment has committed; the
	// second one lands without booking the payment twice.
	hooks.paymentFailures = 1
	payment, err := svc.RecordPayment(context.Background(), PaymentInput{
		VendorID:    20,
		Date:        time.Date(2025, 3, 28, 0, 0, 0, 0, time.UTC),
		Amount:      100,
		Allocations: []AllocationInput{{BillID: bill.ID, Amount: 100}},
	})
	require.NoError(t, err)
	require.NotNil(t, payment.JournalID)
	require.Len(t, hooks.payments, 1)

	got, err := repo.GetBill(context.Background(), bill.ID)
	require.NoError(t, err)
	require.InDelta(t, 100.0, got.Paid, 0.001)
}

func TestRecordPaymentPostingFailureKeepsPayment(t *testing.T) {
	svc, repo, hooks := newTestService()

	bill, err := svc.CreateBill(context.Background(), draftInput())
	require.NoError(t, err)
	_, err = svc.PostBill(context.Background(), bill.ID, 1)
	require.NoError(t, err)

	hooks.paymentFailures = 2
	_, err = svc.RecordPayment(context.Background(), PaymentInput{
		VendorID:    20,
		Date:        time.Date(2025, 3, 28, 0, 0, 0, 0, time.UTC),
		Amount:      100,
		Allocations: []AllocationInput{{BillID: bill.ID, Amount: 100}},
	})
	require.Error(t, err)

	// The payment stays committed; the error names it for reposting.
	require.Len(t, repo.payments, 1)
	require.Contains(t, err.Error(), "recorded without ledger entry")
}

func TestVoidPostedBillReverses(t *testing.T) {
	svc, _, hooks := newTestService()

	bill, err := svc.CreateBill(context.Background(), draftInput())
	require.NoError(t, err)
	posted, err := svc.PostBill(context.Background(), bill.ID, 1)
	require.NoError(t, err)

	voided, err := svc.VoidBill(context.Background(), bill.ID, 1, "wrong vendor")
	require.NoError(t, err)
	require.Equal(t, BillStatusVoid, voided.Status)
	require.Equal(t, []int64{*posted.JournalID}, hooks.reversals)
}

func TestVoidBillWithPaymentsRejected(t *testing.T) {
	svc, _, _ := newTestService()

	bill, err := svc.CreateBill(context.Background(), draftInput())
	require.NoError(t, err)
	_, err = svc.PostBill(context.Background(), bill.ID, 1)
	require.NoError(t, err)
	_, err = svc.RecordPayment(context.Background(), PaymentInput{
		VendorID:    20,
		Date:        time.Date(2025, 3, 28, 0, 0, 0, 0, time.UTC),
		Amount:      100,
		Allocations: []AllocationInput{{BillID: bill.ID, Amount: 100}},
	})
	require.NoError(t, err)

	_, err = svc.VoidBill(context.Background(), bill.ID, 1, "")
	require.ErrorIs(t, err, ErrHasPayments)
}

func TestAgingBuckets(t *testing.T) {
	svc, _, _ := newTestService()
	asOf := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	mk := func(vendorID int64, due time.Time, total float64) {
		t.Helper()
		input := draftInput()
		input.VendorID = vendorID
		input.Date = due.AddDate(0, 0, -30)
		input.DueDate = due
		input.Lines = []LineInput{{Description: "svc", Quantity: 1, UnitPrice: total}}
		bill, err := svc.CreateBill(context.Background(), input)
		require.NoError(t, err)
		_, err = svc.PostBill(context.Background(), bill.ID, 1)
		require.NoError(t, err)
	}

	mk(5, time.Date(2025, 6, 20, 0, 0, 0, 0, time.UTC), 1000) // not yet due
	mk(5, time.Date(2025, 4, 15, 0, 0, 0, 0, time.UTC), 1000) // 47 days overdue
	mk(6, time.Date(2025, 2, 25, 0, 0, 0, 0, time.UTC), 1000) // 96 days overdue

	report, err := svc.Aging(context.Background(), asOf)
	require.NoError(t, err)
	require.Len(t, report.Rows, 2)
	require.InDelta(t, 3150.0, report.Total, 0.001) // 3 x 1050 gross

	require.Equal(t, int64(5), report.Rows[0].VendorID)
	require.InDelta(t, 1050.0, report.Rows[0].Buckets[0].Amount, 0.001) // Current
	require.InDelta(t, 1050.0, report.Rows[0].Buckets[2].Amount, 0.001) // 31-60

	require.Equal(t, int64(6), report.Rows[1].VendorID)
	require.InDelta(t, 1050.0, report.Rows[1].Buckets[4].Amount, 0.001) // 91-120
}
