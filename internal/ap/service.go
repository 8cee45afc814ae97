package ap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/meridian-books/meridian/internal/integration"
	"github.com/meridian-books/meridian/internal/shared"
	"github.com/meridian-books/meridian/internal/tax"
)

// Repository persists bills, payments, and allocations.
type Repository interface {
	NextBillSeq(ctx context.Context) (int64, error)
	CreateBill(ctx context.Context, bill Bill) (Bill, error)
	UpdateBill(ctx context.Context, id int64, bill Bill) error
	GetBill(ctx context.Context, id int64) (Bill, error)
	ListBills(ctx context.Context, vendorID int64, status BillStatus) ([]Bill, error)
	SetBillPosted(ctx context.Context, id, journalID int64) error
	SetBillStatus(ctx context.Context, id int64, status BillStatus) error
	ApplyPayment(ctx context.Context, payment Payment) (Payment, error)
	SetPaymentJournal(ctx context.Context, paymentID, journalID int64) error
	OutstandingPosted(ctx context.Context, asOf time.Time) ([]Bill, error)
}

// PostingHooks is the slice of the integration layer AP needs.
type PostingHooks interface {
	PostBill(ctx context.Context, doc integration.DocumentPosting) (int64, error)
	PostPayment(ctx context.Context, doc integration.DocumentPosting) (int64, error)
	ReverseDocument(ctx context.Context, journalID, actorID int64, memo string) (int64, error)
}

// AuditPort records AP events.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// IdempotencyPort claims and releases request keys.
type IdempotencyPort interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key string) error
}

// Service manages the payables lifecycle.
type Service struct {
	logger *slog.Logger
	repo   Repository
	hooks  PostingHooks
	audit  AuditPort
	idem   IdempotencyPort
	now    func() time.Time
}

// NewService constructs the AP service.
func NewService(logger *slog.Logger, repo Repository, hooks PostingHooks, audit AuditPort) *Service {
	return &Service{logger: logger, repo: repo, hooks: hooks, audit: audit, now: time.Now}
}

// WithIdempotency enables payment deduplication by client-supplied key.
func (s *Service) WithIdempotency(idem IdempotencyPort) *Service {
	s.idem = idem
	return s
}

// WithNow overrides the clock for testing.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// CreateBill builds a draft bill with totals computed from the lines.
func (s *Service) CreateBill(ctx context.Context, input BillInput) (Bill, error) {
	bill, err := s.buildBill(input)
	if err != nil {
		return Bill{}, err
	}
	seq, err := s.repo.NextBillSeq(ctx)
	if err != nil {
		return Bill{}, err
	}
	bill.Number = fmt.Sprintf("BILL-%d-%04d", bill.Date.Year(), seq)
	bill.Status = BillStatusDraft

	created, err := s.repo.CreateBill(ctx, bill)
	if err != nil {
		return Bill{}, err
	}
	s.record(ctx, input.ActorID, "bill.create", created.ID, map[string]any{"number": created.Number})
	return created, nil
}

// UpdateBill replaces the lines and header of a draft.
func (s *Service) UpdateBill(ctx context.Context, id int64, input BillInput) (Bill, error) {
	current, err := s.repo.GetBill(ctx, id)
	if err != nil {
		return Bill{}, err
	}
	if current.Status != BillStatusDraft {
		return Bill{}, ErrInvalidStatus
	}
	bill, err := s.buildBill(input)
	if err != nil {
		return Bill{}, err
	}
	bill.Number = current.Number
	bill.Status = current.Status
	if err := s.repo.UpdateBill(ctx, id, bill); err != nil {
		return Bill{}, err
	}
	return s.repo.GetBill(ctx, id)
}

// GetBill loads one bill with its lines.
func (s *Service) GetBill(ctx context.Context, id int64) (Bill, error) {
	return s.repo.GetBill(ctx, id)
}

// ListBills filters by vendor and status; zero values match all.
func (s *Service) ListBills(ctx context.Context, vendorID int64, status BillStatus) ([]Bill, error) {
	return s.repo.ListBills(ctx, vendorID, status)
}

// PostBill books a draft into the ledger and marks it POSTED.
func (s *Service) PostBill(ctx context.Context, id, actorID int64) (Bill, error) {
	bill, err := s.repo.GetBill(ctx, id)
	if err != nil {
		return Bill{}, err
	}
	if bill.Status != BillStatusDraft {
		return Bill{}, ErrInvalidStatus
	}
	journalID, err := s.hooks.PostBill(ctx, integration.DocumentPosting{
		DocID:   bill.ID,
		Date:    bill.Date,
		Memo:    bill.Number,
		ActorID: actorID,
		Net:     bill.Subtotal,
		VAT:     bill.VATAmount,
		Gross:   bill.Total,
	})
	if err != nil {
		return Bill{}, err
	}
	if err := s.repo.SetBillPosted(ctx, id, journalID); err != nil {
		return Bill{}, err
	}
	s.record(ctx, actorID, "bill.post", id, map[string]any{"journal_id": journalID})
	return s.repo.GetBill(ctx, id)
}

// VoidBill cancels a bill. Drafts are voided in place; posted bills get
// a reversing journal entry. Bills with payments applied cannot be
// voided.
func (s *Service) VoidBill(ctx context.Context, id, actorID int64, reason string) (Bill, error) {
	bill, err := s.repo.GetBill(ctx, id)
	if err != nil {
		return Bill{}, err
	}
	switch bill.Status {
	case BillStatusDraft:
	case BillStatusPosted:
		if bill.Paid > 0 {
			return Bill{}, ErrHasPayments
		}
		if bill.JournalID != nil {
			memo := reason
			if memo == "" {
				memo = fmt.Sprintf("Void %s", bill.Number)
			}
			if _, err := s.hooks.ReverseDocument(ctx, *bill.JournalID, actorID, memo); err != nil {
				return Bill{}, err
			}
		}
	default:
		return Bill{}, ErrInvalidStatus
	}
	if err := s.repo.SetBillStatus(ctx, id, BillStatusVoid); err != nil {
		return Bill{}, err
	}
	s.record(ctx, actorID, "bill.void", id, map[string]any{"reason": reason})
	return s.repo.GetBill(ctx, id)
}

// RecordPayment books an outgoing payment and allocates it across
// bills. Fully covered bills flip to PAID.
func (s *Service) RecordPayment(ctx context.Context, input PaymentInput) (Payment, error) {
	if input.Amount <= 0 {
		return Payment{}, fmt.Errorf("%w: payment amount must be positive", ErrOverAllocated)
	}
	var allocated float64
	allocations := make([]Allocation, 0, len(input.Allocations))
	for _, alloc := range input.Allocations {
		if alloc.Amount <= 0 {
			return Payment{}, fmt.Errorf("%w: allocation must be positive", ErrOverAllocated)
		}
		bill, err := s.repo.GetBill(ctx, alloc.BillID)
		if err != nil {
			return Payment{}, err
		}
		if bill.Status != BillStatusPosted {
			return Payment{}, ErrInvalidStatus
		}
		if bill.VendorID != input.VendorID {
			return Payment{}, ErrVendorMismatch
		}
		if alloc.Amount > bill.Outstanding()+0.005 {
			return Payment{}, ErrOverAllocated
		}
		allocated += alloc.Amount
		allocations = append(allocations, Allocation{BillID: alloc.BillID, Amount: round2(alloc.Amount)})
	}
	if allocated > input.Amount+0.005 {
		return Payment{}, ErrOverAllocated
	}

	release := func() {}
	if input.IdempotencyKey != "" && s.idem != nil {
		if err := s.idem.CheckAndInsert(ctx, input.IdempotencyKey, "ap"); err != nil {
			return Payment{}, err
		}
		release = func() { _ = s.idem.Delete(ctx, input.IdempotencyKey) }
	}

	payment := Payment{
		VendorID:    input.VendorID,
		Date:        input.Date,
		Amount:      round2(input.Amount),
		Reference:   input.Reference,
		Allocations: allocations,
	}
	applied, err := s.repo.ApplyPayment(ctx, payment)
	if err != nil {
		release()
		return Payment{}, err
	}
	doc := integration.DocumentPosting{
		DocID:   applied.ID,
		Date:    applied.Date,
		Memo:    applied.Reference,
		ActorID: input.ActorID,
		Gross:   applied.Amount,
	}
	journalID, err := s.hooks.PostPayment(ctx, doc)
	if err != nil {
		// The payment is committed at this point. The posting's source
		// link is deterministic, so a repeat attempt cannot double-book;
		// a link conflict resolves to the journal the first attempt made.
		s.logger.Warn("payment posting failed, retrying",
			slog.Int64("payment_id", applied.ID), slog.Any("error", err))
		journalID, err = s.hooks.PostPayment(ctx, doc)
	}
	if err != nil {
		// Keep the idempotency key claimed: the allocations are applied
		// and a blind resubmission would pay the bills twice. The
		// payment id in the error is enough to repost by hand.
		return Payment{}, fmt.Errorf("ap: payment %d recorded without ledger entry: %w", applied.ID, err)
	}
	if err := s.repo.SetPaymentJournal(ctx, applied.ID, journalID); err != nil {
		return Payment{}, err
	}
	applied.JournalID = &journalID
	s.record(ctx, input.ActorID, "payment.record", applied.ID, map[string]any{
		"amount":     applied.Amount,
		"journal_id": journalID,
	})
	return applied, nil
}

// Aging buckets outstanding posted bills by days overdue at asOf.
func (s *Service) Aging(ctx context.Context, asOf time.Time) (AgingReport, error) {
	if asOf.IsZero() {
		asOf = s.now()
	}
	bills, err := s.repo.OutstandingPosted(ctx, asOf)
	if err != nil {
		return AgingReport{}, err
	}
	return buildAging(asOf, bills), nil
}

func (s *Service) buildBill(input BillInput) (Bill, error) {
	if input.VendorID <= 0 {
		return Bill{}, errors.New("ap: vendor required")
	}
	if len(input.Lines) == 0 {
		return Bill{}, ErrNoLines
	}
	if input.DueDate.Before(input.Date) {
		return Bill{}, errors.New("ap: due date precedes bill date")
	}
	rate := input.VATRate
	if rate == 0 {
		rate = tax.DefaultVATRate
	}
	if rate < 0 || rate > 100 {
		return Bill{}, errors.New("ap: vat rate out of range")
	}

	var subtotal float64
	lines := make([]BillLine, 0, len(input.Lines))
	for _, line := range input.Lines {
		if line.Quantity <= 0 || line.UnitPrice < 0 {
			return Bill{}, errors.New("ap: invalid line quantity or price")
		}
		total := round2(line.Quantity * line.UnitPrice)
		subtotal += total
		lines = append(lines, BillLine{
			Description: line.Description,
			Quantity:    line.Quantity,
			UnitPrice:   line.UnitPrice,
			LineTotal:   total,
		})
	}
	subtotal = round2(subtotal)
	vat := tax.VATOn(subtotal, rate)

	return Bill{
		VendorID:  input.VendorID,
		VendorRef: input.VendorRef,
		Date:      input.Date,
		DueDate:   input.DueDate,
		Memo:      input.Memo,
		VATRate:   rate,
		Subtotal:  subtotal,
		VATAmount: vat,
		Total:     round2(subtotal + vat),
		Lines:     lines,
	}, nil
}

func (s *Service) record(ctx context.Context, actorID int64, action string, entityID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "ap",
		EntityID: fmt.Sprintf("%d", entityID),
		Meta:     meta,
		At:       s.now(),
	})
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
