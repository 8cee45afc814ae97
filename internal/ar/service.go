package ar

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

// Repository persists invoices, payments, and allocations.
type Repository interface {
	NextInvoiceSeq(ctx context.Context) (int64, error)
	CreateInvoice(ctx context.Context, inv Invoice) (Invoice, error)
	UpdateInvoice(ctx context.Context, id int64, inv Invoice) error
	GetInvoice(ctx context.Context, id int64) (Invoice, error)
	ListInvoices(ctx context.Context, customerID int64, status InvoiceStatus) ([]Invoice, error)
	SetInvoicePosted(ctx context.Context, id, journalID int64) error
	SetInvoiceStatus(ctx context.Context, id int64, status InvoiceStatus) error
	ApplyPayment(ctx context.Context, payment Payment) (Payment, error)
	SetPaymentJournal(ctx context.Context, paymentID, journalID int64) error
	OutstandingPosted(ctx context.Context, asOf time.Time) ([]Invoice, error)
}

// PostingHooks is the slice of the integration layer AR needs.
type PostingHooks interface {
	PostInvoice(ctx context.Context, doc integration.DocumentPosting) (int64, error)
	PostReceipt(ctx context.Context, doc integration.DocumentPosting) (int64, error)
	ReverseDocument(ctx context.Context, journalID, actorID int64, memo string) (int64, error)
}

// AuditPort records AR events.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// IdempotencyPort claims and releases request keys.
type IdempotencyPort interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key string) error
}

// Service manages the receivables lifecycle.
type Service struct {
	logger *slog.Logger
	repo   Repository
	hooks  PostingHooks
	audit  AuditPort
	idem   IdempotencyPort
	now    func() time.Time
}

// NewService constructs the AR service.
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

// CreateInvoice builds a draft invoice. Totals are computed from the
// lines; the VAT rate defaults to the standard rate when unset.
func (s *Service) CreateInvoice(ctx context.Context, input InvoiceInput) (Invoice, error) {
	inv, err := s.buildInvoice(input)
	if err != nil {
		return Invoice{}, err
	}
	seq, err := s.repo.NextInvoiceSeq(ctx)
	if err != nil {
		return Invoice{}, err
	}
	inv.Number = fmt.Sprintf("INV-%d-%04d", inv.Date.Year(), seq)
	inv.Status = InvoiceStatusDraft

	created, err := s.repo.CreateInvoice(ctx, inv)
	if err != nil {
		return Invoice{}, err
	}
	s.record(ctx, input.ActorID, "invoice.create", created.ID, map[string]any{"number": created.Number})
	return created, nil
}

// UpdateInvoice replaces the lines and header of a draft.
func (s *Service) UpdateInvoice(ctx context.Context, id int64, input InvoiceInput) (Invoice, error) {
	current, err := s.repo.GetInvoice(ctx, id)
	if err != nil {
		return Invoice{}, err
	}
	if current.Status != InvoiceStatusDraft {
		return Invoice{}, ErrInvalidStatus
	}
	inv, err := s.buildInvoice(input)
	if err != nil {
		return Invoice{}, err
	}
	inv.Number = current.Number
	inv.Status = current.Status
	if err := s.repo.UpdateInvoice(ctx, id, inv); err != nil {
		return Invoice{}, err
	}
	return s.repo.GetInvoice(ctx, id)
}

// GetInvoice loads one invoice with its lines.
func (s *Service) GetInvoice(ctx context.Context, id int64) (Invoice, error) {
	return s.repo.GetInvoice(ctx, id)
}

// ListInvoices filters by customer and status; zero values match all.
func (s *Service) ListInvoices(ctx context.Context, customerID int64, status InvoiceStatus) ([]Invoice, error) {
	return s.repo.ListInvoices(ctx, customerID, status)
}

// PostInvoice books a draft into the ledger and marks it POSTED.
func (s *Service) PostInvoice(ctx context.Context, id, actorID int64) (Invoice, error) {
	inv, err := s.repo.GetInvoice(ctx, id)
	if err != nil {
		return Invoice{}, err
	}
	if inv.Status != InvoiceStatusDraft {
		return Invoice{}, ErrInvalidStatus
	}
	journalID, err := s.hooks.PostInvoice(ctx, integration.DocumentPosting{
		DocID:   inv.ID,
		Date:    inv.Date,
		Memo:    inv.Number,
		ActorID: actorID,
		Net:     inv.Subtotal,
		VAT:     inv.VATAmount,
		Gross:   inv.Total,
	})
	if err != nil {
		return Invoice{}, err
	}
	if err := s.repo.SetInvoicePosted(ctx, id, journalID); err != nil {
		return Invoice{}, err
	}
	s.record(ctx, actorID, "invoice.post", id, map[string]any{"journal_id": journalID})
	return s.repo.GetInvoice(ctx, id)
}

// VoidInvoice cancels an invoice. Drafts are voided in place; posted
// invoices get a reversing journal entry first. Invoices with payments
// applied cannot be voided.
func (s *Service) VoidInvoice(ctx context.Context, id, actorID int64, reason string) (Invoice, error) {
	inv, err := s.repo.GetInvoice(ctx, id)
	if err != nil {
		return Invoice{}, err
	}
	switch inv.Status {
	case InvoiceStatusDraft:
	case InvoiceStatusPosted:
		if inv.Paid > 0 {
			return Invoice{}, ErrHasPayments
		}
		if inv.JournalID != nil {
			memo := reason
			if memo == "" {
				memo = fmt.Sprintf("Void %s", inv.Number)
			}
			if _, err := s.hooks.ReverseDocument(ctx, *inv.JournalID, actorID, memo); err != nil {
				return Invoice{}, err
			}
		}
	default:
		return Invoice{}, ErrInvalidStatus
	}
	if err := s.repo.SetInvoiceStatus(ctx, id, InvoiceStatusVoid); err != nil {
		return Invoice{}, err
	}
	s.record(ctx, actorID, "invoice.void", id, map[string]any{"reason": reason})
	return s.repo.GetInvoice(ctx, id)
}

// RecordPayment books a customer receipt and allocates it across
// invoices. Allocations may not exceed the payment amount or any
// invoice's outstanding balance; fully covered invoices flip to PAID.
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
		inv, err := s.repo.GetInvoice(ctx, alloc.InvoiceID)
		if err != nil {
			return Payment{}, err
		}
		if inv.Status != InvoiceStatusPosted {
			return Payment{}, ErrInvalidStatus
		}
		if inv.CustomerID != input.CustomerID {
			return Payment{}, ErrCustomerMismatch
		}
		if alloc.Amount > inv.Outstanding()+0.005 {
			return Payment{}, ErrOverAllocated
		}
		allocated += alloc.Amount
		allocations = append(allocations, Allocation{InvoiceID: alloc.InvoiceID, Amount: round2(alloc.Amount)})
	}
	if allocated > input.Amount+0.005 {
		return Payment{}, ErrOverAllocated
	}

	release := func() {}
	if input.IdempotencyKey != "" && s.idem != nil {
		if err := s.idem.CheckAndInsert(ctx, input.IdempotencyKey, "ar"); err != nil {
			return Payment{}, err
		}
		release = func() { _ = s.idem.Delete(ctx, input.IdempotencyKey) }
	}

	payment := Payment{
		CustomerID:  input.CustomerID,
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
	journalID, err := s.hooks.PostReceipt(ctx, doc)
	if err != nil {
		// The payment is committed at this point. The receipt's source
		// link is deterministic, so a repeat attempt cannot double-book;
		// a link conflict resolves to the journal the first attempt made.
		s.logger.Warn("receipt posting failed, retrying",
			slog.Int64("payment_id", applied.ID), slog.Any("error", err))
		journalID, err = s.hooks.PostReceipt(ctx, doc)
	}
	if err != nil {
		// Keep the idempotency key claimed: the allocations are applied
		// and a blind resubmission would pay the invoices twice. The
		// payment id in the error is enough to repost by hand.
		return Payment{}, fmt.Errorf("ar: payment %d recorded without ledger entry: %w", applied.ID, err)
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

// Aging buckets outstanding posted invoices by days overdue at asOf.
func (s *Service) Aging(ctx context.Context, asOf time.Time) (AgingReport, error) {
	if asOf.IsZero() {
		asOf = s.now()
	}
	invoices, err := s.repo.OutstandingPosted(ctx, asOf)
	if err != nil {
		return AgingReport{}, err
	}
	return buildAging(asOf, invoices), nil
}

func (s *Service) buildInvoice(input InvoiceInput) (Invoice, error) {
	if input.CustomerID <= 0 {
		return Invoice{}, errors.New("ar: customer required")
	}
	if len(input.Lines) == 0 {
		return Invoice{}, ErrNoLines
	}
	if input.DueDate.Before(input.Date) {
		return Invoice{}, errors.New("ar: due date precedes invoice date")
	}
	rate := input.VATRate
	if rate == 0 {
		rate = tax.DefaultVATRate
	}
	if rate < 0 || rate > 100 {
		return Invoice{}, errors.New("ar: vat rate out of range")
	}

	var subtotal float64
	lines := make([]InvoiceLine, 0, len(input.Lines))
	for _, line := range input.Lines {
		if line.Quantity <= 0 || line.UnitPrice < 0 {
			return Invoice{}, errors.New("ar: invalid line quantity or price")
		}
		total := round2(line.Quantity * line.UnitPrice)
		subtotal += total
		lines = append(lines, InvoiceLine{
			Description: line.Description,
			Quantity:    line.Quantity,
			UnitPrice:   line.UnitPrice,
			LineTotal:   total,
		})
	}
	subtotal = round2(subtotal)
	vat := tax.VATOn(subtotal, rate)

	return Invoice{
		CustomerID: input.CustomerID,
		Date:       input.Date,
		DueDate:    input.DueDate,
		Memo:       input.Memo,
		VATRate:    rate,
		Subtotal:   subtotal,
		VATAmount:  vat,
		Total:      round2(subtotal + vat),
		Lines:      lines,
	}, nil
}

func (s *Service) record(ctx context.Context, actorID int64, action string, entityID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "ar",
		EntityID: fmt.Sprintf("%d", entityID),
		Meta:     meta,
		At:       s.now(),
	})
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
