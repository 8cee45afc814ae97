// Package integration posts documents from the operational modules
// (banking, receivables, payables) into the general ledger. Every
// document gets a deterministic source UUID so reposting the same
// document is rejected by the ledger's idempotency link.
package integration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/meridian-books/meridian/internal/banking"
	"github.com/meridian-books/meridian/internal/ledger"
)

// Mapping modules and keys looked up in account_mappings.
const (
	MappingModuleBanking = "BANKING"
	MappingModuleAR      = "AR"
	MappingModuleAP      = "AP"
	MappingModuleTax     = "TAX"

	KeyControl   = "CONTROL"
	KeyRevenue   = "REVENUE"
	KeyExpense   = "EXPENSE"
	KeyCash      = "CASH"
	KeyVATOutput = "VAT_OUTPUT"
	KeyVATInput  = "VAT_INPUT"
)

// Ledger is the slice of the ledger service the hooks need.
type Ledger interface {
	PostJournal(ctx context.Context, input ledger.PostingInput) (ledger.JournalEntry, error)
	ReverseJournal(ctx context.Context, input ledger.ReverseInput) (ledger.JournalEntry, error)
}

// MappingSource resolves integration keys to ledger accounts.
type MappingSource interface {
	GetAccountMapping(ctx context.Context, module, key string) (ledger.AccountMapping, error)
}

// PeriodSource finds the open fiscal period covering a document date.
type PeriodSource interface {
	FindOpenPeriodByDate(ctx context.Context, date time.Time) (ledger.Period, error)
}

// Metrics counts journals produced by the hooks.
type Metrics interface {
	JournalPosted()
}

// JournalSource finds the journal already linked to a source document.
type JournalSource interface {
	FindJournalBySource(ctx context.Context, module string, sourceID uuid.UUID) (int64, error)
}

// Hooks wires operational documents into the ledger.
type Hooks struct {
	logger   *slog.Logger
	ledger   Ledger
	mappings MappingSource
	periods  PeriodSource
	metrics  Metrics
	journals JournalSource
}

// NewHooks constructs the integration hooks.
func NewHooks(logger *slog.Logger, lg Ledger, mappings MappingSource, periods PeriodSource) *Hooks {
	return &Hooks{logger: logger, ledger: lg, mappings: mappings, periods: periods}
}

// WithMetrics attaches a journal counter.
func (h *Hooks) WithMetrics(m Metrics) *Hooks {
	h.metrics = m
	return h
}

// WithJournalLookup lets a repeated posting resolve to the journal the
// first attempt created instead of failing on the source link.
func (h *Hooks) WithJournalLookup(js JournalSource) *Hooks {
	h.journals = js
	return h
}

// SourceID derives the deterministic idempotency UUID for a document.
func SourceID(prefix string, id int64) uuid.UUID {
	return uuid.NewSHA1(uuid.Nil, []byte(fmt.Sprintf("%s:%d", prefix, id)))
}

// PostBankTransaction books one bank statement line. Credits to the
// bank account debit the bank ledger account and credit the category
// account; debits do the opposite.
func (h *Hooks) PostBankTransaction(ctx context.Context, account banking.BankAccount, tx banking.BankTransaction) (int64, error) {
	mapping, err := h.mappings.GetAccountMapping(ctx, MappingModuleBanking, tx.Category)
	if err != nil {
		return 0, err
	}
	amount := round2(math.Abs(tx.Amount))
	bankLine := ledger.PostingLineInput{AccountID: account.LedgerAccountID}
	categoryLine := ledger.PostingLineInput{AccountID: mapping.AccountID}
	if tx.Amount > 0 {
		bankLine.Debit = amount
		categoryLine.Credit = amount
	} else {
		bankLine.Credit = amount
		categoryLine.Debit = amount
	}

	memo := tx.Merchant
	if memo == "" {
		memo = tx.Description
	}
	entry, err := h.post(ctx, tx.Date, "BANKTX", SourceID("BANKTX", tx.ID), memo, 0,
		bankLine, categoryLine)
	if err != nil {
		return 0, err
	}
	return entry.ID, nil
}

// DocumentPosting carries the amounts of an invoice, bill, or payment.
type DocumentPosting struct {
	DocID   int64
	Date    time.Time
	Memo    string
	ActorID int64
	Net     float64
	VAT     float64
	Gross   float64
}

// PostInvoice books a posted customer invoice: receivables control is
// debited for the gross amount, revenue credited net, VAT output
// credited for the tax portion.
func (h *Hooks) PostInvoice(ctx context.Context, doc DocumentPosting) (int64, error) {
	control, err := h.mappings.GetAccountMapping(ctx, MappingModuleAR, KeyControl)
	if err != nil {
		return 0, err
	}
	revenue, err := h.mappings.GetAccountMapping(ctx, MappingModuleAR, KeyRevenue)
	if err != nil {
		return 0, err
	}
	lines := []ledger.PostingLineInput{
		{AccountID: control.AccountID, Debit: round2(doc.Gross)},
		{AccountID: revenue.AccountID, Credit: round2(doc.Net)},
	}
	if doc.VAT != 0 {
		vat, err := h.mappings.GetAccountMapping(ctx, MappingModuleTax, KeyVATOutput)
		if err != nil {
			return 0, err
		}
		lines = append(lines, ledger.PostingLineInput{AccountID: vat.AccountID, Credit: round2(doc.VAT)})
	}
	entry, err := h.post(ctx, doc.Date, "ARINV", SourceID("ARINV", doc.DocID), doc.Memo, doc.ActorID, lines...)
	if err != nil {
		return 0, err
	}
	return entry.ID, nil
}

// PostBill books a posted vendor bill: expense debited net, VAT input
// debited for the recoverable tax, payables control credited gross.
func (h *Hooks) PostBill(ctx context.Context, doc DocumentPosting) (int64, error) {
	control, err := h.mappings.GetAccountMapping(ctx, MappingModuleAP, KeyControl)
	if err != nil {
		return 0, err
	}
	expense, err := h.mappings.GetAccountMapping(ctx, MappingModuleAP, KeyExpense)
	if err != nil {
		return 0, err
	}
	lines := []ledger.PostingLineInput{
		{AccountID: expense.AccountID, Debit: round2(doc.Net)},
		{AccountID: control.AccountID, Credit: round2(doc.Gross)},
	}
	if doc.VAT != 0 {
		vat, err := h.mappings.GetAccountMapping(ctx, MappingModuleTax, KeyVATInput)
		if err != nil {
			return 0, err
		}
		lines = append(lines, ledger.PostingLineInput{AccountID: vat.AccountID, Debit: round2(doc.VAT)})
	}
	entry, err := h.post(ctx, doc.Date, "APBILL", SourceID("APBILL", doc.DocID), doc.Memo, doc.ActorID, lines...)
	if err != nil {
		return 0, err
	}
	return entry.ID, nil
}

// PostReceipt books a customer payment: cash debited, receivables
// control credited.
func (h *Hooks) PostReceipt(ctx context.Context, doc DocumentPosting) (int64, error) {
	cash, err := h.mappings.GetAccountMapping(ctx, MappingModuleAR, KeyCash)
	if err != nil {
		return 0, err
	}
	control, err := h.mappings.GetAccountMapping(ctx, MappingModuleAR, KeyControl)
	if err != nil {
		return 0, err
	}
	entry, err := h.post(ctx, doc.Date, "ARPAY", SourceID("ARPAY", doc.DocID), doc.Memo, doc.ActorID,
		ledger.PostingLineInput{AccountID: cash.AccountID, Debit: round2(doc.Gross)},
		ledger.PostingLineInput{AccountID: control.AccountID, Credit: round2(doc.Gross)})
	if err != nil {
		return 0, err
	}
	return entry.ID, nil
}

// PostPayment books a vendor payment: payables control debited, cash
// credited.
func (h *Hooks) PostPayment(ctx context.Context, doc DocumentPosting) (int64, error) {
	control, err := h.mappings.GetAccountMapping(ctx, MappingModuleAP, KeyControl)
	if err != nil {
		return 0, err
	}
	cash, err := h.mappings.GetAccountMapping(ctx, MappingModuleAP, KeyCash)
	if err != nil {
		return 0, err
	}
	entry, err := h.post(ctx, doc.Date, "APPAY", SourceID("APPAY", doc.DocID), doc.Memo, doc.ActorID,
		ledger.PostingLineInput{AccountID: control.AccountID, Debit: round2(doc.Gross)},
		ledger.PostingLineInput{AccountID: cash.AccountID, Credit: round2(doc.Gross)})
	if err != nil {
		return 0, err
	}
	return entry.ID, nil
}

// ReverseDocument unwinds a document's journal entry, rolling into the
// next open period when the original one is closed.
func (h *Hooks) ReverseDocument(ctx context.Context, journalID, actorID int64, memo string) (int64, error) {
	entry, err := h.ledger.ReverseJournal(ctx, ledger.ReverseInput{
		EntryID: journalID,
		ActorID: actorID,
		Memo:    memo,
	})
	if err != nil {
		return 0, err
	}
	return entry.ID, nil
}

func (h *Hooks) post(ctx context.Context, date time.Time, module string, sourceID uuid.UUID, memo string, actorID int64, lines ...ledger.PostingLineInput) (ledger.JournalEntry, error) {
	period, err := h.periods.FindOpenPeriodByDate(ctx, date)
	if err != nil {
		return ledger.JournalEntry{}, err
	}
	entry, err := h.ledger.PostJournal(ctx, ledger.PostingInput{
		PeriodID:     period.ID,
		Date:         date,
		SourceModule: module,
		SourceID:     sourceID,
		Memo:         memo,
		PostedBy:     actorID,
		Lines:        lines,
	})
	if err != nil {
		if errors.Is(err, ledger.ErrSourceAlreadyLinked) && h.journals != nil {
			id, lookErr := h.journals.FindJournalBySource(ctx, module, sourceID)
			if lookErr == nil {
				h.logger.Info("document already posted to ledger",
					slog.String("source_module", module),
					slog.String("source_id", sourceID.String()),
					slog.Int64("journal_id", id))
				return ledger.JournalEntry{ID: id}, nil
			}
		}
		return ledger.JournalEntry{}, err
	}
	if h.metrics != nil {
		h.metrics.JournalPosted()
	}
	h.logger.Info("document posted to ledger",
		slog.String("source_module", module),
		slog.String("source_id", sourceID.String()),
		slog.Int64("journal_id", entry.ID))
	return entry, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
