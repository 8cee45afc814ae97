package ar

import (
	"errors"
	"time"
)

// InvoiceStatus tracks a customer invoice through its lifecycle.
type InvoiceStatus string

const (
	InvoiceStatusDraft  InvoiceStatus = "DRAFT"
	InvoiceStatusPosted InvoiceStatus = "POSTED"
	InvoiceStatusPaid   InvoiceStatus = "PAID"
	InvoiceStatusVoid   InvoiceStatus = "VOID"
)

// Invoice is a customer invoice. Subtotal, VATAmount, and Total are
// derived from the lines at the stored VAT rate and never edited
// directly.
type Invoice struct {
	ID         int64         `json:"id"`
	Number     string        `json:"number"`
	CustomerID int64         `json:"customer_id"`
	Date       time.Time     `json:"date"`
	DueDate    time.Time     `json:"due_date"`
	Memo       string        `json:"memo"`
	VATRate    float64       `json:"vat_rate"`
	Subtotal   float64       `json:"subtotal"`
	VATAmount  float64       `json:"vat_amount"`
	Total      float64       `json:"total"`
	Paid       float64       `json:"paid"`
	Status     InvoiceStatus `json:"status"`
	JournalID  *int64        `json:"journal_id,omitempty"`
	Lines      []InvoiceLine `json:"lines,omitempty"`
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at"`
}

// Outstanding is the unpaid remainder of the invoice total.
func (inv Invoice) Outstanding() float64 {
	return inv.Total - inv.Paid
}

// InvoiceLine is one billed item.
type InvoiceLine struct {
	ID          int64   `json:"id"`
	InvoiceID   int64   `json:"invoice_id"`
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	LineTotal   float64 `json:"line_total"`
}

// Payment is a customer receipt, allocated across one or more invoices.
type Payment struct {
	ID          int64        `json:"id"`
	CustomerID  int64        `json:"customer_id"`
	Date        time.Time    `json:"date"`
	Amount      float64      `json:"amount"`
	Reference   string       `json:"reference"`
	JournalID   *int64       `json:"journal_id,omitempty"`
	Allocations []Allocation `json:"allocations,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
}

// Allocation applies part of a payment against an invoice.
type Allocation struct {
	PaymentID int64   `json:"payment_id"`
	InvoiceID int64   `json:"invoice_id"`
	Amount    float64 `json:"amount"`
}

// InvoiceInput carries fields for creating or updating a draft invoice.
type InvoiceInput struct {
	CustomerID int64
	Date       time.Time
	DueDate    time.Time
	Memo       string
	VATRate    float64
	ActorID    int64
	Lines      []LineInput
}

// LineInput is one item on an invoice draft.
type LineInput struct {
	Description string
	Quantity    float64
	UnitPrice   float64
}

// PaymentInput records a receipt with its invoice allocations.
type PaymentInput struct {
	CustomerID  int64
	Date        time.Time
	Amount      float64
	Reference   string
	ActorID     int64
	Allocations []AllocationInput

	// IdempotencyKey guards against double submission when set.
	IdempotencyKey string
}

// AllocationInput applies part of the payment to one invoice.
type AllocationInput struct {
	InvoiceID int64
	Amount    float64
}

// AgingBucket is one column of the aging report.
type AgingBucket struct {
	Label  string  `json:"label"`
	Amount float64 `json:"amount"`
}

// AgingRow is one customer's outstanding balance split by age.
type AgingRow struct {
	CustomerID int64         `json:"customer_id"`
	Buckets    []AgingBucket `json:"buckets"`
	Total      float64       `json:"total"`
}

// AgingReport groups outstanding receivables by days overdue.
type AgingReport struct {
	AsOf   time.Time     `json:"as_of"`
	Rows   []AgingRow    `json:"rows"`
	Totals []AgingBucket `json:"totals"`
	Total  float64       `json:"total"`
}

var (
	ErrInvoiceNotFound  = errors.New("ar: invoice not found")
	ErrPaymentNotFound  = errors.New("ar: payment not found")
	ErrInvalidStatus    = errors.New("ar: invalid status for operation")
	ErrNoLines          = errors.New("ar: invoice requires at least one line")
	ErrOverAllocated    = errors.New("ar: allocations exceed amount or outstanding balance")
	ErrHasPayments      = errors.New("ar: invoice has payments applied")
	ErrCustomerMismatch = errors.New("ar: invoice belongs to another customer")
)
