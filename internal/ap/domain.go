package ap

import (
	"errors"
	"time"
)

// BillStatus tracks a vendor bill through its lifecycle.
type BillStatus string

const (
	BillStatusDraft  BillStatus = "DRAFT"
	BillStatusPosted BillStatus = "POSTED"
	BillStatusPaid   BillStatus = "PAID"
	BillStatusVoid   BillStatus = "VOID"
)

// Bill is a vendor bill. VendorRef is the number printed on the
// vendor's own document; Number is ours.
type Bill struct {
	ID        int64      `json:"id"`
	Number    string     `json:"number"`
	VendorID  int64      `json:"vendor_id"`
	VendorRef string     `json:"vendor_ref"`
	Date      time.Time  `json:"date"`
	DueDate   time.Time  `json:"due_date"`
	Memo      string     `json:"memo"`
	VATRate   float64    `json:"vat_rate"`
	Subtotal  float64    `json:"subtotal"`
	VATAmount float64    `json:"vat_amount"`
	Total     float64    `json:"total"`
	Paid      float64    `json:"paid"`
	Status    BillStatus `json:"status"`
	JournalID *int64     `json:"journal_id,omitempty"`
	Lines     []BillLine `json:"lines,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Outstanding is the unpaid remainder of the bill total.
func (b Bill) Outstanding() float64 {
	return b.Total - b.Paid
}

// BillLine is one billed item.
type BillLine struct {
	ID          int64   `json:"id"`
	BillID      int64   `json:"bill_id"`
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	LineTotal   float64 `json:"line_total"`
}

// Payment is an outgoing vendor payment, allocated across bills.
type Payment struct {
	ID          int64        `json:"id"`
	VendorID    int64        `json:"vendor_id"`
	Date        time.Time    `json:"date"`
	Amount      float64      `json:"amount"`
	Reference   string       `json:"reference"`
	JournalID   *int64       `json:"journal_id,omitempty"`
	Allocations []Allocation `json:"allocations,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
}

// Allocation applies part of a payment against a bill.
type Allocation struct {
	PaymentID int64   `json:"payment_id"`
	BillID    int64   `json:"bill_id"`
	Amount    float64 `json:"amount"`
}

// BillInput carries fields for creating or updating a draft bill.
type BillInput struct {
	VendorID  int64
	VendorRef string
	Date      time.Time
	DueDate   time.Time
	Memo      string
	VATRate   float64
	ActorID   int64
	Lines     []LineInput
}

// LineInput is one item on a bill draft.
type LineInput struct {
	Description string
	Quantity    float64
	UnitPrice   float64
}

// PaymentInput records a vendor payment with its bill allocations.
type PaymentInput struct {
	VendorID    int64
	Date        time.Time
	Amount      float64
	Reference   string
	ActorID     int64
	Allocations []AllocationInput

	// IdempotencyKey guards against double submission when set.
	IdempotencyKey string
}

// AllocationInput applies part of the payment to one bill.
type AllocationInput struct {
	BillID int64
	Amount float64
}

// AgingBucket is one column of the aging report.
type AgingBucket struct {
	Label  string  `json:"label"`
	Amount float64 `json:"amount"`
}

// AgingRow is one vendor's outstanding balance split by age.
type AgingRow struct {
	VendorID int64         `json:"vendor_id"`
	Buckets  []AgingBucket `json:"buckets"`
	Total    float64       `json:"total"`
}

// AgingReport groups outstanding payables by days overdue.
type AgingReport struct {
	AsOf   time.Time     `json:"as_of"`
	Rows   []AgingRow    `json:"rows"`
	Totals []AgingBucket `json:"totals"`
	Total  float64       `json:"total"`
}

var (
	ErrBillNotFound    = errors.New("ap: bill not found")
	ErrPaymentNotFound = errors.New("ap: payment not found")
	ErrInvalidStatus   = errors.New("ap: invalid status for operation")
	ErrNoLines         = errors.New("ap: bill requires at least one line")
	ErrOverAllocated   = errors.New("ap: allocations exceed amount or outstanding balance")
	ErrHasPayments     = errors.New("ap: bill has payments applied")
	ErrVendorMismatch  = errors.New("ap: bill belongs to another vendor")
)
