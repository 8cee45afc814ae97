package vendors

import (
	"time"
)

// Vendor represents a supplier counterparty on the payables side.
type Vendor struct {
	ID              int64     `json:"id"`
	Code            string    `json:"code"`
	Name            string    `json:"name"`
	Email           string    `json:"email"`
	Phone           string    `json:"phone"`
	Address         string    `json:"address"`
	TaxRegistration string    `json:"tax_registration"`
	PaymentTerms    int       `json:"payment_terms"`
	IsActive        bool      `json:"is_active"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}
