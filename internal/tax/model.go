package tax

// Kind distinguishes VAT rates from corporate income tax profiles.
type Kind string

const (
	KindVAT       Kind = "VAT"
	KindCorporate Kind = "CORPORATE"
)

// Rate represents a tax configuration.
type Rate struct {
	ID   int64   `json:"id"`
	Code string  `json:"code"`
	Name string  `json:"name"`
	Rate float64 `json:"rate"`
	Kind Kind    `json:"kind"`
}

// Default UAE-style profile used when no rate rows exist yet.
const (
	DefaultVATRate            = 5.0
	DefaultCorporateRate      = 9.0
	DefaultCorporateThreshold = 375000.0
)
