package vendors

import (
	"fmt"
	"strings"

	"github.com/meridian-books/meridian/internal/masterdata/shared"
)

func (s *Service) validate(v Vendor) error {
	if strings.TrimSpace(v.Name) == "" {
		return fmt.Errorf("%w: name", shared.ErrRequiredField)
	}
	if v.Email != "" && !strings.Contains(v.Email, "@") {
		return fmt.Errorf("%w: email", shared.ErrValidation)
	}
	if v.PaymentTerms < 0 || v.PaymentTerms > 365 {
		return fmt.Errorf("%w: payment terms must be 0..365 days", shared.ErrValidation)
	}
	return nil
}
