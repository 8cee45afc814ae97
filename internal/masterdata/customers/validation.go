package customers

import (
	"fmt"
	"strings"

	"github.com/meridian-books/meridian/internal/masterdata/shared"
)

func (s *Service) validate(c Customer) error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("%w: name", shared.ErrRequiredField)
	}
	if c.Email != "" && !strings.Contains(c.Email, "@") {
		return fmt.Errorf("%w: email", shared.ErrValidation)
	}
	return nil
}
