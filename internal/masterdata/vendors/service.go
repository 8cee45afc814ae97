package vendors

import (
	"context"
	"fmt"

	"github.com/meridian-books/meridian/internal/masterdata/shared"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context, filters shared.ListFilters) ([]Vendor, int, error) {
	filters.Normalize()
	return s.repo.List(ctx, filters)
}

func (s *Service) Get(ctx context.Context, id int64) (Vendor, error) {
	if id <= 0 {
		return Vendor{}, shared.ErrInvalidID
	}
	return s.repo.Get(ctx, id)
}

// Create persists a new vendor, generating a VEND-0001 style code when
// none is supplied.
func (s *Service) Create(ctx context.Context, vendor Vendor) (Vendor, error) {
	if err := s.validate(vendor); err != nil {
		return Vendor{}, err
	}
	if vendor.Code == "" {
		n, err := s.repo.NextCodeSeq(ctx)
		if err != nil {
			return Vendor{}, err
		}
		vendor.Code = fmt.Sprintf("VEND-%04d", n)
	}
	vendor.IsActive = true
	return s.repo.Create(ctx, vendor)
}

func (s *Service) Update(ctx context.Context, id int64, vendor Vendor) (Vendor, error) {
	if id <= 0 {
		return Vendor{}, shared.ErrInvalidID
	}
	if err := s.validate(vendor); err != nil {
		return Vendor{}, err
	}
	if err := s.repo.Update(ctx, id, vendor); err != nil {
		return Vendor{}, err
	}
	return s.repo.Get(ctx, id)
}

// Deactivate soft deletes a vendor so posted bills keep their counterparty.
func (s *Service) Deactivate(ctx context.Context, id int64) error {
	if id <= 0 {
		return shared.ErrInvalidID
	}
	return s.repo.Deactivate(ctx, id)
}
