package customers

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

func (s *Service) List(ctx context.Context, filters shared.ListFilters) ([]Customer, int, error) {
	filters.Normalize()
	return s.repo.List(ctx, filters)
}

func (s *Service) Get(ctx context.Context, id int64) (Customer, error) {
	if id <= 0 {
		return Customer{}, shared.ErrInvalidID
	}
	return s.repo.Get(ctx, id)
}

// Create persists a new customer. A blank code is generated from the
// customer sequence as CUST-0001, CUST-0002, and so on.
func (s *Service) Create(ctx context.Context, customer Customer) (Customer, error) {
	if err := s.validate(customer); err != nil {
		return Customer{}, err
	}
	if customer.Code == "" {
		n, err := s.repo.NextCodeSeq(ctx)
		if err != nil {
			return Customer{}, err
		}
		customer.Code = fmt.Sprintf("CUST-%04d", n)
	}
	customer.IsActive = true
	return s.repo.Create(ctx, customer)
}

func (s *Service) Update(ctx context.Context, id int64, customer Customer) (Customer, error) {
	if id <= 0 {
		return Customer{}, shared.ErrInvalidID
	}
	if err := s.validate(customer); err != nil {
		return Customer{}, err
	}
	if err := s.repo.Update(ctx, id, customer); err != nil {
		return Customer{}, err
	}
	return s.repo.Get(ctx, id)
}

// Deactivate soft deletes a customer. History stays intact so posted
// invoices keep their counterparty.
func (s *Service) Deactivate(ctx context.Context, id int64) error {
	if id <= 0 {
		return shared.ErrInvalidID
	}
	return s.repo.Deactivate(ctx, id)
}
