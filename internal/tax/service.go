package tax

import (
	"context"
	"errors"
	"time"

	"github.com/meridian-books/meridian/internal/ledger/reports"
	"github.com/meridian-books/meridian/internal/masterdata/shared"
)

// Service manages tax rate configuration and computes filings from
// ledger balances.
type Service struct {
	repo     Repository
	balances reports.BalanceSource
}

// NewService constructs the tax service.
func NewService(repo Repository, balances reports.BalanceSource) *Service {
	return &Service{repo: repo, balances: balances}
}

func (s *Service) List(ctx context.Context, filters shared.ListFilters) ([]Rate, int, error) {
	return s.repo.List(ctx, filters)
}

func (s *Service) Get(ctx context.Context, id int64) (Rate, error) {
	if id <= 0 {
		return Rate{}, shared.ErrInvalidID
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, rate Rate) (Rate, error) {
	if err := s.validate(rate); err != nil {
		return Rate{}, err
	}
	return s.repo.Create(ctx, rate)
}

func (s *Service) Update(ctx context.Context, id int64, rate Rate) error {
	if id <= 0 {
		return shared.ErrInvalidID
	}
	if err := s.validate(rate); err != nil {
		return err
	}
	return s.repo.Update(ctx, id, rate)
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return shared.ErrInvalidID
	}
	return s.repo.Delete(ctx, id)
}

// vatRate resolves the configured VAT rate, falling back to the default
// profile when no rate row exists.
func (s *Service) vatRate(ctx context.Context, code string) float64 {
	if code != "" {
		if rate, err := s.repo.GetByCode(ctx, code); err == nil && rate.Kind == KindVAT {
			return rate.Rate
		}
	}
	return DefaultVATRate
}

func (s *Service) corporateRate(ctx context.Context, code string) float64 {
	if code != "" {
		if rate, err := s.repo.GetByCode(ctx, code); err == nil && rate.Kind == KindCorporate {
			return rate.Rate
		}
	}
	return DefaultCorporateRate
}

// VATReturn computes a VAT filing for the window from posted balances.
func (s *Service) VATReturn(ctx context.Context, from, to time.Time, rateCode string) (VATReturn, error) {
	balances, err := s.balances.AccountBalances(ctx, from, to)
	if err != nil {
		return VATReturn{}, err
	}
	pl := reports.BuildProfitAndLoss(balances)
	return ComputeVAT(pl.Revenue.Total, pl.Expense.Total, s.vatRate(ctx, rateCode)), nil
}

// CorporateTax estimates corporate tax on the window's net income.
func (s *Service) CorporateTax(ctx context.Context, from, to time.Time, rateCode string, threshold float64) (CorporateTax, error) {
	if threshold < 0 {
		return CorporateTax{}, errors.New("tax: threshold must be non-negative")
	}
	if threshold == 0 {
		threshold = DefaultCorporateThreshold
	}
	balances, err := s.balances.AccountBalances(ctx, from, to)
	if err != nil {
		return CorporateTax{}, err
	}
	pl := reports.BuildProfitAndLoss(balances)
	return ComputeCorporate(pl.NetIncome, s.corporateRate(ctx, rateCode), threshold), nil
}
