package reports

import (
	"context"
	"fmt"
	"time"
)

// BalanceSource loads aggregated balances for a date window.
type BalanceSource interface {
	AccountBalances(ctx context.Context, from, to time.Time) ([]AccountBalance, error)
}

// Service builds reports from ledger balances with a Redis snapshot cache.
type Service struct {
	source BalanceSource
	cache  *Cache
}

// NewService constructs the report service.
func NewService(source BalanceSource, cache *Cache) *Service {
	return &Service{source: source, cache: cache}
}

func windowKey(report string, from, to time.Time) []string {
	return []string{"reports", report, from.Format("2006-01-02"), to.Format("2006-01-02")}
}

// TrialBalance returns the grouped trial balance for the window.
func (s *Service) TrialBalance(ctx context.Context, from, to time.Time) (TrialBalance, error) {
	key, err := s.cache.BuildKey(ctx, windowKey("tb", from, to)...)
	if err != nil {
		return TrialBalance{}, err
	}
	var out TrialBalance
	err = s.cache.FetchJSON(ctx, key, &out, func(ctx context.Context) (any, error) {
		balances, err := s.source.AccountBalances(ctx, from, to)
		if err != nil {
			return nil, err
		}
		return BuildTrialBalance(balances), nil
	})
	if err != nil {
		return TrialBalance{}, fmt.Errorf("reports: trial balance: %w", err)
	}
	return out, nil
}

// ProfitAndLoss returns the P&L statement for the window.
func (s *Service) ProfitAndLoss(ctx context.Context, from, to time.Time) (ProfitAndLoss, error) {
	key, err := s.cache.BuildKey(ctx, windowKey("pl", from, to)...)
	if err != nil {
		return ProfitAndLoss{}, err
	}
	var out ProfitAndLoss
	err = s.cache.FetchJSON(ctx, key, &out, func(ctx context.Context) (any, error) {
		balances, err := s.source.AccountBalances(ctx, from, to)
		if err != nil {
			return nil, err
		}
		return BuildProfitAndLoss(balances), nil
	})
	if err != nil {
		return ProfitAndLoss{}, fmt.Errorf("reports: profit and loss: %w", err)
	}
	return out, nil
}

// BalanceSheet returns the balance sheet as of the window end.
func (s *Service) BalanceSheet(ctx context.Context, from, to time.Time) (BalanceSheet, error) {
	key, err := s.cache.BuildKey(ctx, windowKey("bs", from, to)...)
	if err != nil {
		return BalanceSheet{}, err
	}
	var out BalanceSheet
	err = s.cache.FetchJSON(ctx, key, &out, func(ctx context.Context) (any, error) {
		balances, err := s.source.AccountBalances(ctx, from, to)
		if err != nil {
			return nil, err
		}
		return BuildBalanceSheet(balances), nil
	})
	if err != nil {
		return BalanceSheet{}, fmt.Errorf("reports: balance sheet: %w", err)
	}
	return out, nil
}

// Invalidate bumps the cache version. Called after any posting.
func (s *Service) Invalidate(ctx context.Context) error {
	return s.cache.Bump(ctx)
}
