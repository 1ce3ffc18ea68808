package services

import (
	"context"
	"strconv"
	"strings"

	"finanzas/internal/core"
	"finanzas/internal/report"
	"finanzas/internal/storage"
)

// BalanceService derives account balances from initial amounts and
// movements. Nothing is stored; every call recomputes.
type BalanceService struct {
	repo *storage.SQLiteRepository
}

func NewBalanceService(repo *storage.SQLiteRepository) *BalanceService {
	return &BalanceService{repo: repo}
}

func (s *BalanceService) Accounts(ctx context.Context, userID int64) ([]storage.AccountBalance, error) {
	return s.repo.AccountBalances(ctx, userID)
}

func (s *BalanceService) Account(ctx context.Context, userID, accountID int64) (storage.AccountBalance, error) {
	balances, err := s.repo.AccountBalances(ctx, userID)
	if err != nil {
		return storage.AccountBalance{}, err
	}
	for _, b := range balances {
		if b.AccountID == accountID {
			return b, nil
		}
	}
	return storage.AccountBalance{}, &core.NotFoundError{Resource: "account", ID: accountID}
}

// History returns the running balance per currency at the end of every
// period bucket that saw movements. A non-zero year keeps only that year's
// buckets; earlier movements still count towards the opening balance.
func (s *BalanceService) History(ctx context.Context, userID int64, period string, year int) ([]report.BalancePoint, error) {
	p, err := report.ParsePeriod(period)
	if err != nil {
		return nil, err
	}
	opening, err := s.repo.OpeningBalances(ctx, userID)
	if err != nil {
		return nil, err
	}
	flows, err := s.repo.Flows(ctx, userID, report.Window{}, p)
	if err != nil {
		return nil, err
	}

	points := report.RunningBalance(opening, flows)
	if year == 0 {
		return points, nil
	}
	prefix := strconv.Itoa(year)
	out := make([]report.BalancePoint, 0, len(points))
	for _, pt := range points {
		if strings.HasPrefix(pt.Period, prefix) {
			out = append(out, pt)
		}
	}
	return out, nil
}
