package services

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"finanzas/internal/core"
	applog "finanzas/internal/log"
	"finanzas/internal/report"
	"finanzas/internal/storage"
)

type BudgetService struct {
	*Service[core.Budget]
	repo *storage.SQLiteRepository
}

func NewBudgetService(repo *storage.SQLiteRepository, logger *applog.Logger) *BudgetService {
	own := func(b *core.Budget, userID, id int64) { b.ID, b.UserID = id, userID }
	svc := NewService(repo.Budgets, own, logger).WithReferences(
		func(ctx context.Context, userID int64, b *core.Budget) error {
			return reference(ctx, repo.Categories, userID, b.CategoryID, "categoryId")
		})
	return &BudgetService{Service: svc, repo: repo}
}

// BudgetLine compares a budget with what was spent on its category.
type BudgetLine struct {
	BudgetID   int64           `json:"budgetId"`
	CategoryID int64           `json:"categoryId"`
	Category   string          `json:"category"`
	Year       int             `json:"year"`
	Month      int             `json:"month"`
	Budget     decimal.Decimal `json:"budget"`
	Spent      decimal.Decimal `json:"spent"`
	Remaining  decimal.Decimal `json:"remaining"`
	Used       decimal.Decimal `json:"used"`
}

// Report lists the budgets of year/month (month 0: yearly budgets) with the
// expenses booked on each category in that window. Spent is positive; Used
// is Spent as a percentage of the budget, one decimal place.
func (s *BudgetService) Report(ctx context.Context, userID int64, year, month int) ([]BudgetLine, error) {
	v := &core.ValidationError{}
	if year < 1900 || year > 9999 {
		v.Add("year", "must be between 1900 and 9999")
	}
	if month < 0 || month > 12 {
		v.Add("month", "must be between 0 and 12")
	}
	if err := v.OrNil(); err != nil {
		return nil, err
	}

	budgets, err := s.repo.Budgets.Select(ctx, userID, "year = ? AND month = ?", year, month)
	if err != nil {
		return nil, err
	}

	w := report.Window{From: core.NewDate(year, 1, 1), To: core.NewDate(year+1, 1, 1)}
	if month > 0 {
		w = report.Window{From: core.NewDate(year, month, 1), To: core.NewDate(year, month+1, 1)}
	}
	entries, err := s.repo.ReportEntries(ctx, report.Query{UserID: userID, Window: w, Sign: report.Negative})
	if err != nil {
		return nil, err
	}
	spent := map[int64]decimal.Decimal{}
	names := map[int64]string{}
	for _, e := range entries {
		spent[e.CategoryID] = spent[e.CategoryID].Add(e.Amount.Abs())
		names[e.CategoryID] = e.Category
	}

	hundred := decimal.NewFromInt(100)
	lines := make([]BudgetLine, 0, len(budgets))
	for _, b := range budgets {
		name, ok := names[b.CategoryID]
		if !ok {
			c, err := s.repo.Categories.Get(ctx, userID, b.CategoryID)
			if err != nil && !errors.Is(err, core.ErrNotFound) {
				return nil, err
			}
			name = c.Name
		}
		used := decimal.Zero
		if !b.Amount.IsZero() {
			used = spent[b.CategoryID].Mul(hundred).Div(b.Amount).Round(1)
		}
		lines = append(lines, BudgetLine{
			BudgetID:   b.ID,
			CategoryID: b.CategoryID,
			Category:   name,
			Year:       b.Year,
			Month:      b.Month,
			Budget:     b.Amount,
			Spent:      spent[b.CategoryID],
			Remaining:  b.Amount.Sub(spent[b.CategoryID]),
			Used:       used,
		})
	}
	return lines, nil
}
