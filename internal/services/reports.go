package services

import (
	"context"
	"time"

	"finanzas/internal/core"
	"finanzas/internal/report"
	"finanzas/internal/storage"
)

// ReportService serves the period reports and the signed totals.
type ReportService struct {
	repo     *storage.SQLiteRepository
	selector *report.Selector
	now      func() time.Time
}

func NewReportService(repo *storage.SQLiteRepository) *ReportService {
	return &ReportService{repo: repo, selector: report.NewSelector(repo), now: time.Now}
}

// WithClock overrides the clock used for parameter defaults.
func (s *ReportService) WithClock(now func() time.Time) *ReportService {
	s.now = now
	s.selector.WithClock(now)
	return s
}

// Generate parses the (type, period) selector and runs the matching report.
func (s *ReportService) Generate(ctx context.Context, reportType, period string, params report.Params) ([]report.Row, error) {
	t, err := report.ParseType(reportType)
	if err != nil {
		return nil, err
	}
	p, err := report.ParsePeriod(period)
	if err != nil {
		return nil, err
	}
	return s.selector.Generate(ctx, t, p, params)
}

// Totals returns signed income, expense and net per currency for year
// (default: the current year).
func (s *ReportService) Totals(ctx context.Context, userID int64, year int) ([]report.Total, error) {
	if year == 0 {
		year = s.now().Year()
	}
	if year < 1900 || year > 9999 {
		return nil, core.NewValidationError("year", "must be between 1900 and 9999")
	}
	w := report.Window{From: core.NewDate(year, 1, 1), To: core.NewDate(year+1, 1, 1)}
	flows, err := s.repo.Flows(ctx, userID, w, report.Yearly)
	if err != nil {
		return nil, err
	}
	return report.SignedTotals(flows), nil
}
