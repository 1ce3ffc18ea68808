package services

import (
	"fmt"
	"time"

	"finanzas/internal/core"
)

// DuenessChecker decides whether a planned payment must run today. A zero
// last means the payment never ran.
type DuenessChecker interface {
	IsDue(last, today, start core.Date) bool
}

type DailyChecker struct{}

// IsDue reports whether the payment has not run today yet.
func (DailyChecker) IsDue(last, today, _ core.Date) bool {
	return last.IsZero() || last.Before(today.Time)
}

type WeeklyChecker struct{}

// IsDue reports whether at least seven days passed since the last run.
func (WeeklyChecker) IsDue(last, today, _ core.Date) bool {
	if last.IsZero() {
		return true
	}
	return today.Sub(last.Time) >= 7*24*time.Hour
}

type MonthlyChecker struct{}

// IsDue reports whether the payment has not run this month and today reached
// the start date's day of month. Days past the end of a short month fall on
// its last day.
func (MonthlyChecker) IsDue(last, today, start core.Date) bool {
	if last.IsZero() {
		return true
	}
	if last.Year() == today.Year() && last.Month() == today.Month() {
		return false
	}
	return today.Day() >= clampDay(today.Year(), today.Month(), start.Day())
}

type YearlyChecker struct{}

// IsDue reports whether the payment has not run this year and today reached
// the start date's month and day.
func (YearlyChecker) IsDue(last, today, start core.Date) bool {
	if last.IsZero() {
		return true
	}
	if last.Year() == today.Year() {
		return false
	}
	switch {
	case today.Month() < start.Month():
		return false
	case today.Month() > start.Month():
		return true
	}
	return today.Day() >= clampDay(today.Year(), today.Month(), start.Day())
}

// clampDay caps day at the length of the given month.
func clampDay(year, month, day int) int {
	last := time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
	if day > last {
		return last
	}
	return day
}

// GetDuenessChecker returns the checker for a payment frequency.
func GetDuenessChecker(frequency core.Frequency) (DuenessChecker, error) {
	switch frequency {
	case core.Daily:
		return DailyChecker{}, nil
	case core.Weekly:
		return WeeklyChecker{}, nil
	case core.Monthly:
		return MonthlyChecker{}, nil
	case core.Yearly:
		return YearlyChecker{}, nil
	}
	return nil, fmt.Errorf("unknown frequency: %s", frequency)
}
