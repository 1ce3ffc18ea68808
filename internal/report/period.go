package report

import (
	"fmt"
	"strings"
	"time"

	"finanzas/internal/core"
)

// Type selects which movements a report covers.
type Type string

const (
	Expense Type = "expense"
	Income  Type = "income"
)

// ParseType accepts "expense" and "income". "expensive" and "expenses" are
// accepted as aliases of expense because existing clients call
// /reports/expensive/{period}.
func ParseType(s string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "expense", "expenses", "expensive":
		return Expense, nil
	case "income", "incomes":
		return Income, nil
	}
	return "", core.NewValidationError("type", fmt.Sprintf("unknown report type %q: must be expense or income", s))
}

// Period is the time bucket a report groups by.
type Period string

const (
	Daily   Period = "daily"
	Weekly  Period = "weekly"
	Monthly Period = "monthly"
	Yearly  Period = "yearly"
)

func ParsePeriod(s string) (Period, error) {
	switch p := Period(strings.ToLower(strings.TrimSpace(s))); p {
	case Daily, Weekly, Monthly, Yearly:
		return p, nil
	}
	return "", core.NewValidationError("period", fmt.Sprintf("unknown period %q: must be daily, weekly, monthly or yearly", s))
}

// Bucket is a labelled time slot. Start orders buckets chronologically.
type Bucket struct {
	Label string
	Start time.Time
}

// BucketOf maps a date to its period bucket.
func (p Period) BucketOf(d core.Date) Bucket {
	switch p {
	case Daily:
		return Bucket{Label: d.Format("2006-01-02"), Start: d.Time}
	case Weekly:
		year, week := d.ISOWeek()
		return Bucket{Label: fmt.Sprintf("%d-W%02d", year, week), Start: isoWeekStart(year, week)}
	case Monthly:
		start := time.Date(d.Year(), d.Time.Month(), 1, 0, 0, 0, 0, time.UTC)
		return Bucket{Label: start.Format("2006-01"), Start: start}
	default:
		start := time.Date(d.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
		return Bucket{Label: start.Format("2006"), Start: start}
	}
}

// isoWeekStart returns the Monday of the given ISO week.
func isoWeekStart(year, week int) time.Time {
	jan4 := time.Date(year, time.January, 4, 0, 0, 0, 0, time.UTC)
	offset := (int(jan4.Weekday()) + 6) % 7
	monday := jan4.AddDate(0, 0, -offset)
	return monday.AddDate(0, 0, (week-1)*7)
}

// Params are the report filters. Zero values mean "not provided".
type Params struct {
	UserID     int64
	BadgeID    int64
	Date       *core.Date
	WeekNumber int
	Month      int
	Year       int
}

func (p Params) validate() error {
	v := &core.ValidationError{}
	if p.UserID <= 0 {
		v.Add("userId", "is required")
	}
	if p.Month != 0 && (p.Month < 1 || p.Month > 12) {
		v.Add("month", "must be between 1 and 12")
	}
	if p.WeekNumber != 0 && (p.WeekNumber < 1 || p.WeekNumber > 53) {
		v.Add("weekNumber", "must be between 1 and 53")
	}
	if p.Year != 0 && (p.Year < 1900 || p.Year > 9999) {
		v.Add("year", "must be between 1900 and 9999")
	}
	return v.OrNil()
}

// Window is a half-open date range [From, To). A zero bound is unbounded.
type Window struct {
	From core.Date
	To   core.Date
}

// window derives the date range a period handler loads. Parameters that do
// not apply to the period are ignored.
func window(p Period, params Params, now time.Time) Window {
	year := params.Year
	if year == 0 {
		year = now.Year()
	}
	switch p {
	case Daily:
		if params.Date != nil && !params.Date.IsZero() {
			return Window{From: *params.Date, To: core.DateOf(params.Date.AddDate(0, 0, 1))}
		}
		month := params.Month
		if month == 0 {
			month = int(now.Month())
		}
		from := core.NewDate(year, month, 1)
		return Window{From: from, To: core.DateOf(from.AddDate(0, 1, 0))}
	case Weekly:
		if params.WeekNumber > 0 {
			from := core.DateOf(isoWeekStart(year, params.WeekNumber))
			return Window{From: from, To: core.DateOf(from.AddDate(0, 0, 7))}
		}
		// The ISO year, so boundary weeks are never split.
		return Window{From: core.DateOf(isoWeekStart(year, 1)), To: core.DateOf(isoWeekStart(year+1, 1))}
	case Monthly:
		if params.Month > 0 {
			from := core.NewDate(year, params.Month, 1)
			return Window{From: from, To: core.DateOf(from.AddDate(0, 1, 0))}
		}
		return Window{From: core.NewDate(year, 1, 1), To: core.NewDate(year+1, 1, 1)}
	default:
		if params.Year > 0 {
			return Window{From: core.NewDate(params.Year, 1, 1), To: core.NewDate(params.Year+1, 1, 1)}
		}
		return Window{}
	}
}
