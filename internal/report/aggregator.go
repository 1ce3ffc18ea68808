// Package report computes percentage breakdowns, running balances and the
// multi-period movement reports served under /reports.
package report

import (
	"github.com/shopspring/decimal"

	"finanzas/internal/core"
)

var hundred = decimal.NewFromInt(100)

// Line is one grouped total: a category or a currency with its amount.
type Line struct {
	Key    string
	ID     int64
	Color  string
	Icon   string
	Amount decimal.Decimal
}

// Share is a Line with its share of the absolute total, in percent.
type Share struct {
	Line
	Participation decimal.Decimal
}

// Participation computes each line's share of Σ|amount|, rounded to one
// decimal place. Amounts are returned as absolute values, so the sign of a
// line is lost: a refund inside an expense report counts as spending.
// Signed totals are computed by SignedTotals.
//
// Input order is preserved. Empty input yields an empty, non-nil slice.
func Participation(lines []Line) []Share {
	out := make([]Share, 0, len(lines))
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Amount.Abs())
	}
	for _, l := range lines {
		abs := l.Amount.Abs()
		pct := decimal.Zero
		if !total.IsZero() {
			pct = abs.Mul(hundred).Div(total).Round(1)
		}
		l.Amount = abs
		out = append(out, Share{Line: l, Participation: pct})
	}
	return out
}

// Total is the signed income/expense split for one currency.
type Total struct {
	Badge   string          `json:"badge"`
	Income  decimal.Decimal `json:"income"`
	Expense decimal.Decimal `json:"expense"`
	Net     decimal.Decimal `json:"net"`
}

// Flow is a signed amount in a currency at a bucket.
type Flow struct {
	Badge  string
	Bucket Bucket
	Amount decimal.Decimal
}

// SignedTotals sums income (positive) and expenses (negative) per currency,
// keeping the sign of every movement. Currencies appear in first-seen order.
func SignedTotals(flows []Flow) []Total {
	index := map[string]int{}
	out := make([]Total, 0)
	for _, f := range flows {
		i, ok := index[f.Badge]
		if !ok {
			i = len(out)
			index[f.Badge] = i
			out = append(out, Total{Badge: f.Badge, Income: decimal.Zero, Expense: decimal.Zero, Net: decimal.Zero})
		}
		t := &out[i]
		if core.IsIncome(f.Amount) {
			t.Income = t.Income.Add(f.Amount)
		} else {
			t.Expense = t.Expense.Add(f.Amount)
		}
		t.Net = t.Net.Add(f.Amount)
	}
	return out
}
