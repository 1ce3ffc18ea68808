package report

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"finanzas/internal/core"
)

// Sign restricts a query to income or expense movements.
type Sign int

const (
	Negative Sign = -1
	Positive Sign = 1
)

// Query is what a period handler asks the store for.
type Query struct {
	UserID  int64
	BadgeID int64
	Window  Window
	Sign    Sign
}

// Entry is one movement as returned by the store, already joined with its
// category. The store decides the category order inside a day.
type Entry struct {
	Date       core.Date
	CategoryID int64
	Category   string
	Color      string
	Icon       string
	Amount     decimal.Decimal
}

// Store loads report entries.
type Store interface {
	ReportEntries(ctx context.Context, q Query) ([]Entry, error)
}

// Row is one line of a period report.
type Row struct {
	Period        string          `json:"period"`
	CategoryID    int64           `json:"categoryId"`
	Category      string          `json:"category"`
	Color         string          `json:"color"`
	Icon          string          `json:"icon"`
	Amount        decimal.Decimal `json:"amount"`
	Participation decimal.Decimal `json:"participation"`
}

type handlerFunc func(ctx context.Context, params Params) ([]Row, error)

// Selector dispatches a (type, period) pair to one of eight report handlers.
type Selector struct {
	store Store
	now   func() time.Time
}

func NewSelector(store Store) *Selector {
	return &Selector{store: store, now: time.Now}
}

// WithClock overrides the clock used to default month and year.
func (s *Selector) WithClock(now func() time.Time) *Selector {
	s.now = now
	return s
}

// Generate validates the selector and parameters, then runs the matching
// handler. Validation failures never reach the store.
func (s *Selector) Generate(ctx context.Context, t Type, p Period, params Params) ([]Row, error) {
	handler, err := s.handler(t, p)
	if err != nil {
		return nil, err
	}
	if err := params.validate(); err != nil {
		return nil, err
	}
	return handler(ctx, params)
}

func (s *Selector) handler(t Type, p Period) (handlerFunc, error) {
	switch t {
	case Expense:
		switch p {
		case Daily:
			return s.dailyExpense, nil
		case Weekly:
			return s.weeklyExpense, nil
		case Monthly:
			return s.monthlyExpense, nil
		case Yearly:
			return s.yearlyExpense, nil
		}
	case Income:
		switch p {
		case Daily:
			return s.dailyIncome, nil
		case Weekly:
			return s.weeklyIncome, nil
		case Monthly:
			return s.monthlyIncome, nil
		case Yearly:
			return s.yearlyIncome, nil
		}
	default:
		return nil, core.NewValidationError("type", fmt.Sprintf("unknown report type %q", t))
	}
	return nil, core.NewValidationError("period", fmt.Sprintf("unknown period %q", p))
}

func (s *Selector) dailyExpense(ctx context.Context, params Params) ([]Row, error) {
	return s.run(ctx, Negative, Daily, params)
}

func (s *Selector) weeklyExpense(ctx context.Context, params Params) ([]Row, error) {
	return s.run(ctx, Negative, Weekly, params)
}

func (s *Selector) monthlyExpense(ctx context.Context, params Params) ([]Row, error) {
	return s.run(ctx, Negative, Monthly, params)
}

func (s *Selector) yearlyExpense(ctx context.Context, params Params) ([]Row, error) {
	return s.run(ctx, Negative, Yearly, params)
}

func (s *Selector) dailyIncome(ctx context.Context, params Params) ([]Row, error) {
	return s.run(ctx, Positive, Daily, params)
}

func (s *Selector) weeklyIncome(ctx context.Context, params Params) ([]Row, error) {
	return s.run(ctx, Positive, Weekly, params)
}

func (s *Selector) monthlyIncome(ctx context.Context, params Params) ([]Row, error) {
	return s.run(ctx, Positive, Monthly, params)
}

func (s *Selector) yearlyIncome(ctx context.Context, params Params) ([]Row, error) {
	return s.run(ctx, Positive, Yearly, params)
}

func (s *Selector) run(ctx context.Context, sign Sign, p Period, params Params) ([]Row, error) {
	q := Query{
		UserID:  params.UserID,
		BadgeID: params.BadgeID,
		Window:  window(p, params, s.now()),
		Sign:    sign,
	}
	entries, err := s.store.ReportEntries(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("load %s report entries: %w", p, err)
	}
	return Build(p, entries), nil
}

type bucketGroup struct {
	bucket Bucket
	lines  []Line
	index  map[int64]int
}

// Build groups entries per (bucket, category) and computes participation
// inside each bucket. Buckets come out most recent first; categories keep
// the order in which they first appear in entries.
func Build(p Period, entries []Entry) []Row {
	groups := map[string]*bucketGroup{}
	order := make([]*bucketGroup, 0)
	for _, e := range entries {
		b := p.BucketOf(e.Date)
		g, ok := groups[b.Label]
		if !ok {
			g = &bucketGroup{bucket: b, index: map[int64]int{}}
			groups[b.Label] = g
			order = append(order, g)
		}
		i, ok := g.index[e.CategoryID]
		if !ok {
			i = len(g.lines)
			g.index[e.CategoryID] = i
			g.lines = append(g.lines, Line{Key: e.Category, ID: e.CategoryID, Color: e.Color, Icon: e.Icon, Amount: decimal.Zero})
		}
		g.lines[i].Amount = g.lines[i].Amount.Add(e.Amount)
	}

	sort.SliceStable(order, func(i, j int) bool {
		return order[i].bucket.Start.After(order[j].bucket.Start)
	})

	rows := make([]Row, 0, len(entries))
	for _, g := range order {
		for _, share := range Participation(g.lines) {
			rows = append(rows, Row{
				Period:        g.bucket.Label,
				CategoryID:    share.ID,
				Category:      share.Key,
				Color:         share.Color,
				Icon:          share.Icon,
				Amount:        share.Amount,
				Participation: share.Participation,
			})
		}
	}
	return rows
}
