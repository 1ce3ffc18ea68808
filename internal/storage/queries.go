package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"finanzas/internal/core"
	"finanzas/internal/report"
)

// ReportEntries returns the movements of a report window joined with their
// category, ordered by category name so every bucket lists categories
// alphabetically. A zero BadgeID covers every currency.
//
// Like Flows and the balance queries, it skips movements of soft-deleted
// accounts. Soft-deleting a category only hides the category itself.
func (r *SQLiteRepository) ReportEntries(ctx context.Context, q report.Query) ([]report.Entry, error) {
	conds := []string{"m.user_id = ?", "a.deleted_at IS NULL"}
	args := []any{q.UserID}
	if q.BadgeID > 0 {
		conds = append(conds, "a.badge_id = ?")
		args = append(args, q.BadgeID)
	}
	conds, args = windowConds(conds, args, q.Window)
	switch q.Sign {
	case report.Negative:
		conds = append(conds, "CAST(m.amount AS REAL) < 0")
	case report.Positive:
		conds = append(conds, "CAST(m.amount AS REAL) > 0")
	}

	query := `SELECT m.purchase_date, c.id, c.name, c.color, c.icon, m.amount
		FROM movements m
		JOIN categories c ON c.id = m.category_id
		JOIN accounts a ON a.id = m.account_id
		WHERE ` + strings.Join(conds, " AND ") + `
		ORDER BY c.name, c.id, m.purchase_date DESC, m.id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query report entries: %w", err)
	}
	defer rows.Close()

	entries := make([]report.Entry, 0)
	for rows.Next() {
		var e report.Entry
		if err := rows.Scan(&e.Date, &e.CategoryID, &e.Category, &e.Color, &e.Icon, &e.Amount); err != nil {
			return nil, fmt.Errorf("scan report entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func windowConds(conds []string, args []any, w report.Window) ([]string, []any) {
	if !w.From.IsZero() {
		conds = append(conds, "m.purchase_date >= ?")
		args = append(args, w.From.String())
	}
	if !w.To.IsZero() {
		conds = append(conds, "m.purchase_date < ?")
		args = append(args, w.To.String())
	}
	return conds, args
}

// Flows returns every movement of live accounts as a signed amount in its
// currency, bucketed by period.
func (r *SQLiteRepository) Flows(ctx context.Context, userID int64, w report.Window, p report.Period) ([]report.Flow, error) {
	conds, args := windowConds([]string{"m.user_id = ?", "a.deleted_at IS NULL"}, []any{userID}, w)
	query := `SELECT b.code, m.purchase_date, m.amount
		FROM movements m
		JOIN accounts a ON a.id = m.account_id
		JOIN badges b ON b.id = a.badge_id
		WHERE ` + strings.Join(conds, " AND ") + `
		ORDER BY m.purchase_date, m.id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query flows: %w", err)
	}
	defer rows.Close()

	flows := make([]report.Flow, 0)
	for rows.Next() {
		var (
			badge  string
			date   core.Date
			amount decimal.Decimal
		)
		if err := rows.Scan(&badge, &date, &amount); err != nil {
			return nil, fmt.Errorf("scan flow: %w", err)
		}
		flows = append(flows, report.Flow{Badge: badge, Bucket: p.BucketOf(date), Amount: amount})
	}
	return flows, rows.Err()
}

// OpeningBalances sums the initial amounts of live accounts per currency.
func (r *SQLiteRepository) OpeningBalances(ctx context.Context, userID int64) (map[string]decimal.Decimal, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT b.code, a.init_amount
		FROM accounts a JOIN badges b ON b.id = a.badge_id
		WHERE a.user_id = ? AND a.deleted_at IS NULL`, userID)
	if err != nil {
		return nil, fmt.Errorf("query opening balances: %w", err)
	}
	defer rows.Close()

	out := map[string]decimal.Decimal{}
	for rows.Next() {
		var (
			badge  string
			amount decimal.Decimal
		)
		if err := rows.Scan(&badge, &amount); err != nil {
			return nil, fmt.Errorf("scan opening balance: %w", err)
		}
		out[badge] = out[badge].Add(amount)
	}
	return out, rows.Err()
}

// AccountBalance is an account with its derived balance.
type AccountBalance struct {
	AccountID  int64           `json:"accountId"`
	Name       string          `json:"name"`
	Badge      string          `json:"badge"`
	InitAmount decimal.Decimal `json:"initAmount"`
	Balance    decimal.Decimal `json:"balance"`
}

// AccountBalances derives balance = initial amount + Σ movements for every
// live account of the user. Sums run in decimal arithmetic.
func (r *SQLiteRepository) AccountBalances(ctx context.Context, userID int64) ([]AccountBalance, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT a.id, a.name, b.code, a.init_amount, m.amount
		FROM accounts a
		JOIN badges b ON b.id = a.badge_id
		LEFT JOIN movements m ON m.account_id = a.id
		WHERE a.user_id = ? AND a.deleted_at IS NULL
		ORDER BY a.name, a.id`, userID)
	if err != nil {
		return nil, fmt.Errorf("query account balances: %w", err)
	}
	defer rows.Close()

	out := make([]AccountBalance, 0)
	index := map[int64]int{}
	for rows.Next() {
		var (
			ab     AccountBalance
			amount decimal.NullDecimal
		)
		if err := rows.Scan(&ab.AccountID, &ab.Name, &ab.Badge, &ab.InitAmount, &amount); err != nil {
			return nil, fmt.Errorf("scan account balance: %w", err)
		}
		i, ok := index[ab.AccountID]
		if !ok {
			ab.Balance = ab.InitAmount
			i = len(out)
			index[ab.AccountID] = i
			out = append(out, ab)
		}
		if amount.Valid {
			out[i].Balance = out[i].Balance.Add(amount.Decimal)
		}
	}
	return out, rows.Err()
}

// FindTransferCounterpart returns the id of the first movement matching the
// (account, category, amount, date) tuple of a transfer leg.
func (r *SQLiteRepository) FindTransferCounterpart(ctx context.Context, userID, accountID, categoryID int64, amount decimal.Decimal, date core.Date) (int64, bool, error) {
	var id int64
	err := r.db.QueryRowContext(ctx, `SELECT id FROM movements
		WHERE user_id = ? AND account_id = ? AND category_id = ? AND amount = ? AND purchase_date = ?
		ORDER BY id LIMIT 1`, userID, accountID, categoryID, amount.String(), date.String()).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("find transfer counterpart: %w", err)
	}
	return id, true, nil
}

// ActivePayments returns planned payments of every user whose window covers day.
func (r *SQLiteRepository) ActivePayments(ctx context.Context, day core.Date) ([]core.PlannedPayment, error) {
	t := r.Payments
	query := t.selectSQL() + ` WHERE start_date <= ? AND (end_date IS NULL OR end_date >= ?) ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query, day.String(), day.String())
	if err != nil {
		return nil, fmt.Errorf("query active payments: %w", err)
	}
	defer rows.Close()

	out := make([]core.PlannedPayment, 0)
	for rows.Next() {
		p, err := t.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// MarkPaymentExecuted records the day a planned payment last produced a movement.
func (r *SQLiteRepository) MarkPaymentExecuted(ctx context.Context, id int64, day core.Date) error {
	_, err := r.db.ExecContext(ctx, `UPDATE payments SET last_execution_date = ? WHERE id = ?`, day.String(), id)
	if err != nil {
		return fmt.Errorf("mark payment %d executed: %w", id, err)
	}
	return nil
}

// MovementDetail is a movement joined with the display names of its
// account, category and currency.
type MovementDetail struct {
	ID          int64
	UserID      int64
	Date        core.Date
	Account     string
	Category    string
	Badge       string
	Amount      decimal.Decimal
	Description string
}

const movementDetailSQL = `SELECT m.id, m.user_id, m.purchase_date, a.name, c.name, b.code, m.amount, m.description
	FROM movements m
	JOIN accounts a ON a.id = m.account_id
	JOIN categories c ON c.id = m.category_id
	JOIN badges b ON b.id = a.badge_id`

func scanMovementDetail(row scanner) (MovementDetail, error) {
	var d MovementDetail
	err := row.Scan(&d.ID, &d.UserID, &d.Date, &d.Account, &d.Category, &d.Badge, &d.Amount, &d.Description)
	return d, err
}

// MovementDetail loads a movement regardless of owner. Used by the event
// consumer, which only receives ids. Soft-deleted accounts and categories
// still resolve so historical rows keep their names.
func (r *SQLiteRepository) MovementDetail(ctx context.Context, id int64) (MovementDetail, error) {
	d, err := scanMovementDetail(r.db.QueryRowContext(ctx, movementDetailSQL+" WHERE m.id = ?", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return d, &core.NotFoundError{Resource: r.Movements.resource, ID: id}
		}
		return d, fmt.Errorf("get movement %d: %w", id, err)
	}
	return d, nil
}

// MovementDetails lists every movement of every user in id order.
func (r *SQLiteRepository) MovementDetails(ctx context.Context) ([]MovementDetail, error) {
	rows, err := r.db.QueryContext(ctx, movementDetailSQL+" ORDER BY m.id")
	if err != nil {
		return nil, fmt.Errorf("query movement details: %w", err)
	}
	defer rows.Close()

	out := make([]MovementDetail, 0)
	for rows.Next() {
		d, err := scanMovementDetail(rows)
		if err != nil {
			return nil, fmt.Errorf("scan movement detail: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
